package admin

import (
	"strings"

	handlershared "github.com/modaplex/internal/http/handlers/shared"
	"github.com/modaplex/internal/http/response"
	"github.com/modaplex/internal/models"
	"github.com/modaplex/internal/repository"
	"github.com/modaplex/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// BankDetailsRequest 银行信息
type BankDetailsRequest struct {
	BankName          string `json:"bank_name"`
	BankAccountName   string `json:"bank_account_name"`
	BankAccountNumber string `json:"bank_account_number"`
	BankRoutingCode   string `json:"bank_routing_code"`
}

func (r BankDetailsRequest) toService() service.BankDetails {
	return service.BankDetails{
		BankName:          r.BankName,
		BankAccountName:   r.BankAccountName,
		BankAccountNumber: r.BankAccountNumber,
		BankRoutingCode:   r.BankRoutingCode,
	}
}

// CreateVendorRequest 创建商家请求
type CreateVendorRequest struct {
	Email                 string              `json:"email" binding:"required"`
	Password              string              `json:"password" binding:"required"`
	Name                  string              `json:"name" binding:"required"`
	Slug                  string              `json:"slug"`
	ContactEmail          string              `json:"contact_email"`
	DefaultCommissionRate decimal.NullDecimal `json:"default_commission_rate"`
	Bank                  BankDetailsRequest  `json:"bank"`
}

// UpdateVendorRequest 更新商家请求，缺省字段不修改
type UpdateVendorRequest struct {
	Name                  *string              `json:"name"`
	Slug                  *string              `json:"slug"`
	ContactEmail          *string              `json:"contact_email"`
	DefaultCommissionRate *decimal.NullDecimal `json:"default_commission_rate"`
	Status                *string              `json:"status"`
	Bank                  *BankDetailsRequest  `json:"bank"`
}

// VendorView 商家返回，银行账号脱敏
type VendorView struct {
	models.Vendor
	BankAccountNumberMasked string `json:"bank_account_number_masked"`
}

func toVendorView(vendor *models.Vendor) VendorView {
	return VendorView{Vendor: *vendor, BankAccountNumberMasked: vendor.MaskedAccountNumber()}
}

// ListVendors 商家列表
func (h *Handler) ListVendors(c *gin.Context) {
	page, pageSize := handlershared.ParsePagination(c)
	vendors, total, err := h.VendorService.List(repository.VendorListFilter{
		Page:     page,
		PageSize: pageSize,
		Status:   strings.TrimSpace(c.Query("status")),
		Keyword:  strings.TrimSpace(c.Query("keyword")),
	})
	if err != nil {
		handlershared.RespondError(c, err)
		return
	}
	items := make([]VendorView, 0, len(vendors))
	for i := range vendors {
		items = append(items, toVendorView(&vendors[i]))
	}
	response.SuccessWithPage(c, items, response.NewPagination(page, pageSize, total))
}

// GetVendor 商家详情
func (h *Handler) GetVendor(c *gin.Context) {
	id, ok := handlershared.ParseIDParam(c, "id")
	if !ok {
		return
	}
	vendor, err := h.VendorService.Get(id)
	if err != nil {
		handlershared.RespondError(c, err)
		return
	}
	response.Success(c, toVendorView(vendor))
}

// CreateVendor 创建商家及其登录账号
func (h *Handler) CreateVendor(c *gin.Context) {
	var req CreateVendorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handlershared.RespondBadRequest(c, err)
		return
	}
	vendor, err := h.VendorService.Create(c.Request.Context(), service.CreateVendorInput{
		Email:                 req.Email,
		Password:              req.Password,
		Name:                  req.Name,
		Slug:                  req.Slug,
		ContactEmail:          req.ContactEmail,
		DefaultCommissionRate: req.DefaultCommissionRate,
		Bank:                  req.Bank.toService(),
	})
	if err != nil {
		handlershared.RespondError(c, err)
		return
	}
	handlershared.RequestLog(c).Infow("admin_vendor_created", "vendor_id", vendor.ID, "actor", actorOf(c))
	response.Created(c, toVendorView(vendor))
}

// UpdateVendor 更新商家，停用商家会同时停用其登录账号
func (h *Handler) UpdateVendor(c *gin.Context) {
	id, ok := handlershared.ParseIDParam(c, "id")
	if !ok {
		return
	}
	var req UpdateVendorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handlershared.RespondBadRequest(c, err)
		return
	}
	input := service.UpdateVendorInput{
		Name:                  req.Name,
		Slug:                  req.Slug,
		ContactEmail:          req.ContactEmail,
		DefaultCommissionRate: req.DefaultCommissionRate,
		Status:                req.Status,
	}
	if req.Bank != nil {
		bank := req.Bank.toService()
		input.Bank = &bank
	}
	vendor, err := h.VendorService.Update(c.Request.Context(), id, input)
	if err != nil {
		handlershared.RespondError(c, err)
		return
	}
	response.Success(c, toVendorView(vendor))
}
