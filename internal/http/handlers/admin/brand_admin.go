package admin

import (
	handlershared "github.com/modaplex/internal/http/handlers/shared"
	"github.com/modaplex/internal/http/response"
	"github.com/modaplex/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// BrandRequest 品牌请求，商家账号提交的 vendor_id 会被忽略
type BrandRequest struct {
	VendorID       uint                `json:"vendor_id"`
	Name           string              `json:"name" binding:"required"`
	Slug           string              `json:"slug"`
	CommissionRate decimal.NullDecimal `json:"commission_rate"`
	IsActive       *bool               `json:"is_active"`
}

func (r BrandRequest) toService() service.BrandInput {
	return service.BrandInput{
		VendorID:       r.VendorID,
		Name:           r.Name,
		Slug:           r.Slug,
		CommissionRate: r.CommissionRate,
		IsActive:       r.IsActive,
	}
}

// ListBrands 品牌列表
func (h *Handler) ListBrands(c *gin.Context) {
	brands, err := h.VendorService.ListBrands(scopedVendorQuery(c))
	if err != nil {
		handlershared.RespondError(c, err)
		return
	}
	response.Success(c, brands)
}

// GetBrand 品牌详情
func (h *Handler) GetBrand(c *gin.Context) {
	id, ok := handlershared.ParseIDParam(c, "id")
	if !ok {
		return
	}
	brand, err := h.VendorService.GetBrand(id, handlershared.ScopeVendorID(c))
	if err != nil {
		handlershared.RespondError(c, err)
		return
	}
	response.Success(c, brand)
}

// CreateBrand 创建品牌
func (h *Handler) CreateBrand(c *gin.Context) {
	var req BrandRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handlershared.RespondBadRequest(c, err)
		return
	}
	brand, err := h.VendorService.CreateBrand(req.toService(), handlershared.ScopeVendorID(c))
	if err != nil {
		handlershared.RespondError(c, err)
		return
	}
	response.Created(c, brand)
}

// UpdateBrand 更新品牌
func (h *Handler) UpdateBrand(c *gin.Context) {
	id, ok := handlershared.ParseIDParam(c, "id")
	if !ok {
		return
	}
	var req BrandRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handlershared.RespondBadRequest(c, err)
		return
	}
	brand, err := h.VendorService.UpdateBrand(id, req.toService(), handlershared.ScopeVendorID(c))
	if err != nil {
		handlershared.RespondError(c, err)
		return
	}
	response.Success(c, brand)
}
