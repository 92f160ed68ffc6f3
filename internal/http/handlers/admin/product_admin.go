package admin

import (
	"strings"

	handlershared "github.com/modaplex/internal/http/handlers/shared"
	"github.com/modaplex/internal/http/response"
	"github.com/modaplex/internal/repository"
	"github.com/modaplex/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// ProductRequest 商品请求
type ProductRequest struct {
	BrandID        uint            `json:"brand_id" binding:"required"`
	Name           string          `json:"name" binding:"required"`
	Slug           string          `json:"slug"`
	SKU            string          `json:"sku" binding:"required"`
	Category       string          `json:"category"`
	Description    string          `json:"description"`
	Price          decimal.Decimal `json:"price"`
	CompareAtPrice decimal.Decimal `json:"compare_at_price"`
	Stock          int             `json:"stock"`
	Sizes          []string        `json:"sizes"`
	Colors         []string        `json:"colors"`
	IsActive       *bool           `json:"is_active"`
}

func (r ProductRequest) toService() service.ProductInput {
	return service.ProductInput{
		BrandID:        r.BrandID,
		Name:           r.Name,
		Slug:           r.Slug,
		SKU:            r.SKU,
		Category:       r.Category,
		Description:    r.Description,
		Price:          r.Price,
		CompareAtPrice: r.CompareAtPrice,
		Stock:          r.Stock,
		Sizes:          r.Sizes,
		Colors:         r.Colors,
		IsActive:       r.IsActive,
	}
}

// ListProducts 商品列表（含下架）
func (h *Handler) ListProducts(c *gin.Context) {
	page, pageSize := handlershared.ParsePagination(c)
	filter := repository.ProductListFilter{
		Page:     page,
		PageSize: pageSize,
		VendorID: handlershared.QueryUint(c, "vendor_id"),
		BrandID:  handlershared.QueryUint(c, "brand_id"),
		Category: strings.TrimSpace(c.Query("category")),
		Keyword:  strings.TrimSpace(c.Query("keyword")),
		Sort:     strings.TrimSpace(c.Query("sort")),
	}
	products, total, err := h.ProductService.ListAdmin(filter, handlershared.ScopeVendorID(c))
	if err != nil {
		handlershared.RespondError(c, err)
		return
	}
	response.SuccessWithPage(c, products, response.NewPagination(page, pageSize, total))
}

// GetProduct 商品详情
func (h *Handler) GetProduct(c *gin.Context) {
	id, ok := handlershared.ParseIDParam(c, "id")
	if !ok {
		return
	}
	product, err := h.ProductService.GetAdmin(id, handlershared.ScopeVendorID(c))
	if err != nil {
		handlershared.RespondError(c, err)
		return
	}
	response.Success(c, product)
}

// CreateProduct 创建商品
func (h *Handler) CreateProduct(c *gin.Context) {
	var req ProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handlershared.RespondBadRequest(c, err)
		return
	}
	product, err := h.ProductService.Create(req.toService(), handlershared.ScopeVendorID(c))
	if err != nil {
		handlershared.RespondError(c, err)
		return
	}
	response.Created(c, product)
}

// UpdateProduct 更新商品
func (h *Handler) UpdateProduct(c *gin.Context) {
	id, ok := handlershared.ParseIDParam(c, "id")
	if !ok {
		return
	}
	var req ProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handlershared.RespondBadRequest(c, err)
		return
	}
	product, err := h.ProductService.Update(id, req.toService(), handlershared.ScopeVendorID(c))
	if err != nil {
		handlershared.RespondError(c, err)
		return
	}
	response.Success(c, product)
}
