package public

import (
	"strings"

	handlershared "github.com/modaplex/internal/http/handlers/shared"
	"github.com/modaplex/internal/http/response"
	"github.com/modaplex/internal/repository"

	"github.com/gin-gonic/gin"
)

// ListProducts 上架商品列表
func (h *Handler) ListProducts(c *gin.Context) {
	page, pageSize := handlershared.ParsePagination(c)
	products, total, err := h.ProductService.ListPublic(repository.ProductListFilter{
		Page:     page,
		PageSize: pageSize,
		VendorID: handlershared.QueryUint(c, "vendor_id"),
		BrandID:  handlershared.QueryUint(c, "brand_id"),
		Category: strings.TrimSpace(c.Query("category")),
		Keyword:  strings.TrimSpace(c.Query("keyword")),
		MinPrice: strings.TrimSpace(c.Query("min_price")),
		MaxPrice: strings.TrimSpace(c.Query("max_price")),
		Sort:     strings.TrimSpace(c.Query("sort")),
	})
	if err != nil {
		handlershared.RespondError(c, err)
		return
	}
	response.SuccessWithPage(c, products, response.NewPagination(page, pageSize, total))
}

// GetProductBySlug 商品详情
func (h *Handler) GetProductBySlug(c *gin.Context) {
	slug := strings.TrimSpace(c.Param("slug"))
	if slug == "" {
		response.BadRequest(c, "slug required")
		return
	}
	product, err := h.ProductService.GetPublicBySlug(slug)
	if err != nil {
		handlershared.RespondError(c, err)
		return
	}
	response.Success(c, product)
}
