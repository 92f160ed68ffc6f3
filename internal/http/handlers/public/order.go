package public

import (
	"strings"

	handlershared "github.com/modaplex/internal/http/handlers/shared"
	"github.com/modaplex/internal/http/response"
	"github.com/modaplex/internal/models"
	"github.com/modaplex/internal/repository"
	"github.com/modaplex/internal/service"

	"github.com/gin-gonic/gin"
)

// CheckoutRequest 下单请求，购物车取自当前会话
type CheckoutRequest struct {
	ShippingAddress models.Address  `json:"shipping_address"`
	BillingAddress  *models.Address `json:"billing_address"`
	Notes           string          `json:"notes"`
}

// CreateOrder 购物车结算下单
func (h *Handler) CreateOrder(c *gin.Context) {
	userID, ok := handlershared.GetUserID(c)
	if !ok {
		return
	}
	var req CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handlershared.RespondBadRequest(c, err)
		return
	}
	user, err := h.AuthService.GetUserByID(userID)
	if err != nil {
		handlershared.RespondError(c, err)
		return
	}
	order, err := h.OrderService.Checkout(c.Request.Context(), service.CheckoutInput{
		UserID:          userID,
		CustomerEmail:   user.Email,
		SessionKey:      cartSession(c),
		ShippingAddress: req.ShippingAddress,
		BillingAddress:  req.BillingAddress,
		Notes:           strings.TrimSpace(req.Notes),
	})
	if err != nil {
		handlershared.RespondError(c, err)
		return
	}
	response.Created(c, order)
}

// ListOrders 我的订单
func (h *Handler) ListOrders(c *gin.Context) {
	userID, ok := handlershared.GetUserID(c)
	if !ok {
		return
	}
	page, pageSize := handlershared.ParsePagination(c)
	orders, total, err := h.OrderService.ListForUser(repository.OrderListFilter{
		Page:     page,
		PageSize: pageSize,
		UserID:   userID,
		Status:   strings.TrimSpace(c.Query("status")),
	})
	if err != nil {
		handlershared.RespondError(c, err)
		return
	}
	response.SuccessWithPage(c, orders, response.NewPagination(page, pageSize, total))
}

// GetOrder 我的订单详情
func (h *Handler) GetOrder(c *gin.Context) {
	userID, ok := handlershared.GetUserID(c)
	if !ok {
		return
	}
	order, err := h.OrderService.GetForUser(c.Request.Context(), c.Param("order_no"), userID)
	if err != nil {
		handlershared.RespondError(c, err)
		return
	}
	response.Success(c, order)
}
