package admin

import (
	"strings"

	handlershared "github.com/modaplex/internal/http/handlers/shared"
	"github.com/modaplex/internal/http/response"
	"github.com/modaplex/internal/models"
	"github.com/modaplex/internal/repository"
	"github.com/modaplex/internal/service"

	"github.com/gin-gonic/gin"
)

// OrderStatusRequest 订单状态变更请求
type OrderStatusRequest struct {
	Status string `json:"status" binding:"required"`
	Notes  string `json:"notes"`
}

// ItemQuantityRequest 订单项数量修正请求
type ItemQuantityRequest struct {
	Quantity int `json:"quantity" binding:"required"`
}

// DiscountRequest 订单优惠请求
type DiscountRequest struct {
	Amount models.Money `json:"amount"`
}

// ListOrders 订单列表，商家账号仅可见包含本商家订单项的订单
func (h *Handler) ListOrders(c *gin.Context) {
	page, pageSize := handlershared.ParsePagination(c)
	createdFrom, err := handlershared.ParseTimeNullable(c.Query("created_from"))
	if err != nil {
		handlershared.RespondBadRequest(c, err)
		return
	}
	createdTo, err := handlershared.ParseTimeNullable(c.Query("created_to"))
	if err != nil {
		handlershared.RespondBadRequest(c, err)
		return
	}

	vendorID := handlershared.ScopeVendorID(c)
	if vendorID == 0 {
		vendorID = handlershared.QueryUint(c, "vendor_id")
	}
	orders, total, err := h.OrderService.ListAdmin(repository.OrderListFilter{
		Page:          page,
		PageSize:      pageSize,
		UserID:        handlershared.QueryUint(c, "user_id"),
		VendorID:      vendorID,
		Status:        strings.TrimSpace(c.Query("status")),
		PaymentStatus: strings.TrimSpace(c.Query("payment_status")),
		OrderNo:       strings.TrimSpace(c.Query("order_no")),
		CreatedFrom:   createdFrom,
		CreatedTo:     createdTo,
	})
	if err != nil {
		handlershared.RespondError(c, err)
		return
	}
	response.SuccessWithPage(c, orders, response.NewPagination(page, pageSize, total))
}

// GetOrder 订单详情
func (h *Handler) GetOrder(c *gin.Context) {
	orderID, ok := handlershared.ParseIDParam(c, "id")
	if !ok {
		return
	}
	order, err := h.OrderService.GetAdmin(c.Request.Context(), orderID, handlershared.ScopeVendorID(c))
	if err != nil {
		handlershared.RespondError(c, err)
		return
	}
	response.Success(c, order)
}

// GetOrderHistory 订单状态流水
func (h *Handler) GetOrderHistory(c *gin.Context) {
	orderID, ok := handlershared.ParseIDParam(c, "id")
	if !ok {
		return
	}
	history, err := h.StatusTracker.History(orderID, handlershared.ScopeVendorID(c))
	if err != nil {
		handlershared.RespondError(c, err)
		return
	}
	response.Success(c, history)
}

// GetOrderPayments 订单支付记录
func (h *Handler) GetOrderPayments(c *gin.Context) {
	orderID, ok := handlershared.ParseIDParam(c, "id")
	if !ok {
		return
	}
	if _, err := h.OrderService.GetAdmin(c.Request.Context(), orderID, handlershared.ScopeVendorID(c)); err != nil {
		handlershared.RespondError(c, err)
		return
	}
	payments, err := h.PaymentService.ListByOrder(orderID)
	if err != nil {
		handlershared.RespondError(c, err)
		return
	}
	response.Success(c, payments)
}

// UpdateOrderStatus 订单状态变更
func (h *Handler) UpdateOrderStatus(c *gin.Context) {
	orderID, ok := handlershared.ParseIDParam(c, "id")
	if !ok {
		return
	}
	var req OrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handlershared.RespondBadRequest(c, err)
		return
	}
	order, err := h.StatusTracker.Transition(c.Request.Context(), service.TransitionInput{
		OrderID: orderID,
		To:      strings.TrimSpace(req.Status),
		Actor:   actorOf(c),
		Notes:   req.Notes,
	})
	if err != nil {
		handlershared.RespondError(c, err)
		return
	}
	response.Success(c, order)
}

// UpdateItemStatus 订单项状态变更，商家账号只可操作本商家订单项
func (h *Handler) UpdateItemStatus(c *gin.Context) {
	orderID, ok := handlershared.ParseIDParam(c, "id")
	if !ok {
		return
	}
	itemID, ok := handlershared.ParseIDParam(c, "item_id")
	if !ok {
		return
	}
	var req OrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handlershared.RespondBadRequest(c, err)
		return
	}
	item, err := h.StatusTracker.TransitionItem(c.Request.Context(), service.ItemTransitionInput{
		OrderID:  orderID,
		ItemID:   itemID,
		To:       strings.TrimSpace(req.Status),
		Actor:    actorOf(c),
		Notes:    req.Notes,
		VendorID: handlershared.ScopeVendorID(c),
	})
	if err != nil {
		handlershared.RespondError(c, err)
		return
	}
	response.Success(c, item)
}

// UpdateItemQuantity 修正订单项数量并重算订单金额
func (h *Handler) UpdateItemQuantity(c *gin.Context) {
	orderID, ok := handlershared.ParseIDParam(c, "id")
	if !ok {
		return
	}
	itemID, ok := handlershared.ParseIDParam(c, "item_id")
	if !ok {
		return
	}
	var req ItemQuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handlershared.RespondBadRequest(c, err)
		return
	}
	order, err := h.OrderService.UpdateItemQuantity(c.Request.Context(), service.ItemQuantityInput{
		OrderID:  orderID,
		ItemID:   itemID,
		Quantity: req.Quantity,
		Actor:    actorOf(c),
	})
	if err != nil {
		handlershared.RespondError(c, err)
		return
	}
	response.Success(c, order)
}

// SetOrderDiscount 设置订单优惠金额
func (h *Handler) SetOrderDiscount(c *gin.Context) {
	orderID, ok := handlershared.ParseIDParam(c, "id")
	if !ok {
		return
	}
	var req DiscountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handlershared.RespondBadRequest(c, err)
		return
	}
	order, err := h.OrderService.SetDiscount(c.Request.Context(), orderID, req.Amount, actorOf(c))
	if err != nil {
		handlershared.RespondError(c, err)
		return
	}
	response.Success(c, order)
}

// RecomputeOrder 按订单项重算金额
func (h *Handler) RecomputeOrder(c *gin.Context) {
	orderID, ok := handlershared.ParseIDParam(c, "id")
	if !ok {
		return
	}
	order, err := h.OrderService.Recompute(c.Request.Context(), orderID)
	if err != nil {
		handlershared.RespondError(c, err)
		return
	}
	response.Success(c, order)
}

// ReconcileOrder 校验订单金额是否与订单项一致
func (h *Handler) ReconcileOrder(c *gin.Context) {
	orderID, ok := handlershared.ParseIDParam(c, "id")
	if !ok {
		return
	}
	order, err := h.OrderService.Reconcile(c.Request.Context(), orderID)
	if err != nil {
		handlershared.RespondError(c, err)
		return
	}
	response.Success(c, gin.H{"consistent": true, "order": order})
}

// GetWebhookDeliveries 查询某交易号的回调投递记录
func (h *Handler) GetWebhookDeliveries(c *gin.Context) {
	txnID := strings.TrimSpace(c.Param("transaction_id"))
	if txnID == "" {
		response.BadRequest(c, "transaction_id required")
		return
	}
	deliveries, err := h.PaymentService.WebhookDeliveries(c.Request.Context(), txnID)
	if err != nil {
		handlershared.RespondError(c, err)
		return
	}
	response.Success(c, deliveries)
}
