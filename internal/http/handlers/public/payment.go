package public

import (
	"io"
	"strings"

	handlershared "github.com/modaplex/internal/http/handlers/shared"
	"github.com/modaplex/internal/http/response"
	"github.com/modaplex/internal/payment"
	"github.com/modaplex/internal/service"

	"github.com/gin-gonic/gin"
)

const maxWebhookBodyBytes = 1 << 20

// PayOrderRequest 发起支付请求
type PayOrderRequest struct {
	Method string `json:"method" binding:"required"`
}

// PayOrder 为待支付订单发起支付
func (h *Handler) PayOrder(c *gin.Context) {
	userID, ok := handlershared.GetUserID(c)
	if !ok {
		return
	}
	var req PayOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handlershared.RespondBadRequest(c, err)
		return
	}
	record, err := h.PaymentService.InitiatePayment(c.Request.Context(), c.Param("order_no"), userID, req.Method)
	if err != nil {
		handlershared.RespondError(c, err)
		return
	}
	response.Created(c, record)
}

// PaymentWebhook 支付网关回调，签名基于原始请求体
func (h *Handler) PaymentWebhook(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBodyBytes))
	if err != nil {
		handlershared.RespondBadRequest(c, err)
		return
	}
	result, err := h.PaymentService.HandleWebhook(c.Request.Context(), service.WebhookInput{
		Body:      body,
		Signature: c.GetHeader(payment.SignatureHeader),
		Timestamp: c.GetHeader(payment.TimestampHeader),
		Headers:   webhookHeaders(c),
	})
	if err != nil {
		handlershared.RespondError(c, err)
		return
	}
	response.Success(c, gin.H{
		"transaction_id": result.Payment.TransactionID,
		"status":         result.Payment.Status,
		"duplicate":      result.Duplicate,
	})
}

func webhookHeaders(c *gin.Context) map[string]string {
	headers := make(map[string]string, len(c.Request.Header))
	for key := range c.Request.Header {
		if strings.EqualFold(key, "Authorization") || strings.EqualFold(key, "Cookie") {
			continue
		}
		headers[key] = c.GetHeader(key)
	}
	return headers
}
