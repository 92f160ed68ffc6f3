package payment

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrRequestInvalid   = errors.New("payment request invalid")
	ErrSignatureInvalid = errors.New("payment webhook signature invalid")
	ErrTimestampExpired = errors.New("payment webhook timestamp outside tolerance")
	ErrPayloadInvalid   = errors.New("payment webhook payload invalid")
)

// 网关返回状态
const (
	StatusPending = "pending"
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// ChargeRequest 发起支付请求
type ChargeRequest struct {
	OrderNo       string
	TransactionID string
	Amount        decimal.Decimal
	Currency      string
	Method        string
}

// ChargeResult 网关受理结果
type ChargeResult struct {
	TransactionID string
	Status        string
	Raw           map[string]interface{}
}

// Gateway 支付网关协作方
type Gateway interface {
	Charge(ctx context.Context, req ChargeRequest) (*ChargeResult, error)
}

// PendingGateway 只分配交易号，结果由 webhook 回传
type PendingGateway struct{}

// Charge 受理支付请求
func (PendingGateway) Charge(ctx context.Context, req ChargeRequest) (*ChargeResult, error) {
	if strings.TrimSpace(req.TransactionID) == "" || !req.Amount.IsPositive() {
		return nil, ErrRequestInvalid
	}
	return &ChargeResult{
		TransactionID: req.TransactionID,
		Status:        StatusPending,
		Raw: map[string]interface{}{
			"gateway":        "pending",
			"order_no":       req.OrderNo,
			"transaction_id": req.TransactionID,
			"amount":         req.Amount.StringFixed(2),
			"currency":       req.Currency,
			"method":         req.Method,
			"accepted_at":    time.Now().UTC().Format(time.RFC3339),
		},
	}, nil
}
