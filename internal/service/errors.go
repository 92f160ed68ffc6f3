package service

import (
	"errors"
	"fmt"
)

// 领域错误类别
const (
	KindValidation = "validation"
	KindPayment    = "payment"
	KindInventory  = "inventory"
	KindOrder      = "order"
	KindNotFound   = "not_found"
	KindPermission = "permission"
)

// DomainError 领域错误，携带类别、机器可读编码与明细
type DomainError struct {
	Kind    string
	Code    string
	Message string
	Details map[string]interface{}
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err == nil || e.Err.Error() == e.Message {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

func newDomainError(kind, code, message string, details map[string]interface{}) *DomainError {
	return &DomainError{Kind: kind, Code: code, Message: message, Details: details}
}

// NewValidationError 参数校验错误
func NewValidationError(code, message string, details map[string]interface{}) *DomainError {
	return newDomainError(KindValidation, code, message, details)
}

// NewPaymentError 支付错误
func NewPaymentError(code, message string, details map[string]interface{}) *DomainError {
	return newDomainError(KindPayment, code, message, details)
}

// NewInventoryError 库存错误
func NewInventoryError(code, message string, details map[string]interface{}) *DomainError {
	return newDomainError(KindInventory, code, message, details)
}

// NewOrderError 订单流程错误
func NewOrderError(code, message string, details map[string]interface{}) *DomainError {
	return newDomainError(KindOrder, code, message, details)
}

func newNotFoundError(code, message string) *DomainError {
	return newDomainError(KindNotFound, code, message, nil)
}

func newPermissionError(code, message string) *DomainError {
	return newDomainError(KindPermission, code, message, nil)
}

// withDetails 基于哨兵错误派生带明细的错误，errors.Is 仍可匹配哨兵
func withDetails(sentinel *DomainError, details map[string]interface{}) *DomainError {
	return &DomainError{
		Kind:    sentinel.Kind,
		Code:    sentinel.Code,
		Message: sentinel.Message,
		Details: details,
		Err:     sentinel,
	}
}

// AsDomainError 提取领域错误
func AsDomainError(err error) (*DomainError, bool) {
	var de *DomainError
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

// IsRetryable 判断后台任务是否值得重试，领域错误一律不重试
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrWebhookBusy) {
		return true
	}
	_, ok := AsDomainError(err)
	return !ok
}

// 通用
var (
	ErrInvalidInput     = NewValidationError("invalid_input", "invalid input", nil)
	ErrPermissionDenied = newPermissionError("permission_denied", "permission denied")
)

// 认证
var (
	ErrInvalidEmail       = NewValidationError("email_invalid", "invalid email", nil)
	ErrPasswordTooShort   = NewValidationError("password_too_short", "password must be at least 8 characters", nil)
	ErrEmailExists        = NewValidationError("email_exists", "email already registered", nil)
	ErrInvalidCredentials = newPermissionError("invalid_credentials", "invalid email or password")
	ErrUserDisabled       = newPermissionError("user_disabled", "user disabled")
	ErrUserNotFound       = newNotFoundError("user_not_found", "user not found")
)

// 商家 / 品牌 / 商品
var (
	ErrVendorNotFound        = newNotFoundError("vendor_not_found", "vendor not found")
	ErrVendorUnavailable     = NewOrderError("vendor_unavailable", "vendor unavailable for this product", nil)
	ErrBrandNotFound         = newNotFoundError("brand_not_found", "brand not found")
	ErrSlugExists            = NewValidationError("slug_exists", "slug already exists", nil)
	ErrCommissionRateInvalid = NewValidationError("commission_rate_invalid", "commission rate must be between 0 and 100", nil)
	ErrProductNotFound       = newNotFoundError("product_not_found", "product not found")
	ErrProductNotAvailable   = NewValidationError("product_not_available", "product not available", nil)
	ErrProductPriceInvalid   = NewValidationError("product_price_invalid", "product price must be positive", nil)
	ErrVariantInvalid        = NewValidationError("variant_invalid", "size or color not offered for this product", nil)
)

// 购物车 / 库存
var (
	ErrCartSessionRequired = NewValidationError("cart_session_required", "cart session required", nil)
	ErrCartEmpty           = NewValidationError("cart_empty", "cart is empty", nil)
	ErrCartItemNotFound    = newNotFoundError("cart_item_not_found", "cart item not found")
	ErrInvalidQuantity     = NewValidationError("quantity_invalid", "quantity invalid", nil)
	ErrInsufficientStock   = NewInventoryError("insufficient_stock", "insufficient stock", nil)
)

// 订单
var (
	ErrOrderNotFound          = newNotFoundError("order_not_found", "order not found")
	ErrOrderItemNotFound      = newNotFoundError("order_item_not_found", "order item not found")
	ErrOrderStatusInvalid     = NewOrderError("order_status_invalid", "order status transition not allowed", nil)
	ErrOrderStatusUnchanged   = NewOrderError("order_status_unchanged", "order already in requested status", nil)
	ErrOrderItemStatusInvalid = NewOrderError("order_item_status_invalid", "order item status transition not allowed", nil)
	ErrOrderNotEditable       = NewOrderError("order_not_editable", "order can no longer be edited", nil)
	ErrOrderPaymentPending    = NewOrderError("order_payment_pending", "order has a payment in progress", nil)
	ErrOrderTotalsMismatch    = NewOrderError("order_totals_mismatch", "order totals do not reconcile", nil)
	ErrOrderExpired           = NewOrderError("order_expired", "order payment window expired", nil)
	ErrDiscountInvalid        = NewValidationError("discount_invalid", "discount must not be negative", nil)
	ErrAddressInvalid         = NewValidationError("address_invalid", "shipping address incomplete", nil)
)

// 支付
var (
	ErrPaymentNotFound         = newNotFoundError("payment_not_found", "payment not found")
	ErrOrderAlreadyPaid        = NewPaymentError("order_already_paid", "order already paid", nil)
	ErrPaymentAmountMismatch   = NewPaymentError("payment_amount_mismatch", "payment amount does not match order", nil)
	ErrPaymentGatewayFailed    = NewPaymentError("payment_gateway_failed", "payment gateway request failed", nil)
	ErrWebhookSignatureInvalid = newPermissionError("webhook_signature_invalid", "webhook signature invalid")
	ErrWebhookTimestampExpired = newPermissionError("webhook_timestamp_expired", "webhook timestamp outside tolerance")
	ErrWebhookPayloadInvalid   = NewValidationError("webhook_payload_invalid", "webhook payload invalid", nil)
	ErrWebhookBusy             = NewPaymentError("webhook_busy", "webhook for this transaction is being processed", nil)
)

// 佣金 / 结算
var (
	ErrCommissionNotFound       = newNotFoundError("commission_not_found", "commission not found")
	ErrCommissionStatusInvalid  = NewValidationError("commission_status_invalid", "commission status transition not allowed", nil)
	ErrCommissionOrderNotPaid   = NewOrderError("commission_order_not_paid", "order is not eligible for commission", nil)
	ErrPayoutNotFound           = newNotFoundError("payout_not_found", "payout not found")
	ErrPayoutNoCommissions      = NewValidationError("payout_no_commissions", "no approved commissions to pay out", nil)
	ErrPayoutBelowMinimum       = NewValidationError("payout_below_minimum", "payout amount below minimum", nil)
	ErrPayoutNetNotPositive     = NewValidationError("payout_net_not_positive", "payout net amount must be positive", nil)
	ErrPayoutBankDetailsMissing = NewValidationError("payout_bank_details_missing", "vendor bank details incomplete", nil)
	ErrPayoutStatusInvalid      = NewValidationError("payout_status_invalid", "payout status transition not allowed", nil)
)

// 报表
var (
	ErrReportTypeInvalid = NewValidationError("report_type_invalid", "report type invalid", nil)
	ErrReportDateInvalid = NewValidationError("report_date_invalid", "report date invalid", nil)
)
