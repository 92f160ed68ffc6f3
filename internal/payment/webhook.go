package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// 回调请求头
const (
	SignatureHeader = "X-Modaplex-Signature"
	TimestampHeader = "X-Modaplex-Timestamp"
)

// WebhookEvent 网关回调事件
type WebhookEvent struct {
	TransactionID string
	Status        string
	Amount        decimal.Decimal
	Currency      string
	Reason        string
	Raw           map[string]interface{}
}

// ComputeSignature 计算 HMAC-SHA256(timestamp + "." + body)
func ComputeSignature(secret string, timestamp int64, body []byte) string {
	payload := strconv.FormatInt(timestamp, 10) + "." + string(body)
	h := hmac.New(sha256.New, []byte(secret))
	_, _ = h.Write([]byte(payload))
	return strings.ToLower(hex.EncodeToString(h.Sum(nil)))
}

// VerifySignature 校验回调签名与时间窗口
func VerifySignature(secret, timestampRaw, signature string, body []byte, tolerance time.Duration, now time.Time) error {
	if strings.TrimSpace(secret) == "" {
		return fmt.Errorf("%w: webhook secret is not configured", ErrSignatureInvalid)
	}
	signature = strings.ToLower(strings.TrimSpace(signature))
	if signature == "" {
		return fmt.Errorf("%w: signature is required", ErrSignatureInvalid)
	}
	timestamp, err := strconv.ParseInt(strings.TrimSpace(timestampRaw), 10, 64)
	if err != nil {
		return fmt.Errorf("%w: timestamp is invalid", ErrSignatureInvalid)
	}
	expected := ComputeSignature(secret, timestamp, body)
	if !hmac.Equal([]byte(signature), []byte(expected)) {
		return fmt.Errorf("%w: verify failed", ErrSignatureInvalid)
	}
	if now.IsZero() {
		now = time.Now()
	}
	if tolerance > 0 {
		delta := math.Abs(float64(now.Unix() - timestamp))
		if delta > tolerance.Seconds() {
			return ErrTimestampExpired
		}
	}
	return nil
}

// ParseWebhookEvent 解析回调正文
func ParseWebhookEvent(body []byte) (*WebhookEvent, error) {
	if len(body) == 0 {
		return nil, fmt.Errorf("%w: body is empty", ErrPayloadInvalid)
	}
	raw := make(map[string]interface{})
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPayloadInvalid, err)
	}
	event := &WebhookEvent{
		TransactionID: readString(raw, "transaction_id"),
		Status:        strings.ToLower(readString(raw, "status")),
		Currency:      strings.ToUpper(readString(raw, "currency")),
		Reason:        readString(raw, "reason"),
		Raw:           raw,
	}
	if event.TransactionID == "" {
		return nil, fmt.Errorf("%w: missing transaction_id", ErrPayloadInvalid)
	}
	if event.Status != StatusSuccess && event.Status != StatusFailed {
		return nil, fmt.Errorf("%w: unsupported status %q", ErrPayloadInvalid, event.Status)
	}
	amount, err := decimal.NewFromString(readString(raw, "amount"))
	if err != nil {
		return nil, fmt.Errorf("%w: amount is invalid", ErrPayloadInvalid)
	}
	event.Amount = amount.Round(2)
	return event, nil
}

func readString(raw map[string]interface{}, key string) string {
	value, ok := raw[key]
	if !ok || value == nil {
		return ""
	}
	switch typed := value.(type) {
	case string:
		return strings.TrimSpace(typed)
	case float64:
		return strconv.FormatFloat(typed, 'f', -1, 64)
	case json.Number:
		return typed.String()
	default:
		return strings.TrimSpace(fmt.Sprintf("%v", typed))
	}
}
