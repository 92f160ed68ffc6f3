package models

import (
	"time"

	"gorm.io/gorm"
)

// Payment 支付记录
type Payment struct {
	ID              uint           `gorm:"primarykey" json:"id"`                                 // 主键
	OrderID         uint           `gorm:"index;not null" json:"order_id"`                       // 订单ID
	Amount          Money          `gorm:"type:decimal(20,2);not null" json:"amount"`            // 支付金额
	Currency        string         `gorm:"type:varchar(8);not null" json:"currency"`             // 币种
	Method          string         `gorm:"type:varchar(32);not null" json:"method"`              // 支付方式（card/paypal/...）
	Status          string         `gorm:"index;not null" json:"status"`                         // 支付状态
	TransactionID   string         `gorm:"type:varchar(128);uniqueIndex;not null" json:"transaction_id"` // 网关交易号
	GatewayResponse JSON           `gorm:"type:json" json:"gateway_response"`                    // 网关原始响应
	FailureReason   string         `gorm:"type:varchar(255)" json:"failure_reason,omitempty"`    // 失败原因
	PaidAt          *time.Time     `gorm:"index" json:"paid_at"`                                 // 支付成功时间
	CallbackAt      *time.Time     `json:"callback_at"`                                          // 最近回调时间
	CreatedAt       time.Time      `gorm:"index" json:"created_at"`                              // 创建时间
	UpdatedAt       time.Time      `gorm:"index" json:"updated_at"`                              // 更新时间
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`                                       // 软删除时间
}

// TableName 指定表名
func (Payment) TableName() string {
	return "payments"
}
