package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Commission 商家佣金台账，每个（商家，订单项）唯一
type Commission struct {
	ID               uint            `gorm:"primarykey" json:"id"`                                                   // 主键
	VendorID         uint            `gorm:"not null;uniqueIndex:idx_commission_vendor_item;index" json:"vendor_id"` // 商家ID
	OrderID          uint            `gorm:"not null;index" json:"order_id"`                                         // 订单ID
	OrderItemID      uint            `gorm:"not null;uniqueIndex:idx_commission_vendor_item" json:"order_item_id"`   // 订单项ID
	GrossAmount      Money           `gorm:"type:decimal(20,2);not null;default:0" json:"gross_amount"`              // 订单项成交额
	CommissionRate   decimal.Decimal `gorm:"type:decimal(5,2);not null;default:0" json:"commission_rate"`            // 分成比例（百分比）
	CommissionAmount Money           `gorm:"type:decimal(20,2);not null;default:0" json:"commission_amount"`         // 分成金额
	PlatformFee      Money           `gorm:"type:decimal(20,2);not null;default:0" json:"platform_fee"`              // 平台服务费
	NetAmount        Money           `gorm:"type:decimal(20,2);not null;default:0" json:"net_amount"`                // 净额 = 分成金额 - 平台服务费
	Status           string          `gorm:"type:varchar(20);not null;index" json:"status"`                          // 状态
	PayoutID         *uint           `gorm:"index" json:"payout_id,omitempty"`                                       // 当前绑定的结算单
	ApprovedAt       *time.Time      `json:"approved_at"`                                                            // 审核通过时间
	PaidAt           *time.Time      `json:"paid_at"`                                                                // 打款时间
	CancelledAt      *time.Time      `json:"cancelled_at"`                                                           // 取消时间
	CreatedAt        time.Time       `gorm:"index" json:"created_at"`                                                // 创建时间
	UpdatedAt        time.Time       `gorm:"index" json:"updated_at"`                                                // 更新时间

	Order     *Order     `gorm:"foreignKey:OrderID" json:"order,omitempty"`         // 关联订单
	OrderItem *OrderItem `gorm:"foreignKey:OrderItemID" json:"order_item,omitempty"` // 关联订单项
}

// TableName 指定表名
func (Commission) TableName() string {
	return "commissions"
}
