package models

import (
	"time"

	"gorm.io/gorm"
)

// Address 收货/账单地址快照
type Address struct {
	FullName   string `json:"full_name"`
	Phone      string `json:"phone"`
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

// ToJSON 转为 JSON 列
func (a Address) ToJSON() JSON {
	return JSON{
		"full_name":   a.FullName,
		"phone":       a.Phone,
		"line1":       a.Line1,
		"line2":       a.Line2,
		"city":        a.City,
		"state":       a.State,
		"postal_code": a.PostalCode,
		"country":     a.Country,
	}
}

// Order 订单表
type Order struct {
	ID              uint           `gorm:"primarykey" json:"id"`                                          // 主键
	OrderNo         string         `gorm:"uniqueIndex;not null" json:"order_no"`                          // 订单编号
	UserID          uint           `gorm:"index;not null" json:"user_id"`                                 // 顾客ID
	Status          string         `gorm:"index;not null" json:"status"`                                  // 订单状态
	PaymentStatus   string         `gorm:"index;not null" json:"payment_status"`                          // 支付状态
	IsMultiVendor   bool           `gorm:"not null;default:false" json:"is_multi_vendor"`                 // 是否包含多个商家
	Currency        string         `gorm:"type:varchar(8);not null" json:"currency"`                      // 币种
	SubtotalAmount  Money          `gorm:"type:decimal(20,2);not null;default:0" json:"subtotal_amount"`  // 商品小计
	TaxAmount       Money          `gorm:"type:decimal(20,2);not null;default:0" json:"tax_amount"`       // 税费
	ShippingAmount  Money          `gorm:"type:decimal(20,2);not null;default:0" json:"shipping_amount"`  // 运费
	DiscountAmount  Money          `gorm:"type:decimal(20,2);not null;default:0" json:"discount_amount"`  // 优惠金额
	TotalAmount     Money          `gorm:"type:decimal(20,2);not null;default:0" json:"total_amount"`     // 应付总额
	ShippingAddress JSON           `gorm:"type:json" json:"shipping_address"`                             // 收货地址快照
	BillingAddress  JSON           `gorm:"type:json" json:"billing_address"`                              // 账单地址快照
	CustomerEmail   string         `gorm:"type:varchar(255)" json:"customer_email"`                       // 下单邮箱快照
	Notes           string         `gorm:"type:text" json:"notes"`                                        // 顾客备注
	ExpiresAt       *time.Time     `gorm:"index" json:"expires_at"`                                       // 支付过期时间
	PaidAt          *time.Time     `gorm:"index" json:"paid_at"`                                          // 支付时间
	ConfirmedAt     *time.Time     `json:"confirmed_at"`                                                  // 确认时间
	ShippedAt       *time.Time     `json:"shipped_at"`                                                    // 发货时间
	DeliveredAt     *time.Time     `gorm:"index" json:"delivered_at"`                                     // 签收时间
	CancelledAt     *time.Time     `json:"cancelled_at"`                                                  // 取消时间
	RefundedAt      *time.Time     `json:"refunded_at"`                                                   // 退款时间
	CreatedAt       time.Time      `gorm:"index" json:"created_at"`                                       // 创建时间
	UpdatedAt       time.Time      `gorm:"index" json:"updated_at"`                                       // 更新时间
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`                                                // 软删除时间

	Items []OrderItem `gorm:"foreignKey:OrderID" json:"items,omitempty"` // 订单项
}

// TableName 指定表名
func (Order) TableName() string {
	return "orders"
}
