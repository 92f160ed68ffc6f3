package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// OrderItem 订单项表，商品/商家/价格/分成比例均为下单时快照
type OrderItem struct {
	ID                   uint            `gorm:"primarykey" json:"id"`                                          // 主键
	OrderID              uint            `gorm:"index;not null" json:"order_id"`                                // 订单ID
	ProductID            *uint           `gorm:"index" json:"product_id"`                                       // 商品ID（商品删除后为空）
	ProductName          string          `gorm:"type:varchar(255);not null" json:"product_name"`                // 商品名称快照
	SKU                  string          `gorm:"type:varchar(64);not null" json:"sku"`                          // SKU 快照
	BrandName            string          `gorm:"type:varchar(120)" json:"brand_name"`                           // 品牌名称快照
	Size                 string          `gorm:"type:varchar(32)" json:"size"`                                  // 尺码快照
	Color                string          `gorm:"type:varchar(32)" json:"color"`                                 // 颜色快照
	UnitPrice            Money           `gorm:"type:decimal(20,2);not null;default:0" json:"unit_price"`       // 单价快照
	Quantity             int             `gorm:"not null" json:"quantity"`                                      // 数量
	TotalPrice           Money           `gorm:"type:decimal(20,2);not null;default:0" json:"total_price"`      // 小计 = 单价 × 数量
	VendorID             uint            `gorm:"index;not null" json:"vendor_id"`                               // 商家ID快照
	VendorName           string          `gorm:"type:varchar(120)" json:"vendor_name"`                          // 商家名称快照
	VendorCommissionRate decimal.Decimal `gorm:"type:decimal(5,2);not null;default:0" json:"vendor_commission_rate"` // 分成比例快照（百分比）
	CommissionRateSource string          `gorm:"type:varchar(20);not null" json:"commission_rate_source"`       // 分成比例来源 brand/vendor/platform
	VendorCommission     Money           `gorm:"type:decimal(20,2);not null;default:0" json:"vendor_commission"` // 商家分成 = 小计 × 比例 / 100
	Status               string          `gorm:"type:varchar(20);not null;index" json:"status"`                 // 订单项状态
	CreatedAt            time.Time       `gorm:"index" json:"created_at"`                                       // 创建时间
	UpdatedAt            time.Time       `gorm:"index" json:"updated_at"`                                       // 更新时间
	DeletedAt            gorm.DeletedAt  `gorm:"index" json:"-"`                                                // 软删除时间
}

// TableName 指定表名
func (OrderItem) TableName() string {
	return "order_items"
}
