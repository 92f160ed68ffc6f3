package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Brand 品牌表
type Brand struct {
	ID             uint                `gorm:"primarykey" json:"id"`                               // 主键
	VendorID       uint                `gorm:"index;not null" json:"vendor_id"`                    // 所属商家ID
	Name           string              `gorm:"type:varchar(120);not null" json:"name"`             // 品牌名称
	Slug           string              `gorm:"type:varchar(120);uniqueIndex;not null" json:"slug"` // 品牌标识
	CommissionRate decimal.NullDecimal `gorm:"type:decimal(5,2)" json:"commission_rate"`           // 品牌专属分成比例（百分比，空表示沿用商家默认）
	IsActive       bool                `gorm:"default:true" json:"is_active"`                      // 是否启用
	CreatedAt      time.Time           `gorm:"index" json:"created_at"`                            // 创建时间
	UpdatedAt      time.Time           `gorm:"index" json:"updated_at"`                            // 更新时间
	DeletedAt      gorm.DeletedAt      `gorm:"index" json:"-"`                                     // 软删除时间

	Vendor *Vendor `gorm:"foreignKey:VendorID" json:"vendor,omitempty"` // 所属商家
}

// TableName 指定表名
func (Brand) TableName() string {
	return "brands"
}
