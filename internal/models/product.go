package models

import (
	"time"

	"gorm.io/gorm"
)

// Product 商品表
type Product struct {
	ID             uint           `gorm:"primarykey" json:"id"`                                     // 主键
	BrandID        uint           `gorm:"index;not null" json:"brand_id"`                           // 品牌ID（商家经由品牌关联）
	Name           string         `gorm:"type:varchar(255);not null" json:"name"`                   // 商品名称
	Slug           string         `gorm:"type:varchar(255);uniqueIndex;not null" json:"slug"`       // 商品标识
	SKU            string         `gorm:"type:varchar(64);uniqueIndex;not null" json:"sku"`         // SKU 编码
	Category       string         `gorm:"type:varchar(80);index" json:"category"`                   // 分类
	Description    string         `gorm:"type:text" json:"description"`                             // 描述
	Price          Money          `gorm:"type:decimal(20,2);not null;default:0" json:"price"`       // 售价
	CompareAtPrice Money          `gorm:"type:decimal(20,2);not null;default:0" json:"compare_at_price"` // 划线价
	Stock          int            `gorm:"not null;default:0" json:"stock"`                          // 库存
	Sizes          StringArray    `gorm:"type:json" json:"sizes"`                                   // 可选尺码
	Colors         StringArray    `gorm:"type:json" json:"colors"`                                  // 可选颜色
	IsActive       bool           `gorm:"default:true;index" json:"is_active"`                      // 是否上架
	CreatedAt      time.Time      `gorm:"index" json:"created_at"`                                  // 创建时间
	UpdatedAt      time.Time      `gorm:"index" json:"updated_at"`                                  // 更新时间
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`                                           // 软删除时间

	Brand *Brand `gorm:"foreignKey:BrandID" json:"brand,omitempty"` // 所属品牌
}

// TableName 指定表名
func (Product) TableName() string {
	return "products"
}
