package models

import "time"

// CartItem 会话购物车项
type CartItem struct {
	ID         uint      `gorm:"primarykey" json:"id"`                                                          // 主键
	SessionKey string    `gorm:"type:varchar(64);not null;uniqueIndex:idx_cart_session_variant" json:"-"`       // 会话标识
	UserID     uint      `gorm:"index" json:"user_id"`                                                          // 登录用户ID（游客为 0）
	ProductID  uint      `gorm:"not null;uniqueIndex:idx_cart_session_variant" json:"product_id"`               // 商品ID
	Size       string    `gorm:"type:varchar(32);not null;default:'';uniqueIndex:idx_cart_session_variant" json:"size"`  // 尺码
	Color      string    `gorm:"type:varchar(32);not null;default:'';uniqueIndex:idx_cart_session_variant" json:"color"` // 颜色
	Quantity   int       `gorm:"not null" json:"quantity"`                                                      // 数量
	CreatedAt  time.Time `gorm:"index" json:"created_at"`                                                       // 创建时间
	UpdatedAt  time.Time `gorm:"index" json:"updated_at"`                                                       // 最后更新时间（废弃购物车清理依据）

	Product *Product `gorm:"foreignKey:ProductID" json:"product,omitempty"` // 关联商品
}

// TableName 指定表名
func (CartItem) TableName() string {
	return "cart_items"
}
