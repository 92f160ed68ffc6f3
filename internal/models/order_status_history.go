package models

import "time"

// OrderStatusHistory 订单状态变更流水（只追加，不更新不删除）
type OrderStatusHistory struct {
	ID          uint      `gorm:"primarykey" json:"id"`                                   // 主键
	OrderID     uint      `gorm:"index;not null" json:"order_id"`                         // 订单ID
	OrderItemID *uint     `gorm:"index" json:"order_item_id,omitempty"`                   // 订单项ID（订单项级变更时填写）
	FromStatus  string    `gorm:"type:varchar(20);not null" json:"from_status"`           // 变更前状态
	ToStatus    string    `gorm:"type:varchar(20);not null" json:"to_status"`             // 变更后状态
	ChangedBy   string    `gorm:"type:varchar(64);not null" json:"changed_by"`            // 操作人（user:<id> 或 system:*）
	Notes       string    `gorm:"type:text" json:"notes"`                                 // 备注
	CreatedAt   time.Time `gorm:"index" json:"created_at"`                                // 记录时间
}

// TableName 指定表名
func (OrderStatusHistory) TableName() string {
	return "order_status_histories"
}
