package repository

import (
	"github.com/modaplex/internal/models"

	"gorm.io/gorm"
)

// OrderStatusHistoryRepository 订单状态流水数据访问接口（只追加）
type OrderStatusHistoryRepository interface {
	Create(entry *models.OrderStatusHistory) error
	ListByOrder(orderID uint, itemIDs []uint) ([]models.OrderStatusHistory, error)
	WithTx(tx *gorm.DB) OrderStatusHistoryRepository
}

// GormOrderStatusHistoryRepository GORM 实现
type GormOrderStatusHistoryRepository struct {
	db *gorm.DB
}

// NewOrderStatusHistoryRepository 创建状态流水仓库
func NewOrderStatusHistoryRepository(db *gorm.DB) *GormOrderStatusHistoryRepository {
	return &GormOrderStatusHistoryRepository{db: db}
}

// WithTx 绑定事务
func (r *GormOrderStatusHistoryRepository) WithTx(tx *gorm.DB) OrderStatusHistoryRepository {
	if tx == nil {
		return r
	}
	return &GormOrderStatusHistoryRepository{db: tx}
}

// Create 追加流水
func (r *GormOrderStatusHistoryRepository) Create(entry *models.OrderStatusHistory) error {
	return r.db.Create(entry).Error
}

// ListByOrder 查询订单流水；itemIDs 非空时只返回订单级记录与这些订单项的记录
func (r *GormOrderStatusHistoryRepository) ListByOrder(orderID uint, itemIDs []uint) ([]models.OrderStatusHistory, error) {
	query := r.db.Where("order_id = ?", orderID)
	if itemIDs != nil {
		if len(itemIDs) == 0 {
			query = query.Where("order_item_id IS NULL")
		} else {
			query = query.Where("order_item_id IS NULL OR order_item_id IN ?", itemIDs)
		}
	}
	var rows []models.OrderStatusHistory
	if err := query.Order("id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
