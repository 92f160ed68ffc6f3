package repository

import (
	"errors"
	"time"

	"github.com/modaplex/internal/constants"
	"github.com/modaplex/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// OrderRepository 订单数据访问接口
type OrderRepository interface {
	Create(order *models.Order, items []models.OrderItem) error
	GetByID(id uint) (*models.Order, error)
	GetByIDForUpdate(id uint) (*models.Order, error)
	GetByOrderNo(orderNo string) (*models.Order, error)
	GetByOrderNoAndUser(orderNo string, userID uint) (*models.Order, error)
	ListByUser(filter OrderListFilter) ([]models.Order, int64, error)
	ListAdmin(filter OrderListFilter) ([]models.Order, int64, error)
	UpdateFields(id uint, updates map[string]interface{}) error
	ListItems(orderID uint) ([]models.OrderItem, error)
	GetItemForUpdate(itemID uint) (*models.OrderItem, error)
	UpdateItemFields(itemID uint, updates map[string]interface{}) error
	UpdateItemsStatus(orderID uint, fromStatuses []string, status string) error
	ListIDsDeliveredBefore(before time.Time) ([]uint, error)
	Transaction(fn func(tx *gorm.DB) error) error
	WithTx(tx *gorm.DB) OrderRepository
}

// GormOrderRepository GORM 实现
type GormOrderRepository struct {
	db *gorm.DB
}

// NewOrderRepository 创建订单仓库
func NewOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

// WithTx 绑定事务
func (r *GormOrderRepository) WithTx(tx *gorm.DB) OrderRepository {
	if tx == nil {
		return r
	}
	return &GormOrderRepository{db: tx}
}

// Transaction 执行事务
func (r *GormOrderRepository) Transaction(fn func(tx *gorm.DB) error) error {
	if fn == nil {
		return nil
	}
	return r.db.Transaction(fn)
}

func preloadItems(vendorID uint) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Preload("Items", func(q *gorm.DB) *gorm.DB {
			if vendorID != 0 {
				q = q.Where("vendor_id = ?", vendorID)
			}
			return q.Order("id ASC")
		})
	}
}

// Create 创建订单与订单项
func (r *GormOrderRepository) Create(order *models.Order, items []models.OrderItem) error {
	if err := r.db.Omit("Items").Create(order).Error; err != nil {
		return err
	}
	for i := range items {
		items[i].OrderID = order.ID
	}
	if len(items) > 0 {
		if err := r.db.Create(&items).Error; err != nil {
			return err
		}
	}
	order.Items = items
	return nil
}

func (r *GormOrderRepository) first(query *gorm.DB, cond string, args ...interface{}) (*models.Order, error) {
	var order models.Order
	if err := query.Where(cond, args...).First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

// GetByID 根据 ID 获取订单（含订单项）
func (r *GormOrderRepository) GetByID(id uint) (*models.Order, error) {
	if id == 0 {
		return nil, nil
	}
	return r.first(r.db.Scopes(preloadItems(0)), "id = ?", id)
}

// GetByIDForUpdate 锁定订单行（不预加载）
func (r *GormOrderRepository) GetByIDForUpdate(id uint) (*models.Order, error) {
	if id == 0 {
		return nil, nil
	}
	return r.first(r.db.Clauses(clause.Locking{Strength: "UPDATE"}), "id = ?", id)
}

// GetByOrderNo 根据订单号获取订单
func (r *GormOrderRepository) GetByOrderNo(orderNo string) (*models.Order, error) {
	if orderNo == "" {
		return nil, nil
	}
	return r.first(r.db.Scopes(preloadItems(0)), "order_no = ?", orderNo)
}

// GetByOrderNoAndUser 获取用户自己的订单
func (r *GormOrderRepository) GetByOrderNoAndUser(orderNo string, userID uint) (*models.Order, error) {
	if orderNo == "" || userID == 0 {
		return nil, nil
	}
	return r.first(r.db.Scopes(preloadItems(0)), "order_no = ? AND user_id = ?", orderNo, userID)
}

func applyOrderFilter(query *gorm.DB, filter OrderListFilter) *gorm.DB {
	if filter.UserID != 0 {
		query = query.Where("user_id = ?", filter.UserID)
	}
	if filter.VendorID != 0 {
		query = query.Where("EXISTS (SELECT 1 FROM order_items oi WHERE oi.order_id = orders.id AND oi.vendor_id = ? AND oi.deleted_at IS NULL)", filter.VendorID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.PaymentStatus != "" {
		query = query.Where("payment_status = ?", filter.PaymentStatus)
	}
	if filter.OrderNo != "" {
		query = query.Where("order_no = ?", filter.OrderNo)
	}
	if filter.CreatedFrom != nil {
		query = query.Where("created_at >= ?", *filter.CreatedFrom)
	}
	if filter.CreatedTo != nil {
		query = query.Where("created_at < ?", *filter.CreatedTo)
	}
	return query
}

// ListByUser 用户订单列表
func (r *GormOrderRepository) ListByUser(filter OrderListFilter) ([]models.Order, int64, error) {
	if filter.UserID == 0 {
		return []models.Order{}, 0, nil
	}
	filter.VendorID = 0
	var orders []models.Order
	total, err := countAndFind(applyOrderFilter(r.db.Model(&models.Order{}), filter),
		filter.Page, filter.PageSize, "created_at DESC, id DESC", &orders, preloadItems(0))
	if err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

// ListAdmin 管理端订单列表，商家视角下只带出本商家订单项
func (r *GormOrderRepository) ListAdmin(filter OrderListFilter) ([]models.Order, int64, error) {
	var orders []models.Order
	total, err := countAndFind(applyOrderFilter(r.db.Model(&models.Order{}), filter),
		filter.Page, filter.PageSize, "created_at DESC, id DESC", &orders, preloadItems(filter.VendorID))
	if err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

// UpdateFields 更新订单字段
func (r *GormOrderRepository) UpdateFields(id uint, updates map[string]interface{}) error {
	if id == 0 || len(updates) == 0 {
		return nil
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now().UTC()
	}
	return r.db.Model(&models.Order{}).Where("id = ?", id).Updates(updates).Error
}

// ListItems 获取订单项
func (r *GormOrderRepository) ListItems(orderID uint) ([]models.OrderItem, error) {
	var items []models.OrderItem
	if err := r.db.Where("order_id = ?", orderID).Order("id ASC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// GetItemForUpdate 锁定订单项
func (r *GormOrderRepository) GetItemForUpdate(itemID uint) (*models.OrderItem, error) {
	if itemID == 0 {
		return nil, nil
	}
	var item models.OrderItem
	if err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).First(&item, itemID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &item, nil
}

// UpdateItemFields 更新订单项字段
func (r *GormOrderRepository) UpdateItemFields(itemID uint, updates map[string]interface{}) error {
	if itemID == 0 || len(updates) == 0 {
		return nil
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now().UTC()
	}
	return r.db.Model(&models.OrderItem{}).Where("id = ?", itemID).Updates(updates).Error
}

// UpdateItemsStatus 批量推进订单项状态
func (r *GormOrderRepository) UpdateItemsStatus(orderID uint, fromStatuses []string, status string) error {
	query := r.db.Model(&models.OrderItem{}).Where("order_id = ?", orderID)
	if len(fromStatuses) > 0 {
		query = query.Where("status IN ?", fromStatuses)
	}
	return query.Updates(map[string]interface{}{"status": status, "updated_at": time.Now().UTC()}).Error
}

// ListIDsDeliveredBefore 查询在指定时间前已签收的订单 ID
func (r *GormOrderRepository) ListIDsDeliveredBefore(before time.Time) ([]uint, error) {
	var ids []uint
	if err := r.db.Model(&models.Order{}).
		Where("status = ? AND delivered_at IS NOT NULL AND delivered_at <= ?", constants.OrderStatusDelivered, before).
		Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}
