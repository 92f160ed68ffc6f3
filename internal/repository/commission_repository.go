package repository

import (
	"time"

	"github.com/modaplex/internal/constants"
	"github.com/modaplex/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CommissionStatusTotal 按状态汇总的佣金
type CommissionStatusTotal struct {
	Status    string       `json:"status"`
	Count     int64        `json:"count"`
	NetAmount models.Money `json:"net_amount"`
}

// CommissionRepository 佣金台账数据访问接口
type CommissionRepository interface {
	CreateBatch(rows []models.Commission) error
	ListItemIDsByOrder(orderID uint) ([]uint, error)
	List(filter CommissionListFilter) ([]models.Commission, int64, error)
	ListByIDsForUpdate(ids []uint) ([]models.Commission, error)
	ListByOrderForUpdate(orderID uint, statuses []string) ([]models.Commission, error)
	ListApprovedUnboundForUpdate(vendorID uint) ([]models.Commission, error)
	ListByPayoutForUpdate(payoutID uint) ([]models.Commission, error)
	ListVoidedByPayoutForUpdate(payoutID uint) ([]models.Commission, error)
	ListOpenPayoutIDsByOrder(orderID uint, itemID *uint) ([]uint, error)
	ListPendingIDsByOrders(orderIDs []uint) ([]uint, error)
	UpdateByIDs(ids []uint, updates map[string]interface{}) (int64, error)
	SummaryByStatus(vendorID uint) ([]CommissionStatusTotal, error)
	WithTx(tx *gorm.DB) CommissionRepository
}

// GormCommissionRepository GORM 实现
type GormCommissionRepository struct {
	db *gorm.DB
}

// NewCommissionRepository 创建佣金仓库
func NewCommissionRepository(db *gorm.DB) *GormCommissionRepository {
	return &GormCommissionRepository{db: db}
}

// WithTx 绑定事务
func (r *GormCommissionRepository) WithTx(tx *gorm.DB) CommissionRepository {
	if tx == nil {
		return r
	}
	return &GormCommissionRepository{db: tx}
}

// CreateBatch 批量写入佣金，(vendor_id, order_item_id) 冲突时跳过
func (r *GormCommissionRepository) CreateBatch(rows []models.Commission) error {
	if len(rows) == 0 {
		return nil
	}
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "vendor_id"}, {Name: "order_item_id"}},
		DoNothing: true,
	}).Create(&rows).Error
}

// ListItemIDsByOrder 获取订单下已生成佣金的订单项 ID
func (r *GormCommissionRepository) ListItemIDsByOrder(orderID uint) ([]uint, error) {
	var ids []uint
	if err := r.db.Model(&models.Commission{}).Where("order_id = ?", orderID).Pluck("order_item_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// List 佣金列表
func (r *GormCommissionRepository) List(filter CommissionListFilter) ([]models.Commission, int64, error) {
	query := r.db.Model(&models.Commission{})
	if filter.VendorID != 0 {
		query = query.Where("vendor_id = ?", filter.VendorID)
	}
	if filter.OrderID != 0 {
		query = query.Where("order_id = ?", filter.OrderID)
	}
	if filter.PayoutID != 0 {
		query = query.Where("id IN (?)", r.db.Model(&models.PayoutCommission{}).Select("commission_id").Where("payout_id = ?", filter.PayoutID))
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	var rows []models.Commission
	total, err := countAndFind(query, filter.Page, filter.PageSize, "id DESC", &rows, func(db *gorm.DB) *gorm.DB {
		return db.Preload("OrderItem")
	})
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

func (r *GormCommissionRepository) lockedFind(query *gorm.DB) ([]models.Commission, error) {
	var rows []models.Commission
	if err := query.Clauses(clause.Locking{Strength: "UPDATE"}).Order("id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// ListByIDsForUpdate 按 ID 锁定佣金
func (r *GormCommissionRepository) ListByIDsForUpdate(ids []uint) ([]models.Commission, error) {
	if len(ids) == 0 {
		return []models.Commission{}, nil
	}
	return r.lockedFind(r.db.Where("id IN ?", ids))
}

// ListByOrderForUpdate 按订单锁定佣金
func (r *GormCommissionRepository) ListByOrderForUpdate(orderID uint, statuses []string) ([]models.Commission, error) {
	query := r.db.Where("order_id = ?", orderID)
	if len(statuses) > 0 {
		query = query.Where("status IN ?", statuses)
	}
	return r.lockedFind(query)
}

// ListApprovedUnboundForUpdate 锁定商家已审核且未绑定结算单的佣金
func (r *GormCommissionRepository) ListApprovedUnboundForUpdate(vendorID uint) ([]models.Commission, error) {
	return r.lockedFind(r.db.Where("vendor_id = ? AND status = ? AND payout_id IS NULL", vendorID, constants.CommissionStatusApproved))
}

// ListByPayoutForUpdate 锁定当前绑定到结算单的佣金
func (r *GormCommissionRepository) ListByPayoutForUpdate(payoutID uint) ([]models.Commission, error) {
	return r.lockedFind(r.db.Where("payout_id = ?", payoutID))
}

// ListVoidedByPayoutForUpdate 锁定结算单中所属订单已取消/退款或订单项已取消的未付佣金
func (r *GormCommissionRepository) ListVoidedByPayoutForUpdate(payoutID uint) ([]models.Commission, error) {
	voidOrders := r.db.Model(&models.Order{}).Select("id").
		Where("status IN ?", []string{constants.OrderStatusCancelled, constants.OrderStatusRefunded})
	voidItems := r.db.Model(&models.OrderItem{}).Select("id").
		Where("status = ?", constants.OrderItemStatusCancelled)
	return r.lockedFind(r.db.
		Where("payout_id = ? AND status = ?", payoutID, constants.CommissionStatusApproved).
		Where(r.db.Where("order_id IN (?)", voidOrders).Or("order_item_id IN (?)", voidItems)))
}

// ListOpenPayoutIDsByOrder 查询订单（或订单项）未付佣金所绑定的结算单 ID
func (r *GormCommissionRepository) ListOpenPayoutIDsByOrder(orderID uint, itemID *uint) ([]uint, error) {
	query := r.db.Model(&models.Commission{}).
		Where("order_id = ? AND status = ? AND payout_id IS NOT NULL", orderID, constants.CommissionStatusApproved)
	if itemID != nil {
		query = query.Where("order_item_id = ?", *itemID)
	}
	var ids []uint
	if err := query.Distinct("payout_id").Order("payout_id ASC").Pluck("payout_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// ListPendingIDsByOrders 查询订单下待审核佣金 ID
func (r *GormCommissionRepository) ListPendingIDsByOrders(orderIDs []uint) ([]uint, error) {
	if len(orderIDs) == 0 {
		return []uint{}, nil
	}
	var ids []uint
	if err := r.db.Model(&models.Commission{}).
		Where("order_id IN ? AND status = ?", orderIDs, constants.CommissionStatusPending).
		Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// UpdateByIDs 批量更新佣金
func (r *GormCommissionRepository) UpdateByIDs(ids []uint, updates map[string]interface{}) (int64, error) {
	if len(ids) == 0 || len(updates) == 0 {
		return 0, nil
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now().UTC()
	}
	result := r.db.Model(&models.Commission{}).Where("id IN ?", ids).Updates(updates)
	return result.RowsAffected, result.Error
}

// SummaryByStatus 按状态汇总佣金，vendorID 为 0 时统计全平台
func (r *GormCommissionRepository) SummaryByStatus(vendorID uint) ([]CommissionStatusTotal, error) {
	query := r.db.Model(&models.Commission{}).
		Select("status, COUNT(*) AS count, COALESCE(SUM(net_amount), 0) AS net_amount")
	if vendorID != 0 {
		query = query.Where("vendor_id = ?", vendorID)
	}
	var rows []CommissionStatusTotal
	if err := query.Group("status").Order("status ASC").Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
