package repository

import (
	"errors"
	"time"

	"github.com/modaplex/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PayoutRepository 结算单数据访问接口
type PayoutRepository interface {
	Create(payout *models.Payout) error
	CreateLinks(links []models.PayoutCommission) error
	DeleteLinks(payoutID uint, commissionIDs []uint) error
	GetByID(id uint) (*models.Payout, error)
	GetByIDForUpdate(id uint) (*models.Payout, error)
	List(filter PayoutListFilter) ([]models.Payout, int64, error)
	UpdateFields(id uint, updates map[string]interface{}) error
	Transaction(fn func(tx *gorm.DB) error) error
	WithTx(tx *gorm.DB) PayoutRepository
}

// GormPayoutRepository GORM 实现
type GormPayoutRepository struct {
	db *gorm.DB
}

// NewPayoutRepository 创建结算单仓库
func NewPayoutRepository(db *gorm.DB) *GormPayoutRepository {
	return &GormPayoutRepository{db: db}
}

// WithTx 绑定事务
func (r *GormPayoutRepository) WithTx(tx *gorm.DB) PayoutRepository {
	if tx == nil {
		return r
	}
	return &GormPayoutRepository{db: tx}
}

// Transaction 执行事务
func (r *GormPayoutRepository) Transaction(fn func(tx *gorm.DB) error) error {
	if fn == nil {
		return nil
	}
	return r.db.Transaction(fn)
}

// Create 创建结算单
func (r *GormPayoutRepository) Create(payout *models.Payout) error {
	return r.db.Omit("Commissions").Create(payout).Error
}

// CreateLinks 写入结算单与佣金的关联
func (r *GormPayoutRepository) CreateLinks(links []models.PayoutCommission) error {
	if len(links) == 0 {
		return nil
	}
	return r.db.Create(&links).Error
}

// DeleteLinks 移除结算单中的指定佣金
func (r *GormPayoutRepository) DeleteLinks(payoutID uint, commissionIDs []uint) error {
	if payoutID == 0 || len(commissionIDs) == 0 {
		return nil
	}
	return r.db.Where("payout_id = ? AND commission_id IN ?", payoutID, commissionIDs).
		Delete(&models.PayoutCommission{}).Error
}

// GetByID 根据 ID 获取结算单（含历史关联佣金）
func (r *GormPayoutRepository) GetByID(id uint) (*models.Payout, error) {
	if id == 0 {
		return nil, nil
	}
	var payout models.Payout
	if err := r.db.Preload("Commissions", func(db *gorm.DB) *gorm.DB {
		return db.Order("commissions.id ASC")
	}).First(&payout, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &payout, nil
}

// GetByIDForUpdate 锁定结算单
func (r *GormPayoutRepository) GetByIDForUpdate(id uint) (*models.Payout, error) {
	if id == 0 {
		return nil, nil
	}
	var payout models.Payout
	if err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).First(&payout, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &payout, nil
}

// List 结算单列表
func (r *GormPayoutRepository) List(filter PayoutListFilter) ([]models.Payout, int64, error) {
	query := r.db.Model(&models.Payout{})
	if filter.VendorID != 0 {
		query = query.Where("vendor_id = ?", filter.VendorID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	var rows []models.Payout
	total, err := countAndFind(query, filter.Page, filter.PageSize, "id DESC", &rows)
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// UpdateFields 更新结算单字段
func (r *GormPayoutRepository) UpdateFields(id uint, updates map[string]interface{}) error {
	if id == 0 || len(updates) == 0 {
		return nil
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now().UTC()
	}
	return r.db.Model(&models.Payout{}).Where("id = ?", id).Updates(updates).Error
}
