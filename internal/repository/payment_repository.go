package repository

import (
	"errors"
	"time"

	"github.com/modaplex/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PaymentRepository 支付数据访问接口
type PaymentRepository interface {
	Create(payment *models.Payment) error
	GetByTransactionID(txnID string) (*models.Payment, error)
	GetByTransactionIDForUpdate(txnID string) (*models.Payment, error)
	ListByOrder(orderID uint) ([]models.Payment, error)
	CountByOrderStatus(orderID uint, status string) (int64, error)
	UpdateFields(id uint, updates map[string]interface{}) error
	WithTx(tx *gorm.DB) PaymentRepository
}

// GormPaymentRepository GORM 实现
type GormPaymentRepository struct {
	db *gorm.DB
}

// NewPaymentRepository 创建支付仓库
func NewPaymentRepository(db *gorm.DB) *GormPaymentRepository {
	return &GormPaymentRepository{db: db}
}

// WithTx 绑定事务
func (r *GormPaymentRepository) WithTx(tx *gorm.DB) PaymentRepository {
	if tx == nil {
		return r
	}
	return &GormPaymentRepository{db: tx}
}

// Create 创建支付记录
func (r *GormPaymentRepository) Create(payment *models.Payment) error {
	return r.db.Create(payment).Error
}

// GetByTransactionID 根据网关交易号获取支付记录
func (r *GormPaymentRepository) GetByTransactionID(txnID string) (*models.Payment, error) {
	return r.byTxn(r.db, txnID)
}

// GetByTransactionIDForUpdate 根据网关交易号获取并锁定支付记录
func (r *GormPaymentRepository) GetByTransactionIDForUpdate(txnID string) (*models.Payment, error) {
	return r.byTxn(r.db.Clauses(clause.Locking{Strength: "UPDATE"}), txnID)
}

func (r *GormPaymentRepository) byTxn(query *gorm.DB, txnID string) (*models.Payment, error) {
	if txnID == "" {
		return nil, nil
	}
	var payment models.Payment
	if err := query.Where("transaction_id = ?", txnID).First(&payment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &payment, nil
}

// ListByOrder 获取订单的支付记录
func (r *GormPaymentRepository) ListByOrder(orderID uint) ([]models.Payment, error) {
	var rows []models.Payment
	if err := r.db.Where("order_id = ?", orderID).Order("id DESC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// CountByOrderStatus 统计订单下指定状态的支付记录
func (r *GormPaymentRepository) CountByOrderStatus(orderID uint, status string) (int64, error) {
	var count int64
	if err := r.db.Model(&models.Payment{}).Where("order_id = ? AND status = ?", orderID, status).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// UpdateFields 更新支付记录
func (r *GormPaymentRepository) UpdateFields(id uint, updates map[string]interface{}) error {
	if id == 0 || len(updates) == 0 {
		return nil
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now().UTC()
	}
	return r.db.Model(&models.Payment{}).Where("id = ?", id).Updates(updates).Error
}
