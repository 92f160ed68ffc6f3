package repository

import (
	"errors"
	"strings"
	"time"

	"github.com/modaplex/internal/models"

	"gorm.io/gorm"
)

// CartRepository 会话购物车数据访问接口
type CartRepository interface {
	ListBySession(sessionKey string) ([]models.CartItem, error)
	GetBySessionAndID(sessionKey string, id uint) (*models.CartItem, error)
	GetVariant(sessionKey string, productID uint, size, color string) (*models.CartItem, error)
	Create(item *models.CartItem) error
	UpdateQuantity(id uint, quantity int) error
	AttachUser(sessionKey string, userID uint) error
	Delete(sessionKey string, id uint) (int64, error)
	ClearSession(sessionKey string) error
	DeleteStale(before time.Time) (int64, error)
	WithTx(tx *gorm.DB) CartRepository
}

// GormCartRepository GORM 实现
type GormCartRepository struct {
	db *gorm.DB
}

// NewCartRepository 创建购物车仓库
func NewCartRepository(db *gorm.DB) *GormCartRepository {
	return &GormCartRepository{db: db}
}

// WithTx 绑定事务
func (r *GormCartRepository) WithTx(tx *gorm.DB) CartRepository {
	if tx == nil {
		return r
	}
	return &GormCartRepository{db: tx}
}

// ListBySession 获取会话购物车
func (r *GormCartRepository) ListBySession(sessionKey string) ([]models.CartItem, error) {
	sessionKey = strings.TrimSpace(sessionKey)
	if sessionKey == "" {
		return []models.CartItem{}, nil
	}
	var items []models.CartItem
	if err := r.db.Preload("Product").Preload("Product.Brand").Preload("Product.Brand.Vendor").
		Where("session_key = ?", sessionKey).
		Order("id ASC").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// GetBySessionAndID 获取会话内的购物车项
func (r *GormCartRepository) GetBySessionAndID(sessionKey string, id uint) (*models.CartItem, error) {
	var item models.CartItem
	if err := r.db.Preload("Product").Where("session_key = ? AND id = ?", sessionKey, id).First(&item).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &item, nil
}

// GetVariant 获取会话内同款同规格的购物车项
func (r *GormCartRepository) GetVariant(sessionKey string, productID uint, size, color string) (*models.CartItem, error) {
	var item models.CartItem
	if err := r.db.Where("session_key = ? AND product_id = ? AND size = ? AND color = ?", sessionKey, productID, size, color).
		First(&item).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &item, nil
}

// Create 新增购物车项
func (r *GormCartRepository) Create(item *models.CartItem) error {
	return r.db.Create(item).Error
}

// UpdateQuantity 更新数量
func (r *GormCartRepository) UpdateQuantity(id uint, quantity int) error {
	return r.db.Model(&models.CartItem{}).Where("id = ?", id).Updates(map[string]interface{}{
		"quantity":   quantity,
		"updated_at": time.Now().UTC(),
	}).Error
}

// AttachUser 将游客购物车绑定到登录用户
func (r *GormCartRepository) AttachUser(sessionKey string, userID uint) error {
	if sessionKey == "" || userID == 0 {
		return nil
	}
	return r.db.Model(&models.CartItem{}).
		Where("session_key = ? AND user_id = 0", sessionKey).
		Update("user_id", userID).Error
}

// Delete 删除会话内的购物车项
func (r *GormCartRepository) Delete(sessionKey string, id uint) (int64, error) {
	result := r.db.Where("session_key = ? AND id = ?", sessionKey, id).Delete(&models.CartItem{})
	return result.RowsAffected, result.Error
}

// ClearSession 清空会话购物车
func (r *GormCartRepository) ClearSession(sessionKey string) error {
	if sessionKey == "" {
		return nil
	}
	return r.db.Where("session_key = ?", sessionKey).Delete(&models.CartItem{}).Error
}

// DeleteStale 删除长时间未更新的购物车项
func (r *GormCartRepository) DeleteStale(before time.Time) (int64, error) {
	result := r.db.Where("updated_at < ?", before).Delete(&models.CartItem{})
	return result.RowsAffected, result.Error
}
