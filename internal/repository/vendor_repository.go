package repository

import (
	"errors"
	"strings"

	"github.com/modaplex/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// VendorRepository 商家与品牌数据访问接口
type VendorRepository interface {
	Create(vendor *models.Vendor) error
	Update(vendor *models.Vendor) error
	GetByID(id uint) (*models.Vendor, error)
	GetByIDForUpdate(id uint) (*models.Vendor, error)
	GetByUserID(userID uint) (*models.Vendor, error)
	CountBySlug(slug string, excludeID uint) (int64, error)
	List(filter VendorListFilter) ([]models.Vendor, int64, error)
	CreateBrand(brand *models.Brand) error
	UpdateBrand(brand *models.Brand) error
	GetBrandByID(id uint) (*models.Brand, error)
	CountBrandBySlug(slug string, excludeID uint) (int64, error)
	ListBrands(vendorID uint) ([]models.Brand, error)
	Transaction(fn func(tx *gorm.DB) error) error
	WithTx(tx *gorm.DB) VendorRepository
}

// GormVendorRepository GORM 实现
type GormVendorRepository struct {
	db *gorm.DB
}

// NewVendorRepository 创建商家仓库
func NewVendorRepository(db *gorm.DB) *GormVendorRepository {
	return &GormVendorRepository{db: db}
}

// WithTx 绑定事务
func (r *GormVendorRepository) WithTx(tx *gorm.DB) VendorRepository {
	if tx == nil {
		return r
	}
	return &GormVendorRepository{db: tx}
}

// Transaction 执行事务
func (r *GormVendorRepository) Transaction(fn func(tx *gorm.DB) error) error {
	if fn == nil {
		return nil
	}
	return r.db.Transaction(fn)
}

// Create 创建商家
func (r *GormVendorRepository) Create(vendor *models.Vendor) error {
	return r.db.Create(vendor).Error
}

// Update 更新商家
func (r *GormVendorRepository) Update(vendor *models.Vendor) error {
	return r.db.Omit("Brands").Save(vendor).Error
}

// GetByID 根据 ID 获取商家
func (r *GormVendorRepository) GetByID(id uint) (*models.Vendor, error) {
	return r.first(r.db, "id = ?", id)
}

// GetByIDForUpdate 根据 ID 获取并锁定商家
func (r *GormVendorRepository) GetByIDForUpdate(id uint) (*models.Vendor, error) {
	return r.first(r.db.Clauses(clause.Locking{Strength: "UPDATE"}), "id = ?", id)
}

// GetByUserID 根据商家账号获取商家
func (r *GormVendorRepository) GetByUserID(userID uint) (*models.Vendor, error) {
	if userID == 0 {
		return nil, nil
	}
	return r.first(r.db, "user_id = ?", userID)
}

func (r *GormVendorRepository) first(query *gorm.DB, cond string, arg interface{}) (*models.Vendor, error) {
	var vendor models.Vendor
	if err := query.Where(cond, arg).First(&vendor).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &vendor, nil
}

// CountBySlug 统计同标识商家数量
func (r *GormVendorRepository) CountBySlug(slug string, excludeID uint) (int64, error) {
	var count int64
	query := r.db.Model(&models.Vendor{}).Where("slug = ?", slug)
	if excludeID != 0 {
		query = query.Where("id <> ?", excludeID)
	}
	err := query.Count(&count).Error
	return count, err
}

// List 商家列表
func (r *GormVendorRepository) List(filter VendorListFilter) ([]models.Vendor, int64, error) {
	query := r.db.Model(&models.Vendor{})
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if kw := strings.TrimSpace(filter.Keyword); kw != "" {
		cond, args := buildLikeCondition(r.db, kw, "name", "slug", "contact_email")
		query = query.Where(cond, args...)
	}
	var vendors []models.Vendor
	total, err := countAndFind(query, filter.Page, filter.PageSize, "id DESC", &vendors)
	if err != nil {
		return nil, 0, err
	}
	return vendors, total, nil
}

// CreateBrand 创建品牌
func (r *GormVendorRepository) CreateBrand(brand *models.Brand) error {
	return r.db.Create(brand).Error
}

// UpdateBrand 更新品牌
func (r *GormVendorRepository) UpdateBrand(brand *models.Brand) error {
	return r.db.Omit("Vendor").Save(brand).Error
}

// GetBrandByID 根据 ID 获取品牌（含商家）
func (r *GormVendorRepository) GetBrandByID(id uint) (*models.Brand, error) {
	if id == 0 {
		return nil, nil
	}
	var brand models.Brand
	if err := r.db.Preload("Vendor").First(&brand, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &brand, nil
}

// CountBrandBySlug 统计同标识品牌数量
func (r *GormVendorRepository) CountBrandBySlug(slug string, excludeID uint) (int64, error) {
	var count int64
	query := r.db.Model(&models.Brand{}).Where("slug = ?", slug)
	if excludeID != 0 {
		query = query.Where("id <> ?", excludeID)
	}
	err := query.Count(&count).Error
	return count, err
}

// ListBrands 品牌列表，vendorID 为 0 时返回全部
func (r *GormVendorRepository) ListBrands(vendorID uint) ([]models.Brand, error) {
	query := r.db.Model(&models.Brand{})
	if vendorID != 0 {
		query = query.Where("vendor_id = ?", vendorID)
	}
	var brands []models.Brand
	if err := query.Order("name ASC").Find(&brands).Error; err != nil {
		return nil, err
	}
	return brands, nil
}
