package repository

import (
	"errors"
	"strings"

	"github.com/modaplex/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ProductRepository 商品数据访问接口
type ProductRepository interface {
	List(filter ProductListFilter) ([]models.Product, int64, error)
	GetBySlug(slug string, onlyActive bool) (*models.Product, error)
	GetByID(id uint) (*models.Product, error)
	ListByIDsForUpdate(ids []uint) ([]models.Product, error)
	Create(product *models.Product) error
	Update(product *models.Product) error
	CountBySlug(slug string, excludeID uint) (int64, error)
	DecrementStock(productID uint, quantity int) (int64, error)
	IncrementStock(productID uint, quantity int) error
	WithTx(tx *gorm.DB) ProductRepository
}

// GormProductRepository GORM 实现
type GormProductRepository struct {
	db *gorm.DB
}

// NewProductRepository 创建商品仓库
func NewProductRepository(db *gorm.DB) *GormProductRepository {
	return &GormProductRepository{db: db}
}

// WithTx 绑定事务
func (r *GormProductRepository) WithTx(tx *gorm.DB) ProductRepository {
	if tx == nil {
		return r
	}
	return &GormProductRepository{db: tx}
}

func (r *GormProductRepository) withBrand(query *gorm.DB) *gorm.DB {
	return query.Preload("Brand").Preload("Brand.Vendor")
}

// List 商品列表
func (r *GormProductRepository) List(filter ProductListFilter) ([]models.Product, int64, error) {
	query := r.db.Model(&models.Product{})
	if filter.OnlyActive {
		query = query.Where("products.is_active = ?", true).
			Where("EXISTS (SELECT 1 FROM brands b JOIN vendors v ON v.id = b.vendor_id WHERE b.id = products.brand_id AND b.is_active = ? AND b.deleted_at IS NULL AND v.status = ? AND v.deleted_at IS NULL)", true, "active")
	}
	if filter.BrandID != 0 {
		query = query.Where("products.brand_id = ?", filter.BrandID)
	}
	if filter.VendorID != 0 {
		query = query.Where("products.brand_id IN (?)", r.db.Model(&models.Brand{}).Select("id").Where("vendor_id = ?", filter.VendorID))
	}
	if category := strings.TrimSpace(filter.Category); category != "" {
		query = query.Where("products.category = ?", category)
	}
	if kw := strings.TrimSpace(filter.Keyword); kw != "" {
		cond, args := buildLikeCondition(r.db, kw, "products.name", "products.sku", "products.description")
		query = query.Where(cond, args...)
	}
	if d, err := decimal.NewFromString(strings.TrimSpace(filter.MinPrice)); err == nil {
		query = query.Where("products.price >= ?", d.InexactFloat64())
	}
	if d, err := decimal.NewFromString(strings.TrimSpace(filter.MaxPrice)); err == nil {
		query = query.Where("products.price <= ?", d.InexactFloat64())
	}

	order := "products.created_at DESC, products.id DESC"
	switch filter.Sort {
	case "price_asc":
		order = "products.price ASC, products.id ASC"
	case "price_desc":
		order = "products.price DESC, products.id DESC"
	case "name":
		order = "products.name ASC, products.id ASC"
	}

	var products []models.Product
	total, err := countAndFind(query, filter.Page, filter.PageSize, order, &products, r.withBrand)
	if err != nil {
		return nil, 0, err
	}
	return products, total, nil
}

// GetBySlug 根据标识获取商品
func (r *GormProductRepository) GetBySlug(slug string, onlyActive bool) (*models.Product, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return nil, nil
	}
	query := r.withBrand(r.db).Where("slug = ?", slug)
	if onlyActive {
		query = query.Where("is_active = ?", true)
	}
	var product models.Product
	if err := query.First(&product).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &product, nil
}

// GetByID 根据 ID 获取商品（含品牌与商家）
func (r *GormProductRepository) GetByID(id uint) (*models.Product, error) {
	if id == 0 {
		return nil, nil
	}
	var product models.Product
	if err := r.withBrand(r.db).First(&product, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &product, nil
}

// ListByIDsForUpdate 批量锁定商品（按 ID 升序加锁避免死锁）
func (r *GormProductRepository) ListByIDsForUpdate(ids []uint) ([]models.Product, error) {
	if len(ids) == 0 {
		return []models.Product{}, nil
	}
	var products []models.Product
	if err := r.withBrand(r.db.Clauses(clause.Locking{Strength: "UPDATE"})).
		Where("id IN ?", ids).
		Order("id ASC").
		Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

// Create 创建商品
func (r *GormProductRepository) Create(product *models.Product) error {
	return r.db.Create(product).Error
}

// Update 更新商品
func (r *GormProductRepository) Update(product *models.Product) error {
	return r.db.Omit("Brand").Save(product).Error
}

// CountBySlug 统计标识占用数
func (r *GormProductRepository) CountBySlug(slug string, excludeID uint) (int64, error) {
	var total int64
	query := r.db.Model(&models.Product{}).Where("slug = ?", slug)
	if excludeID != 0 {
		query = query.Where("id <> ?", excludeID)
	}
	err := query.Count(&total).Error
	return total, err
}

// DecrementStock 条件扣减库存，返回受影响行数（0 表示库存不足）
func (r *GormProductRepository) DecrementStock(productID uint, quantity int) (int64, error) {
	if productID == 0 || quantity <= 0 {
		return 0, nil
	}
	result := r.db.Model(&models.Product{}).
		Where("id = ? AND stock >= ?", productID, quantity).
		UpdateColumn("stock", gorm.Expr("stock - ?", quantity))
	return result.RowsAffected, result.Error
}

// IncrementStock 回补库存
func (r *GormProductRepository) IncrementStock(productID uint, quantity int) error {
	if productID == 0 || quantity <= 0 {
		return nil
	}
	return r.db.Model(&models.Product{}).
		Where("id = ?", productID).
		UpdateColumn("stock", gorm.Expr("stock + ?", quantity)).Error
}
