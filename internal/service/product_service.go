package service

import (
	"strings"

	"github.com/modaplex/internal/models"
	"github.com/modaplex/internal/repository"

	"github.com/shopspring/decimal"
)

// ProductService 商品业务服务
type ProductService struct {
	repo       repository.ProductRepository
	vendorRepo repository.VendorRepository
}

// NewProductService 创建商品服务
func NewProductService(repo repository.ProductRepository, vendorRepo repository.VendorRepository) *ProductService {
	return &ProductService{repo: repo, vendorRepo: vendorRepo}
}

// ProductInput 创建/更新商品输入
type ProductInput struct {
	BrandID        uint
	Name           string
	Slug           string
	SKU            string
	Category       string
	Description    string
	Price          decimal.Decimal
	CompareAtPrice decimal.Decimal
	Stock          int
	Sizes          []string
	Colors         []string
	IsActive       *bool
}

// ListPublic 获取公开商品列表
func (s *ProductService) ListPublic(filter repository.ProductListFilter) ([]models.Product, int64, error) {
	filter.OnlyActive = true
	return s.repo.List(filter)
}

// GetPublicBySlug 获取公开商品详情
func (s *ProductService) GetPublicBySlug(slug string) (*models.Product, error) {
	product, err := s.repo.GetBySlug(slug, true)
	if err != nil {
		return nil, err
	}
	if product == nil || !isPurchasable(product) {
		return nil, ErrProductNotFound
	}
	return product, nil
}

// ListAdmin 管理端商品列表，vendorID 非 0 时仅返回本商家商品
func (s *ProductService) ListAdmin(filter repository.ProductListFilter, vendorID uint) ([]models.Product, int64, error) {
	if vendorID != 0 {
		filter.VendorID = vendorID
	}
	filter.OnlyActive = false
	return s.repo.List(filter)
}

// GetAdmin 管理端商品详情
func (s *ProductService) GetAdmin(id, vendorID uint) (*models.Product, error) {
	product, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if product == nil || (vendorID != 0 && (product.Brand == nil || product.Brand.VendorID != vendorID)) {
		return nil, ErrProductNotFound
	}
	return product, nil
}

// Create 创建商品
func (s *ProductService) Create(input ProductInput, vendorID uint) (*models.Product, error) {
	if err := s.validate(input, vendorID, 0); err != nil {
		return nil, err
	}
	product := &models.Product{IsActive: true}
	applyProductInput(product, input)
	if err := s.repo.Create(product); err != nil {
		return nil, err
	}
	return s.repo.GetByID(product.ID)
}

// Update 更新商品，已下单的订单项快照不受影响
func (s *ProductService) Update(id uint, input ProductInput, vendorID uint) (*models.Product, error) {
	product, err := s.GetAdmin(id, vendorID)
	if err != nil {
		return nil, err
	}
	if err := s.validate(input, vendorID, product.ID); err != nil {
		return nil, err
	}
	applyProductInput(product, input)
	product.Brand = nil
	if err := s.repo.Update(product); err != nil {
		return nil, err
	}
	return s.repo.GetByID(product.ID)
}

func (s *ProductService) validate(input ProductInput, vendorID, excludeID uint) error {
	if strings.TrimSpace(input.Name) == "" || strings.TrimSpace(input.SKU) == "" {
		return withDetails(ErrInvalidInput, map[string]interface{}{"fields": []string{"name", "sku"}})
	}
	if !input.Price.IsPositive() {
		return ErrProductPriceInvalid
	}
	if input.Stock < 0 {
		return ErrInvalidQuantity
	}
	brand, err := s.vendorRepo.GetBrandByID(input.BrandID)
	if err != nil {
		return err
	}
	if brand == nil || (vendorID != 0 && brand.VendorID != vendorID) {
		return ErrBrandNotFound
	}
	slug := normalizeSlug(input.Slug, input.Name)
	if slug == "" {
		return withDetails(ErrInvalidInput, map[string]interface{}{"field": "slug"})
	}
	count, err := s.repo.CountBySlug(slug, excludeID)
	if err != nil {
		return err
	}
	if count > 0 {
		return withDetails(ErrSlugExists, map[string]interface{}{"slug": slug})
	}
	return nil
}

func applyProductInput(product *models.Product, input ProductInput) {
	product.BrandID = input.BrandID
	product.Name = strings.TrimSpace(input.Name)
	product.Slug = normalizeSlug(input.Slug, input.Name)
	product.SKU = strings.ToUpper(strings.TrimSpace(input.SKU))
	product.Category = strings.ToLower(strings.TrimSpace(input.Category))
	product.Description = strings.TrimSpace(input.Description)
	product.Price = models.NewMoneyFromDecimal(input.Price)
	product.CompareAtPrice = models.NewMoneyFromDecimal(input.CompareAtPrice)
	product.Stock = input.Stock
	product.Sizes = normalizeOptions(input.Sizes)
	product.Colors = normalizeOptions(input.Colors)
	if input.IsActive != nil {
		product.IsActive = *input.IsActive
	}
}

func normalizeOptions(values []string) models.StringArray {
	result := make(models.StringArray, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, value := range values {
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		if _, ok := seen[value]; ok {
			continue
		}
		seen[value] = struct{}{}
		result = append(result, value)
	}
	return result
}

// normalizeSlug 生成 URL 标识，为空时由名称推导
func normalizeSlug(slug, fallback string) string {
	raw := strings.TrimSpace(slug)
	if raw == "" {
		raw = fallback
	}
	raw = strings.ToLower(raw)
	var b strings.Builder
	lastDash := false
	for _, r := range raw {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'):
			b.WriteRune(r)
			lastDash = false
		case !lastDash && b.Len() > 0:
			b.WriteByte('-')
			lastDash = true
		}
	}
	return strings.Trim(b.String(), "-")
}
