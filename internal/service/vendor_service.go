package service

import (
	"context"
	"strings"
	"time"

	"github.com/modaplex/internal/cache"
	"github.com/modaplex/internal/constants"
	"github.com/modaplex/internal/logger"
	"github.com/modaplex/internal/models"
	"github.com/modaplex/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// VendorService 商家与品牌管理服务
type VendorService struct {
	vendorRepo repository.VendorRepository
	userRepo   repository.UserRepository
}

// NewVendorService 创建商家服务
func NewVendorService(vendorRepo repository.VendorRepository, userRepo repository.UserRepository) *VendorService {
	return &VendorService{vendorRepo: vendorRepo, userRepo: userRepo}
}

// BankDetails 商家收款信息
type BankDetails struct {
	BankName          string
	BankAccountName   string
	BankAccountNumber string
	BankRoutingCode   string
}

// CreateVendorInput 创建商家输入
type CreateVendorInput struct {
	Email                 string
	Password              string
	Name                  string
	Slug                  string
	ContactEmail          string
	DefaultCommissionRate decimal.NullDecimal
	Bank                  BankDetails
}

// UpdateVendorInput 更新商家输入，nil 字段不修改
type UpdateVendorInput struct {
	Name                  *string
	Slug                  *string
	ContactEmail          *string
	DefaultCommissionRate *decimal.NullDecimal
	Status                *string
	Bank                  *BankDetails
}

// BrandInput 品牌输入
type BrandInput struct {
	VendorID       uint
	Name           string
	Slug           string
	CommissionRate decimal.NullDecimal
	IsActive       *bool
}

// Create 创建商家及其登录账号
func (s *VendorService) Create(ctx context.Context, input CreateVendorInput) (*models.Vendor, error) {
	email, err := NormalizeEmail(input.Email)
	if err != nil {
		return nil, err
	}
	if err := ValidatePassword(input.Password); err != nil {
		return nil, err
	}
	if err := ValidateCommissionRate(input.DefaultCommissionRate); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, withDetails(ErrInvalidInput, map[string]interface{}{"field": "name"})
	}
	slug := normalizeSlug(input.Slug, name)
	if slug == "" {
		return nil, withDetails(ErrInvalidInput, map[string]interface{}{"field": "slug"})
	}
	hash, err := HashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	var vendor *models.Vendor
	err = s.vendorRepo.Transaction(func(tx *gorm.DB) error {
		userRepo := s.userRepo.WithTx(tx)
		vendorRepo := s.vendorRepo.WithTx(tx)
		existing, err := userRepo.GetByEmail(email)
		if err != nil {
			return err
		}
		if existing != nil {
			return ErrEmailExists
		}
		count, err := vendorRepo.CountBySlug(slug, 0)
		if err != nil {
			return err
		}
		if count > 0 {
			return withDetails(ErrSlugExists, map[string]interface{}{"slug": slug})
		}
		user := &models.User{
			Email:        email,
			PasswordHash: hash,
			DisplayName:  name,
			UserType:     constants.UserTypeVendor,
			Role:         constants.UserTypeVendor,
			Status:       constants.UserStatusActive,
		}
		if err := userRepo.Create(user); err != nil {
			return err
		}
		contact := strings.TrimSpace(input.ContactEmail)
		if contact == "" {
			contact = email
		}
		vendor = &models.Vendor{
			UserID:                user.ID,
			Name:                  name,
			Slug:                  slug,
			ContactEmail:          contact,
			DefaultCommissionRate: input.DefaultCommissionRate,
			Status:                constants.VendorStatusActive,
		}
		applyBankDetails(vendor, input.Bank)
		return vendorRepo.Create(vendor)
	})
	if err != nil {
		return nil, err
	}
	logger.Infow("vendor_created", "vendor_id", vendor.ID, "user_id", vendor.UserID)
	return vendor, nil
}

// Update 更新商家资料、默认分成比例、状态或收款信息
func (s *VendorService) Update(ctx context.Context, id uint, input UpdateVendorInput) (*models.Vendor, error) {
	vendor, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, withDetails(ErrInvalidInput, map[string]interface{}{"field": "name"})
		}
		vendor.Name = name
	}
	if input.Slug != nil {
		slug := normalizeSlug(*input.Slug, vendor.Name)
		count, err := s.vendorRepo.CountBySlug(slug, vendor.ID)
		if err != nil {
			return nil, err
		}
		if count > 0 {
			return nil, withDetails(ErrSlugExists, map[string]interface{}{"slug": slug})
		}
		vendor.Slug = slug
	}
	if input.ContactEmail != nil {
		vendor.ContactEmail = strings.TrimSpace(*input.ContactEmail)
	}
	if input.DefaultCommissionRate != nil {
		if err := ValidateCommissionRate(*input.DefaultCommissionRate); err != nil {
			return nil, err
		}
		vendor.DefaultCommissionRate = *input.DefaultCommissionRate
	}
	statusChanged := false
	if input.Status != nil {
		status := strings.ToLower(strings.TrimSpace(*input.Status))
		if status != constants.VendorStatusActive && status != constants.VendorStatusSuspended {
			return nil, withDetails(ErrInvalidInput, map[string]interface{}{"field": "status"})
		}
		statusChanged = status != vendor.Status
		vendor.Status = status
	}
	if input.Bank != nil {
		applyBankDetails(vendor, *input.Bank)
	}
	vendor.UpdatedAt = time.Now().UTC()
	if err := s.vendorRepo.Update(vendor); err != nil {
		return nil, err
	}
	if statusChanged {
		s.syncVendorUserStatus(ctx, vendor)
	}
	return vendor, nil
}

// syncVendorUserStatus 商家停用时同步禁用账号并使已签发 Token 失效
func (s *VendorService) syncVendorUserStatus(ctx context.Context, vendor *models.Vendor) {
	user, err := s.userRepo.GetByID(vendor.UserID)
	if err != nil || user == nil {
		logger.Warnw("vendor_user_sync_failed", "vendor_id", vendor.ID, "error", err)
		return
	}
	if vendor.Status == constants.VendorStatusSuspended {
		user.Status = constants.UserStatusDisabled
		user.TokenVersion++
	} else {
		user.Status = constants.UserStatusActive
	}
	if err := s.userRepo.Update(user); err != nil {
		logger.Warnw("vendor_user_sync_failed", "vendor_id", vendor.ID, "error", err)
		return
	}
	if err := cache.DelUserAuthState(ctx, user.ID); err != nil {
		logger.Warnw("auth_state_cache_del_failed", "user_id", user.ID, "error", err)
	}
	logger.Infow("vendor_status_changed", "vendor_id", vendor.ID, "status", vendor.Status)
}

// Get 获取商家
func (s *VendorService) Get(id uint) (*models.Vendor, error) {
	vendor, err := s.vendorRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if vendor == nil {
		return nil, ErrVendorNotFound
	}
	return vendor, nil
}

// GetByUserID 根据商家账号获取商家
func (s *VendorService) GetByUserID(userID uint) (*models.Vendor, error) {
	vendor, err := s.vendorRepo.GetByUserID(userID)
	if err != nil {
		return nil, err
	}
	if vendor == nil {
		return nil, ErrVendorNotFound
	}
	return vendor, nil
}

// List 商家列表
func (s *VendorService) List(filter repository.VendorListFilter) ([]models.Vendor, int64, error) {
	return s.vendorRepo.List(filter)
}

// CreateBrand 创建品牌，scopeVendorID 非 0 时只能为本商家创建
func (s *VendorService) CreateBrand(input BrandInput, scopeVendorID uint) (*models.Brand, error) {
	if scopeVendorID != 0 {
		input.VendorID = scopeVendorID
	}
	if _, err := s.Get(input.VendorID); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, withDetails(ErrInvalidInput, map[string]interface{}{"field": "name"})
	}
	if err := ValidateCommissionRate(input.CommissionRate); err != nil {
		return nil, err
	}
	slug := normalizeSlug(input.Slug, name)
	if err := s.ensureBrandSlug(slug, 0); err != nil {
		return nil, err
	}
	brand := &models.Brand{
		VendorID:       input.VendorID,
		Name:           name,
		Slug:           slug,
		CommissionRate: input.CommissionRate,
		IsActive:       true,
	}
	if input.IsActive != nil {
		brand.IsActive = *input.IsActive
	}
	if err := s.vendorRepo.CreateBrand(brand); err != nil {
		return nil, err
	}
	return brand, nil
}

// UpdateBrand 更新品牌，分成比例变更只影响之后创建的订单项
func (s *VendorService) UpdateBrand(id uint, input BrandInput, scopeVendorID uint) (*models.Brand, error) {
	brand, err := s.GetBrand(id, scopeVendorID)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(input.Name)
	if name != "" {
		brand.Name = name
	}
	if strings.TrimSpace(input.Slug) != "" {
		slug := normalizeSlug(input.Slug, brand.Name)
		if err := s.ensureBrandSlug(slug, brand.ID); err != nil {
			return nil, err
		}
		brand.Slug = slug
	}
	if err := ValidateCommissionRate(input.CommissionRate); err != nil {
		return nil, err
	}
	brand.CommissionRate = input.CommissionRate
	if input.IsActive != nil {
		brand.IsActive = *input.IsActive
	}
	brand.Vendor = nil
	if err := s.vendorRepo.UpdateBrand(brand); err != nil {
		return nil, err
	}
	logger.Infow("brand_updated", "brand_id", brand.ID, "commission_rate_set", brand.CommissionRate.Valid)
	return brand, nil
}

// GetBrand 获取品牌
func (s *VendorService) GetBrand(id, scopeVendorID uint) (*models.Brand, error) {
	brand, err := s.vendorRepo.GetBrandByID(id)
	if err != nil {
		return nil, err
	}
	if brand == nil || (scopeVendorID != 0 && brand.VendorID != scopeVendorID) {
		return nil, ErrBrandNotFound
	}
	return brand, nil
}

// ListBrands 品牌列表
func (s *VendorService) ListBrands(vendorID uint) ([]models.Brand, error) {
	return s.vendorRepo.ListBrands(vendorID)
}

func (s *VendorService) ensureBrandSlug(slug string, excludeID uint) error {
	if slug == "" {
		return withDetails(ErrInvalidInput, map[string]interface{}{"field": "slug"})
	}
	count, err := s.vendorRepo.CountBrandBySlug(slug, excludeID)
	if err != nil {
		return err
	}
	if count > 0 {
		return withDetails(ErrSlugExists, map[string]interface{}{"slug": slug})
	}
	return nil
}

func applyBankDetails(vendor *models.Vendor, bank BankDetails) {
	vendor.BankName = strings.TrimSpace(bank.BankName)
	vendor.BankAccountName = strings.TrimSpace(bank.BankAccountName)
	vendor.BankAccountNumber = strings.ReplaceAll(strings.TrimSpace(bank.BankAccountNumber), " ", "")
	vendor.BankRoutingCode = strings.ToUpper(strings.TrimSpace(bank.BankRoutingCode))
}
