package service

import (
	"github.com/modaplex/internal/constants"
	"github.com/modaplex/internal/models"

	"github.com/shopspring/decimal"
)

var maxCommissionRate = decimal.NewFromInt(100)

// RateResolver 商家分成比例解析：品牌覆盖 > 商家默认 > 平台默认
type RateResolver struct {
	platformDefault decimal.Decimal
}

// NewRateResolver 创建分成比例解析器
func NewRateResolver(platformDefault decimal.Decimal) *RateResolver {
	return &RateResolver{platformDefault: platformDefault}
}

// Resolve 解析商品当前生效的分成比例与来源，商品需预加载 Brand.Vendor
func (r *RateResolver) Resolve(product *models.Product) (decimal.Decimal, string, error) {
	if product == nil || product.Brand == nil || product.Brand.Vendor == nil {
		return decimal.Zero, "", ErrVendorUnavailable
	}
	brand := product.Brand
	vendor := brand.Vendor
	if !brand.IsActive || vendor.Status != constants.VendorStatusActive {
		return decimal.Zero, "", ErrVendorUnavailable
	}
	if brand.CommissionRate.Valid {
		return brand.CommissionRate.Decimal, constants.RateSourceBrand, nil
	}
	if vendor.DefaultCommissionRate.Valid {
		return vendor.DefaultCommissionRate.Decimal, constants.RateSourceVendor, nil
	}
	return r.platformDefault, constants.RateSourcePlatform, nil
}

// ValidateCommissionRate 校验分成比例在 [0, 100] 区间
func ValidateCommissionRate(rate decimal.NullDecimal) error {
	if !rate.Valid {
		return nil
	}
	if rate.Decimal.IsNegative() || rate.Decimal.GreaterThan(maxCommissionRate) {
		return withDetails(ErrCommissionRateInvalid, map[string]interface{}{"rate": rate.Decimal.String()})
	}
	return nil
}
