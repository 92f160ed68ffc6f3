package service

import (
	"errors"
	"testing"

	"github.com/modaplex/internal/constants"
	"github.com/modaplex/internal/models"

	"github.com/shopspring/decimal"
)

func materializerTestProduct(brandRate, vendorRate decimal.NullDecimal) *models.Product {
	vendor := &models.Vendor{ID: 7, Name: "Atelier", Status: constants.VendorStatusActive, DefaultCommissionRate: vendorRate}
	brand := &models.Brand{ID: 3, VendorID: vendor.ID, Name: "Linea", IsActive: true, CommissionRate: brandRate, Vendor: vendor}
	return &models.Product{
		ID:       11,
		BrandID:  brand.ID,
		Name:     "Silk Dress",
		SKU:      "LIN-001",
		Price:    models.MustMoney("120.00"),
		Stock:    5,
		Sizes:    models.StringArray{"S", "M"},
		IsActive: true,
		Brand:    brand,
	}
}

func TestRateResolverPrecedence(t *testing.T) {
	resolver := NewRateResolver(decimal.NewFromInt(80))
	brandRate := decimal.NewNullDecimal(decimal.NewFromInt(70))
	vendorRate := decimal.NewNullDecimal(decimal.NewFromInt(75))

	cases := []struct {
		name   string
		brand  decimal.NullDecimal
		vendor decimal.NullDecimal
		rate   string
		source string
	}{
		{"brand override wins", brandRate, vendorRate, "70", constants.RateSourceBrand},
		{"vendor default", decimal.NullDecimal{}, vendorRate, "75", constants.RateSourceVendor},
		{"platform fallback", decimal.NullDecimal{}, decimal.NullDecimal{}, "80", constants.RateSourcePlatform},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rate, source, err := resolver.Resolve(materializerTestProduct(tc.brand, tc.vendor))
			if err != nil {
				t.Fatalf("resolve failed: %v", err)
			}
			if rate.String() != tc.rate || source != tc.source {
				t.Fatalf("expected %s/%s, got %s/%s", tc.rate, tc.source, rate, source)
			}
		})
	}
}

func TestRateResolverRejectsSuspendedVendor(t *testing.T) {
	product := materializerTestProduct(decimal.NullDecimal{}, decimal.NullDecimal{})
	product.Brand.Vendor.Status = constants.VendorStatusSuspended
	if _, _, err := NewRateResolver(decimal.NewFromInt(80)).Resolve(product); !errors.Is(err, ErrVendorUnavailable) {
		t.Fatalf("expected ErrVendorUnavailable, got %v", err)
	}
}

func TestValidateCommissionRateBounds(t *testing.T) {
	if err := ValidateCommissionRate(decimal.NullDecimal{}); err != nil {
		t.Fatalf("unset rate should be valid: %v", err)
	}
	for _, raw := range []string{"0", "55.5", "100"} {
		if err := ValidateCommissionRate(decimal.NewNullDecimal(decimal.RequireFromString(raw))); err != nil {
			t.Fatalf("rate %s should be valid: %v", raw, err)
		}
	}
	for _, raw := range []string{"-0.01", "100.01"} {
		err := ValidateCommissionRate(decimal.NewNullDecimal(decimal.RequireFromString(raw)))
		if !errors.Is(err, ErrCommissionRateInvalid) {
			t.Fatalf("rate %s should be rejected, got %v", raw, err)
		}
	}
}

func TestMaterializeSnapshotsProductAndRate(t *testing.T) {
	materializer := NewItemMaterializer(NewRateResolver(decimal.NewFromInt(80)))
	product := materializerTestProduct(decimal.NewNullDecimal(decimal.RequireFromString("72.5")), decimal.NullDecimal{})

	item, err := materializer.Materialize(MaterializeInput{Product: product, Quantity: 2, Size: "M"})
	if err != nil {
		t.Fatalf("materialize failed: %v", err)
	}
	if item.VendorID != 7 || item.VendorName != "Atelier" || item.BrandName != "Linea" {
		t.Fatalf("vendor snapshot mismatch: %+v", item)
	}
	if item.TotalPrice.String() != "240.00" || item.VendorCommission.String() != "174.00" {
		t.Fatalf("unexpected amounts: total=%s commission=%s", item.TotalPrice, item.VendorCommission)
	}
	if item.CommissionRateSource != constants.RateSourceBrand {
		t.Fatalf("unexpected rate source: %s", item.CommissionRateSource)
	}

	// 下单后修改品牌比例不影响已快照的订单项
	product.Brand.CommissionRate = decimal.NewNullDecimal(decimal.NewFromInt(50))
	if err := RecomputeItemQuantity(&item, 3); err != nil {
		t.Fatalf("recompute failed: %v", err)
	}
	if item.TotalPrice.String() != "360.00" || item.VendorCommission.String() != "261.00" {
		t.Fatalf("recompute should use snapshot rate: total=%s commission=%s", item.TotalPrice, item.VendorCommission)
	}
}

func TestMaterializeRejectsUnknownVariant(t *testing.T) {
	materializer := NewItemMaterializer(NewRateResolver(decimal.NewFromInt(80)))
	product := materializerTestProduct(decimal.NullDecimal{}, decimal.NullDecimal{})
	_, err := materializer.Materialize(MaterializeInput{Product: product, Quantity: 1, Size: "XXL"})
	if !errors.Is(err, ErrVariantInvalid) {
		t.Fatalf("expected ErrVariantInvalid, got %v", err)
	}
	if _, err := materializer.Materialize(MaterializeInput{Product: product, Quantity: 0, Size: "S"}); !errors.Is(err, ErrInvalidQuantity) {
		t.Fatalf("expected ErrInvalidQuantity, got %v", err)
	}
}
