package repository

import (
	"testing"

	"github.com/modaplex/internal/constants"
	"github.com/modaplex/internal/models"
)

func TestProductRepositoryListFiltersByVendorAndPrice(t *testing.T) {
	db := setupRepositoryTestDB(t, "product_repo_list")
	repo := NewProductRepository(db)
	vendorA := createTestVendor(t, db, "pa")
	vendorB := createTestVendor(t, db, "pb")
	createTestBrandProduct(t, db, vendorA, "silk-dress", "120.00", 5)
	createTestBrandProduct(t, db, vendorA, "linen-shirt", "45.00", 5)
	createTestBrandProduct(t, db, vendorB, "wool-coat", "300.00", 5)

	products, total, err := repo.List(ProductListFilter{Page: 1, PageSize: 10, VendorID: vendorA.ID, OnlyActive: true, Sort: "price_asc"})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if total != 2 || len(products) != 2 {
		t.Fatalf("expected 2 products for vendor A, got %d", total)
	}
	if products[0].Slug != "linen-shirt" {
		t.Fatalf("expected price ascending order, got %s first", products[0].Slug)
	}
	if products[0].Brand == nil || products[0].Brand.Vendor == nil || products[0].Brand.Vendor.ID != vendorA.ID {
		t.Fatalf("expected brand and vendor preloaded")
	}

	_, total, err = repo.List(ProductListFilter{Page: 1, PageSize: 10, MinPrice: "100", OnlyActive: true})
	if err != nil {
		t.Fatalf("list by price failed: %v", err)
	}
	if total != 2 {
		t.Fatalf("expected 2 products >= 100, got %d", total)
	}

	if err := db.Model(&models.Vendor{}).Where("id = ?", vendorB.ID).Update("status", constants.VendorStatusSuspended).Error; err != nil {
		t.Fatalf("suspend vendor failed: %v", err)
	}
	_, total, err = repo.List(ProductListFilter{Page: 1, PageSize: 10, OnlyActive: true})
	if err != nil {
		t.Fatalf("list active failed: %v", err)
	}
	if total != 2 {
		t.Fatalf("suspended vendor products should be hidden, got %d", total)
	}
}

func TestProductRepositoryDecrementStockGuardsNegative(t *testing.T) {
	db := setupRepositoryTestDB(t, "product_repo_stock")
	repo := NewProductRepository(db)
	vendor := createTestVendor(t, db, "ps")
	product := createTestBrandProduct(t, db, vendor, "tee", "10.00", 3)

	affected, err := repo.DecrementStock(product.ID, 2)
	if err != nil || affected != 1 {
		t.Fatalf("expected decrement to succeed, affected=%d err=%v", affected, err)
	}
	affected, err = repo.DecrementStock(product.ID, 2)
	if err != nil {
		t.Fatalf("decrement error: %v", err)
	}
	if affected != 0 {
		t.Fatalf("expected no rows affected when stock insufficient")
	}
	if err := repo.IncrementStock(product.ID, 4); err != nil {
		t.Fatalf("increment failed: %v", err)
	}
	reloaded, err := repo.GetByID(product.ID)
	if err != nil || reloaded == nil {
		t.Fatalf("reload failed: %v", err)
	}
	if reloaded.Stock != 5 {
		t.Fatalf("expected stock 5, got %d", reloaded.Stock)
	}
}
