package repository

import (
	"fmt"
	"testing"
	"time"

	"github.com/modaplex/internal/constants"
	"github.com/modaplex/internal/models"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func setupRepositoryTestDB(t *testing.T, name string) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", name, time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{NowFunc: models.NowUTC})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := models.Migrate(db); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	return db
}

func createTestVendor(t *testing.T, db *gorm.DB, slug string) *models.Vendor {
	t.Helper()
	user := &models.User{
		Email:        slug + "@vendors.test",
		PasswordHash: "hash",
		UserType:     constants.UserTypeVendor,
		Status:       constants.UserStatusActive,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("create vendor user failed: %v", err)
	}
	vendor := &models.Vendor{
		UserID:            user.ID,
		Name:              "Vendor " + slug,
		Slug:              slug,
		Status:            constants.VendorStatusActive,
		BankName:          "Bank",
		BankAccountName:   "Vendor " + slug,
		BankAccountNumber: "000111222333",
	}
	if err := db.Create(vendor).Error; err != nil {
		t.Fatalf("create vendor failed: %v", err)
	}
	return vendor
}

func createTestBrandProduct(t *testing.T, db *gorm.DB, vendor *models.Vendor, slug string, price string, stock int) *models.Product {
	t.Helper()
	brand := &models.Brand{VendorID: vendor.ID, Name: "Brand " + slug, Slug: "brand-" + slug, IsActive: true}
	if err := db.Create(brand).Error; err != nil {
		t.Fatalf("create brand failed: %v", err)
	}
	product := &models.Product{
		BrandID:  brand.ID,
		Name:     "Product " + slug,
		Slug:     slug,
		SKU:      "SKU-" + slug,
		Category: "dresses",
		Price:    models.MustMoney(price),
		Stock:    stock,
		IsActive: true,
	}
	if err := db.Create(product).Error; err != nil {
		t.Fatalf("create product failed: %v", err)
	}
	return product
}

type testLine struct {
	vendor *models.Vendor
	price  string
	qty    int
}

func createTestOrder(t *testing.T, db *gorm.DB, orderNo, status, paymentStatus string, createdAt time.Time, lines ...testLine) *models.Order {
	t.Helper()
	subtotal := models.ZeroMoney()
	items := make([]models.OrderItem, 0, len(lines))
	vendors := map[uint]struct{}{}
	for i, line := range lines {
		unit := models.MustMoney(line.price)
		total := unit.MulInt(line.qty)
		rate := decimal.NewFromInt(80)
		items = append(items, models.OrderItem{
			ProductName:          fmt.Sprintf("line-%d", i),
			SKU:                  fmt.Sprintf("%s-%d", orderNo, i),
			UnitPrice:            unit,
			Quantity:             line.qty,
			TotalPrice:           total,
			VendorID:             line.vendor.ID,
			VendorName:           line.vendor.Name,
			VendorCommissionRate: rate,
			CommissionRateSource: constants.RateSourcePlatform,
			VendorCommission:     total.Percent(rate),
			Status:               constants.OrderItemStatusPending,
		})
		subtotal = subtotal.Add(total)
		vendors[line.vendor.ID] = struct{}{}
	}
	order := &models.Order{
		OrderNo:        orderNo,
		UserID:         1,
		Status:         status,
		PaymentStatus:  paymentStatus,
		IsMultiVendor:  len(vendors) > 1,
		Currency:       "USD",
		SubtotalAmount: subtotal,
		TotalAmount:    subtotal,
		CreatedAt:      createdAt,
		UpdatedAt:      createdAt,
	}
	if err := NewOrderRepository(db).Create(order, items); err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	return order
}
