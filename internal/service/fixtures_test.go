package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/modaplex/internal/config"
	"github.com/modaplex/internal/constants"
	"github.com/modaplex/internal/models"
	"github.com/modaplex/internal/payment"
	"github.com/modaplex/internal/repository"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const testWebhookSecret = "whsec_test"

type serviceTestEnv struct {
	db          *gorm.DB
	orderRepo   repository.OrderRepository
	productRepo repository.ProductRepository
	vendorRepo  repository.VendorRepository
	userRepo    repository.UserRepository
	tracker     *StatusTracker
	carts       *CartService
	orders      *OrderService
	commissions *CommissionService
	payments    *PaymentService
	payouts     *PayoutService
	reports     *SalesReportService
	vendors     *VendorService
}

func setupServiceTestDB(t *testing.T, name string) *gorm.DB {
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

func newServiceTestEnv(t *testing.T, name string) *serviceTestEnv {
	t.Helper()
	db := setupServiceTestDB(t, name)

	orderRepo := repository.NewOrderRepository(db)
	historyRepo := repository.NewOrderStatusHistoryRepository(db)
	productRepo := repository.NewProductRepository(db)
	cartRepo := repository.NewCartRepository(db)
	commissionRepo := repository.NewCommissionRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	payoutRepo := repository.NewPayoutRepository(db)
	reportRepo := repository.NewSalesReportRepository(db)
	vendorRepo := repository.NewVendorRepository(db)
	userRepo := repository.NewUserRepository(db)

	payoutRules := PayoutRules{
		MinAmount:  decimal.NewFromInt(10),
		FixedFee:   decimal.NewFromInt(1),
		FeePercent: decimal.NewFromInt(2),
	}
	totalsRules := TotalsRules{
		TaxRatePercent:  decimal.NewFromInt(10),
		FlatShippingFee: decimal.NewFromInt(5),
	}
	ledger := NewPayoutLedger(payoutRepo, commissionRepo, payoutRules)
	tracker := NewStatusTracker(StatusTrackerOptions{
		OrderRepo:   orderRepo,
		HistoryRepo: historyRepo,
		ProductRepo: productRepo,
		Ledger:      ledger,
		Rules:       totalsRules,
	})
	commissions := NewCommissionService(commissionRepo, orderRepo, ledger, decimal.NewFromInt(10), 7)
	orders := NewOrderService(OrderServiceOptions{
		OrderRepo:    orderRepo,
		HistoryRepo:  historyRepo,
		ProductRepo:  productRepo,
		CartRepo:     cartRepo,
		PaymentRepo:  paymentRepo,
		Tracker:      tracker,
		Materializer: NewItemMaterializer(NewRateResolver(decimal.NewFromInt(80))),
		Rules:        totalsRules,
		Currency:     "USD",
	})
	payments := NewPaymentService(PaymentServiceOptions{
		OrderRepo:     orderRepo,
		PaymentRepo:   paymentRepo,
		Tracker:       tracker,
		CommissionSvc: commissions,
		Gateway:       payment.PendingGateway{},
		Config:        config.PaymentConfig{WebhookSecret: testWebhookSecret},
	})
	payouts := NewPayoutService(payoutRepo, commissionRepo, vendorRepo, nil, payoutRules, "USD")

	return &serviceTestEnv{
		db:          db,
		orderRepo:   orderRepo,
		productRepo: productRepo,
		vendorRepo:  vendorRepo,
		userRepo:    userRepo,
		tracker:     tracker,
		carts:       NewCartService(cartRepo, productRepo, 10),
		orders:      orders,
		commissions: commissions,
		payments:    payments,
		payouts:     payouts,
		reports:     NewSalesReportService(reportRepo),
		vendors:     NewVendorService(vendorRepo, userRepo),
	}
}

func createVendorFixture(t *testing.T, db *gorm.DB, slug string, defaultRate string) *models.Vendor {
	t.Helper()
	user := &models.User{
		Email:        slug + "@vendors.test",
		PasswordHash: "hash",
		UserType:     constants.UserTypeVendor,
		Role:         constants.UserTypeVendor,
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
		BankName:          "First Bank",
		BankAccountName:   "Vendor " + slug,
		BankAccountNumber: "000111222333",
	}
	if defaultRate != "" {
		vendor.DefaultCommissionRate = decimal.NewNullDecimal(decimal.RequireFromString(defaultRate))
	}
	if err := db.Create(vendor).Error; err != nil {
		t.Fatalf("create vendor failed: %v", err)
	}
	return vendor
}

func createProductFixture(t *testing.T, db *gorm.DB, vendor *models.Vendor, slug, price string, stock int, brandRate string) *models.Product {
	t.Helper()
	brand := &models.Brand{VendorID: vendor.ID, Name: "Brand " + slug, Slug: "brand-" + slug, IsActive: true}
	if brandRate != "" {
		brand.CommissionRate = decimal.NewNullDecimal(decimal.RequireFromString(brandRate))
	}
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
		Sizes:    models.StringArray{"S", "M"},
		IsActive: true,
	}
	if err := db.Create(product).Error; err != nil {
		t.Fatalf("create product failed: %v", err)
	}
	return product
}

func createCustomerFixture(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()
	user := &models.User{
		Email:        email,
		PasswordHash: "hash",
		UserType:     constants.UserTypeCustomer,
		Status:       constants.UserStatusActive,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("create customer failed: %v", err)
	}
	return user
}

type cartLine struct {
	product  *models.Product
	quantity int
}

func testAddress() models.Address {
	return models.Address{
		FullName:   "Ada Lovelace",
		Line1:      "1 Fashion Street",
		City:       "London",
		PostalCode: "E1 6PX",
		Country:    "GB",
	}
}

func (env *serviceTestEnv) checkout(t *testing.T, userID uint, lines ...cartLine) *models.Order {
	t.Helper()
	ctx := context.Background()
	session := NewSessionKey()
	for _, line := range lines {
		if _, err := env.carts.AddItem(ctx, AddCartItemInput{
			SessionKey: session,
			UserID:     userID,
			ProductID:  line.product.ID,
			Quantity:   line.quantity,
			Size:       "M",
		}); err != nil {
			t.Fatalf("add cart item failed: %v", err)
		}
	}
	order, err := env.orders.Checkout(ctx, CheckoutInput{
		UserID:          userID,
		CustomerEmail:   "buyer@example.com",
		SessionKey:      session,
		ShippingAddress: testAddress(),
	})
	if err != nil {
		t.Fatalf("checkout failed: %v", err)
	}
	return order
}

// payOrder 发起支付并推送成功回调
func (env *serviceTestEnv) payOrder(t *testing.T, order *models.Order) *models.Payment {
	t.Helper()
	ctx := context.Background()
	record, err := env.payments.InitiatePayment(ctx, order.OrderNo, order.UserID, "card")
	if err != nil {
		t.Fatalf("initiate payment failed: %v", err)
	}
	body := webhookBody(record.TransactionID, "success", record.Amount.String())
	if _, err := env.payments.HandleWebhook(ctx, signedWebhook(body)); err != nil {
		t.Fatalf("handle webhook failed: %v", err)
	}
	return record
}

func (env *serviceTestEnv) advance(t *testing.T, orderID uint, statuses ...string) {
	t.Helper()
	for _, status := range statuses {
		if _, err := env.tracker.Transition(context.Background(), TransitionInput{
			OrderID: orderID,
			To:      status,
			Actor:   "admin:1",
		}); err != nil {
			t.Fatalf("transition to %s failed: %v", status, err)
		}
	}
}

func webhookBody(txnID, status, amount string) []byte {
	return []byte(fmt.Sprintf(`{"transaction_id":%q,"status":%q,"amount":%q,"currency":"USD"}`, txnID, status, amount))
}

func signedWebhook(body []byte) WebhookInput {
	ts := time.Now().Unix()
	return WebhookInput{
		Body:      body,
		Signature: SignWebhook(testWebhookSecret, ts, body),
		Timestamp: fmt.Sprintf("%d", ts),
	}
}
