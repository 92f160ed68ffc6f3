package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/modaplex/internal/constants"
	"github.com/modaplex/internal/models"

	"gorm.io/gorm"
)

func schedulerJobNames(s *Scheduler) map[string]time.Duration {
	names := make(map[string]time.Duration, len(s.jobs))
	for _, job := range s.jobs {
		names[job.name] = job.interval
	}
	return names
}

func createCartProduct(t *testing.T, db *gorm.DB) *models.Product {
	t.Helper()
	user := &models.User{
		Email:        "atelier@vendors.test",
		PasswordHash: "hash",
		UserType:     constants.UserTypeVendor,
		Role:         constants.UserTypeVendor,
		Status:       constants.UserStatusActive,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("create vendor user failed: %v", err)
	}
	vendor := &models.Vendor{UserID: user.ID, Name: "Atelier", Slug: "atelier", Status: constants.VendorStatusActive}
	if err := db.Create(vendor).Error; err != nil {
		t.Fatalf("create vendor failed: %v", err)
	}
	brand := &models.Brand{VendorID: vendor.ID, Name: "Atelier Line", Slug: "atelier-line", IsActive: true}
	if err := db.Create(brand).Error; err != nil {
		t.Fatalf("create brand failed: %v", err)
	}
	product := &models.Product{
		BrandID:  brand.ID,
		Name:     "Linen Shirt",
		Slug:     "linen-shirt",
		SKU:      "SKU-LINEN",
		Category: "shirts",
		Price:    models.MustMoney("40.00"),
		Stock:    10,
		Sizes:    models.StringArray{"M"},
		IsActive: true,
	}
	if err := db.Create(product).Error; err != nil {
		t.Fatalf("create product failed: %v", err)
	}
	return product
}

func TestNewSchedulerJobs(t *testing.T) {
	_, container := setupWorkerTest(t, 0)
	s, err := NewScheduler(container)
	if err != nil {
		t.Fatalf("new scheduler failed: %v", err)
	}
	names := schedulerJobNames(s)
	if _, ok := names["commission_approve"]; !ok {
		t.Fatalf("commission approve job missing: %v", names)
	}
	if got := names["sales_report_daily"]; got != dailyReportInterval {
		t.Fatalf("daily report interval want %s got %s", dailyReportInterval, got)
	}
	if got := names["sales_report_rollup"]; got != reportRollupInterval {
		t.Fatalf("rollup interval want %s got %s", reportRollupInterval, got)
	}
	if _, ok := names["cart_sweep"]; ok {
		t.Fatalf("cart sweep should be disabled without abandoned_after_hours")
	}

	_, withSweep := setupWorkerTest(t, 24)
	s, err = NewScheduler(withSweep)
	if err != nil {
		t.Fatalf("new scheduler failed: %v", err)
	}
	if got := schedulerJobNames(s)["cart_sweep"]; got != cartSweepInterval {
		t.Fatalf("cart sweep interval want %s got %s", cartSweepInterval, got)
	}

	if _, err := NewScheduler(nil); err == nil {
		t.Fatalf("nil container should fail")
	}
}

func TestSchedulerCartSweepRemovesStaleItems(t *testing.T) {
	db, container := setupWorkerTest(t, 24)
	product := createCartProduct(t, db)
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	stale := &models.CartItem{SessionKey: "stale-session", ProductID: product.ID, Size: "M", Quantity: 1, CreatedAt: now.Add(-72 * time.Hour), UpdatedAt: now.Add(-48 * time.Hour)}
	active := &models.CartItem{SessionKey: "active-session", ProductID: product.ID, Size: "M", Quantity: 2, CreatedAt: now.Add(-2 * time.Hour), UpdatedAt: now.Add(-time.Hour)}
	for _, item := range []*models.CartItem{stale, active} {
		if err := db.Create(item).Error; err != nil {
			t.Fatalf("create cart item failed: %v", err)
		}
	}

	s, err := NewScheduler(container)
	if err != nil {
		t.Fatalf("new scheduler failed: %v", err)
	}
	s.now = func() time.Time { return now }
	var sweep periodicJob
	for _, job := range s.jobs {
		if job.name == "cart_sweep" {
			sweep = job
		}
	}
	if sweep.run == nil {
		t.Fatalf("cart sweep job missing")
	}
	if !s.runOnce(context.Background(), sweep) {
		t.Fatalf("cart sweep should run")
	}

	var remaining []models.CartItem
	if err := db.Find(&remaining).Error; err != nil {
		t.Fatalf("list cart items failed: %v", err)
	}
	if len(remaining) != 1 || remaining[0].SessionKey != "active-session" {
		t.Fatalf("only the active cart should remain, got %+v", remaining)
	}
}

func TestSchedulerRunOnceReportsFailure(t *testing.T) {
	s := &Scheduler{now: time.Now}
	failing := periodicJob{
		name:     "failing",
		interval: time.Minute,
		run: func(ctx context.Context, now time.Time) error {
			return errors.New("boom")
		},
	}
	if s.runOnce(context.Background(), failing) {
		t.Fatalf("failing job should report false")
	}

	var seen time.Time
	fixed := time.Date(2026, 5, 1, 8, 30, 0, 0, time.FixedZone("UTC+8", 8*3600))
	s.now = func() time.Time { return fixed }
	ok := s.runOnce(context.Background(), periodicJob{
		name:     "capture",
		interval: time.Minute,
		run: func(ctx context.Context, now time.Time) error {
			seen = now
			return nil
		},
	})
	if !ok {
		t.Fatalf("capture job should succeed")
	}
	if seen.Location() != time.UTC || !seen.Equal(fixed) {
		t.Fatalf("job should receive the UTC instant, got %s", seen)
	}
}

func TestSchedulerStartStopsOnCancel(t *testing.T) {
	s := &Scheduler{now: time.Now}
	runs := make(chan struct{}, 4)
	s.jobs = []periodicJob{{
		name:     "tick",
		interval: time.Hour,
		run: func(ctx context.Context, now time.Time) error {
			runs <- struct{}{}
			return nil
		},
	}}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()

	select {
	case <-runs:
	case <-time.After(2 * time.Second):
		t.Fatalf("job should run immediately on start")
	}
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("start should return nil after cancel, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("scheduler did not stop")
	}
	if err := s.Stop(context.Background()); err != nil {
		t.Fatalf("stop failed: %v", err)
	}
}
