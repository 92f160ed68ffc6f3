package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/modaplex/internal/constants"
	"github.com/modaplex/internal/models"
	"github.com/modaplex/internal/repository"

	"github.com/shopspring/decimal"
)

func listCommissions(t *testing.T, env *serviceTestEnv, orderID uint) []models.Commission {
	t.Helper()
	rows, _, err := env.commissions.List(repository.CommissionListFilter{OrderID: orderID, Page: 1, PageSize: 50})
	if err != nil {
		t.Fatalf("list commissions failed: %v", err)
	}
	return rows
}

func TestBuildCommissionSplitsPlatformFee(t *testing.T) {
	item := models.OrderItem{
		ID:                   9,
		OrderID:              4,
		VendorID:             2,
		TotalPrice:           models.MustMoney("250.00"),
		VendorCommissionRate: decimal.NewFromInt(80),
		VendorCommission:     models.MustMoney("200.00"),
	}
	row := BuildCommission(item, decimal.RequireFromString("12.5"))
	if row.GrossAmount.String() != "250.00" || row.CommissionAmount.String() != "200.00" {
		t.Fatalf("unexpected gross/commission: %s/%s", row.GrossAmount, row.CommissionAmount)
	}
	if row.PlatformFee.String() != "25.00" || row.NetAmount.String() != "175.00" {
		t.Fatalf("unexpected fee/net: %s/%s", row.PlatformFee, row.NetAmount)
	}
	if row.Status != constants.CommissionStatusPending || row.OrderItemID != 9 {
		t.Fatalf("unexpected row: %+v", row)
	}
}

func TestGenerateForOrderIsIdempotent(t *testing.T) {
	env := newServiceTestEnv(t, "commission_generate_idempotent")
	buyer := createCustomerFixture(t, env.db, "buyer@example.com")
	atelier := createVendorFixture(t, env.db, "atelier", "")
	linea := createVendorFixture(t, env.db, "linea", "")
	dress := createProductFixture(t, env.db, atelier, "dress", "100.00", 5, "")
	scarf := createProductFixture(t, env.db, linea, "scarf", "50.00", 5, "")
	order := env.checkout(t, buyer.ID, cartLine{dress, 1}, cartLine{scarf, 2})
	ctx := context.Background()

	if _, err := env.commissions.GenerateForOrder(ctx, order.ID); !errors.Is(err, ErrCommissionOrderNotPaid) {
		t.Fatalf("unpaid order must not book commissions, got %v", err)
	}

	env.payOrder(t, order)
	rows := listCommissions(t, env, order.ID)
	if len(rows) != 2 {
		t.Fatalf("payment should book one commission per vendor item, got %d", len(rows))
	}
	for _, row := range rows {
		if row.Status != constants.CommissionStatusPending {
			t.Fatalf("new commission should be pending: %+v", row)
		}
		if row.VendorID == linea.ID && (row.CommissionAmount.String() != "80.00" || row.NetAmount.String() != "72.00") {
			t.Fatalf("unexpected linea commission: %+v", row)
		}
	}

	created, err := env.commissions.GenerateForOrder(ctx, order.ID)
	if err != nil {
		t.Fatalf("regenerate failed: %v", err)
	}
	if created != 0 || len(listCommissions(t, env, order.ID)) != 2 {
		t.Fatalf("regeneration must not duplicate rows, created=%d", created)
	}
}

func TestCancelledItemCancelsOnlyItsCommission(t *testing.T) {
	env := newServiceTestEnv(t, "commission_item_cancel")
	buyer := createCustomerFixture(t, env.db, "buyer@example.com")
	atelier := createVendorFixture(t, env.db, "atelier", "")
	linea := createVendorFixture(t, env.db, "linea", "")
	dress := createProductFixture(t, env.db, atelier, "dress", "100.00", 5, "")
	scarf := createProductFixture(t, env.db, linea, "scarf", "50.00", 5, "")
	order := env.checkout(t, buyer.ID, cartLine{dress, 1}, cartLine{scarf, 1})
	env.payOrder(t, order)

	var scarfItem models.OrderItem
	for _, item := range order.Items {
		if item.VendorID == linea.ID {
			scarfItem = item
		}
	}
	if _, err := env.tracker.TransitionItem(context.Background(), ItemTransitionInput{
		OrderID:  order.ID,
		ItemID:   scarfItem.ID,
		To:       constants.OrderItemStatusCancelled,
		Actor:    "vendor:linea",
		VendorID: atelier.ID,
	}); !errors.Is(err, ErrOrderItemNotFound) {
		t.Fatalf("vendor must not touch another vendor's item, got %v", err)
	}
	if _, err := env.tracker.TransitionItem(context.Background(), ItemTransitionInput{
		OrderID:  order.ID,
		ItemID:   scarfItem.ID,
		To:       constants.OrderItemStatusCancelled,
		Actor:    "vendor:linea",
		VendorID: linea.ID,
	}); err != nil {
		t.Fatalf("cancel item failed: %v", err)
	}

	for _, row := range listCommissions(t, env, order.ID) {
		want := constants.CommissionStatusPending
		if row.OrderItemID == scarfItem.ID {
			want = constants.CommissionStatusCancelled
		}
		if row.Status != want {
			t.Fatalf("commission %d expected %s, got %s", row.ID, want, row.Status)
		}
	}
	scarfReloaded, _ := env.productRepo.GetByID(scarf.ID)
	if scarfReloaded.Stock != 5 {
		t.Fatalf("cancelled item stock should be restored, got %d", scarfReloaded.Stock)
	}
}

func TestOrderCancellationCancelsPendingCommissions(t *testing.T) {
	env := newServiceTestEnv(t, "commission_order_cancel")
	buyer := createCustomerFixture(t, env.db, "buyer@example.com")
	vendor := createVendorFixture(t, env.db, "atelier", "")
	dress := createProductFixture(t, env.db, vendor, "dress", "100.00", 5, "")
	order := env.checkout(t, buyer.ID, cartLine{dress, 1})
	env.payOrder(t, order)

	env.advance(t, order.ID, constants.OrderStatusCancelled)
	rows := listCommissions(t, env, order.ID)
	if len(rows) != 1 || rows[0].Status != constants.CommissionStatusCancelled || rows[0].CancelledAt == nil {
		t.Fatalf("commission should be cancelled with the order: %+v", rows)
	}
	if _, err := env.commissions.GenerateForOrder(context.Background(), order.ID); !errors.Is(err, ErrCommissionOrderNotPaid) {
		t.Fatalf("cancelled order must not book commissions again, got %v", err)
	}
}

func TestApproveDueRespectsHoldPeriod(t *testing.T) {
	env := newServiceTestEnv(t, "commission_approve_due")
	buyer := createCustomerFixture(t, env.db, "buyer@example.com")
	vendor := createVendorFixture(t, env.db, "atelier", "")
	dress := createProductFixture(t, env.db, vendor, "dress", "100.00", 10, "")
	delivered := env.checkout(t, buyer.ID, cartLine{dress, 1})
	inTransit := env.checkout(t, buyer.ID, cartLine{dress, 1})
	env.payOrder(t, delivered)
	env.payOrder(t, inTransit)
	env.advance(t, delivered.ID, constants.OrderStatusProcessing, constants.OrderStatusShipped, constants.OrderStatusDelivered)
	ctx := context.Background()

	approved, err := env.commissions.ApproveDue(ctx, time.Now().UTC())
	if err != nil || approved != 0 {
		t.Fatalf("nothing is due inside the hold period: approved=%d err=%v", approved, err)
	}
	approved, err = env.commissions.ApproveDue(ctx, time.Now().UTC().AddDate(0, 0, 8))
	if err != nil || approved != 1 {
		t.Fatalf("delivered order commission should be approved: approved=%d err=%v", approved, err)
	}
	if rows := listCommissions(t, env, inTransit.ID); rows[0].Status != constants.CommissionStatusPending {
		t.Fatalf("undelivered order commission must stay pending: %+v", rows[0])
	}

	summary, err := env.commissions.Summary(vendor.ID)
	if err != nil {
		t.Fatalf("summary failed: %v", err)
	}
	if summary.Approved.Count != 1 || summary.Pending.Count != 1 || summary.Approved.NetAmount.String() != "72.00" {
		t.Fatalf("unexpected summary: %+v", summary)
	}
}

func TestApproveRequiresPendingRows(t *testing.T) {
	env := newServiceTestEnv(t, "commission_manual_approve")
	buyer := createCustomerFixture(t, env.db, "buyer@example.com")
	vendor := createVendorFixture(t, env.db, "atelier", "")
	dress := createProductFixture(t, env.db, vendor, "dress", "100.00", 5, "")
	order := env.checkout(t, buyer.ID, cartLine{dress, 1})
	env.payOrder(t, order)
	rows := listCommissions(t, env, order.ID)
	ctx := context.Background()

	affected, err := env.commissions.Approve(ctx, []uint{rows[0].ID, rows[0].ID}, "admin:1")
	if err != nil || affected != 1 {
		t.Fatalf("approve failed: affected=%d err=%v", affected, err)
	}
	if _, err := env.commissions.Approve(ctx, []uint{rows[0].ID}, "admin:1"); !errors.Is(err, ErrCommissionStatusInvalid) {
		t.Fatalf("approving twice should fail, got %v", err)
	}
	if _, err := env.commissions.Approve(ctx, []uint{rows[0].ID + 99}, "admin:1"); !errors.Is(err, ErrCommissionNotFound) {
		t.Fatalf("unknown id should fail, got %v", err)
	}
}
