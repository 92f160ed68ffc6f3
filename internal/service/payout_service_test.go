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

// approvedCommissionFixture 生成一笔已签收并已审核的佣金
func approvedCommissionFixture(t *testing.T, env *serviceTestEnv, vendor *models.Vendor, product *models.Product, buyerID uint, quantity int) *models.Order {
	t.Helper()
	order := env.checkout(t, buyerID, cartLine{product, quantity})
	env.payOrder(t, order)
	env.advance(t, order.ID, constants.OrderStatusProcessing, constants.OrderStatusShipped, constants.OrderStatusDelivered)
	if _, err := env.commissions.ApproveDue(context.Background(), time.Now().UTC().AddDate(0, 0, 8)); err != nil {
		t.Fatalf("approve due failed: %v", err)
	}
	return order
}

func TestPayoutRulesProcessingFee(t *testing.T) {
	rules := PayoutRules{FixedFee: decimal.NewFromInt(1), FeePercent: decimal.RequireFromString("2.5")}
	if fee := rules.ProcessingFee(models.MustMoney("200.00")); fee.String() != "6.00" {
		t.Fatalf("unexpected processing fee: %s", fee)
	}
}

func TestPayoutLifecycleCompletesCommissions(t *testing.T) {
	env := newServiceTestEnv(t, "payout_complete")
	buyer := createCustomerFixture(t, env.db, "buyer@example.com")
	vendor := createVendorFixture(t, env.db, "atelier", "")
	dress := createProductFixture(t, env.db, vendor, "dress", "100.00", 10, "")
	approvedCommissionFixture(t, env, vendor, dress, buyer.ID, 1)
	approvedCommissionFixture(t, env, vendor, dress, buyer.ID, 2)
	ctx := context.Background()

	payout, err := env.payouts.Create(ctx, vendor.ID, "admin:1", "weekly run")
	if err != nil {
		t.Fatalf("create payout failed: %v", err)
	}
	// 72 + 144 = 216, 手续费 1 + 2% = 5.32
	if payout.Amount.String() != "216.00" || payout.ProcessingFee.String() != "5.32" || payout.NetAmount.String() != "210.68" {
		t.Fatalf("unexpected payout amounts: %s %s %s", payout.Amount, payout.ProcessingFee, payout.NetAmount)
	}
	if payout.CommissionCount != 2 || payout.BankAccountNumber != "********2333" {
		t.Fatalf("unexpected payout snapshot: %+v", payout)
	}
	if _, err := env.payouts.Create(ctx, vendor.ID, "admin:1", ""); !errors.Is(err, ErrPayoutNoCommissions) {
		t.Fatalf("bound commissions must not be batched twice, got %v", err)
	}

	if _, err := env.payouts.Complete(ctx, payout.ID, "WIRE-1", "admin:1"); !errors.Is(err, ErrPayoutStatusInvalid) {
		t.Fatalf("pending payout cannot complete directly, got %v", err)
	}
	if _, err := env.payouts.Process(ctx, payout.ID, "finance:1"); err != nil {
		t.Fatalf("process payout failed: %v", err)
	}
	if _, err := env.payouts.Complete(ctx, payout.ID, " ", "finance:1"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("transfer reference is required, got %v", err)
	}
	completed, err := env.payouts.Complete(ctx, payout.ID, "WIRE-1", "finance:1")
	if err != nil {
		t.Fatalf("complete payout failed: %v", err)
	}
	if completed.Status != constants.PayoutStatusCompleted || completed.CompletedAt == nil || completed.TransferReference != "WIRE-1" {
		t.Fatalf("unexpected completed payout: %+v", completed)
	}

	rows, _, err := env.commissions.List(repository.CommissionListFilter{PayoutID: payout.ID})
	if err != nil || len(rows) != 2 {
		t.Fatalf("expected 2 linked commissions, got %d err=%v", len(rows), err)
	}
	for _, row := range rows {
		if row.Status != constants.CommissionStatusPaid || row.PaidAt == nil {
			t.Fatalf("commission should be paid: %+v", row)
		}
	}
	if _, err := env.payouts.Cancel(ctx, payout.ID, "late", "finance:1"); !errors.Is(err, ErrPayoutStatusInvalid) {
		t.Fatalf("completed payout is terminal, got %v", err)
	}
}

func TestPayoutFailureReleasesCommissions(t *testing.T) {
	env := newServiceTestEnv(t, "payout_fail_release")
	buyer := createCustomerFixture(t, env.db, "buyer@example.com")
	vendor := createVendorFixture(t, env.db, "atelier", "")
	dress := createProductFixture(t, env.db, vendor, "dress", "100.00", 10, "")
	approvedCommissionFixture(t, env, vendor, dress, buyer.ID, 1)
	ctx := context.Background()

	first, err := env.payouts.Create(ctx, vendor.ID, "admin:1", "")
	if err != nil {
		t.Fatalf("create payout failed: %v", err)
	}
	if _, err := env.payouts.Fail(ctx, first.ID, "bank rejected", "finance:1"); err != nil {
		t.Fatalf("fail payout failed: %v", err)
	}

	retry, err := env.payouts.Create(ctx, vendor.ID, "admin:1", "retry")
	if err != nil {
		t.Fatalf("released commissions should be batchable again: %v", err)
	}
	if retry.ID == first.ID || retry.CommissionCount != 1 {
		t.Fatalf("unexpected retry payout: %+v", retry)
	}
	failed, err := env.payouts.Get(first.ID, vendor.ID)
	if err != nil || failed.Status != constants.PayoutStatusFailed || failed.FailedAt == nil {
		t.Fatalf("first payout should stay failed: %+v err=%v", failed, err)
	}
}

func TestPayoutCreateValidations(t *testing.T) {
	env := newServiceTestEnv(t, "payout_validations")
	buyer := createCustomerFixture(t, env.db, "buyer@example.com")
	vendor := createVendorFixture(t, env.db, "atelier", "")
	sock := createProductFixture(t, env.db, vendor, "sock", "5.00", 10, "")
	approvedCommissionFixture(t, env, vendor, sock, buyer.ID, 1)
	ctx := context.Background()

	// 5 × 80% = 4，扣除 10% 平台费后 3.60，低于最低结算额 10
	_, err := env.payouts.Create(ctx, vendor.ID, "admin:1", "")
	if !errors.Is(err, ErrPayoutBelowMinimum) {
		t.Fatalf("expected ErrPayoutBelowMinimum, got %v", err)
	}

	if err := env.db.Model(&models.Vendor{}).Where("id = ?", vendor.ID).Update("bank_account_number", "").Error; err != nil {
		t.Fatalf("clear bank details failed: %v", err)
	}
	if _, err := env.payouts.Create(ctx, vendor.ID, "admin:1", ""); !errors.Is(err, ErrPayoutBankDetailsMissing) {
		t.Fatalf("expected ErrPayoutBankDetailsMissing, got %v", err)
	}
	if _, err := env.payouts.Create(ctx, vendor.ID+99, "admin:1", ""); !errors.Is(err, ErrVendorNotFound) {
		t.Fatalf("expected ErrVendorNotFound, got %v", err)
	}

	other := createVendorFixture(t, env.db, "other", "")
	if _, err := env.payouts.Get(1, other.ID); !errors.Is(err, ErrPayoutNotFound) {
		t.Fatalf("vendors only see their own payouts, got %v", err)
	}
}

type recordedEvent struct {
	eventType string
	data      interface{}
}

type recordingPublisher struct {
	events []recordedEvent
}

func (p *recordingPublisher) Publish(ctx context.Context, eventType string, data interface{}) error {
	p.events = append(p.events, recordedEvent{eventType: eventType, data: data})
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) types() []string {
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.eventType)
	}
	return out
}

func TestPayoutTransitionsPublishEvents(t *testing.T) {
	env := newServiceTestEnv(t, "payout_events")
	buyer := createCustomerFixture(t, env.db, "buyer@example.com")
	vendor := createVendorFixture(t, env.db, "atelier", "")
	dress := createProductFixture(t, env.db, vendor, "dress", "100.00", 10, "")
	approvedCommissionFixture(t, env, vendor, dress, buyer.ID, 1)
	ctx := context.Background()

	publisher := &recordingPublisher{}
	payouts := NewPayoutService(
		repository.NewPayoutRepository(env.db),
		repository.NewCommissionRepository(env.db),
		env.vendorRepo,
		publisher,
		PayoutRules{MinAmount: decimal.NewFromInt(10), FixedFee: decimal.NewFromInt(1), FeePercent: decimal.NewFromInt(2)},
		"usd",
	)

	failed, err := payouts.Create(ctx, vendor.ID, "admin:1", "")
	if err != nil {
		t.Fatalf("create payout failed: %v", err)
	}
	if _, err := payouts.Fail(ctx, failed.ID, "bank rejected", "admin:1"); err != nil {
		t.Fatalf("fail payout failed: %v", err)
	}
	cancelled, err := payouts.Create(ctx, vendor.ID, "admin:1", "")
	if err != nil {
		t.Fatalf("recreate payout failed: %v", err)
	}
	if _, err := payouts.Cancel(ctx, cancelled.ID, "vendor request", "admin:1"); err != nil {
		t.Fatalf("cancel payout failed: %v", err)
	}
	completed, err := payouts.Create(ctx, vendor.ID, "admin:1", "")
	if err != nil {
		t.Fatalf("third payout failed: %v", err)
	}
	if _, err := payouts.Process(ctx, completed.ID, "admin:1"); err != nil {
		t.Fatalf("process payout failed: %v", err)
	}
	if _, err := payouts.Complete(ctx, completed.ID, "WIRE-7", "admin:1"); err != nil {
		t.Fatalf("complete payout failed: %v", err)
	}

	want := []string{
		constants.EventPayoutCreated, constants.EventPayoutFailed,
		constants.EventPayoutCreated, constants.EventPayoutCancelled,
		constants.EventPayoutCreated, constants.EventPayoutCompleted,
	}
	got := publisher.types()
	if len(got) != len(want) {
		t.Fatalf("unexpected events: %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("event %d: want %s, got %s (all %v)", i, want[i], got[i], got)
		}
	}
	last, ok := publisher.events[len(publisher.events)-1].data.(PayoutEvent)
	if !ok {
		t.Fatalf("unexpected payload type %T", publisher.events[len(publisher.events)-1].data)
	}
	if last.PayoutID != completed.ID || last.Status != constants.PayoutStatusCompleted ||
		last.TransferReference != "WIRE-7" || last.Currency != "USD" || last.NetAmount != "69.56" {
		t.Fatalf("unexpected completed payload: %+v", last)
	}
	failedEvent := publisher.events[1].data.(PayoutEvent)
	if failedEvent.Notes != "bank rejected" {
		t.Fatalf("failure reason should travel with the event: %+v", failedEvent)
	}
}
