package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/modaplex/internal/constants"
	"github.com/modaplex/internal/logger"
	"github.com/modaplex/internal/models"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func setOrderStatus(t *testing.T, env *serviceTestEnv, orderID uint, status string) {
	t.Helper()
	if err := env.db.Model(&models.Order{}).Where("id = ?", orderID).Update("status", status).Error; err != nil {
		t.Fatalf("set order status failed: %v", err)
	}
}

// observeWarnings 捕获测试期间的 warn 日志
func observeWarnings(t *testing.T) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(zap.WarnLevel)
	restore := logger.Replace(zap.New(core))
	t.Cleanup(restore)
	return logs
}

func TestTransitionRules(t *testing.T) {
	env := newServiceTestEnv(t, "order_transition_rules")
	buyer := createCustomerFixture(t, env.db, "buyer@example.com")
	vendor := createVendorFixture(t, env.db, "atelier", "")
	dress := createProductFixture(t, env.db, vendor, "dress", "100.00", 50, "")

	cases := []struct {
		name    string
		from    string
		to      string
		wantErr error
	}{
		{"pending to confirmed", constants.OrderStatusPending, constants.OrderStatusConfirmed, nil},
		{"pending to cancelled", constants.OrderStatusPending, constants.OrderStatusCancelled, nil},
		{"pending cannot skip to shipped", constants.OrderStatusPending, constants.OrderStatusShipped, ErrOrderStatusInvalid},
		{"same status", constants.OrderStatusConfirmed, constants.OrderStatusConfirmed, ErrOrderStatusUnchanged},
		{"confirmed to processing", constants.OrderStatusConfirmed, constants.OrderStatusProcessing, nil},
		{"processing to shipped", constants.OrderStatusProcessing, constants.OrderStatusShipped, nil},
		{"processing to cancelled", constants.OrderStatusProcessing, constants.OrderStatusCancelled, nil},
		{"shipped cannot be cancelled", constants.OrderStatusShipped, constants.OrderStatusCancelled, ErrOrderStatusInvalid},
		{"shipped to delivered", constants.OrderStatusShipped, constants.OrderStatusDelivered, nil},
		{"delivered to refunded", constants.OrderStatusDelivered, constants.OrderStatusRefunded, nil},
		{"delivered cannot be cancelled", constants.OrderStatusDelivered, constants.OrderStatusCancelled, ErrOrderStatusInvalid},
		{"cancelled is terminal", constants.OrderStatusCancelled, constants.OrderStatusPending, ErrOrderStatusInvalid},
		{"cancelled cannot be confirmed", constants.OrderStatusCancelled, constants.OrderStatusConfirmed, ErrOrderStatusInvalid},
		{"refunded is terminal", constants.OrderStatusRefunded, constants.OrderStatusDelivered, ErrOrderStatusInvalid},
		{"unknown target", constants.OrderStatusPending, "archived", ErrOrderStatusInvalid},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			order := env.checkout(t, buyer.ID, cartLine{dress, 1})
			setOrderStatus(t, env, order.ID, tc.from)

			updated, err := env.tracker.Transition(context.Background(), TransitionInput{
				OrderID: order.ID,
				To:      tc.to,
				Actor:   "admin:1",
			})
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("expected %v, got %v", tc.wantErr, err)
				}
				reloaded, _ := env.orderRepo.GetByID(order.ID)
				if reloaded.Status != tc.from {
					t.Fatalf("rejected transition must not change status, got %s", reloaded.Status)
				}
				return
			}
			if err != nil {
				t.Fatalf("transition failed: %v", err)
			}
			if updated.Status != tc.to {
				t.Fatalf("expected status %s, got %s", tc.to, updated.Status)
			}
			history, err := env.tracker.History(order.ID, 0)
			if err != nil {
				t.Fatalf("load history failed: %v", err)
			}
			found := false
			for _, entry := range history {
				if entry.FromStatus == tc.from && entry.ToStatus == tc.to && entry.ChangedBy == "admin:1" {
					found = true
				}
			}
			if !found {
				t.Fatalf("history should record %s -> %s: %+v", tc.from, tc.to, history)
			}
		})
	}
}

func TestTransitionRejectsMissingOrder(t *testing.T) {
	env := newServiceTestEnv(t, "order_transition_missing")
	if _, err := env.tracker.Transition(context.Background(), TransitionInput{OrderID: 0, To: constants.OrderStatusConfirmed}); !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
	if _, err := env.tracker.Transition(context.Background(), TransitionInput{OrderID: 404, To: constants.OrderStatusConfirmed}); !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
}

func TestRefundSettlesLedger(t *testing.T) {
	env := newServiceTestEnv(t, "order_refund_ledger")
	buyer := createCustomerFixture(t, env.db, "buyer@example.com")
	atelier := createVendorFixture(t, env.db, "atelier", "")
	linea := createVendorFixture(t, env.db, "linea", "")
	dress := createProductFixture(t, env.db, atelier, "dress", "100.00", 5, "")
	scarf := createProductFixture(t, env.db, linea, "scarf", "50.00", 5, "")
	ctx := context.Background()

	order := env.checkout(t, buyer.ID, cartLine{dress, 1}, cartLine{scarf, 1})
	env.payOrder(t, order)
	env.advance(t, order.ID, constants.OrderStatusProcessing, constants.OrderStatusShipped, constants.OrderStatusDelivered)
	if _, err := env.commissions.ApproveDue(ctx, time.Now().UTC().AddDate(0, 0, 8)); err != nil {
		t.Fatalf("approve due failed: %v", err)
	}
	payout, err := env.payouts.Create(ctx, atelier.ID, "admin:1", "")
	if err != nil {
		t.Fatalf("create payout failed: %v", err)
	}
	if _, err := env.payouts.Process(ctx, payout.ID, "admin:1"); err != nil {
		t.Fatalf("process payout failed: %v", err)
	}
	if _, err := env.payouts.Complete(ctx, payout.ID, "WIRE-9", "admin:1"); err != nil {
		t.Fatalf("complete payout failed: %v", err)
	}

	logs := observeWarnings(t)
	env.advance(t, order.ID, constants.OrderStatusRefunded)

	reloaded, err := env.orderRepo.GetByID(order.ID)
	if err != nil {
		t.Fatalf("reload order failed: %v", err)
	}
	if reloaded.Status != constants.OrderStatusRefunded || reloaded.PaymentStatus != constants.OrderPaymentStatusRefunded || reloaded.RefundedAt == nil {
		t.Fatalf("unexpected refunded order: status=%s payment=%s refunded_at=%v", reloaded.Status, reloaded.PaymentStatus, reloaded.RefundedAt)
	}
	for _, row := range listCommissions(t, env, order.ID) {
		switch row.VendorID {
		case atelier.ID:
			if row.Status != constants.CommissionStatusPaid {
				t.Fatalf("paid commission must stay paid, got %s", row.Status)
			}
		case linea.ID:
			if row.Status != constants.CommissionStatusCancelled || row.CancelledAt == nil {
				t.Fatalf("unpaid commission should be cancelled: %+v", row)
			}
		}
	}
	if got := logs.FilterMessage("commission_refund_after_paid").Len(); got != 1 {
		t.Fatalf("refund after payout should be flagged once, got %d", got)
	}

	if _, err := env.tracker.Transition(ctx, TransitionInput{OrderID: order.ID, To: constants.OrderStatusRefunded}); !errors.Is(err, ErrOrderStatusUnchanged) {
		t.Fatalf("second refund should be rejected, got %v", err)
	}
}

func TestRefundDetachesCommissionFromOpenPayout(t *testing.T) {
	env := newServiceTestEnv(t, "order_refund_open_payout")
	buyer := createCustomerFixture(t, env.db, "buyer@example.com")
	vendor := createVendorFixture(t, env.db, "atelier", "")
	dress := createProductFixture(t, env.db, vendor, "dress", "100.00", 10, "")
	refunded := approvedCommissionFixture(t, env, vendor, dress, buyer.ID, 1)
	kept := approvedCommissionFixture(t, env, vendor, dress, buyer.ID, 2)
	ctx := context.Background()

	payout, err := env.payouts.Create(ctx, vendor.ID, "admin:1", "")
	if err != nil {
		t.Fatalf("create payout failed: %v", err)
	}
	if payout.Amount.String() != "216.00" {
		t.Fatalf("unexpected payout amount: %s", payout.Amount)
	}

	env.advance(t, refunded.ID, constants.OrderStatusRefunded)

	rows := listCommissions(t, env, refunded.ID)
	if len(rows) != 1 || rows[0].Status != constants.CommissionStatusCancelled || rows[0].PayoutID != nil {
		t.Fatalf("refunded commission should be cancelled and unbound: %+v", rows)
	}
	reloaded, err := env.payouts.Get(payout.ID, 0)
	if err != nil {
		t.Fatalf("reload payout failed: %v", err)
	}
	// 144 - (1 + 2.88) = 140.12
	if reloaded.Status != constants.PayoutStatusPending || reloaded.Amount.String() != "144.00" ||
		reloaded.ProcessingFee.String() != "3.88" || reloaded.NetAmount.String() != "140.12" {
		t.Fatalf("payout should be rebalanced: %+v", reloaded)
	}
	if reloaded.CommissionCount != 1 || len(reloaded.Commissions) != 1 || reloaded.Commissions[0].OrderID != kept.ID {
		t.Fatalf("payout should only carry the kept order: %+v", reloaded.Commissions)
	}

	if _, err := env.payouts.Cancel(ctx, payout.ID, "redo", "admin:1"); err != nil {
		t.Fatalf("cancel payout failed: %v", err)
	}
	again, err := env.payouts.Create(ctx, vendor.ID, "admin:1", "")
	if err != nil {
		t.Fatalf("second payout failed: %v", err)
	}
	if again.Amount.String() != "144.00" || again.CommissionCount != 1 {
		t.Fatalf("refunded order must not be paid out again: %+v", again)
	}
}

func TestRefundEmptiesPayoutCancelsIt(t *testing.T) {
	env := newServiceTestEnv(t, "order_refund_empty_payout")
	buyer := createCustomerFixture(t, env.db, "buyer@example.com")
	vendor := createVendorFixture(t, env.db, "atelier", "")
	dress := createProductFixture(t, env.db, vendor, "dress", "100.00", 10, "")
	order := approvedCommissionFixture(t, env, vendor, dress, buyer.ID, 1)
	ctx := context.Background()

	payout, err := env.payouts.Create(ctx, vendor.ID, "admin:1", "")
	if err != nil {
		t.Fatalf("create payout failed: %v", err)
	}
	env.advance(t, order.ID, constants.OrderStatusRefunded)

	reloaded, _ := env.payouts.Get(payout.ID, 0)
	if reloaded.Status != constants.PayoutStatusCancelled || reloaded.CancelledAt == nil || !reloaded.Amount.IsZero() {
		t.Fatalf("payout without commissions should be cancelled: %+v", reloaded)
	}
	if _, err := env.payouts.Process(ctx, payout.ID, "admin:1"); !errors.Is(err, ErrPayoutStatusInvalid) {
		t.Fatalf("cancelled payout cannot be processed, got %v", err)
	}
	if _, err := env.payouts.Create(ctx, vendor.ID, "admin:1", ""); !errors.Is(err, ErrPayoutNoCommissions) {
		t.Fatalf("refunded order must not be batched again, got %v", err)
	}
}

func TestPayoutSettlementVoidsCommissionsOfClosedOrders(t *testing.T) {
	env := newServiceTestEnv(t, "payout_settle_voided")
	buyer := createCustomerFixture(t, env.db, "buyer@example.com")
	vendor := createVendorFixture(t, env.db, "atelier", "")
	dress := createProductFixture(t, env.db, vendor, "dress", "100.00", 10, "")
	voided := approvedCommissionFixture(t, env, vendor, dress, buyer.ID, 1)
	kept := approvedCommissionFixture(t, env, vendor, dress, buyer.ID, 2)
	ctx := context.Background()

	payout, err := env.payouts.Create(ctx, vendor.ID, "admin:1", "")
	if err != nil {
		t.Fatalf("create payout failed: %v", err)
	}
	// 绕过状态机直接关闭订单，结算时仍需剔除
	setOrderStatus(t, env, voided.ID, constants.OrderStatusRefunded)
	if _, err := env.payouts.Process(ctx, payout.ID, "admin:1"); err != nil {
		t.Fatalf("process payout failed: %v", err)
	}
	completed, err := env.payouts.Complete(ctx, payout.ID, "WIRE-2", "admin:1")
	if err != nil {
		t.Fatalf("complete payout failed: %v", err)
	}
	if completed.Amount.String() != "144.00" || completed.CommissionCount != 1 {
		t.Fatalf("completed payout should exclude the closed order: %+v", completed)
	}
	if rows := listCommissions(t, env, voided.ID); rows[0].Status != constants.CommissionStatusCancelled {
		t.Fatalf("closed order commission should be cancelled, got %s", rows[0].Status)
	}
	if rows := listCommissions(t, env, kept.ID); rows[0].Status != constants.CommissionStatusPaid {
		t.Fatalf("kept order commission should be paid, got %s", rows[0].Status)
	}
}

func TestPayoutReleaseVoidsCommissionsOfClosedOrders(t *testing.T) {
	env := newServiceTestEnv(t, "payout_release_voided")
	buyer := createCustomerFixture(t, env.db, "buyer@example.com")
	vendor := createVendorFixture(t, env.db, "atelier", "")
	dress := createProductFixture(t, env.db, vendor, "dress", "100.00", 10, "")
	order := approvedCommissionFixture(t, env, vendor, dress, buyer.ID, 1)
	ctx := context.Background()

	payout, err := env.payouts.Create(ctx, vendor.ID, "admin:1", "")
	if err != nil {
		t.Fatalf("create payout failed: %v", err)
	}
	setOrderStatus(t, env, order.ID, constants.OrderStatusCancelled)
	if _, err := env.payouts.Fail(ctx, payout.ID, "bank rejected", "admin:1"); err != nil {
		t.Fatalf("fail payout failed: %v", err)
	}
	rows := listCommissions(t, env, order.ID)
	if rows[0].Status != constants.CommissionStatusCancelled || rows[0].PayoutID != nil {
		t.Fatalf("closed order commission must not be released for payout: %+v", rows[0])
	}
	if _, err := env.payouts.Create(ctx, vendor.ID, "admin:1", ""); !errors.Is(err, ErrPayoutNoCommissions) {
		t.Fatalf("expected ErrPayoutNoCommissions, got %v", err)
	}
}

func TestItemCancelRecomputesOrderTotals(t *testing.T) {
	env := newServiceTestEnv(t, "order_item_cancel_totals")
	buyer := createCustomerFixture(t, env.db, "buyer@example.com")
	atelier := createVendorFixture(t, env.db, "atelier", "")
	linea := createVendorFixture(t, env.db, "linea", "")
	dress := createProductFixture(t, env.db, atelier, "dress", "100.00", 5, "")
	scarf := createProductFixture(t, env.db, linea, "scarf", "50.00", 5, "")
	ctx := context.Background()

	order := env.checkout(t, buyer.ID, cartLine{dress, 1}, cartLine{scarf, 1})
	env.payOrder(t, order)
	// 队列模式下佣金任务可能晚于取消执行
	if err := env.db.Where("order_id = ?", order.ID).Delete(&models.Commission{}).Error; err != nil {
		t.Fatalf("clear commissions failed: %v", err)
	}

	loaded, err := env.orderRepo.GetByID(order.ID)
	if err != nil {
		t.Fatalf("reload order failed: %v", err)
	}
	var scarfItem models.OrderItem
	for _, item := range loaded.Items {
		if item.VendorID == linea.ID {
			scarfItem = item
		}
	}
	if _, err := env.tracker.TransitionItem(ctx, ItemTransitionInput{
		OrderID:  order.ID,
		ItemID:   scarfItem.ID,
		To:       constants.OrderItemStatusCancelled,
		Actor:    "vendor:linea",
		VendorID: linea.ID,
	}); err != nil {
		t.Fatalf("cancel item failed: %v", err)
	}

	reloaded, err := env.orders.Reconcile(ctx, order.ID)
	if err != nil {
		t.Fatalf("order should reconcile after item cancel: %v", err)
	}
	if reloaded.SubtotalAmount.String() != "100.00" || reloaded.TaxAmount.String() != "10.00" ||
		reloaded.ShippingAmount.String() != "5.00" || reloaded.TotalAmount.String() != "115.00" {
		t.Fatalf("unexpected totals after cancel: %s %s %s %s", reloaded.SubtotalAmount, reloaded.TaxAmount, reloaded.ShippingAmount, reloaded.TotalAmount)
	}
	if reloaded.IsMultiVendor {
		t.Fatalf("order should no longer be multi vendor")
	}

	created, err := env.commissions.GenerateForOrder(ctx, order.ID)
	if err != nil {
		t.Fatalf("generate commissions failed: %v", err)
	}
	if created != 1 {
		t.Fatalf("only the remaining vendor should be booked, got %d", created)
	}
	rows := listCommissions(t, env, order.ID)
	if len(rows) != 1 || rows[0].VendorID != atelier.ID {
		t.Fatalf("unexpected commissions: %+v", rows)
	}
}

func TestTransitionItemRules(t *testing.T) {
	env := newServiceTestEnv(t, "order_item_transition_rules")
	buyer := createCustomerFixture(t, env.db, "buyer@example.com")
	vendor := createVendorFixture(t, env.db, "atelier", "")
	dress := createProductFixture(t, env.db, vendor, "dress", "100.00", 5, "")
	ctx := context.Background()

	order := env.checkout(t, buyer.ID, cartLine{dress, 1})
	loaded, err := env.orderRepo.GetByID(order.ID)
	if err != nil || len(loaded.Items) != 1 {
		t.Fatalf("reload order failed: %v", err)
	}
	itemID := loaded.Items[0].ID
	move := func(to string) error {
		_, err := env.tracker.TransitionItem(ctx, ItemTransitionInput{OrderID: order.ID, ItemID: itemID, To: to, Actor: "admin:1"})
		return err
	}
	if err := move(constants.OrderItemStatusShipped); !errors.Is(err, ErrOrderItemStatusInvalid) {
		t.Fatalf("items of unpaid orders are frozen, got %v", err)
	}
	env.payOrder(t, order)
	if err := move(constants.OrderItemStatusDelivered); !errors.Is(err, ErrOrderItemStatusInvalid) {
		t.Fatalf("pending item cannot skip to delivered, got %v", err)
	}
	if err := move(constants.OrderItemStatusShipped); err != nil {
		t.Fatalf("ship item failed: %v", err)
	}
	if err := move(constants.OrderItemStatusShipped); !errors.Is(err, ErrOrderStatusUnchanged) {
		t.Fatalf("expected ErrOrderStatusUnchanged, got %v", err)
	}
	if err := move(constants.OrderItemStatusCancelled); !errors.Is(err, ErrOrderItemStatusInvalid) {
		t.Fatalf("shipped item cannot be cancelled, got %v", err)
	}

	history, err := env.tracker.History(order.ID, vendor.ID)
	if err != nil {
		t.Fatalf("vendor history failed: %v", err)
	}
	found := false
	for _, entry := range history {
		if entry.OrderItemID != nil && *entry.OrderItemID == itemID && entry.ToStatus == constants.OrderItemStatusShipped {
			found = true
		}
	}
	if !found {
		t.Fatalf("item history should be visible to its vendor: %+v", history)
	}
}
