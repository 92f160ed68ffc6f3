package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/modaplex/internal/constants"
	"github.com/modaplex/internal/events"
	"github.com/modaplex/internal/logger"
	"github.com/modaplex/internal/models"
	"github.com/modaplex/internal/repository"

	"gorm.io/gorm"
)

var allowedTransitions = map[string]map[string]bool{
	constants.OrderStatusPending: {
		constants.OrderStatusConfirmed: true,
		constants.OrderStatusCancelled: true,
	},
	constants.OrderStatusConfirmed: {
		constants.OrderStatusProcessing: true,
		constants.OrderStatusCancelled:  true,
	},
	constants.OrderStatusProcessing: {
		constants.OrderStatusShipped:   true,
		constants.OrderStatusCancelled: true,
	},
	constants.OrderStatusShipped: {
		constants.OrderStatusDelivered: true,
	},
	constants.OrderStatusDelivered: {
		constants.OrderStatusRefunded: true,
	},
}

var allowedItemTransitions = map[string]map[string]bool{
	constants.OrderItemStatusPending: {
		constants.OrderItemStatusShipped:   true,
		constants.OrderItemStatusCancelled: true,
	},
	constants.OrderItemStatusShipped: {
		constants.OrderItemStatusDelivered: true,
	},
}

// 允许推进订单项状态的订单状态
var itemEditableOrderStatuses = map[string]bool{
	constants.OrderStatusConfirmed:  true,
	constants.OrderStatusProcessing: true,
	constants.OrderStatusShipped:    true,
}

func isTransitionAllowed(current, target string) bool {
	nexts, ok := allowedTransitions[current]
	if !ok {
		return false
	}
	return nexts[target]
}

func isItemTransitionAllowed(current, target string) bool {
	nexts, ok := allowedItemTransitions[current]
	if !ok {
		return false
	}
	return nexts[target]
}

// StatusChange 一次状态变更
type StatusChange struct {
	OrderID     uint      `json:"order_id"`
	OrderNo     string    `json:"order_no"`
	OrderItemID *uint     `json:"order_item_id,omitempty"`
	VendorID    uint      `json:"vendor_id,omitempty"`
	FromStatus  string    `json:"from_status"`
	ToStatus    string    `json:"to_status"`
	ChangedBy   string    `json:"changed_by"`
	ChangedAt   time.Time `json:"changed_at"`
}

// TransitionInput 订单状态变更输入
type TransitionInput struct {
	OrderID uint
	To      string
	Actor   string
	Notes   string
}

// ItemTransitionInput 订单项状态变更输入，VendorID 非 0 时只允许操作本商家订单项
type ItemTransitionInput struct {
	OrderID  uint
	ItemID   uint
	To       string
	Actor    string
	Notes    string
	VendorID uint
}

// StatusTrackerOptions 状态机依赖
type StatusTrackerOptions struct {
	OrderRepo   repository.OrderRepository
	HistoryRepo repository.OrderStatusHistoryRepository
	ProductRepo repository.ProductRepository
	Ledger      *PayoutLedger
	Rules       TotalsRules
	Publisher   events.Publisher
}

// StatusTracker 订单状态机与审计流水
type StatusTracker struct {
	orderRepo   repository.OrderRepository
	historyRepo repository.OrderStatusHistoryRepository
	productRepo repository.ProductRepository
	ledger      *PayoutLedger
	rules       TotalsRules
	publisher   events.Publisher
}

// NewStatusTracker 创建状态机
func NewStatusTracker(opts StatusTrackerOptions) *StatusTracker {
	publisher := opts.Publisher
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	return &StatusTracker{
		orderRepo:   opts.OrderRepo,
		historyRepo: opts.HistoryRepo,
		productRepo: opts.ProductRepo,
		ledger:      opts.Ledger,
		rules:       opts.Rules,
		publisher:   publisher,
	}
}

// Transition 锁定订单并执行状态变更
func (t *StatusTracker) Transition(ctx context.Context, input TransitionInput) (*models.Order, error) {
	if input.OrderID == 0 {
		return nil, ErrOrderNotFound
	}
	var change *StatusChange
	err := t.orderRepo.Transaction(func(tx *gorm.DB) error {
		order, err := t.orderRepo.WithTx(tx).GetByIDForUpdate(input.OrderID)
		if err != nil {
			return err
		}
		if order == nil {
			return ErrOrderNotFound
		}
		change, err = t.applyInTx(tx, order, input.To, input.Actor, input.Notes, time.Now().UTC())
		return err
	})
	if err != nil {
		return nil, err
	}
	t.publish(ctx, change)
	return t.orderRepo.GetByID(input.OrderID)
}

// applyInTx 在调用方事务内执行状态变更，order 必须已加锁
func (t *StatusTracker) applyInTx(tx *gorm.DB, order *models.Order, to, actor, notes string, now time.Time) (*StatusChange, error) {
	to = strings.ToLower(strings.TrimSpace(to))
	from := order.Status
	if from == to {
		return nil, ErrOrderStatusUnchanged
	}
	if !isTransitionAllowed(from, to) {
		return nil, withDetails(ErrOrderStatusInvalid, map[string]interface{}{"from": from, "to": to})
	}

	orderRepo := t.orderRepo.WithTx(tx)
	updates := map[string]interface{}{"status": to, "updated_at": now}
	switch to {
	case constants.OrderStatusConfirmed:
		updates["confirmed_at"] = now
	case constants.OrderStatusShipped:
		updates["shipped_at"] = now
	case constants.OrderStatusDelivered:
		updates["delivered_at"] = now
	case constants.OrderStatusCancelled:
		updates["cancelled_at"] = now
		if err := t.releaseOrderItems(tx, order, now); err != nil {
			return nil, err
		}
		if err := t.ledger.cancelCommissionsTx(tx, order.ID, nil, now); err != nil {
			return nil, err
		}
		if order.PaymentStatus == constants.OrderPaymentStatusPaid {
			logger.Warnw("order_cancelled_after_payment", "order_id", order.ID, "order_no", order.OrderNo)
		}
	case constants.OrderStatusRefunded:
		updates["refunded_at"] = now
		updates["payment_status"] = constants.OrderPaymentStatusRefunded
		if err := t.ledger.cancelCommissionsTx(tx, order.ID, nil, now); err != nil {
			return nil, err
		}
	}
	if err := orderRepo.UpdateFields(order.ID, updates); err != nil {
		return nil, err
	}
	if err := t.historyRepo.WithTx(tx).Create(&models.OrderStatusHistory{
		OrderID:    order.ID,
		FromStatus: from,
		ToStatus:   to,
		ChangedBy:  actor,
		Notes:      strings.TrimSpace(notes),
		CreatedAt:  now,
	}); err != nil {
		return nil, err
	}
	order.Status = to
	return &StatusChange{
		OrderID:    order.ID,
		OrderNo:    order.OrderNo,
		FromStatus: from,
		ToStatus:   to,
		ChangedBy:  actor,
		ChangedAt:  now,
	}, nil
}

// releaseOrderItems 取消订单时回补未发货订单项库存并关闭订单项
func (t *StatusTracker) releaseOrderItems(tx *gorm.DB, order *models.Order, now time.Time) error {
	orderRepo := t.orderRepo.WithTx(tx)
	productRepo := t.productRepo.WithTx(tx)
	items, err := orderRepo.ListItems(order.ID)
	if err != nil {
		return err
	}
	for _, item := range items {
		if item.Status != constants.OrderItemStatusPending || item.ProductID == nil {
			continue
		}
		if err := productRepo.IncrementStock(*item.ProductID, item.Quantity); err != nil {
			return err
		}
	}
	return orderRepo.UpdateItemsStatus(order.ID, []string{constants.OrderItemStatusPending, constants.OrderItemStatusShipped}, constants.OrderItemStatusCancelled)
}

// TransitionItem 推进单个订单项状态，写入带 order_item_id 的流水
func (t *StatusTracker) TransitionItem(ctx context.Context, input ItemTransitionInput) (*models.OrderItem, error) {
	to := strings.ToLower(strings.TrimSpace(input.To))
	var change *StatusChange
	var updated *models.OrderItem
	err := t.orderRepo.Transaction(func(tx *gorm.DB) error {
		orderRepo := t.orderRepo.WithTx(tx)
		order, err := orderRepo.GetByIDForUpdate(input.OrderID)
		if err != nil {
			return err
		}
		if order == nil {
			return ErrOrderNotFound
		}
		item, err := orderRepo.GetItemForUpdate(input.ItemID)
		if err != nil {
			return err
		}
		if item == nil || item.OrderID != order.ID || (input.VendorID != 0 && item.VendorID != input.VendorID) {
			return ErrOrderItemNotFound
		}
		if !itemEditableOrderStatuses[order.Status] {
			return withDetails(ErrOrderItemStatusInvalid, map[string]interface{}{"order_status": order.Status})
		}
		from := item.Status
		if from == to {
			return ErrOrderStatusUnchanged
		}
		if !isItemTransitionAllowed(from, to) {
			return withDetails(ErrOrderItemStatusInvalid, map[string]interface{}{"from": from, "to": to})
		}

		now := time.Now().UTC()
		if err := orderRepo.UpdateItemFields(item.ID, map[string]interface{}{"status": to, "updated_at": now}); err != nil {
			return err
		}
		if to == constants.OrderItemStatusCancelled {
			if item.ProductID != nil {
				if err := t.productRepo.WithTx(tx).IncrementStock(*item.ProductID, item.Quantity); err != nil {
					return err
				}
			}
			itemID := item.ID
			if err := t.ledger.cancelCommissionsTx(tx, order.ID, &itemID, now); err != nil {
				return err
			}
			paidTotal := order.TotalAmount
			if err := recomputeOrderTx(orderRepo, order, order.DiscountAmount, t.rules); err != nil {
				return err
			}
			if order.PaymentStatus == constants.OrderPaymentStatusPaid {
				logger.Warnw("order_item_cancelled_after_payment",
					"order_id", order.ID,
					"order_item_id", item.ID,
					"refund_due", paidTotal.Sub(order.TotalAmount).String(),
				)
			}
		}
		itemID := item.ID
		if err := t.historyRepo.WithTx(tx).Create(&models.OrderStatusHistory{
			OrderID:     order.ID,
			OrderItemID: &itemID,
			FromStatus:  from,
			ToStatus:    to,
			ChangedBy:   input.Actor,
			Notes:       strings.TrimSpace(input.Notes),
			CreatedAt:   now,
		}); err != nil {
			return err
		}
		item.Status = to
		updated = item
		change = &StatusChange{
			OrderID:     order.ID,
			OrderNo:     order.OrderNo,
			OrderItemID: &itemID,
			VendorID:    item.VendorID,
			FromStatus:  from,
			ToStatus:    to,
			ChangedBy:   input.Actor,
			ChangedAt:   now,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	t.publish(ctx, change)
	return updated, nil
}

// History 查询订单状态流水，vendorID 非 0 时仅包含订单级记录与本商家订单项记录
func (t *StatusTracker) History(orderID, vendorID uint) ([]models.OrderStatusHistory, error) {
	order, err := t.orderRepo.GetByID(orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	if vendorID == 0 {
		return t.historyRepo.ListByOrder(orderID, nil)
	}
	itemIDs := make([]uint, 0)
	for _, item := range order.Items {
		if item.VendorID == vendorID {
			itemIDs = append(itemIDs, item.ID)
		}
	}
	if len(itemIDs) == 0 {
		return nil, ErrOrderNotFound
	}
	return t.historyRepo.ListByOrder(orderID, itemIDs)
}

func (t *StatusTracker) publish(ctx context.Context, change *StatusChange) {
	if change == nil {
		return
	}
	if err := t.publisher.Publish(ctx, constants.EventOrderStatusChanged, change); err != nil {
		logger.Warnw("order_event_publish_failed",
			"order_id", change.OrderID,
			"to_status", change.ToStatus,
			"error", err,
		)
	}
}

func userActor(userID uint) string {
	return fmt.Sprintf("user:%d", userID)
}
