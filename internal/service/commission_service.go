package service

import (
	"context"
	"time"

	"github.com/modaplex/internal/constants"
	"github.com/modaplex/internal/logger"
	"github.com/modaplex/internal/models"
	"github.com/modaplex/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CommissionService 佣金台账服务
type CommissionService struct {
	commissionRepo     repository.CommissionRepository
	orderRepo          repository.OrderRepository
	ledger             *PayoutLedger
	platformFeePercent decimal.Decimal
	holdDays           int
}

// NewCommissionService 创建佣金服务
func NewCommissionService(commissionRepo repository.CommissionRepository, orderRepo repository.OrderRepository, ledger *PayoutLedger, platformFeePercent decimal.Decimal, holdDays int) *CommissionService {
	return &CommissionService{
		commissionRepo:     commissionRepo,
		orderRepo:          orderRepo,
		ledger:             ledger,
		platformFeePercent: platformFeePercent,
		holdDays:           holdDays,
	}
}

// CommissionSummary 佣金按状态汇总
type CommissionSummary struct {
	VendorID  uint                             `json:"vendor_id"`
	Pending   repository.CommissionStatusTotal `json:"pending"`
	Approved  repository.CommissionStatusTotal `json:"approved"`
	Paid      repository.CommissionStatusTotal `json:"paid"`
	Cancelled repository.CommissionStatusTotal `json:"cancelled"`
}

// BuildCommission 由订单项快照计算一条佣金
func BuildCommission(item models.OrderItem, platformFeePercent decimal.Decimal) models.Commission {
	commissionAmount := item.VendorCommission
	platformFee := commissionAmount.Percent(platformFeePercent)
	return models.Commission{
		VendorID:         item.VendorID,
		OrderID:          item.OrderID,
		OrderItemID:      item.ID,
		GrossAmount:      item.TotalPrice,
		CommissionRate:   item.VendorCommissionRate,
		CommissionAmount: commissionAmount,
		PlatformFee:      platformFee,
		NetAmount:        commissionAmount.Sub(platformFee),
		Status:           constants.CommissionStatusPending,
	}
}

// GenerateForOrder 为已支付订单生成佣金，已存在的订单项跳过，返回新生成条数
func (s *CommissionService) GenerateForOrder(ctx context.Context, orderID uint) (int, error) {
	created := 0
	err := s.orderRepo.Transaction(func(tx *gorm.DB) error {
		orderRepo := s.orderRepo.WithTx(tx)
		commissionRepo := s.commissionRepo.WithTx(tx)
		order, err := orderRepo.GetByIDForUpdate(orderID)
		if err != nil {
			return err
		}
		if order == nil {
			return ErrOrderNotFound
		}
		if order.PaymentStatus != constants.OrderPaymentStatusPaid ||
			order.Status == constants.OrderStatusCancelled ||
			order.Status == constants.OrderStatusRefunded {
			return withDetails(ErrCommissionOrderNotPaid, map[string]interface{}{
				"order_no":       order.OrderNo,
				"status":         order.Status,
				"payment_status": order.PaymentStatus,
			})
		}
		items, err := orderRepo.ListItems(order.ID)
		if err != nil {
			return err
		}
		if err := ReconcileTotals(order, items); err != nil {
			return err
		}
		existing, err := commissionRepo.ListItemIDsByOrder(order.ID)
		if err != nil {
			return err
		}
		booked := make(map[uint]bool, len(existing))
		for _, id := range existing {
			booked[id] = true
		}
		rows := make([]models.Commission, 0, len(items))
		for _, item := range items {
			if booked[item.ID] || item.Status == constants.OrderItemStatusCancelled {
				continue
			}
			rows = append(rows, BuildCommission(item, s.platformFeePercent))
		}
		if err := commissionRepo.CreateBatch(rows); err != nil {
			return err
		}
		created = len(rows)
		return nil
	})
	if err != nil {
		return 0, err
	}
	logger.Infow("commission_generated", "order_id", orderID, "created", created)
	return created, nil
}

// Approve 审核待审核佣金
func (s *CommissionService) Approve(ctx context.Context, ids []uint, actor string) (int64, error) {
	if len(ids) == 0 {
		return 0, ErrInvalidInput
	}
	var affected int64
	err := s.orderRepo.Transaction(func(tx *gorm.DB) error {
		commissionRepo := s.commissionRepo.WithTx(tx)
		rows, err := commissionRepo.ListByIDsForUpdate(ids)
		if err != nil {
			return err
		}
		if len(rows) != len(uniqueIDs(ids)) {
			return ErrCommissionNotFound
		}
		for _, row := range rows {
			if row.Status != constants.CommissionStatusPending {
				return withDetails(ErrCommissionStatusInvalid, map[string]interface{}{"commission_id": row.ID, "status": row.Status})
			}
		}
		now := time.Now().UTC()
		affected, err = commissionRepo.UpdateByIDs(ids, map[string]interface{}{
			"status":      constants.CommissionStatusApproved,
			"approved_at": now,
		})
		return err
	})
	if err != nil {
		return 0, err
	}
	logger.Infow("commission_approved", "count", affected, "actor", actor)
	return affected, nil
}

// ApproveDue 自动审核签收超过保留期的订单佣金
func (s *CommissionService) ApproveDue(ctx context.Context, now time.Time) (int64, error) {
	cutoff := now.UTC().AddDate(0, 0, -s.holdDays)
	orderIDs, err := s.orderRepo.ListIDsDeliveredBefore(cutoff)
	if err != nil {
		return 0, err
	}
	ids, err := s.commissionRepo.ListPendingIDsByOrders(orderIDs)
	if err != nil || len(ids) == 0 {
		return 0, err
	}
	var affected int64
	err = s.orderRepo.Transaction(func(tx *gorm.DB) error {
		commissionRepo := s.commissionRepo.WithTx(tx)
		rows, err := commissionRepo.ListByIDsForUpdate(ids)
		if err != nil {
			return err
		}
		pending := make([]uint, 0, len(rows))
		for _, row := range rows {
			if row.Status == constants.CommissionStatusPending {
				pending = append(pending, row.ID)
			}
		}
		affected, err = commissionRepo.UpdateByIDs(pending, map[string]interface{}{
			"status":      constants.CommissionStatusApproved,
			"approved_at": now.UTC(),
		})
		return err
	})
	if err != nil {
		return 0, err
	}
	return affected, nil
}

// CancelForOrder 取消订单下未付的佣金
func (s *CommissionService) CancelForOrder(ctx context.Context, orderID uint) error {
	return s.orderRepo.Transaction(func(tx *gorm.DB) error {
		return s.ledger.cancelCommissionsTx(tx, orderID, nil, time.Now().UTC())
	})
}

// List 佣金列表
func (s *CommissionService) List(filter repository.CommissionListFilter) ([]models.Commission, int64, error) {
	return s.commissionRepo.List(filter)
}

// Summary 佣金汇总，vendorID 为 0 时统计全平台
func (s *CommissionService) Summary(vendorID uint) (*CommissionSummary, error) {
	rows, err := s.commissionRepo.SummaryByStatus(vendorID)
	if err != nil {
		return nil, err
	}
	summary := &CommissionSummary{VendorID: vendorID}
	for _, row := range rows {
		switch row.Status {
		case constants.CommissionStatusPending:
			summary.Pending = row
		case constants.CommissionStatusApproved:
			summary.Approved = row
		case constants.CommissionStatusPaid:
			summary.Paid = row
		case constants.CommissionStatusCancelled:
			summary.Cancelled = row
		}
	}
	return summary, nil
}

func uniqueIDs(ids []uint) []uint {
	seen := make(map[uint]struct{}, len(ids))
	result := make([]uint, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		result = append(result, id)
	}
	return result
}
