package service

import (
	"time"

	"github.com/modaplex/internal/constants"
	"github.com/modaplex/internal/logger"
	"github.com/modaplex/internal/models"
	"github.com/modaplex/internal/repository"

	"gorm.io/gorm"
)

// PayoutLedger 佣金与结算单的联动账务
type PayoutLedger struct {
	payoutRepo     repository.PayoutRepository
	commissionRepo repository.CommissionRepository
	rules          PayoutRules
}

// NewPayoutLedger 创建结算账务
func NewPayoutLedger(payoutRepo repository.PayoutRepository, commissionRepo repository.CommissionRepository, rules PayoutRules) *PayoutLedger {
	return &PayoutLedger{
		payoutRepo:     payoutRepo,
		commissionRepo: commissionRepo,
		rules:          rules,
	}
}

func (l *PayoutLedger) withTx(tx *gorm.DB) *PayoutLedger {
	return &PayoutLedger{
		payoutRepo:     l.payoutRepo.WithTx(tx),
		commissionRepo: l.commissionRepo.WithTx(tx),
		rules:          l.rules,
	}
}

func isOpenPayout(payout *models.Payout) bool {
	return payout != nil && (payout.Status == constants.PayoutStatusPending || payout.Status == constants.PayoutStatusProcessing)
}

// cancelCommissionsTx 取消订单（或单个订单项）的未付佣金，已绑定未完成结算单的同时移出结算单并重算；已付佣金只记录日志
func (l *PayoutLedger) cancelCommissionsTx(tx *gorm.DB, orderID uint, itemID *uint, now time.Time) error {
	ledger := l.withTx(tx)
	payoutIDs, err := ledger.commissionRepo.ListOpenPayoutIDsByOrder(orderID, itemID)
	if err != nil {
		return err
	}
	// 先锁结算单再锁佣金，与结算单状态流转保持同一加锁顺序
	payouts := make(map[uint]*models.Payout, len(payoutIDs))
	for _, id := range payoutIDs {
		payout, err := ledger.payoutRepo.GetByIDForUpdate(id)
		if err != nil {
			return err
		}
		if payout != nil {
			payouts[payout.ID] = payout
		}
	}

	rows, err := ledger.commissionRepo.ListByOrderForUpdate(orderID, []string{
		constants.CommissionStatusPending,
		constants.CommissionStatusApproved,
		constants.CommissionStatusPaid,
	})
	if err != nil {
		return err
	}
	ids := make([]uint, 0, len(rows))
	detached := make(map[uint][]uint)
	for _, row := range rows {
		if itemID != nil && row.OrderItemID != *itemID {
			continue
		}
		if row.Status == constants.CommissionStatusPaid {
			logger.Warnw("commission_refund_after_paid",
				"commission_id", row.ID,
				"order_id", orderID,
				"vendor_id", row.VendorID,
				"net_amount", row.NetAmount.String(),
			)
			continue
		}
		if row.PayoutID != nil {
			payout := payouts[*row.PayoutID]
			if !isOpenPayout(payout) {
				return withDetails(ErrCommissionStatusInvalid, map[string]interface{}{
					"commission_id": row.ID,
					"payout_id":     *row.PayoutID,
				})
			}
			detached[payout.ID] = append(detached[payout.ID], row.ID)
		}
		ids = append(ids, row.ID)
	}
	if len(ids) == 0 {
		return nil
	}
	if _, err := ledger.commissionRepo.UpdateByIDs(ids, map[string]interface{}{
		"status":       constants.CommissionStatusCancelled,
		"cancelled_at": now,
		"payout_id":    nil,
	}); err != nil {
		return err
	}
	for _, payoutID := range payoutIDs {
		removed := detached[payoutID]
		if len(removed) == 0 {
			continue
		}
		if err := ledger.payoutRepo.DeleteLinks(payoutID, removed); err != nil {
			return err
		}
		logger.Warnw("payout_commission_detached",
			"payout_id", payoutID,
			"order_id", orderID,
			"commission_ids", removed,
		)
		if _, err := ledger.rebalanceTx(payouts[payoutID], now); err != nil {
			return err
		}
	}
	return nil
}

// voidTx 作废结算单中订单已取消/退款或订单项已取消的佣金，返回仍绑定的佣金
func (l *PayoutLedger) voidTx(payout *models.Payout, now time.Time) ([]models.Commission, error) {
	voided, err := l.commissionRepo.ListVoidedByPayoutForUpdate(payout.ID)
	if err != nil {
		return nil, err
	}
	if len(voided) > 0 {
		ids := make([]uint, 0, len(voided))
		for _, row := range voided {
			ids = append(ids, row.ID)
		}
		if _, err := l.commissionRepo.UpdateByIDs(ids, map[string]interface{}{
			"status":       constants.CommissionStatusCancelled,
			"cancelled_at": now,
			"payout_id":    nil,
		}); err != nil {
			return nil, err
		}
		if err := l.payoutRepo.DeleteLinks(payout.ID, ids); err != nil {
			return nil, err
		}
		logger.Warnw("payout_commission_voided", "payout_id", payout.ID, "commission_ids", ids)
	}
	return l.commissionRepo.ListByPayoutForUpdate(payout.ID)
}

// rebalanceTx 按仍绑定的佣金重算结算单金额；没有可结算金额时自动取消结算单并释放佣金
func (l *PayoutLedger) rebalanceTx(payout *models.Payout, now time.Time) ([]models.Commission, error) {
	rows, err := l.voidTx(payout, now)
	if err != nil {
		return nil, err
	}
	amount := models.ZeroMoney()
	for _, row := range rows {
		amount = amount.Add(row.NetAmount)
	}
	fee := l.rules.ProcessingFee(amount)
	net := amount.Sub(fee)
	updates := map[string]interface{}{
		"amount":           amount,
		"processing_fee":   fee,
		"net_amount":       net,
		"commission_count": len(rows),
		"updated_at":       now,
	}
	if len(rows) == 0 || !net.IsPositive() {
		if err := releaseCommissions(l.commissionRepo, rows); err != nil {
			return nil, err
		}
		updates["status"] = constants.PayoutStatusCancelled
		updates["cancelled_at"] = now
		updates["notes"] = "commissions voided"
		payout.Status = constants.PayoutStatusCancelled
		logger.Warnw("payout_auto_cancelled", "payout_id", payout.ID, "payout_no", payout.PayoutNo, "remaining", len(rows))
		rows = nil
	}
	if err := l.payoutRepo.UpdateFields(payout.ID, updates); err != nil {
		return nil, err
	}
	payout.Amount = amount
	payout.ProcessingFee = fee
	payout.NetAmount = net
	payout.CommissionCount = len(rows)
	return rows, nil
}

// settleTx 结算完成，作废失效佣金后将其余佣金标记为已付
func (l *PayoutLedger) settleTx(payout *models.Payout, now time.Time) error {
	rows, err := l.rebalanceTx(payout, now)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return withDetails(ErrPayoutNoCommissions, map[string]interface{}{"payout_id": payout.ID})
	}
	ids := make([]uint, 0, len(rows))
	for _, row := range rows {
		if row.Status != constants.CommissionStatusApproved {
			return withDetails(ErrCommissionStatusInvalid, map[string]interface{}{"commission_id": row.ID, "status": row.Status})
		}
		ids = append(ids, row.ID)
	}
	_, err = l.commissionRepo.UpdateByIDs(ids, map[string]interface{}{
		"status":  constants.CommissionStatusPaid,
		"paid_at": now,
	})
	return err
}

// releaseTx 结算失败或取消，作废失效佣金后释放其余佣金
func (l *PayoutLedger) releaseTx(payout *models.Payout, now time.Time) error {
	rows, err := l.voidTx(payout, now)
	if err != nil {
		return err
	}
	return releaseCommissions(l.commissionRepo, rows)
}

func releaseCommissions(repo repository.CommissionRepository, rows []models.Commission) error {
	ids := make([]uint, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}
	_, err := repo.UpdateByIDs(ids, map[string]interface{}{"payout_id": nil})
	return err
}
