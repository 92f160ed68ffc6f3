package service

import (
	"context"
	"strings"
	"time"

	"github.com/modaplex/internal/config"
	"github.com/modaplex/internal/constants"
	"github.com/modaplex/internal/events"
	"github.com/modaplex/internal/logger"
	"github.com/modaplex/internal/models"
	"github.com/modaplex/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var allowedPayoutTransitions = map[string]map[string]bool{
	constants.PayoutStatusPending: {
		constants.PayoutStatusProcessing: true,
		constants.PayoutStatusFailed:     true,
		constants.PayoutStatusCancelled:  true,
	},
	constants.PayoutStatusProcessing: {
		constants.PayoutStatusCompleted: true,
		constants.PayoutStatusFailed:    true,
		constants.PayoutStatusCancelled: true,
	},
}

// PayoutRules 结算金额规则
type PayoutRules struct {
	MinAmount  decimal.Decimal
	FixedFee   decimal.Decimal
	FeePercent decimal.Decimal
}

// PayoutRulesFromConfig 从结算配置读取规则
func PayoutRulesFromConfig(cfg config.PayoutConfig) PayoutRules {
	return PayoutRules{
		MinAmount:  cfg.MinAmount,
		FixedFee:   cfg.FixedFee,
		FeePercent: cfg.FeePercent,
	}
}

// ProcessingFee 手续费 = 固定费用 + 金额 × 费率
func (r PayoutRules) ProcessingFee(amount models.Money) models.Money {
	return models.NewMoneyFromDecimal(r.FixedFee).Add(amount.Percent(r.FeePercent))
}

var payoutEventTypes = map[string]string{
	constants.PayoutStatusPending:   constants.EventPayoutCreated,
	constants.PayoutStatusCompleted: constants.EventPayoutCompleted,
	constants.PayoutStatusFailed:    constants.EventPayoutFailed,
	constants.PayoutStatusCancelled: constants.EventPayoutCancelled,
}

// PayoutEvent 结算单事件
type PayoutEvent struct {
	PayoutID          uint   `json:"payout_id"`
	PayoutNo          string `json:"payout_no"`
	VendorID          uint   `json:"vendor_id"`
	Status            string `json:"status"`
	Amount            string `json:"amount"`
	NetAmount         string `json:"net_amount"`
	Currency          string `json:"currency"`
	CommissionCount   int    `json:"commission_count"`
	TransferReference string `json:"transfer_reference,omitempty"`
	Notes             string `json:"notes,omitempty"`
}

// PayoutService 商家结算服务
type PayoutService struct {
	payoutRepo     repository.PayoutRepository
	commissionRepo repository.CommissionRepository
	vendorRepo     repository.VendorRepository
	ledger         *PayoutLedger
	publisher      events.Publisher
	rules          PayoutRules
	currency       string
}

// NewPayoutService 创建结算服务
func NewPayoutService(payoutRepo repository.PayoutRepository, commissionRepo repository.CommissionRepository, vendorRepo repository.VendorRepository, publisher events.Publisher, rules PayoutRules, currency string) *PayoutService {
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	if strings.TrimSpace(currency) == "" {
		currency = "USD"
	}
	return &PayoutService{
		payoutRepo:     payoutRepo,
		commissionRepo: commissionRepo,
		vendorRepo:     vendorRepo,
		ledger:         NewPayoutLedger(payoutRepo, commissionRepo, rules),
		publisher:      publisher,
		rules:          rules,
		currency:       strings.ToUpper(strings.TrimSpace(currency)),
	}
}

// Create 汇总商家已审核未结算佣金生成结算单
func (s *PayoutService) Create(ctx context.Context, vendorID uint, actor, notes string) (*models.Payout, error) {
	if vendorID == 0 {
		return nil, ErrVendorNotFound
	}
	var payout *models.Payout
	err := s.payoutRepo.Transaction(func(tx *gorm.DB) error {
		vendor, err := s.vendorRepo.WithTx(tx).GetByIDForUpdate(vendorID)
		if err != nil {
			return err
		}
		if vendor == nil {
			return ErrVendorNotFound
		}
		if !vendor.HasBankDetails() {
			return ErrPayoutBankDetailsMissing
		}
		commissionRepo := s.commissionRepo.WithTx(tx)
		rows, err := commissionRepo.ListApprovedUnboundForUpdate(vendor.ID)
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			return ErrPayoutNoCommissions
		}

		amount := models.ZeroMoney()
		ids := make([]uint, 0, len(rows))
		for _, row := range rows {
			amount = amount.Add(row.NetAmount)
			ids = append(ids, row.ID)
		}
		if amount.LessThan(s.rules.MinAmount) {
			return withDetails(ErrPayoutBelowMinimum, map[string]interface{}{
				"amount":     amount.String(),
				"min_amount": s.rules.MinAmount.StringFixed(2),
			})
		}
		fee := s.rules.ProcessingFee(amount)
		net := amount.Sub(fee)
		if !net.IsPositive() {
			return withDetails(ErrPayoutNetNotPositive, map[string]interface{}{
				"amount":         amount.String(),
				"processing_fee": fee.String(),
			})
		}

		now := time.Now().UTC()
		payout = &models.Payout{
			PayoutNo:          generatePayoutNo(),
			VendorID:          vendor.ID,
			Amount:            amount,
			ProcessingFee:     fee,
			NetAmount:         net,
			CommissionCount:   len(rows),
			Currency:          s.currency,
			BankName:          vendor.BankName,
			BankAccountName:   vendor.BankAccountName,
			BankAccountNumber: vendor.MaskedAccountNumber(),
			BankRoutingCode:   vendor.BankRoutingCode,
			Status:            constants.PayoutStatusPending,
			Notes:             strings.TrimSpace(notes),
			RequestedBy:       actor,
			RequestedAt:       now,
		}
		payoutRepo := s.payoutRepo.WithTx(tx)
		if err := payoutRepo.Create(payout); err != nil {
			return err
		}
		links := make([]models.PayoutCommission, 0, len(rows))
		for _, row := range rows {
			links = append(links, models.PayoutCommission{
				PayoutID:     payout.ID,
				CommissionID: row.ID,
				Amount:       row.NetAmount,
				CreatedAt:    now,
			})
		}
		if err := payoutRepo.CreateLinks(links); err != nil {
			return err
		}
		_, err = commissionRepo.UpdateByIDs(ids, map[string]interface{}{"payout_id": payout.ID})
		return err
	})
	if err != nil {
		logger.Warnw("payout_create_failed", "vendor_id", vendorID, "actor", actor, "error", err)
		return nil, err
	}
	logger.Infow("payout_created",
		"payout_id", payout.ID,
		"payout_no", payout.PayoutNo,
		"vendor_id", vendorID,
		"amount", payout.Amount.String(),
		"net_amount", payout.NetAmount.String(),
		"commission_count", payout.CommissionCount,
	)
	s.publish(ctx, payout)
	return s.payoutRepo.GetByID(payout.ID)
}

// Process 开始处理结算单
func (s *PayoutService) Process(ctx context.Context, id uint, actor string) (*models.Payout, error) {
	return s.transition(ctx, id, constants.PayoutStatusProcessing, actor, "", "")
}

// Complete 结算完成，绑定佣金标记为已付
func (s *PayoutService) Complete(ctx context.Context, id uint, transferReference, actor string) (*models.Payout, error) {
	transferReference = strings.TrimSpace(transferReference)
	if transferReference == "" {
		return nil, withDetails(ErrInvalidInput, map[string]interface{}{"field": "transfer_reference"})
	}
	return s.transition(ctx, id, constants.PayoutStatusCompleted, actor, "", transferReference)
}

// Fail 结算失败，释放绑定佣金
func (s *PayoutService) Fail(ctx context.Context, id uint, reason, actor string) (*models.Payout, error) {
	return s.transition(ctx, id, constants.PayoutStatusFailed, actor, reason, "")
}

// Cancel 取消结算单，释放绑定佣金
func (s *PayoutService) Cancel(ctx context.Context, id uint, reason, actor string) (*models.Payout, error) {
	return s.transition(ctx, id, constants.PayoutStatusCancelled, actor, reason, "")
}

func (s *PayoutService) transition(ctx context.Context, id uint, to, actor, notes, transferReference string) (*models.Payout, error) {
	var locked *models.Payout
	err := s.payoutRepo.Transaction(func(tx *gorm.DB) error {
		payoutRepo := s.payoutRepo.WithTx(tx)
		payout, err := payoutRepo.GetByIDForUpdate(id)
		if err != nil {
			return err
		}
		if payout == nil {
			return ErrPayoutNotFound
		}
		if !allowedPayoutTransitions[payout.Status][to] {
			return withDetails(ErrPayoutStatusInvalid, map[string]interface{}{"from": payout.Status, "to": to})
		}

		now := time.Now().UTC()
		updates := map[string]interface{}{
			"status":       to,
			"processed_by": actor,
			"updated_at":   now,
		}
		if strings.TrimSpace(notes) != "" {
			updates["notes"] = strings.TrimSpace(notes)
		}
		ledger := s.ledger.withTx(tx)
		switch to {
		case constants.PayoutStatusProcessing:
			updates["processing_at"] = now
		case constants.PayoutStatusCompleted:
			updates["completed_at"] = now
			updates["transfer_reference"] = transferReference
			if err := ledger.settleTx(payout, now); err != nil {
				return err
			}
		case constants.PayoutStatusFailed, constants.PayoutStatusCancelled:
			if to == constants.PayoutStatusFailed {
				updates["failed_at"] = now
			} else {
				updates["cancelled_at"] = now
			}
			if err := ledger.releaseTx(payout, now); err != nil {
				return err
			}
		}
		if err := payoutRepo.UpdateFields(payout.ID, updates); err != nil {
			return err
		}
		payout.Status = to
		payout.TransferReference = transferReference
		if note, ok := updates["notes"].(string); ok {
			payout.Notes = note
		}
		locked = payout
		return nil
	})
	if err != nil {
		return nil, err
	}
	logger.Infow("payout_status_changed", "payout_id", id, "to_status", to, "actor", actor)
	s.publish(ctx, locked)
	return s.payoutRepo.GetByID(id)
}

func (s *PayoutService) publish(ctx context.Context, payout *models.Payout) {
	if payout == nil {
		return
	}
	eventType, ok := payoutEventTypes[payout.Status]
	if !ok {
		return
	}
	event := PayoutEvent{
		PayoutID:          payout.ID,
		PayoutNo:          payout.PayoutNo,
		VendorID:          payout.VendorID,
		Status:            payout.Status,
		Amount:            payout.Amount.String(),
		NetAmount:         payout.NetAmount.String(),
		Currency:          payout.Currency,
		CommissionCount:   payout.CommissionCount,
		TransferReference: payout.TransferReference,
		Notes:             payout.Notes,
	}
	if err := s.publisher.Publish(ctx, eventType, event); err != nil {
		logger.Warnw("payout_event_publish_failed", "payout_id", payout.ID, "event", eventType, "error", err)
	}
}

// Get 结算单详情，vendorID 非 0 时只允许查看本商家结算单
func (s *PayoutService) Get(id, vendorID uint) (*models.Payout, error) {
	payout, err := s.payoutRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if payout == nil || (vendorID != 0 && payout.VendorID != vendorID) {
		return nil, ErrPayoutNotFound
	}
	return payout, nil
}

// List 结算单列表
func (s *PayoutService) List(filter repository.PayoutListFilter) ([]models.Payout, int64, error) {
	return s.payoutRepo.List(filter)
}
