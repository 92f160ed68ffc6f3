package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/modaplex/internal/archive"
	"github.com/modaplex/internal/cache"
	"github.com/modaplex/internal/config"
	"github.com/modaplex/internal/constants"
	"github.com/modaplex/internal/events"
	"github.com/modaplex/internal/logger"
	"github.com/modaplex/internal/models"
	"github.com/modaplex/internal/payment"
	"github.com/modaplex/internal/queue"
	"github.com/modaplex/internal/repository"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	defaultPaymentMethod      = "card"
	defaultWebhookTolerance   = 300 * time.Second
	defaultWebhookLockTimeout = 30 * time.Second
)

// PaymentServiceOptions 支付服务依赖
type PaymentServiceOptions struct {
	OrderRepo     repository.OrderRepository
	PaymentRepo   repository.PaymentRepository
	Tracker       *StatusTracker
	CommissionSvc *CommissionService
	QueueClient   *queue.Client
	Publisher     events.Publisher
	Archive       archive.WebhookArchive
	Gateway       payment.Gateway
	Config        config.PaymentConfig
}

// PaymentService 支付与回调服务
type PaymentService struct {
	orderRepo     repository.OrderRepository
	paymentRepo   repository.PaymentRepository
	tracker       *StatusTracker
	commissionSvc *CommissionService
	queueClient   *queue.Client
	publisher     events.Publisher
	archive       archive.WebhookArchive
	gateway       payment.Gateway
	secret        string
	tolerance     time.Duration
	lockTTL       time.Duration
}

// NewPaymentService 创建支付服务
func NewPaymentService(opts PaymentServiceOptions) *PaymentService {
	s := &PaymentService{
		orderRepo:     opts.OrderRepo,
		paymentRepo:   opts.PaymentRepo,
		tracker:       opts.Tracker,
		commissionSvc: opts.CommissionSvc,
		queueClient:   opts.QueueClient,
		publisher:     opts.Publisher,
		archive:       opts.Archive,
		gateway:       opts.Gateway,
		secret:        strings.TrimSpace(opts.Config.WebhookSecret),
		tolerance:     defaultWebhookTolerance,
		lockTTL:       defaultWebhookLockTimeout,
	}
	if s.publisher == nil {
		s.publisher = events.NoopPublisher{}
	}
	if s.archive == nil {
		s.archive = archive.NoopArchive{}
	}
	if s.gateway == nil {
		s.gateway = payment.PendingGateway{}
	}
	if opts.Config.WebhookToleranceSeconds > 0 {
		s.tolerance = time.Duration(opts.Config.WebhookToleranceSeconds) * time.Second
	}
	if opts.Config.WebhookLockSeconds > 0 {
		s.lockTTL = time.Duration(opts.Config.WebhookLockSeconds) * time.Second
	}
	return s
}

// WebhookInput 回调输入
type WebhookInput struct {
	Body      []byte
	Signature string
	Timestamp string
	Headers   map[string]string
}

// WebhookResult 回调处理结果
type WebhookResult struct {
	Payment   *models.Payment
	Duplicate bool
}

// PaymentEvent 支付结果事件
type PaymentEvent struct {
	PaymentID     uint   `json:"payment_id"`
	OrderID       uint   `json:"order_id"`
	OrderNo       string `json:"order_no"`
	TransactionID string `json:"transaction_id"`
	Amount        string `json:"amount"`
	Currency      string `json:"currency"`
	Status        string `json:"status"`
	Reason        string `json:"reason,omitempty"`
}

func paymentLogger(kv ...interface{}) *zap.SugaredLogger {
	return logger.SW(kv...)
}

// InitiatePayment 为待支付订单发起支付
func (s *PaymentService) InitiatePayment(ctx context.Context, orderNo string, userID uint, method string) (*models.Payment, error) {
	order, err := s.orderRepo.GetByOrderNoAndUser(strings.TrimSpace(orderNo), userID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	if order.PaymentStatus == constants.OrderPaymentStatusPaid {
		return nil, ErrOrderAlreadyPaid
	}
	if isExpiredUnpaid(order, time.Now().UTC()) {
		return nil, ErrOrderExpired
	}
	if order.Status != constants.OrderStatusPending {
		return nil, withDetails(ErrOrderStatusInvalid, map[string]interface{}{"status": order.Status})
	}
	method = strings.ToLower(strings.TrimSpace(method))
	if method == "" {
		method = defaultPaymentMethod
	}

	log := paymentLogger("order_id", order.ID, "order_no", order.OrderNo, "method", method)
	result, err := s.gateway.Charge(ctx, payment.ChargeRequest{
		OrderNo:       order.OrderNo,
		TransactionID: generateTransactionID(),
		Amount:        order.TotalAmount.Decimal,
		Currency:      order.Currency,
		Method:        method,
	})
	if err != nil {
		log.Warnw("payment_gateway_charge_failed", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrPaymentGatewayFailed, err)
	}

	record := &models.Payment{
		OrderID:         order.ID,
		Amount:          order.TotalAmount,
		Currency:        order.Currency,
		Method:          method,
		Status:          constants.PaymentStatusPending,
		TransactionID:   result.TransactionID,
		GatewayResponse: models.JSON(result.Raw),
	}
	if err := s.paymentRepo.Create(record); err != nil {
		return nil, err
	}
	log.Infow("payment_initiated", "payment_id", record.ID, "transaction_id", record.TransactionID)

	if result.Status == payment.StatusSuccess || result.Status == payment.StatusFailed {
		settled, _, err := s.settle(ctx, &payment.WebhookEvent{
			TransactionID: record.TransactionID,
			Status:        result.Status,
			Amount:        order.TotalAmount.Decimal,
			Currency:      order.Currency,
			Raw:           result.Raw,
		})
		if err != nil {
			return nil, err
		}
		return settled, nil
	}
	return record, nil
}

// HandleWebhook 校验并处理支付回调，同一交易的并发回调串行执行
func (s *PaymentService) HandleWebhook(ctx context.Context, input WebhookInput) (*WebhookResult, error) {
	delivery := &archive.WebhookDelivery{
		Timestamp:  strings.TrimSpace(input.Timestamp),
		Signature:  strings.TrimSpace(input.Signature),
		Headers:    input.Headers,
		Body:       string(input.Body),
		ReceivedAt: time.Now().UTC(),
	}
	defer s.recordDelivery(ctx, delivery)

	log := paymentLogger("body_size", len(input.Body))
	if err := payment.VerifySignature(s.secret, input.Timestamp, input.Signature, input.Body, s.tolerance, time.Now()); err != nil {
		delivery.Outcome = archive.OutcomeRejected
		delivery.Error = err.Error()
		log.Warnw("payment_webhook_signature_rejected", "error", err)
		if errors.Is(err, payment.ErrTimestampExpired) {
			return nil, ErrWebhookTimestampExpired
		}
		return nil, ErrWebhookSignatureInvalid
	}
	delivery.Verified = true

	event, err := payment.ParseWebhookEvent(input.Body)
	if err != nil {
		delivery.Outcome = archive.OutcomeRejected
		delivery.Error = err.Error()
		log.Warnw("payment_webhook_payload_invalid", "error", err)
		return nil, withDetails(ErrWebhookPayloadInvalid, map[string]interface{}{"reason": err.Error()})
	}
	delivery.TransactionID = event.TransactionID
	log = log.With("transaction_id", event.TransactionID, "status", event.Status)

	lock, ok, err := cache.TryLock(ctx, "webhook:lock:"+event.TransactionID, s.lockTTL)
	if err != nil || !ok {
		delivery.Outcome = archive.OutcomeFailed
		delivery.Error = ErrWebhookBusy.Error()
		log.Warnw("payment_webhook_lock_unavailable", "error", err)
		return nil, ErrWebhookBusy
	}
	defer func() {
		if err := lock.Unlock(context.Background()); err != nil {
			log.Warnw("payment_webhook_unlock_failed", "error", err)
		}
	}()

	record, duplicate, err := s.settle(ctx, event)
	if err != nil {
		delivery.Outcome = archive.OutcomeFailed
		delivery.Error = err.Error()
		log.Warnw("payment_webhook_process_failed", "error", err)
		return nil, err
	}
	if duplicate {
		delivery.Outcome = archive.OutcomeDuplicate
		log.Infow("payment_webhook_duplicate_ignored", "payment_status", record.Status)
	} else {
		delivery.Outcome = archive.OutcomeProcessed
		log.Infow("payment_webhook_processed", "payment_id", record.ID)
	}
	return &WebhookResult{Payment: record, Duplicate: duplicate}, nil
}

func (s *PaymentService) recordDelivery(ctx context.Context, delivery *archive.WebhookDelivery) {
	if err := s.archive.Record(ctx, delivery); err != nil {
		logger.Warnw("payment_webhook_archive_failed",
			"transaction_id", delivery.TransactionID,
			"outcome", delivery.Outcome,
			"error", err,
		)
	}
}

// settle 在事务内落地支付结果，已终态的支付视为重复回调
func (s *PaymentService) settle(ctx context.Context, event *payment.WebhookEvent) (*models.Payment, bool, error) {
	var (
		record    *models.Payment
		order     *models.Order
		change    *StatusChange
		duplicate bool
		mismatch  error
	)
	err := s.orderRepo.Transaction(func(tx *gorm.DB) error {
		paymentRepo := s.paymentRepo.WithTx(tx)
		orderRepo := s.orderRepo.WithTx(tx)
		locked, err := paymentRepo.GetByTransactionIDForUpdate(event.TransactionID)
		if err != nil {
			return err
		}
		if locked == nil {
			return withDetails(ErrPaymentNotFound, map[string]interface{}{"transaction_id": event.TransactionID})
		}
		record = locked
		if locked.Status != constants.PaymentStatusPending {
			duplicate = true
			return nil
		}
		order, err = orderRepo.GetByIDForUpdate(locked.OrderID)
		if err != nil {
			return err
		}
		if order == nil {
			return ErrOrderNotFound
		}

		now := time.Now().UTC()
		paymentUpdates := map[string]interface{}{
			"callback_at":      now,
			"gateway_response": models.JSON(event.Raw),
			"updated_at":       now,
		}
		status := event.Status
		reason := strings.TrimSpace(event.Reason)
		received := models.NewMoneyFromDecimal(event.Amount)
		if status == payment.StatusSuccess && (!received.Equal(order.TotalAmount) || !locked.Amount.Equal(order.TotalAmount)) {
			status = payment.StatusFailed
			reason = "amount_mismatch"
			mismatch = withDetails(ErrPaymentAmountMismatch, map[string]interface{}{
				"transaction_id": locked.TransactionID,
				"expected":       order.TotalAmount.String(),
				"initiated":      locked.Amount.String(),
				"received":       received.String(),
			})
		}

		if status == payment.StatusSuccess {
			paymentUpdates["status"] = constants.PaymentStatusSuccess
			paymentUpdates["paid_at"] = now
			if err := paymentRepo.UpdateFields(locked.ID, paymentUpdates); err != nil {
				return err
			}
			locked.Status = constants.PaymentStatusSuccess
			locked.PaidAt = &now
			if order.PaymentStatus == constants.OrderPaymentStatusPaid {
				logger.Warnw("payment_order_already_paid", "order_id", order.ID, "payment_id", locked.ID)
				return nil
			}
			if err := orderRepo.UpdateFields(order.ID, map[string]interface{}{
				"payment_status": constants.OrderPaymentStatusPaid,
				"paid_at":        now,
			}); err != nil {
				return err
			}
			order.PaymentStatus = constants.OrderPaymentStatusPaid
			if order.Status != constants.OrderStatusPending {
				logger.Warnw("payment_received_for_closed_order", "order_id", order.ID, "order_status", order.Status)
				return nil
			}
			change, err = s.tracker.applyInTx(tx, order, constants.OrderStatusConfirmed, constants.ActorSystemWebhook, "payment received", now)
			return err
		}

		paymentUpdates["status"] = constants.PaymentStatusFailed
		paymentUpdates["failure_reason"] = reason
		if err := paymentRepo.UpdateFields(locked.ID, paymentUpdates); err != nil {
			return err
		}
		locked.Status = constants.PaymentStatusFailed
		locked.FailureReason = reason
		if order.PaymentStatus == constants.OrderPaymentStatusPaid {
			return nil
		}
		order.PaymentStatus = constants.OrderPaymentStatusFailed
		return orderRepo.UpdateFields(order.ID, map[string]interface{}{"payment_status": constants.OrderPaymentStatusFailed})
	})
	if err != nil {
		return nil, false, err
	}
	if duplicate {
		return record, true, nil
	}

	s.afterSettle(ctx, record, order, change)
	if mismatch != nil {
		return record, false, mismatch
	}
	return record, false, nil
}

func (s *PaymentService) afterSettle(ctx context.Context, record *models.Payment, order *models.Order, change *StatusChange) {
	event := PaymentEvent{
		PaymentID:     record.ID,
		OrderID:       record.OrderID,
		TransactionID: record.TransactionID,
		Amount:        record.Amount.String(),
		Currency:      record.Currency,
		Status:        record.Status,
		Reason:        record.FailureReason,
	}
	if order != nil {
		event.OrderNo = order.OrderNo
	}
	eventType := constants.EventPaymentFailed
	if record.Status == constants.PaymentStatusSuccess {
		eventType = constants.EventPaymentSucceeded
		s.scheduleCommission(ctx, record.OrderID)
	}
	if err := s.publisher.Publish(ctx, eventType, event); err != nil {
		logger.Warnw("payment_event_publish_failed", "payment_id", record.ID, "event", eventType, "error", err)
	}
	s.tracker.publish(ctx, change)
}

// scheduleCommission 队列可用时异步生成佣金，否则同步生成
func (s *PaymentService) scheduleCommission(ctx context.Context, orderID uint) {
	if s.queueClient.Enabled() {
		if err := s.queueClient.EnqueueCommissionGenerate(queue.CommissionGeneratePayload{OrderID: orderID}); err != nil {
			logger.Errorw("commission_generate_enqueue_failed", "order_id", orderID, "error", err)
		}
		return
	}
	if s.commissionSvc == nil {
		return
	}
	if _, err := s.commissionSvc.GenerateForOrder(ctx, orderID); err != nil {
		logger.Errorw("commission_generate_failed", "order_id", orderID, "error", err)
	}
}

// ListByOrder 订单支付记录
func (s *PaymentService) ListByOrder(orderID uint) ([]models.Payment, error) {
	return s.paymentRepo.ListByOrder(orderID)
}

// WebhookDeliveries 查询交易的回调归档
func (s *PaymentService) WebhookDeliveries(ctx context.Context, txnID string) ([]archive.WebhookDelivery, error) {
	txnID = strings.TrimSpace(txnID)
	if txnID == "" {
		return nil, ErrInvalidInput
	}
	return s.archive.ListByTransaction(ctx, txnID)
}

// SignWebhook 生成回调签名，供网关模拟与测试使用
func SignWebhook(secret string, timestamp int64, body []byte) string {
	return payment.ComputeSignature(secret, timestamp, body)
}
