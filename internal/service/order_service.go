package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/modaplex/internal/constants"
	"github.com/modaplex/internal/events"
	"github.com/modaplex/internal/logger"
	"github.com/modaplex/internal/models"
	"github.com/modaplex/internal/queue"
	"github.com/modaplex/internal/repository"

	"gorm.io/gorm"
)

const defaultPaymentExpireMinutes = 30

// OrderServiceOptions 订单服务依赖
type OrderServiceOptions struct {
	OrderRepo            repository.OrderRepository
	HistoryRepo          repository.OrderStatusHistoryRepository
	ProductRepo          repository.ProductRepository
	CartRepo             repository.CartRepository
	PaymentRepo          repository.PaymentRepository
	Tracker              *StatusTracker
	Materializer         *ItemMaterializer
	Rules                TotalsRules
	QueueClient          *queue.Client
	Publisher            events.Publisher
	Currency             string
	PaymentExpireMinutes int
}

// OrderService 订单服务
type OrderService struct {
	orderRepo     repository.OrderRepository
	historyRepo   repository.OrderStatusHistoryRepository
	productRepo   repository.ProductRepository
	cartRepo      repository.CartRepository
	paymentRepo   repository.PaymentRepository
	tracker       *StatusTracker
	materializer  *ItemMaterializer
	rules         TotalsRules
	queueClient   *queue.Client
	publisher     events.Publisher
	currency      string
	expireMinutes int
}

// NewOrderService 创建订单服务
func NewOrderService(opts OrderServiceOptions) *OrderService {
	publisher := opts.Publisher
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	currency := strings.ToUpper(strings.TrimSpace(opts.Currency))
	if currency == "" {
		currency = "USD"
	}
	expire := opts.PaymentExpireMinutes
	if expire <= 0 {
		expire = defaultPaymentExpireMinutes
	}
	return &OrderService{
		orderRepo:     opts.OrderRepo,
		historyRepo:   opts.HistoryRepo,
		productRepo:   opts.ProductRepo,
		cartRepo:      opts.CartRepo,
		paymentRepo:   opts.PaymentRepo,
		tracker:       opts.Tracker,
		materializer:  opts.Materializer,
		rules:         opts.Rules,
		queueClient:   opts.QueueClient,
		publisher:     publisher,
		currency:      currency,
		expireMinutes: expire,
	}
}

// CheckoutInput 结账输入
type CheckoutInput struct {
	UserID          uint
	CustomerEmail   string
	SessionKey      string
	ShippingAddress models.Address
	BillingAddress  *models.Address
	Notes           string
}

// ItemQuantityInput 订单项数量修正输入
type ItemQuantityInput struct {
	OrderID  uint
	ItemID   uint
	Quantity int
	Actor    string
}

// OrderCreatedEvent 订单创建事件
type OrderCreatedEvent struct {
	OrderID       uint   `json:"order_id"`
	OrderNo       string `json:"order_no"`
	UserID        uint   `json:"user_id"`
	VendorIDs     []uint `json:"vendor_ids"`
	IsMultiVendor bool   `json:"is_multi_vendor"`
	TotalAmount   string `json:"total_amount"`
	Currency      string `json:"currency"`
	ItemCount     int    `json:"item_count"`
}

// Checkout 由会话购物车创建订单
func (s *OrderService) Checkout(ctx context.Context, input CheckoutInput) (*models.Order, error) {
	sessionKey := strings.TrimSpace(input.SessionKey)
	if sessionKey == "" {
		return nil, ErrCartSessionRequired
	}
	if input.UserID == 0 {
		return nil, ErrPermissionDenied
	}
	if err := validateAddress(input.ShippingAddress); err != nil {
		return nil, err
	}
	billing := input.ShippingAddress
	if input.BillingAddress != nil {
		if err := validateAddress(*input.BillingAddress); err != nil {
			return nil, err
		}
		billing = *input.BillingAddress
	}

	lines, err := s.cartRepo.ListBySession(sessionKey)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, ErrCartEmpty
	}

	var order *models.Order
	err = s.orderRepo.Transaction(func(tx *gorm.DB) error {
		productRepo := s.productRepo.WithTx(tx)
		products, err := productRepo.ListByIDsForUpdate(cartProductIDs(lines))
		if err != nil {
			return err
		}
		productMap := make(map[uint]*models.Product, len(products))
		remaining := make(map[uint]int, len(products))
		for i := range products {
			productMap[products[i].ID] = &products[i]
			remaining[products[i].ID] = products[i].Stock
		}

		items := make([]models.OrderItem, 0, len(lines))
		for _, line := range lines {
			product, ok := productMap[line.ProductID]
			if !ok {
				return withDetails(ErrProductNotFound, map[string]interface{}{"product_id": line.ProductID})
			}
			item, err := s.materializer.Materialize(MaterializeInput{
				Product:  product,
				Quantity: line.Quantity,
				Size:     line.Size,
				Color:    line.Color,
			})
			if err != nil {
				return err
			}
			affected, err := productRepo.DecrementStock(product.ID, line.Quantity)
			if err != nil {
				return err
			}
			if affected == 0 {
				return insufficientStockError(product, line.Quantity, remaining[product.ID])
			}
			remaining[product.ID] -= line.Quantity
			items = append(items, item)
		}

		totals, err := CalculateTotals(items, models.ZeroMoney(), s.rules)
		if err != nil {
			return err
		}
		now := time.Now().UTC()
		expiresAt := now.Add(time.Duration(s.expireMinutes) * time.Minute)
		order = &models.Order{
			OrderNo:         generateOrderNo(),
			UserID:          input.UserID,
			Status:          constants.OrderStatusPending,
			PaymentStatus:   constants.OrderPaymentStatusUnpaid,
			IsMultiVendor:   len(distinctVendorIDs(items)) > 1,
			Currency:        s.currency,
			ShippingAddress: input.ShippingAddress.ToJSON(),
			BillingAddress:  billing.ToJSON(),
			CustomerEmail:   strings.TrimSpace(input.CustomerEmail),
			Notes:           strings.TrimSpace(input.Notes),
			ExpiresAt:       &expiresAt,
		}
		applyTotals(order, totals)

		orderRepo := s.orderRepo.WithTx(tx)
		if err := orderRepo.Create(order, items); err != nil {
			return err
		}
		if err := s.historyRepo.WithTx(tx).Create(&models.OrderStatusHistory{
			OrderID:    order.ID,
			FromStatus: "",
			ToStatus:   constants.OrderStatusPending,
			ChangedBy:  userActor(input.UserID),
			Notes:      "order created",
			CreatedAt:  now,
		}); err != nil {
			return err
		}
		if err := ReconcileTotals(order, order.Items); err != nil {
			return err
		}
		return s.cartRepo.WithTx(tx).ClearSession(sessionKey)
	})
	if err != nil {
		return nil, err
	}

	logger.Infow("order_created",
		"order_id", order.ID,
		"order_no", order.OrderNo,
		"user_id", order.UserID,
		"item_count", len(order.Items),
		"total_amount", order.TotalAmount.String(),
	)
	s.scheduleTimeoutCancel(order)
	s.publishCreated(ctx, order)
	return s.orderRepo.GetByID(order.ID)
}

func (s *OrderService) scheduleTimeoutCancel(order *models.Order) {
	if !s.queueClient.Enabled() {
		logger.Warnw("order_timeout_cancel_not_scheduled", "order_id", order.ID, "reason", "queue_disabled")
		return
	}
	delay := time.Until(*order.ExpiresAt)
	if err := s.queueClient.EnqueueOrderTimeoutCancel(queue.OrderTimeoutCancelPayload{OrderID: order.ID}, delay); err != nil {
		logger.Warnw("order_timeout_cancel_enqueue_failed", "order_id", order.ID, "error", err)
	}
}

func (s *OrderService) publishCreated(ctx context.Context, order *models.Order) {
	event := OrderCreatedEvent{
		OrderID:       order.ID,
		OrderNo:       order.OrderNo,
		UserID:        order.UserID,
		VendorIDs:     distinctVendorIDs(order.Items),
		IsMultiVendor: order.IsMultiVendor,
		TotalAmount:   order.TotalAmount.String(),
		Currency:      order.Currency,
		ItemCount:     len(order.Items),
	}
	if err := s.publisher.Publish(ctx, constants.EventOrderCreated, event); err != nil {
		logger.Warnw("order_event_publish_failed", "order_id", order.ID, "event", constants.EventOrderCreated, "error", err)
	}
}

// CancelExpiredOrder 超时未支付订单自动取消，非待支付状态直接跳过
func (s *OrderService) CancelExpiredOrder(ctx context.Context, orderID uint) (bool, error) {
	var change *StatusChange
	err := s.orderRepo.Transaction(func(tx *gorm.DB) error {
		order, err := s.orderRepo.WithTx(tx).GetByIDForUpdate(orderID)
		if err != nil {
			return err
		}
		if order == nil {
			return ErrOrderNotFound
		}
		now := time.Now().UTC()
		if !isExpiredUnpaid(order, now) {
			return nil
		}
		change, err = s.tracker.applyInTx(tx, order, constants.OrderStatusCancelled, constants.ActorSystemTimeout, "payment timeout", now)
		return err
	})
	if err != nil {
		return false, err
	}
	if change == nil {
		return false, nil
	}
	logger.Infow("order_timeout_cancelled", "order_id", change.OrderID, "order_no", change.OrderNo)
	s.tracker.publish(ctx, change)
	return true, nil
}

func isExpiredUnpaid(order *models.Order, now time.Time) bool {
	if order == nil || order.ExpiresAt == nil {
		return false
	}
	if order.Status != constants.OrderStatusPending || order.PaymentStatus == constants.OrderPaymentStatusPaid {
		return false
	}
	return !order.ExpiresAt.After(now)
}

// expireIfDue 读取时惰性关闭已过期订单
func (s *OrderService) expireIfDue(ctx context.Context, order *models.Order) (*models.Order, error) {
	if !isExpiredUnpaid(order, time.Now().UTC()) {
		return order, nil
	}
	cancelled, err := s.CancelExpiredOrder(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	if !cancelled {
		return order, nil
	}
	return s.orderRepo.GetByID(order.ID)
}

// UpdateItemQuantity 修正待支付订单的订单项数量，金额依据快照重算
func (s *OrderService) UpdateItemQuantity(ctx context.Context, input ItemQuantityInput) (*models.Order, error) {
	if input.Quantity <= 0 {
		return nil, ErrInvalidQuantity
	}
	err := s.orderRepo.Transaction(func(tx *gorm.DB) error {
		orderRepo := s.orderRepo.WithTx(tx)
		order, err := s.lockEditableOrder(tx, input.OrderID)
		if err != nil {
			return err
		}
		item, err := orderRepo.GetItemForUpdate(input.ItemID)
		if err != nil {
			return err
		}
		if item == nil || item.OrderID != order.ID {
			return ErrOrderItemNotFound
		}
		if item.Status != constants.OrderItemStatusPending {
			return withDetails(ErrOrderNotEditable, map[string]interface{}{"item_status": item.Status})
		}
		diff := input.Quantity - item.Quantity
		if diff == 0 {
			return nil
		}
		if err := s.adjustStock(tx, item, diff); err != nil {
			return err
		}
		if err := RecomputeItemQuantity(item, input.Quantity); err != nil {
			return err
		}
		if err := orderRepo.UpdateItemFields(item.ID, map[string]interface{}{
			"quantity":          item.Quantity,
			"total_price":       item.TotalPrice,
			"vendor_commission": item.VendorCommission,
			"updated_at":        time.Now().UTC(),
		}); err != nil {
			return err
		}
		return s.recomputeInTx(orderRepo, order, order.DiscountAmount)
	})
	if err != nil {
		return nil, err
	}
	logger.Infow("order_item_quantity_updated",
		"order_id", input.OrderID,
		"item_id", input.ItemID,
		"quantity", input.Quantity,
		"actor", input.Actor,
	)
	return s.orderRepo.GetByID(input.OrderID)
}

func (s *OrderService) adjustStock(tx *gorm.DB, item *models.OrderItem, diff int) error {
	productRepo := s.productRepo.WithTx(tx)
	if diff < 0 {
		if item.ProductID == nil {
			return nil
		}
		return productRepo.IncrementStock(*item.ProductID, -diff)
	}
	if item.ProductID == nil {
		return withDetails(ErrProductNotFound, map[string]interface{}{"sku": item.SKU})
	}
	affected, err := productRepo.DecrementStock(*item.ProductID, diff)
	if err != nil {
		return err
	}
	if affected == 0 {
		product, err := productRepo.GetByID(*item.ProductID)
		if err != nil {
			return err
		}
		available := 0
		if product != nil {
			available = product.Stock
		}
		return insufficientStockError(product, diff, available)
	}
	return nil
}

// SetDiscount 设置待支付订单的优惠金额并重算
func (s *OrderService) SetDiscount(ctx context.Context, orderID uint, discount models.Money, actor string) (*models.Order, error) {
	if discount.IsNegative() {
		return nil, ErrDiscountInvalid
	}
	err := s.orderRepo.Transaction(func(tx *gorm.DB) error {
		orderRepo := s.orderRepo.WithTx(tx)
		order, err := s.lockEditableOrder(tx, orderID)
		if err != nil {
			return err
		}
		return s.recomputeInTx(orderRepo, order, discount)
	})
	if err != nil {
		return nil, err
	}
	logger.Infow("order_discount_updated", "order_id", orderID, "discount_amount", discount.String(), "actor", actor)
	return s.orderRepo.GetByID(orderID)
}

// Recompute 由持久化订单项重算订单金额，可重复执行
func (s *OrderService) Recompute(ctx context.Context, orderID uint) (*models.Order, error) {
	err := s.orderRepo.Transaction(func(tx *gorm.DB) error {
		orderRepo := s.orderRepo.WithTx(tx)
		order, err := orderRepo.GetByIDForUpdate(orderID)
		if err != nil {
			return err
		}
		if order == nil {
			return ErrOrderNotFound
		}
		return s.recomputeInTx(orderRepo, order, order.DiscountAmount)
	})
	if err != nil {
		return nil, err
	}
	return s.orderRepo.GetByID(orderID)
}

// Reconcile 校验订单金额
func (s *OrderService) Reconcile(ctx context.Context, orderID uint) (*models.Order, error) {
	order, err := s.orderRepo.GetByID(orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	if err := ReconcileTotals(order, order.Items); err != nil {
		logger.Warnw("order_totals_mismatch", "order_id", order.ID, "order_no", order.OrderNo)
		return nil, err
	}
	return order, nil
}

// lockEditableOrder 锁定可修改的订单：待支付、未付款且没有进行中的支付
func (s *OrderService) lockEditableOrder(tx *gorm.DB, orderID uint) (*models.Order, error) {
	order, err := s.orderRepo.WithTx(tx).GetByIDForUpdate(orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	if order.Status != constants.OrderStatusPending || order.PaymentStatus == constants.OrderPaymentStatusPaid {
		return nil, withDetails(ErrOrderNotEditable, map[string]interface{}{
			"status":         order.Status,
			"payment_status": order.PaymentStatus,
		})
	}
	if s.paymentRepo != nil {
		pending, err := s.paymentRepo.WithTx(tx).CountByOrderStatus(order.ID, constants.PaymentStatusPending)
		if err != nil {
			return nil, err
		}
		if pending > 0 {
			return nil, withDetails(ErrOrderPaymentPending, map[string]interface{}{"order_no": order.OrderNo, "pending_payments": pending})
		}
	}
	return order, nil
}

func (s *OrderService) recomputeInTx(orderRepo repository.OrderRepository, order *models.Order, discount models.Money) error {
	return recomputeOrderTx(orderRepo, order, discount, s.rules)
}

// ListForUser 顾客订单列表
func (s *OrderService) ListForUser(filter repository.OrderListFilter) ([]models.Order, int64, error) {
	return s.orderRepo.ListByUser(filter)
}

// GetForUser 顾客订单详情
func (s *OrderService) GetForUser(ctx context.Context, orderNo string, userID uint) (*models.Order, error) {
	order, err := s.orderRepo.GetByOrderNoAndUser(strings.TrimSpace(orderNo), userID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	return s.expireIfDue(ctx, order)
}

// ListAdmin 管理端订单列表，vendorID 非 0 时仅返回本商家订单项
func (s *OrderService) ListAdmin(filter repository.OrderListFilter) ([]models.Order, int64, error) {
	return s.orderRepo.ListAdmin(filter)
}

// GetAdmin 管理端订单详情，商家视角仅保留本商家订单项
func (s *OrderService) GetAdmin(ctx context.Context, orderID, vendorID uint) (*models.Order, error) {
	order, err := s.orderRepo.GetByID(orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	order, err = s.expireIfDue(ctx, order)
	if err != nil {
		return nil, err
	}
	if vendorID == 0 {
		return order, nil
	}
	scoped := make([]models.OrderItem, 0, len(order.Items))
	for _, item := range order.Items {
		if item.VendorID == vendorID {
			scoped = append(scoped, item)
		}
	}
	if len(scoped) == 0 {
		return nil, ErrOrderNotFound
	}
	order.Items = scoped
	return order, nil
}

func validateAddress(address models.Address) error {
	missing := make([]string, 0)
	if strings.TrimSpace(address.FullName) == "" {
		missing = append(missing, "full_name")
	}
	if strings.TrimSpace(address.Line1) == "" {
		missing = append(missing, "line1")
	}
	if strings.TrimSpace(address.City) == "" {
		missing = append(missing, "city")
	}
	if strings.TrimSpace(address.PostalCode) == "" {
		missing = append(missing, "postal_code")
	}
	if strings.TrimSpace(address.Country) == "" {
		missing = append(missing, "country")
	}
	if len(missing) > 0 {
		return withDetails(ErrAddressInvalid, map[string]interface{}{"missing": missing})
	}
	return nil
}

func insufficientStockError(product *models.Product, requested, available int) error {
	details := map[string]interface{}{
		"requested": requested,
		"available": available,
	}
	if product != nil {
		details["product_id"] = product.ID
		details["sku"] = product.SKU
	}
	return withDetails(ErrInsufficientStock, details)
}

func cartProductIDs(lines []models.CartItem) []uint {
	seen := make(map[uint]struct{}, len(lines))
	ids := make([]uint, 0, len(lines))
	for _, line := range lines {
		if _, ok := seen[line.ProductID]; ok {
			continue
		}
		seen[line.ProductID] = struct{}{}
		ids = append(ids, line.ProductID)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func activeItems(items []models.OrderItem) []models.OrderItem {
	result := make([]models.OrderItem, 0, len(items))
	for _, item := range items {
		if item.Status != constants.OrderItemStatusCancelled {
			result = append(result, item)
		}
	}
	return result
}

func distinctVendorIDs(items []models.OrderItem) []uint {
	seen := make(map[uint]struct{}, len(items))
	ids := make([]uint, 0, len(items))
	for _, item := range items {
		if _, ok := seen[item.VendorID]; ok {
			continue
		}
		seen[item.VendorID] = struct{}{}
		ids = append(ids, item.VendorID)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
