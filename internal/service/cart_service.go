package service

import (
	"context"
	"strings"
	"time"

	"github.com/modaplex/internal/constants"
	"github.com/modaplex/internal/logger"
	"github.com/modaplex/internal/models"
	"github.com/modaplex/internal/repository"

	"github.com/google/uuid"
)

const defaultMaxCartQuantity = 99

// CartService 会话购物车服务
type CartService struct {
	cartRepo    repository.CartRepository
	productRepo repository.ProductRepository
	maxQuantity int
}

// NewCartService 创建购物车服务
func NewCartService(cartRepo repository.CartRepository, productRepo repository.ProductRepository, maxQuantity int) *CartService {
	if maxQuantity <= 0 {
		maxQuantity = defaultMaxCartQuantity
	}
	return &CartService{
		cartRepo:    cartRepo,
		productRepo: productRepo,
		maxQuantity: maxQuantity,
	}
}

// AddCartItemInput 加购输入
type AddCartItemInput struct {
	SessionKey string
	UserID     uint
	ProductID  uint
	Quantity   int
	Size       string
	Color      string
}

// CartLine 购物车行
type CartLine struct {
	ID          uint         `json:"id"`
	ProductID   uint         `json:"product_id"`
	ProductName string       `json:"product_name"`
	Slug        string       `json:"slug"`
	BrandName   string       `json:"brand_name"`
	VendorID    uint         `json:"vendor_id"`
	VendorName  string       `json:"vendor_name"`
	Size        string       `json:"size"`
	Color       string       `json:"color"`
	UnitPrice   models.Money `json:"unit_price"`
	Quantity    int          `json:"quantity"`
	LineTotal   models.Money `json:"line_total"`
	Available   bool         `json:"available"`
}

// CartView 购物车视图
type CartView struct {
	Items     []CartLine   `json:"items"`
	ItemCount int          `json:"item_count"`
	Subtotal  models.Money `json:"subtotal"`
}

// NewSessionKey 生成购物车会话标识
func NewSessionKey() string {
	return uuid.NewString()
}

// Get 获取会话购物车
func (s *CartService) Get(sessionKey string) (*CartView, error) {
	sessionKey = strings.TrimSpace(sessionKey)
	if sessionKey == "" {
		return nil, ErrCartSessionRequired
	}
	items, err := s.cartRepo.ListBySession(sessionKey)
	if err != nil {
		return nil, err
	}
	view := &CartView{Items: make([]CartLine, 0, len(items)), Subtotal: models.ZeroMoney()}
	for _, item := range items {
		line := CartLine{
			ID:        item.ID,
			ProductID: item.ProductID,
			Size:      item.Size,
			Color:     item.Color,
			Quantity:  item.Quantity,
			UnitPrice: models.ZeroMoney(),
			LineTotal: models.ZeroMoney(),
		}
		if product := item.Product; product != nil {
			line.ProductName = product.Name
			line.Slug = product.Slug
			line.UnitPrice = product.Price
			line.LineTotal = product.Price.MulInt(item.Quantity)
			line.Available = isPurchasable(product) && product.Stock >= item.Quantity
			if product.Brand != nil {
				line.BrandName = product.Brand.Name
				line.VendorID = product.Brand.VendorID
				if product.Brand.Vendor != nil {
					line.VendorName = product.Brand.Vendor.Name
				}
			}
		}
		view.Items = append(view.Items, line)
		view.ItemCount += item.Quantity
		view.Subtotal = view.Subtotal.Add(line.LineTotal)
	}
	return view, nil
}

// AddItem 加入购物车，同款同规格合并数量
func (s *CartService) AddItem(ctx context.Context, input AddCartItemInput) (*CartView, error) {
	sessionKey := strings.TrimSpace(input.SessionKey)
	if sessionKey == "" {
		return nil, ErrCartSessionRequired
	}
	if input.Quantity <= 0 {
		return nil, ErrInvalidQuantity
	}
	product, err := s.productRepo.GetByID(input.ProductID)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, ErrProductNotFound
	}
	if !isPurchasable(product) {
		return nil, ErrProductNotAvailable
	}
	size := strings.TrimSpace(input.Size)
	color := strings.TrimSpace(input.Color)
	if err := validateVariant(product, size, color); err != nil {
		return nil, err
	}

	existing, err := s.cartRepo.GetVariant(sessionKey, product.ID, size, color)
	if err != nil {
		return nil, err
	}
	quantity := input.Quantity
	if existing != nil {
		quantity += existing.Quantity
	}
	if err := s.checkQuantity(product, quantity); err != nil {
		return nil, err
	}
	if existing != nil {
		if err := s.cartRepo.UpdateQuantity(existing.ID, quantity); err != nil {
			return nil, err
		}
	} else {
		if err := s.cartRepo.Create(&models.CartItem{
			SessionKey: sessionKey,
			UserID:     input.UserID,
			ProductID:  product.ID,
			Size:       size,
			Color:      color,
			Quantity:   quantity,
		}); err != nil {
			return nil, err
		}
	}
	if input.UserID != 0 {
		if err := s.cartRepo.AttachUser(sessionKey, input.UserID); err != nil {
			logger.Warnw("cart_attach_user_failed", "user_id", input.UserID, "error", err)
		}
	}
	return s.Get(sessionKey)
}

// UpdateItem 修改购物车项数量
func (s *CartService) UpdateItem(ctx context.Context, sessionKey string, itemID uint, quantity int) (*CartView, error) {
	sessionKey = strings.TrimSpace(sessionKey)
	if sessionKey == "" {
		return nil, ErrCartSessionRequired
	}
	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}
	item, err := s.cartRepo.GetBySessionAndID(sessionKey, itemID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, ErrCartItemNotFound
	}
	if item.Product == nil {
		return nil, ErrProductNotAvailable
	}
	if err := s.checkQuantity(item.Product, quantity); err != nil {
		return nil, err
	}
	if err := s.cartRepo.UpdateQuantity(item.ID, quantity); err != nil {
		return nil, err
	}
	return s.Get(sessionKey)
}

// RemoveItem 删除购物车项
func (s *CartService) RemoveItem(ctx context.Context, sessionKey string, itemID uint) (*CartView, error) {
	sessionKey = strings.TrimSpace(sessionKey)
	if sessionKey == "" {
		return nil, ErrCartSessionRequired
	}
	affected, err := s.cartRepo.Delete(sessionKey, itemID)
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, ErrCartItemNotFound
	}
	return s.Get(sessionKey)
}

// SweepAbandoned 清理超过保留时长未更新的购物车项
func (s *CartService) SweepAbandoned(ctx context.Context, now time.Time, abandonedAfter time.Duration) (int64, error) {
	if abandonedAfter <= 0 {
		return 0, nil
	}
	deleted, err := s.cartRepo.DeleteStale(now.UTC().Add(-abandonedAfter))
	if err != nil {
		return 0, err
	}
	if deleted > 0 {
		logger.Infow("cart_abandoned_swept", "deleted", deleted)
	}
	return deleted, nil
}

func (s *CartService) checkQuantity(product *models.Product, quantity int) error {
	if quantity > s.maxQuantity {
		return withDetails(ErrInvalidQuantity, map[string]interface{}{"max_quantity": s.maxQuantity})
	}
	if quantity > product.Stock {
		return insufficientStockError(product, quantity, product.Stock)
	}
	return nil
}

func isPurchasable(product *models.Product) bool {
	if product == nil || !product.IsActive || product.Brand == nil || !product.Brand.IsActive {
		return false
	}
	vendor := product.Brand.Vendor
	return vendor == nil || vendor.Status == constants.VendorStatusActive
}
