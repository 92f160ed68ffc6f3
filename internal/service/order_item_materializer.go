package service

import (
	"strings"

	"github.com/modaplex/internal/constants"
	"github.com/modaplex/internal/models"
)

// MaterializeInput 下单行输入
type MaterializeInput struct {
	Product  *models.Product
	Quantity int
	Size     string
	Color    string
}

// ItemMaterializer 在下单时把商品/商家/价格/分成比例快照到订单项
type ItemMaterializer struct {
	rates *RateResolver
}

// NewItemMaterializer 创建订单项快照器
func NewItemMaterializer(rates *RateResolver) *ItemMaterializer {
	return &ItemMaterializer{rates: rates}
}

// Materialize 生成订单项快照，仅在订单创建时调用
func (m *ItemMaterializer) Materialize(input MaterializeInput) (models.OrderItem, error) {
	product := input.Product
	if product == nil {
		return models.OrderItem{}, ErrProductNotFound
	}
	if !product.IsActive {
		return models.OrderItem{}, ErrProductNotAvailable
	}
	if input.Quantity <= 0 {
		return models.OrderItem{}, ErrInvalidQuantity
	}
	if !product.Price.IsPositive() {
		return models.OrderItem{}, ErrProductPriceInvalid
	}
	size := strings.TrimSpace(input.Size)
	color := strings.TrimSpace(input.Color)
	if err := validateVariant(product, size, color); err != nil {
		return models.OrderItem{}, err
	}
	rate, source, err := m.rates.Resolve(product)
	if err != nil {
		return models.OrderItem{}, err
	}

	productID := product.ID
	item := models.OrderItem{
		ProductID:            &productID,
		ProductName:          product.Name,
		SKU:                  product.SKU,
		BrandName:            product.Brand.Name,
		Size:                 size,
		Color:                color,
		UnitPrice:            product.Price,
		Quantity:             input.Quantity,
		VendorID:             product.Brand.VendorID,
		VendorName:           product.Brand.Vendor.Name,
		VendorCommissionRate: rate,
		CommissionRateSource: source,
		Status:               constants.OrderItemStatusPending,
	}
	applyItemAmounts(&item)
	return item, nil
}

// RecomputeItemQuantity 修改数量后仅依据快照单价与快照比例重算金额
func RecomputeItemQuantity(item *models.OrderItem, quantity int) error {
	if item == nil {
		return ErrOrderItemNotFound
	}
	if quantity <= 0 {
		return ErrInvalidQuantity
	}
	item.Quantity = quantity
	applyItemAmounts(item)
	return nil
}

func applyItemAmounts(item *models.OrderItem) {
	item.TotalPrice = item.UnitPrice.MulInt(item.Quantity)
	item.VendorCommission = item.TotalPrice.Percent(item.VendorCommissionRate)
}

func validateVariant(product *models.Product, size, color string) error {
	if len(product.Sizes) > 0 && !product.Sizes.Contains(size) {
		return withDetails(ErrVariantInvalid, map[string]interface{}{"size": size})
	}
	if len(product.Colors) > 0 && !product.Colors.Contains(color) {
		return withDetails(ErrVariantInvalid, map[string]interface{}{"color": color})
	}
	return nil
}
