package service

import (
	"github.com/modaplex/internal/config"
	"github.com/modaplex/internal/constants"
	"github.com/modaplex/internal/models"
	"github.com/modaplex/internal/repository"

	"github.com/shopspring/decimal"
)

// TotalsRules 订单金额规则
type TotalsRules struct {
	TaxRatePercent        decimal.Decimal
	FlatShippingFee       decimal.Decimal
	FreeShippingThreshold decimal.Decimal
}

// TotalsRulesFromConfig 从订单配置读取金额规则
func TotalsRulesFromConfig(cfg config.OrderConfig) TotalsRules {
	return TotalsRules{
		TaxRatePercent:        cfg.TaxRatePercent,
		FlatShippingFee:       cfg.FlatShippingFee,
		FreeShippingThreshold: cfg.FreeShippingThreshold,
	}
}

// Totals 订单金额汇总
type Totals struct {
	Subtotal models.Money `json:"subtotal_amount"`
	Tax      models.Money `json:"tax_amount"`
	Shipping models.Money `json:"shipping_amount"`
	Discount models.Money `json:"discount_amount"`
	Total    models.Money `json:"total_amount"`
}

// CalculateTotals 由订单项推导小计、税费、运费、优惠与总额，已取消的订单项不计入
func CalculateTotals(items []models.OrderItem, discount models.Money, rules TotalsRules) (Totals, error) {
	if discount.IsNegative() {
		return Totals{}, ErrDiscountInvalid
	}
	subtotal := models.ZeroMoney()
	vendors := make(map[uint]struct{})
	for _, item := range items {
		if item.Status == constants.OrderItemStatusCancelled {
			continue
		}
		subtotal = subtotal.Add(item.TotalPrice)
		vendors[item.VendorID] = struct{}{}
	}
	if discount.GreaterThan(subtotal.Decimal) {
		discount = subtotal
	}
	taxable := subtotal.Sub(discount)
	tax := taxable.Percent(rules.TaxRatePercent)

	shipping := models.ZeroMoney()
	freeShipping := rules.FreeShippingThreshold.IsPositive() && subtotal.GreaterThanOrEqual(rules.FreeShippingThreshold)
	if !freeShipping && len(vendors) > 0 {
		shipping = models.NewMoneyFromDecimal(rules.FlatShippingFee).MulInt(len(vendors))
	}

	return Totals{
		Subtotal: subtotal,
		Tax:      tax,
		Shipping: shipping,
		Discount: discount,
		Total:    subtotal.Add(tax).Add(shipping).Sub(discount),
	}, nil
}

// ReconcileTotals 校验订单持久化金额与订单项一致
func ReconcileTotals(order *models.Order, items []models.OrderItem) error {
	if order == nil {
		return ErrOrderNotFound
	}
	itemSum := models.ZeroMoney()
	for _, item := range items {
		if item.Status == constants.OrderItemStatusCancelled {
			continue
		}
		itemSum = itemSum.Add(item.TotalPrice)
	}
	expectedTotal := order.SubtotalAmount.Add(order.TaxAmount).Add(order.ShippingAmount).Sub(order.DiscountAmount)
	if !itemSum.Equal(order.SubtotalAmount) || !expectedTotal.Equal(order.TotalAmount) {
		return withDetails(ErrOrderTotalsMismatch, map[string]interface{}{
			"order_no":        order.OrderNo,
			"items_subtotal":  itemSum.String(),
			"subtotal_amount": order.SubtotalAmount.String(),
			"expected_total":  expectedTotal.String(),
			"total_amount":    order.TotalAmount.String(),
		})
	}
	return nil
}

// recomputeOrderTx 由持久化订单项重算订单金额并写回，order 必须已加锁
func recomputeOrderTx(orderRepo repository.OrderRepository, order *models.Order, discount models.Money, rules TotalsRules) error {
	items, err := orderRepo.ListItems(order.ID)
	if err != nil {
		return err
	}
	totals, err := CalculateTotals(items, discount, rules)
	if err != nil {
		return err
	}
	updates := totalsUpdates(totals)
	updates["is_multi_vendor"] = len(distinctVendorIDs(activeItems(items))) > 1
	if err := orderRepo.UpdateFields(order.ID, updates); err != nil {
		return err
	}
	applyTotals(order, totals)
	return ReconcileTotals(order, items)
}

func applyTotals(order *models.Order, totals Totals) {
	order.SubtotalAmount = totals.Subtotal
	order.TaxAmount = totals.Tax
	order.ShippingAmount = totals.Shipping
	order.DiscountAmount = totals.Discount
	order.TotalAmount = totals.Total
}

func totalsUpdates(totals Totals) map[string]interface{} {
	return map[string]interface{}{
		"subtotal_amount": totals.Subtotal,
		"tax_amount":      totals.Tax,
		"shipping_amount": totals.Shipping,
		"discount_amount": totals.Discount,
		"total_amount":    totals.Total,
	}
}
