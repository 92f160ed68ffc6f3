package models

import "time"

// SalesReport 销售汇总报表，(report_type, report_date, vendor_id) 唯一，vendor_id=0 为平台汇总
type SalesReport struct {
	ID                uint      `gorm:"primarykey" json:"id"`                                                                      // 主键
	ReportType        string    `gorm:"type:varchar(20);not null;uniqueIndex:idx_sales_report_key" json:"report_type"`             // 周期类型
	ReportDate        time.Time `gorm:"not null;uniqueIndex:idx_sales_report_key" json:"report_date"`                              // 周期起始日
	VendorID          uint      `gorm:"not null;default:0;uniqueIndex:idx_sales_report_key;index" json:"vendor_id"`                // 商家ID（0 表示平台）
	PeriodEnd         time.Time `gorm:"not null" json:"period_end"`                                                                // 周期结束（不含）
	OrderCount        int64     `gorm:"not null;default:0" json:"order_count"`                                                     // 订单数
	ItemsSold         int64     `gorm:"not null;default:0" json:"items_sold"`                                                      // 售出件数
	CancelledOrders   int64     `gorm:"not null;default:0" json:"cancelled_orders"`                                                // 取消订单数
	GrossSales        Money     `gorm:"type:decimal(20,2);not null;default:0" json:"gross_sales"`                                  // 商品成交额
	CommissionAmount  Money     `gorm:"type:decimal(20,2);not null;default:0" json:"commission_amount"`                            // 商家分成
	PlatformFee       Money     `gorm:"type:decimal(20,2);not null;default:0" json:"platform_fee"`                                 // 平台服务费
	NetAmount         Money     `gorm:"type:decimal(20,2);not null;default:0" json:"net_amount"`                                   // 商家净收入
	TaxAmount         Money     `gorm:"type:decimal(20,2);not null;default:0" json:"tax_amount"`                                   // 税费（平台行）
	ShippingAmount    Money     `gorm:"type:decimal(20,2);not null;default:0" json:"shipping_amount"`                              // 运费（平台行）
	DiscountAmount    Money     `gorm:"type:decimal(20,2);not null;default:0" json:"discount_amount"`                              // 优惠（平台行）
	TotalRevenue      Money     `gorm:"type:decimal(20,2);not null;default:0" json:"total_revenue"`                                // 订单总额（平台行）
	AverageOrderValue Money     `gorm:"type:decimal(20,2);not null;default:0" json:"average_order_value"`                          // 客单价
	GeneratedAt       time.Time `gorm:"not null" json:"generated_at"`                                                              // 生成时间
	CreatedAt         time.Time `json:"created_at"`                                                                                // 创建时间
	UpdatedAt         time.Time `json:"updated_at"`                                                                                // 更新时间
}

// TableName 指定表名
func (SalesReport) TableName() string {
	return "sales_reports"
}
