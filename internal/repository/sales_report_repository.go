package repository

import (
	"time"

	"github.com/modaplex/internal/constants"
	"github.com/modaplex/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// VendorSalesRow 商家维度的周期销售聚合
type VendorSalesRow struct {
	VendorID         uint
	OrderCount       int64
	ItemsSold        int64
	GrossSales       models.Money
	CommissionAmount models.Money
}

// VendorFeeRow 商家维度的佣金费用聚合
type VendorFeeRow struct {
	VendorID    uint
	PlatformFee models.Money
	NetAmount   models.Money
}

// VendorCountRow 商家维度计数
type VendorCountRow struct {
	VendorID uint
	Total    int64
}

// PlatformSalesRow 平台维度的周期销售聚合
type PlatformSalesRow struct {
	OrderCount     int64
	GrossSales     models.Money
	TaxAmount      models.Money
	ShippingAmount models.Money
	DiscountAmount models.Money
	TotalRevenue   models.Money
}

// SalesReportRepository 销售报表数据访问接口
type SalesReportRepository interface {
	Upsert(reports []models.SalesReport) error
	ReplacePeriod(reportType string, reportDate time.Time, reports []models.SalesReport) error
	List(filter SalesReportFilter) ([]models.SalesReport, int64, error)
	AggregateVendorSales(start, end time.Time) ([]VendorSalesRow, error)
	AggregateVendorFees(start, end time.Time) ([]VendorFeeRow, error)
	CountVendorCancelled(start, end time.Time) ([]VendorCountRow, error)
	AggregatePlatformSales(start, end time.Time) (*PlatformSalesRow, error)
	CountPlatformCancelled(start, end time.Time) (int64, error)
	WithTx(tx *gorm.DB) SalesReportRepository
}

// GormSalesReportRepository GORM 实现
type GormSalesReportRepository struct {
	db *gorm.DB
}

// NewSalesReportRepository 创建报表仓库
func NewSalesReportRepository(db *gorm.DB) *GormSalesReportRepository {
	return &GormSalesReportRepository{db: db}
}

// WithTx 绑定事务
func (r *GormSalesReportRepository) WithTx(tx *gorm.DB) SalesReportRepository {
	if tx == nil {
		return r
	}
	return &GormSalesReportRepository{db: tx}
}

// Upsert 按 (report_type, report_date, vendor_id) 写入或覆盖报表
func (r *GormSalesReportRepository) Upsert(reports []models.SalesReport) error {
	if len(reports) == 0 {
		return nil
	}
	return r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "report_type"}, {Name: "report_date"}, {Name: "vendor_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"period_end", "order_count", "items_sold", "cancelled_orders",
			"gross_sales", "commission_amount", "platform_fee", "net_amount",
			"tax_amount", "shipping_amount", "discount_amount", "total_revenue",
			"average_order_value", "generated_at", "updated_at",
		}),
	}).Create(&reports).Error
}

// ReplacePeriod 在同一事务内清空周期内旧行并写入新行，已无业务的商家不再保留旧数据
func (r *GormSalesReportRepository) ReplacePeriod(reportType string, reportDate time.Time, reports []models.SalesReport) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("report_type = ? AND report_date = ?", reportType, reportDate).
			Delete(&models.SalesReport{}).Error; err != nil {
			return err
		}
		return r.WithTx(tx).Upsert(reports)
	})
}

// List 报表列表
func (r *GormSalesReportRepository) List(filter SalesReportFilter) ([]models.SalesReport, int64, error) {
	query := r.db.Model(&models.SalesReport{})
	if filter.ReportType != "" {
		query = query.Where("report_type = ?", filter.ReportType)
	}
	if filter.VendorID != nil {
		query = query.Where("vendor_id = ?", *filter.VendorID)
	}
	if filter.DateFrom != nil {
		query = query.Where("report_date >= ?", *filter.DateFrom)
	}
	if filter.DateTo != nil {
		query = query.Where("report_date < ?", *filter.DateTo)
	}
	var rows []models.SalesReport
	total, err := countAndFind(query, filter.Page, filter.PageSize, "report_date DESC, vendor_id ASC", &rows)
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// settledOrders 已支付且未取消/退款的订单
func (r *GormSalesReportRepository) settledOrders(query *gorm.DB, alias string, start, end time.Time) *gorm.DB {
	return query.
		Where(alias+".deleted_at IS NULL").
		Where(alias+".created_at >= ? AND "+alias+".created_at < ?", start, end).
		Where(alias+".payment_status = ?", constants.OrderPaymentStatusPaid).
		Where(alias+".status NOT IN ?", []string{constants.OrderStatusCancelled, constants.OrderStatusRefunded})
}

// AggregateVendorSales 聚合商家周期销售
func (r *GormSalesReportRepository) AggregateVendorSales(start, end time.Time) ([]VendorSalesRow, error) {
	query := r.db.Table("order_items AS oi").
		Select("oi.vendor_id AS vendor_id, COUNT(DISTINCT oi.order_id) AS order_count, " +
			"COALESCE(SUM(oi.quantity), 0) AS items_sold, COALESCE(SUM(oi.total_price), 0) AS gross_sales, " +
			"COALESCE(SUM(oi.vendor_commission), 0) AS commission_amount").
		Joins("JOIN orders o ON o.id = oi.order_id").
		Where("oi.deleted_at IS NULL AND oi.status <> ?", constants.OrderItemStatusCancelled)
	var rows []VendorSalesRow
	if err := r.settledOrders(query, "o", start, end).Group("oi.vendor_id").Order("oi.vendor_id ASC").Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// AggregateVendorFees 聚合商家周期佣金费用（排除已取消佣金）
func (r *GormSalesReportRepository) AggregateVendorFees(start, end time.Time) ([]VendorFeeRow, error) {
	query := r.db.Table("commissions AS c").
		Select("c.vendor_id AS vendor_id, COALESCE(SUM(c.platform_fee), 0) AS platform_fee, COALESCE(SUM(c.net_amount), 0) AS net_amount").
		Joins("JOIN orders o ON o.id = c.order_id").
		Where("c.status <> ?", constants.CommissionStatusCancelled)
	var rows []VendorFeeRow
	if err := r.settledOrders(query, "o", start, end).Group("c.vendor_id").Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// CountVendorCancelled 统计商家周期内取消的订单数
func (r *GormSalesReportRepository) CountVendorCancelled(start, end time.Time) ([]VendorCountRow, error) {
	var rows []VendorCountRow
	if err := r.db.Table("order_items AS oi").
		Select("oi.vendor_id AS vendor_id, COUNT(DISTINCT oi.order_id) AS total").
		Joins("JOIN orders o ON o.id = oi.order_id").
		Where("o.deleted_at IS NULL AND oi.deleted_at IS NULL").
		Where("o.created_at >= ? AND o.created_at < ?", start, end).
		Where("o.status = ?", constants.OrderStatusCancelled).
		Group("oi.vendor_id").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// AggregatePlatformSales 聚合平台周期销售
func (r *GormSalesReportRepository) AggregatePlatformSales(start, end time.Time) (*PlatformSalesRow, error) {
	query := r.db.Table("orders AS o").
		Select("COUNT(*) AS order_count, COALESCE(SUM(o.subtotal_amount), 0) AS gross_sales, " +
			"COALESCE(SUM(o.tax_amount), 0) AS tax_amount, COALESCE(SUM(o.shipping_amount), 0) AS shipping_amount, " +
			"COALESCE(SUM(o.discount_amount), 0) AS discount_amount, COALESCE(SUM(o.total_amount), 0) AS total_revenue")
	var row PlatformSalesRow
	if err := r.settledOrders(query, "o", start, end).Scan(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

// CountPlatformCancelled 统计平台周期内取消的订单数
func (r *GormSalesReportRepository) CountPlatformCancelled(start, end time.Time) (int64, error) {
	var total int64
	err := r.db.Model(&models.Order{}).
		Where("created_at >= ? AND created_at < ?", start, end).
		Where("status = ?", constants.OrderStatusCancelled).
		Count(&total).Error
	return total, err
}
