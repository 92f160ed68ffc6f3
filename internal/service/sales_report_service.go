package service

import (
	"context"
	"strings"
	"time"

	"github.com/modaplex/internal/constants"
	"github.com/modaplex/internal/logger"
	"github.com/modaplex/internal/models"
	"github.com/modaplex/internal/repository"

	"github.com/shopspring/decimal"
)

// SalesReportService 销售报表汇总服务
type SalesReportService struct {
	reportRepo repository.SalesReportRepository
}

// NewSalesReportService 创建报表服务
func NewSalesReportService(reportRepo repository.SalesReportRepository) *SalesReportService {
	return &SalesReportService{reportRepo: reportRepo}
}

// PeriodBounds 计算报表周期 [start, end)，按 UTC 切分
func PeriodBounds(reportType string, date time.Time) (time.Time, time.Time, error) {
	d := date.UTC()
	day := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
	switch strings.ToLower(strings.TrimSpace(reportType)) {
	case constants.ReportTypeDaily:
		return day, day.AddDate(0, 0, 1), nil
	case constants.ReportTypeWeekly:
		offset := (int(day.Weekday()) + 6) % 7
		start := day.AddDate(0, 0, -offset)
		return start, start.AddDate(0, 0, 7), nil
	case constants.ReportTypeMonthly:
		start := time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, time.UTC)
		return start, start.AddDate(0, 1, 0), nil
	case constants.ReportTypeYearly:
		start := time.Date(d.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
		return start, start.AddDate(1, 0, 0), nil
	default:
		return time.Time{}, time.Time{}, withDetails(ErrReportTypeInvalid, map[string]interface{}{"report_type": reportType})
	}
}

// ParseReportDate 解析 YYYY-MM-DD 格式日期
func ParseReportDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Now().UTC(), nil
	}
	date, err := time.ParseInLocation("2006-01-02", raw, time.UTC)
	if err != nil {
		return time.Time{}, withDetails(ErrReportDateInvalid, map[string]interface{}{"date": raw})
	}
	return date, nil
}

// Generate 生成（或覆盖）指定周期的平台与商家报表
func (s *SalesReportService) Generate(ctx context.Context, reportType string, date time.Time) ([]models.SalesReport, error) {
	reportType = strings.ToLower(strings.TrimSpace(reportType))
	start, end, err := PeriodBounds(reportType, date)
	if err != nil {
		return nil, err
	}

	sales, err := s.reportRepo.AggregateVendorSales(start, end)
	if err != nil {
		return nil, err
	}
	fees, err := s.reportRepo.AggregateVendorFees(start, end)
	if err != nil {
		return nil, err
	}
	cancelled, err := s.reportRepo.CountVendorCancelled(start, end)
	if err != nil {
		return nil, err
	}
	platformSales, err := s.reportRepo.AggregatePlatformSales(start, end)
	if err != nil {
		return nil, err
	}
	platformCancelled, err := s.reportRepo.CountPlatformCancelled(start, end)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	newRow := func(vendorID uint) *models.SalesReport {
		return &models.SalesReport{
			ReportType:  reportType,
			ReportDate:  start,
			VendorID:    vendorID,
			PeriodEnd:   end,
			GeneratedAt: now,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
	}

	vendorRows := make(map[uint]*models.SalesReport)
	order := make([]uint, 0, len(sales))
	rowFor := func(vendorID uint) *models.SalesReport {
		if row, ok := vendorRows[vendorID]; ok {
			return row
		}
		row := newRow(vendorID)
		vendorRows[vendorID] = row
		order = append(order, vendorID)
		return row
	}
	for _, item := range sales {
		row := rowFor(item.VendorID)
		row.OrderCount = item.OrderCount
		row.ItemsSold = item.ItemsSold
		row.GrossSales = item.GrossSales
		row.CommissionAmount = item.CommissionAmount
		row.AverageOrderValue = averageOf(item.GrossSales, item.OrderCount)
	}
	for _, item := range fees {
		row := rowFor(item.VendorID)
		row.PlatformFee = item.PlatformFee
		row.NetAmount = item.NetAmount
	}
	for _, item := range cancelled {
		row := rowFor(item.VendorID)
		row.CancelledOrders = item.Total
	}

	platform := newRow(constants.PlatformVendorID)
	platform.CancelledOrders = platformCancelled
	if platformSales != nil {
		platform.OrderCount = platformSales.OrderCount
		platform.GrossSales = platformSales.GrossSales
		platform.TaxAmount = platformSales.TaxAmount
		platform.ShippingAmount = platformSales.ShippingAmount
		platform.DiscountAmount = platformSales.DiscountAmount
		platform.TotalRevenue = platformSales.TotalRevenue
		platform.AverageOrderValue = averageOf(platformSales.TotalRevenue, platformSales.OrderCount)
	}

	reports := make([]models.SalesReport, 0, len(order)+1)
	for _, vendorID := range order {
		row := vendorRows[vendorID]
		platform.ItemsSold += row.ItemsSold
		platform.CommissionAmount = platform.CommissionAmount.Add(row.CommissionAmount)
		platform.PlatformFee = platform.PlatformFee.Add(row.PlatformFee)
		platform.NetAmount = platform.NetAmount.Add(row.NetAmount)
		reports = append(reports, *row)
	}
	reports = append([]models.SalesReport{*platform}, reports...)

	if err := s.reportRepo.ReplacePeriod(reportType, start, reports); err != nil {
		return nil, err
	}
	logger.Infow("sales_report_generated",
		"report_type", reportType,
		"report_date", start.Format("2006-01-02"),
		"vendor_rows", len(order),
		"order_count", platform.OrderCount,
	)
	return reports, nil
}

// GenerateRollups 生成当前与上一周期的周/月/年报表
func (s *SalesReportService) GenerateRollups(ctx context.Context, now time.Time) error {
	now = now.UTC()
	for _, reportType := range []string{constants.ReportTypeWeekly, constants.ReportTypeMonthly, constants.ReportTypeYearly} {
		start, _, err := PeriodBounds(reportType, now)
		if err != nil {
			return err
		}
		for _, date := range []time.Time{start.AddDate(0, 0, -1), now} {
			if _, err := s.Generate(ctx, reportType, date); err != nil {
				return err
			}
		}
	}
	return nil
}

// List 报表列表
func (s *SalesReportService) List(filter repository.SalesReportFilter) ([]models.SalesReport, int64, error) {
	if filter.ReportType != "" {
		if _, _, err := PeriodBounds(filter.ReportType, time.Now()); err != nil {
			return nil, 0, err
		}
		filter.ReportType = strings.ToLower(strings.TrimSpace(filter.ReportType))
	}
	return s.reportRepo.List(filter)
}

func averageOf(amount models.Money, count int64) models.Money {
	if count <= 0 {
		return models.ZeroMoney()
	}
	return models.NewMoneyFromDecimal(amount.Decimal.Div(decimal.NewFromInt(count)))
}
