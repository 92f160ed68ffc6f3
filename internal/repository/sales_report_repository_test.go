package repository

import (
	"testing"
	"time"

	"github.com/modaplex/internal/constants"
	"github.com/modaplex/internal/models"
)

func TestSalesReportRepositoryAggregatesSettledOrdersOnly(t *testing.T) {
	db := setupRepositoryTestDB(t, "sales_report_agg")
	repo := NewSalesReportRepository(db)
	vendorA := createTestVendor(t, db, "ra")
	vendorB := createTestVendor(t, db, "rb")

	day := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	inDay := day.Add(10 * time.Hour)

	createTestOrder(t, db, "MP-R1", constants.OrderStatusConfirmed, constants.OrderPaymentStatusPaid, inDay,
		testLine{vendor: vendorA, price: "50.00", qty: 2},
		testLine{vendor: vendorB, price: "25.00", qty: 1})
	createTestOrder(t, db, "MP-R2", constants.OrderStatusPending, constants.OrderPaymentStatusUnpaid, inDay,
		testLine{vendor: vendorA, price: "999.00", qty: 1})
	createTestOrder(t, db, "MP-R3", constants.OrderStatusCancelled, constants.OrderPaymentStatusUnpaid, inDay,
		testLine{vendor: vendorA, price: "15.00", qty: 1})
	createTestOrder(t, db, "MP-R4", constants.OrderStatusDelivered, constants.OrderPaymentStatusPaid, day.AddDate(0, 0, 1).Add(time.Hour),
		testLine{vendor: vendorA, price: "70.00", qty: 1})

	rows, err := repo.AggregateVendorSales(day, day.AddDate(0, 0, 1))
	if err != nil {
		t.Fatalf("aggregate vendor failed: %v", err)
	}
	byVendor := map[uint]VendorSalesRow{}
	for _, r := range rows {
		byVendor[r.VendorID] = r
	}
	if len(byVendor) != 2 {
		t.Fatalf("expected 2 vendor rows, got %d", len(byVendor))
	}
	a := byVendor[vendorA.ID]
	if a.OrderCount != 1 || a.ItemsSold != 2 || a.GrossSales.String() != "100.00" || a.CommissionAmount.String() != "80.00" {
		t.Fatalf("unexpected vendor A row: %+v", a)
	}

	platform, err := repo.AggregatePlatformSales(day, day.AddDate(0, 0, 1))
	if err != nil {
		t.Fatalf("aggregate platform failed: %v", err)
	}
	if platform.OrderCount != 1 || platform.GrossSales.String() != "125.00" {
		t.Fatalf("unexpected platform row: %+v", platform)
	}

	cancelled, err := repo.CountPlatformCancelled(day, day.AddDate(0, 0, 1))
	if err != nil || cancelled != 1 {
		t.Fatalf("expected 1 cancelled, got %d err=%v", cancelled, err)
	}
}

func TestSalesReportRepositoryUpsertIsIdempotent(t *testing.T) {
	db := setupRepositoryTestDB(t, "sales_report_upsert")
	repo := NewSalesReportRepository(db)
	day := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	report := models.SalesReport{
		ReportType:  constants.ReportTypeDaily,
		ReportDate:  day,
		VendorID:    constants.PlatformVendorID,
		PeriodEnd:   day.AddDate(0, 0, 1),
		OrderCount:  3,
		GrossSales:  models.MustMoney("10.00"),
		GeneratedAt: time.Now().UTC(),
	}
	if err := repo.Upsert([]models.SalesReport{report}); err != nil {
		t.Fatalf("first upsert failed: %v", err)
	}
	report.OrderCount = 5
	report.GrossSales = models.MustMoney("42.00")
	if err := repo.Upsert([]models.SalesReport{report}); err != nil {
		t.Fatalf("second upsert failed: %v", err)
	}

	platformID := constants.PlatformVendorID
	rows, total, err := repo.List(SalesReportFilter{Page: 1, PageSize: 10, ReportType: constants.ReportTypeDaily, VendorID: &platformID})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if total != 1 {
		t.Fatalf("expected single row after upsert, got %d", total)
	}
	if rows[0].OrderCount != 5 || rows[0].GrossSales.String() != "42.00" {
		t.Fatalf("expected overwritten values, got %+v", rows[0])
	}
}

func TestSalesReportRepositoryReplacePeriodDropsStaleVendors(t *testing.T) {
	db := setupRepositoryTestDB(t, "sales_report_replace")
	repo := NewSalesReportRepository(db)
	day := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	row := func(date time.Time, vendorID uint, orders int64) models.SalesReport {
		return models.SalesReport{
			ReportType:  constants.ReportTypeDaily,
			ReportDate:  date,
			VendorID:    vendorID,
			PeriodEnd:   date.AddDate(0, 0, 1),
			OrderCount:  orders,
			GeneratedAt: time.Now().UTC(),
		}
	}
	if err := repo.Upsert([]models.SalesReport{row(day, 0, 1), row(day, 7, 1), row(day.AddDate(0, 0, -1), 7, 4)}); err != nil {
		t.Fatalf("seed reports failed: %v", err)
	}

	if err := repo.ReplacePeriod(constants.ReportTypeDaily, day, []models.SalesReport{row(day, 0, 0)}); err != nil {
		t.Fatalf("replace period failed: %v", err)
	}

	rows, total, err := repo.List(SalesReportFilter{Page: 1, PageSize: 10, ReportType: constants.ReportTypeDaily})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if total != 2 {
		t.Fatalf("expected platform row plus previous day row, got %d", total)
	}
	for _, got := range rows {
		if got.ReportDate.Equal(day) && got.VendorID != 0 {
			t.Fatalf("stale vendor row should be removed: %+v", got)
		}
		if got.VendorID == 7 && got.OrderCount != 4 {
			t.Fatalf("other periods must stay untouched: %+v", got)
		}
	}
}
