package repository

import (
	"testing"
	"time"

	"github.com/modaplex/internal/constants"
	"github.com/modaplex/internal/models"
)

func TestCommissionRepositoryCreateBatchIgnoresDuplicates(t *testing.T) {
	db := setupRepositoryTestDB(t, "commission_repo_dup")
	repo := NewCommissionRepository(db)
	vendor := createTestVendor(t, db, "vc")
	order := createTestOrder(t, db, "MP-C1", constants.OrderStatusConfirmed, constants.OrderPaymentStatusPaid, time.Now().UTC(),
		testLine{vendor: vendor, price: "100.00", qty: 1})

	row := models.Commission{
		VendorID:         vendor.ID,
		OrderID:          order.ID,
		OrderItemID:      order.Items[0].ID,
		GrossAmount:      models.MustMoney("100.00"),
		CommissionAmount: models.MustMoney("80.00"),
		PlatformFee:      models.MustMoney("2.00"),
		NetAmount:        models.MustMoney("78.00"),
		Status:           constants.CommissionStatusPending,
	}
	if err := repo.CreateBatch([]models.Commission{row}); err != nil {
		t.Fatalf("first create failed: %v", err)
	}
	if err := repo.CreateBatch([]models.Commission{row}); err != nil {
		t.Fatalf("duplicate create should be ignored, got %v", err)
	}

	var count int64
	db.Model(&models.Commission{}).Count(&count)
	if count != 1 {
		t.Fatalf("expected exactly one commission, got %d", count)
	}
	ids, err := repo.ListItemIDsByOrder(order.ID)
	if err != nil || len(ids) != 1 || ids[0] != order.Items[0].ID {
		t.Fatalf("unexpected item ids %v err=%v", ids, err)
	}
}

func TestCommissionRepositorySummaryByStatus(t *testing.T) {
	db := setupRepositoryTestDB(t, "commission_repo_summary")
	repo := NewCommissionRepository(db)
	vendor := createTestVendor(t, db, "vs")
	order := createTestOrder(t, db, "MP-S1", constants.OrderStatusConfirmed, constants.OrderPaymentStatusPaid, time.Now().UTC(),
		testLine{vendor: vendor, price: "10.00", qty: 1},
		testLine{vendor: vendor, price: "20.00", qty: 1},
		testLine{vendor: vendor, price: "30.00", qty: 1})

	statuses := []string{constants.CommissionStatusApproved, constants.CommissionStatusApproved, constants.CommissionStatusPending}
	nets := []string{"7.50", "15.25", "20.00"}
	rows := make([]models.Commission, 0, 3)
	for i, item := range order.Items {
		rows = append(rows, models.Commission{
			VendorID:    vendor.ID,
			OrderID:     order.ID,
			OrderItemID: item.ID,
			NetAmount:   models.MustMoney(nets[i]),
			Status:      statuses[i],
		})
	}
	if err := repo.CreateBatch(rows); err != nil {
		t.Fatalf("create batch failed: %v", err)
	}

	summary, err := repo.SummaryByStatus(vendor.ID)
	if err != nil {
		t.Fatalf("summary failed: %v", err)
	}
	got := map[string]CommissionStatusTotal{}
	for _, s := range summary {
		got[s.Status] = s
	}
	if got[constants.CommissionStatusApproved].Count != 2 || got[constants.CommissionStatusApproved].NetAmount.String() != "22.75" {
		t.Fatalf("unexpected approved summary: %+v", got[constants.CommissionStatusApproved])
	}
	if got[constants.CommissionStatusPending].Count != 1 {
		t.Fatalf("unexpected pending summary: %+v", got[constants.CommissionStatusPending])
	}

	unbound, err := repo.ListApprovedUnboundForUpdate(vendor.ID)
	if err != nil {
		t.Fatalf("list unbound failed: %v", err)
	}
	if len(unbound) != 2 {
		t.Fatalf("expected 2 approved unbound, got %d", len(unbound))
	}
}
