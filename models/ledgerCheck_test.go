package models_test

import (
	"testing"

	"gorm.io/gorm"

	"bitbucket.org/mmdatafocus/tradebooks_backend/config"
	"bitbucket.org/mmdatafocus/tradebooks_backend/models"
)

func TestLedgerCheckFindsDriftAndRebalanceFixesIt(t *testing.T) {
	ctx := setupDB(t)
	customer := mustCustomer(t, ctx, "Karthik Enterprises")
	item := mustItem(t, ctx, "Boulders", "0")
	for _, d := range []int{1, 2, 3} {
		if _, err := models.CreateSale(ctx, &models.NewSale{
			SaleDate: day(2026, 4, d), CustomerId: customer.ID, ItemId: item.ID, Quantity: decPtr("1"), Rate: dec("100"),
		}); err != nil {
			t.Fatalf("CreateSale: %v", err)
		}
	}

	report, err := models.CheckLedgerConsistency(ctx)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if !report.OK {
		t.Fatalf("fresh books should be consistent, issues: %+v", report.Issues)
	}

	db := config.GetDB()
	if err := db.Exec("UPDATE customer_ledgers SET balance = 999 WHERE reference_no = ?", "002").Error; err != nil {
		t.Fatalf("corrupt: %v", err)
	}
	report, err = models.CheckLedgerConsistency(ctx)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if report.OK || len(report.Issues) != 1 || report.Issues[0].Kind != models.LedgerIssueBalanceDrift {
		t.Fatalf("want one drift issue, got %+v", report.Issues)
	}
	if report.Issues[0].ReferenceNo != "002" || !report.Issues[0].Expected.Equal(dec("200")) {
		t.Fatalf("issue = %+v", report.Issues[0])
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		_, err := models.RebalanceAll(tx)
		return err
	})
	if err != nil {
		t.Fatalf("RebalanceAll: %v", err)
	}
	report, err = models.CheckLedgerConsistency(ctx)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if !report.OK {
		t.Fatalf("still drifting after rebalance: %+v", report.Issues)
	}
}

func TestLedgerCheckReportsOrphanRows(t *testing.T) {
	ctx := setupDB(t)
	customer := mustCustomer(t, ctx, "Orphan Test")
	item := mustItem(t, ctx, "Dust", "0")
	sale, err := models.CreateSale(ctx, &models.NewSale{CustomerId: customer.ID, ItemId: item.ID, Quantity: decPtr("1"), Rate: dec("10")})
	if err != nil {
		t.Fatalf("CreateSale: %v", err)
	}
	// a sale removed behind the application's back
	if err := config.GetDB().Exec("DELETE FROM sales WHERE id = ?", sale.ID).Error; err != nil {
		t.Fatalf("delete: %v", err)
	}
	report, err := models.CheckLedgerConsistency(ctx)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	orphans := 0
	for _, issue := range report.Issues {
		if issue.Kind == models.LedgerIssueOrphanRow {
			orphans++
		}
	}
	// one in the customer book, one in the stock book
	if orphans != 2 {
		t.Fatalf("orphans = %d, issues %+v", orphans, report.Issues)
	}
}
