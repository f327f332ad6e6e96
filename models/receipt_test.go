package models_test

import (
	"context"
	"errors"
	"testing"

	"bitbucket.org/mmdatafocus/tradebooks_backend/models"
	"bitbucket.org/mmdatafocus/tradebooks_backend/utils"
)

func TestDeleteReceiptRebalances(t *testing.T) {
	ctx := setupDB(t)
	customer := mustCustomer(t, ctx, "Murugan Hollow Blocks")
	item := mustItem(t, ctx, "Dust", "0")

	if _, err := models.CreateSale(ctx, &models.NewSale{
		SaleDate: day(2026, 4, 1), CustomerId: customer.ID, ItemId: item.ID, Quantity: decPtr("10"), Rate: dec("100"),
	}); err != nil {
		t.Fatalf("CreateSale: %v", err)
	}
	early, err := models.CreateReceipt(ctx, &models.NewReceipt{ReceiptDate: day(2026, 4, 2), CustomerId: customer.ID, Amount: dec("300")})
	if err != nil {
		t.Fatalf("CreateReceipt: %v", err)
	}
	if _, err := models.CreateReceipt(ctx, &models.NewReceipt{ReceiptDate: day(2026, 4, 9), CustomerId: customer.ID, Amount: dec("200")}); err != nil {
		t.Fatalf("CreateReceipt: %v", err)
	}

	staff := utils.WithUser(context.Background(), 2, "clerk", "Clerk", string(models.UserRoleStaff))
	if _, err := models.DeleteReceipt(staff, early.ID); !errors.Is(err, utils.ErrAdminOnly) {
		t.Fatalf("staff delete: %v", err)
	}

	if _, err := models.DeleteReceipt(ctx, early.ID); err != nil {
		t.Fatalf("DeleteReceipt: %v", err)
	}
	statement, err := models.GetCustomerLedger(ctx, customer.ID, models.LedgerFilter{Page: models.Page{All: true}})
	if err != nil {
		t.Fatalf("GetCustomerLedger: %v", err)
	}
	want := []string{"1000", "800"}
	if len(statement.Rows) != len(want) {
		t.Fatalf("rows = %d, want %d", len(statement.Rows), len(want))
	}
	for i, w := range want {
		if !statement.Rows[i].Balance.Equal(dec(w)) {
			t.Fatalf("row %d balance = %s, want %s", i, statement.Rows[i].Balance, w)
		}
	}
	if got := customerBalance(t, ctx, customer.ID); !got.Equal(dec("800")) {
		t.Fatalf("balance = %s, want 800", got)
	}

	if _, err := models.DeleteReceipt(ctx, early.ID); !errors.Is(err, utils.ErrorRecordNotFound) {
		t.Fatalf("second delete: %v", err)
	}
}
