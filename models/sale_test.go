package models_test

import (
	"context"
	"errors"
	"testing"

	"gorm.io/gorm"

	"bitbucket.org/mmdatafocus/tradebooks_backend/config"
	"bitbucket.org/mmdatafocus/tradebooks_backend/models"
	"bitbucket.org/mmdatafocus/tradebooks_backend/utils"
)

func TestSaleAndReceiptBalance(t *testing.T) {
	ctx := setupDB(t)
	customer := mustCustomer(t, ctx, "Lakshmi Constructions")
	item := mustItem(t, ctx, "Blue Metal 20mm", "0")

	sale, err := models.CreateSale(ctx, &models.NewSale{
		SaleDate:   day(2026, 2, 1),
		CustomerId: customer.ID,
		ItemId:     item.ID,
		Quantity:   decPtr("10"),
		Rate:       dec("100"),
	})
	if err != nil {
		t.Fatalf("CreateSale: %v", err)
	}
	if sale.BillSerialNo != "001" || !sale.TotalAmount.Equal(dec("1000")) {
		t.Fatalf("sale %s total %s", sale.BillSerialNo, sale.TotalAmount)
	}

	if _, err := models.CreateReceipt(ctx, &models.NewReceipt{
		ReceiptDate: day(2026, 2, 3),
		CustomerId:  customer.ID,
		Amount:      dec("400"),
	}); err != nil {
		t.Fatalf("CreateReceipt: %v", err)
	}

	if got := customerBalance(t, ctx, customer.ID); !got.Equal(dec("600")) {
		t.Fatalf("balance = %s, want 600", got)
	}

	stock, err := models.CurrentStock(ctx, item.ID)
	if err != nil {
		t.Fatalf("CurrentStock: %v", err)
	}
	if !stock.Equal(dec("-10")) {
		t.Fatalf("stock = %s, want -10", stock)
	}
}

func TestSaleGSTSplit(t *testing.T) {
	ctx := setupDB(t)
	customer := mustCustomer(t, ctx, "Ganesh Builders")
	item := mustItem(t, ctx, "Granite", "5")

	sale, err := models.CreateSale(ctx, &models.NewSale{
		Series:     "grm",
		CustomerId: customer.ID,
		ItemId:     item.ID,
		Quantity:   decPtr("4"),
		Rate:       dec("250"),
	})
	if err != nil {
		t.Fatalf("CreateSale: %v", err)
	}
	if sale.BillSerialNo != "GRM050" {
		t.Fatalf("bill = %s, want GRM050", sale.BillSerialNo)
	}
	if !sale.Amount.Equal(dec("1000")) || !sale.Cgst.Equal(dec("25")) || !sale.Sgst.Equal(dec("25")) || !sale.TotalAmount.Equal(dec("1050")) {
		t.Fatalf("breakup amount=%s cgst=%s sgst=%s total=%s", sale.Amount, sale.Cgst, sale.Sgst, sale.TotalAmount)
	}
}

func TestSaleFromOutwardEntry(t *testing.T) {
	ctx := setupDB(t)
	customer := mustCustomer(t, ctx, "Murugan Agencies")
	item := mustItem(t, ctx, "M Sand", "0")
	entry := mustCompletedEntry(t, ctx, customer.ID, item.ID, "4500", "12500")

	sale, err := models.CreateSale(ctx, &models.NewSale{
		CustomerId:     customer.ID,
		ItemId:         item.ID,
		OutwardEntryId: &entry.ID,
		Rate:           dec("0.5"),
	})
	if err != nil {
		t.Fatalf("CreateSale: %v", err)
	}
	if !sale.Quantity.Equal(dec("8000")) || sale.VehicleNo != "TN01AB1234" {
		t.Fatalf("quantity=%s vehicle=%s", sale.Quantity, sale.VehicleNo)
	}

	_, err = models.CreateSale(ctx, &models.NewSale{CustomerId: customer.ID, ItemId: item.ID, OutwardEntryId: &entry.ID, Rate: dec("1")})
	if !errors.Is(err, utils.ErrEntryAlreadyBilled) {
		t.Fatalf("second bill on entry: %v", err)
	}
	if _, err := models.UpdateLoadWeight(ctx, entry.ID, dec("13000")); !errors.Is(err, utils.ErrEntryAlreadyBilled) {
		t.Fatalf("reweighing a billed entry: %v", err)
	}

	open, err := models.CreateOutwardEntry(ctx, &models.NewOutwardEntry{VehicleNo: "TN02", EmptyWeight: dec("4000")})
	if err != nil {
		t.Fatalf("open entry: %v", err)
	}
	_, err = models.CreateSale(ctx, &models.NewSale{CustomerId: customer.ID, ItemId: item.ID, OutwardEntryId: &open.ID, Rate: dec("1")})
	if !errors.Is(err, utils.ErrEntryNotCompleted) {
		t.Fatalf("bill on open entry: %v", err)
	}
}

func TestBackdatedPostingRebalances(t *testing.T) {
	ctx := setupDB(t)
	customer := mustCustomer(t, ctx, "Selvam & Co")
	item := mustItem(t, ctx, "Gravel", "0")

	post := func(d int, qty string) {
		t.Helper()
		if _, err := models.CreateSale(ctx, &models.NewSale{
			SaleDate: day(2026, 3, d), CustomerId: customer.ID, ItemId: item.ID, Quantity: decPtr(qty), Rate: dec("100"),
		}); err != nil {
			t.Fatalf("CreateSale: %v", err)
		}
	}
	post(10, "10")
	if _, err := models.CreateReceipt(ctx, &models.NewReceipt{ReceiptDate: day(2026, 3, 12), CustomerId: customer.ID, Amount: dec("400")}); err != nil {
		t.Fatalf("CreateReceipt: %v", err)
	}
	post(5, "2")

	statement, err := models.GetCustomerLedger(ctx, customer.ID, models.LedgerFilter{Page: models.Page{All: true}})
	if err != nil {
		t.Fatalf("GetCustomerLedger: %v", err)
	}
	want := []string{"200", "1200", "800"}
	if len(statement.Rows) != len(want) {
		t.Fatalf("rows = %d, want %d", len(statement.Rows), len(want))
	}
	for i, w := range want {
		if !statement.Rows[i].Balance.Equal(dec(w)) {
			t.Fatalf("row %d balance = %s, want %s", i, statement.Rows[i].Balance, w)
		}
	}

	ranged, err := models.GetCustomerLedger(ctx, customer.ID, models.LedgerFilter{From: day(2026, 3, 6), To: day(2026, 3, 11)})
	if err != nil {
		t.Fatalf("ranged ledger: %v", err)
	}
	if !ranged.OpeningBalance.Equal(dec("200")) || !ranged.ClosingBalance.Equal(dec("1200")) || !ranged.CurrentBalance.Equal(dec("800")) {
		t.Fatalf("opening=%s closing=%s current=%s", ranged.OpeningBalance, ranged.ClosingBalance, ranged.CurrentBalance)
	}
}

func TestDeleteOutwardEntryCascades(t *testing.T) {
	ctx := setupDB(t)
	customer := mustCustomer(t, ctx, "Annai Traders")
	item := mustItem(t, ctx, "P Sand", "5")
	entry := mustCompletedEntry(t, ctx, customer.ID, item.ID, "5000", "15000")

	sale, err := models.CreateSale(ctx, &models.NewSale{CustomerId: customer.ID, ItemId: item.ID, OutwardEntryId: &entry.ID, Rate: dec("1")})
	if err != nil {
		t.Fatalf("CreateSale: %v", err)
	}
	if _, err := models.CreateCreditNote(ctx, &models.NewNote{CustomerId: customer.ID, Amount: dec("100"), ReferenceBillNo: sale.BillSerialNo}); err != nil {
		t.Fatalf("CreateCreditNote: %v", err)
	}
	if _, err := models.CreateDebitNote(ctx, &models.NewNote{CustomerId: customer.ID, Amount: dec("50"), ReferenceBillNo: sale.BillSerialNo}); err != nil {
		t.Fatalf("CreateDebitNote: %v", err)
	}

	staff := utils.WithUser(context.Background(), 2, "clerk", "Clerk", string(models.UserRoleStaff))
	if _, err := models.DeleteOutwardEntry(staff, entry.ID); !errors.Is(err, utils.ErrAdminOnly) {
		t.Fatalf("staff delete: %v", err)
	}

	result, err := models.DeleteOutwardEntry(ctx, entry.ID)
	if err != nil {
		t.Fatalf("DeleteOutwardEntry: %v", err)
	}
	if result.Sales != 1 || result.CreditNotes != 1 || result.DebitNotes != 1 || result.Entries != 1 || result.StockRows != 1 {
		t.Fatalf("result = %+v", result)
	}

	db := config.GetDB()
	for _, model := range []interface{}{&models.Sale{}, &models.CreditNote{}, &models.DebitNote{}, &models.OutwardEntry{}, &models.CustomerLedger{}} {
		var n int64
		if err := db.Model(model).Count(&n).Error; err != nil {
			t.Fatalf("count: %v", err)
		}
		if n != 0 {
			t.Fatalf("%T survived the cascade (%d rows)", model, n)
		}
	}
	var stockRows int64
	db.Model(&models.StockLedger{}).Where("transaction_type = ?", models.LedgerTransactionTypeSale).Count(&stockRows)
	if stockRows != 0 {
		t.Fatalf("sale stock rows survived: %d", stockRows)
	}
	if _, err := models.GetOutwardEntry(ctx, entry.ID); !errors.Is(err, utils.ErrorRecordNotFound) {
		t.Fatalf("entry still readable: %v", err)
	}
}

func TestNoteReferenceMustBelongToCustomer(t *testing.T) {
	ctx := setupDB(t)
	a := mustCustomer(t, ctx, "Alpha Stones")
	b := mustCustomer(t, ctx, "Beta Stones")
	item := mustItem(t, ctx, "Jelly", "0")
	sale, err := models.CreateSale(ctx, &models.NewSale{CustomerId: a.ID, ItemId: item.ID, Quantity: decPtr("1"), Rate: dec("500")})
	if err != nil {
		t.Fatalf("CreateSale: %v", err)
	}
	_, err = models.CreateCreditNote(ctx, &models.NewNote{CustomerId: b.ID, Amount: dec("10"), ReferenceBillNo: sale.BillSerialNo})
	if !errors.Is(err, utils.ErrReferenceBill) {
		t.Fatalf("foreign bill reference: %v", err)
	}

	note, err := models.CreateCreditNote(ctx, &models.NewNote{CustomerId: a.ID, Amount: dec("100"), ReferenceBillNo: sale.BillSerialNo})
	if err != nil {
		t.Fatalf("CreateCreditNote: %v", err)
	}
	if note.NoteNo != "CN0001" {
		t.Fatalf("note no = %s", note.NoteNo)
	}
	if got := customerBalance(t, ctx, a.ID); !got.Equal(dec("400")) {
		t.Fatalf("balance = %s, want 400", got)
	}
}

func TestUpdateSaleMovesCustomerAndBackdates(t *testing.T) {
	ctx := setupDB(t)
	a := mustCustomer(t, ctx, "Arun Traders")
	b := mustCustomer(t, ctx, "Bala Enterprises")
	item := mustItem(t, ctx, "Boulders", "0")

	if _, err := models.CreateReceipt(ctx, &models.NewReceipt{ReceiptDate: day(2026, 5, 10), CustomerId: b.ID, Amount: dec("300")}); err != nil {
		t.Fatalf("CreateReceipt: %v", err)
	}
	input := &models.NewSale{SaleDate: day(2026, 5, 20), CustomerId: a.ID, ItemId: item.ID, Quantity: decPtr("5"), Rate: dec("100")}
	sale, err := models.CreateSale(ctx, input)
	if err != nil {
		t.Fatalf("CreateSale: %v", err)
	}

	input.CustomerId = b.ID
	input.SaleDate = day(2026, 5, 1)
	updated, err := models.UpdateSale(ctx, sale.ID, input)
	if err != nil {
		t.Fatalf("UpdateSale: %v", err)
	}
	if updated.BillSerialNo != sale.BillSerialNo || updated.CustomerId != b.ID {
		t.Fatalf("updated = %s customer %d", updated.BillSerialNo, updated.CustomerId)
	}

	if got := customerBalance(t, ctx, a.ID); !got.IsZero() {
		t.Fatalf("old customer balance = %s, want 0", got)
	}
	if got := customerBalance(t, ctx, b.ID); !got.Equal(dec("200")) {
		t.Fatalf("new customer balance = %s, want 200", got)
	}

	statement, err := models.GetCustomerLedger(ctx, b.ID, models.LedgerFilter{Page: models.Page{All: true}})
	if err != nil {
		t.Fatalf("GetCustomerLedger: %v", err)
	}
	want := []struct {
		typ            models.LedgerTransactionType
		debit, balance string
		credit         string
	}{
		{models.LedgerTransactionTypeSale, "500", "500", "0"},
		{models.LedgerTransactionTypeReceipt, "0", "200", "300"},
	}
	if len(statement.Rows) != len(want) {
		t.Fatalf("rows = %d, want %d", len(statement.Rows), len(want))
	}
	for i, w := range want {
		row := statement.Rows[i]
		if row.TransactionType != w.typ || !row.DebitAmount.Equal(dec(w.debit)) || !row.CreditAmount.Equal(dec(w.credit)) || !row.Balance.Equal(dec(w.balance)) {
			t.Fatalf("row %d = %s dr %s cr %s bal %s", i, row.TransactionType, row.DebitAmount, row.CreditAmount, row.Balance)
		}
	}

	empty, err := models.GetCustomerLedger(ctx, a.ID, models.LedgerFilter{Page: models.Page{All: true}})
	if err != nil {
		t.Fatalf("GetCustomerLedger: %v", err)
	}
	if len(empty.Rows) != 0 {
		t.Fatalf("old customer still has %d rows", len(empty.Rows))
	}
}

func TestCreatedHookRunsInsideTransaction(t *testing.T) {
	ctx := setupDB(t)
	customer := mustCustomer(t, ctx, "Hook Stones")
	item := mustItem(t, ctx, "Chips", "0")
	input := &models.NewSale{CustomerId: customer.ID, ItemId: item.ID, Quantity: decPtr("2"), Rate: dec("50")}

	refused := errors.New("key table unavailable")
	failing := models.WithCreatedHook(ctx, func(tx *gorm.DB, id int) error {
		if id <= 0 {
			t.Errorf("hook got id %d", id)
		}
		return refused
	})
	if _, err := models.CreateSale(failing, input); !errors.Is(err, refused) {
		t.Fatalf("CreateSale with failing hook: %v", err)
	}
	var sales int64
	config.GetDB().Model(&models.Sale{}).Count(&sales)
	if sales != 0 {
		t.Fatalf("sale survived a failed hook")
	}
	if got := customerBalance(t, ctx, customer.ID); !got.IsZero() {
		t.Fatalf("ledger kept the rolled back sale: %s", got)
	}

	var seen int
	passing := models.WithCreatedHook(ctx, func(tx *gorm.DB, id int) error {
		seen = id
		var n int64
		// the sale is visible inside the transaction
		return tx.Model(&models.Sale{}).Where("id = ?", id).Count(&n).Error
	})
	sale, err := models.CreateSale(passing, input)
	if err != nil {
		t.Fatalf("CreateSale: %v", err)
	}
	if seen != sale.ID {
		t.Fatalf("hook saw id %d, sale is %d", seen, sale.ID)
	}
	if sale.BillSerialNo != "001" {
		t.Fatalf("rolled back sale consumed a serial: %s", sale.BillSerialNo)
	}
}
