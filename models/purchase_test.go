package models_test

import (
	"testing"

	"bitbucket.org/mmdatafocus/tradebooks_backend/models"
)

func TestPurchaseAndSupplierPayment(t *testing.T) {
	ctx := setupDB(t)
	supplier, err := models.CreateSupplier(ctx, &models.NewParty{Name: "Kaveri Quarry"})
	if err != nil {
		t.Fatalf("CreateSupplier: %v", err)
	}
	if supplier.Code != "SUP001" {
		t.Fatalf("supplier code = %s, want SUP001", supplier.Code)
	}
	item := mustItem(t, ctx, "Boulder", "0")

	purchase, err := models.CreatePurchase(ctx, &models.NewPurchase{
		PurchaseDate: day(2026, 4, 1),
		SupplierId:   supplier.ID,
		ItemId:       item.ID,
		Quantity:     dec("10"),
		Rate:         dec("100"),
		InvoiceRef:   "KQ/118",
	})
	if err != nil {
		t.Fatalf("CreatePurchase: %v", err)
	}
	if purchase.PurchaseNo != "PUR0001" || !purchase.TotalAmount.Equal(dec("1000")) {
		t.Fatalf("purchase %s total %s", purchase.PurchaseNo, purchase.TotalAmount)
	}

	payment, err := models.CreateSupplierPayment(ctx, &models.NewSupplierPayment{
		PaymentDate: day(2026, 4, 2),
		SupplierId:  supplier.ID,
		Amount:      dec("300"),
		PaymentMode: models.PaymentModeBank,
	})
	if err != nil {
		t.Fatalf("CreateSupplierPayment: %v", err)
	}
	if payment.PaymentNo != "PAY0001" {
		t.Fatalf("payment no = %s", payment.PaymentNo)
	}

	owed, err := models.CurrentSupplierBalance(ctx, supplier.ID)
	if err != nil {
		t.Fatalf("CurrentSupplierBalance: %v", err)
	}
	if !owed.Equal(dec("700")) {
		t.Fatalf("supplier balance = %s, want 700", owed)
	}
	stock, err := models.CurrentStock(ctx, item.ID)
	if err != nil {
		t.Fatalf("CurrentStock: %v", err)
	}
	if !stock.Equal(dec("10")) {
		t.Fatalf("stock = %s, want 10", stock)
	}

	if _, err := models.CreateSupplierPayment(ctx, &models.NewSupplierPayment{
		SupplierId: supplier.ID, Amount: dec("50"), PaymentMode: models.PaymentModeCheque,
	}); err == nil {
		t.Fatalf("cheque payment without a cheque number was accepted")
	}
}
