package models_test

import (
	"bytes"
	"encoding/json"
	"image/png"
	"strings"
	"testing"

	"bitbucket.org/mmdatafocus/tradebooks_backend/models"
)

func TestEInvoicePayloadShape(t *testing.T) {
	ctx := setupDB(t)
	if _, err := models.UpdateCompanySettings(ctx, &models.NewCompanySettings{
		LegalName: "Sri Murugan Blue Metals",
		TradeName: "SMB Metals",
		Gstin:     "27AAPFU0939F1ZV",
		Address:   "12 Quarry Road",
		Location:  "Pune",
		Pincode:   "411001",
	}); err != nil {
		t.Fatalf("UpdateCompanySettings: %v", err)
	}
	customer, err := models.CreateCustomer(ctx, &models.NewParty{
		Name:    "Ravi Infra",
		Gstin:   "29AAGCR4375J1ZU",
		Address: "4 Lake View",
		City:    "Bengaluru",
		Pincode: "560001",
	})
	if err != nil {
		t.Fatalf("CreateCustomer: %v", err)
	}
	item := mustItem(t, ctx, "M Sand", "5")
	sale, err := models.CreateSale(ctx, &models.NewSale{
		SaleDate: day(2026, 2, 1), CustomerId: customer.ID, ItemId: item.ID, Quantity: decPtr("10"), Rate: dec("100"),
	})
	if err != nil {
		t.Fatalf("CreateSale: %v", err)
	}
	irn := strings.Repeat("ab12", 16)
	if err := models.UpdateDocumentIRN(ctx, models.DocumentTypeSale, sale.ID, strings.ToUpper(irn)); err != nil {
		t.Fatalf("UpdateDocumentIRN: %v", err)
	}

	payload, err := models.BuildEInvoicePayload(ctx, models.DocumentTypeSale, sale.ID)
	if err != nil {
		t.Fatalf("BuildEInvoicePayload: %v", err)
	}
	got, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"Version":"1.1",` +
		`"TxnDtls":{"TaxSch":"GST","SupTyp":"B2B"},` +
		`"DocDtls":{"Typ":"INV","No":"001","Dt":"01/02/2026"},` +
		`"SellerDtls":{"Gstin":"27AAPFU0939F1ZV","LglNm":"Sri Murugan Blue Metals","TrdNm":"SMB Metals","Addr1":"12 Quarry Road","Loc":"Pune","Pin":411001,"Stcd":"27"},` +
		`"BuyerDtls":{"Gstin":"29AAGCR4375J1ZU","LglNm":"Ravi Infra","Pos":"29","Addr1":"4 Lake View","Loc":"Bengaluru","Pin":560001,"Stcd":"29"},` +
		`"ValDtls":{"AssVal":1000,"CgstVal":25,"SgstVal":25,"IgstVal":0,"TotInvVal":1050},` +
		`"IRN":"` + irn + `"}`
	if string(got) != want {
		t.Fatalf("payload\n got: %s\nwant: %s", got, want)
	}

	qr, err := models.EInvoiceQRCode(ctx, models.DocumentTypeSale, sale.ID, 256)
	if err != nil {
		t.Fatalf("EInvoiceQRCode: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(qr))
	if err != nil {
		t.Fatalf("decode qr: %v", err)
	}
	if img.Bounds().Dx() != 256 {
		t.Fatalf("qr width = %d, want 256", img.Bounds().Dx())
	}

	if _, err := models.BuildEInvoicePayload(ctx, models.DocumentTypeReceipt, 1); err == nil {
		t.Fatalf("receipts have no e-invoice")
	}
}

func TestEInvoicePayloadB2CNote(t *testing.T) {
	ctx := setupDB(t)
	customer := mustCustomer(t, ctx, "Walk-in Buyer")
	item := mustItem(t, ctx, "Aggregate", "18")
	sale, err := models.CreateSale(ctx, &models.NewSale{CustomerId: customer.ID, ItemId: item.ID, Quantity: decPtr("1"), Rate: dec("1000")})
	if err != nil {
		t.Fatalf("CreateSale: %v", err)
	}
	note, err := models.CreateCreditNote(ctx, &models.NewNote{CustomerId: customer.ID, Amount: dec("100"), ReferenceBillNo: sale.BillSerialNo})
	if err != nil {
		t.Fatalf("CreateCreditNote: %v", err)
	}

	payload, err := models.BuildEInvoicePayload(ctx, models.DocumentTypeCreditNote, note.ID)
	if err != nil {
		t.Fatalf("BuildEInvoicePayload: %v", err)
	}
	if payload.TxnDtls.SupTyp != "B2C" || payload.DocDtls.Typ != "CRN" || payload.DocDtls.No != "CN0001" || payload.IRN != "" {
		t.Fatalf("payload = %+v", payload)
	}
}
