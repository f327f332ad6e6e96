package reports_test

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"bitbucket.org/mmdatafocus/tradebooks_backend/config"
	"bitbucket.org/mmdatafocus/tradebooks_backend/models"
	"bitbucket.org/mmdatafocus/tradebooks_backend/models/reports"
	"bitbucket.org/mmdatafocus/tradebooks_backend/utils"
)

func setupDB(t *testing.T) context.Context {
	t.Helper()
	conn, err := config.OpenSQLite("file:" + filepath.Join(t.TempDir(), "reports.db") + "?_busy_timeout=5000")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	config.SetDB(conn)
	models.MigrateTable()
	t.Cleanup(func() {
		if sqlDB, err := conn.DB(); err == nil {
			_ = sqlDB.Close()
		}
		config.SetDB(nil)
	})
	return utils.WithUser(context.Background(), 1, "admin", "Admin", string(models.UserRoleAdmin))
}

// seedBills creates one bill in the blank, GRM and D series plus a credit note on each of the first and last.
func seedBills(t *testing.T, ctx context.Context) {
	t.Helper()
	customer, err := models.CreateCustomer(ctx, &models.NewParty{Name: "Velmurugan Stores"})
	if err != nil {
		t.Fatalf("CreateCustomer: %v", err)
	}
	item, err := models.CreateItem(ctx, &models.NewItem{Name: "Blue Metal", GstRate: decimal.NewFromInt(5), HsnCode: "2517"})
	if err != nil {
		t.Fatalf("CreateItem: %v", err)
	}
	date := time.Date(2026, 5, 10, 0, 0, 0, 0, time.Local)
	qty := decimal.NewFromInt(10)
	bills := map[string]string{}
	for _, series := range []string{"", "GRM", "D"} {
		sale, err := models.CreateSale(ctx, &models.NewSale{
			Series: series, SaleDate: &date, CustomerId: customer.ID, ItemId: item.ID, Quantity: &qty, Rate: decimal.NewFromInt(100),
		})
		if err != nil {
			t.Fatalf("CreateSale(%q): %v", series, err)
		}
		bills[series] = sale.BillSerialNo
	}
	for _, series := range []string{"", "D"} {
		if _, err := models.CreateCreditNote(ctx, &models.NewNote{
			NoteDate: &date, CustomerId: customer.ID, Amount: decimal.NewFromInt(50), ReferenceBillNo: bills[series],
		}); err != nil {
			t.Fatalf("CreateCreditNote: %v", err)
		}
	}
}

func TestGSTReportExcludesDSeries(t *testing.T) {
	ctx := setupDB(t)
	seedBills(t, ctx)

	all, err := reports.GetGSTReport(ctx, reports.GSTReportFilter{})
	if err != nil {
		t.Fatalf("GetGSTReport: %v", err)
	}
	if len(all.Sales) != 3 || len(all.CreditNotes) != 2 {
		t.Fatalf("sales=%d notes=%d, want 3 and 2", len(all.Sales), len(all.CreditNotes))
	}

	filtered, err := reports.GetGSTReport(ctx, reports.GSTReportFilter{ExcludeDSeries: true})
	if err != nil {
		t.Fatalf("GetGSTReport: %v", err)
	}
	if len(filtered.Sales) != 2 || len(filtered.CreditNotes) != 1 {
		t.Fatalf("sales=%d notes=%d, want 2 and 1", len(filtered.Sales), len(filtered.CreditNotes))
	}
	for _, row := range filtered.Sales {
		if row.BillSerialNo == "D001" {
			t.Fatalf("D series bill in filtered report")
		}
		if row.CustomerName != "Velmurugan Stores" || row.HsnCode != "2517" {
			t.Fatalf("joined columns missing: %+v", row)
		}
	}

	from := time.Date(2026, 6, 1, 0, 0, 0, 0, time.Local)
	later, err := reports.GetGSTReport(ctx, reports.GSTReportFilter{From: &from})
	if err != nil {
		t.Fatalf("GetGSTReport: %v", err)
	}
	if len(later.Sales) != 0 {
		t.Fatalf("date filter ignored: %d rows", len(later.Sales))
	}
}

func TestWriteGSTReportWorkbook(t *testing.T) {
	ctx := setupDB(t)
	seedBills(t, ctx)
	report, err := reports.GetGSTReport(ctx, reports.GSTReportFilter{ExcludeDSeries: true})
	if err != nil {
		t.Fatalf("GetGSTReport: %v", err)
	}

	var buf bytes.Buffer
	if err := reports.WriteGSTReport(&buf, report); err != nil {
		t.Fatalf("WriteGSTReport: %v", err)
	}
	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) != 3 || sheets[0] != "Sales" || sheets[1] != "Credit Notes" || sheets[2] != "Debit Notes" {
		t.Fatalf("sheets = %v", sheets)
	}
	rows, err := f.GetRows("Sales")
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	// heading, two bills, totals
	if len(rows) != 4 {
		t.Fatalf("sales rows = %d, want 4", len(rows))
	}
	if rows[0][1] != "Bill No" || rows[0][12] != "Total" {
		t.Fatalf("headings = %v", rows[0])
	}
	if rows[1][1] != "001" || rows[2][1] != "GRM050" {
		t.Fatalf("bills = %s, %s", rows[1][1], rows[2][1])
	}
	if rows[3][0] != "Total" {
		t.Fatalf("last row = %v", rows[3])
	}
	total, err := f.GetCellValue("Sales", "M4", excelize.Options{RawCellValue: true})
	if err != nil || total != "2100" {
		t.Fatalf("grand total = %q (%v), want 2100", total, err)
	}

	notes, _ := f.GetRows("Credit Notes")
	if len(notes) != 3 || notes[1][4] != "001" {
		t.Fatalf("credit note rows = %v", notes)
	}
}

func TestTransitReportStatus(t *testing.T) {
	ctx := setupDB(t)
	customer, err := models.CreateCustomer(ctx, &models.NewParty{Name: "Transit Buyer"})
	if err != nil {
		t.Fatalf("CreateCustomer: %v", err)
	}
	item, err := models.CreateItem(ctx, &models.NewItem{Name: "Gravel"})
	if err != nil {
		t.Fatalf("CreateItem: %v", err)
	}
	load := decimal.NewFromInt(9000)
	billed, err := models.CreateOutwardEntry(ctx, &models.NewOutwardEntry{
		VehicleNo: "TN01", CustomerId: &customer.ID, ItemId: &item.ID, EmptyWeight: decimal.NewFromInt(4000), LoadWeight: &load,
	})
	if err != nil {
		t.Fatalf("entry: %v", err)
	}
	if _, err := models.CreateOutwardEntry(ctx, &models.NewOutwardEntry{VehicleNo: "TN02", EmptyWeight: decimal.NewFromInt(3000), LoadWeight: &load}); err != nil {
		t.Fatalf("entry: %v", err)
	}
	if _, err := models.CreateOutwardEntry(ctx, &models.NewOutwardEntry{VehicleNo: "TN03", EmptyWeight: decimal.NewFromInt(3500)}); err != nil {
		t.Fatalf("entry: %v", err)
	}
	if _, err := models.CreateSale(ctx, &models.NewSale{CustomerId: customer.ID, ItemId: item.ID, OutwardEntryId: &billed.ID, Rate: decimal.NewFromInt(1)}); err != nil {
		t.Fatalf("sale: %v", err)
	}

	rows, err := reports.GetTransitReport(ctx, reports.TransitReportFilter{})
	if err != nil {
		t.Fatalf("GetTransitReport: %v", err)
	}
	want := []string{"Billed", "Loaded", "In Transit"}
	if len(rows) != len(want) {
		t.Fatalf("rows = %d", len(rows))
	}
	for i, w := range want {
		if got := rows[i].Status(); got != w {
			t.Fatalf("row %d (%s) status = %s, want %s", i, rows[i].VehicleNo, got, w)
		}
	}

	var buf bytes.Buffer
	if err := reports.WriteTransitReport(&buf, rows); err != nil {
		t.Fatalf("WriteTransitReport: %v", err)
	}
	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()
	net, _ := f.GetCellValue("Transit", "I5", excelize.Options{RawCellValue: true})
	if net != "11000" {
		t.Fatalf("net total = %q, want 11000", net)
	}
}

func TestGSTReportUsesServerCalendarDay(t *testing.T) {
	saved := time.Local
	time.Local = time.FixedZone("IST", 5*3600+1800)
	t.Cleanup(func() { time.Local = saved })

	ctx := setupDB(t)
	customer, err := models.CreateCustomer(ctx, &models.NewParty{Name: "Early Morning Loads"})
	if err != nil {
		t.Fatalf("CreateCustomer: %v", err)
	}
	item, err := models.CreateItem(ctx, &models.NewItem{Name: "Blue Metal", GstRate: decimal.NewFromInt(5), HsnCode: "2517"})
	if err != nil {
		t.Fatalf("CreateItem: %v", err)
	}
	// 00:00 on 5 Jan in IST, sent by a client in UTC
	sent := time.Date(2026, 1, 4, 18, 30, 0, 0, time.UTC)
	qty := decimal.NewFromInt(1)
	sale, err := models.CreateSale(ctx, &models.NewSale{SaleDate: &sent, CustomerId: customer.ID, ItemId: item.ID, Quantity: &qty, Rate: decimal.NewFromInt(100)})
	if err != nil {
		t.Fatalf("CreateSale: %v", err)
	}
	if y, m, d := sale.SaleDate.In(time.Local).Date(); y != 2026 || m != time.January || d != 5 {
		t.Fatalf("sale date = %v, want 2026-01-05", sale.SaleDate)
	}

	day, err := utils.ParseDate("2026-01-05")
	if err != nil {
		t.Fatalf("ParseDate: %v", err)
	}
	report, err := reports.GetGSTReport(ctx, reports.GSTReportFilter{From: &day, To: &day})
	if err != nil {
		t.Fatalf("GetGSTReport: %v", err)
	}
	if len(report.Sales) != 1 {
		t.Fatalf("sales on 2026-01-05 = %d, want 1", len(report.Sales))
	}
}
