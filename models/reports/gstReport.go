package reports

import (
	"context"
	"io"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"bitbucket.org/mmdatafocus/tradebooks_backend/config"
	"bitbucket.org/mmdatafocus/tradebooks_backend/utils"
)

type GSTReportFilter struct {
	From           *time.Time
	To             *time.Time
	ExcludeDSeries bool
}

type GSTSaleRow struct {
	SaleDate     time.Time       `json:"sale_date"`
	BillSerialNo string          `json:"bill_serial_no"`
	CustomerName string          `json:"customer_name"`
	Gstin        string          `json:"gstin"`
	HsnCode      string          `json:"hsn_code"`
	ItemName     string          `json:"item_name"`
	Quantity     decimal.Decimal `json:"quantity"`
	Rate         decimal.Decimal `json:"rate"`
	Amount       decimal.Decimal `json:"amount"`
	GstRate      decimal.Decimal `json:"gst_rate"`
	Cgst         decimal.Decimal `json:"cgst"`
	Sgst         decimal.Decimal `json:"sgst"`
	TotalAmount  decimal.Decimal `json:"total_amount"`
}

func (r GSTSaleRow) GetCellValues() []interface{} {
	return []interface{}{
		r.SaleDate.Format(utils.DateLayout), r.BillSerialNo, r.CustomerName, r.Gstin, r.HsnCode, r.ItemName,
		r.Quantity, r.Rate, r.Amount, r.GstRate, r.Cgst, r.Sgst, r.TotalAmount,
	}
}

type GSTNoteRow struct {
	NoteDate        time.Time       `json:"note_date"`
	NoteNo          string          `json:"note_no"`
	CustomerName    string          `json:"customer_name"`
	Gstin           string          `json:"gstin"`
	ReferenceBillNo *string         `json:"reference_bill_no"`
	Amount          decimal.Decimal `json:"amount"`
	GstRate         decimal.Decimal `json:"gst_rate"`
	Cgst            decimal.Decimal `json:"cgst"`
	Sgst            decimal.Decimal `json:"sgst"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	Reason          string          `json:"reason"`
}

func (r GSTNoteRow) GetCellValues() []interface{} {
	return []interface{}{
		r.NoteDate.Format(utils.DateLayout), r.NoteNo, r.CustomerName, r.Gstin, utils.DereferencePtr(r.ReferenceBillNo, ""),
		r.Amount, r.GstRate, r.Cgst, r.Sgst, r.TotalAmount, r.Reason,
	}
}

type GSTReport struct {
	Sales       []*GSTSaleRow `json:"sales"`
	CreditNotes []*GSTNoteRow `json:"credit_notes"`
	DebitNotes  []*GSTNoteRow `json:"debit_notes"`
}

var (
	gstSaleHeadings = []string{"Date", "Bill No", "Customer", "GSTIN", "HSN", "Item", "Quantity", "Rate",
		"Taxable Value", "GST %", "CGST", "SGST", "Total"}
	gstNoteHeadings = []string{"Date", "Note No", "Customer", "GSTIN", "Reference Bill", "Taxable Value",
		"GST %", "CGST", "SGST", "Total", "Reason"}
)

func dateRange(dbCtx *gorm.DB, column string, from, to *time.Time) *gorm.DB {
	if from != nil {
		dbCtx = dbCtx.Where(column+" >= ?", utils.TruncateDay(*from))
	}
	if to != nil {
		dbCtx = dbCtx.Where(column+" <= ?", utils.TruncateDay(*to))
	}
	return dbCtx
}

func gstNoteRows(db *gorm.DB, table string, filter GSTReportFilter) ([]*GSTNoteRow, error) {
	dbCtx := db.Table(table + " n").
		Select(`n.note_date, n.note_no, c.name AS customer_name, c.gstin, n.reference_bill_no,
			n.amount, n.gst_rate, n.cgst, n.sgst, n.total_amount, n.reason`).
		Joins("LEFT JOIN customers c ON c.id = n.customer_id")
	dbCtx = dateRange(dbCtx, "n.note_date", filter.From, filter.To)
	if filter.ExcludeDSeries {
		// notes against a D-series bill leave the report with the bill
		dbCtx = dbCtx.Where("n.reference_bill_no IS NULL OR UPPER(n.reference_bill_no) NOT LIKE ?", "D%")
	}
	var rows []*GSTNoteRow
	err := dbCtx.Order("n.note_date, n.id").Scan(&rows).Error
	return rows, err
}

// GetGSTReport reads the sales and note registers for a period.
// ExcludeDSeries drops every bill whose serial starts with D.
func GetGSTReport(ctx context.Context, filter GSTReportFilter) (*GSTReport, error) {
	return cachedReport(ctx, "gst", func(generation string) string {
		return gstReportKey(generation, filter)
	}, func() (*GSTReport, error) {
		return loadGSTReport(ctx, filter)
	})
}

func loadGSTReport(ctx context.Context, filter GSTReportFilter) (*GSTReport, error) {
	db := config.GetDB().WithContext(ctx)
	var report GSTReport

	dbCtx := db.Table("sales s").
		Select(`s.sale_date, s.bill_serial_no, c.name AS customer_name, c.gstin, i.hsn_code, i.name AS item_name,
			s.quantity, s.rate, s.amount, s.gst_rate, s.cgst, s.sgst, s.total_amount`).
		Joins("LEFT JOIN customers c ON c.id = s.customer_id").
		Joins("LEFT JOIN items i ON i.id = s.item_id")
	dbCtx = dateRange(dbCtx, "s.sale_date", filter.From, filter.To)
	if filter.ExcludeDSeries {
		dbCtx = dbCtx.Where("UPPER(s.bill_serial_no) NOT LIKE ?", "D%")
	}
	if err := dbCtx.Order("s.sale_date, s.id").Scan(&report.Sales).Error; err != nil {
		return nil, err
	}

	var err error
	if report.CreditNotes, err = gstNoteRows(db, "credit_notes", filter); err != nil {
		return nil, err
	}
	if report.DebitNotes, err = gstNoteRows(db, "debit_notes", filter); err != nil {
		return nil, err
	}
	return &report, nil
}

func sumSales(rows []*GSTSaleRow) map[int]decimal.Decimal {
	totals := map[int]decimal.Decimal{7: decimal.Zero, 9: decimal.Zero, 11: decimal.Zero, 12: decimal.Zero, 13: decimal.Zero}
	for _, r := range rows {
		totals[7] = totals[7].Add(r.Quantity)
		totals[9] = totals[9].Add(r.Amount)
		totals[11] = totals[11].Add(r.Cgst)
		totals[12] = totals[12].Add(r.Sgst)
		totals[13] = totals[13].Add(r.TotalAmount)
	}
	return totals
}

func sumNotes(rows []*GSTNoteRow) map[int]decimal.Decimal {
	totals := map[int]decimal.Decimal{6: decimal.Zero, 8: decimal.Zero, 9: decimal.Zero, 10: decimal.Zero}
	for _, r := range rows {
		totals[6] = totals[6].Add(r.Amount)
		totals[8] = totals[8].Add(r.Cgst)
		totals[9] = totals[9].Add(r.Sgst)
		totals[10] = totals[10].Add(r.TotalAmount)
	}
	return totals
}

// WriteGSTReport renders the report as an xlsx workbook: Sales, Credit Notes and Debit Notes sheets,
// each closed by a totals row.
func WriteGSTReport(w io.Writer, report *GSTReport) error {
	wb, err := newWorkbook()
	if err != nil {
		return err
	}

	sales := make([]ExcelExporter, 0, len(report.Sales))
	for _, r := range report.Sales {
		sales = append(sales, r)
	}
	next, err := wb.addSheet("Sales", gstSaleHeadings, sales)
	if err != nil {
		return err
	}
	if err := wb.setMoneyColumns("Sales", next-1, 8, 9, 11, 12, 13); err != nil {
		return err
	}
	if err := wb.addTotalsRow("Sales", next, sumSales(report.Sales)); err != nil {
		return err
	}

	for _, sheet := range []struct {
		name string
		rows []*GSTNoteRow
	}{{"Credit Notes", report.CreditNotes}, {"Debit Notes", report.DebitNotes}} {
		data := make([]ExcelExporter, 0, len(sheet.rows))
		for _, r := range sheet.rows {
			data = append(data, r)
		}
		next, err := wb.addSheet(sheet.name, gstNoteHeadings, data)
		if err != nil {
			return err
		}
		if err := wb.setMoneyColumns(sheet.name, next-1, 6, 8, 9, 10); err != nil {
			return err
		}
		if err := wb.addTotalsRow(sheet.name, next, sumNotes(sheet.rows)); err != nil {
			return err
		}
	}
	return wb.write(w)
}

func formatOptionalDate(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format(utils.DateLayout)
}
