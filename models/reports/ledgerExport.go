package reports

import (
	"io"

	"github.com/shopspring/decimal"

	"bitbucket.org/mmdatafocus/tradebooks_backend/models"
	"bitbucket.org/mmdatafocus/tradebooks_backend/utils"
)

type ledgerExportRow struct {
	line *models.LedgerLine
}

func (r ledgerExportRow) GetCellValues() []interface{} {
	return []interface{}{
		r.line.TransactionDate.Format(utils.DateLayout), string(r.line.TransactionType), r.line.ReferenceNo,
		r.line.Description, r.line.DebitAmount, r.line.CreditAmount, r.line.Balance,
	}
}

var ledgerHeadings = []string{"Date", "Type", "Reference", "Description", "Debit", "Credit", "Balance"}

// WriteLedgerStatement exports a party statement with an opening row and the period totals.
func WriteLedgerStatement(w io.Writer, title string, statement *models.LedgerStatement) error {
	wb, err := newWorkbook()
	if err != nil {
		return err
	}
	data := make([]ExcelExporter, 0, len(statement.Rows)+1)
	data = append(data, openingRow{statement})
	for _, line := range statement.Rows {
		data = append(data, ledgerExportRow{line})
	}
	next, err := wb.addSheet(title, ledgerHeadings, data)
	if err != nil {
		return err
	}
	if err := wb.setMoneyColumns(title, next-1, 5, 6, 7); err != nil {
		return err
	}
	if err := wb.addTotalsRow(title, next, map[int]decimal.Decimal{
		5: statement.TotalDebit,
		6: statement.TotalCredit,
		7: statement.ClosingBalance,
	}); err != nil {
		return err
	}
	return wb.write(w)
}

type openingRow struct {
	statement *models.LedgerStatement
}

func (r openingRow) GetCellValues() []interface{} {
	date := ""
	if r.statement.From != nil {
		date = r.statement.From.Format(utils.DateLayout)
	}
	return []interface{}{date, "opening", "", "Opening balance", "", "", r.statement.OpeningBalance}
}
