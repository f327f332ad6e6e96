package models

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"bitbucket.org/mmdatafocus/tradebooks_backend/config"
)

const (
	LedgerIssueMissingRow   = "missing_row"
	LedgerIssueOrphanRow    = "orphan_row"
	LedgerIssueBalanceDrift = "balance_drift"
)

type LedgerIssue struct {
	Book          string                `json:"book"`
	Kind          string                `json:"kind"`
	PartyId       int                   `json:"party_id,omitempty"`
	ReferenceType LedgerTransactionType `json:"reference_type,omitempty"`
	ReferenceId   int                   `json:"reference_id,omitempty"`
	ReferenceNo   string                `json:"reference_no,omitempty"`
	LedgerRowId   int                   `json:"ledger_row_id,omitempty"`
	Expected      *decimal.Decimal      `json:"expected,omitempty"`
	Actual        *decimal.Decimal      `json:"actual,omitempty"`
}

type LedgerCheckReport struct {
	CheckedAt time.Time      `json:"checked_at"`
	OK        bool           `json:"ok"`
	Issues    []*LedgerIssue `json:"issues"`
}

// documentLink ties a document table to the ledger rows it must own.
type documentLink struct {
	book        string
	ledgerTable string
	txType      LedgerTransactionType
	docTable    string
	numberCol   string
}

var documentLinks = []documentLink{
	{"customer", "customer_ledgers", LedgerTransactionTypeSale, "sales", "bill_serial_no"},
	{"customer", "customer_ledgers", LedgerTransactionTypeReceipt, "receipts", "receipt_no"},
	{"customer", "customer_ledgers", LedgerTransactionTypeCreditNote, "credit_notes", "note_no"},
	{"customer", "customer_ledgers", LedgerTransactionTypeDebitNote, "debit_notes", "note_no"},
	{"supplier", "supplier_ledgers", LedgerTransactionTypePurchase, "purchases", "purchase_no"},
	{"supplier", "supplier_ledgers", LedgerTransactionTypePayment, "supplier_payments", "payment_no"},
	{"stock", "stock_ledgers", LedgerTransactionTypeSale, "sales", "bill_serial_no"},
	{"stock", "stock_ledgers", LedgerTransactionTypePurchase, "purchases", "purchase_no"},
}

type docRef struct {
	ID int
	No string
}

func checkDocumentLink(db *gorm.DB, link documentLink) ([]*LedgerIssue, error) {
	var issues []*LedgerIssue

	var missing []docRef
	err := db.Raw(fmt.Sprintf(`SELECT d.id AS id, d.%[3]s AS no FROM %[2]s d
		LEFT JOIN %[1]s l ON l.transaction_type = ? AND l.reference_id = d.id
		WHERE l.id IS NULL`, link.ledgerTable, link.docTable, link.numberCol), link.txType).
		Scan(&missing).Error
	if err != nil {
		return nil, err
	}
	for _, m := range missing {
		issues = append(issues, &LedgerIssue{
			Book: link.book, Kind: LedgerIssueMissingRow,
			ReferenceType: link.txType, ReferenceId: m.ID, ReferenceNo: m.No,
		})
	}

	var orphans []LedgerLine
	err = db.Raw(fmt.Sprintf(`SELECT l.* FROM %[1]s l
		LEFT JOIN %[2]s d ON d.id = l.reference_id
		WHERE l.transaction_type = ? AND d.id IS NULL`, link.ledgerTable, link.docTable), link.txType).
		Scan(&orphans).Error
	if err != nil {
		return nil, err
	}
	for _, o := range orphans {
		issues = append(issues, &LedgerIssue{
			Book: link.book, Kind: LedgerIssueOrphanRow, PartyId: o.PartyId,
			ReferenceType: link.txType, ReferenceId: o.ReferenceId, ReferenceNo: o.ReferenceNo, LedgerRowId: o.ID,
		})
	}
	return issues, nil
}

// checkBalances walks a whole book in posting order and reports the first drifting row of each party.
func checkBalances[T any, PT ledgerRecord[T]](db *gorm.DB, bookName string, book ledgerBook) ([]*LedgerIssue, error) {
	rows, err := db.Model(new(T)).Order("party_id, transaction_date, id").Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var issues []*LedgerIssue
	currentParty := 0
	running := decimal.Zero
	drifted := false
	for rows.Next() {
		var row T
		if err := db.ScanRows(rows, &row); err != nil {
			return nil, err
		}
		line := PT(&row).Line()
		if line.PartyId != currentParty {
			currentParty = line.PartyId
			running = decimal.Zero
			drifted = false
		}
		running = running.Add(book.signed(line.DebitAmount, line.CreditAmount))
		if drifted || line.Balance.Equal(running) {
			continue
		}
		drifted = true
		expected, actual := running, line.Balance
		issues = append(issues, &LedgerIssue{
			Book: bookName, Kind: LedgerIssueBalanceDrift, PartyId: line.PartyId,
			ReferenceType: line.TransactionType, ReferenceId: line.ReferenceId, ReferenceNo: line.ReferenceNo,
			LedgerRowId: line.ID, Expected: &expected, Actual: &actual,
		})
	}
	return issues, rows.Err()
}

// CheckLedgerConsistency reports documents without their ledger row, ledger rows without their
// document, and parties whose stored running balance differs from the recomputed one.
func CheckLedgerConsistency(ctx context.Context) (*LedgerCheckReport, error) {
	db := config.GetDB().WithContext(ctx)
	report := LedgerCheckReport{CheckedAt: time.Now(), Issues: []*LedgerIssue{}}

	for _, link := range documentLinks {
		issues, err := checkDocumentLink(db, link)
		if err != nil {
			return nil, err
		}
		report.Issues = append(report.Issues, issues...)
	}

	balanceChecks := []func() ([]*LedgerIssue, error){
		func() ([]*LedgerIssue, error) { return checkBalances[CustomerLedger](db, "customer", customerBook) },
		func() ([]*LedgerIssue, error) { return checkBalances[SupplierLedger](db, "supplier", supplierBook) },
		func() ([]*LedgerIssue, error) { return checkBalances[StockLedger](db, "stock", stockBook) },
	}
	for _, check := range balanceChecks {
		issues, err := check()
		if err != nil {
			return nil, err
		}
		report.Issues = append(report.Issues, issues...)
	}

	report.OK = len(report.Issues) == 0
	return &report, nil
}
