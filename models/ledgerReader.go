package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"bitbucket.org/mmdatafocus/tradebooks_backend/config"
	"bitbucket.org/mmdatafocus/tradebooks_backend/utils"
)

type LedgerFilter struct {
	From  *time.Time
	To    *time.Time
	Types []LedgerTransactionType
	Page  Page
}

// LedgerStatement is a party book for a date range. Every balance is read from the stored running
// balance; Opening + period movement == Closing regardless of the type filter, which only narrows Rows.
type LedgerStatement struct {
	PartyId        int             `json:"party_id"`
	PartyName      string          `json:"party_name"`
	PartyCode      string          `json:"party_code"`
	From           *time.Time      `json:"from,omitempty"`
	To             *time.Time      `json:"to,omitempty"`
	OpeningBalance decimal.Decimal `json:"opening_balance"`
	TotalDebit     decimal.Decimal `json:"total_debit"`
	TotalCredit    decimal.Decimal `json:"total_credit"`
	ClosingBalance decimal.Decimal `json:"closing_balance"`
	CurrentBalance decimal.Decimal `json:"current_balance"`
	Rows           []*LedgerLine   `json:"rows"`
	PageInfo       *PageInfo       `json:"page_info"`
}

func balanceBefore[T any, PT ledgerRecord[T]](db *gorm.DB, partyId int, before *time.Time) (decimal.Decimal, error) {
	if before == nil {
		return decimal.Zero, nil
	}
	var row T
	err := db.Where("party_id = ? AND transaction_date < ?", partyId, utils.TruncateDay(*before)).
		Order("transaction_date DESC, id DESC").
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, err
	}
	return PT(&row).Line().Balance, nil
}

func balanceAtOrBefore[T any, PT ledgerRecord[T]](db *gorm.DB, partyId int, at *time.Time) (decimal.Decimal, error) {
	dbCtx := db.Where("party_id = ?", partyId)
	if at != nil {
		dbCtx = dbCtx.Where("transaction_date <= ?", utils.TruncateDay(*at))
	}
	var row T
	err := dbCtx.Order("transaction_date DESC, id DESC").Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, err
	}
	return PT(&row).Line().Balance, nil
}

func readStatement[T any, PT ledgerRecord[T]](ctx context.Context, partyId int, filter LedgerFilter) (*LedgerStatement, error) {
	db := config.GetDB().WithContext(ctx)

	statement := LedgerStatement{PartyId: partyId, From: filter.From, To: filter.To}

	var err error
	if statement.OpeningBalance, err = balanceBefore[T, PT](db, partyId, filter.From); err != nil {
		return nil, err
	}
	if statement.ClosingBalance, err = balanceAtOrBefore[T, PT](db, partyId, filter.To); err != nil {
		return nil, err
	}
	if statement.CurrentBalance, err = balanceAtOrBefore[T, PT](db, partyId, nil); err != nil {
		return nil, err
	}

	ranged := db.Model(new(T)).Where("party_id = ?", partyId)
	if filter.From != nil {
		ranged = ranged.Where("transaction_date >= ?", utils.TruncateDay(*filter.From))
	}
	if filter.To != nil {
		ranged = ranged.Where("transaction_date <= ?", utils.TruncateDay(*filter.To))
	}

	var totals struct {
		Debit  decimal.Decimal
		Credit decimal.Decimal
	}
	if err := ranged.Session(&gorm.Session{}).
		Select("COALESCE(SUM(debit_amount), 0) AS debit, COALESCE(SUM(credit_amount), 0) AS credit").
		Scan(&totals).Error; err != nil {
		return nil, err
	}
	statement.TotalDebit = totals.Debit
	statement.TotalCredit = totals.Credit

	listed := ranged.Session(&gorm.Session{})
	if len(filter.Types) > 0 {
		listed = listed.Where("transaction_type IN ?", filter.Types)
	}
	rows, pageInfo, err := FetchPage[T](listed, filter.Page, "transaction_date, id")
	if err != nil {
		return nil, err
	}
	statement.Rows = make([]*LedgerLine, 0, len(rows))
	for _, r := range rows {
		statement.Rows = append(statement.Rows, PT(r).Line())
	}
	statement.PageInfo = pageInfo
	return &statement, nil
}

func GetCustomerLedger(ctx context.Context, customerId int, filter LedgerFilter) (*LedgerStatement, error) {
	customer, err := GetCustomer(ctx, customerId)
	if err != nil {
		return nil, err
	}
	statement, err := readStatement[CustomerLedger](ctx, customerId, filter)
	if err != nil {
		return nil, err
	}
	statement.PartyName = customer.Name
	statement.PartyCode = customer.Code
	return statement, nil
}

func GetSupplierLedger(ctx context.Context, supplierId int, filter LedgerFilter) (*LedgerStatement, error) {
	supplier, err := GetSupplier(ctx, supplierId)
	if err != nil {
		return nil, err
	}
	statement, err := readStatement[SupplierLedger](ctx, supplierId, filter)
	if err != nil {
		return nil, err
	}
	statement.PartyName = supplier.Name
	statement.PartyCode = supplier.Code
	return statement, nil
}

func GetStockLedger(ctx context.Context, itemId int, filter LedgerFilter) (*LedgerStatement, error) {
	item, err := GetItem(ctx, itemId)
	if err != nil {
		return nil, err
	}
	statement, err := readStatement[StockLedger](ctx, itemId, filter)
	if err != nil {
		return nil, err
	}
	statement.PartyName = item.Name
	statement.PartyCode = item.HsnCode
	return statement, nil
}

// CurrentCustomerBalance is the balance of the customer's latest ledger row.
func CurrentCustomerBalance(ctx context.Context, customerId int) (decimal.Decimal, error) {
	return balanceAtOrBefore[CustomerLedger](config.GetDB().WithContext(ctx), customerId, nil)
}

func CurrentSupplierBalance(ctx context.Context, supplierId int) (decimal.Decimal, error) {
	return balanceAtOrBefore[SupplierLedger](config.GetDB().WithContext(ctx), supplierId, nil)
}

func CurrentStock(ctx context.Context, itemId int) (decimal.Decimal, error) {
	return balanceAtOrBefore[StockLedger](config.GetDB().WithContext(ctx), itemId, nil)
}

type PartyBalance struct {
	PartyId int             `json:"party_id"`
	Code    string          `json:"code"`
	Name    string          `json:"name"`
	Balance decimal.Decimal `json:"balance"`
}

// latest row per party: no later row by (transaction_date, id) exists
const latestLedgerRowSQL = `
SELECT p.id AS party_id, p.code, p.name, COALESCE(l.balance, 0) AS balance
FROM %[1]s p
LEFT JOIN %[2]s l ON l.party_id = p.id AND NOT EXISTS (
	SELECT 1 FROM %[2]s l2
	WHERE l2.party_id = l.party_id
	AND (l2.transaction_date > l.transaction_date OR (l2.transaction_date = l.transaction_date AND l2.id > l.id))
)
WHERE p.is_active = @active OR @includeInactive
ORDER BY p.name
`

func listBalances(ctx context.Context, partyTable string, ledgerTable string, includeInactive bool) ([]*PartyBalance, error) {
	db := config.GetDB()
	var results []*PartyBalance
	err := db.WithContext(ctx).
		Raw(fmt.Sprintf(latestLedgerRowSQL, partyTable, ledgerTable), map[string]interface{}{
			"active":          true,
			"includeInactive": includeInactive,
		}).
		Scan(&results).Error
	return results, err
}

func ListCustomerBalances(ctx context.Context, includeInactive bool) ([]*PartyBalance, error) {
	return listBalances(ctx, "customers", "customer_ledgers", includeInactive)
}

func ListSupplierBalances(ctx context.Context, includeInactive bool) ([]*PartyBalance, error) {
	return listBalances(ctx, "suppliers", "supplier_ledgers", includeInactive)
}
