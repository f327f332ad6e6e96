package models

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"bitbucket.org/mmdatafocus/tradebooks_backend/utils"
)

// LedgerLine is one signed entry of a party book. Balance is the running balance after this
// row, ordered by (transaction_date, id), and is only ever written by this file.
type LedgerLine struct {
	ID              int                   `gorm:"primary_key" json:"id"`
	PartyId         int                   `gorm:"not null;index:,composite:party_date" json:"party_id"`
	TransactionDate time.Time             `gorm:"not null;index:,composite:party_date" json:"transaction_date"`
	TransactionType LedgerTransactionType `gorm:"size:20;not null;index:,unique,composite:reference" json:"transaction_type"`
	ReferenceId     int                   `gorm:"not null;index:,unique,composite:reference" json:"reference_id"`
	ReferenceNo     string                `gorm:"size:50" json:"reference_no"`
	Description     string                `gorm:"size:255" json:"description"`
	DebitAmount     decimal.Decimal       `gorm:"type:decimal(20,4);not null;default:0" json:"debit_amount"`
	CreditAmount    decimal.Decimal       `gorm:"type:decimal(20,4);not null;default:0" json:"credit_amount"`
	Balance         decimal.Decimal       `gorm:"type:decimal(20,4);not null;default:0" json:"balance"`
	CreatedAt       time.Time             `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time             `gorm:"autoUpdateTime" json:"updated_at"`
}

func (l *LedgerLine) Line() *LedgerLine {
	return l
}

// CustomerLedger: debit raises what the customer owes.
type CustomerLedger struct {
	LedgerLine `gorm:"embedded"`
}

// SupplierLedger: credit raises what is owed to the supplier.
type SupplierLedger struct {
	LedgerLine `gorm:"embedded"`
}

// StockLedger reuses the line shape: DebitAmount is quantity in, CreditAmount quantity out.
type StockLedger struct {
	LedgerLine `gorm:"embedded"`
}

// LedgerPosting is what a document hands to the writer.
type LedgerPosting struct {
	PartyId     int
	Date        time.Time
	Type        LedgerTransactionType
	ReferenceId int
	ReferenceNo string
	Description string
	Debit       decimal.Decimal
	Credit      decimal.Decimal
}

type ledgerBook struct {
	partyTable  string
	normalDebit bool
}

var (
	customerBook = ledgerBook{partyTable: "customers", normalDebit: true}
	supplierBook = ledgerBook{partyTable: "suppliers", normalDebit: false}
	stockBook    = ledgerBook{partyTable: "items", normalDebit: true}
)

func (b ledgerBook) signed(debit decimal.Decimal, credit decimal.Decimal) decimal.Decimal {
	if b.normalDebit {
		return debit.Sub(credit)
	}
	return credit.Sub(debit)
}

type ledgerRecord[T any] interface {
	*T
	Line() *LedgerLine
}

func validatePosting(p LedgerPosting) error {
	if p.PartyId <= 0 {
		return utils.NewValidationMessage("party_id", "party is required")
	}
	if !p.Type.IsValid() {
		return utils.NewValidationMessage("transaction_type", "invalid transaction type")
	}
	if p.Debit.IsNegative() || p.Credit.IsNegative() {
		return utils.NewValidationMessage("amount", "ledger amounts cannot be negative")
	}
	return nil
}

func postLedger[T any, PT ledgerRecord[T]](tx *gorm.DB, book ledgerBook, p LedgerPosting) (*T, error) {
	if err := validatePosting(p); err != nil {
		return nil, err
	}
	if err := lockParty(tx, book.partyTable, p.PartyId); err != nil {
		return nil, err
	}

	var row T
	line := PT(&row).Line()
	line.PartyId = p.PartyId
	line.TransactionDate = utils.TruncateDay(p.Date)
	line.TransactionType = p.Type
	line.ReferenceId = p.ReferenceId
	line.ReferenceNo = p.ReferenceNo
	line.Description = p.Description
	line.DebitAmount = p.Debit
	line.CreditAmount = p.Credit

	if err := tx.Create(&row).Error; err != nil {
		return nil, err
	}
	if err := rebalanceLedger[T, PT](tx, book, p.PartyId, line.TransactionDate); err != nil {
		return nil, err
	}
	if err := tx.First(&row, line.ID).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

// replaceLedger updates the row of (type, reference) in place, or creates it, and rebalances.
// A change of party rebalances both the old and new party.
func replaceLedger[T any, PT ledgerRecord[T]](tx *gorm.DB, book ledgerBook, p LedgerPosting) (*T, error) {
	if err := validatePosting(p); err != nil {
		return nil, err
	}

	var row T
	err := tx.Where("transaction_type = ? AND reference_id = ?", p.Type, p.ReferenceId).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return postLedger[T, PT](tx, book, p)
	}
	if err != nil {
		return nil, err
	}

	line := PT(&row).Line()
	oldParty := line.PartyId
	oldDate := line.TransactionDate
	newDate := utils.TruncateDay(p.Date)

	if err := lockParty(tx, book.partyTable, p.PartyId); err != nil {
		return nil, err
	}
	if oldParty != p.PartyId {
		if err := lockParty(tx, book.partyTable, oldParty); err != nil {
			return nil, err
		}
	}

	err = tx.Model(&row).Updates(map[string]interface{}{
		"party_id":         p.PartyId,
		"transaction_date": newDate,
		"reference_no":     p.ReferenceNo,
		"description":      p.Description,
		"debit_amount":     p.Debit,
		"credit_amount":    p.Credit,
	}).Error
	if err != nil {
		return nil, err
	}

	if oldParty != p.PartyId {
		if err := rebalanceLedger[T, PT](tx, book, oldParty, oldDate); err != nil {
			return nil, err
		}
		if err := rebalanceLedger[T, PT](tx, book, p.PartyId, newDate); err != nil {
			return nil, err
		}
	} else if err := rebalanceLedger[T, PT](tx, book, p.PartyId, earlier(oldDate, newDate)); err != nil {
		return nil, err
	}

	if err := tx.First(&row, line.ID).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

// removeLedger deletes the rows of the given references and rebalances every touched party.
func removeLedger[T any, PT ledgerRecord[T]](tx *gorm.DB, book ledgerBook, txType LedgerTransactionType, referenceIds []int) (int64, error) {
	if len(referenceIds) == 0 {
		return 0, nil
	}
	var rows []T
	if err := tx.Where("transaction_type = ? AND reference_id IN ?", txType, referenceIds).Find(&rows).Error; err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}

	from := map[int]time.Time{}
	ids := make([]int, 0, len(rows))
	for i := range rows {
		line := PT(&rows[i]).Line()
		ids = append(ids, line.ID)
		if d, ok := from[line.PartyId]; !ok || line.TransactionDate.Before(d) {
			from[line.PartyId] = line.TransactionDate
		}
	}
	for partyId := range from {
		if err := lockParty(tx, book.partyTable, partyId); err != nil && !errors.Is(err, utils.ErrorRecordNotFound) {
			return 0, err
		}
	}

	res := tx.Where("id IN ?", ids).Delete(new(T))
	if res.Error != nil {
		return 0, res.Error
	}
	for partyId, d := range from {
		if err := rebalanceLedger[T, PT](tx, book, partyId, d); err != nil {
			return 0, err
		}
	}
	return res.RowsAffected, nil
}

// rebalanceLedger recomputes running balances of a party from the given date onwards,
// starting from the balance of the last row before that date.
func rebalanceLedger[T any, PT ledgerRecord[T]](tx *gorm.DB, book ledgerBook, partyId int, from time.Time) error {
	from = utils.TruncateDay(from)

	running := decimal.Zero
	var prev T
	err := tx.Where("party_id = ? AND transaction_date < ?", partyId, from).
		Order("transaction_date DESC, id DESC").
		Take(&prev).Error
	if err == nil {
		running = PT(&prev).Line().Balance
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	var rows []T
	err = tx.Where("party_id = ? AND transaction_date >= ?", partyId, from).
		Order("transaction_date, id").
		Find(&rows).Error
	if err != nil {
		return err
	}

	for i := range rows {
		line := PT(&rows[i]).Line()
		running = running.Add(book.signed(line.DebitAmount, line.CreditAmount))
		if line.Balance.Equal(running) {
			continue
		}
		if err := tx.Model(new(T)).Where("id = ?", line.ID).Update("balance", running).Error; err != nil {
			return err
		}
	}
	return nil
}

func PostCustomerLedger(tx *gorm.DB, p LedgerPosting) (*CustomerLedger, error) {
	return postLedger[CustomerLedger](tx, customerBook, p)
}

func ReplaceCustomerLedger(tx *gorm.DB, p LedgerPosting) (*CustomerLedger, error) {
	return replaceLedger[CustomerLedger](tx, customerBook, p)
}

func RemoveCustomerLedger(tx *gorm.DB, txType LedgerTransactionType, referenceIds ...int) (int64, error) {
	return removeLedger[CustomerLedger](tx, customerBook, txType, referenceIds)
}

func RebalanceCustomer(tx *gorm.DB, customerId int, from time.Time) error {
	return rebalanceLedger[CustomerLedger](tx, customerBook, customerId, from)
}

func PostSupplierLedger(tx *gorm.DB, p LedgerPosting) (*SupplierLedger, error) {
	return postLedger[SupplierLedger](tx, supplierBook, p)
}

func ReplaceSupplierLedger(tx *gorm.DB, p LedgerPosting) (*SupplierLedger, error) {
	return replaceLedger[SupplierLedger](tx, supplierBook, p)
}

func RemoveSupplierLedger(tx *gorm.DB, txType LedgerTransactionType, referenceIds ...int) (int64, error) {
	return removeLedger[SupplierLedger](tx, supplierBook, txType, referenceIds)
}

func RebalanceSupplier(tx *gorm.DB, supplierId int, from time.Time) error {
	return rebalanceLedger[SupplierLedger](tx, supplierBook, supplierId, from)
}

func PostStockLedger(tx *gorm.DB, p LedgerPosting) (*StockLedger, error) {
	return postLedger[StockLedger](tx, stockBook, p)
}

func ReplaceStockLedger(tx *gorm.DB, p LedgerPosting) (*StockLedger, error) {
	return replaceLedger[StockLedger](tx, stockBook, p)
}

func RemoveStockLedger(tx *gorm.DB, txType LedgerTransactionType, referenceIds ...int) (int64, error) {
	return removeLedger[StockLedger](tx, stockBook, txType, referenceIds)
}

func RebalanceStock(tx *gorm.DB, itemId int, from time.Time) error {
	return rebalanceLedger[StockLedger](tx, stockBook, itemId, from)
}

// epoch is earlier than any posting; rebalancing from it recomputes a whole book.
var epoch = time.Date(1970, 1, 1, 0, 0, 0, 0, time.Local)

// RebalanceAll recomputes every party of every book. Used by the ledger-rebalance tool.
func RebalanceAll(tx *gorm.DB) (int, error) {
	parties := 0
	books := []struct {
		model any
		run   func(int) error
	}{
		{&CustomerLedger{}, func(id int) error { return RebalanceCustomer(tx, id, epoch) }},
		{&SupplierLedger{}, func(id int) error { return RebalanceSupplier(tx, id, epoch) }},
		{&StockLedger{}, func(id int) error { return RebalanceStock(tx, id, epoch) }},
	}
	for _, b := range books {
		var ids []int
		if err := tx.Model(b.model).Distinct("party_id").Pluck("party_id", &ids).Error; err != nil {
			return parties, err
		}
		for _, id := range ids {
			if err := b.run(id); err != nil {
				return parties, err
			}
			parties++
		}
	}
	return parties, nil
}
