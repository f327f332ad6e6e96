package models

import (
	"context"

	"gorm.io/gorm"
)

// CascadeResult counts what an admin delete removed.
type CascadeResult struct {
	LedgerRows  int64 `json:"ledger_rows"`
	CreditNotes int64 `json:"credit_notes"`
	DebitNotes  int64 `json:"debit_notes"`
	StockRows   int64 `json:"stock_rows"`
	Sales       int64 `json:"sales"`
	Entries     int64 `json:"entries"`
}

// deleteSalesTx removes sales together with their ledger rows and every note that references
// their bill numbers. Affected customers and items are rebalanced by the ledger writer.
func deleteSalesTx(ctx context.Context, tx *gorm.DB, sales []Sale, result *CascadeResult) error {
	if len(sales) == 0 {
		return nil
	}
	saleIds := make([]int, 0, len(sales))
	billNos := make([]string, 0, len(sales))
	for _, s := range sales {
		saleIds = append(saleIds, s.ID)
		billNos = append(billNos, s.BillSerialNo)
	}

	n, err := RemoveCustomerLedger(tx, LedgerTransactionTypeSale, saleIds...)
	if err != nil {
		return err
	}
	result.LedgerRows += n

	if n, err = deleteNotesByBill[CreditNote](ctx, tx, creditNoteBook, billNos, result); err != nil {
		return err
	}
	result.CreditNotes += n
	if n, err = deleteNotesByBill[DebitNote](ctx, tx, debitNoteBook, billNos, result); err != nil {
		return err
	}
	result.DebitNotes += n

	if n, err = RemoveStockLedger(tx, LedgerTransactionTypeSale, saleIds...); err != nil {
		return err
	}
	result.StockRows += n

	res := tx.Where("id IN ?", saleIds).Delete(&Sale{})
	if res.Error != nil {
		return res.Error
	}
	result.Sales += res.RowsAffected

	for _, s := range sales {
		if err := RecordLedgerEvent(ctx, tx, s.SaleDate, "sale", s.ID, s.BillSerialNo, s.CustomerId, s.TotalAmount, s, EventActionDelete); err != nil {
			return err
		}
		if err := createHistory(tx, HistoryActionDelete, s.ID, "sales", s, nil, "Sale "+s.BillSerialNo+" deleted"); err != nil {
			return err
		}
	}
	return nil
}

func deleteNotesByBill[T any, PT noteRecord[T]](ctx context.Context, tx *gorm.DB, book noteBook, billNos []string, result *CascadeResult) (int64, error) {
	var notes []T
	if err := tx.Where("reference_bill_no IN ?", billNos).Find(&notes).Error; err != nil {
		return 0, err
	}
	if len(notes) == 0 {
		return 0, nil
	}
	ids := make([]int, 0, len(notes))
	for i := range notes {
		ids = append(ids, PT(&notes[i]).Note().ID)
	}
	n, err := RemoveCustomerLedger(tx, book.ledgerType, ids...)
	if err != nil {
		return 0, err
	}
	result.LedgerRows += n

	res := tx.Where("id IN ?", ids).Delete(new(T))
	if res.Error != nil {
		return 0, res.Error
	}
	for i := range notes {
		note := PT(&notes[i]).Note()
		if err := RecordLedgerEvent(ctx, tx, note.NoteDate, string(book.ledgerType), note.ID, note.NoteNo, note.CustomerId, note.TotalAmount, note, EventActionDelete); err != nil {
			return 0, err
		}
	}
	return res.RowsAffected, nil
}

// DeleteOutwardEntry removes an entry and everything billed from it in one transaction:
// ledger rows of its sales, notes against their bill numbers, stock rows, the sales, the entry.
func DeleteOutwardEntry(ctx context.Context, id int) (*CascadeResult, error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	result := CascadeResult{}
	err := runInTx(ctx, func(tx *gorm.DB) error {
		var entry OutwardEntry
		if err := lockForUpdate(tx).First(&entry, id).Error; err != nil {
			return notFoundOr(err)
		}
		var sales []Sale
		if err := tx.Where("outward_entry_id = ?", id).Find(&sales).Error; err != nil {
			return err
		}
		if err := deleteSalesTx(ctx, tx, sales, &result); err != nil {
			return err
		}
		res := tx.Delete(&entry)
		if res.Error != nil {
			return res.Error
		}
		result.Entries = res.RowsAffected
		return createHistory(tx, HistoryActionDelete, id, "outward_entries", entry, result, "Outward entry "+entry.SerialNo+" deleted")
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// DeleteSale removes one sale with its ledger rows and the notes raised against it.
func DeleteSale(ctx context.Context, id int) (*CascadeResult, error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	result := CascadeResult{}
	err := runInTx(ctx, func(tx *gorm.DB) error {
		var sale Sale
		if err := lockForUpdate(tx).First(&sale, id).Error; err != nil {
			return notFoundOr(err)
		}
		return deleteSalesTx(ctx, tx, []Sale{sale}, &result)
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}
