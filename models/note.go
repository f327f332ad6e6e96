package models

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"bitbucket.org/mmdatafocus/tradebooks_backend/config"
	"bitbucket.org/mmdatafocus/tradebooks_backend/utils"
)

// AdjustmentNote is the shape shared by credit and debit notes. Amount is the taxable value.
type AdjustmentNote struct {
	ID              int             `gorm:"primary_key" json:"id"`
	NoteNo          string          `gorm:"size:30;not null;uniqueIndex" json:"note_no"`
	NoteDate        time.Time       `gorm:"not null;index" json:"note_date"`
	CustomerId      int             `gorm:"not null;index" json:"customer_id"`
	Amount          decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"amount"`
	GstRate         decimal.Decimal `gorm:"type:decimal(5,2);not null;default:0" json:"gst_rate"`
	GstAmount       decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"gst_amount"`
	Cgst            decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"cgst"`
	Sgst            decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"sgst"`
	TotalAmount     decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"total_amount"`
	Reason          string          `gorm:"type:text" json:"reason"`
	ReferenceBillNo *string         `gorm:"size:30;index" json:"reference_bill_no"`
	Irn             *string         `gorm:"size:64" json:"irn"`
	CreatedAt       time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (n *AdjustmentNote) Note() *AdjustmentNote {
	return n
}

func (n AdjustmentNote) Breakup() utils.GSTBreakup {
	return utils.GSTBreakup{
		Taxable: n.Amount,
		Rate:    n.GstRate,
		GST:     n.GstAmount,
		CGST:    n.Cgst,
		SGST:    n.Sgst,
		Total:   n.TotalAmount,
	}
}

type NewNote struct {
	NoteDate        *time.Time      `json:"note_date"`
	CustomerId      int             `json:"customer_id" binding:"required"`
	Amount          decimal.Decimal `json:"amount" binding:"required"`
	GstRate         decimal.Decimal `json:"gst_rate"`
	Reason          string          `json:"reason"`
	ReferenceBillNo string          `json:"reference_bill_no"`
}

type NoteFilter struct {
	From            *time.Time
	To              *time.Time
	CustomerId      int
	ReferenceBillNo string
	Page            Page
}

type noteRecord[T any] interface {
	*T
	Note() *AdjustmentNote
}

// noteBook describes where a note kind is numbered and which side of the customer ledger it hits.
type noteBook struct {
	kind       NoteKind
	docType    DocumentType
	ledgerType LedgerTransactionType
	table      string
	label      string
}

var (
	creditNoteBook = noteBook{kind: NoteKindCredit, docType: DocumentTypeCreditNote, ledgerType: LedgerTransactionTypeCreditNote, table: "credit_notes", label: "Credit note"}
	debitNoteBook  = noteBook{kind: NoteKindDebit, docType: DocumentTypeDebitNote, ledgerType: LedgerTransactionTypeDebitNote, table: "debit_notes", label: "Debit note"}
)

func (b noteBook) posting(n *AdjustmentNote) LedgerPosting {
	p := LedgerPosting{
		PartyId:     n.CustomerId,
		Date:        n.NoteDate,
		Type:        b.ledgerType,
		ReferenceId: n.ID,
		ReferenceNo: n.NoteNo,
		Description: b.label + " " + n.NoteNo,
		Debit:       decimal.Zero,
		Credit:      decimal.Zero,
	}
	if n.ReferenceBillNo != nil {
		p.Description += " against " + *n.ReferenceBillNo
	}
	if b.kind == NoteKindCredit {
		p.Credit = n.TotalAmount
	} else {
		p.Debit = n.TotalAmount
	}
	return p
}

func createNote[T any, PT noteRecord[T]](ctx context.Context, book noteBook, input *NewNote) (*T, error) {
	if !utils.RoundMoney(input.Amount).IsPositive() {
		return nil, utils.NewValidationMessage("amount", "amount must be greater than zero")
	}
	if !isAllowedGstRate(input.GstRate) {
		return nil, utils.NewValidationMessage("gst_rate", "gst rate must be one of 0, 5, 12, 18, 28")
	}

	var row T
	note := PT(&row).Note()
	note.NoteDate = transactionDateOrToday(input.NoteDate)
	note.CustomerId = input.CustomerId
	note.Reason = strings.TrimSpace(input.Reason)
	b := utils.ApplyExclusiveGST(input.Amount, input.GstRate)
	note.Amount = b.Taxable
	note.GstRate = b.Rate
	note.GstAmount = b.GST
	note.Cgst = b.CGST
	note.Sgst = b.SGST
	note.TotalAmount = b.Total

	err := runPostingTx(ctx, "customer", input.CustomerId, func(tx *gorm.DB) error {
		if _, err := activeCustomerTx(tx, input.CustomerId); err != nil {
			return err
		}
		if billNo := strings.TrimSpace(input.ReferenceBillNo); billNo != "" {
			var count int64
			if err := tx.Model(&Sale{}).Where("bill_serial_no = ? AND customer_id = ?", billNo, input.CustomerId).Count(&count).Error; err != nil {
				return err
			}
			if count == 0 {
				return utils.NewValidationError("reference_bill_no", utils.ErrReferenceBill)
			}
			note.ReferenceBillNo = &billNo
		}

		prefix, err := DefaultPrefix(book.docType)
		if err != nil {
			return err
		}
		note.NoteNo, err = ClaimNextNumber(tx, book.docType, prefix)
		if err != nil {
			return err
		}
		if err := tx.Create(&row).Error; err != nil {
			return err
		}
		if _, err := PostCustomerLedger(tx, book.posting(note)); err != nil {
			return err
		}
		if err := RecordLedgerEvent(ctx, tx, note.NoteDate, string(book.ledgerType), note.ID, note.NoteNo, note.CustomerId, note.TotalAmount, note, EventActionCreate); err != nil {
			return err
		}
		return runCreatedHook(ctx, tx, note.ID)
	})
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func deleteNote[T any, PT noteRecord[T]](ctx context.Context, book noteBook, id int) (*T, error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	var row T
	err := runInTx(ctx, func(tx *gorm.DB) error {
		if err := tx.First(&row, id).Error; err != nil {
			return notFoundOr(err)
		}
		note := PT(&row).Note()
		if _, err := RemoveCustomerLedger(tx, book.ledgerType, id); err != nil {
			return err
		}
		if err := tx.Delete(&row).Error; err != nil {
			return err
		}
		if err := RecordLedgerEvent(ctx, tx, note.NoteDate, string(book.ledgerType), note.ID, note.NoteNo, note.CustomerId, note.TotalAmount, note, EventActionDelete); err != nil {
			return err
		}
		return createHistory(tx, HistoryActionDelete, id, book.table, note, nil, book.label+" "+note.NoteNo+" deleted")
	})
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func listNotes[T any](ctx context.Context, filter NoteFilter) ([]*T, *PageInfo, error) {
	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Model(new(T))
	if filter.From != nil {
		dbCtx = dbCtx.Where("note_date >= ?", utils.TruncateDay(*filter.From))
	}
	if filter.To != nil {
		dbCtx = dbCtx.Where("note_date <= ?", utils.TruncateDay(*filter.To))
	}
	if filter.CustomerId > 0 {
		dbCtx = dbCtx.Where("customer_id = ?", filter.CustomerId)
	}
	if filter.ReferenceBillNo != "" {
		dbCtx = dbCtx.Where("reference_bill_no = ?", filter.ReferenceBillNo)
	}
	return FetchPage[T](dbCtx, filter.Page, "note_date DESC, id DESC")
}

var irnPattern = regexp.MustCompile(`^[0-9a-fA-F]{64}$`)

// UpdateDocumentIRN stores the invoice reference number issued by the e-invoice portal.
// An empty irn clears it.
func UpdateDocumentIRN(ctx context.Context, docType DocumentType, id int, irn string) error {
	irn = strings.TrimSpace(irn)
	if irn != "" && !irnPattern.MatchString(irn) {
		return utils.NewValidationMessage("irn", "IRN must be 64 hexadecimal characters")
	}
	var value interface{}
	if irn != "" {
		value = strings.ToLower(irn)
	}

	var model interface{}
	switch docType {
	case DocumentTypeSale:
		model = &Sale{}
	case DocumentTypeCreditNote:
		model = &CreditNote{}
	case DocumentTypeDebitNote:
		model = &DebitNote{}
	default:
		return utils.NewValidationMessage("doc_type", fmt.Sprintf("%s has no IRN", docType))
	}

	return runInTx(ctx, func(tx *gorm.DB) error {
		res := tx.Model(model).Where("id = ?", id).Update("irn", value)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return utils.ErrorRecordNotFound
		}
		return createHistory(tx, HistoryActionUpdate, id, string(docType), nil, map[string]interface{}{"irn": value}, "IRN updated")
	})
}
