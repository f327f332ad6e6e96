package models

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"bitbucket.org/mmdatafocus/tradebooks_backend/config"
	"bitbucket.org/mmdatafocus/tradebooks_backend/utils"
)

// Receipt is money received from a customer; it credits the customer ledger.
type Receipt struct {
	ID          int             `gorm:"primary_key" json:"id"`
	ReceiptNo   string          `gorm:"size:30;not null;uniqueIndex" json:"receipt_no"`
	ReceiptDate time.Time       `gorm:"not null;index" json:"receipt_date"`
	CustomerId  int             `gorm:"not null;index" json:"customer_id"`
	Amount      decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"amount"`
	PaymentMode PaymentMode     `gorm:"size:10;not null;default:'cash'" json:"payment_mode"`
	ReferenceNo string          `gorm:"size:50" json:"reference_no"`
	Remarks     string          `gorm:"type:text" json:"remarks"`
	CreatedAt   time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewReceipt struct {
	ReceiptDate *time.Time      `json:"receipt_date"`
	CustomerId  int             `json:"customer_id" binding:"required"`
	Amount      decimal.Decimal `json:"amount" binding:"required"`
	PaymentMode PaymentMode     `json:"payment_mode"`
	ReferenceNo string          `json:"reference_no"`
	Remarks     string          `json:"remarks"`
}

type PaymentFilter struct {
	From    *time.Time
	To      *time.Time
	PartyId int
	Page    Page
}

func validatePayment(amount decimal.Decimal, mode *PaymentMode, referenceNo string) error {
	if !utils.RoundMoney(amount).IsPositive() {
		return utils.NewValidationMessage("amount", "amount must be greater than zero")
	}
	if *mode == "" {
		*mode = PaymentModeCash
	}
	if !mode.IsValid() {
		return utils.NewValidationMessage("payment_mode", "invalid payment mode")
	}
	if *mode == PaymentModeCheque && strings.TrimSpace(referenceNo) == "" {
		return utils.NewValidationMessage("reference_no", "cheque number is required")
	}
	return nil
}

func (r Receipt) ledgerPosting() LedgerPosting {
	return LedgerPosting{
		PartyId:     r.CustomerId,
		Date:        r.ReceiptDate,
		Type:        LedgerTransactionTypeReceipt,
		ReferenceId: r.ID,
		ReferenceNo: r.ReceiptNo,
		Description: "Receipt " + r.ReceiptNo + " (" + string(r.PaymentMode) + ")",
		Debit:       decimal.Zero,
		Credit:      r.Amount,
	}
}

func CreateReceipt(ctx context.Context, input *NewReceipt) (*Receipt, error) {
	if err := validatePayment(input.Amount, &input.PaymentMode, input.ReferenceNo); err != nil {
		return nil, err
	}

	receipt := Receipt{
		ReceiptDate: transactionDateOrToday(input.ReceiptDate),
		CustomerId:  input.CustomerId,
		Amount:      utils.RoundMoney(input.Amount),
		PaymentMode: input.PaymentMode,
		ReferenceNo: strings.TrimSpace(input.ReferenceNo),
		Remarks:     input.Remarks,
	}

	err := runPostingTx(ctx, "customer", input.CustomerId, func(tx *gorm.DB) error {
		if _, err := activeCustomerTx(tx, input.CustomerId); err != nil {
			return err
		}
		prefix, err := DefaultPrefix(DocumentTypeReceipt)
		if err != nil {
			return err
		}
		receipt.ReceiptNo, err = ClaimNextNumber(tx, DocumentTypeReceipt, prefix)
		if err != nil {
			return err
		}
		if err := tx.Create(&receipt).Error; err != nil {
			return err
		}
		if _, err := PostCustomerLedger(tx, receipt.ledgerPosting()); err != nil {
			return err
		}
		if err := RecordLedgerEvent(ctx, tx, receipt.ReceiptDate, "receipt", receipt.ID, receipt.ReceiptNo, receipt.CustomerId, receipt.Amount, receipt, EventActionCreate); err != nil {
			return err
		}
		return runCreatedHook(ctx, tx, receipt.ID)
	})
	if err != nil {
		return nil, err
	}
	return &receipt, nil
}

func DeleteReceipt(ctx context.Context, id int) (*Receipt, error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	var receipt Receipt
	err := runInTx(ctx, func(tx *gorm.DB) error {
		if err := tx.First(&receipt, id).Error; err != nil {
			return notFoundOr(err)
		}
		if _, err := RemoveCustomerLedger(tx, LedgerTransactionTypeReceipt, id); err != nil {
			return err
		}
		if err := tx.Delete(&receipt).Error; err != nil {
			return err
		}
		if err := RecordLedgerEvent(ctx, tx, receipt.ReceiptDate, "receipt", receipt.ID, receipt.ReceiptNo, receipt.CustomerId, receipt.Amount, receipt, EventActionDelete); err != nil {
			return err
		}
		return createHistory(tx, HistoryActionDelete, id, "receipts", receipt, nil, "Receipt "+receipt.ReceiptNo+" deleted")
	})
	if err != nil {
		return nil, err
	}
	return &receipt, nil
}

func GetReceipt(ctx context.Context, id int) (*Receipt, error) {
	return utils.FetchModel[Receipt](ctx, id)
}

func ListReceipts(ctx context.Context, filter PaymentFilter) ([]*Receipt, *PageInfo, error) {
	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Model(&Receipt{})
	if filter.From != nil {
		dbCtx = dbCtx.Where("receipt_date >= ?", utils.TruncateDay(*filter.From))
	}
	if filter.To != nil {
		dbCtx = dbCtx.Where("receipt_date <= ?", utils.TruncateDay(*filter.To))
	}
	if filter.PartyId > 0 {
		dbCtx = dbCtx.Where("customer_id = ?", filter.PartyId)
	}
	return FetchPage[Receipt](dbCtx, filter.Page, "receipt_date DESC, id DESC")
}
