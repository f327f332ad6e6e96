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

// SupplierPayment is money paid to a supplier; it debits the supplier ledger.
type SupplierPayment struct {
	ID          int             `gorm:"primary_key" json:"id"`
	PaymentNo   string          `gorm:"size:30;not null;uniqueIndex" json:"payment_no"`
	PaymentDate time.Time       `gorm:"not null;index" json:"payment_date"`
	SupplierId  int             `gorm:"not null;index" json:"supplier_id"`
	Amount      decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"amount"`
	PaymentMode PaymentMode     `gorm:"size:10;not null;default:'cash'" json:"payment_mode"`
	ReferenceNo string          `gorm:"size:50" json:"reference_no"`
	Remarks     string          `gorm:"type:text" json:"remarks"`
	CreatedAt   time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewSupplierPayment struct {
	PaymentDate *time.Time      `json:"payment_date"`
	SupplierId  int             `json:"supplier_id" binding:"required"`
	Amount      decimal.Decimal `json:"amount" binding:"required"`
	PaymentMode PaymentMode     `json:"payment_mode"`
	ReferenceNo string          `json:"reference_no"`
	Remarks     string          `json:"remarks"`
}

func CreateSupplierPayment(ctx context.Context, input *NewSupplierPayment) (*SupplierPayment, error) {
	if err := validatePayment(input.Amount, &input.PaymentMode, input.ReferenceNo); err != nil {
		return nil, err
	}

	payment := SupplierPayment{
		PaymentDate: transactionDateOrToday(input.PaymentDate),
		SupplierId:  input.SupplierId,
		Amount:      utils.RoundMoney(input.Amount),
		PaymentMode: input.PaymentMode,
		ReferenceNo: strings.TrimSpace(input.ReferenceNo),
		Remarks:     input.Remarks,
	}

	err := runPostingTx(ctx, "supplier", input.SupplierId, func(tx *gorm.DB) error {
		if _, err := activeSupplierTx(tx, input.SupplierId); err != nil {
			return err
		}
		prefix, err := DefaultPrefix(DocumentTypeSupplierPayment)
		if err != nil {
			return err
		}
		payment.PaymentNo, err = ClaimNextNumber(tx, DocumentTypeSupplierPayment, prefix)
		if err != nil {
			return err
		}
		if err := tx.Create(&payment).Error; err != nil {
			return err
		}
		_, err = PostSupplierLedger(tx, LedgerPosting{
			PartyId:     payment.SupplierId,
			Date:        payment.PaymentDate,
			Type:        LedgerTransactionTypePayment,
			ReferenceId: payment.ID,
			ReferenceNo: payment.PaymentNo,
			Description: "Payment " + payment.PaymentNo + " (" + string(payment.PaymentMode) + ")",
			Debit:       payment.Amount,
			Credit:      decimal.Zero,
		})
		if err != nil {
			return err
		}
		if err := RecordLedgerEvent(ctx, tx, payment.PaymentDate, "payment", payment.ID, payment.PaymentNo, payment.SupplierId, payment.Amount, payment, EventActionCreate); err != nil {
			return err
		}
		return runCreatedHook(ctx, tx, payment.ID)
	})
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func GetSupplierPayment(ctx context.Context, id int) (*SupplierPayment, error) {
	return utils.FetchModel[SupplierPayment](ctx, id)
}

func ListSupplierPayments(ctx context.Context, filter PaymentFilter) ([]*SupplierPayment, *PageInfo, error) {
	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Model(&SupplierPayment{})
	if filter.From != nil {
		dbCtx = dbCtx.Where("payment_date >= ?", utils.TruncateDay(*filter.From))
	}
	if filter.To != nil {
		dbCtx = dbCtx.Where("payment_date <= ?", utils.TruncateDay(*filter.To))
	}
	if filter.PartyId > 0 {
		dbCtx = dbCtx.Where("supplier_id = ?", filter.PartyId)
	}
	return FetchPage[SupplierPayment](dbCtx, filter.Page, "payment_date DESC, id DESC")
}
