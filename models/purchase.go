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

// Purchase credits the supplier ledger and receives stock.
type Purchase struct {
	ID           int             `gorm:"primary_key" json:"id"`
	PurchaseNo   string          `gorm:"size:30;not null;uniqueIndex" json:"purchase_no"`
	PurchaseDate time.Time       `gorm:"not null;index" json:"purchase_date"`
	SupplierId   int             `gorm:"not null;index" json:"supplier_id"`
	ItemId       int             `gorm:"not null;index" json:"item_id"`
	Quantity     decimal.Decimal `gorm:"type:decimal(20,3);not null" json:"quantity"`
	Rate         decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"rate"`
	Amount       decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"amount"`
	GstRate      decimal.Decimal `gorm:"type:decimal(5,2);not null;default:0" json:"gst_rate"`
	GstAmount    decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"gst_amount"`
	Cgst         decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"cgst"`
	Sgst         decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"sgst"`
	TotalAmount  decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"total_amount"`
	InvoiceRef   string          `gorm:"size:50" json:"invoice_ref"`
	VehicleNo    string          `gorm:"size:20" json:"vehicle_no"`
	Remarks      string          `gorm:"type:text" json:"remarks"`
	CreatedAt    time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewPurchase struct {
	PurchaseDate *time.Time       `json:"purchase_date"`
	SupplierId   int              `json:"supplier_id" binding:"required"`
	ItemId       int              `json:"item_id" binding:"required"`
	Quantity     decimal.Decimal  `json:"quantity" binding:"required"`
	Rate         decimal.Decimal  `json:"rate"`
	GstRate      *decimal.Decimal `json:"gst_rate"`
	InvoiceRef   string           `json:"invoice_ref"`
	VehicleNo    string           `json:"vehicle_no"`
	Remarks      string           `json:"remarks"`
}

func CreatePurchase(ctx context.Context, input *NewPurchase) (*Purchase, error) {
	if !input.Quantity.IsPositive() {
		return nil, utils.NewValidationMessage("quantity", "quantity must be greater than zero")
	}
	if input.Rate.IsNegative() {
		return nil, utils.NewValidationMessage("rate", "rate cannot be negative")
	}

	purchase := Purchase{
		PurchaseDate: transactionDateOrToday(input.PurchaseDate),
		SupplierId:   input.SupplierId,
		ItemId:       input.ItemId,
		Quantity:     input.Quantity,
		Rate:         input.Rate,
		InvoiceRef:   strings.TrimSpace(input.InvoiceRef),
		VehicleNo:    strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(input.VehicleNo), " ", "")),
		Remarks:      input.Remarks,
	}

	err := runPostingTx(ctx, "supplier", input.SupplierId, func(tx *gorm.DB) error {
		supplier, err := activeSupplierTx(tx, input.SupplierId)
		if err != nil {
			return err
		}
		item, err := activeItemTx(tx, input.ItemId)
		if err != nil {
			return err
		}
		gstRate := item.GstRate
		if input.GstRate != nil {
			gstRate = *input.GstRate
		}
		if !isAllowedGstRate(gstRate) {
			return utils.NewValidationMessage("gst_rate", "gst rate must be one of 0, 5, 12, 18, 28")
		}
		b := utils.ApplyExclusiveGST(utils.LineAmount(purchase.Quantity, purchase.Rate), gstRate)
		purchase.Amount = b.Taxable
		purchase.GstRate = b.Rate
		purchase.GstAmount = b.GST
		purchase.Cgst = b.CGST
		purchase.Sgst = b.SGST
		purchase.TotalAmount = b.Total

		prefix, err := DefaultPrefix(DocumentTypePurchase)
		if err != nil {
			return err
		}
		purchase.PurchaseNo, err = ClaimNextNumber(tx, DocumentTypePurchase, prefix)
		if err != nil {
			return err
		}
		if err := tx.Create(&purchase).Error; err != nil {
			return err
		}

		description := "Purchase " + purchase.PurchaseNo
		if purchase.InvoiceRef != "" {
			description += " (inv " + purchase.InvoiceRef + ")"
		}
		_, err = PostSupplierLedger(tx, LedgerPosting{
			PartyId:     supplier.ID,
			Date:        purchase.PurchaseDate,
			Type:        LedgerTransactionTypePurchase,
			ReferenceId: purchase.ID,
			ReferenceNo: purchase.PurchaseNo,
			Description: description,
			Debit:       decimal.Zero,
			Credit:      purchase.TotalAmount,
		})
		if err != nil {
			return err
		}
		_, err = PostStockLedger(tx, LedgerPosting{
			PartyId:     item.ID,
			Date:        purchase.PurchaseDate,
			Type:        LedgerTransactionTypePurchase,
			ReferenceId: purchase.ID,
			ReferenceNo: purchase.PurchaseNo,
			Description: description,
			Debit:       purchase.Quantity,
			Credit:      decimal.Zero,
		})
		if err != nil {
			return err
		}
		if err := RecordLedgerEvent(ctx, tx, purchase.PurchaseDate, "purchase", purchase.ID, purchase.PurchaseNo, purchase.SupplierId, purchase.TotalAmount, purchase, EventActionCreate); err != nil {
			return err
		}
		return runCreatedHook(ctx, tx, purchase.ID)
	})
	if err != nil {
		return nil, err
	}
	return &purchase, nil
}

func GetPurchase(ctx context.Context, id int) (*Purchase, error) {
	return utils.FetchModel[Purchase](ctx, id)
}

func ListPurchases(ctx context.Context, filter PaymentFilter) ([]*Purchase, *PageInfo, error) {
	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Model(&Purchase{})
	if filter.From != nil {
		dbCtx = dbCtx.Where("purchase_date >= ?", utils.TruncateDay(*filter.From))
	}
	if filter.To != nil {
		dbCtx = dbCtx.Where("purchase_date <= ?", utils.TruncateDay(*filter.To))
	}
	if filter.PartyId > 0 {
		dbCtx = dbCtx.Where("supplier_id = ?", filter.PartyId)
	}
	return FetchPage[Purchase](dbCtx, filter.Page, "purchase_date DESC, id DESC")
}
