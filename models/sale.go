package models

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"bitbucket.org/mmdatafocus/tradebooks_backend/config"
	"bitbucket.org/mmdatafocus/tradebooks_backend/utils"
)

type Sale struct {
	ID             int             `gorm:"primary_key" json:"id"`
	BillSerialNo   string          `gorm:"size:30;not null;uniqueIndex" json:"bill_serial_no"`
	Series         string          `gorm:"size:10;not null;default:'';index" json:"series"`
	SaleDate       time.Time       `gorm:"not null;index" json:"sale_date"`
	CustomerId     int             `gorm:"not null;index" json:"customer_id"`
	ItemId         int             `gorm:"not null;index" json:"item_id"`
	OutwardEntryId *int            `gorm:"index" json:"outward_entry_id"`
	Quantity       decimal.Decimal `gorm:"type:decimal(20,3);not null" json:"quantity"`
	Rate           decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"rate"`
	Amount         decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"amount"`
	GstRate        decimal.Decimal `gorm:"type:decimal(5,2);not null;default:0" json:"gst_rate"`
	GstAmount      decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"gst_amount"`
	Cgst           decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"cgst"`
	Sgst           decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"sgst"`
	TotalAmount    decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"total_amount"`
	VehicleNo      string          `gorm:"size:20" json:"vehicle_no"`
	Irn            *string         `gorm:"size:64" json:"irn"`
	Remarks        string          `gorm:"type:text" json:"remarks"`
	CreatedAt      time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewSale struct {
	Series         string           `json:"series"`
	SaleDate       *time.Time       `json:"sale_date"`
	CustomerId     int              `json:"customer_id" binding:"required"`
	ItemId         int              `json:"item_id" binding:"required"`
	OutwardEntryId *int             `json:"outward_entry_id"`
	Quantity       *decimal.Decimal `json:"quantity"`
	Rate           decimal.Decimal  `json:"rate"`
	GstRate        *decimal.Decimal `json:"gst_rate"`
	VehicleNo      string           `json:"vehicle_no"`
	Remarks        string           `json:"remarks"`
}

type SaleFilter struct {
	From       *time.Time
	To         *time.Time
	CustomerId int
	Series     *string
	Search     string
	Page       Page
}

// Breakup is the GST split of the sale as stored.
func (s Sale) Breakup() utils.GSTBreakup {
	return utils.GSTBreakup{
		Taxable: s.Amount,
		Rate:    s.GstRate,
		GST:     s.GstAmount,
		CGST:    s.Cgst,
		SGST:    s.Sgst,
		Total:   s.TotalAmount,
	}
}

func (s *Sale) applyBreakup(b utils.GSTBreakup) {
	s.Amount = b.Taxable
	s.GstRate = b.Rate
	s.GstAmount = b.GST
	s.Cgst = b.CGST
	s.Sgst = b.SGST
	s.TotalAmount = b.Total
}

func (s Sale) ledgerPosting() LedgerPosting {
	return LedgerPosting{
		PartyId:     s.CustomerId,
		Date:        s.SaleDate,
		Type:        LedgerTransactionTypeSale,
		ReferenceId: s.ID,
		ReferenceNo: s.BillSerialNo,
		Description: fmt.Sprintf("Sale %s (%s @ %s)", s.BillSerialNo, s.Quantity.String(), s.Rate.StringFixed(2)),
		Debit:       s.TotalAmount,
		Credit:      decimal.Zero,
	}
}

func (s Sale) stockPosting() LedgerPosting {
	return LedgerPosting{
		PartyId:     s.ItemId,
		Date:        s.SaleDate,
		Type:        LedgerTransactionTypeSale,
		ReferenceId: s.ID,
		ReferenceNo: s.BillSerialNo,
		Description: "Sale " + s.BillSerialNo,
		Debit:       decimal.Zero,
		Credit:      s.Quantity,
	}
}

// prepare resolves the sale lines inside tx: party checks, the outward entry link and totals.
// id is the sale being edited (0 on create).
func (input *NewSale) prepare(tx *gorm.DB, id int) (*Sale, error) {
	if _, err := activeCustomerTx(tx, input.CustomerId); err != nil {
		return nil, err
	}
	item, err := activeItemTx(tx, input.ItemId)
	if err != nil {
		return nil, err
	}

	sale := Sale{
		SaleDate:   transactionDateOrToday(input.SaleDate),
		CustomerId: input.CustomerId,
		ItemId:     input.ItemId,
		VehicleNo:  strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(input.VehicleNo), " ", "")),
		Remarks:    input.Remarks,
	}

	var quantity decimal.Decimal
	if input.Quantity != nil {
		quantity = *input.Quantity
	}

	if input.OutwardEntryId != nil && *input.OutwardEntryId > 0 {
		var entry OutwardEntry
		if err := lockForUpdate(tx).First(&entry, *input.OutwardEntryId).Error; err != nil {
			return nil, utils.NewValidationError("outward_entry_id", notFoundOr(err))
		}
		if entry.IsCompleted == nil || !*entry.IsCompleted {
			return nil, utils.NewValidationError("outward_entry_id", utils.ErrEntryNotCompleted)
		}
		var billed int64
		if err := tx.Model(&Sale{}).Where("outward_entry_id = ? AND id <> ?", entry.ID, id).Count(&billed).Error; err != nil {
			return nil, err
		}
		if billed > 0 {
			return nil, utils.NewValidationError("outward_entry_id", utils.ErrEntryAlreadyBilled)
		}
		if input.Quantity == nil {
			quantity = entry.NetWeight
		}
		if sale.VehicleNo == "" {
			sale.VehicleNo = entry.VehicleNo
		}
		sale.OutwardEntryId = &entry.ID
	}

	if !quantity.IsPositive() {
		return nil, utils.NewValidationMessage("quantity", "quantity must be greater than zero")
	}
	if input.Rate.IsNegative() {
		return nil, utils.NewValidationMessage("rate", "rate cannot be negative")
	}
	gstRate := item.GstRate
	if input.GstRate != nil {
		gstRate = *input.GstRate
	}
	if !isAllowedGstRate(gstRate) {
		return nil, utils.NewValidationMessage("gst_rate", "gst rate must be one of 0, 5, 12, 18, 28")
	}

	sale.Quantity = quantity
	sale.Rate = input.Rate
	sale.applyBreakup(utils.ApplyExclusiveGST(utils.LineAmount(quantity, input.Rate), gstRate))
	return &sale, nil
}

// CreateSale writes the sale, its customer ledger debit, its stock ledger issue and the outbox event
// in one transaction. The bill serial is claimed in the same transaction.
func CreateSale(ctx context.Context, input *NewSale) (*Sale, error) {
	series, err := normalizePrefix(input.Series)
	if err != nil {
		return nil, err
	}

	var sale *Sale
	err = runPostingTx(ctx, "customer", input.CustomerId, func(tx *gorm.DB) error {
		var err error
		sale, err = input.prepare(tx, 0)
		if err != nil {
			return err
		}
		sale.Series = series
		sale.BillSerialNo, err = ClaimNextNumber(tx, DocumentTypeSale, series)
		if err != nil {
			return err
		}
		if err := tx.Create(sale).Error; err != nil {
			return err
		}
		if _, err := PostCustomerLedger(tx, sale.ledgerPosting()); err != nil {
			return err
		}
		if _, err := PostStockLedger(tx, sale.stockPosting()); err != nil {
			return err
		}
		if err := RecordLedgerEvent(ctx, tx, sale.SaleDate, "sale", sale.ID, sale.BillSerialNo, sale.CustomerId, sale.TotalAmount, sale, EventActionCreate); err != nil {
			return err
		}
		return runCreatedHook(ctx, tx, sale.ID)
	})
	if err != nil {
		return nil, err
	}
	return sale, nil
}

// UpdateSale recomputes the totals, rewrites the ledger rows of the sale and rebalances from the
// earlier of the old and new sale date. The bill serial never changes. Moving the sale to another
// customer holds the posting lock of both customers.
func UpdateSale(ctx context.Context, id int, input *NewSale) (*Sale, error) {
	current, err := GetSale(ctx, id)
	if err != nil {
		return nil, err
	}
	var result Sale
	err = runPostingTxFor(ctx, "customer", []int{current.CustomerId, input.CustomerId}, func(tx *gorm.DB) error {
		if err := lockForUpdate(tx).First(&result, id).Error; err != nil {
			return notFoundOr(err)
		}
		oldSale := result

		updated, err := input.prepare(tx, id)
		if err != nil {
			return err
		}
		if updated.CustomerId != oldSale.CustomerId {
			var notes int64
			for _, model := range []interface{}{&CreditNote{}, &DebitNote{}} {
				var count int64
				if err := tx.Model(model).Where("reference_bill_no = ?", oldSale.BillSerialNo).Count(&count).Error; err != nil {
					return err
				}
				notes += count
			}
			if notes > 0 {
				return utils.NewValidationMessage("customer_id", "customer cannot change while notes reference this bill")
			}
		}

		updated.ID = oldSale.ID
		updated.BillSerialNo = oldSale.BillSerialNo
		updated.Series = oldSale.Series
		updated.Irn = oldSale.Irn
		updated.CreatedAt = oldSale.CreatedAt
		if err := tx.Save(updated).Error; err != nil {
			return err
		}
		if _, err := ReplaceCustomerLedger(tx, updated.ledgerPosting()); err != nil {
			return err
		}
		if _, err := ReplaceStockLedger(tx, updated.stockPosting()); err != nil {
			return err
		}
		if err := RecordLedgerEvent(ctx, tx, updated.SaleDate, "sale", updated.ID, updated.BillSerialNo, updated.CustomerId, updated.TotalAmount, updated, EventActionUpdate); err != nil {
			return err
		}
		result = *updated
		return createHistory(tx, HistoryActionUpdate, id, "sales", oldSale, result, "Sale "+result.BillSerialNo+" updated")
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func GetSale(ctx context.Context, id int) (*Sale, error) {
	return utils.FetchModel[Sale](ctx, id)
}

func GetSaleByBillNo(ctx context.Context, billNo string) (*Sale, error) {
	db := config.GetDB()
	var sale Sale
	if err := db.WithContext(ctx).Where("bill_serial_no = ?", billNo).Take(&sale).Error; err != nil {
		return nil, notFoundOr(err)
	}
	return &sale, nil
}

func (filter SaleFilter) apply(dbCtx *gorm.DB) *gorm.DB {
	if filter.From != nil {
		dbCtx = dbCtx.Where("sale_date >= ?", utils.TruncateDay(*filter.From))
	}
	if filter.To != nil {
		dbCtx = dbCtx.Where("sale_date <= ?", utils.TruncateDay(*filter.To))
	}
	if filter.CustomerId > 0 {
		dbCtx = dbCtx.Where("customer_id = ?", filter.CustomerId)
	}
	if filter.Series != nil {
		dbCtx = dbCtx.Where("series = ?", strings.ToUpper(*filter.Series))
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		like := "%" + search + "%"
		dbCtx = dbCtx.Where("(bill_serial_no LIKE ? OR vehicle_no LIKE ?)", like, like)
	}
	return dbCtx
}

func ListSales(ctx context.Context, filter SaleFilter) ([]*Sale, *PageInfo, error) {
	db := config.GetDB()
	dbCtx := filter.apply(db.WithContext(ctx).Model(&Sale{}))
	return FetchPage[Sale](dbCtx, filter.Page, "sale_date DESC, id DESC")
}
