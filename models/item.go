package models

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"bitbucket.org/mmdatafocus/tradebooks_backend/config"
	"bitbucket.org/mmdatafocus/tradebooks_backend/utils"
)

type Item struct {
	ID           int             `gorm:"primary_key" json:"id"`
	Name         string          `gorm:"size:150;not null;uniqueIndex" json:"name" binding:"required"`
	Unit         string          `gorm:"size:20;not null;default:'KG'" json:"unit"`
	UnitWeight   decimal.Decimal `gorm:"type:decimal(20,3);default:0" json:"unit_weight"`
	GstRate      decimal.Decimal `gorm:"type:decimal(5,2);not null;default:0" json:"gst_rate"`
	HsnCode      string          `gorm:"size:8" json:"hsn_code"`
	OpeningStock decimal.Decimal `gorm:"type:decimal(20,3);default:0" json:"opening_stock"`
	IsActive     *bool           `gorm:"not null;default:true" json:"is_active"`
	CreatedAt    time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewItem struct {
	Name         string          `json:"name" binding:"required"`
	Unit         string          `json:"unit"`
	UnitWeight   decimal.Decimal `json:"unit_weight"`
	GstRate      decimal.Decimal `json:"gst_rate"`
	HsnCode      string          `json:"hsn_code" binding:"omitempty,numeric,min=4,max=8"`
	OpeningStock decimal.Decimal `json:"opening_stock"`
	OpeningDate  *time.Time      `json:"opening_date"`
}

var allowedGstRates = []int64{0, 5, 12, 18, 28}

func isAllowedGstRate(rate decimal.Decimal) bool {
	for _, r := range allowedGstRates {
		if rate.Equal(decimal.NewFromInt(r)) {
			return true
		}
	}
	return false
}

func (input *NewItem) validate(ctx context.Context, id int) error {
	if id > 0 {
		if err := utils.ValidateResourceId[Item](ctx, id); err != nil {
			return err
		}
	}
	input.Name = strings.TrimSpace(input.Name)
	if input.Name == "" {
		return utils.NewValidationMessage("name", "name is required")
	}
	input.Unit = strings.ToUpper(strings.TrimSpace(input.Unit))
	if input.Unit == "" {
		input.Unit = "KG"
	}
	if !isAllowedGstRate(input.GstRate) {
		return utils.NewValidationMessage("gst_rate", "gst rate must be one of 0, 5, 12, 18, 28")
	}
	if input.UnitWeight.IsNegative() {
		return utils.NewValidationMessage("unit_weight", "unit weight cannot be negative")
	}
	if input.OpeningStock.IsNegative() {
		return utils.NewValidationMessage("opening_stock", "opening stock cannot be negative")
	}
	return utils.ValidateUnique[Item](ctx, "name", input.Name, id)
}

func openingStockPosting(itemId int, name string, qty decimal.Decimal, date *time.Time) LedgerPosting {
	return LedgerPosting{
		PartyId:     itemId,
		Date:        transactionDateOrToday(date),
		Type:        LedgerTransactionTypeOpening,
		ReferenceId: itemId,
		ReferenceNo: name,
		Description: "Opening stock",
		Debit:       qty,
		Credit:      decimal.Zero,
	}
}

func CreateItem(ctx context.Context, input *NewItem) (*Item, error) {
	if err := input.validate(ctx, 0); err != nil {
		return nil, err
	}

	item := Item{
		Name:         input.Name,
		Unit:         input.Unit,
		UnitWeight:   input.UnitWeight,
		GstRate:      input.GstRate,
		HsnCode:      input.HsnCode,
		OpeningStock: input.OpeningStock,
		IsActive:     utils.NewTrue(),
	}

	err := runInTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Create(&item).Error; err != nil {
			return err
		}
		if !item.OpeningStock.IsZero() {
			if _, err := PostStockLedger(tx, openingStockPosting(item.ID, item.Name, item.OpeningStock, input.OpeningDate)); err != nil {
				return err
			}
		}
		return runCreatedHook(ctx, tx, item.ID)
	})
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func UpdateItem(ctx context.Context, id int, input *NewItem) (*Item, error) {
	if err := input.validate(ctx, id); err != nil {
		return nil, err
	}

	var result Item
	err := runInTx(ctx, func(tx *gorm.DB) error {
		oldItem, err := utils.FetchModelTx[Item](tx, id)
		if err != nil {
			return err
		}
		err = tx.Model(&result).Where("id = ?", id).Updates(map[string]interface{}{
			"name":          input.Name,
			"unit":          input.Unit,
			"unit_weight":   input.UnitWeight,
			"gst_rate":      input.GstRate,
			"hsn_code":      input.HsnCode,
			"opening_stock": input.OpeningStock,
		}).Error
		if err != nil {
			return err
		}

		if !oldItem.OpeningStock.Equal(input.OpeningStock) || input.OpeningDate != nil {
			if input.OpeningStock.IsZero() {
				if _, err := RemoveStockLedger(tx, LedgerTransactionTypeOpening, id); err != nil {
					return err
				}
			} else {
				posting := openingStockPosting(id, input.Name, input.OpeningStock, input.OpeningDate)
				if input.OpeningDate == nil {
					posting.Date = openingDateOf[StockLedger](tx, id, posting.Date)
				}
				if _, err := ReplaceStockLedger(tx, posting); err != nil {
					return err
				}
			}
		}

		if err := tx.First(&result, id).Error; err != nil {
			return err
		}
		return createHistory(tx, HistoryActionUpdate, id, "items", oldItem, result, "Item updated")
	})
	if err != nil {
		return nil, err
	}
	_ = utils.RemoveRedisItem[Item](id)
	return &result, nil
}

func ToggleActiveItem(ctx context.Context, id int, isActive bool) (*Item, error) {
	db := config.GetDB()
	if err := utils.ValidateResourceId[Item](ctx, id); err != nil {
		return nil, err
	}
	if err := db.WithContext(ctx).Model(&Item{}).Where("id = ?", id).Update("is_active", isActive).Error; err != nil {
		return nil, err
	}
	_ = utils.RemoveRedisItem[Item](id)
	return GetItem(ctx, id)
}

func GetItem(ctx context.Context, id int) (*Item, error) {
	if cached, err := utils.RetrieveRedis[Item](id); err == nil && cached != nil {
		return cached, nil
	}
	item, err := utils.FetchModel[Item](ctx, id)
	if err != nil {
		return nil, err
	}
	if err := utils.StoreRedis(item, id); err != nil {
		config.LogError(config.GetLogger(), "Item", "GetItem", "caching item", id, err)
	}
	return item, nil
}

func GetItems(ctx context.Context, ids []int) ([]*Item, error) {
	db := config.GetDB()
	var results []*Item
	err := db.WithContext(ctx).Where("id IN ?", utils.UniqueSlice(ids)).Find(&results).Error
	return results, err
}

func ListItems(ctx context.Context, search string, isActive *bool) ([]*Item, error) {
	db := config.GetDB()
	dbCtx := db.WithContext(ctx)
	if search = strings.TrimSpace(search); search != "" {
		like := "%" + search + "%"
		dbCtx = dbCtx.Where("(name LIKE ? OR hsn_code LIKE ?)", like, like)
	}
	if isActive != nil {
		dbCtx = dbCtx.Where("is_active = ?", *isActive)
	}
	var results []*Item
	err := dbCtx.Order("name").Find(&results).Error
	return results, err
}

func activeItemTx(tx *gorm.DB, id int) (*Item, error) {
	if id <= 0 {
		return nil, utils.NewValidationMessage("item_id", "item is required")
	}
	item, err := utils.FetchModelTx[Item](tx, id)
	if errors.Is(err, utils.ErrorRecordNotFound) {
		return nil, utils.NewValidationError("item_id", err)
	}
	if err != nil {
		return nil, err
	}
	if item.IsActive != nil && !*item.IsActive {
		return nil, utils.NewValidationMessage("item_id", "item is inactive")
	}
	return item, nil
}
