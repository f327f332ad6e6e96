package models

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"bitbucket.org/mmdatafocus/tradebooks_backend/config"
	"bitbucket.org/mmdatafocus/tradebooks_backend/utils"
)

type Supplier struct {
	ID             int             `gorm:"primary_key" json:"id"`
	Code           string          `gorm:"size:20;not null;uniqueIndex" json:"code"`
	Name           string          `gorm:"size:150;not null;uniqueIndex" json:"name" binding:"required"`
	Gstin          string          `gorm:"size:15;index" json:"gstin"`
	Phone          string          `gorm:"size:20" json:"phone"`
	Email          string          `gorm:"size:100" json:"email"`
	Address        string          `gorm:"type:text" json:"address"`
	City           string          `gorm:"size:100" json:"city"`
	State          string          `gorm:"size:100" json:"state"`
	StateCode      string          `gorm:"size:2" json:"state_code"`
	Pincode        string          `gorm:"size:10" json:"pincode"`
	OpeningBalance decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"opening_balance"`
	IsActive       *bool           `gorm:"not null;default:true" json:"is_active"`
	CreatedAt      time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (input *NewParty) validateSupplier(ctx context.Context, id int) error {
	if id > 0 {
		if err := utils.ValidateResourceId[Supplier](ctx, id); err != nil {
			return err
		}
	}
	if err := input.normalize(); err != nil {
		return err
	}
	if err := utils.ValidateUnique[Supplier](ctx, "name", input.Name, id); err != nil {
		return err
	}
	if input.Gstin != "" {
		if err := utils.ValidateUnique[Supplier](ctx, "gstin", input.Gstin, id); err != nil {
			return err
		}
	}
	return nil
}

func CreateSupplier(ctx context.Context, input *NewParty) (*Supplier, error) {
	if err := input.validateSupplier(ctx, 0); err != nil {
		return nil, err
	}

	supplier := Supplier{
		Name:           input.Name,
		Gstin:          input.Gstin,
		Phone:          input.Phone,
		Email:          input.Email,
		Address:        input.Address,
		City:           input.City,
		State:          input.State,
		StateCode:      input.StateCode,
		Pincode:        input.Pincode,
		OpeningBalance: input.OpeningBalance,
		IsActive:       utils.NewTrue(),
	}

	err := runInTx(ctx, func(tx *gorm.DB) error {
		code, err := ClaimNextNumber(tx, DocumentTypeSupplier, "SUP")
		if err != nil {
			return err
		}
		supplier.Code = code
		if err := tx.Create(&supplier).Error; err != nil {
			if utils.IsDuplicateKeyErr(err) {
				return utils.NewValidationMessage("name", "duplicate name")
			}
			return err
		}
		if supplier.OpeningBalance.IsZero() {
			return runCreatedHook(ctx, tx, supplier.ID)
		}
		posting := openingPosting(supplierBook, supplier.ID, supplier.Code, supplier.OpeningBalance, input.OpeningDate)
		if _, err := PostSupplierLedger(tx, posting); err != nil {
			return err
		}
		if err := RecordLedgerEvent(ctx, tx, posting.Date, "supplier_opening", supplier.ID, supplier.Code, supplier.ID, supplier.OpeningBalance, supplier, EventActionCreate); err != nil {
			return err
		}
		return runCreatedHook(ctx, tx, supplier.ID)
	})
	if err != nil {
		return nil, err
	}
	return &supplier, nil
}

func UpdateSupplier(ctx context.Context, id int, input *NewParty) (*Supplier, error) {
	if err := input.validateSupplier(ctx, id); err != nil {
		return nil, err
	}

	var result Supplier
	err := runInTx(ctx, func(tx *gorm.DB) error {
		oldSupplier, err := utils.FetchModelTx[Supplier](tx, id)
		if err != nil {
			return err
		}
		err = tx.Model(&result).Where("id = ?", id).Updates(map[string]interface{}{
			"name":            input.Name,
			"gstin":           input.Gstin,
			"phone":           input.Phone,
			"email":           input.Email,
			"address":         input.Address,
			"city":            input.City,
			"state":           input.State,
			"state_code":      input.StateCode,
			"pincode":         input.Pincode,
			"opening_balance": input.OpeningBalance,
		}).Error
		if err != nil {
			return err
		}

		if !oldSupplier.OpeningBalance.Equal(input.OpeningBalance) || input.OpeningDate != nil {
			if input.OpeningBalance.IsZero() {
				if _, err := RemoveSupplierLedger(tx, LedgerTransactionTypeOpening, id); err != nil {
					return err
				}
			} else {
				posting := openingPosting(supplierBook, id, oldSupplier.Code, input.OpeningBalance, input.OpeningDate)
				if input.OpeningDate == nil {
					posting.Date = openingDateOf[SupplierLedger](tx, id, posting.Date)
				}
				if _, err := ReplaceSupplierLedger(tx, posting); err != nil {
					return err
				}
			}
		}

		if err := tx.First(&result, id).Error; err != nil {
			return err
		}
		return createHistory(tx, HistoryActionUpdate, id, "suppliers", oldSupplier, result, "Supplier updated")
	})
	if err != nil {
		return nil, err
	}
	_ = utils.RemoveRedisItem[Supplier](id)
	return &result, nil
}

func DeleteSupplier(ctx context.Context, id int) (*Supplier, error) {
	var result *Supplier
	err := runInTx(ctx, func(tx *gorm.DB) error {
		supplier, err := utils.FetchModelTx[Supplier](tx, id)
		if err != nil {
			return err
		}
		var used int64
		if err := tx.Model(&SupplierLedger{}).
			Where("party_id = ? AND transaction_type <> ?", id, LedgerTransactionTypeOpening).
			Count(&used).Error; err != nil {
			return err
		}
		if used > 0 {
			return utils.ErrPartyInUse
		}
		if _, err := RemoveSupplierLedger(tx, LedgerTransactionTypeOpening, id); err != nil {
			return err
		}
		if err := tx.Delete(supplier).Error; err != nil {
			return err
		}
		result = supplier
		return createHistory(tx, HistoryActionDelete, id, "suppliers", supplier, nil, "Supplier deleted")
	})
	if err != nil {
		return nil, err
	}
	_ = utils.RemoveRedisItem[Supplier](id)
	return result, nil
}

func ToggleActiveSupplier(ctx context.Context, id int, isActive bool) (*Supplier, error) {
	db := config.GetDB()
	if err := utils.ValidateResourceId[Supplier](ctx, id); err != nil {
		return nil, err
	}
	if err := db.WithContext(ctx).Model(&Supplier{}).Where("id = ?", id).Update("is_active", isActive).Error; err != nil {
		return nil, err
	}
	_ = utils.RemoveRedisItem[Supplier](id)
	return GetSupplier(ctx, id)
}

func GetSupplier(ctx context.Context, id int) (*Supplier, error) {
	if cached, err := utils.RetrieveRedis[Supplier](id); err == nil && cached != nil {
		return cached, nil
	}
	supplier, err := utils.FetchModel[Supplier](ctx, id)
	if err != nil {
		return nil, err
	}
	if err := utils.StoreRedis(supplier, id); err != nil {
		config.LogError(config.GetLogger(), "Supplier", "GetSupplier", "caching supplier", id, err)
	}
	return supplier, nil
}

func ListSuppliers(ctx context.Context, filter PartyFilter) ([]*Supplier, *PageInfo, error) {
	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Model(&Supplier{})
	if filter.Search != "" {
		cond, args := partySearch(filter.Search)
		dbCtx = dbCtx.Where(cond, args...)
	}
	if filter.IsActive != nil {
		dbCtx = dbCtx.Where("is_active = ?", *filter.IsActive)
	}
	return FetchPage[Supplier](dbCtx, filter.Page, "name")
}

func activeSupplierTx(tx *gorm.DB, id int) (*Supplier, error) {
	if id <= 0 {
		return nil, utils.NewValidationMessage("supplier_id", "supplier is required")
	}
	supplier, err := utils.FetchModelTx[Supplier](tx, id)
	if errors.Is(err, utils.ErrorRecordNotFound) {
		return nil, utils.NewValidationError("supplier_id", err)
	}
	if err != nil {
		return nil, err
	}
	if err := validatePartyActive(supplier.IsActive); err != nil {
		return nil, utils.NewValidationError("supplier_id", err)
	}
	return supplier, nil
}
