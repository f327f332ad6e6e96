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

type Customer struct {
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

// Opening balance is posted as an "opening" ledger row referencing the customer itself.
// Customers with any other ledger row cannot be deleted, only deactivated.

func (input *NewParty) validateCustomer(ctx context.Context, id int) error {
	if id > 0 {
		if err := utils.ValidateResourceId[Customer](ctx, id); err != nil {
			return err
		}
	}
	if err := input.normalize(); err != nil {
		return err
	}
	if err := utils.ValidateUnique[Customer](ctx, "name", input.Name, id); err != nil {
		return err
	}
	if input.Gstin != "" {
		if err := utils.ValidateUnique[Customer](ctx, "gstin", input.Gstin, id); err != nil {
			return err
		}
	}
	return nil
}

func CreateCustomer(ctx context.Context, input *NewParty) (*Customer, error) {
	if err := input.validateCustomer(ctx, 0); err != nil {
		return nil, err
	}

	customer := Customer{
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
		code, err := ClaimNextNumber(tx, DocumentTypeCustomer, "CUST")
		if err != nil {
			return err
		}
		customer.Code = code
		if err := tx.Create(&customer).Error; err != nil {
			if utils.IsDuplicateKeyErr(err) {
				return utils.NewValidationMessage("name", "duplicate name")
			}
			return err
		}
		if customer.OpeningBalance.IsZero() {
			return runCreatedHook(ctx, tx, customer.ID)
		}
		posting := openingPosting(customerBook, customer.ID, customer.Code, customer.OpeningBalance, input.OpeningDate)
		if _, err := PostCustomerLedger(tx, posting); err != nil {
			return err
		}
		if err := RecordLedgerEvent(ctx, tx, posting.Date, "customer_opening", customer.ID, customer.Code, customer.ID, customer.OpeningBalance, customer, EventActionCreate); err != nil {
			return err
		}
		return runCreatedHook(ctx, tx, customer.ID)
	})
	if err != nil {
		return nil, err
	}
	return &customer, nil
}

func UpdateCustomer(ctx context.Context, id int, input *NewParty) (*Customer, error) {
	if err := input.validateCustomer(ctx, id); err != nil {
		return nil, err
	}

	var result Customer
	err := runInTx(ctx, func(tx *gorm.DB) error {
		oldCustomer, err := utils.FetchModelTx[Customer](tx, id)
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

		if !oldCustomer.OpeningBalance.Equal(input.OpeningBalance) || input.OpeningDate != nil {
			if input.OpeningBalance.IsZero() {
				if _, err := RemoveCustomerLedger(tx, LedgerTransactionTypeOpening, id); err != nil {
					return err
				}
			} else {
				posting := openingPosting(customerBook, id, oldCustomer.Code, input.OpeningBalance, input.OpeningDate)
				if input.OpeningDate == nil {
					posting.Date = openingDateOf[CustomerLedger](tx, id, posting.Date)
				}
				if _, err := ReplaceCustomerLedger(tx, posting); err != nil {
					return err
				}
			}
		}

		if err := tx.First(&result, id).Error; err != nil {
			return err
		}
		return createHistory(tx, HistoryActionUpdate, id, "customers", oldCustomer, result, "Customer updated")
	})
	if err != nil {
		return nil, err
	}
	_ = utils.RemoveRedisItem[Customer](id)
	return &result, nil
}

// openingDateOf keeps the existing opening row's date when the form does not send one.
func openingDateOf[T any](tx *gorm.DB, partyId int, def time.Time) time.Time {
	var line LedgerLine
	err := tx.Model(new(T)).
		Where("party_id = ? AND transaction_type = ?", partyId, LedgerTransactionTypeOpening).
		Take(&line).Error
	if err != nil {
		return def
	}
	return line.TransactionDate
}

func DeleteCustomer(ctx context.Context, id int) (*Customer, error) {
	var result *Customer
	err := runInTx(ctx, func(tx *gorm.DB) error {
		customer, err := utils.FetchModelTx[Customer](tx, id)
		if err != nil {
			return err
		}
		var used int64
		if err := tx.Model(&CustomerLedger{}).
			Where("party_id = ? AND transaction_type <> ?", id, LedgerTransactionTypeOpening).
			Count(&used).Error; err != nil {
			return err
		}
		if used == 0 {
			if err := tx.Model(&OutwardEntry{}).Where("customer_id = ?", id).Count(&used).Error; err != nil {
				return err
			}
		}
		if used > 0 {
			return utils.ErrPartyInUse
		}
		if _, err := RemoveCustomerLedger(tx, LedgerTransactionTypeOpening, id); err != nil {
			return err
		}
		if err := tx.Delete(customer).Error; err != nil {
			return err
		}
		result = customer
		return createHistory(tx, HistoryActionDelete, id, "customers", customer, nil, "Customer deleted")
	})
	if err != nil {
		return nil, err
	}
	_ = utils.RemoveRedisItem[Customer](id)
	return result, nil
}

func ToggleActiveCustomer(ctx context.Context, id int, isActive bool) (*Customer, error) {
	db := config.GetDB()
	if err := utils.ValidateResourceId[Customer](ctx, id); err != nil {
		return nil, err
	}
	if err := db.WithContext(ctx).Model(&Customer{}).Where("id = ?", id).Update("is_active", isActive).Error; err != nil {
		return nil, err
	}
	_ = utils.RemoveRedisItem[Customer](id)
	return GetCustomer(ctx, id)
}

// GetCustomer reads through the redis cache.
func GetCustomer(ctx context.Context, id int) (*Customer, error) {
	if cached, err := utils.RetrieveRedis[Customer](id); err == nil && cached != nil {
		return cached, nil
	}
	customer, err := utils.FetchModel[Customer](ctx, id)
	if err != nil {
		return nil, err
	}
	if err := utils.StoreRedis(customer, id); err != nil {
		config.LogError(config.GetLogger(), "Customer", "GetCustomer", "caching customer", id, err)
	}
	return customer, nil
}

// GetCustomers loads many customers at once (dataloader batch function).
func GetCustomers(ctx context.Context, ids []int) ([]*Customer, error) {
	db := config.GetDB()
	var results []*Customer
	err := db.WithContext(ctx).Where("id IN ?", utils.UniqueSlice(ids)).Find(&results).Error
	return results, err
}

func ListCustomers(ctx context.Context, filter PartyFilter) ([]*Customer, *PageInfo, error) {
	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Model(&Customer{})
	if filter.Search != "" {
		cond, args := partySearch(filter.Search)
		dbCtx = dbCtx.Where(cond, args...)
	}
	if filter.IsActive != nil {
		dbCtx = dbCtx.Where("is_active = ?", *filter.IsActive)
	}
	return FetchPage[Customer](dbCtx, filter.Page, "name")
}

// activeCustomerTx loads a customer inside a posting transaction and refuses inactive ones.
func activeCustomerTx(tx *gorm.DB, id int) (*Customer, error) {
	if id <= 0 {
		return nil, utils.NewValidationMessage("customer_id", "customer is required")
	}
	customer, err := utils.FetchModelTx[Customer](tx, id)
	if errors.Is(err, utils.ErrorRecordNotFound) {
		return nil, utils.NewValidationError("customer_id", err)
	}
	if err != nil {
		return nil, err
	}
	if err := validatePartyActive(customer.IsActive); err != nil {
		return nil, utils.NewValidationError("customer_id", err)
	}
	return customer, nil
}
