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

// OutwardEntry is one lorry leaving the yard. Empty weight is taken at the first weighment,
// load weight at the second; the entry is completed once load weight is known.
type OutwardEntry struct {
	ID           int              `gorm:"primary_key" json:"id"`
	SerialNo     string           `gorm:"size:30;not null;uniqueIndex" json:"serial_no"`
	EntryDate    time.Time        `gorm:"not null;index" json:"entry_date"`
	VehicleNo    string           `gorm:"size:20;not null;index" json:"vehicle_no" binding:"required"`
	DriverName   string           `gorm:"size:100" json:"driver_name"`
	DriverPhone  string           `gorm:"size:20" json:"driver_phone"`
	CustomerId   *int             `gorm:"index" json:"customer_id"`
	ItemId       *int             `gorm:"index" json:"item_id"`
	Location     string           `gorm:"size:50" json:"location"`
	EmptyWeight  decimal.Decimal  `gorm:"type:decimal(20,3);not null" json:"empty_weight"`
	LoadWeight   *decimal.Decimal `gorm:"type:decimal(20,3)" json:"load_weight"`
	NetWeight    decimal.Decimal  `gorm:"type:decimal(20,3);not null;default:0" json:"net_weight"`
	IsCompleted  *bool            `gorm:"not null;default:false;index" json:"is_completed"`
	PhotoUrl     string           `gorm:"size:500" json:"photo_url"`
	ThumbnailUrl string           `gorm:"size:500" json:"thumbnail_url"`
	Remarks      string           `gorm:"type:text" json:"remarks"`
	CreatedAt    time.Time        `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time        `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewOutwardEntry struct {
	EntryDate    *time.Time       `json:"entry_date"`
	VehicleNo    string           `json:"vehicle_no" binding:"required"`
	DriverName   string           `json:"driver_name"`
	DriverPhone  string           `json:"driver_phone"`
	CustomerId   *int             `json:"customer_id"`
	ItemId       *int             `json:"item_id"`
	Location     string           `json:"location"`
	EmptyWeight  decimal.Decimal  `json:"empty_weight" binding:"required"`
	LoadWeight   *decimal.Decimal `json:"load_weight"`
	PhotoUrl     string           `json:"photo_url"`
	ThumbnailUrl string           `json:"thumbnail_url"`
	Remarks      string           `json:"remarks"`
}

type OutwardEntryFilter struct {
	From        *time.Time
	To          *time.Time
	IsCompleted *bool
	CustomerId  int
	Search      string
	Page        Page
}

// NetWeight returns load - empty, rejecting a load that is not above the empty weight.
func NetWeight(empty decimal.Decimal, load decimal.Decimal) (decimal.Decimal, error) {
	if !empty.IsPositive() {
		return decimal.Zero, utils.NewValidationError("empty_weight", utils.ErrEmptyWeightRequired)
	}
	if !load.GreaterThan(empty) {
		return decimal.Zero, utils.NewValidationError("load_weight", utils.ErrInvalidWeight)
	}
	return load.Sub(empty), nil
}

func (input *NewOutwardEntry) validate(ctx context.Context) error {
	input.VehicleNo = strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(input.VehicleNo), " ", ""))
	if input.VehicleNo == "" {
		return utils.NewValidationMessage("vehicle_no", "vehicle number is required")
	}
	if !input.EmptyWeight.IsPositive() {
		return utils.NewValidationError("empty_weight", utils.ErrEmptyWeightRequired)
	}
	if input.LoadWeight != nil {
		if _, err := NetWeight(input.EmptyWeight, *input.LoadWeight); err != nil {
			return err
		}
	}
	if input.DriverPhone = strings.TrimSpace(input.DriverPhone); input.DriverPhone != "" {
		phone, err := utils.FormatPhoneNumber(input.DriverPhone, utils.CountryCode)
		if err != nil {
			return utils.NewValidationError("driver_phone", err)
		}
		input.DriverPhone = phone
	}
	if input.CustomerId != nil && *input.CustomerId > 0 {
		if err := utils.ValidateResourceId[Customer](ctx, *input.CustomerId); err != nil {
			return utils.NewValidationError("customer_id", err)
		}
	} else {
		input.CustomerId = nil
	}
	if input.ItemId != nil && *input.ItemId > 0 {
		if err := utils.ValidateResourceId[Item](ctx, *input.ItemId); err != nil {
			return utils.NewValidationError("item_id", err)
		}
	} else {
		input.ItemId = nil
	}
	return nil
}

func (e *OutwardEntry) applyLoad(load *decimal.Decimal) error {
	if load == nil {
		e.LoadWeight = nil
		e.NetWeight = decimal.Zero
		e.IsCompleted = utils.NewFalse()
		return nil
	}
	net, err := NetWeight(e.EmptyWeight, *load)
	if err != nil {
		return err
	}
	e.LoadWeight = load
	e.NetWeight = net
	e.IsCompleted = utils.NewTrue()
	return nil
}

func CreateOutwardEntry(ctx context.Context, input *NewOutwardEntry) (*OutwardEntry, error) {
	if err := input.validate(ctx); err != nil {
		return nil, err
	}

	entry := OutwardEntry{
		EntryDate:    transactionDateOrToday(input.EntryDate),
		VehicleNo:    input.VehicleNo,
		DriverName:   strings.TrimSpace(input.DriverName),
		DriverPhone:  input.DriverPhone,
		CustomerId:   input.CustomerId,
		ItemId:       input.ItemId,
		Location:     strings.TrimSpace(input.Location),
		EmptyWeight:  input.EmptyWeight,
		PhotoUrl:     input.PhotoUrl,
		ThumbnailUrl: input.ThumbnailUrl,
		Remarks:      input.Remarks,
	}
	if err := entry.applyLoad(input.LoadWeight); err != nil {
		return nil, err
	}

	err := runInTx(ctx, func(tx *gorm.DB) error {
		prefix, err := DefaultPrefix(DocumentTypeOutward)
		if err != nil {
			return err
		}
		serial, err := ClaimNextNumber(tx, DocumentTypeOutward, prefix)
		if err != nil {
			return err
		}
		entry.SerialNo = serial
		if err := tx.Create(&entry).Error; err != nil {
			return err
		}
		return runCreatedHook(ctx, tx, entry.ID)
	})
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// UpdateLoadWeight records the second weighment and completes the entry.
func UpdateLoadWeight(ctx context.Context, id int, loadWeight decimal.Decimal) (*OutwardEntry, error) {
	var result OutwardEntry
	err := runInTx(ctx, func(tx *gorm.DB) error {
		if err := lockForUpdate(tx).First(&result, id).Error; err != nil {
			return notFoundOr(err)
		}
		before := result
		billed, err := isEntryBilled(tx, id)
		if err != nil {
			return err
		}
		if billed {
			return utils.NewValidationError("load_weight", utils.ErrEntryAlreadyBilled)
		}
		if err := result.applyLoad(&loadWeight); err != nil {
			return err
		}
		err = tx.Model(&OutwardEntry{}).Where("id = ?", id).Updates(map[string]interface{}{
			"load_weight":  result.LoadWeight,
			"net_weight":   result.NetWeight,
			"is_completed": true,
		}).Error
		if err != nil {
			return err
		}
		return createHistory(tx, HistoryActionUpdate, id, "outward_entries", before, result, "Load weight recorded")
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// UpdateOutwardEntry edits an entry. Weights of an entry that is already billed cannot change.
func UpdateOutwardEntry(ctx context.Context, id int, input *NewOutwardEntry) (*OutwardEntry, error) {
	if err := input.validate(ctx); err != nil {
		return nil, err
	}

	var result OutwardEntry
	err := runInTx(ctx, func(tx *gorm.DB) error {
		if err := lockForUpdate(tx).First(&result, id).Error; err != nil {
			return notFoundOr(err)
		}
		before := result

		billed, err := isEntryBilled(tx, id)
		if err != nil {
			return err
		}
		weightsChanged := !before.EmptyWeight.Equal(input.EmptyWeight) || !sameDecimalPtr(before.LoadWeight, input.LoadWeight)
		if billed && weightsChanged {
			return utils.NewValidationError("load_weight", utils.ErrEntryAlreadyBilled)
		}

		result.EntryDate = transactionDateOrToday(input.EntryDate)
		result.VehicleNo = input.VehicleNo
		result.DriverName = strings.TrimSpace(input.DriverName)
		result.DriverPhone = input.DriverPhone
		result.CustomerId = input.CustomerId
		result.ItemId = input.ItemId
		result.Location = strings.TrimSpace(input.Location)
		result.EmptyWeight = input.EmptyWeight
		result.Remarks = input.Remarks
		if input.PhotoUrl != "" {
			result.PhotoUrl = input.PhotoUrl
			result.ThumbnailUrl = input.ThumbnailUrl
		}
		if err := result.applyLoad(input.LoadWeight); err != nil {
			return err
		}

		if err := tx.Save(&result).Error; err != nil {
			return err
		}
		return createHistory(tx, HistoryActionUpdate, id, "outward_entries", before, result, "Outward entry updated")
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func sameDecimalPtr(a, b *decimal.Decimal) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}

func isEntryBilled(tx *gorm.DB, entryId int) (bool, error) {
	var count int64
	err := tx.Model(&Sale{}).Where("outward_entry_id = ?", entryId).Count(&count).Error
	return count > 0, err
}

func GetOutwardEntry(ctx context.Context, id int) (*OutwardEntry, error) {
	return utils.FetchModel[OutwardEntry](ctx, id)
}

func ListOutwardEntries(ctx context.Context, filter OutwardEntryFilter) ([]*OutwardEntry, *PageInfo, error) {
	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Model(&OutwardEntry{})
	dbCtx = filter.apply(dbCtx)
	return FetchPage[OutwardEntry](dbCtx, filter.Page, "entry_date DESC, id DESC")
}

func (filter OutwardEntryFilter) apply(dbCtx *gorm.DB) *gorm.DB {
	if filter.From != nil {
		dbCtx = dbCtx.Where("entry_date >= ?", utils.TruncateDay(*filter.From))
	}
	if filter.To != nil {
		dbCtx = dbCtx.Where("entry_date <= ?", utils.TruncateDay(*filter.To))
	}
	if filter.IsCompleted != nil {
		dbCtx = dbCtx.Where("is_completed = ?", *filter.IsCompleted)
	}
	if filter.CustomerId > 0 {
		dbCtx = dbCtx.Where("customer_id = ?", filter.CustomerId)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		like := "%" + search + "%"
		dbCtx = dbCtx.Where("(serial_no LIKE ? OR vehicle_no LIKE ? OR driver_name LIKE ?)", like, like, like)
	}
	return dbCtx
}
