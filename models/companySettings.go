package models

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"bitbucket.org/mmdatafocus/tradebooks_backend/config"
	"bitbucket.org/mmdatafocus/tradebooks_backend/utils"
)

const companySettingsId = 1

// CompanySettings is the single seller profile printed on invoices and e-invoice payloads.
type CompanySettings struct {
	ID                int       `gorm:"primary_key" json:"id"`
	LegalName         string    `gorm:"size:150;not null;default:''" json:"legal_name"`
	TradeName         string    `gorm:"size:150" json:"trade_name"`
	Gstin             string    `gorm:"size:15" json:"gstin"`
	Address           string    `gorm:"type:text" json:"address"`
	Location          string    `gorm:"size:100" json:"location"`
	Pincode           string    `gorm:"size:10" json:"pincode"`
	StateCode         string    `gorm:"size:2" json:"state_code"`
	Phone             string    `gorm:"size:20" json:"phone"`
	Email             string    `gorm:"size:100" json:"email"`
	BankName          string    `gorm:"size:100" json:"bank_name"`
	BankAccountNo     string    `gorm:"size:30" json:"bank_account_no"`
	BankIfsc          string    `gorm:"size:11" json:"bank_ifsc"`
	DefaultSaleSeries string    `gorm:"size:10;not null;default:'G'" json:"default_sale_series"`
	CreatedAt         time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewCompanySettings struct {
	LegalName         string `json:"legal_name" binding:"required"`
	TradeName         string `json:"trade_name"`
	Gstin             string `json:"gstin" binding:"omitempty,gstin"`
	Address           string `json:"address"`
	Location          string `json:"location"`
	Pincode           string `json:"pincode" binding:"omitempty,numeric,len=6"`
	Phone             string `json:"phone"`
	Email             string `json:"email"`
	BankName          string `json:"bank_name"`
	BankAccountNo     string `json:"bank_account_no"`
	BankIfsc          string `json:"bank_ifsc"`
	DefaultSaleSeries string `json:"default_sale_series"`
}

// GetCompanySettings returns the stored profile, or an empty one before first save.
func GetCompanySettings(ctx context.Context) (*CompanySettings, error) {
	if cached, err := utils.RetrieveRedis[CompanySettings](companySettingsId); err == nil && cached != nil {
		return cached, nil
	}
	db := config.GetDB()
	var settings CompanySettings
	err := db.WithContext(ctx).First(&settings, companySettingsId).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &CompanySettings{ID: companySettingsId, DefaultSaleSeries: "G"}, nil
	}
	if err != nil {
		return nil, err
	}
	if err := utils.StoreRedis(&settings, companySettingsId); err != nil {
		config.LogError(config.GetLogger(), "CompanySettings", "GetCompanySettings", "caching settings", nil, err)
	}
	return &settings, nil
}

func UpdateCompanySettings(ctx context.Context, input *NewCompanySettings) (*CompanySettings, error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	gstin := strings.ToUpper(strings.TrimSpace(input.Gstin))
	if gstin != "" && !utils.IsValidGSTIN(gstin) {
		return nil, utils.NewValidationMessage("gstin", "invalid GSTIN")
	}
	series, err := normalizePrefix(input.DefaultSaleSeries)
	if err != nil {
		return nil, err
	}
	phone := strings.TrimSpace(input.Phone)
	if phone != "" {
		if phone, err = utils.FormatPhoneNumber(phone, utils.CountryCode); err != nil {
			return nil, utils.NewValidationError("phone", err)
		}
	}
	if input.Email != "" && !utils.IsValidEmail(input.Email) {
		return nil, utils.NewValidationMessage("email", "invalid email")
	}

	var result CompanySettings
	err = runInTx(ctx, func(tx *gorm.DB) error {
		var before *CompanySettings
		var existing CompanySettings
		if err := tx.First(&existing, companySettingsId).Error; err == nil {
			before = &existing
			result.CreatedAt = existing.CreatedAt
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		result.ID = companySettingsId
		result.LegalName = strings.TrimSpace(input.LegalName)
		result.TradeName = strings.TrimSpace(input.TradeName)
		result.Gstin = gstin
		result.StateCode = utils.GSTINStateCode(gstin)
		result.Address = input.Address
		result.Location = input.Location
		result.Pincode = input.Pincode
		result.Phone = phone
		result.Email = input.Email
		result.BankName = input.BankName
		result.BankAccountNo = input.BankAccountNo
		result.BankIfsc = strings.ToUpper(strings.TrimSpace(input.BankIfsc))
		result.DefaultSaleSeries = series
		if err := tx.Save(&result).Error; err != nil {
			return err
		}
		return createHistory(tx, HistoryActionUpdate, companySettingsId, "company_settings", before, result, "Company settings updated")
	})
	if err != nil {
		return nil, err
	}
	_ = utils.RemoveRedisItem[CompanySettings](companySettingsId)
	return &result, nil
}
