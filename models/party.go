package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"bitbucket.org/mmdatafocus/tradebooks_backend/utils"
)

// NewParty is the create/update form shared by customers and suppliers.
type NewParty struct {
	Name           string          `json:"name" binding:"required"`
	Gstin          string          `json:"gstin" binding:"omitempty,gstin"`
	Phone          string          `json:"phone"`
	Email          string          `json:"email"`
	Address        string          `json:"address"`
	City           string          `json:"city"`
	State          string          `json:"state"`
	StateCode      string          `json:"state_code"`
	Pincode        string          `json:"pincode"`
	OpeningBalance decimal.Decimal `json:"opening_balance"`
	OpeningDate    *time.Time      `json:"opening_date"`
}

type PartyFilter struct {
	Search   string `form:"search"`
	IsActive *bool  `form:"is_active"`
	Page
}

// normalize trims the form and checks GSTIN, phone and email formats.
func (input *NewParty) normalize() error {
	input.Name = strings.TrimSpace(input.Name)
	if input.Name == "" {
		return utils.NewValidationMessage("name", "name is required")
	}

	input.Gstin = strings.ToUpper(strings.TrimSpace(input.Gstin))
	if input.Gstin != "" {
		if !utils.IsValidGSTIN(input.Gstin) {
			return utils.NewValidationMessage("gstin", "invalid GSTIN")
		}
		code := utils.GSTINStateCode(input.Gstin)
		if input.StateCode == "" {
			input.StateCode = code
		} else if input.StateCode != code {
			return utils.NewValidationMessage("state_code", "state code does not match GSTIN")
		}
	}

	input.Phone = strings.TrimSpace(input.Phone)
	if input.Phone != "" {
		phone, err := utils.FormatPhoneNumber(input.Phone, utils.CountryCode)
		if err != nil {
			return utils.NewValidationError("phone", err)
		}
		input.Phone = phone
	}

	input.Email = strings.TrimSpace(input.Email)
	if input.Email != "" && !utils.IsValidEmail(input.Email) {
		return utils.NewValidationMessage("email", "invalid email")
	}

	input.OpeningBalance = utils.RoundMoney(input.OpeningBalance)
	return nil
}

// openingPosting turns a signed opening balance into a ledger row. A positive balance sits on the
// book's normal side.
func openingPosting(book ledgerBook, partyId int, code string, balance decimal.Decimal, date *time.Time) LedgerPosting {
	p := LedgerPosting{
		PartyId:     partyId,
		Date:        transactionDateOrToday(date),
		Type:        LedgerTransactionTypeOpening,
		ReferenceId: partyId,
		ReferenceNo: code,
		Description: "Opening balance",
		Debit:       decimal.Zero,
		Credit:      decimal.Zero,
	}
	positiveDebit := book.normalDebit == balance.IsPositive()
	if positiveDebit {
		p.Debit = balance.Abs()
	} else {
		p.Credit = balance.Abs()
	}
	return p
}

func validatePartyActive(isActive *bool) error {
	if isActive != nil && !*isActive {
		return utils.ErrInactiveParty
	}
	return nil
}

// partySearch is the fuzzy search used by the list screens.
func partySearch(search string) (string, []interface{}) {
	like := "%" + strings.TrimSpace(search) + "%"
	return "(name LIKE ? OR code LIKE ? OR gstin LIKE ? OR phone LIKE ?)", []interface{}{like, like, like, like}
}
