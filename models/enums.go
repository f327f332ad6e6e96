package models

import (
	"encoding/json"
	"errors"
	"strings"
)

type LedgerTransactionType string

const (
	LedgerTransactionTypeOpening    LedgerTransactionType = "opening"
	LedgerTransactionTypeSale       LedgerTransactionType = "sale"
	LedgerTransactionTypeReceipt    LedgerTransactionType = "receipt"
	LedgerTransactionTypeCreditNote LedgerTransactionType = "credit_note"
	LedgerTransactionTypeDebitNote  LedgerTransactionType = "debit_note"
	LedgerTransactionTypePurchase   LedgerTransactionType = "purchase"
	LedgerTransactionTypePayment    LedgerTransactionType = "payment"
)

func (t LedgerTransactionType) IsValid() bool {
	switch t {
	case LedgerTransactionTypeOpening, LedgerTransactionTypeSale, LedgerTransactionTypeReceipt,
		LedgerTransactionTypeCreditNote, LedgerTransactionTypeDebitNote,
		LedgerTransactionTypePurchase, LedgerTransactionTypePayment:
		return true
	}
	return false
}

// ParseLedgerTransactionTypes reads a comma separated filter (e.g. "sale,receipt").
func ParseLedgerTransactionTypes(csv string) ([]LedgerTransactionType, error) {
	var out []LedgerTransactionType
	for _, part := range strings.Split(csv, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		t := LedgerTransactionType(part)
		if !t.IsValid() {
			return nil, errors.New("invalid transaction type " + part)
		}
		out = append(out, t)
	}
	return out, nil
}

// DocumentType names a numbering series owner.
type DocumentType string

const (
	DocumentTypeSale            DocumentType = "sale"
	DocumentTypeReceipt         DocumentType = "receipt"
	DocumentTypeCreditNote      DocumentType = "credit_note"
	DocumentTypeDebitNote       DocumentType = "debit_note"
	DocumentTypePurchase        DocumentType = "purchase"
	DocumentTypeSupplierPayment DocumentType = "supplier_payment"
	DocumentTypeOutward         DocumentType = "outward"
	DocumentTypeCustomer        DocumentType = "customer"
	DocumentTypeSupplier        DocumentType = "supplier"
)

type PaymentMode string

const (
	PaymentModeCash   PaymentMode = "cash"
	PaymentModeBank   PaymentMode = "bank"
	PaymentModeUPI    PaymentMode = "upi"
	PaymentModeCheque PaymentMode = "cheque"
)

func (p PaymentMode) IsValid() bool {
	switch p {
	case PaymentModeCash, PaymentModeBank, PaymentModeUPI, PaymentModeCheque:
		return true
	}
	return false
}

func (p *PaymentMode) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	mode := PaymentMode(strings.ToLower(strings.TrimSpace(s)))
	if mode == "" {
		mode = PaymentModeCash
	}
	if !mode.IsValid() {
		return errors.New("invalid payment mode " + s)
	}
	*p = mode
	return nil
}

type UserRole string

const (
	UserRoleAdmin UserRole = "admin"
	UserRoleStaff UserRole = "staff"
)

func (r UserRole) IsValid() bool {
	return r == UserRoleAdmin || r == UserRoleStaff
}

// NoteKind distinguishes the two adjustment documents.
type NoteKind string

const (
	NoteKindCredit NoteKind = "credit"
	NoteKindDebit  NoteKind = "debit"
)

type HistoryAction string

const (
	HistoryActionCreate HistoryAction = "CREATE"
	HistoryActionUpdate HistoryAction = "UPDATE"
	HistoryActionDelete HistoryAction = "DELETE"
)

type EventAction string

const (
	EventActionCreate EventAction = "C"
	EventActionUpdate EventAction = "U"
	EventActionDelete EventAction = "D"
)
