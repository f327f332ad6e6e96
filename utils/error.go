package utils

import (
	"errors"
	"fmt"
	"strings"

	mysqlDriver "github.com/go-sql-driver/mysql"
)

var ErrorRecordNotFound = errors.New("record not found")

var (
	ErrInvalidWeight       = errors.New("load weight must be greater than empty weight")
	ErrEmptyWeightRequired = errors.New("empty weight must be greater than zero")
	ErrEntryNotCompleted   = errors.New("outward entry has no load weight yet")
	ErrEntryAlreadyBilled  = errors.New("outward entry is already billed")
	ErrInactiveParty       = errors.New("party is inactive")
	ErrReferenceBill       = errors.New("reference bill not found for this customer")
	ErrSequenceUnavailable = errors.New("document number could not be generated")
	ErrAdminOnly           = errors.New("admin role is required")
	ErrPartyInUse          = errors.New("party has ledger entries")
	ErrDuplicateRequest    = errors.New("request already processed")
	ErrRequestInProgress   = errors.New("request is still being processed")
	ErrLockBusy            = errors.New("another posting holds the lock, try again")
)

// ValidationError wraps a sentinel (or plain message) with the offending field.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Err.Error())
	}
	return e.Err.Error()
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

func NewValidationError(field string, err error) error {
	return &ValidationError{Field: field, Err: err}
}

func NewValidationMessage(field string, message string) error {
	return &ValidationError{Field: field, Err: errors.New(message)}
}

func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsDuplicateKeyErr detects unique index violations on MySQL (1062) and SQLite.
func IsDuplicateKeyErr(err error) bool {
	if err == nil {
		return false
	}
	var me *mysqlDriver.MySQLError
	if errors.As(err, &me) {
		return me.Number == 1062
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
