package models

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"

	"bitbucket.org/mmdatafocus/tradebooks_backend/config"
	"bitbucket.org/mmdatafocus/tradebooks_backend/utils"
)

// DocumentSequence is the locked counter behind one numbering series.
// Numbers are claimed inside the writer's transaction, so they commit or roll back with the document.
type DocumentSequence struct {
	ID        int          `gorm:"primary_key" json:"id"`
	DocType   DocumentType `gorm:"size:30;not null;uniqueIndex:uniq_document_sequence" json:"doc_type" binding:"required"`
	Prefix    string       `gorm:"size:10;not null;default:'';uniqueIndex:uniq_document_sequence" json:"prefix"`
	Width     int          `gorm:"not null;default:3" json:"width" binding:"required"`
	Floor     int          `gorm:"not null;default:1" json:"floor"`
	LastValue int          `gorm:"not null;default:0" json:"last_value"`
	CreatedAt time.Time    `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time    `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewDocumentSequence struct {
	DocType DocumentType `json:"doc_type" binding:"required"`
	Prefix  string       `json:"prefix"`
	Width   int          `json:"width" binding:"required,min=1,max=12"`
	Floor   int          `json:"floor" binding:"omitempty,min=1"`
}

type numberedColumn struct {
	table  string
	column string
}

// where each series' numbers live, so legacy or imported numbers are never reissued
var numberedColumns = map[DocumentType]numberedColumn{
	DocumentTypeSale:            {table: "sales", column: "bill_serial_no"},
	DocumentTypeReceipt:         {table: "receipts", column: "receipt_no"},
	DocumentTypeCreditNote:      {table: "credit_notes", column: "note_no"},
	DocumentTypeDebitNote:       {table: "debit_notes", column: "note_no"},
	DocumentTypePurchase:        {table: "purchases", column: "purchase_no"},
	DocumentTypeSupplierPayment: {table: "supplier_payments", column: "payment_no"},
	DocumentTypeOutward:         {table: "outward_entries", column: "serial_no"},
	DocumentTypeCustomer:        {table: "customers", column: "code"},
	DocumentTypeSupplier:        {table: "suppliers", column: "code"},
}

var prefixPattern = regexp.MustCompile(`^[A-Z0-9/-]{0,10}$`)

func normalizePrefix(prefix string) (string, error) {
	prefix = strings.ToUpper(strings.TrimSpace(prefix))
	if !prefixPattern.MatchString(prefix) {
		return "", utils.NewValidationMessage("series", "series prefix may only contain A-Z, 0-9, / and -")
	}
	return prefix, nil
}

// NumericSuffix returns the number after prefix when the rest of value is all digits.
func NumericSuffix(value string, prefix string) (int, bool) {
	if !strings.HasPrefix(value, prefix) {
		return 0, false
	}
	rest := value[len(prefix):]
	if rest == "" {
		return 0, false
	}
	for _, r := range rest {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(rest)
	if err != nil {
		return 0, false
	}
	return n, true
}

// NextSequenceValue is max(lastValue, largest numeric suffix in existing) + 1, raised to floor.
// Gaps are never filled.
func NextSequenceValue(existing []string, prefix string, lastValue int, floor int) int {
	max := lastValue
	for _, v := range existing {
		if n, ok := NumericSuffix(v, prefix); ok && n > max {
			max = n
		}
	}
	next := max + 1
	if next < floor {
		next = floor
	}
	return next
}

func FormatDocumentNumber(prefix string, width int, value int) string {
	return fmt.Sprintf("%s%0*d", prefix, width, value)
}

func seriesDefault(docType DocumentType, prefix string) (*config.SeriesSetting, error) {
	settings, err := config.SeriesDefaults()
	if err != nil {
		return nil, err
	}
	for _, s := range settings {
		if s.DocType == string(docType) && s.Prefix == prefix {
			setting := s
			return &setting, nil
		}
	}
	return nil, nil
}

// DefaultPrefix is the first configured prefix of a document type.
func DefaultPrefix(docType DocumentType) (string, error) {
	settings, err := config.SeriesDefaults()
	if err != nil {
		return "", err
	}
	for _, s := range settings {
		if s.DocType == string(docType) {
			return s.Prefix, nil
		}
	}
	return "", fmt.Errorf("no numbering series configured for %s", docType)
}

// loadSequenceForUpdate returns the counter row, creating it from configuration on first use.
func loadSequenceForUpdate(tx *gorm.DB, docType DocumentType, prefix string) (*DocumentSequence, error) {
	var seq DocumentSequence
	err := lockForUpdate(tx).Where("doc_type = ? AND prefix = ?", docType, prefix).Take(&seq).Error
	if err == nil {
		return &seq, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	setting, err := seriesDefault(docType, prefix)
	if err != nil {
		return nil, err
	}
	if setting == nil {
		return nil, utils.NewValidationMessage("series", fmt.Sprintf("unknown %s series %q", docType, prefix))
	}
	seq = DocumentSequence{DocType: docType, Prefix: prefix, Width: setting.Width, Floor: setting.Floor}
	if err := tx.Create(&seq).Error; err != nil {
		if !utils.IsDuplicateKeyErr(err) {
			return nil, err
		}
		// another writer created it first
		if err := lockForUpdate(tx).Where("doc_type = ? AND prefix = ?", docType, prefix).Take(&seq).Error; err != nil {
			return nil, err
		}
	}
	return &seq, nil
}

// ClaimNextNumber locks the series counter, computes max+1 over the counter and the stored numbers,
// and returns the formatted number. Must run inside the document's transaction.
func ClaimNextNumber(tx *gorm.DB, docType DocumentType, prefix string) (string, error) {
	target, ok := numberedColumns[docType]
	if !ok {
		return "", fmt.Errorf("%w: unknown document type %s", utils.ErrSequenceUnavailable, docType)
	}
	prefix, err := normalizePrefix(prefix)
	if err != nil {
		return "", err
	}

	seq, err := loadSequenceForUpdate(tx, docType, prefix)
	if err != nil {
		if utils.IsValidationError(err) {
			return "", err
		}
		return "", fmt.Errorf("%w: %v", utils.ErrSequenceUnavailable, err)
	}

	var existing []string
	err = tx.Table(target.table).
		Where(target.column+" LIKE ?", prefix+"%").
		Pluck(target.column, &existing).Error
	if err != nil {
		return "", fmt.Errorf("%w: %v", utils.ErrSequenceUnavailable, err)
	}

	next := NextSequenceValue(existing, prefix, seq.LastValue, seq.Floor)
	err = tx.Model(&DocumentSequence{}).Where("id = ?", seq.ID).Update("last_value", next).Error
	if err != nil {
		return "", fmt.Errorf("%w: %v", utils.ErrSequenceUnavailable, err)
	}
	return FormatDocumentNumber(prefix, seq.Width, next), nil
}

// PeekNextNumber previews the next number without claiming it (form defaults).
func PeekNextNumber(ctx context.Context, docType DocumentType, prefix string) (string, error) {
	var number string
	err := runInTx(ctx, func(tx *gorm.DB) error {
		var err error
		number, err = ClaimNextNumber(tx, docType, prefix)
		if err != nil {
			return err
		}
		return errPreviewRollback
	})
	if errors.Is(err, errPreviewRollback) {
		return number, nil
	}
	return "", err
}

var errPreviewRollback = errors.New("preview only")

// SeedDocumentSequences inserts configured series that do not exist yet.
func SeedDocumentSequences(ctx context.Context) error {
	settings, err := config.SeriesDefaults()
	if err != nil {
		return err
	}
	db := config.GetDB()
	for _, s := range settings {
		var count int64
		if err := db.WithContext(ctx).Model(&DocumentSequence{}).
			Where("doc_type = ? AND prefix = ?", s.DocType, s.Prefix).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			continue
		}
		seq := DocumentSequence{DocType: DocumentType(s.DocType), Prefix: s.Prefix, Width: s.Width, Floor: s.Floor}
		if err := db.WithContext(ctx).Create(&seq).Error; err != nil && !utils.IsDuplicateKeyErr(err) {
			return err
		}
	}
	return nil
}

func ListDocumentSequences(ctx context.Context, docType *DocumentType) ([]*DocumentSequence, error) {
	db := config.GetDB()
	dbCtx := db.WithContext(ctx)
	if docType != nil && *docType != "" {
		dbCtx = dbCtx.Where("doc_type = ?", *docType)
	}
	var results []*DocumentSequence
	err := dbCtx.Order("doc_type, prefix").Find(&results).Error
	return results, err
}

// UpsertDocumentSequence changes width/floor of a series or adds a new one. The counter never moves back.
func UpsertDocumentSequence(ctx context.Context, input *NewDocumentSequence) (*DocumentSequence, error) {
	if _, ok := numberedColumns[input.DocType]; !ok {
		return nil, utils.NewValidationMessage("doc_type", "unknown document type")
	}
	prefix, err := normalizePrefix(input.Prefix)
	if err != nil {
		return nil, err
	}
	floor := input.Floor
	if floor <= 0 {
		floor = 1
	}

	var result DocumentSequence
	err = runInTx(ctx, func(tx *gorm.DB) error {
		err := lockForUpdate(tx).Where("doc_type = ? AND prefix = ?", input.DocType, prefix).Take(&result).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			result = DocumentSequence{DocType: input.DocType, Prefix: prefix, Width: input.Width, Floor: floor}
			return tx.Create(&result).Error
		}
		if err != nil {
			return err
		}
		before := result
		result.Width = input.Width
		result.Floor = floor
		if err := tx.Model(&DocumentSequence{}).Where("id = ?", result.ID).
			Updates(map[string]interface{}{"width": result.Width, "floor": result.Floor}).Error; err != nil {
			return err
		}
		return createHistory(tx, HistoryActionUpdate, result.ID, "document_sequences", before, result, "Series updated")
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}
