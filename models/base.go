package models

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"bitbucket.org/mmdatafocus/tradebooks_backend/config"
	"bitbucket.org/mmdatafocus/tradebooks_backend/utils"
)

// RecordLedgerEvent writes the outbox row inside the caller's transaction.
// Publishing happens after commit in workflow.OutboxDispatcher.
func RecordLedgerEvent(ctx context.Context, tx *gorm.DB, transactionDate time.Time, refType string, refId int, refNo string, partyId int, amount decimal.Decimal, obj interface{}, action EventAction) error {
	payload, err := json.Marshal(obj)
	if err != nil {
		return err
	}
	record := LedgerEvent{
		TransactionDate: transactionDate,
		ReferenceId:     refId,
		ReferenceType:   refType,
		ReferenceNo:     refNo,
		PartyId:         partyId,
		Amount:          amount,
		Action:          action,
		Payload:         payload,
		PublishStatus:   OutboxPublishStatusPending,
		CorrelationId:   correlationIdFromContextOrNew(ctx),
	}
	return tx.Create(&record).Error
}

func correlationIdFromContextOrNew(ctx context.Context) string {
	if ctx != nil {
		if v, ok := utils.GetCorrelationIdFromContext(ctx); ok && v != "" {
			return v
		}
	}
	return uuid.NewString()
}

// lockForUpdate adds SELECT ... FOR UPDATE on MySQL. SQLite serialises writers already.
func lockForUpdate(tx *gorm.DB) *gorm.DB {
	if config.IsMySQL(tx) {
		return tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return tx
}

// lockParty takes the row lock that serialises ledger postings of one party.
func lockParty(tx *gorm.DB, table string, id int) error {
	var row struct{ ID int }
	err := lockForUpdate(tx).Table(table).Select("id").Where("id = ?", id).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return utils.ErrorRecordNotFound
	}
	return err
}

func notFoundOr(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return utils.ErrorRecordNotFound
	}
	return err
}

func transactionDateOrToday(d *time.Time) time.Time {
	if d == nil || d.IsZero() {
		return utils.TruncateDay(time.Now())
	}
	return utils.TruncateDay(*d)
}

func earlier(a, b time.Time) time.Time {
	if b.Before(a) {
		return b
	}
	return a
}

// runInTx wraps fn in an explicit transaction and commits when fn succeeds.
// A successful commit makes every cached report stale.
func runInTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	db := config.GetDB()
	tx := db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return tx.Error
	}
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit().Error; err != nil {
		return err
	}
	bumpReportGeneration()
	return nil
}

// runPostingTx serialises postings of one party across instances with a redis lock, then runs fn
// in a transaction. The party row lock inside the ledger writer still applies.
func runPostingTx(ctx context.Context, party string, partyId int, fn func(tx *gorm.DB) error) error {
	return runPostingTxFor(ctx, party, []int{partyId}, fn)
}

// runPostingTxFor holds the posting locks of several parties of one kind. Locks are taken in
// ascending id order so two writers moving documents between the same parties cannot deadlock.
func runPostingTxFor(ctx context.Context, party string, partyIds []int, fn func(tx *gorm.DB) error) error {
	ids := append([]int(nil), partyIds...)
	slices.Sort(ids)
	ids = slices.Compact(ids)

	run := func() error { return runInTx(ctx, fn) }
	for i := len(ids) - 1; i >= 0; i-- {
		key := fmt.Sprintf("posting:%s:%d", party, ids[i])
		inner := run
		run = func() error {
			return utils.WithRedisLock(ctx, key, "Models", "runPostingTx", inner)
		}
	}
	return run()
}

// CreatedHook runs inside the transaction that creates a document, once the row has its id.
// A hook error rolls the document back.
type CreatedHook func(tx *gorm.DB, id int) error

type createdHookKey struct{}

func WithCreatedHook(ctx context.Context, hook CreatedHook) context.Context {
	return context.WithValue(ctx, createdHookKey{}, hook)
}

func runCreatedHook(ctx context.Context, tx *gorm.DB, id int) error {
	hook, ok := ctx.Value(createdHookKey{}).(CreatedHook)
	if !ok || hook == nil {
		return nil
	}
	return hook(tx, id)
}

const reportGenerationKey = "Report:generation"

func bumpReportGeneration() {
	if err := config.IncrRedisValue(reportGenerationKey); err != nil {
		config.LogError(config.GetLogger(), "Models", "bumpReportGeneration", "incr", reportGenerationKey, err)
	}
}

// ReportGeneration is the counter bumped by every committed write. Cached report keys embed it,
// so a posting orphans every earlier cache entry. ok is false when the counter cannot be read.
func ReportGeneration() (string, bool) {
	v, found, err := config.GetRedisValue(reportGenerationKey)
	if err != nil {
		return "", false
	}
	if !found {
		return "0", true
	}
	return v, true
}

// requireAdmin guards destructive operations; the role is set by the auth middleware.
func requireAdmin(ctx context.Context) error {
	if isAdmin, ok := utils.GetIsAdminFromContext(ctx); ok && isAdmin {
		return nil
	}
	return utils.ErrAdminOnly
}
