package workflow_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"bitbucket.org/mmdatafocus/tradebooks_backend/config"
	"bitbucket.org/mmdatafocus/tradebooks_backend/models"
	"bitbucket.org/mmdatafocus/tradebooks_backend/workflow"
)

func openDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := config.OpenSQLite("file:" + filepath.Join(t.TempDir(), "workflow.db") + "?_busy_timeout=5000")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	config.SetDB(conn)
	models.MigrateTable()
	t.Cleanup(func() {
		if sqlDB, err := conn.DB(); err == nil {
			_ = sqlDB.Close()
		}
		config.SetDB(nil)
	})
	return conn
}

func recordEvent(t *testing.T, db *gorm.DB, refNo string) {
	t.Helper()
	err := models.RecordLedgerEvent(context.Background(), db, time.Now(), "Sale", 1, refNo, 7,
		decimal.NewFromInt(1050), map[string]string{"bill_serial_no": refNo}, models.EventActionCreate)
	if err != nil {
		t.Fatalf("RecordLedgerEvent: %v", err)
	}
}

func eventStatus(t *testing.T, db *gorm.DB, refNo string) models.LedgerEvent {
	t.Helper()
	var e models.LedgerEvent
	if err := db.Where("reference_no = ?", refNo).First(&e).Error; err != nil {
		t.Fatalf("load event %s: %v", refNo, err)
	}
	return e
}

func TestDispatchOnceMarksSent(t *testing.T) {
	db := openDB(t)
	recordEvent(t, db, "001")
	recordEvent(t, db, "002")

	var published []string
	d := workflow.NewOutboxDispatcher(db, nil)
	d.Publish = func(_ context.Context, msg config.LedgerEventMessage) (string, error) {
		published = append(published, msg.ReferenceNo)
		if msg.Amount != "1050.00" {
			t.Errorf("amount = %s, want 1050.00", msg.Amount)
		}
		return "msg-" + msg.ReferenceNo, nil
	}

	sent, err := d.DispatchOnce(context.Background())
	if err != nil {
		t.Fatalf("DispatchOnce: %v", err)
	}
	if sent != 2 || len(published) != 2 || published[0] != "001" {
		t.Fatalf("sent=%d published=%v", sent, published)
	}
	e := eventStatus(t, db, "002")
	if e.PublishStatus != models.OutboxPublishStatusSent || e.PubSubMessageId == nil || *e.PubSubMessageId != "msg-002" {
		t.Fatalf("event = %+v", e)
	}
	if e.PublishAttempts != 1 || e.LockedBy != nil {
		t.Fatalf("attempts=%d locked_by=%v", e.PublishAttempts, e.LockedBy)
	}

	// nothing left to claim
	if sent, _ := d.DispatchOnce(context.Background()); sent != 0 {
		t.Fatalf("second dispatch sent %d", sent)
	}
}

func TestDispatchOnceFailureGoesDead(t *testing.T) {
	db := openDB(t)
	recordEvent(t, db, "RCP0001")

	d := workflow.NewOutboxDispatcher(db, nil)
	d.MaxAttempts = 2
	d.InitialBackoff = 0
	d.Publish = func(context.Context, config.LedgerEventMessage) (string, error) {
		return "", errors.New("broker unavailable")
	}

	if _, err := d.DispatchOnce(context.Background()); err != nil {
		t.Fatalf("DispatchOnce: %v", err)
	}
	e := eventStatus(t, db, "RCP0001")
	if e.PublishStatus != models.OutboxPublishStatusFailed || e.LastPublishError == nil || *e.LastPublishError != "broker unavailable" {
		t.Fatalf("after first failure: %+v", e)
	}
	past := time.Now().UTC().Add(-time.Hour)
	if err := db.Model(&models.LedgerEvent{}).Where("id = ?", e.ID).Update("next_attempt_at", &past).Error; err != nil {
		t.Fatalf("rewind next_attempt_at: %v", err)
	}

	if _, err := d.DispatchOnce(context.Background()); err != nil {
		t.Fatalf("DispatchOnce: %v", err)
	}
	if e := eventStatus(t, db, "RCP0001"); e.PublishStatus != models.OutboxPublishStatusDead {
		t.Fatalf("status = %s, want DEAD", e.PublishStatus)
	}

	n, err := models.RequeueDeadEvents(context.Background())
	if err != nil || n != 1 {
		t.Fatalf("RequeueDeadEvents = %d, %v", n, err)
	}
	if e := eventStatus(t, db, "RCP0001"); e.PublishStatus != models.OutboxPublishStatusPending || e.PublishAttempts != 0 {
		t.Fatalf("requeued event = %+v", e)
	}
}

func TestBackoff(t *testing.T) {
	cases := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 5 * time.Second},
		{2, 10 * time.Second},
		{4, 40 * time.Second},
		{12, 10 * time.Minute},
	}
	for _, tc := range cases {
		if got := workflow.Backoff(5*time.Second, tc.attempt); got != tc.want {
			t.Fatalf("Backoff(5s, %d) = %v, want %v", tc.attempt, got, tc.want)
		}
	}
}
