package workflow_test

import (
	"errors"
	"testing"

	"bitbucket.org/mmdatafocus/tradebooks_backend/models"
	"bitbucket.org/mmdatafocus/tradebooks_backend/utils"
	"bitbucket.org/mmdatafocus/tradebooks_backend/workflow"
)

func TestBeginIdempotency(t *testing.T) {
	db := openDB(t)

	existing, err := workflow.BeginIdempotency(db, "create_sale", "form-1")
	if err != nil || existing != nil {
		t.Fatalf("first call = %v, %v", existing, err)
	}

	if _, err := workflow.BeginIdempotency(db, "create_sale", "form-1"); !errors.Is(err, utils.ErrRequestInProgress) {
		t.Fatalf("retry while started: err = %v", err)
	}

	// same key in another scope is independent
	if existing, err := workflow.BeginIdempotency(db, "create_receipt", "form-1"); err != nil || existing != nil {
		t.Fatalf("other scope = %v, %v", existing, err)
	}

	if err := workflow.MarkIdempotencySucceeded(db, "create_sale", "form-1", 42); err != nil {
		t.Fatalf("MarkIdempotencySucceeded: %v", err)
	}
	existing, err = workflow.BeginIdempotency(db, "create_sale", "form-1")
	if err != nil || existing == nil || existing.ResourceId != 42 {
		t.Fatalf("replay = %+v, %v", existing, err)
	}
}

func TestBeginIdempotencyAfterFailure(t *testing.T) {
	db := openDB(t)
	if _, err := workflow.BeginIdempotency(db, "create_purchase", "k"); err != nil {
		t.Fatalf("BeginIdempotency: %v", err)
	}
	if err := workflow.MarkIdempotencyFailed(db, "create_purchase", "k", errors.New("supplier inactive")); err != nil {
		t.Fatalf("MarkIdempotencyFailed: %v", err)
	}

	// a failed attempt may be retried with the same key
	existing, err := workflow.BeginIdempotency(db, "create_purchase", "k")
	if err != nil || existing != nil {
		t.Fatalf("retry after failure = %v, %v", existing, err)
	}
	var key models.IdempotencyKey
	if err := db.Where("scope = ? AND request_key = ?", "create_purchase", "k").First(&key).Error; err != nil {
		t.Fatalf("load key: %v", err)
	}
	if key.Status != models.IdempotencyStatusStarted || key.LastError != nil {
		t.Fatalf("key = %+v", key)
	}
}
