package models

import "time"

type IdempotencyStatus string

const (
	IdempotencyStatusStarted   IdempotencyStatus = "STARTED"
	IdempotencyStatusSucceeded IdempotencyStatus = "SUCCEEDED"
	IdempotencyStatusFailed    IdempotencyStatus = "FAILED"
)

// IdempotencyKey makes a resubmitted create form return the first result instead of posting twice.
// Unique constraint: (scope, request_key).
type IdempotencyKey struct {
	ID         int               `gorm:"primary_key" json:"id"`
	Scope      string            `gorm:"size:100;not null;uniqueIndex:uniq_idempotency" json:"scope"`
	RequestKey string            `gorm:"size:255;not null;uniqueIndex:uniq_idempotency" json:"request_key"`
	Status     IdempotencyStatus `gorm:"size:20;not null;index" json:"status"`
	ResourceId int               `gorm:"not null;default:0" json:"resource_id"`
	LastError  *string           `gorm:"type:text" json:"last_error"`
	CreatedAt  time.Time         `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time         `gorm:"autoUpdateTime" json:"updated_at"`
}
