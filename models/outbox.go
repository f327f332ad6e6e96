package models

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"bitbucket.org/mmdatafocus/tradebooks_backend/config"
)

const (
	OutboxPublishStatusPending    = "PENDING"
	OutboxPublishStatusProcessing = "PROCESSING"
	OutboxPublishStatusSent       = "SENT"
	OutboxPublishStatusFailed     = "FAILED"
	OutboxPublishStatusDead       = "DEAD"
)

// LedgerEvent is the transactional outbox row written with every posted document.
type LedgerEvent struct {
	ID               int             `gorm:"primary_key;index:idx_outbox_dispatch,priority:3" json:"id"`
	TransactionDate  time.Time       `gorm:"index;not null" json:"transaction_date"`
	ReferenceId      int             `gorm:"index" json:"reference_id"`
	ReferenceType    string          `gorm:"size:30;not null" json:"reference_type"`
	ReferenceNo      string          `gorm:"size:50" json:"reference_no"`
	PartyId          int             `json:"party_id"`
	Amount           decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"amount"`
	Action           EventAction     `gorm:"size:1;not null" json:"action"`
	Payload          []byte          `gorm:"type:blob" json:"payload"`
	PublishStatus    string          `gorm:"size:20;index;not null;default:'PENDING';index:idx_outbox_dispatch,priority:1" json:"publish_status"`
	PublishedAt      *time.Time      `gorm:"index" json:"published_at"`
	PubSubMessageId  *string         `gorm:"size:255" json:"pubsub_message_id"`
	PublishAttempts  int             `gorm:"not null;default:0" json:"publish_attempts"`
	NextAttemptAt    *time.Time      `gorm:"index;index:idx_outbox_dispatch,priority:2" json:"next_attempt_at"`
	LockedAt         *time.Time      `gorm:"index" json:"locked_at"`
	LockedBy         *string         `gorm:"size:100" json:"locked_by"`
	LastPublishError *string         `gorm:"type:text" json:"last_publish_error"`
	CorrelationId    string          `gorm:"size:64;index" json:"correlation_id"`
	CreatedAt        time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (e LedgerEvent) ToMessage() config.LedgerEventMessage {
	return config.LedgerEventMessage{
		ID:              e.ID,
		TransactionDate: e.TransactionDate,
		ReferenceId:     e.ReferenceId,
		ReferenceType:   e.ReferenceType,
		ReferenceNo:     e.ReferenceNo,
		Action:          string(e.Action),
		PartyId:         e.PartyId,
		Amount:          e.Amount.StringFixed(2),
		Payload:         e.Payload,
		CorrelationId:   e.CorrelationId,
	}
}

type OutboxStatusCount struct {
	PublishStatus string `json:"publish_status"`
	Count         int64  `json:"count"`
}

// GetOutboxStatusCounts summarises the outbox for the health view.
func GetOutboxStatusCounts(ctx context.Context) ([]*OutboxStatusCount, error) {
	db := config.GetDB()
	var results []*OutboxStatusCount
	err := db.WithContext(ctx).Model(&LedgerEvent{}).
		Select("publish_status, COUNT(*) AS count").
		Group("publish_status").
		Order("publish_status").
		Scan(&results).Error
	return results, err
}

// RequeueDeadEvents moves DEAD rows back to PENDING so the dispatcher retries them.
func RequeueDeadEvents(ctx context.Context) (int64, error) {
	db := config.GetDB()
	res := db.WithContext(ctx).Model(&LedgerEvent{}).
		Where("publish_status = ?", OutboxPublishStatusDead).
		Updates(map[string]interface{}{
			"publish_status":   OutboxPublishStatusPending,
			"publish_attempts": 0,
			"next_attempt_at":  nil,
			"locked_at":        nil,
			"locked_by":        nil,
		})
	return res.RowsAffected, res.Error
}
