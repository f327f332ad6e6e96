package models

import (
	"context"
	"encoding/json"
	"time"

	"gorm.io/gorm"

	"bitbucket.org/mmdatafocus/tradebooks_backend/config"
	"bitbucket.org/mmdatafocus/tradebooks_backend/utils"
)

// History is the audit trail of edits and deletes.
type History struct {
	ID            int           `gorm:"primary_key" json:"id"`
	ActionType    HistoryAction `gorm:"size:10;not null" json:"action_type" binding:"required"`
	Before        string        `gorm:"type:text" json:"before"`
	After         string        `gorm:"type:text" json:"after"`
	Description   string        `gorm:"type:text;not null" json:"description"`
	ReferenceID   int           `gorm:"index" json:"reference_id"`
	ReferenceType string        `gorm:"size:255;index" json:"reference_type"`
	UserId        int           `gorm:"index;not null;default:0" json:"user_id"`
	UserName      string        `gorm:"size:100" json:"user_name"`
	CreatedAt     time.Time     `gorm:"autoCreateTime" json:"created_at"`
}

func createHistory(tx *gorm.DB,
	actionType HistoryAction,
	referenceId int,
	referenceType string,
	before interface{},
	after interface{},
	description string) error {

	var history History

	var b, a []byte
	if before != nil {
		b, _ = json.Marshal(before)
	}
	if after != nil {
		a, _ = json.Marshal(after)
	}

	// background jobs run without a user
	ctx := tx.Statement.Context
	userId, _ := utils.GetUserIdFromContext(ctx)
	userName, ok := utils.GetUserNameFromContext(ctx)
	if !ok || userName == "" {
		userName = "system"
	}

	history.ActionType = actionType
	history.Before = string(b)
	history.After = string(a)
	history.Description = description
	history.ReferenceID = referenceId
	history.ReferenceType = referenceType
	history.UserId = userId
	history.UserName = userName

	return tx.Create(&history).Error
}

func GetHistories(ctx context.Context, referenceType string, referenceId int, page Page) ([]*History, *PageInfo, error) {
	db := config.GetDB()

	dbCtx := db.WithContext(ctx).Model(&History{})
	if referenceType != "" {
		dbCtx = dbCtx.Where("reference_type = ?", referenceType)
	}
	if referenceId > 0 {
		dbCtx = dbCtx.Where("reference_id = ?", referenceId)
	}
	return FetchPage[History](dbCtx, page, "created_at DESC, id DESC")
}
