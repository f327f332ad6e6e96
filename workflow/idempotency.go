package workflow

import (
	"time"

	"gorm.io/gorm"

	"bitbucket.org/mmdatafocus/tradebooks_backend/models"
	"bitbucket.org/mmdatafocus/tradebooks_backend/utils"
)

// staleAfter is how long a STARTED key blocks a retry of the same request.
const staleAfter = 5 * time.Minute

// BeginIdempotency inserts a STARTED key. When the same (scope, key) already SUCCEEDED it returns the
// stored row so the caller can answer with the original resource instead of posting again.
func BeginIdempotency(tx *gorm.DB, scope, requestKey string) (*models.IdempotencyKey, error) {
	key := models.IdempotencyKey{
		Scope:      scope,
		RequestKey: requestKey,
		Status:     models.IdempotencyStatusStarted,
	}
	if err := tx.Create(&key).Error; err == nil {
		return nil, nil
	} else if !utils.IsDuplicateKeyErr(err) {
		return nil, err
	}

	var existing models.IdempotencyKey
	if err := tx.Where("scope = ? AND request_key = ?", scope, requestKey).First(&existing).Error; err != nil {
		return nil, err
	}

	switch existing.Status {
	case models.IdempotencyStatusSucceeded:
		return &existing, nil
	case models.IdempotencyStatusStarted:
		if time.Since(existing.UpdatedAt) < staleAfter {
			return nil, utils.ErrRequestInProgress
		}
	}
	return nil, tx.Model(&models.IdempotencyKey{}).
		Where("id = ?", existing.ID).
		Updates(map[string]interface{}{"status": models.IdempotencyStatusStarted, "last_error": nil}).Error
}

func MarkIdempotencySucceeded(tx *gorm.DB, scope, requestKey string, resourceId int) error {
	return tx.Model(&models.IdempotencyKey{}).
		Where("scope = ? AND request_key = ?", scope, requestKey).
		Updates(map[string]interface{}{"status": models.IdempotencyStatusSucceeded, "resource_id": resourceId, "last_error": nil}).Error
}

func MarkIdempotencyFailed(tx *gorm.DB, scope, requestKey string, err error) error {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	return tx.Model(&models.IdempotencyKey{}).
		Where("scope = ? AND request_key = ?", scope, requestKey).
		Updates(map[string]interface{}{"status": models.IdempotencyStatusFailed, "last_error": &msg}).Error
}

