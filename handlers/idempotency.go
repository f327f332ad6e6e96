package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"bitbucket.org/mmdatafocus/tradebooks_backend/config"
	"bitbucket.org/mmdatafocus/tradebooks_backend/models"
	"bitbucket.org/mmdatafocus/tradebooks_backend/workflow"
)

const idempotencyHeader = "Idempotency-Key"

// createOnce runs create at most once per Idempotency-Key within scope. A replayed key answers
// with the resource the first request created. The key is marked succeeded inside the creating
// transaction, so a committed document never leaves its key STARTED.
func createOnce[T any](c *gin.Context, scope string, create func(ctx context.Context) (*T, error), fetch func(ctx context.Context, id int) (*T, error)) {
	ctx := c.Request.Context()
	key := strings.TrimSpace(c.GetHeader(idempotencyHeader))
	if key == "" {
		if config.RequireIdempotencyKey() {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": idempotencyHeader + " header is required"})
			return
		}
		result, err := create(ctx)
		if err != nil {
			renderError(c, scope, err)
			return
		}
		created(c, result)
		return
	}

	db := config.GetDB().WithContext(ctx)
	existing, err := workflow.BeginIdempotency(db, scope, key)
	if err != nil {
		renderError(c, scope, err)
		return
	}
	if existing != nil {
		result, err := fetch(ctx, existing.ResourceId)
		if err != nil {
			renderError(c, scope, err)
			return
		}
		c.Header("Idempotent-Replayed", "true")
		ok(c, result)
		return
	}

	hooked := models.WithCreatedHook(ctx, func(tx *gorm.DB, id int) error {
		return workflow.MarkIdempotencySucceeded(tx, scope, key, id)
	})
	result, err := create(hooked)
	if err != nil {
		if markErr := workflow.MarkIdempotencyFailed(db, scope, key, err); markErr != nil {
			config.LogError(config.GetLogger(), "Handlers", "createOnce", "mark idempotency failed", key, markErr)
		}
		renderError(c, scope, err)
		return
	}
	created(c, result)
}
