package handlers

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"bitbucket.org/mmdatafocus/tradebooks_backend/config"
	"bitbucket.org/mmdatafocus/tradebooks_backend/models"
	"bitbucket.org/mmdatafocus/tradebooks_backend/utils"
)

type loadWeightRequest struct {
	LoadWeight decimal.Decimal `json:"load_weight" binding:"required"`
}

func listOutwardEntriesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		from, to, valid := queryRange(c)
		if !valid {
			return
		}
		filter := models.OutwardEntryFilter{
			From:        from,
			To:          to,
			IsCompleted: queryBool(c, "is_completed"),
			CustomerId:  queryInt(c, "customer_id"),
			Search:      c.Query("search"),
			Page:        queryPage(c),
		}
		entries, info, err := models.ListOutwardEntries(c.Request.Context(), filter)
		if err != nil {
			renderError(c, "listOutwardEntriesHandler", err)
			return
		}
		views, err := entryViews(c.Request.Context(), entries)
		if err != nil {
			renderError(c, "listOutwardEntriesHandler", err)
			return
		}
		page(c, views, info)
	}
}

func createOutwardEntryHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewOutwardEntry
		if !bindJSON(c, &input) {
			return
		}
		createOnce(c, "create_outward_entry", func(ctx context.Context) (*models.OutwardEntry, error) {
			return models.CreateOutwardEntry(ctx, &input)
		}, models.GetOutwardEntry)
	}
}

func getOutwardEntryHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, valid := paramId(c)
		if !valid {
			return
		}
		entry, err := models.GetOutwardEntry(c.Request.Context(), id)
		if err != nil {
			renderError(c, "getOutwardEntryHandler", err)
			return
		}
		ok(c, entry)
	}
}

func updateOutwardEntryHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, valid := paramId(c)
		if !valid {
			return
		}
		var input models.NewOutwardEntry
		if !bindJSON(c, &input) {
			return
		}
		entry, err := models.UpdateOutwardEntry(c.Request.Context(), id, &input)
		if err != nil {
			renderError(c, "updateOutwardEntryHandler", err)
			return
		}
		ok(c, entry)
	}
}

func loadWeightHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, valid := paramId(c)
		if !valid {
			return
		}
		var req loadWeightRequest
		if !bindJSON(c, &req) {
			return
		}
		entry, err := models.UpdateLoadWeight(c.Request.Context(), id, req.LoadWeight)
		if err != nil {
			renderError(c, "loadWeightHandler", err)
			return
		}
		ok(c, entry)
	}
}

// deleteOutwardEntryHandler removes the entry with its sales, notes and ledger rows.
func deleteOutwardEntryHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, valid := paramId(c)
		if !valid {
			return
		}
		ctx := c.Request.Context()
		entry, err := models.GetOutwardEntry(ctx, id)
		if err != nil {
			renderError(c, "deleteOutwardEntryHandler", err)
			return
		}
		result, err := models.DeleteOutwardEntry(ctx, id)
		if err != nil {
			renderError(c, "deleteOutwardEntryHandler", err)
			return
		}
		removeEntryPhotos(ctx, entry)
		ok(c, result)
	}
}

// removeEntryPhotos deletes the slip photo and thumbnail of a deleted entry. Failures are logged only.
func removeEntryPhotos(ctx context.Context, entry *models.OutwardEntry) {
	store := utils.NewObjectStore()
	for _, url := range []string{entry.PhotoUrl, entry.ThumbnailUrl} {
		key := utils.ExtractObjectKeyFromURL(url)
		if key == "" {
			continue
		}
		if err := store.Delete(ctx, key); err != nil {
			config.LogError(config.GetLogger(), "Handlers", "removeEntryPhotos", "delete object", key, err)
		}
	}
}
