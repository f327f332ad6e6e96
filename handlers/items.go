package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"bitbucket.org/mmdatafocus/tradebooks_backend/models"
)

func listItemsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		items, err := models.ListItems(c.Request.Context(), c.Query("search"), queryBool(c, "is_active"))
		if err != nil {
			renderError(c, "listItemsHandler", err)
			return
		}
		ok(c, items)
	}
}

func createItemHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewItem
		if !bindJSON(c, &input) {
			return
		}
		createOnce(c, "create_item", func(ctx context.Context) (*models.Item, error) {
			return models.CreateItem(ctx, &input)
		}, models.GetItem)
	}
}

func getItemHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, valid := paramId(c)
		if !valid {
			return
		}
		item, err := models.GetItem(c.Request.Context(), id)
		if err != nil {
			renderError(c, "getItemHandler", err)
			return
		}
		ok(c, item)
	}
}

func updateItemHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, valid := paramId(c)
		if !valid {
			return
		}
		var input models.NewItem
		if !bindJSON(c, &input) {
			return
		}
		item, err := models.UpdateItem(c.Request.Context(), id, &input)
		if err != nil {
			renderError(c, "updateItemHandler", err)
			return
		}
		ok(c, item)
	}
}

func toggleItemHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, valid := paramId(c)
		if !valid {
			return
		}
		var req toggleActiveRequest
		if !bindJSON(c, &req) {
			return
		}
		item, err := models.ToggleActiveItem(c.Request.Context(), id, *req.IsActive)
		if err != nil {
			renderError(c, "toggleItemHandler", err)
			return
		}
		ok(c, item)
	}
}

func stockLedgerHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, valid := paramId(c)
		if !valid {
			return
		}
		filter, valid := ledgerFilter(c)
		if !valid {
			return
		}
		statement, err := models.GetStockLedger(c.Request.Context(), id, filter)
		if err != nil {
			renderError(c, "stockLedgerHandler", err)
			return
		}
		ok(c, statement)
	}
}
