package handlers

import (
	"github.com/gin-gonic/gin"

	"bitbucket.org/mmdatafocus/tradebooks_backend/models"
)

func outboxStatusHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		counts, err := models.GetOutboxStatusCounts(c.Request.Context())
		if err != nil {
			renderError(c, "outboxStatusHandler", err)
			return
		}
		ok(c, counts)
	}
}

// outboxRequeueHandler moves DEAD ledger events back to PENDING.
func outboxRequeueHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		n, err := models.RequeueDeadEvents(c.Request.Context())
		if err != nil {
			renderError(c, "outboxRequeueHandler", err)
			return
		}
		ok(c, gin.H{"requeued": n})
	}
}

func listHistoriesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		histories, info, err := models.GetHistories(c.Request.Context(),
			c.Query("reference_type"), queryInt(c, "reference_id"), queryPage(c))
		if err != nil {
			renderError(c, "listHistoriesHandler", err)
			return
		}
		page(c, histories, info)
	}
}
