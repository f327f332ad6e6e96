package handlers

import (
	"net/http"
	"os"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"bitbucket.org/mmdatafocus/tradebooks_backend/config"
	"bitbucket.org/mmdatafocus/tradebooks_backend/middlewares"
	"bitbucket.org/mmdatafocus/tradebooks_backend/models"
	"bitbucket.org/mmdatafocus/tradebooks_backend/utils"
)

// NewRouter builds the gin engine. Until the database is connected every route except /healthz answers 503.
func NewRouter(logger *logrus.Logger) *gin.Engine {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("gstin", utils.ValidateGSTINField)
	}

	r := gin.New()
	r.Use(func(c *gin.Context) {
		cid := c.GetHeader("x-correlation-id")
		if cid == "" {
			cid = uuid.NewString()
		}
		c.Header("X-Correlation-Id", cid)
		c.Request = c.Request.WithContext(utils.SetCorrelationIdInContext(c.Request.Context(), cid))
		c.Next()
	})
	r.Use(func(c *gin.Context) {
		if c.Request.URL.Path == "/healthz" {
			c.Status(http.StatusNoContent)
			c.Abort()
			return
		}
		if config.GetDB() == nil {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "service starting"})
			return
		}
		c.Next()
	})
	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	r.Use(cors.New(corsConfig()))
	if config.RateLimitEnabled() {
		limit, window := config.RateLimitSettings()
		r.Use(middlewares.NewRateLimiter(config.GetRedisDB, limit, window).RateLimitMiddleware)
	}
	r.Use(middlewares.TracingMiddleware())
	r.Use(customErrorLogger(logger))
	r.Use(gin.Recovery())
	r.Use(middlewares.LoaderMiddleware())

	api := r.Group("/api")
	api.POST("/auth/login", loginHandler())

	api.Use(middlewares.AuthMiddleware())
	admin := middlewares.AdminOnly()

	auth := api.Group("/auth")
	auth.GET("/me", meHandler())
	auth.POST("/logout", logoutHandler())
	auth.PUT("/password", changePasswordHandler())

	users := api.Group("/users", admin)
	users.GET("", listUsersHandler())
	users.POST("", createUserHandler())
	users.PUT("/:id", updateUserHandler())

	customerBook.register(api.Group("/customers"))
	supplierBook.register(api.Group("/suppliers"))

	items := api.Group("/items")
	items.GET("", listItemsHandler())
	items.POST("", createItemHandler())
	items.GET("/:id", getItemHandler())
	items.PUT("/:id", updateItemHandler())
	items.PUT("/:id/active", toggleItemHandler())
	items.GET("/:id/stock-ledger", stockLedgerHandler())

	entries := api.Group("/outward-entries")
	entries.GET("", listOutwardEntriesHandler())
	entries.POST("", createOutwardEntryHandler())
	entries.GET("/:id", getOutwardEntryHandler())
	entries.PUT("/:id", updateOutwardEntryHandler())
	entries.POST("/:id/load-weight", loadWeightHandler())
	entries.DELETE("/:id", admin, deleteOutwardEntryHandler())

	sales := api.Group("/sales")
	sales.GET("", listSalesHandler())
	sales.POST("", createSaleHandler())
	sales.GET("/:id", getSaleHandler())
	sales.GET("/bill/:billNo", getSaleByBillHandler())
	sales.PUT("/:id", updateSaleHandler())
	sales.DELETE("/:id", admin, deleteSaleHandler())
	sales.PUT("/:id/irn", irnHandler(models.DocumentTypeSale))
	sales.GET("/:id/einvoice.json", einvoiceJSONHandler(models.DocumentTypeSale))
	sales.GET("/:id/einvoice.png", einvoicePNGHandler(models.DocumentTypeSale))

	receipts := api.Group("/receipts")
	receipts.GET("", listReceiptsHandler())
	receipts.POST("", createReceiptHandler())
	receipts.GET("/:id", getReceiptHandler())
	receipts.DELETE("/:id", admin, deleteReceiptHandler())

	creditNoteBook.register(api.Group("/credit-notes"), admin)
	debitNoteBook.register(api.Group("/debit-notes"), admin)

	purchases := api.Group("/purchases")
	purchases.GET("", listPurchasesHandler())
	purchases.POST("", createPurchaseHandler())
	purchases.GET("/:id", getPurchaseHandler())

	payments := api.Group("/supplier-payments")
	payments.GET("", listSupplierPaymentsHandler())
	payments.POST("", createSupplierPaymentHandler())

	reports := api.Group("/reports")
	reports.GET("/gst", gstReportHandler())
	reports.GET("/gst.xlsx", gstReportExcelHandler())
	reports.GET("/transit", transitReportHandler())
	reports.GET("/transit.xlsx", transitReportExcelHandler())
	reports.GET("/ledger-check", ledgerCheckHandler())

	settings := api.Group("/settings")
	settings.GET("/company", getCompanySettingsHandler())
	settings.PUT("/company", admin, updateCompanySettingsHandler())
	settings.GET("/series", listSeriesHandler())
	settings.PUT("/series", admin, upsertSeriesHandler())

	api.POST("/uploads/photo", uploadPhotoHandler())
	api.GET("/histories", admin, listHistoriesHandler())

	ops := api.Group("/ops", admin)
	ops.GET("/outbox", outboxStatusHandler())
	ops.POST("/outbox/requeue", outboxRequeueHandler())

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	})
	return r
}

// corsConfig requires an explicit CORS_ALLOWED_ORIGINS list in production and allows all origins elsewhere.
func corsConfig() cors.Config {
	cfg := cors.DefaultConfig()
	allowedOrigins := strings.TrimSpace(os.Getenv("CORS_ALLOWED_ORIGINS"))
	if strings.EqualFold(strings.TrimSpace(os.Getenv("GO_ENV")), "production") {
		cfg.AllowOrigins = config.SplitCSV(allowedOrigins)
		if len(cfg.AllowOrigins) == 0 {
			// cors.New panics on an empty config; a placeholder origin denies everyone
			cfg.AllowOrigins = []string{"https://invalid.localhost"}
		}
	} else {
		cfg.AllowAllOrigins = true
	}
	cfg.AddAllowMethods("GET", "POST", "PUT", "DELETE", "OPTIONS")
	cfg.AddAllowHeaders("Origin", "Content-Type", "Authorization", "Idempotency-Key", "X-Correlation-Id")
	cfg.AddExposeHeaders("Content-Length", "Content-Disposition", "Idempotent-Replayed", "X-Correlation-Id")
	cfg.AllowCredentials = !cfg.AllowAllOrigins
	return cfg
}

// customErrorLogger logs only requests that attached errors.
func customErrorLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		if len(c.Errors) > 0 {
			logger.WithFields(logrus.Fields{
				"method": c.Request.Method,
				"path":   c.FullPath(),
				"status": c.Writer.Status(),
			}).Error(c.Errors.String())
		}
	}
}
