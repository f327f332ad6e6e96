package handlers

import (
	"bytes"
	"context"
	"fmt"

	"github.com/gin-gonic/gin"

	"bitbucket.org/mmdatafocus/tradebooks_backend/models"
	"bitbucket.org/mmdatafocus/tradebooks_backend/models/reports"
	"bitbucket.org/mmdatafocus/tradebooks_backend/utils"
)

// partyBook bundles the operations customers and suppliers share, so both get the same routes.
type partyBook[T any] struct {
	name     string
	create   func(context.Context, *models.NewParty) (*T, error)
	update   func(context.Context, int, *models.NewParty) (*T, error)
	remove   func(context.Context, int) (*T, error)
	toggle   func(context.Context, int, bool) (*T, error)
	get      func(context.Context, int) (*T, error)
	list     func(context.Context, models.PartyFilter) ([]*T, *models.PageInfo, error)
	ledger   func(context.Context, int, models.LedgerFilter) (*models.LedgerStatement, error)
	balances func(context.Context, bool) ([]*models.PartyBalance, error)
}

var customerBook = partyBook[models.Customer]{
	name:     "customer",
	create:   models.CreateCustomer,
	update:   models.UpdateCustomer,
	remove:   models.DeleteCustomer,
	toggle:   models.ToggleActiveCustomer,
	get:      models.GetCustomer,
	list:     models.ListCustomers,
	ledger:   models.GetCustomerLedger,
	balances: models.ListCustomerBalances,
}

var supplierBook = partyBook[models.Supplier]{
	name:     "supplier",
	create:   models.CreateSupplier,
	update:   models.UpdateSupplier,
	remove:   models.DeleteSupplier,
	toggle:   models.ToggleActiveSupplier,
	get:      models.GetSupplier,
	list:     models.ListSuppliers,
	ledger:   models.GetSupplierLedger,
	balances: models.ListSupplierBalances,
}

func (b partyBook[T]) register(g *gin.RouterGroup) {
	g.GET("", b.listHandler())
	g.POST("", b.createHandler())
	g.GET("/balances", b.balancesHandler())
	g.GET("/:id", b.getHandler())
	g.PUT("/:id", b.updateHandler())
	g.DELETE("/:id", b.deleteHandler())
	g.PUT("/:id/active", b.toggleHandler())
	g.GET("/:id/ledger", b.ledgerHandler())
	g.GET("/:id/ledger.xlsx", b.ledgerExportHandler())
}

func (b partyBook[T]) listHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var filter models.PartyFilter
		if !bindQuery(c, &filter) {
			return
		}
		results, info, err := b.list(c.Request.Context(), filter)
		if err != nil {
			renderError(c, b.name+".list", err)
			return
		}
		page(c, results, info)
	}
}

func (b partyBook[T]) createHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewParty
		if !bindJSON(c, &input) {
			return
		}
		createOnce(c, "create_"+b.name, func(ctx context.Context) (*T, error) {
			return b.create(ctx, &input)
		}, b.get)
	}
}

func (b partyBook[T]) getHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, valid := paramId(c)
		if !valid {
			return
		}
		result, err := b.get(c.Request.Context(), id)
		if err != nil {
			renderError(c, b.name+".get", err)
			return
		}
		ok(c, result)
	}
}

func (b partyBook[T]) updateHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, valid := paramId(c)
		if !valid {
			return
		}
		var input models.NewParty
		if !bindJSON(c, &input) {
			return
		}
		result, err := b.update(c.Request.Context(), id, &input)
		if err != nil {
			renderError(c, b.name+".update", err)
			return
		}
		ok(c, result)
	}
}

func (b partyBook[T]) deleteHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, valid := paramId(c)
		if !valid {
			return
		}
		result, err := b.remove(c.Request.Context(), id)
		if err != nil {
			renderError(c, b.name+".delete", err)
			return
		}
		ok(c, result)
	}
}

type toggleActiveRequest struct {
	IsActive *bool `json:"is_active" binding:"required"`
}

func (b partyBook[T]) toggleHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, valid := paramId(c)
		if !valid {
			return
		}
		var req toggleActiveRequest
		if !bindJSON(c, &req) {
			return
		}
		result, err := b.toggle(c.Request.Context(), id, *req.IsActive)
		if err != nil {
			renderError(c, b.name+".toggle", err)
			return
		}
		ok(c, result)
	}
}

func (b partyBook[T]) balancesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		includeInactive := queryBool(c, "include_inactive")
		results, err := b.balances(c.Request.Context(), includeInactive != nil && *includeInactive)
		if err != nil {
			renderError(c, b.name+".balances", err)
			return
		}
		ok(c, results)
	}
}

// ledgerFilter reads from, to, types (comma separated), page and limit.
func ledgerFilter(c *gin.Context) (models.LedgerFilter, bool) {
	from, to, valid := queryRange(c)
	if !valid {
		return models.LedgerFilter{}, false
	}
	types, err := models.ParseLedgerTransactionTypes(c.Query("types"))
	if err != nil {
		renderError(c, "ledgerFilter", utils.NewValidationError("types", err))
		return models.LedgerFilter{}, false
	}
	return models.LedgerFilter{From: from, To: to, Types: types, Page: queryPage(c)}, true
}

func (b partyBook[T]) ledgerHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, valid := paramId(c)
		if !valid {
			return
		}
		filter, valid := ledgerFilter(c)
		if !valid {
			return
		}
		statement, err := b.ledger(c.Request.Context(), id, filter)
		if err != nil {
			renderError(c, b.name+".ledger", err)
			return
		}
		ok(c, statement)
	}
}

func (b partyBook[T]) ledgerExportHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, valid := paramId(c)
		if !valid {
			return
		}
		filter, valid := ledgerFilter(c)
		if !valid {
			return
		}
		// the export carries every row of the range
		filter.Page = models.Page{All: true}
		statement, err := b.ledger(c.Request.Context(), id, filter)
		if err != nil {
			renderError(c, b.name+".ledgerExport", err)
			return
		}
		var buf bytes.Buffer
		if err := reports.WriteLedgerStatement(&buf, "Ledger", statement); err != nil {
			renderError(c, b.name+".ledgerExport", err)
			return
		}
		filename := fmt.Sprintf("%s-ledger-%s.xlsx", b.name, statement.PartyCode)
		sendExcel(c, filename, buf.Bytes())
	}
}
