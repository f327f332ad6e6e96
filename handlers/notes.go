package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"bitbucket.org/mmdatafocus/tradebooks_backend/models"
)

// noteBook holds the operations of one adjustment note kind.
type noteBook[T any] struct {
	name    string
	docType models.DocumentType
	create  func(context.Context, *models.NewNote) (*T, error)
	remove  func(context.Context, int) (*T, error)
	get     func(context.Context, int) (*T, error)
	list    func(context.Context, models.NoteFilter) ([]*T, *models.PageInfo, error)
	note    func(*T) *models.AdjustmentNote
}

var creditNoteBook = noteBook[models.CreditNote]{
	name:    "credit_note",
	docType: models.DocumentTypeCreditNote,
	create:  models.CreateCreditNote,
	remove:  models.DeleteCreditNote,
	get:     models.GetCreditNote,
	list:    models.ListCreditNotes,
	note:    func(n *models.CreditNote) *models.AdjustmentNote { return n.Note() },
}

var debitNoteBook = noteBook[models.DebitNote]{
	name:    "debit_note",
	docType: models.DocumentTypeDebitNote,
	create:  models.CreateDebitNote,
	remove:  models.DeleteDebitNote,
	get:     models.GetDebitNote,
	list:    models.ListDebitNotes,
	note:    func(n *models.DebitNote) *models.AdjustmentNote { return n.Note() },
}

func (b noteBook[T]) register(g *gin.RouterGroup, admin gin.HandlerFunc) {
	g.GET("", b.listHandler())
	g.POST("", b.createHandler())
	g.GET("/:id", b.getHandler())
	g.DELETE("/:id", admin, b.deleteHandler())
	g.PUT("/:id/irn", irnHandler(b.docType))
	g.GET("/:id/einvoice.json", einvoiceJSONHandler(b.docType))
	g.GET("/:id/einvoice.png", einvoicePNGHandler(b.docType))
}

func (b noteBook[T]) listHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		from, to, valid := queryRange(c)
		if !valid {
			return
		}
		filter := models.NoteFilter{
			From:            from,
			To:              to,
			CustomerId:      queryInt(c, "customer_id"),
			ReferenceBillNo: c.Query("reference_bill_no"),
			Page:            queryPage(c),
		}
		notes, info, err := b.list(c.Request.Context(), filter)
		if err != nil {
			renderError(c, b.name+".list", err)
			return
		}
		views, err := customerDocViews(c.Request.Context(), notes, func(n *T) int { return b.note(n).CustomerId })
		if err != nil {
			renderError(c, b.name+".list", err)
			return
		}
		page(c, views, info)
	}
}

func (b noteBook[T]) createHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewNote
		if !bindJSON(c, &input) {
			return
		}
		createOnce(c, "create_"+b.name, func(ctx context.Context) (*T, error) {
			return b.create(ctx, &input)
		}, b.get)
	}
}

func (b noteBook[T]) getHandler() gin.HandlerFunc {
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

func (b noteBook[T]) deleteHandler() gin.HandlerFunc {
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
