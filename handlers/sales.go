package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"bitbucket.org/mmdatafocus/tradebooks_backend/models"
)

type irnRequest struct {
	Irn string `json:"irn"`
}

func listSalesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		from, to, valid := queryRange(c)
		if !valid {
			return
		}
		filter := models.SaleFilter{
			From:       from,
			To:         to,
			CustomerId: queryInt(c, "customer_id"),
			Search:     c.Query("search"),
			Page:       queryPage(c),
		}
		if series, exists := c.GetQuery("series"); exists {
			series = strings.TrimSpace(series)
			filter.Series = &series
		}
		sales, info, err := models.ListSales(c.Request.Context(), filter)
		if err != nil {
			renderError(c, "listSalesHandler", err)
			return
		}
		views, err := saleViews(c.Request.Context(), sales)
		if err != nil {
			renderError(c, "listSalesHandler", err)
			return
		}
		page(c, views, info)
	}
}

func createSaleHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewSale
		if !bindJSON(c, &input) {
			return
		}
		createOnce(c, "create_sale", func(ctx context.Context) (*models.Sale, error) {
			return models.CreateSale(ctx, &input)
		}, models.GetSale)
	}
}

func getSaleHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, valid := paramId(c)
		if !valid {
			return
		}
		sale, err := models.GetSale(c.Request.Context(), id)
		if err != nil {
			renderError(c, "getSaleHandler", err)
			return
		}
		ok(c, sale)
	}
}

// getSaleByBillHandler looks a sale up by its printed bill number.
func getSaleByBillHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		sale, err := models.GetSaleByBillNo(c.Request.Context(), strings.ToUpper(strings.TrimSpace(c.Param("billNo"))))
		if err != nil {
			renderError(c, "getSaleByBillHandler", err)
			return
		}
		ok(c, sale)
	}
}

func updateSaleHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, valid := paramId(c)
		if !valid {
			return
		}
		var input models.NewSale
		if !bindJSON(c, &input) {
			return
		}
		sale, err := models.UpdateSale(c.Request.Context(), id, &input)
		if err != nil {
			renderError(c, "updateSaleHandler", err)
			return
		}
		ok(c, sale)
	}
}

func deleteSaleHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, valid := paramId(c)
		if !valid {
			return
		}
		result, err := models.DeleteSale(c.Request.Context(), id)
		if err != nil {
			renderError(c, "deleteSaleHandler", err)
			return
		}
		ok(c, result)
	}
}

// Handlers shared by sales, credit notes and debit notes.

func irnHandler(docType models.DocumentType) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, valid := paramId(c)
		if !valid {
			return
		}
		var req irnRequest
		if !bindJSON(c, &req) {
			return
		}
		if err := models.UpdateDocumentIRN(c.Request.Context(), docType, id, req.Irn); err != nil {
			renderError(c, "irnHandler", err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func einvoiceJSONHandler(docType models.DocumentType) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, valid := paramId(c)
		if !valid {
			return
		}
		payload, err := models.BuildEInvoicePayload(c.Request.Context(), docType, id)
		if err != nil {
			renderError(c, "einvoiceJSONHandler", err)
			return
		}
		data, err := json.MarshalIndent(payload, "", "  ")
		if err != nil {
			renderError(c, "einvoiceJSONHandler", err)
			return
		}
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=einvoice-%s.json", payload.DocDtls.No))
		c.Data(http.StatusOK, "application/json", data)
	}
}

func einvoicePNGHandler(docType models.DocumentType) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, valid := paramId(c)
		if !valid {
			return
		}
		size := queryInt(c, "size")
		if size <= 0 || size > 1024 {
			size = 256
		}
		png, err := models.EInvoiceQRCode(c.Request.Context(), docType, id, size)
		if err != nil {
			renderError(c, "einvoicePNGHandler", err)
			return
		}
		c.Data(http.StatusOK, "image/png", png)
	}
}
