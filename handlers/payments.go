package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"bitbucket.org/mmdatafocus/tradebooks_backend/models"
)

func paymentFilter(c *gin.Context, partyKey string) (models.PaymentFilter, bool) {
	from, to, valid := queryRange(c)
	if !valid {
		return models.PaymentFilter{}, false
	}
	return models.PaymentFilter{From: from, To: to, PartyId: queryInt(c, partyKey), Page: queryPage(c)}, true
}

func listReceiptsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		filter, valid := paymentFilter(c, "customer_id")
		if !valid {
			return
		}
		receipts, info, err := models.ListReceipts(c.Request.Context(), filter)
		if err != nil {
			renderError(c, "listReceiptsHandler", err)
			return
		}
		views, err := customerDocViews(c.Request.Context(), receipts, func(r *models.Receipt) int { return r.CustomerId })
		if err != nil {
			renderError(c, "listReceiptsHandler", err)
			return
		}
		page(c, views, info)
	}
}

func createReceiptHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewReceipt
		if !bindJSON(c, &input) {
			return
		}
		createOnce(c, "create_receipt", func(ctx context.Context) (*models.Receipt, error) {
			return models.CreateReceipt(ctx, &input)
		}, models.GetReceipt)
	}
}

func getReceiptHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, valid := paramId(c)
		if !valid {
			return
		}
		receipt, err := models.GetReceipt(c.Request.Context(), id)
		if err != nil {
			renderError(c, "getReceiptHandler", err)
			return
		}
		ok(c, receipt)
	}
}

func deleteReceiptHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, valid := paramId(c)
		if !valid {
			return
		}
		receipt, err := models.DeleteReceipt(c.Request.Context(), id)
		if err != nil {
			renderError(c, "deleteReceiptHandler", err)
			return
		}
		ok(c, receipt)
	}
}

func listPurchasesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		filter, valid := paymentFilter(c, "supplier_id")
		if !valid {
			return
		}
		purchases, info, err := models.ListPurchases(c.Request.Context(), filter)
		if err != nil {
			renderError(c, "listPurchasesHandler", err)
			return
		}
		views, err := supplierDocViews(c.Request.Context(), purchases, func(p *models.Purchase) int { return p.SupplierId })
		if err != nil {
			renderError(c, "listPurchasesHandler", err)
			return
		}
		page(c, views, info)
	}
}

func createPurchaseHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewPurchase
		if !bindJSON(c, &input) {
			return
		}
		createOnce(c, "create_purchase", func(ctx context.Context) (*models.Purchase, error) {
			return models.CreatePurchase(ctx, &input)
		}, models.GetPurchase)
	}
}

func getPurchaseHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, valid := paramId(c)
		if !valid {
			return
		}
		purchase, err := models.GetPurchase(c.Request.Context(), id)
		if err != nil {
			renderError(c, "getPurchaseHandler", err)
			return
		}
		ok(c, purchase)
	}
}

func listSupplierPaymentsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		filter, valid := paymentFilter(c, "supplier_id")
		if !valid {
			return
		}
		payments, info, err := models.ListSupplierPayments(c.Request.Context(), filter)
		if err != nil {
			renderError(c, "listSupplierPaymentsHandler", err)
			return
		}
		views, err := supplierDocViews(c.Request.Context(), payments, func(p *models.SupplierPayment) int { return p.SupplierId })
		if err != nil {
			renderError(c, "listSupplierPaymentsHandler", err)
			return
		}
		page(c, views, info)
	}
}

func createSupplierPaymentHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewSupplierPayment
		if !bindJSON(c, &input) {
			return
		}
		createOnce(c, "create_supplier_payment", func(ctx context.Context) (*models.SupplierPayment, error) {
			return models.CreateSupplierPayment(ctx, &input)
		}, models.GetSupplierPayment)
	}
}
