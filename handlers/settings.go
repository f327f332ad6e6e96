package handlers

import (
	"github.com/gin-gonic/gin"

	"bitbucket.org/mmdatafocus/tradebooks_backend/models"
)

func getCompanySettingsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		settings, err := models.GetCompanySettings(c.Request.Context())
		if err != nil {
			renderError(c, "getCompanySettingsHandler", err)
			return
		}
		ok(c, settings)
	}
}

func updateCompanySettingsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewCompanySettings
		if !bindJSON(c, &input) {
			return
		}
		settings, err := models.UpdateCompanySettings(c.Request.Context(), &input)
		if err != nil {
			renderError(c, "updateCompanySettingsHandler", err)
			return
		}
		ok(c, settings)
	}
}

// listSeriesHandler returns the numbering series, each with the number the next document would get.
func listSeriesHandler() gin.HandlerFunc {
	type seriesView struct {
		*models.DocumentSequence
		NextNumber string `json:"next_number"`
	}
	return func(c *gin.Context) {
		var docType *models.DocumentType
		if v := c.Query("doc_type"); v != "" {
			t := models.DocumentType(v)
			docType = &t
		}
		sequences, err := models.ListDocumentSequences(c.Request.Context(), docType)
		if err != nil {
			renderError(c, "listSeriesHandler", err)
			return
		}
		views := make([]seriesView, 0, len(sequences))
		for _, s := range sequences {
			next, err := models.PeekNextNumber(c.Request.Context(), s.DocType, s.Prefix)
			if err != nil {
				renderError(c, "listSeriesHandler", err)
				return
			}
			views = append(views, seriesView{DocumentSequence: s, NextNumber: next})
		}
		ok(c, views)
	}
}

func upsertSeriesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewDocumentSequence
		if !bindJSON(c, &input) {
			return
		}
		sequence, err := models.UpsertDocumentSequence(c.Request.Context(), &input)
		if err != nil {
			renderError(c, "upsertSeriesHandler", err)
			return
		}
		ok(c, sequence)
	}
}
