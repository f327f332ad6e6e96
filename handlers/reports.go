package handlers

import (
	"bytes"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"

	"bitbucket.org/mmdatafocus/tradebooks_backend/models"
	"bitbucket.org/mmdatafocus/tradebooks_backend/models/reports"
	"bitbucket.org/mmdatafocus/tradebooks_backend/utils"
)

func gstReportFilter(c *gin.Context) (reports.GSTReportFilter, bool) {
	from, to, valid := queryRange(c)
	if !valid {
		return reports.GSTReportFilter{}, false
	}
	exclude := queryBool(c, "excludeDSeries")
	return reports.GSTReportFilter{From: from, To: to, ExcludeDSeries: exclude != nil && *exclude}, true
}

func reportFilename(name string, from, to *time.Time) string {
	if from == nil && to == nil {
		return name + ".xlsx"
	}
	return fmt.Sprintf("%s-%s-%s.xlsx", name, formatDate(from), formatDate(to))
}

func formatDate(t *time.Time) string {
	if t == nil {
		return "all"
	}
	return t.Format(utils.DateLayout)
}

func gstReportHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		filter, valid := gstReportFilter(c)
		if !valid {
			return
		}
		report, err := reports.GetGSTReport(c.Request.Context(), filter)
		if err != nil {
			renderError(c, "gstReportHandler", err)
			return
		}
		ok(c, report)
	}
}

func gstReportExcelHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		filter, valid := gstReportFilter(c)
		if !valid {
			return
		}
		report, err := reports.GetGSTReport(c.Request.Context(), filter)
		if err != nil {
			renderError(c, "gstReportExcelHandler", err)
			return
		}
		var buf bytes.Buffer
		if err := reports.WriteGSTReport(&buf, report); err != nil {
			renderError(c, "gstReportExcelHandler", err)
			return
		}
		sendExcel(c, reportFilename("gst-report", filter.From, filter.To), buf.Bytes())
	}
}

func transitReportHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		from, to, valid := queryRange(c)
		if !valid {
			return
		}
		rows, err := reports.GetTransitReport(c.Request.Context(), reports.TransitReportFilter{From: from, To: to})
		if err != nil {
			renderError(c, "transitReportHandler", err)
			return
		}
		ok(c, rows)
	}
}

func transitReportExcelHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		from, to, valid := queryRange(c)
		if !valid {
			return
		}
		rows, err := reports.GetTransitReport(c.Request.Context(), reports.TransitReportFilter{From: from, To: to})
		if err != nil {
			renderError(c, "transitReportExcelHandler", err)
			return
		}
		var buf bytes.Buffer
		if err := reports.WriteTransitReport(&buf, rows); err != nil {
			renderError(c, "transitReportExcelHandler", err)
			return
		}
		sendExcel(c, reportFilename("transit-report", from, to), buf.Bytes())
	}
}

func ledgerCheckHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		report, err := models.CheckLedgerConsistency(c.Request.Context())
		if err != nil {
			renderError(c, "ledgerCheckHandler", err)
			return
		}
		ok(c, report)
	}
}
