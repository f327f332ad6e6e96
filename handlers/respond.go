package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"bitbucket.org/mmdatafocus/tradebooks_backend/config"
	"bitbucket.org/mmdatafocus/tradebooks_backend/models"
	"bitbucket.org/mmdatafocus/tradebooks_backend/models/reports"
	"bitbucket.org/mmdatafocus/tradebooks_backend/utils"
)

func ok(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, gin.H{"data": data})
}

func created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, gin.H{"data": data})
}

func page(c *gin.Context, data interface{}, info *models.PageInfo) {
	c.JSON(http.StatusOK, gin.H{"data": data, "page_info": info})
}

// statusOf maps domain errors to HTTP status codes. Unknown errors are 500.
func statusOf(err error) int {
	var ve *utils.ValidationError
	switch {
	case errors.As(err, &ve):
		return http.StatusBadRequest
	case errors.Is(err, utils.ErrorRecordNotFound):
		return http.StatusNotFound
	case errors.Is(err, utils.ErrAdminOnly):
		return http.StatusForbidden
	case errors.Is(err, models.ErrInvalidLogin):
		return http.StatusUnauthorized
	case errors.Is(err, utils.ErrRequestInProgress),
		errors.Is(err, utils.ErrDuplicateRequest),
		errors.Is(err, utils.ErrPartyInUse),
		errors.Is(err, utils.ErrEntryAlreadyBilled),
		utils.IsDuplicateKeyErr(err):
		return http.StatusConflict
	case errors.Is(err, utils.ErrInvalidWeight),
		errors.Is(err, utils.ErrEmptyWeightRequired),
		errors.Is(err, utils.ErrEntryNotCompleted),
		errors.Is(err, utils.ErrInactiveParty),
		errors.Is(err, utils.ErrReferenceBill):
		return http.StatusBadRequest
	case errors.Is(err, utils.ErrLockBusy):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// renderError writes the error envelope. Server errors are logged and attached to the gin context
// so customErrorLogger sees them; their message is hidden in production.
func renderError(c *gin.Context, funcName string, err error) {
	status := statusOf(err)
	body := gin.H{"error": err.Error()}

	var ve *utils.ValidationError
	if errors.As(err, &ve) && ve.Field != "" {
		body["fields"] = map[string]string{ve.Field: ve.Err.Error()}
	}
	if status == http.StatusInternalServerError {
		_ = c.Error(err)
		config.LogError(config.GetLogger(), "Handlers", funcName, c.Request.Method+" "+c.FullPath(), c.Params, err)
		if strings.EqualFold(strings.TrimSpace(os.Getenv("GO_ENV")), "production") {
			body["error"] = "internal server error"
		}
	}
	c.AbortWithStatusJSON(status, body)
}

// bindJSON binds the body and answers 400 with per-field messages on failure.
func bindJSON(c *gin.Context, obj interface{}) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, gin.H{"error": fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit)})
			return false
		}
		body := gin.H{"error": "invalid request"}
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			body["fields"] = utils.ProcessValidationErrors(err)
		} else {
			body["error"] = "invalid request: " + err.Error()
		}
		c.AbortWithStatusJSON(http.StatusBadRequest, body)
		return false
	}
	return true
}

func bindQuery(c *gin.Context, obj interface{}) bool {
	if err := c.ShouldBindQuery(obj); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid query: " + err.Error()})
		return false
	}
	return true
}

// sendExcel streams an xlsx attachment.
func sendExcel(c *gin.Context, filename string, data []byte) {
	c.Header("Content-Disposition", "attachment; filename="+filename)
	c.Data(http.StatusOK, reports.ExcelContentType, data)
}

func paramId(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return id, true
}

func queryInt(c *gin.Context, key string) int {
	v, _ := strconv.Atoi(strings.TrimSpace(c.Query(key)))
	return v
}

func queryBool(c *gin.Context, key string) *bool {
	v := strings.TrimSpace(c.Query(key))
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return nil
	}
	return &b
}

// queryDate reads a yyyy-mm-dd query parameter; an empty value is nil.
func queryDate(c *gin.Context, key string) (*time.Time, bool) {
	v := strings.TrimSpace(c.Query(key))
	if v == "" {
		return nil, true
	}
	t, err := utils.ParseDate(v)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":  "invalid date",
			"fields": map[string]string{key: "must be yyyy-mm-dd"},
		})
		return nil, false
	}
	return &t, true
}

func queryRange(c *gin.Context) (from *time.Time, to *time.Time, valid bool) {
	if from, valid = queryDate(c, "from"); !valid {
		return
	}
	to, valid = queryDate(c, "to")
	return
}

func queryPage(c *gin.Context) models.Page {
	return models.Page{Page: queryInt(c, "page"), Limit: queryInt(c, "limit")}
}
