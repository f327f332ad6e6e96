package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/gin-gonic/gin"

	"bitbucket.org/mmdatafocus/tradebooks_backend/config"
	"bitbucket.org/mmdatafocus/tradebooks_backend/handlers"
	"bitbucket.org/mmdatafocus/tradebooks_backend/models"
	"bitbucket.org/mmdatafocus/tradebooks_backend/utils"
)

type envelope struct {
	Data   json.RawMessage   `json:"data"`
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields"`
}

func newServer(t *testing.T) (*gin.Engine, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	conn, err := config.OpenSQLite("file:" + filepath.Join(t.TempDir(), "api.db") + "?_busy_timeout=5000")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	config.SetDB(conn)
	models.MigrateTable()
	t.Cleanup(func() {
		if sqlDB, err := conn.DB(); err == nil {
			_ = sqlDB.Close()
		}
		config.SetDB(nil)
	})

	ctx := utils.WithUser(context.Background(), 0, "test", "Test", string(models.UserRoleAdmin))
	if _, _, err := models.SeedAdmin(ctx, "admin", "Administrator", "secret123"); err != nil {
		t.Fatalf("SeedAdmin: %v", err)
	}

	r := handlers.NewRouter(config.GetLogger())
	w := do(t, r, http.MethodPost, "/api/auth/login", "", map[string]string{"username": "admin", "password": "secret123"})
	if w.Code != http.StatusOK {
		t.Fatalf("login status = %d: %s", w.Code, w.Body.String())
	}
	var info models.LoginInfo
	decodeData(t, w, &info)
	if info.Token == "" {
		t.Fatalf("empty token")
	}
	return r, info.Token
}

func do(t *testing.T, r http.Handler, method, path, token string, body interface{}, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder, out interface{}) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode %s: %v", w.Body.String(), err)
	}
	if out != nil {
		if err := json.Unmarshal(env.Data, out); err != nil {
			t.Fatalf("decode data %s: %v", env.Data, err)
		}
	}
	return env
}

func TestHealthzAndAuth(t *testing.T) {
	r, _ := newServer(t)

	if w := do(t, r, http.MethodGet, "/healthz", "", nil); w.Code != http.StatusNoContent {
		t.Fatalf("/healthz = %d", w.Code)
	}
	if w := do(t, r, http.MethodGet, "/api/sales", "", nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("no token = %d", w.Code)
	}
	if w := do(t, r, http.MethodGet, "/api/sales", "not-a-jwt", nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("bad token = %d", w.Code)
	}
	w := do(t, r, http.MethodPost, "/api/auth/login", "", map[string]string{"username": "admin", "password": "wrong-pass"})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("wrong password = %d", w.Code)
	}
	if w := do(t, r, http.MethodGet, "/api/nowhere", "", nil); w.Code != http.StatusNotFound {
		t.Fatalf("unknown route = %d", w.Code)
	}
}

func TestStaffCannotDelete(t *testing.T) {
	r, _ := newServer(t)
	staff, _, err := utils.JwtGenerate(99, "clerk", string(models.UserRoleStaff))
	if err != nil {
		t.Fatalf("JwtGenerate: %v", err)
	}
	if w := do(t, r, http.MethodDelete, "/api/sales/1", staff, nil); w.Code != http.StatusForbidden {
		t.Fatalf("staff delete = %d", w.Code)
	}
	if w := do(t, r, http.MethodGet, "/api/users", staff, nil); w.Code != http.StatusForbidden {
		t.Fatalf("staff users = %d", w.Code)
	}
}

func TestCreateSaleFlow(t *testing.T) {
	r, token := newServer(t)

	var customer models.Customer
	w := do(t, r, http.MethodPost, "/api/customers", token, map[string]interface{}{"name": "Sri Balaji Traders"})
	if w.Code != http.StatusCreated {
		t.Fatalf("create customer = %d: %s", w.Code, w.Body.String())
	}
	decodeData(t, w, &customer)

	var item models.Item
	w = do(t, r, http.MethodPost, "/api/items", token, map[string]interface{}{"name": "Jelly", "gst_rate": "5", "hsn_code": "2517"})
	if w.Code != http.StatusCreated {
		t.Fatalf("create item = %d: %s", w.Code, w.Body.String())
	}
	decodeData(t, w, &item)

	sale := map[string]interface{}{
		"customer_id": customer.ID,
		"item_id":     item.ID,
		"quantity":    "10",
		"rate":        "100",
		"sale_date":   "2026-03-02T00:00:00Z",
	}
	w = do(t, r, http.MethodPost, "/api/sales", token, sale, "Idempotency-Key", "sale-form-1")
	if w.Code != http.StatusCreated {
		t.Fatalf("create sale = %d: %s", w.Code, w.Body.String())
	}
	var first models.Sale
	decodeData(t, w, &first)
	if first.BillSerialNo != "001" || first.TotalAmount.String() != "1050" {
		t.Fatalf("sale = %s total %s", first.BillSerialNo, first.TotalAmount)
	}
	var key models.IdempotencyKey
	if err := config.GetDB().Where("scope = ? AND request_key = ?", "create_sale", "sale-form-1").First(&key).Error; err != nil {
		t.Fatalf("load idempotency key: %v", err)
	}
	if key.Status != models.IdempotencyStatusSucceeded || key.ResourceId != first.ID {
		t.Fatalf("idempotency key = %s resource %d, want SUCCEEDED %d", key.Status, key.ResourceId, first.ID)
	}

	// resubmitting the same form returns the first sale
	w = do(t, r, http.MethodPost, "/api/sales", token, sale, "Idempotency-Key", "sale-form-1")
	if w.Code != http.StatusOK || w.Header().Get("Idempotent-Replayed") != "true" {
		t.Fatalf("replay = %d replayed=%q", w.Code, w.Header().Get("Idempotent-Replayed"))
	}
	var replay models.Sale
	decodeData(t, w, &replay)
	if replay.ID != first.ID {
		t.Fatalf("replay id = %d, want %d", replay.ID, first.ID)
	}

	w = do(t, r, http.MethodGet, "/api/sales/bill/001", token, nil)
	var byBill models.Sale
	decodeData(t, w, &byBill)
	if w.Code != http.StatusOK || byBill.ID != first.ID {
		t.Fatalf("sale by bill = %d id %d", w.Code, byBill.ID)
	}

	if w := do(t, r, http.MethodGet, "/api/sales/9999", token, nil); w.Code != http.StatusNotFound {
		t.Fatalf("missing sale = %d", w.Code)
	}
	if w := do(t, r, http.MethodGet, "/api/sales/abc", token, nil); w.Code != http.StatusBadRequest {
		t.Fatalf("bad id = %d", w.Code)
	}

	w = do(t, r, http.MethodPost, "/api/sales", token, map[string]interface{}{"customer_id": customer.ID, "item_id": item.ID, "rate": "100"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("sale without quantity = %d: %s", w.Code, w.Body.String())
	}
	if env := decodeData(t, w, nil); env.Fields["quantity"] == "" {
		t.Fatalf("fields = %v", env.Fields)
	}

	if w := do(t, r, http.MethodGet, "/api/sales?from=02-03-2026", token, nil); w.Code != http.StatusBadRequest {
		t.Fatalf("bad date = %d", w.Code)
	}

	w = do(t, r, http.MethodGet, "/api/reports/gst.xlsx?from=2026-03-01&to=2026-03-31", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("gst export = %d: %s", w.Code, w.Body.String())
	}
	if cd := w.Header().Get("Content-Disposition"); cd != "attachment; filename=gst-report-2026-03-01-2026-03-31.xlsx" {
		t.Fatalf("Content-Disposition = %q", cd)
	}

	// customer with a posted sale cannot be removed
	if w := do(t, r, http.MethodDelete, "/api/customers/"+strconv.Itoa(customer.ID), token, nil); w.Code != http.StatusConflict {
		t.Fatalf("delete used customer = %d: %s", w.Code, w.Body.String())
	}
}
