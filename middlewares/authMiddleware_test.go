package middlewares_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"bitbucket.org/mmdatafocus/tradebooks_backend/middlewares"
	"bitbucket.org/mmdatafocus/tradebooks_backend/utils"
)

func newEngine(handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handlers = append(handlers, func(c *gin.Context) {
		username, _ := utils.GetUsernameFromContext(c.Request.Context())
		c.String(http.StatusOK, username)
	})
	r.GET("/protected", handlers...)
	return r
}

func get(r http.Handler, authorization string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware(t *testing.T) {
	r := newEngine(middlewares.AuthMiddleware())
	token, _, err := utils.JwtGenerate(3, "weighbridge", "staff")
	if err != nil {
		t.Fatalf("JwtGenerate: %v", err)
	}

	cases := []struct {
		name   string
		header string
		want   int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"not bearer", "Basic abc", http.StatusUnauthorized},
		{"garbage token", "Bearer abc.def.ghi", http.StatusUnauthorized},
		{"valid token", "Bearer " + token, http.StatusOK},
		{"lower case scheme", "bearer " + token, http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := get(r, tc.header)
			if w.Code != tc.want {
				t.Fatalf("status = %d, want %d", w.Code, tc.want)
			}
			if tc.want == http.StatusOK && w.Body.String() != "weighbridge" {
				t.Fatalf("username in context = %q", w.Body.String())
			}
		})
	}
}

func TestAdminOnly(t *testing.T) {
	r := newEngine(middlewares.AuthMiddleware(), middlewares.AdminOnly())

	staff, _, _ := utils.JwtGenerate(3, "clerk", "staff")
	if w := get(r, "Bearer "+staff); w.Code != http.StatusForbidden {
		t.Fatalf("staff = %d, want 403", w.Code)
	}
	admin, _, _ := utils.JwtGenerate(1, "owner", "admin")
	if w := get(r, "Bearer "+admin); w.Code != http.StatusOK {
		t.Fatalf("admin = %d, want 200", w.Code)
	}
}

func TestRateLimiterWithoutRedis(t *testing.T) {
	rl := middlewares.NewRateLimiter(func() *redis.Client { return nil }, 1, time.Minute)
	r := newEngine(rl.RateLimitMiddleware)
	for i := 0; i < 3; i++ {
		if w := get(r, ""); w.Code != http.StatusOK {
			t.Fatalf("request %d = %d", i, w.Code)
		}
	}
}
