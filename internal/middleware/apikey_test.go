package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func apiKeyRouter(key string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/guarded", RequireAPIKey(key), func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	return r
}

func TestRequireAPIKey(t *testing.T) {
	r := apiKeyRouter("secret")

	cases := []struct {
		name   string
		target string
		header string
		want   int
	}{
		{"header match", "/guarded", "secret", http.StatusOK},
		{"query match", "/guarded?api_key=secret", "", http.StatusOK},
		{"wrong key", "/guarded", "nope", http.StatusUnauthorized},
		{"no key", "/guarded", "", http.StatusUnauthorized},
		{"header wins over query", "/guarded?api_key=secret", "nope", http.StatusUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tc.target, nil)
			if tc.header != "" {
				req.Header.Set("X-API-Key", tc.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			if w.Code != tc.want {
				t.Errorf("status = %d, want %d", w.Code, tc.want)
			}
		})
	}
}

func TestRequireAPIKeyEmptyConfiguredKeyRejectsAll(t *testing.T) {
	r := apiKeyRouter("")

	req := httptest.NewRequest(http.MethodGet, "/guarded", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401 when no key is configured", w.Code)
	}
}
