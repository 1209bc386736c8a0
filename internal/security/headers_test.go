package security

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestHeadersMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(HeadersMiddleware())
	router.POST("/predict_fraud", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "success"})
	})

	req := httptest.NewRequest("POST", "/predict_fraud", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	headers := map[string]string{
		"X-Content-Type-Options":  "nosniff",
		"X-Frame-Options":         "DENY",
		"Referrer-Policy":         "no-referrer",
		"Content-Security-Policy": "default-src 'none'; frame-ancestors 'none'",
		"Cache-Control":           "no-store",
	}

	for header, expected := range headers {
		if got := w.Header().Get(header); got != expected {
			t.Errorf("%s = %q, want %q", header, got, expected)
		}
	}
}

func TestHeadersMiddleware_ErrorResponses(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(HeadersMiddleware())

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/missing", nil))

	if w.Code != 404 {
		t.Fatalf("expected 404, got %d", w.Code)
	}
	if got := w.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("headers should be set on unmatched routes, got %q", got)
	}
}
