// Package validation provides request guards shared by the HTTP handlers.
package validation

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

// MaxRequestSize is the maximum request body size (1MB)
const MaxRequestSize = 1 << 20 // 1MB

// MaxRequestIDLength caps client-supplied X-Request-ID values.
const MaxRequestIDLength = 64

// RequestSizeMiddleware limits request body size
func RequestSizeMiddleware(maxSize int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxSize)
		c.Next()
	}
}

// SanitizeString removes dangerous characters and limits length
func SanitizeString(s string, maxLen int) string {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, "\x00", "")
	if len(s) > maxLen {
		s = s[:maxLen]
	}
	return s
}

// QueryLimit reads a positive ?limit= value. Missing, malformed, or
// out-of-range values fall back to def.
func QueryLimit(c *gin.Context, def, max int) int {
	raw := c.Query("limit")
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 || n > max {
		return def
	}
	return n
}
