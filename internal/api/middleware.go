package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/law-makers/weeklyad/internal/reqctx"
)

// CORSMiddleware allows the listed origins. "*" allows any origin without
// credentials; entries ending in "*" match by prefix.
func CORSMiddleware(allowedOrigins []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")

		if allowed, wildcard := isAllowedOrigin(origin, allowedOrigins); allowed {
			h := c.Writer.Header()
			if wildcard {
				h.Set("Access-Control-Allow-Origin", "*")
			} else {
				h.Set("Access-Control-Allow-Origin", origin)
				h.Set("Access-Control-Allow-Credentials", "true")
				h.Add("Vary", "Origin")
			}
			h.Set("Access-Control-Allow-Methods", "GET, OPTIONS")
			h.Set("Access-Control-Allow-Headers", "*")
			h.Set("Access-Control-Max-Age", "3600")
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// isAllowedOrigin reports whether origin may call the API and whether it was
// admitted by a bare "*".
func isAllowedOrigin(origin string, allowedOrigins []string) (allowed, wildcard bool) {
	for _, a := range allowedOrigins {
		switch {
		case a == "*":
			return true, true
		case origin == "":
			continue
		case strings.HasSuffix(a, "*"):
			if strings.HasPrefix(origin, strings.TrimSuffix(a, "*")) {
				return true, false
			}
		case origin == a:
			return true, false
		}
	}
	return false, false
}

// RequestIDMiddleware tags the request context with the caller's request id
// or a fresh one, and echoes it back.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := reqctx.WithRequestContext(c.Request.Context(), c.GetHeader(reqctx.Header))
		c.Request = c.Request.WithContext(ctx)
		c.Header(reqctx.Header, reqctx.GetRequestContext(ctx).RequestID)
		c.Next()
	}
}

// LoggerMiddleware writes one zerolog event per request.
func LoggerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger := reqctx.Logger(c.Request.Context())
		status := c.Writer.Status()

		var ev *zerolog.Event
		switch {
		case status >= 500:
			ev = logger.Error()
		case status >= 400:
			ev = logger.Warn()
		default:
			ev = logger.Debug()
		}
		if len(c.Errors) > 0 {
			ev = ev.Str("errors", c.Errors.String())
		}
		ev.Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Str("query", c.Request.URL.RawQuery).
			Int("status", status).
			Int("bytes", c.Writer.Size()).
			Dur("duration", time.Since(start)).
			Msg("Request served")
	}
}

// RecoveryMiddleware turns handler panics into a 500 with a detail body.
func RecoveryMiddleware() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		logger := reqctx.Logger(c.Request.Context())
		logger.Error().Interface("panic", recovered).Str("path", c.Request.URL.Path).Msg("Handler panicked")
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error."})
	})
}
