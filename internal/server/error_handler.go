package server

import (
	"fmt"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/neo/personasim/internal/logging"
)

const requestIDKey = "RequestID"

// ErrorResponse represents a standardized error response
type ErrorResponse struct {
	Status     int       `json:"status"`
	Message    string    `json:"message"`
	Details    string    `json:"details,omitempty"`
	Path       string    `json:"path"`
	Timestamp  time.Time `json:"timestamp"`
	RequestID  string    `json:"request_id,omitempty"`
	DevMessage string    `json:"-"` // For logging only, not sent to client
}

func newErrorResponse(c *gin.Context, status int, message string) ErrorResponse {
	return ErrorResponse{
		Status:    status,
		Message:   message,
		Path:      c.Request.URL.Path,
		Timestamp: time.Now(),
		RequestID: c.GetString(requestIDKey),
	}
}

// ErrorHandler turns errors attached with c.Error into a JSON error body
func ErrorHandler(config Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		err := c.Errors.Last().Err
		status := c.Writer.Status()
		if status < 400 {
			status = http.StatusInternalServerError
		}

		resp := newErrorResponse(c, status, "An error occurred while processing your request")
		if config.isDevelopment() {
			resp.Details = err.Error()
		}

		logging.Error("Request failed", map[string]interface{}{
			"request_id": resp.RequestID,
			"path":       resp.Path,
			"status":     status,
			"error":      err.Error(),
		})

		c.JSON(status, gin.H{"error": resp})
	}
}

// RequestIDMiddleware adds a unique request ID to each request, reusing an
// incoming X-Request-ID header when present
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Set(requestIDKey, requestID)
		c.Header("X-Request-ID", requestID)
		c.Next()
	}
}

// LoggingMiddleware logs all requests
func LoggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		logging.LogHTTPRequest(c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start), map[string]interface{}{
			"request_id": c.GetString(requestIDKey),
			"client_ip":  c.ClientIP(),
		})
	}
}

// RecoveryMiddleware recovers from panics
func RecoveryMiddleware(config Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				stack := string(debug.Stack())
				logging.Error("Panic while handling request", map[string]interface{}{
					"request_id": c.GetString(requestIDKey),
					"path":       c.Request.URL.Path,
					"panic":      fmt.Sprintf("%v", err),
					"stack":      stack,
				})

				resp := newErrorResponse(c, http.StatusInternalServerError, "An unexpected error occurred")
				if config.isDevelopment() {
					resp.Details = fmt.Sprintf("%v", err)
					resp.DevMessage = stack
				}

				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": resp})
			}
		}()
		c.Next()
	}
}

// CORSMiddleware allows browser dashboards to read the API. An empty
// allowlist accepts any origin.
func CORSMiddleware(allowed []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		switch {
		case len(allowed) == 0:
			c.Header("Access-Control-Allow-Origin", "*")
		case originAllowed(origin, allowed):
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Vary", "Origin")
		}
		c.Header("Access-Control-Allow-Headers", "Content-Type, Accept, Origin, Cache-Control, X-Requested-With, X-Request-ID")
		c.Header("Access-Control-Allow-Methods", "GET, OPTIONS, HEAD")
		c.Header("Access-Control-Expose-Headers", "Content-Length, Content-Type, X-Request-ID")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

func originAllowed(origin string, allowed []string) bool {
	for _, a := range allowed {
		if strings.EqualFold(a, origin) {
			return true
		}
	}
	return false
}
