package server

import (
	"bytes"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/neo/personasim/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)

	testCases := []struct {
		name           string
		setupRouter    func(*gin.Engine)
		expectedStatus int
		expectedError  bool
		env            string
	}{
		{
			name: "No error",
			setupRouter: func(r *gin.Engine) {
				r.GET("/test", func(c *gin.Context) {
					c.JSON(http.StatusOK, gin.H{"status": "ok"})
				})
			},
			expectedStatus: http.StatusOK,
			expectedError:  false,
			env:            "production",
		},
		{
			name: "With error",
			setupRouter: func(r *gin.Engine) {
				r.GET("/test", func(c *gin.Context) {
					c.Error(errors.New("test error"))
					c.Status(http.StatusInternalServerError)
				})
			},
			expectedStatus: http.StatusInternalServerError,
			expectedError:  true,
			env:            "production",
		},
		{
			name: "With error in development mode",
			setupRouter: func(r *gin.Engine) {
				r.GET("/test", func(c *gin.Context) {
					c.Error(errors.New("test error"))
					c.Status(http.StatusInternalServerError)
				})
			},
			expectedStatus: http.StatusInternalServerError,
			expectedError:  true,
			env:            "development",
		},
		{
			name: "Error without status defaults to 500",
			setupRouter: func(r *gin.Engine) {
				r.GET("/test", func(c *gin.Context) {
					c.Error(errors.New("test error"))
				})
			},
			expectedStatus: http.StatusInternalServerError,
			expectedError:  true,
			env:            "production",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			router := gin.New()
			router.Use(RequestIDMiddleware())
			router.Use(ErrorHandler(Config{Env: tc.env}))
			tc.setupRouter(router)

			req, err := http.NewRequest("GET", "/test", nil)
			require.NoError(t, err)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tc.expectedStatus, w.Code)
			if tc.expectedError {
				assert.Contains(t, w.Body.String(), "error")
				if tc.env == "development" {
					assert.Contains(t, w.Body.String(), "details")
					assert.Contains(t, w.Body.String(), "test error")
				} else {
					assert.NotContains(t, w.Body.String(), "test error")
				}
			} else {
				assert.Contains(t, w.Body.String(), "ok")
			}
			assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
		})
	}
}

func TestRecoveryMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	testCases := []struct {
		name           string
		path           string
		expectedStatus int
		env            string
	}{
		{
			name:           "No panic",
			path:           "/no-panic",
			expectedStatus: http.StatusNotFound,
			env:            "production",
		},
		{
			name:           "With panic",
			path:           "/panic",
			expectedStatus: http.StatusInternalServerError,
			env:            "production",
		},
		{
			name:           "With panic in development mode",
			path:           "/panic",
			expectedStatus: http.StatusInternalServerError,
			env:            "development",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			router := gin.New()
			router.Use(RequestIDMiddleware())
			router.Use(RecoveryMiddleware(Config{Env: tc.env}))
			router.GET("/panic", func(c *gin.Context) {
				panic("test panic")
			})

			req, err := http.NewRequest("GET", tc.path, nil)
			require.NoError(t, err)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tc.expectedStatus, w.Code)
			assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

			if tc.path == "/panic" {
				assert.Contains(t, w.Body.String(), "error")
				if tc.env == "development" {
					assert.Contains(t, w.Body.String(), "details")
					assert.Contains(t, w.Body.String(), "test panic")
				}
			}
		})
	}
}

func TestRequestIDReusesIncomingHeader(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(RequestIDMiddleware())
	router.GET("/test", func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(requestIDKey))
	})

	req, err := http.NewRequest("GET", "/test", nil)
	require.NoError(t, err)
	req.Header.Set("X-Request-ID", "abc-123")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, "abc-123", w.Header().Get("X-Request-ID"))
	assert.Equal(t, "abc-123", w.Body.String())
}

func TestLoggingMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var buf bytes.Buffer
	logger, err := logging.NewLogger(logging.Config{Level: logging.DEBUG, Output: &buf})
	require.NoError(t, err)
	prev := logging.GetDefaultLogger()
	logging.SetDefaultLogger(logger)
	t.Cleanup(func() { logging.SetDefaultLogger(prev) })

	router := gin.New()
	router.Use(RequestIDMiddleware())
	router.Use(LoggingMiddleware())
	router.GET("/test", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	req, err := http.NewRequest("GET", "/test", nil)
	require.NoError(t, err)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
	assert.Contains(t, buf.String(), "/test")
}

func TestCORSMiddlewareAllowlist(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(CORSMiddleware([]string{"https://dash.example.com"}))
	router.GET("/test", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	tests := []struct {
		origin string
		want   string
	}{
		{"https://dash.example.com", "https://dash.example.com"},
		{"https://evil.example.com", ""},
	}

	for _, tt := range tests {
		req, err := http.NewRequest("GET", "/test", nil)
		require.NoError(t, err)
		req.Header.Set("Origin", tt.origin)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, tt.want, w.Header().Get("Access-Control-Allow-Origin"), tt.origin)
	}
}
