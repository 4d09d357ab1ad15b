package observability

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestClientIP(t *testing.T) {
	tests := []struct {
		name         string
		forwardedFor string
		remoteAddr   string
		want         string
	}{
		{
			name:         "single forwarded address",
			forwardedFor: "203.0.113.50",
			want:         "203.0.113.50",
		},
		{
			name:         "forwarded chain uses first hop",
			forwardedFor: "203.0.113.50, 70.41.3.18, 150.172.238.178",
			want:         "203.0.113.50",
		},
		{
			name:         "forwarded chain with extra whitespace",
			forwardedFor: " 203.0.113.50 ,70.41.3.18",
			want:         "203.0.113.50",
		},
		{
			name:       "no forwarded header uses peer address",
			remoteAddr: "192.168.1.1",
			want:       "192.168.1.1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gin.SetMode(gin.TestMode)
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.forwardedFor != "" {
				c.Request.Header.Set("X-Forwarded-For", tt.forwardedFor)
			}
			if tt.remoteAddr != "" {
				c.Request.RemoteAddr = tt.remoteAddr + ":8080"
			}

			got := ClientIP(c)
			if got != tt.want {
				t.Errorf("ClientIP() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMiddleware_RequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	logger := NewLogger()

	router := gin.New()
	router.Use(Middleware(logger))
	router.GET("/", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	t.Run("generates request id when absent", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		router.ServeHTTP(w, req)

		if got := w.Header().Get("X-Request-ID"); got == "" {
			t.Error("expected a generated X-Request-ID header")
		}
	})

	t.Run("preserves caller request id", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Request-ID", "req-fixed")
		router.ServeHTTP(w, req)

		if got := w.Header().Get("X-Request-ID"); got != "req-fixed" {
			t.Errorf("X-Request-ID = %v, want req-fixed", got)
		}
	})
}
