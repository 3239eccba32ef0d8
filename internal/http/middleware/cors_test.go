package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestCORSAllowsConfiguredOrigins(t *testing.T) {
	t.Parallel()
	gin.SetMode(gin.TestMode)

	cases := []struct {
		name    string
		allowed []string
		origin  string
		want    string
	}{
		{"default dev origin", nil, "http://localhost:5173", "http://localhost:5173"},
		{"configured origin", []string{"https://fill.example.com"}, "https://fill.example.com", "https://fill.example.com"},
		{"unknown origin", []string{"https://fill.example.com"}, "https://evil.example.com", ""},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			r := gin.New()
			r.Use(CORS(tc.allowed...))
			r.OPTIONS("/api/sessions", func(c *gin.Context) {
				c.Status(http.StatusNoContent)
			})

			req := httptest.NewRequest(http.MethodOptions, "/api/sessions", nil)
			req.Header.Set("Origin", tc.origin)
			req.Header.Set("Access-Control-Request-Method", http.MethodPost)

			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)

			if got := rec.Header().Get("Access-Control-Allow-Origin"); got != tc.want {
				t.Fatalf("unexpected allow-origin header: got=%q want=%q", got, tc.want)
			}
		})
	}
}

func TestAttachTraceContextEchoesRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(AttachTraceContext())
	var seen string
	r.GET("/ping", func(c *gin.Context) {
		seen = c.GetString("request_id")
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("X-Request-Id", "req-123")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if seen != "req-123" || rec.Header().Get("X-Request-Id") != "req-123" {
		t.Fatalf("request id not propagated: seen=%q header=%q", seen, rec.Header().Get("X-Request-Id"))
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))
	if rec.Header().Get("X-Request-Id") == "" || rec.Header().Get("X-Trace-Id") == "" {
		t.Fatalf("expected generated ids, got %v", rec.Header())
	}
}

func TestAttachTraceContextReplacesMalformedIDs(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(AttachTraceContext())
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	for _, bad := range []string{"has spaces in it", strings.Repeat("a", 200), "line\tbreak"} {
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.Header.Set("X-Request-Id", bad)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		got := rec.Header().Get("X-Request-Id")
		if got == "" || got == bad {
			t.Fatalf("request id %q should be replaced, got %q", bad, got)
		}
	}
}
