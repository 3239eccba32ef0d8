package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/docfill-backend/internal/observability"
)

func TestMetricsLabelsSessionRoutesByTemplate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := observability.NewMetrics()
	r := gin.New()
	r.Use(Metrics(m))
	r.GET("/api/sessions/:id/next", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/healthcheck", func(c *gin.Context) { c.Status(http.StatusOK) })

	for _, path := range []string{"/api/sessions/1000/next", "/api/sessions/1001/next", "/healthcheck", "/nope"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	var buf bytes.Buffer
	if err := m.WritePrometheus(&buf); err != nil {
		t.Fatalf("WritePrometheus: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, `docfill_api_requests_total{method="GET",route="/api/sessions/:id/next",status="200"} 2.000000`) {
		t.Fatalf("session requests not grouped by template:\n%s", out)
	}
	if !strings.Contains(out, `route="unmatched",status="404"`) {
		t.Fatalf("unmatched request not labeled:\n%s", out)
	}
	if strings.Contains(out, "/healthcheck") || strings.Contains(out, "/1000/") {
		t.Fatalf("health or metrics route or raw session path leaked into labels:\n%s", out)
	}
}
