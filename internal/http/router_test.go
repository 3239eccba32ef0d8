package http

import (
	"bytes"
	"context"
	"encoding/json"
	nethttp "net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/docfill-backend/internal/data/repos"
	"github.com/yungbote/docfill-backend/internal/data/repos/testutil"
	httpH "github.com/yungbote/docfill-backend/internal/http/handlers"
	"github.com/yungbote/docfill-backend/internal/modules/fulfillment"
	"github.com/yungbote/docfill-backend/internal/observability"
	"github.com/yungbote/docfill-backend/internal/platform/objectstore"
	"github.com/yungbote/docfill-backend/internal/services"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db := testutil.DB(t)
	log := testutil.Logger(t)
	store, err := objectstore.NewLocal(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocal: %v", err)
	}
	engine := fulfillment.NewEngine(fulfillment.Config{
		MaxRetries: 2,
		Escalation: fulfillment.EscalationPolicy{Mode: fulfillment.EscalateNever},
	}, nil, nil, fulfillment.StaticSuggester{}, log)
	svc := services.NewFulfillmentService(services.FulfillmentConfig{}, log, repos.New(db, log), engine, nil, nil, nil,
		services.NewArchiveMerger(store, log))
	return NewRouter(RouterConfig{
		Log:                log,
		Metrics:            observability.NewMetrics(),
		FulfillmentHandler: httpH.NewFulfillmentHandler(svc),
		HealthHandler:      httpH.NewHealthHandler(db),
	})
}

func do(t *testing.T, r *gin.Engine, method, path string, body any) (int, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf).WithContext(context.Background())
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	out := map[string]any{}
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
			t.Fatalf("decode %s %s: %v (%s)", method, path, err, rec.Body.String())
		}
	}
	return rec.Code, out
}

func errorCode(body map[string]any) string {
	e, _ := body["error"].(map[string]any)
	code, _ := e["code"].(string)
	return code
}

func TestFulfillmentRoutesEndToEnd(t *testing.T) {
	r := newTestRouter(t)

	code, body := do(t, r, nethttp.MethodPost, "/api/sessions", map[string]any{
		"title": "SAFE",
		"placeholders": []map[string]any{
			{"name": "Company Name", "expected_type": "legal_name"},
			{"name": "Date of Safe", "expected_type": "date"},
		},
	})
	if code != nethttp.StatusCreated {
		t.Fatalf("create: %d %v", code, body)
	}
	sess, _ := body["session"].(map[string]any)
	id, _ := sess["id"].(string)
	ref := strconv.Itoa(int(sess["reference"].(float64)))

	code, body = do(t, r, nethttp.MethodGet, "/api/sessions/"+ref+"/next", nil)
	if code != nethttp.StatusOK {
		t.Fatalf("next: %d %v", code, body)
	}
	q, _ := body["question"].(map[string]any)
	if q["placeholder_id"] != "placeholder_001" || body["prompt"] == "" {
		t.Fatalf("unexpected question %v", body)
	}

	code, body = do(t, r, nethttp.MethodPost, "/api/sessions/"+id+"/placeholders/placeholder_001/answer", map[string]any{"raw_input": "Acme Inc."})
	if code != nethttp.StatusOK || body["status"] != "accepted" {
		t.Fatalf("answer: %d %v", code, body)
	}

	code, body = do(t, r, nethttp.MethodPost, "/api/sessions/"+id+"/finalize", nil)
	if code != nethttp.StatusConflict || errorCode(body) != "precondition_failed" {
		t.Fatalf("early finalize: %d %v", code, body)
	}

	code, body = do(t, r, nethttp.MethodPost, "/api/sessions/"+id+"/placeholders/placeholder_002/answer", map[string]any{"raw_input": "05/15/2026"})
	if code != nethttp.StatusOK || body["fulfillment_complete"] != true {
		t.Fatalf("final answer: %d %v", code, body)
	}

	code, body = do(t, r, nethttp.MethodGet, "/api/sessions/"+id+"/progress", nil)
	if code != nethttp.StatusOK || body["complete"] != true {
		t.Fatalf("progress: %d %v", code, body)
	}

	code, body = do(t, r, nethttp.MethodPost, "/api/sessions/"+id+"/finalize", nil)
	if code != nethttp.StatusOK || body["classification"] != "final" {
		t.Fatalf("finalize: %d %v", code, body)
	}

	code, body = do(t, r, nethttp.MethodGet, "/api/sessions/"+id+"/actions?limit=50", nil)
	if code != nethttp.StatusOK {
		t.Fatalf("actions: %d %v", code, body)
	}
	if actions, _ := body["actions"].([]any); len(actions) < 4 {
		t.Fatalf("expected action log entries, got %v", body)
	}
}

func TestFulfillmentRoutesMapErrors(t *testing.T) {
	r := newTestRouter(t)
	_, body := do(t, r, nethttp.MethodPost, "/api/sessions", map[string]any{
		"placeholders": []map[string]any{{"name": "Purchase Amount", "expected_type": "money"}},
	})
	id := body["session"].(map[string]any)["id"].(string)

	cases := []struct {
		name   string
		method string
		path   string
		body   any
		status int
		code   string
	}{
		{"empty intake", nethttp.MethodPost, "/api/sessions", map[string]any{"placeholders": []any{}}, 400, "validation"},
		{"bad session id", nethttp.MethodGet, "/api/sessions/not-an-id", nil, 400, "validation"},
		{"unknown session", nethttp.MethodGet, "/api/sessions/987654", nil, 404, "not_found"},
		{"unknown placeholder", nethttp.MethodPost, "/api/sessions/" + id + "/placeholders/nope/answer", map[string]any{"raw_input": "1"}, 404, "not_found"},
		{"empty answer", nethttp.MethodPost, "/api/sessions/" + id + "/placeholders/placeholder_001/answer", map[string]any{"raw_input": "  "}, 400, "validation"},
		{"bad limit", nethttp.MethodGet, "/api/sessions/" + id + "/actions?limit=x", nil, 400, "invalid_limit"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			code, body := do(t, r, tc.method, tc.path, tc.body)
			if code != tc.status || errorCode(body) != tc.code {
				t.Fatalf("got %d %v, want %d %s", code, body, tc.status, tc.code)
			}
		})
	}
}

func TestHealthAndMetrics(t *testing.T) {
	r := newTestRouter(t)
	for _, path := range []string{"/healthcheck", "/readyz"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(nethttp.MethodGet, path, nil))
		if rec.Code != nethttp.StatusOK {
			t.Fatalf("%s = %d", path, rec.Code)
		}
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(nethttp.MethodGet, "/metrics", nil))
	if rec.Code != nethttp.StatusOK || !strings.Contains(rec.Body.String(), "docfill_api_requests_total") {
		t.Fatalf("metrics body: %s", rec.Body.String())
	}
}
