package observability

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/yungbote/docfill-backend/internal/platform/logger"
)

// Metrics is a small Prometheus text-exposition registry.
type Metrics struct {
	apiRequests   *CounterVec
	apiLatency    *HistogramVec
	apiInflight   *Gauge
	fillOutcomes  *CounterVec
	oracleLatency *HistogramVec
	finalized     *CounterVec
	pgStats       *GaugeVec
	redisUp       *Gauge
}

var (
	initOnce sync.Once
	instance *Metrics
)

// Current is nil until Init ran; every Metrics method accepts a nil receiver.
func Current() *Metrics {
	return instance
}

func Init(log *logger.Logger) *Metrics {
	initOnce.Do(func() {
		instance = NewMetrics()
		if log != nil {
			log.Info("metrics initialized")
		}
	})
	return instance
}

func NewMetrics() *Metrics {
	return &Metrics{
		apiRequests:   NewCounterVec("docfill_api_requests_total", "HTTP requests by route and status.", []string{"method", "route", "status"}),
		apiLatency:    NewHistogramVec("docfill_api_request_seconds", "HTTP request latency.", []string{"method", "route"}, nil),
		apiInflight:   NewGauge("docfill_api_inflight", "HTTP requests in flight."),
		fillOutcomes:  NewCounterVec("docfill_answer_outcomes_total", "Answer submissions by expected type and outcome.", []string{"expected_type", "outcome"}),
		oracleLatency: NewHistogramVec("docfill_oracle_seconds", "Semantic oracle and suggester latency.", []string{"action", "status"}, []float64{0.1, 0.25, 0.5, 1, 2, 4, 8, 15}),
		finalized:     NewCounterVec("docfill_sessions_finalized_total", "Finalized sessions by classification.", []string{"classification"}),
		pgStats:       NewGaugeVec("docfill_db_connections", "Database pool connections by state.", []string{"state"}),
		redisUp:       NewGauge("docfill_redis_up", "1 when the last redis ping succeeded."),
	}
}

func (m *Metrics) ObserveAPI(method, route, status string, dur time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.apiRequests.Inc(method, route, status)
	m.apiLatency.Observe(dur.Seconds(), method, route)
}

func (m *Metrics) ApiInflightInc() {
	if m != nil {
		m.apiInflight.Inc()
	}
}

func (m *Metrics) ApiInflightDec() {
	if m != nil {
		m.apiInflight.Dec()
	}
}

func (m *Metrics) IncAnswerOutcome(expectedType, outcome string) {
	if m != nil {
		m.fillOutcomes.Inc(expectedType, outcome)
	}
}

func (m *Metrics) ObserveOracle(action, status string, dur time.Duration) {
	if m != nil {
		m.oracleLatency.Observe(dur.Seconds(), action, status)
	}
}

func (m *Metrics) IncFinalized(classification string) {
	if m != nil {
		m.finalized.Inc(classification)
	}
}

func (m *Metrics) WriteHTTP(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	if m == nil {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	_ = m.WritePrometheus(w)
}

func (m *Metrics) WritePrometheus(w io.Writer) error {
	if m == nil {
		return nil
	}
	writers := []interface{ WritePrometheus(io.Writer) error }{
		m.apiRequests, m.apiLatency, m.apiInflight, m.fillOutcomes,
		m.oracleLatency, m.finalized, m.pgStats, m.redisUp,
	}
	for _, mw := range writers {
		if err := mw.WritePrometheus(w); err != nil {
			return err
		}
	}
	return nil
}

// StartPostgresCollector samples pool stats until ctx ends.
func (m *Metrics) StartPostgresCollector(ctx context.Context, log *logger.Logger, db *gorm.DB, every time.Duration) {
	if m == nil || db == nil {
		return
	}
	sqlDB, err := db.DB()
	if err != nil {
		if log != nil {
			log.Warn("metrics: db pool unavailable", "error", err)
		}
		return
	}
	go tick(ctx, every, func() {
		s := sqlDB.Stats()
		m.pgStats.Set(float64(s.InUse), "in_use")
		m.pgStats.Set(float64(s.Idle), "idle")
		m.pgStats.Set(float64(s.OpenConnections), "open")
	})
}

// StartRedisCollector pings rdb until ctx ends.
func (m *Metrics) StartRedisCollector(ctx context.Context, log *logger.Logger, rdb redis.UniversalClient, every time.Duration) {
	if m == nil || rdb == nil {
		return
	}
	go tick(ctx, every, func() {
		pctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if err := rdb.Ping(pctx).Err(); err != nil {
			m.redisUp.Set(0)
			if log != nil {
				log.Warn("metrics: redis ping failed", "error", err)
			}
			return
		}
		m.redisUp.Set(1)
	})
}

func tick(ctx context.Context, every time.Duration, fn func()) {
	if every <= 0 {
		every = 15 * time.Second
	}
	t := time.NewTicker(every)
	defer t.Stop()
	fn()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			fn()
		}
	}
}

// ---- lightweight metric primitives (Prometheus exposition) ----

type CounterVec struct {
	name       string
	help       string
	labelNames []string
	mu         sync.RWMutex
	values     map[string]float64
}

func NewCounterVec(name, help string, labels []string) *CounterVec {
	return &CounterVec{name: name, help: help, labelNames: labels, values: map[string]float64{}}
}

func (c *CounterVec) Inc(values ...string) {
	if c == nil {
		return
	}
	lbl := labelString(c.labelNames, values)
	c.mu.Lock()
	c.values[lbl]++
	c.mu.Unlock()
}

func (c *CounterVec) Value(values ...string) float64 {
	if c == nil {
		return 0
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.values[labelString(c.labelNames, values)]
}

func (c *CounterVec) WritePrometheus(w io.Writer) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return writeSeries(w, c.name, c.help, "counter", c.values)
}

type Gauge struct {
	name string
	help string
	mu   sync.RWMutex
	val  float64
}

func NewGauge(name, help string) *Gauge {
	return &Gauge{name: name, help: help}
}

func (g *Gauge) Set(v float64) {
	g.mu.Lock()
	g.val = v
	g.mu.Unlock()
}

func (g *Gauge) Inc() { g.add(1) }

func (g *Gauge) Dec() { g.add(-1) }

func (g *Gauge) add(v float64) {
	g.mu.Lock()
	g.val += v
	g.mu.Unlock()
}

func (g *Gauge) WritePrometheus(w io.Writer) error {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return writeSeries(w, g.name, g.help, "gauge", map[string]float64{"": g.val})
}

type GaugeVec struct {
	name       string
	help       string
	labelNames []string
	mu         sync.RWMutex
	values     map[string]float64
}

func NewGaugeVec(name, help string, labels []string) *GaugeVec {
	return &GaugeVec{name: name, help: help, labelNames: labels, values: map[string]float64{}}
}

func (g *GaugeVec) Set(v float64, values ...string) {
	lbl := labelString(g.labelNames, values)
	g.mu.Lock()
	g.values[lbl] = v
	g.mu.Unlock()
}

func (g *GaugeVec) WritePrometheus(w io.Writer) error {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return writeSeries(w, g.name, g.help, "gauge", g.values)
}

type HistogramVec struct {
	name       string
	help       string
	labelNames []string
	buckets    []float64
	mu         sync.RWMutex
	values     map[string]*histogram
}

type histogram struct {
	counts []uint64
	sum    float64
	total  uint64
}

func NewHistogramVec(name, help string, labels []string, buckets []float64) *HistogramVec {
	if len(buckets) == 0 {
		buckets = []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5}
	}
	return &HistogramVec{name: name, help: help, labelNames: labels, buckets: buckets, values: map[string]*histogram{}}
}

func (h *HistogramVec) Observe(v float64, values ...string) {
	lbl := labelString(h.labelNames, values)
	h.mu.Lock()
	defer h.mu.Unlock()
	hist, ok := h.values[lbl]
	if !ok {
		hist = &histogram{counts: make([]uint64, len(h.buckets))}
		h.values[lbl] = hist
	}
	hist.sum += v
	hist.total++
	for i, b := range h.buckets {
		if v <= b {
			hist.counts[i]++
		}
	}
}

func (h *HistogramVec) WritePrometheus(w io.Writer) error {
	if _, err := fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s histogram\n", h.name, h.help, h.name); err != nil {
		return err
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, k := range sortedKeys(h.values) {
		v := h.values[k]
		for i, b := range h.buckets {
			if _, err := fmt.Fprintf(w, "%s_bucket%s %d\n", h.name, withLe(k, fmt.Sprintf("%g", b)), v.counts[i]); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintf(w, "%s_bucket%s %d\n%s_sum%s %f\n%s_count%s %d\n",
			h.name, withLe(k, "+Inf"), v.total, h.name, k, v.sum, h.name, k, v.total); err != nil {
			return err
		}
	}
	return nil
}

func writeSeries(w io.Writer, name, help, kind string, values map[string]float64) error {
	if _, err := fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s %s\n", name, help, name, kind); err != nil {
		return err
	}
	for _, k := range sortedKeys(values) {
		if _, err := fmt.Fprintf(w, "%s%s %f\n", name, k, values[k]); err != nil {
			return err
		}
	}
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func labelString(names []string, values []string) string {
	if len(names) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("{")
	for i, name := range names {
		if i > 0 {
			b.WriteString(",")
		}
		val := "unknown"
		if i < len(values) && values[i] != "" {
			val = values[i]
		}
		b.WriteString(name)
		b.WriteString("=\"")
		b.WriteString(escapeLabel(val))
		b.WriteString("\"")
	}
	b.WriteString("}")
	return b.String()
}

func escapeLabel(v string) string {
	v = strings.ReplaceAll(v, "\\", "\\\\")
	v = strings.ReplaceAll(v, "\"", "\\\"")
	return strings.ReplaceAll(v, "\n", "\\n")
}

func withLe(labels string, le string) string {
	if labels == "" || labels == "{}" {
		return "{le=\"" + le + "\"}"
	}
	return strings.TrimSuffix(labels, "}") + ",le=\"" + le + "\"}"
}
