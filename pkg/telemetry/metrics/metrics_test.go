package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"pictora-hq/relay/pkg/cache"
	"pictora-hq/relay/pkg/config"
	"pictora-hq/relay/pkg/upstream"
)

// Compile-time interface checks
var (
	_ cache.Observer    = (*Collector)(nil)
	_ upstream.Recorder = (*Collector)(nil)
)

func testConfig() *config.MetricsConfig {
	return &config.MetricsConfig{
		Enabled:                true,
		Namespace:              "test",
		Subsystem:              "relay",
		RequestDurationBuckets: []float64{0.1, 0.5, 1.0, 5.0},
	}
}

func TestNewCollector_Defaults(t *testing.T) {
	cfg := &config.MetricsConfig{Enabled: true}
	c := NewCollector(cfg, prometheus.NewRegistry())

	if cfg.Namespace != config.DefaultMetricsNamespace {
		t.Errorf("Namespace = %q, want %q", cfg.Namespace, config.DefaultMetricsNamespace)
	}
	if cfg.Subsystem != config.DefaultMetricsSubsystem {
		t.Errorf("Subsystem = %q, want %q", cfg.Subsystem, config.DefaultMetricsSubsystem)
	}
	if c.Registry() == nil {
		t.Error("Registry() = nil")
	}
}

func TestCollector_HTTPRequests(t *testing.T) {
	c := NewCollector(testConfig(), prometheus.NewRegistry())

	c.RecordHTTPRequest("/api/generate", http.MethodPost, 200, 300*time.Millisecond)
	c.RecordHTTPRequest("/api/generate", http.MethodPost, 200, 200*time.Millisecond)
	c.RecordHTTPRequest("/api/generate", http.MethodPost, 400, time.Millisecond)

	got := testutil.ToFloat64(c.requestMetrics.requestsTotal.WithLabelValues("/api/generate", "POST", "200"))
	if got != 2 {
		t.Errorf("requests_total{status=200} = %v, want 2", got)
	}
	got = testutil.ToFloat64(c.requestMetrics.requestsTotal.WithLabelValues("/api/generate", "POST", "400"))
	if got != 1 {
		t.Errorf("requests_total{status=400} = %v, want 1", got)
	}
}

func TestCollector_Upstream(t *testing.T) {
	c := NewCollector(testConfig(), prometheus.NewRegistry())

	c.UpstreamRequest("image", upstream.OutcomeStatus, 10*time.Millisecond)
	c.UpstreamRetry("image")
	c.UpstreamRequest("image", upstream.OutcomeSuccess, 10*time.Millisecond)

	if got := testutil.ToFloat64(c.upstreamMetrics.requestsTotal.WithLabelValues("image", upstream.OutcomeSuccess)); got != 1 {
		t.Errorf("upstream success = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.upstreamMetrics.retriesTotal.WithLabelValues("image")); got != 1 {
		t.Errorf("upstream retries = %v, want 1", got)
	}
}

func TestCollector_CacheObserver(t *testing.T) {
	c := NewCollector(testConfig(), prometheus.NewRegistry())
	ic := cache.New(cache.Options{Name: "images", MaxEntries: 1, Observer: c})
	defer ic.Close()

	ic.Get("a")
	ic.Set("a", []byte("1"), "image/png")
	ic.Get("a")
	ic.Set("b", []byte("2"), "image/png")

	tests := []struct {
		name   string
		metric prometheus.Collector
		want   float64
	}{
		{"hits", c.cacheMetrics.hitsTotal.WithLabelValues("images"), 1},
		{"misses", c.cacheMetrics.missesTotal.WithLabelValues("images"), 1},
		{"entries", c.cacheMetrics.entries.WithLabelValues("images"), 1},
		{"capacity evictions", c.cacheMetrics.evictionsTotal.WithLabelValues("images", cache.ReasonCapacity), 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := testutil.ToFloat64(tt.metric); got != tt.want {
				t.Errorf("%s = %v, want %v", tt.name, got, tt.want)
			}
		})
	}
}

func TestCollector_Disabled(t *testing.T) {
	cfg := testConfig()
	cfg.Enabled = false
	c := NewCollector(cfg, prometheus.NewRegistry())

	c.RecordHTTPRequest("/api/proxy-image", http.MethodGet, 200, time.Millisecond)
	c.CacheHit("images")
	c.RecordPayment("capture", "COMPLETED")

	if n := testutil.CollectAndCount(c.requestMetrics.requestsTotal); n != 0 {
		t.Errorf("disabled collector recorded %d request series", n)
	}
	if n := testutil.CollectAndCount(c.paymentMetrics.operationsTotal); n != 0 {
		t.Errorf("disabled collector recorded %d payment series", n)
	}
}

func TestCollector_Payment(t *testing.T) {
	c := NewCollector(testConfig(), prometheus.NewRegistry())

	c.RecordPayment("capture", "COMPLETED")
	c.RecordPayment("capture", "")

	if got := testutil.ToFloat64(c.paymentMetrics.operationsTotal.WithLabelValues("capture", "COMPLETED")); got != 1 {
		t.Errorf("capture COMPLETED = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.paymentMetrics.operationsTotal.WithLabelValues("capture", "unknown")); got != 1 {
		t.Errorf("capture unknown = %v, want 1", got)
	}
}

func TestInstrumentAndHandler(t *testing.T) {
	c := NewCollector(testConfig(), prometheus.NewRegistry())

	h := c.Instrument("/api/proxy-image", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/proxy-image?url=ftp://x", nil))

	implicit := c.Instrument("/health", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))
	implicit.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))

	rr := httptest.NewRecorder()
	c.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body, _ := io.ReadAll(rr.Body)

	for _, want := range []string{
		`test_relay_http_requests_total{method="GET",route="/api/proxy-image",status="400"} 1`,
		`test_relay_http_requests_total{method="GET",route="/health",status="200"} 1`,
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("scrape output missing %q", want)
		}
	}
}
