package observability

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
)

func scrape(t *testing.T, h http.Handler) (string, map[string]*dto.MetricFamily) {
	t.Helper()
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rr.Body.String()
	var p expfmt.TextParser
	mfs, err := p.TextToMetricFamilies(strings.NewReader(body))
	if err != nil {
		t.Fatalf("parse exposition: %v\n%s", err, body)
	}
	return body, mfs
}

func TestCombinedMetricsHandler(t *testing.T) {
	headscaleSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4")
		_, _ = w.Write([]byte("# TYPE headscale_nodes gauge\nheadscale_nodes 4\n# TYPE dummy_total counter\ndummy_total 99\n"))
	}))
	defer headscaleSrv.Close()

	reg := prom.NewRegistry()
	c := prom.NewCounter(prom.CounterOpts{Name: "dummy_total"})
	reg.MustRegister(c)
	c.Inc()

	h := NewCombinedMetricsHandler(reg, HTTPMetricsSource{URL: headscaleSrv.URL})
	_, mfs := scrape(t, h)

	if mf := mfs["headscale_nodes"]; mf == nil || mf.GetMetric()[0].GetGauge().GetValue() != 4 {
		t.Fatalf("expected headscale metric, got %v", mfs["headscale_nodes"])
	}
	// the local family wins over the upstream one with the same name
	if v := mfs["dummy_total"].GetMetric()[0].GetCounter().GetValue(); v != 1 {
		t.Fatalf("dummy_total = %v", v)
	}
}

func TestCombinedMetricsUpstreamDown(t *testing.T) {
	reg := prom.NewRegistry()
	h := NewCombinedMetricsHandler(reg, HTTPMetricsSource{URL: "http://127.0.0.1:1/metrics"})
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(rr.Body.String(), "# headscale metrics unavailable") {
		t.Fatalf("body: %s", rr.Body.String())
	}
	if ct := rr.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain; version=0.0.4") {
		t.Fatalf("content type %q", ct)
	}
}

func TestDashboardMetrics(t *testing.T) {
	m := NewMetrics()
	m.ObserveProxy(http.MethodGet, 200, time.Now())
	m.ObserveProxy(http.MethodGet, 200, time.Now())
	m.ObserveProxy(http.MethodPost, 0, time.Now())
	m.SetUpstreamUp(true)
	m.ObserveCache("machines", true)
	m.ObserveLogin("ok")

	_, mfs := scrape(t, NewCombinedMetricsHandler(m.Registry, nil))

	reqs := mfs["dashboard_proxy_requests_total"]
	if reqs == nil {
		t.Fatalf("proxy counter missing")
	}
	found := false
	for _, metric := range reqs.GetMetric() {
		labels := map[string]string{}
		for _, lp := range metric.GetLabel() {
			labels[lp.GetName()] = lp.GetValue()
		}
		if labels["method"] == "GET" && labels["status"] == "200" {
			found = true
			if metric.GetCounter().GetValue() != 2 {
				t.Fatalf("GET 200 = %v", metric.GetCounter().GetValue())
			}
		}
	}
	if !found {
		t.Fatalf("GET 200 series missing")
	}
	if mfs["dashboard_upstream_up"].GetMetric()[0].GetGauge().GetValue() != 1 {
		t.Fatalf("upstream gauge not set")
	}
	if mfs["dashboard_proxy_request_duration_seconds"] == nil {
		t.Fatalf("histogram missing")
	}
	if mfs["dashboard_cache_lookups_total"] == nil || mfs["dashboard_login_attempts_total"] == nil {
		t.Fatalf("cache/login counters missing")
	}

	var nilMetrics *Metrics
	nilMetrics.ObserveProxy("GET", 200, time.Now())
}
