package observability

import (
	"strconv"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Metrics are the dashboard's own series, on a private registry.
type Metrics struct {
	Registry *prom.Registry

	proxyRequests *prom.CounterVec
	proxyDuration *prom.HistogramVec
	upstreamUp    prom.Gauge
	cacheLookups  *prom.CounterVec
	logins        *prom.CounterVec
}

func NewMetrics() *Metrics {
	m := &Metrics{
		Registry: prom.NewRegistry(),
		proxyRequests: prom.NewCounterVec(
			prom.CounterOpts{
				Name: "dashboard_proxy_requests_total",
				Help: "Requests forwarded to headscale by method and upstream status.",
			},
			[]string{"method", "status"},
		),
		proxyDuration: prom.NewHistogramVec(
			prom.HistogramOpts{
				Name:    "dashboard_proxy_request_duration_seconds",
				Help:    "Duration of forwarded requests in seconds.",
				Buckets: prom.DefBuckets,
			},
			[]string{"method"},
		),
		upstreamUp: prom.NewGauge(
			prom.GaugeOpts{
				Name: "dashboard_upstream_up",
				Help: "1 when the last headscale health probe succeeded.",
			},
		),
		cacheLookups: prom.NewCounterVec(
			prom.CounterOpts{
				Name: "dashboard_cache_lookups_total",
				Help: "Query cache lookups by key root and result.",
			},
			[]string{"key", "result"},
		),
		logins: prom.NewCounterVec(
			prom.CounterOpts{
				Name: "dashboard_login_attempts_total",
				Help: "Login attempts by result.",
			},
			[]string{"result"},
		),
	}
	m.Registry.MustRegister(
		m.proxyRequests,
		m.proxyDuration,
		m.upstreamUp,
		m.cacheLookups,
		m.logins,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveProxy records one forwarded request. status 0 means transport failure.
func (m *Metrics) ObserveProxy(method string, status int, start time.Time) {
	if m == nil {
		return
	}
	m.proxyRequests.WithLabelValues(method, strconv.Itoa(status)).Inc()
	m.proxyDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())
}

func (m *Metrics) SetUpstreamUp(up bool) {
	if m == nil {
		return
	}
	if up {
		m.upstreamUp.Set(1)
		return
	}
	m.upstreamUp.Set(0)
}

func (m *Metrics) ObserveCache(root string, hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(root, result).Inc()
}

func (m *Metrics) ObserveLogin(result string) {
	if m == nil {
		return
	}
	m.logins.WithLabelValues(result).Inc()
}
