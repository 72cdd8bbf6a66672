// Package poller runs the dashboard's background jobs: the upstream health
// probe and housekeeping of per-session caches and login buckets.
package poller

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/QuocDuong16/headscale-dashboard/internal/cache"
	"github.com/QuocDuong16/headscale-dashboard/internal/config"
	"github.com/QuocDuong16/headscale-dashboard/internal/observability"
	"github.com/QuocDuong16/headscale-dashboard/internal/ratelimit"
	"github.com/QuocDuong16/headscale-dashboard/pkg/headscale"
)

// Status is the outcome of the last health probe.
type Status struct {
	Checked              time.Time `json:"checked"`
	Up                   bool      `json:"up"`
	DatabaseConnectivity bool      `json:"databaseConnectivity"`
	Error                string    `json:"error,omitempty"`
}

type Monitor struct {
	logger  zerolog.Logger
	cfg     config.Config
	metrics *observability.Metrics
	caches  *cache.Store
	limiter *ratelimit.Store
	cron    *cron.Cron

	mu     sync.RWMutex
	status Status
}

func NewMonitor(logger zerolog.Logger, cfg config.Config, metrics *observability.Metrics, caches *cache.Store, limiter *ratelimit.Store) *Monitor {
	return &Monitor{
		logger:  logger.With().Str("component", "poller").Logger(),
		cfg:     cfg,
		metrics: metrics,
		caches:  caches,
		limiter: limiter,
		cron:    cron.New(),
	}
}

// Start schedules the jobs. The health probe only runs when an API key is
// configured; the dashboard otherwise has no credentials of its own.
func (m *Monitor) Start(ctx context.Context) error {
	if m.cfg.HeadscaleAPIKey != "" {
		spec := fmt.Sprintf("@every %s", m.cfg.PollInterval)
		if _, err := m.cron.AddFunc(spec, func() { m.Probe(ctx) }); err != nil {
			return fmt.Errorf("schedule health probe: %w", err)
		}
		go m.Probe(ctx)
	} else {
		m.logger.Info().Msg("HEADSCALE_API_KEY not set; upstream health monitor disabled")
	}
	if _, err := m.cron.AddFunc("@every 1m", m.Sweep); err != nil {
		return fmt.Errorf("schedule sweep: %w", err)
	}
	m.cron.Start()
	return nil
}

func (m *Monitor) Stop() {
	ctx := m.cron.Stop()
	<-ctx.Done()
}

// Probe checks upstream health once and records the result.
func (m *Monitor) Probe(ctx context.Context) Status {
	st := Status{Checked: time.Now().UTC()}
	base, err := m.cfg.APIBase()
	if err == nil {
		pctx, cancel := context.WithTimeout(ctx, 10*time.Second)
		var h *headscale.Health
		h, err = headscale.New(base, m.cfg.HeadscaleAPIKey).Health(pctx)
		cancel()
		if err == nil {
			st.Up = true
			st.DatabaseConnectivity = h.DatabaseConnectivity
		}
	}
	if err != nil {
		st.Error = err.Error()
		m.logger.Warn().Err(err).Msg("headscale health probe failed")
	}
	m.metrics.SetUpstreamUp(st.Up)

	m.mu.Lock()
	prev := m.status
	m.status = st
	m.mu.Unlock()
	if !prev.Checked.IsZero() && prev.Up != st.Up {
		m.logger.Info().Bool("up", st.Up).Msg("headscale availability changed")
	}
	return st
}

// Status returns the last probe result; ok is false before the first probe.
func (m *Monitor) Status() (Status, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status, !m.status.Checked.IsZero()
}

// Sweep drops idle session caches and expired login buckets.
func (m *Monitor) Sweep() {
	sessions := 0
	if m.caches != nil {
		sessions = m.caches.Sweep()
	}
	buckets := 0
	if m.limiter != nil {
		buckets = m.limiter.Sweep(time.Duration(m.cfg.RateLoginWindowSec) * time.Second)
	}
	if sessions > 0 || buckets > 0 {
		m.logger.Debug().Int("sessions", sessions).Int("buckets", buckets).Msg("swept idle state")
	}
}
