package server

import (
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/QuocDuong16/headscale-dashboard/internal/i18n"
	"github.com/QuocDuong16/headscale-dashboard/internal/listing"
	"github.com/QuocDuong16/headscale-dashboard/pkg/headscale"
)

const recentMachines = 5

type dashboardData struct {
	Stats          listing.Stats
	Health         *headscale.Health
	HealthErr      string
	Recent         []headscale.Machine
	MonitorChecked *time.Time
	MonitorUp      bool
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	c, err := s.client(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	q := queries{c: c, cache: s.cacheFor(r)}

	var (
		machines []headscale.Machine
		users    []headscale.User
		routes   []headscale.Route
	)
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() (err error) { machines, err = q.machines(ctx); return })
	g.Go(func() (err error) { users, err = q.users(ctx); return })
	g.Go(func() (err error) { routes, err = q.routes(ctx); return })
	if err := g.Wait(); err != nil {
		s.fail(w, r, err)
		return
	}

	data := dashboardData{
		Stats:  listing.ComputeStats(machines, users, routes),
		Health: &headscale.Health{},
	}
	// a failing health check is shown on its card, not as a page error
	if h, err := q.health(r.Context()); err != nil {
		if unauthorized(err) {
			s.relogin(w, r)
			return
		}
		data.HealthErr = errorText(i18n.FromContext(r.Context()), err)
	} else {
		data.Health = h
	}

	recent := append([]headscale.Machine(nil), machines...)
	listing.SortMachines(recent, "lastSeen", listing.Desc)
	if len(recent) > recentMachines {
		recent = recent[:recentMachines]
	}
	data.Recent = recent

	if st, ok := s.monitor.Status(); ok {
		checked := st.Checked
		data.MonitorChecked = &checked
		data.MonitorUp = st.Up
	}

	p := s.page(w, r, "dashboard", "dashboard.title", data)
	p.Refresh = s.refresh()
	s.render(w, http.StatusOK, "dashboard", p)
}
