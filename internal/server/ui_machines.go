package server

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/QuocDuong16/headscale-dashboard/internal/i18n"
	"github.com/QuocDuong16/headscale-dashboard/internal/listing"
	"github.com/QuocDuong16/headscale-dashboard/pkg/headscale"
	"github.com/QuocDuong16/headscale-dashboard/pkg/validate"
)

type machinesData struct {
	Query    listing.MachineQuery
	Users    []string
	Owners   []headscale.User
	Sort     string
	Machines []headscale.Machine
	Total    int
}

type machineData struct {
	Machine *headscale.Machine
	Users   []headscale.User
	Routes  []headscale.Route
}

func (s *Server) handleMachines(w http.ResponseWriter, r *http.Request) {
	c, err := s.client(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	q := queries{c: c, cache: s.cacheFor(r)}
	machines, err := q.machines(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	users, err := q.users(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}

	v := r.URL.Query()
	field, order := listing.SortKey(v.Get("sort"), "name", listing.Asc)
	query := listing.MachineQuery{
		Search: v.Get("q"),
		Status: v.Get("status"),
		User:   v.Get("user"),
		SortBy: field,
		Order:  order,
	}
	if query.Status == "" {
		query.Status = "all"
	}
	if query.User == "" {
		query.User = "all"
	}

	p := s.page(w, r, "machines", "machines.title", machinesData{
		Query:    query,
		Users:    listing.MachineUsers(machines),
		Owners:   users,
		Sort:     field + "-" + string(order),
		Machines: listing.FilterMachines(machines, query),
		Total:    len(machines),
	})
	p.Refresh = s.refresh()
	s.render(w, http.StatusOK, "machines", p)
}

func (s *Server) handleMachine(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	c, err := s.client(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	q := queries{c: c, cache: s.cacheFor(r)}
	m, err := q.machine(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	users, err := q.users(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	p := s.page(w, r, "machines", "nav.machines", machineData{
		Machine: m,
		Users:   users,
		Routes:  headscale.RoutesFromMachines([]headscale.Machine{*m}),
	})
	p.Title = m.DisplayName()
	s.render(w, http.StatusOK, "machine", p)
}

func machinePath(id string) string { return "/machines/" + id }

func (s *Server) handleDeleteMachine(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	c, err := s.client(r)
	if err != nil {
		s.failMutation(w, r, "/machines", err)
		return
	}
	if err := c.DeleteMachine(r.Context(), id); err != nil {
		s.failMutation(w, r, "/machines", err)
		return
	}
	tr := i18n.FromContext(r.Context())
	s.done(w, r, "/machines", tr.T("toast.machineDeleted"), keyMachines, machineKey(id), keyRoutes)
}

func (s *Server) handleRenameMachine(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	back := machinePath(id)
	name, err := validate.Name(r.PostFormValue("name"))
	if err != nil {
		s.badInput(w, r, back, err)
		return
	}
	c, err := s.client(r)
	if err == nil {
		_, err = c.RenameMachine(r.Context(), id, name)
	}
	if err != nil {
		s.failMutation(w, r, back, err)
		return
	}
	tr := i18n.FromContext(r.Context())
	s.done(w, r, back, tr.T("toast.machineRenamed"), keyMachines, machineKey(id), keyRoutes)
}

// handleExpireMachine expires now, or at the picked date.
func (s *Server) handleExpireMachine(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	back := machinePath(id)
	expiry, err := validate.Expiration(r.PostFormValue("expiry"))
	if err != nil {
		s.badInput(w, r, back, err)
		return
	}
	c, err := s.client(r)
	if err == nil {
		_, err = c.ExpireMachine(r.Context(), id, expiry)
	}
	if err != nil {
		s.failMutation(w, r, back, err)
		return
	}
	tr := i18n.FromContext(r.Context())
	s.done(w, r, back, tr.T("toast.machineExpired"), keyMachines, machineKey(id))
}

func (s *Server) handleMachineTags(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	back := machinePath(id)
	tags := validate.Tags(r.PostFormValue("tags"))
	c, err := s.client(r)
	if err == nil {
		_, err = c.SetMachineTags(r.Context(), id, tags)
	}
	if err != nil {
		s.failMutation(w, r, back, err)
		return
	}
	tr := i18n.FromContext(r.Context())
	s.done(w, r, back, tr.T("toast.tagsUpdated"), keyMachines, machineKey(id))
}

func (s *Server) handleMoveMachine(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	back := machinePath(id)
	user := strings.TrimSpace(r.PostFormValue("user"))
	if user == "" {
		s.badInput(w, r, back, validate.ErrEmptyName)
		return
	}
	c, err := s.client(r)
	if err == nil {
		_, err = c.MoveMachine(r.Context(), id, user)
	}
	if err != nil {
		s.failMutation(w, r, back, err)
		return
	}
	tr := i18n.FromContext(r.Context())
	s.done(w, r, back, tr.T("toast.machineMoved"), keyMachines, keyUsers, machineKey(id), keyRoutes)
}

// handleApproveRoutes replaces the approved set with the checked prefixes.
func (s *Server) handleApproveRoutes(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	back := machinePath(id)
	if err := r.ParseForm(); err != nil {
		s.badInput(w, r, back, err)
		return
	}
	routes := []string{}
	for _, v := range r.PostForm["route"] {
		p, err := validate.Prefix(v)
		if err != nil {
			s.badInput(w, r, back, err)
			return
		}
		routes = append(routes, p)
	}
	c, err := s.client(r)
	if err == nil {
		_, err = c.SetApprovedRoutes(r.Context(), id, routes)
	}
	if err != nil {
		s.failMutation(w, r, back, err)
		return
	}
	tr := i18n.FromContext(r.Context())
	s.done(w, r, back, tr.T("toast.routesApproved"), keyMachines, keyRoutes, machineKey(id))
}

// handleRegisterMachine completes a registration started by
// "tailscale up --login-server", using the key from the register page.
func (s *Server) handleRegisterMachine(w http.ResponseWriter, r *http.Request) {
	user, err := validate.Name(r.PostFormValue("user"))
	if err != nil {
		s.badInput(w, r, "/machines", err)
		return
	}
	key := strings.TrimSpace(r.PostFormValue("key"))
	if key == "" {
		s.badInput(w, r, "/machines", validate.ErrEmptyName)
		return
	}
	c, err := s.client(r)
	if err == nil {
		_, err = c.RegisterMachine(r.Context(), user, key)
	}
	if err != nil {
		s.failMutation(w, r, "/machines", err)
		return
	}
	tr := i18n.FromContext(r.Context())
	s.done(w, r, "/machines", tr.T("toast.machineRegistered"), keyMachines, keyUsers, keyPending, keyPreAuthKeys)
}

func (s *Server) handleBackfill(w http.ResponseWriter, r *http.Request) {
	confirmed := r.PostFormValue("confirmed") == "true"
	c, err := s.client(r)
	if err == nil {
		err = c.BackfillIPs(r.Context(), &confirmed)
	}
	if err != nil {
		s.failMutation(w, r, "/machines", err)
		return
	}
	tr := i18n.FromContext(r.Context())
	s.done(w, r, "/machines", tr.T("toast.ipsBackfilled"), keyMachines, keyMachineDetail)
}
