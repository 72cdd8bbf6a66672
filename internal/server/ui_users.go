package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/QuocDuong16/headscale-dashboard/internal/i18n"
	"github.com/QuocDuong16/headscale-dashboard/internal/listing"
	"github.com/QuocDuong16/headscale-dashboard/pkg/validate"
)

type usersData struct {
	Search string
	Sort   string
	Rows   []listing.UserRow
}

func (s *Server) handleUsers(w http.ResponseWriter, r *http.Request) {
	c, err := s.client(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	q := queries{c: c, cache: s.cacheFor(r)}
	users, err := q.users(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	machines, err := q.machines(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}

	v := r.URL.Query()
	field, order := listing.SortKey(v.Get("sort"), "name", listing.Asc)
	rows := listing.FilterUsers(users, machines, listing.UserQuery{Search: v.Get("q"), SortBy: field, Order: order})
	s.render(w, http.StatusOK, "users", s.page(w, r, "users", "users.title", usersData{
		Search: v.Get("q"),
		Sort:   field + "-" + string(order),
		Rows:   rows,
	}))
}

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	name, err := validate.Name(r.PostFormValue("name"))
	if err != nil {
		s.badInput(w, r, "/users", err)
		return
	}
	c, err := s.client(r)
	if err == nil {
		_, err = c.CreateUser(r.Context(), name)
	}
	if err != nil {
		s.failMutation(w, r, "/users", err)
		return
	}
	tr := i18n.FromContext(r.Context())
	s.done(w, r, "/users", tr.T("toast.userCreated", map[string]any{"Name": name}), keyUsers)
}

func (s *Server) handleRenameUser(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	name, err := validate.Name(r.PostFormValue("name"))
	if err != nil {
		s.badInput(w, r, "/users", err)
		return
	}
	c, err := s.client(r)
	if err == nil {
		_, err = c.RenameUser(r.Context(), id, name)
	}
	if err != nil {
		s.failMutation(w, r, "/users", err)
		return
	}
	tr := i18n.FromContext(r.Context())
	s.done(w, r, "/users", tr.T("toast.userRenamed"), keyUsers, keyMachines, keyMachineDetail, keyRoutes, keyPreAuthKeys)
}

func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	c, err := s.client(r)
	if err == nil {
		err = c.DeleteUser(r.Context(), id)
	}
	if err != nil {
		s.failMutation(w, r, "/users", err)
		return
	}
	tr := i18n.FromContext(r.Context())
	s.done(w, r, "/users", tr.T("toast.userDeleted"), keyUsers, keyMachines, keyMachineDetail, keyPreAuthKeys, keyPending)
}
