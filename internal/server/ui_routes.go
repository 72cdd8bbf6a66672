package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/QuocDuong16/headscale-dashboard/internal/i18n"
	"github.com/QuocDuong16/headscale-dashboard/internal/listing"
	"github.com/QuocDuong16/headscale-dashboard/pkg/headscale"
)

type routesData struct {
	Query  listing.RouteQuery
	Routes []headscale.Route
}

func (s *Server) handleRoutes(w http.ResponseWriter, r *http.Request) {
	c, err := s.client(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	q := queries{c: c, cache: s.cacheFor(r)}
	routes, err := q.routes(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	v := r.URL.Query()
	query := listing.RouteQuery{Search: v.Get("q"), Status: v.Get("status")}
	if query.Status == "" {
		query.Status = "all"
	}
	p := s.page(w, r, "routes", "routes.title", routesData{
		Query:  query,
		Routes: listing.FilterRoutes(routes, query),
	})
	p.Refresh = s.refresh()
	s.render(w, http.StatusOK, "routes", p)
}

// handleRouteAction enables, disables or deletes the route named by the
// "id" form field.
func (s *Server) handleRouteAction(w http.ResponseWriter, r *http.Request) {
	id := r.PostFormValue("id")
	machineID, _, err := headscale.ParseRouteID(id)
	if err != nil {
		s.badInput(w, r, "/routes", err)
		return
	}
	c, err := s.client(r)
	if err != nil {
		s.failMutation(w, r, "/routes", err)
		return
	}

	var msgID string
	switch chi.URLParam(r, "action") {
	case "enable":
		err, msgID = c.EnableRoute(r.Context(), id), "toast.routeEnabled"
	case "disable":
		err, msgID = c.DisableRoute(r.Context(), id), "toast.routeDisabled"
	case "delete":
		err, msgID = c.DeleteRoute(r.Context(), id), "toast.routeDeleted"
	default:
		http.NotFound(w, r)
		return
	}
	if err != nil {
		s.failMutation(w, r, "/routes", err)
		return
	}
	tr := i18n.FromContext(r.Context())
	s.done(w, r, "/routes", tr.T(msgID), keyRoutes, keyMachines, machineKey(machineID))
}
