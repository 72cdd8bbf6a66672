package server

import (
	"errors"
	"net/http"

	"github.com/QuocDuong16/headscale-dashboard/internal/cache"
	"github.com/QuocDuong16/headscale-dashboard/internal/config"
	"github.com/QuocDuong16/headscale-dashboard/internal/i18n"
	"github.com/QuocDuong16/headscale-dashboard/internal/web"
	"github.com/QuocDuong16/headscale-dashboard/pkg/headscale"
)

// Cache keys. Mutations invalidate by prefix, so {"machine"} drops every
// machine detail entry.
var (
	keyMachines      = cache.Key{"machines"}
	keyUsers         = cache.Key{"users"}
	keyRoutes        = cache.Key{"routes"}
	keyHealth        = cache.Key{"health"}
	keyAPIKeys       = cache.Key{"api-keys"}
	keyACL           = cache.Key{"acl"}
	keyPreAuthKeys   = cache.Key{"preauth-keys"}
	keyPending       = cache.Key{"pending-registrations"}
	keyMachineDetail = cache.Key{"machine"}
)

func machineKey(id string) cache.Key { return cache.Key{"machine", id} }

func preAuthKey(user string) cache.Key { return cache.Key{"preauth-keys", user} }

// page builds the common template data for r.
func (s *Server) page(w http.ResponseWriter, r *http.Request, active, titleID string, data any) web.Page {
	sess := sessionFrom(r)
	tr := i18n.FromContext(r.Context())
	return web.Page{
		Title:     tr.T(titleID),
		Active:    active,
		Tr:        tr,
		Lang:      tr.Lang,
		CSRF:      sess.CSRF,
		LoggedIn:  sess.Token != "",
		Flash:     s.jar.popFlash(w, r),
		ServerURL: s.cfg.ServerURL(),
		Path:      r.URL.Path,
		Data:      data,
	}
}

func (s *Server) render(w http.ResponseWriter, status int, name string, p web.Page) {
	if err := s.views.Render(w, status, name, p); err != nil {
		s.logger.Error().Err(err).Str("page", name).Msg("render failed")
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

// refresh is the auto-refresh period of the live views, in seconds.
func (s *Server) refresh() int {
	sec := int(s.cfg.PollInterval.Seconds())
	if sec <= 0 {
		return 30
	}
	return sec
}

// client returns a headscale client authenticated as the session. A 401 from
// upstream drops the session cache.
func (s *Server) client(r *http.Request) (*headscale.Client, error) {
	base, err := s.cfg.APIBase()
	if err != nil {
		return nil, err
	}
	sess := sessionFrom(r)
	c := headscale.New(base, sess.Token)
	c.OnTokenInvalid = func() { s.caches.Drop(sess.ID) }
	return c, nil
}

func (s *Server) cacheFor(r *http.Request) *cache.Cache {
	return s.caches.Session(sessionFrom(r).ID)
}

// errorText maps an upstream failure to a user facing message.
func errorText(tr *i18n.Translator, err error) string {
	if errors.Is(err, config.ErrNoUpstream) {
		return tr.T("errors.noUpstream")
	}
	var apiErr *headscale.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Status {
		case 0:
			return tr.T("errors.network")
		case http.StatusNotFound:
			if apiErr.Message == "" {
				return tr.T("errors.notFound")
			}
		}
		return apiErr.Message
	}
	return err.Error()
}

func unauthorized(err error) bool {
	var apiErr *headscale.APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized
}

// relogin clears the session token and sends the browser to the login page.
func (s *Server) relogin(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	s.caches.Drop(sess.ID)
	next := &session{ID: sess.ID, CSRF: sess.CSRF}
	_ = s.jar.writeSession(w, next)
	tr := i18n.FromContext(r.Context())
	s.jar.setFlash(w, web.Flash{Kind: "error", Msg: tr.T("errors.sessionExpired")})
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

// fail handles a failed read on a page render: 401 goes back to login,
// anything else renders the page with the error toast.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	if unauthorized(err) {
		s.relogin(w, r)
		return
	}
	s.logger.Warn().Err(err).Str("path", r.URL.Path).Msg("headscale request failed")
	p := s.page(w, r, "", "nav.dashboard", nil)
	p.Error = errorText(p.Tr, err)
	s.render(w, http.StatusBadGateway, "error", p)
}

// done finishes a mutation: invalidate, flash and redirect back.
func (s *Server) done(w http.ResponseWriter, r *http.Request, to, msg string, keys ...cache.Key) {
	s.cacheFor(r).Invalidate(keys...)
	s.jar.setFlash(w, web.Flash{Kind: "success", Msg: msg})
	http.Redirect(w, r, to, http.StatusSeeOther)
}

// failMutation reports a failed mutation on the page the form came from.
func (s *Server) failMutation(w http.ResponseWriter, r *http.Request, to string, err error) {
	if unauthorized(err) {
		s.relogin(w, r)
		return
	}
	s.logger.Warn().Err(err).Str("path", r.URL.Path).Msg("headscale mutation failed")
	tr := i18n.FromContext(r.Context())
	s.jar.setFlash(w, web.Flash{Kind: "error", Msg: errorText(tr, err)})
	http.Redirect(w, r, to, http.StatusSeeOther)
}

// badInput flashes a validation error without calling upstream.
func (s *Server) badInput(w http.ResponseWriter, r *http.Request, to string, err error) {
	tr := i18n.FromContext(r.Context())
	s.jar.setFlash(w, web.Flash{Kind: "error", Msg: tr.T("errors.badRequest", map[string]any{"Detail": err.Error()})})
	http.Redirect(w, r, to, http.StatusSeeOther)
}
