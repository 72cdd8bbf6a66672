package server

import (
	"context"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/QuocDuong16/headscale-dashboard/internal/i18n"
	"github.com/QuocDuong16/headscale-dashboard/pkg/headscale"
)

type loginData struct {
	Error string
}

func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	if sessionFrom(r).Token != "" {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	s.render(w, http.StatusOK, "login", s.page(w, r, "", "login.title", loginData{}))
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// handleLogin checks the pasted API key against upstream and stores it in the
// session cookie. Attempts are limited per client IP.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	tr := i18n.FromContext(r.Context())
	fail := func(status int, msgID, result string) {
		s.metrics.ObserveLogin(result)
		s.render(w, status, "login", s.page(w, r, "", "login.title", loginData{Error: tr.T(msgID)}))
	}

	limit := s.cfg.RateLoginPer15m
	window := time.Duration(s.cfg.RateLoginWindowSec) * time.Second
	if limit > 0 && window > 0 {
		if ok, _, _ := s.limiter.Allow("login:"+clientIP(r), limit, window); !ok {
			s.logger.Warn().Str("ip", clientIP(r)).Msg("login rate limited")
			fail(http.StatusTooManyRequests, "errors.rateLimited", "limited")
			return
		}
	}

	token := strings.TrimSpace(r.PostFormValue("token"))
	if token == "" {
		fail(http.StatusBadRequest, "errors.tokenRequired", "empty")
		return
	}
	base, err := s.cfg.APIBase()
	if err != nil {
		fail(http.StatusInternalServerError, "errors.noUpstream", "error")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()
	if !headscale.TestToken(ctx, base, token) {
		fail(http.StatusUnauthorized, "errors.tokenInvalid", "invalid")
		return
	}

	s.limiter.Reset("login:" + clientIP(r))
	old := sessionFrom(r)
	s.caches.Drop(old.ID)
	next := newSession()
	next.Token = token
	if err := s.jar.writeSession(w, next); err != nil {
		s.logger.Error().Err(err).Msg("write session")
		fail(http.StatusInternalServerError, "errors.network", "error")
		return
	}
	s.metrics.ObserveLogin("ok")
	s.logger.Info().Str("ip", clientIP(r)).Msg("login")
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// handleLogout forgets the token and the session's cached data.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.caches.Drop(sessionFrom(r).ID)
	_ = s.jar.writeSession(w, newSession())
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}
