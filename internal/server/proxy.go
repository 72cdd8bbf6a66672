package server

import (
	"encoding/json"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/QuocDuong16/headscale-dashboard/pkg/httpx"
)

const proxyPrefix = "/api/proxy/"

// handleProxy forwards ALL /api/proxy/{path} to {HEADSCALE_API_URL}/api/v1/{path}.
// Only the Authorization header is passed on. Responses are always JSON:
// upstream JSON is relayed as is, any other body becomes a JSON string.
func (s *Server) handleProxy(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	base, err := s.cfg.APIBase()
	if err != nil {
		s.logger.Error().Err(err).Msg("proxy: upstream not configured")
		httpx.WriteMessage(w, http.StatusInternalServerError, err.Error())
		return
	}

	target := base + "/" + strings.TrimPrefix(r.URL.EscapedPath(), proxyPrefix)
	if r.URL.RawQuery != "" {
		target += "?" + r.URL.RawQuery
	}

	var body io.Reader
	if r.Method != http.MethodGet && r.Method != http.MethodDelete && r.Method != http.MethodHead {
		body = r.Body
	}
	req, err := http.NewRequestWithContext(r.Context(), r.Method, target, body)
	if err != nil {
		httpx.WriteMessage(w, http.StatusInternalServerError, err.Error())
		return
	}
	req.Header.Set("Content-Type", "application/json")
	if auth := r.Header.Get("Authorization"); auth != "" {
		req.Header.Set("Authorization", auth)
	}

	s.logger.Info().Msgf("%s %s -> %s", r.Method, r.URL.Path, target)
	res, err := s.proxyHTTP.Do(req)
	if err != nil {
		s.metrics.ObserveProxy(r.Method, 0, start)
		s.logger.Error().Err(err).Str("target", target).Msg("proxy request failed")
		httpx.WriteMessage(w, http.StatusInternalServerError, err.Error())
		return
	}
	defer res.Body.Close()
	raw, err := io.ReadAll(res.Body)
	if err != nil {
		s.metrics.ObserveProxy(r.Method, 0, start)
		httpx.WriteMessage(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.metrics.ObserveProxy(r.Method, res.StatusCode, start)

	out := raw
	if !isJSON(res.Header.Get("Content-Type")) || !json.Valid(raw) {
		out, _ = json.Marshal(string(raw))
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(res.StatusCode)
	_, _ = w.Write(out)
}

func isJSON(contentType string) bool {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.Contains(contentType, "application/json")
	}
	return mt == "application/json" || strings.HasSuffix(mt, "+json")
}
