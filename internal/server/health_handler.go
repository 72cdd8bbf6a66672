package server

import (
	"net/http"

	"github.com/QuocDuong16/headscale-dashboard/internal/poller"
	"github.com/QuocDuong16/headscale-dashboard/pkg/httpx"
)

type healthResponse struct {
	OK       bool           `json:"ok"`
	Version  string         `json:"version"`
	Upstream *poller.Status `json:"upstream,omitempty"`
}

// handleHealth reports liveness of the dashboard itself. The upstream status
// is the last background probe, present only when a probe key is configured.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{OK: true, Version: Version}
	if st, ok := s.monitor.Status(); ok {
		resp.Upstream = &st
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}
