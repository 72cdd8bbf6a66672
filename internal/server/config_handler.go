package server

import (
	"net/http"

	"github.com/QuocDuong16/headscale-dashboard/pkg/httpx"
)

// handleConfig exposes the headscale server URL for client setup commands.
func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"serverUrl": s.cfg.ServerURL()})
}
