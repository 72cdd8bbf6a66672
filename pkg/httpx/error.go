package httpx

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"
)

// WriteMessage writes the flat {"message": "..."} shape headscale itself uses,
// so proxy callers can read upstream and local failures the same way.
func WriteMessage(w http.ResponseWriter, statusCode int, message string) {
	WriteJSON(w, statusCode, map[string]any{"message": message})
}

func WriteJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to write json response")
	}
}
