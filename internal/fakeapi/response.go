package fakeapi

import (
	"net/http"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
)

// ErrorBody is the error shape of the orchestration service.
type ErrorBody struct {
	Detail string `json:"detail"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().
			Err(err).
			Int("status_code", status).
			Msg("failed to encode JSON response")
	}
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, ErrorBody{Detail: detail})
}
