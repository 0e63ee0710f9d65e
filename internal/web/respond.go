package web

import (
	"net/http"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
)

type errorResponse struct {
	Error string `json:"error"`
}

func respondJSON(w http.ResponseWriter, logger zerolog.Logger, status int, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to encode response")
		http.Error(w, `{"error":"failed to encode response"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

func respondError(w http.ResponseWriter, logger zerolog.Logger, status int, message string) {
	respondJSON(w, logger, status, errorResponse{Error: message})
}
