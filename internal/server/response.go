package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

const (
	kindInternal    = "internal"
	messageInternal = "Internal server error."
)

// errorResponse is the body of every failed API call.
type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Debug("failed to write response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message, kind string) {
	writeJSON(w, status, errorResponse{Error: message, Kind: kind})
}

func writeInternalError(w http.ResponseWriter) {
	writeError(w, http.StatusInternalServerError, messageInternal, kindInternal)
}
