package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/randytsao24/parkedup/internal/carpark"
	"github.com/randytsao24/parkedup/internal/favourites"
)

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("encoding JSON response", "error", err)
	}
}

func writeBadRequest(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusBadRequest, map[string]any{
		"error":   "Invalid request",
		"message": message,
	})
}

// writeError maps service errors to status codes
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, carpark.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]any{
			"error":   "Carpark not found",
			"message": err.Error(),
		})
	case errors.Is(err, favourites.ErrInvalidUser), errors.Is(err, favourites.ErrInvalidCarpark):
		writeBadRequest(w, err.Error())
	case errors.Is(err, carpark.ErrNoSnapshot):
		slog.Warn("carpark data unavailable", "path", r.URL.Path, "error", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"error":   "Carpark data unavailable",
			"message": "Carpark availability could not be loaded, try again shortly",
		})
	default:
		slog.Error("request failed", "path", r.URL.Path, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"error":   "Internal server error",
			"message": "Something went wrong",
		})
	}
}
