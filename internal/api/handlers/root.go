package handlers

import (
	"net/http"
)

type RootHandler struct{}

func NewRootHandler() *RootHandler {
	return &RootHandler{}
}

func (h *RootHandler) Index(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":        "parkedup",
		"description": "Find HDB carparks with free lots near you",
		"version":     "1.0.0",
		"endpoints": map[string]string{
			"GET /":                                   "API information",
			"GET /health":                             "Health check",
			"GET /carparks":                           "Search carparks (lat, lng, max_distance_km, min_lots, min_height, type, q, limit)",
			"GET /carparks/types":                     "Carpark types",
			"GET /carparks/nearest":                   "Nearest carparks (lat, lng, limit)",
			"GET /carparks/within":                    "Carparks in a map viewport (south, west, north, east)",
			"GET /carparks/{number}":                  "Carpark details",
			"GET /carparks/{number}/directions":       "Driving directions link (lat, lng)",
			"GET /favourites/{user}":                  "List favourites",
			"POST /favourites/{user}/{number}":        "Add favourite",
			"DELETE /favourites/{user}/{number}":      "Remove favourite",
			"POST /favourites/{user}/{number}/toggle": "Toggle favourite",
			"DELETE /favourites/{user}":               "Clear favourites",
		},
	})
}

func (h *RootHandler) NotFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, map[string]any{
		"error":   "Route not found",
		"message": "Check the root endpoint (/) for available routes",
	})
}
