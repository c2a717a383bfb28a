package api

import (
	"net/http"
	"time"

	"github.com/randytsao24/parkedup/internal/api/handlers"
	"github.com/randytsao24/parkedup/internal/config"
)

// NewRouter creates and configures the HTTP router with all routes and middleware
func NewRouter(
	cfg *config.Config,
	carparks handlers.CarparkProvider,
	status handlers.StatusProvider,
	favourites handlers.FavouritesProvider,
) http.Handler {
	mux := http.NewServeMux()

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler(status)
	rootHandler := handlers.NewRootHandler()
	carparkHandler := handlers.NewCarparkHandler(carparks, cfg.DefaultMaxDistanceKm)
	favouritesHandler := handlers.NewFavouritesHandler(favourites)

	// Core routes
	mux.HandleFunc("GET /{$}", rootHandler.Index)
	mux.HandleFunc("GET /api", rootHandler.Index)
	mux.HandleFunc("GET /health", healthHandler.Health)
	mux.HandleFunc("/", rootHandler.NotFound)

	// Carpark routes
	mux.HandleFunc("GET /carparks", carparkHandler.Search)
	mux.HandleFunc("GET /carparks/types", carparkHandler.Types)
	mux.HandleFunc("GET /carparks/nearest", carparkHandler.Nearest)
	mux.HandleFunc("GET /carparks/within", carparkHandler.Within)
	mux.HandleFunc("GET /carparks/{number}", carparkHandler.Get)
	mux.HandleFunc("GET /carparks/{number}/directions", carparkHandler.Directions)

	// Favourites routes
	mux.HandleFunc("GET /favourites/{user}", favouritesHandler.List)
	mux.HandleFunc("DELETE /favourites/{user}", favouritesHandler.Clear)
	mux.HandleFunc("POST /favourites/{user}/{number}", favouritesHandler.Add)
	mux.HandleFunc("DELETE /favourites/{user}/{number}", favouritesHandler.Remove)
	mux.HandleFunc("POST /favourites/{user}/{number}/toggle", favouritesHandler.Toggle)

	timeout := cfg.HTTPTimeout + 5*time.Second
	if cfg.HTTPTimeout <= 0 {
		timeout = 15 * time.Second
	}

	// Apply middleware stack
	handler := Chain(mux,
		RequestID,
		Recovery,
		Logging,
		CORS,
		Timeout(timeout),
	)

	return handler
}
