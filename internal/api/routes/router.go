package routes

import (
	"net/http"

	"github.com/clinicfinder/backend/internal/api/handlers"
	"github.com/clinicfinder/backend/internal/api/middleware"
	"github.com/clinicfinder/backend/internal/infrastructure/observability"
)

// Router holds all route handlers
type Router struct {
	mux *http.ServeMux

	placesHandler     *handlers.PlacesHandler
	directionsHandler *handlers.DirectionsHandler

	responseCache  *middleware.ResponseCache
	allowedOrigins []string
	metrics        *observability.Metrics
}

// NewRouter creates a new router. responseCache may be nil, which disables
// response caching on the cached listing.
func NewRouter(
	placesHandler *handlers.PlacesHandler,
	directionsHandler *handlers.DirectionsHandler,
	responseCache *middleware.ResponseCache,
	allowedOrigins []string,
	metrics *observability.Metrics,
) *Router {
	return &Router{
		mux:               http.NewServeMux(),
		placesHandler:     placesHandler,
		directionsHandler: directionsHandler,
		responseCache:     responseCache,
		allowedOrigins:    allowedOrigins,
		metrics:           metrics,
	}
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes() http.Handler {
	r.mux.HandleFunc("GET /health", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			return
		}
	})

	// Place discovery
	r.mux.HandleFunc("GET /api/places/nearby", r.placesHandler.Nearby)
	r.mux.Handle("GET /api/places/cached", r.responseCache.Middleware(http.HandlerFunc(r.placesHandler.Cached)))
	r.mux.HandleFunc("GET /api/places/details/{placeId}", r.placesHandler.Details)
	r.mux.HandleFunc("POST /api/places/search", r.placesHandler.Search)
	r.mux.HandleFunc("POST /api/places/geocode", r.placesHandler.Geocode)
	r.mux.HandleFunc("POST /api/places/persist", r.placesHandler.Persist)

	// Routing
	r.mux.HandleFunc("POST /api/directions", r.directionsHandler.GetDirections)

	// Apply middleware in reverse order (last middleware wraps first).
	// Observability sits directly on the mux so it can read the matched pattern.
	var handler http.Handler = r.mux
	handler = middleware.ObservabilityMiddleware(r.metrics)(handler)
	handler = middleware.LoggingMiddleware(handler)
	handler = middleware.CORSMiddleware(r.allowedOrigins)(handler)

	return handler
}
