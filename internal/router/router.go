package router

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/cx-tal-miterani/booking-ledger/internal/handlers"
	"github.com/cx-tal-miterani/booking-ledger/internal/logger"
	"github.com/cx-tal-miterani/booking-ledger/internal/websocket"
)

// Options configures the middleware chain
type Options struct {
	Log *logger.Logger
	// RateLimit and Burst bound requests per second across the server.
	// A zero RateLimit disables limiting.
	RateLimit float64
	Burst     int
}

// SetupRouter creates and configures the HTTP router
func SetupRouter(h *handlers.Handler, hub *websocket.Hub, opts Options) *mux.Router {
	log := opts.Log
	if log == nil {
		log = logger.Nop()
	}

	r := mux.NewRouter()

	r.Use(requestIDMiddleware)
	r.Use(corsMiddleware)
	if opts.RateLimit > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = int(opts.RateLimit)
		}
		r.Use(rateLimitMiddleware(rate.NewLimiter(rate.Limit(opts.RateLimit), burst), log))
	}
	r.Use(observeMiddleware(log))

	// Health and metrics
	r.HandleFunc("/health", h.HealthCheck).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	// WebSocket seat updates
	if hub != nil {
		r.HandleFunc("/ws/flights/{id}", hub.ServeWS).Methods(http.MethodGet)
	}

	// API routes
	api := r.PathPrefix("/api").Subrouter()
	api.Use(handlers.Identity)

	// Bookings
	api.HandleFunc("/bookings", h.ListBookings).Methods(http.MethodGet)
	api.HandleFunc("/bookings", h.CreateBooking).Methods(http.MethodPost)
	api.HandleFunc("/bookings/{id}", h.GetBooking).Methods(http.MethodGet)
	api.HandleFunc("/bookings/{id}", h.UpdateBooking).Methods(http.MethodPatch)
	api.HandleFunc("/bookings/{id}", h.DeleteBooking).Methods(http.MethodDelete)
	api.HandleFunc("/bookings/{id}/cancel", h.CancelBooking).Methods(http.MethodPost)
	api.HandleFunc("/bookings/{id}/passengers", h.AddPassenger).Methods(http.MethodPost)

	// Flights
	api.HandleFunc("/flights", h.GetFlights).Methods(http.MethodGet)
	api.HandleFunc("/flights", h.CreateFlight).Methods(http.MethodPost)
	api.HandleFunc("/flights/{id}", h.GetFlight).Methods(http.MethodGet)
	api.HandleFunc("/flights/{id}", h.UpdateFlight).Methods(http.MethodPatch)
	api.HandleFunc("/flights/{id}/reconcile", h.ReconcileFlight).Methods(http.MethodPost)

	// Reference data
	api.HandleFunc("/users", h.GetUsers).Methods(http.MethodGet)
	api.HandleFunc("/airlines", h.GetAirlines).Methods(http.MethodGet)
	api.HandleFunc("/airlines", h.CreateAirline).Methods(http.MethodPost)
	api.HandleFunc("/airports", h.GetAirports).Methods(http.MethodGet)
	api.HandleFunc("/airports", h.CreateAirport).Methods(http.MethodPost)

	// Preflight requests are answered by corsMiddleware; this route only
	// makes them match so the middleware runs.
	r.PathPrefix("/").Methods(http.MethodOptions).HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})

	return r
}
