package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"

	"github.com/cx-tal-miterani/booking-ledger/internal/idempotency"
	"github.com/cx-tal-miterani/booking-ledger/internal/ledger"
	"github.com/cx-tal-miterani/booking-ledger/internal/logger"
	"github.com/cx-tal-miterani/booking-ledger/internal/models"
	"github.com/cx-tal-miterani/booking-ledger/internal/query"
	"github.com/cx-tal-miterani/booking-ledger/internal/service"
)

const (
	// IdempotencyKeyHeader makes POST /api/bookings safe to retry
	IdempotencyKeyHeader = "Idempotency-Key"
	// ReplayedHeader is set on responses served from a stored idempotency key
	ReplayedHeader = "Idempotent-Replayed"

	maxBodyBytes = 1 << 20
)

// Handler contains HTTP handlers for the API
type Handler struct {
	bookingService service.BookingService
	validate       *validator.Validate
	log            *logger.Logger
}

// NewHandler creates a new Handler instance
func NewHandler(bookingService service.BookingService, log *logger.Logger) *Handler {
	return &Handler{
		bookingService: bookingService,
		validate:       validator.New(validator.WithRequiredStructEnabled()),
		log:            log,
	}
}

// Response helpers
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"message": message})
}

// StatusFor maps a ledger error kind to its HTTP status
func StatusFor(err error) int {
	switch {
	case errors.Is(err, ledger.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ledger.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, ledger.ErrConflict), errors.Is(err, ledger.ErrDuplicate), errors.Is(err, idempotency.ErrInProgress):
		return http.StatusConflict
	case errors.Is(err, ledger.ErrInvalidState), errors.Is(err, idempotency.ErrKeyReused):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ledger.ErrForbidden):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusFor(err)
	if status == http.StatusInternalServerError {
		h.log.Error("API", "request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		respondError(w, status, "internal error")
		return
	}
	respondError(w, status, err.Error())
}

// decode reads a JSON body strictly and runs the validator tags
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		respondError(w, http.StatusBadRequest, validationMessage(err))
		return false
	}
	return true
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err.Error()
	}
	fe := verrs[0]
	if fe.Param() != "" {
		return fmt.Sprintf("%s failed %s=%s", fe.Namespace(), fe.Tag(), fe.Param())
	}
	return fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag())
}

// queryParams reads q, status, page and pageSize
func queryParams(r *http.Request) (query.Params, error) {
	v := r.URL.Query()
	p := query.Params{Search: v.Get("q"), Status: v.Get("status")}
	for name, dst := range map[string]*int{"page": &p.Page, "pageSize": &p.PageSize} {
		raw := v.Get(name)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			return p, fmt.Errorf("%w: %s must be an integer", ledger.ErrInvalidArgument, name)
		}
		*dst = n
	}
	return p, nil
}

func (h *Handler) caller(w http.ResponseWriter, r *http.Request) (models.Caller, bool) {
	c, ok := CallerFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "missing caller identity")
	}
	return c, ok
}

// --- Bookings ---

// ListBookings handles GET /api/bookings
func (h *Handler) ListBookings(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	p, err := queryParams(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	page, err := h.bookingService.ListBookings(r.Context(), caller, p)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, page)
}

// CreateBooking handles POST /api/bookings
func (h *Handler) CreateBooking(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	var req models.CreateBookingRequest
	if !h.decode(w, r, &req) {
		return
	}

	booking, replayed, err := h.bookingService.CreateBooking(r.Context(), caller, &req, r.Header.Get(IdempotencyKeyHeader))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if replayed {
		w.Header().Set(ReplayedHeader, "true")
		respondJSON(w, http.StatusOK, booking)
		return
	}
	respondJSON(w, http.StatusCreated, booking)
}

// GetBooking handles GET /api/bookings/{id}
func (h *Handler) GetBooking(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	booking, err := h.bookingService.GetBooking(r.Context(), caller, mux.Vars(r)["id"])
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, booking)
}

// UpdateBooking handles PATCH /api/bookings/{id}
func (h *Handler) UpdateBooking(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	var req models.UpdateBookingRequest
	if !h.decode(w, r, &req) {
		return
	}
	booking, err := h.bookingService.UpdateBooking(r.Context(), caller, mux.Vars(r)["id"], &req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, booking)
}

// CancelBooking handles POST /api/bookings/{id}/cancel
func (h *Handler) CancelBooking(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	booking, err := h.bookingService.CancelBooking(r.Context(), caller, mux.Vars(r)["id"])
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, booking)
}

// DeleteBooking handles DELETE /api/bookings/{id}
func (h *Handler) DeleteBooking(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	if err := h.bookingService.DeleteBooking(r.Context(), caller, mux.Vars(r)["id"]); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AddPassenger handles POST /api/bookings/{id}/passengers
func (h *Handler) AddPassenger(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	var req models.PassengerRequest
	if !h.decode(w, r, &req) {
		return
	}
	passenger, err := h.bookingService.AddPassenger(r.Context(), caller, mux.Vars(r)["id"], &req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, passenger)
}

// --- Flights ---

// GetFlights handles GET /api/flights
func (h *Handler) GetFlights(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	p, err := queryParams(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	page, err := h.bookingService.GetFlights(r.Context(), caller, p)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, page)
}

// GetFlight handles GET /api/flights/{id}
func (h *Handler) GetFlight(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	flight, err := h.bookingService.GetFlight(r.Context(), caller, mux.Vars(r)["id"])
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, flight)
}

// CreateFlight handles POST /api/flights
func (h *Handler) CreateFlight(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	var req models.CreateFlightRequest
	if !h.decode(w, r, &req) {
		return
	}
	flight, err := h.bookingService.CreateFlight(r.Context(), caller, &req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, flight)
}

// UpdateFlight handles PATCH /api/flights/{id}
func (h *Handler) UpdateFlight(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	var req models.UpdateFlightRequest
	if !h.decode(w, r, &req) {
		return
	}
	flight, err := h.bookingService.UpdateFlight(r.Context(), caller, mux.Vars(r)["id"], &req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, flight)
}

// ReconcileFlight handles POST /api/flights/{id}/reconcile
func (h *Handler) ReconcileFlight(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	repair := false
	if raw := r.URL.Query().Get("repair"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			respondError(w, http.StatusBadRequest, "repair must be a boolean")
			return
		}
		repair = v
	}
	drift, err := h.bookingService.ReconcileFlight(r.Context(), caller, mux.Vars(r)["id"], repair)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, drift)
}

// --- Reference data ---

// GetUsers handles GET /api/users
func (h *Handler) GetUsers(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	p, err := queryParams(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	page, err := h.bookingService.GetUsers(r.Context(), caller, p)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, page)
}

// GetAirlines handles GET /api/airlines
func (h *Handler) GetAirlines(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	p, err := queryParams(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	page, err := h.bookingService.GetAirlines(r.Context(), caller, p)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, page)
}

// GetAirports handles GET /api/airports
func (h *Handler) GetAirports(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	p, err := queryParams(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	page, err := h.bookingService.GetAirports(r.Context(), caller, p)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, page)
}

// CreateAirline handles POST /api/airlines
func (h *Handler) CreateAirline(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	var req models.CreateAirlineRequest
	if !h.decode(w, r, &req) {
		return
	}
	airline, err := h.bookingService.CreateAirline(r.Context(), caller, &req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, airline)
}

// CreateAirport handles POST /api/airports
func (h *Handler) CreateAirport(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	var req models.CreateAirportRequest
	if !h.decode(w, r, &req) {
		return
	}
	airport, err := h.bookingService.CreateAirport(r.Context(), caller, &req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, airport)
}

// HealthCheck handles GET /health
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}
