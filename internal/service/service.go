package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/cx-tal-miterani/booking-ledger/internal/catalog"
	"github.com/cx-tal-miterani/booking-ledger/internal/events"
	"github.com/cx-tal-miterani/booking-ledger/internal/idempotency"
	"github.com/cx-tal-miterani/booking-ledger/internal/ledger"
	"github.com/cx-tal-miterani/booking-ledger/internal/logger"
	"github.com/cx-tal-miterani/booking-ledger/internal/models"
	"github.com/cx-tal-miterani/booking-ledger/internal/query"
	"github.com/cx-tal-miterani/booking-ledger/internal/tracing"
)

// BookingService is what the HTTP handlers depend on. Ids arrive as strings
// and are parsed here; every call carries the caller it acts for.
type BookingService interface {
	CreateBooking(ctx context.Context, caller models.Caller, req *models.CreateBookingRequest, idempotencyKey string) (*models.Booking, bool, error)
	GetBooking(ctx context.Context, caller models.Caller, bookingID string) (*models.BookingView, error)
	ListBookings(ctx context.Context, caller models.Caller, p query.Params) (query.Page[models.BookingView], error)
	UpdateBooking(ctx context.Context, caller models.Caller, bookingID string, req *models.UpdateBookingRequest) (*models.Booking, error)
	CancelBooking(ctx context.Context, caller models.Caller, bookingID string) (*models.Booking, error)
	DeleteBooking(ctx context.Context, caller models.Caller, bookingID string) error
	AddPassenger(ctx context.Context, caller models.Caller, bookingID string, req *models.PassengerRequest) (*models.Passenger, error)

	GetFlights(ctx context.Context, caller models.Caller, p query.Params) (query.Page[models.FlightView], error)
	GetFlight(ctx context.Context, caller models.Caller, flightID string) (*models.FlightView, error)
	CreateFlight(ctx context.Context, caller models.Caller, req *models.CreateFlightRequest) (*models.Flight, error)
	UpdateFlight(ctx context.Context, caller models.Caller, flightID string, req *models.UpdateFlightRequest) (*models.Flight, error)
	ReconcileFlight(ctx context.Context, caller models.Caller, flightID string, repair bool) (*ledger.Drift, error)

	GetUsers(ctx context.Context, caller models.Caller, p query.Params) (query.Page[models.User], error)
	GetAirlines(ctx context.Context, caller models.Caller, p query.Params) (query.Page[models.Airline], error)
	GetAirports(ctx context.Context, caller models.Caller, p query.Params) (query.Page[models.Airport], error)
	CreateAirline(ctx context.Context, caller models.Caller, req *models.CreateAirlineRequest) (*models.Airline, error)
	CreateAirport(ctx context.Context, caller models.Caller, req *models.CreateAirportRequest) (*models.Airport, error)
}

// bookingServiceImpl implements BookingService
type bookingServiceImpl struct {
	ledger      *ledger.Ledger
	catalog     *catalog.Catalog
	idempotency idempotency.Store
	publisher   events.Publisher
	log         *logger.Logger
}

// NewBookingService creates a new BookingService
func NewBookingService(l *ledger.Ledger, c *catalog.Catalog, keys idempotency.Store, publisher events.Publisher, log *logger.Logger) BookingService {
	return &bookingServiceImpl{
		ledger:      l,
		catalog:     c,
		idempotency: keys,
		publisher:   publisher,
		log:         log,
	}
}

// CreateBooking books seats. With an idempotency key, a repeated request
// returns the booking created by the first one and reports replayed=true.
// Reusing a key with a different body fails with idempotency.ErrKeyReused.
func (s *bookingServiceImpl) CreateBooking(ctx context.Context, caller models.Caller, req *models.CreateBookingRequest, idempotencyKey string) (*models.Booking, bool, error) {
	userID, err := parseID("user_id", req.UserID)
	if err != nil {
		return nil, false, err
	}
	flightID, err := parseID("flight_id", req.FlightID)
	if err != nil {
		return nil, false, err
	}

	var key, fingerprint string
	if idempotencyKey != "" {
		key = caller.UserID.String() + ":" + idempotencyKey
		if fingerprint, err = idempotency.Fingerprint(req); err != nil {
			return nil, false, fmt.Errorf("fingerprint request: %w", err)
		}
		existing, err := s.idempotency.Reserve(ctx, key, fingerprint)
		if err != nil {
			return nil, false, err
		}
		if existing != "" {
			view, err := s.GetBooking(ctx, caller, existing)
			if err != nil {
				return nil, false, err
			}
			s.log.Info("SERVICE", "idempotent replay", "key", idempotencyKey, "booking_id", existing)
			return &view.Booking, true, nil
		}
	}

	res, err := s.ledger.CreateBooking(ctx, caller, ledger.NewBooking{
		UserID:          userID,
		FlightID:        flightID,
		TotalPassengers: req.TotalPassengers,
		Passengers:      req.Passengers,
	})
	if err != nil {
		if key != "" {
			if relErr := s.idempotency.Release(ctx, key); relErr != nil {
				s.log.Warn("SERVICE", "failed to release idempotency key", "key", idempotencyKey, "error", relErr)
			}
		}
		return nil, false, err
	}

	if key != "" {
		if err := s.idempotency.Complete(ctx, key, fingerprint, res.Booking.ID.String()); err != nil {
			s.log.Warn("SERVICE", "failed to record idempotency key", "key", idempotencyKey, "error", err)
		}
	}

	tracing.Annotate(ctx,
		attribute.String("booking.id", res.Booking.ID.String()),
		attribute.String("booking.reference", res.Booking.Reference),
		attribute.String("flight.id", res.Booking.FlightID.String()),
	)
	s.publish(ctx, events.ForBooking(events.BookingCreated, res.Booking, res.Flight))
	return res.Booking, false, nil
}

func (s *bookingServiceImpl) GetBooking(ctx context.Context, caller models.Caller, bookingID string) (*models.BookingView, error) {
	id, err := parseID("booking id", bookingID)
	if err != nil {
		return nil, err
	}
	return s.ledger.GetBooking(ctx, caller, id)
}

func (s *bookingServiceImpl) ListBookings(ctx context.Context, caller models.Caller, p query.Params) (query.Page[models.BookingView], error) {
	return s.ledger.ListBookings(ctx, caller, p)
}

func (s *bookingServiceImpl) UpdateBooking(ctx context.Context, caller models.Caller, bookingID string, req *models.UpdateBookingRequest) (*models.Booking, error) {
	id, err := parseID("booking id", bookingID)
	if err != nil {
		return nil, err
	}
	res, err := s.ledger.UpdateBooking(ctx, caller, id, ledger.BookingUpdate{
		TotalPassengers: req.TotalPassengers,
		TotalAmount:     req.TotalAmount,
	})
	if err != nil {
		return nil, err
	}
	if res.Changed {
		s.publish(ctx, events.ForBooking(events.BookingUpdated, res.Booking, res.Flight))
	}
	return res.Booking, nil
}

// CancelBooking is idempotent; only the first call publishes an event
func (s *bookingServiceImpl) CancelBooking(ctx context.Context, caller models.Caller, bookingID string) (*models.Booking, error) {
	id, err := parseID("booking id", bookingID)
	if err != nil {
		return nil, err
	}
	res, err := s.ledger.CancelBooking(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	if res.Changed {
		s.publish(ctx, events.ForBooking(events.BookingCancelled, res.Booking, res.Flight))
	}
	return res.Booking, nil
}

func (s *bookingServiceImpl) DeleteBooking(ctx context.Context, caller models.Caller, bookingID string) error {
	id, err := parseID("booking id", bookingID)
	if err != nil {
		return err
	}
	res, err := s.ledger.DeleteBooking(ctx, caller, id)
	if err != nil {
		return err
	}
	s.publish(ctx, events.ForBooking(events.BookingDeleted, res.Booking, nil))
	return nil
}

func (s *bookingServiceImpl) AddPassenger(ctx context.Context, caller models.Caller, bookingID string, req *models.PassengerRequest) (*models.Passenger, error) {
	id, err := parseID("booking id", bookingID)
	if err != nil {
		return nil, err
	}
	return s.ledger.AddPassenger(ctx, caller, id, *req)
}

// --- Flights ---

func (s *bookingServiceImpl) GetFlights(ctx context.Context, caller models.Caller, p query.Params) (query.Page[models.FlightView], error) {
	return s.catalog.Flights(ctx, caller, p)
}

func (s *bookingServiceImpl) GetFlight(ctx context.Context, caller models.Caller, flightID string) (*models.FlightView, error) {
	id, err := parseID("flight id", flightID)
	if err != nil {
		return nil, err
	}
	return s.catalog.Flight(ctx, caller, id)
}

func (s *bookingServiceImpl) CreateFlight(ctx context.Context, caller models.Caller, req *models.CreateFlightRequest) (*models.Flight, error) {
	ids := make([]uuid.UUID, 3)
	for i, field := range []struct{ name, value string }{
		{"airline_id", req.AirlineID},
		{"origin_airport_id", req.OriginAirportID},
		{"destination_airport_id", req.DestinationAirportID},
	} {
		id, err := parseID(field.name, field.value)
		if err != nil {
			return nil, err
		}
		ids[i] = id
	}

	return s.ledger.CreateFlight(ctx, caller, ledger.NewFlight{
		FlightNumber:         req.FlightNumber,
		AirlineID:            ids[0],
		OriginAirportID:      ids[1],
		DestinationAirportID: ids[2],
		DepartureTime:        req.DepartureTime,
		ArrivalTime:          req.ArrivalTime,
		Price:                req.Price,
		TotalSeats:           req.TotalSeats,
		Publication:          req.Publication,
	})
}

func (s *bookingServiceImpl) UpdateFlight(ctx context.Context, caller models.Caller, flightID string, req *models.UpdateFlightRequest) (*models.Flight, error) {
	id, err := parseID("flight id", flightID)
	if err != nil {
		return nil, err
	}
	flight, err := s.ledger.UpdateFlight(ctx, caller, id, ledger.FlightPatch{
		Price:          req.Price,
		DepartureTime:  req.DepartureTime,
		ArrivalTime:    req.ArrivalTime,
		Status:         req.Status,
		Publication:    req.Publication,
		SeatsAvailable: req.SeatsAvailable,
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, events.ForFlight(events.FlightUpdated, flight))
	return flight, nil
}

func (s *bookingServiceImpl) ReconcileFlight(ctx context.Context, caller models.Caller, flightID string, repair bool) (*ledger.Drift, error) {
	id, err := parseID("flight id", flightID)
	if err != nil {
		return nil, err
	}
	drift, flight, err := s.ledger.Reconcile(ctx, caller, id, repair)
	if err != nil {
		return nil, err
	}
	if drift.Repaired {
		s.publish(ctx, events.ForFlight(events.FlightReconciled, flight))
	}
	return drift, nil
}

// --- Reference data ---

func (s *bookingServiceImpl) GetUsers(ctx context.Context, caller models.Caller, p query.Params) (query.Page[models.User], error) {
	return s.catalog.Users(ctx, caller, p)
}

func (s *bookingServiceImpl) GetAirlines(ctx context.Context, caller models.Caller, p query.Params) (query.Page[models.Airline], error) {
	return s.catalog.Airlines(ctx, caller, p)
}

func (s *bookingServiceImpl) GetAirports(ctx context.Context, caller models.Caller, p query.Params) (query.Page[models.Airport], error) {
	return s.catalog.Airports(ctx, caller, p)
}

func (s *bookingServiceImpl) CreateAirline(ctx context.Context, caller models.Caller, req *models.CreateAirlineRequest) (*models.Airline, error) {
	return s.catalog.CreateAirline(ctx, caller, *req)
}

func (s *bookingServiceImpl) CreateAirport(ctx context.Context, caller models.Caller, req *models.CreateAirportRequest) (*models.Airport, error) {
	return s.catalog.CreateAirport(ctx, caller, *req)
}

// publish runs after the ledger transaction has committed, so a failing sink
// is logged and never reported to the caller
func (s *bookingServiceImpl) publish(ctx context.Context, e events.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(context.WithoutCancel(ctx), e); err != nil {
		s.log.Warn("EVENTS", "event not fully delivered", "type", e.Type, "event_id", e.ID, "error", err)
	}
}

func parseID(field, raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: malformed %s %q", ledger.ErrInvalidArgument, field, raw)
	}
	return id, nil
}
