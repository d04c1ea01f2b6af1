// Package ledger is the authoritative record of bookings and of the seat
// counts they consume. Every mutation runs in one store transaction so the
// booking row and the flight's seats_available counter always move together.
package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/cx-tal-miterani/booking-ledger/internal/logger"
	"github.com/cx-tal-miterani/booking-ledger/internal/models"
	"github.com/cx-tal-miterani/booking-ledger/internal/pricing"
	"github.com/cx-tal-miterani/booking-ledger/internal/query"
)

// Ledger applies booking and inventory operations on behalf of a caller
type Ledger struct {
	store        Store
	log          *logger.Logger
	now          func() time.Time
	newReference func() (string, error)
}

type Option func(*Ledger)

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// WithReferenceGenerator overrides how booking references are minted
func WithReferenceGenerator(fn func() (string, error)) Option {
	return func(l *Ledger) { l.newReference = fn }
}

// New creates a ledger over store
func New(store Store, log *logger.Logger, opts ...Option) *Ledger {
	l := &Ledger{
		store:        store,
		log:          log,
		now:          func() time.Time { return time.Now().UTC() },
		newReference: NewReference,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// NewBooking is the input to CreateBooking
type NewBooking struct {
	UserID          uuid.UUID
	FlightID        uuid.UUID
	TotalPassengers int
	Passengers      []models.PassengerRequest
}

// BookingUpdate is a partial update. TotalAmount is an admin override.
type BookingUpdate struct {
	TotalPassengers *int
	TotalAmount     *decimal.Decimal
}

// Result is a committed booking mutation. Flight is the flight state the
// mutation left behind and is nil when the flight was not touched.
type Result struct {
	Booking *models.Booking
	Flight  *models.Flight
	Changed bool
}

// CreateBooking reserves seats on a published flight and records the booking
func (l *Ledger) CreateBooking(ctx context.Context, caller models.Caller, in NewBooking) (*Result, error) {
	if !caller.CanActFor(in.UserID) {
		return nil, fmt.Errorf("%w: cannot book on behalf of user %s", ErrForbidden, in.UserID)
	}
	if in.TotalPassengers < 1 {
		return nil, fmt.Errorf("%w: total_passengers must be at least 1", ErrInvalidArgument)
	}
	if len(in.Passengers) > in.TotalPassengers {
		return nil, fmt.Errorf("%w: %d passengers attached to a booking for %d",
			ErrInvalidArgument, len(in.Passengers), in.TotalPassengers)
	}
	for i, p := range in.Passengers {
		if err := validatePassenger(p); err != nil {
			return nil, fmt.Errorf("passenger %d: %w", i+1, err)
		}
	}

	var res Result
	err := l.store.WithinTx(ctx, func(ctx context.Context, tx Tx) error {
		ok, err := tx.UserExists(ctx, in.UserID)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: user %s", ErrNotFound, in.UserID)
		}

		flight, err := tx.LockFlight(ctx, in.FlightID)
		if err != nil {
			return notFound(err, "flight", in.FlightID)
		}
		if !flight.Published() {
			return fmt.Errorf("%w: flight %s", ErrNotFound, in.FlightID)
		}
		if !flight.Operating() {
			return fmt.Errorf("%w: flight %s is %s", ErrInvalidState, flight.FlightNumber, flight.Status)
		}
		if flight.SeatsAvailable < in.TotalPassengers {
			return fmt.Errorf("%w: not enough seats on flight %s: %d requested, %d available",
				ErrConflict, flight.FlightNumber, in.TotalPassengers, flight.SeatsAvailable)
		}

		ref, err := l.reference(ctx, tx)
		if err != nil {
			return err
		}

		now := l.now()
		booking := &models.Booking{
			ID:              uuid.New(),
			Reference:       ref,
			UserID:          in.UserID,
			FlightID:        flight.ID,
			TotalPassengers: in.TotalPassengers,
			TotalAmount:     pricing.Amount(flight.Price, in.TotalPassengers),
			Status:          models.BookingStatusConfirmed,
			BookingDate:     now,
			UpdatedAt:       now,
			Passengers:      []models.Passenger{},
		}
		if err := tx.InsertBooking(ctx, booking); err != nil {
			if errors.Is(err, ErrDuplicate) {
				return fmt.Errorf("%w: booking reference %s already taken", ErrConflict, ref)
			}
			return err
		}
		for _, p := range in.Passengers {
			passenger := newPassenger(booking.ID, p, now)
			if err := tx.InsertPassenger(ctx, &passenger); err != nil {
				return err
			}
			booking.Passengers = append(booking.Passengers, passenger)
		}

		flight.SeatsAvailable -= in.TotalPassengers
		flight.UpdatedAt = now
		if err := tx.UpdateFlight(ctx, flight); err != nil {
			return err
		}

		res = Result{Booking: booking, Flight: flight, Changed: true}
		return nil
	})
	if err != nil {
		return nil, err
	}

	l.log.Info("LEDGER", "booking created",
		"booking_id", res.Booking.ID, "reference", res.Booking.Reference,
		"flight_id", res.Flight.ID, "passengers", res.Booking.TotalPassengers,
		"amount", res.Booking.TotalAmount, "seats_available", res.Flight.SeatsAvailable)
	return &res, nil
}

// CancelBooking flips a booking to Cancelled and restores its seats. A booking
// that is already cancelled is returned unchanged, so seats are restored at
// most once.
func (l *Ledger) CancelBooking(ctx context.Context, caller models.Caller, id uuid.UUID) (*Result, error) {
	var res Result
	err := l.store.WithinTx(ctx, func(ctx context.Context, tx Tx) error {
		booking, err := tx.LockBooking(ctx, id)
		if err != nil {
			return notFound(err, "booking", id)
		}
		if !caller.CanActFor(booking.UserID) {
			return fmt.Errorf("%w: booking %s belongs to another user", ErrForbidden, id)
		}
		if booking.Cancelled() {
			res = Result{Booking: booking}
			return nil
		}

		flight, err := tx.LockFlight(ctx, booking.FlightID)
		if err != nil {
			return notFound(err, "flight", booking.FlightID)
		}

		restored := flight.SeatsAvailable + booking.TotalPassengers
		if restored > flight.TotalSeats {
			l.log.Warn("LEDGER", "seat restore clamped to total seats",
				"flight_id", flight.ID, "booking_id", booking.ID,
				"restored", restored, "total_seats", flight.TotalSeats)
			restored = flight.TotalSeats
		}

		now := l.now()
		flight.SeatsAvailable = restored
		flight.UpdatedAt = now
		booking.Status = models.BookingStatusCancelled
		booking.CancelledAt = &now
		booking.UpdatedAt = now

		if err := tx.UpdateBooking(ctx, booking); err != nil {
			return err
		}
		if err := tx.UpdateFlight(ctx, flight); err != nil {
			return err
		}

		res = Result{Booking: booking, Flight: flight, Changed: true}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if res.Changed {
		l.log.Info("LEDGER", "booking cancelled",
			"booking_id", id, "reference", res.Booking.Reference,
			"seats_available", res.Flight.SeatsAvailable)
	} else {
		l.log.Debug("LEDGER", "booking already cancelled", "booking_id", id)
	}
	return &res, nil
}

// UpdateBooking changes the passenger count, moving the seat delta between the
// booking and its flight and repricing at the flight's current price. An
// explicit TotalAmount replaces the computed amount and is audited.
func (l *Ledger) UpdateBooking(ctx context.Context, caller models.Caller, id uuid.UUID, in BookingUpdate) (*Result, error) {
	if in.TotalPassengers == nil && in.TotalAmount == nil {
		return nil, fmt.Errorf("%w: nothing to update", ErrInvalidArgument)
	}
	if in.TotalPassengers != nil && *in.TotalPassengers < 1 {
		return nil, fmt.Errorf("%w: total_passengers must be at least 1", ErrInvalidArgument)
	}
	if in.TotalAmount != nil {
		if !caller.IsAdmin() {
			return nil, fmt.Errorf("%w: only admins may override total_amount", ErrForbidden)
		}
		if in.TotalAmount.IsNegative() {
			return nil, fmt.Errorf("%w: total_amount must not be negative", ErrInvalidArgument)
		}
	}

	var res Result
	err := l.store.WithinTx(ctx, func(ctx context.Context, tx Tx) error {
		booking, err := tx.LockBooking(ctx, id)
		if err != nil {
			return notFound(err, "booking", id)
		}
		if !caller.CanActFor(booking.UserID) {
			return fmt.Errorf("%w: booking %s belongs to another user", ErrForbidden, id)
		}
		if booking.Cancelled() {
			return fmt.Errorf("%w: booking %s is cancelled", ErrInvalidState, booking.Reference)
		}

		flight, err := tx.LockFlight(ctx, booking.FlightID)
		if err != nil {
			return notFound(err, "flight", booking.FlightID)
		}

		passengers := booking.TotalPassengers
		if in.TotalPassengers != nil {
			passengers = *in.TotalPassengers
		}
		delta := passengers - booking.TotalPassengers

		switch {
		case delta > 0:
			if !flight.Published() {
				return fmt.Errorf("%w: flight %s", ErrNotFound, flight.ID)
			}
			if !flight.Operating() {
				return fmt.Errorf("%w: flight %s is %s", ErrInvalidState, flight.FlightNumber, flight.Status)
			}
			if flight.SeatsAvailable < delta {
				return fmt.Errorf("%w: not enough seats on flight %s: %d more requested, %d available",
					ErrConflict, flight.FlightNumber, delta, flight.SeatsAvailable)
			}
		case delta < 0:
			attached, err := tx.CountPassengers(ctx, booking.ID)
			if err != nil {
				return err
			}
			if attached > passengers {
				return fmt.Errorf("%w: booking has %d passengers attached, cannot reduce to %d",
					ErrInvalidArgument, attached, passengers)
			}
		}

		now := l.now()
		before := booking.TotalAmount
		if in.TotalPassengers != nil {
			booking.TotalAmount = pricing.Amount(flight.Price, passengers)
		}
		if in.TotalAmount != nil {
			booking.TotalAmount = pricing.Normalize(*in.TotalAmount)
			if err := l.audit(ctx, tx, caller, "booking.amount_override", "booking", booking.ID,
				map[string]any{"total_amount": before}, map[string]any{"total_amount": booking.TotalAmount}); err != nil {
				return err
			}
		}
		changed := delta != 0 || !before.Equal(booking.TotalAmount)
		booking.TotalPassengers = passengers
		booking.UpdatedAt = now
		if err := tx.UpdateBooking(ctx, booking); err != nil {
			return err
		}

		if delta != 0 {
			seats := flight.SeatsAvailable - delta
			if seats > flight.TotalSeats {
				seats = flight.TotalSeats
			}
			flight.SeatsAvailable = seats
			flight.UpdatedAt = now
			if err := tx.UpdateFlight(ctx, flight); err != nil {
				return err
			}
		}

		res = Result{Booking: booking, Flight: flight, Changed: changed}
		return nil
	})
	if err != nil {
		return nil, err
	}

	l.log.Info("LEDGER", "booking updated",
		"booking_id", id, "passengers", res.Booking.TotalPassengers,
		"amount", res.Booking.TotalAmount, "seats_available", res.Flight.SeatsAvailable)
	return &res, nil
}

// DeleteBooking hard-deletes a booking. It is an administrative correction,
// not a cancellation: seats are left as they are and Reconcile reports any
// resulting drift.
func (l *Ledger) DeleteBooking(ctx context.Context, caller models.Caller, id uuid.UUID) (*Result, error) {
	if !caller.IsAdmin() {
		return nil, fmt.Errorf("%w: only admins may delete bookings", ErrForbidden)
	}

	var res Result
	err := l.store.WithinTx(ctx, func(ctx context.Context, tx Tx) error {
		booking, err := tx.LockBooking(ctx, id)
		if err != nil {
			return notFound(err, "booking", id)
		}
		if err := tx.DeleteBooking(ctx, id); err != nil {
			return notFound(err, "booking", id)
		}
		if err := l.audit(ctx, tx, caller, "booking.delete", "booking", id, booking, nil); err != nil {
			return err
		}
		res = Result{Booking: booking, Changed: true}
		return nil
	})
	if err != nil {
		return nil, err
	}

	l.log.Warn("LEDGER", "booking deleted",
		"booking_id", id, "reference", res.Booking.Reference, "status", res.Booking.Status,
		"actor", caller.UserID)
	return &res, nil
}

// AddPassenger attaches a passenger to a confirmed booking. A booking never
// carries more passengers than its total_passengers.
func (l *Ledger) AddPassenger(ctx context.Context, caller models.Caller, bookingID uuid.UUID, in models.PassengerRequest) (*models.Passenger, error) {
	if err := validatePassenger(in); err != nil {
		return nil, err
	}

	var passenger models.Passenger
	err := l.store.WithinTx(ctx, func(ctx context.Context, tx Tx) error {
		booking, err := tx.LockBooking(ctx, bookingID)
		if err != nil {
			return notFound(err, "booking", bookingID)
		}
		if !caller.CanActFor(booking.UserID) {
			return fmt.Errorf("%w: booking %s belongs to another user", ErrForbidden, bookingID)
		}
		if booking.Cancelled() {
			return fmt.Errorf("%w: booking %s is cancelled", ErrInvalidState, booking.Reference)
		}

		attached, err := tx.CountPassengers(ctx, bookingID)
		if err != nil {
			return err
		}
		if attached >= booking.TotalPassengers {
			return fmt.Errorf("%w: booking %s already has %d of %d passengers",
				ErrConflict, booking.Reference, attached, booking.TotalPassengers)
		}

		passenger = newPassenger(bookingID, in, l.now())
		return tx.InsertPassenger(ctx, &passenger)
	})
	if err != nil {
		return nil, err
	}
	return &passenger, nil
}

// GetBooking returns the denormalized booking
func (l *Ledger) GetBooking(ctx context.Context, caller models.Caller, id uuid.UUID) (*models.BookingView, error) {
	view, err := l.store.BookingView(ctx, id)
	if err != nil {
		return nil, notFound(err, "booking", id)
	}
	if !caller.CanActFor(view.UserID) {
		return nil, fmt.Errorf("%w: booking %s belongs to another user", ErrForbidden, id)
	}
	return view, nil
}

// ListBookings returns one page of bookings in (booking_date, id) order.
// Customers only see their own bookings.
func (l *Ledger) ListBookings(ctx context.Context, caller models.Caller, p query.Params) (query.Page[models.BookingView], error) {
	p = p.Normalize()
	q := BookingQuery{Params: p}
	if !caller.IsAdmin() {
		if caller.UserID == uuid.Nil {
			return query.Page[models.BookingView]{}, fmt.Errorf("%w: caller has no identity", ErrForbidden)
		}
		owner := caller.UserID
		q.UserID = &owner
	}

	items, total, err := l.store.ListBookings(ctx, q)
	if err != nil {
		return query.Page[models.BookingView]{}, err
	}
	return query.NewPage(items, total, p), nil
}

// SearchBookings matches q case-insensitively against the reference and the
// names and emails of attached passengers
func (l *Ledger) SearchBookings(ctx context.Context, caller models.Caller, q string, page, pageSize int) (query.Page[models.BookingView], error) {
	return l.ListBookings(ctx, caller, query.Params{Search: q, Page: page, PageSize: pageSize})
}

func (l *Ledger) reference(ctx context.Context, tx Tx) (string, error) {
	for i := 0; i < referenceAttempts; i++ {
		ref, err := l.newReference()
		if err != nil {
			return "", err
		}
		taken, err := tx.ReferenceTaken(ctx, ref)
		if err != nil {
			return "", err
		}
		if !taken {
			return ref, nil
		}
	}
	return "", fmt.Errorf("%w: could not allocate a unique booking reference", ErrConflict)
}

func (l *Ledger) audit(ctx context.Context, tx Tx, caller models.Caller, action, resource string, id uuid.UUID, before, after any) error {
	entry := &models.AuditEntry{
		ID:           uuid.New(),
		ActorID:      caller.UserID,
		Action:       action,
		ResourceType: resource,
		ResourceID:   id,
		Before:       marshalAudit(before),
		After:        marshalAudit(after),
		CreatedAt:    l.now(),
	}
	if err := tx.InsertAudit(ctx, entry); err != nil {
		return fmt.Errorf("failed to write audit entry: %w", err)
	}
	return nil
}

func marshalAudit(v any) string {
	if v == nil {
		return ""
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}

func validatePassenger(p models.PassengerRequest) error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("%w: passenger name is required", ErrInvalidArgument)
	}
	if p.Age < 0 {
		return fmt.Errorf("%w: passenger age must not be negative", ErrInvalidArgument)
	}
	return nil
}

func newPassenger(bookingID uuid.UUID, p models.PassengerRequest, now time.Time) models.Passenger {
	return models.Passenger{
		ID:         uuid.New(),
		BookingID:  bookingID,
		Name:       strings.TrimSpace(p.Name),
		Email:      strings.TrimSpace(p.Email),
		Age:        p.Age,
		Gender:     p.Gender,
		SeatNumber: p.SeatNumber,
		CreatedAt:  now,
	}
}

func notFound(err error, what string, id uuid.UUID) error {
	if errors.Is(err, ErrNotFound) {
		return fmt.Errorf("%w: %s %s", ErrNotFound, what, id)
	}
	return err
}
