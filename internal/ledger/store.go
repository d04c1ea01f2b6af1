package ledger

import (
	"context"

	"github.com/google/uuid"

	"github.com/cx-tal-miterani/booking-ledger/internal/models"
	"github.com/cx-tal-miterani/booking-ledger/internal/query"
)

// Store is the persistence the ledger runs on. Reads outside WithinTx take no
// locks. Missing rows are reported as ErrNotFound and unique violations as
// ErrDuplicate.
type Store interface {
	// WithinTx runs fn in a single transaction. The transaction commits only
	// if fn returns nil.
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error

	Flight(ctx context.Context, id uuid.UUID) (*models.Flight, error)
	Booking(ctx context.Context, id uuid.UUID) (*models.Booking, error)
	BookingView(ctx context.Context, id uuid.UUID) (*models.BookingView, error)
	ListBookings(ctx context.Context, q BookingQuery) ([]models.BookingView, int, error)
}

// Tx is the set of writes available inside a transaction. Lock* methods hold
// the row until the transaction ends.
type Tx interface {
	LockFlight(ctx context.Context, id uuid.UUID) (*models.Flight, error)
	LockBooking(ctx context.Context, id uuid.UUID) (*models.Booking, error)

	ReferenceTaken(ctx context.Context, reference string) (bool, error)
	UserExists(ctx context.Context, id uuid.UUID) (bool, error)
	AirlineExists(ctx context.Context, id uuid.UUID) (bool, error)
	AirportExists(ctx context.Context, id uuid.UUID) (bool, error)
	CountPassengers(ctx context.Context, bookingID uuid.UUID) (int, error)
	ConfirmedPassengers(ctx context.Context, flightID uuid.UUID) (int, error)

	InsertBooking(ctx context.Context, b *models.Booking) error
	UpdateBooking(ctx context.Context, b *models.Booking) error
	DeleteBooking(ctx context.Context, id uuid.UUID) error
	InsertPassenger(ctx context.Context, p *models.Passenger) error
	InsertFlight(ctx context.Context, f *models.Flight) error
	UpdateFlight(ctx context.Context, f *models.Flight) error
	InsertAudit(ctx context.Context, e *models.AuditEntry) error
}

// BookingQuery filters bookings. Search matches the reference, passenger
// names and passenger emails; Status matches the booking status. A non-nil
// UserID restricts results to that owner. Results are ordered by
// (booking_date, id).
type BookingQuery struct {
	query.Params
	UserID *uuid.UUID
}
