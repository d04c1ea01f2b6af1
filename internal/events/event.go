// Package events carries ledger changes to the outside world after they have
// committed: Kafka topics, the Temporal notification workflow and the
// websocket hub.
package events

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/cx-tal-miterani/booking-ledger/internal/models"
)

type Type string

const (
	BookingCreated   Type = "booking.created"
	BookingUpdated   Type = "booking.updated"
	BookingCancelled Type = "booking.cancelled"
	BookingDeleted   Type = "booking.deleted"
	FlightUpdated    Type = "flight.updated"
	FlightReconciled Type = "flight.reconciled"
)

// IsBooking reports whether the event concerns a single booking
func (t Type) IsBooking() bool {
	switch t {
	case BookingCreated, BookingUpdated, BookingCancelled, BookingDeleted:
		return true
	}
	return false
}

// Event is a committed ledger change. Flight fields carry the seat counter as
// it stood after the change.
type Event struct {
	ID              uuid.UUID       `json:"id"`
	Type            Type            `json:"type"`
	BookingID       uuid.UUID       `json:"booking_id,omitempty"`
	Reference       string          `json:"reference,omitempty"`
	UserID          uuid.UUID       `json:"user_id,omitempty"`
	FlightID        uuid.UUID       `json:"flight_id"`
	TotalPassengers int             `json:"total_passengers,omitempty"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	SeatsAvailable  *int            `json:"seats_available,omitempty"`
	TotalSeats      int             `json:"total_seats,omitempty"`
	OccurredAt      time.Time       `json:"occurred_at"`
}

// ForBooking builds a booking event. flight may be nil when the change did not
// touch the flight.
func ForBooking(t Type, b *models.Booking, flight *models.Flight) Event {
	e := Event{
		ID:              uuid.New(),
		Type:            t,
		BookingID:       b.ID,
		Reference:       b.Reference,
		UserID:          b.UserID,
		FlightID:        b.FlightID,
		TotalPassengers: b.TotalPassengers,
		TotalAmount:     b.TotalAmount,
		OccurredAt:      time.Now().UTC(),
	}
	if flight != nil {
		seats := flight.SeatsAvailable
		e.SeatsAvailable = &seats
		e.TotalSeats = flight.TotalSeats
	}
	return e
}

// ForFlight builds a flight event
func ForFlight(t Type, f *models.Flight) Event {
	seats := f.SeatsAvailable
	return Event{
		ID:             uuid.New(),
		Type:           t,
		FlightID:       f.ID,
		SeatsAvailable: &seats,
		TotalSeats:     f.TotalSeats,
		OccurredAt:     time.Now().UTC(),
	}
}
