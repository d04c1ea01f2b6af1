package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BookingStatus only ever moves Confirmed -> Cancelled
type BookingStatus string

const (
	BookingStatusConfirmed BookingStatus = "Confirmed"
	BookingStatusCancelled BookingStatus = "Cancelled"
)

// Booking represents a confirmed (or cancelled) reservation of seats on a flight
type Booking struct {
	ID              uuid.UUID       `json:"id"`
	Reference       string          `json:"reference"`
	UserID          uuid.UUID       `json:"user_id"`
	FlightID        uuid.UUID       `json:"flight_id"`
	TotalPassengers int             `json:"total_passengers"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	Status          BookingStatus   `json:"status"`
	BookingDate     time.Time       `json:"booking_date"`
	UpdatedAt       time.Time       `json:"updated_at"`
	CancelledAt     *time.Time      `json:"cancelled_at,omitempty"`
	Passengers      []Passenger     `json:"passengers"`
}

func (b *Booking) Cancelled() bool {
	return b.Status == BookingStatusCancelled
}

// Passenger is a traveller attached to a booking
type Passenger struct {
	ID         uuid.UUID `json:"id"`
	BookingID  uuid.UUID `json:"booking_id"`
	Name       string    `json:"name"`
	Email      string    `json:"email,omitempty"`
	Age        int       `json:"age"`
	Gender     string    `json:"gender,omitempty"`
	SeatNumber string    `json:"seat_number,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// BookingView is a booking with its flight, airports and owner resolved
type BookingView struct {
	Booking
	FlightNumber    string    `json:"flight_number"`
	AirlineName     string    `json:"airline_name"`
	OriginCode      string    `json:"origin_code"`
	DestinationCode string    `json:"destination_code"`
	DepartureTime   time.Time `json:"departure_time"`
	ArrivalTime     time.Time `json:"arrival_time"`
	UserName        string    `json:"user_name"`
	UserEmail       string    `json:"user_email"`
}

// AuditEntry records an administrative override
type AuditEntry struct {
	ID           uuid.UUID `json:"id"`
	ActorID      uuid.UUID `json:"actor_id"`
	Action       string    `json:"action"`
	ResourceType string    `json:"resource_type"`
	ResourceID   uuid.UUID `json:"resource_id"`
	Before       string    `json:"before,omitempty"`
	After        string    `json:"after,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}
