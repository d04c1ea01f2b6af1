package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// FlightStatus is the operational state of a flight
type FlightStatus string

const (
	FlightStatusScheduled FlightStatus = "Scheduled"
	FlightStatusDelayed   FlightStatus = "Delayed"
	FlightStatusCancelled FlightStatus = "Cancelled"
	FlightStatusCompleted FlightStatus = "Completed"
)

// Valid reports whether s is a known flight status
func (s FlightStatus) Valid() bool {
	switch s {
	case FlightStatusScheduled, FlightStatusDelayed, FlightStatusCancelled, FlightStatusCompleted:
		return true
	}
	return false
}

// Publication controls whether an entity is visible to booking flows
type Publication string

const (
	PublicationPublish Publication = "Publish"
	PublicationDraft   Publication = "Draft"
)

func (p Publication) Valid() bool {
	return p == PublicationPublish || p == PublicationDraft
}

// Flight represents a scheduled flight and its seat inventory
type Flight struct {
	ID                   uuid.UUID       `json:"id"`
	FlightNumber         string          `json:"flight_number"`
	AirlineID            uuid.UUID       `json:"airline_id"`
	OriginAirportID      uuid.UUID       `json:"origin_airport_id"`
	DestinationAirportID uuid.UUID       `json:"destination_airport_id"`
	DepartureTime        time.Time       `json:"departure_time"`
	ArrivalTime          time.Time       `json:"arrival_time"`
	Price                decimal.Decimal `json:"price"`
	TotalSeats           int             `json:"total_seats"`
	SeatsAvailable       int             `json:"seats_available"`
	Status               FlightStatus    `json:"status"`
	Publication          Publication     `json:"publication"`
	CreatedAt            time.Time       `json:"created_at"`
	UpdatedAt            time.Time       `json:"updated_at"`
}

// Validate checks the flight's structural invariants
func (f *Flight) Validate() error {
	var errs []error
	if f.FlightNumber == "" {
		errs = append(errs, errors.New("flight_number is required"))
	}
	if f.OriginAirportID == uuid.Nil || f.DestinationAirportID == uuid.Nil {
		errs = append(errs, errors.New("origin and destination airports are required"))
	} else if f.OriginAirportID == f.DestinationAirportID {
		errs = append(errs, errors.New("origin and destination must differ"))
	}
	if f.AirlineID == uuid.Nil {
		errs = append(errs, errors.New("airline_id is required"))
	}
	if !f.ArrivalTime.After(f.DepartureTime) {
		errs = append(errs, errors.New("arrival_time must be after departure_time"))
	}
	if f.Price.IsNegative() {
		errs = append(errs, errors.New("price must not be negative"))
	}
	if f.TotalSeats < 1 {
		errs = append(errs, errors.New("total_seats must be positive"))
	}
	if f.SeatsAvailable < 0 || f.SeatsAvailable > f.TotalSeats {
		errs = append(errs, fmt.Errorf("seats_available must be between 0 and %d", f.TotalSeats))
	}
	if !f.Status.Valid() {
		errs = append(errs, fmt.Errorf("unknown status %q", f.Status))
	}
	if !f.Publication.Valid() {
		errs = append(errs, fmt.Errorf("unknown publication %q", f.Publication))
	}
	return errors.Join(errs...)
}

// Published reports whether the flight is visible to booking flows
func (f *Flight) Published() bool {
	return f.Publication == PublicationPublish
}

// Operating reports whether the flight can still take passengers
func (f *Flight) Operating() bool {
	return f.Status == FlightStatusScheduled || f.Status == FlightStatusDelayed
}

// FlightView is a flight with its reference data resolved for display
type FlightView struct {
	Flight
	AirlineName     string `json:"airline_name"`
	OriginCode      string `json:"origin_code"`
	DestinationCode string `json:"destination_code"`
}
