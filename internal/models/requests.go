package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CreateBookingRequest represents a request to book seats on a flight
type CreateBookingRequest struct {
	UserID          string             `json:"user_id" validate:"required,uuid"`
	FlightID        string             `json:"flight_id" validate:"required,uuid"`
	TotalPassengers int                `json:"total_passengers" validate:"required,min=1"`
	Passengers      []PassengerRequest `json:"passengers,omitempty" validate:"omitempty,dive"`
}

// UpdateBookingRequest is a partial update; only the passenger count and an
// explicit amount override are mutable
type UpdateBookingRequest struct {
	TotalPassengers *int             `json:"total_passengers,omitempty" validate:"omitempty,min=1"`
	TotalAmount     *decimal.Decimal `json:"total_amount,omitempty"`
}

type PassengerRequest struct {
	Name       string `json:"name" validate:"required,max=200"`
	Email      string `json:"email,omitempty" validate:"omitempty,email"`
	Age        int    `json:"age" validate:"min=0,max=150"`
	Gender     string `json:"gender,omitempty" validate:"omitempty,max=32"`
	SeatNumber string `json:"seat_number,omitempty" validate:"omitempty,max=8"`
}

type CreateFlightRequest struct {
	FlightNumber         string          `json:"flight_number" validate:"required,max=16"`
	AirlineID            string          `json:"airline_id" validate:"required,uuid"`
	OriginAirportID      string          `json:"origin_airport_id" validate:"required,uuid"`
	DestinationAirportID string          `json:"destination_airport_id" validate:"required,uuid,nefield=OriginAirportID"`
	DepartureTime        time.Time       `json:"departure_time" validate:"required"`
	ArrivalTime          time.Time       `json:"arrival_time" validate:"required"`
	Price                decimal.Decimal `json:"price"`
	TotalSeats           int             `json:"total_seats" validate:"required,min=1"`
	Publication          Publication     `json:"publication,omitempty" validate:"omitempty,oneof=Publish Draft"`
}

// UpdateFlightRequest patches a flight. total_seats is deliberately absent:
// it is immutable after creation and rejected as an unknown field.
type UpdateFlightRequest struct {
	Price          *decimal.Decimal `json:"price,omitempty"`
	DepartureTime  *time.Time       `json:"departure_time,omitempty"`
	ArrivalTime    *time.Time       `json:"arrival_time,omitempty"`
	Status         *FlightStatus    `json:"status,omitempty" validate:"omitempty,oneof=Scheduled Delayed Cancelled Completed"`
	Publication    *Publication     `json:"publication,omitempty" validate:"omitempty,oneof=Publish Draft"`
	SeatsAvailable *int             `json:"seats_available,omitempty" validate:"omitempty,min=0"`
}

type CreateAirlineRequest struct {
	Name    string      `json:"name" validate:"required,max=200"`
	Code    string      `json:"code" validate:"required,min=2,max=3,alphanum"`
	Country string      `json:"country" validate:"required"`
	Status  Publication `json:"status,omitempty" validate:"omitempty,oneof=Publish Draft"`
}

type CreateAirportRequest struct {
	Name    string      `json:"name" validate:"required,max=200"`
	Code    string      `json:"code" validate:"required,len=3,alpha,uppercase"`
	City    string      `json:"city" validate:"required"`
	Country string      `json:"country" validate:"required"`
	Status  Publication `json:"status,omitempty" validate:"omitempty,oneof=Publish Draft"`
}
