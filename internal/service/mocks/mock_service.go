package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/cx-tal-miterani/booking-ledger/internal/ledger"
	"github.com/cx-tal-miterani/booking-ledger/internal/models"
	"github.com/cx-tal-miterani/booking-ledger/internal/query"
)

// MockBookingService is a mock implementation of BookingService
type MockBookingService struct {
	mock.Mock
}

func (m *MockBookingService) CreateBooking(ctx context.Context, caller models.Caller, req *models.CreateBookingRequest, idempotencyKey string) (*models.Booking, bool, error) {
	args := m.Called(ctx, caller, req, idempotencyKey)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*models.Booking), args.Bool(1), args.Error(2)
}

func (m *MockBookingService) GetBooking(ctx context.Context, caller models.Caller, bookingID string) (*models.BookingView, error) {
	args := m.Called(ctx, caller, bookingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.BookingView), args.Error(1)
}

func (m *MockBookingService) ListBookings(ctx context.Context, caller models.Caller, p query.Params) (query.Page[models.BookingView], error) {
	args := m.Called(ctx, caller, p)
	return args.Get(0).(query.Page[models.BookingView]), args.Error(1)
}

func (m *MockBookingService) UpdateBooking(ctx context.Context, caller models.Caller, bookingID string, req *models.UpdateBookingRequest) (*models.Booking, error) {
	args := m.Called(ctx, caller, bookingID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Booking), args.Error(1)
}

func (m *MockBookingService) CancelBooking(ctx context.Context, caller models.Caller, bookingID string) (*models.Booking, error) {
	args := m.Called(ctx, caller, bookingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Booking), args.Error(1)
}

func (m *MockBookingService) DeleteBooking(ctx context.Context, caller models.Caller, bookingID string) error {
	args := m.Called(ctx, caller, bookingID)
	return args.Error(0)
}

func (m *MockBookingService) AddPassenger(ctx context.Context, caller models.Caller, bookingID string, req *models.PassengerRequest) (*models.Passenger, error) {
	args := m.Called(ctx, caller, bookingID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Passenger), args.Error(1)
}

func (m *MockBookingService) GetFlights(ctx context.Context, caller models.Caller, p query.Params) (query.Page[models.FlightView], error) {
	args := m.Called(ctx, caller, p)
	return args.Get(0).(query.Page[models.FlightView]), args.Error(1)
}

func (m *MockBookingService) GetFlight(ctx context.Context, caller models.Caller, flightID string) (*models.FlightView, error) {
	args := m.Called(ctx, caller, flightID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.FlightView), args.Error(1)
}

func (m *MockBookingService) CreateFlight(ctx context.Context, caller models.Caller, req *models.CreateFlightRequest) (*models.Flight, error) {
	args := m.Called(ctx, caller, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Flight), args.Error(1)
}

func (m *MockBookingService) UpdateFlight(ctx context.Context, caller models.Caller, flightID string, req *models.UpdateFlightRequest) (*models.Flight, error) {
	args := m.Called(ctx, caller, flightID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Flight), args.Error(1)
}

func (m *MockBookingService) ReconcileFlight(ctx context.Context, caller models.Caller, flightID string, repair bool) (*ledger.Drift, error) {
	args := m.Called(ctx, caller, flightID, repair)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.Drift), args.Error(1)
}

func (m *MockBookingService) GetUsers(ctx context.Context, caller models.Caller, p query.Params) (query.Page[models.User], error) {
	args := m.Called(ctx, caller, p)
	return args.Get(0).(query.Page[models.User]), args.Error(1)
}

func (m *MockBookingService) GetAirlines(ctx context.Context, caller models.Caller, p query.Params) (query.Page[models.Airline], error) {
	args := m.Called(ctx, caller, p)
	return args.Get(0).(query.Page[models.Airline]), args.Error(1)
}

func (m *MockBookingService) GetAirports(ctx context.Context, caller models.Caller, p query.Params) (query.Page[models.Airport], error) {
	args := m.Called(ctx, caller, p)
	return args.Get(0).(query.Page[models.Airport]), args.Error(1)
}

func (m *MockBookingService) CreateAirline(ctx context.Context, caller models.Caller, req *models.CreateAirlineRequest) (*models.Airline, error) {
	args := m.Called(ctx, caller, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Airline), args.Error(1)
}

func (m *MockBookingService) CreateAirport(ctx context.Context, caller models.Caller, req *models.CreateAirportRequest) (*models.Airport, error) {
	args := m.Called(ctx, caller, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Airport), args.Error(1)
}
