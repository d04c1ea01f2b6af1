package database

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cx-tal-miterani/booking-ledger/internal/catalog"
	"github.com/cx-tal-miterani/booking-ledger/internal/ledger"
	"github.com/cx-tal-miterani/booking-ledger/internal/models"
)

// SeedData holds what Seed created
type SeedData struct {
	Admin     *models.User
	Customers []*models.User
	Flights   []*models.Flight
}

type sampleFlight struct {
	number      string
	airline     string
	origin      string
	destination string
	departIn    time.Duration
	duration    time.Duration
	price       string
	seats       int
}

var sampleFlights = []sampleFlight{
	{"AA123", "AA", "JFK", "LAX", 24 * time.Hour, 6 * time.Hour, "150.00", 180},
	{"UA456", "UA", "ORD", "MIA", 48 * time.Hour, 3 * time.Hour, "200.00", 150},
	{"DL789", "DL", "SFO", "SEA", 72 * time.Hour, 2 * time.Hour, "120.00", 120},
}

// Seed loads sample reference data and published flights through the
// catalog and ledger, so the usual validation applies
func Seed(ctx context.Context, cat *catalog.Catalog, led *ledger.Ledger, now time.Time) (*SeedData, error) {
	out := &SeedData{}

	admin, err := cat.CreateUser(ctx, models.System, "Ops Admin", "admin@booking-ledger.local", models.RoleAdmin)
	if err != nil {
		return nil, fmt.Errorf("failed to seed admin: %w", err)
	}
	out.Admin = admin
	for _, c := range []struct{ name, email string }{
		{"Jane Traveller", "jane@example.com"},
		{"Omar Haddad", "omar@example.com"},
	} {
		u, err := cat.CreateUser(ctx, models.System, c.name, c.email, models.RoleCustomer)
		if err != nil {
			return nil, fmt.Errorf("failed to seed customer: %w", err)
		}
		out.Customers = append(out.Customers, u)
	}

	airlines := make(map[string]*models.Airline)
	for _, a := range []models.CreateAirlineRequest{
		{Name: "American Airlines", Code: "AA", Country: "United States"},
		{Name: "United Airlines", Code: "UA", Country: "United States"},
		{Name: "Delta Air Lines", Code: "DL", Country: "United States"},
	} {
		created, err := cat.CreateAirline(ctx, models.System, a)
		if err != nil {
			return nil, fmt.Errorf("failed to seed airline %s: %w", a.Code, err)
		}
		airlines[created.Code] = created
	}

	airports := make(map[string]*models.Airport)
	for _, a := range []models.CreateAirportRequest{
		{Name: "John F. Kennedy International", Code: "JFK", City: "New York", Country: "United States"},
		{Name: "Los Angeles International", Code: "LAX", City: "Los Angeles", Country: "United States"},
		{Name: "O'Hare International", Code: "ORD", City: "Chicago", Country: "United States"},
		{Name: "Miami International", Code: "MIA", City: "Miami", Country: "United States"},
		{Name: "San Francisco International", Code: "SFO", City: "San Francisco", Country: "United States"},
		{Name: "Seattle-Tacoma International", Code: "SEA", City: "Seattle", Country: "United States"},
	} {
		created, err := cat.CreateAirport(ctx, models.System, a)
		if err != nil {
			return nil, fmt.Errorf("failed to seed airport %s: %w", a.Code, err)
		}
		airports[created.Code] = created
	}

	for _, s := range sampleFlights {
		depart := now.Add(s.departIn).Truncate(time.Minute)
		f, err := led.CreateFlight(ctx, models.System, ledger.NewFlight{
			FlightNumber:         s.number,
			AirlineID:            airlines[s.airline].ID,
			OriginAirportID:      airports[s.origin].ID,
			DestinationAirportID: airports[s.destination].ID,
			DepartureTime:        depart,
			ArrivalTime:          depart.Add(s.duration),
			Price:                decimal.RequireFromString(s.price),
			TotalSeats:           s.seats,
			Publication:          models.PublicationPublish,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to seed flight %s: %w", s.number, err)
		}
		out.Flights = append(out.Flights, f)
	}
	return out, nil
}
