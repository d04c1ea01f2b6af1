package catalog_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cx-tal-miterani/booking-ledger/internal/catalog"
	"github.com/cx-tal-miterani/booking-ledger/internal/database"
	"github.com/cx-tal-miterani/booking-ledger/internal/ledger"
	"github.com/cx-tal-miterani/booking-ledger/internal/logger"
	"github.com/cx-tal-miterani/booking-ledger/internal/models"
	"github.com/cx-tal-miterani/booking-ledger/internal/query"
)

func setup(t *testing.T) (*catalog.Catalog, *ledger.Ledger, *database.SeedData) {
	t.Helper()
	store := database.NewMemoryStore()
	cat := catalog.New(store, logger.Nop())
	led := ledger.New(store, logger.Nop())
	data, err := database.Seed(context.Background(), cat, led, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	return cat, led, data
}

func TestFlightsFilterThenPaginate(t *testing.T) {
	cat, _, _ := setup(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		params   query.Params
		expected []string
	}{
		{"all", query.Params{}, []string{"AA123", "UA456", "DL789"}},
		{"airport code", query.Params{Search: "sfo"}, []string{"DL789"}},
		{"airline name", query.Params{Search: "united"}, []string{"UA456"}},
		{"flight number", query.Params{Search: "aa1"}, []string{"AA123"}},
		{"second page", query.Params{Page: 2, PageSize: 2}, []string{"DL789"}},
		{"draft filter", query.Params{Status: "Draft"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, err := cat.Flights(ctx, models.System, tt.params)
			require.NoError(t, err)
			var got []string
			for _, f := range page.Items {
				got = append(got, f.FlightNumber)
			}
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestCustomersOnlySeePublishedFlights(t *testing.T) {
	cat, led, data := setup(t)
	ctx := context.Background()
	customer := models.Caller{UserID: data.Customers[0].ID, Role: models.RoleCustomer}
	draft := models.PublicationDraft

	_, err := led.UpdateFlight(ctx, models.System, data.Flights[0].ID, ledger.FlightPatch{Publication: &draft})
	require.NoError(t, err)

	page, err := cat.Flights(ctx, customer, query.Params{Status: "Draft"})
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)

	_, err = cat.Flight(ctx, customer, data.Flights[0].ID)
	assert.ErrorIs(t, err, ledger.ErrNotFound)

	f, err := cat.Flight(ctx, models.System, data.Flights[0].ID)
	require.NoError(t, err)
	assert.Equal(t, models.PublicationDraft, f.Publication)

	_, err = cat.Flight(ctx, models.System, uuid.New())
	assert.ErrorIs(t, err, ledger.ErrNotFound)
}

func TestUsers(t *testing.T) {
	cat, _, data := setup(t)
	ctx := context.Background()

	page, err := cat.Users(ctx, models.System, query.Params{Status: "customer"})
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)

	page, err = cat.Users(ctx, models.System, query.Params{Search: "OMAR@"})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "Omar Haddad", page.Items[0].Name)

	customer := models.Caller{UserID: data.Customers[0].ID, Role: models.RoleCustomer}
	_, err = cat.Users(ctx, customer, query.Params{})
	assert.ErrorIs(t, err, ledger.ErrForbidden)

	_, err = cat.CreateUser(ctx, models.System, "Dup", "JANE@example.com", "")
	assert.ErrorIs(t, err, ledger.ErrConflict)
}

func TestAirlinesAndAirports(t *testing.T) {
	cat, _, _ := setup(t)
	ctx := context.Background()

	airlines, err := cat.Airlines(ctx, models.System, query.Params{Search: "delta"})
	require.NoError(t, err)
	require.Len(t, airlines.Items, 1)
	assert.Equal(t, "DL", airlines.Items[0].Code)

	airports, err := cat.Airports(ctx, models.System, query.Params{Search: "chicago"})
	require.NoError(t, err)
	require.Len(t, airports.Items, 1)
	assert.Equal(t, "ORD", airports.Items[0].Code)
}

func TestCreateAirport(t *testing.T) {
	cat, _, data := setup(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		caller   models.Caller
		req      models.CreateAirportRequest
		expected error
	}{
		{"valid", models.System, models.CreateAirportRequest{Name: "Boston Logan", Code: "BOS", City: "Boston", Country: "US"}, nil},
		{"duplicate code", models.System, models.CreateAirportRequest{Name: "Other", Code: "JFK", City: "NYC", Country: "US"}, ledger.ErrConflict},
		{"lower case code", models.System, models.CreateAirportRequest{Name: "Austin", Code: "aus", City: "Austin", Country: "US"}, ledger.ErrInvalidArgument},
		{"four letter code", models.System, models.CreateAirportRequest{Name: "X", Code: "ABCD", City: "X", Country: "US"}, ledger.ErrInvalidArgument},
		{"customer", models.Caller{UserID: data.Customers[0].ID, Role: models.RoleCustomer},
			models.CreateAirportRequest{Name: "Denver", Code: "DEN", City: "Denver", Country: "US"}, ledger.ErrForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := cat.CreateAirport(ctx, tt.caller, tt.req)
			if tt.expected == nil {
				require.NoError(t, err)
				assert.Equal(t, models.PublicationPublish, a.Status)
				return
			}
			assert.ErrorIs(t, err, tt.expected)
		})
	}
}
