package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cx-tal-miterani/booking-ledger/internal/catalog"
	"github.com/cx-tal-miterani/booking-ledger/internal/database"
	"github.com/cx-tal-miterani/booking-ledger/internal/events"
	"github.com/cx-tal-miterani/booking-ledger/internal/idempotency"
	"github.com/cx-tal-miterani/booking-ledger/internal/ledger"
	"github.com/cx-tal-miterani/booking-ledger/internal/logger"
	"github.com/cx-tal-miterani/booking-ledger/internal/models"
	"github.com/cx-tal-miterani/booking-ledger/internal/query"
	"github.com/cx-tal-miterani/booking-ledger/internal/service"
)

type recorder struct {
	mu     sync.Mutex
	events []events.Event
	fail   bool
}

func (r *recorder) Publish(ctx context.Context, e events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	if r.fail {
		return errors.New("sink down")
	}
	return nil
}

func (r *recorder) types() []events.Type {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]events.Type, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

type setup struct {
	svc      service.BookingService
	rec      *recorder
	seed     *database.SeedData
	admin    models.Caller
	customer models.Caller
}

func newSetup(t *testing.T) *setup {
	t.Helper()
	store := database.NewMemoryStore()
	led := ledger.New(store, logger.Nop())
	cat := catalog.New(store, logger.Nop())
	seed, err := database.Seed(context.Background(), cat, led, time.Now())
	require.NoError(t, err)

	rec := &recorder{}
	svc := service.NewBookingService(led, cat, idempotency.NewMemoryStore(time.Hour), rec, logger.Nop())
	return &setup{
		svc:      svc,
		rec:      rec,
		seed:     seed,
		admin:    models.Caller{UserID: seed.Admin.ID, Role: models.RoleAdmin},
		customer: models.Caller{UserID: seed.Customers[0].ID, Role: models.RoleCustomer},
	}
}

func (s *setup) bookingRequest(passengers int) *models.CreateBookingRequest {
	return &models.CreateBookingRequest{
		UserID:          s.customer.UserID.String(),
		FlightID:        s.seed.Flights[0].ID.String(),
		TotalPassengers: passengers,
	}
}

func TestCreateBooking_PublishesEvent(t *testing.T) {
	s := newSetup(t)
	ctx := context.Background()

	b, replayed, err := s.svc.CreateBooking(ctx, s.customer, s.bookingRequest(2), "")
	require.NoError(t, err)
	assert.False(t, replayed)
	assert.True(t, decimal.RequireFromString("300").Equal(b.TotalAmount))

	require.Len(t, s.rec.events, 1)
	e := s.rec.events[0]
	assert.Equal(t, events.BookingCreated, e.Type)
	assert.Equal(t, b.ID, e.BookingID)
	require.NotNil(t, e.SeatsAvailable)
	assert.Equal(t, s.seed.Flights[0].TotalSeats-2, *e.SeatsAvailable)
}

func TestCreateBooking_IdempotentReplay(t *testing.T) {
	s := newSetup(t)
	ctx := context.Background()

	first, replayed, err := s.svc.CreateBooking(ctx, s.customer, s.bookingRequest(1), "key-1")
	require.NoError(t, err)
	assert.False(t, replayed)

	second, replayed, err := s.svc.CreateBooking(ctx, s.customer, s.bookingRequest(1), "key-1")
	require.NoError(t, err)
	assert.True(t, replayed)
	assert.Equal(t, first.ID, second.ID)

	flight, err := s.svc.GetFlight(ctx, s.admin, s.seed.Flights[0].ID.String())
	require.NoError(t, err)
	assert.Equal(t, s.seed.Flights[0].TotalSeats-1, flight.SeatsAvailable)
	assert.Len(t, s.rec.events, 1)
}

func TestCreateBooking_KeyReusedWithDifferentBody(t *testing.T) {
	s := newSetup(t)
	ctx := context.Background()

	first, _, err := s.svc.CreateBooking(ctx, s.customer, s.bookingRequest(1), "key-1")
	require.NoError(t, err)

	_, _, err = s.svc.CreateBooking(ctx, s.customer, s.bookingRequest(2), "key-1")
	assert.ErrorIs(t, err, idempotency.ErrKeyReused)

	other := s.bookingRequest(1)
	other.FlightID = s.seed.Flights[1].ID.String()
	_, _, err = s.svc.CreateBooking(ctx, s.customer, other, "key-1")
	assert.ErrorIs(t, err, idempotency.ErrKeyReused)

	again, replayed, err := s.svc.CreateBooking(ctx, s.customer, s.bookingRequest(1), "key-1")
	require.NoError(t, err)
	assert.True(t, replayed)
	assert.Equal(t, first.ID, again.ID)

	flight, err := s.svc.GetFlight(ctx, s.admin, s.seed.Flights[0].ID.String())
	require.NoError(t, err)
	assert.Equal(t, s.seed.Flights[0].TotalSeats-1, flight.SeatsAvailable)
	assert.Len(t, s.rec.events, 1)
}

func TestCreateBooking_KeysAreScopedPerCaller(t *testing.T) {
	s := newSetup(t)
	ctx := context.Background()
	other := models.Caller{UserID: s.seed.Customers[1].ID, Role: models.RoleCustomer}

	first, _, err := s.svc.CreateBooking(ctx, s.customer, s.bookingRequest(1), "shared")
	require.NoError(t, err)

	req := s.bookingRequest(1)
	req.UserID = other.UserID.String()
	second, replayed, err := s.svc.CreateBooking(ctx, other, req, "shared")
	require.NoError(t, err)
	assert.False(t, replayed)
	assert.NotEqual(t, first.ID, second.ID)
}

func TestCreateBooking_FailureReleasesKey(t *testing.T) {
	s := newSetup(t)
	ctx := context.Background()

	_, _, err := s.svc.CreateBooking(ctx, s.customer, s.bookingRequest(1000), "retry-me")
	assert.ErrorIs(t, err, ledger.ErrConflict)

	b, replayed, err := s.svc.CreateBooking(ctx, s.customer, s.bookingRequest(1), "retry-me")
	require.NoError(t, err)
	assert.False(t, replayed)
	assert.Equal(t, 1, b.TotalPassengers)
}

func TestCreateBooking_MalformedIDs(t *testing.T) {
	s := newSetup(t)
	req := s.bookingRequest(1)
	req.FlightID = "not-a-uuid"

	_, _, err := s.svc.CreateBooking(context.Background(), s.customer, req, "")
	assert.ErrorIs(t, err, ledger.ErrInvalidArgument)
	assert.Empty(t, s.rec.events)
}

func TestSinkFailureDoesNotFailCommand(t *testing.T) {
	s := newSetup(t)
	s.rec.fail = true

	b, _, err := s.svc.CreateBooking(context.Background(), s.customer, s.bookingRequest(1), "")
	require.NoError(t, err)
	assert.NotNil(t, b)
	assert.Len(t, s.rec.events, 1)
}

func TestBookingLifecycle_Events(t *testing.T) {
	s := newSetup(t)
	ctx := context.Background()

	b, _, err := s.svc.CreateBooking(ctx, s.customer, s.bookingRequest(2), "")
	require.NoError(t, err)

	three := 3
	updated, err := s.svc.UpdateBooking(ctx, s.customer, b.ID.String(), &models.UpdateBookingRequest{TotalPassengers: &three})
	require.NoError(t, err)
	assert.Equal(t, 3, updated.TotalPassengers)

	_, err = s.svc.CancelBooking(ctx, s.customer, b.ID.String())
	require.NoError(t, err)
	cancelled, err := s.svc.CancelBooking(ctx, s.customer, b.ID.String())
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusCancelled, cancelled.Status)

	require.NoError(t, s.svc.DeleteBooking(ctx, s.admin, b.ID.String()))

	assert.Equal(t, []events.Type{
		events.BookingCreated,
		events.BookingUpdated,
		events.BookingCancelled,
		events.BookingDeleted,
	}, s.rec.types())
}

func TestAddPassenger(t *testing.T) {
	s := newSetup(t)
	ctx := context.Background()

	b, _, err := s.svc.CreateBooking(ctx, s.customer, s.bookingRequest(1), "")
	require.NoError(t, err)

	p, err := s.svc.AddPassenger(ctx, s.customer, b.ID.String(), &models.PassengerRequest{Name: "Jane", Age: 30})
	require.NoError(t, err)
	assert.Equal(t, b.ID, p.BookingID)

	_, err = s.svc.AddPassenger(ctx, s.customer, b.ID.String(), &models.PassengerRequest{Name: "Extra", Age: 5})
	assert.ErrorIs(t, err, ledger.ErrConflict)
}

func TestListBookings_CustomerSeesOwn(t *testing.T) {
	s := newSetup(t)
	ctx := context.Background()
	other := models.Caller{UserID: s.seed.Customers[1].ID, Role: models.RoleCustomer}

	_, _, err := s.svc.CreateBooking(ctx, s.customer, s.bookingRequest(1), "")
	require.NoError(t, err)
	req := s.bookingRequest(1)
	req.UserID = other.UserID.String()
	_, _, err = s.svc.CreateBooking(ctx, other, req, "")
	require.NoError(t, err)

	page, err := s.svc.ListBookings(ctx, s.customer, query.Params{})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Total)

	page, err = s.svc.ListBookings(ctx, s.admin, query.Params{})
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)
}

func TestFlightAdministration(t *testing.T) {
	s := newSetup(t)
	ctx := context.Background()
	src := s.seed.Flights[0]

	created, err := s.svc.CreateFlight(ctx, s.admin, &models.CreateFlightRequest{
		FlightNumber:         "aa900",
		AirlineID:            src.AirlineID.String(),
		OriginAirportID:      src.OriginAirportID.String(),
		DestinationAirportID: src.DestinationAirportID.String(),
		DepartureTime:        time.Now().Add(24 * time.Hour),
		ArrivalTime:          time.Now().Add(30 * time.Hour),
		Price:                decimal.NewFromInt(99),
		TotalSeats:           10,
	})
	require.NoError(t, err)
	assert.Equal(t, "AA900", created.FlightNumber)
	assert.Equal(t, models.PublicationDraft, created.Publication)

	_, err = s.svc.GetFlight(ctx, s.customer, created.ID.String())
	assert.ErrorIs(t, err, ledger.ErrNotFound)

	publish := models.PublicationPublish
	updated, err := s.svc.UpdateFlight(ctx, s.admin, created.ID.String(), &models.UpdateFlightRequest{Publication: &publish})
	require.NoError(t, err)
	assert.Equal(t, models.PublicationPublish, updated.Publication)

	_, err = s.svc.CreateFlight(ctx, s.customer, &models.CreateFlightRequest{
		FlightNumber:         "X1",
		AirlineID:            src.AirlineID.String(),
		OriginAirportID:      src.OriginAirportID.String(),
		DestinationAirportID: src.DestinationAirportID.String(),
		TotalSeats:           1,
	})
	assert.ErrorIs(t, err, ledger.ErrForbidden)

	assert.Equal(t, []events.Type{events.FlightUpdated}, s.rec.types())
}

func TestReconcileFlight(t *testing.T) {
	s := newSetup(t)
	ctx := context.Background()
	id := s.seed.Flights[0].ID.String()

	_, _, err := s.svc.CreateBooking(ctx, s.customer, s.bookingRequest(4), "")
	require.NoError(t, err)
	seats := 10
	_, err = s.svc.UpdateFlight(ctx, s.admin, id, &models.UpdateFlightRequest{SeatsAvailable: &seats})
	require.NoError(t, err)

	drift, err := s.svc.ReconcileFlight(ctx, s.admin, id, false)
	require.NoError(t, err)
	assert.False(t, drift.InSync())
	assert.False(t, drift.Repaired)

	drift, err = s.svc.ReconcileFlight(ctx, s.admin, id, true)
	require.NoError(t, err)
	assert.True(t, drift.Repaired)

	flight, err := s.svc.GetFlight(ctx, s.admin, id)
	require.NoError(t, err)
	assert.Equal(t, s.seed.Flights[0].TotalSeats-4, flight.SeatsAvailable)

	_, err = s.svc.ReconcileFlight(ctx, s.admin, "bad", false)
	assert.ErrorIs(t, err, ledger.ErrInvalidArgument)

	assert.Equal(t, []events.Type{events.BookingCreated, events.FlightUpdated, events.FlightReconciled}, s.rec.types())
}

func TestReferenceData(t *testing.T) {
	s := newSetup(t)
	ctx := context.Background()

	airlines, err := s.svc.GetAirlines(ctx, s.customer, query.Params{})
	require.NoError(t, err)
	assert.Equal(t, 3, airlines.Total)

	airports, err := s.svc.GetAirports(ctx, s.customer, query.Params{Search: "jfk"})
	require.NoError(t, err)
	assert.Equal(t, 1, airports.Total)

	_, err = s.svc.GetUsers(ctx, s.customer, query.Params{})
	assert.ErrorIs(t, err, ledger.ErrForbidden)

	users, err := s.svc.GetUsers(ctx, s.admin, query.Params{})
	require.NoError(t, err)
	assert.Equal(t, 3, users.Total)

	_, err = s.svc.CreateAirline(ctx, s.admin, &models.CreateAirlineRequest{Name: "Dup", Code: "AA", Country: "US"})
	assert.ErrorIs(t, err, ledger.ErrConflict)

	ap, err := s.svc.CreateAirport(ctx, s.admin, &models.CreateAirportRequest{Name: "Boston Logan", Code: "BOS", City: "Boston", Country: "US"})
	require.NoError(t, err)
	assert.Equal(t, "BOS", ap.Code)
}
