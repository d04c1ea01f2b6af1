package ledger_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cx-tal-miterani/booking-ledger/internal/ledger"
	"github.com/cx-tal-miterani/booking-ledger/internal/models"
)

func TestReconcileReportsAndRepairsDrift(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	flight := f.flight(t, "100", 10)
	kept := f.book(t, f.customer, flight.ID, 2)
	deleted := f.book(t, f.customer, flight.ID, 3)
	require.NotEqual(t, kept.ID, deleted.ID)

	_, err := f.ledger.DeleteBooking(ctx, f.admin, deleted.ID)
	require.NoError(t, err)

	drift, _, err := f.ledger.Reconcile(ctx, f.admin, flight.ID, false)
	require.NoError(t, err)
	assert.Equal(t, 2, drift.Confirmed)
	assert.Equal(t, 8, drift.Expected)
	assert.Equal(t, 5, drift.Actual)
	assert.Equal(t, -3, drift.Drift)
	assert.False(t, drift.Repaired)
	assert.Equal(t, 5, f.seats(t, flight.ID))

	drift, repaired, err := f.ledger.Reconcile(ctx, f.admin, flight.ID, true)
	require.NoError(t, err)
	assert.True(t, drift.Repaired)
	assert.Equal(t, 8, repaired.SeatsAvailable)
	assert.Equal(t, 8, f.seats(t, flight.ID))

	audit := f.store.AuditEntries()
	require.Len(t, audit, 2)
	assert.Equal(t, "flight.reconcile", audit[1].Action)
	assert.JSONEq(t, `{"seats_available":5}`, audit[1].Before)
	assert.JSONEq(t, `{"seats_available":8}`, audit[1].After)

	drift, _, err = f.ledger.Reconcile(ctx, f.admin, flight.ID, true)
	require.NoError(t, err)
	assert.True(t, drift.InSync())
	assert.False(t, drift.Repaired)
	assert.Len(t, f.store.AuditEntries(), 2)
}

func TestReconcileErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	flight := f.flight(t, "100", 10)

	_, _, err := f.ledger.Reconcile(ctx, f.customer, flight.ID, true)
	assert.ErrorIs(t, err, ledger.ErrForbidden)

	_, _, err = f.ledger.Reconcile(ctx, f.admin, uuid.New(), false)
	assert.ErrorIs(t, err, ledger.ErrNotFound)
}

func TestCreateFlight(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	depart := time.Date(2026, 7, 1, 10, 0, 0, 0, time.UTC)

	valid := ledger.NewFlight{
		FlightNumber:         "ta200",
		AirlineID:            f.airline,
		OriginAirportID:      f.origin,
		DestinationAirportID: f.dest,
		DepartureTime:        depart,
		ArrivalTime:          depart.Add(time.Hour),
		Price:                decimal.RequireFromString("89.5"),
		TotalSeats:           40,
	}

	flight, err := f.ledger.CreateFlight(ctx, f.admin, valid)
	require.NoError(t, err)
	assert.Equal(t, "TA200", flight.FlightNumber)
	assert.Equal(t, 40, flight.SeatsAvailable)
	assert.Equal(t, models.FlightStatusScheduled, flight.Status)
	assert.Equal(t, models.PublicationDraft, flight.Publication)

	tests := []struct {
		name     string
		caller   models.Caller
		mutate   func(*ledger.NewFlight)
		expected error
	}{
		{"customer", f.customer, func(*ledger.NewFlight) {}, ledger.ErrForbidden},
		{"same origin and destination", f.admin, func(n *ledger.NewFlight) { n.DestinationAirportID = n.OriginAirportID }, ledger.ErrInvalidArgument},
		{"arrival before departure", f.admin, func(n *ledger.NewFlight) { n.ArrivalTime = n.DepartureTime.Add(-time.Minute) }, ledger.ErrInvalidArgument},
		{"negative price", f.admin, func(n *ledger.NewFlight) { n.Price = decimal.NewFromInt(-1) }, ledger.ErrInvalidArgument},
		{"no seats", f.admin, func(n *ledger.NewFlight) { n.TotalSeats = 0 }, ledger.ErrInvalidArgument},
		{"unknown airline", f.admin, func(n *ledger.NewFlight) { n.AirlineID = uuid.New() }, ledger.ErrNotFound},
		{"unknown airport", f.admin, func(n *ledger.NewFlight) { n.OriginAirportID = uuid.New() }, ledger.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := valid
			tt.mutate(&in)
			_, err := f.ledger.CreateFlight(ctx, tt.caller, in)
			assert.ErrorIs(t, err, tt.expected)
		})
	}
}

func TestUpdateFlightSeatOverrideIsAudited(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	flight := f.flight(t, "100", 10)

	updated, err := f.ledger.UpdateFlight(ctx, f.admin, flight.ID, ledger.FlightPatch{SeatsAvailable: intPtr(4)})
	require.NoError(t, err)
	assert.Equal(t, 4, updated.SeatsAvailable)
	assert.Equal(t, 10, updated.TotalSeats)

	audit := f.store.AuditEntries()
	require.Len(t, audit, 1)
	assert.Equal(t, "flight.seats_override", audit[0].Action)
	assert.Equal(t, flight.ID, audit[0].ResourceID)
	assert.JSONEq(t, `{"seats_available":10}`, audit[0].Before)
	assert.JSONEq(t, `{"seats_available":4}`, audit[0].After)

	for _, n := range []int{-1, 11} {
		_, err := f.ledger.UpdateFlight(ctx, f.admin, flight.ID, ledger.FlightPatch{SeatsAvailable: intPtr(n)})
		assert.ErrorIs(t, err, ledger.ErrInvalidArgument)
	}
	assert.Equal(t, 4, f.seats(t, flight.ID))
}

func TestPublicationToggleLeavesSeatsAlone(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	flight := f.flight(t, "100", 10)
	booking := f.book(t, f.customer, flight.ID, 3)

	for _, p := range []models.Publication{models.PublicationDraft, models.PublicationPublish} {
		updated, err := f.ledger.UpdateFlight(ctx, f.admin, flight.ID, ledger.FlightPatch{Publication: publicationPtr(p)})
		require.NoError(t, err)
		assert.Equal(t, 7, updated.SeatsAvailable)
	}
	assert.Empty(t, f.store.AuditEntries())

	_, err := f.ledger.UpdateFlight(ctx, f.admin, flight.ID, ledger.FlightPatch{Publication: publicationPtr(models.PublicationDraft)})
	require.NoError(t, err)

	// Drafts stop new seats from being sold but cancellations still restore.
	_, err = f.ledger.UpdateBooking(ctx, f.customer, booking.ID, ledger.BookingUpdate{TotalPassengers: intPtr(4)})
	assert.ErrorIs(t, err, ledger.ErrNotFound)
	_, err = f.ledger.CancelBooking(ctx, f.customer, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, f.seats(t, flight.ID))
}

func TestUpdateFlightStatusTransitions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	flight := f.flight(t, "100", 10)

	_, err := f.ledger.UpdateFlight(ctx, f.customer, flight.ID, ledger.FlightPatch{Status: statusPtr(models.FlightStatusDelayed)})
	assert.ErrorIs(t, err, ledger.ErrForbidden)

	updated, err := f.ledger.UpdateFlight(ctx, f.admin, flight.ID, ledger.FlightPatch{Status: statusPtr(models.FlightStatusDelayed)})
	require.NoError(t, err)
	assert.Equal(t, models.FlightStatusDelayed, updated.Status)

	f.book(t, f.customer, flight.ID, 1)

	_, err = f.ledger.UpdateFlight(ctx, f.admin, flight.ID, ledger.FlightPatch{Status: statusPtr(models.FlightStatusCompleted)})
	require.NoError(t, err)

	_, err = f.ledger.UpdateFlight(ctx, f.admin, flight.ID, ledger.FlightPatch{Status: statusPtr(models.FlightStatusScheduled)})
	assert.ErrorIs(t, err, ledger.ErrInvalidState)

	_, err = f.ledger.CreateBooking(ctx, f.customer, ledger.NewBooking{UserID: f.customer.UserID, FlightID: flight.ID, TotalPassengers: 1})
	assert.ErrorIs(t, err, ledger.ErrInvalidState)
}
