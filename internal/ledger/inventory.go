package ledger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/cx-tal-miterani/booking-ledger/internal/models"
	"github.com/cx-tal-miterani/booking-ledger/internal/pricing"
)

// Drift compares a flight's seat counter with what its confirmed bookings
// imply: seats_available == total_seats - sum(confirmed total_passengers).
type Drift struct {
	FlightID  uuid.UUID `json:"flight_id"`
	Total     int       `json:"total_seats"`
	Confirmed int       `json:"confirmed_passengers"`
	Expected  int       `json:"expected_seats_available"`
	Actual    int       `json:"seats_available"`
	Drift     int       `json:"drift"`
	Repaired  bool      `json:"repaired"`
}

// InSync reports whether the counter matches the bookings
func (d *Drift) InSync() bool {
	return d.Drift == 0
}

// Reconcile is the only operation that scans a flight's bookings. It reports
// the counter drift and, with repair set, rewrites the counter and audits it.
func (l *Ledger) Reconcile(ctx context.Context, caller models.Caller, flightID uuid.UUID, repair bool) (*Drift, *models.Flight, error) {
	if !caller.IsAdmin() {
		return nil, nil, fmt.Errorf("%w: only admins may reconcile inventory", ErrForbidden)
	}

	var (
		drift  Drift
		flight *models.Flight
	)
	err := l.store.WithinTx(ctx, func(ctx context.Context, tx Tx) error {
		f, err := tx.LockFlight(ctx, flightID)
		if err != nil {
			return notFound(err, "flight", flightID)
		}
		confirmed, err := tx.ConfirmedPassengers(ctx, flightID)
		if err != nil {
			return err
		}

		expected := clampSeats(f.TotalSeats-confirmed, f.TotalSeats)
		drift = Drift{
			FlightID:  f.ID,
			Total:     f.TotalSeats,
			Confirmed: confirmed,
			Expected:  expected,
			Actual:    f.SeatsAvailable,
			Drift:     f.SeatsAvailable - expected,
		}
		flight = f

		if !repair || drift.InSync() {
			return nil
		}

		before := f.SeatsAvailable
		f.SeatsAvailable = expected
		f.UpdatedAt = l.now()
		if err := tx.UpdateFlight(ctx, f); err != nil {
			return err
		}
		drift.Repaired = true
		return l.audit(ctx, tx, caller, "flight.reconcile", "flight", f.ID,
			map[string]int{"seats_available": before}, map[string]int{"seats_available": expected})
	})
	if err != nil {
		return nil, nil, err
	}

	if !drift.InSync() {
		l.log.Warn("INVENTORY", "seat counter drift",
			"flight_id", flightID, "expected", drift.Expected, "actual", drift.Actual,
			"drift", drift.Drift, "repaired", drift.Repaired)
	}
	return &drift, flight, nil
}

// NewFlight is the input to CreateFlight
type NewFlight struct {
	FlightNumber         string
	AirlineID            uuid.UUID
	OriginAirportID      uuid.UUID
	DestinationAirportID uuid.UUID
	DepartureTime        time.Time
	ArrivalTime          time.Time
	Price                decimal.Decimal
	TotalSeats           int
	Publication          models.Publication
}

// FlightPatch holds the mutable flight fields. total_seats is immutable.
type FlightPatch struct {
	Price          *decimal.Decimal
	DepartureTime  *time.Time
	ArrivalTime    *time.Time
	Status         *models.FlightStatus
	Publication    *models.Publication
	SeatsAvailable *int
}

// CreateFlight schedules a new flight with every seat available
func (l *Ledger) CreateFlight(ctx context.Context, caller models.Caller, in NewFlight) (*models.Flight, error) {
	if !caller.IsAdmin() {
		return nil, fmt.Errorf("%w: only admins may create flights", ErrForbidden)
	}

	now := l.now()
	flight := &models.Flight{
		ID:                   uuid.New(),
		FlightNumber:         strings.ToUpper(strings.TrimSpace(in.FlightNumber)),
		AirlineID:            in.AirlineID,
		OriginAirportID:      in.OriginAirportID,
		DestinationAirportID: in.DestinationAirportID,
		DepartureTime:        in.DepartureTime.UTC(),
		ArrivalTime:          in.ArrivalTime.UTC(),
		Price:                pricing.Normalize(in.Price),
		TotalSeats:           in.TotalSeats,
		SeatsAvailable:       in.TotalSeats,
		Status:               models.FlightStatusScheduled,
		Publication:          in.Publication,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	if flight.Publication == "" {
		flight.Publication = models.PublicationDraft
	}
	if err := flight.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}

	err := l.store.WithinTx(ctx, func(ctx context.Context, tx Tx) error {
		ok, err := tx.AirlineExists(ctx, flight.AirlineID)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: airline %s", ErrNotFound, flight.AirlineID)
		}
		for _, id := range []uuid.UUID{flight.OriginAirportID, flight.DestinationAirportID} {
			ok, err := tx.AirportExists(ctx, id)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("%w: airport %s", ErrNotFound, id)
			}
		}
		return tx.InsertFlight(ctx, flight)
	})
	if err != nil {
		return nil, err
	}

	l.log.Info("INVENTORY", "flight created",
		"flight_id", flight.ID, "flight_number", flight.FlightNumber, "total_seats", flight.TotalSeats)
	return flight, nil
}

// UpdateFlight applies an admin patch. Publication toggles never touch seat
// counts. A seats_available override is audited with its before and after
// values; Cancelled and Completed flights are terminal.
func (l *Ledger) UpdateFlight(ctx context.Context, caller models.Caller, id uuid.UUID, patch FlightPatch) (*models.Flight, error) {
	if !caller.IsAdmin() {
		return nil, fmt.Errorf("%w: only admins may update flights", ErrForbidden)
	}

	var flight *models.Flight
	err := l.store.WithinTx(ctx, func(ctx context.Context, tx Tx) error {
		f, err := tx.LockFlight(ctx, id)
		if err != nil {
			return notFound(err, "flight", id)
		}

		if patch.Status != nil && *patch.Status != f.Status && !f.Operating() {
			return fmt.Errorf("%w: flight %s is %s", ErrInvalidState, f.FlightNumber, f.Status)
		}

		before := f.SeatsAvailable
		if patch.Price != nil {
			f.Price = pricing.Normalize(*patch.Price)
		}
		if patch.DepartureTime != nil {
			f.DepartureTime = patch.DepartureTime.UTC()
		}
		if patch.ArrivalTime != nil {
			f.ArrivalTime = patch.ArrivalTime.UTC()
		}
		if patch.Status != nil {
			f.Status = *patch.Status
		}
		if patch.Publication != nil {
			f.Publication = *patch.Publication
		}
		if patch.SeatsAvailable != nil {
			f.SeatsAvailable = *patch.SeatsAvailable
		}
		if err := f.Validate(); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidArgument, err)
		}

		f.UpdatedAt = l.now()
		if err := tx.UpdateFlight(ctx, f); err != nil {
			return err
		}
		if f.SeatsAvailable != before {
			if err := l.audit(ctx, tx, caller, "flight.seats_override", "flight", f.ID,
				map[string]int{"seats_available": before}, map[string]int{"seats_available": f.SeatsAvailable}); err != nil {
				return err
			}
		}
		flight = f
		return nil
	})
	if err != nil {
		return nil, err
	}

	l.log.Info("INVENTORY", "flight updated",
		"flight_id", id, "status", flight.Status, "publication", flight.Publication,
		"seats_available", flight.SeatsAvailable)
	return flight, nil
}

func clampSeats(n, total int) int {
	if n < 0 {
		return 0
	}
	if n > total {
		return total
	}
	return n
}
