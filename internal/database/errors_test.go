package database

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"github.com/cx-tal-miterani/booking-ledger/internal/ledger"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected error
	}{
		{"no rows", pgx.ErrNoRows, ErrNotFound},
		{"wrapped no rows", fmt.Errorf("scan: %w", pgx.ErrNoRows), ErrNotFound},
		{"unique violation", &pgconn.PgError{Code: "23505", ConstraintName: "bookings_reference_key"}, ErrDuplicate},
		{"foreign key violation", &pgconn.PgError{Code: "23503", ConstraintName: "bookings_flight_id_fkey"}, ledger.ErrNotFound},
		{"check violation", &pgconn.PgError{Code: "23514", ConstraintName: "flights_seats_check"}, ledger.ErrConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, mapError(tt.err, "insert booking"), tt.expected)
		})
	}
}

func TestMapErrorKeepsUnknownErrors(t *testing.T) {
	cause := errors.New("connection reset")
	err := mapError(cause, "update flight")

	assert.ErrorIs(t, err, cause)
	assert.EqualError(t, err, "failed to update flight: connection reset")
	assert.NoError(t, mapError(nil, "noop"))
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `50\%\_off\\`, escapeLike(`50%_off\`))
	assert.Equal(t, "smith", escapeLike("smith"))
}
