package database

import (
	"context"
	"fmt"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id          UUID PRIMARY KEY,
	name        TEXT NOT NULL,
	email       TEXT NOT NULL UNIQUE,
	role        TEXT NOT NULL DEFAULT 'customer' CHECK (role IN ('admin', 'customer')),
	created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS airlines (
	id          UUID PRIMARY KEY,
	name        TEXT NOT NULL,
	code        TEXT NOT NULL UNIQUE,
	country     TEXT NOT NULL,
	status      TEXT NOT NULL DEFAULT 'Publish' CHECK (status IN ('Publish', 'Draft')),
	created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS airports (
	id          UUID PRIMARY KEY,
	name        TEXT NOT NULL,
	code        CHAR(3) NOT NULL UNIQUE CHECK (code ~ '^[A-Z]{3}$'),
	city        TEXT NOT NULL,
	country     TEXT NOT NULL,
	status      TEXT NOT NULL DEFAULT 'Publish' CHECK (status IN ('Publish', 'Draft')),
	created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS flights (
	id                      UUID PRIMARY KEY,
	flight_number           TEXT NOT NULL,
	airline_id              UUID NOT NULL REFERENCES airlines(id),
	origin_airport_id       UUID NOT NULL REFERENCES airports(id),
	destination_airport_id  UUID NOT NULL REFERENCES airports(id),
	departure_time          TIMESTAMPTZ NOT NULL,
	arrival_time            TIMESTAMPTZ NOT NULL,
	price                   NUMERIC(12, 2) NOT NULL CHECK (price >= 0),
	total_seats             INTEGER NOT NULL CHECK (total_seats > 0),
	seats_available         INTEGER NOT NULL,
	status                  TEXT NOT NULL DEFAULT 'Scheduled'
	                        CHECK (status IN ('Scheduled', 'Delayed', 'Cancelled', 'Completed')),
	publication             TEXT NOT NULL DEFAULT 'Draft' CHECK (publication IN ('Publish', 'Draft')),
	created_at              TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at              TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	CONSTRAINT flights_route_check CHECK (origin_airport_id <> destination_airport_id),
	CONSTRAINT flights_schedule_check CHECK (arrival_time > departure_time),
	CONSTRAINT flights_seats_check CHECK (seats_available BETWEEN 0 AND total_seats)
);

CREATE TABLE IF NOT EXISTS bookings (
	id                UUID PRIMARY KEY,
	reference         TEXT NOT NULL UNIQUE,
	user_id           UUID NOT NULL REFERENCES users(id),
	flight_id         UUID NOT NULL REFERENCES flights(id),
	total_passengers  INTEGER NOT NULL CHECK (total_passengers > 0),
	total_amount      NUMERIC(12, 2) NOT NULL CHECK (total_amount >= 0),
	status            TEXT NOT NULL CHECK (status IN ('Confirmed', 'Cancelled')),
	booking_date      TIMESTAMPTZ NOT NULL,
	updated_at        TIMESTAMPTZ NOT NULL,
	cancelled_at      TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS bookings_order_idx ON bookings (booking_date, id);
CREATE INDEX IF NOT EXISTS bookings_flight_status_idx ON bookings (flight_id, status);
CREATE INDEX IF NOT EXISTS bookings_user_idx ON bookings (user_id);

CREATE TABLE IF NOT EXISTS passengers (
	id           UUID PRIMARY KEY,
	booking_id   UUID NOT NULL REFERENCES bookings(id) ON DELETE CASCADE,
	name         TEXT NOT NULL,
	email        TEXT NOT NULL DEFAULT '',
	age          INTEGER NOT NULL CHECK (age >= 0),
	gender       TEXT NOT NULL DEFAULT '',
	seat_number  TEXT NOT NULL DEFAULT '',
	created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS passengers_booking_idx ON passengers (booking_id);

CREATE TABLE IF NOT EXISTS audit_log (
	id             UUID PRIMARY KEY,
	actor_id       UUID NOT NULL,
	action         TEXT NOT NULL,
	resource_type  TEXT NOT NULL,
	resource_id    UUID NOT NULL,
	before_value   TEXT NOT NULL DEFAULT '',
	after_value    TEXT NOT NULL DEFAULT '',
	created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`

// Migrate creates the schema if it does not exist
func (r *Repository) Migrate(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}
