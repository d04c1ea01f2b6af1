package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/cx-tal-miterani/booking-ledger/internal/ledger"
	"github.com/cx-tal-miterani/booking-ledger/internal/models"
)

// querier is satisfied by both the pool and a transaction
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository handles all database operations
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// WithinTx runs fn in a transaction, committing only when fn succeeds
func (r *Repository) WithinTx(ctx context.Context, fn func(ctx context.Context, tx ledger.Tx) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(ctx, &pgTx{tx: tx}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return mapError(err, "commit transaction")
	}
	return nil
}

// --- Flight Operations ---

const flightColumns = `
	f.id, f.flight_number, f.airline_id, f.origin_airport_id, f.destination_airport_id,
	f.departure_time, f.arrival_time, f.price::text, f.total_seats, f.seats_available,
	f.status, f.publication, f.created_at, f.updated_at`

func scanFlight(row pgx.Row, extra ...any) (*models.Flight, error) {
	var (
		f                   models.Flight
		price               string
		status, publication string
	)
	dest := []any{
		&f.ID, &f.FlightNumber, &f.AirlineID, &f.OriginAirportID, &f.DestinationAirportID,
		&f.DepartureTime, &f.ArrivalTime, &price, &f.TotalSeats, &f.SeatsAvailable,
		&status, &publication, &f.CreatedAt, &f.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	p, err := decimal.NewFromString(price)
	if err != nil {
		return nil, fmt.Errorf("failed to parse flight price %q: %w", price, err)
	}
	f.Price = p
	f.Status = models.FlightStatus(status)
	f.Publication = models.Publication(publication)
	return &f, nil
}

// Flight returns a flight by ID
func (r *Repository) Flight(ctx context.Context, id uuid.UUID) (*models.Flight, error) {
	f, err := scanFlight(r.pool.QueryRow(ctx, `SELECT `+flightColumns+` FROM flights f WHERE f.id = $1`, id))
	if err != nil {
		return nil, mapError(err, "get flight")
	}
	return f, nil
}

const flightViewQuery = `
	SELECT ` + flightColumns + `, al.name, o.code, d.code
	FROM flights f
	JOIN airlines al ON al.id = f.airline_id
	JOIN airports o ON o.id = f.origin_airport_id
	JOIN airports d ON d.id = f.destination_airport_id`

func scanFlightView(row pgx.Row) (*models.FlightView, error) {
	var v models.FlightView
	f, err := scanFlight(row, &v.AirlineName, &v.OriginCode, &v.DestinationCode)
	if err != nil {
		return nil, err
	}
	v.Flight = *f
	return &v, nil
}

// FlightViews returns every flight with its reference data, by departure
func (r *Repository) FlightViews(ctx context.Context) ([]models.FlightView, error) {
	rows, err := r.pool.Query(ctx, flightViewQuery+` ORDER BY f.departure_time, f.id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query flights: %w", err)
	}
	defer rows.Close()

	flights := []models.FlightView{}
	for rows.Next() {
		v, err := scanFlightView(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan flight: %w", err)
		}
		flights = append(flights, *v)
	}
	return flights, rows.Err()
}

// FlightView retrieves one flight joined with its airline and airports
func (r *Repository) FlightView(ctx context.Context, id uuid.UUID) (*models.FlightView, error) {
	v, err := scanFlightView(r.pool.QueryRow(ctx, flightViewQuery+` WHERE f.id = $1`, id))
	if err != nil {
		return nil, mapError(err, "get flight")
	}
	return v, nil
}

// --- Booking Operations ---

const bookingColumns = `
	b.id, b.reference, b.user_id, b.flight_id, b.total_passengers, b.total_amount::text,
	b.status, b.booking_date, b.updated_at, b.cancelled_at`

func scanBooking(row pgx.Row, extra ...any) (*models.Booking, error) {
	var (
		b      models.Booking
		amount string
		status string
	)
	dest := []any{
		&b.ID, &b.Reference, &b.UserID, &b.FlightID, &b.TotalPassengers, &amount,
		&status, &b.BookingDate, &b.UpdatedAt, &b.CancelledAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	a, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("failed to parse booking amount %q: %w", amount, err)
	}
	b.TotalAmount = a
	b.Status = models.BookingStatus(status)
	return &b, nil
}

const bookingViewQuery = `
	SELECT ` + bookingColumns + `,
	       f.flight_number, al.name, o.code, d.code, f.departure_time, f.arrival_time, u.name, u.email
	FROM bookings b
	JOIN flights f ON f.id = b.flight_id
	JOIN airlines al ON al.id = f.airline_id
	JOIN airports o ON o.id = f.origin_airport_id
	JOIN airports d ON d.id = f.destination_airport_id
	JOIN users u ON u.id = b.user_id`

func scanBookingView(row pgx.Row) (*models.BookingView, error) {
	var v models.BookingView
	b, err := scanBooking(row,
		&v.FlightNumber, &v.AirlineName, &v.OriginCode, &v.DestinationCode,
		&v.DepartureTime, &v.ArrivalTime, &v.UserName, &v.UserEmail)
	if err != nil {
		return nil, err
	}
	v.Booking = *b
	return &v, nil
}

// Booking returns a booking with its passengers
func (r *Repository) Booking(ctx context.Context, id uuid.UUID) (*models.Booking, error) {
	b, err := scanBooking(r.pool.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings b WHERE b.id = $1`, id))
	if err != nil {
		return nil, mapError(err, "get booking")
	}
	if b.Passengers, err = passengers(ctx, r.pool, id); err != nil {
		return nil, err
	}
	return b, nil
}

// BookingView returns the denormalized booking
func (r *Repository) BookingView(ctx context.Context, id uuid.UUID) (*models.BookingView, error) {
	v, err := scanBookingView(r.pool.QueryRow(ctx, bookingViewQuery+` WHERE b.id = $1`, id))
	if err != nil {
		return nil, mapError(err, "get booking")
	}
	if v.Passengers, err = passengers(ctx, r.pool, id); err != nil {
		return nil, err
	}
	return v, nil
}

const bookingFilter = `
	WHERE ($1::uuid IS NULL OR b.user_id = $1)
	  AND ($2 = '' OR lower(b.status) = lower($2))
	  AND ($3 = '' OR b.reference ILIKE '%' || $3 || '%' OR EXISTS (
	        SELECT 1 FROM passengers p
	        WHERE p.booking_id = b.id
	          AND (p.name ILIKE '%' || $3 || '%' OR p.email ILIKE '%' || $3 || '%')))`

// ListBookings filters and pages bookings in (booking_date, id) order
func (r *Repository) ListBookings(ctx context.Context, q ledger.BookingQuery) ([]models.BookingView, int, error) {
	p := q.Params.Normalize()
	search := escapeLike(p.Search)

	var total int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM bookings b`+bookingFilter,
		q.UserID, p.Status, search).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count bookings: %w", err)
	}

	rows, err := r.pool.Query(ctx, bookingViewQuery+bookingFilter+`
		ORDER BY b.booking_date, b.id
		LIMIT $4 OFFSET $5`,
		q.UserID, p.Status, search, p.PageSize, p.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query bookings: %w", err)
	}
	defer rows.Close()

	views := []models.BookingView{}
	for rows.Next() {
		v, err := scanBookingView(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan booking: %w", err)
		}
		views = append(views, *v)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to read bookings: %w", err)
	}

	for i := range views {
		if views[i].Passengers, err = passengers(ctx, r.pool, views[i].ID); err != nil {
			return nil, 0, err
		}
	}
	return views, total, nil
}

func passengers(ctx context.Context, q querier, bookingID uuid.UUID) ([]models.Passenger, error) {
	rows, err := q.Query(ctx, `
		SELECT id, booking_id, name, email, age, gender, seat_number, created_at
		FROM passengers
		WHERE booking_id = $1
		ORDER BY created_at, id
	`, bookingID)
	if err != nil {
		return nil, fmt.Errorf("failed to query passengers: %w", err)
	}
	defer rows.Close()

	out := []models.Passenger{}
	for rows.Next() {
		var p models.Passenger
		if err := rows.Scan(&p.ID, &p.BookingID, &p.Name, &p.Email, &p.Age,
			&p.Gender, &p.SeatNumber, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan passenger: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// escapeLike makes user input literal inside an ILIKE pattern
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// --- Reference data ---

// Users retrieves all users ordered by name
func (r *Repository) Users(ctx context.Context) ([]models.User, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, email, role, created_at FROM users ORDER BY lower(name), id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		var (
			u    models.User
			role string
		)
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &role, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		u.Role = models.Role(role)
		users = append(users, u)
	}
	return users, rows.Err()
}

// Airlines retrieves all airlines ordered by name
func (r *Repository) Airlines(ctx context.Context) ([]models.Airline, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, code, country, status, created_at FROM airlines ORDER BY lower(name), id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query airlines: %w", err)
	}
	defer rows.Close()

	airlines := []models.Airline{}
	for rows.Next() {
		var (
			a      models.Airline
			status string
		)
		if err := rows.Scan(&a.ID, &a.Name, &a.Code, &a.Country, &status, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan airline: %w", err)
		}
		a.Status = models.Publication(status)
		airlines = append(airlines, a)
	}
	return airlines, rows.Err()
}

// Airports retrieves all airports ordered by code
func (r *Repository) Airports(ctx context.Context) ([]models.Airport, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, code, city, country, status, created_at FROM airports ORDER BY code, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query airports: %w", err)
	}
	defer rows.Close()

	airports := []models.Airport{}
	for rows.Next() {
		var (
			a      models.Airport
			status string
		)
		if err := rows.Scan(&a.ID, &a.Name, &a.Code, &a.City, &a.Country, &status, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan airport: %w", err)
		}
		a.Status = models.Publication(status)
		airports = append(airports, a)
	}
	return airports, rows.Err()
}

// InsertUser creates a user row
func (r *Repository) InsertUser(ctx context.Context, u *models.User) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO users (id, name, email, role, created_at) VALUES ($1, $2, $3, $4, $5)
	`, u.ID, u.Name, u.Email, string(u.Role), u.CreatedAt)
	return mapError(err, "insert user")
}

// InsertAirline creates an airline row
func (r *Repository) InsertAirline(ctx context.Context, a *models.Airline) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO airlines (id, name, code, country, status, created_at) VALUES ($1, $2, $3, $4, $5, $6)
	`, a.ID, a.Name, a.Code, a.Country, string(a.Status), a.CreatedAt)
	return mapError(err, "insert airline")
}

// InsertAirport creates an airport row
func (r *Repository) InsertAirport(ctx context.Context, a *models.Airport) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO airports (id, name, code, city, country, status, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, a.ID, a.Name, a.Code, a.City, a.Country, string(a.Status), a.CreatedAt)
	return mapError(err, "insert airport")
}

// --- Transaction ---

type pgTx struct {
	tx pgx.Tx
}

// LockFlight selects the flight row FOR UPDATE
func (t *pgTx) LockFlight(ctx context.Context, id uuid.UUID) (*models.Flight, error) {
	f, err := scanFlight(t.tx.QueryRow(ctx, `SELECT `+flightColumns+` FROM flights f WHERE f.id = $1 FOR UPDATE`, id))
	if err != nil {
		return nil, mapError(err, "lock flight")
	}
	return f, nil
}

// LockBooking selects the booking row FOR UPDATE
func (t *pgTx) LockBooking(ctx context.Context, id uuid.UUID) (*models.Booking, error) {
	b, err := scanBooking(t.tx.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings b WHERE b.id = $1 FOR UPDATE`, id))
	if err != nil {
		return nil, mapError(err, "lock booking")
	}
	if b.Passengers, err = passengers(ctx, t.tx, id); err != nil {
		return nil, err
	}
	return b, nil
}

func (t *pgTx) exists(ctx context.Context, sql string, arg any) (bool, error) {
	var ok bool
	if err := t.tx.QueryRow(ctx, sql, arg).Scan(&ok); err != nil {
		return false, fmt.Errorf("failed to check existence: %w", err)
	}
	return ok, nil
}

func (t *pgTx) ReferenceTaken(ctx context.Context, reference string) (bool, error) {
	return t.exists(ctx, `SELECT EXISTS (SELECT 1 FROM bookings WHERE reference = $1)`, reference)
}

func (t *pgTx) UserExists(ctx context.Context, id uuid.UUID) (bool, error) {
	return t.exists(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, id)
}

func (t *pgTx) AirlineExists(ctx context.Context, id uuid.UUID) (bool, error) {
	return t.exists(ctx, `SELECT EXISTS (SELECT 1 FROM airlines WHERE id = $1)`, id)
}

func (t *pgTx) AirportExists(ctx context.Context, id uuid.UUID) (bool, error) {
	return t.exists(ctx, `SELECT EXISTS (SELECT 1 FROM airports WHERE id = $1)`, id)
}

func (t *pgTx) CountPassengers(ctx context.Context, bookingID uuid.UUID) (int, error) {
	var n int
	if err := t.tx.QueryRow(ctx, `SELECT COUNT(*) FROM passengers WHERE booking_id = $1`, bookingID).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count passengers: %w", err)
	}
	return n, nil
}

func (t *pgTx) ConfirmedPassengers(ctx context.Context, flightID uuid.UUID) (int, error) {
	var n int
	err := t.tx.QueryRow(ctx, `
		SELECT COALESCE(SUM(total_passengers), 0)
		FROM bookings
		WHERE flight_id = $1 AND status = $2
	`, flightID, string(models.BookingStatusConfirmed)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to sum confirmed passengers: %w", err)
	}
	return n, nil
}

func (t *pgTx) InsertBooking(ctx context.Context, b *models.Booking) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO bookings (id, reference, user_id, flight_id, total_passengers, total_amount,
		                      status, booking_date, updated_at, cancelled_at)
		VALUES ($1, $2, $3, $4, $5, $6::numeric, $7, $8, $9, $10)
	`, b.ID, b.Reference, b.UserID, b.FlightID, b.TotalPassengers, b.TotalAmount.String(),
		string(b.Status), b.BookingDate, b.UpdatedAt, b.CancelledAt)
	return mapError(err, "insert booking")
}

func (t *pgTx) UpdateBooking(ctx context.Context, b *models.Booking) error {
	tag, err := t.tx.Exec(ctx, `
		UPDATE bookings
		SET total_passengers = $2, total_amount = $3::numeric, status = $4, updated_at = $5, cancelled_at = $6
		WHERE id = $1
	`, b.ID, b.TotalPassengers, b.TotalAmount.String(), string(b.Status), b.UpdatedAt, b.CancelledAt)
	if err != nil {
		return mapError(err, "update booking")
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (t *pgTx) DeleteBooking(ctx context.Context, id uuid.UUID) error {
	tag, err := t.tx.Exec(ctx, `DELETE FROM bookings WHERE id = $1`, id)
	if err != nil {
		return mapError(err, "delete booking")
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (t *pgTx) InsertPassenger(ctx context.Context, p *models.Passenger) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO passengers (id, booking_id, name, email, age, gender, seat_number, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, p.ID, p.BookingID, p.Name, p.Email, p.Age, p.Gender, p.SeatNumber, p.CreatedAt)
	return mapError(err, "insert passenger")
}

func (t *pgTx) InsertFlight(ctx context.Context, f *models.Flight) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO flights (id, flight_number, airline_id, origin_airport_id, destination_airport_id,
		                     departure_time, arrival_time, price, total_seats, seats_available,
		                     status, publication, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8::numeric, $9, $10, $11, $12, $13, $14)
	`, f.ID, f.FlightNumber, f.AirlineID, f.OriginAirportID, f.DestinationAirportID,
		f.DepartureTime, f.ArrivalTime, f.Price.String(), f.TotalSeats, f.SeatsAvailable,
		string(f.Status), string(f.Publication), f.CreatedAt, f.UpdatedAt)
	return mapError(err, "insert flight")
}

// UpdateFlight writes the mutable columns; total_seats is never updated
func (t *pgTx) UpdateFlight(ctx context.Context, f *models.Flight) error {
	tag, err := t.tx.Exec(ctx, `
		UPDATE flights
		SET price = $2::numeric, departure_time = $3, arrival_time = $4, seats_available = $5,
		    status = $6, publication = $7, updated_at = $8
		WHERE id = $1
	`, f.ID, f.Price.String(), f.DepartureTime, f.ArrivalTime, f.SeatsAvailable,
		string(f.Status), string(f.Publication), f.UpdatedAt)
	if err != nil {
		return mapError(err, "update flight")
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (t *pgTx) InsertAudit(ctx context.Context, e *models.AuditEntry) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO audit_log (id, actor_id, action, resource_type, resource_id, before_value, after_value, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, e.ID, e.ActorID, e.Action, e.ResourceType, e.ResourceID, e.Before, e.After, e.CreatedAt)
	return mapError(err, "insert audit entry")
}

// Ping checks connectivity
func (r *Repository) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return r.pool.Ping(ctx)
}
