package database

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/cx-tal-miterani/booking-ledger/internal/ledger"
	"github.com/cx-tal-miterani/booking-ledger/internal/models"
	"github.com/cx-tal-miterani/booking-ledger/internal/query"
)

// MemoryStore keeps everything in process. Transactions are serialised by one
// mutex and run against a copy of the state that replaces the live state only
// when the transaction succeeds.
type MemoryStore struct {
	mu    sync.RWMutex
	state *memState
}

type memState struct {
	users      map[uuid.UUID]models.User
	airlines   map[uuid.UUID]models.Airline
	airports   map[uuid.UUID]models.Airport
	flights    map[uuid.UUID]models.Flight
	bookings   map[uuid.UUID]models.Booking
	passengers map[uuid.UUID][]models.Passenger
	audit      []models.AuditEntry
}

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{state: &memState{
		users:      make(map[uuid.UUID]models.User),
		airlines:   make(map[uuid.UUID]models.Airline),
		airports:   make(map[uuid.UUID]models.Airport),
		flights:    make(map[uuid.UUID]models.Flight),
		bookings:   make(map[uuid.UUID]models.Booking),
		passengers: make(map[uuid.UUID][]models.Passenger),
	}}
}

func (s *memState) clone() *memState {
	c := &memState{
		users:      make(map[uuid.UUID]models.User, len(s.users)),
		airlines:   make(map[uuid.UUID]models.Airline, len(s.airlines)),
		airports:   make(map[uuid.UUID]models.Airport, len(s.airports)),
		flights:    make(map[uuid.UUID]models.Flight, len(s.flights)),
		bookings:   make(map[uuid.UUID]models.Booking, len(s.bookings)),
		passengers: make(map[uuid.UUID][]models.Passenger, len(s.passengers)),
		audit:      append([]models.AuditEntry(nil), s.audit...),
	}
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.airlines {
		c.airlines[k] = v
	}
	for k, v := range s.airports {
		c.airports[k] = v
	}
	for k, v := range s.flights {
		c.flights[k] = v
	}
	for k, v := range s.bookings {
		c.bookings[k] = v
	}
	for k, v := range s.passengers {
		c.passengers[k] = append([]models.Passenger(nil), v...)
	}
	return c
}

// WithinTx runs fn against a private copy of the state
func (s *MemoryStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx ledger.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memTx{st: s.state.clone()}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	s.state = tx.st
	return nil
}

// Flight returns a copy of the stored flight
func (s *MemoryStore) Flight(ctx context.Context, id uuid.UUID) (*models.Flight, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	f, ok := s.state.flights[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &f, nil
}

// Booking returns a copy of the stored booking
func (s *MemoryStore) Booking(ctx context.Context, id uuid.UUID) (*models.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.state.bookings[id]
	if !ok {
		return nil, ErrNotFound
	}
	b.Passengers = s.state.passengersOf(id)
	return &b, nil
}

// BookingView returns a booking with its passengers and flight summary
func (s *MemoryStore) BookingView(ctx context.Context, id uuid.UUID) (*models.BookingView, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.state.bookings[id]
	if !ok {
		return nil, ErrNotFound
	}
	v := s.state.view(b)
	return &v, nil
}

// ListBookings filters then pages in (booking_date, id) order
func (s *MemoryStore) ListBookings(ctx context.Context, q ledger.BookingQuery) ([]models.BookingView, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := make([]models.Booking, 0, len(s.state.bookings))
	for _, b := range s.state.bookings {
		all = append(all, b)
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].BookingDate.Equal(all[j].BookingDate) {
			return all[i].BookingDate.Before(all[j].BookingDate)
		}
		return all[i].ID.String() < all[j].ID.String()
	})

	matched := query.Filter(all, func(b models.Booking) bool {
		if q.UserID != nil && b.UserID != *q.UserID {
			return false
		}
		if !query.StatusMatches(q.Status, string(b.Status)) {
			return false
		}
		fields := []string{b.Reference}
		for _, p := range s.state.passengers[b.ID] {
			fields = append(fields, p.Name, p.Email)
		}
		return query.Matches(q.Search, fields...)
	})

	page := query.Paginate(matched, q.Params)
	views := make([]models.BookingView, 0, len(page.Items))
	for _, b := range page.Items {
		views = append(views, s.state.view(b))
	}
	return views, page.Total, nil
}

// AuditEntries returns the audit log in insertion order
func (s *MemoryStore) AuditEntries() []models.AuditEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.AuditEntry(nil), s.state.audit...)
}

func (st *memState) passengersOf(bookingID uuid.UUID) []models.Passenger {
	out := append([]models.Passenger{}, st.passengers[bookingID]...)
	return out
}

func (st *memState) view(b models.Booking) models.BookingView {
	b.Passengers = st.passengersOf(b.ID)
	v := models.BookingView{Booking: b}
	if f, ok := st.flights[b.FlightID]; ok {
		v.FlightNumber = f.FlightNumber
		v.DepartureTime = f.DepartureTime
		v.ArrivalTime = f.ArrivalTime
		v.AirlineName = st.airlines[f.AirlineID].Name
		v.OriginCode = st.airports[f.OriginAirportID].Code
		v.DestinationCode = st.airports[f.DestinationAirportID].Code
	}
	if u, ok := st.users[b.UserID]; ok {
		v.UserName = u.Name
		v.UserEmail = u.Email
	}
	return v
}

func (st *memState) flightView(f models.Flight) models.FlightView {
	return models.FlightView{
		Flight:          f,
		AirlineName:     st.airlines[f.AirlineID].Name,
		OriginCode:      st.airports[f.OriginAirportID].Code,
		DestinationCode: st.airports[f.DestinationAirportID].Code,
	}
}

// memTx mutates a private copy; the store's mutex is already held
type memTx struct {
	st *memState
}

// LockFlight reads a flight inside the transaction
func (t *memTx) LockFlight(ctx context.Context, id uuid.UUID) (*models.Flight, error) {
	f, ok := t.st.flights[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &f, nil
}

// LockBooking reads a booking inside the transaction
func (t *memTx) LockBooking(ctx context.Context, id uuid.UUID) (*models.Booking, error) {
	b, ok := t.st.bookings[id]
	if !ok {
		return nil, ErrNotFound
	}
	b.Passengers = t.st.passengersOf(id)
	return &b, nil
}

func (t *memTx) ReferenceTaken(ctx context.Context, reference string) (bool, error) {
	for _, b := range t.st.bookings {
		if b.Reference == reference {
			return true, nil
		}
	}
	return false, nil
}

func (t *memTx) UserExists(ctx context.Context, id uuid.UUID) (bool, error) {
	_, ok := t.st.users[id]
	return ok, nil
}

func (t *memTx) AirlineExists(ctx context.Context, id uuid.UUID) (bool, error) {
	_, ok := t.st.airlines[id]
	return ok, nil
}

func (t *memTx) AirportExists(ctx context.Context, id uuid.UUID) (bool, error) {
	_, ok := t.st.airports[id]
	return ok, nil
}

func (t *memTx) CountPassengers(ctx context.Context, bookingID uuid.UUID) (int, error) {
	return len(t.st.passengers[bookingID]), nil
}

func (t *memTx) ConfirmedPassengers(ctx context.Context, flightID uuid.UUID) (int, error) {
	total := 0
	for _, b := range t.st.bookings {
		if b.FlightID == flightID && b.Status == models.BookingStatusConfirmed {
			total += b.TotalPassengers
		}
	}
	return total, nil
}

func (t *memTx) InsertBooking(ctx context.Context, b *models.Booking) error {
	if _, ok := t.st.bookings[b.ID]; ok {
		return fmt.Errorf("%w: booking %s", ErrDuplicate, b.ID)
	}
	if taken, _ := t.ReferenceTaken(ctx, b.Reference); taken {
		return fmt.Errorf("%w: booking reference %s", ErrDuplicate, b.Reference)
	}
	if _, ok := t.st.flights[b.FlightID]; !ok {
		return fmt.Errorf("%w: flight %s", ErrNotFound, b.FlightID)
	}
	if _, ok := t.st.users[b.UserID]; !ok {
		return fmt.Errorf("%w: user %s", ErrNotFound, b.UserID)
	}
	stored := *b
	stored.Passengers = nil
	t.st.bookings[b.ID] = stored
	return nil
}

func (t *memTx) UpdateBooking(ctx context.Context, b *models.Booking) error {
	if _, ok := t.st.bookings[b.ID]; !ok {
		return ErrNotFound
	}
	stored := *b
	stored.Passengers = nil
	t.st.bookings[b.ID] = stored
	return nil
}

func (t *memTx) DeleteBooking(ctx context.Context, id uuid.UUID) error {
	if _, ok := t.st.bookings[id]; !ok {
		return ErrNotFound
	}
	delete(t.st.bookings, id)
	delete(t.st.passengers, id)
	return nil
}

func (t *memTx) InsertPassenger(ctx context.Context, p *models.Passenger) error {
	if _, ok := t.st.bookings[p.BookingID]; !ok {
		return fmt.Errorf("%w: booking %s", ErrNotFound, p.BookingID)
	}
	t.st.passengers[p.BookingID] = append(t.st.passengers[p.BookingID], *p)
	return nil
}

func (t *memTx) InsertFlight(ctx context.Context, f *models.Flight) error {
	if _, ok := t.st.flights[f.ID]; ok {
		return fmt.Errorf("%w: flight %s", ErrDuplicate, f.ID)
	}
	if err := checkSeats(f); err != nil {
		return err
	}
	t.st.flights[f.ID] = *f
	return nil
}

func (t *memTx) UpdateFlight(ctx context.Context, f *models.Flight) error {
	current, ok := t.st.flights[f.ID]
	if !ok {
		return ErrNotFound
	}
	if current.TotalSeats != f.TotalSeats {
		return fmt.Errorf("%w: total_seats is immutable", ledger.ErrInvalidArgument)
	}
	if err := checkSeats(f); err != nil {
		return err
	}
	t.st.flights[f.ID] = *f
	return nil
}

func (t *memTx) InsertAudit(ctx context.Context, e *models.AuditEntry) error {
	t.st.audit = append(t.st.audit, *e)
	return nil
}

// checkSeats mirrors the flights_seats_check constraint
func checkSeats(f *models.Flight) error {
	if f.SeatsAvailable < 0 || f.SeatsAvailable > f.TotalSeats {
		return fmt.Errorf("%w: seats_available %d outside [0, %d]", ledger.ErrConflict, f.SeatsAvailable, f.TotalSeats)
	}
	return nil
}

// --- Reference data ---

// Users returns every user ordered by name
func (s *MemoryStore) Users(ctx context.Context) ([]models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.User, 0, len(s.state.users))
	for _, u := range s.state.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return lessFold(out[i].Name, out[j].Name, out[i].ID, out[j].ID) })
	return out, nil
}

// Airlines returns every airline ordered by name
func (s *MemoryStore) Airlines(ctx context.Context) ([]models.Airline, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Airline, 0, len(s.state.airlines))
	for _, a := range s.state.airlines {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return lessFold(out[i].Name, out[j].Name, out[i].ID, out[j].ID) })
	return out, nil
}

// Airports returns every airport ordered by code
func (s *MemoryStore) Airports(ctx context.Context) ([]models.Airport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Airport, 0, len(s.state.airports))
	for _, a := range s.state.airports {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return lessFold(out[i].Code, out[j].Code, out[i].ID, out[j].ID) })
	return out, nil
}

// FlightViews returns all flights joined with their airline and airports
func (s *MemoryStore) FlightViews(ctx context.Context) ([]models.FlightView, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.FlightView, 0, len(s.state.flights))
	for _, f := range s.state.flights {
		out = append(out, s.state.flightView(f))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].DepartureTime.Equal(out[j].DepartureTime) {
			return out[i].DepartureTime.Before(out[j].DepartureTime)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}

// FlightView returns one flight joined with its airline and airports
func (s *MemoryStore) FlightView(ctx context.Context, id uuid.UUID) (*models.FlightView, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	f, ok := s.state.flights[id]
	if !ok {
		return nil, ErrNotFound
	}
	v := s.state.flightView(f)
	return &v, nil
}

// InsertUser stores a user; the email must be unique
func (s *MemoryStore) InsertUser(ctx context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.state.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return fmt.Errorf("%w: user email %s", ErrDuplicate, u.Email)
		}
	}
	s.state.users[u.ID] = *u
	return nil
}

// InsertAirline stores an airline; the code must be unique
func (s *MemoryStore) InsertAirline(ctx context.Context, a *models.Airline) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.state.airlines {
		if existing.Code == a.Code {
			return fmt.Errorf("%w: airline code %s", ErrDuplicate, a.Code)
		}
	}
	s.state.airlines[a.ID] = *a
	return nil
}

// InsertAirport stores an airport; the code must be unique
func (s *MemoryStore) InsertAirport(ctx context.Context, a *models.Airport) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.state.airports {
		if existing.Code == a.Code {
			return fmt.Errorf("%w: airport code %s", ErrDuplicate, a.Code)
		}
	}
	s.state.airports[a.ID] = *a
	return nil
}

func lessFold(a, b string, idA, idB uuid.UUID) bool {
	la, lb := strings.ToLower(a), strings.ToLower(b)
	if la != lb {
		return la < lb
	}
	return idA.String() < idB.String()
}
