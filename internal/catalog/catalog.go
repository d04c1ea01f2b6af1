// Package catalog serves the reference data around the ledger: users,
// airlines, airports and flight listings. Lists are filtered first and then
// paginated.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/cx-tal-miterani/booking-ledger/internal/ledger"
	"github.com/cx-tal-miterani/booking-ledger/internal/logger"
	"github.com/cx-tal-miterani/booking-ledger/internal/models"
	"github.com/cx-tal-miterani/booking-ledger/internal/query"
)

// Source is implemented by the Postgres repository and the memory store
type Source interface {
	Users(ctx context.Context) ([]models.User, error)
	Airlines(ctx context.Context) ([]models.Airline, error)
	Airports(ctx context.Context) ([]models.Airport, error)
	FlightViews(ctx context.Context) ([]models.FlightView, error)
	FlightView(ctx context.Context, id uuid.UUID) (*models.FlightView, error)

	InsertUser(ctx context.Context, u *models.User) error
	InsertAirline(ctx context.Context, a *models.Airline) error
	InsertAirport(ctx context.Context, a *models.Airport) error
}

type Catalog struct {
	src Source
	log *logger.Logger
	now func() time.Time
}

func New(src Source, log *logger.Logger) *Catalog {
	return &Catalog{src: src, log: log, now: func() time.Time { return time.Now().UTC() }}
}

// Users filters on name and email; Status filters on role. Admin only.
func (c *Catalog) Users(ctx context.Context, caller models.Caller, p query.Params) (query.Page[models.User], error) {
	if !caller.IsAdmin() {
		return query.Page[models.User]{}, fmt.Errorf("%w: only admins may list users", ledger.ErrForbidden)
	}
	all, err := c.src.Users(ctx)
	if err != nil {
		return query.Page[models.User]{}, err
	}
	return query.Paginate(query.Filter(all, func(u models.User) bool {
		return query.Matches(p.Search, u.Name, u.Email) && query.StatusMatches(p.Status, string(u.Role))
	}), p), nil
}

// Airlines filters on name, code and country
func (c *Catalog) Airlines(ctx context.Context, caller models.Caller, p query.Params) (query.Page[models.Airline], error) {
	all, err := c.src.Airlines(ctx)
	if err != nil {
		return query.Page[models.Airline]{}, err
	}
	p = visible(caller, p)
	return query.Paginate(query.Filter(all, func(a models.Airline) bool {
		return query.Matches(p.Search, a.Name, a.Code, a.Country) && query.StatusMatches(p.Status, string(a.Status))
	}), p), nil
}

// Airports filters on name, code, city and country
func (c *Catalog) Airports(ctx context.Context, caller models.Caller, p query.Params) (query.Page[models.Airport], error) {
	all, err := c.src.Airports(ctx)
	if err != nil {
		return query.Page[models.Airport]{}, err
	}
	p = visible(caller, p)
	return query.Paginate(query.Filter(all, func(a models.Airport) bool {
		return query.Matches(p.Search, a.Name, a.Code, a.City, a.Country) && query.StatusMatches(p.Status, string(a.Status))
	}), p), nil
}

// Flights filters on flight number, airline name and airport codes; Status
// filters on publication
func (c *Catalog) Flights(ctx context.Context, caller models.Caller, p query.Params) (query.Page[models.FlightView], error) {
	all, err := c.src.FlightViews(ctx)
	if err != nil {
		return query.Page[models.FlightView]{}, err
	}
	p = visible(caller, p)
	return query.Paginate(query.Filter(all, func(f models.FlightView) bool {
		return query.Matches(p.Search, f.FlightNumber, f.AirlineName, f.OriginCode, f.DestinationCode) &&
			query.StatusMatches(p.Status, string(f.Publication))
	}), p), nil
}

// Flight returns one flight. Drafts are hidden from customers.
func (c *Catalog) Flight(ctx context.Context, caller models.Caller, id uuid.UUID) (*models.FlightView, error) {
	f, err := c.src.FlightView(ctx, id)
	if err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			return nil, fmt.Errorf("%w: flight %s", ledger.ErrNotFound, id)
		}
		return nil, err
	}
	if !caller.IsAdmin() && !f.Published() {
		return nil, fmt.Errorf("%w: flight %s", ledger.ErrNotFound, id)
	}
	return f, nil
}

// CreateUser registers a user. Used by seeding and admin tooling.
func (c *Catalog) CreateUser(ctx context.Context, caller models.Caller, name, email string, role models.Role) (*models.User, error) {
	if !caller.IsAdmin() {
		return nil, fmt.Errorf("%w: only admins may create users", ledger.ErrForbidden)
	}
	if role == "" {
		role = models.RoleCustomer
	}
	if role != models.RoleAdmin && role != models.RoleCustomer {
		return nil, fmt.Errorf("%w: unknown role %q", ledger.ErrInvalidArgument, role)
	}
	name, email = strings.TrimSpace(name), strings.ToLower(strings.TrimSpace(email))
	if name == "" || !strings.Contains(email, "@") {
		return nil, fmt.Errorf("%w: name and a valid email are required", ledger.ErrInvalidArgument)
	}

	u := &models.User{ID: uuid.New(), Name: name, Email: email, Role: role, CreatedAt: c.now()}
	if err := c.src.InsertUser(ctx, u); err != nil {
		return nil, duplicate(err, "user email", email)
	}
	return u, nil
}

func (c *Catalog) CreateAirline(ctx context.Context, caller models.Caller, req models.CreateAirlineRequest) (*models.Airline, error) {
	if !caller.IsAdmin() {
		return nil, fmt.Errorf("%w: only admins may create airlines", ledger.ErrForbidden)
	}
	a := &models.Airline{
		ID:        uuid.New(),
		Name:      strings.TrimSpace(req.Name),
		Code:      strings.ToUpper(strings.TrimSpace(req.Code)),
		Country:   strings.TrimSpace(req.Country),
		Status:    publicationOrDefault(req.Status),
		CreatedAt: c.now(),
	}
	if a.Name == "" || a.Code == "" {
		return nil, fmt.Errorf("%w: airline name and code are required", ledger.ErrInvalidArgument)
	}
	if err := c.src.InsertAirline(ctx, a); err != nil {
		return nil, duplicate(err, "airline code", a.Code)
	}
	c.log.Info("CATALOG", "airline created", "airline_id", a.ID, "code", a.Code)
	return a, nil
}

// CreateAirport requires a unique three-letter uppercase code
func (c *Catalog) CreateAirport(ctx context.Context, caller models.Caller, req models.CreateAirportRequest) (*models.Airport, error) {
	if !caller.IsAdmin() {
		return nil, fmt.Errorf("%w: only admins may create airports", ledger.ErrForbidden)
	}
	a := &models.Airport{
		ID:        uuid.New(),
		Name:      strings.TrimSpace(req.Name),
		Code:      strings.TrimSpace(req.Code),
		City:      strings.TrimSpace(req.City),
		Country:   strings.TrimSpace(req.Country),
		Status:    publicationOrDefault(req.Status),
		CreatedAt: c.now(),
	}
	if !validAirportCode(a.Code) {
		return nil, fmt.Errorf("%w: airport code must be three uppercase letters, got %q", ledger.ErrInvalidArgument, a.Code)
	}
	if a.Name == "" || a.City == "" {
		return nil, fmt.Errorf("%w: airport name and city are required", ledger.ErrInvalidArgument)
	}
	if err := c.src.InsertAirport(ctx, a); err != nil {
		return nil, duplicate(err, "airport code", a.Code)
	}
	c.log.Info("CATALOG", "airport created", "airport_id", a.ID, "code", a.Code)
	return a, nil
}

// visible restricts customers to published entities
func visible(caller models.Caller, p query.Params) query.Params {
	if !caller.IsAdmin() {
		p.Status = string(models.PublicationPublish)
	}
	return p
}

func validAirportCode(code string) bool {
	if len(code) != 3 {
		return false
	}
	for _, r := range code {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}

func publicationOrDefault(p models.Publication) models.Publication {
	if p == "" {
		return models.PublicationPublish
	}
	return p
}

func duplicate(err error, what, value string) error {
	if errors.Is(err, ledger.ErrDuplicate) {
		return fmt.Errorf("%w: %s %s already exists", ledger.ErrConflict, what, value)
	}
	return err
}
