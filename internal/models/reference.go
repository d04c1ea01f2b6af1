package models

import (
	"time"

	"github.com/google/uuid"
)

// Role of an authenticated caller
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleCustomer Role = "customer"
)

// Caller is the identity a request acts on behalf of. It is passed explicitly
// into every ledger call instead of being read from ambient session state.
type Caller struct {
	UserID uuid.UUID
	Role   Role
}

func (c Caller) IsAdmin() bool {
	return c.Role == RoleAdmin
}

// CanActFor reports whether the caller may operate on resources owned by userID
func (c Caller) CanActFor(userID uuid.UUID) bool {
	return c.IsAdmin() || (c.UserID != uuid.Nil && c.UserID == userID)
}

type User struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

type Airline struct {
	ID        uuid.UUID   `json:"id"`
	Name      string      `json:"name"`
	Code      string      `json:"code"`
	Country   string      `json:"country"`
	Status    Publication `json:"status"`
	CreatedAt time.Time   `json:"created_at"`
}

type Airport struct {
	ID        uuid.UUID   `json:"id"`
	Name      string      `json:"name"`
	Code      string      `json:"code"`
	City      string      `json:"city"`
	Country   string      `json:"country"`
	Status    Publication `json:"status"`
	CreatedAt time.Time   `json:"created_at"`
}

// System is the caller used by seeding and other internal jobs
var System = Caller{Role: RoleAdmin}
