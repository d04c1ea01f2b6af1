package ledger

import (
	"errors"
)

// Error kinds surfaced by the ledger. Callers match them with errors.Is; the
// wrapped message carries the detail.
var (
	ErrNotFound        = errors.New("not found")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrConflict        = errors.New("conflict")
	ErrInvalidState    = errors.New("invalid state")
	ErrForbidden       = errors.New("forbidden")
)

// ErrDuplicate is returned by stores when a unique key is already taken
var ErrDuplicate = errors.New("duplicate key")
