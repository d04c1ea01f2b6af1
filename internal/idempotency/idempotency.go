// Package idempotency remembers which Idempotency-Key produced which booking,
// so a retried create returns the original booking instead of booking twice.
package idempotency

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"
)

// DefaultTTL bounds how long a completed key is remembered
const DefaultTTL = 24 * time.Hour

// ErrInProgress is returned when another request holds the key
var ErrInProgress = errors.New("idempotency key is already being processed")

// ErrKeyReused is returned when a key comes back with a different request body
var ErrKeyReused = errors.New("idempotency key was already used for a different request")

const (
	statusProcessing = "processing"
	statusSuccess    = "success"
)

// Store reserves keys for the duration of a request
type Store interface {
	// Reserve claims key for the request identified by fingerprint. It returns
	// the stored result when an earlier request with the same key and
	// fingerprint completed, or "" when the caller now owns the key.
	// A key held for another fingerprint yields ErrKeyReused.
	Reserve(ctx context.Context, key, fingerprint string) (string, error)
	// Complete records the result for a reserved key
	Complete(ctx context.Context, key, fingerprint, result string) error
	// Release drops a reservation after a failed request so it can be retried
	Release(ctx context.Context, key string) error
}

// Fingerprint hashes the JSON form of a request body
func Fingerprint(v any) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:]), nil
}
