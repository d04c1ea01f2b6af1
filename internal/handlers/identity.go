package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/cx-tal-miterani/booking-ledger/internal/models"
)

// Identity headers are set by the upstream auth gateway
const (
	UserIDHeader   = "X-User-ID"
	UserRoleHeader = "X-User-Role"
)

type callerKey struct{}

// ContextWithCaller stores the authenticated caller
func ContextWithCaller(ctx context.Context, c models.Caller) context.Context {
	return context.WithValue(ctx, callerKey{}, c)
}

// CallerFromContext returns the caller set by Identity
func CallerFromContext(ctx context.Context) (models.Caller, bool) {
	c, ok := ctx.Value(callerKey{}).(models.Caller)
	return c, ok
}

// CallerFromRequest builds the caller from the identity headers. The role
// defaults to customer.
func CallerFromRequest(r *http.Request) (models.Caller, bool) {
	id, err := uuid.Parse(strings.TrimSpace(r.Header.Get(UserIDHeader)))
	if err != nil {
		return models.Caller{}, false
	}
	role := models.Role(strings.ToLower(strings.TrimSpace(r.Header.Get(UserRoleHeader))))
	switch role {
	case models.RoleAdmin, models.RoleCustomer:
	case "":
		role = models.RoleCustomer
	default:
		return models.Caller{}, false
	}
	return models.Caller{UserID: id, Role: role}, true
}

// Identity rejects requests without a valid caller with 401
func Identity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		caller, ok := CallerFromRequest(r)
		if !ok {
			respondError(w, http.StatusUnauthorized, "missing or invalid caller identity")
			return
		}
		next.ServeHTTP(w, r.WithContext(ContextWithCaller(r.Context(), caller)))
	})
}
