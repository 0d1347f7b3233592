package middleware

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/praxishealth/praxis/internal/tenancy"
)

// RoleSource looks up a user's role within an org. organizations.Repository
// satisfies it.
type RoleSource interface {
	RoleOf(ctx context.Context, orgID, userID string) (string, error)
}

// OrgScope binds the {orgID} route param to the request context after a
// membership check. Non-members get 404 so org ids can't be probed.
func OrgScope(members RoleSource) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			orgID := chi.URLParam(r, "orgID")
			if orgID == "" {
				http.Error(w, "missing organization id", http.StatusBadRequest)
				return
			}
			userID, ok := tenancy.UserIDFromContext(r.Context())
			if !ok {
				http.Error(w, "authentication required", http.StatusUnauthorized)
				return
			}
			role, err := members.RoleOf(r.Context(), orgID, userID)
			if err != nil {
				http.Error(w, "organization not found", http.StatusNotFound)
				return
			}
			ctx := tenancy.WithOrgID(r.Context(), orgID)
			ctx = tenancy.WithRole(ctx, role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
