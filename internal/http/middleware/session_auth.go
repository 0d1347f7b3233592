package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/praxishealth/praxis/internal/auth"
	"github.com/praxishealth/praxis/internal/tenancy"
)

// IdentityResolver resolves a session token into the caller's identity.
// *auth.Service satisfies it.
type IdentityResolver interface {
	Identify(ctx context.Context, token string) (auth.Identity, error)
}

// SessionAuth authenticates requests from the session token (Authorization
// bearer or cookie) and stamps the user, active org and role into the
// request context. Requests without a valid session get 401.
func SessionAuth(identities IdentityResolver, cookieName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := sessionToken(r, cookieName)
			if token == "" {
				http.Error(w, "authentication required", http.StatusUnauthorized)
				return
			}
			ident, err := identities.Identify(r.Context(), token)
			if err != nil {
				http.Error(w, "invalid session", http.StatusUnauthorized)
				return
			}
			ctx := tenancy.WithUserID(r.Context(), ident.UserID)
			if ident.ActiveOrgID != "" {
				ctx = tenancy.WithOrgID(ctx, ident.ActiveOrgID)
			}
			if ident.Role != "" {
				ctx = tenancy.WithRole(ctx, ident.Role)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func sessionToken(r *http.Request, cookieName string) string {
	if authz := r.Header.Get("Authorization"); strings.HasPrefix(authz, "Bearer ") {
		return strings.TrimPrefix(authz, "Bearer ")
	}
	if cookieName != "" {
		if cookie, err := r.Cookie(cookieName); err == nil {
			return cookie.Value
		}
	}
	return ""
}
