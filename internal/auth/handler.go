package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/praxishealth/praxis/pkg/logging"
)

// Handler exposes the auth HTTP surface.
type Handler struct {
	service    *Service
	cookieName string
	secure     bool
	logger     *logging.Logger
}

// NewHandler creates the auth handler. secure controls the cookie Secure flag.
func NewHandler(service *Service, cookieName string, secure bool, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		service:    service,
		cookieName: cookieName,
		secure:     secure,
		logger:     logger,
	}
}

type sessionResponse struct {
	Token     string    `json:"token"`
	User      *User     `json:"user"`
	ExpiresAt time.Time `json:"expires_at"`
}

// SignUp handles POST /auth/sign-up.
func (h *Handler) SignUp(w http.ResponseWriter, r *http.Request) {
	var req SignUpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	user, session, err := h.service.SignUp(r.Context(), &req)
	if err != nil {
		if errors.Is(err, ErrEmailTaken) {
			http.Error(w, "email already registered", http.StatusConflict)
			return
		}
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	h.setSessionCookie(w, session)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(sessionResponse{Token: session.Token, User: user, ExpiresAt: session.ExpiresAt})
}

// SignIn handles POST /auth/sign-in.
func (h *Handler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req SignInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	user, session, err := h.service.SignIn(r.Context(), &req)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			http.Error(w, "invalid credentials", http.StatusUnauthorized)
			return
		}
		h.logger.Error("sign in failed", "error", err)
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}

	h.setSessionCookie(w, session)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(sessionResponse{Token: session.Token, User: user, ExpiresAt: session.ExpiresAt})
}

// SignOut handles POST /auth/sign-out.
func (h *Handler) SignOut(w http.ResponseWriter, r *http.Request) {
	token := h.TokenFromRequest(r)
	if token == "" {
		http.Error(w, "missing session", http.StatusUnauthorized)
		return
	}
	if err := h.service.SignOut(r.Context(), token); err != nil {
		h.logger.Error("sign out failed", "error", err)
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	h.clearSessionCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

// Me handles GET /auth/me, returning the account behind the session.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	token := h.TokenFromRequest(r)
	session, err := h.service.Resolve(r.Context(), token)
	if err != nil {
		http.Error(w, "invalid session", http.StatusUnauthorized)
		return
	}
	user, err := h.service.User(r.Context(), session.UserID)
	if err != nil {
		http.Error(w, "invalid session", http.StatusUnauthorized)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"user":          user,
		"active_org_id": session.ActiveOrgID,
		"expires_at":    session.ExpiresAt,
	})
}

// SetActiveOrg handles POST /auth/active-org.
func (h *Handler) SetActiveOrg(w http.ResponseWriter, r *http.Request) {
	token := h.TokenFromRequest(r)
	var req struct {
		OrgID string `json:"org_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.OrgID == "" {
		http.Error(w, "org_id is required", http.StatusBadRequest)
		return
	}
	session, err := h.service.SetActiveOrganization(r.Context(), token, req.OrgID)
	if err != nil {
		switch {
		case errors.Is(err, ErrSessionNotFound):
			http.Error(w, "invalid session", http.StatusUnauthorized)
		case errors.Is(err, ErrNotMember):
			http.Error(w, "not a member of organization", http.StatusForbidden)
		default:
			h.logger.Error("set active org failed", "error", err)
			http.Error(w, "server error", http.StatusInternalServerError)
		}
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"active_org_id": session.ActiveOrgID})
}

// TokenFromRequest extracts the session token from the Authorization header
// or the session cookie.
func (h *Handler) TokenFromRequest(r *http.Request) string {
	if authz := r.Header.Get("Authorization"); strings.HasPrefix(authz, "Bearer ") {
		return strings.TrimPrefix(authz, "Bearer ")
	}
	if cookie, err := r.Cookie(h.cookieName); err == nil {
		return cookie.Value
	}
	return ""
}

func (h *Handler) setSessionCookie(w http.ResponseWriter, session *Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookieName,
		Value:    session.Token,
		Path:     "/",
		Expires:  session.ExpiresAt,
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *Handler) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})
}
