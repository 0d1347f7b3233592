package organizations

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/praxishealth/praxis/internal/auth"
	"github.com/praxishealth/praxis/internal/tenancy"
	"github.com/praxishealth/praxis/pkg/logging"
)

// userDirectory resolves user records for invitation acceptance.
// *auth.Service satisfies it.
type userDirectory interface {
	User(ctx context.Context, userID string) (*auth.User, error)
}

// Handler exposes the organization HTTP surface. Org-scoped routes
// expect the membership middleware to have stamped org, user, and role
// onto the request context.
type Handler struct {
	service *Service
	users   userDirectory
	logger  *logging.Logger
}

// NewHandler creates the organizations handler.
func NewHandler(service *Service, users userDirectory, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{service: service, users: users, logger: logger}
}

// Create handles POST /orgs.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := tenancy.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "authentication required", http.StatusUnauthorized)
		return
	}

	var req CreateOrganizationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	org, err := h.service.Create(r.Context(), userID, &req)
	if err != nil {
		if errors.Is(err, ErrSlugTaken) {
			http.Error(w, "slug already in use", http.StatusConflict)
			return
		}
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusCreated, org)
}

// List handles GET /orgs: every org the caller belongs to.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := tenancy.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "authentication required", http.StatusUnauthorized)
		return
	}
	orgs, err := h.service.ListForUser(r.Context(), userID)
	if err != nil {
		h.logger.Error("list organizations failed", "user_id", userID, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if orgs == nil {
		orgs = []*Organization{}
	}
	writeJSON(w, http.StatusOK, orgs)
}

// Get handles GET /orgs/{orgID}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	orgID := chi.URLParam(r, "orgID")
	org, err := h.service.Get(r.Context(), orgID)
	if err != nil {
		if errors.Is(err, ErrOrgNotFound) {
			http.Error(w, "organization not found", http.StatusNotFound)
			return
		}
		h.logger.Error("get organization failed", "org_id", orgID, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, org)
}

// UpdateSettings handles PATCH /orgs/{orgID}/settings. Owner or admin only.
func (h *Handler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	if !h.requireManager(w, r) {
		return
	}
	orgID := chi.URLParam(r, "orgID")

	var req UpdateSettingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	org, err := h.service.UpdateSettings(r.Context(), orgID, &req)
	if err != nil {
		if errors.Is(err, ErrOrgNotFound) {
			http.Error(w, "organization not found", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, org)
}

// ListMembers handles GET /orgs/{orgID}/members.
func (h *Handler) ListMembers(w http.ResponseWriter, r *http.Request) {
	orgID := chi.URLParam(r, "orgID")
	members, err := h.service.ListMembers(r.Context(), orgID)
	if err != nil {
		h.logger.Error("list members failed", "org_id", orgID, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if members == nil {
		members = []*Member{}
	}
	writeJSON(w, http.StatusOK, members)
}

type updateRoleRequest struct {
	Role string `json:"role"`
}

// UpdateMemberRole handles PATCH /orgs/{orgID}/members/{userID}.
// Granting or revoking ownership requires the owner role.
func (h *Handler) UpdateMemberRole(w http.ResponseWriter, r *http.Request) {
	if !h.requireManager(w, r) {
		return
	}
	orgID := chi.URLParam(r, "orgID")
	targetID := chi.URLParam(r, "userID")

	var req updateRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	role, _ := tenancy.RoleFromContext(r.Context())
	if req.Role == "owner" && role != tenancy.RoleOwner {
		http.Error(w, "only owners may transfer ownership", http.StatusForbidden)
		return
	}
	if targetRole, err := h.service.RoleOf(r.Context(), orgID, targetID); err == nil &&
		targetRole == tenancy.RoleOwner && role != tenancy.RoleOwner {
		http.Error(w, "only owners may revoke ownership", http.StatusForbidden)
		return
	}

	if err := h.service.UpdateMemberRole(r.Context(), orgID, targetID, req.Role); err != nil {
		switch {
		case errors.Is(err, ErrNotMember):
			http.Error(w, "member not found", http.StatusNotFound)
		case errors.Is(err, ErrLastOwner):
			http.Error(w, "organization must keep at least one owner", http.StatusConflict)
		default:
			http.Error(w, err.Error(), http.StatusBadRequest)
		}
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RemoveMember handles DELETE /orgs/{orgID}/members/{userID}. Members may
// remove themselves; removing anyone else needs owner or admin, and
// removing an owner needs the owner role.
func (h *Handler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	orgID := chi.URLParam(r, "orgID")
	targetID := chi.URLParam(r, "userID")

	userID, _ := tenancy.UserIDFromContext(r.Context())
	role, _ := tenancy.RoleFromContext(r.Context())
	if targetID != userID && !tenancy.CanManage(role) {
		http.Error(w, "insufficient role", http.StatusForbidden)
		return
	}
	if targetRole, err := h.service.RoleOf(r.Context(), orgID, targetID); err == nil &&
		targetRole == tenancy.RoleOwner && role != tenancy.RoleOwner {
		http.Error(w, "only owners may remove an owner", http.StatusForbidden)
		return
	}

	if err := h.service.RemoveMember(r.Context(), orgID, targetID); err != nil {
		switch {
		case errors.Is(err, ErrNotMember):
			http.Error(w, "member not found", http.StatusNotFound)
		case errors.Is(err, ErrLastOwner):
			http.Error(w, "organization must keep at least one owner", http.StatusConflict)
		default:
			h.logger.Error("remove member failed", "org_id", orgID, "error", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
		}
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Invite handles POST /orgs/{orgID}/invitations. Owner or admin only.
func (h *Handler) Invite(w http.ResponseWriter, r *http.Request) {
	if !h.requireManager(w, r) {
		return
	}
	orgID := chi.URLParam(r, "orgID")
	userID, _ := tenancy.UserIDFromContext(r.Context())

	var req InviteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	inviterName := ""
	if h.users != nil {
		if u, err := h.users.User(r.Context(), userID); err == nil {
			inviterName = u.Name
		}
	}

	inv, err := h.service.Invite(r.Context(), orgID, userID, inviterName, &req)
	if err != nil {
		if errors.Is(err, ErrInvitePending) {
			http.Error(w, "an invitation for this email is already pending", http.StatusConflict)
			return
		}
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusCreated, inv)
}

// ListInvitations handles GET /orgs/{orgID}/invitations.
func (h *Handler) ListInvitations(w http.ResponseWriter, r *http.Request) {
	if !h.requireManager(w, r) {
		return
	}
	orgID := chi.URLParam(r, "orgID")
	invs, err := h.service.ListInvitations(r.Context(), orgID)
	if err != nil {
		h.logger.Error("list invitations failed", "org_id", orgID, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if invs == nil {
		invs = []*Invitation{}
	}
	writeJSON(w, http.StatusOK, invs)
}

// CancelInvitation handles DELETE /orgs/{orgID}/invitations/{inviteID}.
func (h *Handler) CancelInvitation(w http.ResponseWriter, r *http.Request) {
	if !h.requireManager(w, r) {
		return
	}
	orgID := chi.URLParam(r, "orgID")
	inviteID := chi.URLParam(r, "inviteID")

	if err := h.service.CancelInvitation(r.Context(), orgID, inviteID); err != nil {
		if errors.Is(err, ErrInviteNotFound) {
			http.Error(w, "invitation not found", http.StatusNotFound)
			return
		}
		h.logger.Error("cancel invitation failed", "org_id", orgID, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AcceptInvitation handles POST /invitations/{inviteID}/accept. The
// caller joins the inviting org if the invitation is addressed to them.
func (h *Handler) AcceptInvitation(w http.ResponseWriter, r *http.Request) {
	userID, ok := tenancy.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "authentication required", http.StatusUnauthorized)
		return
	}
	inviteID := chi.URLParam(r, "inviteID")

	user, err := h.users.User(r.Context(), userID)
	if err != nil {
		h.logger.Error("accept invitation user lookup failed", "user_id", userID, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	inv, err := h.service.AcceptInvitation(r.Context(), inviteID, userID, user.Email)
	if err != nil {
		switch {
		case errors.Is(err, ErrInviteNotFound):
			http.Error(w, "invitation not found", http.StatusNotFound)
		case errors.Is(err, ErrInviteExpired):
			http.Error(w, "invitation expired", http.StatusGone)
		case errors.Is(err, ErrAlreadyMember):
			http.Error(w, "already a member", http.StatusConflict)
		default:
			h.logger.Error("accept invitation failed", "invitation_id", inviteID, "error", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
		}
		return
	}
	writeJSON(w, http.StatusOK, inv)
}

func (h *Handler) requireManager(w http.ResponseWriter, r *http.Request) bool {
	role, ok := tenancy.RoleFromContext(r.Context())
	if !ok || !tenancy.CanManage(role) {
		http.Error(w, "insufficient role", http.StatusForbidden)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
