package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/nbsync/nbsync/internal/api/respond"
	"github.com/nbsync/nbsync/internal/api/validate"
	"github.com/nbsync/nbsync/internal/auth"
	"github.com/nbsync/nbsync/internal/services"
)

// RoleHandler exposes role assignments, history, and configuration. Mutations
// require a teacher principal.
type RoleHandler struct {
	svc   *services.RoleService
	authz auth.Authorizer
}

func NewRoleHandler(svc *services.RoleService, authz auth.Authorizer) *RoleHandler {
	return &RoleHandler{svc: svc, authz: authz}
}

func (h *RoleHandler) requireTeacher(w http.ResponseWriter, r *http.Request) (auth.Principal, bool) {
	p, err := h.authz.Authorize(r.Context(), r)
	if err != nil {
		respond.WriteDomainError(w, err)
		return p, false
	}
	if !p.IsTeacher() {
		respond.WriteForbidden(w, "teacher role required")
		return p, false
	}
	return p, true
}

// GetConfig GET /api/roles/config
func (h *RoleHandler) GetConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.svc.Config(r.Context())
	if err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, cfg)
}

// PutConfig PUT /api/roles/config
func (h *RoleHandler) PutConfig(w http.ResponseWriter, r *http.Request) {
	p, ok := h.requireTeacher(w, r)
	if !ok {
		return
	}
	var req struct {
		DefaultRole       *string  `json:"defaultRole"`
		AvailableRoles    []string `json:"availableRoles"`
		TeacherMode       *bool    `json:"teacherModeEnabled"`
		RoleChangeAllowed *bool    `json:"roleChangeAllowed"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteBadRequest(w, "Invalid JSON")
		return
	}
	cfg, err := h.svc.UpdateConfig(r.Context(), services.RoleConfigUpdate{
		DefaultRole:       req.DefaultRole,
		AvailableRoles:    req.AvailableRoles,
		TeacherMode:       req.TeacherMode,
		RoleChangeAllowed: req.RoleChangeAllowed,
	}, p.UserID)
	if err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, cfg)
}

// GetUserRole GET /api/roles/users/{userId}
func (h *RoleHandler) GetUserRole(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userId"]
	if err := validate.NonEmpty("userId", userID); err != nil {
		respond.WriteBadRequest(w, err.Error())
		return
	}
	role, err := h.svc.GetRole(r.Context(), userID)
	if err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"userId": userID,
		"role":   role,
	})
}

// SetUserRole PUT /api/roles/users/{userId}
func (h *RoleHandler) SetUserRole(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userId"]
	p, ok := h.requireTeacher(w, r)
	if !ok {
		return
	}
	var req struct {
		Role string `json:"role"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteBadRequest(w, "Invalid JSON")
		return
	}
	if err := h.svc.SetRole(r.Context(), userID, req.Role, p.UserID); err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"userId": userID,
		"role":   req.Role,
	})
}

// RemoveUserRole DELETE /api/roles/users/{userId}
func (h *RoleHandler) RemoveUserRole(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userId"]
	p, ok := h.requireTeacher(w, r)
	if !ok {
		return
	}
	if err := h.svc.RemoveRole(r.Context(), userID, p.UserID); err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetUserHistory GET /api/roles/users/{userId}/history?limit=
func (h *RoleHandler) GetUserHistory(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userId"]
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			respond.WriteBadRequest(w, "limit must be a positive integer")
			return
		}
		limit = n
	}
	hist, err := h.svc.History(r.Context(), userID, limit)
	if err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"userId":  userID,
		"history": hist,
		"count":   len(hist),
	})
}

// ListByRole GET /api/roles?role=
func (h *RoleHandler) ListByRole(w http.ResponseWriter, r *http.Request) {
	role := r.URL.Query().Get("role")
	if err := validate.NonEmpty("role", role); err != nil {
		respond.WriteBadRequest(w, err.Error())
		return
	}
	users, err := h.svc.ListByRole(r.Context(), role)
	if err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"role":  role,
		"users": users,
		"count": len(users),
	})
}

// WhoAmI GET /api/auth/whoami
func (h *RoleHandler) WhoAmI(w http.ResponseWriter, r *http.Request) {
	p, err := h.authz.Authorize(r.Context(), r)
	if err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, p)
}
