package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/nbsync/nbsync/internal/api/respond"
	"github.com/nbsync/nbsync/internal/api/validate"
	"github.com/nbsync/nbsync/internal/auth"
	"github.com/nbsync/nbsync/internal/services"
)

// SessionHandler is a thin HTTP transport over SessionService.
type SessionHandler struct {
	svc   *services.SessionService
	authz auth.Authorizer
}

func NewSessionHandler(svc *services.SessionService, authz auth.Authorizer) *SessionHandler {
	return &SessionHandler{svc: svc, authz: authz}
}

// CreateSession POST /api/sessions
func (h *SessionHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	p, err := h.authz.Authorize(r.Context(), r)
	if err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	if !p.IsTeacher() {
		respond.WriteForbidden(w, "only teachers can create sessions")
		return
	}
	code, err := h.svc.Create(r.Context(), p.UserID)
	if err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusCreated, map[string]interface{}{
		"code":    code,
		"ownerId": p.UserID,
	})
}

// GetSession GET /api/sessions/{code}
func (h *SessionHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]
	if err := validate.SessionCode(code); err != nil {
		respond.WriteBadRequest(w, err.Error())
		return
	}
	p, err := h.authz.Authorize(r.Context(), r)
	if err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	ok, err := h.svc.VerifyMember(r.Context(), code, p.UserID)
	if err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	if !ok {
		respond.WriteForbidden(w, "not a session member")
		return
	}
	sess, err := h.svc.Get(r.Context(), code)
	if err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	if sess == nil {
		respond.WriteNotFound(w, "session not found")
		return
	}
	respond.WriteJSON(w, http.StatusOK, sess)
}

// JoinSession POST /api/sessions/{code}/join
func (h *SessionHandler) JoinSession(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]
	if err := validate.SessionCode(code); err != nil {
		respond.WriteBadRequest(w, err.Error())
		return
	}
	p, err := h.authz.Authorize(r.Context(), r)
	if err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	ok, err := h.svc.Join(r.Context(), code, p.UserID)
	if err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	if !ok {
		respond.WriteNotFound(w, "session not found or ended")
		return
	}
	respond.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"code":   code,
		"userId": p.UserID,
		"joined": true,
	})
}

// EndSession POST /api/sessions/{code}/end
func (h *SessionHandler) EndSession(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]
	if err := validate.SessionCode(code); err != nil {
		respond.WriteBadRequest(w, err.Error())
		return
	}
	p, err := h.authz.Authorize(r.Context(), r)
	if err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	owner, err := h.svc.VerifyOwner(r.Context(), code, p.UserID)
	if err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	if !owner {
		respond.WriteForbidden(w, "only the session owner can end it")
		return
	}
	if err := h.svc.End(r.Context(), code); err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"code":  code,
		"ended": true,
	})
}
