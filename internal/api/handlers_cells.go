package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/nbsync/nbsync/internal/api/respond"
	"github.com/nbsync/nbsync/internal/api/validate"
	"github.com/nbsync/nbsync/internal/auth"
	"github.com/nbsync/nbsync/internal/model"
	"github.com/nbsync/nbsync/internal/services"
)

// CellHandler exposes the pending-update cache: push, status, visibility,
// sync release, and the poll cursor.
type CellHandler struct {
	sync     *services.SyncService
	sessions *services.SessionService
	authz    auth.Authorizer
}

func NewCellHandler(sync *services.SyncService, sessions *services.SessionService, authz auth.Authorizer) *CellHandler {
	return &CellHandler{sync: sync, sessions: sessions, authz: authz}
}

// cellVars validates the common {code}/{cellId} path pair.
func cellVars(r *http.Request) (code, cellID string, err error) {
	vars := mux.Vars(r)
	code, cellID = vars["code"], vars["cellId"]
	if err = validate.SessionCode(code); err != nil {
		return
	}
	err = validate.CellID(cellID)
	return
}

// requireOwner authorizes the request and verifies session ownership. Writes
// the response itself on failure.
func (h *CellHandler) requireOwner(w http.ResponseWriter, r *http.Request, code string) (auth.Principal, bool) {
	p, err := h.authz.Authorize(r.Context(), r)
	if err != nil {
		respond.WriteDomainError(w, err)
		return p, false
	}
	owner, err := h.sessions.VerifyOwner(r.Context(), code, p.UserID)
	if err != nil {
		respond.WriteDomainError(w, err)
		return p, false
	}
	if !owner {
		respond.WriteForbidden(w, "only the session owner can publish")
		return p, false
	}
	return p, true
}

func (h *CellHandler) requireMember(w http.ResponseWriter, r *http.Request, code string) (auth.Principal, bool) {
	p, err := h.authz.Authorize(r.Context(), r)
	if err != nil {
		respond.WriteDomainError(w, err)
		return p, false
	}
	member, err := h.sessions.VerifyMember(r.Context(), code, p.UserID)
	if err != nil {
		respond.WriteDomainError(w, err)
		return p, false
	}
	if !member {
		respond.WriteForbidden(w, "not a session member")
		return p, false
	}
	return p, true
}

// PushCell POST /api/sessions/{code}/cells/{cellId}
func (h *CellHandler) PushCell(w http.ResponseWriter, r *http.Request) {
	code, cellID, err := cellVars(r)
	if err != nil {
		respond.WriteBadRequest(w, err.Error())
		return
	}
	if _, ok := h.requireOwner(w, r, code); !ok {
		return
	}
	var req struct {
		Content    json.RawMessage   `json:"content"`
		Metadata   *model.UpdateMeta `json:"metadata"`
		TTLSeconds int64             `json:"ttl_seconds"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteBadRequest(w, "Invalid JSON")
		return
	}
	if len(req.Content) == 0 {
		respond.WriteBadRequest(w, "content is required")
		return
	}
	if req.TTLSeconds < 0 {
		respond.WriteBadRequest(w, "ttl_seconds must not be negative")
		return
	}
	meta := model.DefaultMeta()
	if req.Metadata != nil {
		meta = *req.Metadata
	}
	ts, err := h.sync.Push(r.Context(), code, cellID, req.Content, meta, time.Duration(req.TTLSeconds)*time.Second)
	if err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"cellId":    cellID,
		"timestamp": ts,
	})
}

// GetCellStatus GET /api/sessions/{code}/cells/{cellId}
func (h *CellHandler) GetCellStatus(w http.ResponseWriter, r *http.Request) {
	code, cellID, err := cellVars(r)
	if err != nil {
		respond.WriteBadRequest(w, err.Error())
		return
	}
	if _, ok := h.requireMember(w, r, code); !ok {
		return
	}
	status, err := h.sync.GetStatus(r.Context(), code, cellID)
	if err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, status)
}

// ToggleVisibility POST /api/sessions/{code}/cells/{cellId}/visibility
func (h *CellHandler) ToggleVisibility(w http.ResponseWriter, r *http.Request) {
	code, cellID, err := cellVars(r)
	if err != nil {
		respond.WriteBadRequest(w, err.Error())
		return
	}
	if _, ok := h.requireOwner(w, r, code); !ok {
		return
	}
	var req struct {
		SyncAllowed *bool `json:"sync_allowed"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteBadRequest(w, "Invalid JSON")
		return
	}
	if req.SyncAllowed == nil {
		respond.WriteBadRequest(w, "sync_allowed is required")
		return
	}
	ts, err := h.sync.ToggleVisibility(r.Context(), code, cellID, *req.SyncAllowed)
	if err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"cellId":      cellID,
		"syncAllowed": *req.SyncAllowed,
		"timestamp":   ts,
	})
}

// RequestSync POST /api/sessions/{code}/cells/{cellId}/sync
func (h *CellHandler) RequestSync(w http.ResponseWriter, r *http.Request) {
	code, cellID, err := cellVars(r)
	if err != nil {
		respond.WriteBadRequest(w, err.Error())
		return
	}
	if _, ok := h.requireMember(w, r, code); !ok {
		return
	}
	content, err := h.sync.RequestSync(r.Context(), code, cellID)
	if err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, content)
}

// ListChanges GET /api/sessions/{code}/changes?since=<millis>
func (h *CellHandler) ListChanges(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]
	if err := validate.SessionCode(code); err != nil {
		respond.WriteBadRequest(w, err.Error())
		return
	}
	since, err := validate.Since(r.URL.Query().Get("since"))
	if err != nil {
		respond.WriteBadRequest(w, err.Error())
		return
	}
	if _, ok := h.requireMember(w, r, code); !ok {
		return
	}
	changed, err := h.sync.ListChangedSince(r.Context(), code, since)
	if err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"changes": changed,
		"count":   len(changed),
		"since":   since,
	})
}
