package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/nbsync/nbsync/internal/api/respond"
	"github.com/nbsync/nbsync/internal/api/validate"
	"github.com/nbsync/nbsync/internal/hashkey"
	"github.com/nbsync/nbsync/internal/model"
	"github.com/nbsync/nbsync/internal/services"
)

// HashHandler exposes the content-addressable path. No session checks: writer
// and reader share nothing but the identity tuple.
type HashHandler struct {
	svc *services.HashSyncService
}

func NewHashHandler(svc *services.HashSyncService) *HashHandler { return &HashHandler{svc: svc} }

// StoreCell POST /api/hash/cells
func (h *HashHandler) StoreCell(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CellID     string          `json:"cellId"`
		CreatedAt  string          `json:"createdAt"`
		Content    json.RawMessage `json:"content"`
		TTLSeconds int64           `json:"ttl_seconds"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteBadRequest(w, "Invalid JSON")
		return
	}
	if err := validate.NonEmpty("cellId", req.CellID); err != nil {
		respond.WriteBadRequest(w, err.Error())
		return
	}
	if err := validate.NonEmpty("createdAt", req.CreatedAt); err != nil {
		respond.WriteBadRequest(w, err.Error())
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
	digest, err := h.svc.StoreByIdentity(r.Context(), req.CellID, req.CreatedAt, req.Content, time.Duration(req.TTLSeconds)*time.Second)
	if err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusCreated, map[string]interface{}{
		"hashKey":       digest,
		"hashKeyPrefix": hashkey.Prefix(digest),
		"cellId":        req.CellID,
	})
}

// hashEntryBody adds the short display prefix to a stored entry.
func hashEntryBody(e *model.HashEntry) map[string]interface{} {
	return map[string]interface{}{
		"hashKey":       e.Digest,
		"hashKeyPrefix": hashkey.Prefix(e.Digest),
		"cellId":        e.CellID,
		"content":       e.Content,
		"createdAt":     e.CreatedAt,
	}
}

// FetchByIdentity POST /api/hash/cells/sync
func (h *HashHandler) FetchByIdentity(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CellID    string `json:"cellId"`
		CreatedAt string `json:"createdAt"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteBadRequest(w, "Invalid JSON")
		return
	}
	entry, err := h.svc.FetchByIdentity(r.Context(), req.CellID, req.CreatedAt)
	if err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	if entry == nil {
		respond.WriteNotFound(w, "no content stored for this cell identity")
		return
	}
	respond.WriteJSON(w, http.StatusOK, hashEntryBody(entry))
}

// FetchByDigest GET /api/hash/cells/{digest}
func (h *HashHandler) FetchByDigest(w http.ResponseWriter, r *http.Request) {
	digest := mux.Vars(r)["digest"]
	if err := validate.Digest(digest); err != nil {
		respond.WriteBadRequest(w, err.Error())
		return
	}
	entry, err := h.svc.FetchByDigest(r.Context(), digest)
	if err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	if entry == nil {
		respond.WriteNotFound(w, "hash key not found")
		return
	}
	respond.WriteJSON(w, http.StatusOK, hashEntryBody(entry))
}

// ListKeys GET /api/hash/cells?cursor=&pattern=&count=
func (h *HashHandler) ListKeys(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	cursor, err := validate.Cursor(q.Get("cursor"))
	if err != nil {
		respond.WriteBadRequest(w, err.Error())
		return
	}
	count, err := validate.Count(q.Get("count"))
	if err != nil {
		respond.WriteBadRequest(w, err.Error())
		return
	}
	keys, next, err := h.svc.ListKeys(r.Context(), cursor, q.Get("pattern"), count)
	if err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"keys":   keys,
		"cursor": next,
		"count":  len(keys),
	})
}
