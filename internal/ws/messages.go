package ws

import (
	"encoding/json"

	"github.com/nbsync/nbsync/internal/model"
)

// Inbound message types.
const (
	MsgCreateSession = "create_session"
	MsgJoinSession   = "join_session"
	MsgPushCell      = "push_cell"
	MsgRequestSync   = "request_sync"
	MsgToggleSync    = "toggle_sync"
	MsgEndSession    = "end_session"
)

// Outbound message types. Notification types from the pub/sub channel pass
// through with their own names (update_available, sync_allowed_update,
// student_joined, session_ended).
const (
	MsgSessionCreated    = "session_created"
	MsgSessionJoined     = "session_joined"
	MsgCellPushed        = "cell_pushed"
	MsgSyncContent       = "sync_content"
	MsgVisibilityUpdated = "visibility_updated"
	MsgSessionEndedAck   = "session_end_ack"
	MsgError             = "error"
)

// Message is one inbound client frame. Fields beyond Type are read per type.
type Message struct {
	Type        string            `json:"type"`
	Code        string            `json:"code,omitempty"`
	CellID      string            `json:"cell_id,omitempty"`
	Content     json.RawMessage   `json:"content,omitempty"`
	Metadata    *model.UpdateMeta `json:"metadata,omitempty"`
	SyncAllowed *bool             `json:"sync_allowed,omitempty"`
	// TTLSeconds overrides the record expiry on push_cell; 0 keeps the default.
	TTLSeconds int64 `json:"ttl_seconds,omitempty"`
}

// Reply is one outbound frame.
type Reply struct {
	Type        string          `json:"type"`
	Code        string          `json:"code,omitempty"`
	CellID      string          `json:"cell_id,omitempty"`
	Content     json.RawMessage `json:"content,omitempty"`
	Timestamp   int64           `json:"timestamp,omitempty"`
	SyncAllowed *bool           `json:"sync_allowed,omitempty"`
	Message     string          `json:"message,omitempty"`
	Reason      string          `json:"reason,omitempty"`
}
