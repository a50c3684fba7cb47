package model

import "encoding/json"

// Session is a scoped collaboration context identified by a short code.
// One owner, a set of members, and an active/ended status.
type Session struct {
	Code      string   `json:"code"`
	OwnerID   string   `json:"ownerId"`
	CreatedAt int64    `json:"createdAt"`
	Status    string   `json:"status"`
	Members   []string `json:"members"`
}

// Session status values.
const (
	SessionActive = "active"
	SessionEnded  = "ended"
)

// UpdateMeta is the metadata attached to a pending update. SyncAllowed is the
// only field the core interprets; Extra carries caller fields untouched.
type UpdateMeta struct {
	SyncAllowed bool                   `json:"sync_allowed"`
	Extra       map[string]interface{} `json:"extra,omitempty"`
}

// DefaultMeta returns metadata with sync permitted.
func DefaultMeta() UpdateMeta {
	return UpdateMeta{SyncAllowed: true}
}

// PendingUpdate is the single latest content version recorded for a cell
// within a session. Overwritten entirely on every push.
type PendingUpdate struct {
	SessionCode string          `json:"sessionCode"`
	CellID      string          `json:"cellId"`
	Content     json.RawMessage `json:"content"`
	Meta        UpdateMeta      `json:"metadata"`
	Timestamp   int64           `json:"timestamp"`
	Status      string          `json:"status"`
}

// Delivery status values. Informational only; a delivered record stays readable.
const (
	UpdatePending   = "pending"
	UpdateDelivered = "delivered"
)

// CellStatus is the read-only view of a cell's pending state.
type CellStatus struct {
	CellID      string `json:"cellId"`
	Available   bool   `json:"available"`
	Timestamp   int64  `json:"timestamp,omitempty"`
	SyncAllowed bool   `json:"syncAllowed,omitempty"`
}

// ChangedCell is one element of a ListChangedSince result, ordered by
// ascending timestamp.
type ChangedCell struct {
	CellID      string `json:"cellId"`
	Timestamp   int64  `json:"timestamp"`
	SyncAllowed bool   `json:"syncAllowed"`
	Available   bool   `json:"available"`
}

// CellContent is the payload handed to a subscriber on a successful sync.
type CellContent struct {
	CellID    string          `json:"cellId"`
	Content   json.RawMessage `json:"content"`
	Meta      UpdateMeta      `json:"metadata"`
	Timestamp int64           `json:"timestamp"`
}

// HashEntry is a content-addressable record keyed solely by the digest of its
// identity tuple. No session context participates.
type HashEntry struct {
	Digest    string          `json:"hashKey"`
	CellID    string          `json:"cellId,omitempty"`
	Content   json.RawMessage `json:"content"`
	CreatedAt string          `json:"createdAt"`
}

// RoleAssignment records an explicit role for a user.
type RoleAssignment struct {
	UserID       string  `json:"userId"`
	Role         string  `json:"role"`
	AssignedAt   int64   `json:"assignedAt"`
	AssignedBy   string  `json:"assignedBy"`
	PreviousRole *string `json:"previousRole,omitempty"`
}

// RoleChange is one audit entry in a user's role history, most recent first.
type RoleChange struct {
	UserID     string  `json:"userId"`
	OldRole    *string `json:"oldRole,omitempty"`
	NewRole    string  `json:"newRole"`
	AssignedBy string  `json:"assignedBy"`
	Timestamp  int64   `json:"timestamp"`
}

// RoleConfig holds the role-system settings persisted alongside assignments.
type RoleConfig struct {
	DefaultRole       string   `json:"defaultRole"`
	AvailableRoles    []string `json:"availableRoles"`
	TeacherMode       bool     `json:"teacherModeEnabled"`
	RoleChangeAllowed bool     `json:"roleChangeAllowed"`
	UpdatedAt         int64    `json:"updatedAt"`
	UpdatedBy         string   `json:"updatedBy,omitempty"`
}

// Role values.
const (
	RoleTeacher = "teacher"
	RoleStudent = "student"
)

// Notification is the fan-out message published on a session channel. It
// carries the event, never the content itself.
type Notification struct {
	Type        string `json:"type"`
	CellID      string `json:"cell_id,omitempty"`
	SessionCode string `json:"session_code,omitempty"`
	MemberID    string `json:"student_id,omitempty"`
	SyncAllowed *bool  `json:"sync_allowed,omitempty"`
	Timestamp   int64  `json:"timestamp"`
}

// Notification types.
const (
	NotifyUpdateAvailable = "update_available"
	NotifySyncAllowed     = "sync_allowed_update"
	NotifyStudentJoined   = "student_joined"
	NotifySessionEnded    = "session_ended"
)
