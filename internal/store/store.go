// Package store defines the backing-store operations required by services.
// Implementations live under internal/store/<driver>/ (e.g., redisstore).
package store

import (
	"context"
	"time"

	"github.com/nbsync/nbsync/internal/model"
)

// Store exposes the persistence and fan-out primitives the core needs: field
// hashes with per-key TTL, a score-ordered index, a cursor scan, and pub/sub.
type Store interface {
	Sessions() Sessions
	Updates() Updates
	HashEntries() HashEntries
	Roles() Roles
	Notifier() Notifier

	// Ping verifies the backing store is reachable.
	Ping(ctx context.Context) error
	Close() error
}

// Sessions owns session identity, membership, and status.
type Sessions interface {
	Create(ctx context.Context, s *model.Session) error
	// Get returns nil, nil when the session is absent or expired.
	Get(ctx context.Context, code string) (*model.Session, error)
	// AddMember idempotently grows the membership set. Returns false when the
	// session is absent.
	AddMember(ctx context.Context, code, memberID string) (bool, error)
	SetStatus(ctx context.Context, code, status string) error
	// CountActive scans the session namespace and counts active sessions.
	CountActive(ctx context.Context) (int, error)
}

// IndexHit is one notification-index entry: a cell and its last-event score.
type IndexHit struct {
	CellID string
	Score  int64
}

// Updates holds the pending-update cache and the per-session notification index.
type Updates interface {
	// Put overwrites the record for (session, cell) entirely and applies ttl.
	Put(ctx context.Context, u *model.PendingUpdate, ttl time.Duration) error
	// Get returns nil, nil when no live record exists.
	Get(ctx context.Context, code, cellID string) (*model.PendingUpdate, error)
	MarkDelivered(ctx context.Context, code, cellID string) error
	// TouchIndex upserts the index score for (session, cell).
	TouchIndex(ctx context.Context, code, cellID string, ts int64) error
	// ChangedSince returns index hits with score >= since, ascending.
	ChangedSince(ctx context.Context, code string, since int64) ([]IndexHit, error)
	// PurgeSession deletes every pending update and the index for the code,
	// looping the scan cursor back to its start sentinel so nothing leaks.
	PurgeSession(ctx context.Context, code string) error
}

// HashEntries is the content-addressable store. Keys are digests computed by
// the caller; no session scoping.
type HashEntries interface {
	Put(ctx context.Context, e *model.HashEntry, ttl time.Duration) error
	// Get returns nil, nil when the digest was never stored or has expired.
	Get(ctx context.Context, digest string) (*model.HashEntry, error)
	// Scan walks the digest namespace one page at a time. A full listing
	// requires looping until the returned cursor is 0 again. Ordering across
	// pages is not guaranteed under concurrent writes.
	Scan(ctx context.Context, cursor uint64, pattern string, count int64) ([]string, uint64, error)
}

// Roles persists explicit role assignments, their audit history, and the
// role-system configuration.
type Roles interface {
	SetAssignment(ctx context.Context, a *model.RoleAssignment) error
	// GetAssignment returns nil, nil when the user has no explicit role.
	GetAssignment(ctx context.Context, userID string) (*model.RoleAssignment, error)
	RemoveAssignment(ctx context.Context, userID string) error
	ListAssignments(ctx context.Context) ([]*model.RoleAssignment, error)
	AppendHistory(ctx context.Context, ch *model.RoleChange) error
	History(ctx context.Context, userID string, limit int) ([]*model.RoleChange, error)
	// GetConfig returns nil, nil when no config has been written yet.
	GetConfig(ctx context.Context) (*model.RoleConfig, error)
	PutConfig(ctx context.Context, c *model.RoleConfig) error
}

// Notifier is the publish/subscribe channel abstraction used for push fan-out.
// Delivery is best-effort, at-most-once per live subscription; polling is the
// catch-up path.
type Notifier interface {
	Publish(ctx context.Context, code string, n *model.Notification) error
	// Subscribe opens a dedicated subscription for one connection. The caller
	// owns exclusive read access to the returned channel and must Close it.
	Subscribe(ctx context.Context, code string) (Subscription, error)
}

// Subscription is a single-reader stream of session notifications.
type Subscription interface {
	// C yields decoded notifications until Close or context cancellation.
	C() <-chan *model.Notification
	Close() error
}
