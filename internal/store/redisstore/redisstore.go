// Package redisstore implements store.Store on Redis: field hashes with
// per-key TTL, one sorted set per session as the notification index, SCAN
// cursors for namespace walks, and pub/sub for fan-out.
package redisstore

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nbsync/nbsync/internal/model"
	"github.com/nbsync/nbsync/internal/store"
)

// Key namespaces. Session-scoped records live under session:/pending:/notify:
// so ending a session can purge them; cellhash: is deliberately outside that
// scope and survives session end.
const (
	sessionKeyPrefix = "session:"
	updateKeyPrefix  = "pending:"
	indexKeyPrefix   = "notify:"
	hashKeyPrefix    = "cellhash:"
	rolesUsersKey    = "roles:users"
	rolesConfigKey   = "roles:config"
	rolesHistoryPfx  = "roles:history:"
	channelPrefix    = "sync:session:"
)

// Options tunes connection behavior, record expiry, and the separate bound
// on namespace walks.
type Options struct {
	DialTimeout time.Duration
	OpTimeout   time.Duration
	SessionTTL  time.Duration
	// ScanTimeout caps a full SCAN walk (purge, count, key listing), which
	// can touch far more keys than a single-key op.
	ScanTimeout time.Duration
}

// Open parses a redis:// URL, applies timeouts, and verifies connectivity.
func Open(ctx context.Context, url string, opts Options) (*redis.Client, error) {
	if url == "" {
		return nil, fmt.Errorf("redis URL is empty")
	}
	ro, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	if opts.DialTimeout > 0 {
		ro.DialTimeout = opts.DialTimeout
	}
	if opts.OpTimeout > 0 {
		ro.ReadTimeout = opts.OpTimeout
		ro.WriteTimeout = opts.OpTimeout
	}
	client := redis.NewClient(ro)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// New constructs a Redis-backed store around an existing client with default
// timeouts.
func New(client *redis.Client, sessionTTL time.Duration) store.Store {
	return NewWithOptions(client, Options{SessionTTL: sessionTTL})
}

// NewWithOptions constructs a Redis-backed store with explicit tuning.
func NewWithOptions(client *redis.Client, opts Options) store.Store {
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = 24 * time.Hour
	}
	if opts.ScanTimeout <= 0 {
		opts.ScanTimeout = 30 * time.Second
	}
	return &rStore{rdb: client, sessionTTL: opts.SessionTTL, scanTimeout: opts.ScanTimeout}
}

type rStore struct {
	rdb         *redis.Client
	sessionTTL  time.Duration
	scanTimeout time.Duration
}

func (s *rStore) Sessions() store.Sessions {
	return &sessions{rdb: s.rdb, ttl: s.sessionTTL, scanTimeout: s.scanTimeout}
}
func (s *rStore) Updates() store.Updates { return &updates{rdb: s.rdb, scanTimeout: s.scanTimeout} }
func (s *rStore) HashEntries() store.HashEntries {
	return &hashEntries{rdb: s.rdb, scanTimeout: s.scanTimeout}
}
func (s *rStore) Roles() store.Roles             { return &roles{rdb: s.rdb} }
func (s *rStore) Notifier() store.Notifier       { return &notifier{rdb: s.rdb} }

func (s *rStore) Ping(ctx context.Context) error {
	if err := s.rdb.Ping(ctx).Err(); err != nil {
		return storeErr("ping", err)
	}
	return nil
}

func (s *rStore) Close() error { return s.rdb.Close() }

func sessionKey(code string) string        { return sessionKeyPrefix + code }
func updateKey(code, cellID string) string { return updateKeyPrefix + code + ":" + cellID }
func indexKey(code string) string          { return indexKeyPrefix + code }
func hashEntryKey(digest string) string    { return hashKeyPrefix + digest }
func channelName(code string) string       { return channelPrefix + code }

// scanContext bounds a namespace walk independently of single-key ops.
func scanContext(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, timeout)
}

// storeErr tags a backing-store failure so callers can distinguish it from
// logical misses with errors.Is(err, model.ErrStorageUnavailable).
func storeErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %v", op, model.ErrStorageUnavailable, err)
}
