package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nbsync/nbsync/internal/hashkey"
	"github.com/nbsync/nbsync/internal/model"
	"github.com/nbsync/nbsync/internal/store"
)

// HashSyncService is the content-addressable path: no session, no handshake.
// Writer and reader converge on the same key because both can recompute the
// digest from (cell id, creation timestamp). Two writers racing on the same
// identity overwrite each other silently; last write wins.
type HashSyncService struct {
	store      store.Store
	defaultTTL time.Duration
}

func NewHashSyncService(s store.Store, defaultTTL time.Duration) *HashSyncService {
	if defaultTTL <= 0 {
		defaultTTL = 24 * time.Hour
	}
	return &HashSyncService{store: s, defaultTTL: defaultTTL}
}

// StoreByIdentity writes content under the digest of its identity tuple and
// returns the digest. Re-storing identical inputs is a harmless overwrite.
func (s *HashSyncService) StoreByIdentity(ctx context.Context, cellID, createdAt string, content json.RawMessage, ttl time.Duration) (string, error) {
	digest, err := hashkey.Compute(cellID, createdAt)
	if err != nil {
		return "", fmt.Errorf("%w: %v", model.ErrValidation, err)
	}
	if ttl <= 0 {
		ttl = s.defaultTTL
	}
	e := &model.HashEntry{
		Digest:    digest,
		CellID:    cellID,
		Content:   content,
		CreatedAt: createdAt,
	}
	if err := s.store.HashEntries().Put(ctx, e, ttl); err != nil {
		return "", err
	}
	return digest, nil
}

// FetchByDigest returns nil, nil for a digest that was never stored or has
// expired. A malformed digest is rejected before the store is consulted.
func (s *HashSyncService) FetchByDigest(ctx context.Context, digest string) (*model.HashEntry, error) {
	if !hashkey.Valid(digest) {
		return nil, fmt.Errorf("%w: malformed hash key", model.ErrValidation)
	}
	return s.store.HashEntries().Get(ctx, digest)
}

// FetchByIdentity recomputes the digest and fetches.
func (s *HashSyncService) FetchByIdentity(ctx context.Context, cellID, createdAt string) (*model.HashEntry, error) {
	digest, err := hashkey.Compute(cellID, createdAt)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrValidation, err)
	}
	return s.store.HashEntries().Get(ctx, digest)
}

// ListKeys returns one scan page. Callers loop until the returned cursor is 0
// to obtain a full listing; concurrent writes may shuffle entries across pages.
func (s *HashSyncService) ListKeys(ctx context.Context, cursor uint64, pattern string, pageSize int64) ([]string, uint64, error) {
	return s.store.HashEntries().Scan(ctx, cursor, pattern, pageSize)
}
