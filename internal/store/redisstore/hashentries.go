package redisstore

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nbsync/nbsync/internal/model"
)

type hashEntries struct {
	rdb         *redis.Client
	scanTimeout time.Duration
}

func (h *hashEntries) Put(ctx context.Context, e *model.HashEntry, ttl time.Duration) error {
	key := hashEntryKey(e.Digest)
	fields := map[string]interface{}{
		"cell_id":    e.CellID,
		"content":    string(e.Content),
		"created_at": e.CreatedAt,
	}
	if err := h.rdb.HSet(ctx, key, fields).Err(); err != nil {
		return storeErr("hashentries.put", err)
	}
	if ttl > 0 {
		if err := h.rdb.Expire(ctx, key, ttl).Err(); err != nil {
			return storeErr("hashentries.put expire", err)
		}
	}
	return nil
}

func (h *hashEntries) Get(ctx context.Context, digest string) (*model.HashEntry, error) {
	data, err := h.rdb.HGetAll(ctx, hashEntryKey(digest)).Result()
	if err != nil {
		return nil, storeErr("hashentries.get", err)
	}
	if len(data) == 0 {
		return nil, nil
	}
	return &model.HashEntry{
		Digest:    digest,
		CellID:    data["cell_id"],
		Content:   json.RawMessage(data["content"]),
		CreatedAt: data["created_at"],
	}, nil
}

// Scan pages through the cellhash namespace. Returned keys are bare digests.
func (h *hashEntries) Scan(ctx context.Context, cursor uint64, pattern string, count int64) ([]string, uint64, error) {
	ctx, cancel := scanContext(ctx, h.scanTimeout)
	defer cancel()

	if pattern == "" {
		pattern = "*"
	}
	if count <= 0 {
		count = 100
	}
	keys, next, err := h.rdb.Scan(ctx, cursor, hashKeyPrefix+pattern, count).Result()
	if err != nil {
		return nil, 0, storeErr("hashentries.scan", err)
	}
	digests := make([]string, 0, len(keys))
	for _, k := range keys {
		digests = append(digests, strings.TrimPrefix(k, hashKeyPrefix))
	}
	return digests, next, nil
}
