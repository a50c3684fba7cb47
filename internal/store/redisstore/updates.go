package redisstore

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nbsync/nbsync/internal/model"
	"github.com/nbsync/nbsync/internal/store"
)

type updates struct {
	rdb         *redis.Client
	scanTimeout time.Duration
}

func (u *updates) Put(ctx context.Context, m *model.PendingUpdate, ttl time.Duration) error {
	meta, err := json.Marshal(m.Meta)
	if err != nil {
		return err
	}
	key := updateKey(m.SessionCode, m.CellID)
	fields := map[string]interface{}{
		"content":   string(m.Content),
		"metadata":  string(meta),
		"timestamp": strconv.FormatInt(m.Timestamp, 10),
		"status":    m.Status,
	}
	if err := u.rdb.HSet(ctx, key, fields).Err(); err != nil {
		return storeErr("updates.put", err)
	}
	if ttl > 0 {
		if err := u.rdb.Expire(ctx, key, ttl).Err(); err != nil {
			return storeErr("updates.put expire", err)
		}
	}
	return nil
}

func (u *updates) Get(ctx context.Context, code, cellID string) (*model.PendingUpdate, error) {
	data, err := u.rdb.HGetAll(ctx, updateKey(code, cellID)).Result()
	if err != nil {
		return nil, storeErr("updates.get", err)
	}
	if len(data) == 0 {
		return nil, nil
	}
	var meta model.UpdateMeta
	if raw := data["metadata"]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &meta); err != nil {
			return nil, storeErr("updates.parse metadata", err)
		}
	}
	ts, _ := strconv.ParseInt(data["timestamp"], 10, 64)
	return &model.PendingUpdate{
		SessionCode: code,
		CellID:      cellID,
		Content:     json.RawMessage(data["content"]),
		Meta:        meta,
		Timestamp:   ts,
		Status:      data["status"],
	}, nil
}

func (u *updates) MarkDelivered(ctx context.Context, code, cellID string) error {
	if err := u.rdb.HSet(ctx, updateKey(code, cellID), "status", model.UpdateDelivered).Err(); err != nil {
		return storeErr("updates.markdelivered", err)
	}
	return nil
}

func (u *updates) TouchIndex(ctx context.Context, code, cellID string, ts int64) error {
	z := redis.Z{Score: float64(ts), Member: cellID}
	if err := u.rdb.ZAdd(ctx, indexKey(code), z).Err(); err != nil {
		return storeErr("updates.touchindex", err)
	}
	return nil
}

func (u *updates) ChangedSince(ctx context.Context, code string, since int64) ([]store.IndexHit, error) {
	zs, err := u.rdb.ZRangeByScoreWithScores(ctx, indexKey(code), &redis.ZRangeBy{
		Min: strconv.FormatInt(since, 10),
		Max: "+inf",
	}).Result()
	if err != nil {
		return nil, storeErr("updates.changedsince", err)
	}
	hits := make([]store.IndexHit, 0, len(zs))
	for _, z := range zs {
		cell, ok := z.Member.(string)
		if !ok {
			continue
		}
		hits = append(hits, store.IndexHit{CellID: cell, Score: int64(z.Score)})
	}
	return hits, nil
}

// PurgeSession scans pending:{code}:* in pages and deletes what it finds,
// looping until the cursor returns to 0 so a partial failure can be retried
// without leaking entries. The index set goes last.
func (u *updates) PurgeSession(ctx context.Context, code string) error {
	ctx, cancel := scanContext(ctx, u.scanTimeout)
	defer cancel()

	pattern := updateKeyPrefix + code + ":*"
	var cursor uint64
	for {
		keys, next, err := u.rdb.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return storeErr("updates.purge scan", err)
		}
		if len(keys) > 0 {
			if err := u.rdb.Del(ctx, keys...).Err(); err != nil {
				return storeErr("updates.purge del", err)
			}
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	if err := u.rdb.Del(ctx, indexKey(code)).Err(); err != nil {
		return storeErr("updates.purge index", err)
	}
	return nil
}
