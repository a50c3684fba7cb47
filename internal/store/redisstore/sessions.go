package redisstore

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nbsync/nbsync/internal/model"
)

type sessions struct {
	rdb         *redis.Client
	ttl         time.Duration
	scanTimeout time.Duration
}

func (s *sessions) Create(ctx context.Context, m *model.Session) error {
	members, err := json.Marshal(m.Members)
	if err != nil {
		return err
	}
	key := sessionKey(m.Code)
	fields := map[string]interface{}{
		"owner_id":   m.OwnerID,
		"created_at": strconv.FormatInt(m.CreatedAt, 10),
		"status":     m.Status,
		"members":    string(members),
	}
	if err := s.rdb.HSet(ctx, key, fields).Err(); err != nil {
		return storeErr("sessions.create", err)
	}
	if err := s.rdb.Expire(ctx, key, s.ttl).Err(); err != nil {
		return storeErr("sessions.create expire", err)
	}
	return nil
}

func (s *sessions) Get(ctx context.Context, code string) (*model.Session, error) {
	data, err := s.rdb.HGetAll(ctx, sessionKey(code)).Result()
	if err != nil {
		return nil, storeErr("sessions.get", err)
	}
	if len(data) == 0 {
		return nil, nil
	}
	return parseSession(code, data)
}

// AddMember is a read-modify-write on the members field. Concurrent joins can
// race; the overwrite is idempotent, so a lost update is re-applied on retry.
func (s *sessions) AddMember(ctx context.Context, code, memberID string) (bool, error) {
	sess, err := s.Get(ctx, code)
	if err != nil {
		return false, err
	}
	if sess == nil {
		return false, nil
	}
	for _, m := range sess.Members {
		if m == memberID {
			return true, nil
		}
	}
	members, err := json.Marshal(append(sess.Members, memberID))
	if err != nil {
		return false, err
	}
	if err := s.rdb.HSet(ctx, sessionKey(code), "members", string(members)).Err(); err != nil {
		return false, storeErr("sessions.addmember", err)
	}
	return true, nil
}

func (s *sessions) SetStatus(ctx context.Context, code, status string) error {
	if err := s.rdb.HSet(ctx, sessionKey(code), "status", status).Err(); err != nil {
		return storeErr("sessions.setstatus", err)
	}
	return nil
}

func (s *sessions) CountActive(ctx context.Context) (int, error) {
	ctx, cancel := scanContext(ctx, s.scanTimeout)
	defer cancel()

	var count int
	var cursor uint64
	for {
		keys, next, err := s.rdb.Scan(ctx, cursor, sessionKeyPrefix+"*", 100).Result()
		if err != nil {
			return 0, storeErr("sessions.countactive", err)
		}
		for _, key := range keys {
			status, err := s.rdb.HGet(ctx, key, "status").Result()
			if err == redis.Nil {
				continue
			}
			if err != nil {
				return 0, storeErr("sessions.countactive", err)
			}
			if status == model.SessionActive {
				count++
			}
		}
		if next == 0 {
			return count, nil
		}
		cursor = next
	}
}

func parseSession(code string, data map[string]string) (*model.Session, error) {
	created, _ := strconv.ParseInt(data["created_at"], 10, 64)
	var members []string
	if raw := data["members"]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &members); err != nil {
			return nil, storeErr("sessions.parse members", err)
		}
	}
	if members == nil {
		members = []string{}
	}
	return &model.Session{
		Code:      code,
		OwnerID:   data["owner_id"],
		CreatedAt: created,
		Status:    data["status"],
		Members:   members,
	}, nil
}
