package redisstore

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/nbsync/nbsync/internal/model"
)

// historyDepth caps the per-user role audit trail.
const historyDepth = 50

type roles struct {
	rdb *redis.Client
}

func (r *roles) SetAssignment(ctx context.Context, a *model.RoleAssignment) error {
	raw, err := json.Marshal(a)
	if err != nil {
		return err
	}
	if err := r.rdb.HSet(ctx, rolesUsersKey, a.UserID, string(raw)).Err(); err != nil {
		return storeErr("roles.set", err)
	}
	return nil
}

func (r *roles) GetAssignment(ctx context.Context, userID string) (*model.RoleAssignment, error) {
	raw, err := r.rdb.HGet(ctx, rolesUsersKey, userID).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, storeErr("roles.get", err)
	}
	var a model.RoleAssignment
	if err := json.Unmarshal([]byte(raw), &a); err != nil {
		return nil, storeErr("roles.parse", err)
	}
	return &a, nil
}

func (r *roles) RemoveAssignment(ctx context.Context, userID string) error {
	if err := r.rdb.HDel(ctx, rolesUsersKey, userID).Err(); err != nil {
		return storeErr("roles.remove", err)
	}
	return nil
}

func (r *roles) ListAssignments(ctx context.Context) ([]*model.RoleAssignment, error) {
	data, err := r.rdb.HGetAll(ctx, rolesUsersKey).Result()
	if err != nil {
		return nil, storeErr("roles.list", err)
	}
	out := make([]*model.RoleAssignment, 0, len(data))
	for userID, raw := range data {
		var a model.RoleAssignment
		if err := json.Unmarshal([]byte(raw), &a); err != nil {
			// Skip undecodable entries rather than failing the listing.
			continue
		}
		a.UserID = userID
		out = append(out, &a)
	}
	return out, nil
}

func (r *roles) AppendHistory(ctx context.Context, ch *model.RoleChange) error {
	raw, err := json.Marshal(ch)
	if err != nil {
		return err
	}
	key := rolesHistoryPfx + ch.UserID
	if err := r.rdb.LPush(ctx, key, string(raw)).Err(); err != nil {
		return storeErr("roles.history push", err)
	}
	if err := r.rdb.LTrim(ctx, key, 0, historyDepth-1).Err(); err != nil {
		return storeErr("roles.history trim", err)
	}
	return nil
}

func (r *roles) History(ctx context.Context, userID string, limit int) ([]*model.RoleChange, error) {
	if limit <= 0 || limit > historyDepth {
		limit = historyDepth
	}
	items, err := r.rdb.LRange(ctx, rolesHistoryPfx+userID, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, storeErr("roles.history", err)
	}
	out := make([]*model.RoleChange, 0, len(items))
	for _, raw := range items {
		var ch model.RoleChange
		if err := json.Unmarshal([]byte(raw), &ch); err != nil {
			continue
		}
		out = append(out, &ch)
	}
	return out, nil
}

func (r *roles) GetConfig(ctx context.Context) (*model.RoleConfig, error) {
	data, err := r.rdb.HGetAll(ctx, rolesConfigKey).Result()
	if err != nil {
		return nil, storeErr("roles.config get", err)
	}
	if len(data) == 0 {
		return nil, nil
	}
	var avail []string
	if raw := data["available_roles"]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &avail); err != nil {
			return nil, storeErr("roles.config parse", err)
		}
	}
	updatedAt, _ := strconv.ParseInt(data["updated_at"], 10, 64)
	return &model.RoleConfig{
		DefaultRole:       data["default_role"],
		AvailableRoles:    avail,
		TeacherMode:       data["teacher_mode_enabled"] == "true",
		RoleChangeAllowed: data["role_change_allowed"] == "true",
		UpdatedAt:         updatedAt,
		UpdatedBy:         data["updated_by"],
	}, nil
}

func (r *roles) PutConfig(ctx context.Context, c *model.RoleConfig) error {
	avail, err := json.Marshal(c.AvailableRoles)
	if err != nil {
		return err
	}
	fields := map[string]interface{}{
		"default_role":         c.DefaultRole,
		"available_roles":      string(avail),
		"teacher_mode_enabled": strconv.FormatBool(c.TeacherMode),
		"role_change_allowed":  strconv.FormatBool(c.RoleChangeAllowed),
		"updated_at":           strconv.FormatInt(c.UpdatedAt, 10),
	}
	if c.UpdatedBy != "" {
		fields["updated_by"] = c.UpdatedBy
	}
	if err := r.rdb.HSet(ctx, rolesConfigKey, fields).Err(); err != nil {
		return storeErr("roles.config put", err)
	}
	return nil
}
