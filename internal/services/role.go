package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/nbsync/nbsync/internal/model"
	"github.com/nbsync/nbsync/internal/store"
)

// RoleService resolves user roles. Precedence: explicit assignment, then
// environment override (teacher mode / teacher user list), then the
// configured default.
type RoleService struct {
	store store.Store

	// Environment overrides, fixed at construction.
	teacherMode  bool
	teacherUsers map[string]bool

	now func() time.Time
}

func NewRoleService(s store.Store, teacherMode bool, teacherUsers string) *RoleService {
	users := map[string]bool{}
	for _, u := range strings.Split(teacherUsers, ",") {
		if u = strings.TrimSpace(u); u != "" {
			users[u] = true
		}
	}
	return &RoleService{store: s, teacherMode: teacherMode, teacherUsers: users, now: time.Now}
}

// EnsureDefaultConfig seeds the role configuration on first start.
func (s *RoleService) EnsureDefaultConfig(ctx context.Context) error {
	cfg, err := s.store.Roles().GetConfig(ctx)
	if err != nil {
		return err
	}
	if cfg != nil {
		return nil
	}
	cfg = &model.RoleConfig{
		DefaultRole:       model.RoleStudent,
		AvailableRoles:    []string{model.RoleTeacher, model.RoleStudent},
		TeacherMode:       false,
		RoleChangeAllowed: true,
		UpdatedAt:         s.now().UnixMilli(),
	}
	if err := s.store.Roles().PutConfig(ctx, cfg); err != nil {
		return err
	}
	log.Info().Msg("default role configuration created")
	return nil
}

// SetRole assigns an explicit role and records the change in the audit trail.
func (s *RoleService) SetRole(ctx context.Context, userID, role, assignedBy string) error {
	valid, err := s.isValidRole(ctx, role)
	if err != nil {
		return err
	}
	if !valid {
		return fmt.Errorf("%w: invalid role %q", model.ErrValidation, role)
	}
	if assignedBy == "" {
		assignedBy = "system"
	}

	var prev *string
	if cur, err := s.GetRole(ctx, userID); err == nil && cur != "" {
		prev = &cur
	}

	a := &model.RoleAssignment{
		UserID:       userID,
		Role:         role,
		AssignedAt:   s.now().UnixMilli(),
		AssignedBy:   assignedBy,
		PreviousRole: prev,
	}
	if err := s.store.Roles().SetAssignment(ctx, a); err != nil {
		return err
	}
	if err := s.store.Roles().AppendHistory(ctx, &model.RoleChange{
		UserID: userID, OldRole: prev, NewRole: role, AssignedBy: assignedBy, Timestamp: a.AssignedAt,
	}); err != nil {
		// The assignment itself landed; the audit trail is best-effort.
		log.Error().Err(err).Str("user", userID).Msg("role history append failed")
	}
	log.Info().Str("user", userID).Str("role", role).Msg("role assigned")
	return nil
}

// GetRole resolves the effective role for a user.
func (s *RoleService) GetRole(ctx context.Context, userID string) (string, error) {
	a, err := s.store.Roles().GetAssignment(ctx, userID)
	if err != nil {
		return "", err
	}
	if a != nil {
		return a.Role, nil
	}
	if s.teacherMode || s.teacherUsers[userID] {
		return model.RoleTeacher, nil
	}
	return s.defaultRole(ctx)
}

// RemoveRole drops the explicit assignment; the user falls back to the default.
func (s *RoleService) RemoveRole(ctx context.Context, userID, removedBy string) error {
	cur, err := s.GetRole(ctx, userID)
	if err != nil {
		return err
	}
	if err := s.store.Roles().RemoveAssignment(ctx, userID); err != nil {
		return err
	}
	def, err := s.defaultRole(ctx)
	if err != nil {
		return err
	}
	if removedBy == "" {
		removedBy = "system"
	}
	if err := s.store.Roles().AppendHistory(ctx, &model.RoleChange{
		UserID: userID, OldRole: &cur, NewRole: def, AssignedBy: removedBy, Timestamp: s.now().UnixMilli(),
	}); err != nil {
		log.Error().Err(err).Str("user", userID).Msg("role history append failed")
	}
	return nil
}

// History returns the most recent role changes for a user, newest first.
func (s *RoleService) History(ctx context.Context, userID string, limit int) ([]*model.RoleChange, error) {
	return s.store.Roles().History(ctx, userID, limit)
}

// ListByRole returns the explicit assignments matching role.
func (s *RoleService) ListByRole(ctx context.Context, role string) ([]*model.RoleAssignment, error) {
	all, err := s.store.Roles().ListAssignments(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*model.RoleAssignment, 0, len(all))
	for _, a := range all {
		if a.Role == role {
			out = append(out, a)
		}
	}
	return out, nil
}

// Config returns the stored role configuration, seeding defaults if needed.
func (s *RoleService) Config(ctx context.Context) (*model.RoleConfig, error) {
	if err := s.EnsureDefaultConfig(ctx); err != nil {
		return nil, err
	}
	return s.store.Roles().GetConfig(ctx)
}

// RoleConfigUpdate is a partial update; nil fields are left unchanged.
type RoleConfigUpdate struct {
	DefaultRole       *string
	AvailableRoles    []string
	TeacherMode       *bool
	RoleChangeAllowed *bool
}

// UpdateConfig applies a partial configuration update.
func (s *RoleService) UpdateConfig(ctx context.Context, upd RoleConfigUpdate, updatedBy string) (*model.RoleConfig, error) {
	cfg, err := s.Config(ctx)
	if err != nil {
		return nil, err
	}
	if upd.DefaultRole != nil {
		cfg.DefaultRole = *upd.DefaultRole
	}
	if upd.AvailableRoles != nil {
		cfg.AvailableRoles = upd.AvailableRoles
	}
	if upd.TeacherMode != nil {
		cfg.TeacherMode = *upd.TeacherMode
	}
	if upd.RoleChangeAllowed != nil {
		cfg.RoleChangeAllowed = *upd.RoleChangeAllowed
	}
	for _, r := range cfg.AvailableRoles {
		if r != model.RoleTeacher && r != model.RoleStudent {
			return nil, fmt.Errorf("%w: unknown role %q", model.ErrValidation, r)
		}
	}
	if cfg.DefaultRole != "" {
		ok := false
		for _, r := range cfg.AvailableRoles {
			if r == cfg.DefaultRole {
				ok = true
			}
		}
		if !ok {
			return nil, fmt.Errorf("%w: default role %q not in available roles", model.ErrValidation, cfg.DefaultRole)
		}
	}
	cfg.UpdatedAt = s.now().UnixMilli()
	cfg.UpdatedBy = updatedBy
	if err := s.store.Roles().PutConfig(ctx, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (s *RoleService) defaultRole(ctx context.Context) (string, error) {
	cfg, err := s.store.Roles().GetConfig(ctx)
	if err != nil {
		return "", err
	}
	if cfg == nil || cfg.DefaultRole == "" {
		return model.RoleStudent, nil
	}
	return cfg.DefaultRole, nil
}

func (s *RoleService) isValidRole(ctx context.Context, role string) (bool, error) {
	cfg, err := s.store.Roles().GetConfig(ctx)
	if err != nil {
		return false, err
	}
	if cfg == nil {
		return role == model.RoleTeacher || role == model.RoleStudent, nil
	}
	for _, r := range cfg.AvailableRoles {
		if r == role {
			return true, nil
		}
	}
	return false, nil
}
