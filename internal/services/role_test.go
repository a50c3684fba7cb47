package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nbsync/nbsync/internal/model"
)

func TestGetRole_Precedence(t *testing.T) {
	st, _ := newTestStore(t)
	svc := NewRoleService(st, false, "alice, bob")
	ctx := context.Background()
	require.NoError(t, svc.EnsureDefaultConfig(ctx))

	// Default.
	role, err := svc.GetRole(ctx, "carol")
	require.NoError(t, err)
	assert.Equal(t, model.RoleStudent, role)

	// Environment teacher list.
	role, err = svc.GetRole(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, model.RoleTeacher, role)

	// Explicit assignment beats the environment.
	require.NoError(t, svc.SetRole(ctx, "alice", model.RoleStudent, "admin"))
	role, err = svc.GetRole(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, model.RoleStudent, role)
}

func TestGetRole_GlobalTeacherMode(t *testing.T) {
	st, _ := newTestStore(t)
	svc := NewRoleService(st, true, "")
	ctx := context.Background()

	role, err := svc.GetRole(ctx, "anyone")
	require.NoError(t, err)
	assert.Equal(t, model.RoleTeacher, role)
}

func TestSetRole_InvalidRejected(t *testing.T) {
	st, _ := newTestStore(t)
	svc := NewRoleService(st, false, "")
	ctx := context.Background()

	err := svc.SetRole(ctx, "alice", "admin", "system")
	assert.ErrorIs(t, err, model.ErrValidation)
}

func TestRemoveRole_FallsBackToDefault(t *testing.T) {
	st, _ := newTestStore(t)
	svc := NewRoleService(st, false, "")
	ctx := context.Background()

	require.NoError(t, svc.SetRole(ctx, "alice", model.RoleTeacher, "admin"))
	require.NoError(t, svc.RemoveRole(ctx, "alice", "admin"))

	role, err := svc.GetRole(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, model.RoleStudent, role)
}

func TestHistory_NewestFirst(t *testing.T) {
	st, _ := newTestStore(t)
	svc := NewRoleService(st, false, "")
	clock := &fakeClock{}
	svc.now = clock.Now
	ctx := context.Background()

	clock.Set(100)
	require.NoError(t, svc.SetRole(ctx, "alice", model.RoleTeacher, "admin"))
	clock.Set(200)
	require.NoError(t, svc.SetRole(ctx, "alice", model.RoleStudent, "admin"))

	hist, err := svc.History(ctx, "alice", 10)
	require.NoError(t, err)
	require.Len(t, hist, 2)
	assert.Equal(t, model.RoleStudent, hist[0].NewRole)
	assert.Equal(t, int64(200), hist[0].Timestamp)
	require.NotNil(t, hist[0].OldRole)
	assert.Equal(t, model.RoleTeacher, *hist[0].OldRole)
	assert.Equal(t, model.RoleTeacher, hist[1].NewRole)
}

func TestListByRole(t *testing.T) {
	st, _ := newTestStore(t)
	svc := NewRoleService(st, false, "")
	ctx := context.Background()

	require.NoError(t, svc.SetRole(ctx, "alice", model.RoleTeacher, "admin"))
	require.NoError(t, svc.SetRole(ctx, "bob", model.RoleStudent, "admin"))
	require.NoError(t, svc.SetRole(ctx, "carol", model.RoleTeacher, "admin"))

	teachers, err := svc.ListByRole(ctx, model.RoleTeacher)
	require.NoError(t, err)
	got := map[string]bool{}
	for _, a := range teachers {
		got[a.UserID] = true
	}
	assert.Equal(t, map[string]bool{"alice": true, "carol": true}, got)
}

func TestUpdateConfig_Partial(t *testing.T) {
	st, _ := newTestStore(t)
	svc := NewRoleService(st, false, "")
	ctx := context.Background()

	tm := true
	cfg, err := svc.UpdateConfig(ctx, RoleConfigUpdate{TeacherMode: &tm}, "admin")
	require.NoError(t, err)
	assert.True(t, cfg.TeacherMode)
	assert.Equal(t, model.RoleStudent, cfg.DefaultRole)
	assert.Equal(t, "admin", cfg.UpdatedBy)

	// Round-trips through the store.
	stored, err := svc.Config(ctx)
	require.NoError(t, err)
	assert.True(t, stored.TeacherMode)
}

func TestUpdateConfig_Invalid(t *testing.T) {
	st, _ := newTestStore(t)
	svc := NewRoleService(st, false, "")
	ctx := context.Background()

	_, err := svc.UpdateConfig(ctx, RoleConfigUpdate{AvailableRoles: []string{"teacher", "admin"}}, "admin")
	assert.ErrorIs(t, err, model.ErrValidation)

	bad := "teacher"
	_, err = svc.UpdateConfig(ctx, RoleConfigUpdate{DefaultRole: &bad, AvailableRoles: []string{"student"}}, "admin")
	assert.ErrorIs(t, err, model.ErrValidation)
}
