package auth

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nbsync/nbsync/internal/model"
	"github.com/nbsync/nbsync/internal/services"
	"github.com/nbsync/nbsync/internal/store/redisstore"
)

func TestUserID_HeaderWinsOverQuery(t *testing.T) {
	r := httptest.NewRequest("GET", "/api/auth/whoami?user=query-user", nil)
	assert.Equal(t, "query-user", UserID(r))

	r.Header.Set("X-User-Id", "header-user")
	assert.Equal(t, "header-user", UserID(r))
}

func TestEnvAuthorizer(t *testing.T) {
	a := NewEnvAuthorizer(false, "alice, bob")

	r := httptest.NewRequest("GET", "/", nil)
	r.Header.Set("X-User-Id", "alice")
	p, err := a.Authorize(context.Background(), r)
	require.NoError(t, err)
	assert.Equal(t, Principal{UserID: "alice", Role: model.RoleTeacher}, p)
	assert.True(t, p.IsTeacher())

	r.Header.Set("X-User-Id", "carol")
	p, err = a.Authorize(context.Background(), r)
	require.NoError(t, err)
	assert.Equal(t, model.RoleStudent, p.Role)

	r.Header.Del("X-User-Id")
	_, err = a.Authorize(context.Background(), r)
	assert.ErrorIs(t, err, model.ErrValidation)
}

func TestEnvAuthorizer_GlobalTeacherMode(t *testing.T) {
	a := NewEnvAuthorizer(true, "")
	r := httptest.NewRequest("GET", "/", nil)
	r.Header.Set("X-User-Id", "anyone")
	p, err := a.Authorize(context.Background(), r)
	require.NoError(t, err)
	assert.Equal(t, model.RoleTeacher, p.Role)
}

func TestRoleAuthorizer_UsesAssignments(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	st := redisstore.New(client, 24*time.Hour)
	roles := services.NewRoleService(st, false, "")
	ctx := context.Background()
	require.NoError(t, roles.SetRole(ctx, "alice", model.RoleTeacher, "admin"))

	a := NewRoleAuthorizer(roles)
	r := httptest.NewRequest("GET", "/", nil)
	r.Header.Set("X-User-Id", "alice")
	p, err := a.Authorize(ctx, r)
	require.NoError(t, err)
	assert.Equal(t, model.RoleTeacher, p.Role)

	r.Header.Set("X-User-Id", "bob")
	p, err = a.Authorize(ctx, r)
	require.NoError(t, err)
	assert.Equal(t, model.RoleStudent, p.Role)
}
