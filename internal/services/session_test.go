package services

import (
	"context"
	"encoding/json"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nbsync/nbsync/internal/model"
)

var codeRx = regexp.MustCompile(`^[A-Z0-9]{6}$`)

func TestCreateSession_CodeShape(t *testing.T) {
	st, _ := newTestStore(t)
	svc := NewSessionService(st, 6)
	ctx := context.Background()

	code, err := svc.Create(ctx, "teacher-1")
	require.NoError(t, err)
	assert.Regexp(t, codeRx, code)

	sess, err := svc.Get(ctx, code)
	require.NoError(t, err)
	require.NotNil(t, sess)
	assert.Equal(t, "teacher-1", sess.OwnerID)
	assert.Equal(t, model.SessionActive, sess.Status)
	assert.Empty(t, sess.Members)
}

func TestCreateSession_CodesAreUnique(t *testing.T) {
	st, _ := newTestStore(t)
	svc := NewSessionService(st, 6)
	ctx := context.Background()

	seen := map[string]bool{}
	for i := 0; i < 20; i++ {
		code, err := svc.Create(ctx, "teacher-1")
		require.NoError(t, err)
		assert.False(t, seen[code], "duplicate active code %s", code)
		seen[code] = true
	}
}

func TestJoin_Idempotent(t *testing.T) {
	st, _ := newTestStore(t)
	svc := NewSessionService(st, 6)
	ctx := context.Background()

	code, err := svc.Create(ctx, "teacher-1")
	require.NoError(t, err)

	ok, err := svc.Join(ctx, code, "s1")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = svc.Join(ctx, code, "s1")
	require.NoError(t, err)
	assert.True(t, ok)

	sess, err := svc.Get(ctx, code)
	require.NoError(t, err)
	assert.Equal(t, []string{"s1"}, sess.Members)
}

func TestJoin_AbsentOrEndedSession(t *testing.T) {
	st, _ := newTestStore(t)
	svc := NewSessionService(st, 6)
	ctx := context.Background()

	ok, err := svc.Join(ctx, "NOPE99", "s1")
	require.NoError(t, err)
	assert.False(t, ok)

	code, err := svc.Create(ctx, "teacher-1")
	require.NoError(t, err)
	require.NoError(t, svc.End(ctx, code))

	ok, err = svc.Join(ctx, code, "s1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEnd_PurgesSessionScopedState(t *testing.T) {
	st, _ := newTestStore(t)
	svc := NewSessionService(st, 6)
	sync := NewSyncService(st, time.Hour)
	ctx := context.Background()

	code, err := svc.Create(ctx, "teacher-1")
	require.NoError(t, err)
	_, err = sync.Push(ctx, code, "cell_1", json.RawMessage(`"x"`), model.DefaultMeta(), 0)
	require.NoError(t, err)

	require.NoError(t, svc.End(ctx, code))

	sess, err := svc.Get(ctx, code)
	require.NoError(t, err)
	require.NotNil(t, sess)
	assert.Equal(t, model.SessionEnded, sess.Status)

	status, err := sync.GetStatus(ctx, code, "cell_1")
	require.NoError(t, err)
	assert.False(t, status.Available)

	changed, err := sync.ListChangedSince(ctx, code, 0)
	require.NoError(t, err)
	assert.Empty(t, changed)
}

func TestEnd_AbsentSession(t *testing.T) {
	st, _ := newTestStore(t)
	svc := NewSessionService(st, 6)

	err := svc.End(context.Background(), "NOPE99")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestEnd_DoesNotTouchHashEntries(t *testing.T) {
	st, _ := newTestStore(t)
	svc := NewSessionService(st, 6)
	hsync := NewHashSyncService(st, time.Hour)
	ctx := context.Background()

	digest, err := hsync.StoreByIdentity(ctx, "cell_1", "2025-01-15T10:30:00.000Z", json.RawMessage(`"c"`), 0)
	require.NoError(t, err)

	code, err := svc.Create(ctx, "teacher-1")
	require.NoError(t, err)
	require.NoError(t, svc.End(ctx, code))

	got, err := hsync.FetchByDigest(ctx, digest)
	require.NoError(t, err)
	require.NotNil(t, got)
}

func TestVerifyOwnerAndMember(t *testing.T) {
	st, _ := newTestStore(t)
	svc := NewSessionService(st, 6)
	ctx := context.Background()

	code, err := svc.Create(ctx, "teacher-1")
	require.NoError(t, err)
	_, err = svc.Join(ctx, code, "s1")
	require.NoError(t, err)

	ok, err := svc.VerifyOwner(ctx, code, "teacher-1")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = svc.VerifyOwner(ctx, code, "s1")
	require.NoError(t, err)
	assert.False(t, ok)

	// Member check is owner-OR-membership.
	for _, id := range []string{"teacher-1", "s1"} {
		ok, err = svc.VerifyMember(ctx, code, id)
		require.NoError(t, err)
		assert.True(t, ok, "expected %s to be a member", id)
	}
	ok, err = svc.VerifyMember(ctx, code, "outsider")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = svc.VerifyOwner(ctx, "NOPE99", "teacher-1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestJoin_PublishesStudentJoined(t *testing.T) {
	st, _ := newTestStore(t)
	svc := NewSessionService(st, 6)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	code, err := svc.Create(ctx, "teacher-1")
	require.NoError(t, err)

	sub, err := st.Notifier().Subscribe(ctx, code)
	require.NoError(t, err)
	defer func() { _ = sub.Close() }()

	_, err = svc.Join(ctx, code, "s1")
	require.NoError(t, err)

	select {
	case note := <-sub.C():
		assert.Equal(t, model.NotifyStudentJoined, note.Type)
		assert.Equal(t, "s1", note.MemberID)
	case <-time.After(2 * time.Second):
		t.Fatal("no student_joined notification")
	}
}
