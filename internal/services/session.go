package services

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/nbsync/nbsync/internal/model"
	"github.com/nbsync/nbsync/internal/store"
)

// codeAlphabet is the fixed session-code alphabet: uppercase letters + digits.
const codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// SessionService owns session identity, membership, and status.
type SessionService struct {
	store   store.Store
	codeLen int

	now func() time.Time
}

func NewSessionService(s store.Store, codeLen int) *SessionService {
	if codeLen <= 0 {
		codeLen = 6
	}
	return &SessionService{store: s, codeLen: codeLen, now: time.Now}
}

// Create generates a code that does not collide with any active session and
// stores the new session. Only a backing-store failure can make this fail.
func (s *SessionService) Create(ctx context.Context, ownerID string) (string, error) {
	var code string
	for {
		code = s.generateCode()
		existing, err := s.store.Sessions().Get(ctx, code)
		if err != nil {
			return "", err
		}
		if existing == nil || existing.Status != model.SessionActive {
			break
		}
	}

	sess := &model.Session{
		Code:      code,
		OwnerID:   ownerID,
		CreatedAt: s.now().UnixMilli(),
		Status:    model.SessionActive,
		Members:   []string{},
	}
	if err := s.store.Sessions().Create(ctx, sess); err != nil {
		return "", err
	}
	log.Info().Str("code", code).Str("owner", ownerID).Msg("session created")
	return code, nil
}

// Join adds memberID to the session. Returns false when the session is absent
// or ended; re-joining an existing member is a no-op success.
func (s *SessionService) Join(ctx context.Context, code, memberID string) (bool, error) {
	sess, err := s.store.Sessions().Get(ctx, code)
	if err != nil {
		return false, err
	}
	if sess == nil || sess.Status != model.SessionActive {
		return false, nil
	}
	ok, err := s.store.Sessions().AddMember(ctx, code, memberID)
	if err != nil || !ok {
		return false, err
	}

	// Fan-out is best-effort; the join itself has already succeeded.
	note := &model.Notification{
		Type:        model.NotifyStudentJoined,
		SessionCode: code,
		MemberID:    memberID,
		Timestamp:   s.now().UnixMilli(),
	}
	if err := s.store.Notifier().Publish(ctx, code, note); err != nil {
		log.Error().Err(err).Str("code", code).Msg("join notification dropped")
	}

	log.Info().Str("code", code).Str("member", memberID).Msg("member joined session")
	return true, nil
}

// End marks the session ended and purges every pending update and index entry
// scoped to it. Hash entries are a distinct namespace and are never touched.
func (s *SessionService) End(ctx context.Context, code string) error {
	sess, err := s.store.Sessions().Get(ctx, code)
	if err != nil {
		return err
	}
	if sess == nil {
		return model.ErrNotFound
	}
	if err := s.store.Sessions().SetStatus(ctx, code, model.SessionEnded); err != nil {
		return err
	}
	if err := s.store.Updates().PurgeSession(ctx, code); err != nil {
		return err
	}

	note := &model.Notification{
		Type:        model.NotifySessionEnded,
		SessionCode: code,
		Timestamp:   s.now().UnixMilli(),
	}
	if err := s.store.Notifier().Publish(ctx, code, note); err != nil {
		log.Error().Err(err).Str("code", code).Msg("session-end notification dropped")
	}

	log.Info().Str("code", code).Msg("session ended")
	return nil
}

// Get returns nil, nil when the session is absent or expired.
func (s *SessionService) Get(ctx context.Context, code string) (*model.Session, error) {
	return s.store.Sessions().Get(ctx, code)
}

// VerifyOwner reports whether id is the stored owner of the session.
func (s *SessionService) VerifyOwner(ctx context.Context, code, id string) (bool, error) {
	sess, err := s.store.Sessions().Get(ctx, code)
	if err != nil {
		return false, err
	}
	return sess != nil && sess.OwnerID == id, nil
}

// VerifyMember reports whether id is the owner or a joined member.
func (s *SessionService) VerifyMember(ctx context.Context, code, id string) (bool, error) {
	sess, err := s.store.Sessions().Get(ctx, code)
	if err != nil {
		return false, err
	}
	if sess == nil {
		return false, nil
	}
	if sess.OwnerID == id {
		return true, nil
	}
	for _, m := range sess.Members {
		if m == id {
			return true, nil
		}
	}
	return false, nil
}

// Subscribe opens a notification subscription for one connection. The caller
// owns exclusive read access and must Close it.
func (s *SessionService) Subscribe(ctx context.Context, code string) (store.Subscription, error) {
	return s.store.Notifier().Subscribe(ctx, code)
}

func (s *SessionService) generateCode() string {
	max := big.NewInt(int64(len(codeAlphabet)))
	buf := make([]byte, s.codeLen)
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			// crypto/rand only fails when the OS entropy source is broken.
			panic(fmt.Sprintf("session code generation: %v", err))
		}
		buf[i] = codeAlphabet[n.Int64()]
	}
	return string(buf)
}
