package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/nbsync/nbsync/internal/model"
	"github.com/nbsync/nbsync/internal/store"
)

// SyncService is the pending-update cache and notification index. One record
// per (session, cell), latest write wins; the index carries only the latest
// event timestamp per cell, so polls deliver current state, not history.
type SyncService struct {
	store      store.Store
	defaultTTL time.Duration

	now func() time.Time
}

func NewSyncService(s store.Store, defaultTTL time.Duration) *SyncService {
	if defaultTTL <= 0 {
		defaultTTL = 24 * time.Hour
	}
	return &SyncService{store: s, defaultTTL: defaultTTL, now: time.Now}
}

// Push records content for a cell, stamps it, indexes the event, and
// publishes a notification that never carries the content itself. The record
// write and the index upsert are not atomic as a pair; both are idempotent
// overwrites, so a retry after partial failure converges.
func (s *SyncService) Push(ctx context.Context, code, cellID string, content json.RawMessage, meta model.UpdateMeta, ttl time.Duration) (int64, error) {
	if err := s.requireActive(ctx, code); err != nil {
		return 0, err
	}
	if ttl <= 0 {
		ttl = s.defaultTTL
	}
	ts := s.now().UnixMilli()
	u := &model.PendingUpdate{
		SessionCode: code,
		CellID:      cellID,
		Content:     content,
		Meta:        meta,
		Timestamp:   ts,
		Status:      model.UpdatePending,
	}
	if err := s.store.Updates().Put(ctx, u, ttl); err != nil {
		return 0, err
	}
	if err := s.store.Updates().TouchIndex(ctx, code, cellID, ts); err != nil {
		return 0, err
	}
	s.notify(ctx, code, &model.Notification{
		Type:        model.NotifyUpdateAvailable,
		CellID:      cellID,
		SyncAllowed: &meta.SyncAllowed,
		Timestamp:   ts,
	})
	log.Info().Str("code", code).Str("cell", cellID).Int64("ts", ts).Msg("cell pushed")
	return ts, nil
}

// ToggleVisibility flips sync permission for a cell. With an existing record
// the flag is merged and the timestamp and TTL refresh; with none, only the
// index is touched so subscribers still observe the permission event. A later
// push carries its own metadata and is not constrained by an earlier toggle.
func (s *SyncService) ToggleVisibility(ctx context.Context, code, cellID string, allowed bool) (int64, error) {
	if err := s.requireActive(ctx, code); err != nil {
		return 0, err
	}
	ts := s.now().UnixMilli()

	u, err := s.store.Updates().Get(ctx, code, cellID)
	if err != nil {
		return 0, err
	}
	if u != nil {
		u.Meta.SyncAllowed = allowed
		u.Timestamp = ts
		if err := s.store.Updates().Put(ctx, u, s.defaultTTL); err != nil {
			return 0, err
		}
	}
	if err := s.store.Updates().TouchIndex(ctx, code, cellID, ts); err != nil {
		return 0, err
	}
	s.notify(ctx, code, &model.Notification{
		Type:        model.NotifySyncAllowed,
		CellID:      cellID,
		SyncAllowed: &allowed,
		Timestamp:   ts,
	})
	log.Info().Str("code", code).Str("cell", cellID).Bool("allowed", allowed).Msg("cell visibility toggled")
	return ts, nil
}

// GetStatus is read-only; an absent or expired record reports Available=false.
func (s *SyncService) GetStatus(ctx context.Context, code, cellID string) (*model.CellStatus, error) {
	u, err := s.store.Updates().Get(ctx, code, cellID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return &model.CellStatus{CellID: cellID, Available: false}, nil
	}
	return &model.CellStatus{
		CellID:      cellID,
		Available:   true,
		Timestamp:   u.Timestamp,
		SyncAllowed: u.Meta.SyncAllowed,
	}, nil
}

// ListChangedSince resolves every index hit with score >= since against the
// cache, ascending by timestamp. Cells whose record has expired are reported
// with Available=false rather than omitted. Re-polling with the same cursor
// returns the same set.
func (s *SyncService) ListChangedSince(ctx context.Context, code string, since int64) ([]model.ChangedCell, error) {
	hits, err := s.store.Updates().ChangedSince(ctx, code, since)
	if err != nil {
		return nil, err
	}
	out := make([]model.ChangedCell, 0, len(hits))
	for _, hit := range hits {
		u, err := s.store.Updates().Get(ctx, code, hit.CellID)
		if err != nil {
			return nil, err
		}
		if u == nil {
			out = append(out, model.ChangedCell{CellID: hit.CellID, Timestamp: hit.Score, Available: false})
			continue
		}
		out = append(out, model.ChangedCell{
			CellID:      hit.CellID,
			Timestamp:   u.Timestamp,
			SyncAllowed: u.Meta.SyncAllowed,
			Available:   true,
		})
	}
	return out, nil
}

// RequestSync releases the content of a cell to a subscriber. A recorded cell
// stays withheld until its publisher allows sync; the rejection reasons are
// distinguishable so callers know whether retrying can ever succeed.
func (s *SyncService) RequestSync(ctx context.Context, code, cellID string) (*model.CellContent, error) {
	u, err := s.store.Updates().Get(ctx, code, cellID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, model.ErrNoPendingUpdate
	}
	if !u.Meta.SyncAllowed {
		return nil, model.ErrSyncNotAllowed
	}
	if err := s.store.Updates().MarkDelivered(ctx, code, cellID); err != nil {
		return nil, err
	}
	return &model.CellContent{
		CellID:    cellID,
		Content:   u.Content,
		Meta:      u.Meta,
		Timestamp: u.Timestamp,
	}, nil
}

func (s *SyncService) requireActive(ctx context.Context, code string) error {
	sess, err := s.store.Sessions().Get(ctx, code)
	if err != nil {
		return err
	}
	if sess == nil {
		return model.ErrNotFound
	}
	if sess.Status != model.SessionActive {
		return model.ErrSessionInactive
	}
	return nil
}

func (s *SyncService) notify(ctx context.Context, code string, n *model.Notification) {
	if err := s.store.Notifier().Publish(ctx, code, n); err != nil {
		log.Error().Err(err).Str("code", code).Str("type", n.Type).Msg("notification dropped")
	}
}
