package redisstore

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/nbsync/nbsync/internal/model"
	"github.com/nbsync/nbsync/internal/store"
)

type notifier struct {
	rdb *redis.Client
}

func (n *notifier) Publish(ctx context.Context, code string, msg *model.Notification) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	if err := n.rdb.Publish(ctx, channelName(code), payload).Err(); err != nil {
		return storeErr("notifier.publish", err)
	}
	return nil
}

// Subscribe opens a dedicated pub/sub connection for one subscriber. The
// decode goroutine exits when the subscription is closed or ctx is cancelled.
func (n *notifier) Subscribe(ctx context.Context, code string) (store.Subscription, error) {
	ps := n.rdb.Subscribe(ctx, channelName(code))
	// Force the SUBSCRIBE round trip so connection failures surface here, not
	// on first receive.
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, storeErr("notifier.subscribe", err)
	}

	sub := &subscription{ps: ps, out: make(chan *model.Notification, 16)}
	go func() {
		defer close(sub.out)
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ps.Channel():
				if !ok {
					return
				}
				var note model.Notification
				if err := json.Unmarshal([]byte(msg.Payload), &note); err != nil {
					log.Error().Err(err).Str("channel", msg.Channel).Msg("undecodable notification dropped")
					continue
				}
				select {
				case sub.out <- &note:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return sub, nil
}

type subscription struct {
	ps  *redis.PubSub
	out chan *model.Notification
}

func (s *subscription) C() <-chan *model.Notification { return s.out }

func (s *subscription) Close() error { return s.ps.Close() }
