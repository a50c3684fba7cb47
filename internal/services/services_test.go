package services

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/nbsync/nbsync/internal/store"
	"github.com/nbsync/nbsync/internal/store/redisstore"
)

// newTestStore spins up an in-process Redis and wraps it in the store adapter.
func newTestStore(t *testing.T) (store.Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return redisstore.New(client, 24*time.Hour), mr
}

// fakeClock lets tests pin service timestamps to exact milliseconds.
type fakeClock struct {
	millis int64
}

func (c *fakeClock) Now() time.Time { return time.UnixMilli(c.millis) }

func (c *fakeClock) Set(ms int64) { c.millis = ms }
