package api

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/nbsync/nbsync/internal/api/respond"
	"github.com/nbsync/nbsync/internal/store"
)

// HealthMonitor pings the backing store on an interval and caches the result,
// so the health endpoint never blocks on a slow or dead Redis.
type HealthMonitor struct {
	store   store.Store
	healthy atomic.Int32
}

func NewHealthMonitor(s store.Store) *HealthMonitor {
	hm := &HealthMonitor{store: s}
	hm.healthy.Store(0) // unhealthy until the first successful probe
	return hm
}

// IsHealthy returns the cached status without touching the store.
func (hm *HealthMonitor) IsHealthy() bool { return hm.healthy.Load() == 1 }

// Start runs the probe loop until ctx is cancelled. Call in a goroutine.
func (hm *HealthMonitor) Start(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	check := func() {
		probeCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if err := hm.store.Ping(probeCtx); err != nil {
			if hm.healthy.Swap(0) == 1 {
				log.Error().Err(err).Msg("backing store became unhealthy")
			}
			return
		}
		if hm.healthy.Swap(1) == 0 {
			log.Info().Msg("backing store healthy")
		}
	}

	check()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			check()
		}
	}
}

// HealthHandler serves liveness and service status.
type HealthHandler struct {
	monitor *HealthMonitor
	store   store.Store
	started time.Time
}

func NewHealthHandler(monitor *HealthMonitor, s store.Store) *HealthHandler {
	return &HealthHandler{monitor: monitor, store: s, started: time.Now()}
}

// CheckHealth handles GET /api/health
// Always returns 200; body reports healthy/unhealthy. 500 indicates handler failure only.
func (h *HealthHandler) CheckHealth(w http.ResponseWriter, r *http.Request) {
	status := "unhealthy"
	if h.monitor.IsHealthy() {
		status = "healthy"
	}
	respond.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// Status handles GET /api/status with a live store round-trip.
func (h *HealthHandler) Status(w http.ResponseWriter, r *http.Request) {
	redisState := "connected"
	if err := h.store.Ping(r.Context()); err != nil {
		redisState = "disconnected"
	}
	activeSessions := 0
	if redisState == "connected" {
		n, err := h.store.Sessions().CountActive(r.Context())
		if err == nil {
			activeSessions = n
		}
	}
	respond.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"redis":          redisState,
		"activeSessions": activeSessions,
		"uptimeSeconds":  int64(time.Since(h.started).Seconds()),
		"timestamp":      time.Now().UnixMilli(),
	})
}
