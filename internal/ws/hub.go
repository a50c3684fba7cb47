package ws

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/nbsync/nbsync/internal/services"
)

// Hub tracks which connection is the teacher and which are students for each
// live session. Fan-out itself rides the store's pub/sub channel; the hub only
// owns connection lifecycle, in particular ending a session when its teacher
// connection drops.
type Hub struct {
	sessions *services.SessionService

	mu    sync.RWMutex
	rooms map[string]*room

	register   chan *Client
	unregister chan *Client

	ctx    context.Context
	cancel context.CancelFunc
	log    zerolog.Logger
}

type room struct {
	teacher  *Client
	students map[*Client]bool
}

func NewHub(sessions *services.SessionService, log zerolog.Logger) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		sessions:   sessions,
		rooms:      make(map[string]*room),
		register:   make(chan *Client, 64),
		unregister: make(chan *Client, 64),
		ctx:        ctx,
		cancel:     cancel,
		log:        log,
	}
}

// Run is the hub event loop. Call in a goroutine; Stop terminates it.
func (h *Hub) Run() {
	for {
		select {
		case <-h.ctx.Done():
			h.closeAll()
			return
		case c := <-h.register:
			h.add(c)
		case c := <-h.unregister:
			h.remove(c)
		}
	}
}

// Stop shuts the hub down and closes every connection.
func (h *Hub) Stop() { h.cancel() }

func (h *Hub) add(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	rm := h.rooms[c.code]
	if rm == nil {
		rm = &room{students: make(map[*Client]bool)}
		h.rooms[c.code] = rm
	}
	if c.owner {
		rm.teacher = c
	} else {
		rm.students[c] = true
	}
	h.log.Info().
		Str("code", c.code).
		Str("user", c.principal.UserID).
		Bool("owner", c.owner).
		Int("students", len(rm.students)).
		Msg("connection joined session")
}

// remove drops the connection from its room. A teacher drop ends the session:
// students learn about it through the session_ended notification and the
// pending state is purged.
func (h *Hub) remove(c *Client) {
	h.mu.Lock()
	rm := h.rooms[c.code]
	teacherLeft := false
	if rm != nil {
		if rm.teacher == c {
			rm.teacher = nil
			teacherLeft = true
		}
		delete(rm.students, c)
		if rm.teacher == nil && len(rm.students) == 0 {
			delete(h.rooms, c.code)
		}
	}
	h.mu.Unlock()

	c.close()
	if !teacherLeft {
		return
	}
	h.log.Info().Str("code", c.code).Msg("teacher disconnected, ending session")
	if err := h.sessions.End(context.Background(), c.code); err != nil {
		h.log.Error().Err(err).Str("code", c.code).Msg("session end on disconnect failed")
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for code, rm := range h.rooms {
		if rm.teacher != nil {
			rm.teacher.close()
		}
		for c := range rm.students {
			c.close()
		}
		delete(h.rooms, code)
	}
	h.log.Info().Msg("all websocket connections closed")
}

// StudentCount reports the live student connections for a session.
func (h *Hub) StudentCount(code string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if rm := h.rooms[code]; rm != nil {
		return len(rm.students)
	}
	return 0
}
