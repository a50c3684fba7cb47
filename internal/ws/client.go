package ws

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/nbsync/nbsync/internal/auth"
	"github.com/nbsync/nbsync/internal/model"
	"github.com/nbsync/nbsync/internal/services"
	"github.com/nbsync/nbsync/internal/store"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait).
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 512 * 1024

	sendBufferSize = 64
)

// Client is one WebSocket connection. It starts unbound; a create_session or
// join_session frame binds it to a session, registers it with the hub, and
// opens its own subscription on the session's notification channel. The
// subscription reader goroutine is the channel's only consumer.
type Client struct {
	id        string
	principal auth.Principal
	hub       *Hub
	conn      *websocket.Conn
	send      chan []byte
	log       zerolog.Logger

	sessions *services.SessionService
	sync     *services.SyncService

	code  string
	owner bool

	sub       store.Subscription
	done      chan struct{}
	closeOnce sync.Once
}

func NewClient(p auth.Principal, hub *Hub, conn *websocket.Conn, sessions *services.SessionService, syncSvc *services.SyncService, log zerolog.Logger) *Client {
	id := uuid.New().String()
	return &Client{
		id:        id,
		principal: p,
		hub:       hub,
		conn:      conn,
		send:      make(chan []byte, sendBufferSize),
		done:      make(chan struct{}),
		sessions:  sessions,
		sync:      syncSvc,
		log:       log.With().Str("conn", id).Str("user", p.UserID).Logger(),
	}
}

// Start begins the client's read and write pumps.
func (c *Client) Start() {
	go c.writePump()
	go c.readPump()
}

func (c *Client) readPump() {
	defer func() {
		if c.code != "" {
			c.hub.unregister <- c
		} else {
			c.close()
		}
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				c.log.Error().Err(err).Msg("websocket read error")
			}
			return
		}
		var msg Message
		if err := json.Unmarshal(raw, &msg); err != nil {
			c.sendError("invalid JSON frame", "")
			continue
		}
		c.handleMessage(&msg)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case raw := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, raw); err != nil {
				c.log.Error().Err(err).Msg("websocket write failed")
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) handleMessage(msg *Message) {
	ctx := context.Background()
	switch msg.Type {
	case MsgCreateSession:
		c.handleCreate(ctx)
	case MsgJoinSession:
		c.handleJoin(ctx, msg)
	case MsgPushCell:
		c.handlePush(ctx, msg)
	case MsgRequestSync:
		c.handleRequestSync(ctx, msg)
	case MsgToggleSync:
		c.handleToggle(ctx, msg)
	case MsgEndSession:
		c.handleEnd(ctx)
	default:
		c.sendError("unknown message type", "")
	}
}

func (c *Client) handleCreate(ctx context.Context) {
	if !c.principal.IsTeacher() {
		c.sendError("only teachers can create sessions", "forbidden")
		return
	}
	if c.code != "" {
		c.sendError("connection already bound to a session", "")
		return
	}
	code, err := c.sessions.Create(ctx, c.principal.UserID)
	if err != nil {
		c.sendDomainError(err)
		return
	}
	c.bind(ctx, code, true)
	c.sendReply(&Reply{Type: MsgSessionCreated, Code: code})
}

func (c *Client) handleJoin(ctx context.Context, msg *Message) {
	if c.code != "" {
		c.sendError("connection already bound to a session", "")
		return
	}
	ok, err := c.sessions.Join(ctx, msg.Code, c.principal.UserID)
	if err != nil {
		c.sendDomainError(err)
		return
	}
	if !ok {
		c.sendError("session not found or ended", "not_found")
		return
	}
	owner, err := c.sessions.VerifyOwner(ctx, msg.Code, c.principal.UserID)
	if err != nil {
		c.sendDomainError(err)
		return
	}
	c.bind(ctx, msg.Code, owner)
	c.sendReply(&Reply{Type: MsgSessionJoined, Code: msg.Code})
}

func (c *Client) handlePush(ctx context.Context, msg *Message) {
	if !c.requireOwner() {
		return
	}
	if msg.CellID == "" || len(msg.Content) == 0 {
		c.sendError("cell_id and content are required", "")
		return
	}
	if msg.TTLSeconds < 0 {
		c.sendError("ttl_seconds must not be negative", "")
		return
	}
	meta := model.DefaultMeta()
	if msg.Metadata != nil {
		meta = *msg.Metadata
	}
	ts, err := c.sync.Push(ctx, c.code, msg.CellID, msg.Content, meta, time.Duration(msg.TTLSeconds)*time.Second)
	if err != nil {
		c.sendDomainError(err)
		return
	}
	c.sendReply(&Reply{Type: MsgCellPushed, Code: c.code, CellID: msg.CellID, Timestamp: ts})
}

func (c *Client) handleRequestSync(ctx context.Context, msg *Message) {
	if !c.requireBound() {
		return
	}
	if msg.CellID == "" {
		c.sendError("cell_id is required", "")
		return
	}
	content, err := c.sync.RequestSync(ctx, c.code, msg.CellID)
	if err != nil {
		c.sendDomainError(err)
		return
	}
	c.sendReply(&Reply{
		Type:      MsgSyncContent,
		Code:      c.code,
		CellID:    msg.CellID,
		Content:   content.Content,
		Timestamp: content.Timestamp,
	})
}

func (c *Client) handleToggle(ctx context.Context, msg *Message) {
	if !c.requireOwner() {
		return
	}
	if msg.CellID == "" || msg.SyncAllowed == nil {
		c.sendError("cell_id and sync_allowed are required", "")
		return
	}
	ts, err := c.sync.ToggleVisibility(ctx, c.code, msg.CellID, *msg.SyncAllowed)
	if err != nil {
		c.sendDomainError(err)
		return
	}
	c.sendReply(&Reply{
		Type:        MsgVisibilityUpdated,
		Code:        c.code,
		CellID:      msg.CellID,
		Timestamp:   ts,
		SyncAllowed: msg.SyncAllowed,
	})
}

func (c *Client) handleEnd(ctx context.Context) {
	if !c.requireOwner() {
		return
	}
	if err := c.sessions.End(ctx, c.code); err != nil {
		c.sendDomainError(err)
		return
	}
	c.sendReply(&Reply{Type: MsgSessionEndedAck, Code: c.code})
}

// bind attaches the connection to a session: hub registration plus a
// dedicated notification subscription forwarded to the peer verbatim.
func (c *Client) bind(ctx context.Context, code string, owner bool) {
	c.code = code
	c.owner = owner
	c.hub.register <- c

	sub, err := c.sessions.Subscribe(ctx, code)
	if err != nil {
		c.log.Error().Err(err).Str("code", code).Msg("notification subscription failed")
		return
	}
	c.sub = sub
	go func() {
		for n := range sub.C() {
			raw, err := json.Marshal(n)
			if err != nil {
				continue
			}
			select {
			case <-c.done:
				return
			case c.send <- raw:
			default:
				c.log.Warn().Str("code", code).Msg("slow consumer, notification dropped")
			}
		}
	}()
}

func (c *Client) requireBound() bool {
	if c.code == "" {
		c.sendError("join a session first", "")
		return false
	}
	return true
}

func (c *Client) requireOwner() bool {
	if !c.requireBound() {
		return false
	}
	if !c.owner {
		c.sendError("only the session owner can do that", "forbidden")
		return false
	}
	return true
}

func (c *Client) sendReply(r *Reply) {
	raw, err := json.Marshal(r)
	if err != nil {
		c.log.Error().Err(err).Msg("reply marshal failed")
		return
	}
	select {
	case <-c.done:
	case c.send <- raw:
	default:
		c.log.Warn().Str("type", r.Type).Msg("slow consumer, reply dropped")
	}
}

func (c *Client) sendError(message, reason string) {
	c.sendReply(&Reply{Type: MsgError, Message: message, Reason: reason})
}

func (c *Client) sendDomainError(err error) {
	reason := ""
	switch {
	case errors.Is(err, model.ErrNotFound):
		reason = "not_found"
	case errors.Is(err, model.ErrSessionInactive):
		reason = "session_inactive"
	case errors.Is(err, model.ErrNoPendingUpdate):
		reason = "no_pending_update"
	case errors.Is(err, model.ErrSyncNotAllowed):
		reason = "sync_not_allowed"
	case errors.Is(err, model.ErrStorageUnavailable):
		reason = "storage_unavailable"
	}
	c.sendError(err.Error(), reason)
}

// close tears the connection down exactly once. The send channel is never
// closed: the forwarder and reply paths may still be mid-send, so shutdown is
// signaled on done and stale frames are simply never drained.
func (c *Client) close() {
	c.closeOnce.Do(func() {
		if c.sub != nil {
			_ = c.sub.Close()
		}
		close(c.done)
	})
}
