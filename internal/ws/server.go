package ws

import (
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/nbsync/nbsync/internal/api/respond"
	"github.com/nbsync/nbsync/internal/auth"
	"github.com/nbsync/nbsync/internal/services"
)

// Server upgrades HTTP requests and hands the connection to a Client.
type Server struct {
	hub      *Hub
	authz    auth.Authorizer
	sessions *services.SessionService
	sync     *services.SyncService
	log      zerolog.Logger
	upgrader websocket.Upgrader
}

func NewServer(hub *Hub, authz auth.Authorizer, sessions *services.SessionService, syncSvc *services.SyncService, log zerolog.Logger) *Server {
	return &Server{
		hub:      hub,
		authz:    authz,
		sessions: sessions,
		sync:     syncSvc,
		log:      log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// Browser clients connect from the notebook origin; the identity
			// layer, not the origin, is the access control here.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// ServeWS handles GET /ws. Identity is resolved before the upgrade so an
// unauthenticated caller gets a plain HTTP error, not a dropped socket.
func (s *Server) ServeWS(w http.ResponseWriter, r *http.Request) {
	p, err := s.authz.Authorize(r.Context(), r)
	if err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Error().Err(err).Msg("websocket upgrade failed")
		return
	}
	client := NewClient(p, s.hub, conn, s.sessions, s.sync, s.log)
	client.Start()
	s.log.Info().Str("user", p.UserID).Str("role", p.Role).Msg("websocket connected")
}
