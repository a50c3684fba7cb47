package api

import (
	"github.com/gorilla/mux"

	"github.com/nbsync/nbsync/internal/api/recovery"
	"github.com/nbsync/nbsync/internal/auth"
	"github.com/nbsync/nbsync/internal/services"
	"github.com/nbsync/nbsync/internal/store"
)

// Deps carries the constructed collaborators the router wires together.
type Deps struct {
	Store    store.Store
	Sessions *services.SessionService
	Sync     *services.SyncService
	Hash     *services.HashSyncService
	Roles    *services.RoleService
	Authz    auth.Authorizer
	Monitor  *HealthMonitor
}

// NewRouter creates the HTTP router with all API routes.
func NewRouter(d Deps) *mux.Router {
	router := mux.NewRouter()

	// Global middlewares
	router.Use(recovery.Middleware)

	healthHandler := NewHealthHandler(d.Monitor, d.Store)
	sessionHandler := NewSessionHandler(d.Sessions, d.Authz)
	cellHandler := NewCellHandler(d.Sync, d.Sessions, d.Authz)
	hashHandler := NewHashHandler(d.Hash)
	roleHandler := NewRoleHandler(d.Roles, d.Authz)

	// Health endpoints
	router.HandleFunc("/api/health", healthHandler.CheckHealth).Methods("GET")
	router.HandleFunc("/api/status", healthHandler.Status).Methods("GET")

	// Session endpoints
	router.HandleFunc("/api/sessions", sessionHandler.CreateSession).Methods("POST")
	router.HandleFunc("/api/sessions/{code}", sessionHandler.GetSession).Methods("GET")
	router.HandleFunc("/api/sessions/{code}/join", sessionHandler.JoinSession).Methods("POST")
	router.HandleFunc("/api/sessions/{code}/end", sessionHandler.EndSession).Methods("POST")

	// Cell endpoints
	router.HandleFunc("/api/sessions/{code}/cells/{cellId}", cellHandler.PushCell).Methods("POST")
	router.HandleFunc("/api/sessions/{code}/cells/{cellId}", cellHandler.GetCellStatus).Methods("GET")
	router.HandleFunc("/api/sessions/{code}/cells/{cellId}/visibility", cellHandler.ToggleVisibility).Methods("POST")
	router.HandleFunc("/api/sessions/{code}/cells/{cellId}/sync", cellHandler.RequestSync).Methods("POST")
	router.HandleFunc("/api/sessions/{code}/changes", cellHandler.ListChanges).Methods("GET")

	// Hash-based sync endpoints (registered before the digest route so the
	// literal "sync" segment is not captured as a digest)
	router.HandleFunc("/api/hash/cells", hashHandler.StoreCell).Methods("POST")
	router.HandleFunc("/api/hash/cells", hashHandler.ListKeys).Methods("GET")
	router.HandleFunc("/api/hash/cells/sync", hashHandler.FetchByIdentity).Methods("POST")
	router.HandleFunc("/api/hash/cells/{digest:[a-f0-9]{64}}", hashHandler.FetchByDigest).Methods("GET")

	// Role endpoints
	router.HandleFunc("/api/roles", roleHandler.ListByRole).Methods("GET")
	router.HandleFunc("/api/roles/config", roleHandler.GetConfig).Methods("GET")
	router.HandleFunc("/api/roles/config", roleHandler.PutConfig).Methods("PUT")
	router.HandleFunc("/api/roles/users/{userId}", roleHandler.GetUserRole).Methods("GET")
	router.HandleFunc("/api/roles/users/{userId}", roleHandler.SetUserRole).Methods("PUT")
	router.HandleFunc("/api/roles/users/{userId}", roleHandler.RemoveUserRole).Methods("DELETE")
	router.HandleFunc("/api/roles/users/{userId}/history", roleHandler.GetUserHistory).Methods("GET")

	// Identity echo
	router.HandleFunc("/api/auth/whoami", roleHandler.WhoAmI).Methods("GET")

	return router
}
