package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nbsync/nbsync/internal/api"
	"github.com/nbsync/nbsync/internal/auth"
	"github.com/nbsync/nbsync/internal/config"
	"github.com/nbsync/nbsync/internal/platform/logger"
	"github.com/nbsync/nbsync/internal/services"
	"github.com/nbsync/nbsync/internal/store/redisstore"
	"github.com/nbsync/nbsync/internal/ws"
)

func main() {
	log := logger.New("sync-service")

	cfg, err := config.New()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log.Info().
		Str("environment", string(cfg.Environment)).
		Str("redis_url", cfg.RedisURL).
		Int("http_port", cfg.HTTPPort).
		Msg("Sync service starting")

	// -------- Storage layer -----------------
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dialCtx, dialCancel := context.WithTimeout(ctx, cfg.RedisDialTimeout)
	client, err := redisstore.Open(dialCtx, cfg.RedisURL, redisstore.Options{
		DialTimeout: cfg.RedisDialTimeout,
		OpTimeout:   cfg.RedisOpTimeout,
	})
	dialCancel()
	if err != nil {
		log.Fatal().Err(err).Msg("Redis unavailable")
	}
	st := redisstore.NewWithOptions(client, redisstore.Options{
		SessionTTL:  cfg.SessionTTL,
		ScanTimeout: cfg.RedisScanTimeout,
	})
	defer func() { _ = st.Close() }()

	// -------- Services ---------------------
	sessions := services.NewSessionService(st, cfg.SessionCodeLength)
	syncSvc := services.NewSyncService(st, cfg.UpdateTTL)
	hashSvc := services.NewHashSyncService(st, cfg.UpdateTTL)
	roleSvc := services.NewRoleService(st, cfg.TeacherMode, cfg.TeacherUsers)
	if err := roleSvc.EnsureDefaultConfig(ctx); err != nil {
		log.Error().Err(err).Msg("Role config seed failed, continuing with defaults")
	}
	authorizer := auth.NewRoleAuthorizer(roleSvc)

	// -------- Health monitor ---------------
	monitor := api.NewHealthMonitor(st)
	go monitor.Start(ctx, cfg.HealthInterval)

	// -------- WebSocket hub ----------------
	hub := ws.NewHub(sessions, log)
	go hub.Run()
	defer hub.Stop()

	// -------- Router & Server --------------
	router := api.NewRouter(api.Deps{
		Store:    st,
		Sessions: sessions,
		Sync:     syncSvc,
		Hash:     hashSvc,
		Roles:    roleSvc,
		Authz:    authorizer,
		Monitor:  monitor,
	})
	wsServer := ws.NewServer(hub, authorizer, sessions, syncSvc, log)
	router.HandleFunc("/ws", wsServer.ServeWS).Methods("GET")

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Int("port", cfg.HTTPPort).Msg("HTTP server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server")
	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := server.Shutdown(ctxShutdown); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server exited")
}
