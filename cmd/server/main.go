// Command server runs the yatube feed API.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"yatube/internal/bootstrap"
	"yatube/internal/config"
	"yatube/internal/middleware"
	"yatube/internal/server"
)

// @title yatube API
// @version 1.0
// @description Blog feeds, groups and the follow graph.

// @host localhost:8000
// @BasePath /api
// @schemes http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx := context.Background()
	rt, err := bootstrap.InitRuntime(ctx, cfg, bootstrap.Options{ServiceName: "yatube-api", Tracing: true})
	if err != nil {
		log.Fatalf("Failed to initialize runtime: %v", err)
	}

	srv, err := server.NewServer(server.Deps{
		Config:     cfg,
		DB:         rt.DB,
		Redis:      rt.Redis,
		FollowRepo: rt.FollowRepo,
		PageCache:  rt.PageCache(),
	})
	if err != nil {
		log.Fatalf("Failed to create server: %v", err)
	}

	realtimeCtx, stopRealtime := context.WithCancel(ctx)
	defer stopRealtime()
	if err := srv.StartRealtime(realtimeCtx); err != nil {
		middleware.Logger.Warn("following feed sockets disabled", "error", err)
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		middleware.Logger.Info("shutting down server")
		stopRealtime()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			middleware.Logger.Error("server shutdown error", "error", err)
		}
		if err := rt.Close(shutdownCtx); err != nil {
			middleware.Logger.Error("runtime close error", "error", err)
		}
	}()

	if err := srv.Start(); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}
