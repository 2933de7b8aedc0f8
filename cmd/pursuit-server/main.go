// Package main is the entry point for the pursuit game server.
// It only handles dependency injection and server initialization.
// NO business logic belongs here.
package main

import (
	"context"
	"log"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pursuit-game/server/internal/events"
	"github.com/pursuit-game/server/internal/game"
	"github.com/pursuit-game/server/internal/infra/storage"
	"github.com/pursuit-game/server/internal/network"
	"github.com/pursuit-game/server/internal/platform/config"
	"github.com/pursuit-game/server/internal/platform/logger"
	"github.com/pursuit-game/server/internal/platform/optimization"
)

func main() {
	log.Println("[PURSUIT-SERVER] Initializing authoritative session server...")

	appLogger := logger.NewLogger()

	cfg, err := config.Load()
	if err != nil {
		appLogger.Error("Failed to load configuration: " + err.Error())
		os.Exit(1)
	}

	tuning := optimization.DefaultConfig()
	if cfg.StressProfile {
		tuning = optimization.StressTestConfig()
		appLogger.Warn("Running with the stress test tuning profile")
	}

	// Persistence is optional; without a DB path the server runs purely
	// in memory and the history endpoints report 501.
	var (
		persister  events.Persister
		recorder   game.ResultRecorder
		resultRepo storage.ResultRepository
		recapper   *storage.Recapper
	)
	if cfg.DBPath != "" {
		appLogger.Info("Initializing SQLite database '" + cfg.DBPath + "'...")
		db, err := storage.InitSQLite(cfg.DBPath)
		if err != nil {
			appLogger.Error("Failed to initialize SQLite: " + err.Error())
			os.Exit(1)
		}
		db.SetMaxOpenConns(tuning.DBMaxOpenConns)
		db.SetMaxIdleConns(tuning.DBMaxIdleConns)

		eventRepo := storage.NewSQLiteMatchEventRepository(db)
		persister = storage.NewMatchEventPersister(eventRepo)
		recapper = storage.NewRecapper(eventRepo)

		sqlResults := storage.NewSQLiteResultRepository(db)
		resultRepo = sqlResults
		recorder = storage.NewResultStore(sqlResults)
	} else {
		appLogger.Warn("PURSUIT_DB_PATH is empty; running without persistence")
	}

	appLogger.Info("Bootstrapping match log...")
	matchLog := events.NewMatchLog(persister)

	appLogger.Info("Bootstrapping WebSocket hub and session directory...")
	hub := network.NewHub(appLogger)
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	directory := game.NewDirectory(hub, appLogger, matchLog, recorder, rng, cfg.MaxBoundaryAreaKm2)

	// Setup API routes
	mux := http.NewServeMux()
	server := network.NewServer(directory, hub, resultRepo, recapper, appLogger, cfg.JoinBaseURL, cfg.ClientOrigin)
	server.RegisterRoutes(mux)
	network.NewReplayHandler(matchLog, appLogger).RegisterRoutes(mux)

	httpServer := &http.Server{
		Addr:    cfg.Addr,
		Handler: mux,
	}

	go func() {
		log.Println("[PURSUIT-SERVER] HTTP API & WS server listening on " + cfg.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	log.Println("[PURSUIT-SERVER] Server running. Press Ctrl+C to exit.")

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("[PURSUIT-SERVER] Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		appLogger.Error("Shutdown error: " + err.Error())
	}
}
