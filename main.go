// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/danielhkuo/flash-survey/cliparse"
	"github.com/danielhkuo/flash-survey/db"
	"github.com/danielhkuo/flash-survey/jobs"
	"github.com/danielhkuo/flash-survey/kv"
	"github.com/danielhkuo/flash-survey/logging"
	"github.com/danielhkuo/flash-survey/middleware"
	"github.com/danielhkuo/flash-survey/router"
)

const shutdownTimeout = 10 * time.Second

func main() {
	var err error

	if err := cliparse.LoadDotEnv(".env", ".env.local"); err != nil {
		slog.Error("Error loading env file", "error", err)
		os.Exit(1)
	}

	// Parse configuration
	cfg, err := cliparse.ParseFlags(os.Args[1:])
	if err != nil {
		slog.Error("Error parsing flags", "error", err)
		os.Exit(1)
	}

	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		slog.Error("Error parsing log level", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(logging.New(os.Stderr, level))

	// Connect to the database
	dbConn, err := db.Open(cfg.DatabaseType, cfg.DatabaseURL)
	if err != nil {
		slog.Error("database connection failed", "error", err)
		os.Exit(1)
	}
	defer dbConn.Close()

	// Verify connection
	if err := dbConn.Ping(); err != nil {
		slog.Error("database ping failed", "error", err, "type", cfg.DatabaseType)
		os.Exit(1)
	}

	// Create schema (tables)
	if err := db.CreateSchema(dbConn); err != nil {
		slog.Error("schema creation failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Database schema ready", "type", cfg.DatabaseType)

	store := db.NewStore(dbConn, cfg.DBTimeout)

	// Connect to Redis. Startup continues when it is down; the gate and
	// cache degrade until it comes back.
	redisClient, err := kv.NewClient(cfg.RedisURL)
	if err != nil {
		slog.Error("redis configuration failed", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()

	if status := kv.Health(context.Background(), redisClient, cfg.KVTimeout); !status.Healthy {
		slog.Warn("redis unreachable, starting degraded", "error", status.Err)
	} else {
		slog.Info("Redis ready", "latency", status.Latency)
	}

	// Background sweep of closed surveys
	if cfg.SweepInterval > 0 {
		sweeper := jobs.NewSweeper(store, redisClient, cfg.VoterTTL)
		worker, err := jobs.NewWorker(cfg.RedisURL, sweeper, cfg.SweepInterval)
		if err != nil {
			slog.Error("sweep worker setup failed", "error", err)
			os.Exit(1)
		}
		if err := worker.Start(); err != nil {
			// Redis keys still expire through their TTLs
			slog.Warn("sweep worker not started", "error", err)
		} else {
			defer worker.Shutdown()
			slog.Info("Sweep scheduled", "interval", cfg.SweepInterval)
		}
	}

	// Create router
	mux := router.NewRouter(store, redisClient, cfg)

	// Create server
	server := http.Server{
		Handler:           middleware.CORS(mux),
		Addr:              ":" + strconv.Itoa(cfg.Port),
		ReadHeaderTimeout: 5 * time.Second,
	}

	// signal.Notify requires the channel to be buffered
	ctrlc := make(chan os.Signal, 1)
	signal.Notify(ctrlc, os.Interrupt, syscall.SIGTERM)
	go func() {
		// Wait for Ctrl-C signal
		<-ctrlc
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			slog.Warn("graceful shutdown failed", "error", err)
			server.Close()
		}
	}()

	// Start server
	slog.Info("Listening", "port", cfg.Port)
	err = server.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		slog.Error("Server closed", "error", err)
	} else {
		slog.Info("Server closed", "error", err)
	}
}
