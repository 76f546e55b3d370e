// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package jobs

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/hibiken/asynq"
)

// Worker schedules the sweep and processes it through asynq
type Worker struct {
	server    *asynq.Server
	scheduler *asynq.Scheduler
	mux       *asynq.ServeMux
}

// NewWorker connects to redisURL and registers the sweep to run every
// interval. Nothing runs until Start.
func NewWorker(redisURL string, sweeper *Sweeper, interval time.Duration) (*Worker, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("sweep interval must be positive, got %s", interval)
	}

	opt, err := asynq.ParseRedisURI(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: 1,
		Logger:      slogLogger{},
		LogLevel:    asynq.WarnLevel,
	})

	scheduler := asynq.NewScheduler(opt, &asynq.SchedulerOpts{
		Logger:   slogLogger{},
		LogLevel: asynq.WarnLevel,
	})
	// Unique keeps replicas from queueing the same sweep twice
	_, err = scheduler.Register("@every "+interval.String(), NewSweepTask(),
		asynq.Unique(interval),
		asynq.MaxRetry(1),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to schedule sweep: %w", err)
	}

	mux := asynq.NewServeMux()
	mux.Handle(TypeSweepClosedSurveys, sweeper)

	return &Worker{server: server, scheduler: scheduler, mux: mux}, nil
}

func (w *Worker) Start() error {
	if err := w.server.Start(w.mux); err != nil {
		return fmt.Errorf("failed to start worker: %w", err)
	}
	if err := w.scheduler.Start(); err != nil {
		w.server.Shutdown()
		return fmt.Errorf("failed to start scheduler: %w", err)
	}
	return nil
}

func (w *Worker) Shutdown() {
	w.scheduler.Shutdown()
	w.server.Shutdown()
}

// slogLogger routes asynq's logs through slog
type slogLogger struct{}

func (slogLogger) Debug(args ...interface{}) { slog.Debug(fmt.Sprint(args...), "component", "asynq") }
func (slogLogger) Info(args ...interface{}) { slog.Info(fmt.Sprint(args...), "component", "asynq") }
func (slogLogger) Warn(args ...interface{}) { slog.Warn(fmt.Sprint(args...), "component", "asynq") }
func (slogLogger) Error(args ...interface{}) { slog.Error(fmt.Sprint(args...), "component", "asynq") }

func (slogLogger) Fatal(args ...interface{}) {
	slog.Error(fmt.Sprint(args...), "component", "asynq")
	os.Exit(1)
}
