// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package jobs runs background maintenance over Redis.

# Sweep

The sweep deletes the Redis state of surveys that stopped accepting
responses: the cached public view, the cached analytics, the vote counter,
the submission log and every voter admission record. Voter records are
found with SCAN, never KEYS.

	sweeper := jobs.NewSweeper(store, client, cfg.VoterTTL)
	res, err := sweeper.Sweep(ctx)

Only surveys that closed within the window are visited. Keys of surveys that
closed earlier have already expired through their own TTLs.

# Scheduling

Worker wraps an asynq server and scheduler. The sweep is registered as the
"survey:sweep" task and enqueued every interval:

	w, err := jobs.NewWorker(cfg.RedisURL, sweeper, cfg.SweepInterval)
	if err := w.Start(); err != nil { ... }
	defer w.Shutdown()

asynq logs are routed through slog.
*/
package jobs
