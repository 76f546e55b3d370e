// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/danielhkuo/flash-survey/kv"
	"github.com/danielhkuo/flash-survey/metrics"
	"github.com/danielhkuo/flash-survey/models"
)

const TypeSweepClosedSurveys = "survey:sweep"

// Keys are deleted in batches of this size while scanning voter records
const scanBatch = 100

func NewSweepTask() *asynq.Task {
	return asynq.NewTask(TypeSweepClosedSurveys, nil)
}

// ClosedSurveyLister finds surveys whose Redis state can be dropped.
// *db.Store implements it.
type ClosedSurveyLister interface {
	ListClosedSurveys(ctx context.Context, now, since time.Time) ([]models.ClosedSurvey, error)
}

// SweepResult summarizes one sweep
type SweepResult struct {
	Surveys     int
	KeysDeleted int64
}

// Sweeper deletes the Redis keys of surveys that stopped accepting
// responses. Only surveys that closed within window are visited; older ones
// were swept before and their keys have expired on their own.
type Sweeper struct {
	store  ClosedSurveyLister
	client redis.Cmdable
	window time.Duration
	now    func() time.Time
}

func NewSweeper(store ClosedSurveyLister, client redis.Cmdable, window time.Duration) *Sweeper {
	return &Sweeper{store: store, client: client, window: window, now: time.Now}
}

// ProcessTask implements asynq.Handler
func (s *Sweeper) ProcessTask(ctx context.Context, t *asynq.Task) error {
	_, err := s.Sweep(ctx)
	return err
}

// Sweep runs one pass. Only a failure to list surveys is returned; Redis
// errors are logged and the pass moves on to the next survey.
func (s *Sweeper) Sweep(ctx context.Context) (SweepResult, error) {
	now := s.now()
	surveys, err := s.store.ListClosedSurveys(ctx, now, now.Add(-s.window))
	if err != nil {
		return SweepResult{}, fmt.Errorf("failed to list closed surveys: %w", err)
	}

	res := SweepResult{Surveys: len(surveys)}
	for _, survey := range surveys {
		n, err := s.sweepSurvey(ctx, survey)
		res.KeysDeleted += n
		if err != nil {
			slog.Warn("sweep failed for survey", "survey_id", survey.ID, "error", err)
			metrics.KVErrors.WithLabelValues("sweep").Inc()
		}
	}

	slog.Info("sweep finished",
		"surveys", res.Surveys,
		"keys_deleted", res.KeysDeleted,
	)
	return res, nil
}

func (s *Sweeper) sweepSurvey(ctx context.Context, survey models.ClosedSurvey) (int64, error) {
	deleted, err := s.client.Del(ctx,
		kv.SurveyByToken(survey.PublicToken),
		kv.Analytics(survey.ID),
		kv.Votes(survey.ID),
		kv.Submissions(survey.ID),
	).Result()
	if err != nil {
		return 0, err
	}

	batch := make([]string, 0, scanBatch)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, err := s.client.Del(ctx, batch...).Result()
		deleted += n
		batch = batch[:0]
		return err
	}

	iter := s.client.Scan(ctx, 0, kv.VoterPattern(survey.ID), scanBatch).Iterator()
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == scanBatch {
			if err := flush(); err != nil {
				return deleted, err
			}
		}
	}
	if err := iter.Err(); err != nil {
		return deleted, err
	}
	return deleted, flush()
}
