// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package admission

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/danielhkuo/flash-survey/kv"
	"github.com/danielhkuo/flash-survey/metrics"
)

const (
	DefaultTTL     = 7 * 24 * time.Hour
	DefaultTimeout = 300 * time.Millisecond

	// Newest entries kept in a survey's submission log
	submissionLogLimit = 1000
)

// Outcome is the verdict of Evaluate
type Outcome int

const (
	Admitted Outcome = iota
	RejectedDuplicate
	RejectedQuotaExceeded
)

func (o Outcome) String() string {
	switch o {
	case Admitted:
		return "admitted"
	case RejectedDuplicate:
		return "rejected_duplicate"
	case RejectedQuotaExceeded:
		return "rejected_quota_exceeded"
	default:
		return "unknown"
	}
}

// Decision is the result of evaluating one submission attempt
type Decision struct {
	Outcome Outcome

	// Set when admitted: maxResponses minus the admitted count
	RemainingSlots int

	// Set when rejected as duplicate: time left on the voter's record
	RetryAfter time.Duration

	// The store could not be consulted and the attempt was let through
	Degraded bool
}

// Allowed reports whether the submission may proceed
func (d Decision) Allowed() bool {
	return d.Outcome == Admitted
}

// Gate enforces one submission per voter per survey and a soft ceiling on
// submissions per survey, backed by Redis. Redis failures never block a
// submission.
type Gate struct {
	client  redis.Cmdable
	ttl     time.Duration
	timeout time.Duration
}

type Option func(*Gate)

// WithTTL sets how long a voter stays recorded as admitted
func WithTTL(ttl time.Duration) Option {
	return func(g *Gate) {
		if ttl > 0 {
			g.ttl = ttl
		}
	}
}

// WithTimeout bounds each Redis round trip
func WithTimeout(timeout time.Duration) Option {
	return func(g *Gate) {
		if timeout > 0 {
			g.timeout = timeout
		}
	}
}

func NewGate(client redis.Cmdable, opts ...Option) *Gate {
	g := &Gate{
		client:  client,
		ttl:     DefaultTTL,
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Evaluate decides whether voter may submit to surveyID. The survey itself
// must already be known to be open. The voter lookup and the counter lookup
// share one pipeline but are not atomic with the later Commit, so concurrent
// voters may overshoot maxResponses.
func (g *Gate) Evaluate(ctx context.Context, surveyID, voter string, maxResponses int) Decision {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	voterKey := kv.Voter(surveyID, voter)

	var (
		exists *redis.IntCmd
		ttl    *redis.DurationCmd
		count  *redis.StringCmd
	)
	_, err := g.client.Pipelined(ctx, func(p redis.Pipeliner) error {
		exists = p.Exists(ctx, voterKey)
		ttl = p.PTTL(ctx, voterKey)
		count = p.Get(ctx, kv.Votes(surveyID))
		return nil
	})
	// redis.Nil only means the counter does not exist yet
	if err != nil && !errors.Is(err, redis.Nil) {
		return g.failOpen(surveyID, maxResponses, err)
	}

	if err := exists.Err(); err != nil {
		return g.failOpen(surveyID, maxResponses, err)
	}
	if exists.Val() > 0 {
		d := Decision{Outcome: RejectedDuplicate}
		if remaining := ttl.Val(); ttl.Err() == nil && remaining > 0 {
			d.RetryAfter = remaining
		}
		return g.record(d)
	}

	admitted := 0
	switch raw, err := count.Result(); {
	case errors.Is(err, redis.Nil):
		// No submissions yet
	case err != nil:
		return g.failOpen(surveyID, maxResponses, err)
	default:
		n, convErr := strconv.Atoi(raw)
		if convErr != nil {
			return g.failOpen(surveyID, maxResponses, convErr)
		}
		admitted = n
	}

	if admitted >= maxResponses {
		return g.record(Decision{Outcome: RejectedQuotaExceeded})
	}
	return g.record(Decision{Outcome: Admitted, RemainingSlots: maxResponses - admitted})
}

// Commit records an admitted submission after its durable write succeeded:
// the voter record, the survey counter and the submission log are written
// in one MULTI/EXEC, all with the gate TTL. It survives cancellation of ctx
// but keeps its own timeout. Failures are logged and reported as false; the
// durable write stands regardless.
func (g *Gate) Commit(ctx context.Context, surveyID, voter, submissionID string, payload any) bool {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), g.timeout)
	defer cancel()

	entry, err := json.Marshal(payload)
	if err != nil {
		slog.Warn("admission commit skipped: payload not encodable",
			"survey_id", surveyID,
			"submission_id", submissionID,
			"error", err,
		)
		metrics.AdmissionCommits.WithLabelValues("failed").Inc()
		return false
	}

	voterKey := kv.Voter(surveyID, voter)
	votesKey := kv.Votes(surveyID)
	logKey := kv.Submissions(surveyID)

	_, err = g.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, voterKey, submissionID, g.ttl)
		p.Incr(ctx, votesKey)
		p.Expire(ctx, votesKey, g.ttl)
		p.LPush(ctx, logKey, entry)
		p.LTrim(ctx, logKey, 0, submissionLogLimit-1)
		p.Expire(ctx, logKey, g.ttl)
		return nil
	})
	if err != nil {
		slog.Warn("admission commit failed",
			"survey_id", surveyID,
			"submission_id", submissionID,
			"error", err,
		)
		metrics.KVErrors.WithLabelValues("admission_commit").Inc()
		metrics.AdmissionCommits.WithLabelValues("failed").Inc()
		return false
	}

	metrics.AdmissionCommits.WithLabelValues("ok").Inc()
	return true
}

func (g *Gate) failOpen(surveyID string, maxResponses int, err error) Decision {
	slog.Warn("admission check degraded, allowing submission",
		"survey_id", surveyID,
		"error", err,
	)
	metrics.KVErrors.WithLabelValues("admission_evaluate").Inc()
	return g.record(Decision{Outcome: Admitted, RemainingSlots: maxResponses, Degraded: true})
}

func (g *Gate) record(d Decision) Decision {
	metrics.AdmissionDecisions.WithLabelValues(d.Outcome.String(), metrics.Bool(d.Degraded)).Inc()
	return d
}
