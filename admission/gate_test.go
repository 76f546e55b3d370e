// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package admission

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielhkuo/flash-survey/kv"
	"github.com/danielhkuo/flash-survey/testutil"
)

func TestEvaluate_FreshSurveyAdmits(t *testing.T) {
	_, client := testutil.SetupTestRedis(t)
	gate := NewGate(client)

	d := gate.Evaluate(context.Background(), "s1", "voter-a", 100)

	assert.Equal(t, Admitted, d.Outcome)
	assert.True(t, d.Allowed())
	assert.Equal(t, 100, d.RemainingSlots)
	assert.False(t, d.Degraded)
}

func TestEvaluate_QuotaExceeded(t *testing.T) {
	tests := []struct {
		name    string
		counter int
		max     int
		want    Outcome
	}{
		{"below max", 99, 100, Admitted},
		{"at max", 100, 100, RejectedQuotaExceeded},
		{"over max", 101, 100, RejectedQuotaExceeded},
		{"max of one reached", 1, 1, RejectedQuotaExceeded},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mr, client := testutil.SetupTestRedis(t)
			require.NoError(t, mr.Set(kv.Votes("s1"), fmt.Sprint(tt.counter)))

			d := NewGate(client).Evaluate(context.Background(), "s1", "new-voter", tt.max)
			assert.Equal(t, tt.want, d.Outcome)
			if tt.want == Admitted {
				assert.Equal(t, tt.max-tt.counter, d.RemainingSlots)
			}
		})
	}
}

func TestCommit_ThenDuplicate(t *testing.T) {
	mr, client := testutil.SetupTestRedis(t)
	gate := NewGate(client)
	ctx := context.Background()

	require.True(t, gate.Evaluate(ctx, "s1", "voter-a", 100).Allowed())
	require.True(t, gate.Commit(ctx, "s1", "voter-a", "sub-1", map[string]string{"submission_id": "sub-1"}))

	d := gate.Evaluate(ctx, "s1", "voter-a", 100)
	assert.Equal(t, RejectedDuplicate, d.Outcome)
	assert.False(t, d.Allowed())
	assert.InDelta(t, DefaultTTL.Seconds(), d.RetryAfter.Seconds(), 5)

	// Other voters are unaffected and see one fewer slot
	other := gate.Evaluate(ctx, "s1", "voter-b", 100)
	assert.Equal(t, Admitted, other.Outcome)
	assert.Equal(t, 99, other.RemainingSlots)

	// Other surveys are unaffected
	assert.Equal(t, Admitted, gate.Evaluate(ctx, "s2", "voter-a", 100).Outcome)

	// The record lapses after its TTL
	mr.FastForward(DefaultTTL + time.Second)
	assert.Equal(t, Admitted, gate.Evaluate(ctx, "s1", "voter-a", 100).Outcome)
}

func TestCommit_WritesRecords(t *testing.T) {
	mr, client := testutil.SetupTestRedis(t)
	gate := NewGate(client, WithTTL(time.Hour))

	payload := map[string]any{"submission_id": "sub-1", "responses": 2}
	require.True(t, gate.Commit(context.Background(), "s1", "voter-a", "sub-1", payload))
	require.True(t, gate.Commit(context.Background(), "s1", "voter-b", "sub-2", payload))

	got, err := mr.Get(kv.Voter("s1", "voter-a"))
	require.NoError(t, err)
	assert.Equal(t, "sub-1", got)
	assert.Equal(t, time.Hour, mr.TTL(kv.Voter("s1", "voter-a")))

	count, err := mr.Get(kv.Votes("s1"))
	require.NoError(t, err)
	assert.Equal(t, "2", count)
	assert.Equal(t, time.Hour, mr.TTL(kv.Votes("s1")))

	entries, err := mr.List(kv.Submissions("s1"))
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, time.Hour, mr.TTL(kv.Submissions("s1")))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(entries[0]), &decoded))
	assert.Equal(t, "sub-1", decoded["submission_id"])
}

func TestCommit_SurvivesCanceledContext(t *testing.T) {
	mr, client := testutil.SetupTestRedis(t)
	gate := NewGate(client)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.True(t, gate.Commit(ctx, "s1", "voter-a", "sub-1", nil))
	assert.True(t, mr.Exists(kv.Voter("s1", "voter-a")))
}

func TestCommit_UnencodablePayload(t *testing.T) {
	mr, client := testutil.SetupTestRedis(t)
	gate := NewGate(client)

	assert.False(t, gate.Commit(context.Background(), "s1", "voter-a", "sub-1", make(chan int)))
	assert.False(t, mr.Exists(kv.Voter("s1", "voter-a")))
}

func TestQuotaScenario(t *testing.T) {
	_, client := testutil.SetupTestRedis(t)
	gate := NewGate(client)
	ctx := context.Background()

	for i := 0; i < 100; i++ {
		voter := fmt.Sprintf("voter-%d", i)
		d := gate.Evaluate(ctx, "s1", voter, 100)
		require.Equal(t, Admitted, d.Outcome, "voter %d", i)
		require.Equal(t, 100-i, d.RemainingSlots)
		require.True(t, gate.Commit(ctx, "s1", voter, fmt.Sprintf("sub-%d", i), nil))
	}

	d := gate.Evaluate(ctx, "s1", "voter-100", 100)
	assert.Equal(t, RejectedQuotaExceeded, d.Outcome)
}

func TestEvaluate_FailsOpen(t *testing.T) {
	t.Run("server down", func(t *testing.T) {
		mr, client := testutil.SetupTestRedis(t)
		mr.Close()

		gate := NewGate(client, WithTimeout(100*time.Millisecond))
		d := gate.Evaluate(context.Background(), "s1", "voter-a", 100)

		assert.Equal(t, Admitted, d.Outcome)
		assert.True(t, d.Degraded)
		assert.Equal(t, 100, d.RemainingSlots)

		assert.False(t, gate.Commit(context.Background(), "s1", "voter-a", "sub-1", nil))
	})

	t.Run("server error", func(t *testing.T) {
		mr, client := testutil.SetupTestRedis(t)
		mr.SetError("LOADING Redis is loading the dataset in memory")

		d := NewGate(client).Evaluate(context.Background(), "s1", "voter-a", 100)
		assert.Equal(t, Admitted, d.Outcome)
		assert.True(t, d.Degraded)
	})

	t.Run("server not answering", func(t *testing.T) {
		client := testutil.SetupHungRedis(t)
		gate := NewGate(client, WithTimeout(100*time.Millisecond))

		start := time.Now()
		d := gate.Evaluate(context.Background(), "s1", "voter-a", 100)
		elapsed := time.Since(start)

		assert.Equal(t, Admitted, d.Outcome)
		assert.True(t, d.Degraded)
		assert.Less(t, elapsed, 500*time.Millisecond)

		start = time.Now()
		assert.False(t, gate.Commit(context.Background(), "s1", "voter-a", "sub-1", nil))
		assert.Less(t, time.Since(start), 500*time.Millisecond)
	})

	t.Run("corrupt counter", func(t *testing.T) {
		mr, client := testutil.SetupTestRedis(t)
		require.NoError(t, mr.Set(kv.Votes("s1"), "not-a-number"))

		d := NewGate(client).Evaluate(context.Background(), "s1", "voter-a", 100)
		assert.Equal(t, Admitted, d.Outcome)
		assert.True(t, d.Degraded)
	})
}

func TestOutcomeString(t *testing.T) {
	assert.Equal(t, "admitted", Admitted.String())
	assert.Equal(t, "rejected_duplicate", RejectedDuplicate.String())
	assert.Equal(t, "rejected_quota_exceeded", RejectedQuotaExceeded.String())
	assert.Equal(t, "unknown", Outcome(42).String())
}

func TestOptionsIgnoreNonPositive(t *testing.T) {
	g := NewGate(nil, WithTTL(0), WithTimeout(-time.Second))
	assert.Equal(t, DefaultTTL, g.ttl)
	assert.Equal(t, DefaultTimeout, g.timeout)
}
