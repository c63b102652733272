package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"collab-service/internal/clock"
)

func TestRunnerTicksUntilStopped(t *testing.T) {
	clk := clock.Fake(time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC))
	ran := make(chan struct{}, 1)
	var runs atomic.Int32
	r := NewRunner(zap.NewNop(), clk, Job{
		Name:     "count",
		Interval: time.Minute,
		Run: func(ctx context.Context) error {
			runs.Add(1)
			ran <- struct{}{}
			return nil
		},
	})

	r.Start()
	clk.Advance(30 * time.Second)
	assert.Zero(t, runs.Load())

	for i := 1; i <= 2; i++ {
		clk.Advance(30 * time.Second)
		clk.Advance(30 * time.Second)
		select {
		case <-ran:
		case <-time.After(time.Second):
			t.Fatalf("tick %d did not run the job", i)
		}
	}
	r.Stop()

	clk.Advance(time.Hour)
	assert.Equal(t, int32(2), runs.Load())
}

func TestStopIsIdempotent(t *testing.T) {
	r := NewRunner(zap.NewNop(), clock.Real())
	r.Start()
	r.Stop()
	r.Stop()
}

func TestRunOnceLogsFailure(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	r := NewRunner(zap.New(core), clock.Real())

	r.RunOnce(Job{Name: "broken", Run: func(ctx context.Context) error {
		_, hasDeadline := ctx.Deadline()
		assert.True(t, hasDeadline)
		return errors.New("boom")
	}})

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "broken", logs.All()[0].ContextMap()["job"])
}
