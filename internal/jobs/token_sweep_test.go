package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingSweeper struct {
	calls atomic.Int32
	fail  bool
}

func (s *countingSweeper) SweepAll(ctx context.Context) (int64, error) {
	s.calls.Add(1)
	if _, ok := ctx.Deadline(); !ok {
		return 0, errors.New("sweep without deadline")
	}
	if s.fail {
		return 0, errors.New("database down")
	}
	return 1, nil
}

func TestStartTokenSweepJob(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	sweeper := &countingSweeper{}

	StartTokenSweepJob(ctx, SweepConfig{Enabled: true, Interval: 10 * time.Millisecond}, sweeper, zerolog.Nop())
	require.Eventually(t, func() bool { return sweeper.calls.Load() >= 3 }, 2*time.Second, 5*time.Millisecond)

	cancel()
	time.Sleep(30 * time.Millisecond)
	stopped := sweeper.calls.Load()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, stopped, sweeper.calls.Load(), "no sweeps after cancellation")
}

func TestStartTokenSweepJob_KeepsRunningAfterErrors(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sweeper := &countingSweeper{fail: true}

	StartTokenSweepJob(ctx, SweepConfig{Enabled: true, Interval: 10 * time.Millisecond}, sweeper, zerolog.Nop())
	require.Eventually(t, func() bool { return sweeper.calls.Load() >= 2 }, 2*time.Second, 5*time.Millisecond)
}

func TestStartTokenSweepJob_Disabled(t *testing.T) {
	sweeper := &countingSweeper{}
	StartTokenSweepJob(context.Background(), SweepConfig{Interval: time.Millisecond}, sweeper, zerolog.Nop())

	time.Sleep(20 * time.Millisecond)
	assert.Zero(t, sweeper.calls.Load())
}
