package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type countingRunner struct {
	passes atomic.Int64
}

func (c *countingRunner) RunReconciliationPass(ctx context.Context) int {
	c.passes.Add(1)
	return 0
}

func waitForPasses(t *testing.T, runner *countingRunner, want int64) {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		if runner.passes.Load() >= want {
			return
		}
		select {
		case <-deadline:
			t.Fatalf("expected at least %d passes, got %d", want, runner.passes.Load())
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestReconciliationTrigger_RunsPeriodically(t *testing.T) {
	runner := &countingRunner{}
	trigger := NewReconciliationTrigger(ReconciliationTriggerConfig{
		Interval: 10 * time.Millisecond,
	}, runner, zap.NewNop())

	require.NoError(t, trigger.Start(context.Background()))
	waitForPasses(t, runner, 3)
	require.NoError(t, trigger.Stop(context.Background()))
}

func TestReconciliationTrigger_RunOnStart(t *testing.T) {
	runner := &countingRunner{}
	trigger := NewReconciliationTrigger(ReconciliationTriggerConfig{
		Interval:   time.Hour,
		RunOnStart: true,
	}, runner, zap.NewNop())

	require.NoError(t, trigger.Start(context.Background()))
	waitForPasses(t, runner, 1)
	require.NoError(t, trigger.Stop(context.Background()))
	assert.Equal(t, int64(1), runner.passes.Load())
}

func TestReconciliationTrigger_StartIsIdempotent(t *testing.T) {
	runner := &countingRunner{}
	trigger := NewReconciliationTrigger(DefaultReconciliationTriggerConfig(), runner, zap.NewNop())

	require.NoError(t, trigger.Start(context.Background()))
	require.NoError(t, trigger.Start(context.Background()))
	require.NoError(t, trigger.Stop(context.Background()))
}

func TestReconciliationTrigger_StopWithoutStart(t *testing.T) {
	trigger := NewReconciliationTrigger(DefaultReconciliationTriggerConfig(), &countingRunner{}, zap.NewNop())
	assert.NoError(t, trigger.Stop(context.Background()))
}

func TestReconciliationTrigger_StopWaitsForLoop(t *testing.T) {
	runner := &countingRunner{}
	trigger := NewReconciliationTrigger(ReconciliationTriggerConfig{
		Interval: 5 * time.Millisecond,
	}, runner, zap.NewNop())

	require.NoError(t, trigger.Start(context.Background()))
	waitForPasses(t, runner, 1)
	require.NoError(t, trigger.Stop(context.Background()))

	after := runner.passes.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, after, runner.passes.Load(), "no passes may run after Stop returns")
}
