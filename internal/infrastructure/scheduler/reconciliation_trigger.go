package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ReconciliationRunner runs one reconciliation pass over the product catalog
// and reports how many drift adjustments it recorded.
type ReconciliationRunner interface {
	RunReconciliationPass(ctx context.Context) int
}

// ReconciliationTriggerConfig holds configuration for the reconciliation trigger
type ReconciliationTriggerConfig struct {
	// Interval is how often a reconciliation pass runs
	Interval time.Duration

	// RunOnStart runs one pass immediately when the trigger starts
	RunOnStart bool
}

// DefaultReconciliationTriggerConfig returns default trigger configuration
func DefaultReconciliationTriggerConfig() ReconciliationTriggerConfig {
	return ReconciliationTriggerConfig{
		Interval:   60 * time.Second,
		RunOnStart: false,
	}
}

// ReconciliationTrigger periodically runs the drift monitor
type ReconciliationTrigger struct {
	config ReconciliationTriggerConfig
	runner ReconciliationRunner
	logger *zap.Logger

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
}

// NewReconciliationTrigger creates a new reconciliation trigger
func NewReconciliationTrigger(
	config ReconciliationTriggerConfig,
	runner ReconciliationRunner,
	logger *zap.Logger,
) *ReconciliationTrigger {
	return &ReconciliationTrigger{
		config: config,
		runner: runner,
		logger: logger,
	}
}

// Start starts the reconciliation trigger
func (r *ReconciliationTrigger) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.isRunning {
		r.mu.Unlock()
		return nil
	}
	r.isRunning = true
	r.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel

	r.wg.Add(1)
	go r.runLoop(ctx)

	r.logger.Info("Reconciliation trigger started",
		zap.Duration("interval", r.config.Interval),
		zap.Bool("run_on_start", r.config.RunOnStart),
	)

	return nil
}

// Stop stops the reconciliation trigger and waits for an in-flight pass
func (r *ReconciliationTrigger) Stop(ctx context.Context) error {
	r.mu.Lock()
	if !r.isRunning {
		r.mu.Unlock()
		return nil
	}
	r.isRunning = false
	r.mu.Unlock()

	if r.cancel != nil {
		r.cancel()
	}

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.logger.Info("Reconciliation trigger stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// runLoop runs reconciliation passes until the context is cancelled
func (r *ReconciliationTrigger) runLoop(ctx context.Context) {
	defer r.wg.Done()

	if r.config.RunOnStart {
		r.runOnce(ctx)
	}

	ticker := time.NewTicker(r.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.runOnce(ctx)
		}
	}
}

func (r *ReconciliationTrigger) runOnce(ctx context.Context) {
	start := time.Now()
	adjustments := r.runner.RunReconciliationPass(ctx)

	if adjustments > 0 {
		r.logger.Info("Reconciliation pass recorded drift adjustments",
			zap.Int("adjustments", adjustments),
			zap.Duration("elapsed", time.Since(start)),
		)
		return
	}
	r.logger.Debug("Reconciliation pass clean",
		zap.Duration("elapsed", time.Since(start)),
	)
}
