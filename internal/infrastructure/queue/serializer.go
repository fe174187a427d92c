// Package queue provides in-process task serialization keyed by entity.
package queue

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// TaskHandle lets the enqueuer observe a task's completion
type TaskHandle struct {
	done chan struct{}
	err  error
}

// Done returns a channel closed when the task has settled
func (h *TaskHandle) Done() <-chan struct{} {
	return h.done
}

// Err returns the task's error. Only valid after Done is closed.
func (h *TaskHandle) Err() error {
	select {
	case <-h.done:
		return h.err
	default:
		return nil
	}
}

// KeyedSerializer runs tasks strictly one at a time per key, in enqueue
// order. Tasks for different keys run concurrently. A failing task is logged
// and its error exposed on the handle, but it never blocks the tasks queued
// behind it on the same key.
type KeyedSerializer struct {
	logger *zap.Logger

	mu     sync.Mutex
	tails  map[string]chan struct{}
	closed bool
	cancel context.CancelFunc
	ctx    context.Context
	wg     sync.WaitGroup
}

// NewKeyedSerializer creates a new serializer
func NewKeyedSerializer(logger *zap.Logger) *KeyedSerializer {
	ctx, cancel := context.WithCancel(context.Background())
	return &KeyedSerializer{
		logger: logger,
		tails:  make(map[string]chan struct{}),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Enqueue appends a task to the chain for key. The task runs once every
// previously enqueued task for the same key has settled. After Close the
// task is rejected immediately via the handle.
func (s *KeyedSerializer) Enqueue(key string, task func(ctx context.Context) error) *TaskHandle {
	handle := &TaskHandle{done: make(chan struct{})}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		handle.err = fmt.Errorf("serializer is closed")
		close(handle.done)
		return handle
	}
	prev := s.tails[key]
	s.tails[key] = handle.done
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		defer s.release(key, handle.done)
		defer close(handle.done)

		if prev != nil {
			<-prev
		}

		handle.err = s.run(key, task)
	}()

	return handle
}

// run executes the task, converting panics into errors so one bad task
// cannot take down the chain.
func (s *KeyedSerializer) run(key string, task func(ctx context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task panicked: %v", r)
			s.logger.Error("Serialized task panicked",
				zap.String("key", key),
				zap.Any("panic", r),
			)
		}
	}()

	if err := task(s.ctx); err != nil {
		s.logger.Warn("Serialized task failed",
			zap.String("key", key),
			zap.Error(err),
		)
		return err
	}
	return nil
}

// release clears the tail entry once the chain for key has drained
func (s *KeyedSerializer) release(key string, done chan struct{}) {
	s.mu.Lock()
	if s.tails[key] == done {
		delete(s.tails, key)
	}
	s.mu.Unlock()
}

// Close stops accepting tasks and waits for in-flight chains to drain,
// bounded by ctx.
func (s *KeyedSerializer) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	drained := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(drained)
	}()

	select {
	case <-drained:
		s.cancel()
		s.logger.Info("Keyed serializer drained")
		return nil
	case <-ctx.Done():
		s.cancel()
		return ctx.Err()
	}
}
