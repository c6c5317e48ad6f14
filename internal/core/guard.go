package core

// guard.go keeps mint and export operations from overlapping.
//
// The guard is a semaphore with a single slot. New operations never wait:
// TryAcquire fails with ErrOperationInProgress while another operation
// holds the slot. WaitForDrain blocks shutdown until the running operation
// finishes.

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/JonMunkholm/carpenters/internal/metrics"
)

// ErrOperationInProgress is returned when a mint or export is already
// running.
var ErrOperationInProgress = errors.New("another export or mint operation is in progress")

// OperationGuard allows at most one operation at a time.
type OperationGuard struct {
	semaphore chan struct{}

	mu        sync.RWMutex
	operation string
	startedAt time.Time
}

// NewOperationGuard creates an idle guard.
func NewOperationGuard() *OperationGuard {
	return &OperationGuard{
		semaphore: make(chan struct{}, 1),
	}
}

// TryAcquire claims the slot for operation without blocking.
// The caller MUST call Release() when the operation completes (use defer).
func (g *OperationGuard) TryAcquire(operation string) error {
	select {
	case g.semaphore <- struct{}{}:
		g.mu.Lock()
		g.operation = operation
		g.startedAt = time.Now()
		g.mu.Unlock()
		metrics.OperationsActive.Set(1)
		return nil
	default:
		metrics.OperationsRejected.WithLabelValues(operation).Inc()
		return ErrOperationInProgress
	}
}

// Release frees the slot.
// Must be called exactly once for each successful TryAcquire.
func (g *OperationGuard) Release() {
	g.mu.Lock()
	g.operation = ""
	g.startedAt = time.Time{}
	g.mu.Unlock()

	metrics.OperationsActive.Set(0)
	<-g.semaphore
}

// Busy reports whether an operation holds the slot.
func (g *OperationGuard) Busy() bool {
	return len(g.semaphore) > 0
}

// WaitForDrain blocks until the running operation completes or ctx is
// cancelled.
func (g *OperationGuard) WaitForDrain(ctx context.Context) error {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		if !g.Busy() {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// GuardStatus is a snapshot of the guard state.
type GuardStatus struct {
	Busy      bool      `json:"busy"`
	Operation string    `json:"operation,omitempty"`
	StartedAt time.Time `json:"started_at,omitempty"`
}

// Status returns the current state for monitoring.
func (g *OperationGuard) Status() GuardStatus {
	g.mu.RLock()
	defer g.mu.RUnlock()

	return GuardStatus{
		Busy:      g.operation != "",
		Operation: g.operation,
		StartedAt: g.startedAt,
	}
}
