package usecase

import (
	"sync"

	"NewsRelay/internal/domain"
)

// Coordinator guarantees at most one in-flight run per kind.
// A second caller is rejected, never queued.
type Coordinator struct {
	mu      sync.Mutex
	running map[domain.Kind]bool
}

// NewCoordinator returns a coordinator with every kind idle.
func NewCoordinator() *Coordinator {
	return &Coordinator{running: map[domain.Kind]bool{}}
}

// TryStart claims the kind. It returns false when a run is already in progress.
func (c *Coordinator) TryStart(kind domain.Kind) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running[kind] {
		return false
	}
	c.running[kind] = true
	return true
}

// Finish releases the kind.
func (c *Coordinator) Finish(kind domain.Kind) {
	c.mu.Lock()
	delete(c.running, kind)
	c.mu.Unlock()
}

// InProgress reports whether a run of the kind is in flight.
func (c *Coordinator) InProgress(kind domain.Kind) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running[kind]
}
