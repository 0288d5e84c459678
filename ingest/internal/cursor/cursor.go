// Package cursor persists polling watermarks. A cursor only moves
// forward: advancing to an earlier position is a no-op.
package cursor

import (
	"context"
	"sync"
	"time"
)

// Store reads and advances named cursors.
type Store interface {
	// Get returns the cursor position, or the zero time if none is stored.
	Get(ctx context.Context, name string) (time.Time, error)
	// Advance moves the cursor to position if it is later than the stored one.
	Advance(ctx context.Context, name string, position time.Time) error
}

// Memory is an in-process Store for development and tests.
type Memory struct {
	mu        sync.Mutex
	positions map[string]time.Time
}

func NewMemory() *Memory {
	return &Memory{positions: make(map[string]time.Time)}
}

func (m *Memory) Get(_ context.Context, name string) (time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.positions[name], nil
}

func (m *Memory) Advance(_ context.Context, name string, position time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if position.After(m.positions[name]) {
		m.positions[name] = position.UTC()
	}
	return nil
}
