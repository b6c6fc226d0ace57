package purchase

import (
	"context"
	"sync"
)

// NewMemoryRepository builds an in-memory intent store for testing.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

// MemoryRepository collects intents in memory and exposes them to tests.
type MemoryRepository struct {
	mu      sync.Mutex
	intents []Intent
}

// Create appends the intent.
func (r *MemoryRepository) Create(_ context.Context, intent Intent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.intents = append(r.intents, intent)
	return nil
}

// All returns a copy of every recorded intent.
func (r *MemoryRepository) All() []Intent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Intent, len(r.intents))
	copy(out, r.intents)
	return out
}
