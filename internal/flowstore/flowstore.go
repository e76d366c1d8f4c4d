// Package flowstore persists the progress of capture flows, keyed by the
// provider token. Only typed fields are stored.
package flowstore

import (
	"context"
	"sync"
	"time"

	"bnpl-gateway/internal/model"
)

// Store reads and writes flow records.
type Store interface {
	// Get returns the record for token or a not-found error.
	Get(ctx context.Context, token string) (*model.FlowRecord, error)
	// Put inserts or replaces the record for rec.Token.
	Put(ctx context.Context, rec *model.FlowRecord) error
}

// Memory is a process-local Store.
type Memory struct {
	mu      sync.RWMutex
	records map[string]model.FlowRecord
	now     func() time.Time
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{records: make(map[string]model.FlowRecord), now: time.Now}
}

func (m *Memory) Get(_ context.Context, token string) (*model.FlowRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.records[token]
	if !ok {
		return nil, model.NewNotFoundError("flow")
	}
	return &rec, nil
}

func (m *Memory) Put(_ context.Context, rec *model.FlowRecord) error {
	if rec.Token == "" {
		return model.NewValidationError("token", "required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	r := *rec
	if r.UpdatedAt.IsZero() {
		r.UpdatedAt = m.now()
	}
	m.records[r.Token] = r
	return nil
}

var _ Store = (*Memory)(nil)
