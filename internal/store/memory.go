package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/steveyegge/mergegate/internal/task"
)

// Memory is an in-process Store. Used by tests and by one-shot CLI
// runs that operate on a seeded snapshot.
type Memory struct {
	mu    sync.RWMutex
	tasks map[string]*task.Task
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{tasks: make(map[string]*task.Task)}
}

// Put inserts or replaces a record. Seeding helper; not part of the
// Store interface because the core never creates tasks.
func (m *Memory) Put(t *task.Task) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := t.Clone()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	if c.UpdatedAt.IsZero() {
		c.UpdatedAt = c.CreatedAt
	}
	m.tasks[c.ID] = c
}

// Get returns a clone of the record.
func (m *Memory) Get(_ context.Context, id string) (*task.Task, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tasks[id]
	if !ok {
		return nil, ErrNotFound
	}
	return t.Clone(), nil
}

// List returns clones of matching records, ordered by id for
// deterministic sweep passes.
func (m *Memory) List(_ context.Context, f Filter) ([]*task.Task, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*task.Task
	for _, t := range m.tasks {
		if f.Status != "" && t.Status != f.Status {
			continue
		}
		out = append(out, t.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Update applies mutate under the store lock. The callback gets a
// clone; the clone replaces the record only if mutate succeeds.
func (m *Memory) Update(_ context.Context, id string, mutate func(*task.Task) error) (*task.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.tasks[id]
	if !ok {
		return nil, ErrNotFound
	}
	next := cur.Clone()
	if err := mutate(next); err != nil {
		return nil, err
	}
	next.Version = cur.Version + 1
	next.UpdatedAt = time.Now().UTC()
	m.tasks[id] = next
	return next.Clone(), nil
}
