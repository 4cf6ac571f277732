// Package sweep reconciles validating tasks against live PR state: it
// checks mergeability, attempts merges, backfills close-gate fields,
// auto-closes tasks, and keeps an auditable decision log.
package sweep

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Log entry actions.
const (
	ActionMergeAttempted = "merge_attempted"
	ActionMergeSucceeded = "merge_succeeded"
	ActionMergeSkipped   = "merge_skipped"
	ActionAutoClosed     = "auto_closed"
)

// Entry is one sweep decision. Entries are observability, not a source
// of truth: created once, never mutated, eventually rotated out.
type Entry struct {
	ID        string    `json:"id"`
	PassID    string    `json:"pass_id"`
	TaskID    string    `json:"task_id"`
	Action    string    `json:"action"`
	Detail    string    `json:"detail"`
	Timestamp time.Time `json:"timestamp"`
}

// DefaultLogCapacity bounds the in-process attempt log.
const DefaultLogCapacity = 1000

// AttemptLog is the append-only, bounded decision log. A single
// instance is constructed at process start and shared by reference
// between the sweeper and the query surfaces.
type AttemptLog struct {
	mu       sync.Mutex
	entries  []Entry
	capacity int
}

// NewAttemptLog creates a log. capacity <= 0 uses DefaultLogCapacity.
func NewAttemptLog(capacity int) *AttemptLog {
	if capacity <= 0 {
		capacity = DefaultLogCapacity
	}
	return &AttemptLog{capacity: capacity}
}

// Append records one decision and returns the stored entry.
func (l *AttemptLog) Append(passID, taskID, action, detail string) Entry {
	e := Entry{
		ID:        uuid.NewString(),
		PassID:    passID,
		TaskID:    taskID,
		Action:    action,
		Detail:    detail,
		Timestamp: time.Now().UTC(),
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, e)
	if len(l.entries) > l.capacity {
		// Rotate oldest out. Copy so the backing array doesn't pin
		// rotated entries alive.
		keep := make([]Entry, l.capacity)
		copy(keep, l.entries[len(l.entries)-l.capacity:])
		l.entries = keep
	}
	return e
}

// Recent returns the most recent limit entries, newest first.
// limit <= 0 returns everything retained.
func (l *AttemptLog) Recent(limit int) []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := len(l.entries)
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]Entry, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		out = append(out, l.entries[i])
	}
	return out
}

// Reset clears the log. Testing hook.
func (l *AttemptLog) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = nil
}
