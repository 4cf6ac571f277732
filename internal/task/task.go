// Package task defines the task record shared by the gate enforcer,
// the reconciliation sweep, and the task store.
package task

import (
	"fmt"
	"time"
)

// Status is a task lifecycle state.
type Status string

const (
	StatusTodo       Status = "todo"
	StatusDoing      Status = "doing"
	StatusBlocked    Status = "blocked"
	StatusValidating Status = "validating"
	StatusDone       Status = "done"
)

// ParseStatus validates a status string from an external caller.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusTodo, StatusDoing, StatusBlocked, StatusValidating, StatusDone:
		return Status(s), nil
	}
	return "", fmt.Errorf("unknown status %q", s)
}

// Terminal reports whether the status admits no further transitions.
func (s Status) Terminal() bool {
	return s == StatusDone
}

// Task is a single unit of work. The store is the source of truth for
// these records; everything else reads a snapshot and patches through
// the store's atomic update.
type Task struct {
	ID       string   `json:"id"`
	Status   Status   `json:"status"`
	Assignee string   `json:"assignee,omitempty"`
	Reviewer string   `json:"reviewer,omitempty"`
	Metadata Metadata `json:"metadata"`

	// Version is the store's optimistic-concurrency counter. Incremented
	// on every successful update; a compare-and-write that loses a race
	// fails with ErrStaleWrite rather than clobbering the other writer.
	Version int64 `json:"version"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Clone returns a deep copy. Sweep snapshots hold clones so an in-flight
// pass never observes a concurrent store mutation mid-decision.
func (t *Task) Clone() *Task {
	if t == nil {
		return nil
	}
	c := *t
	c.Metadata = t.Metadata.Clone()
	return &c
}
