// Package store provides the task store: the single source of truth
// for task records. Updates are atomic single-record read-modify-writes
// so a sweep auto-close and a concurrent manual transition can never
// interleave into a lost update.
package store

import (
	"context"
	"errors"

	"github.com/steveyegge/mergegate/internal/task"
)

// ErrNotFound means the task id has no record.
var ErrNotFound = errors.New("task not found")

// ErrStaleWrite means a compare-and-write lost a race with another
// writer. Callers re-read and retry, or surface a conflict.
var ErrStaleWrite = errors.New("task modified concurrently")

// Filter selects tasks for List. Zero value matches everything.
type Filter struct {
	Status task.Status
}

// Store is the task persistence boundary. Implementations must make
// Update atomic per record: the mutate callback observes the current
// record and its result is committed only if no other write happened
// in between.
type Store interface {
	Get(ctx context.Context, id string) (*task.Task, error)
	List(ctx context.Context, f Filter) ([]*task.Task, error)

	// Update applies mutate to the current record under a per-record
	// compare-and-write. Returning an error from mutate aborts the
	// update with no mutation. The returned task is the committed
	// post-update state.
	Update(ctx context.Context, id string, mutate func(*task.Task) error) (*task.Task, error)
}
