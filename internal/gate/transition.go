package gate

import (
	"context"
	"errors"

	"github.com/steveyegge/mergegate/internal/store"
	"github.com/steveyegge/mergegate/internal/task"
)

// rejectionErr smuggles a gate rejection out of the store's mutate
// callback so the update aborts with no mutation.
type rejectionErr struct {
	out Outcome
}

func (e *rejectionErr) Error() string {
	return e.out.Gate + ": " + e.out.Reason
}

// Transition evaluates the gates and, on approval, persists the status
// change and metadata patch in one atomic store update. The gate check
// runs inside the compare-and-write, so the decision is always made
// against the record actually being replaced. A sweep auto-close that
// lands first makes this request re-evaluate instead of getting lost.
func (e *Enforcer) Transition(ctx context.Context, st store.Store, id string, req Request) (*task.Task, Outcome) {
	var out Outcome
	updated, err := st.Update(ctx, id, func(t *task.Task) error {
		out = e.Check(ctx, t, req)
		if out.Decision == Rejected {
			return &rejectionErr{out: out}
		}
		t.Status = req.Status
		t.Metadata = t.Metadata.Merge(req.Metadata)
		return nil
	})
	if err != nil {
		var rej *rejectionErr
		if errors.As(err, &rej) {
			return nil, rej.out
		}
		if errors.Is(err, store.ErrNotFound) {
			return nil, reject(GateInvalidTransition, "task %s not found", id)
		}
		return nil, reject(GateInvalidTransition, "persisting transition: %v", err)
	}
	return updated, out
}
