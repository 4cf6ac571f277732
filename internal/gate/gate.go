// Package gate enforces the per-transition admission gates of the task
// status state machine. Every requested status change passes through
// here before the store is allowed to persist it; a rejection carries a
// stable gate identifier callers can branch on programmatically.
package gate

import (
	"context"
	"fmt"
	"strings"

	"github.com/steveyegge/mergegate/internal/integrity"
	"github.com/steveyegge/mergegate/internal/task"
)

// Gate identifiers. These are wire-visible and stable; renaming one is
// a breaking API change.
const (
	GateInvalidTransition = "invalid_transition"
	GateETARequired       = "eta_required"
	GateHandoffRequired   = "handoff_required"
	GateDuplicateProof    = "duplicate_proof"
	GateIntegrity         = "integrity"
	GateCloseGates        = "close_gates"
)

// Decision is the three-way outcome of a gate check. Callers must
// branch explicitly: a skipped verification is not a verified pass.
type Decision int

const (
	// Approved: all gates held, verification (if any) ran and passed.
	Approved Decision = iota
	// ApprovedSkipped: gates held, but integrity verification could
	// not be performed and soft-passed.
	ApprovedSkipped
	// Rejected: a gate failed. Gate and Reason identify which and why.
	Rejected
)

// Request is a requested status transition plus its metadata patch.
type Request struct {
	Status   task.Status
	Metadata task.Metadata
}

// Outcome is the result of evaluating one transition request.
type Outcome struct {
	Decision  Decision
	Gate      string // set when Rejected
	Reason    string
	Integrity *integrity.Result // set when a PR packet was checked
}

// Rejected constructs a rejection outcome.
func reject(gate, format string, args ...any) Outcome {
	return Outcome{Decision: Rejected, Gate: gate, Reason: fmt.Sprintf(format, args...)}
}

// Enforcer validates requested transitions. It holds no state of its
// own; persistence belongs to the store.
type Enforcer struct {
	validator *integrity.Validator
}

// NewEnforcer creates an enforcer. validator may be nil, in which case
// validating→done requests skip packet verification entirely (the
// close gates still apply).
func NewEnforcer(validator *integrity.Validator) *Enforcer {
	return &Enforcer{validator: validator}
}

// allowed is the transition table. done is terminal; blocked is a side
// state reachable from active work without additional gates.
var allowed = map[task.Status][]task.Status{
	task.StatusTodo:       {task.StatusDoing},
	task.StatusDoing:      {task.StatusValidating, task.StatusBlocked},
	task.StatusBlocked:    {task.StatusDoing, task.StatusValidating},
	task.StatusValidating: {task.StatusDone, task.StatusBlocked},
	task.StatusDone:       {},
}

func transitionAllowed(from, to task.Status) bool {
	for _, s := range allowed[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Check evaluates a transition request against the current task state.
// It never mutates anything; the caller persists on approval.
func (e *Enforcer) Check(ctx context.Context, cur *task.Task, req Request) Outcome {
	if !transitionAllowed(cur.Status, req.Status) {
		return reject(GateInvalidTransition, "cannot transition %s → %s", cur.Status, req.Status)
	}

	// Gates see the merged view: fields already on the task plus the
	// incoming patch, with the patch winning.
	merged := cur.Metadata.Merge(req.Metadata)

	// Duplicate-closure sub-gate fires on any transition whose metadata
	// marks the work as a duplicate closure, regardless of target state.
	if indicatesDuplicateClosure(merged) {
		if out, ok := checkDuplicateGate(merged); !ok {
			return out
		}
	}

	switch {
	case cur.Status == task.StatusTodo && req.Status == task.StatusDoing:
		if strings.TrimSpace(merged.ETA) == "" {
			return reject(GateETARequired, "transition to doing requires a non-empty eta")
		}

	case req.Status == task.StatusValidating && cur.Status != task.StatusBlocked:
		if out, ok := checkHandoffGate(merged); !ok {
			return out
		}

	case req.Status == task.StatusDone:
		return e.checkCloseRequest(ctx, req, merged)
	}

	return Outcome{Decision: Approved}
}

// checkHandoffGate requires the artifact path and a complete review
// handoff before work enters validation.
func checkHandoffGate(m task.Metadata) (Outcome, bool) {
	if strings.TrimSpace(m.ArtifactPath) == "" {
		return reject(GateHandoffRequired, "transition to validating requires artifact_path"), false
	}
	rh := m.ReviewHandoff
	if rh == nil {
		return reject(GateHandoffRequired, "transition to validating requires a review_handoff"), false
	}
	var missing []string
	if strings.TrimSpace(rh.ArtifactPath) == "" {
		missing = append(missing, "artifact_path")
	}
	if strings.TrimSpace(rh.TestProof) == "" {
		missing = append(missing, "test_proof")
	}
	if strings.TrimSpace(rh.KnownCaveats) == "" {
		missing = append(missing, "known_caveats")
	}
	if len(missing) > 0 {
		return reject(GateHandoffRequired, "review_handoff missing %s", strings.Join(missing, ", ")), false
	}
	return Outcome{}, true
}

// checkCloseRequest handles validating → done: optional packet
// verification first, then the two close gates.
func (e *Enforcer) checkCloseRequest(ctx context.Context, req Request, merged task.Metadata) Outcome {
	skipped := false
	var integroRes *integrity.Result

	if e.validator != nil && req.Metadata.ReviewHandoff != nil && req.Metadata.ReviewHandoff.PRURL != "" {
		rh := req.Metadata.ReviewHandoff
		res, err := e.validator.Validate(ctx, integrity.Packet{
			PRURL:        rh.PRURL,
			Commit:       rh.CommitSHA,
			ChangedFiles: rh.ChangedFiles,
		})
		if err != nil {
			// Malformed PR URL: hard failure, not skippable.
			return reject(GateIntegrity, "review packet rejected: %v", err)
		}
		integroRes = res
		if !res.Valid {
			var details []string
			for _, m := range res.Errors {
				details = append(details, m.String())
			}
			out := reject(GateIntegrity, "review packet does not match live PR: %s", strings.Join(details, "; "))
			out.Integrity = res
			return out
		}
		skipped = res.Skipped
	}

	if failed := FailedCloseGates(merged); len(failed) > 0 {
		out := reject(GateCloseGates, "close gates not satisfied: %s", strings.Join(failed, ", "))
		out.Integrity = integroRes
		return out
	}

	out := Outcome{Decision: Approved, Integrity: integroRes}
	if skipped {
		out.Decision = ApprovedSkipped
		out.Reason = integroRes.SkipReason
	}
	return out
}

// FailedCloseGates returns the close gates that do not hold. Both
// pr_merged and reviewer_approved must be explicitly true; absent
// counts as failed.
func FailedCloseGates(m task.Metadata) []string {
	var failed []string
	if m.PRMerged == nil || !*m.PRMerged {
		failed = append(failed, "pr_merged")
	}
	if m.ReviewerApproved == nil || !*m.ReviewerApproved {
		failed = append(failed, "reviewer_approved")
	}
	return failed
}
