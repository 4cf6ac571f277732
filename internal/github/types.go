package github

import "context"

// PR states as reported by gh pr view.
const (
	StateOpen   = "OPEN"
	StateMerged = "MERGED"
	StateClosed = "CLOSED"
)

// Review decisions as reported by gh pr view.
const (
	ReviewApproved         = "APPROVED"
	ReviewChangesRequested = "CHANGES_REQUESTED"
	ReviewRequired         = "REVIEW_REQUIRED"
)

// CheckRun is one entry from the PR's status check rollup.
type CheckRun struct {
	Name       string `json:"name"`
	Status     string `json:"status"`     // e.g. COMPLETED, IN_PROGRESS, QUEUED
	Conclusion string `json:"conclusion"` // e.g. SUCCESS, FAILURE, SKIPPED; empty while running
}

// Failed reports whether the check concluded unsuccessfully.
func (c CheckRun) Failed() bool {
	switch c.Conclusion {
	case "FAILURE", "TIMED_OUT", "CANCELLED", "ACTION_REQUIRED", "STARTUP_FAILURE":
		return true
	}
	return false
}

// Terminal reports whether the check has finished running.
func (c CheckRun) Terminal() bool {
	return c.Status == "COMPLETED" || c.Conclusion != ""
}

// PRView is the live PR state fetched in a single gh call. One fetch
// serves both the integrity validator (head SHA + files) and the
// mergeability checker (state + review decision + checks).
type PRView struct {
	State          string     `json:"state"`
	ReviewDecision string     `json:"reviewDecision"`
	HeadRefOID     string     `json:"headRefOid"`
	Checks         []CheckRun `json:"checks"`
	ChangedFiles   []string   `json:"changedFiles"`
	MergeCommit    string     `json:"mergeCommit"`
}

// Client is the remote platform boundary. Implementations must convert
// tool failures into errors; they must never panic or exit.
type Client interface {
	// View fetches the live PR state.
	View(ctx context.Context, ref PRRef) (*PRView, error)

	// Merge merges the PR. An already-merged PR returns ErrAlreadyMerged
	// so retries stay idempotent.
	Merge(ctx context.Context, ref PRRef) error

	// MergeCommit returns the merge commit SHA for a merged PR.
	MergeCommit(ctx context.Context, ref PRRef) (string, error)

	// Available reports whether the underlying tool can be invoked at
	// all. A non-nil error means verification should soft-pass rather
	// than block on infrastructure that is not there.
	Available() error
}
