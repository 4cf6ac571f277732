package sweep

import (
	"context"
	"errors"
	"fmt"

	"github.com/steveyegge/mergegate/internal/gate"
	"github.com/steveyegge/mergegate/internal/github"
	"github.com/steveyegge/mergegate/internal/store"
	"github.com/steveyegge/mergegate/internal/task"
)

// MergeResult is the outcome of one merge attempt.
type MergeResult struct {
	Success     bool   `json:"success"`
	MergeCommit string `json:"merge_commit,omitempty"`
	Error       string `json:"error,omitempty"`
}

// CloseResult is the outcome of one auto-close attempt.
type CloseResult struct {
	Closed      bool     `json:"closed"`
	FailedGates []string `json:"failed_gates,omitempty"`
	Reason      string   `json:"reason,omitempty"`
}

// AttemptMerge merges the PR behind a URL. An invalid URL fails
// immediately with no remote call; an already-merged PR is success
// (idempotent retry safety). On success the merge commit is looked up
// best-effort.
func (s *Sweeper) AttemptMerge(ctx context.Context, prURL string) MergeResult {
	ref, err := github.ParsePRURL(prURL)
	if err != nil {
		return MergeResult{Success: false, Error: "invalid PR URL format"}
	}

	if err := s.gh.Merge(ctx, *ref); err != nil && !errors.Is(err, github.ErrAlreadyMerged) {
		return MergeResult{Success: false, Error: err.Error()}
	}

	commit, err := s.gh.MergeCommit(ctx, *ref)
	if err != nil {
		// Merge landed; a failed commit lookup is not a failed merge.
		return MergeResult{Success: true}
	}
	return MergeResult{Success: true, MergeCommit: commit}
}

// AutoPopulateCloseGate backfills the close-gate fields for a task
// whose PR is merged: pr_merged, commit_sha, and, when the remote
// review decision is APPROVED, reviewer_approved. That last one is
// reconciliation from remote truth, not a guess, and it never
// overwrites an explicit local value. Task-not-found is a hard error;
// every other failure is soft (populated=false, no crash).
func (s *Sweeper) AutoPopulateCloseGate(ctx context.Context, taskID, prURL string) (bool, error) {
	t, err := s.st.Get(ctx, taskID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return false, fmt.Errorf("task %s not found", taskID)
		}
		return false, nil
	}

	if prURL == "" {
		prURL = t.Metadata.EffectivePRURL()
	}
	if prURL == "" {
		return false, nil
	}
	ref, err := github.ParsePRURL(prURL)
	if err != nil {
		return false, nil
	}

	view, err := s.gh.View(ctx, *ref)
	if err != nil || view.State != github.StateMerged {
		return false, nil
	}

	_, err = s.st.Update(ctx, taskID, func(t *task.Task) error {
		merged := true
		t.Metadata.PRMerged = &merged
		if view.MergeCommit != "" {
			t.Metadata.CommitSHA = view.MergeCommit
		}
		if t.Metadata.ReviewerApproved == nil && view.ReviewDecision == github.ReviewApproved {
			approved := true
			t.Metadata.ReviewerApproved = &approved
		}
		return nil
	})
	if err != nil {
		return false, nil
	}
	return true, nil
}

// Sentinel errors used to abort the close update without mutation.
var (
	errNotValidating = errors.New("not validating")
	errGatesNotMet   = errors.New("close gates not satisfied")
)

// TryAutoClose transitions a validating task to done when both close
// gates hold. The gate check and the status flip happen inside a single
// atomic store update, so failure leaves the record untouched and
// repeated calls on a done task are no-ops.
func (s *Sweeper) TryAutoClose(ctx context.Context, taskID string) (CloseResult, error) {
	var failed []string
	_, err := s.st.Update(ctx, taskID, func(t *task.Task) error {
		if t.Status != task.StatusValidating {
			return errNotValidating
		}
		failed = gate.FailedCloseGates(t.Metadata)
		if len(failed) > 0 {
			return errGatesNotMet
		}
		t.Status = task.StatusDone
		if t.Metadata.AutoCloseReason == "" {
			t.Metadata.AutoCloseReason = "auto-closed: pr_merged and reviewer_approved"
		}
		return nil
	})
	switch {
	case err == nil:
		return CloseResult{Closed: true}, nil
	case errors.Is(err, errNotValidating):
		return CloseResult{Closed: false, Reason: "not validating"}, nil
	case errors.Is(err, errGatesNotMet):
		return CloseResult{Closed: false, FailedGates: failed}, nil
	case errors.Is(err, store.ErrNotFound):
		return CloseResult{}, fmt.Errorf("task %s not found", taskID)
	default:
		return CloseResult{}, err
	}
}
