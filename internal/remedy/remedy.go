// Package remedy maps diagnosed task issues to human-actionable fix
// text. Everything here is advisory: nothing in this package mutates
// task state, it only tells a human (or an upstream agent) what to do.
package remedy

import (
	"fmt"

	"github.com/steveyegge/mergegate/internal/github"
	"github.com/steveyegge/mergegate/internal/task"
)

// Issue codes.
const (
	IssueStaleValidating   = "stale_validating"
	IssuePRMergedNotClosed = "pr_merged_not_closed"
	IssueOrphanPR          = "orphan_pr"
	IssueNoPRLinked        = "no_pr_linked"
)

// For returns remediation text for a diagnosed issue on a task.
// Unknown issue codes get a generic pointer at the task.
func For(taskID, issue, prURL string) string {
	switch issue {
	case IssueStaleValidating:
		return fmt.Sprintf(
			"Task %s has been sitting in validating: the PR is merged but reviewer approval was never recorded. "+
				"If the review actually happened, patch metadata.reviewer_approved=true and the next sweep will close it.",
			taskID)
	case IssuePRMergedNotClosed:
		return fmt.Sprintf(
			"Task %s has both close gates satisfied but is still validating. "+
				"Patch status to done (or wait for the next sweep to auto-close it).",
			taskID)
	case IssueOrphanPR:
		if ref, err := github.ParsePRURL(prURL); err == nil {
			return fmt.Sprintf(
				"Task %s is waiting on an unmerged PR. If it is ready, merge it manually:\n"+
					"  gh pr merge %d -R %s --squash",
				taskID, ref.Number, ref.Repo)
		}
		return fmt.Sprintf("Task %s is waiting on PR %s, which could not be parsed. Fix metadata.pr_url first.", taskID, prURL)
	case IssueNoPRLinked:
		return fmt.Sprintf(
			"Task %s is validating with no PR linked, so the sweep cannot reconcile it. "+
				"Patch metadata.pr_url with the pull-request URL.",
			taskID)
	}
	return fmt.Sprintf("Task %s: no remediation known for issue %q.", taskID, issue)
}

// Diagnose classifies a validating task from its local metadata alone.
// Returns false for tasks that need no remediation (not validating, or
// healthy and just waiting on the sweep).
func Diagnose(t *task.Task) (string, bool) {
	if t.Status != task.StatusValidating {
		return "", false
	}
	m := t.Metadata
	if m.EffectivePRURL() == "" {
		return IssueNoPRLinked, true
	}
	merged := m.PRMerged != nil && *m.PRMerged
	approved := m.ReviewerApproved != nil && *m.ReviewerApproved
	switch {
	case merged && approved:
		return IssuePRMergedNotClosed, true
	case merged && !approved:
		return IssueStaleValidating, true
	default:
		return IssueOrphanPR, true
	}
}
