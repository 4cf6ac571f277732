package remedy

import (
	"strings"
	"testing"

	"github.com/steveyegge/mergegate/internal/task"
)

func boolPtr(b bool) *bool { return &b }

func TestDiagnose(t *testing.T) {
	tests := []struct {
		name      string
		task      *task.Task
		wantIssue string
		wantOK    bool
	}{
		{
			name:   "not validating",
			task:   &task.Task{Status: task.StatusDoing},
			wantOK: false,
		},
		{
			name:      "no pr linked",
			task:      &task.Task{Status: task.StatusValidating},
			wantIssue: IssueNoPRLinked,
			wantOK:    true,
		},
		{
			name: "merged and approved but open",
			task: &task.Task{Status: task.StatusValidating, Metadata: task.Metadata{
				PRURL:            "https://github.com/acme/widgets/pull/1",
				PRMerged:         boolPtr(true),
				ReviewerApproved: boolPtr(true),
			}},
			wantIssue: IssuePRMergedNotClosed,
			wantOK:    true,
		},
		{
			name: "merged without approval",
			task: &task.Task{Status: task.StatusValidating, Metadata: task.Metadata{
				PRURL:    "https://github.com/acme/widgets/pull/1",
				PRMerged: boolPtr(true),
			}},
			wantIssue: IssueStaleValidating,
			wantOK:    true,
		},
		{
			name: "waiting on open pr",
			task: &task.Task{Status: task.StatusValidating, Metadata: task.Metadata{
				PRURL: "https://github.com/acme/widgets/pull/1",
			}},
			wantIssue: IssueOrphanPR,
			wantOK:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			issue, ok := Diagnose(tt.task)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if issue != tt.wantIssue {
				t.Errorf("issue = %q, want %q", issue, tt.wantIssue)
			}
		})
	}
}

func TestForOrphanPREmitsMergeCommand(t *testing.T) {
	got := For("T-1", IssueOrphanPR, "https://github.com/acme/widgets/pull/12")
	if !strings.Contains(got, "gh pr merge 12 -R acme/widgets --squash") {
		t.Errorf("missing merge command: %q", got)
	}
}

func TestForOrphanPRBadURL(t *testing.T) {
	got := For("T-1", IssueOrphanPR, "garbage")
	if !strings.Contains(got, "pr_url") {
		t.Errorf("bad URL remediation should point at pr_url: %q", got)
	}
}

func TestForMentionsTask(t *testing.T) {
	for _, issue := range []string{IssueStaleValidating, IssuePRMergedNotClosed, IssueNoPRLinked, "unknown_issue"} {
		if got := For("T-42", issue, ""); !strings.Contains(got, "T-42") {
			t.Errorf("For(%q) does not mention the task: %q", issue, got)
		}
	}
}
