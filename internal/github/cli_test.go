package github

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

// newTestClient builds a client whose binary resolves on any Unix
// system (Available passes) but whose runner never shells out.
func newTestClient(run runFunc) *CLIClient {
	return NewCLIClient(WithBinary("sh"), WithRunner(run))
}

func TestViewParsesCheckRunShape(t *testing.T) {
	payload := `{
		"state": "OPEN",
		"reviewDecision": "APPROVED",
		"headRefOid": "abc1234def5678900000000000000000000000ff",
		"statusCheckRollup": [
			{"name": "build", "status": "COMPLETED", "conclusion": "SUCCESS"},
			{"name": "test", "status": "IN_PROGRESS", "conclusion": ""}
		],
		"files": [{"path": "a.go"}, {"path": "b.go"}],
		"mergeCommit": null
	}`
	c := newTestClient(func(ctx context.Context, name string, args ...string) ([]byte, error) {
		return []byte(payload), nil
	})

	view, err := c.View(context.Background(), PRRef{Repo: "acme/widgets", Number: 1})
	if err != nil {
		t.Fatalf("View error: %v", err)
	}
	if view.State != StateOpen {
		t.Errorf("state = %q, want OPEN", view.State)
	}
	if view.ReviewDecision != ReviewApproved {
		t.Errorf("reviewDecision = %q, want APPROVED", view.ReviewDecision)
	}
	if len(view.Checks) != 2 {
		t.Fatalf("checks = %d, want 2", len(view.Checks))
	}
	if view.Checks[0].Name != "build" || view.Checks[0].Failed() {
		t.Errorf("first check = %+v, want passing build", view.Checks[0])
	}
	if view.Checks[1].Terminal() {
		t.Error("in-progress check should not be terminal")
	}
	if len(view.ChangedFiles) != 2 || view.ChangedFiles[0] != "a.go" {
		t.Errorf("changed files = %v", view.ChangedFiles)
	}
	if view.MergeCommit != "" {
		t.Errorf("merge commit = %q, want empty", view.MergeCommit)
	}
}

func TestViewParsesStatusContextShape(t *testing.T) {
	// Legacy commit statuses report context/state instead of
	// name/conclusion.
	payload := `{
		"state": "OPEN",
		"statusCheckRollup": [
			{"context": "ci/lint", "state": "FAILURE"},
			{"context": "ci/pending", "state": "PENDING"}
		]
	}`
	c := newTestClient(func(ctx context.Context, name string, args ...string) ([]byte, error) {
		return []byte(payload), nil
	})

	view, err := c.View(context.Background(), PRRef{Repo: "acme/widgets", Number: 2})
	if err != nil {
		t.Fatalf("View error: %v", err)
	}
	if len(view.Checks) != 2 {
		t.Fatalf("checks = %d, want 2", len(view.Checks))
	}
	if view.Checks[0].Name != "ci/lint" || !view.Checks[0].Failed() {
		t.Errorf("status context not normalized: %+v", view.Checks[0])
	}
	if view.Checks[1].Failed() || view.Checks[1].Terminal() {
		t.Errorf("pending status context should be non-terminal: %+v", view.Checks[1])
	}
}

func TestViewRetriesTransientFailure(t *testing.T) {
	calls := 0
	c := newTestClient(func(ctx context.Context, name string, args ...string) ([]byte, error) {
		calls++
		if calls < 2 {
			return nil, errors.New("connection reset")
		}
		return []byte(`{"state": "OPEN"}`), nil
	})

	if _, err := c.View(context.Background(), PRRef{Repo: "acme/widgets", Number: 3}); err != nil {
		t.Fatalf("View error after retry: %v", err)
	}
	if calls != 2 {
		t.Errorf("runner called %d times, want 2", calls)
	}
}

func TestViewGivesUpAfterRetries(t *testing.T) {
	calls := 0
	c := newTestClient(func(ctx context.Context, name string, args ...string) ([]byte, error) {
		calls++
		return nil, errors.New("boom")
	})

	_, err := c.View(context.Background(), PRRef{Repo: "acme/widgets", Number: 4})
	if err == nil {
		t.Fatal("expected error")
	}
	// Initial attempt plus maxRetries.
	if calls != 3 {
		t.Errorf("runner called %d times, want 3", calls)
	}
}

func TestMergeMapsAlreadyMerged(t *testing.T) {
	c := newTestClient(func(ctx context.Context, name string, args ...string) ([]byte, error) {
		return nil, fmt.Errorf("gh pr: Pull request #5 was already merged")
	})

	err := c.Merge(context.Background(), PRRef{Repo: "acme/widgets", Number: 5})
	if !errors.Is(err, ErrAlreadyMerged) {
		t.Errorf("err = %v, want ErrAlreadyMerged", err)
	}
}

func TestMergeCommitRequiresMergedPR(t *testing.T) {
	c := newTestClient(func(ctx context.Context, name string, args ...string) ([]byte, error) {
		return []byte(`{"state": "OPEN", "mergeCommit": null}`), nil
	})

	if _, err := c.MergeCommit(context.Background(), PRRef{Repo: "acme/widgets", Number: 6}); err == nil {
		t.Fatal("expected error for unmerged PR")
	}

	c = newTestClient(func(ctx context.Context, name string, args ...string) ([]byte, error) {
		return []byte(`{"state": "MERGED", "mergeCommit": {"oid": "deadbeef"}}`), nil
	})
	sha, err := c.MergeCommit(context.Background(), PRRef{Repo: "acme/widgets", Number: 6})
	if err != nil {
		t.Fatalf("MergeCommit error: %v", err)
	}
	if sha != "deadbeef" {
		t.Errorf("sha = %q, want deadbeef", sha)
	}
}
