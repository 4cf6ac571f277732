package mergeability

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/steveyegge/mergegate/internal/github"
	"github.com/steveyegge/mergegate/internal/testutil"
)

const prURL = "https://github.com/acme/widgets/pull/3"

var prRef = github.PRRef{Repo: "acme/widgets", Number: 3}

func TestCheckMergeable(t *testing.T) {
	gh := testutil.NewFakeGitHub()
	gh.Seed(prRef, testutil.PassingView("abc1234"))
	c := NewChecker(gh, 0)

	v := c.Check(context.Background(), prURL)
	if !v.Mergeable {
		t.Fatalf("want mergeable, got %+v", v)
	}
	if v.ChecksStatus != ChecksPassing {
		t.Errorf("checks status = %q, want passing", v.ChecksStatus)
	}
	if v.Reason != "open, approved, all checks passing" {
		t.Errorf("reason = %q", v.Reason)
	}
}

func TestCheckNotOpen(t *testing.T) {
	gh := testutil.NewFakeGitHub()
	view := testutil.PassingView("abc1234")
	view.State = github.StateClosed
	gh.Seed(prRef, view)

	v := NewChecker(gh, 0).Check(context.Background(), prURL)
	if v.Mergeable {
		t.Fatal("closed PR must not be mergeable")
	}
	if !strings.Contains(v.Reason, "CLOSED") {
		t.Errorf("reason = %q, want PR state", v.Reason)
	}
}

func TestCheckReviewNotApproved(t *testing.T) {
	gh := testutil.NewFakeGitHub()
	view := testutil.PassingView("abc1234")
	view.ReviewDecision = github.ReviewChangesRequested
	gh.Seed(prRef, view)

	v := NewChecker(gh, 0).Check(context.Background(), prURL)
	if v.Mergeable {
		t.Fatal("changes-requested PR must not be mergeable")
	}
	if !strings.Contains(v.Reason, "CHANGES_REQUESTED") {
		t.Errorf("reason = %q", v.Reason)
	}
}

func TestCheckFailingCheckNamed(t *testing.T) {
	gh := testutil.NewFakeGitHub()
	view := testutil.PassingView("abc1234")
	view.Checks = append(view.Checks, github.CheckRun{
		Name: "integration", Status: "COMPLETED", Conclusion: "FAILURE",
	})
	gh.Seed(prRef, view)

	v := NewChecker(gh, 0).Check(context.Background(), prURL)
	if v.Mergeable {
		t.Fatal("failing check must block merge")
	}
	if v.ChecksStatus != ChecksFailing {
		t.Errorf("checks status = %q, want failing", v.ChecksStatus)
	}
	if len(v.FailingChecks) != 1 || v.FailingChecks[0] != "integration" {
		t.Errorf("failing checks = %v, want [integration]", v.FailingChecks)
	}
	if !strings.Contains(v.Reason, "integration") {
		t.Errorf("reason should name the check: %q", v.Reason)
	}
}

func TestCheckPendingChecks(t *testing.T) {
	gh := testutil.NewFakeGitHub()
	view := testutil.PassingView("abc1234")
	view.Checks = append(view.Checks, github.CheckRun{
		Name: "e2e", Status: "IN_PROGRESS",
	})
	gh.Seed(prRef, view)

	v := NewChecker(gh, 0).Check(context.Background(), prURL)
	if v.Mergeable {
		t.Fatal("pending checks must block merge")
	}
	if v.ChecksStatus != ChecksPending {
		t.Errorf("checks status = %q, want pending", v.ChecksStatus)
	}
}

func TestCheckInvalidURLNoRemoteCall(t *testing.T) {
	gh := testutil.NewFakeGitHub()
	v := NewChecker(gh, 0).Check(context.Background(), "not a pr url")
	if v.Mergeable {
		t.Fatal("invalid URL must not be mergeable")
	}
	if v.Reason != "invalid PR URL format" {
		t.Errorf("reason = %q", v.Reason)
	}
	if gh.ViewCalls != 0 {
		t.Errorf("invalid URL should not hit the remote, got %d calls", gh.ViewCalls)
	}
}

func TestCheckFetchFailureIsNonMergeable(t *testing.T) {
	gh := testutil.NewFakeGitHub()
	v := NewChecker(gh, 0).Check(context.Background(), prURL) // nothing seeded
	if v.Mergeable {
		t.Fatal("fetch failure must not be mergeable")
	}
	if !strings.Contains(v.Reason, "fetching PR state") {
		t.Errorf("reason = %q", v.Reason)
	}
}

func TestCheckCachesWithinTTL(t *testing.T) {
	gh := testutil.NewFakeGitHub()
	gh.Seed(prRef, testutil.PassingView("abc1234"))
	c := NewChecker(gh, time.Minute)

	c.Check(context.Background(), prURL)
	c.Check(context.Background(), prURL)
	if gh.ViewCalls != 1 {
		t.Errorf("view calls = %d, want 1 (cached)", gh.ViewCalls)
	}
}

func TestCheckCacheExpires(t *testing.T) {
	gh := testutil.NewFakeGitHub()
	gh.Seed(prRef, testutil.PassingView("abc1234"))
	c := NewChecker(gh, time.Minute)

	base := time.Now()
	c.now = func() time.Time { return base }
	c.Check(context.Background(), prURL)

	c.now = func() time.Time { return base.Add(2 * time.Minute) }
	c.Check(context.Background(), prURL)
	if gh.ViewCalls != 2 {
		t.Errorf("view calls = %d, want 2 (expired)", gh.ViewCalls)
	}
}

func TestClearCacheForcesRefetch(t *testing.T) {
	gh := testutil.NewFakeGitHub()
	gh.Seed(prRef, testutil.PassingView("abc1234"))
	c := NewChecker(gh, time.Hour)

	first := c.Check(context.Background(), prURL)
	if !first.Mergeable {
		t.Fatalf("setup: %+v", first)
	}

	// Merge the PR out-of-band; the cached verdict is now wrong.
	if err := gh.Merge(context.Background(), prRef); err != nil {
		t.Fatal(err)
	}
	stale := c.Check(context.Background(), prURL)
	if !stale.Mergeable {
		t.Fatal("expected stale cached verdict before ClearCache")
	}

	c.ClearCache()
	fresh := c.Check(context.Background(), prURL)
	if fresh.Mergeable {
		t.Fatal("post-merge verdict should not be mergeable")
	}
	if !strings.Contains(fresh.Reason, "MERGED") {
		t.Errorf("reason = %q", fresh.Reason)
	}
}
