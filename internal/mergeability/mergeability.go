// Package mergeability derives a merge-or-not verdict from live PR
// state. Verdicts are cached per PR for a short window so one sweep
// pass issues a bounded number of remote calls.
package mergeability

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/steveyegge/mergegate/internal/github"
)

// Check statuses summarizing the PR's check rollup.
const (
	ChecksPassing = "passing"
	ChecksPending = "pending"
	ChecksFailing = "failing"
	ChecksUnknown = "unknown"
)

// DefaultCacheTTL bounds how long a verdict is reused. Short enough
// that the next sweep tick re-evaluates, long enough to dedupe calls
// within one pass.
const DefaultCacheTTL = 30 * time.Second

// Verdict is the computed mergeability decision for one PR.
type Verdict struct {
	Mergeable      bool     `json:"mergeable"`
	State          string   `json:"state"`
	ReviewDecision string   `json:"review_decision,omitempty"`
	ChecksStatus   string   `json:"checks_status"`
	FailingChecks  []string `json:"failing_checks,omitempty"`
	Reason         string   `json:"reason"`
}

type cached struct {
	verdict Verdict
	at      time.Time
}

// Checker computes and caches mergeability verdicts. The cache is the
// one piece of shared mutable sweep state; ClearCache exists so tests
// and forced re-evaluations stay deterministic.
type Checker struct {
	gh  github.Client
	ttl time.Duration
	now func() time.Time

	mu    sync.Mutex
	cache map[string]cached
}

// NewChecker creates a checker. ttl <= 0 uses DefaultCacheTTL.
func NewChecker(gh github.Client, ttl time.Duration) *Checker {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Checker{
		gh:    gh,
		ttl:   ttl,
		now:   time.Now,
		cache: make(map[string]cached),
	}
}

// ClearCache drops all cached verdicts, forcing the next Check to hit
// the remote platform.
func (c *Checker) ClearCache() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache = make(map[string]cached)
}

// Check returns the mergeability verdict for a PR URL. Never returns
// an error: fetch and tool failures become a non-mergeable verdict
// with the failure text in Reason.
func (c *Checker) Check(ctx context.Context, prURL string) Verdict {
	ref, err := github.ParsePRURL(prURL)
	if err != nil {
		// No remote call for garbage input.
		return Verdict{
			Mergeable:    false,
			State:        ChecksUnknown,
			ChecksStatus: ChecksUnknown,
			Reason:       "invalid PR URL format",
		}
	}

	c.mu.Lock()
	if entry, ok := c.cache[prURL]; ok && c.now().Sub(entry.at) < c.ttl {
		c.mu.Unlock()
		return entry.verdict
	}
	c.mu.Unlock()

	verdict := c.evaluate(ctx, *ref)

	c.mu.Lock()
	c.cache[prURL] = cached{verdict: verdict, at: c.now()}
	c.mu.Unlock()
	return verdict
}

func (c *Checker) evaluate(ctx context.Context, ref github.PRRef) Verdict {
	view, err := c.gh.View(ctx, ref)
	if err != nil {
		return Verdict{
			Mergeable:    false,
			State:        ChecksUnknown,
			ChecksStatus: ChecksUnknown,
			Reason:       fmt.Sprintf("fetching PR state: %v", err),
		}
	}

	checksStatus, failing := summarizeChecks(view.Checks)
	v := Verdict{
		State:          view.State,
		ReviewDecision: view.ReviewDecision,
		ChecksStatus:   checksStatus,
		FailingChecks:  failing,
	}

	switch {
	case view.State != github.StateOpen:
		v.Reason = fmt.Sprintf("PR state is %s", view.State)
	case view.ReviewDecision != github.ReviewApproved:
		decision := view.ReviewDecision
		if decision == "" {
			decision = "none"
		}
		v.Reason = fmt.Sprintf("review decision is %s", decision)
	case checksStatus == ChecksFailing:
		v.Reason = fmt.Sprintf("failing checks: %s", strings.Join(failing, ", "))
	case checksStatus == ChecksPending:
		v.Reason = "checks still running"
	default:
		v.Mergeable = true
		v.Reason = "open, approved, all checks passing"
	}
	return v
}

// summarizeChecks folds the check rollup into a single status:
// any failure wins, then any non-terminal check, then passing.
func summarizeChecks(checks []github.CheckRun) (string, []string) {
	var failing []string
	pending := false
	for _, check := range checks {
		if check.Failed() {
			failing = append(failing, check.Name)
		} else if !check.Terminal() {
			pending = true
		}
	}
	if len(failing) > 0 {
		return ChecksFailing, failing
	}
	if pending {
		return ChecksPending, nil
	}
	return ChecksPassing, nil
}
