package github

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// ErrToolUnavailable means the gh binary is not installed or not on
// PATH. Callers degrade to soft-pass semantics rather than failing.
var ErrToolUnavailable = errors.New("gh CLI not available")

// ErrAlreadyMerged means a merge was requested for a PR that is
// already merged. Treated as retry-safe success by the sweep.
var ErrAlreadyMerged = errors.New("pull request already merged")

// DefaultCallTimeout bounds a single gh invocation. Remote calls must
// never hang a sweep pass indefinitely.
const DefaultCallTimeout = 30 * time.Second

// runFunc executes a command and returns its combined output. Tests
// inject fakes here instead of shelling out.
type runFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

// CLIClient implements Client by shelling out to the gh CLI, the same
// way the rest of the system wraps external tools.
type CLIClient struct {
	bin         string
	callTimeout time.Duration
	maxRetries  uint64
	run         runFunc
}

// CLIOption configures a CLIClient.
type CLIOption func(*CLIClient)

// WithBinary overrides the gh binary path.
func WithBinary(bin string) CLIOption {
	return func(c *CLIClient) { c.bin = bin }
}

// WithCallTimeout overrides the per-invocation timeout.
func WithCallTimeout(d time.Duration) CLIOption {
	return func(c *CLIClient) { c.callTimeout = d }
}

// WithRunner replaces the process runner. Testing hook.
func WithRunner(run runFunc) CLIOption {
	return func(c *CLIClient) { c.run = run }
}

// NewCLIClient creates a gh-backed client.
func NewCLIClient(opts ...CLIOption) *CLIClient {
	c := &CLIClient{
		bin:         "gh",
		callTimeout: DefaultCallTimeout,
		maxRetries:  2,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.run == nil {
		c.run = c.execRun
	}
	return c
}

// Available checks that the gh binary can be found.
func (c *CLIClient) Available() error {
	if _, err := exec.LookPath(c.bin); err != nil {
		return fmt.Errorf("%w: %v", ErrToolUnavailable, err)
	}
	return nil
}

// execRun invokes the binary with a bounded timeout and returns
// combined output. Error text carries the trimmed tool output so sweep
// log entries stay human-readable.
func (c *CLIClient) execRun(ctx context.Context, name string, args ...string) ([]byte, error) {
	runCtx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, name, args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		msg := strings.TrimSpace(string(out))
		if len(msg) > 500 {
			msg = msg[:500] + "..."
		}
		if msg == "" {
			return out, fmt.Errorf("%s %s: %w", name, args[0], err)
		}
		return out, fmt.Errorf("%s %s: %s: %w", name, args[0], msg, err)
	}
	return out, nil
}

// prViewWire matches gh pr view --json output. Check rollup entries come
// in two shapes (CheckRun vs StatusContext); both are normalized.
type prViewWire struct {
	State             string `json:"state"`
	ReviewDecision    string `json:"reviewDecision"`
	HeadRefOID        string `json:"headRefOid"`
	StatusCheckRollup []struct {
		Name       string `json:"name"`
		Context    string `json:"context"`
		Status     string `json:"status"`
		Conclusion string `json:"conclusion"`
		CheckState string `json:"state"`
	} `json:"statusCheckRollup"`
	Files []struct {
		Path string `json:"path"`
	} `json:"files"`
	MergeCommit *struct {
		OID string `json:"oid"`
	} `json:"mergeCommit"`
}

const prViewFields = "state,reviewDecision,headRefOid,statusCheckRollup,files,mergeCommit"

// View fetches live PR state in a single gh call. Transient failures
// are retried with exponential backoff before giving up.
func (c *CLIClient) View(ctx context.Context, ref PRRef) (*PRView, error) {
	if err := c.Available(); err != nil {
		return nil, err
	}

	var out []byte
	op := func() error {
		var err error
		out, err = c.run(ctx, c.bin,
			"pr", "view", strconv.Itoa(ref.Number),
			"-R", ref.Repo,
			"--json", prViewFields)
		if err != nil && ctx.Err() != nil {
			return backoff.Permanent(err)
		}
		return err
	}
	bo := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), c.maxRetries), ctx)
	if err := backoff.Retry(op, bo); err != nil {
		return nil, fmt.Errorf("fetching PR %s: %w", ref, err)
	}

	var wire prViewWire
	if err := json.Unmarshal(out, &wire); err != nil {
		return nil, fmt.Errorf("parsing gh pr view output for %s: %w", ref, err)
	}

	view := &PRView{
		State:          wire.State,
		ReviewDecision: wire.ReviewDecision,
		HeadRefOID:     wire.HeadRefOID,
	}
	for _, cr := range wire.StatusCheckRollup {
		name := cr.Name
		if name == "" {
			name = cr.Context
		}
		conclusion := cr.Conclusion
		if conclusion == "" && cr.CheckState != "" && cr.CheckState != "PENDING" {
			// StatusContext entries report state instead of conclusion.
			conclusion = cr.CheckState
		}
		view.Checks = append(view.Checks, CheckRun{
			Name:       name,
			Status:     cr.Status,
			Conclusion: conclusion,
		})
	}
	for _, f := range wire.Files {
		view.ChangedFiles = append(view.ChangedFiles, f.Path)
	}
	if wire.MergeCommit != nil {
		view.MergeCommit = wire.MergeCommit.OID
	}
	return view, nil
}

// Merge squash-merges the PR. "Already merged" tool output maps to
// ErrAlreadyMerged so repeated sweep attempts stay idempotent.
func (c *CLIClient) Merge(ctx context.Context, ref PRRef) error {
	if err := c.Available(); err != nil {
		return err
	}
	_, err := c.run(ctx, c.bin,
		"pr", "merge", strconv.Itoa(ref.Number),
		"-R", ref.Repo,
		"--squash")
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "already merged") {
			return ErrAlreadyMerged
		}
		return fmt.Errorf("merging PR %s: %w", ref, err)
	}
	return nil
}

// MergeCommit fetches the merge commit SHA for a merged PR.
func (c *CLIClient) MergeCommit(ctx context.Context, ref PRRef) (string, error) {
	view, err := c.View(ctx, ref)
	if err != nil {
		return "", err
	}
	if view.MergeCommit == "" {
		return "", fmt.Errorf("PR %s has no merge commit (state %s)", ref, view.State)
	}
	return view.MergeCommit, nil
}
