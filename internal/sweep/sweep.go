package sweep

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/steveyegge/mergegate/internal/github"
	"github.com/steveyegge/mergegate/internal/mergeability"
	"github.com/steveyegge/mergegate/internal/store"
	"github.com/steveyegge/mergegate/internal/task"
	"github.com/steveyegge/mergegate/internal/util"
)

// ErrPassInFlight means a sweep tick fired while the previous pass was
// still running. Ticks are serialized; the caller just skips the tick.
var ErrPassInFlight = errors.New("sweep pass already in flight")

// DefaultInterval between sweep passes.
const DefaultInterval = 5 * time.Minute

// Summary aggregates one reconciliation pass.
type Summary struct {
	PassID         string    `json:"pass_id"`
	StartedAt      time.Time `json:"started_at"`
	FinishedAt     time.Time `json:"finished_at"`
	TasksExamined  int       `json:"tasks_examined"`
	MergeAttempts  int       `json:"merge_attempts"`
	MergeSuccesses int       `json:"merge_successes"`
	AutoCloses     int       `json:"auto_closes"`
	Entries        []Entry   `json:"entries"`
}

// Config configures a Sweeper. Zero values get defaults.
type Config struct {
	// Interval between timed passes.
	Interval time.Duration

	// StatePath, when set, receives an atomically-written JSON summary
	// after every pass (crash-safe operator record).
	StatePath string

	// Output receives progress lines. Defaults to os.Stdout.
	Output io.Writer

	// LogCapacity bounds the attempt log.
	LogCapacity int
}

// Sweeper drives the periodic reconciliation of validating tasks.
type Sweeper struct {
	st      store.Store
	checker *mergeability.Checker
	gh      github.Client
	log     *AttemptLog

	interval  time.Duration
	statePath string
	output    io.Writer

	running   atomic.Bool
	lastSweep atomic.Pointer[Summary]
}

// New creates a sweeper.
func New(st store.Store, checker *mergeability.Checker, gh github.Client, cfg Config) *Sweeper {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.Output == nil {
		cfg.Output = os.Stdout
	}
	return &Sweeper{
		st:        st,
		checker:   checker,
		gh:        gh,
		log:       NewAttemptLog(cfg.LogCapacity),
		interval:  cfg.Interval,
		statePath: cfg.StatePath,
		output:    cfg.Output,
	}
}

// Log exposes the attempt log for the query surfaces.
func (s *Sweeper) Log() *AttemptLog {
	return s.log
}

// LastSummary returns the most recent completed pass, or nil.
func (s *Sweeper) LastSummary() *Summary {
	return s.lastSweep.Load()
}

// Run drives timed passes until the context is canceled. An initial
// pass runs at startup, matching the patrol-loop convention.
func (s *Sweeper) Run(ctx context.Context) error {
	if _, err := s.RunOnce(ctx); err != nil && !errors.Is(err, ErrPassInFlight) {
		fmt.Fprintf(s.output, "[Sweep] Warning: initial pass: %v\n", err)
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := s.RunOnce(ctx); err != nil {
				if errors.Is(err, ErrPassInFlight) {
					fmt.Fprintf(s.output, "[Sweep] Tick skipped: previous pass still running\n")
					continue
				}
				fmt.Fprintf(s.output, "[Sweep] Warning: pass failed: %v\n", err)
			}
		}
	}
}

// RunOnce executes a single reconciliation pass over a snapshot of all
// validating tasks. Passes are serialized: a second concurrent call
// returns ErrPassInFlight. One task's failure never aborts the pass.
func (s *Sweeper) RunOnce(ctx context.Context) (*Summary, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, ErrPassInFlight
	}
	defer s.running.Store(false)

	// Snapshot once at pass start. No live re-reads mid-pass: every
	// decision in one pass is made against the same world.
	snapshot, err := s.st.List(ctx, store.Filter{Status: task.StatusValidating})
	if err != nil {
		return nil, fmt.Errorf("listing validating tasks: %w", err)
	}

	passID := uuid.NewString()[:8]
	summary := &Summary{PassID: passID, StartedAt: time.Now().UTC()}
	logged := func(taskID, action, detail string) {
		e := s.log.Append(passID, taskID, action, detail)
		summary.Entries = append(summary.Entries, e)
	}

	fmt.Fprintf(s.output, "[Sweep] Pass %s: %d validating task(s)\n", passID, len(snapshot))

	for _, t := range snapshot {
		if ctx.Err() != nil {
			break
		}
		prURL := t.Metadata.EffectivePRURL()
		if prURL == "" {
			continue
		}
		summary.TasksExamined++
		s.reconcileTask(ctx, t, prURL, summary, logged)
	}

	summary.FinishedAt = time.Now().UTC()
	s.lastSweep.Store(summary)

	if s.statePath != "" {
		if err := util.EnsureDirAndWriteJSON(s.statePath, summary); err != nil {
			fmt.Fprintf(s.output, "[Sweep] Warning: writing state file: %v\n", err)
		}
	}

	fmt.Fprintf(s.output, "[Sweep] Pass %s done: attempts=%d successes=%d autocloses=%d\n",
		passID, summary.MergeAttempts, summary.MergeSuccesses, summary.AutoCloses)
	return summary, nil
}

// reconcileTask drives one task through the decision ladder:
// already-satisfied gates → auto-close; mergeable → merge, backfill,
// close; otherwise log why nothing happened.
func (s *Sweeper) reconcileTask(ctx context.Context, t *task.Task, prURL string, summary *Summary, logged func(string, string, string)) {
	// Gates already satisfied out-of-band: just close.
	if t.Metadata.CloseGatesSatisfied() {
		res, err := s.TryAutoClose(ctx, t.ID)
		if err != nil {
			logged(t.ID, ActionMergeSkipped, fmt.Sprintf("auto-close failed: %v", err))
			return
		}
		if res.Closed {
			summary.AutoCloses++
			logged(t.ID, ActionAutoClosed, "close gates already satisfied")
		}
		return
	}

	verdict := s.checker.Check(ctx, prURL)
	if !verdict.Mergeable {
		logged(t.ID, ActionMergeSkipped, verdict.Reason)
		return
	}

	summary.MergeAttempts++
	result := s.AttemptMerge(ctx, prURL)
	if !result.Success {
		logged(t.ID, ActionMergeAttempted, fmt.Sprintf("merge failed: %s", result.Error))
		return
	}
	logged(t.ID, ActionMergeAttempted, "PR mergeable, merge executed")
	summary.MergeSuccesses++
	logged(t.ID, ActionMergeSucceeded, fmt.Sprintf("merge commit %s", shortSHA(result.MergeCommit)))

	// The verdict for this PR is now stale; drop it so a later task
	// sharing the URL (or a forced re-check) sees the merged state.
	s.checker.ClearCache()

	populated, err := s.AutoPopulateCloseGate(ctx, t.ID, prURL)
	if err != nil {
		fmt.Fprintf(s.output, "[Sweep] Warning: backfill for %s: %v\n", t.ID, err)
		return
	}
	if !populated {
		fmt.Fprintf(s.output, "[Sweep] Note: close-gate backfill for %s deferred\n", t.ID)
		return
	}

	res, err := s.TryAutoClose(ctx, t.ID)
	if err != nil {
		fmt.Fprintf(s.output, "[Sweep] Warning: auto-close for %s: %v\n", t.ID, err)
		return
	}
	if res.Closed {
		summary.AutoCloses++
		logged(t.ID, ActionAutoClosed, "merged this pass, close gates satisfied")
	} else if len(res.FailedGates) > 0 {
		fmt.Fprintf(s.output, "[Sweep] %s stays validating: %v not satisfied\n", t.ID, res.FailedGates)
	}
}

func shortSHA(sha string) string {
	if len(sha) > 8 {
		return sha[:8]
	}
	if sha == "" {
		return "(unknown)"
	}
	return sha
}
