// Package testutil provides shared test fakes.
package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/steveyegge/mergegate/internal/github"
)

// FakeGitHub is an in-memory github.Client. Tests seed Views keyed by
// ref string ("owner/repo#1"); Merge mutates the seeded view the way
// the real platform would (state MERGED, merge commit set), so
// post-merge fetches observe the new state.
type FakeGitHub struct {
	mu sync.Mutex

	Views        map[string]*github.PRView
	ViewErr      error
	MergeErr     error
	AvailableErr error

	ViewCalls  int
	MergeCalls []github.PRRef
}

// NewFakeGitHub creates an empty fake.
func NewFakeGitHub() *FakeGitHub {
	return &FakeGitHub{Views: make(map[string]*github.PRView)}
}

// Seed registers a PR view.
func (f *FakeGitHub) Seed(ref github.PRRef, view *github.PRView) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Views[ref.String()] = view
}

// View returns a copy of the seeded view.
func (f *FakeGitHub) View(_ context.Context, ref github.PRRef) (*github.PRView, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ViewCalls++
	if f.ViewErr != nil {
		return nil, f.ViewErr
	}
	view, ok := f.Views[ref.String()]
	if !ok {
		return nil, fmt.Errorf("no such PR %s", ref)
	}
	c := *view
	c.Checks = append([]github.CheckRun(nil), view.Checks...)
	c.ChangedFiles = append([]string(nil), view.ChangedFiles...)
	return &c, nil
}

// Merge records the call and flips the seeded view to merged.
func (f *FakeGitHub) Merge(_ context.Context, ref github.PRRef) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.MergeCalls = append(f.MergeCalls, ref)
	if f.MergeErr != nil {
		return f.MergeErr
	}
	view, ok := f.Views[ref.String()]
	if !ok {
		return fmt.Errorf("no such PR %s", ref)
	}
	if view.State == github.StateMerged {
		return github.ErrAlreadyMerged
	}
	view.State = github.StateMerged
	if view.MergeCommit == "" {
		view.MergeCommit = "fadec0ffee0000000000000000000000000000ab"
	}
	return nil
}

// MergeCommit returns the merge commit of a seeded, merged view.
func (f *FakeGitHub) MergeCommit(ctx context.Context, ref github.PRRef) (string, error) {
	view, err := f.View(ctx, ref)
	if err != nil {
		return "", err
	}
	if view.MergeCommit == "" {
		return "", fmt.Errorf("PR %s has no merge commit", ref)
	}
	return view.MergeCommit, nil
}

// Available reports the configured availability.
func (f *FakeGitHub) Available() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.AvailableErr
}

// PassingView builds an open, approved view with all checks green.
func PassingView(headSHA string, files ...string) *github.PRView {
	return &github.PRView{
		State:          github.StateOpen,
		ReviewDecision: github.ReviewApproved,
		HeadRefOID:     headSHA,
		ChangedFiles:   files,
		Checks: []github.CheckRun{
			{Name: "build", Status: "COMPLETED", Conclusion: "SUCCESS"},
			{Name: "test", Status: "COMPLETED", Conclusion: "SUCCESS"},
		},
	}
}
