// Package integrity validates a submitted review packet against the
// live pull-request state. Only genuine divergence blocks a closure:
// infrastructure that cannot be reached soft-passes with an explicit
// skip reason, which is a distinct outcome from a verified pass.
package integrity

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/steveyegge/mergegate/internal/github"
)

// Packet is what an agent claims happened: the PR it worked on, the
// commit it landed, and the files it touched.
type Packet struct {
	PRURL        string
	Commit       string
	ChangedFiles []string
}

// Mismatch is one field-level divergence between packet and live state.
type Mismatch struct {
	Field        string   `json:"field"` // "commit" or "changed_files"
	Expected     string   `json:"expected,omitempty"`
	Actual       string   `json:"actual,omitempty"`
	ExtraFiles   []string `json:"extra_files,omitempty"`   // claimed but not in the PR
	MissingFiles []string `json:"missing_files,omitempty"` // in the PR but not claimed
}

func (m Mismatch) String() string {
	switch m.Field {
	case "commit":
		return fmt.Sprintf("commit mismatch: packet %s, live head %s", m.Actual, m.Expected)
	case "changed_files":
		return fmt.Sprintf("changed-files mismatch: extra %v, missing %v", m.ExtraFiles, m.MissingFiles)
	}
	return m.Field + " mismatch"
}

// Result reports the validation outcome. Valid and Skipped are both
// true on a soft-pass; callers that need to distinguish a verified
// pass must check Skipped.
type Result struct {
	Valid            bool       `json:"valid"`
	Skipped          bool       `json:"skipped"`
	SkipReason       string     `json:"skip_reason,omitempty"`
	LiveHeadSHA      string     `json:"live_head_sha,omitempty"`
	LiveChangedFiles []string   `json:"live_changed_files,omitempty"`
	Errors           []Mismatch `json:"errors,omitempty"`
}

// Validator compares review packets against live PR state.
//
// Sandboxed is an explicit configuration flag, not a runtime heuristic:
// deciding that a process is a test environment from its file paths is
// how checks get silently skipped in production-like setups.
type Validator struct {
	gh        github.Client
	sandboxed bool
}

// NewValidator creates a validator. sandboxed short-circuits every
// validation to a soft-pass; set it only in test/sandbox contexts.
func NewValidator(gh github.Client, sandboxed bool) *Validator {
	return &Validator{gh: gh, sandboxed: sandboxed}
}

// Validate checks the packet against the PR's live head commit and
// changed-file set. A malformed PR URL is a hard error and never
// skippable; everything infrastructural soft-passes.
func (v *Validator) Validate(ctx context.Context, p Packet) (*Result, error) {
	ref, err := github.ParsePRURL(p.PRURL)
	if err != nil {
		return nil, err
	}

	if v.sandboxed {
		return &Result{Valid: true, Skipped: true, SkipReason: "sandboxed environment"}, nil
	}
	if err := v.gh.Available(); err != nil {
		return &Result{Valid: true, Skipped: true, SkipReason: err.Error()}, nil
	}

	view, err := v.gh.View(ctx, *ref)
	if err != nil {
		// Unreachability is never proof of mismatch.
		return &Result{Valid: true, Skipped: true, SkipReason: fmt.Sprintf("remote fetch failed: %v", err)}, nil
	}

	res := &Result{
		LiveHeadSHA:      view.HeadRefOID,
		LiveChangedFiles: view.ChangedFiles,
	}

	if p.Commit != "" && !commitMatches(p.Commit, view.HeadRefOID) {
		res.Errors = append(res.Errors, Mismatch{
			Field:    "commit",
			Expected: view.HeadRefOID,
			Actual:   p.Commit,
		})
	}

	if len(p.ChangedFiles) > 0 {
		extra, missing := diffFiles(p.ChangedFiles, view.ChangedFiles)
		if len(extra) > 0 || len(missing) > 0 {
			res.Errors = append(res.Errors, Mismatch{
				Field:        "changed_files",
				ExtraFiles:   extra,
				MissingFiles: missing,
			})
		}
	}

	res.Valid = len(res.Errors) == 0
	return res, nil
}

// commitMatches compares two hashes case-insensitively over their
// shared prefix, so abbreviated hashes still match the full head SHA.
func commitMatches(packet, live string) bool {
	a := strings.ToLower(strings.TrimSpace(packet))
	b := strings.ToLower(strings.TrimSpace(live))
	if a == "" || b == "" {
		return false
	}
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	return a[:n] == b[:n]
}

// diffFiles returns the symmetric difference between the claimed and
// live changed-file sets.
func diffFiles(packet, live []string) (extra, missing []string) {
	packetSet := make(map[string]bool, len(packet))
	for _, f := range packet {
		packetSet[f] = true
	}
	liveSet := make(map[string]bool, len(live))
	for _, f := range live {
		liveSet[f] = true
	}
	for f := range packetSet {
		if !liveSet[f] {
			extra = append(extra, f)
		}
	}
	for f := range liveSet {
		if !packetSet[f] {
			missing = append(missing, f)
		}
	}
	sort.Strings(extra)
	sort.Strings(missing)
	return extra, missing
}
