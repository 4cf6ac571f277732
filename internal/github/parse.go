// Package github talks to the remote code-hosting platform through the
// gh CLI. Every operation here is fallible: callers treat network,
// auth, and rate-limit failures as degraded outcomes, never as fatal
// faults.
package github

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// PRRef identifies a pull request as owner/repo plus number.
type PRRef struct {
	Repo   string // "owner/name"
	Number int
}

func (r PRRef) String() string {
	return fmt.Sprintf("%s#%d", r.Repo, r.Number)
}

// ParsePRURL extracts a PRRef from a GitHub pull-request URL.
// Accepts https://github.com/OWNER/REPO/pull/N with optional trailing
// path (e.g. /files), query, or fragment. Anything else (wrong host,
// short path, non-positive number) is an error. Pure, no I/O.
func ParsePRURL(raw string) (*PRRef, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Errorf("invalid PR URL %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid PR URL %q: scheme %q", raw, u.Scheme)
	}
	host := strings.ToLower(u.Hostname())
	if host != "github.com" && host != "www.github.com" {
		return nil, fmt.Errorf("invalid PR URL %q: host %q", raw, u.Hostname())
	}

	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) < 4 || parts[2] != "pull" {
		return nil, fmt.Errorf("invalid PR URL %q: not a pull request path", raw)
	}
	owner, repo := parts[0], parts[1]
	if owner == "" || repo == "" {
		return nil, fmt.Errorf("invalid PR URL %q: empty owner or repo", raw)
	}
	num, err := strconv.Atoi(parts[3])
	if err != nil || num <= 0 {
		return nil, fmt.Errorf("invalid PR URL %q: bad PR number %q", raw, parts[3])
	}

	return &PRRef{Repo: owner + "/" + repo, Number: num}, nil
}
