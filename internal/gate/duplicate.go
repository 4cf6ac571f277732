package gate

import (
	"strings"

	"github.com/steveyegge/mergegate/internal/task"
)

// taskArtifactPrefix marks an artifacts entry that references another
// task rather than a file or URL.
const taskArtifactPrefix = "task:"

// indicatesDuplicateClosure reports whether the merged metadata marks
// this transition as closing the work as a duplicate: either the
// auto-close reason says so, or a doc-only handoff carries duplicate
// markers.
func indicatesDuplicateClosure(m task.Metadata) bool {
	if strings.Contains(strings.ToLower(m.AutoCloseReason), "duplicate") {
		return true
	}
	if rh := m.ReviewHandoff; rh != nil && rh.DocOnly {
		if m.DuplicateOf != "" || m.DuplicateProof != "" {
			return true
		}
		if strings.Contains(strings.ToLower(rh.TestProof), "duplicate") {
			return true
		}
	}
	return false
}

// checkDuplicateGate enforces the duplicate-closure sub-gate: a
// canonical reference to the surviving task AND proof text that is not
// a placeholder. Without both, "duplicate" would be a free pass to
// close work with nothing verifiable behind it.
func checkDuplicateGate(m task.Metadata) (Outcome, bool) {
	if !hasCanonicalReference(m) {
		return reject(GateDuplicateProof,
			"duplicate closure requires duplicate_of or a task: artifact naming the canonical task"), false
	}

	proof := m.DuplicateProof
	if proof == "" && m.ReviewHandoff != nil {
		proof = m.ReviewHandoff.TestProof
	}
	if strings.TrimSpace(proof) == "" {
		return reject(GateDuplicateProof,
			"duplicate closure requires proof text (duplicate_proof or review_handoff.test_proof)"), false
	}
	if isPlaceholderProof(proof) {
		return reject(GateDuplicateProof,
			"duplicate proof %q is a placeholder, not verifiable evidence", proof), false
	}
	return Outcome{}, true
}

// hasCanonicalReference checks for a pointer to the task this one
// duplicates: duplicate_of, or an artifacts entry in task: form.
func hasCanonicalReference(m task.Metadata) bool {
	if strings.TrimSpace(m.DuplicateOf) != "" {
		return true
	}
	for _, a := range m.Artifacts {
		if strings.HasPrefix(strings.TrimSpace(a), taskArtifactPrefix) &&
			len(strings.TrimSpace(a)) > len(taskArtifactPrefix) {
			return true
		}
	}
	return false
}

// isPlaceholderProof rejects boilerplate like "N/A - duplicate".
// Case-insensitive leading-substring match.
func isPlaceholderProof(proof string) bool {
	p := strings.ToLower(strings.TrimSpace(proof))
	for _, placeholder := range []string{"n/a", "n.a."} {
		if strings.HasPrefix(p, placeholder) {
			return true
		}
	}
	// The bare words only count as placeholders on their own or when
	// followed by a separator, so that real prose like "Nonetheless the
	// diff is empty" is not swallowed by a prefix match.
	for _, word := range []string{"na", "none", "tbd", "todo"} {
		if p == word || p == word+"." {
			return true
		}
		if strings.HasPrefix(p, word) {
			rest := strings.TrimLeft(p[len(word):], " ")
			if rest != "" && strings.ContainsRune(":-,.;/", rune(rest[0])) {
				return true
			}
		}
	}
	return false
}
