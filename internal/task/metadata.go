package task

import (
	"encoding/json"
)

// ReviewHandoff is the structured handoff an agent submits when moving
// work into validation. The gate enforcer requires artifact_path,
// test_proof, and known_caveats to be non-empty.
type ReviewHandoff struct {
	ArtifactPath string   `json:"artifact_path,omitempty"`
	TestProof    string   `json:"test_proof,omitempty"`
	KnownCaveats string   `json:"known_caveats,omitempty"`
	PRURL        string   `json:"pr_url,omitempty"`
	CommitSHA    string   `json:"commit_sha,omitempty"`
	ChangedFiles []string `json:"changed_files,omitempty"`
	DocOnly      bool     `json:"doc_only,omitempty"`
}

// Metadata is the task's open attribute map. Gate-relevant keys are
// typed fields so the gate logic stays statically checkable; everything
// else upstream producers attach rides along in Extra untouched.
type Metadata struct {
	ETA              string         `json:"-"`
	ArtifactPath     string         `json:"-"`
	ReviewHandoff    *ReviewHandoff `json:"-"`
	PRURL            string         `json:"-"`
	PRMerged         *bool          `json:"-"`
	ReviewerApproved *bool          `json:"-"`
	CommitSHA        string         `json:"-"`
	DuplicateOf      string         `json:"-"`
	DuplicateProof   string         `json:"-"`
	AutoCloseReason  string         `json:"-"`
	Artifacts        []string       `json:"-"`

	// Extra holds fields this system does not interpret. Preserved
	// byte-for-byte across read-modify-write cycles.
	Extra map[string]json.RawMessage `json:"-"`
}

// knownKeys are the metadata fields lifted out of the open map.
var knownKeys = map[string]bool{
	"eta":               true,
	"artifact_path":     true,
	"review_handoff":    true,
	"pr_url":            true,
	"pr_merged":         true,
	"reviewer_approved": true,
	"commit_sha":        true,
	"duplicate_of":      true,
	"duplicate_proof":   true,
	"auto_close_reason": true,
	"artifacts":         true,
}

// metadataWire is the typed half of the wire format.
type metadataWire struct {
	ETA              string         `json:"eta,omitempty"`
	ArtifactPath     string         `json:"artifact_path,omitempty"`
	ReviewHandoff    *ReviewHandoff `json:"review_handoff,omitempty"`
	PRURL            string         `json:"pr_url,omitempty"`
	PRMerged         *bool          `json:"pr_merged,omitempty"`
	ReviewerApproved *bool          `json:"reviewer_approved,omitempty"`
	CommitSHA        string         `json:"commit_sha,omitempty"`
	DuplicateOf      string         `json:"duplicate_of,omitempty"`
	DuplicateProof   string         `json:"duplicate_proof,omitempty"`
	AutoCloseReason  string         `json:"auto_close_reason,omitempty"`
	Artifacts        []string       `json:"artifacts,omitempty"`
}

// MarshalJSON flattens typed fields and Extra into one object.
// Typed fields win on key collision.
func (m Metadata) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.RawMessage, len(m.Extra)+8)
	for k, v := range m.Extra {
		if !knownKeys[k] {
			out[k] = v
		}
	}
	typed, err := json.Marshal(metadataWire{
		ETA:              m.ETA,
		ArtifactPath:     m.ArtifactPath,
		ReviewHandoff:    m.ReviewHandoff,
		PRURL:            m.PRURL,
		PRMerged:         m.PRMerged,
		ReviewerApproved: m.ReviewerApproved,
		CommitSHA:        m.CommitSHA,
		DuplicateOf:      m.DuplicateOf,
		DuplicateProof:   m.DuplicateProof,
		AutoCloseReason:  m.AutoCloseReason,
		Artifacts:        m.Artifacts,
	})
	if err != nil {
		return nil, err
	}
	var typedMap map[string]json.RawMessage
	if err := json.Unmarshal(typed, &typedMap); err != nil {
		return nil, err
	}
	for k, v := range typedMap {
		out[k] = v
	}
	return json.Marshal(out)
}

// UnmarshalJSON splits an incoming object into typed fields and Extra.
func (m *Metadata) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	var wire metadataWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	*m = Metadata{
		ETA:              wire.ETA,
		ArtifactPath:     wire.ArtifactPath,
		ReviewHandoff:    wire.ReviewHandoff,
		PRURL:            wire.PRURL,
		PRMerged:         wire.PRMerged,
		ReviewerApproved: wire.ReviewerApproved,
		CommitSHA:        wire.CommitSHA,
		DuplicateOf:      wire.DuplicateOf,
		DuplicateProof:   wire.DuplicateProof,
		AutoCloseReason:  wire.AutoCloseReason,
		Artifacts:        wire.Artifacts,
	}
	for k, v := range raw {
		if knownKeys[k] {
			continue
		}
		if m.Extra == nil {
			m.Extra = make(map[string]json.RawMessage)
		}
		m.Extra[k] = v
	}
	return nil
}

// Clone returns a deep copy of the metadata.
func (m Metadata) Clone() Metadata {
	c := m
	if m.ReviewHandoff != nil {
		rh := *m.ReviewHandoff
		c.ReviewHandoff = &rh
	}
	if m.PRMerged != nil {
		b := *m.PRMerged
		c.PRMerged = &b
	}
	if m.ReviewerApproved != nil {
		b := *m.ReviewerApproved
		c.ReviewerApproved = &b
	}
	if m.Artifacts != nil {
		c.Artifacts = append([]string(nil), m.Artifacts...)
	}
	if m.Extra != nil {
		c.Extra = make(map[string]json.RawMessage, len(m.Extra))
		for k, v := range m.Extra {
			c.Extra[k] = v
		}
	}
	return c
}

// Merge overlays a patch onto the metadata. Only fields the patch sets
// (non-zero, non-nil) replace existing values, so a status-change request
// carrying a partial metadata object never erases unrelated fields.
func (m Metadata) Merge(patch Metadata) Metadata {
	out := m.Clone()
	if patch.ETA != "" {
		out.ETA = patch.ETA
	}
	if patch.ArtifactPath != "" {
		out.ArtifactPath = patch.ArtifactPath
	}
	if patch.ReviewHandoff != nil {
		rh := *patch.ReviewHandoff
		out.ReviewHandoff = &rh
	}
	if patch.PRURL != "" {
		out.PRURL = patch.PRURL
	}
	if patch.PRMerged != nil {
		b := *patch.PRMerged
		out.PRMerged = &b
	}
	if patch.ReviewerApproved != nil {
		b := *patch.ReviewerApproved
		out.ReviewerApproved = &b
	}
	if patch.CommitSHA != "" {
		out.CommitSHA = patch.CommitSHA
	}
	if patch.DuplicateOf != "" {
		out.DuplicateOf = patch.DuplicateOf
	}
	if patch.DuplicateProof != "" {
		out.DuplicateProof = patch.DuplicateProof
	}
	if patch.AutoCloseReason != "" {
		out.AutoCloseReason = patch.AutoCloseReason
	}
	if patch.Artifacts != nil {
		out.Artifacts = append([]string(nil), patch.Artifacts...)
	}
	for k, v := range patch.Extra {
		if out.Extra == nil {
			out.Extra = make(map[string]json.RawMessage)
		}
		out.Extra[k] = v
	}
	return out
}

// EffectivePRURL returns the PR link for a task, preferring the
// top-level field over the handoff copy.
func (m Metadata) EffectivePRURL() string {
	if m.PRURL != "" {
		return m.PRURL
	}
	if m.ReviewHandoff != nil {
		return m.ReviewHandoff.PRURL
	}
	return ""
}

// CloseGatesSatisfied reports whether both terminal-closure gates hold.
func (m Metadata) CloseGatesSatisfied() bool {
	return m.PRMerged != nil && *m.PRMerged &&
		m.ReviewerApproved != nil && *m.ReviewerApproved
}
