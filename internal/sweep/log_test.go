package sweep

import (
	"fmt"
	"testing"
)

func TestAttemptLogRecent(t *testing.T) {
	l := NewAttemptLog(10)
	for i := 0; i < 3; i++ {
		l.Append("pass1", fmt.Sprintf("T-%d", i), ActionMergeSkipped, "detail")
	}

	got := l.Recent(2)
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	// Newest first.
	if got[0].TaskID != "T-2" || got[1].TaskID != "T-1" {
		t.Errorf("order = %s, %s; want T-2, T-1", got[0].TaskID, got[1].TaskID)
	}

	all := l.Recent(0)
	if len(all) != 3 {
		t.Errorf("Recent(0) = %d entries, want all 3", len(all))
	}
	if len(l.Recent(100)) != 3 {
		t.Error("limit above size should return everything")
	}
}

func TestAttemptLogRotation(t *testing.T) {
	l := NewAttemptLog(5)
	for i := 0; i < 12; i++ {
		l.Append("pass1", fmt.Sprintf("T-%d", i), ActionMergeAttempted, "detail")
	}

	got := l.Recent(0)
	if len(got) != 5 {
		t.Fatalf("retained = %d, want 5", len(got))
	}
	if got[0].TaskID != "T-11" {
		t.Errorf("newest = %s, want T-11", got[0].TaskID)
	}
	if got[4].TaskID != "T-7" {
		t.Errorf("oldest retained = %s, want T-7", got[4].TaskID)
	}
}

func TestAttemptLogEntryFields(t *testing.T) {
	l := NewAttemptLog(0)
	e := l.Append("pass9", "T-1", ActionAutoClosed, "gates satisfied")
	if e.ID == "" {
		t.Error("entry needs an id")
	}
	if e.PassID != "pass9" || e.TaskID != "T-1" {
		t.Errorf("entry = %+v", e)
	}
	if e.Timestamp.IsZero() {
		t.Error("entry needs a timestamp")
	}
}
