package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/steveyegge/mergegate/internal/task"
)

// storeUnderTest lets the memory and SQLite stores share one behavior
// suite; they must be interchangeable.
type storeUnderTest interface {
	Store
	seed(t *testing.T, tk *task.Task)
}

type memoryHarness struct{ *Memory }

func (h memoryHarness) seed(_ *testing.T, tk *task.Task) { h.Put(tk) }

type sqliteHarness struct{ *SQLite }

func (h sqliteHarness) seed(t *testing.T, tk *task.Task) {
	t.Helper()
	if err := h.Put(context.Background(), tk); err != nil {
		t.Fatalf("seeding %s: %v", tk.ID, err)
	}
}

func harnesses(t *testing.T) map[string]storeUnderTest {
	t.Helper()
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "tasks.db"))
	if err != nil {
		t.Fatalf("opening sqlite: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return map[string]storeUnderTest{
		"memory": memoryHarness{NewMemory()},
		"sqlite": sqliteHarness{db},
	}
}

func boolPtr(b bool) *bool { return &b }

func TestStoreGet(t *testing.T) {
	for name, st := range harnesses(t) {
		t.Run(name, func(t *testing.T) {
			st.seed(t, &task.Task{
				ID:     "T-1",
				Status: task.StatusValidating,
				Metadata: task.Metadata{
					PRURL:    "https://github.com/acme/widgets/pull/1",
					PRMerged: boolPtr(true),
				},
			})

			got, err := st.Get(context.Background(), "T-1")
			if err != nil {
				t.Fatalf("Get: %v", err)
			}
			if got.Status != task.StatusValidating {
				t.Errorf("status = %s", got.Status)
			}
			if got.Metadata.PRMerged == nil || !*got.Metadata.PRMerged {
				t.Error("metadata lost on round trip")
			}

			if _, err := st.Get(context.Background(), "ghost"); !errors.Is(err, ErrNotFound) {
				t.Errorf("missing task err = %v, want ErrNotFound", err)
			}
		})
	}
}

func TestStoreListFilter(t *testing.T) {
	for name, st := range harnesses(t) {
		t.Run(name, func(t *testing.T) {
			st.seed(t, &task.Task{ID: "T-1", Status: task.StatusValidating})
			st.seed(t, &task.Task{ID: "T-3", Status: task.StatusValidating})
			st.seed(t, &task.Task{ID: "T-2", Status: task.StatusDoing})

			got, err := st.List(context.Background(), Filter{Status: task.StatusValidating})
			if err != nil {
				t.Fatal(err)
			}
			if len(got) != 2 || got[0].ID != "T-1" || got[1].ID != "T-3" {
				t.Errorf("filtered list = %v", ids(got))
			}

			all, err := st.List(context.Background(), Filter{})
			if err != nil {
				t.Fatal(err)
			}
			if len(all) != 3 {
				t.Errorf("unfiltered list = %v", ids(all))
			}
		})
	}
}

func TestStoreUpdate(t *testing.T) {
	for name, st := range harnesses(t) {
		t.Run(name, func(t *testing.T) {
			st.seed(t, &task.Task{ID: "T-1", Status: task.StatusValidating})

			updated, err := st.Update(context.Background(), "T-1", func(tk *task.Task) error {
				tk.Status = task.StatusDone
				tk.Metadata.AutoCloseReason = "test close"
				return nil
			})
			if err != nil {
				t.Fatalf("Update: %v", err)
			}
			if updated.Status != task.StatusDone || updated.Version != 1 {
				t.Errorf("updated = %+v", updated)
			}

			persisted, _ := st.Get(context.Background(), "T-1")
			if persisted.Metadata.AutoCloseReason != "test close" {
				t.Error("metadata change not persisted")
			}
		})
	}
}

func TestStoreUpdateAbortsOnError(t *testing.T) {
	sentinel := errors.New("nope")
	for name, st := range harnesses(t) {
		t.Run(name, func(t *testing.T) {
			st.seed(t, &task.Task{ID: "T-1", Status: task.StatusValidating})

			_, err := st.Update(context.Background(), "T-1", func(tk *task.Task) error {
				tk.Status = task.StatusDone
				return sentinel
			})
			if !errors.Is(err, sentinel) {
				t.Fatalf("err = %v, want sentinel", err)
			}

			persisted, _ := st.Get(context.Background(), "T-1")
			if persisted.Status != task.StatusValidating || persisted.Version != 0 {
				t.Errorf("aborted update leaked: %+v", persisted)
			}
		})
	}
}

func TestStoreUpdateMissingTask(t *testing.T) {
	for name, st := range harnesses(t) {
		t.Run(name, func(t *testing.T) {
			_, err := st.Update(context.Background(), "ghost", func(tk *task.Task) error {
				return nil
			})
			if !errors.Is(err, ErrNotFound) {
				t.Errorf("err = %v, want ErrNotFound", err)
			}
		})
	}
}

func TestMemoryGetReturnsClone(t *testing.T) {
	st := NewMemory()
	st.Put(&task.Task{ID: "T-1", Status: task.StatusDoing, Metadata: task.Metadata{ETA: "2h"}})

	got, err := st.Get(context.Background(), "T-1")
	if err != nil {
		t.Fatal(err)
	}
	got.Metadata.ETA = "mutated"

	again, _ := st.Get(context.Background(), "T-1")
	if again.Metadata.ETA != "2h" {
		t.Error("Get leaked a shared reference")
	}
}

func ids(tasks []*task.Task) []string {
	out := make([]string, len(tasks))
	for i, t := range tasks {
		out[i] = t.ID
	}
	return out
}
