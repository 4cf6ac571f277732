package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/steveyegge/mergegate/internal/task"
)

const schema = `
CREATE TABLE IF NOT EXISTS tasks (
	id         TEXT PRIMARY KEY,
	status     TEXT NOT NULL,
	assignee   TEXT NOT NULL DEFAULT '',
	reviewer   TEXT NOT NULL DEFAULT '',
	metadata   TEXT NOT NULL DEFAULT '{}',
	version    INTEGER NOT NULL DEFAULT 0,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_tasks_status ON tasks(status);
`

// SQLite is the persistent Store used by the daemon.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (and if needed initializes) the task database.
// busy_timeout keeps concurrent request-path and sweep-path writers
// queueing instead of failing with SQLITE_BUSY.
func OpenSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path+"?_txlock=immediate&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("opening task database %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing task schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

// Close closes the underlying database.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// Put inserts or replaces a record. Seeding/operator helper.
func (s *SQLite) Put(ctx context.Context, t *task.Task) error {
	meta, err := json.Marshal(t.Metadata)
	if err != nil {
		return fmt.Errorf("encoding metadata for %s: %w", t.ID, err)
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)
	created := now
	if !t.CreatedAt.IsZero() {
		created = t.CreatedAt.UTC().Format(time.RFC3339Nano)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO tasks (id, status, assignee, reviewer, metadata, version, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			assignee = excluded.assignee,
			reviewer = excluded.reviewer,
			metadata = excluded.metadata,
			version = excluded.version,
			updated_at = excluded.updated_at`,
		t.ID, string(t.Status), t.Assignee, t.Reviewer, string(meta), t.Version, created, now)
	if err != nil {
		return fmt.Errorf("writing task %s: %w", t.ID, err)
	}
	return nil
}

// Get returns a single record.
func (s *SQLite) Get(ctx context.Context, id string) (*task.Task, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, status, assignee, reviewer, metadata, version, created_at, updated_at
		FROM tasks WHERE id = ?`, id)
	t, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return t, err
}

// List returns matching records ordered by id.
func (s *SQLite) List(ctx context.Context, f Filter) ([]*task.Task, error) {
	query := `
		SELECT id, status, assignee, reviewer, metadata, version, created_at, updated_at
		FROM tasks`
	var args []any
	if f.Status != "" {
		query += ` WHERE status = ?`
		args = append(args, string(f.Status))
	}
	query += ` ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing tasks: %w", err)
	}
	defer rows.Close()

	var out []*task.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// Update runs mutate inside an immediate transaction with a version
// guard. BEGIN IMMEDIATE takes the write lock up front so the
// read-modify-write is serialized against other writers; the version
// check catches anything that still slipped in between.
func (s *SQLite) Update(ctx context.Context, id string, mutate func(*task.Task) error) (*task.Task, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("starting update for %s: %w", id, err)
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx, `
		SELECT id, status, assignee, reviewer, metadata, version, created_at, updated_at
		FROM tasks WHERE id = ?`, id)
	cur, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	next := cur.Clone()
	if err := mutate(next); err != nil {
		return nil, err
	}
	next.Version = cur.Version + 1
	next.UpdatedAt = time.Now().UTC()

	meta, err := json.Marshal(next.Metadata)
	if err != nil {
		return nil, fmt.Errorf("encoding metadata for %s: %w", id, err)
	}
	res, err := tx.ExecContext(ctx, `
		UPDATE tasks
		SET status = ?, assignee = ?, reviewer = ?, metadata = ?, version = ?, updated_at = ?
		WHERE id = ? AND version = ?`,
		string(next.Status), next.Assignee, next.Reviewer, string(meta),
		next.Version, next.UpdatedAt.Format(time.RFC3339Nano),
		id, cur.Version)
	if err != nil {
		return nil, fmt.Errorf("writing task %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, ErrStaleWrite
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing update for %s: %w", id, err)
	}
	return next, nil
}

// rowScanner covers both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*task.Task, error) {
	var t task.Task
	var status, meta, created, updated string
	if err := row.Scan(&t.ID, &status, &t.Assignee, &t.Reviewer, &meta, &t.Version, &created, &updated); err != nil {
		return nil, err
	}
	t.Status = task.Status(status)
	if err := json.Unmarshal([]byte(meta), &t.Metadata); err != nil {
		return nil, fmt.Errorf("decoding metadata for %s: %w", t.ID, err)
	}
	if ts, err := time.Parse(time.RFC3339Nano, created); err == nil {
		t.CreatedAt = ts
	}
	if ts, err := time.Parse(time.RFC3339Nano, updated); err == nil {
		t.UpdatedAt = ts
	}
	return &t, nil
}
