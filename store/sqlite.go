package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// SqliteStore persists sessions to a SQLite file, grounded on
// storage.SqliteStorage's table-per-entity shape but driven by
// modernc.org/sqlite (pure Go, matching the dependency this module
// actually declares) rather than the teacher's cgo mattn/go-sqlite3
// binding.
type SqliteStore struct {
	db *sql.DB
}

func NewSqliteStore(dsn string) (*SqliteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open sqlite %s: %w", dsn, err)
	}
	const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	id TEXT PRIMARY KEY,
	module_path TEXT,
	program_json BLOB,
	status TEXT,
	result TEXT,
	error TEXT,
	started_at INTEGER,
	ended_at INTEGER
);`
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("store: create schema: %w", err)
	}
	return &SqliteStore{db: db}, nil
}

func (s *SqliteStore) SaveSession(ctx context.Context, sess *Session) error {
	var endedAt any
	if sess.EndedAt != nil {
		endedAt = sess.EndedAt.Unix()
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO sessions (id, module_path, program_json, status, result, error, started_at, ended_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	module_path=excluded.module_path, program_json=excluded.program_json,
	status=excluded.status, result=excluded.result, error=excluded.error,
	started_at=excluded.started_at, ended_at=excluded.ended_at
`, sess.ID, sess.ModulePath, sess.ProgramJSON, string(sess.Status), sess.Result, sess.Error, sess.StartedAt.Unix(), endedAt)
	return err
}

func (s *SqliteStore) GetSession(ctx context.Context, id string) (*Session, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT id, module_path, program_json, status, result, error, started_at, ended_at
FROM sessions WHERE id = ?`, id)
	return scanSession(row)
}

func (s *SqliteStore) ListSessions(ctx context.Context) ([]*Session, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, module_path, program_json, status, result, error, started_at, ended_at
FROM sessions ORDER BY started_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sess)
	}
	return out, rows.Err()
}

func (s *SqliteStore) DeleteSession(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	return err
}

func (s *SqliteStore) Close() error { return s.db.Close() }

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*Session, error) {
	var sess Session
	var status string
	var startedAt int64
	var endedAt sql.NullInt64
	if err := row.Scan(&sess.ID, &sess.ModulePath, &sess.ProgramJSON, &status, &sess.Result, &sess.Error, &startedAt, &endedAt); err != nil {
		return nil, err
	}
	sess.Status = Status(status)
	sess.StartedAt = time.Unix(startedAt, 0)
	if endedAt.Valid {
		t := time.Unix(endedAt.Int64, 0)
		sess.EndedAt = &t
	}
	return &sess, nil
}
