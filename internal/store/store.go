// Package store persists hunk assignments in SQLite. Only the identity of
// an assignment is stored: id, header, path and stack. Locks and line
// numbers are derived again on every run.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/jensroland/git-hunklock/internal/assign"
	"github.com/jensroland/git-hunklock/internal/hunk"
)

const schema = `
CREATE TABLE IF NOT EXISTS hunk_assignments (
	seq INTEGER PRIMARY KEY AUTOINCREMENT,
	id TEXT,
	hunk_header TEXT,
	path TEXT NOT NULL,
	path_bytes BLOB NOT NULL,
	stack_id TEXT
);
CREATE INDEX IF NOT EXISTS idx_hunk_assignments_path ON hunk_assignments(path_bytes);
`

// Store is the assignment table of one repository.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}
	db, err := sql.Open("sqlite", "file:"+path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create table: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Load returns the persisted assignments in the order they were written.
func (s *Store) Load(ctx context.Context) ([]assign.Assignment, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, hunk_header, path, path_bytes, stack_id FROM hunk_assignments ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("query assignments: %w", err)
	}
	defer rows.Close()

	var out []assign.Assignment
	for rows.Next() {
		a, err := scanRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func scanRow(rows *sql.Rows) (assign.Assignment, error) {
	var (
		id, header, stack sql.NullString
		a                 assign.Assignment
	)
	if err := rows.Scan(&id, &header, &a.Path, &a.PathBytes, &stack); err != nil {
		return a, fmt.Errorf("scan assignment: %w", err)
	}
	if id.Valid {
		v, err := uuid.Parse(id.String)
		if err != nil {
			return a, fmt.Errorf("assignment %s: invalid id: %w", a.Path, err)
		}
		a.ID = &v
	}
	if header.Valid {
		var h hunk.Header
		if err := json.Unmarshal([]byte(header.String), &h); err != nil {
			return a, fmt.Errorf("assignment %s: invalid hunk header: %w", a.Path, err)
		}
		a.Header = &h
	}
	if stack.Valid {
		v, err := uuid.Parse(stack.String)
		if err != nil {
			return a, fmt.Errorf("assignment %s: invalid stack id: %w", a.Path, err)
		}
		a.StackID = &v
	}
	return a, nil
}

// Replace overwrites all persisted assignments in one transaction.
func (s *Store) Replace(ctx context.Context, assignments []assign.Assignment) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM hunk_assignments`); err != nil {
		return fmt.Errorf("clear assignments: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO hunk_assignments (id, hunk_header, path, path_bytes, stack_id)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, a := range assignments {
		var id, header, stack sql.NullString
		if a.ID != nil {
			id = sql.NullString{String: a.ID.String(), Valid: true}
		}
		if a.Header != nil {
			b, err := json.Marshal(a.Header)
			if err != nil {
				return err
			}
			header = sql.NullString{String: string(b), Valid: true}
		}
		if a.StackID != nil {
			stack = sql.NullString{String: a.StackID.String(), Valid: true}
		}
		pathBytes := a.PathBytes
		if pathBytes == nil {
			pathBytes = []byte(a.Path)
		}
		if _, err := stmt.ExecContext(ctx, id, header, a.Path, pathBytes, stack); err != nil {
			return fmt.Errorf("insert assignment %s: %w", a.Path, err)
		}
	}
	return tx.Commit()
}
