package sink

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/spigell/cv-parser/internal/record"
)

const tableName = "candidates"

// SQLite appends rows to a candidates table. Every row carries the run id of
// the SQLite value that wrote it.
type SQLite struct {
	db     *sql.DB
	runID  uuid.UUID
	insert string
	now    func() time.Time
}

// StoredRow is a row read back from the table.
type StoredRow struct {
	RunID     string
	CreatedAt string
	Values    map[string]string
}

// OpenSQLite opens or creates the database at path and its schema.
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("sqlite sink: empty path")
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("sqlite sink: mkdir %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite sink: open db: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := initSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite sink: init schema: %w", err)
	}

	keys := record.Keys()
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(keys)+2), ", ")
	insert := fmt.Sprintf(`INSERT INTO %s (run_id, created_at, %s) VALUES (%s)`,
		tableName, strings.Join(keys, ", "), placeholders)

	return &SQLite{
		db:     db,
		runID:  uuid.New(),
		insert: insert,
		now:    time.Now,
	}, nil
}

func initSchema(ctx context.Context, db *sql.DB) error {
	cols := make([]string, 0, len(record.Columns))
	for _, c := range record.Columns {
		cols = append(cols, fmt.Sprintf("\t\t%s TEXT NOT NULL", c.Key))
	}

	_, err := db.ExecContext(ctx, fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id     TEXT NOT NULL,
		created_at TEXT NOT NULL,
%s
	)`, tableName, strings.Join(cols, ",\n")))
	return err
}

// RunID identifies the rows written through this value.
func (s *SQLite) RunID() string {
	return s.runID.String()
}

// AppendRow inserts one row. values must be ordered like record.Columns.
func (s *SQLite) AppendRow(ctx context.Context, values []string) error {
	if len(values) != len(record.Columns) {
		return fmt.Errorf("%w: got %d values, want %d", ErrColumnMismatch, len(values), len(record.Columns))
	}

	args := make([]any, 0, len(values)+2)
	args = append(args, s.runID.String(), s.now().UTC().Format(time.RFC3339))
	for _, v := range values {
		args = append(args, v)
	}

	if _, err := s.db.ExecContext(ctx, s.insert, args...); err != nil {
		return fmt.Errorf("sqlite sink: insert: %w", err)
	}
	return nil
}

// Rows returns the rows of one run in insertion order. An empty runID
// returns every row.
func (s *SQLite) Rows(ctx context.Context, runID string) ([]StoredRow, error) {
	keys := record.Keys()
	query := fmt.Sprintf(`SELECT run_id, created_at, %s FROM %s`, strings.Join(keys, ", "), tableName)

	var args []any
	if runID != "" {
		query += ` WHERE run_id = ?`
		args = append(args, runID)
	}
	query += ` ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite sink: query: %w", err)
	}
	defer rows.Close()

	var out []StoredRow
	for rows.Next() {
		values := make([]string, len(keys))
		dest := make([]any, 0, len(keys)+2)
		var row StoredRow
		dest = append(dest, &row.RunID, &row.CreatedAt)
		for i := range values {
			dest = append(dest, &values[i])
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("sqlite sink: scan: %w", err)
		}
		row.Values = make(map[string]string, len(keys))
		for i, k := range keys {
			row.Values[k] = values[i]
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite sink: rows: %w", err)
	}
	return out, nil
}

// Close closes the database.
func (s *SQLite) Close() error {
	return s.db.Close()
}
