package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/aluiziolira/go-scrape-goodreads/models"
	_ "modernc.org/sqlite"
)

// SQLiteLoader loads records into an embedded SQLite database.
type SQLiteLoader struct {
	db    *sql.DB
	table string
	mode  string
}

// OpenSQLite opens the database file at path, creating parent directories.
func OpenSQLite(ctx context.Context, path string, opts ...Option) (*SQLiteLoader, error) {
	o, err := buildOptions(opts)
	if err != nil {
		return nil, err
	}
	if err := ensureDir(path); err != nil {
		return nil, StoreError{Op: "open", Err: err}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, StoreError{Op: "open", Err: err}
	}
	// A single connection keeps :memory: databases coherent and serialises writers.
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, StoreError{Op: "ping", Err: err}
	}
	return &SQLiteLoader{db: db, table: quoteIdent(o.Table), mode: o.Mode}, nil
}

// Load inserts records with one prepared statement inside a transaction.
func (l *SQLiteLoader) Load(ctx context.Context, records []models.Record) (int, error) {
	if err := checkRecords(records); err != nil {
		return 0, err
	}

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, StoreError{Op: "begin", Err: err}
	}
	defer tx.Rollback()

	if l.mode == ModeReplace {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+l.table); err != nil {
			return 0, StoreError{Op: "replace", Err: err}
		}
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO `+l.table+`
		(title, author, avg_rating, num_ratings, score, people_voted)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, StoreError{Op: "prepare", Err: err}
	}
	defer stmt.Close()

	total := 0
	for i, r := range records {
		res, err := stmt.ExecContext(ctx, r.Title, r.Author, r.AvgRating, r.NumRatings, r.Score, r.PeopleVoted)
		if err != nil {
			return 0, StoreError{Op: "insert", Err: fmt.Errorf("record %d: %w", i, err)}
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, StoreError{Op: "insert", Err: err}
		}
		total += int(n)
	}

	if err := tx.Commit(); err != nil {
		return 0, StoreError{Op: "commit", Err: err}
	}
	return total, nil
}

// EnsureSchema creates the table when it does not exist.
func (l *SQLiteLoader) EnsureSchema(ctx context.Context) error {
	ddl := `CREATE TABLE IF NOT EXISTS ` + l.table + ` (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		title TEXT NOT NULL,
		author TEXT,
		avg_rating REAL,
		num_ratings INTEGER,
		score INTEGER,
		people_voted INTEGER
	)`
	if _, err := l.db.ExecContext(ctx, ddl); err != nil {
		return StoreError{Op: "create table", Err: err}
	}
	return nil
}

// Close closes the database.
func (l *SQLiteLoader) Close() error {
	return l.db.Close()
}

func quoteIdent(name string) string {
	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = `"` + strings.ReplaceAll(p, `"`, `""`) + `"`
	}
	return strings.Join(parts, ".")
}

func ensureDir(path string) error {
	if path == "" || strings.HasPrefix(path, "file:") || strings.HasPrefix(path, ":memory:") {
		return nil
	}
	dir := filepath.Dir(path)
	if dir == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory %q: %w", dir, err)
	}
	return nil
}
