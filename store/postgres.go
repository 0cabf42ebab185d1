package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/aluiziolira/go-scrape-goodreads/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type txBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// PostgresLoader loads records through a pgx pool.
type PostgresLoader struct {
	db    txBeginner
	pool  *pgxpool.Pool
	table string
	mode  string
}

// OpenPostgres connects a small pool to dsn and verifies it.
func OpenPostgres(ctx context.Context, dsn string, opts ...Option) (*PostgresLoader, error) {
	o, err := buildOptions(opts)
	if err != nil {
		return nil, err
	}
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, StoreError{Op: "parse dsn", Err: err}
	}
	cfg.MaxConns = 2
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, StoreError{Op: "connect", Err: err}
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, StoreError{Op: "ping", Err: err}
	}
	l := newPostgresLoader(pool, o)
	l.pool = pool
	return l, nil
}

func newPostgresLoader(db txBeginner, o Options) *PostgresLoader {
	return &PostgresLoader{
		db:    db,
		table: pgx.Identifier(strings.Split(o.Table, ".")).Sanitize(),
		mode:  o.Mode,
	}
}

// Load inserts records as one pgx batch inside a single transaction.
func (l *PostgresLoader) Load(ctx context.Context, records []models.Record) (int, error) {
	if err := checkRecords(records); err != nil {
		return 0, err
	}

	tx, err := l.db.Begin(ctx)
	if err != nil {
		return 0, StoreError{Op: "begin", Err: err}
	}
	// No-op once committed.
	defer func() { _ = tx.Rollback(context.WithoutCancel(ctx)) }()

	if l.mode == ModeReplace {
		if _, err := tx.Exec(ctx, "DELETE FROM "+l.table); err != nil {
			return 0, StoreError{Op: "replace", Err: err}
		}
	}

	insert := `INSERT INTO ` + l.table + `
		(title, author, avg_rating, num_ratings, score, people_voted)
		VALUES ($1, $2, $3, $4, $5, $6)`

	b := &pgx.Batch{}
	for _, r := range records {
		b.Queue(insert, r.Title, r.Author, r.AvgRating, r.NumRatings, r.Score, r.PeopleVoted)
	}

	br := tx.SendBatch(ctx, b)
	total := 0
	for i := 0; i < b.Len(); i++ {
		tag, err := br.Exec()
		if err != nil {
			_ = br.Close()
			return 0, StoreError{Op: "insert", Err: fmt.Errorf("record %d: %w", i, err)}
		}
		total += int(tag.RowsAffected())
	}
	if err := br.Close(); err != nil {
		return 0, StoreError{Op: "insert", Err: err}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, StoreError{Op: "commit", Err: err}
	}
	return total, nil
}

// EnsureSchema creates the table when it does not exist.
func (l *PostgresLoader) EnsureSchema(ctx context.Context) error {
	ddl := `CREATE TABLE IF NOT EXISTS ` + l.table + ` (
		id BIGSERIAL PRIMARY KEY,
		title TEXT NOT NULL,
		author TEXT,
		avg_rating DOUBLE PRECISION,
		num_ratings BIGINT,
		score BIGINT,
		people_voted BIGINT
	)`
	tx, err := l.db.Begin(ctx)
	if err != nil {
		return StoreError{Op: "begin", Err: err}
	}
	defer func() { _ = tx.Rollback(context.WithoutCancel(ctx)) }()
	if _, err := tx.Exec(ctx, ddl); err != nil {
		return StoreError{Op: "create table", Err: err}
	}
	if err := tx.Commit(ctx); err != nil {
		return StoreError{Op: "commit", Err: err}
	}
	return nil
}

// Close releases the pool.
func (l *PostgresLoader) Close() error {
	if l.pool != nil {
		l.pool.Close()
	}
	return nil
}
