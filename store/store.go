// Package store persists crawled records. Every load runs in a single
// transaction: either all rows of a batch are committed or none are.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aluiziolira/go-scrape-goodreads/models"
)

// Load modes.
const (
	ModeAppend  = "append"
	ModeReplace = "replace"
)

// DefaultTable is the table records are written to.
const DefaultTable = "goodreads_books"

// ErrUnsupportedDSN is returned by Open for an unknown connection scheme.
var ErrUnsupportedDSN = errors.New("store: unsupported dsn")

// EmptyInputError is returned when Load is given no records.
type EmptyInputError struct{}

func (EmptyInputError) Error() string {
	return "store: no records to load"
}

// StoreError wraps any failure during a load. The batch has been rolled
// back when it is returned.
type StoreError struct {
	Op  string
	Err error
}

func (e StoreError) Error() string {
	return fmt.Sprintf("store: %s: %v", e.Op, e.Err)
}

func (e StoreError) Unwrap() error {
	return e.Err
}

// Loader writes record batches to a table.
type Loader interface {
	Load(ctx context.Context, records []models.Record) (int, error)
	EnsureSchema(ctx context.Context) error
	Close() error
}

// Options configure a loader.
type Options struct {
	Table string
	Mode  string
}

// Option mutates Options.
type Option func(*Options)

// WithTable sets the target table, optionally schema-qualified.
func WithTable(table string) Option {
	return func(o *Options) {
		if table != "" {
			o.Table = table
		}
	}
}

// WithMode selects append or replace semantics. Replace deletes existing
// rows inside the same transaction as the insert.
func WithMode(mode string) Option {
	return func(o *Options) {
		if mode != "" {
			o.Mode = strings.ToLower(mode)
		}
	}
}

func buildOptions(opts []Option) (Options, error) {
	o := Options{Table: DefaultTable, Mode: ModeAppend}
	for _, opt := range opts {
		opt(&o)
	}
	if o.Mode != ModeAppend && o.Mode != ModeReplace {
		return o, fmt.Errorf("store: unknown load mode %q", o.Mode)
	}
	return o, nil
}

// Open returns a loader for dsn. Supported schemes are postgres://,
// postgresql://, sqlite:// and file:.
func Open(ctx context.Context, dsn string, opts ...Option) (Loader, error) {
	switch {
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		return OpenPostgres(ctx, dsn, opts...)
	case strings.HasPrefix(dsn, "sqlite://"):
		return OpenSQLite(ctx, strings.TrimPrefix(dsn, "sqlite://"), opts...)
	case strings.HasPrefix(dsn, "file:"):
		return OpenSQLite(ctx, dsn, opts...)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedDSN, redact(dsn))
}

// Load opens dsn, writes records in one transaction and closes the store.
func Load(ctx context.Context, dsn string, records []models.Record, opts ...Option) (int, error) {
	if len(records) == 0 {
		return 0, EmptyInputError{}
	}
	l, err := Open(ctx, dsn, opts...)
	if err != nil {
		return 0, err
	}
	defer l.Close()
	return l.Load(ctx, records)
}

func checkRecords(records []models.Record) error {
	if len(records) == 0 {
		return EmptyInputError{}
	}
	for i, r := range records {
		if !r.HasTitle() {
			return StoreError{Op: "validate", Err: fmt.Errorf("record %d missing title", i)}
		}
	}
	return nil
}

func redact(dsn string) string {
	scheme, rest, ok := strings.Cut(dsn, "://")
	if !ok {
		return dsn
	}
	if at := strings.LastIndex(rest, "@"); at >= 0 {
		return scheme + "://***@" + rest[at+1:]
	}
	return dsn
}
