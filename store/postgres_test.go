package store

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/aluiziolira/go-scrape-goodreads/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
)

type fakeBatchResults struct {
	pgx.BatchResults
	failAt int
	calls  int
	closed bool
}

func (b *fakeBatchResults) Exec() (pgconn.CommandTag, error) {
	b.calls++
	if b.failAt > 0 && b.calls == b.failAt {
		return pgconn.CommandTag{}, errors.New("value too long")
	}
	return pgconn.NewCommandTag("INSERT 0 1"), nil
}

func (b *fakeBatchResults) Close() error {
	b.closed = true
	return nil
}

type fakeTx struct {
	pgx.Tx
	execs      []string
	batch      *pgx.Batch
	results    *fakeBatchResults
	commitErr  error
	committed  bool
	rolledBack bool
}

func (tx *fakeTx) Exec(_ context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
	tx.execs = append(tx.execs, sql)
	return pgconn.NewCommandTag("DELETE 3"), nil
}

func (tx *fakeTx) SendBatch(_ context.Context, b *pgx.Batch) pgx.BatchResults {
	tx.batch = b
	return tx.results
}

func (tx *fakeTx) Commit(context.Context) error {
	if tx.commitErr != nil {
		return tx.commitErr
	}
	tx.committed = true
	return nil
}

func (tx *fakeTx) Rollback(context.Context) error {
	if !tx.committed {
		tx.rolledBack = true
	}
	return nil
}

type fakeBeginner struct {
	tx  *fakeTx
	err error
}

func (f *fakeBeginner) Begin(context.Context) (pgx.Tx, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.tx, nil
}

func newFakeLoader(t *testing.T, tx *fakeTx, opts ...Option) *PostgresLoader {
	t.Helper()
	o, err := buildOptions(opts)
	require.NoError(t, err)
	return newPostgresLoader(&fakeBeginner{tx: tx}, o)
}

func TestPostgresLoadQueuesOneInsertPerRecord(t *testing.T) {
	tx := &fakeTx{results: &fakeBatchResults{}}
	l := newFakeLoader(t, tx)

	recs := sampleRecords("A", "B")
	recs = append(recs, models.Record{Title: "C"})
	n, err := l.Load(context.Background(), recs)
	require.NoError(t, err)
	require.Equal(t, 3, n)

	require.True(t, tx.committed)
	require.Empty(t, tx.execs)
	require.Equal(t, 3, tx.batch.Len())
	require.True(t, tx.results.closed)

	first := tx.batch.QueuedQueries[0]
	require.Contains(t, first.SQL, `INSERT INTO "goodreads_books"`)
	require.Contains(t, first.SQL, "$6")
	require.Len(t, first.Arguments, 6)
	require.Equal(t, "A", first.Arguments[0])

	last := tx.batch.QueuedQueries[2]
	require.Equal(t, "C", last.Arguments[0])
	require.Nil(t, last.Arguments[1].(*string))
	require.Nil(t, last.Arguments[2].(*float64))
}

func TestPostgresLoadReplaceDeletesInsideTransaction(t *testing.T) {
	tx := &fakeTx{results: &fakeBatchResults{}}
	l := newFakeLoader(t, tx, WithMode(ModeReplace), WithTable("public.books"))

	_, err := l.Load(context.Background(), sampleRecords("A"))
	require.NoError(t, err)
	require.Equal(t, []string{`DELETE FROM "public"."books"`}, tx.execs)
	require.True(t, tx.committed)
}

func TestPostgresLoadRollsBackOnInsertFailure(t *testing.T) {
	tx := &fakeTx{results: &fakeBatchResults{failAt: 2}}
	l := newFakeLoader(t, tx)

	n, err := l.Load(context.Background(), sampleRecords("A", "B", "C"))
	require.Zero(t, n)
	var storeErr StoreError
	require.ErrorAs(t, err, &storeErr)
	require.Equal(t, "insert", storeErr.Op)
	require.True(t, strings.Contains(err.Error(), "record 1"))
	require.False(t, tx.committed)
	require.True(t, tx.rolledBack)
	require.True(t, tx.results.closed)
}

func TestPostgresLoadCommitFailure(t *testing.T) {
	tx := &fakeTx{results: &fakeBatchResults{}, commitErr: errors.New("serialization failure")}
	l := newFakeLoader(t, tx)

	_, err := l.Load(context.Background(), sampleRecords("A"))
	var storeErr StoreError
	require.ErrorAs(t, err, &storeErr)
	require.Equal(t, "commit", storeErr.Op)
	require.True(t, tx.rolledBack)
}

func TestPostgresLoadBeginFailure(t *testing.T) {
	o, err := buildOptions(nil)
	require.NoError(t, err)
	l := newPostgresLoader(&fakeBeginner{err: errors.New("connection refused")}, o)

	_, err = l.Load(context.Background(), sampleRecords("A"))
	var storeErr StoreError
	require.ErrorAs(t, err, &storeErr)
	require.Equal(t, "begin", storeErr.Op)
}

func TestPostgresLoadEmptyInputNeverBegins(t *testing.T) {
	o, err := buildOptions(nil)
	require.NoError(t, err)
	l := newPostgresLoader(&fakeBeginner{err: errors.New("must not be called")}, o)

	_, err = l.Load(context.Background(), nil)
	require.ErrorAs(t, err, &EmptyInputError{})
}

func TestPostgresEnsureSchema(t *testing.T) {
	tx := &fakeTx{results: &fakeBatchResults{}}
	l := newFakeLoader(t, tx)

	require.NoError(t, l.EnsureSchema(context.Background()))
	require.Len(t, tx.execs, 1)
	require.Contains(t, tx.execs[0], `CREATE TABLE IF NOT EXISTS "goodreads_books"`)
	require.True(t, tx.committed)
}

func TestRedact(t *testing.T) {
	require.Equal(t, "postgres://***@db:5432/books", redact("postgres://user:pw@db:5432/books"))
	require.Equal(t, "sqlite://out.db", redact("sqlite://out.db"))
}

// TestPostgresLive exercises a real server when TEST_PG_DSN is set.
func TestPostgresLive(t *testing.T) {
	dsn := os.Getenv("TEST_PG_DSN")
	if dsn == "" {
		t.Skip("TEST_PG_DSN not set")
	}
	ctx := context.Background()

	l, err := OpenPostgres(ctx, dsn, WithTable("goodreads_books_test"), WithMode(ModeReplace))
	require.NoError(t, err)
	defer l.Close()
	require.NoError(t, l.EnsureSchema(ctx))

	n, err := l.Load(ctx, sampleRecords("A", "B"))
	require.NoError(t, err)
	require.Equal(t, 2, n)

	var count int
	require.NoError(t, l.pool.QueryRow(ctx, "SELECT COUNT(*) FROM "+l.table).Scan(&count))
	require.Equal(t, 2, count)
}
