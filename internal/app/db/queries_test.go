package db

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatrelay/internal/app/user"
)

type errRow struct{ err error }

func (r errRow) Scan(dest ...any) error { return r.err }

// rowDB answers every QueryRow with the same error and records the statements it saw.
type rowDB struct {
	err   error
	query error
	seen  []string
}

func (d *rowDB) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, errors.New("not implemented")
}

func (d *rowDB) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	d.seen = append(d.seen, sql)
	return nil, d.query
}

func (d *rowDB) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	d.seen = append(d.seen, sql)
	return errRow{err: d.err}
}

func TestGetProfileNotFound(t *testing.T) {
	q := New(&rowDB{err: pgx.ErrNoRows})

	_, err := q.GetProfile(context.Background(), "u-1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestInsertProfileConflict(t *testing.T) {
	db := &rowDB{err: pgx.ErrNoRows}
	q := New(db)

	_, err := q.InsertProfile(context.Background(), user.Profile{ID: "u-1", Username: "alice"})
	assert.ErrorIs(t, err, ErrConflict)
	require.Len(t, db.seen, 1)
	assert.Contains(t, db.seen[0], "ON CONFLICT (id) DO NOTHING")
}

func TestInsertProfileUniqueViolation(t *testing.T) {
	q := New(&rowDB{err: &pgconn.PgError{Code: "23505"}})

	_, err := q.InsertProfile(context.Background(), user.Profile{ID: "u-1"})
	assert.ErrorIs(t, err, ErrConflict)
}

func TestRecentMessagesQueryError(t *testing.T) {
	boom := errors.New("canceling statement due to statement timeout")
	q := New(&rowDB{query: boom})

	_, err := q.RecentMessages(context.Background(), 10)
	assert.ErrorIs(t, err, boom)
}
