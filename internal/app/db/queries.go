package db

import (
	"context"
	"slices"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"chatrelay/internal/app/message"
	"chatrelay/internal/app/user"
)

// DBTX is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Queries implements profile.Store and message.Store on top of a DBTX.
type Queries struct {
	db DBTX
}

// New returns Queries bound to db.
func New(db DBTX) *Queries {
	return &Queries{db: db}
}

const getProfile = `
SELECT id, username, avatar_url
FROM profiles
WHERE id = $1`

// GetProfile returns the profile for id or ErrNotFound.
func (q *Queries) GetProfile(ctx context.Context, id string) (user.Profile, error) {
	var p user.Profile
	err := q.db.QueryRow(ctx, getProfile, id).Scan(&p.ID, &p.Username, &p.AvatarURL)
	return p, translate(err, ErrNotFound)
}

const insertProfile = `
INSERT INTO profiles (id, username, avatar_url)
VALUES ($1, $2, $3)
ON CONFLICT (id) DO NOTHING
RETURNING id, username, avatar_url`

// InsertProfile creates p. If a profile with the same id already exists nothing is
// written and ErrConflict is returned.
func (q *Queries) InsertProfile(ctx context.Context, p user.Profile) (user.Profile, error) {
	var out user.Profile
	err := q.db.QueryRow(ctx, insertProfile, p.ID, p.Username, p.AvatarURL).
		Scan(&out.ID, &out.Username, &out.AvatarURL)
	return out, translate(err, ErrConflict)
}

const upsertProfile = `
INSERT INTO profiles (id, username, avatar_url)
VALUES ($1, $2, $3)
ON CONFLICT (id) DO UPDATE
SET username = EXCLUDED.username,
    avatar_url = EXCLUDED.avatar_url,
    updated_at = now()
RETURNING id, username, avatar_url`

// UpsertProfile creates or replaces p.
func (q *Queries) UpsertProfile(ctx context.Context, p user.Profile) (user.Profile, error) {
	var out user.Profile
	err := q.db.QueryRow(ctx, upsertProfile, p.ID, p.Username, p.AvatarURL).
		Scan(&out.ID, &out.Username, &out.AvatarURL)
	return out, translate(err, ErrNotFound)
}

const insertMessage = `
INSERT INTO messages (content, user_id, username, avatar_url)
VALUES ($1, $2, $3, $4)
RETURNING id::text, content, user_id, username, avatar_url, created_at`

// InsertMessage stores m and returns the record with its assigned id and timestamp.
func (q *Queries) InsertMessage(ctx context.Context, m message.Draft) (message.Message, error) {
	var out message.Message
	err := q.db.QueryRow(ctx, insertMessage, m.Content, m.UserID, m.Username, m.AvatarURL).
		Scan(&out.ID, &out.Content, &out.UserID, &out.Username, &out.AvatarURL, &out.CreatedAt)
	return out, translate(err, ErrNotFound)
}

const recentMessages = `
SELECT id::text, content, user_id, username, avatar_url, created_at
FROM messages
ORDER BY created_at DESC, id DESC
LIMIT $1`

// RecentMessages returns the newest limit messages, oldest first.
func (q *Queries) RecentMessages(ctx context.Context, limit int) ([]message.Message, error) {
	rows, err := q.db.Query(ctx, recentMessages, limit)
	if err != nil {
		return nil, err
	}

	messages, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (message.Message, error) {
		var m message.Message
		err := row.Scan(&m.ID, &m.Content, &m.UserID, &m.Username, &m.AvatarURL, &m.CreatedAt)
		return m, err
	})
	if err != nil {
		return nil, err
	}

	slices.Reverse(messages)
	return messages, nil
}
