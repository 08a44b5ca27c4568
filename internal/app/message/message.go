/*
Package message persists chat messages and reads back recent history.

The Gateway sits between the relay and the external store. Every store call it makes has a
bounded wait, and store failures come back as application errors. A message is only ever
handed to the relay after the store has accepted it.
*/
package message

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"chatrelay/internal/app/user"
	"chatrelay/internal/pkg/errs"
	"chatrelay/internal/pkg/logx"
)

// MaxContentBytes is the largest message body accepted.
const MaxContentBytes = 5000

// Message is a persisted chat message. It is broadcast exactly as stored.
type Message struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	UserID    string    `json:"user_id"`
	Username  string    `json:"username"`
	AvatarURL *string   `json:"avatar_url"`
	CreatedAt time.Time `json:"created_at"`
}

// Draft is a message that has not been stored yet.
type Draft struct {
	Content   string
	UserID    string
	Username  string
	AvatarURL *string
}

// Store is the persistence the gateway needs. *db.Queries implements it.
type Store interface {
	InsertMessage(ctx context.Context, m Draft) (Message, error)
	RecentMessages(ctx context.Context, limit int) ([]Message, error)
}

// Gateway persists messages and serves history with a bounded wait per store call.
type Gateway struct {
	store        Store
	timeout      time.Duration
	historyLimit int
	logger       zerolog.Logger
}

// NewGateway returns a Gateway over store. historyLimit caps History results.
func NewGateway(store Store, timeout time.Duration, historyLimit int) *Gateway {
	return &Gateway{
		store:        store,
		timeout:      timeout,
		historyLimit: historyLimit,
		logger:       logx.ForComponent("message_gateway"),
	}
}

// ValidateContent rejects blank and oversized message bodies.
func ValidateContent(content string) *errs.CustomError {
	if strings.TrimSpace(content) == "" {
		return errs.NewError(errs.ErrMessageContentEmpty)
	}

	if len(content) > MaxContentBytes {
		return errs.NewError(errs.ErrMessageContentTooLong)
	}

	return nil
}

// Persist stores content written by author. The returned record carries the store's id
// and timestamp. Any store failure, including the timeout, is errs.ErrPersistence.
func (g *Gateway) Persist(ctx context.Context, author user.Profile, content string) (Message, error) {
	if err := ValidateContent(content); err != nil {
		return Message{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	stored, err := g.store.InsertMessage(ctx, Draft{
		Content:   content,
		UserID:    author.ID,
		Username:  author.Username,
		AvatarURL: author.AvatarURL,
	})
	if err != nil {
		g.logger.Error().
			Err(err).
			Str("user_id", author.ID).
			Int("content_bytes", len(content)).
			Msg("Message insert failed")
		return Message{}, errs.NewError(errs.ErrPersistence)
	}

	return stored, nil
}

// History returns up to limit recent messages, oldest first. Non-positive or excessive
// limits are clamped to the configured history limit.
func (g *Gateway) History(ctx context.Context, limit int) ([]Message, error) {
	if limit <= 0 || limit > g.historyLimit {
		limit = g.historyLimit
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	messages, err := g.store.RecentMessages(ctx, limit)
	if err != nil {
		g.logger.Error().Err(err).Int("limit", limit).Msg("Message history query failed")
		return nil, errs.NewError(errs.ErrUnknown)
	}

	if messages == nil {
		messages = []Message{}
	}

	return messages, nil
}
