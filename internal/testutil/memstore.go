// Package testutil provides store doubles and credential helpers for the relay's tests.
package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"chatrelay/internal/app/db"
	"chatrelay/internal/app/message"
	"chatrelay/internal/app/user"
)

// MemStore is an in-memory profile.Store and message.Store with the same conflict
// semantics as the Postgres queries.
type MemStore struct {
	mu       sync.Mutex
	profiles map[string]user.Profile
	messages []message.Message
	inserts  int

	// OnInsertProfile, when set, runs before every InsertProfile takes the lock.
	OnInsertProfile func()
}

// NewMemStore returns an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{profiles: make(map[string]user.Profile)}
}

func (s *MemStore) GetProfile(ctx context.Context, id string) (user.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.profiles[id]
	if !ok {
		return user.Profile{}, db.ErrNotFound
	}
	return p, nil
}

func (s *MemStore) InsertProfile(ctx context.Context, p user.Profile) (user.Profile, error) {
	if s.OnInsertProfile != nil {
		s.OnInsertProfile()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.inserts++
	if _, ok := s.profiles[p.ID]; ok {
		return user.Profile{}, db.ErrConflict
	}
	s.profiles[p.ID] = p
	return p, nil
}

func (s *MemStore) UpsertProfile(ctx context.Context, p user.Profile) (user.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.profiles[p.ID] = p
	return p, nil
}

func (s *MemStore) InsertMessage(ctx context.Context, d message.Draft) (message.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m := message.Message{
		ID:        uuid.NewString(),
		Content:   d.Content,
		UserID:    d.UserID,
		Username:  d.Username,
		AvatarURL: d.AvatarURL,
		CreatedAt: time.Now().UTC(),
	}
	s.messages = append(s.messages, m)
	return m, nil
}

func (s *MemStore) RecentMessages(ctx context.Context, limit int) ([]message.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := max(len(s.messages)-limit, 0)
	out := make([]message.Message, len(s.messages)-start)
	copy(out, s.messages[start:])
	return out, nil
}

// Profiles returns a copy of every stored profile.
func (s *MemStore) Profiles() map[string]user.Profile {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]user.Profile, len(s.profiles))
	for k, v := range s.profiles {
		out[k] = v
	}
	return out
}

// Messages returns a copy of every stored message in insertion order.
func (s *MemStore) Messages() []message.Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]message.Message(nil), s.messages...)
}

// ProfileInserts counts InsertProfile calls, including ones that conflicted.
func (s *MemStore) ProfileInserts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inserts
}
