package testutil

import (
	"context"

	"github.com/stretchr/testify/mock"

	"chatrelay/internal/app/message"
	"chatrelay/internal/app/user"
)

// MockProfileStore is a testify mock of profile.Store.
type MockProfileStore struct {
	mock.Mock
}

func (m *MockProfileStore) GetProfile(ctx context.Context, id string) (user.Profile, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(user.Profile), args.Error(1)
}

func (m *MockProfileStore) InsertProfile(ctx context.Context, p user.Profile) (user.Profile, error) {
	args := m.Called(ctx, p)
	return args.Get(0).(user.Profile), args.Error(1)
}

func (m *MockProfileStore) UpsertProfile(ctx context.Context, p user.Profile) (user.Profile, error) {
	args := m.Called(ctx, p)
	return args.Get(0).(user.Profile), args.Error(1)
}

// MockMessageStore is a testify mock of message.Store.
type MockMessageStore struct {
	mock.Mock
}

func (m *MockMessageStore) InsertMessage(ctx context.Context, d message.Draft) (message.Message, error) {
	args := m.Called(ctx, d)
	return args.Get(0).(message.Message), args.Error(1)
}

func (m *MockMessageStore) RecentMessages(ctx context.Context, limit int) ([]message.Message, error) {
	args := m.Called(ctx, limit)
	if msgs, ok := args.Get(0).([]message.Message); ok {
		return msgs, args.Error(1)
	}
	return nil, args.Error(1)
}
