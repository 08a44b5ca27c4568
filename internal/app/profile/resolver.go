/*
Package profile resolves the display profile of a verified identity.

Profiles live in the external store and are created on first use. Two first-time
connections for the same identity can race to create the row; the loser re-reads the
winner's row, so both end up with the same profile.
*/
package profile

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"chatrelay/internal/app/db"
	"chatrelay/internal/app/user"
	"chatrelay/internal/pkg/errs"
	"chatrelay/internal/pkg/logx"
)

// Store is the persistence the resolver needs. *db.Queries implements it.
// GetProfile returns db.ErrNotFound for a missing row; InsertProfile returns db.ErrConflict
// when the row already exists.
type Store interface {
	GetProfile(ctx context.Context, id string) (user.Profile, error)
	InsertProfile(ctx context.Context, p user.Profile) (user.Profile, error)
	UpsertProfile(ctx context.Context, p user.Profile) (user.Profile, error)
}

// Resolver fetches or lazily creates profiles with a bounded wait per operation.
type Resolver struct {
	store   Store
	timeout time.Duration
	logger  zerolog.Logger
}

// NewResolver returns a Resolver over store.
func NewResolver(store Store, timeout time.Duration) *Resolver {
	return &Resolver{
		store:   store,
		timeout: timeout,
		logger:  logx.ForComponent("profile_resolver"),
	}
}

// Resolve returns the stored profile for identity, creating a default one if none exists.
// Failures, including the timeout, are reported as errs.ErrProfileResolution.
func (r *Resolver) Resolve(ctx context.Context, identity user.Identity) (user.Profile, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	logger := r.logger.With().Str("user_id", identity.ID).Logger()

	p, err := r.store.GetProfile(ctx, identity.ID)
	if err == nil {
		return withFallbackName(p, identity), nil
	}
	if !errors.Is(err, db.ErrNotFound) {
		logger.Error().Err(err).Msg("Profile read failed")
		return user.Profile{}, errs.NewError(errs.ErrProfileResolution)
	}

	p, err = r.store.InsertProfile(ctx, user.NewProfile(identity))
	if err == nil {
		logger.Info().Str("username", p.Username).Msg("Created default profile")
		return withFallbackName(p, identity), nil
	}
	if !errors.Is(err, db.ErrConflict) {
		logger.Error().Err(err).Msg("Profile insert failed")
		return user.Profile{}, errs.NewError(errs.ErrProfileResolution)
	}

	logger.Debug().Msg("Profile created concurrently, reading it back")

	p, err = r.store.GetProfile(ctx, identity.ID)
	if err != nil {
		logger.Error().Err(err).Msg("Profile re-read after conflict failed")
		return user.Profile{}, errs.NewError(errs.ErrProfileResolution)
	}

	return withFallbackName(p, identity), nil
}

// Update replaces the username and avatar reference of identity's profile.
func (r *Resolver) Update(ctx context.Context, identity user.Identity, username string, avatarURL *string) (user.Profile, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	p, err := r.store.UpsertProfile(ctx, user.Profile{
		ID:        identity.ID,
		Username:  username,
		AvatarURL: avatarURL,
	})
	if err != nil {
		r.logger.Error().Err(err).Str("user_id", identity.ID).Msg("Profile update failed")
		return user.Profile{}, errs.NewError(errs.ErrProfileResolution)
	}

	return p, nil
}

// withFallbackName guards against rows written elsewhere with an empty username.
func withFallbackName(p user.Profile, identity user.Identity) user.Profile {
	if p.Username == "" {
		p.Username = identity.DisplayName
	}
	return p
}
