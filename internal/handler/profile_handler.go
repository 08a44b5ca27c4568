package handler

import (
	"net/http"
	"strings"

	"chatrelay/internal/app/storage"
	"chatrelay/internal/pkg/auth/jwt"
	"chatrelay/internal/pkg/errs"
	"chatrelay/internal/pkg/logx"
	"chatrelay/internal/pkg/req"
	"chatrelay/internal/pkg/resp"
)

// UpdateProfileInput is the body of POST /api/profile. An empty avatar_url clears the avatar.
type UpdateProfileInput struct {
	Username  string  `json:"username" validate:"required,max=50"`
	AvatarURL *string `json:"avatar_url"`
}

// HandleGetProfile returns the caller's profile, creating the default one if needed.
func HandleGetProfile(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, ok := jwt.IdentityFromContext(r.Context())
		if !ok {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		p, err := deps.Profiles.Resolve(r.Context(), identity)
		if err != nil {
			resp.RespondError(w, r, err)
			return
		}

		resp.RespondSuccess(w, r, p)
	}
}

// HandleUpdateProfile replaces the caller's username and avatar key.
func HandleUpdateProfile(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, ok := jwt.IdentityFromContext(r.Context())
		if !ok {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		var input UpdateProfileInput
		if customErr := req.BindJSON(w, r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		username := strings.TrimSpace(input.Username)
		if username == "" {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		avatarKey, customErr := checkAvatarKey(r, deps.Storage, input.AvatarURL)
		if customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		p, err := deps.Profiles.Update(r.Context(), identity, username, avatarKey)
		if err != nil {
			resp.RespondError(w, r, err)
			return
		}

		logx.Info("Profile updated", "user_id", identity.ID, "has_avatar", p.AvatarURL != nil)
		resp.RespondSuccess(w, r, p)
	}
}

// checkAvatarKey validates a submitted avatar key and, when storage is configured,
// confirms the object exists. nil or "" means no avatar.
func checkAvatarKey(r *http.Request, store storage.AvatarStorage, key *string) (*string, *errs.CustomError) {
	if key == nil || strings.TrimSpace(*key) == "" {
		return nil, nil
	}

	trimmed := strings.TrimSpace(*key)
	if _, err := storage.ValidateAvatarKey(trimmed); err != nil {
		return nil, err
	}

	if store != nil {
		exists, err := store.ObjectExists(r.Context(), trimmed)
		if err != nil {
			return nil, errs.From(err)
		}
		if !exists {
			return nil, errs.NewError(errs.ErrInvalidParams)
		}
	}

	return &trimmed, nil
}
