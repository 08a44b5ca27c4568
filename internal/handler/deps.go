package handler

import (
	"chatrelay/internal/app/chat"
	"chatrelay/internal/app/message"
	"chatrelay/internal/app/profile"
	"chatrelay/internal/app/storage"
	"chatrelay/internal/configs"
	"chatrelay/internal/pkg/auth/jwt"
	"chatrelay/internal/pkg/origin"
)

// AppDeps carries everything the HTTP layer needs.
type AppDeps struct {
	Config   *configs.AppConfig
	Relay    *chat.Relay
	Verifier jwt.IdentityVerifier
	Profiles *profile.Resolver
	Messages *message.Gateway
	Origins  *origin.Policy

	// Storage is nil when no object storage is configured.
	Storage storage.AvatarStorage
}
