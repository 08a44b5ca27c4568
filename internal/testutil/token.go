package testutil

import (
	"testing"
	"time"

	"chatrelay/internal/app/user"
	"chatrelay/internal/pkg/auth/jwt"
)

// Secret signs every token minted by Token.
const Secret = "testutil-signing-secret"

// Identity returns an identity whose email local-part is name.
func Identity(id, name string) user.Identity {
	return user.Identity{ID: id, Email: name + "@example.com", DisplayName: name}
}

// Token mints a credential for identity valid for one minute.
func Token(t *testing.T, identity user.Identity) string {
	t.Helper()

	token, err := jwt.GenerateToken(identity, Secret, time.Minute)
	if err != nil {
		t.Fatalf("failed to mint token: %v", err)
	}
	return token
}
