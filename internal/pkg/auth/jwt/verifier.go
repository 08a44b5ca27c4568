package jwt

import (
	"chatrelay/internal/app/user"
	"chatrelay/internal/pkg/errs"
	"chatrelay/internal/pkg/logx"
)

// Verifier turns bearer credentials into identities using a pre-shared HMAC secret.
// It holds no state besides the secret and is safe for concurrent use.
type Verifier struct {
	secret string
}

// NewVerifier returns a Verifier for the given signing secret.
func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: secret}
}

// Verify validates token and returns the identity it proves.
// Every failure, including an empty token, is reported as errs.ErrUnauthorized.
func (v *Verifier) Verify(token string) (user.Identity, error) {
	if token == "" {
		return user.Identity{}, errs.NewError(errs.ErrUnauthorized)
	}

	claims, err := ParseToken(token, v.secret)
	if err != nil {
		logx.Warn("Rejected bearer credential", "reason", err.Error())
		return user.Identity{}, errs.NewError(errs.ErrUnauthorized)
	}

	return user.Identity{
		ID:          claims.Subject,
		Email:       claims.Email,
		DisplayName: user.DefaultDisplayName(claims.UserMetadata.Username, claims.Email, claims.Subject),
	}, nil
}
