package jwt

import (
	"context"
	"net/http"
	"strings"

	"chatrelay/internal/app/user"
	"chatrelay/internal/pkg/resp"
)

type contextKey string

// ContextIdentityKey stores the verified user.Identity in a request context.
const ContextIdentityKey contextKey = "auth_identity"

// TokenQueryParam carries the credential for WebSocket handshakes, where browsers cannot
// set an Authorization header.
const TokenQueryParam = "token"

// IdentityVerifier is implemented by *Verifier.
type IdentityVerifier interface {
	Verify(token string) (user.Identity, error)
}

// ExtractToken returns the bearer credential of r: the Authorization header first, then
// the token query parameter. It returns "" when neither is present or well formed.
func ExtractToken(r *http.Request) string {
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		scheme, token, found := strings.Cut(authHeader, " ")
		if !found || !strings.EqualFold(scheme, "Bearer") {
			return ""
		}
		return strings.TrimSpace(token)
	}

	return r.URL.Query().Get(TokenQueryParam)
}

// RequireIdentity rejects requests without a valid bearer credential with 401 and
// otherwise stores the identity in the request context.
func RequireIdentity(v IdentityVerifier) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, err := v.Verify(ExtractToken(r))
			if err != nil {
				resp.RespondError(w, r, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
		})
	}
}

// WithIdentity returns a copy of ctx carrying identity.
func WithIdentity(ctx context.Context, identity user.Identity) context.Context {
	return context.WithValue(ctx, ContextIdentityKey, identity)
}

// IdentityFromContext returns the identity stored by RequireIdentity.
func IdentityFromContext(ctx context.Context) (user.Identity, bool) {
	identity, ok := ctx.Value(ContextIdentityKey).(user.Identity)
	return identity, ok
}
