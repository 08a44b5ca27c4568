package jwt

import "github.com/golang-jwt/jwt"

// Claims mirrors the access token issued by the identity platform.
// Only the fields the relay reads are declared; the rest are ignored on decode.
type Claims struct {
	// StandardClaims carries sub, exp, nbf, iat, iss and aud. The library checks the
	// time-based ones during parsing.
	jwt.StandardClaims

	// Email is the address of the signed-in account.
	Email string `json:"email,omitempty"`

	// UserMetadata is the free-form metadata set at sign-up; only username is used.
	UserMetadata UserMetadata `json:"user_metadata"`

	// Role is the platform role, "authenticated" for signed-in users.
	Role string `json:"role,omitempty"`
}

// UserMetadata is the subset of user_metadata the relay understands.
type UserMetadata struct {
	Username string `json:"username,omitempty"`
}
