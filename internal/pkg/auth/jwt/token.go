package jwt

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt"

	"chatrelay/internal/app/user"
)

const (
	// TokenIssuer identifies tokens minted by this process (development and tests).
	TokenIssuer = "chatrelay"

	// AuthenticatedAudience is the audience the platform puts on user access tokens.
	AuthenticatedAudience = "authenticated"
)

// Sign serializes claims as an HS256 token.
func Sign(claims *Claims, secretKey string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secretKey))
}

// GenerateToken mints an access token for identity that expires after duration.
// The relay never issues tokens in production; this exists for local clients and tests.
func GenerateToken(identity user.Identity, secretKey string, duration time.Duration) (string, error) {
	now := time.Now()

	claims := &Claims{
		StandardClaims: jwt.StandardClaims{
			Subject:   identity.ID,
			Audience:  AuthenticatedAudience,
			ExpiresAt: now.Add(duration).Unix(),
			IssuedAt:  now.Unix(),
			Issuer:    TokenIssuer,
		},
		Email:        identity.Email,
		UserMetadata: UserMetadata{Username: identity.DisplayName},
		Role:         AuthenticatedAudience,
	}

	return Sign(claims, secretKey)
}

// ParseToken verifies the signature and time-based claims of tokenString. A token must
// carry an expiry.
func ParseToken(tokenString string, secretKey string) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secretKey), nil
	})

	if err != nil {
		return nil, err
	}

	if !token.Valid {
		return nil, errors.New("invalid or expired token")
	}

	// StandardClaims.Valid accepts a token without exp.
	if claims.ExpiresAt == 0 {
		return nil, errors.New("token has no expiry")
	}

	if claims.Subject == "" {
		return nil, errors.New("token has no subject")
	}

	return claims, nil
}
