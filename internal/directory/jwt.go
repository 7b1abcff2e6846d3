package directory

import (
	"context"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pageturn/chat/internal/domain"
)

// ProfileSource looks up display profiles by user id. It is the only part
// of the user directory that needs a backing store; credential validation
// is stateless.
type ProfileSource interface {
	GetProfile(ctx context.Context, userID string) (Profile, error)
}

// tokenClaims mirrors the claim names the platform's auth service signs
// into its tokens.
type tokenClaims struct {
	UserID  string `json:"_id"`
	IsAdmin bool   `json:"isAdmin"`
	jwt.RegisteredClaims
}

// JWTUserDirectory implements UserDirectory with HMAC-signed bearer tokens
// and a pluggable profile source.
type JWTUserDirectory struct {
	secret   []byte
	profiles ProfileSource
}

// NewJWTUserDirectory builds a directory verifying tokens with the given
// shared secret.
func NewJWTUserDirectory(secret []byte, profiles ProfileSource) *JWTUserDirectory {
	return &JWTUserDirectory{secret: secret, profiles: profiles}
}

// Authenticate verifies the token signature, expiry and claims.
func (d *JWTUserDirectory) Authenticate(ctx context.Context, credential string) (Identity, error) {
	if credential == "" {
		return Identity{}, domain.ErrUnauthorized
	}

	claims := &tokenClaims{}
	token, err := jwt.ParseWithClaims(credential, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return d.secret, nil
	})
	if err != nil || !token.Valid {
		return Identity{}, domain.ErrUnauthorized
	}
	if claims.UserID == "" {
		return Identity{}, domain.ErrUnauthorized
	}

	return Identity{UserID: claims.UserID, IsAdmin: claims.IsAdmin}, nil
}

// GetProfile delegates to the configured profile source.
func (d *JWTUserDirectory) GetProfile(ctx context.Context, userID string) (Profile, error) {
	return d.profiles.GetProfile(ctx, userID)
}

// SignToken mints a token for the given identity. The server itself never
// issues tokens; this exists for the CLI and tests.
func SignToken(secret []byte, identity Identity) (string, error) {
	claims := &tokenClaims{
		UserID:  identity.UserID,
		IsAdmin: identity.IsAdmin,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}
