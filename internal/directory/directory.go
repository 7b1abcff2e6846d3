package directory

import (
	"context"
)

// Identity is the result of authenticating a bearer credential.
type Identity struct {
	UserID  string
	IsAdmin bool
}

// Profile is the display information denormalized onto messages at send time.
type Profile struct {
	DisplayName string
	AvatarRef   string
}

// Club describes a discussion group: one creator and a member set.
type Club struct {
	ID        string
	CreatorID string
	MemberIDs []string
}

// UserDirectory resolves credentials and user display profiles. The chat
// core never issues identities itself; it only consumes this contract.
type UserDirectory interface {
	// Authenticate validates a bearer credential. It returns
	// domain.ErrUnauthorized for a missing, malformed or expired credential.
	Authenticate(ctx context.Context, credential string) (Identity, error)

	// GetProfile returns display name and avatar for a user. A missing
	// profile is not fatal; callers may fall back to the user id.
	GetProfile(ctx context.Context, userID string) (Profile, error)
}

// ClubDirectory resolves club existence, membership and creator identity.
type ClubDirectory interface {
	// GetClub returns the club or domain.ErrNotFound.
	GetClub(ctx context.Context, clubID string) (*Club, error)

	// IsMember reports whether the user belongs to the club.
	IsMember(ctx context.Context, clubID, userID string) (bool, error)
}
