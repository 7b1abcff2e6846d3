package testutils

import (
	"testing"

	"github.com/pageturn/chat/internal/directory"
)

// JWTSecret is the shared signing secret for tests.
const JWTSecret = "test-secret"

// Token mints a bearer token for the given user, failing the test on error.
func Token(t *testing.T, userID string, isAdmin bool) string {
	t.Helper()

	token, err := directory.SignToken([]byte(JWTSecret), directory.Identity{
		UserID:  userID,
		IsAdmin: isAdmin,
	})
	if err != nil {
		t.Fatalf("failed to sign test token: %v", err)
	}
	return token
}

// Directories builds a user directory and club directory seeded for a
// single test club.
func Directories(club *directory.Club, profiles map[string]directory.Profile) (*directory.JWTUserDirectory, *directory.StaticClubs) {
	users := directory.NewJWTUserDirectory([]byte(JWTSecret), directory.NewStaticProfiles(profiles))
	clubs := directory.NewStaticClubs(club)
	return users, clubs
}
