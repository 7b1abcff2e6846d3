package database

import (
	"context"
	"fmt"
	"slices"

	"github.com/pageturn/chat/internal/directory"
	"github.com/pageturn/chat/internal/domain"
	"github.com/surrealdb/surrealdb.go"
)

// ClubDirectory resolves clubs and membership from SurrealDB. Club CRUD
// itself belongs to the wider platform; the chat core only reads.
type ClubDirectory struct {
	db *surrealdb.DB
}

// NewClubDirectory creates a club directory on an established connection.
func NewClubDirectory(db *surrealdb.DB) *ClubDirectory {
	return &ClubDirectory{db: db}
}

type clubRow struct {
	CID       string   `json:"cid"`
	CreatorID string   `json:"creator_id"`
	MemberIDs []string `json:"member_ids"`
}

func (d *ClubDirectory) GetClub(ctx context.Context, clubID string) (*directory.Club, error) {
	row, err := QueryOne[clubRow](ctx, d.db,
		"SELECT * FROM club WHERE cid = $cid",
		map[string]any{"cid": clubID})
	if err != nil {
		return nil, fmt.Errorf("get club %s: %v: %w", clubID, err, domain.ErrUnavailable)
	}
	if row == nil {
		return nil, fmt.Errorf("club %s: %w", clubID, domain.ErrNotFound)
	}
	return &directory.Club{
		ID:        row.CID,
		CreatorID: row.CreatorID,
		MemberIDs: row.MemberIDs,
	}, nil
}

func (d *ClubDirectory) IsMember(ctx context.Context, clubID, userID string) (bool, error) {
	club, err := d.GetClub(ctx, clubID)
	if err != nil {
		return false, err
	}
	return club.CreatorID == userID || slices.Contains(club.MemberIDs, userID), nil
}

// ProfileStore looks up user display profiles from SurrealDB for the user
// directory.
type ProfileStore struct {
	db *surrealdb.DB
}

// NewProfileStore creates a profile source on an established connection.
func NewProfileStore(db *surrealdb.DB) *ProfileStore {
	return &ProfileStore{db: db}
}

type userRow struct {
	UID         string `json:"uid"`
	DisplayName string `json:"display_name"`
	Avatar      string `json:"avatar,omitempty"`
}

func (p *ProfileStore) GetProfile(ctx context.Context, userID string) (directory.Profile, error) {
	row, err := QueryOne[userRow](ctx, p.db,
		"SELECT * FROM user WHERE uid = $uid",
		map[string]any{"uid": userID})
	if err != nil {
		return directory.Profile{}, fmt.Errorf("get profile %s: %v: %w", userID, err, domain.ErrUnavailable)
	}
	if row == nil {
		return directory.Profile{}, fmt.Errorf("user %s: %w", userID, domain.ErrNotFound)
	}
	return directory.Profile{
		DisplayName: row.DisplayName,
		AvatarRef:   row.Avatar,
	}, nil
}
