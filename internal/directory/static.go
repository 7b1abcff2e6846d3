package directory

import (
	"context"
	"slices"
	"sync"

	"github.com/pageturn/chat/internal/domain"
)

// StaticClubs is an in-memory ClubDirectory. It backs tests and the
// memory store mode, where club data is seeded at startup.
type StaticClubs struct {
	mu    sync.RWMutex
	clubs map[string]*Club
}

// NewStaticClubs builds a directory from the given clubs.
func NewStaticClubs(clubs ...*Club) *StaticClubs {
	d := &StaticClubs{clubs: make(map[string]*Club)}
	for _, c := range clubs {
		d.clubs[c.ID] = c
	}
	return d
}

// Add registers or replaces a club.
func (d *StaticClubs) Add(c *Club) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.clubs[c.ID] = c
}

func (d *StaticClubs) GetClub(ctx context.Context, clubID string) (*Club, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	c, ok := d.clubs[clubID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *c
	cp.MemberIDs = slices.Clone(c.MemberIDs)
	return &cp, nil
}

func (d *StaticClubs) IsMember(ctx context.Context, clubID, userID string) (bool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	c, ok := d.clubs[clubID]
	if !ok {
		return false, domain.ErrNotFound
	}
	return slices.Contains(c.MemberIDs, userID) || c.CreatorID == userID, nil
}

// StaticProfiles is an in-memory ProfileSource.
type StaticProfiles struct {
	mu       sync.RWMutex
	profiles map[string]Profile
}

// NewStaticProfiles builds a profile source from a userID -> Profile map.
func NewStaticProfiles(profiles map[string]Profile) *StaticProfiles {
	if profiles == nil {
		profiles = make(map[string]Profile)
	}
	return &StaticProfiles{profiles: profiles}
}

// Set registers or replaces a profile.
func (p *StaticProfiles) Set(userID string, profile Profile) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.profiles[userID] = profile
}

func (p *StaticProfiles) GetProfile(ctx context.Context, userID string) (Profile, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	profile, ok := p.profiles[userID]
	if !ok {
		return Profile{}, domain.ErrNotFound
	}
	return profile, nil
}
