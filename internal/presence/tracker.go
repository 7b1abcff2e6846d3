package presence

import (
	"log/slog"
	"sort"
	"sync"
)

// Tracker maintains the set of online users per club. Internally it counts
// connections so a user with several tabs open stays online until the last
// one closes; externally it only ever exposes the deduplicated user-id set.
type Tracker struct {
	mu     sync.Mutex
	clubs  map[string]map[string]int // clubID -> userID -> connection count
	logger *slog.Logger
}

// NewTracker creates an empty presence tracker.
func NewTracker() *Tracker {
	return &Tracker{
		clubs:  make(map[string]map[string]int),
		logger: slog.Default().With("component", "presence"),
	}
}

// MarkOnline records one connection for the user and returns the
// post-mutation snapshot. Repeated calls for the same connection lifecycle
// are the caller's responsibility; each MarkOnline must be paired with one
// MarkOffline.
func (t *Tracker) MarkOnline(clubID, userID string) []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	users, ok := t.clubs[clubID]
	if !ok {
		users = make(map[string]int)
		t.clubs[clubID] = users
	}
	users[userID]++
	if users[userID] == 1 {
		t.logger.Debug("User came online", "club_id", clubID, "user_id", userID)
	}

	return t.snapshotLocked(clubID)
}

// MarkOffline removes one connection for the user and returns the
// post-mutation snapshot. It is idempotent: going offline twice, or before
// ever going online, is a no-op.
func (t *Tracker) MarkOffline(clubID, userID string) []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	users, ok := t.clubs[clubID]
	if !ok {
		return nil
	}
	if n, ok := users[userID]; ok {
		if n <= 1 {
			delete(users, userID)
			t.logger.Debug("User went offline", "club_id", clubID, "user_id", userID)
		} else {
			users[userID] = n - 1
		}
	}
	if len(users) == 0 {
		delete(t.clubs, clubID)
	}

	return t.snapshotLocked(clubID)
}

// Snapshot returns the current online user ids for the club.
func (t *Tracker) Snapshot(clubID string) []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshotLocked(clubID)
}

// snapshotLocked returns a sorted copy of the club's online set. Sorting
// keeps broadcast payloads deterministic.
func (t *Tracker) snapshotLocked(clubID string) []string {
	users := t.clubs[clubID]
	out := make([]string, 0, len(users))
	for id := range users {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
