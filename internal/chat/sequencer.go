package chat

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/pageturn/chat/internal/domain"
)

// sequencerQueueSize bounds how many operations may wait per club before
// senders start seeing Unavailable instead of queuing without limit.
const sequencerQueueSize = 256

// Sequencer serializes all mutating chat operations per club through one
// worker goroutine, so broadcast order matches application order and two
// concurrent sends cannot interleave their store appends. No lock is held
// while an operation runs; unrelated clubs proceed fully in parallel.
type Sequencer struct {
	mu      sync.Mutex
	workers map[string]chan func()
	closed  bool
	wg      sync.WaitGroup
	logger  *slog.Logger
}

// NewSequencer creates a sequencer with no active club workers. Workers
// spawn lazily on first submit per club.
func NewSequencer() *Sequencer {
	return &Sequencer{
		workers: make(map[string]chan func()),
		logger:  slog.Default().With("component", "sequencer"),
	}
}

// Submit enqueues op on the club's worker. It never blocks: a full queue
// returns ErrUnavailable so a stalled store cannot back clients up
// indefinitely.
func (s *Sequencer) Submit(clubID string, op func()) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return fmt.Errorf("sequencer closed: %w", domain.ErrUnavailable)
	}
	queue, ok := s.workers[clubID]
	if !ok {
		queue = make(chan func(), sequencerQueueSize)
		s.workers[clubID] = queue
		s.wg.Add(1)
		go s.run(clubID, queue)
	}
	s.mu.Unlock()

	select {
	case queue <- op:
		return nil
	default:
		s.logger.Warn("Club queue full, rejecting operation", "club_id", clubID)
		return fmt.Errorf("club %s queue full: %w", clubID, domain.ErrUnavailable)
	}
}

func (s *Sequencer) run(clubID string, queue chan func()) {
	defer s.wg.Done()
	for op := range queue {
		op()
	}
	s.logger.Debug("Club worker stopped", "club_id", clubID)
}

// Close stops accepting work, lets queued operations drain, and waits for
// every club worker to exit.
func (s *Sequencer) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	for _, queue := range s.workers {
		close(queue)
	}
	s.mu.Unlock()
	s.wg.Wait()
}
