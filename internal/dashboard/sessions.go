package dashboard

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/gauguri/NobelPrediction/internal/explorer"
)

// ExplorerFactory builds the explorer for a new browser session.
type ExplorerFactory func() *explorer.Explorer

type session struct {
	ex       *explorer.Explorer
	lastSeen time.Time
}

// Sessions maps browser session ids to their explorers. Each browser gets its
// own ViewState, discarded after ttl of inactivity.
type Sessions struct {
	mu    sync.Mutex
	items map[string]*session

	factory ExplorerFactory
	ttl     time.Duration
	now     func() time.Time
	logger  *zap.Logger
}

// NewSessions creates a session registry.
func NewSessions(factory ExplorerFactory, ttl time.Duration, logger *zap.Logger) *Sessions {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	if logger == nil {
		logger = zap.L()
	}
	return &Sessions{
		items:   make(map[string]*session),
		factory: factory,
		ttl:     ttl,
		now:     time.Now,
		logger:  logger,
	}
}

// Get returns the explorer for id and marks the session active.
func (s *Sessions) Get(id string) (*explorer.Explorer, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.items[id]
	if !ok {
		return nil, false
	}
	if s.now().Sub(sess.lastSeen) > s.ttl {
		delete(s.items, id)
		return nil, false
	}
	sess.lastSeen = s.now()
	return sess.ex, true
}

// Create starts a new session.
func (s *Sessions) Create() (string, *explorer.Explorer) {
	id := uuid.New().String()
	ex := s.factory()

	s.mu.Lock()
	s.items[id] = &session{ex: ex, lastSeen: s.now()}
	s.mu.Unlock()
	return id, ex
}

// Len is the number of live sessions.
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Sweep drops sessions idle for longer than the ttl and returns how many were
// removed.
func (s *Sessions) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := s.now().Add(-s.ttl)
	n := 0
	for id, sess := range s.items {
		if sess.lastSeen.Before(cutoff) {
			delete(s.items, id)
			n++
		}
	}
	return n
}

// Run sweeps every interval until ctx is done.
func (s *Sessions) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Sweep(); n > 0 {
				s.logger.Debug("dashboard: expired sessions", zap.Int("removed", n), zap.Int("live", s.Len()))
			}
		}
	}
}
