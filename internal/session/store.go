package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	DefaultTTL         = 2 * time.Hour
	DefaultMaxSessions = 500
)

// Config tunes the store. Zero fields take the defaults.
type Config struct {
	TTL         time.Duration
	MaxSessions int
}

// Store holds live sessions keyed by ID.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*Session
	ttl      time.Duration
	max      int
	now      func() time.Time
}

// NewStore creates an empty store.
func NewStore(cfg Config) *Store {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.MaxSessions <= 0 {
		cfg.MaxSessions = DefaultMaxSessions
	}
	return &Store{
		sessions: make(map[string]*Session),
		ttl:      cfg.TTL,
		max:      cfg.MaxSessions,
		now:      time.Now,
	}
}

// Get returns a live session and marks it as seen. Expired sessions are
// removed and reported as absent.
func (s *Store) Get(id string) (*Session, bool) {
	if id == "" {
		return nil, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, false
	}
	now := s.now()
	if s.expired(sess, now) {
		delete(s.sessions, id)
		return nil, false
	}
	sess.touch(now)
	return sess, true
}

// Create starts a new session, evicting the least recently seen one when
// the store is full.
func (s *Store) Create() *Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	for len(s.sessions) >= s.max {
		s.evictOldestLocked()
	}

	sess := newSession(uuid.NewString(), s.now())
	s.sessions[sess.ID] = sess
	return sess
}

// GetOrCreate returns the session for id, or a fresh one when id is unknown
// or expired. created reports which.
func (s *Store) GetOrCreate(id string) (sess *Session, created bool) {
	if sess, ok := s.Get(id); ok {
		return sess, false
	}
	return s.Create(), true
}

// Len returns the number of sessions held, expired or not.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Sweep removes expired sessions and returns how many were removed.
func (s *Store) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for id, sess := range s.sessions {
		if s.expired(sess, now) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

// RunSweeper sweeps every interval until ctx is cancelled.
func (s *Store) RunSweeper(ctx context.Context, interval time.Duration) {
	slog.Info("session sweeper started", "interval", interval, "ttl", s.ttl)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("session sweeper stopped")
			return
		case <-ticker.C:
			if n := s.Sweep(); n > 0 {
				slog.Info("expired sessions evicted", "count", n, "remaining", s.Len())
			}
		}
	}
}

func (s *Store) expired(sess *Session, now time.Time) bool {
	return now.Sub(sess.LastSeen()) > s.ttl
}

func (s *Store) evictOldestLocked() {
	var (
		oldestID string
		oldest   time.Time
	)
	for id, sess := range s.sessions {
		seen := sess.LastSeen()
		if oldestID == "" || seen.Before(oldest) {
			oldestID, oldest = id, seen
		}
	}
	if oldestID == "" {
		return
	}
	delete(s.sessions, oldestID)
	slog.Debug("session evicted at capacity", "session", oldestID[:8])
}
