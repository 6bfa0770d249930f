// Package session keeps per-browser state in memory: one dataset and one
// filter selection per flow. Nothing is persisted; an evicted or expired
// session simply loses its uploads.
package session

import (
	"sort"
	"sync"
	"time"

	"github.com/JonMunkholm/mobility/internal/mobility"
)

// Session is one browser's state. All methods are safe for concurrent use.
type Session struct {
	ID string

	mu         sync.Mutex
	lastSeen   time.Time
	datasets   map[string]*mobility.Dataset
	selections map[string]mobility.Selection
}

func newSession(id string, now time.Time) *Session {
	return &Session{
		ID:         id,
		lastSeen:   now,
		datasets:   make(map[string]*mobility.Dataset),
		selections: make(map[string]mobility.Selection),
	}
}

// Dataset returns the flow's loaded dataset, or nil.
func (s *Session) Dataset(flow string) *mobility.Dataset {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.datasets[flow]
}

// SetDataset replaces the flow's dataset and resets its selection.
// A nil dataset clears the flow.
func (s *Session) SetDataset(flow string, ds *mobility.Dataset) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.selections, flow)
	if ds == nil {
		delete(s.datasets, flow)
		return
	}
	s.datasets[flow] = ds
}

// Clear discards the flow's dataset and selection.
func (s *Session) Clear(flow string) {
	s.SetDataset(flow, nil)
}

// Selection returns the last selection applied to the flow.
func (s *Session) Selection(flow string) mobility.Selection {
	s.mu.Lock()
	defer s.mu.Unlock()
	sel := s.selections[flow]
	sel.Countries = append([]string(nil), sel.Countries...)
	return sel
}

// SetSelection stores sel for the flow. Ignored when no dataset is loaded.
func (s *Session) SetSelection(flow string, sel mobility.Selection) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.datasets[flow]; !ok {
		return
	}
	sel.Countries = append([]string(nil), sel.Countries...)
	s.selections[flow] = sel
}

// LoadedFlows returns the keys of flows with a dataset, sorted.
func (s *Session) LoadedFlows() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.datasets))
	for k := range s.datasets {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// LastSeen returns when the session was last fetched from the store.
func (s *Session) LastSeen() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}
