package services

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

type sessionEntry struct {
	controller *Controller
	lastSeen   time.Time
}

// SessionStore keeps one Controller per browser session.
type SessionStore struct {
	fetcher DealFetcher
	ttl     time.Duration
	now     func() time.Time

	mu       sync.RWMutex
	sessions map[string]*sessionEntry
}

// NewSessionStore creates a store whose sessions expire after ttl of
// inactivity. A ttl of zero keeps sessions until they are deleted.
func NewSessionStore(fetcher DealFetcher, ttl time.Duration) *SessionStore {
	return &SessionStore{
		fetcher:  fetcher,
		ttl:      ttl,
		now:      time.Now,
		sessions: make(map[string]*sessionEntry),
	}
}

func (s *SessionStore) Create() (string, *Controller) {
	id := uuid.NewString()
	controller := NewController(s.fetcher)

	s.mu.Lock()
	s.sessions[id] = &sessionEntry{controller: controller, lastSeen: s.now()}
	s.mu.Unlock()

	return id, controller
}

// Get returns the session's controller and marks it as active.
func (s *SessionStore) Get(id string) (*Controller, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	entry.lastSeen = s.now()
	return entry.controller, nil
}

func (s *SessionStore) Delete(id string) error {
	s.mu.Lock()
	entry, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()

	if !ok {
		return ErrSessionNotFound
	}
	entry.controller.Close()
	return nil
}

func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Sweep removes sessions idle for longer than the store's ttl and returns
// how many were removed.
func (s *SessionStore) Sweep() int {
	if s.ttl <= 0 {
		return 0
	}

	cutoff := s.now().Add(-s.ttl)
	var expired []*Controller

	s.mu.Lock()
	for id, entry := range s.sessions {
		if entry.lastSeen.Before(cutoff) {
			expired = append(expired, entry.controller)
			delete(s.sessions, id)
		}
	}
	s.mu.Unlock()

	for _, c := range expired {
		c.Close()
	}
	return len(expired)
}

// RunJanitor sweeps expired sessions every interval until ctx is done.
func (s *SessionStore) RunJanitor(ctx context.Context, interval time.Duration) {
	if s.ttl <= 0 || interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Sweep(); n > 0 {
				log.Printf("Expired %d idle sessions, %d active", n, s.Len())
			}
		}
	}
}
