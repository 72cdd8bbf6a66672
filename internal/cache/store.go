package cache

import (
	"sync"
	"time"
)

// Store holds one Cache per browser session so tokens never share data.
type Store struct {
	mu        sync.Mutex
	sessions  map[string]*session
	staleTime time.Duration
	overrides map[string]time.Duration
	idleTTL   time.Duration
	onLookup  func(root string, hit bool)
	now       func() time.Time
}

type session struct {
	cache    *Cache
	lastUsed time.Time
}

// NewStore creates a store whose session caches share the staleness settings.
// Sessions unused for idleTTL are removed by Sweep.
func NewStore(staleTime time.Duration, overrides map[string]time.Duration, idleTTL time.Duration) *Store {
	return &Store{
		sessions:  map[string]*session{},
		staleTime: staleTime,
		overrides: overrides,
		idleTTL:   idleTTL,
		now:       time.Now,
	}
}

// OnLookup installs a hit/miss observer on every session cache.
func (s *Store) OnLookup(fn func(root string, hit bool)) {
	s.mu.Lock()
	s.onLookup = fn
	for _, sess := range s.sessions {
		sess.cache.OnLookup = fn
	}
	s.mu.Unlock()
}

// Session returns the cache of session id, creating it on first use.
func (s *Store) Session(id string) *Cache {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		c := New(s.staleTime, s.overrides)
		c.OnLookup = s.onLookup
		sess = &session{cache: c}
		s.sessions[id] = sess
	}
	sess.lastUsed = s.now()
	return sess.cache
}

// Drop removes the cache of session id.
func (s *Store) Drop(id string) {
	s.mu.Lock()
	if sess, ok := s.sessions[id]; ok {
		sess.cache.Clear()
		delete(s.sessions, id)
	}
	s.mu.Unlock()
}

// Sweep removes idle sessions and returns how many were dropped.
func (s *Store) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.idleTTL <= 0 {
		return 0
	}
	now := s.now()
	n := 0
	for id, sess := range s.sessions {
		if now.Sub(sess.lastUsed) >= s.idleTTL {
			delete(s.sessions, id)
			n++
		}
	}
	return n
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}
