// Package ratelimit is an in-memory fixed-window limiter keyed by client.
package ratelimit

import (
	"sync"
	"time"
)

type Bucket struct {
	Hits  int
	Start time.Time
}

type Store struct {
	mu      sync.Mutex
	buckets map[string]Bucket
	now     func() time.Time
}

func New() *Store {
	return &Store{buckets: map[string]Bucket{}, now: time.Now}
}

// Allow applies a fixed-window limit (max within window).
// Returns ok, remaining, and resetAt time.
func (s *Store) Allow(key string, limit int, window time.Duration) (bool, int, time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now().UTC()
	b := s.buckets[key]
	if b.Start.IsZero() || now.Sub(b.Start) >= window {
		b = Bucket{Start: now}
	}
	resetAt := b.Start.Add(window)
	if b.Hits >= limit {
		s.buckets[key] = b
		return false, 0, resetAt
	}
	b.Hits++
	s.buckets[key] = b
	return true, limit - b.Hits, resetAt
}

// Reset forgets key, e.g. after a successful login.
func (s *Store) Reset(key string) {
	s.mu.Lock()
	delete(s.buckets, key)
	s.mu.Unlock()
}

// Sweep drops buckets whose window has passed.
func (s *Store) Sweep(window time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now().UTC()
	n := 0
	for k, b := range s.buckets {
		if now.Sub(b.Start) >= window {
			delete(s.buckets, k)
			n++
		}
	}
	return n
}

func (s *Store) Snapshot() map[string]Bucket {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]Bucket, len(s.buckets))
	for k, b := range s.buckets {
		out[k] = b
	}
	return out
}
