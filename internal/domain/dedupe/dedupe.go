// Package dedupe provides a bounded set of already-seen keys. The relay uses
// it to log each unknown quiz ending once instead of once per submission.
package dedupe

import (
	"context"
	"sync"
	"sync/atomic"
)

// Seen tracks keys that were already observed.
type Seen interface {
	// SeenAndRecord atomically checks whether key was seen and records it if
	// not. Returns true if key was already seen, false if newly recorded.
	SeenAndRecord(ctx context.Context, key string) bool

	Size() int64
}

// inMemorySeen implements Seen with a map plus a FIFO ring of keys. When the
// ring is full the oldest key is forgotten, so a long-running process cannot
// grow without bound.
type inMemorySeen struct {
	mu      sync.Mutex
	seen    map[string]struct{}
	ring    []string
	next    int
	maxSize int
	size    atomic.Int64
}

// NewInMemorySeen creates a bounded in-memory seen-set.
func NewInMemorySeen(opts ...Option) Seen {
	s := &inMemorySeen{
		maxSize: 1000,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.maxSize <= 0 {
		s.maxSize = 1000
	}
	s.seen = make(map[string]struct{}, s.maxSize)
	s.ring = make([]string, 0, s.maxSize)
	return s
}

func (s *inMemorySeen) SeenAndRecord(_ context.Context, key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.seen[key]; exists {
		return true
	}

	if len(s.ring) < s.maxSize {
		s.ring = append(s.ring, key)
	} else {
		// Full: overwrite the oldest slot.
		delete(s.seen, s.ring[s.next])
		s.ring[s.next] = key
		s.next = (s.next + 1) % s.maxSize
		s.size.Add(-1)
	}
	s.seen[key] = struct{}{}
	s.size.Add(1)
	return false
}

func (s *inMemorySeen) Size() int64 {
	return s.size.Load()
}
