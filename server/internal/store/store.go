package store

import (
	"log/slog"
	"sort"
	"sync"
	"time"
)

// Bounds optionally clamps accumulated adjustments. When Enabled is false the
// stored value is the exact sum of every delta applied to a key.
type Bounds struct {
	Enabled bool
	Min     int
	Max     int
}

func (b Bounds) apply(v int) int {
	if !b.Enabled {
		return v
	}
	if v < b.Min {
		return b.Min
	}
	if v > b.Max {
		return b.Max
	}
	return v
}

// Entry is one route key with its accumulated adjustment.
type Entry struct {
	Key        string    `json:"route_key"`
	Adjustment int       `json:"adjustment"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Store is a thread-safe in-memory adjustment accumulator, keyed by route key.
// Keys are created implicitly at zero and never removed.
type Store struct {
	mu     sync.RWMutex
	data   map[string]*Entry
	bounds Bounds
	now    func() time.Time // injectable for deterministic tests
}

// New creates an empty Store with the given clamp bounds.
func New(b Bounds) *Store {
	return &Store{
		data:   make(map[string]*Entry),
		bounds: b,
		now:    time.Now,
	}
}

// Get returns the accumulated adjustment for key, or 0 if it was never seen.
func (s *Store) Get(key string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if e, ok := s.data[key]; ok {
		return e.Adjustment
	}
	return 0
}

// Apply adds delta to the adjustment for key and returns the new value.
// The read-modify-write runs under the write lock so concurrent Apply calls
// on the same key never lose updates.
func (s *Store) Apply(key string, delta int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.data[key]
	if !ok {
		e = &Entry{Key: key}
		s.data[key] = e
	}
	e.Adjustment = s.bounds.apply(e.Adjustment + delta)
	e.UpdatedAt = s.now()
	return e.Adjustment
}

// SetBounds replaces the clamp bounds. Existing values are left as they are
// and only clamped on their next Apply.
func (s *Store) SetBounds(b Bounds) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b != s.bounds {
		slog.Info("store: adjustment bounds changed",
			"enabled", b.Enabled, "min", b.Min, "max", b.Max)
	}
	s.bounds = b
}

// List returns copies of all entries sorted by key.
func (s *Store) List() []Entry {
	s.mu.RLock()
	out := make([]Entry, 0, len(s.data))
	for _, e := range s.data {
		out = append(out, *e)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// Count returns the number of route keys that have received at least one delta.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}
