// Package window holds the bounded, time-ordered working set of recent
// readings. The store is the sole owner of retained readings; reads
// hand out copies and never observe a mid-mutation window.
package window

import (
	"sort"
	"sync"

	"github.com/luki/soilmon/internal/telemetry"
)

// DefaultCapacity bounds the retained working set.
const DefaultCapacity = 100

// Range is an inclusive timestamp filter in epoch milliseconds.
// An inverted range (Start > End) is treated as no filter.
type Range struct {
	Start int64
	End   int64
}

// Store is the bounded working set of readings, ordered ascending by
// timestamp. Safe for concurrent use.
type Store struct {
	mu       sync.RWMutex
	readings []telemetry.Reading
	capacity int
}

// New creates a store with the given capacity (DefaultCapacity if <= 0).
func New(capacity int) *Store {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Store{
		readings: make([]telemetry.Reading, 0, capacity),
		capacity: capacity,
	}
}

// LoadHistorical replaces the working set with the given readings,
// sorted ascending by timestamp and truncated to the most recent
// capacity entries. Used once at session startup.
func (s *Store) LoadHistorical(readings []telemetry.Reading) {
	sorted := make([]telemetry.Reading, len(readings))
	copy(sorted, readings)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp < sorted[j].Timestamp
	})
	if len(sorted) > s.capacity {
		sorted = sorted[len(sorted)-s.capacity:]
	}

	s.mu.Lock()
	s.readings = sorted
	s.mu.Unlock()
}

// Append inserts a reading at the end, evicting the oldest entry when
// the window is full. Live arrival is near-monotonic, so no re-sort.
func (s *Store) Append(r telemetry.Reading) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.readings) >= s.capacity {
		copy(s.readings, s.readings[1:])
		s.readings[len(s.readings)-1] = r
	} else {
		s.readings = append(s.readings, r)
	}
}

// Filter returns the readings whose timestamps fall within r, inclusive
// on both ends, preserving ascending order. A nil or inverted range
// returns the full window.
func (s *Store) Filter(r *Range) []telemetry.Reading {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if r == nil || r.Start > r.End {
		out := make([]telemetry.Reading, len(s.readings))
		copy(out, s.readings)
		return out
	}

	var out []telemetry.Reading
	for _, rd := range s.readings {
		if rd.Timestamp >= r.Start && rd.Timestamp <= r.End {
			out = append(out, rd)
		}
	}
	return out
}

// Latest returns the most recently appended or loaded reading.
func (s *Store) Latest() (telemetry.Reading, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.readings) == 0 {
		return telemetry.Reading{}, false
	}
	return s.readings[len(s.readings)-1], true
}

// Len returns the number of retained readings.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.readings)
}
