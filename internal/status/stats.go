// internal/status/stats.go

// Package status aggregates process-wide counters and exposes them to
// the health interface. Counters only ever grow; lastError and
// lastAcceptKey hold the most recent value.
package status

import (
	"sync"
	"time"
)

// Stats is the mutable aggregate. Only the watcher loop writes it; the
// health handler reads immutable snapshots.
type Stats struct {
	mu sync.Mutex

	ready         bool
	lastTick      time.Time
	acceptedTotal int64
	triedTotal    int64
	errorsTotal   int64
	lastError     string
	lastAcceptKey string
}

func NewStats() *Stats {
	return &Stats{}
}

// SetReady marks startup complete (initial navigation and auth done).
func (s *Stats) SetReady(ready bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ready = ready
}

// RecordTick folds one tick's counters into the totals.
func (s *Stats) RecordTick(accepted, tried, errors int, lastAcceptKey string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.acceptedTotal += int64(accepted)
	s.triedTotal += int64(tried)
	s.errorsTotal += int64(errors)
	if lastAcceptKey != "" {
		s.lastAcceptKey = lastAcceptKey
	}
}

// RecordError counts a loop-level failure and keeps its message.
func (s *Stats) RecordError(err error) {
	if err == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errorsTotal++
	s.lastError = err.Error()
}

// MarkTick stamps the end of a watcher iteration, successful or not.
func (s *Stats) MarkTick(at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastTick = at
}

// Snapshot is an immutable view of the stats at one point in time.
type Snapshot struct {
	Ready         bool
	LastTick      time.Time
	AcceptedTotal int64
	TriedTotal    int64
	ErrorsTotal   int64
	LastError     string
	LastAcceptKey string
}

func (s *Stats) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		Ready:         s.ready,
		LastTick:      s.lastTick,
		AcceptedTotal: s.acceptedTotal,
		TriedTotal:    s.triedTotal,
		ErrorsTotal:   s.errorsTotal,
		LastError:     s.lastError,
		LastAcceptKey: s.lastAcceptKey,
	}
}
