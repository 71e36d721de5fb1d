// Package clock provides the time source used wherever promotion eligibility
// is time-gated. Tests and the simulation API swap the system clock for a
// fixed or adjustable one.
package clock

import (
	"sync"
	"time"
)

// Clock allows injecting time into services.
type Clock interface {
	Now() time.Time
}

type fixedClock struct {
	now time.Time
}

// NewFixed returns a clock that always returns the same instant.
func NewFixed(t time.Time) Clock {
	return fixedClock{now: t.UTC()}
}

func (f fixedClock) Now() time.Time {
	return f.now
}

// Simulation is a freely adjustable clock. Until Set is called it follows
// the wall clock; afterwards it reports the pinned instant.
type Simulation struct {
	mu     sync.RWMutex
	pinned *time.Time
}

// NewSimulation returns a Simulation clock. A zero start leaves it following
// wall-clock time.
func NewSimulation(start time.Time) *Simulation {
	s := &Simulation{}
	if !start.IsZero() {
		s.Set(start)
	}
	return s
}

func (s *Simulation) Now() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.pinned == nil {
		return time.Now().UTC()
	}
	return *s.pinned
}

// Set pins the clock to t. Rewinding is allowed.
func (s *Simulation) Set(t time.Time) {
	t = t.UTC()
	s.mu.Lock()
	s.pinned = &t
	s.mu.Unlock()
}

// Advance moves a pinned clock by d, pinning it at the current wall time
// first if needed.
func (s *Simulation) Advance(d time.Duration) time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	base := time.Now().UTC()
	if s.pinned != nil {
		base = *s.pinned
	}
	next := base.Add(d)
	s.pinned = &next
	return next
}

// Reset releases the pinned instant so the clock follows wall time again.
func (s *Simulation) Reset() {
	s.mu.Lock()
	s.pinned = nil
	s.mu.Unlock()
}

// Pinned reports whether the clock is pinned to a simulated instant.
func (s *Simulation) Pinned() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pinned != nil
}
