package draft

import (
	"sync"
	"sync/atomic"
)

// Availability is the process-wide "is any backend reachable" flag.
// It has exactly one writer (the coordinator); readers keep a handle and may
// observe a slightly stale value.
type Availability struct {
	available atomic.Bool

	mu     sync.Mutex
	subs   map[uint64]func(bool)
	nextID uint64
}

func NewAvailability() *Availability {
	return &Availability{subs: make(map[uint64]func(bool))}
}

// Available reports the last recorded probe result.
func (a *Availability) Available() bool {
	return a.available.Load()
}

// Set records a probe result and notifies every subscriber, even when the
// value did not change.
func (a *Availability) Set(available bool) {
	a.available.Store(available)

	a.mu.Lock()
	fns := make([]func(bool), 0, len(a.subs))
	for _, fn := range a.subs {
		fns = append(fns, fn)
	}
	a.mu.Unlock()

	for _, fn := range fns {
		fn(available)
	}
}

// Subscribe registers fn for every Set and returns a function that removes it.
func (a *Availability) Subscribe(fn func(available bool)) func() {
	a.mu.Lock()
	id := a.nextID
	a.nextID++
	a.subs[id] = fn
	a.mu.Unlock()

	return func() {
		a.mu.Lock()
		delete(a.subs, id)
		a.mu.Unlock()
	}
}

// AvailabilityReader is the read side handed to components that only consult the flag.
type AvailabilityReader interface {
	Available() bool
}
