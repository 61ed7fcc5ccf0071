package draft

import (
	"strings"
	"sync"
)

// Tracker is the consumer half of generation IDs. It follows the latest
// started generation and ignores events from superseded ones. An event with a
// higher id than the followed one means a newer generation started, and the
// tracker switches to it.
type Tracker struct {
	mu         sync.Mutex
	current    uint64
	text       strings.Builder
	inProgress bool
}

// Start begins following generation id and clears the buffered text.
// A lower id than the one already followed is ignored.
func (t *Tracker) Start(id uint64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if id < t.current {
		return false
	}
	t.current = id
	t.text.Reset()
	t.inProgress = true
	return true
}

// Partial appends delta when id is the followed generation.
func (t *Tracker) Partial(id uint64, delta string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.accepts(id) {
		return false
	}
	t.text.WriteString(delta)
	return true
}

// Final replaces the buffered text with content and ends the generation.
func (t *Tracker) Final(id uint64, content string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.accepts(id) {
		return false
	}
	t.text.Reset()
	t.text.WriteString(content)
	t.inProgress = false
	return true
}

// Fail ends the generation without touching the text.
func (t *Tracker) Fail(id uint64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.accepts(id) {
		return false
	}
	t.inProgress = false
	return true
}

func (t *Tracker) Text() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.text.String()
}

func (t *Tracker) InProgress() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.inProgress
}

// Current is the followed generation id, zero before the first Start.
func (t *Tracker) Current() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current
}

func (t *Tracker) accepts(id uint64) bool {
	if id > t.current {
		t.current = id
		t.text.Reset()
		t.inProgress = true
		return true
	}
	return t.inProgress && id == t.current
}
