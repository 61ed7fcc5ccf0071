package service

import (
	"context"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"auto-replier-be/internal/pkg/logger"
	"auto-replier-be/pkg/events"

	"github.com/stretchr/testify/require"
)

// recorder is an events.Publisher that keeps everything it receives.
type recorder struct {
	mu     sync.Mutex
	events []events.BusEvent
}

func (r *recorder) Publish(_ context.Context, e events.BusEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) all() []events.BusEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]events.BusEvent(nil), r.events...)
}

func (r *recorder) ofType(eventType string) []events.BusEvent {
	var out []events.BusEvent
	for _, e := range r.all() {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

// waitFor polls until some event of eventType arrives.
func (r *recorder) waitFor(t *testing.T, eventType string) events.BusEvent {
	t.Helper()
	var found events.BusEvent
	require.Eventually(t, func() bool {
		got := r.ofType(eventType)
		if len(got) == 0 {
			return false
		}
		found = got[len(got)-1]
		return true
	}, 3*time.Second, 10*time.Millisecond, "no %s event", eventType)
	return found
}

func addressOf(srv *httptest.Server) string {
	return strings.TrimPrefix(srv.URL, "http://")
}

func nopLogger() logger.ILogger {
	return logger.NewNopLogger()
}

// staticAvailability is a fixed AvailabilityReader.
type staticAvailability bool

func (s staticAvailability) Available() bool { return bool(s) }
