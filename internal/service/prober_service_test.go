package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"auto-replier-be/pkg/draft"

	"github.com/stretchr/testify/assert"
)

func TestProbe(t *testing.T) {
	ok := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, draft.ChatProbePath, r.URL.Path)
		_, _ = w.Write([]byte(`{"version":"x"}`))
	}))
	defer ok.Close()

	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer broken.Close()

	p := NewProberService(nil, time.Second, nopLogger())

	assert.True(t, p.Probe(context.Background(), draft.ChatCandidate(addressOf(ok))))
	assert.False(t, p.Probe(context.Background(), draft.ChatCandidate(addressOf(broken))))
	assert.False(t, p.Probe(context.Background(), draft.ChatCandidate("127.0.0.1:1")))
}

func TestProbeTimeoutIsUnreachable(t *testing.T) {
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer slow.Close()

	p := NewProberService(nil, 50*time.Millisecond, nopLogger())

	start := time.Now()
	assert.False(t, p.Probe(context.Background(), draft.ChatCandidate(addressOf(slow))))
	assert.Less(t, time.Since(start), time.Second)
}

func TestProbeUsesHealthPathOfKind(t *testing.T) {
	hits := make(chan string, 2)
	up := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits <- r.URL.Path
	}))
	defer up.Close()

	p := NewProberService(nil, time.Second, nopLogger())
	assert.True(t, p.Probe(context.Background(), draft.BridgeCandidate(addressOf(up))))
	assert.Equal(t, draft.BridgeProbePath, <-hits)
	assert.True(t, p.Probe(context.Background(), draft.ChatCandidate(addressOf(up))))
	assert.Equal(t, draft.ChatProbePath, <-hits)
}

func TestFirstAndAnyReachable(t *testing.T) {
	hits := make(chan string, 10)
	up := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits <- r.URL.Path
	}))
	defer up.Close()

	p := NewProberService(nil, time.Second, nopLogger())
	down := draft.ChatCandidate("127.0.0.1:1")
	bridgeUp := draft.BridgeCandidate(addressOf(up))
	chatUp := draft.ChatCandidate(addressOf(up))

	got, ok := p.FirstReachable(context.Background(), []draft.Candidate{down, bridgeUp, chatUp})
	assert.True(t, ok)
	assert.Equal(t, bridgeUp, got)
	assert.Len(t, hits, 1, "probing stops at the first success")

	_, ok = p.FirstReachable(context.Background(), []draft.Candidate{down})
	assert.False(t, ok)

	assert.True(t, p.AnyReachable(context.Background(), []draft.Candidate{down, chatUp}))
	assert.False(t, p.AnyReachable(context.Background(), []draft.Candidate{down}))
	assert.False(t, p.AnyReachable(context.Background(), nil))
}
