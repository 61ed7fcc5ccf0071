package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"auto-replier-be/internal/constant"
	"auto-replier-be/pkg/draft"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBridgePrompt(t *testing.T) {
	email := "From: Internshala <noreply@internshala.com>\nनमस्ते, आपका आवेदन प्राप्त हुआ।" + strings.Repeat(" विवरण", 10) + "\nBest regards,\nTeam"

	system, user := BridgePrompt(BridgeRequest{Email: email})

	assert.True(t, strings.HasPrefix(system, constant.BridgeSystemInstruction))
	assert.Contains(t, system, "Requested style: "+constant.BridgeDefaultStyle)
	assert.Contains(t, system, "Language hint: Hindi")
	assert.Contains(t, system, `Sender display name: "Internshala"`)
	assert.Equal(t, 1, strings.Count(system, "Sender display name"))
	assert.NotContains(t, user, "Best regards")

	system, _ = BridgePrompt(BridgeRequest{Email: "short note", Style: "formal"})
	assert.Contains(t, system, "Requested style: formal.")
	assert.NotContains(t, system, "Language hint")
	assert.NotContains(t, system, "Sender display name")
}

func TestBridgeOpenFallsThroughToNextChat(t *testing.T) {
	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer down.Close()

	var got map[string]interface{}
	up := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(chatLine("Hi ", false) + chatLine("Ana", false) + chatLine("", true)))
	}))
	defer up.Close()

	svc := NewBridgeService(BridgeServiceConfig{
		Candidates: draft.NewCandidates(draft.ChatCandidate(addressOf(down)), draft.BridgeCandidate("localhost:1"), draft.ChatCandidate(addressOf(up))),
		Model:      "llama3.2",
		Timeout:    time.Second,
	}, nopLogger())

	stream, err := svc.Open(context.Background(), BridgeRequest{Email: "Hello", Creativity: "precise"})
	require.NoError(t, err)
	assert.Equal(t, addressOf(up), stream.Candidate.Address)

	var deltas []string
	require.NoError(t, stream.Relay(func(d string) error {
		deltas = append(deltas, d)
		return nil
	}))
	assert.Equal(t, []string{"Hi ", "Ana"}, deltas)

	assert.Equal(t, true, got["stream"])
	options := got["options"].(map[string]interface{})
	assert.InDelta(t, 0.2, options["temperature"], 1e-9)
}

func TestBridgeRelayStopsOnWriteError(t *testing.T) {
	up := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(chatLine("one", false) + chatLine("two", false) + chatLine("", true)))
	}))
	defer up.Close()

	svc := NewBridgeService(BridgeServiceConfig{Candidates: draft.NewCandidates(draft.ChatCandidate(addressOf(up)))}, nopLogger())
	stream, err := svc.Open(context.Background(), BridgeRequest{Email: "Hello"})
	require.NoError(t, err)

	gone := errors.New("client gone")
	calls := 0
	err = stream.Relay(func(string) error {
		calls++
		return gone
	})
	assert.ErrorIs(t, err, gone)
	assert.Equal(t, 1, calls)
}

func TestBridgeOpenAllFail(t *testing.T) {
	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer down.Close()

	svc := NewBridgeService(BridgeServiceConfig{Candidates: draft.NewCandidates(draft.ChatCandidate(addressOf(down)))}, nopLogger())
	_, err := svc.Open(context.Background(), BridgeRequest{Email: "Hello"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 503")

	_, err = NewBridgeService(BridgeServiceConfig{}, nopLogger()).Open(context.Background(), BridgeRequest{})
	assert.ErrorIs(t, err, errNoCandidates)
}
