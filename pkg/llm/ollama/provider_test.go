package ollama

import (
	"auto-replier-be/pkg/llm"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestProvider(baseURL, model string, client *http.Client) *OllamaProvider {
	return NewOllamaProvider(baseURL+"/api/chat", baseURL+"/api/version", model, client)
}

func TestVersion(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/version", r.URL.Path)
		_, _ = io.WriteString(w, `{"version":"0.5.0"}`)
	}))
	defer srv.Close()

	require.NoError(t, newTestProvider(srv.URL, "llama3.2", nil).Version(context.Background()))

	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer down.Close()

	assert.Error(t, newTestProvider(down.URL, "llama3.2", nil).Version(context.Background()))
}

func TestChatStreamSendsOptionsAndAssembles(t *testing.T) {
	var got ollamaChatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		flusher := w.(http.Flusher)
		_, _ = io.WriteString(w, `{"message":{"content":"Hel"},"done":false}`+"\n{\"message\":")
		flusher.Flush()
		_, _ = io.WriteString(w, `{"content":"lo"},"done":false}`+"\n")
		flusher.Flush()
		_, _ = io.WriteString(w, `{"done":true}`+"\n"+`{"message":{"content":"ignored"}}`+"\n")
	}))
	defer srv.Close()

	p := newTestProvider(srv.URL, "llama3.2", nil)
	stream, err := p.ChatStream(context.Background(),
		[]llm.Message{{Role: llm.RoleSystem, Content: "sys"}, {Role: "model", Content: "prev"}},
		llm.WithTemperature(0.2), llm.WithTopP(0.8), llm.WithRepeatPenalty(1.15))
	require.NoError(t, err)
	defer stream.Close()

	beats := 0
	stream.Heartbeat = func() { beats++ }

	var deltas []string
	done, err := stream.Consume(func(d string) { deltas = append(deltas, d) })
	require.NoError(t, err)

	assert.True(t, done)
	assert.Equal(t, []string{"Hel", "lo"}, deltas)
	assert.Equal(t, "Hello", stream.Text())
	assert.Positive(t, beats)

	assert.True(t, got.Stream)
	assert.Equal(t, "llama3.2", got.Model)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, llm.RoleAssistant, got.Messages[1].Role)
	require.NotNil(t, got.Options)
	assert.InDelta(t, 0.2, got.Options.Temperature, 1e-9)
	assert.InDelta(t, 0.8, got.Options.TopP, 1e-9)
	assert.InDelta(t, 1.15, got.Options.RepeatPenalty, 1e-9)
}

func TestChatStreamWithoutDoneRecord(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"message":{"content":"partial"}}`)
	}))
	defer srv.Close()

	stream, err := newTestProvider(srv.URL, "m", nil).ChatStream(context.Background(), nil)
	require.NoError(t, err)
	defer stream.Close()

	done, err := stream.Consume(func(string) {})
	require.NoError(t, err)
	assert.False(t, done)
	assert.Equal(t, "partial", stream.Text())
}

func TestChatStreamErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := newTestProvider(srv.URL, "m", nil).ChatStream(context.Background(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 404")
	assert.Contains(t, err.Error(), "model not found")
}
