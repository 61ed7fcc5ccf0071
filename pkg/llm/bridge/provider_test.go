package bridge

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDraftStreamed(t *testing.T) {
	var got DraftRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/draft", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		flusher := w.(http.Flusher)
		_, _ = io.WriteString(w, "Hello")
		flusher.Flush()
		_, _ = io.WriteString(w, " world")
		flusher.Flush()
	}))
	defer srv.Close()

	resp, err := NewBridgeProvider(srv.URL+"/draft", srv.URL+"/", nil).Draft(context.Background(), DraftRequest{Email: "Hi", Creativity: "creative"})
	require.NoError(t, err)
	defer resp.Close()

	require.True(t, resp.Streaming())

	var text string
	require.NoError(t, resp.Consume(func(c string) { text += c }))
	assert.Equal(t, "Hello world", text)
	assert.Equal(t, "Hi", got.Email)
	assert.Equal(t, "creative", got.Creativity)
}

func TestDraftWhole(t *testing.T) {
	body := "Draft:\nThanks!"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", strconv.Itoa(len(body)))
		_, _ = io.WriteString(w, body)
	}))
	defer srv.Close()

	resp, err := NewBridgeProvider(srv.URL+"/draft", srv.URL+"/", nil).Draft(context.Background(), DraftRequest{Email: "Hi"})
	require.NoError(t, err)
	defer resp.Close()

	assert.False(t, resp.Streaming())
	text, err := resp.ReadAll()
	require.NoError(t, err)
	assert.Equal(t, body, text)
}

func TestDraftErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Error contacting local model: refused", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewBridgeProvider(srv.URL+"/draft", srv.URL+"/", nil).Draft(context.Background(), DraftRequest{Email: "Hi"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 502")
}

func TestHealth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		_, _ = io.WriteString(w, "ok")
	}))
	defer srv.Close()

	require.NoError(t, NewBridgeProvider(srv.URL+"/draft", srv.URL+"/", nil).Health(context.Background()))
	assert.Error(t, NewBridgeProvider(srv.URL+"/draft", srv.URL+"/missing", nil).Health(context.Background()))
}

func TestCompleteUTF8Prefix(t *testing.T) {
	euro := []byte("€") // 3 bytes

	assert.Equal(t, 2, completeUTF8Prefix([]byte("ab")))
	assert.Equal(t, 3, completeUTF8Prefix(euro))
	assert.Equal(t, 1, completeUTF8Prefix(append([]byte("a"), euro[:2]...)))
	assert.Equal(t, 0, completeUTF8Prefix(euro[:1]))
	assert.Equal(t, 0, completeUTF8Prefix(nil))
}
