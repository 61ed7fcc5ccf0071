// Package bridge talks to the local fallback bridge, a plain-text proxy that
// sits in front of the chat backends.
package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"unicode/utf8"
)

const readChunkSize = 4096

type BridgeProvider struct {
	DraftURL  string
	HealthURL string
	Client    *http.Client
}

func NewBridgeProvider(draftURL, healthURL string, client *http.Client) *BridgeProvider {
	if client == nil {
		client = &http.Client{}
	}
	return &BridgeProvider{DraftURL: draftURL, HealthURL: healthURL, Client: client}
}

// DraftRequest is the body accepted by the draft endpoint.
type DraftRequest struct {
	Email      string `json:"email"`
	Style      string `json:"style,omitempty"`
	Creativity string `json:"creativity,omitempty"`
}

// Health checks the health URL. Any 2xx counts as healthy.
func (b *BridgeProvider) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.HealthURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	resp, err := b.Client.Do(req)
	if err != nil {
		return fmt.Errorf("bridge request failed: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("bridge error: status %d", resp.StatusCode)
	}
	return nil
}

// Draft posts the request and returns the open response.
func (b *BridgeProvider) Draft(ctx context.Context, draft DraftRequest) (*DraftResponse, error) {
	payload, err := json.Marshal(draft)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.DraftURL, bytes.NewBuffer(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("bridge request failed: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		resp.Body.Close()
		return nil, fmt.Errorf("bridge error: status %d, body: %s", resp.StatusCode, string(body))
	}

	return &DraftResponse{resp: resp}, nil
}

// DraftResponse is a plain-text reply, streamed or whole.
type DraftResponse struct {
	resp *http.Response

	// Heartbeat, when set, is called after every successful read.
	Heartbeat func()
}

// Streaming reports whether the body arrives in chunks of unknown total length.
func (r *DraftResponse) Streaming() bool {
	return r.resp.ContentLength < 0
}

// ReadAll reads the whole body as one text.
func (r *DraftResponse) ReadAll() (string, error) {
	body, err := io.ReadAll(r.resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	return string(body), nil
}

// Consume calls onChunk with every chunk of text in arrival order. A multi-byte
// rune split across reads is held back until it is complete.
func (r *DraftResponse) Consume(onChunk func(chunk string)) error {
	buf := make([]byte, readChunkSize)
	var carry []byte
	for {
		n, readErr := r.resp.Body.Read(buf)
		if n > 0 {
			if r.Heartbeat != nil {
				r.Heartbeat()
			}
			data := append(carry, buf[:n]...)
			cut := completeUTF8Prefix(data)
			carry = append([]byte(nil), data[cut:]...)
			if cut > 0 {
				onChunk(string(data[:cut]))
			}
		}
		if errors.Is(readErr, io.EOF) {
			if len(carry) > 0 {
				onChunk(string(carry))
			}
			return nil
		}
		if readErr != nil {
			return fmt.Errorf("read stream: %w", readErr)
		}
	}
}

func (r *DraftResponse) Close() error {
	return r.resp.Body.Close()
}

// completeUTF8Prefix returns the length of the longest prefix of b that does
// not end inside a multi-byte sequence.
func completeUTF8Prefix(b []byte) int {
	for i := len(b) - 1; i >= 0 && i >= len(b)-utf8.UTFMax; i-- {
		if !utf8.RuneStart(b[i]) {
			continue
		}
		if utf8.FullRune(b[i:]) {
			return len(b)
		}
		return i
	}
	return len(b)
}
