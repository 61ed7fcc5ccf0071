package ollama

import (
	"auto-replier-be/pkg/llm"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

const readChunkSize = 4096

type OllamaProvider struct {
	ChatURL    string
	VersionURL string
	ModelName  string
	Client     *http.Client
}

func NewOllamaProvider(chatURL, versionURL, modelName string, client *http.Client) *OllamaProvider {
	if client == nil {
		client = &http.Client{}
	}
	return &OllamaProvider{
		ChatURL:    chatURL,
		VersionURL: versionURL,
		ModelName:  modelName,
		Client:     client,
	}
}

// --- Request/Response structs (Internal to this package) ---

type ollamaChatRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
	Options  *ollamaOptions  `json:"options,omitempty"`
}

type ollamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaOptions struct {
	Temperature   float64 `json:"temperature"`
	TopP          float64 `json:"top_p,omitempty"`
	RepeatPenalty float64 `json:"repeat_penalty,omitempty"`
}

type ollamaChatChunk struct {
	Model   string         `json:"model"`
	Message *ollamaMessage `json:"message"`
	Done    bool           `json:"done"`
}

// Version checks the server is up. Any 2xx status counts as healthy.
func (o *OllamaProvider) Version(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.VersionURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	resp, err := o.Client.Do(req)
	if err != nil {
		return fmt.Errorf("ollama request failed: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("ollama error: status %d", resp.StatusCode)
	}
	return nil
}

// ChatStream opens a streaming chat request. The caller owns the returned
// stream and must Close it.
func (o *OllamaProvider) ChatStream(ctx context.Context, history []llm.Message, opts ...llm.Option) (*ChatStream, error) {
	options := llm.Apply(llm.Options{Temperature: 0.7}, opts...)

	messages := make([]ollamaMessage, len(history))
	for i, msg := range history {
		role := msg.Role
		if role == "model" {
			role = llm.RoleAssistant
		}
		messages[i] = ollamaMessage{Role: role, Content: msg.Content}
	}

	payload := ollamaChatRequest{
		Model:    o.ModelName,
		Messages: messages,
		Stream:   true,
		Options: &ollamaOptions{
			Temperature:   options.Temperature,
			TopP:          options.TopP,
			RepeatPenalty: options.RepeatPenalty,
		},
	}

	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.ChatURL, bytes.NewBuffer(payloadBytes))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ollama request failed: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		resp.Body.Close()
		return nil, fmt.Errorf("ollama error: status %d, body: %s", resp.StatusCode, string(body))
	}

	return &ChatStream{body: resp.Body}, nil
}

// ChatStream decodes a newline-delimited chat response.
type ChatStream struct {
	body io.ReadCloser
	acc  llm.StreamAccumulator

	// Heartbeat, when set, is called after every successful read.
	Heartbeat func()
}

// Consume reads the stream to its end, calling onDelta for every non-empty
// content delta in order. done reports whether an explicit done record was
// seen; a stream closed without one returns done=false and a nil error.
// Nothing is read after the done record.
func (s *ChatStream) Consume(onDelta func(delta string)) (done bool, err error) {
	buf := make([]byte, readChunkSize)
	for {
		n, readErr := s.body.Read(buf)
		if n > 0 {
			if s.Heartbeat != nil {
				s.Heartbeat()
			}
			if s.acc.Feed(string(buf[:n]), decodeChatLine, onDelta) {
				return true, nil
			}
		}
		if errors.Is(readErr, io.EOF) {
			return s.acc.Finish(decodeChatLine, onDelta), nil
		}
		if readErr != nil {
			return false, fmt.Errorf("read stream: %w", readErr)
		}
	}
}

// Text returns the content assembled so far.
func (s *ChatStream) Text() string {
	return s.acc.Full()
}

func (s *ChatStream) Close() error {
	return s.body.Close()
}

func decodeChatLine(line string) (string, bool, bool) {
	var chunk ollamaChatChunk
	if err := json.Unmarshal([]byte(line), &chunk); err != nil {
		return "", false, false
	}
	delta := ""
	if chunk.Message != nil {
		delta = chunk.Message.Content
	}
	return delta, chunk.Done, true
}
