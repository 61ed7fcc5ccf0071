// Package gmail sends plain-text messages through the Gmail REST API.
package gmail

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"gopkg.in/gomail.v2"
)

const (
	DefaultBaseURL = "https://www.googleapis.com"
	sendEndpoint   = "/gmail/v1/users/me/messages/send"
)

var ErrNoRecipient = errors.New("no recipient address")

// Envelope is one outgoing message. It is never stored.
type Envelope struct {
	To      string
	Subject string
	Body    string
}

// APIError is a non-2xx answer from the send endpoint.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("Send failed: %d %s", e.Status, e.Body)
}

// SentMessage is the subset of the send response we use.
type SentMessage struct {
	ID       string   `json:"id"`
	ThreadID string   `json:"threadId"`
	LabelIDs []string `json:"labelIds"`
}

type Client struct {
	BaseURL string
	HTTP    *http.Client
}

func NewClient(baseURL string, httpClient *http.Client) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{BaseURL: baseURL, HTTP: httpClient}
}

// Raw renders env as an RFC 2822 message encoded with unpadded base64url, the
// form expected in the "raw" field.
func Raw(env Envelope) (string, error) {
	if env.To == "" {
		return "", ErrNoRecipient
	}
	m := gomail.NewMessage(gomail.SetCharset("UTF-8"))
	m.SetHeader("To", env.To)
	m.SetHeader("Subject", env.Subject)
	m.SetBody("text/plain", env.Body)

	var buf bytes.Buffer
	if _, err := m.WriteTo(&buf); err != nil {
		return "", fmt.Errorf("build message: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf.Bytes()), nil
}

// Send posts env with the given bearer token.
func (c *Client) Send(ctx context.Context, accessToken string, env Envelope) (*SentMessage, error) {
	raw, err := Raw(env)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(map[string]string{"raw": raw})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+sendEndpoint, bytes.NewBuffer(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gmail request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &APIError{Status: resp.StatusCode, Body: string(body)}
	}

	var sent SentMessage
	if err := json.NewDecoder(resp.Body).Decode(&sent); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &sent, nil
}
