package factory

import (
	"auto-replier-be/internal/constant"
	"auto-replier-be/pkg/draft"
	"auto-replier-be/pkg/llm/bridge"
	"auto-replier-be/pkg/llm/ollama"
	"context"
	"fmt"
	"net/http"
)

// NewChatProvider builds the streaming chat client for a primary candidate.
func NewChatProvider(c draft.Candidate, modelName string, client *http.Client) (*ollama.OllamaProvider, error) {
	switch c.Kind {
	case draft.PrimaryChat:
		if modelName == "" {
			modelName = constant.DefaultModel
		}
		return ollama.NewOllamaProvider(c.GenerateURL(), c.ProbeURL(), modelName, client), nil
	default:
		return nil, fmt.Errorf("candidate %s is not a chat endpoint", c)
	}
}

// NewBridgeProvider builds the draft client for a fallback candidate.
func NewBridgeProvider(c draft.Candidate, client *http.Client) (*bridge.BridgeProvider, error) {
	switch c.Kind {
	case draft.FallbackBridge:
		return bridge.NewBridgeProvider(c.GenerateURL(), c.ProbeURL(), client), nil
	default:
		return nil, fmt.Errorf("candidate %s is not a bridge endpoint", c)
	}
}

// Check asks c's health path whether it is up, using the client for its kind.
func Check(ctx context.Context, c draft.Candidate, client *http.Client) error {
	switch c.Kind {
	case draft.PrimaryChat:
		p, err := NewChatProvider(c, "", client)
		if err != nil {
			return err
		}
		return p.Version(ctx)
	case draft.FallbackBridge:
		p, err := NewBridgeProvider(c, client)
		if err != nil {
			return err
		}
		return p.Health(ctx)
	default:
		return fmt.Errorf("candidate %s has no health check", c)
	}
}
