package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"auto-replier-be/internal/constant"
	"auto-replier-be/internal/pkg/logger"
	"auto-replier-be/pkg/draft"
	"auto-replier-be/pkg/llm"
	"auto-replier-be/pkg/llm/factory"
	"auto-replier-be/pkg/llm/ollama"
	"auto-replier-be/pkg/mailtext"
)

// BridgeRequest is the body the bridge accepts on POST /draft.
type BridgeRequest struct {
	Email      string
	Style      string
	Creativity string
}

type IBridgeService interface {
	// Open connects to the first chat candidate that answers. An error means
	// every candidate failed; its message is the last failure.
	Open(ctx context.Context, req BridgeRequest) (*BridgeStream, error)
}

type BridgeServiceConfig struct {
	Candidates draft.Candidates
	Model      string
	// Timeout bounds connecting and each silent gap on the upstream stream.
	Timeout time.Duration
	// MaxDuration bounds the whole upstream stream.
	MaxDuration time.Duration
	Client      *http.Client
}

type bridgeService struct {
	cfg    BridgeServiceConfig
	logger logger.ILogger
}

func NewBridgeService(cfg BridgeServiceConfig, log logger.ILogger) IBridgeService {
	if cfg.Client == nil {
		cfg.Client = &http.Client{}
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = constant.BridgeUpstreamTimeout
	}
	if cfg.MaxDuration <= 0 {
		cfg.MaxDuration = constant.DefaultGenerateCeiling
	}
	return &bridgeService{cfg: cfg, logger: log}
}

// BridgePrompt builds the system instruction and the user message for email.
func BridgePrompt(req BridgeRequest) (system, user string) {
	user = mailtext.StripSignature(req.Email)
	sender := mailtext.ExtractSenderName(req.Email)
	lang := mailtext.DetectLanguageHint(user)

	style := strings.TrimSpace(req.Style)
	if style == "" {
		style = constant.BridgeDefaultStyle
	}

	var b strings.Builder
	b.WriteString(constant.BridgeSystemInstruction)
	fmt.Fprintf(&b, " Requested style: %s.", style)
	if lang != "" {
		fmt.Fprintf(&b, " Language hint: %s. Reply in this language.", lang)
	}
	if sender != "" {
		fmt.Fprintf(&b, " Sender display name: %q. Use it exactly in the salutation.", sender)
	}
	return b.String(), user
}

func (s *bridgeService) Open(ctx context.Context, req BridgeRequest) (*BridgeStream, error) {
	system, user := BridgePrompt(req)
	profile := draft.ProfileFor(draft.ParseCreativity(req.Creativity))

	lastErr := errNoCandidates
	for _, c := range s.cfg.Candidates.OfKind(draft.PrimaryChat) {
		provider, err := factory.NewChatProvider(c, s.cfg.Model, s.cfg.Client)
		if err != nil {
			lastErr = err
			continue
		}

		wctx, wd := llm.NewWatchdog(ctx, s.cfg.Timeout)
		wd.Cap(s.cfg.MaxDuration)
		stream, err := provider.ChatStream(wctx,
			[]llm.Message{
				{Role: llm.RoleSystem, Content: system},
				{Role: llm.RoleUser, Content: user},
			},
			llm.WithTemperature(profile.Temperature),
			llm.WithTopP(profile.TopP),
			llm.WithRepeatPenalty(profile.RepeatPenalty),
		)
		if err != nil {
			lastErr = wd.Err(err)
			wd.Stop()
			s.logger.Warn("BRIDGE", "Upstream failed, trying next", map[string]interface{}{"candidate": c.String(), "error": lastErr.Error()})
			continue
		}
		stream.Heartbeat = wd.Kick

		s.logger.Info("BRIDGE", "Proxying draft", map[string]interface{}{"candidate": c.String(), "length": len(user)})
		return &BridgeStream{Candidate: c, stream: stream, wd: wd, logger: s.logger}, nil
	}
	return nil, lastErr
}

// BridgeStream relays one upstream chat stream as plain text.
type BridgeStream struct {
	Candidate draft.Candidate

	stream *ollama.ChatStream
	wd     *llm.Watchdog
	logger logger.ILogger
}

// Relay passes every delta to write until the upstream ends. A write error
// stops the relay and is returned; upstream read errors end it quietly once
// the caller has what arrived.
func (b *BridgeStream) Relay(write func(delta string) error) error {
	defer b.Close()

	var writeErr error
	_, err := b.stream.Consume(func(delta string) {
		if writeErr != nil {
			return
		}
		if writeErr = write(delta); writeErr != nil {
			// abort the upstream read
			b.wd.Stop()
		}
	})
	if writeErr != nil {
		return writeErr
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		b.logger.Warn("BRIDGE", "Upstream stream ended with error", map[string]interface{}{"candidate": b.Candidate.String(), "error": b.wd.Err(err).Error()})
	}
	return nil
}

func (b *BridgeStream) Close() error {
	b.wd.Stop()
	return b.stream.Close()
}
