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
	"auto-replier-be/pkg/events"
	"auto-replier-be/pkg/llm"
	"auto-replier-be/pkg/llm/bridge"
	"auto-replier-be/pkg/llm/factory"
)

var errNoCandidates = errors.New("no candidates configured")

type IDraftService interface {
	// Generate runs one attempt and publishes zero or more partial events
	// followed by exactly one final or draft_error, all tagged with id.
	Generate(ctx context.Context, id uint64, req draft.Request, pub events.Publisher)
}

type DraftServiceConfig struct {
	Candidates  draft.Candidates
	Model       string
	IdleTimeout time.Duration
	MaxDuration time.Duration // per candidate, even while bytes keep arriving
	Client      *http.Client
}

type draftService struct {
	cfg          DraftServiceConfig
	availability draft.AvailabilityReader
	logger       logger.ILogger
}

func NewDraftService(cfg DraftServiceConfig, availability draft.AvailabilityReader, log logger.ILogger) IDraftService {
	if cfg.Client == nil {
		cfg.Client = &http.Client{}
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = constant.DefaultGenerateTimeout
	}
	if cfg.MaxDuration <= 0 {
		cfg.MaxDuration = constant.DefaultGenerateCeiling
	}
	return &draftService{cfg: cfg, availability: availability, logger: log}
}

// attempt guards the one-terminal-event rule for a single generation.
type attempt struct {
	ctx  context.Context
	id   uint64
	pub  events.Publisher
	done bool
}

func (a *attempt) partial(delta string) {
	if a.done || delta == "" {
		return
	}
	a.pub.Publish(a.ctx, events.Partial(a.id, delta))
}

func (a *attempt) final(content string) {
	if a.done {
		return
	}
	a.done = true
	a.pub.Publish(a.ctx, events.Final(a.id, content))
}

func (a *attempt) fail(msg string) {
	if a.done {
		return
	}
	a.done = true
	a.pub.Publish(a.ctx, events.DraftError(a.id, msg))
}

func (s *draftService) Generate(ctx context.Context, id uint64, req draft.Request, pub events.Publisher) {
	at := &attempt{ctx: ctx, id: id, pub: pub}
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("DRAFT", "Generation panicked", map[string]interface{}{"generation_id": id, "panic": fmt.Sprint(r)})
			at.fail(fmt.Sprintf("internal error: %v", r))
		}
	}()

	if !s.availability.Available() {
		at.fail(draft.ErrModelUnavailable.Error())
		return
	}

	req = req.Normalized()
	lastErr := errNoCandidates

	for _, c := range s.cfg.Candidates.OfKind(draft.PrimaryChat) {
		err := s.tryChat(ctx, c, req, at)
		if err == nil {
			return
		}
		s.logger.Warn("DRAFT", "Chat candidate failed", map[string]interface{}{"generation_id": id, "candidate": c.String(), "error": err.Error()})
		lastErr = err
	}

	for _, c := range s.cfg.Candidates.OfKind(draft.FallbackBridge) {
		err := s.tryBridge(ctx, c, req, at)
		if err == nil {
			return
		}
		s.logger.Warn("DRAFT", "Bridge candidate failed", map[string]interface{}{"generation_id": id, "candidate": c.String(), "error": err.Error()})
		lastErr = err
	}

	at.fail(constant.ConnectErrorPrefix + lastErr.Error())
}

// tryChat returns nil once it has published a terminal event. Any error is a
// soft failure and nothing terminal was published.
func (s *draftService) tryChat(ctx context.Context, c draft.Candidate, req draft.Request, at *attempt) error {
	provider, err := factory.NewChatProvider(c, s.cfg.Model, s.cfg.Client)
	if err != nil {
		return err
	}

	wctx, wd := llm.NewWatchdog(ctx, s.cfg.IdleTimeout)
	defer wd.Stop()
	wd.Cap(s.cfg.MaxDuration)

	profile := draft.ProfileFor(req.Creativity)
	stream, err := provider.ChatStream(wctx,
		[]llm.Message{
			{Role: llm.RoleSystem, Content: req.SystemInstruction()},
			{Role: llm.RoleUser, Content: req.UserContent()},
		},
		llm.WithTemperature(profile.Temperature),
		llm.WithTopP(profile.TopP),
		llm.WithRepeatPenalty(profile.RepeatPenalty),
	)
	if err != nil {
		return wd.Err(err)
	}
	defer stream.Close()
	stream.Heartbeat = wd.Kick

	emitted := false
	_, err = stream.Consume(func(delta string) {
		emitted = true
		at.partial(delta)
	})
	if err != nil {
		if !emitted {
			return wd.Err(err)
		}
		s.logger.Warn("DRAFT", "Stream broke after output, finishing with what arrived", map[string]interface{}{"generation_id": at.id, "candidate": c.String(), "error": wd.Err(err).Error()})
	}

	at.final(draft.Sanitize(stream.Text()))
	return nil
}

func (s *draftService) tryBridge(ctx context.Context, c draft.Candidate, req draft.Request, at *attempt) error {
	provider, err := factory.NewBridgeProvider(c, s.cfg.Client)
	if err != nil {
		return err
	}

	wctx, wd := llm.NewWatchdog(ctx, s.cfg.IdleTimeout)
	defer wd.Stop()
	wd.Cap(s.cfg.MaxDuration)

	resp, err := provider.Draft(wctx, bridge.DraftRequest{
		Email:      req.UserContent(),
		Style:      req.Style,
		Creativity: string(req.Creativity),
	})
	if err != nil {
		return wd.Err(err)
	}
	defer resp.Close()
	resp.Heartbeat = wd.Kick

	if !resp.Streaming() {
		text, err := resp.ReadAll()
		if err != nil {
			return wd.Err(err)
		}
		at.final(draft.Sanitize(text))
		return nil
	}

	var full strings.Builder
	emitted := false
	err = resp.Consume(func(chunk string) {
		full.WriteString(chunk)
		emitted = true
		at.partial(chunk)
	})
	if err != nil {
		if !emitted {
			return wd.Err(err)
		}
		s.logger.Warn("DRAFT", "Bridge stream broke after output, finishing with what arrived", map[string]interface{}{"generation_id": at.id, "error": wd.Err(err).Error()})
	}

	at.final(draft.Sanitize(full.String()))
	return nil
}
