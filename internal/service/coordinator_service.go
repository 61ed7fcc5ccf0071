package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"auto-replier-be/internal/pkg/logger"
	"auto-replier-be/pkg/draft"
	"auto-replier-be/pkg/events"
)

// ICoordinatorService is the background side of the bus. It turns commands
// into work and work into events.
type ICoordinatorService interface {
	// Dispatch handles cmd on its own goroutine and returns at once. For
	// generateDraft it returns the generation id of the new attempt, else 0.
	Dispatch(ctx context.Context, cmd events.Command) uint64
	// RefreshAvailability probes every candidate, records the result and
	// broadcasts it.
	RefreshAvailability(ctx context.Context) bool
	// ActiveCandidate returns the candidate a generation would reach first.
	ActiveCandidate(ctx context.Context) (draft.Candidate, bool)
	// RunProbeLoop refreshes availability now and then every interval until ctx ends.
	RunProbeLoop(ctx context.Context, interval time.Duration)
	// Wait blocks until every dispatched command finished.
	Wait()
}

type coordinatorService struct {
	candidates   draft.Candidates
	availability *draft.Availability
	prober       IProberService
	drafts       IDraftService
	mail         IMailService
	extractions  IExtractionService
	publisher    events.Publisher
	logger       logger.ILogger

	nextID atomic.Uint64
	wg     sync.WaitGroup
}

type CoordinatorDeps struct {
	Candidates   draft.Candidates
	Availability *draft.Availability
	Prober       IProberService
	Drafts       IDraftService
	Mail         IMailService
	Extractions  IExtractionService
	Publisher    events.Publisher
	Logger       logger.ILogger
}

func NewCoordinatorService(deps CoordinatorDeps) ICoordinatorService {
	c := &coordinatorService{
		candidates:   deps.Candidates,
		availability: deps.Availability,
		prober:       deps.Prober,
		drafts:       deps.Drafts,
		mail:         deps.Mail,
		extractions:  deps.Extractions,
		publisher:    deps.Publisher,
		logger:       deps.Logger,
	}
	// every probe result is broadcast, changed or not
	c.availability.Subscribe(func(available bool) {
		c.publisher.Publish(context.Background(), events.ModelStatus(available))
	})
	return c
}

func (c *coordinatorService) Dispatch(ctx context.Context, cmd events.Command) uint64 {
	// commands outlive the request or connection that carried them
	ctx = context.WithoutCancel(ctx)

	var id uint64
	if cmd.Type == events.CommandGenerateDraft {
		id = c.nextID.Add(1)
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer c.recoverCommand(ctx, cmd.Type, id)
		c.handle(ctx, cmd, id)
	}()
	return id
}

func (c *coordinatorService) Wait() {
	c.wg.Wait()
}

func (c *coordinatorService) handle(ctx context.Context, cmd events.Command, id uint64) {
	c.logger.Debug("COORDINATOR", "Handling command", map[string]interface{}{"type": cmd.Type, "generation_id": id})

	switch cmd.Type {
	case events.CommandGenerateDraft:
		c.generate(ctx, cmd, id)

	case events.CommandCheckAvailability:
		c.RefreshAvailability(ctx)

	case events.CommandSendViaGmail:
		_, err := c.mail.Send(ctx, SendRequest{To: cmd.To, Subject: cmd.Subject, Body: cmd.Body, AccessToken: cmd.AccessToken})
		if err != nil {
			c.publisher.Publish(ctx, events.Failure(events.TypeGmailSendError, err.Error()))
			return
		}
		c.publisher.Publish(ctx, events.Simple(events.TypeGmailSendSuccess))

	case events.CommandClearCachedToken:
		if err := c.mail.ClearToken(ctx); err != nil {
			c.publisher.Publish(ctx, events.Failure(events.TypeClearTokenError, err.Error()))
			return
		}
		c.publisher.Publish(ctx, events.Simple(events.TypeClearTokenDone))

	case events.CommandPageEmailExtracted:
		e := c.extractions.Store(Extraction{Body: cmd.Body, SenderName: cmd.SenderName, SenderEmail: cmd.SenderEmail, URL: cmd.URL})
		c.publisher.Publish(ctx, extractionEvent(e))

	case events.CommandRequestExtraction:
		if e, ok := c.extractions.Last(); ok {
			c.publisher.Publish(ctx, extractionEvent(e))
		}

	default:
		c.logger.Warn("COORDINATOR", "Unknown command", map[string]interface{}{"type": cmd.Type})
	}
}

func (c *coordinatorService) generate(ctx context.Context, cmd events.Command, id uint64) {
	req := draft.Request{
		Body:       cmd.EmailBody,
		SenderName: cmd.SenderName,
		Style:      cmd.Style,
		Creativity: draft.Creativity(cmd.Creativity),
	}
	if last, ok := c.extractions.Last(); ok {
		if req.Body == "" {
			req.Body = last.Body
		}
		if req.SenderName == "" && req.Body == last.Body {
			req.SenderName = last.SenderName
		}
	}

	if strings.TrimSpace(req.Body) == "" {
		c.publisher.Publish(ctx, events.DraftError(id, draft.ErrNoEmailBody.Error()))
		return
	}

	c.RefreshAvailability(ctx)
	c.drafts.Generate(ctx, id, req, c.publisher)
}

func (c *coordinatorService) RefreshAvailability(ctx context.Context) bool {
	available := c.prober.AnyReachable(ctx, c.candidates.All())
	c.availability.Set(available)
	return available
}

func (c *coordinatorService) ActiveCandidate(ctx context.Context) (draft.Candidate, bool) {
	return c.prober.FirstReachable(ctx, c.candidates.All())
}

func (c *coordinatorService) RunProbeLoop(ctx context.Context, interval time.Duration) {
	c.RefreshAvailability(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.RefreshAvailability(ctx)
		}
	}
}

// recoverCommand converts a panic into the command's terminal event.
func (c *coordinatorService) recoverCommand(ctx context.Context, cmdType string, id uint64) {
	r := recover()
	if r == nil {
		return
	}
	msg := fmt.Sprintf("internal error: %v", r)
	c.logger.Error("COORDINATOR", "Command panicked", map[string]interface{}{"type": cmdType, "generation_id": id, "panic": fmt.Sprint(r)})

	switch cmdType {
	case events.CommandGenerateDraft:
		c.publisher.Publish(ctx, events.DraftError(id, msg))
	case events.CommandSendViaGmail:
		c.publisher.Publish(ctx, events.Failure(events.TypeGmailSendError, msg))
	case events.CommandClearCachedToken:
		c.publisher.Publish(ctx, events.Failure(events.TypeClearTokenError, msg))
	}
}

func extractionEvent(e Extraction) events.BusEvent {
	return events.BusEvent{
		Type:        events.TypePageEmailExtracted,
		Body:        e.Body,
		SenderName:  e.SenderName,
		SenderEmail: e.SenderEmail,
		OccurredAt:  time.Now(),
	}
}
