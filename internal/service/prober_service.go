package service

import (
	"context"
	"net/http"
	"sync"
	"time"

	"auto-replier-be/internal/pkg/logger"
	"auto-replier-be/pkg/draft"
	"auto-replier-be/pkg/llm/factory"
)

type IProberService interface {
	// Probe reports whether c answers its health path with a 2xx in time.
	Probe(ctx context.Context, c draft.Candidate) bool
	// FirstReachable returns the first reachable candidate, probing in order
	// and stopping at the first success.
	FirstReachable(ctx context.Context, candidates []draft.Candidate) (draft.Candidate, bool)
	// AnyReachable probes every candidate and reports whether any answered.
	AnyReachable(ctx context.Context, candidates []draft.Candidate) bool
}

type proberService struct {
	client  *http.Client
	timeout time.Duration
	logger  logger.ILogger
}

func NewProberService(client *http.Client, timeout time.Duration, log logger.ILogger) IProberService {
	if client == nil {
		client = &http.Client{}
	}
	return &proberService{client: client, timeout: timeout, logger: log}
}

func (s *proberService) Probe(ctx context.Context, c draft.Candidate) bool {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := factory.Check(ctx, c, s.client); err != nil {
		s.logger.Debug("PROBER", "Candidate unreachable", map[string]interface{}{"candidate": c.String(), "error": err.Error()})
		return false
	}
	return true
}

func (s *proberService) FirstReachable(ctx context.Context, candidates []draft.Candidate) (draft.Candidate, bool) {
	for _, c := range candidates {
		if s.Probe(ctx, c) {
			return c, true
		}
	}
	return draft.Candidate{}, false
}

func (s *proberService) AnyReachable(ctx context.Context, candidates []draft.Candidate) bool {
	results := make([]bool, len(candidates))
	var wg sync.WaitGroup
	for i, c := range candidates {
		wg.Add(1)
		go func(i int, c draft.Candidate) {
			defer wg.Done()
			results[i] = s.Probe(ctx, c)
		}(i, c)
	}
	wg.Wait()

	reachable := false
	for i, ok := range results {
		if ok {
			reachable = true
		}
		s.logger.Debug("PROBER", "Probe result", map[string]interface{}{"candidate": candidates[i].String(), "reachable": ok})
	}
	return reachable
}
