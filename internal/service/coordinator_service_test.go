package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"auto-replier-be/pkg/draft"
	"auto-replier-be/pkg/events"
	"auto-replier-be/pkg/gmail"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type proberStub struct {
	reachable atomic.Bool
	calls     atomic.Int32
}

func (p *proberStub) Probe(context.Context, draft.Candidate) bool { return p.reachable.Load() }

func (p *proberStub) FirstReachable(_ context.Context, c []draft.Candidate) (draft.Candidate, bool) {
	if p.reachable.Load() && len(c) > 0 {
		return c[0], true
	}
	return draft.Candidate{}, false
}

func (p *proberStub) AnyReachable(context.Context, []draft.Candidate) bool {
	p.calls.Add(1)
	return p.reachable.Load()
}

type draftStub struct {
	mu       sync.Mutex
	requests map[uint64]draft.Request
	panicOn  uint64
}

func (d *draftStub) Generate(ctx context.Context, id uint64, req draft.Request, pub events.Publisher) {
	d.mu.Lock()
	if d.requests == nil {
		d.requests = map[uint64]draft.Request{}
	}
	d.requests[id] = req
	d.mu.Unlock()
	if id == d.panicOn {
		panic("draft exploded")
	}
	pub.Publish(ctx, events.Partial(id, "x"))
	pub.Publish(ctx, events.Final(id, "draft for "+req.Body))
}

type senderStub struct {
	err  error
	last gmail.Envelope
}

func (s *senderStub) Send(_ context.Context, _ string, env gmail.Envelope) (*gmail.SentMessage, error) {
	s.last = env
	if s.err != nil {
		return nil, s.err
	}
	return &gmail.SentMessage{ID: "m1"}, nil
}

type coordinatorFixture struct {
	coord       ICoordinatorService
	rec         *recorder
	prober      *proberStub
	drafts      *draftStub
	sender      *senderStub
	tokens      ITokenService
	extractions IExtractionService
}

func newCoordinatorFixture(reachable bool) *coordinatorFixture {
	f := &coordinatorFixture{
		rec:         &recorder{},
		prober:      &proberStub{},
		drafts:      &draftStub{},
		sender:      &senderStub{},
		tokens:      NewTokenService(TokenConfig{}, nopLogger()),
		extractions: NewExtractionService(0, nopLogger()),
	}
	f.prober.reachable.Store(reachable)
	f.tokens.Remember("tok", time.Time{})

	f.coord = NewCoordinatorService(CoordinatorDeps{
		Candidates:   draft.DefaultCandidates(),
		Availability: draft.NewAvailability(),
		Prober:       f.prober,
		Drafts:       f.drafts,
		Mail:         NewMailService(f.sender, f.tokens, f.extractions, nopLogger()),
		Extractions:  f.extractions,
		Publisher:    f.rec,
		Logger:       nopLogger(),
	})
	return f
}

func TestDispatchGenerateAssignsIncreasingIDs(t *testing.T) {
	f := newCoordinatorFixture(true)

	first := f.coord.Dispatch(context.Background(), events.Command{Type: events.CommandGenerateDraft, EmailBody: "one"})
	second := f.coord.Dispatch(context.Background(), events.Command{Type: events.CommandGenerateDraft, EmailBody: "two"})
	f.coord.Wait()

	assert.Greater(t, second, first)
	finals := f.rec.ofType(events.TypeFinal)
	require.Len(t, finals, 2)

	byID := map[uint64]string{}
	for _, e := range finals {
		byID[e.GenerationID] = e.Content
	}
	assert.Equal(t, "draft for one", byID[first])
	assert.Equal(t, "draft for two", byID[second])

	// probed on demand before each generation, and broadcast each time
	assert.Equal(t, int32(2), f.prober.calls.Load())
	assert.Len(t, f.rec.ofType(events.TypeModelStatusUpdate), 2)
}

func TestDispatchCancelledContextStillRuns(t *testing.T) {
	f := newCoordinatorFixture(true)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f.coord.Dispatch(ctx, events.Command{Type: events.CommandGenerateDraft, EmailBody: "late"})
	f.coord.Wait()

	assert.Len(t, f.rec.ofType(events.TypeFinal), 1)
}

func TestDispatchGenerateUsesLastExtraction(t *testing.T) {
	f := newCoordinatorFixture(true)

	f.coord.Dispatch(context.Background(), events.Command{Type: events.CommandPageEmailExtracted, Body: "Ana <ana@x.io>\nHello", SenderName: "Ana"})
	f.coord.Wait()
	id := f.coord.Dispatch(context.Background(), events.Command{Type: events.CommandGenerateDraft})
	f.coord.Wait()

	f.drafts.mu.Lock()
	req := f.drafts.requests[id]
	f.drafts.mu.Unlock()
	assert.Equal(t, "Ana <ana@x.io>\nHello", req.Body)
	assert.Equal(t, "Ana", req.SenderName)
}

func TestDispatchGenerateWithoutEmailFails(t *testing.T) {
	f := newCoordinatorFixture(true)

	id := f.coord.Dispatch(context.Background(), events.Command{Type: events.CommandGenerateDraft, EmailBody: "  \n"})
	f.coord.Wait()

	errs := f.rec.ofType(events.TypeDraftError)
	require.Len(t, errs, 1)
	assert.Equal(t, id, errs[0].GenerationID)
	assert.Equal(t, "no email to reply to", errs[0].Error)

	f.drafts.mu.Lock()
	assert.Empty(t, f.drafts.requests)
	f.drafts.mu.Unlock()
	assert.Zero(t, f.prober.calls.Load())
}

func TestDispatchGeneratePanicBecomesDraftError(t *testing.T) {
	f := newCoordinatorFixture(true)
	f.drafts.panicOn = 1

	id := f.coord.Dispatch(context.Background(), events.Command{Type: events.CommandGenerateDraft, EmailBody: "x"})
	f.coord.Wait()

	require.Equal(t, uint64(1), id)
	errs := f.rec.ofType(events.TypeDraftError)
	require.Len(t, errs, 1)
	assert.Equal(t, id, errs[0].GenerationID)
	assert.Contains(t, errs[0].Error, "draft exploded")
}

func TestDispatchCheckAvailability(t *testing.T) {
	f := newCoordinatorFixture(false)

	id := f.coord.Dispatch(context.Background(), events.Command{Type: events.CommandCheckAvailability})
	f.coord.Wait()

	assert.Zero(t, id)
	status := f.rec.ofType(events.TypeModelStatusUpdate)
	require.Len(t, status, 1)
	require.NotNil(t, status[0].Available)
	assert.False(t, *status[0].Available)
}

func TestActiveCandidateFollowsPriority(t *testing.T) {
	f := newCoordinatorFixture(true)
	got, ok := f.coord.ActiveCandidate(context.Background())
	assert.True(t, ok)
	assert.Equal(t, draft.DefaultCandidates().All()[0], got)

	f.prober.reachable.Store(false)
	_, ok = f.coord.ActiveCandidate(context.Background())
	assert.False(t, ok)
}

func TestDispatchSendViaGmail(t *testing.T) {
	f := newCoordinatorFixture(true)

	f.coord.Dispatch(context.Background(), events.Command{Type: events.CommandSendViaGmail, To: "bob@x.io", Subject: "Re", Body: "Hi"})
	f.coord.Wait()
	assert.Len(t, f.rec.ofType(events.TypeGmailSendSuccess), 1)
	assert.Equal(t, "bob@x.io", f.sender.last.To)

	f.sender.err = &gmail.APIError{Status: 401, Body: "expired"}
	f.coord.Dispatch(context.Background(), events.Command{Type: events.CommandSendViaGmail, To: "bob@x.io"})
	f.coord.Wait()

	errs := f.rec.ofType(events.TypeGmailSendError)
	require.Len(t, errs, 1)
	assert.Equal(t, "Send failed: 401 expired", errs[0].Error)
}

func TestDispatchSendWithoutRecipient(t *testing.T) {
	f := newCoordinatorFixture(true)

	f.coord.Dispatch(context.Background(), events.Command{Type: events.CommandSendViaGmail, Body: "Hi"})
	f.coord.Wait()

	errs := f.rec.ofType(events.TypeGmailSendError)
	require.Len(t, errs, 1)
	assert.Equal(t, gmail.ErrNoRecipient.Error(), errs[0].Error)
}

func TestDispatchClearCachedToken(t *testing.T) {
	f := newCoordinatorFixture(true)

	f.coord.Dispatch(context.Background(), events.Command{Type: events.CommandClearCachedToken})
	f.coord.Wait()

	assert.Len(t, f.rec.ofType(events.TypeClearTokenDone), 1)
	_, err := f.tokens.Token(context.Background())
	assert.True(t, errors.Is(err, ErrNoToken))
}

func TestDispatchExtractionRelay(t *testing.T) {
	f := newCoordinatorFixture(true)

	f.coord.Dispatch(context.Background(), events.Command{Type: events.CommandRequestExtraction})
	f.coord.Wait()
	assert.Empty(t, f.rec.ofType(events.TypePageEmailExtracted))

	f.coord.Dispatch(context.Background(), events.Command{Type: events.CommandPageEmailExtracted, Body: "noreply@shop.com sent you a receipt"})
	f.coord.Wait()
	f.coord.Dispatch(context.Background(), events.Command{Type: events.CommandRequestExtraction})
	f.coord.Wait()

	got := f.rec.ofType(events.TypePageEmailExtracted)
	require.Len(t, got, 2)
	assert.Equal(t, "Shop", got[1].SenderName)
	assert.Equal(t, "noreply@shop.com", got[1].SenderEmail)
}

func TestDispatchUnknownCommandIsIgnored(t *testing.T) {
	f := newCoordinatorFixture(true)

	f.coord.Dispatch(context.Background(), events.Command{Type: "selfDestruct"})
	f.coord.Wait()

	assert.Empty(t, f.rec.all())
}

func TestRunProbeLoopBroadcastsEveryTick(t *testing.T) {
	f := newCoordinatorFixture(true)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		f.coord.RunProbeLoop(ctx, 20*time.Millisecond)
		close(done)
	}()

	require.Eventually(t, func() bool {
		return len(f.rec.ofType(events.TypeModelStatusUpdate)) >= 3
	}, 2*time.Second, 5*time.Millisecond)
	cancel()
	<-done

	for _, e := range f.rec.ofType(events.TypeModelStatusUpdate) {
		require.NotNil(t, e.Available)
		assert.True(t, *e.Available)
	}
}
