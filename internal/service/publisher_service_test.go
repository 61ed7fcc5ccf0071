package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"auto-replier-be/internal/constant"
	"auto-replier-be/pkg/events"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mirrorStub struct {
	mu    sync.Mutex
	types []string
	err   error
}

func (m *mirrorStub) Publish(_ context.Context, e events.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.types = append(m.types, e.EventType())
	return m.err
}

func TestPublisherDeliversInOrder(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mirror := &mirrorStub{err: errors.New("nats down")}
	pub := NewPublisherService(constant.BusTopic, NewPubSub(), nopLogger(), mirror)

	ch, err := pub.Subscribe(ctx)
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 20; i++ {
			pub.Publish(ctx, events.Partial(1, string(rune('a'+i))))
		}
		pub.Publish(ctx, events.Final(1, "done"))
	}()

	var got []events.BusEvent
	timeout := time.After(3 * time.Second)
	for len(got) < 21 {
		select {
		case e := <-ch:
			got = append(got, e)
		case <-timeout:
			t.Fatalf("received %d of 21 events", len(got))
		}
	}
	<-done

	for i := 0; i < 20; i++ {
		assert.Equal(t, string(rune('a'+i)), got[i].Content)
		assert.Equal(t, uint64(1), got[i].GenerationID)
	}
	assert.Equal(t, events.TypeFinal, got[20].Type)

	mirror.mu.Lock()
	assert.Len(t, mirror.types, 21)
	mirror.mu.Unlock()
}

func TestPublisherWithoutSubscribersDoesNotBlock(t *testing.T) {
	pub := NewPublisherService(constant.BusTopic, NewPubSub(), nopLogger())

	finished := make(chan struct{})
	go func() {
		pub.Publish(context.Background(), events.ModelStatus(true))
		close(finished)
	}()

	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatal("publish blocked without subscribers")
	}
}

type slowMirror struct{ delay time.Duration }

func (m slowMirror) Publish(context.Context, events.Event) error {
	time.Sleep(m.delay)
	return nil
}

func TestPublisherWaitsForMirrorButNotReaders(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pub := NewPublisherService(constant.BusTopic, NewPubSub(), nopLogger(), slowMirror{delay: 100 * time.Millisecond})
	ch, err := pub.Subscribe(ctx)
	require.NoError(t, err)

	start := time.Now()
	pub.Publish(ctx, events.ModelStatus(true))
	assert.GreaterOrEqual(t, time.Since(start), 100*time.Millisecond)

	// the event is already on the subscriber channel, unread
	select {
	case e := <-ch:
		assert.Equal(t, events.TypeModelStatusUpdate, e.Type)
	case <-time.After(time.Second):
		t.Fatal("event not delivered")
	}
}
