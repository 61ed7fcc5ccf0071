package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWatchdogFiresWithoutKick(t *testing.T) {
	ctx, wd := NewWatchdog(context.Background(), 20*time.Millisecond)
	defer wd.Stop()

	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("watchdog did not cancel context")
	}

	assert.True(t, wd.Fired())
	assert.ErrorIs(t, context.Cause(ctx), ErrIdleTimeout)
	assert.ErrorIs(t, wd.Err(errors.New("read tcp: use of closed connection")), ErrIdleTimeout)
}

func TestWatchdogKickExtendsDeadline(t *testing.T) {
	ctx, wd := NewWatchdog(context.Background(), 60*time.Millisecond)
	defer wd.Stop()

	for i := 0; i < 5; i++ {
		time.Sleep(20 * time.Millisecond)
		wd.Kick()
	}

	assert.NoError(t, ctx.Err())
	assert.False(t, wd.Fired())
}

func TestWatchdogStop(t *testing.T) {
	ctx, wd := NewWatchdog(context.Background(), time.Hour)
	wd.Stop()

	assert.ErrorIs(t, ctx.Err(), context.Canceled)
	assert.False(t, wd.Fired())
	assert.NoError(t, wd.Err(nil))
}

func TestWatchdogCapIgnoresKicks(t *testing.T) {
	ctx, wd := NewWatchdog(context.Background(), 50*time.Millisecond)
	defer wd.Stop()
	wd.Cap(120 * time.Millisecond)

	stop := time.After(time.Second)
	tick := time.NewTicker(10 * time.Millisecond)
	defer tick.Stop()
loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case <-tick.C:
			wd.Kick()
		case <-stop:
			t.Fatal("ceiling did not cancel context")
		}
	}

	assert.True(t, wd.Fired())
	assert.ErrorIs(t, context.Cause(ctx), ErrTooLong)
	assert.ErrorIs(t, wd.Err(errors.New("context canceled")), ErrTooLong)
}

func TestWatchdogUncapped(t *testing.T) {
	ctx, wd := NewWatchdog(context.Background(), time.Hour)
	wd.Cap(0)
	assert.NoError(t, ctx.Err())
	wd.Stop()
	assert.False(t, wd.Fired())
}
