package llm

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrIdleTimeout is the cancel cause when a watched request stays silent too long.
var ErrIdleTimeout = errors.New("request timed out")

// ErrTooLong is the cancel cause when a watched request outlives its ceiling,
// however often it was kicked.
var ErrTooLong = errors.New("request ran too long")

// Watchdog cancels its context when Kick is not called within the timeout, or
// once the optional ceiling passes.
type Watchdog struct {
	timer   *time.Timer
	ceiling *time.Timer
	timeout time.Duration
	cancel  context.CancelCauseFunc

	mu    sync.Mutex
	cause error
}

// NewWatchdog derives a context from parent that is cancelled with
// ErrIdleTimeout once timeout elapses without a Kick.
func NewWatchdog(parent context.Context, timeout time.Duration) (context.Context, *Watchdog) {
	ctx, cancel := context.WithCancelCause(parent)
	w := &Watchdog{timeout: timeout, cancel: cancel}
	w.timer = time.AfterFunc(timeout, func() { w.trip(ErrIdleTimeout) })
	return ctx, w
}

// Cap cancels the context with ErrTooLong once d has passed. Kick does not
// move it. A non-positive d leaves the watchdog uncapped.
func (w *Watchdog) Cap(d time.Duration) {
	if d <= 0 {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.ceiling != nil {
		w.ceiling.Stop()
	}
	w.ceiling = time.AfterFunc(d, func() { w.trip(ErrTooLong) })
}

func (w *Watchdog) trip(cause error) {
	w.mu.Lock()
	if w.cause != nil {
		w.mu.Unlock()
		return
	}
	w.cause = cause
	w.mu.Unlock()
	w.cancel(cause)
}

// Kick restarts the idle countdown.
func (w *Watchdog) Kick() {
	if w.Fired() {
		return
	}
	w.timer.Reset(w.timeout)
}

// Fired reports whether the idle timeout or the ceiling elapsed.
func (w *Watchdog) Fired() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.cause != nil
}

// Stop releases the timers and the derived context.
func (w *Watchdog) Stop() {
	w.timer.Stop()
	w.mu.Lock()
	if w.ceiling != nil {
		w.ceiling.Stop()
	}
	w.mu.Unlock()
	w.cancel(context.Canceled)
}

// Err converts err into ErrIdleTimeout or ErrTooLong when the watchdog caused it.
func (w *Watchdog) Err(err error) error {
	if err == nil {
		return nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cause != nil {
		return w.cause
	}
	return err
}
