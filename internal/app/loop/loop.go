// Package loop runs every state-touching reaction of a client on one goroutine.
package loop

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/gammazero/deque"
	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc"
)

var ErrClosed = errors.New("loop closed")

// Loop is an unbounded FIFO of reactions drained by Run.
// Post never blocks, so handlers may post from inside the loop.
type Loop struct {
	clock clock.Clock

	mu     sync.Mutex
	queue  deque.Deque[func()]
	closed bool
	wake   chan struct{}

	async conc.WaitGroup
}

func New(clk clock.Clock) *Loop {
	if clk == nil {
		clk = clock.New()
	}
	return &Loop{clock: clk, wake: make(chan struct{}, 1)}
}

func (l *Loop) Post(fn func()) {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		log.Debug().Str("module", "loop").Msg("post after close dropped")
		return
	}
	l.queue.PushBack(fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
}

func (l *Loop) Go(work func() func()) {
	l.async.Go(func() {
		if cont := work(); cont != nil {
			l.Post(cont)
		}
	})
}

func (l *Loop) After(d time.Duration, fn func()) (stop func()) {
	t := l.clock.AfterFunc(d, func() { l.Post(fn) })
	return func() { t.Stop() }
}

// Do runs fn on the loop and waits until it has returned.
func (l *Loop) Do(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	l.mu.Lock()
	closed := l.closed
	l.mu.Unlock()
	if closed {
		return ErrClosed
	}
	l.Post(func() {
		defer close(done)
		fn()
	})
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run drains the queue until ctx is done. Queued reactions that did not
// run by then are dropped.
func (l *Loop) Run(ctx context.Context) {
	log.Info().Str("module", "loop").Msg("event loop started")
	for {
		if fn, ok := l.pop(); ok {
			l.exec(fn)
			continue
		}
		select {
		case <-ctx.Done():
			l.shutdown()
			return
		case <-l.wake:
		}
	}
}

func (l *Loop) pop() (func(), bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.queue.Len() == 0 {
		return nil, false
	}
	return l.queue.PopFront(), true
}

func (l *Loop) exec(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("module", "loop").Interface("panic", r).Msg("reaction panicked")
		}
	}()
	fn()
}

func (l *Loop) shutdown() {
	l.mu.Lock()
	l.closed = true
	dropped := l.queue.Len()
	l.queue.Clear()
	l.mu.Unlock()

	if r := l.async.WaitAndRecover(); r != nil {
		log.Error().Str("module", "loop").Str("panic", r.String()).Msg("async work panicked")
	}
	log.Info().Str("module", "loop").Int("dropped", dropped).Msg("event loop stopped")
}
