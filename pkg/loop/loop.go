package loop

import (
	"context"
	"fmt"
	"time"
)

// Next tells Start what to do after a task run.
type Next struct {
	// if not nil, breaks with error
	err error

	// if quit == true and err == nil, breaks without error
	quit bool

	// otherwise, continue loop with interval.
	interval time.Duration
}

func (n Next) String() string {
	switch {
	case n.err != nil:
		return fmt.Sprintf("[break] with error: %v", n.err)
	case n.quit:
		return "[break] without error"
	default:
		return fmt.Sprintf("[continue] interval: %s", n.interval)
	}
}

// Continue the loop after interval.
func Continue(interval time.Duration) Next {
	return Next{interval: interval}
}

// Break the loop. err can be nil.
func Break(err error) Next {
	return Next{quit: true, err: err}
}

// Task is a unit of work in a loop.
//
// It receives the value returned from its previous run (or the initial value),
// and returns a new value and what to do next.
//
// The zero Next is Continue(0).
type Task[T any] func(context.Context, T) (T, Next)

// Start runs task repeatedly until it breaks or ctx is done.
//
// Returns the last value the task returned, and
// the error passed to Break, or ctx.Err() when ctx is done.
//
// Example: count 1 to 10
//
//	Start(ctx, 1, func(_ context.Context, value int) (int, Next) {
//		if 10 <= value {
//			return value, Break(nil)
//		}
//		return value + 1, Continue(0)
//	})
func Start[T any](ctx context.Context, init T, task Task[T], options ...Option) (T, error) {
	if err := ctx.Err(); err != nil {
		return init, err
	}

	value := init
	for {
		v, next := runOnce(ctx, value, task, options)
		if next.err != nil {
			return v, next.err
		}
		if next.quit {
			return v, nil
		}
		value = v

		timer := time.NewTimer(next.interval)
		select {
		case <-ctx.Done():
			// shutting down takes priority over the timer.
			timer.Stop()
			return value, ctx.Err()
		case <-timer.C:
		}
	}
}

func runOnce[T any](ctx context.Context, value T, task Task[T], options []Option) (T, Next) {
	cfg := &config{ctx: ctx}
	for _, opt := range options {
		cfg = opt(cfg)
	}
	if cfg.release != nil {
		defer cfg.release()
	}
	return task(cfg.ctx, value)
}

type config struct {
	ctx     context.Context
	release func()
}

type Option func(*config) *config

// WithTimeout sets timeout on the context passed to each task run.
func WithTimeout(d time.Duration) Option {
	return func(c *config) *config {
		ctx, cancel := context.WithTimeout(c.ctx, d)
		prev := c.release
		return &config{
			ctx: ctx,
			release: func() {
				cancel()
				if prev != nil {
					prev()
				}
			},
		}
	}
}
