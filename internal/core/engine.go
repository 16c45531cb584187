package core

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
)

const DefaultProviderTimeout = 30 * time.Second

// Engine queries providers concurrently and collects their results in
// registration order.
type Engine struct {
	timeout     time.Duration
	concurrency int
	hint        *TimeRange
	observer    func(index int, r Result)
	logger      *slog.Logger
}

type Option func(*Engine)

// WithTimeout bounds each provider invocation. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(e *Engine) { e.timeout = d }
}

// WithConcurrency caps the number of providers queried at once. Zero means
// no cap.
func WithConcurrency(n int) Option {
	return func(e *Engine) { e.concurrency = n }
}

func WithHint(r *TimeRange) Option {
	return func(e *Engine) { e.hint = r }
}

// WithObserver registers fn to be called as each provider finishes. fn may
// be called from several goroutines at once.
func WithObserver(fn func(index int, r Result)) Option {
	return func(e *Engine) { e.observer = fn }
}

func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

func NewEngine(opts ...Option) *Engine {
	e := &Engine{timeout: DefaultProviderTimeout}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	return e
}

// Collect invokes GetUsage on every provider and returns one Result per
// provider, out[i] belonging to providers[i]. A fault in one provider
// never affects another.
func (e *Engine) Collect(ctx context.Context, providers []Provider) []Result {
	out := make([]Result, len(providers))

	var g errgroup.Group
	if e.concurrency > 0 {
		g.SetLimit(e.concurrency)
	}

	for i, p := range providers {
		g.Go(func() error {
			start := time.Now()
			res := e.invoke(ctx, p).normalize().WithIdentity(p.ID(), p.DisplayName())
			out[i] = res

			e.logger.Debug("provider finished",
				"provider", p.ID(),
				"status", res.Status,
				"elapsed", time.Since(start).Round(time.Millisecond),
			)
			if e.observer != nil {
				e.observer(i, res)
			}
			return nil
		})
	}
	_ = g.Wait()

	return out
}

// invoke runs one provider under its own deadline. GetUsage runs on a
// separate goroutine so a provider that ignores ctx cannot stall Collect.
func (e *Engine) invoke(ctx context.Context, p Provider) Result {
	runCtx := ctx
	if e.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	done := make(chan Result, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				e.logger.Debug("provider panicked", "provider", p.ID(), "panic", r)
				done <- Errorf("panic: %v", r)
			}
		}()

		res, err := p.GetUsage(runCtx, e.hint)
		if err != nil {
			res = Errorf("%v", err)
		}
		done <- res
	}()

	select {
	case res := <-done:
		return res
	case <-runCtx.Done():
		return contextResult(runCtx.Err())
	}
}

func contextResult(err error) Result {
	if errors.Is(err, context.DeadlineExceeded) {
		return Errorf("timed out")
	}
	return Errorf("%v", err)
}
