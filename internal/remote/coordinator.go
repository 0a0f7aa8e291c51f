package remote

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/roach88/gridview/internal/query"
)

// Kind distinguishes primary page fetches from secondary hydration.
type Kind uint8

const (
	// KindPrimary replaces the row set.
	KindPrimary Kind = iota + 1
	// KindHydrate merges secondary fields into existing rows.
	KindHydrate
)

// String returns "primary" or "hydrate".
func (k Kind) String() string {
	if k == KindHydrate {
		return "hydrate"
	}
	return "primary"
}

// Ticket identifies an issued request.
type Ticket struct {
	Generation int64
	Token      string
}

// Outcome is the result of one request, delivered to the Sink.
// Exactly one of Result and Err is meaningful.
type Outcome struct {
	Kind       Kind
	Generation int64
	Token      string
	Params     query.ListParams
	Result     PageResult
	Err        *FetchError
	// Cached is true when the result was served from the result cache.
	Cached bool
}

// Sink receives outcomes. It is called from fetch goroutines and must not
// block for long; the usual implementation enqueues onto the owner's queue.
type Sink func(Outcome)

// FetchOptions modify a primary fetch.
type FetchOptions struct {
	// Force bypasses the result cache and refreshes it with the response.
	Force bool
}

// Coordinator issues fetches for one view.
//
// Thread-safety: Fetch, Hydrate, IsLive, Invalidate and Close are safe for
// concurrent use.
type Coordinator struct {
	viewID string
	source Source
	sink   Sink
	clock  *Clock
	tokens TokenGenerator
	cache  *resultCache
	logger *slog.Logger

	// latest is the generation of the newest primary fetch.
	latest atomic.Int64

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithClock sets the generation clock.
func WithClock(c *Clock) Option {
	return func(co *Coordinator) {
		co.clock = c
	}
}

// WithTokenGenerator sets the request token generator. Default: UUIDv7Generator.
func WithTokenGenerator(g TokenGenerator) Option {
	return func(co *Coordinator) {
		co.tokens = g
	}
}

// WithCacheBytes sets the result cache capacity. Zero disables caching.
func WithCacheBytes(n int) Option {
	return func(co *Coordinator) {
		if n <= 0 {
			co.cache = nil
			return
		}
		co.cache = newResultCache(n)
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(co *Coordinator) {
		co.logger = l
	}
}

// NewCoordinator creates a Coordinator that lists records of viewID from
// source and delivers outcomes to sink. Caching is off unless WithCacheBytes
// is given.
func NewCoordinator(viewID string, source Source, sink Sink, opts ...Option) *Coordinator {
	c := &Coordinator{
		viewID: viewID,
		source: source,
		sink:   sink,
		clock:  NewClock(),
		tokens: UUIDv7Generator{},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Fetch issues a primary fetch. The previous in-flight primary fetch, if
// any, is cancelled and its generation stops being live.
func (c *Coordinator) Fetch(ctx context.Context, params query.ListParams, opts FetchOptions) Ticket {
	t := Ticket{Generation: c.clock.Next(), Token: c.tokens.Generate()}
	c.latest.Store(t.Generation)

	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
	}
	fctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.mu.Unlock()

	c.logger.Debug("fetch issued",
		"view", c.viewID,
		"generation", t.Generation,
		"token", t.Token,
		"page", params.Page,
		"ordering", params.Ordering(),
		"force", opts.Force,
	)

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer cancel()
		c.runPrimary(fctx, t, params, opts)
	}()
	return t
}

// Hydrate requests the include fields for the given ids. Hydration is not
// superseded by primary fetches: the owner merges whatever still matches
// its current rows.
func (c *Coordinator) Hydrate(ctx context.Context, ids []string, include []string) Ticket {
	t := Ticket{Generation: c.clock.Next(), Token: c.tokens.Generate()}
	params := query.ListParams{
		Page:     1,
		PageSize: max(len(ids), 1),
		IDs:      slices.Clone(ids),
		Include:  slices.Clone(include),
	}

	c.logger.Debug("hydration issued",
		"view", c.viewID,
		"generation", t.Generation,
		"token", t.Token,
		"ids", len(ids),
	)

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		res, err := c.source.List(ctx, c.viewID, params)
		out := Outcome{Kind: KindHydrate, Generation: t.Generation, Token: t.Token, Params: params}
		if err != nil {
			if ctx.Err() != nil {
				c.logger.Debug("hydration cancelled", "generation", t.Generation, "token", t.Token)
				return
			}
			out.Err = asFetchError(err, t.Generation)
		} else {
			out.Result = res
		}
		c.sink(out)
	}()
	return t
}

// IsLive reports whether gen is the newest primary generation.
func (c *Coordinator) IsLive(gen int64) bool {
	return gen != 0 && gen == c.latest.Load()
}

// Latest returns the newest primary generation, 0 before the first fetch.
func (c *Coordinator) Latest() int64 {
	return c.latest.Load()
}

// Invalidate drops every cached result.
func (c *Coordinator) Invalidate() {
	if c.cache != nil {
		c.cache.reset()
	}
}

// Wait blocks until every issued request has delivered or been dropped.
func (c *Coordinator) Wait() {
	c.wg.Wait()
}

// Close cancels the in-flight primary fetch and waits for all requests.
func (c *Coordinator) Close() {
	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
	}
	c.mu.Unlock()
	c.wg.Wait()
}

func (c *Coordinator) runPrimary(ctx context.Context, t Ticket, params query.ListParams, opts FetchOptions) {
	out := Outcome{Kind: KindPrimary, Generation: t.Generation, Token: t.Token, Params: params}

	var key []byte
	if c.cache != nil {
		k, err := cacheKey(c.viewID, params)
		if err != nil {
			c.logger.Warn("result cache disabled for request", "token", t.Token, "error", err)
		}
		key = k
	}

	if key != nil && !opts.Force {
		if res, ok := c.cache.get(key); ok {
			out.Result = res
			out.Cached = true
			c.deliver(out)
			return
		}
	}

	res, err := c.source.List(ctx, c.viewID, params)
	if err != nil {
		if ctx.Err() != nil {
			// Superseded or shut down. Neither is a fetch failure.
			c.logger.Debug("fetch cancelled",
				"generation", t.Generation,
				"token", t.Token,
				"live", c.IsLive(t.Generation),
			)
			return
		}
		out.Err = asFetchError(err, t.Generation)
		c.deliver(out)
		return
	}

	if key != nil {
		c.store(ctx, t, key, res)
	}
	out.Result = res
	c.deliver(out)
}

// store caches res unless t was superseded. A superseded fetch that still
// completes must not replace the entry written by a newer one.
func (c *Coordinator) store(ctx context.Context, t Ticket, key []byte, res PageResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ctx.Err() != nil || !c.IsLive(t.Generation) {
		c.logger.Debug("superseded result not cached", "generation", t.Generation, "token", t.Token)
		return
	}
	if err := c.cache.put(key, res); err != nil {
		c.logger.Warn("result not cached", "token", t.Token, "error", err)
	}
}

func (c *Coordinator) deliver(out Outcome) {
	if !c.IsLive(out.Generation) {
		c.logger.Debug("stale outcome discarded",
			"generation", out.Generation,
			"latest", c.latest.Load(),
			"token", out.Token,
		)
		return
	}
	c.sink(out)
}
