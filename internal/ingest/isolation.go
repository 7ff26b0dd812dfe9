package ingest

import (
	"context"
	"fmt"
	"sync"

	"github.com/david/eventfeed/internal/logger"
)

// Failure records one endpoint (or whole adapter) that produced nothing
// because of an error.
type Failure struct {
	Source   string `json:"source"`
	Endpoint string `json:"endpoint"`
	Err      string `json:"error"`
}

func (f Failure) String() string {
	return fmt.Sprintf("[%s] failed: %s: %s", f.Source, f.Endpoint, f.Err)
}

// AdapterEndpoint labels failures of an adapter as a whole.
const AdapterEndpoint = "collect"

type sourceTally struct {
	attempts      int
	failures      int
	adapterFailed bool
}

// Boundary collects failures for one run. It is safe for concurrent use,
// although the pipeline itself runs sequentially.
type Boundary struct {
	log logger.Logger

	mu       sync.Mutex
	failures []Failure
	tally    map[string]*sourceTally
}

func NewBoundary(log logger.Logger) *Boundary {
	if log == nil {
		log = logger.NewNop()
	}
	return &Boundary{log: log, tally: make(map[string]*sourceTally)}
}

// Guard runs fn for one endpoint of source. A returned error or a panic is
// logged, recorded, and turned into an empty result.
func Guard[T any](ctx context.Context, b *Boundary, source, endpoint string, fn func(context.Context) ([]T, error)) []T {
	b.attempt(source)
	out, err := protect(ctx, fn)
	if err != nil {
		b.fail(source, endpoint, err)
		return nil
	}
	return out
}

// GuardAdapter runs a whole adapter. Unlike Guard it does not count as an
// endpoint attempt; an error marks the adapter itself as failed.
func GuardAdapter[T any](ctx context.Context, b *Boundary, source string, fn func(context.Context) ([]T, error)) ([]T, bool) {
	out, err := protect(ctx, fn)
	if err != nil {
		b.mu.Lock()
		b.sourceTally(source).adapterFailed = true
		b.mu.Unlock()
		b.fail(source, AdapterEndpoint, err)
		return nil, false
	}
	return out, true
}

func protect[T any](ctx context.Context, fn func(context.Context) ([]T, error)) (out []T, err error) {
	defer func() {
		if r := recover(); r != nil {
			out = nil
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return fn(ctx)
}

// Do is Guard for endpoints that return no values.
func (b *Boundary) Do(ctx context.Context, source, endpoint string, fn func(context.Context) error) bool {
	ok := false
	Guard(ctx, b, source, endpoint, func(ctx context.Context) ([]struct{}, error) {
		if err := fn(ctx); err != nil {
			return nil, err
		}
		ok = true
		return nil, nil
	})
	return ok
}

func (b *Boundary) attempt(source string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sourceTally(source).attempts++
}

func (b *Boundary) fail(source, endpoint string, err error) {
	b.mu.Lock()
	b.failures = append(b.failures, Failure{Source: source, Endpoint: endpoint, Err: err.Error()})
	if endpoint != AdapterEndpoint {
		b.sourceTally(source).failures++
	}
	b.mu.Unlock()

	b.log.Warn("endpoint failed",
		logger.String("source", source),
		logger.String("endpoint", endpoint),
		logger.Error(err),
	)
}

func (b *Boundary) sourceTally(source string) *sourceTally {
	t, ok := b.tally[source]
	if !ok {
		t = &sourceTally{}
		b.tally[source] = t
	}
	return t
}

// Failures returns a copy of the recorded failures in the order they happened.
func (b *Boundary) Failures() []Failure {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Failure(nil), b.failures...)
}

// AllFailed reports whether source failed as a whole, or made at least one
// endpoint attempt and every attempt failed.
func (b *Boundary) AllFailed(source string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	t, ok := b.tally[source]
	if !ok {
		return false
	}
	return t.adapterFailed || (t.attempts > 0 && t.failures >= t.attempts)
}

// Logger exposes the boundary's logger to adapters.
func (b *Boundary) Logger() logger.Logger {
	return b.log
}
