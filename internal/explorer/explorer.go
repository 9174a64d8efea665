// Package explorer coordinates backend fetches for one exploration session
// and owns the resulting ViewState.
//
// Triggers (SetFilter, Select, Deselect) are the only mutation path. They are
// safe for concurrent use; SetFilter and Select block until their fetches
// resolve, so interactive callers run them on their own goroutines. A result
// that arrives after a newer trigger has started is discarded and the call
// returns ErrSuperseded.
package explorer

import (
	"context"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/gauguri/NobelPrediction/internal/model"
	"github.com/gauguri/NobelPrediction/internal/resilience"
	"github.com/gauguri/NobelPrediction/internal/viewstate"
	"github.com/gauguri/NobelPrediction/pkg/nobelapi"
)

var (
	// ErrSuperseded is returned when a newer trigger invalidated the result.
	ErrSuperseded = eris.New("explorer: superseded by a newer request")
	// ErrInvalidFilter is returned for a field or horizon outside the catalog.
	ErrInvalidFilter = eris.New("explorer: invalid filter")
	// ErrInvalidCandidate is returned for a non-positive candidate id.
	ErrInvalidCandidate = eris.New("explorer: invalid candidate id")
)

// Source is the subset of the backend client the explorer reads from.
type Source interface {
	GetShortlist(ctx context.Context, field, horizon string) ([]nobelapi.PredictionRecord, error)
	GetBacktests(ctx context.Context, field string) ([]nobelapi.BacktestMetric, error)
	GetCandidateDetail(ctx context.Context, candidateID int) (*nobelapi.CandidateDetail, error)
	GetProvenance(ctx context.Context, candidateID int) ([]nobelapi.ProvenanceRecord, error)
}

// Option configures an Explorer.
type Option func(*Explorer)

// WithCatalog sets the catalog filters are validated against.
func WithCatalog(c *model.Catalog) Option {
	return func(e *Explorer) {
		if c != nil {
			e.catalog = c
		}
	}
}

// WithRetry sets the retry policy applied to every backend call.
func WithRetry(p resilience.Policy) Option {
	return func(e *Explorer) { e.retry = p }
}

// WithLogger sets the logger. Defaults to zap.L().
func WithLogger(l *zap.Logger) Option {
	return func(e *Explorer) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithClock overrides the time source for ViewState.UpdatedAt.
func WithClock(now func() time.Time) Option {
	return func(e *Explorer) {
		if now != nil {
			e.now = now
		}
	}
}

// WithInitialFilter sets the filter the state starts with. It must resolve
// against the catalog, otherwise the catalog default is kept.
func WithInitialFilter(f model.Filter) Option {
	return func(e *Explorer) { e.initial = f }
}

// Explorer owns one ViewState.
type Explorer struct {
	src     Source
	catalog *model.Catalog
	retry   resilience.Policy
	logger  *zap.Logger
	now     func() time.Time
	initial model.Filter

	mu        sync.Mutex
	state     viewstate.ViewState
	loadSeq   uint64
	selectSeq uint64
	version   uint64
	subs      map[int]func(viewstate.ViewState)
	nextSub   int

	pubMu     sync.Mutex
	published uint64
}

// New creates an Explorer reading from src. The state starts empty with the
// initial filter set and nothing loaded; call Reload to populate it.
func New(src Source, opts ...Option) *Explorer {
	e := &Explorer{
		src:     src,
		catalog: model.DefaultCatalog(),
		retry:   resilience.NoRetry(),
		logger:  zap.L(),
		now:     time.Now,
		subs:    make(map[int]func(viewstate.ViewState)),
	}
	for _, o := range opts {
		o(e)
	}

	e.state.Filter = e.catalog.Default()
	if !e.initial.IsZero() {
		if f, err := e.catalog.Resolve(e.initial); err == nil {
			e.state.Filter = f
		} else {
			e.logger.Warn("explorer: ignoring initial filter", zap.Stringer("filter", e.initial), zap.Error(err))
		}
	}
	e.state.Requested = e.state.Filter
	e.state.UpdatedAt = e.now()
	return e
}

// Catalog returns the catalog filters are validated against.
func (e *Explorer) Catalog() *model.Catalog {
	return e.catalog
}

// State returns a deep copy of the current view state.
func (e *Explorer) State() viewstate.ViewState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.Clone()
}

// Subscribe registers fn to receive a snapshot after every mutation. fn runs
// on the goroutine that made the mutation and must not block or call back
// into the Explorer's triggers. A snapshot older than one already delivered
// is never delivered.
func (e *Explorer) Subscribe(fn func(viewstate.ViewState)) (cancel func()) {
	e.mu.Lock()
	id := e.nextSub
	e.nextSub++
	e.subs[id] = fn
	e.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			e.mu.Lock()
			delete(e.subs, id)
			e.mu.Unlock()
		})
	}
}

// Reload refetches the shortlist and backtests for the most recently
// requested filter, retrying a filter change that failed.
func (e *Explorer) Reload(ctx context.Context) error {
	e.mu.Lock()
	f := e.state.Requested
	e.mu.Unlock()
	return e.SetFilter(ctx, f)
}

// mutate applies fn to the state under the lock. When fn returns false
// nothing is written or published.
func (e *Explorer) mutate(fn func(s *viewstate.ViewState) bool) bool {
	e.mu.Lock()
	if !fn(&e.state) {
		e.mu.Unlock()
		return false
	}
	e.state.UpdatedAt = e.now()
	e.version++
	version := e.version
	snapshot := e.state.Clone()
	subs := make([]func(viewstate.ViewState), 0, len(e.subs))
	for _, sub := range e.subs {
		subs = append(subs, sub)
	}
	e.mu.Unlock()

	e.publish(version, snapshot, subs)
	return true
}

func (e *Explorer) publish(version uint64, snapshot viewstate.ViewState, subs []func(viewstate.ViewState)) {
	e.pubMu.Lock()
	defer e.pubMu.Unlock()
	if version <= e.published {
		return
	}
	e.published = version
	for _, fn := range subs {
		fn(snapshot.Clone())
	}
}

func (e *Explorer) policy(operation string) resilience.Policy {
	p := e.retry
	if p.OnRetry == nil {
		p.OnRetry = resilience.RetryLogger(e.logger, operation)
	}
	return p
}
