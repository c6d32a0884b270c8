// Package generate schedules generation work over a one-level dependency
// graph: parents first, children once their parent completed. Each run
// dispatches ready items by priority onto a bounded worker pool, checks a
// fingerprint cache, throttles executions through a sliding-window budget,
// retries failures and reports progress after every transition.
package generate

import (
	"context"

	"go.uber.org/zap"

	"github.com/teranos/scribe/errors"
	"github.com/teranos/scribe/logger"
	"github.com/teranos/scribe/pulse/budget"
)

// ContextBuilder produces the executor input for an entity
type ContextBuilder interface {
	Build(ctx context.Context, kind Kind, entity Entity) (Context, error)
}

// ContextBuilderFunc adapts a function to ContextBuilder
type ContextBuilderFunc func(ctx context.Context, kind Kind, entity Entity) (Context, error)

func (f ContextBuilderFunc) Build(ctx context.Context, kind Kind, entity Entity) (Context, error) {
	return f(ctx, kind, entity)
}

// Executor performs one generation call. Errors marked Permanent are not retried.
type Executor interface {
	Execute(ctx context.Context, input Context) (Result, error)
}

// ExecutorFunc adapts a function to Executor
type ExecutorFunc func(ctx context.Context, input Context) (Result, error)

func (f ExecutorFunc) Execute(ctx context.Context, input Context) (Result, error) {
	return f(ctx, input)
}

// Sink persists a completed item's result
type Sink interface {
	Save(ctx context.Context, id string, result Result) error
}

// SinkFunc adapts a function to Sink
type SinkFunc func(ctx context.Context, id string, result Result) error

func (f SinkFunc) Save(ctx context.Context, id string, result Result) error {
	return f(ctx, id, result)
}

// PriorityFunc weighs an entity for dispatch order, higher first
type PriorityFunc func(kind Kind, entity Entity) int

// ParentWeight lifts parents above children so the graph drains top-down
const ParentWeight = 100

// DefaultPriority gives parents ParentWeight and adds the entity's own
// Priority when it implements Prioritized.
func DefaultPriority(kind Kind, entity Entity) int {
	p := 0
	if kind == KindParent {
		p += ParentWeight
	}
	if pr, ok := entity.(Prioritized); ok {
		p += pr.Priority()
	}
	return p
}

// Engine runs generation work. An Engine may serve several runs; the rate
// budget and the cache are shared between them.
type Engine struct {
	cfg      Config
	builder  ContextBuilder
	executor Executor
	sink     Sink
	cache    Cache
	limiter  *budget.Limiter
	clock    budget.Clock
	logger   pulseLogger
	observer Observer
	priority PriorityFunc
	retry    RetryPolicy

	deferContext bool
}

// Option configures an Engine
type Option func(*Engine)

// WithCache replaces the default in-memory cache
func WithCache(c Cache) Option {
	return func(e *Engine) { e.cache = c }
}

// WithClock injects the clock used for the rate window, backoff and timing
func WithClock(c budget.Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// WithLogger sets the structured logger
func WithLogger(l *zap.SugaredLogger) Option {
	return func(e *Engine) { e.logger = newPulseLogger(l) }
}

// WithObserver receives a Snapshot after every transition
func WithObserver(o Observer) Option {
	return func(e *Engine) { e.observer = o }
}

// WithPriority replaces DefaultPriority for Run
func WithPriority(fn PriorityFunc) Option {
	return func(e *Engine) { e.priority = fn }
}

// WithBackoff replaces the constant backoff derived from Config.RetryBackoff
func WithBackoff(fn BackoffFunc) Option {
	return func(e *Engine) { e.retry.Backoff = fn }
}

// WithDeferredContext builds each context at dispatch instead of before
// scheduling, so a child's builder can read what its parent produced.
func WithDeferredContext() Option {
	return func(e *Engine) { e.deferContext = true }
}

// WithLimiter shares an existing rate budget instead of creating one
func WithLimiter(l *budget.Limiter) Option {
	return func(e *Engine) { e.limiter = l }
}

// NewEngine creates an engine. builder may be nil when only RunItems is used
// with precomputed contexts.
func NewEngine(cfg Config, builder ContextBuilder, executor Executor, sink Sink, opts ...Option) (*Engine, error) {
	if cfg.ObserverTimeout == 0 {
		cfg.ObserverTimeout = DefaultObserverTimeout
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid engine config")
	}
	if executor == nil {
		return nil, errors.NewInvalidRequestError("executor is required")
	}
	if sink == nil {
		return nil, errors.NewInvalidRequestError("sink is required")
	}

	e := &Engine{
		cfg:      cfg,
		builder:  builder,
		executor: executor,
		sink:     sink,
		logger:   newPulseLogger(nil),
		priority: DefaultPriority,
		retry: RetryPolicy{
			MaxRetries: cfg.MaxRetries,
			Backoff:    ConstantBackoff(cfg.RetryBackoff),
		},
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.clock == nil {
		e.clock = budget.RealClock()
	}
	if e.limiter == nil {
		e.limiter = budget.NewLimiterWithClock(cfg.RateLimitPerMinute, e.clock)
	}
	switch {
	case !cfg.CacheEnabled:
		e.cache = NopCache{}
	case e.cache == nil:
		e.cache = NewMemoryCache()
	}
	if e.priority == nil {
		e.priority = DefaultPriority
	}

	return e, nil
}

// Config returns the engine's effective configuration
func (e *Engine) Config() Config {
	return e.cfg
}

// Run generates for every parent and every selected child, children after
// their parent. It returns once no work is outstanding. Item failures are
// reported in the Summary; the error is non-nil only for invalid input or
// cancellation, in which case the partial Summary is still returned.
func (e *Engine) Run(ctx context.Context, parents []Parent, selection Selection) (*Summary, error) {
	if e.builder == nil {
		return nil, errors.NewInvalidRequestError("engine has no context builder")
	}
	deps, err := BuildDependencies(parents, selection)
	if err != nil {
		return nil, err
	}

	specs := make([]ItemSpec, 0, len(deps))
	for _, p := range parents {
		specs = append(specs, e.specFor(ctx, KindParent, p, nil))
		for _, c := range p.Children() {
			if _, ok := deps[c.ID()]; !ok {
				continue
			}
			specs = append(specs, e.specFor(ctx, KindChild, c, deps.Of(c.ID())))
		}
	}

	return e.RunItems(ctx, specs)
}

// specFor builds the item up front. A failed build leaves Context nil so each
// attempt asks the builder again.
func (e *Engine) specFor(ctx context.Context, kind Kind, entity Entity, dependencies []string) ItemSpec {
	spec := ItemSpec{
		ID:           entity.ID(),
		Kind:         kind,
		Priority:     e.priority(kind, entity),
		Dependencies: dependencies,
		Entity:       entity,
	}
	if e.deferContext {
		return spec
	}
	input, err := e.builder.Build(ctx, kind, entity)
	if err != nil {
		e.logger.Warnw("Context build failed, will retry at dispatch",
			logger.FieldItemID, spec.ID,
			logger.FieldError, err)
		return spec
	}
	spec.Context = input
	return spec
}

// RunItems runs an explicit item set. Dependencies must name other items in
// the set and must not form a cycle; items on a cycle are never dispatched
// and are reported as pending.
func (e *Engine) RunItems(ctx context.Context, specs []ItemSpec) (*Summary, error) {
	if err := validateSpecs(specs); err != nil {
		return nil, err
	}
	r := newRun(e, specs)
	return r.execute(ctx)
}

func validateSpecs(specs []ItemSpec) error {
	ids := make(map[string]struct{}, len(specs))
	for _, s := range specs {
		if s.ID == "" {
			return errors.NewInvalidRequestError("item has empty identity")
		}
		if _, dup := ids[s.ID]; dup {
			return errors.NewInvalidRequestError("duplicate identity %q", s.ID)
		}
		ids[s.ID] = struct{}{}
		if s.Context == nil && s.Entity == nil {
			return errors.NewInvalidRequestError("item %q has neither context nor entity", s.ID)
		}
	}
	for _, s := range specs {
		for _, dep := range s.Dependencies {
			if dep == s.ID {
				return errors.NewInvalidRequestError("item %q depends on itself", s.ID)
			}
			if _, ok := ids[dep]; !ok {
				return errors.NewInvalidRequestError("item %q depends on unknown item %q", s.ID, dep)
			}
		}
	}
	return nil
}
