package gateway

import (
	"time"

	"github.com/leofalp/aigw/core/analytics"
	"github.com/leofalp/aigw/core/cost"
	"github.com/leofalp/aigw/core/evaluation"
	"github.com/leofalp/aigw/core/gateway/middleware"
	"github.com/leofalp/aigw/providers/backend"
	"github.com/leofalp/aigw/providers/observability"
	"github.com/leofalp/aigw/providers/tool"
)

// Option is a functional option for configuring a Gateway. Options are
// applied during construction via [New].
type Option func(*config)

type config struct {
	backends       map[string]backend.Adapter
	stacks         map[string][]middleware.Config
	defaultBackend string

	resilience middleware.StackConfig

	tools             []tool.GenericTool
	toolTimeout       time.Duration
	maxToolIterations int

	fieldMaps map[string]analytics.FieldMap
	pricing   cost.Table
	sinks     []analytics.Sink
	collector *analytics.Collector

	evaluator *evaluation.Evaluator
	chunkSize int

	obs observability.Provider
}

// WithBackend registers an adapter under a backend identifier. The
// identifier is what callers put in [Request.Backend]. Registering the same
// identifier twice is a construction error.
func WithBackend(name string, adapter backend.Adapter) Option {
	return func(c *config) {
		c.backends[name] = adapter
	}
}

// WithDefaultBackend selects the backend used when a request asks for
// "auto" or leaves the backend empty. Without it, "auto" resolves only when
// exactly one backend is registered.
func WithDefaultBackend(name string) Option {
	return func(c *config) {
		c.defaultBackend = name
	}
}

// WithMiddleware replaces the default resilience stack for one backend.
// The supplied configs run outermost-first and must not be shared with
// another backend when they carry state (breaker, rate limiter).
func WithMiddleware(backendName string, configs ...middleware.Config) Option {
	return func(c *config) {
		c.stacks[backendName] = configs
	}
}

// WithResilience tunes the default stack built for backends without a
// [WithMiddleware] override. The Backend and Observability fields are
// filled in per backend by the gateway.
func WithResilience(stack middleware.StackConfig) Option {
	return func(c *config) {
		c.resilience = stack
	}
}

// WithTools registers tools available to every generation that enables
// them. Tool names must be unique; duplicates fail construction.
func WithTools(tools ...tool.GenericTool) Option {
	return func(c *config) {
		c.tools = append(c.tools, tools...)
	}
}

// WithToolTimeout bounds each tool execution independently of the
// generation deadline.
func WithToolTimeout(timeout time.Duration) Option {
	return func(c *config) {
		c.toolTimeout = timeout
	}
}

// WithMaxToolIterations caps how many tool round-trips one generation may
// perform before the loop is cut off. Default: 5.
func WithMaxToolIterations(iterations int) Option {
	return func(c *config) {
		c.maxToolIterations = iterations
	}
}

// WithFieldMap registers the usage field names for one backend. Without a
// field map the backend's usage records are marked incomplete.
func WithFieldMap(backendName string, fieldMap analytics.FieldMap) Option {
	return func(c *config) {
		c.fieldMaps[backendName] = fieldMap
	}
}

// WithPricing supplies the per-million pricing table used to estimate
// costs when the vendor reports none.
func WithPricing(table cost.Table) Option {
	return func(c *config) {
		c.pricing = table
	}
}

// WithUsageSink adds a best-effort destination for derived usage records.
func WithUsageSink(sink analytics.Sink) Option {
	return func(c *config) {
		c.sinks = append(c.sinks, sink)
	}
}

// WithCollector replaces the analytics collector wholesale, ignoring
// [WithFieldMap], [WithPricing], and [WithUsageSink].
func WithCollector(collector *analytics.Collector) Option {
	return func(c *config) {
		c.collector = collector
	}
}

// WithEvaluator enables post-completion scoring of every generation.
func WithEvaluator(evaluator *evaluation.Evaluator) Option {
	return func(c *config) {
		c.evaluator = evaluator
	}
}

// WithChunkSize sets the content piece size for synthetic streams, in
// bytes. Default: 64.
func WithChunkSize(size int) Option {
	return func(c *config) {
		c.chunkSize = size
	}
}

// WithObservability wires tracing, metrics, and logging. Default: noop.
func WithObservability(provider observability.Provider) Option {
	return func(c *config) {
		c.obs = provider
	}
}
