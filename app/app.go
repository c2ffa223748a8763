// Package app is the user-facing surface of flare: it owns the router, the
// dispatch engine, the worker pool, the per-request object pools, and the
// circuit breaker, and wires them into a fasthttp server. Everything that
// was process-global in earlier designs lives on the App value, so multiple
// independent servers can coexist in one process.
package app

import (
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/goflare/flare/breaker"
	"github.com/goflare/flare/ctx"
	"github.com/goflare/flare/executor"
	"github.com/goflare/flare/metrics"
	"github.com/goflare/flare/pool"
	"github.com/goflare/flare/router"

	"github.com/valyala/fasthttp"
)

// Handler is the route handler signature, re-exported for convenience.
type Handler = router.Handler

// Middleware is the middleware signature, re-exported for convenience.
type Middleware = router.Middleware

// Ctx is the per-request context handed to handlers.
type Ctx = ctx.Context

// Options is the full tunables table. DefaultOptions spells the defaults out
// and New starts from them. A zero value set by an Option is taken as given,
// except where a component substitutes its own default for a non-positive
// setting (pool size, breaker threshold and reset timeout, worker core size,
// keep-alive, and scaling settings).
type Options struct {
	// Host and Port form the bind address.
	Host string
	Port int

	// RequestTimeout and IdleTimeout are enforced by the I/O layer.
	RequestTimeout time.Duration
	IdleTimeout    time.Duration

	// Worker configures the worker pool backing the worker path.
	Worker executor.Config

	// UseObjectPooling toggles Request/Response/Context recycling.
	UseObjectPooling bool
	// PoolSize is the initial object-pool admission limit.
	PoolSize int
	// AdaptivePoolSizing enables the background pool observer.
	AdaptivePoolSizing bool

	// EnableCircuitBreaker arms the breaker guarding the worker path.
	EnableCircuitBreaker       bool
	CircuitBreakerThreshold    int
	CircuitBreakerResetTimeout time.Duration

	// AsyncMiddleware runs the global middleware pipeline as its own worker
	// task ahead of the handler.
	AsyncMiddleware bool

	// EnableMetrics mounts the Prometheus exposition endpoint.
	EnableMetrics bool
	MetricsPath   string
}

// DefaultOptions returns the production defaults.
func DefaultOptions() Options {
	return Options{
		Host:                       "0.0.0.0",
		Port:                       8080,
		RequestTimeout:             30 * time.Second,
		IdleTimeout:                60 * time.Second,
		Worker:                     executor.DefaultConfig(),
		UseObjectPooling:           true,
		PoolSize:                   pool.DefaultCapacity,
		AdaptivePoolSizing:         true,
		CircuitBreakerThreshold:    breaker.DefaultThreshold,
		CircuitBreakerResetTimeout: breaker.DefaultResetTimeout,
		MetricsPath:                "/metrics",
	}
}

// Option mutates Options at construction time.
type Option func(*Options)

// App is the application/router. Configure it, register routes, then call
// Listen; configuration must not change after the server starts.
type App struct {
	opts   Options
	logger *slog.Logger

	router     *router.Router
	middleware []router.Middleware
	locals     map[string]any
	plugins    []Plugin

	brk      *breaker.Breaker
	workers  *executor.Pool
	observer *pool.Observer
	met      *metrics.Metrics

	reqPool *pool.Pool[*ctx.Request]
	resPool *pool.Pool[*ctx.Response]
	ctxPool *pool.Pool[*ctx.Context]

	engine *engine

	server *fasthttp.Server

	mu             sync.Mutex
	started        bool
	workerGauges   bool
	metricsMounted bool
}

// New creates an app with the given option overrides applied to the
// defaults.
func New(opts ...Option) *App {
	o := DefaultOptions()
	for _, fn := range opts {
		fn(&o)
	}
	a := &App{
		opts:   o,
		logger: slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})),
		router: router.New(),
		locals: make(map[string]any),
		brk:    breaker.New(o.CircuitBreakerThreshold, o.CircuitBreakerResetTimeout),
		met:    metrics.New("flare"),
	}
	a.brk.SetEnabled(o.EnableCircuitBreaker)
	a.buildEntityPools()
	a.engine = newEngine(a)
	return a
}

// buildEntityPools (re)creates the Request/Response/Context pools at the
// configured size.
func (a *App) buildEntityPools() {
	size := a.opts.PoolSize
	a.reqPool = pool.New(size, ctx.NewRequest)
	a.resPool = pool.New(size, ctx.NewResponse)
	a.ctxPool = pool.New(size, ctx.NewContext)
}

// SetLogger replaces the application logger.
func (a *App) SetLogger(l *slog.Logger) *App {
	if l != nil {
		a.logger = l
	}
	return a
}

// Logger returns the configured logger, or slog.Default.
func (a *App) Logger() *slog.Logger {
	if a.logger != nil {
		return a.logger
	}
	return slog.Default()
}

// Host sets the bind host. Chainable.
func (a *App) Host(h string) *App {
	a.opts.Host = h
	return a
}

// Port sets the bind port. Chainable.
func (a *App) Port(p int) *App {
	a.opts.Port = p
	return a
}

// Use appends global middleware, applied to every worker-path request in
// registration order. Registering any global middleware disables the fast
// path.
func (a *App) Use(mw ...Middleware) *App {
	a.middleware = append(a.middleware, mw...)
	return a
}

// Locals stores an application-level value copied into every request's
// locals map.
func (a *App) Locals(key string, value any) *App {
	a.locals[key] = value
	return a
}

// Register adds a plugin and invokes its Register hook immediately.
func (a *App) Register(p Plugin) *App {
	a.plugins = append(a.plugins, p)
	if err := p.Register(a); err != nil {
		a.Logger().Error("plugin registration failed", "err", err)
	}
	return a
}

// AsyncMiddleware toggles running the global middleware pipeline as a
// dedicated worker task.
func (a *App) AsyncMiddleware(enabled bool) *App {
	a.opts.AsyncMiddleware = enabled
	return a
}

// CircuitBreaker arms or disarms the breaker.
func (a *App) CircuitBreaker(enabled bool) *App {
	a.opts.EnableCircuitBreaker = enabled
	a.brk.SetEnabled(enabled)
	return a
}

// CircuitBreakerThreshold sets the consecutive-failure trip threshold.
func (a *App) CircuitBreakerThreshold(n int) *App {
	a.opts.CircuitBreakerThreshold = n
	a.brk.SetThreshold(n)
	return a
}

// CircuitBreakerResetTimeout sets the open-to-half-open timeout.
func (a *App) CircuitBreakerResetTimeout(d time.Duration) *App {
	a.opts.CircuitBreakerResetTimeout = d
	a.brk.SetResetTimeout(d)
	return a
}

// ResetCircuitBreaker forces the breaker back to closed.
func (a *App) ResetCircuitBreaker() *App {
	a.brk.Reset()
	return a
}

// AdaptivePoolSizing toggles the background object-pool observer.
func (a *App) AdaptivePoolSizing(enabled bool) *App {
	a.opts.AdaptivePoolSizing = enabled
	return a
}

// PoolSize resizes the object pools' admission limit.
func (a *App) PoolSize(n int) *App {
	a.opts.PoolSize = n
	a.reqPool.SetCapacity(n)
	a.resPool.SetCapacity(n)
	a.ctxPool.SetCapacity(n)
	return a
}

// Breaker exposes the circuit breaker, mainly for tests and diagnostics.
func (a *App) Breaker() *breaker.Breaker { return a.brk }

// Metrics exposes the Prometheus bundle.
func (a *App) Metrics() *metrics.Metrics { return a.met }

// WorkerPool exposes the worker pool; nil before the server starts.
func (a *App) WorkerPool() *executor.Pool { return a.workers }

// Router exposes the route tables for introspection.
func (a *App) Router() *router.Router { return a.router }

// EntityPoolMisses returns total misses across the request, response, and
// context pools.
func (a *App) EntityPoolMisses() uint64 {
	return a.reqPool.Misses() + a.resPool.Misses() + a.ctxPool.Misses()
}

// Config returns a copy of the effective tunables.
func (a *App) Config() Options { return a.opts }
