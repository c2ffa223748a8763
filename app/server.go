package app

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/goflare/flare/executor"
	"github.com/goflare/flare/pool"
)

// shutdownGrace bounds how long Stop waits for the listener and the worker
// pool to drain.
const shutdownGrace = 30 * time.Second

// Handler returns the fasthttp request handler for this app, building the
// runtime (worker pool, pool observer) on first use. It lets tests and
// embedders drive the engine without binding a listener.
func (a *App) Handler() fasthttp.RequestHandler {
	a.ensureRuntime()
	return a.engine.handle
}

// ensureRuntime builds the components that only exist while serving: the
// worker pool and the adaptive pool observer. Idempotent across a
// Stop/Listen cycle; a restart picks up the adaptive queue capacity the
// previous run recorded.
func (a *App) ensureRuntime() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.started {
		return
	}

	cfg := a.opts.Worker
	if a.workers != nil {
		// Adaptive queue growth applies at the next start only.
		cfg.QueueCapacity = a.workers.NextQueueCapacity()
	}
	a.workers = executor.NewPool(cfg, a.logger)
	if !a.workerGauges {
		a.met.RegisterWorkerPool("flare", func() executor.Stats {
			if w := a.WorkerPool(); w != nil {
				return w.Snapshot()
			}
			return executor.Stats{}
		})
		a.workerGauges = true
	}

	if a.opts.AdaptivePoolSizing && a.opts.UseObjectPooling {
		a.observer = pool.NewObserver(0, a.logger)
		a.observer.Register("request", a.reqPool)
		a.observer.Register("response", a.resPool)
		a.observer.Register("context", a.ctxPool)
		a.observer.Start()
	}

	if a.opts.EnableMetrics && !a.metricsMounted {
		a.mountMetricsRoute()
		a.metricsMounted = true
	}

	a.started = true
}

// Listen binds the configured address and serves until Stop is called or the
// listener fails.
func (a *App) Listen() error {
	return a.ListenFn(nil)
}

// ListenFn is Listen with a callback invoked once the bind has succeeded.
func (a *App) ListenFn(cb func()) error {
	a.ensureRuntime()

	addr := net.JoinHostPort(a.opts.Host, fmt.Sprintf("%d", a.opts.Port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("app: bind %s: %w", addr, err)
	}

	for _, p := range a.plugins {
		if err := p.OnStart(a); err != nil {
			a.Logger().Error("plugin start failed", "err", err)
		}
	}

	a.server = &fasthttp.Server{
		Handler:     a.engine.handle,
		Name:        "flare",
		ReadTimeout: a.opts.RequestTimeout,
		IdleTimeout: a.opts.IdleTimeout,
	}

	a.Logger().Info("server listening", "addr", addr)
	if cb != nil {
		cb()
	}
	return a.server.Serve(ln)
}

// Stop notifies plugins, stops the listener, and shuts the worker pool down
// with a 30 second grace period.
func (a *App) Stop() error {
	for _, p := range a.plugins {
		if err := p.OnStop(a); err != nil {
			a.Logger().Error("plugin stop failed", "err", err)
		}
	}

	var err error
	if a.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		err = a.server.ShutdownWithContext(shutdownCtx)
	}

	a.mu.Lock()
	workers := a.workers
	observer := a.observer
	a.observer = nil
	a.started = false
	a.mu.Unlock()

	if workers != nil {
		workers.Shutdown()
		if !workers.AwaitTermination(shutdownGrace) {
			a.Logger().Warn("worker pool did not drain within grace period")
		}
	}
	if observer != nil {
		observer.Stop()
	}
	a.Logger().Info("server stopped")
	return err
}

// mountMetricsRoute registers the Prometheus exposition endpoint as a plain
// route so it flows through the normal dispatch machinery.
func (a *App) mountMetricsRoute() {
	h := a.met.Handler()
	a.Get(a.opts.MetricsPath, func(c *Ctx) error {
		a.recordPoolGauges()
		h(c.Request.Exchange())
		return nil
	})
}

// recordPoolGauges mirrors the object pools into the metrics bundle.
func (a *App) recordPoolGauges() {
	a.met.RecordPool("request", a.reqPool.Misses(), a.reqPool.Capacity(), a.reqPool.InFlight())
	a.met.RecordPool("response", a.resPool.Misses(), a.resPool.Capacity(), a.resPool.InFlight())
	a.met.RecordPool("context", a.ctxPool.Misses(), a.ctxPool.Capacity(), a.ctxPool.InFlight())
}
