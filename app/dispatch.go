package app

import (
	"fmt"
	"net/http"
	"time"
	"unsafe"

	"github.com/valyala/fasthttp"

	"github.com/goflare/flare/breaker"
	"github.com/goflare/flare/ctx"
	"github.com/goflare/flare/metrics"
	"github.com/goflare/flare/router"
)

// Canonical bodies emitted by the engine.
const (
	bodyHealth      = `{"status":"ok"}`
	bodyNotFound    = `{"error":"Not Found"}`
	bodyServerError = `{"error":"Internal Server Error"}`
	bodyBreakerOpen = `{"error":"Service temporarily unavailable","message":"Circuit breaker open"}`
)

// b2s converts exchange-owned bytes to a string without copying.
func b2s(b []byte) string {
	return *(*string)(unsafe.Pointer(&b))
}

// engine turns an inbound exchange into a handler invocation and a response.
// Per request it picks one of three hand-off strategies: the ultra-fast path
// (cached parameter-less route, handled inline), the fast path (inline with
// routing work), or the worker path (full pipeline on the worker pool).
type engine struct {
	app   *App
	cache *routeCache
}

func newEngine(a *App) *engine {
	return &engine{app: a, cache: newRouteCache()}
}

// isHealthPath matches the healthcheck short-circuit set.
func isHealthPath(path string) bool {
	switch path {
	case "/health", "/ping", "/status":
		return true
	}
	return false
}

// handle is the fasthttp entry point. The calling goroutine belongs to the
// I/O layer: the fast paths run on it directly, the worker path hands the
// exchange to the worker pool and blocks for completion so the I/O layer can
// finish the exchange.
func (e *engine) handle(fctx *fasthttp.RequestCtx) {
	method := b2s(fctx.Method())
	path := b2s(fctx.Path())
	start := time.Now()

	if method == http.MethodGet && isHealthPath(path) {
		fctx.SetStatusCode(fasthttp.StatusOK)
		fctx.SetContentType("application/json")
		fctx.SetBodyString(bodyHealth)
		e.app.met.ObserveRequest(metrics.KindHealth, time.Since(start))
		return
	}

	// An armed breaker needs the worker path's admission check, so the fast
	// path is only taken while the breaker is disarmed.
	if (method == http.MethodGet || method == http.MethodHead) &&
		len(e.app.middleware) == 0 && !e.app.brk.Enabled() {
		if e.tryFastPath(fctx, method, path, start) {
			return
		}
		// Fall through to the worker path without failing the request.
	}

	e.dispatchWorker(fctx, start)
}

// tryFastPath serves the request inline when a matching route with no
// per-route middleware exists. Reports whether the exchange was handled.
func (e *engine) tryFastPath(fctx *fasthttp.RequestCtx, method, path string, start time.Time) bool {
	npath := router.NormalizePath(path)
	key := method + "|" + npath

	if rt, ok := e.cache.get(key); ok {
		e.invokeFast(fctx, rt, start)
		return true
	}

	rt := e.app.router.Find(method, npath)
	if rt == nil || len(rt.Middleware()) > 0 {
		return false
	}
	e.cache.put(key, rt)
	e.invokeFast(fctx, rt, start)
	return true
}

// invokeFast runs the handler on the I/O goroutine. With a parameter-less
// route this is the ultra-fast path: no routing work at all beyond the cache
// hit.
func (e *engine) invokeFast(fctx *fasthttp.RequestCtx, rt *router.Route, start time.Time) {
	a := e.app
	req, res, c := a.acquireEntities(fctx)
	defer a.releaseEntities(req, res, c)
	defer e.completeExchange(fctx, res)

	kind := metrics.KindUltraFast
	if !rt.Spec().IsStatic() {
		kind = metrics.KindFast
		a.router.ResolveParams(req, rt)
	}

	e.invokeHandler(c, rt)
	a.met.ObserveRequest(kind, time.Since(start))
}

// dispatchWorker runs the full pipeline on the worker pool, blocking the I/O
// goroutine until the exchange is complete. Saturation falls back to
// caller-runs inside the pool; with caller-runs disabled the request fails
// as overloaded.
func (e *engine) dispatchWorker(fctx *fasthttp.RequestCtx, start time.Time) {
	a := e.app
	if a.workers == nil {
		e.workerPipeline(fctx)
		a.met.ObserveRequest(metrics.KindWorker, time.Since(start))
		return
	}

	done := make(chan struct{})
	err := a.workers.Execute(func() {
		defer close(done)
		e.workerPipeline(fctx)
	})
	if err != nil {
		a.Logger().Warn("worker pool saturated, failing request", "err", err)
		fctx.SetStatusCode(fasthttp.StatusInternalServerError)
		fctx.SetContentType("application/json")
		fctx.SetBodyString(bodyServerError)
		return
	}
	<-done
	a.met.ObserveRequest(metrics.KindWorker, time.Since(start))
}

// workerPipeline is the standard, blocking-capable pipeline: breaker
// admission, global middleware, routing, per-route middleware, handler,
// completion. Entities are always released and the exchange always gets a
// response, whatever fails inside.
func (e *engine) workerPipeline(fctx *fasthttp.RequestCtx) {
	a := e.app

	if !a.brk.Allow() {
		a.met.RecordBreakerRejection()
		fctx.SetStatusCode(fasthttp.StatusServiceUnavailable)
		fctx.SetContentType("application/json")
		fctx.SetBodyString(bodyBreakerOpen)
		return
	}

	req, res, c := a.acquireEntities(fctx)
	defer a.releaseEntities(req, res, c)
	defer e.completeExchange(fctx, res)

	proceed, err := e.runGlobalMiddleware(c)
	if err != nil {
		e.failRequest(c, err)
		return
	}
	if !proceed {
		// Short-circuit is a legitimate outcome, not a failure.
		e.recordSuccess()
		return
	}

	rt := a.router.Find(req.Method(), req.Path())
	if rt == nil {
		res.Status(fasthttp.StatusNotFound)
		_ = res.JSON(bodyNotFound)
		return
	}

	a.router.ResolveParams(req, rt)

	proceed, err = e.runChain(c, rt.Middleware())
	if err != nil {
		e.failRequest(c, err)
		return
	}
	if !proceed {
		e.recordSuccess()
		return
	}

	e.invokeHandler(c, rt)
}

// runGlobalMiddleware executes the global chain, as its own worker task when
// async middleware is enabled. Either way the pipeline completes before the
// handler runs, preserving ordering.
func (e *engine) runGlobalMiddleware(c *ctx.Context) (bool, error) {
	a := e.app
	if !a.opts.AsyncMiddleware || a.workers == nil {
		return e.runChain(c, a.middleware)
	}
	f, err := a.workers.Submit(func() (any, error) {
		proceed, err := e.runChain(c, a.middleware)
		return proceed, err
	})
	if err != nil {
		// Pool saturated: degrade to inline execution.
		return e.runChain(c, a.middleware)
	}
	v, err := f.Get(c.Request.Exchange())
	if err != nil {
		return false, err
	}
	return v.(bool), nil
}

// runChain executes middleware in order. The chain stops when one returns
// false, marks the response sent, or fails.
func (e *engine) runChain(c *ctx.Context, chain []router.Middleware) (proceed bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			proceed, err = false, panicError(r)
		}
	}()
	for _, mw := range chain {
		cont, err := mw(c)
		if err != nil {
			return false, err
		}
		if !cont || c.Response.Sent() {
			return false, nil
		}
	}
	return true, nil
}

// invokeHandler runs the route handler, reporting the outcome to the breaker
// and translating failures into a 500 when nothing was sent yet.
func (e *engine) invokeHandler(c *ctx.Context, rt *router.Route) {
	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = panicError(r)
			}
		}()
		return rt.Handler()(c)
	}()
	if err != nil {
		e.failRequest(c, err)
		return
	}
	e.recordSuccess()
}

// failRequest logs the failure, responds 500 when the response is still
// open, and records a breaker failure.
func (e *engine) failRequest(c *ctx.Context, err error) {
	a := e.app
	a.Logger().Error("unhandled request failure",
		"method", c.Method(), "path", c.Path(), "err", err)
	a.met.RecordError()
	if !c.Response.Sent() {
		c.Response.Status(fasthttp.StatusInternalServerError)
		_ = c.Response.JSON(bodyServerError)
	}
	before := a.brk.State()
	a.brk.Failure()
	if before != breaker.Open && a.brk.State() == breaker.Open {
		a.met.RecordBreakerTrip()
		a.Logger().Warn("circuit breaker tripped open",
			"threshold", a.opts.CircuitBreakerThreshold)
	}
}

func (e *engine) recordSuccess() { e.app.brk.Success() }

// completeExchange guarantees a response even when the handler forgot to
// send a body: the staged status code is applied so the I/O layer can finish
// the exchange.
func (e *engine) completeExchange(fctx *fasthttp.RequestCtx, res *ctx.Response) {
	if !res.Sent() {
		fctx.SetStatusCode(res.StatusCode())
	}
}

// acquireEntities checks the three per-request entities out of their pools
// (or allocates when pooling is off) and wires them together.
func (a *App) acquireEntities(fctx *fasthttp.RequestCtx) (*ctx.Request, *ctx.Response, *ctx.Context) {
	var req *ctx.Request
	var res *ctx.Response
	var c *ctx.Context
	if a.opts.UseObjectPooling {
		req = a.reqPool.Acquire()
		res = a.resPool.Acquire()
		c = a.ctxPool.Acquire()
	} else {
		req = ctx.NewRequest()
		res = ctx.NewResponse()
		c = ctx.NewContext()
	}
	req.Reset(fctx)
	res.Reset(fctx, a.logger)
	c.Reset(req, res, a.locals, a.logger)
	return req, res, c
}

// releaseEntities returns the entities to their pools exactly once; the
// dispatch paths call it from a defer so release survives panics.
func (a *App) releaseEntities(req *ctx.Request, res *ctx.Response, c *ctx.Context) {
	if !a.opts.UseObjectPooling {
		return
	}
	a.reqPool.Release(req)
	a.resPool.Release(res)
	a.ctxPool.Release(c)
}

// panicError converts a recovered panic value into an error.
func panicError(r any) error {
	if err, ok := r.(error); ok {
		return err
	}
	return fmt.Errorf("panic in handler chain: %v", r)
}
