// Package flare is a high-throughput HTTP application server framework.
// It separates non-blocking I/O handling from worker execution with a fast
// path that bypasses worker hand-off when safe, resolves routes through a
// hybrid exact/pattern matcher with a hot-route cache, and recycles
// per-request objects through adaptive pools guarded by a circuit breaker.
//
// Example:
//
//	a := flare.New()
//	a.Get("/users/:id", func(c *flare.Ctx) error {
//		return c.JSON(map[string]string{"id": c.Param("id")})
//	})
//	_ = a.Port(8080).Listen()
package flare

import (
	"github.com/goflare/flare/app"
	"github.com/goflare/flare/ctx"
	"github.com/goflare/flare/router"
)

// App is the application/router.
type App = app.App

// Ctx is the per-request context handed to handlers and middleware.
type Ctx = ctx.Context

// Handler is the route handler signature.
type Handler = router.Handler

// Middleware is the middleware signature: return false to stop the chain.
type Middleware = router.Middleware

// Options is the tunables table accepted by New.
type Options = app.Options

// Option overrides a default tunable at construction time.
type Option = app.Option

// Plugin is the lifecycle extension interface.
type Plugin = app.Plugin

// New creates an application with default tunables, optionally overridden.
func New(opts ...Option) *App { return app.New(opts...) }

// DefaultOptions returns the default tunables table.
func DefaultOptions() Options { return app.DefaultOptions() }
