package app

import (
	"net/http"

	"github.com/goflare/flare/router"
)

// Get registers a handler for GET requests on the given path, with optional
// route-specific middleware.
//
// Example:
//
//	a.Get("/users/:id", func(c *app.Ctx) error {
//		return c.JSON(map[string]string{"id": c.Param("id")})
//	})
func (a *App) Get(path string, h Handler, mws ...Middleware) *router.Route {
	return a.Route(http.MethodGet, path, h, mws...)
}

// Post registers a handler for POST requests on the given path.
func (a *App) Post(path string, h Handler, mws ...Middleware) *router.Route {
	return a.Route(http.MethodPost, path, h, mws...)
}

// Put registers a handler for PUT requests on the given path.
func (a *App) Put(path string, h Handler, mws ...Middleware) *router.Route {
	return a.Route(http.MethodPut, path, h, mws...)
}

// Delete registers a handler for DELETE requests on the given path.
func (a *App) Delete(path string, h Handler, mws ...Middleware) *router.Route {
	return a.Route(http.MethodDelete, path, h, mws...)
}

// Patch registers a handler for PATCH requests on the given path.
func (a *App) Patch(path string, h Handler, mws ...Middleware) *router.Route {
	return a.Route(http.MethodPatch, path, h, mws...)
}

// Head registers a handler for HEAD requests on the given path.
// Mirrors Get semantics without a response body.
func (a *App) Head(path string, h Handler, mws ...Middleware) *router.Route {
	return a.Route(http.MethodHead, path, h, mws...)
}

// Options registers a handler for OPTIONS requests on the given path.
// Useful for CORS preflight handling.
func (a *App) Options(path string, h Handler, mws ...Middleware) *router.Route {
	return a.Route(http.MethodOptions, path, h, mws...)
}

// Trace registers a handler for TRACE requests on the given path.
func (a *App) Trace(path string, h Handler, mws ...Middleware) *router.Route {
	return a.Route(http.MethodTrace, path, h, mws...)
}

// Connect registers a handler for CONNECT requests on the given path.
func (a *App) Connect(path string, h Handler, mws ...Middleware) *router.Route {
	return a.Route(http.MethodConnect, path, h, mws...)
}

// Route registers a handler for an arbitrary method and path. Route-specific
// middleware runs after global middleware and before the handler.
func (a *App) Route(method, path string, h Handler, mws ...Middleware) *router.Route {
	r := a.router.Add(method, path, h)
	if len(mws) > 0 {
		r.Use(mws...)
	}
	return r
}
