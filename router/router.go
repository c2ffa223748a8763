package router

import (
	"strings"

	"github.com/goflare/flare/ctx"
)

// Handler is the route handler signature. Returning a non-nil error makes
// the dispatch engine respond 500 (when nothing was sent) and records a
// failure with the circuit breaker.
type Handler func(*ctx.Context) error

// Middleware runs before the handler. Returning false stops the chain
// without invoking anything further; returning an error aborts the request
// the same way a failing handler does.
type Middleware func(*ctx.Context) (bool, error)

// Route couples a method and compiled pattern with its handler and per-route
// middleware. Routes are created during configuration and never destroyed
// until shutdown; the middleware list is append-only and must not be touched
// after the server starts.
type Route struct {
	method     string
	path       string
	spec       *PathSpec
	handler    Handler
	middleware []Middleware
}

// Method returns the uppercase HTTP method.
func (r *Route) Method() string { return r.method }

// Path returns the original, normalized pattern.
func (r *Route) Path() string { return r.path }

// Spec returns the compiled pattern.
func (r *Route) Spec() *PathSpec { return r.spec }

// Handler returns the route handler.
func (r *Route) Handler() Handler { return r.handler }

// Use appends per-route middleware. Configuration-time only.
func (r *Route) Use(mw ...Middleware) *Route {
	r.middleware = append(r.middleware, mw...)
	return r
}

// Middleware returns the per-route middleware in registration order.
func (r *Route) Middleware() []Middleware { return r.middleware }

// Router owns the route tables: an exact-match table for static patterns and
// an insertion-ordered list for patterns with parameters or wildcards. It is
// mutated only during configuration; after the server starts every access is
// a read and needs no locking.
type Router struct {
	exact     map[string]*Route
	patterns  []*Route
	byPattern map[string]*Route // introspection across both tables
}

// New returns an empty router.
func New() *Router {
	return &Router{
		exact:     make(map[string]*Route),
		byPattern: make(map[string]*Route),
	}
}

func exactKey(method, path string) string {
	return method + "|" + path
}

// Add registers a route. Static patterns go to the exact table under
// METHOD|path; everything else is appended to the pattern list, where the
// first match wins.
func (rt *Router) Add(method, pattern string, h Handler) *Route {
	spec := Compile(pattern)
	r := &Route{
		method:  strings.ToUpper(method),
		path:    spec.String(),
		spec:    spec,
		handler: h,
	}
	if spec.IsStatic() {
		rt.exact[exactKey(r.method, r.path)] = r
	} else {
		rt.patterns = append(rt.patterns, r)
	}
	rt.byPattern[exactKey(r.method, r.path)] = r
	return r
}

// Find resolves a request to a route, or nil. The exact table is consulted
// first, so a static route always beats a pattern route that would also
// match. Pattern routes are scanned in insertion order with case-insensitive
// method comparison.
func (rt *Router) Find(method, path string) *Route {
	path = NormalizePath(path)
	if r, ok := rt.exact[exactKey(strings.ToUpper(method), path)]; ok {
		return r
	}
	for _, r := range rt.patterns {
		if !strings.EqualFold(r.method, method) {
			continue
		}
		if _, ok := r.spec.Match(path); ok {
			return r
		}
	}
	return nil
}

// Lookup returns the route registered under the exact method and pattern,
// regardless of which table holds it. Introspection only.
func (rt *Router) Lookup(method, pattern string) *Route {
	return rt.byPattern[exactKey(strings.ToUpper(method), NormalizePath(pattern))]
}

// Routes returns every registered route: exact-table routes first, then
// pattern routes in insertion order.
func (rt *Router) Routes() []*Route {
	out := make([]*Route, 0, len(rt.exact)+len(rt.patterns))
	for _, r := range rt.exact {
		out = append(out, r)
	}
	out = append(out, rt.patterns...)
	return out
}

// ResolveParams matches the route pattern against the request path and
// installs the sanitized captures on the request. A capture that fails
// sanitization is recorded as absent rather than failing the request.
func (rt *Router) ResolveParams(req *ctx.Request, r *Route) {
	params, ok := r.spec.Match(req.Path())
	if !ok || len(params) == 0 {
		return
	}
	for i := range params {
		if params[i].Key == WildcardKey {
			if !wildcardValueOK(params[i].Value) {
				params[i].Value = ""
			}
			continue
		}
		if !paramValueOK(params[i].Value) {
			params[i].Value = ""
		}
	}
	req.SetParams(params)
}

// SanitizeParam reports whether a single captured value passes the
// named-parameter rules. Exposed for reuse by handlers validating their own
// inputs.
func SanitizeParam(v string) bool { return paramValueOK(v) }
