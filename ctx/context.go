package ctx

import (
	"log/slog"
)

// Context is what handlers and middleware receive: the Request/Response pair
// plus a per-request key/value store (locals) seeded from the application's
// own locals. Like its parts it is pooled; Reset re-arms it for the next
// exchange.
type Context struct {
	Request  *Request
	Response *Response

	locals map[string]any
	logger *slog.Logger
}

// NewContext returns an empty context ready for Reset.
func NewContext() *Context { return &Context{} }

// Reset adopts a fresh request/response pair and re-seeds locals from the
// application-level map. The locals map is reused between requests.
func (c *Context) Reset(req *Request, res *Response, appLocals map[string]any, logger *slog.Logger) {
	c.Request = req
	c.Response = res
	c.logger = logger
	if c.locals == nil {
		c.locals = make(map[string]any, len(appLocals)+4)
	} else {
		clear(c.locals)
	}
	for k, v := range appLocals {
		c.locals[k] = v
	}
}

// Set stores a request-scoped value.
func (c *Context) Set(key string, value any) *Context {
	c.locals[key] = value
	return c
}

// Get retrieves a request-scoped value, or nil.
func (c *Context) Get(key string) any { return c.locals[key] }

// Logger returns the application logger, falling back to slog.Default.
func (c *Context) Logger() *slog.Logger {
	if c.logger != nil {
		return c.logger
	}
	return slog.Default()
}

// Request-side delegates.

// Method returns the HTTP method.
func (c *Context) Method() string { return c.Request.Method() }

// Path returns the request path.
func (c *Context) Path() string { return c.Request.Path() }

// Param returns a path parameter by name.
func (c *Context) Param(name string) string { return c.Request.Param(name) }

// Query returns the first value of a query parameter.
func (c *Context) Query(key string) string { return c.Request.Query(key) }

// Header returns a request header value.
func (c *Context) Header(name string) string { return c.Request.Header(name) }

// Body returns the raw request body.
func (c *Context) Body() []byte { return c.Request.Body() }

// Parse decodes the request body into v based on its content type.
func (c *Context) Parse(v any) error { return c.Request.Parse(v) }

// Response-side delegates.

// Status stages the response status code. Chainable.
func (c *Context) Status(code int) *Context {
	c.Response.Status(code)
	return c
}

// SetHeader stages a response header.
func (c *Context) SetHeader(key, value string) *Context {
	c.Response.Header(key, value)
	return c
}

// Type stages the response Content-Type.
func (c *Context) Type(contentType string) *Context {
	c.Response.Type(contentType)
	return c
}

// Send emits a text body.
func (c *Context) Send(body string) error { return c.Response.Send(body) }

// SendBytes emits a raw byte body.
func (c *Context) SendBytes(body []byte) error { return c.Response.SendBytes(body) }

// JSON emits a JSON body.
func (c *Context) JSON(v any) error { return c.Response.JSON(v) }

// NoContent emits 204 and ends the exchange.
func (c *Context) NoContent() error { return c.Response.NoContent() }

// Redirect emits a temporary (302) redirect.
func (c *Context) Redirect(url string) error { return c.Response.Redirect(url, false) }

// Error emits the canonical error body with the given status.
func (c *Context) Error(code int, message string) error {
	return c.Response.Error(code, message)
}
