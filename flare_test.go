package flare_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"

	"github.com/goflare/flare"
)

func drive(a *flare.App, method, uri string) *fasthttp.RequestCtx {
	var req fasthttp.Request
	req.Header.SetMethod(method)
	req.SetRequestURI(uri)
	fctx := &fasthttp.RequestCtx{}
	fctx.Init(&req, nil, nil)
	a.Handler()(fctx)
	return fctx
}

func TestRootPackageSurface(t *testing.T) {
	a := flare.New(func(o *flare.Options) {
		o.Worker.CoreSize = 2
		o.Worker.MaxSize = 2
		o.Worker.AdaptiveSizing = false
		o.AdaptivePoolSizing = false
	})
	defer func() { require.NoError(t, a.Stop()) }()

	a.Get("/hello/:name", func(c *flare.Ctx) error {
		return c.JSON(map[string]string{"hello": c.Param("name")})
	})

	fctx := drive(a, "GET", "/hello/world")
	assert.Equal(t, fasthttp.StatusOK, fctx.Response.StatusCode())
	assert.Contains(t, string(fctx.Response.Body()), `"hello":"world"`)
}

func TestRootMiddlewareAlias(t *testing.T) {
	a := flare.New(func(o *flare.Options) {
		o.Worker.CoreSize = 2
		o.Worker.MaxSize = 2
		o.Worker.AdaptiveSizing = false
		o.AdaptivePoolSizing = false
	})
	defer func() { require.NoError(t, a.Stop()) }()

	var mw flare.Middleware = func(c *flare.Ctx) (bool, error) {
		c.SetHeader("X-Seen", "1")
		return true, nil
	}
	a.Use(mw)
	a.Get("/m", func(c *flare.Ctx) error { return c.Send("ok") })

	fctx := drive(a, "GET", "/m")
	assert.Equal(t, "1", string(fctx.Response.Header.Peek("X-Seen")))
}

func TestDefaultOptionsExposed(t *testing.T) {
	o := flare.DefaultOptions()
	assert.Equal(t, 8080, o.Port)
}
