package app

import (
	"testing"

	"github.com/valyala/fasthttp"
)

func benchApp(b *testing.B) *App {
	b.Helper()
	a := New(func(o *Options) {
		o.Worker.AdaptiveSizing = false
		o.Worker.AdaptiveQueue = false
		o.AdaptivePoolSizing = false
	})
	b.Cleanup(func() { _ = a.Stop() })
	return a
}

func benchExchange(method, uri string) (*fasthttp.Request, func() *fasthttp.RequestCtx) {
	var req fasthttp.Request
	req.Header.SetMethod(method)
	req.SetRequestURI(uri)
	return &req, func() *fasthttp.RequestCtx {
		fctx := &fasthttp.RequestCtx{}
		fctx.Init(&req, nil, nil)
		return fctx
	}
}

// BenchmarkUltraFastPath measures a cached parameter-less GET handled
// entirely on the calling goroutine.
func BenchmarkUltraFastPath(b *testing.B) {
	a := benchApp(b)
	a.Get("/plain", func(c *Ctx) error { return c.Send("pong") })
	h := a.Handler()
	_, mk := benchExchange("GET", "/plain")

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		h(mk())
	}
}

// BenchmarkFastPathParams measures the fast path with parameter resolution.
func BenchmarkFastPathParams(b *testing.B) {
	a := benchApp(b)
	a.Get("/users/:id/posts/:postID", func(c *Ctx) error {
		return c.JSON(map[string]string{
			"userId": c.Param("id"),
			"postId": c.Param("postID"),
		})
	})
	h := a.Handler()
	_, mk := benchExchange("GET", "/users/123/posts/456")

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		h(mk())
	}
}

// BenchmarkWorkerPath measures the full pipeline through the worker pool.
func BenchmarkWorkerPath(b *testing.B) {
	a := benchApp(b)
	a.Post("/echo", func(c *Ctx) error { return c.SendBytes(c.Body()) })
	h := a.Handler()
	_, mk := benchExchange("POST", "/echo")

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		h(mk())
	}
}

// BenchmarkHealthcheck measures the healthcheck short-circuit.
func BenchmarkHealthcheck(b *testing.B) {
	a := benchApp(b)
	h := a.Handler()
	_, mk := benchExchange("GET", "/health")

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		h(mk())
	}
}

// BenchmarkJSONResponse measures object serialization on the fast path.
func BenchmarkJSONResponse(b *testing.B) {
	a := benchApp(b)
	a.Get("/json", func(c *Ctx) error {
		return c.JSON(map[string]any{
			"message": "hello world",
			"status":  "ok",
			"count":   42,
		})
	})
	h := a.Handler()
	_, mk := benchExchange("GET", "/json")

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		h(mk())
	}
}
