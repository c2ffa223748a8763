package ctx

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
)

func newResponse(fctx *fasthttp.RequestCtx) *Response {
	r := NewResponse()
	r.Reset(fctx, slog.Default())
	return r
}

func TestResponseSendText(t *testing.T) {
	fctx := newExchange("GET", "/", "")
	r := newResponse(fctx)

	require.NoError(t, r.Send("pong"))
	assert.True(t, r.Sent())
	assert.Equal(t, fasthttp.StatusOK, fctx.Response.StatusCode())
	assert.Equal(t, "pong", string(fctx.Response.Body()))
	assert.Contains(t, string(fctx.Response.Header.ContentType()), "text/plain")
}

func TestResponseStatusChaining(t *testing.T) {
	fctx := newExchange("GET", "/", "")
	r := newResponse(fctx)

	require.NoError(t, r.Status(fasthttp.StatusCreated).JSON(map[string]bool{"ok": true}))
	assert.Equal(t, fasthttp.StatusCreated, fctx.Response.StatusCode())
	assert.Contains(t, string(fctx.Response.Header.ContentType()), "application/json")
}

func TestResponseSentGuard(t *testing.T) {
	fctx := newExchange("GET", "/", "")
	r := newResponse(fctx)

	require.NoError(t, r.Send("first"))

	// Every further mutation is a no-op.
	require.NoError(t, r.Send("second"))
	require.NoError(t, r.JSON(map[string]string{"x": "y"}))
	r.Status(fasthttp.StatusTeapot)
	r.Header("X-Late", "v")

	assert.Equal(t, "first", string(fctx.Response.Body()))
	assert.Equal(t, fasthttp.StatusOK, fctx.Response.StatusCode())
	assert.Empty(t, string(fctx.Response.Header.Peek("X-Late")))
}

func TestResponseJSONStringNormalization(t *testing.T) {
	fctx := newExchange("GET", "/", "")
	r := newResponse(fctx)

	require.NoError(t, r.JSON(`{"a": 1, "b": "x"}`))
	assert.Equal(t, `{"a":1, "b":"x"}`, string(fctx.Response.Body()))
}

func TestResponseErrorBodyShape(t *testing.T) {
	fctx := newExchange("GET", "/", "")
	r := newResponse(fctx)

	require.NoError(t, r.Error(fasthttp.StatusBadRequest, "bad input"))
	assert.Equal(t, fasthttp.StatusBadRequest, fctx.Response.StatusCode())
	assert.Equal(t,
		`{"error":true,"status":400,"message":"bad input"}`,
		string(fctx.Response.Body()))
}

func TestResponseNoContent(t *testing.T) {
	fctx := newExchange("GET", "/", "")
	r := newResponse(fctx)

	require.NoError(t, r.NoContent())
	assert.Equal(t, fasthttp.StatusNoContent, fctx.Response.StatusCode())
	assert.Empty(t, fctx.Response.Body())
	assert.True(t, r.Sent())
}

func TestResponseRedirect(t *testing.T) {
	fctx := newExchange("GET", "/old", "")
	r := newResponse(fctx)
	require.NoError(t, r.Redirect("/new", false))
	assert.Equal(t, fasthttp.StatusFound, fctx.Response.StatusCode())
	assert.Equal(t, "/new", string(fctx.Response.Header.Peek(fasthttp.HeaderLocation)))

	fctx = newExchange("GET", "/old", "")
	r = newResponse(fctx)
	require.NoError(t, r.Redirect("/new", true))
	assert.Equal(t, fasthttp.StatusMovedPermanently, fctx.Response.StatusCode())
}

func TestResponseTypeAndHeader(t *testing.T) {
	fctx := newExchange("GET", "/", "")
	r := newResponse(fctx)

	r.Type("application/xml").Header("X-Api", "v1")
	require.NoError(t, r.Send("<ok/>"))

	assert.Equal(t, "application/xml", string(fctx.Response.Header.ContentType()))
	assert.Equal(t, "v1", string(fctx.Response.Header.Peek("X-Api")))
}

func TestResponseResetClearsState(t *testing.T) {
	fctx := newExchange("GET", "/", "")
	r := newResponse(fctx)
	require.NoError(t, r.Status(fasthttp.StatusTeapot).Send("tea"))

	r.Reset(newExchange("GET", "/", ""), slog.Default())
	assert.False(t, r.Sent())
	assert.Equal(t, fasthttp.StatusOK, r.StatusCode())
}
