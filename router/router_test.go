package router

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"

	"github.com/goflare/flare/ctx"
)

func noop(*ctx.Context) error { return nil }

func requestFor(path string) *ctx.Request {
	var freq fasthttp.Request
	freq.Header.SetMethod("GET")
	freq.SetRequestURI(path)
	fctx := &fasthttp.RequestCtx{}
	fctx.Init(&freq, nil, nil)
	r := ctx.NewRequest()
	r.Reset(fctx)
	return r
}

func TestAddPlacesStaticInExactTable(t *testing.T) {
	rt := New()
	rt.Add("get", "/users", noop)

	r := rt.Find("GET", "/users")
	require.NotNil(t, r)
	assert.Equal(t, "GET", r.Method())

	// Introspectable by pattern form too.
	assert.Same(t, r, rt.Lookup("GET", "/users/"))
}

func TestFindTrailingSlash(t *testing.T) {
	rt := New()
	rt.Add("GET", "/users", noop)

	assert.NotNil(t, rt.Find("GET", "/users/"))
	assert.Nil(t, rt.Find("POST", "/users"), "method mismatch on exact table")
}

func TestFindMethodCaseInsensitiveOnPatterns(t *testing.T) {
	rt := New()
	rt.Add("GET", "/users/:id", noop)

	assert.NotNil(t, rt.Find("get", "/users/5"))
	assert.NotNil(t, rt.Find("GeT", "/users/5"))
	assert.Nil(t, rt.Find("POST", "/users/5"))
}

func TestStaticBeatsDynamic(t *testing.T) {
	rt := New()
	dynamic := rt.Add("GET", "/users/:id", noop)
	static := rt.Add("GET", "/users/special", noop)

	found := rt.Find("GET", "/users/special")
	assert.Same(t, static, found)
	assert.NotSame(t, dynamic, found)

	// Other ids still reach the pattern route.
	assert.Same(t, dynamic, rt.Find("GET", "/users/42"))
}

func TestPatternInsertionOrderWins(t *testing.T) {
	rt := New()
	first := rt.Add("GET", "/a/:x", noop)
	rt.Add("GET", "/a/:y", noop)

	assert.Same(t, first, rt.Find("GET", "/a/1"))
}

func TestResolveParamsPopulatesRequest(t *testing.T) {
	rt := New()
	r := rt.Add("GET", "/users/:id", noop)

	req := requestFor("/users/42")
	rt.ResolveParams(req, r)
	assert.Equal(t, "42", req.Param("id"))
}

func TestResolveParamsSanitization(t *testing.T) {
	rt := New()
	r := rt.Add("GET", "/files/:name", noop)

	cases := []string{
		"a..b",    // parent reference as substring
		"C:stuff", // drive letter
		"a\\b",    // backslash
		"a\x01b",  // control byte
		"a\x7fb",  // DEL
	}
	for _, bad := range cases {
		req := requestFor("/files/" + bad)
		rt.ResolveParams(req, r)
		assert.Equal(t, "", req.Param("name"), "capture %q must be rejected", bad)
	}

	req := requestFor("/files/report.pdf")
	rt.ResolveParams(req, r)
	assert.Equal(t, "report.pdf", req.Param("name"))
}

func TestResolveParamsWildcardKeepsSlashes(t *testing.T) {
	rt := New()
	r := rt.Add("GET", "/static/*", noop)

	req := requestFor("/static/css/site.css")
	rt.ResolveParams(req, r)
	assert.Equal(t, "css/site.css", req.Param(WildcardKey))

	// Parent references are still rejected for wildcards.
	req = requestFor("/static/css/a..b")
	rt.ResolveParams(req, r)
	assert.Equal(t, "", req.Param(WildcardKey))
}

func TestSanitizeParam(t *testing.T) {
	assert.True(t, SanitizeParam("report.pdf"))
	assert.False(t, SanitizeParam("a/b"))
	assert.False(t, SanitizeParam(".."))
	assert.False(t, SanitizeParam("Z:"))
}

func TestRoutesListing(t *testing.T) {
	rt := New()
	rt.Add("GET", "/a", noop)
	rt.Add("GET", "/b/:id", noop)
	assert.Len(t, rt.Routes(), 2)
}

func TestRouteUseAppends(t *testing.T) {
	rt := New()
	r := rt.Add("GET", "/x", noop)
	r.Use(func(*ctx.Context) (bool, error) { return true, nil })
	r.Use(func(*ctx.Context) (bool, error) { return true, nil })
	assert.Len(t, r.Middleware(), 2)
}
