// Package ctx holds the per-request entities: Request, Response, and the
// Context handed to handlers and middleware. All three are thin facades over
// the exchange object (*fasthttp.RequestCtx) owned by the I/O layer, and all
// three are recyclable through object pools: Reset prepares an instance for
// the next exchange without reallocating.
package ctx

import (
	"errors"
	"strconv"
	"strings"
	"unsafe"

	jsoniter "github.com/json-iterator/go"
	router "github.com/julienschmidt/httprouter"
	"github.com/mitchellh/mapstructure"
	"github.com/valyala/fasthttp"
)

// jsonFast is the hot-path serializer configuration, 2-3x faster than the
// standard library.
var jsonFast = jsoniter.ConfigFastest

// jsonStd matches encoding/json semantics for body decoding, where user
// structs expect standard-library behavior.
var jsonStd = jsoniter.ConfigCompatibleWithStandardLibrary

// ErrNoBody is returned by body decoders when the request carries no body.
var ErrNoBody = errors.New("ctx: request has no body")

// b2s converts a byte slice to a string without copying. The result is only
// valid while the exchange is alive, which matches entity lifetime.
func b2s(b []byte) string {
	return *(*string)(unsafe.Pointer(&b))
}

// maxStackParams is the stack-allocated capture capacity; routes with more
// parameters fall back to a heap slice.
const maxStackParams = 16

// Request is the read side of an exchange: method, path, headers, query and
// path parameters, and the raw body. It is recycled between requests; user
// code must not retain it past the handler return.
type Request struct {
	fctx *fasthttp.RequestCtx

	params     [maxStackParams]router.Param
	paramCount uint8
	paramSlice router.Params // heap fallback for very deep routes

	queryCache map[string][]string // lazy multi-value view
}

// NewRequest returns an empty request ready for Reset.
func NewRequest() *Request { return &Request{} }

// Reset binds the request to a new exchange and clears every cached view.
func (r *Request) Reset(fctx *fasthttp.RequestCtx) {
	r.fctx = fctx
	r.paramCount = 0
	r.paramSlice = nil
	r.queryCache = nil
}

// Exchange returns the underlying exchange object.
func (r *Request) Exchange() *fasthttp.RequestCtx { return r.fctx }

// Method returns the HTTP method, e.g. "GET".
func (r *Request) Method() string { return b2s(r.fctx.Method()) }

// Path returns the request URL path.
func (r *Request) Path() string { return b2s(r.fctx.Path()) }

// RawQuery returns the unparsed query string.
func (r *Request) RawQuery() string { return b2s(r.fctx.URI().QueryString()) }

// Header returns a request header value, or "" when absent.
func (r *Request) Header(name string) string {
	return b2s(r.fctx.Request.Header.Peek(name))
}

// Query returns the first value of a query parameter, or "".
func (r *Request) Query(key string) string {
	return b2s(r.fctx.QueryArgs().Peek(key))
}

// QueryValues returns every value of a query parameter in order. The parsed
// multi-value view is built lazily on first use and cached for the exchange.
func (r *Request) QueryValues(key string) []string {
	if r.queryCache == nil {
		r.queryCache = make(map[string][]string, 4)
		r.fctx.QueryArgs().VisitAll(func(k, v []byte) {
			ks := string(k)
			r.queryCache[ks] = append(r.queryCache[ks], string(v))
		})
	}
	return r.queryCache[key]
}

// QueryInt parses a query parameter as int. The second result is false when
// the parameter is absent or unparsable.
func (r *Request) QueryInt(key string) (int, bool) {
	s := r.Query(key)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseInt(s, 10, 0)
	if err != nil {
		return 0, false
	}
	return int(v), true
}

// QueryInt64 parses a query parameter as int64.
func (r *Request) QueryInt64(key string) (int64, bool) {
	s := r.Query(key)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// QueryFloat64 parses a query parameter as float64.
func (r *Request) QueryFloat64(key string) (float64, bool) {
	s := r.Query(key)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// QueryBool parses a query parameter as bool. Truthy forms are true, 1, yes,
// on; falsy forms are false, 0, no, off; comparison is case-insensitive.
// Anything else reports absent.
func (r *Request) QueryBool(key string) (bool, bool) {
	s := r.Query(key)
	if s == "" {
		return false, false
	}
	switch strings.ToLower(s) {
	case "true", "1", "yes", "on":
		return true, true
	case "false", "0", "no", "off":
		return false, true
	}
	return false, false
}

// Param returns a path parameter by name, or "" when the route captured none
// under that name (including captures rejected by sanitization).
func (r *Request) Param(name string) string {
	if r.paramSlice != nil {
		return r.paramSlice.ByName(name)
	}
	for i := uint8(0); i < r.paramCount; i++ {
		if r.params[i].Key == name {
			return r.params[i].Value
		}
	}
	return ""
}

// SetParams installs the captured path parameters for this exchange,
// replacing any previous set. Small capture sets stay on the stack array.
func (r *Request) SetParams(ps []router.Param) {
	n := len(ps)
	if n <= maxStackParams {
		copy(r.params[:], ps)
		r.paramCount = uint8(n)
		r.paramSlice = nil
		return
	}
	r.paramSlice = ps
	r.paramCount = 0
}

// Body returns the raw request body bytes. The slice aliases exchange-owned
// memory and is only valid for the request lifetime.
func (r *Request) Body() []byte { return r.fctx.PostBody() }

// JSONBody decodes the request body as JSON into v.
func (r *Request) JSONBody(v any) error {
	b := r.Body()
	if len(b) == 0 {
		return ErrNoBody
	}
	if err := jsonStd.Unmarshal(b, v); err != nil {
		return errors.Join(errors.New("ctx: invalid JSON body"), err)
	}
	return nil
}

// Parse decodes the request body into v based on Content-Type: JSON bodies
// are decoded directly; form bodies are collected into a map and bound with
// weakly typed mapstructure decoding so numeric and boolean fields work.
func (r *Request) Parse(v any) error {
	ct := b2s(r.fctx.Request.Header.ContentType())
	if strings.HasPrefix(ct, "application/x-www-form-urlencoded") ||
		strings.HasPrefix(ct, "multipart/form-data") {
		return r.parseForm(v)
	}
	return r.JSONBody(v)
}

func (r *Request) parseForm(v any) error {
	fields := make(map[string]any)
	r.fctx.PostArgs().VisitAll(func(k, val []byte) {
		fields[string(k)] = string(val)
	})
	if form, err := r.fctx.MultipartForm(); err == nil {
		for k, vals := range form.Value {
			if len(vals) > 0 {
				fields[k] = vals[0]
			}
		}
	}
	if len(fields) == 0 {
		return ErrNoBody
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           v,
		TagName:          "json",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return err
	}
	return dec.Decode(fields)
}
