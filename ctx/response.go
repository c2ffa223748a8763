package ctx

import (
	"log/slog"
	"strings"

	"github.com/valyala/fasthttp"
)

const (
	contentTypeJSON = "application/json; charset=utf-8"
	contentTypeText = "text/plain; charset=utf-8"
)

// Response is the write side of an exchange. Status and headers stage until
// the first body-emitting call; after that the response is sent and further
// mutation is ignored with a warning.
type Response struct {
	fctx   *fasthttp.RequestCtx
	status int
	sent   bool
	logger *slog.Logger
}

// NewResponse returns an empty response ready for Reset.
func NewResponse() *Response { return &Response{} }

// Reset binds the response to a new exchange with a clean slate.
func (r *Response) Reset(fctx *fasthttp.RequestCtx, logger *slog.Logger) {
	r.fctx = fctx
	r.status = fasthttp.StatusOK
	r.sent = false
	r.logger = logger
}

// Sent reports whether a body has been emitted.
func (r *Response) Sent() bool { return r.sent }

// StatusCode returns the staged (or emitted) status code.
func (r *Response) StatusCode() int { return r.status }

func (r *Response) warnSent(op string) {
	if r.logger != nil {
		r.logger.Warn("response already sent, call ignored", "op", op)
	}
}

// Status stages the response status code. Chainable.
func (r *Response) Status(code int) *Response {
	if r.sent {
		r.warnSent("status")
		return r
	}
	r.status = code
	return r
}

// Header stages a response header.
func (r *Response) Header(key, value string) *Response {
	if r.sent {
		r.warnSent("header")
		return r
	}
	r.fctx.Response.Header.Set(key, value)
	return r
}

// Type stages the Content-Type header.
func (r *Response) Type(contentType string) *Response {
	if r.sent {
		r.warnSent("type")
		return r
	}
	r.fctx.Response.Header.SetContentType(contentType)
	return r
}

// Send emits a text body. Content-Type defaults to text/plain when not
// already staged.
func (r *Response) Send(body string) error {
	if r.sent {
		r.warnSent("send")
		return nil
	}
	if len(r.fctx.Response.Header.Peek(fasthttp.HeaderContentType)) == 0 {
		r.fctx.Response.Header.SetContentType(contentTypeText)
	}
	r.fctx.SetStatusCode(r.status)
	r.fctx.SetBodyString(body)
	r.sent = true
	return nil
}

// SendBytes emits a raw byte body with the staged Content-Type.
func (r *Response) SendBytes(body []byte) error {
	if r.sent {
		r.warnSent("send")
		return nil
	}
	r.fctx.SetStatusCode(r.status)
	r.fctx.SetBody(body)
	r.sent = true
	return nil
}

// JSON emits a JSON body. A string argument is treated as pre-rendered JSON
// text: it is emitted verbatim after canonical normalization (": " becomes
// ":", applied once). Any other value is serialized with the fast
// configuration.
func (r *Response) JSON(v any) error {
	if r.sent {
		r.warnSent("json")
		return nil
	}
	var b []byte
	if s, ok := v.(string); ok {
		b = []byte(strings.ReplaceAll(s, ": ", ":"))
	} else {
		var err error
		b, err = jsonFast.Marshal(v)
		if err != nil {
			r.fctx.SetStatusCode(fasthttp.StatusInternalServerError)
			r.sent = true
			return err
		}
	}
	r.fctx.SetStatusCode(r.status)
	r.fctx.SetContentType(contentTypeJSON)
	r.fctx.SetBody(b)
	r.sent = true
	return nil
}

// NoContent emits 204 with an empty body and ends the exchange.
func (r *Response) NoContent() error {
	if r.sent {
		r.warnSent("no_content")
		return nil
	}
	r.status = fasthttp.StatusNoContent
	r.fctx.SetStatusCode(r.status)
	r.fctx.Response.ResetBody()
	r.sent = true
	return nil
}

// Redirect emits a 302 (or 301 when permanent) with the Location header.
func (r *Response) Redirect(url string, permanent bool) error {
	if r.sent {
		r.warnSent("redirect")
		return nil
	}
	code := fasthttp.StatusFound
	if permanent {
		code = fasthttp.StatusMovedPermanently
	}
	r.status = code
	r.fctx.Response.Header.Set(fasthttp.HeaderLocation, url)
	r.fctx.SetStatusCode(code)
	r.sent = true
	return nil
}

// errorBody is the canonical error payload shape.
type errorBody struct {
	Error   bool   `json:"error"`
	Status  int    `json:"status"`
	Message string `json:"message"`
}

// Error emits the canonical error body
// {"error":true,"status":<code>,"message":"<msg>"}.
func (r *Response) Error(code int, message string) error {
	if r.sent {
		r.warnSent("error")
		return nil
	}
	r.status = code
	return r.JSON(errorBody{Error: true, Status: code, Message: message})
}
