package client

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strings"

	"github.com/kbukum/httpkit/errors"
)

// BodyKind tells how a request carries its payload.
type BodyKind int

const (
	BodyNone BodyKind = iota
	BodyBytes
	BodyStream
)

type body struct {
	kind   BodyKind
	data   []byte
	stream io.Reader
	length int64
}

// Request is an immutable outbound request.
type Request struct {
	method         string
	url            *url.URL
	header         http.Header
	body           body
	expectContinue bool
}

// Method returns the HTTP method.
func (r *Request) Method() string { return r.method }

// URL returns a copy of the target URL.
func (r *Request) URL() *url.URL {
	u := *r.url
	if r.url.User != nil {
		user := *r.url.User
		u.User = &user
	}
	return &u
}

// Header returns a copy of the request headers.
func (r *Request) Header() http.Header { return r.header.Clone() }

// BodyKind reports how the payload is carried.
func (r *Request) BodyKind() BodyKind { return r.body.kind }

// ContentLength returns the declared body length, 0 without a body.
func (r *Request) ContentLength() int64 {
	switch r.body.kind {
	case BodyBytes:
		return int64(len(r.body.data))
	case BodyStream:
		return r.body.length
	}
	return 0
}

// Body returns a reader over the payload, or nil without a body. Fixed
// payloads yield a fresh reader on every call; a streamed source is handed
// out as is and can be consumed once.
func (r *Request) Body() io.Reader {
	switch r.body.kind {
	case BodyBytes:
		return bytes.NewReader(r.body.data)
	case BodyStream:
		return r.body.stream
	}
	return nil
}

// Replayable reports whether the body can be sent more than once.
func (r *Request) Replayable() bool { return r.body.kind != BodyStream }

// ExpectContinue reports whether the request asks for 100-continue.
func (r *Request) ExpectContinue() bool { return r.expectContinue }

// ToBuilder returns a builder seeded with a copy of r.
func (r *Request) ToBuilder() *RequestBuilder {
	return &RequestBuilder{
		method:         r.method,
		url:            r.URL(),
		header:         r.header.Clone(),
		body:           r.body,
		expectContinue: r.expectContinue,
	}
}

func (r *Request) String() string {
	return r.method + " " + redacted(r.url)
}

// RequestBuilder accumulates a Request. Setters record the first invalid
// input and Build reports it.
type RequestBuilder struct {
	method         string
	url            *url.URL
	header         http.Header
	body           body
	expectContinue bool
	err            error
}

// NewRequestBuilder returns an empty GET builder.
func NewRequestBuilder() *RequestBuilder {
	return &RequestBuilder{method: http.MethodGet, header: make(http.Header)}
}

// URI parses and sets the target.
func (b *RequestBuilder) URI(uri string) *RequestBuilder {
	u, err := url.Parse(uri)
	if err != nil {
		b.fail(errors.InvalidInput("uri", err.Error()).WithCause(err))
		return b
	}
	b.url = u
	return b
}

// URL sets the target. The URL is copied.
func (b *RequestBuilder) URL(u *url.URL) *RequestBuilder {
	if u == nil {
		b.fail(errors.InvalidInput("uri", "nil URL"))
		return b
	}
	c := *u
	b.url = &c
	return b
}

// TargetURL returns the current target, or nil.
func (b *RequestBuilder) TargetURL() *url.URL { return b.url }

// Method sets the method and a fixed body. body is nil, a string or a
// []byte; contentType is set as Content-Type when non-empty.
func (b *RequestBuilder) Method(name, contentType string, payload any) *RequestBuilder {
	b.method = strings.ToUpper(name)
	switch v := payload.(type) {
	case nil:
		b.body = body{}
	case string:
		b.body = body{kind: BodyBytes, data: []byte(v)}
	case []byte:
		b.body = body{kind: BodyBytes, data: slices.Clone(v)}
	default:
		b.fail(errors.InvalidInput("body", fmt.Sprintf("unsupported body type %T", payload)))
		return b
	}
	if contentType != "" {
		b.header.Set("Content-Type", contentType)
	}
	return b
}

// Stream sets the method and a streamed body of the given length.
// A negative length means unknown.
func (b *RequestBuilder) Stream(name, contentType string, r io.Reader, length int64) *RequestBuilder {
	if r == nil {
		b.fail(errors.InvalidInput("body", "nil stream"))
		return b
	}
	b.method = strings.ToUpper(name)
	b.body = body{kind: BodyStream, stream: r, length: length}
	if contentType != "" {
		b.header.Set("Content-Type", contentType)
	}
	return b
}

func (b *RequestBuilder) Get() *RequestBuilder    { return b.Method(http.MethodGet, "", nil) }
func (b *RequestBuilder) Delete() *RequestBuilder { return b.Method(http.MethodDelete, "", nil) }

func (b *RequestBuilder) Post(contentType string, payload any) *RequestBuilder {
	return b.Method(http.MethodPost, contentType, payload)
}

func (b *RequestBuilder) Put(contentType string, payload any) *RequestBuilder {
	return b.Method(http.MethodPut, contentType, payload)
}

func (b *RequestBuilder) Patch(contentType string, payload any) *RequestBuilder {
	return b.Method(http.MethodPatch, contentType, payload)
}

// Header appends a value to name.
func (b *RequestBuilder) Header(name, value string) *RequestBuilder {
	b.header.Add(name, value)
	return b
}

// SetHeader replaces every value of name.
func (b *RequestBuilder) SetHeader(name, value string) *RequestBuilder {
	b.header.Set(name, value)
	return b
}

// DelHeader removes name.
func (b *RequestBuilder) DelHeader(name string) *RequestBuilder {
	b.header.Del(name)
	return b
}

// HeaderValues returns the current values of name.
func (b *RequestBuilder) HeaderValues(name string) []string {
	return slices.Clone(b.header.Values(name))
}

// ExpectContinue asks the server for 100-continue before the body.
func (b *RequestBuilder) ExpectContinue() *RequestBuilder {
	b.expectContinue = true
	return b
}

// Build validates and returns the Request. The builder may be reused.
func (b *RequestBuilder) Build() (*Request, error) {
	if b.err != nil {
		return nil, b.err
	}
	if b.url == nil {
		return nil, errors.InvalidInput("uri", "missing target")
	}
	switch b.url.Scheme {
	case "http", "https", "ws", "wss":
	default:
		return nil, errors.InvalidInput("uri", fmt.Sprintf("unsupported scheme %q", b.url.Scheme))
	}
	if b.url.Host == "" {
		return nil, errors.InvalidInput("uri", "missing host")
	}
	if b.method == "" || strings.ContainsAny(b.method, " \t\r\n") {
		return nil, errors.InvalidInput("method", fmt.Sprintf("invalid method %q", b.method))
	}
	u := *b.url
	return &Request{
		method:         b.method,
		url:            &u,
		header:         b.header.Clone(),
		body:           b.body,
		expectContinue: b.expectContinue,
	}, nil
}

func (b *RequestBuilder) fail(err error) {
	if b.err == nil {
		b.err = err
	}
}

func redacted(u *url.URL) string {
	if u == nil {
		return ""
	}
	return u.Redacted()
}
