package clienttest

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/kbukum/httpkit/client"
	"github.com/kbukum/httpkit/errors"
)

// Handler answers a request.
type Handler func(ctx context.Context, req *client.Request) (*client.RawResponse, error)

// WebSocketHandler answers a WebSocket handshake with a scripted peer.
type WebSocketHandler func(req *client.WebSocketRequest) (*Conn, error)

// RecordedRequest is a request as the transport received it.
type RecordedRequest struct {
	Method string
	URL    *url.URL
	Header http.Header
	Body   []byte
}

// Option configures a Backend.
type Option func(*Backend)

// WithName sets the backend name. Defaults to "mock".
func WithName(name string) Option {
	return func(b *Backend) { b.name = name }
}

// WithCapabilities sets the capability table.
func WithCapabilities(caps client.Capabilities) Option {
	return func(b *Backend) { b.caps = caps }
}

// WithHandler sets the request handler. Defaults to Respond(200, "").
func WithHandler(h Handler) Option {
	return func(b *Backend) { b.handler = h }
}

// WithWebSocket sets the WebSocket handshake handler.
func WithWebSocket(h WebSocketHandler) Option {
	return func(b *Backend) { b.wsHandler = h }
}

// Backend is an in-memory client.Backend.
type Backend struct {
	name string
	caps client.Capabilities

	mu         sync.Mutex
	handler    Handler
	wsHandler  WebSocketHandler
	requests   []RecordedRequest
	wsRequests []*client.WebSocketRequest
	states     []*client.State
	closed     bool

	transportsClosed atomic.Int32
	roundTrips       atomic.Int32
}

// NewBackend creates a mock backend.
func NewBackend(opts ...Option) *Backend {
	b := &Backend{name: "mock", caps: client.Capabilities{}, handler: Respond(http.StatusOK, "")}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Backend) Name() string                      { return b.name }
func (b *Backend) Capabilities() client.Capabilities { return b.caps }

// Build records state and returns a new transport.
func (b *Backend) Build(state *client.State) (client.Transport, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, errors.ClientClosed()
	}
	b.states = append(b.states, state)
	return &transport{backend: b}, nil
}

// Close marks the engine released.
func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}

// SetHandler swaps the request handler.
func (b *Backend) SetHandler(h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handler = h
}

// Closed reports whether Close was called.
func (b *Backend) Closed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

// Builds returns the number of transports built.
func (b *Backend) Builds() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.states)
}

// States returns the states transports were built from.
func (b *Backend) States() []*client.State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]*client.State(nil), b.states...)
}

// TransportsClosed returns the number of transports closed.
func (b *Backend) TransportsClosed() int { return int(b.transportsClosed.Load()) }

// RoundTrips returns the number of requests that reached a transport.
func (b *Backend) RoundTrips() int { return int(b.roundTrips.Load()) }

// Requests returns the recorded requests.
func (b *Backend) Requests() []RecordedRequest {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]RecordedRequest(nil), b.requests...)
}

// LastRequest returns the most recent request, or nil.
func (b *Backend) LastRequest() *RecordedRequest {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.requests) == 0 {
		return nil
	}
	r := b.requests[len(b.requests)-1]
	return &r
}

// WebSocketRequests returns the recorded handshakes.
func (b *Backend) WebSocketRequests() []*client.WebSocketRequest {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]*client.WebSocketRequest(nil), b.wsRequests...)
}

type transport struct {
	backend *Backend
	closed  atomic.Bool
}

func (t *transport) RoundTrip(ctx context.Context, req *client.Request) (*client.RawResponse, error) {
	if t.closed.Load() {
		return nil, errors.ClientClosed()
	}
	t.backend.roundTrips.Add(1)

	rec := RecordedRequest{Method: req.Method(), URL: req.URL(), Header: req.Header()}
	if body := req.Body(); body != nil {
		data, err := io.ReadAll(body)
		if err != nil {
			return nil, errors.Transport(errors.ReasonIO, err)
		}
		rec.Body = data
	}

	t.backend.mu.Lock()
	t.backend.requests = append(t.backend.requests, rec)
	h := t.backend.handler
	t.backend.mu.Unlock()

	return h(ctx, req)
}

func (t *transport) DialWebSocket(ctx context.Context, req *client.WebSocketRequest) (client.WebSocketConn, error) {
	if t.closed.Load() {
		return nil, errors.ClientClosed()
	}
	t.backend.mu.Lock()
	t.backend.wsRequests = append(t.backend.wsRequests, req)
	h := t.backend.wsHandler
	t.backend.mu.Unlock()

	if h == nil {
		return nil, errors.Transport(errors.ReasonRefused, nil)
	}
	if err := ctx.Err(); err != nil {
		return nil, errors.Cancelled(err)
	}
	conn, err := h(req)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

func (t *transport) Close() error {
	if t.closed.CompareAndSwap(false, true) {
		t.backend.transportsClosed.Add(1)
	}
	return nil
}

// Respond answers every request with status and body. headerKVs are
// alternating header names and values.
func Respond(status int, body string, headerKVs ...string) Handler {
	return func(context.Context, *client.Request) (*client.RawResponse, error) {
		h := make(http.Header)
		for i := 0; i+1 < len(headerKVs); i += 2 {
			h.Add(headerKVs[i], headerKVs[i+1])
		}
		return &client.RawResponse{
			StatusCode: status,
			Header:     h,
			Body:       io.NopCloser(strings.NewReader(body)),
		}, nil
	}
}

// RespondBytes answers every request with status and a binary body.
func RespondBytes(status int, body []byte) Handler {
	return func(context.Context, *client.Request) (*client.RawResponse, error) {
		return &client.RawResponse{
			StatusCode: status,
			Header:     make(http.Header),
			Body:       io.NopCloser(bytes.NewReader(body)),
		}, nil
	}
}

// Fail answers every request with err.
func Fail(err error) Handler {
	return func(context.Context, *client.Request) (*client.RawResponse, error) {
		return nil, err
	}
}

// Sequence answers the n-th request with the n-th handler and repeats the
// last one afterwards.
func Sequence(handlers ...Handler) Handler {
	var n atomic.Int32
	return func(ctx context.Context, req *client.Request) (*client.RawResponse, error) {
		i := int(n.Add(1)) - 1
		if i >= len(handlers) {
			i = len(handlers) - 1
		}
		return handlers[i](ctx, req)
	}
}

// Block signals started, then waits until the exchange is cancelled.
func Block(started chan<- struct{}) Handler {
	return func(ctx context.Context, _ *client.Request) (*client.RawResponse, error) {
		if started != nil {
			started <- struct{}{}
		}
		<-ctx.Done()
		return nil, errors.Cancelled(ctx.Err())
	}
}

// Gate signals started, waits for release, then answers with next. The
// exchange context is ignored, which models a transport that does not
// honor cancellation.
func Gate(started chan<- struct{}, release <-chan struct{}, next Handler) Handler {
	return func(ctx context.Context, req *client.Request) (*client.RawResponse, error) {
		if started != nil {
			started <- struct{}{}
		}
		<-release
		return next(ctx, req)
	}
}
