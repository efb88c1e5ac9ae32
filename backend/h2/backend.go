// Package h2 is an HTTP/2-only backend on golang.org/x/net/http2. Plain
// http targets are spoken as h2c with prior knowledge; https targets must
// negotiate h2 through ALPN. It has no proxy, 100-continue or WebSocket
// support and rejects those options.
package h2

import (
	"sync"

	"github.com/kbukum/httpkit/client"
	"github.com/kbukum/httpkit/errors"
	"github.com/kbukum/httpkit/logger"
)

// Name is the backend name reported in errors and logs.
const Name = "h2"

var capabilities = client.Capabilities{
	client.OptProxyAddress:       client.Unsupported,
	client.OptProxyAuthorization: client.Unsupported,
	client.OptExpectContinue:     client.Unsupported,
	client.OptWebSocket:          client.Unsupported,
	client.OptPreferHTTP11:       client.Advisory,
}

// Option configures a Backend.
type Option func(*Backend)

// WithLogger sets the engine logger.
func WithLogger(l *logger.Logger) Option {
	return func(b *Backend) { b.log = l }
}

// Backend owns the transports it builds.
type Backend struct {
	log *logger.Logger

	mu         sync.Mutex
	closed     bool
	transports map[*transport]struct{}
}

var _ client.Backend = (*Backend)(nil)

// New creates the engine.
func New(opts ...Option) *Backend {
	b := &Backend{transports: make(map[*transport]struct{})}
	for _, opt := range opts {
		opt(b)
	}
	if b.log == nil {
		b.log = logger.Get("httpkit." + Name)
	}
	return b
}

func (b *Backend) Name() string { return Name }

func (b *Backend) Capabilities() client.Capabilities {
	out := make(client.Capabilities, len(capabilities))
	for k, v := range capabilities {
		out[k] = v
	}
	return out
}

func (b *Backend) Build(state *client.State) (client.Transport, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, errors.ClientClosed().WithDetail(errors.DetailBackend, Name)
	}
	t := newTransport(b, state)
	b.transports[t] = struct{}{}
	if state.PreferHTTP11 {
		b.log.Debug("prefer-http11 ignored, backend speaks HTTP/2 only")
	}
	b.log.Debug("transport built", logger.Fields("live", len(b.transports)))
	return t, nil
}

// Close closes every live transport.
func (b *Backend) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	live := make([]*transport, 0, len(b.transports))
	for t := range b.transports {
		live = append(live, t)
	}
	b.mu.Unlock()

	for _, t := range live {
		_ = t.Close()
	}
	return nil
}

func (b *Backend) forget(t *transport) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.transports, t)
}
