package nethttp

import (
	"sync"

	"github.com/kbukum/httpkit/client"
	"github.com/kbukum/httpkit/errors"
	"github.com/kbukum/httpkit/logger"
)

// Name is the backend name reported in errors and logs.
const Name = "nethttp"

// Option configures a Backend.
type Option func(*Backend)

// WithLogger sets the engine logger.
func WithLogger(l *logger.Logger) Option {
	return func(b *Backend) { b.log = l }
}

// Backend owns every transport it builds. Closing it closes them all.
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

// Capabilities reports full support.
func (b *Backend) Capabilities() client.Capabilities {
	return client.Capabilities{}
}

// Build creates a transport for state.
func (b *Backend) Build(state *client.State) (client.Transport, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, errors.ClientClosed().WithDetail(errors.DetailBackend, Name)
	}
	t, err := newTransport(b, state)
	if err != nil {
		return nil, err
	}
	b.transports[t] = struct{}{}
	b.log.Debug("transport built", logger.Fields(
		"http2", !state.PreferHTTP11,
		"proxy", state.ProxyAddress != "",
		"live", len(b.transports),
	))
	return t, nil
}

// Close closes every live transport. Further calls are no-ops.
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
	b.log.Debug("engine closed", logger.Fields("transports", len(live)))
	return nil
}

func (b *Backend) forget(t *transport) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.transports, t)
}
