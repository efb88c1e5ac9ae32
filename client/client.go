package client

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/kbukum/httpkit/errors"
	"github.com/kbukum/httpkit/logger"
	"github.com/kbukum/httpkit/resilience"
)

// Client is an immutable, concurrency-safe handle bound to one transport.
type Client struct {
	id        string
	backend   Backend
	state     *State
	transport *sharedTransport
	log       *logger.Logger

	limiter  *resilience.RateLimiter
	bulkhead *resilience.Bulkhead
	breaker  *resilience.CircuitBreaker

	ctx    context.Context
	cancel context.CancelCauseFunc

	mu      sync.Mutex
	closed  bool
	nextID  uint64
	pending map[uint64]func(error)
}

func newClient(backend Backend, state *State, t *sharedTransport, log *logger.Logger) *Client {
	id := uuid.NewString()
	ctx, cancel := context.WithCancelCause(context.Background())
	c := &Client{
		id:        id,
		backend:   backend,
		state:     state,
		transport: t,
		log:       log.WithFields(logger.Fields(logger.FieldClientID, id)),
		ctx:       ctx,
		cancel:    cancel,
		pending:   make(map[uint64]func(error)),
	}
	if state.RateLimit != nil {
		c.limiter = resilience.NewRateLimiter(*state.RateLimit)
	}
	if state.MaxConcurrent > 0 {
		c.bulkhead = resilience.NewBulkhead(resilience.BulkheadConfig{Name: id, MaxConcurrent: state.MaxConcurrent})
	}
	if state.CircuitBreaker != nil {
		c.breaker = resilience.NewCircuitBreaker(*state.CircuitBreaker)
	}
	c.log.Debug("client built", logger.Fields(
		logger.FieldBackend, backend.Name(),
		"interceptors", state.Interceptors.Names(),
	))
	return c
}

// ID returns a unique client identifier used in logs.
func (c *Client) ID() string { return c.id }

// Backend returns the backend the client was built with.
func (c *Client) Backend() Backend { return c.backend }

// State returns a copy of the frozen configuration.
func (c *Client) State() *State { return c.state.Clone() }

// NewBuilder derives a Builder starting from a copy of this client's State.
func (c *Client) NewBuilder() *Builder {
	c.log.Debug("deriving builder")
	return &Builder{backend: c.backend, state: c.state.Clone(), parent: c}
}

// NewRequestBuilder returns an empty request builder.
func (c *Client) NewRequestBuilder() *RequestBuilder { return NewRequestBuilder() }

// NewWebSocketBuilder returns a WebSocket builder bound to this client.
func (c *Client) NewWebSocketBuilder() *WebSocketBuilder {
	return &WebSocketBuilder{client: c, header: make(map[string][]string)}
}

// Close fails in-flight sends with CLIENT_CLOSED, aborts open WebSockets
// and releases the transport. Further calls are no-ops.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	pending := c.pending
	c.pending = nil
	c.mu.Unlock()

	closedErr := errors.ClientClosed()
	for _, fail := range pending {
		fail(closedErr)
	}
	c.cancel(closedErr)

	err := c.transport.release()
	c.log.Debug("client closed", logger.Fields("aborted", len(pending)))
	return err
}

// IsClosed reports whether Close was called.
func (c *Client) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// track registers fail to be called on Close. It reports false once the
// client is closed.
func (c *Client) track(fail func(error)) (uint64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return 0, false
	}
	c.nextID++
	c.pending[c.nextID] = fail
	return c.nextID, true
}

func (c *Client) untrack(id uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.pending, id)
}

// sharedTransport reference-counts a transport shared by derived clients.
type sharedTransport struct {
	t    Transport
	mu   sync.Mutex
	refs int
}

func newSharedTransport(t Transport) *sharedTransport {
	return &sharedTransport{t: t, refs: 1}
}

// acquire adds a reference, or returns nil when the transport is closed.
func (s *sharedTransport) acquire() *sharedTransport {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.refs == 0 {
		return nil
	}
	s.refs++
	return s
}

func (s *sharedTransport) release() error {
	s.mu.Lock()
	s.refs--
	last := s.refs == 0
	s.mu.Unlock()
	if last {
		return s.t.Close()
	}
	return nil
}
