package factory

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/kbukum/httpkit/backend/h2"
	"github.com/kbukum/httpkit/backend/nethttp"
	"github.com/kbukum/httpkit/client"
	"github.com/kbukum/httpkit/errors"
	"github.com/kbukum/httpkit/interceptor"
	"github.com/kbukum/httpkit/logger"
)

// Interceptor names registered by CreateClient, in chain order.
const (
	InterceptorRequestID = "request-id"
	InterceptorHeaders   = "default-headers"
	InterceptorAuth      = "auth"
	InterceptorTracing   = "tracing"
	InterceptorMetrics   = "metrics"
	InterceptorLogging   = "logging"
)

// Option configures a Factory.
type Option func(*Factory)

// WithLogger sets the factory logger. Clients created from configuration
// log through a component logger derived from it.
func WithLogger(l *logger.Logger) Option {
	return func(f *Factory) { f.log = l }
}

// Factory owns one backend engine. Clients built from it borrow the engine;
// Close releases it once.
type Factory struct {
	backend client.Backend
	log     *logger.Logger

	mu      sync.Mutex
	closed  bool
	clients []*client.Client
}

// New takes ownership of backend.
func New(backend client.Backend, opts ...Option) *Factory {
	f := &Factory{backend: backend}
	for _, opt := range opts {
		opt(f)
	}
	if f.log == nil {
		f.log = logger.Get("httpkit.factory")
	}
	return f
}

// FromConfig validates cfg and creates a factory over the backend it names.
func FromConfig(cfg Config, opts ...Option) (*Factory, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	f := New(nil, opts...)
	backend, err := NewBackend(cfg.Backend, f.log)
	if err != nil {
		return nil, err
	}
	f.backend = backend
	return f, nil
}

// NewBackend creates the engine registered under name.
func NewBackend(name string, l *logger.Logger) (client.Backend, error) {
	if l == nil {
		l = logger.Get("httpkit.factory")
	}
	switch name {
	case "", nethttp.Name:
		return nethttp.New(nethttp.WithLogger(l.WithComponent("httpkit." + nethttp.Name))), nil
	case h2.Name:
		return h2.New(h2.WithLogger(l.WithComponent("httpkit." + h2.Name))), nil
	default:
		return nil, errors.Configuration("backend", fmt.Sprintf("unknown backend %q", name))
	}
}

// Backend returns the owned engine.
func (f *Factory) Backend() client.Backend { return f.backend }

// NewBuilder returns an empty builder over the engine.
func (f *Factory) NewBuilder() *client.Builder {
	return client.NewBuilder(f.backend)
}

// CreateClient builds a client from cfg. The factory closes it on Close.
func (f *Factory) CreateClient(cfg Config) (*client.Client, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	f.mu.Lock()
	closed := f.closed
	f.mu.Unlock()
	if closed {
		return nil, errors.ClientClosed()
	}

	b := f.NewBuilder()
	if err := f.Configure(b, cfg); err != nil {
		return nil, err
	}
	c, err := b.Build()
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		_ = c.Close()
		return nil, errors.ClientClosed()
	}
	f.clients = append(f.clients, c)
	f.log.Debug("client created", logger.Fields(
		logger.FieldClientID, c.ID(),
		logger.FieldBackend, f.backend.Name(),
		"name", cfg.Name,
	))
	return c, nil
}

// Configure applies cfg onto b. It returns the builder's recorded errors
// together with any failure to load TLS files or create instruments.
func (f *Factory) Configure(b *client.Builder, cfg Config) error {
	log := f.log.WithComponent("httpkit.client." + cfg.Name)
	b.Logger(log)

	b.ConnectTimeout(cfg.ConnectTimeout).
		ReadTimeout(cfg.ReadTimeout).
		WriteTimeout(cfg.WriteTimeout)
	if cfg.FollowRedirects {
		b.FollowAllRedirects()
	}
	if cfg.PreferHTTP11 {
		b.PreferHTTP11()
	}
	if cfg.ForStreaming {
		b.ForStreaming()
	}
	if cfg.AuthenticatorNone {
		b.AuthenticatorNone()
	}

	if cfg.TLS != nil {
		material, err := cfg.TLS.Material()
		if err != nil {
			return errors.Configuration("tls", err.Error()).WithCause(err)
		}
		if material != nil {
			b.TLSMaterial(material)
		}
		versions, err := cfg.TLS.TLSVersions()
		if err != nil {
			return errors.Configuration("tls.versions", err.Error()).WithCause(err)
		}
		if len(versions) > 0 {
			b.TLSVersions(versions...)
		}
	}

	if p := cfg.Proxy; p != nil && p.Host != "" {
		b.ProxyAddress(p.Host, p.Port)
		if creds := p.Credentials(); creds != "" {
			b.ProxyAuthorization(creds)
		}
	}

	b.Retry(cfg.Retry).
		RateLimit(cfg.RateLimit).
		CircuitBreaker(cfg.CircuitBreaker).
		MaxConcurrent(cfg.MaxConcurrent)

	if cfg.RequestID {
		b.AddOrReplaceInterceptor(InterceptorRequestID, interceptor.RequestID(cfg.RequestIDHeader))
	}
	if h := defaultHeaders(cfg); len(h) > 0 {
		b.AddOrReplaceInterceptor(InterceptorHeaders, interceptor.DefaultHeaders(h))
	}
	if auth := authConfig(cfg.Auth); auth != nil {
		b.AddOrReplaceInterceptor(InterceptorAuth, interceptor.Auth(auth))
	}
	if cfg.Tracing {
		b.AddOrReplaceInterceptor(InterceptorTracing, interceptor.Tracing())
	}
	if cfg.Metrics {
		m, err := interceptor.Metrics(cfg.Name, nil)
		if err != nil {
			return err
		}
		b.AddOrReplaceInterceptor(InterceptorMetrics, m)
	}
	if cfg.Logging {
		b.AddOrReplaceInterceptor(InterceptorLogging, interceptor.Logging(log))
	}
	return b.Err()
}

func defaultHeaders(cfg Config) http.Header {
	h := make(http.Header, len(cfg.Headers)+1)
	if cfg.UserAgent != "" {
		h.Set("User-Agent", cfg.UserAgent)
	}
	for k, v := range cfg.Headers {
		h.Set(k, v)
	}
	return h
}

func authConfig(a *AuthConfig) *interceptor.AuthConfig {
	if a == nil {
		return nil
	}
	switch a.Type {
	case AuthTypeBearer:
		return interceptor.BearerAuth(a.Token)
	case AuthTypeBasic:
		return interceptor.BasicAuth(a.Username, a.Password)
	case AuthTypeAPIKey:
		name := a.Name
		if name == "" {
			name = interceptor.DefaultAPIKeyName
		}
		if a.In == "query" {
			return interceptor.APIKeyAuthQuery(a.Key, name)
		}
		return interceptor.APIKeyAuthHeader(a.Key, name)
	}
	return nil
}

// Close closes every client created from configuration, then the engine.
// It is idempotent.
func (f *Factory) Close() error {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return nil
	}
	f.closed = true
	clients := f.clients
	f.clients = nil
	f.mu.Unlock()

	for _, c := range clients {
		_ = c.Close()
	}
	err := f.backend.Close()
	f.log.Debug("factory closed", logger.Fields(
		logger.FieldBackend, f.backend.Name(),
		"clients", len(clients),
	))
	return err
}

// IsClosed reports whether Close was called.
func (f *Factory) IsClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}
