package client

import (
	"crypto/tls"
	"crypto/x509"
	stderrors "errors"
	"net"
	"strconv"
	"time"

	"github.com/kbukum/httpkit/errors"
	"github.com/kbukum/httpkit/logger"
	"github.com/kbukum/httpkit/resilience"
	"github.com/kbukum/httpkit/security"
)

// Builder accumulates a State for one Backend. Setters return the same
// Builder. A setter the backend cannot honor records UNSUPPORTED_OPTION and
// leaves the State untouched; Err reports recorded errors and Build returns
// them.
type Builder struct {
	backend Backend
	state   *State
	parent  *Client
	errs    []error
}

// NewBuilder starts an empty configuration for backend.
func NewBuilder(backend Backend) *Builder {
	return &Builder{backend: backend, state: NewState()}
}

// ConnectTimeout sets the connect timeout. Zero clears it.
func (b *Builder) ConnectTimeout(d time.Duration) *Builder {
	return b.timeout(OptConnectTimeout, d, &b.state.ConnectTimeout)
}

// ReadTimeout sets the per-read timeout. Zero clears it.
func (b *Builder) ReadTimeout(d time.Duration) *Builder {
	return b.timeout(OptReadTimeout, d, &b.state.ReadTimeout)
}

// WriteTimeout sets the per-write timeout. Zero clears it.
func (b *Builder) WriteTimeout(d time.Duration) *Builder {
	return b.timeout(OptWriteTimeout, d, &b.state.WriteTimeout)
}

func (b *Builder) timeout(opt Option, d time.Duration, field *time.Duration) *Builder {
	if d < 0 {
		b.record(errors.Configuration(string(opt), "negative duration "+d.String()))
		return b
	}
	if d == 0 {
		*field = 0
		return b
	}
	if b.check(opt) {
		*field = d
	}
	return b
}

// ForStreaming declares the client will carry long-lived streamed bodies.
func (b *Builder) ForStreaming() *Builder {
	if b.check(OptForStreaming) {
		b.state.ForStreaming = true
	}
	return b
}

// AddOrReplaceInterceptor registers ic under name; nil removes name.
func (b *Builder) AddOrReplaceInterceptor(name string, ic Interceptor) *Builder {
	if b.check(OptInterceptors) {
		b.state.Interceptors.AddOrReplace(name, ic)
	}
	return b
}

// AuthenticatorNone disables credential negotiation by the transport.
func (b *Builder) AuthenticatorNone() *Builder {
	if b.check(OptAuthenticatorNone) {
		b.state.AuthenticatorNone = true
	}
	return b
}

// SSLContext builds TLS material from client key pairs and trust anchors.
// Malformed material records CONFIGURATION_ERROR.
func (b *Builder) SSLContext(keys []tls.Certificate, trust []*x509.Certificate) *Builder {
	if !b.check(OptSSLContext) {
		return b
	}
	m, err := security.NewTLSMaterial(keys, trust)
	if err != nil {
		b.record(errors.Configuration(string(OptSSLContext), err.Error()).WithCause(err))
		return b
	}
	b.state.TLS = m
	return b
}

// TLSMaterial stores prebuilt TLS material.
func (b *Builder) TLSMaterial(m *security.TLSMaterial) *Builder {
	if b.check(OptSSLContext) {
		b.state.TLS = m
	}
	return b
}

// FollowAllRedirects makes the transport follow redirects.
func (b *Builder) FollowAllRedirects() *Builder {
	if b.check(OptFollowRedirects) {
		b.state.FollowRedirects = true
	}
	return b
}

// PreferHTTP11 disables HTTP/2 negotiation where the backend can.
func (b *Builder) PreferHTTP11() *Builder {
	if b.check(OptPreferHTTP11) {
		b.state.PreferHTTP11 = true
	}
	return b
}

// TLSVersions restricts the negotiated protocol versions. Duplicates are
// dropped; an empty list restores the backend default. A set with a gap,
// such as TLS10 and TLS13 alone, is a configuration error.
func (b *Builder) TLSVersions(versions ...security.TLSVersion) *Builder {
	var out []security.TLSVersion
	seen := make(map[security.TLSVersion]bool, len(versions))
	for _, v := range versions {
		if !v.Valid() {
			b.record(errors.Configuration(string(OptTLSVersions), "unknown version "+string(v)))
			return b
		}
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	if len(out) == 0 {
		b.state.TLSVersions = nil
		return b
	}
	if !security.Contiguous(out) {
		b.record(errors.Configuration(string(OptTLSVersions), "versions must form a contiguous range"))
		return b
	}
	if b.check(OptTLSVersions) {
		b.state.TLSVersions = out
	}
	return b
}

// ProxyAddress routes traffic through host:port.
func (b *Builder) ProxyAddress(host string, port int) *Builder {
	if host == "" || port <= 0 || port > 65535 {
		b.record(errors.Configuration(string(OptProxyAddress), "invalid host or port"))
		return b
	}
	if b.check(OptProxyAddress) {
		b.state.ProxyAddress = net.JoinHostPort(host, strconv.Itoa(port))
	}
	return b
}

// ProxyAuthorization sets the Proxy-Authorization credentials.
func (b *Builder) ProxyAuthorization(credentials string) *Builder {
	if b.check(OptProxyAuthorization) {
		b.state.ProxyAuthorization = credentials
	}
	return b
}

// Retry enables retries of replayable requests. nil disables them.
func (b *Builder) Retry(cfg *resilience.RetryConfig) *Builder {
	b.state.Retry = clonePtr(cfg)
	return b
}

// RateLimit throttles sends. nil disables it.
func (b *Builder) RateLimit(cfg *resilience.RateLimiterConfig) *Builder {
	b.state.RateLimit = clonePtr(cfg)
	return b
}

// CircuitBreaker fails sends fast after repeated transport failures.
// nil disables it.
func (b *Builder) CircuitBreaker(cfg *resilience.CircuitBreakerConfig) *Builder {
	b.state.CircuitBreaker = clonePtr(cfg)
	return b
}

// MaxConcurrent caps in-flight exchanges. Zero removes the cap.
func (b *Builder) MaxConcurrent(n int) *Builder {
	if n < 0 {
		b.record(errors.Configuration("max-concurrent", "negative limit"))
		return b
	}
	b.state.MaxConcurrent = n
	return b
}

// Logger sets the client logger.
func (b *Builder) Logger(l *logger.Logger) *Builder {
	b.state.Logger = l
	return b
}

// Backend returns the backend the builder targets.
func (b *Builder) Backend() Backend { return b.backend }

// State returns a copy of the accumulated state.
func (b *Builder) State() *State { return b.state.Clone() }

// Err returns the errors recorded so far, joined, or nil.
func (b *Builder) Err() error { return stderrors.Join(b.errs...) }

// Build freezes a copy of the State into a new Client. A derived builder
// shares its parent's transport when the transport-level configuration is
// unchanged and asks the backend for a new one otherwise.
func (b *Builder) Build() (*Client, error) {
	if err := b.Err(); err != nil {
		return nil, err
	}
	state := b.state.Clone()
	log := clientLogger(state)

	var shared *sharedTransport
	if b.parent != nil && state.SharesTransportWith(b.parent.state) {
		shared = b.parent.transport.acquire()
	}
	if shared == nil {
		t, err := b.backend.Build(state)
		if err != nil {
			return nil, err
		}
		shared = newSharedTransport(t)
		log.Debug("transport built", logger.Fields(logger.FieldBackend, b.backend.Name()))
	} else {
		log.Debug("transport shared with parent client", logger.Fields(logger.FieldBackend, b.backend.Name()))
	}
	return newClient(b.backend, state, shared, log), nil
}

func (b *Builder) check(opt Option) bool {
	switch b.backend.Capabilities().Of(opt) {
	case Unsupported:
		b.record(errors.UnsupportedOption(b.backend.Name(), string(opt)))
		return false
	case Advisory:
		clientLogger(b.state).Debug("advisory option accepted",
			logger.Fields(logger.FieldBackend, b.backend.Name(), "option", string(opt)))
	}
	return true
}

func (b *Builder) record(err error) {
	b.errs = append(b.errs, err)
}

func clientLogger(s *State) *logger.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return logger.Get("httpkit.client")
}
