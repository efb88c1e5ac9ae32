package client

import (
	"slices"
	"time"

	"github.com/kbukum/httpkit/logger"
	"github.com/kbukum/httpkit/resilience"
	"github.com/kbukum/httpkit/security"
)

// State is the configuration a Builder accumulates and a Client freezes.
// Zero durations mean no timeout.
type State struct {
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration

	// TLS is immutable and shared by reference between derived states.
	TLS         *security.TLSMaterial
	TLSVersions []security.TLSVersion

	// ProxyAddress is host:port.
	ProxyAddress       string
	ProxyAuthorization string

	FollowRedirects   bool
	PreferHTTP11      bool
	ForStreaming      bool
	AuthenticatorNone bool

	Interceptors *Chain

	Retry          *resilience.RetryConfig
	RateLimit      *resilience.RateLimiterConfig
	CircuitBreaker *resilience.CircuitBreakerConfig
	MaxConcurrent  int

	Logger *logger.Logger
}

// NewState returns an empty State.
func NewState() *State {
	return &State{Interceptors: NewChain()}
}

// Clone returns a copy whose later mutation never reaches s. The
// interceptor chain, TLS version list and resilience configs are copied;
// the TLS handle and logger are shared.
func (s *State) Clone() *State {
	out := *s
	out.Interceptors = s.Interceptors.Clone()
	out.TLSVersions = slices.Clone(s.TLSVersions)
	out.Retry = clonePtr(s.Retry)
	out.RateLimit = clonePtr(s.RateLimit)
	out.CircuitBreaker = clonePtr(s.CircuitBreaker)
	return &out
}

// SharesTransportWith reports whether a transport built for s can serve
// other: every transport-level field matches and both use the same TLS
// handle. Interceptors, resilience and logging are ignored.
func (s *State) SharesTransportWith(other *State) bool {
	return s.ConnectTimeout == other.ConnectTimeout &&
		s.ReadTimeout == other.ReadTimeout &&
		s.WriteTimeout == other.WriteTimeout &&
		s.TLS == other.TLS &&
		slices.Equal(s.TLSVersions, other.TLSVersions) &&
		s.ProxyAddress == other.ProxyAddress &&
		s.ProxyAuthorization == other.ProxyAuthorization &&
		s.FollowRedirects == other.FollowRedirects &&
		s.PreferHTTP11 == other.PreferHTTP11 &&
		s.ForStreaming == other.ForStreaming &&
		s.AuthenticatorNone == other.AuthenticatorNone
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
