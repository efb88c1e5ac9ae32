package factory

import (
	"encoding/base64"
	"time"

	"github.com/kbukum/httpkit/backend/nethttp"
	"github.com/kbukum/httpkit/resilience"
	"github.com/kbukum/httpkit/security"
	"github.com/kbukum/httpkit/validation"
	"github.com/kbukum/httpkit/version"
)

const (
	defaultBackend = nethttp.Name
	defaultName    = "httpkit"
)

// Config is the external configuration of a client.
type Config struct {
	// Name tags logs, metrics and circuit breakers. Defaults to "httpkit".
	Name string `yaml:"name" mapstructure:"name"`
	// Backend selects the engine for FromConfig: "nethttp" (default) or "h2".
	Backend string `yaml:"backend" mapstructure:"backend" validate:"omitempty,oneof=nethttp h2"`

	ConnectTimeout time.Duration `yaml:"connect_timeout" mapstructure:"connect_timeout" validate:"gte=0"`
	ReadTimeout    time.Duration `yaml:"read_timeout" mapstructure:"read_timeout" validate:"gte=0"`
	WriteTimeout   time.Duration `yaml:"write_timeout" mapstructure:"write_timeout" validate:"gte=0"`

	FollowRedirects   bool `yaml:"follow_redirects" mapstructure:"follow_redirects"`
	PreferHTTP11      bool `yaml:"prefer_http11" mapstructure:"prefer_http11"`
	ForStreaming      bool `yaml:"for_streaming" mapstructure:"for_streaming"`
	AuthenticatorNone bool `yaml:"authenticator_none" mapstructure:"authenticator_none"`

	TLS   *security.TLSConfig `yaml:"tls" mapstructure:"tls"`
	Proxy *ProxyConfig        `yaml:"proxy" mapstructure:"proxy"`

	// Headers are added to requests that do not set them.
	Headers map[string]string `yaml:"headers" mapstructure:"headers"`
	// UserAgent is the default User-Agent. Defaults to "httpkit/<version>";
	// a User-Agent entry in Headers wins.
	UserAgent string      `yaml:"user_agent" mapstructure:"user_agent"`
	Auth      *AuthConfig `yaml:"auth" mapstructure:"auth"`

	// RequestID adds an X-Request-ID header (or RequestIDHeader) to
	// requests that lack one.
	RequestID       bool   `yaml:"request_id" mapstructure:"request_id"`
	RequestIDHeader string `yaml:"request_id_header" mapstructure:"request_id_header"`

	Retry          *resilience.RetryConfig          `yaml:"retry" mapstructure:"retry"`
	RateLimit      *resilience.RateLimiterConfig    `yaml:"rate_limit" mapstructure:"rate_limit"`
	CircuitBreaker *resilience.CircuitBreakerConfig `yaml:"circuit_breaker" mapstructure:"circuit_breaker"`
	MaxConcurrent  int                              `yaml:"max_concurrent" mapstructure:"max_concurrent" validate:"gte=0"`

	// Logging logs every exchange. Tracing and Metrics record them with the
	// global OpenTelemetry providers.
	Logging bool `yaml:"logging" mapstructure:"logging"`
	Tracing bool `yaml:"tracing" mapstructure:"tracing"`
	Metrics bool `yaml:"metrics" mapstructure:"metrics"`
}

// ProxyConfig routes traffic through an HTTP proxy.
type ProxyConfig struct {
	Host string `yaml:"host" mapstructure:"host"`
	Port int    `yaml:"port" mapstructure:"port" validate:"gte=0,lte=65535"`
	// Authorization is the full Proxy-Authorization value. Username and
	// Password build a Basic value when it is empty.
	Authorization string `yaml:"authorization" mapstructure:"authorization"`
	Username      string `yaml:"username" mapstructure:"username"`
	Password      string `yaml:"password" mapstructure:"password"`
}

// Credentials returns the Proxy-Authorization value, or "".
func (p *ProxyConfig) Credentials() string {
	if p.Authorization != "" {
		return p.Authorization
	}
	if p.Username == "" {
		return ""
	}
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(p.Username+":"+p.Password))
}

// Auth types accepted in AuthConfig.Type.
const (
	AuthTypeNone   = "none"
	AuthTypeBearer = "bearer"
	AuthTypeBasic  = "basic"
	AuthTypeAPIKey = "api_key"
)

// AuthConfig configures request authentication.
type AuthConfig struct {
	Type     string `yaml:"type" mapstructure:"type" validate:"omitempty,oneof=none bearer basic api_key"`
	Token    string `yaml:"token" mapstructure:"token"`
	Username string `yaml:"username" mapstructure:"username"`
	Password string `yaml:"password" mapstructure:"password"`
	Key      string `yaml:"key" mapstructure:"key"`
	// In is "header" (default) or "query" for API keys.
	In string `yaml:"in" mapstructure:"in" validate:"omitempty,oneof=header query"`
	// Name is the API key header or query parameter. Defaults to X-API-Key.
	Name string `yaml:"name" mapstructure:"name"`
}

// ApplyDefaults fills in zero-value fields.
func (c *Config) ApplyDefaults() {
	if c.Name == "" {
		c.Name = defaultName
	}
	if c.Backend == "" {
		c.Backend = defaultBackend
	}
	if c.UserAgent == "" {
		c.UserAgent = version.UserAgent()
	}
	if c.Retry != nil {
		c.Retry.ApplyDefaults()
	}
	if c.RateLimit != nil && c.RateLimit.Name == "" {
		c.RateLimit.Name = c.Name
	}
	if c.CircuitBreaker != nil && c.CircuitBreaker.Name == "" {
		c.CircuitBreaker.Name = c.Name
	}
}

// Validate checks tags and cross-field rules.
func (c *Config) Validate() error {
	v := validation.NewChecker().Merge("config", validation.Struct(c))

	if c.TLS != nil {
		v.Merge("tls", c.TLS.Validate())
	}
	if p := c.Proxy; p != nil && (p.Host != "" || p.Port != 0) {
		v.Required("proxy.host", p.Host).
			Range("proxy.port", p.Port, 1, 65535)
	}
	if a := c.Auth; a != nil {
		switch a.Type {
		case AuthTypeBearer:
			v.Required("auth.token", a.Token)
		case AuthTypeBasic:
			v.Required("auth.username", a.Username)
		case AuthTypeAPIKey:
			v.Required("auth.key", a.Key)
		}
	}
	return v.Err()
}
