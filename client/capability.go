package client

// Option names a configurable feature a backend may or may not honor.
type Option string

// Builder options.
const (
	OptConnectTimeout     Option = "connect-timeout"
	OptReadTimeout        Option = "read-timeout"
	OptWriteTimeout       Option = "write-timeout"
	OptForStreaming       Option = "for-streaming"
	OptInterceptors       Option = "interceptors"
	OptAuthenticatorNone  Option = "authenticator-none"
	OptSSLContext         Option = "ssl-context"
	OptFollowRedirects    Option = "follow-redirects"
	OptPreferHTTP11       Option = "prefer-http11"
	OptTLSVersions        Option = "tls-versions"
	OptProxyAddress       Option = "proxy-address"
	OptProxyAuthorization Option = "proxy-authorization"
)

// Send-time features.
const (
	OptStreamedBody   Option = "streamed-body"
	OptExpectContinue Option = "expect-continue"
	OptWebSocket      Option = "websocket"
)

// Support describes how a backend treats an Option.
type Support int

const (
	// Supported options are honored.
	Supported Support = iota
	// Unsupported options are rejected with UNSUPPORTED_OPTION.
	Unsupported
	// Advisory options are accepted but may be ignored.
	Advisory
)

func (s Support) String() string {
	switch s {
	case Supported:
		return "supported"
	case Unsupported:
		return "unsupported"
	case Advisory:
		return "advisory"
	default:
		return "unknown"
	}
}

// Capabilities maps options to their support level. Options missing from
// the map are Supported.
type Capabilities map[Option]Support

// Of returns the support level of opt.
func (c Capabilities) Of(opt Option) Support {
	if s, ok := c[opt]; ok {
		return s
	}
	return Supported
}
