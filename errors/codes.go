package errors

// ErrorCode represents a machine-readable error code.
type ErrorCode string

// Configuration errors
const (
	// ErrCodeUnsupportedOption indicates a backend cannot honor an option or feature.
	ErrCodeUnsupportedOption ErrorCode = "UNSUPPORTED_OPTION"
	// ErrCodeConfiguration indicates an invalid combination or a missing prerequisite.
	ErrCodeConfiguration ErrorCode = "CONFIGURATION_ERROR"
	// ErrCodeInvalidInput indicates a malformed request description.
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
)

// Exchange errors
const (
	// ErrCodeTransport indicates a connection, read, or write failure at the backend.
	ErrCodeTransport ErrorCode = "TRANSPORT_FAILURE"
	// ErrCodeTimeout indicates a connect, read, or write timeout expired.
	ErrCodeTimeout ErrorCode = "TIMEOUT"
	// ErrCodeCancelled indicates the caller cancelled the operation.
	ErrCodeCancelled ErrorCode = "CANCELLED"
	// ErrCodeInterceptor indicates an interceptor hook rejected the exchange.
	ErrCodeInterceptor ErrorCode = "INTERCEPTOR_FAILURE"
	// ErrCodeDecode indicates a response body could not be decoded.
	ErrCodeDecode ErrorCode = "DECODE_FAILURE"
)

// Lifecycle errors
const (
	// ErrCodeClientClosed indicates an operation attempted after Close.
	ErrCodeClientClosed ErrorCode = "CLIENT_CLOSED"
	// ErrCodeConnectionClosed indicates a WebSocket send outside the open state.
	ErrCodeConnectionClosed ErrorCode = "CONNECTION_CLOSED"
)

// Transport failure reasons, stored under DetailReason.
const (
	ReasonRefused = "refused"
	ReasonReset   = "reset"
	ReasonDNS     = "dns"
	ReasonTLS     = "tls"
	ReasonEOF     = "eof"
	ReasonIO      = "io"
	// ReasonRejected marks a send refused locally by a rate limiter,
	// bulkhead or open circuit breaker.
	ReasonRejected = "rejected"
)

// Timeout phases, stored under DetailPhase.
const (
	PhaseConnect = "connect"
	PhaseRead    = "read"
	PhaseWrite   = "write"
)

// Detail keys.
const (
	DetailOption      = "option"
	DetailBackend     = "backend"
	DetailReason      = "reason"
	DetailPhase       = "phase"
	DetailInterceptor = "interceptor"
	DetailHook        = "hook"
	DetailField       = "field"
)

var retryableCodes = map[ErrorCode]bool{
	ErrCodeTransport: true,
	ErrCodeTimeout:   true,
}

// IsRetryableCode returns true if the error code indicates a retryable error.
func IsRetryableCode(code ErrorCode) bool {
	return retryableCodes[code]
}
