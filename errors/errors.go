package errors

import (
	stderrors "errors"
	"fmt"
)

// AppError is the unified error type returned by httpkit.
type AppError struct {
	// Code is a machine-readable error code.
	Code ErrorCode `json:"code"`
	// Message is a human-readable error message.
	Message string `json:"message"`
	// Retryable indicates if the operation can be retried.
	Retryable bool `json:"retryable"`
	// Details contains additional context for the error.
	Details map[string]any `json:"details,omitempty"`
	// Cause is the underlying error that caused this error.
	Cause error `json:"-"`
}

// Error returns the string representation of the error.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause of the error.
func (e *AppError) Unwrap() error { return e.Cause }

// WithCause sets the underlying cause of the error and returns the receiver.
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithDetail sets a single detail key-value pair and returns the receiver.
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// Detail returns the detail stored under key formatted as a string, or "".
func (e *AppError) Detail(key string) string {
	v, ok := e.Details[key]
	if !ok {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// New creates a new AppError with automatic retryable detection.
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:      code,
		Message:   message,
		Retryable: IsRetryableCode(code),
	}
}

// --- Constructors ---

// UnsupportedOption reports that backend cannot honor option.
func UnsupportedOption(backend, option string) *AppError {
	return &AppError{
		Code:    ErrCodeUnsupportedOption,
		Message: fmt.Sprintf("backend %q does not support %s", backend, option),
		Details: map[string]any{DetailBackend: backend, DetailOption: option},
	}
}

// Configuration reports an invalid option value or combination.
func Configuration(option, reason string) *AppError {
	return &AppError{
		Code:    ErrCodeConfiguration,
		Message: fmt.Sprintf("invalid %s: %s", option, reason),
		Details: map[string]any{DetailOption: option},
	}
}

// InvalidInput reports a malformed request field.
func InvalidInput(field, reason string) *AppError {
	return &AppError{
		Code:    ErrCodeInvalidInput,
		Message: fmt.Sprintf("invalid %s: %s", field, reason),
		Details: map[string]any{DetailField: field},
	}
}

// Transport wraps a backend I/O failure. reason is one of the Reason* constants.
func Transport(reason string, cause error) *AppError {
	return &AppError{
		Code:      ErrCodeTransport,
		Message:   fmt.Sprintf("transport failure (%s)", reason),
		Retryable: reason != ReasonTLS && reason != ReasonRejected,
		Details:   map[string]any{DetailReason: reason},
		Cause:     cause,
	}
}

// Timeout wraps a connect, read, or write timeout. phase is one of the Phase* constants.
func Timeout(phase string, cause error) *AppError {
	return &AppError{
		Code:      ErrCodeTimeout,
		Message:   fmt.Sprintf("%s timeout", phase),
		Retryable: true,
		Details:   map[string]any{DetailPhase: phase},
		Cause:     cause,
	}
}

// Cancelled reports a caller-initiated cancellation.
func Cancelled(cause error) *AppError {
	return &AppError{
		Code:    ErrCodeCancelled,
		Message: "operation cancelled",
		Cause:   cause,
	}
}

// ClientClosed reports use of a client after Close.
func ClientClosed() *AppError {
	return &AppError{
		Code:    ErrCodeClientClosed,
		Message: "client is closed",
	}
}

// ConnectionClosed reports a WebSocket send outside the open state.
func ConnectionClosed(state string) *AppError {
	return &AppError{
		Code:    ErrCodeConnectionClosed,
		Message: fmt.Sprintf("websocket is %s", state),
	}
}

// Interceptor wraps a failure returned by an interceptor hook.
func Interceptor(name, hook string, cause error) *AppError {
	return &AppError{
		Code:    ErrCodeInterceptor,
		Message: fmt.Sprintf("interceptor %q rejected the exchange in %s", name, hook),
		Details: map[string]any{DetailInterceptor: name, DetailHook: hook},
		Cause:   cause,
	}
}

// Decode wraps a failure to decode a response body.
func Decode(cause error) *AppError {
	return &AppError{
		Code:    ErrCodeDecode,
		Message: "failed to decode response body",
		Cause:   cause,
	}
}

// --- Predicates ---

// IsAppError checks if an error is an AppError.
func IsAppError(err error) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr)
}

// AsAppError converts an error to an AppError if possible.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// HasCode reports whether err is an AppError with the given code.
func HasCode(err error, code ErrorCode) bool {
	e, ok := AsAppError(err)
	return ok && e.Code == code
}

// IsUnsupported reports an UNSUPPORTED_OPTION error.
func IsUnsupported(err error) bool { return HasCode(err, ErrCodeUnsupportedOption) }

// IsConfiguration reports a CONFIGURATION_ERROR.
func IsConfiguration(err error) bool { return HasCode(err, ErrCodeConfiguration) }

// IsTimeout reports a TIMEOUT error.
func IsTimeout(err error) bool { return HasCode(err, ErrCodeTimeout) }

// IsTransportFailure reports a TRANSPORT_FAILURE, including its TIMEOUT subtype.
func IsTransportFailure(err error) bool {
	return HasCode(err, ErrCodeTransport) || HasCode(err, ErrCodeTimeout)
}

// IsCancelled reports a CANCELLED error.
func IsCancelled(err error) bool { return HasCode(err, ErrCodeCancelled) }

// IsClientClosed reports a CLIENT_CLOSED error.
func IsClientClosed(err error) bool { return HasCode(err, ErrCodeClientClosed) }

// IsConnectionClosed reports a CONNECTION_CLOSED error.
func IsConnectionClosed(err error) bool { return HasCode(err, ErrCodeConnectionClosed) }

// IsInterceptor reports an INTERCEPTOR_FAILURE.
func IsInterceptor(err error) bool { return HasCode(err, ErrCodeInterceptor) }

// IsDecode reports a DECODE_FAILURE.
func IsDecode(err error) bool { return HasCode(err, ErrCodeDecode) }

// IsRetryable reports whether err is an AppError marked retryable.
func IsRetryable(err error) bool {
	e, ok := AsAppError(err)
	return ok && e.Retryable
}
