package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

// Backend is a transport engine. A factory owns one Backend and every
// client built from it borrows the engine through the transports it builds.
type Backend interface {
	// Name identifies the backend in errors and logs.
	Name() string
	// Capabilities reports which options the backend honors.
	Capabilities() Capabilities
	// Build creates a transport configured from a frozen state.
	Build(state *State) (Transport, error)
	// Close releases the engine. Only the owner calls it.
	Close() error
}

// Transport executes exchanges for one client configuration.
// Errors are *errors.AppError values from the transport or timeout family.
type Transport interface {
	RoundTrip(ctx context.Context, req *Request) (*RawResponse, error)
	DialWebSocket(ctx context.Context, req *WebSocketRequest) (WebSocketConn, error)
	Close() error
}

// RawResponse is a response head with an unread body.
type RawResponse struct {
	StatusCode int
	Header     http.Header
	// Body must be closed by the receiver. Read errors are AppErrors.
	Body io.ReadCloser
}

// WebSocketRequest describes a WebSocket handshake.
type WebSocketRequest struct {
	URL          *url.URL
	Subprotocols []string
	Header       http.Header
}

// MessageType is a WebSocket data frame type.
type MessageType int

// Values match RFC 6455 opcodes.
const (
	TextMessage   MessageType = 1
	BinaryMessage MessageType = 2
)

// WebSocketConn is a live connection handed out by a Transport. Reads come
// from a single goroutine and writes from another; WriteClose and Close
// may be called concurrently with both.
type WebSocketConn interface {
	// Subprotocol returns the negotiated subprotocol.
	Subprotocol() string
	// ReadMessage returns the next data frame. A peer close frame is
	// reported as a *CloseFrame error.
	ReadMessage() (MessageType, []byte, error)
	WriteMessage(typ MessageType, data []byte) error
	WriteClose(code int, reason string) error
	Close() error
}

// CloseFrame is returned by WebSocketConn.ReadMessage when the peer sends a
// close frame.
type CloseFrame struct {
	Code   int
	Reason string
}

func (f *CloseFrame) Error() string {
	return fmt.Sprintf("websocket close %d %s", f.Code, f.Reason)
}

// WebSocket close codes used by the client.
const (
	CloseNormal   = 1000
	CloseNoStatus = 1005
	CloseAbnormal = 1006
)
