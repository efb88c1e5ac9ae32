package client

import (
	"context"
	stderrors "errors"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kbukum/httpkit/errors"
	"github.com/kbukum/httpkit/logger"
)

// DefaultCloseTimeout bounds the wait for the peer's close acknowledgement.
const DefaultCloseTimeout = 5 * time.Second

// ConnState is the lifecycle state of a WebSocket.
type ConnState int

const (
	StateConnecting ConnState = iota
	StateOpen
	StateClosing
	StateClosed
	StateFailed
)

func (s ConnState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Listener receives WebSocket events. OnOpen comes first; exactly one of
// OnClose and OnError comes last. Callbacks for one connection never run
// concurrently with each other, except that Abort delivers OnClose on the
// caller's goroutine.
type Listener interface {
	OnOpen(ws *WebSocket)
	OnMessage(ws *WebSocket, text string)
	OnBinary(ws *WebSocket, data []byte)
	OnClose(ws *WebSocket, code int, reason string)
	OnError(ws *WebSocket, err error)
}

// ListenerFuncs adapts plain functions to Listener. Nil funcs are no-ops.
type ListenerFuncs struct {
	OpenFunc    func(ws *WebSocket)
	MessageFunc func(ws *WebSocket, text string)
	BinaryFunc  func(ws *WebSocket, data []byte)
	CloseFunc   func(ws *WebSocket, code int, reason string)
	ErrorFunc   func(ws *WebSocket, err error)
}

func (l ListenerFuncs) OnOpen(ws *WebSocket) {
	if l.OpenFunc != nil {
		l.OpenFunc(ws)
	}
}

func (l ListenerFuncs) OnMessage(ws *WebSocket, text string) {
	if l.MessageFunc != nil {
		l.MessageFunc(ws, text)
	}
}

func (l ListenerFuncs) OnBinary(ws *WebSocket, data []byte) {
	if l.BinaryFunc != nil {
		l.BinaryFunc(ws, data)
	}
}

func (l ListenerFuncs) OnClose(ws *WebSocket, code int, reason string) {
	if l.CloseFunc != nil {
		l.CloseFunc(ws, code, reason)
	}
}

func (l ListenerFuncs) OnError(ws *WebSocket, err error) {
	if l.ErrorFunc != nil {
		l.ErrorFunc(ws, err)
	}
}

// WebSocketBuilder accumulates a WebSocket handshake.
type WebSocketBuilder struct {
	client       *Client
	url          *url.URL
	subprotocols []string
	header       http.Header
	closeTimeout time.Duration
	err          error
}

// URI sets the target. http and https targets are dialed as ws and wss.
func (b *WebSocketBuilder) URI(uri string) *WebSocketBuilder {
	u, err := url.Parse(uri)
	if err != nil {
		b.err = errors.InvalidInput("uri", err.Error()).WithCause(err)
		return b
	}
	b.url = u
	return b
}

// Subprotocol appends a requested subprotocol.
func (b *WebSocketBuilder) Subprotocol(name string) *WebSocketBuilder {
	b.subprotocols = append(b.subprotocols, name)
	return b
}

// Header appends a handshake header value.
func (b *WebSocketBuilder) Header(name, value string) *WebSocketBuilder {
	b.header.Add(name, value)
	return b
}

// SetHeader replaces a handshake header.
func (b *WebSocketBuilder) SetHeader(name, value string) *WebSocketBuilder {
	b.header.Set(name, value)
	return b
}

// CloseTimeout bounds the close handshake. Defaults to DefaultCloseTimeout.
func (b *WebSocketBuilder) CloseTimeout(d time.Duration) *WebSocketBuilder {
	b.closeTimeout = d
	return b
}

// Connect dials the WebSocket. The future completes with an open
// connection after listener.OnOpen returned, or with the dial failure.
// Interceptor Before hooks see the handshake as a GET request.
func (b *WebSocketBuilder) Connect(listener Listener) *Future[*WebSocket] {
	c := b.client
	if listener == nil {
		return failedFuture[*WebSocket](errors.InvalidInput("listener", "nil listener"))
	}
	if c.backend.Capabilities().Of(OptWebSocket) == Unsupported {
		return failedFuture[*WebSocket](errors.UnsupportedOption(c.backend.Name(), string(OptWebSocket)))
	}
	ctx, cancel := context.WithCancelCause(c.ctx)
	wsReq, err := b.handshake(ctx)
	if err != nil {
		cancel(nil)
		return failedFuture[*WebSocket](err)
	}

	f := newFuture[*WebSocket](cancel)
	id, ok := c.track(f.fail)
	if !ok {
		cancel(nil)
		return failedFuture[*WebSocket](errors.ClientClosed())
	}

	go func() {
		defer c.untrack(id)
		defer cancel(nil)

		conn, err := c.transport.t.DialWebSocket(ctx, wsReq)
		if err != nil {
			f.complete(nil, settle(ctx, err))
			return
		}
		if ctx.Err() != nil {
			_ = conn.Close()
			return
		}

		ws := newWebSocket(c, conn, wsReq.URL, listener, b.closeTimeout)
		wsID, ok := c.track(func(error) { ws.Abort() })
		if !ok {
			ws.finish(StateClosed, nil)
			f.fail(errors.ClientClosed())
			return
		}
		ws.setUntrack(func() { c.untrack(wsID) })

		if !ws.open() {
			f.fail(errors.ClientClosed())
			return
		}
		if !f.complete(ws, nil) {
			ws.Abort()
			return
		}
		go ws.readLoop()
	}()
	return f
}

func (b *WebSocketBuilder) handshake(ctx context.Context) (*WebSocketRequest, error) {
	if b.err != nil {
		return nil, b.err
	}
	if b.url == nil {
		return nil, errors.InvalidInput("uri", "missing target")
	}
	u := *b.url
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}

	rb := NewRequestBuilder().URL(&u).Get()
	for name, values := range b.header {
		for _, v := range values {
			rb.Header(name, v)
		}
	}
	for name, ic := range b.client.state.Interceptors.All() {
		if err := ic.Before(ctx, rb); err != nil {
			return nil, errors.Interceptor(name, "before", err)
		}
	}
	req, err := rb.Build()
	if err != nil {
		return nil, err
	}
	return &WebSocketRequest{
		URL:          req.URL(),
		Subprotocols: append([]string(nil), b.subprotocols...),
		Header:       req.Header(),
	}, nil
}

type wsOp struct {
	typ    MessageType
	data   []byte
	close  bool
	code   int
	reason string
	fut    *Future[struct{}]
}

// WebSocket is a live connection.
type WebSocket struct {
	id           string
	url          *url.URL
	conn         WebSocketConn
	listener     Listener
	log          *logger.Logger
	closeTimeout time.Duration

	out      chan wsOp
	done     chan struct{}
	terminal sync.Once

	mu         sync.Mutex
	state      ConnState
	closeTimer *time.Timer
	untrack    func()
}

func newWebSocket(c *Client, conn WebSocketConn, u *url.URL, l Listener, closeTimeout time.Duration) *WebSocket {
	if closeTimeout <= 0 {
		closeTimeout = DefaultCloseTimeout
	}
	id := uuid.NewString()
	ws := &WebSocket{
		id:           id,
		url:          u,
		conn:         conn,
		listener:     l,
		log:          c.log.WithFields(logger.Fields(logger.FieldConnection, id)),
		closeTimeout: closeTimeout,
		out:          make(chan wsOp, 64),
		done:         make(chan struct{}),
		state:        StateConnecting,
	}
	go ws.writeLoop()
	return ws
}

// ID returns a unique connection identifier used in logs.
func (ws *WebSocket) ID() string { return ws.id }

// URL returns the dialed URL.
func (ws *WebSocket) URL() *url.URL { return ws.url }

// Subprotocol returns the negotiated subprotocol.
func (ws *WebSocket) Subprotocol() string { return ws.conn.Subprotocol() }

// State returns the current lifecycle state.
func (ws *WebSocket) State() ConnState {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	return ws.state
}

// Done is closed once the terminal callback has been scheduled.
func (ws *WebSocket) Done() <-chan struct{} { return ws.done }

// SendText queues a text frame. Outside the open state it fails with
// CONNECTION_CLOSED without touching the transport.
func (ws *WebSocket) SendText(text string) *Future[struct{}] {
	return ws.enqueue(wsOp{typ: TextMessage, data: []byte(text)})
}

// SendBinary queues a binary frame.
func (ws *WebSocket) SendBinary(data []byte) *Future[struct{}] {
	return ws.enqueue(wsOp{typ: BinaryMessage, data: append([]byte(nil), data...)})
}

// SendClose starts the close handshake. OnClose fires when the peer
// acknowledges, or with 1006 when it does not within the close timeout.
func (ws *WebSocket) SendClose(code int, reason string) *Future[struct{}] {
	return ws.enqueue(wsOp{close: true, code: code, reason: reason})
}

// Abort drops the connection without a handshake and delivers
// OnClose(1006, "aborted") before returning. No-op after termination.
func (ws *WebSocket) Abort() {
	ws.finish(StateClosed, func() {
		ws.listener.OnClose(ws, CloseAbnormal, "aborted")
	})
}

// open delivers OnOpen unless the connection was aborted first.
func (ws *WebSocket) open() bool {
	ws.mu.Lock()
	if ws.state != StateConnecting {
		ws.mu.Unlock()
		return false
	}
	ws.state = StateOpen
	ws.mu.Unlock()
	ws.log.Debug("websocket open", logger.Fields(logger.FieldURI, ws.url.Redacted()))
	ws.listener.OnOpen(ws)
	return true
}

func (ws *WebSocket) setUntrack(fn func()) {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	ws.untrack = fn
}

func (ws *WebSocket) enqueue(op wsOp) *Future[struct{}] {
	ws.mu.Lock()
	if ws.state != StateOpen {
		state := ws.state
		ws.mu.Unlock()
		return failedFuture[struct{}](errors.ConnectionClosed(state.String()))
	}
	if op.close {
		ws.state = StateClosing
	}
	ws.mu.Unlock()

	op.fut = newFuture[struct{}](nil)
	select {
	case ws.out <- op:
		// The write loop may have exited between the state check and the
		// send; fail an op it will never read.
		select {
		case <-ws.done:
			op.fut.complete(struct{}{}, errors.ConnectionClosed(StateClosed.String()))
		default:
		}
	case <-ws.done:
		op.fut.complete(struct{}{}, errors.ConnectionClosed(StateClosed.String()))
	}
	return op.fut
}

func (ws *WebSocket) writeLoop() {
	closeWritten := false
	for {
		select {
		case op := <-ws.out:
			switch {
			case op.close:
				err := ws.conn.WriteClose(op.code, op.reason)
				op.fut.complete(struct{}{}, err)
				if err != nil {
					ws.fail(err)
					continue
				}
				closeWritten = true
				ws.armCloseTimer()
			case closeWritten:
				op.fut.complete(struct{}{}, errors.ConnectionClosed(StateClosing.String()))
			default:
				err := ws.conn.WriteMessage(op.typ, op.data)
				op.fut.complete(struct{}{}, err)
				if err != nil {
					ws.fail(err)
				}
			}
		case <-ws.done:
			for {
				select {
				case op := <-ws.out:
					op.fut.complete(struct{}{}, errors.ConnectionClosed(ws.State().String()))
				default:
					return
				}
			}
		}
	}
}

func (ws *WebSocket) armCloseTimer() {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	if ws.state != StateClosing {
		return
	}
	ws.closeTimer = time.AfterFunc(ws.closeTimeout, func() {
		ws.finish(StateClosed, func() {
			ws.listener.OnClose(ws, CloseAbnormal, "close handshake timed out")
		})
	})
}

func (ws *WebSocket) readLoop() {
	for {
		typ, data, err := ws.conn.ReadMessage()
		if err != nil {
			ws.onReadError(err)
			return
		}
		select {
		case <-ws.done:
			return
		default:
		}
		switch typ {
		case TextMessage:
			ws.listener.OnMessage(ws, string(data))
		case BinaryMessage:
			ws.listener.OnBinary(ws, data)
		}
	}
}

func (ws *WebSocket) onReadError(err error) {
	var frame *CloseFrame
	if stderrors.As(err, &frame) {
		ws.mu.Lock()
		peerInitiated := ws.state == StateOpen
		if peerInitiated {
			ws.state = StateClosing
		}
		ws.mu.Unlock()

		if peerInitiated {
			code := frame.Code
			if code == CloseNoStatus || code == CloseAbnormal {
				code = CloseNormal
			}
			_ = ws.conn.WriteClose(code, "")
		}
		ws.finish(StateClosed, func() {
			ws.listener.OnClose(ws, frame.Code, frame.Reason)
		})
		return
	}

	if ws.State() == StateClosing {
		ws.finish(StateClosed, func() {
			ws.listener.OnClose(ws, CloseAbnormal, "connection lost during close")
		})
		return
	}
	ws.fail(err)
}

func (ws *WebSocket) fail(err error) {
	ws.finish(StateFailed, func() {
		ws.listener.OnError(ws, err)
	})
}

// finish moves to a terminal state once, releases the connection and runs
// the terminal callback. A connection that never delivered OnOpen gets no
// terminal callback.
func (ws *WebSocket) finish(state ConnState, callback func()) {
	ws.terminal.Do(func() {
		ws.mu.Lock()
		opened := ws.state != StateConnecting
		ws.state = state
		if ws.closeTimer != nil {
			ws.closeTimer.Stop()
		}
		untrack := ws.untrack
		ws.mu.Unlock()

		close(ws.done)
		_ = ws.conn.Close()
		if untrack != nil {
			untrack()
		}
		ws.log.Debug("websocket terminated", logger.Fields("state", state.String()))
		if opened && callback != nil {
			callback()
		}
	})
}
