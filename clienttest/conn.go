package clienttest

import (
	"io"
	"sync"

	"github.com/kbukum/httpkit/client"
	"github.com/kbukum/httpkit/errors"
)

// Message is a data frame written by the client.
type Message struct {
	Type client.MessageType
	Data []byte
}

type frame struct {
	typ   client.MessageType
	data  []byte
	close *client.CloseFrame
}

// Conn is a scripted WebSocket peer.
type Conn struct {
	subprotocol string
	incoming    chan frame
	closedCh    chan struct{}
	closeOnce   sync.Once

	mu          sync.Mutex
	ackClose    bool
	writes      []Message
	closeFrames []client.CloseFrame
}

// NewConn returns a peer that negotiated subprotocol and acknowledges
// client close frames.
func NewConn(subprotocol string) *Conn {
	return &Conn{
		subprotocol: subprotocol,
		incoming:    make(chan frame, 64),
		closedCh:    make(chan struct{}),
		ackClose:    true,
	}
}

// AckClose controls whether the peer echoes client close frames.
func (c *Conn) AckClose(ack bool) *Conn {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ackClose = ack
	return c
}

// PushText queues a text frame for the client to read.
func (c *Conn) PushText(text string) *Conn {
	c.incoming <- frame{typ: client.TextMessage, data: []byte(text)}
	return c
}

// PushBinary queues a binary frame for the client to read.
func (c *Conn) PushBinary(data []byte) *Conn {
	c.incoming <- frame{typ: client.BinaryMessage, data: data}
	return c
}

// PeerClose queues a close frame from the peer.
func (c *Conn) PeerClose(code int, reason string) *Conn {
	c.incoming <- frame{close: &client.CloseFrame{Code: code, Reason: reason}}
	return c
}

// Drop makes the next read fail as if the connection was reset.
func (c *Conn) Drop() {
	c.closeOnce.Do(func() { close(c.closedCh) })
}

func (c *Conn) Subprotocol() string { return c.subprotocol }

func (c *Conn) ReadMessage() (client.MessageType, []byte, error) {
	select {
	case f := <-c.incoming:
		if f.close != nil {
			return 0, nil, f.close
		}
		return f.typ, f.data, nil
	case <-c.closedCh:
		return 0, nil, errors.Transport(errors.ReasonEOF, io.EOF)
	}
}

func (c *Conn) WriteMessage(typ client.MessageType, data []byte) error {
	if c.IsClosed() {
		return errors.Transport(errors.ReasonReset, io.ErrClosedPipe)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writes = append(c.writes, Message{Type: typ, Data: append([]byte(nil), data...)})
	return nil
}

func (c *Conn) WriteClose(code int, reason string) error {
	if c.IsClosed() {
		return errors.Transport(errors.ReasonReset, io.ErrClosedPipe)
	}
	c.mu.Lock()
	c.closeFrames = append(c.closeFrames, client.CloseFrame{Code: code, Reason: reason})
	ack := c.ackClose && len(c.closeFrames) == 1
	c.mu.Unlock()
	if ack {
		select {
		case c.incoming <- frame{close: &client.CloseFrame{Code: code, Reason: reason}}:
		default:
		}
	}
	return nil
}

func (c *Conn) Close() error {
	c.closeOnce.Do(func() { close(c.closedCh) })
	return nil
}

// IsClosed reports whether the client closed the connection.
func (c *Conn) IsClosed() bool {
	select {
	case <-c.closedCh:
		return true
	default:
		return false
	}
}

// Writes returns the data frames the client wrote.
func (c *Conn) Writes() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Message(nil), c.writes...)
}

// CloseFrames returns the close frames the client wrote.
func (c *Conn) CloseFrames() []client.CloseFrame {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]client.CloseFrame(nil), c.closeFrames...)
}

// Serve returns a WebSocketHandler that hands out c and checks the
// requested subprotocols include the one c negotiated.
func (c *Conn) Serve() WebSocketHandler {
	return func(req *client.WebSocketRequest) (*Conn, error) {
		if c.subprotocol == "" {
			return c, nil
		}
		for _, p := range req.Subprotocols {
			if p == c.subprotocol {
				return c, nil
			}
		}
		return nil, errors.Transport(errors.ReasonIO, io.ErrUnexpectedEOF).WithDetail("status", 400)
	}
}
