package nethttp

import (
	"time"

	"github.com/gorilla/websocket"

	"github.com/kbukum/httpkit/client"
	"github.com/kbukum/httpkit/errors"
	"github.com/kbukum/httpkit/internal/netconn"
)

// wsConn adapts a gorilla connection. Close frames are surfaced to the
// caller instead of being answered automatically.
type wsConn struct {
	conn         *websocket.Conn
	writeTimeout time.Duration
}

func newWSConn(conn *websocket.Conn, writeTimeout time.Duration) *wsConn {
	conn.SetCloseHandler(func(int, string) error { return nil })
	return &wsConn{conn: conn, writeTimeout: writeTimeout}
}

func (c *wsConn) Subprotocol() string { return c.conn.Subprotocol() }

func (c *wsConn) ReadMessage() (client.MessageType, []byte, error) {
	typ, data, err := c.conn.ReadMessage()
	if err != nil {
		if ce, ok := err.(*websocket.CloseError); ok && ce.Code != websocket.CloseAbnormalClosure {
			return 0, nil, &client.CloseFrame{Code: ce.Code, Reason: ce.Text}
		}
		return 0, nil, netconn.Classify(err, errors.PhaseRead)
	}
	return client.MessageType(typ), data, nil
}

func (c *wsConn) WriteMessage(typ client.MessageType, data []byte) error {
	if c.writeTimeout > 0 {
		_ = c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	}
	if err := c.conn.WriteMessage(int(typ), data); err != nil {
		return netconn.Classify(err, errors.PhaseWrite)
	}
	return nil
}

func (c *wsConn) WriteClose(code int, reason string) error {
	deadline := time.Now().Add(time.Second)
	if c.writeTimeout > 0 {
		deadline = time.Now().Add(c.writeTimeout)
	}
	msg := websocket.FormatCloseMessage(code, reason)
	if code == client.CloseNoStatus {
		msg = []byte{}
	}
	if err := c.conn.WriteControl(websocket.CloseMessage, msg, deadline); err != nil {
		return netconn.Classify(err, errors.PhaseWrite)
	}
	return nil
}

func (c *wsConn) Close() error { return c.conn.Close() }
