package nethttp

import (
	"bufio"
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/net/http2"

	"github.com/kbukum/httpkit/client"
	"github.com/kbukum/httpkit/errors"
	"github.com/kbukum/httpkit/internal/httpwire"
	"github.com/kbukum/httpkit/internal/netconn"
)

// idleConnTimeout bounds how long pooled connections stay open.
const idleConnTimeout = 90 * time.Second

type transport struct {
	engine *Backend
	state  *client.State
	http   *http.Client
	ht     *http.Transport
	ws     *websocket.Dialer
	wire   httpwire.Options
	closed atomic.Bool
}

func newTransport(engine *Backend, state *client.State) (*transport, error) {
	dialer := &netconn.Dialer{
		Timeouts: netconn.Timeouts{
			Connect: state.ConnectTimeout,
			Read:    state.ReadTimeout,
			Write:   state.WriteTimeout,
		},
		KeepAlive: 30 * time.Second,
	}
	tlsCfg := state.TLS.ClientConfig(state.TLSVersions, "")
	// The WebSocket handshake is HTTP/1.1 only; keep "h2" out of its ALPN list.
	wsTLS := tlsCfg.Clone()
	if wsTLS != nil {
		wsTLS.NextProtos = []string{"http/1.1"}
	}

	ht := &http.Transport{
		DialContext:           dialer.DialContext,
		TLSClientConfig:       tlsCfg,
		TLSHandshakeTimeout:   state.ConnectTimeout,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       idleConnTimeout,
		ExpectContinueTimeout: time.Second,
		DisableCompression:    state.ForStreaming,
	}
	t := &transport{engine: engine, state: state, ht: ht}

	if state.ProxyAddress != "" {
		proxy := &url.URL{Scheme: "http", Host: state.ProxyAddress}
		ht.Proxy = http.ProxyURL(proxy)
		if state.ProxyAuthorization != "" {
			ht.ProxyConnectHeader = http.Header{"Proxy-Authorization": {state.ProxyAuthorization}}
		}
	}

	if state.PreferHTTP11 {
		ht.TLSNextProto = map[string]func(string, *tls.Conn) http.RoundTripper{}
	} else {
		h2, err := http2.ConfigureTransports(ht)
		if err != nil {
			return nil, errors.Configuration("http2", err.Error()).WithCause(err)
		}
		h2.ReadIdleTimeout = 30 * time.Second
		if state.ReadTimeout > 0 {
			h2.PingTimeout = state.ReadTimeout
		}
	}

	t.http = &http.Client{
		Transport:     ht,
		CheckRedirect: httpwire.CheckRedirect(state.FollowRedirects),
	}
	t.wire = httpwire.Options{StripUserinfo: state.AuthenticatorNone}

	// WebSocket reads wait for the peer indefinitely; only the connect and
	// write timeouts apply.
	wsDial := &netconn.Dialer{Timeouts: netconn.Timeouts{
		Connect: state.ConnectTimeout,
		Write:   state.WriteTimeout,
	}}
	t.ws = &websocket.Dialer{
		NetDialContext:   wsDial.DialContext,
		TLSClientConfig:  wsTLS,
		HandshakeTimeout: state.ConnectTimeout,
	}
	if state.ProxyAddress != "" {
		t.ws.NetDialContext = tunnel(wsDial, state.ProxyAddress, state.ProxyAuthorization)
	}
	return t, nil
}

func (t *transport) RoundTrip(ctx context.Context, req *client.Request) (*client.RawResponse, error) {
	if t.closed.Load() {
		return nil, errors.ClientClosed()
	}
	hreq, err := httpwire.NewRequest(ctx, req, t.wire)
	if err != nil {
		return nil, err
	}
	if t.state.ProxyAuthorization != "" && hreq.URL.Scheme == "http" {
		// Plain requests go to the proxy directly, CONNECT is not used.
		hreq.Header.Set("Proxy-Authorization", t.state.ProxyAuthorization)
	}
	resp, err := t.http.Do(hreq)
	if err != nil {
		return nil, netconn.Classify(err, errors.PhaseRead)
	}
	return httpwire.NewResponse(resp), nil
}

func (t *transport) DialWebSocket(ctx context.Context, req *client.WebSocketRequest) (client.WebSocketConn, error) {
	if t.closed.Load() {
		return nil, errors.ClientClosed()
	}
	u := *req.URL
	if t.state.AuthenticatorNone {
		u.User = nil
	}
	header := req.Header.Clone()
	for _, h := range []string{"Upgrade", "Connection", "Sec-Websocket-Key", "Sec-Websocket-Version", "Sec-Websocket-Extensions", "Sec-Websocket-Protocol"} {
		header.Del(h)
	}

	d := *t.ws
	d.Subprotocols = req.Subprotocols
	conn, resp, err := d.DialContext(ctx, u.String(), header)
	if err != nil {
		if resp != nil {
			_ = resp.Body.Close()
			return nil, errors.Transport(errors.ReasonIO, err).WithDetail("status", resp.StatusCode)
		}
		return nil, netconn.Classify(err, errors.PhaseConnect)
	}
	return newWSConn(conn, t.state.WriteTimeout), nil
}

// Close releases pooled connections. Open WebSockets are owned by their
// clients and closed there.
func (t *transport) Close() error {
	if !t.closed.CompareAndSwap(false, true) {
		return nil
	}
	t.ht.CloseIdleConnections()
	t.engine.forget(t)
	return nil
}

// tunnel returns a dial func that opens an HTTP CONNECT tunnel through
// proxyAddr, sending auth as Proxy-Authorization when set.
func tunnel(d *netconn.Dialer, proxyAddr, auth string) func(ctx context.Context, network, addr string) (net.Conn, error) {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		conn, err := d.DialContext(ctx, network, proxyAddr)
		if err != nil {
			return nil, err
		}
		connect := &http.Request{
			Method: http.MethodConnect,
			URL:    &url.URL{Opaque: addr},
			Host:   addr,
			Header: make(http.Header),
		}
		if auth != "" {
			connect.Header.Set("Proxy-Authorization", auth)
		}
		if deadline, ok := ctx.Deadline(); ok {
			_ = conn.SetDeadline(deadline)
			defer func() { _ = conn.SetDeadline(time.Time{}) }()
		}
		if err := connect.Write(conn); err != nil {
			_ = conn.Close()
			return nil, err
		}
		br := bufio.NewReader(conn)
		resp, err := http.ReadResponse(br, connect)
		if err != nil {
			_ = conn.Close()
			return nil, err
		}
		_ = resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			_ = conn.Close()
			return nil, errors.Transport(errors.ReasonRefused, fmt.Errorf("proxy CONNECT: %s", resp.Status)).
				WithDetail("status", resp.StatusCode)
		}
		if br.Buffered() > 0 {
			_ = conn.Close()
			return nil, errors.Transport(errors.ReasonIO, fmt.Errorf("proxy sent data before tunnel was ready"))
		}
		return conn, nil
	}
}
