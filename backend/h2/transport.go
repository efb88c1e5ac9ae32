package h2

import (
	"context"
	"crypto/tls"
	stderrors "errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"golang.org/x/net/http2"

	"github.com/kbukum/httpkit/client"
	"github.com/kbukum/httpkit/errors"
	"github.com/kbukum/httpkit/internal/httpwire"
	"github.com/kbukum/httpkit/internal/netconn"
)

var errReadTimeout = stderrors.New("h2: read timeout")

type transport struct {
	engine      *Backend
	secure      *http2.Transport
	cleartext   *http2.Transport
	http        *http.Client
	wire        httpwire.Options
	readTimeout time.Duration
	closed      atomic.Bool
}

func newTransport(engine *Backend, state *client.State) *transport {
	// Read deadlines are per exchange; a connection deadline would break
	// the shared frame reader.
	dialer := &netconn.Dialer{Timeouts: netconn.Timeouts{Connect: state.ConnectTimeout}, KeepAlive: 30 * time.Second}

	tlsCfg := state.TLS.ClientConfig(state.TLSVersions, "")
	if tlsCfg == nil {
		tlsCfg = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	tlsCfg.NextProtos = []string{http2.NextProtoTLS}

	t := &transport{
		engine: engine,
		secure: &http2.Transport{
			TLSClientConfig:    tlsCfg,
			DialTLSContext:     dialTLS(dialer, state.ConnectTimeout),
			DisableCompression: state.ForStreaming,
			WriteByteTimeout:   state.WriteTimeout,
			ReadIdleTimeout:    30 * time.Second,
		},
		cleartext: &http2.Transport{
			AllowHTTP: true,
			DialTLSContext: func(ctx context.Context, network, addr string, _ *tls.Config) (net.Conn, error) {
				return dialer.DialContext(ctx, network, addr)
			},
			DisableCompression: state.ForStreaming,
			WriteByteTimeout:   state.WriteTimeout,
			ReadIdleTimeout:    30 * time.Second,
		},
		wire:        httpwire.Options{StripUserinfo: state.AuthenticatorNone},
		readTimeout: state.ReadTimeout,
	}
	t.http = &http.Client{
		Transport:     roundTripper(t.roundTripHTTP),
		CheckRedirect: httpwire.CheckRedirect(state.FollowRedirects),
	}
	return t
}

func dialTLS(d *netconn.Dialer, handshakeTimeout time.Duration) func(ctx context.Context, network, addr string, cfg *tls.Config) (net.Conn, error) {
	return func(ctx context.Context, network, addr string, cfg *tls.Config) (net.Conn, error) {
		raw, err := d.DialContext(ctx, network, addr)
		if err != nil {
			return nil, err
		}
		if handshakeTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, handshakeTimeout)
			defer cancel()
		}
		conn := tls.Client(raw, cfg)
		if err := conn.HandshakeContext(ctx); err != nil {
			_ = raw.Close()
			return nil, err
		}
		if p := conn.ConnectionState().NegotiatedProtocol; p != http2.NextProtoTLS {
			_ = conn.Close()
			return nil, errors.Transport(errors.ReasonTLS, fmt.Errorf("server negotiated %q instead of h2", p))
		}
		return conn, nil
	}
}

// roundTripHTTP picks the connection pool by URL scheme, so redirects may
// cross between h2c and TLS.
func (t *transport) roundTripHTTP(req *http.Request) (*http.Response, error) {
	if req.URL.Scheme == "http" {
		return t.cleartext.RoundTrip(req)
	}
	return t.secure.RoundTrip(req)
}

func (t *transport) RoundTrip(ctx context.Context, req *client.Request) (*client.RawResponse, error) {
	if t.closed.Load() {
		return nil, errors.ClientClosed()
	}

	ctx, cancel := context.WithCancelCause(ctx)
	wd := newWatchdog(t.readTimeout, cancel)

	hreq, err := httpwire.NewRequest(ctx, req, t.wire)
	if err != nil {
		cancel(nil)
		return nil, err
	}
	resp, err := t.http.Do(hreq)
	if err != nil {
		wd.stop()
		timedOut := context.Cause(ctx) == errReadTimeout
		cancel(nil)
		if timedOut {
			return nil, errors.Timeout(errors.PhaseRead, err)
		}
		return nil, netconn.Classify(err, errors.PhaseRead)
	}
	raw := httpwire.NewResponse(resp)
	raw.Body = &timedBody{rc: raw.Body, ctx: ctx, cancel: cancel, wd: wd}
	return raw, nil
}

func (t *transport) DialWebSocket(context.Context, *client.WebSocketRequest) (client.WebSocketConn, error) {
	return nil, errors.UnsupportedOption(Name, string(client.OptWebSocket))
}

func (t *transport) Close() error {
	if !t.closed.CompareAndSwap(false, true) {
		return nil
	}
	t.secure.CloseIdleConnections()
	t.cleartext.CloseIdleConnections()
	t.engine.forget(t)
	return nil
}

// roundTripper exposes roundTripHTTP to http.Client.
type roundTripper func(*http.Request) (*http.Response, error)

func (f roundTripper) RoundTrip(req *http.Request) (*http.Response, error) { return f(req) }

// watchdog cancels an exchange when no response bytes arrive for d.
type watchdog struct {
	d     time.Duration
	timer *time.Timer
}

func newWatchdog(d time.Duration, cancel context.CancelCauseFunc) *watchdog {
	w := &watchdog{d: d}
	if d > 0 {
		w.timer = time.AfterFunc(d, func() { cancel(errReadTimeout) })
	}
	return w
}

func (w *watchdog) reset() {
	if w.timer != nil {
		w.timer.Reset(w.d)
	}
}

func (w *watchdog) stop() {
	if w.timer != nil {
		w.timer.Stop()
	}
}

type timedBody struct {
	rc     io.ReadCloser
	ctx    context.Context
	cancel context.CancelCauseFunc
	wd     *watchdog
}

func (b *timedBody) Read(p []byte) (int, error) {
	b.wd.reset()
	n, err := b.rc.Read(p)
	if err != nil && err != io.EOF && context.Cause(b.ctx) == errReadTimeout {
		return n, errors.Timeout(errors.PhaseRead, err)
	}
	return n, err
}

func (b *timedBody) Close() error {
	b.wd.stop()
	err := b.rc.Close()
	b.cancel(nil)
	return err
}
