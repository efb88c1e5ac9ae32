// Package netconn holds the socket plumbing shared by the HTTP backends:
// a dialer that enforces per-phase timeouts and the mapping from network
// errors to the client error taxonomy.
package netconn

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	stderrors "errors"
	"io"
	"net"
	"syscall"
	"time"

	"github.com/kbukum/httpkit/errors"
)

// Timeouts are per-phase limits. Zero means no limit.
type Timeouts struct {
	Connect time.Duration
	Read    time.Duration
	Write   time.Duration
}

// Dialer opens TCP connections within the connect timeout and re-arms the
// read and write deadlines before every Read and Write.
type Dialer struct {
	Timeouts Timeouts
	// KeepAlive is passed to net.Dialer. Zero uses the net default.
	KeepAlive time.Duration
}

// DialContext has the signature http.Transport and websocket.Dialer expect.
func (d *Dialer) DialContext(ctx context.Context, network, addr string) (net.Conn, error) {
	nd := &net.Dialer{Timeout: d.Timeouts.Connect, KeepAlive: d.KeepAlive}
	conn, err := nd.DialContext(ctx, network, addr)
	if err != nil {
		return nil, err
	}
	return Wrap(conn, d.Timeouts), nil
}

// Wrap applies the read and write timeouts of t to conn. It returns conn
// unchanged when neither is set.
func Wrap(conn net.Conn, t Timeouts) net.Conn {
	if t.Read <= 0 && t.Write <= 0 {
		return conn
	}
	return &deadlineConn{Conn: conn, read: t.Read, write: t.Write}
}

type deadlineConn struct {
	net.Conn
	read  time.Duration
	write time.Duration
}

func (c *deadlineConn) Read(p []byte) (int, error) {
	if c.read > 0 {
		if err := c.Conn.SetReadDeadline(time.Now().Add(c.read)); err != nil {
			return 0, err
		}
	}
	return c.Conn.Read(p)
}

func (c *deadlineConn) Write(p []byte) (int, error) {
	if c.write > 0 {
		if err := c.Conn.SetWriteDeadline(time.Now().Add(c.write)); err != nil {
			return 0, err
		}
	}
	return c.Conn.Write(p)
}

// Classify maps a network failure to TIMEOUT or TRANSPORT_FAILURE. Errors
// that already carry a code are returned as is. phase names the operation
// in progress and is used when err does not say.
func Classify(err error, phase string) error {
	if err == nil {
		return nil
	}
	if errors.IsAppError(err) {
		return err
	}
	if stderrors.Is(err, context.Canceled) {
		return errors.Cancelled(err)
	}

	var opErr *net.OpError
	if stderrors.As(err, &opErr) {
		switch opErr.Op {
		case "dial":
			phase = errors.PhaseConnect
		case "read":
			phase = errors.PhaseRead
		case "write":
			phase = errors.PhaseWrite
		}
	}

	var dnsErr *net.DNSError
	switch {
	case stderrors.As(err, &dnsErr):
		if dnsErr.IsTimeout {
			return errors.Timeout(errors.PhaseConnect, err)
		}
		return errors.Transport(errors.ReasonDNS, err)
	case isTLS(err):
		return errors.Transport(errors.ReasonTLS, err)
	case stderrors.Is(err, context.DeadlineExceeded), isNetTimeout(err):
		return errors.Timeout(phase, err)
	case stderrors.Is(err, syscall.ECONNREFUSED):
		return errors.Transport(errors.ReasonRefused, err)
	case stderrors.Is(err, syscall.ECONNRESET), stderrors.Is(err, syscall.EPIPE), stderrors.Is(err, net.ErrClosed):
		return errors.Transport(errors.ReasonReset, err)
	case stderrors.Is(err, io.EOF), stderrors.Is(err, io.ErrUnexpectedEOF):
		return errors.Transport(errors.ReasonEOF, err)
	case opErr != nil && opErr.Op == "dial":
		return errors.Transport(errors.ReasonRefused, err)
	}
	return errors.Transport(errors.ReasonIO, err)
}

func isNetTimeout(err error) bool {
	var ne net.Error
	return stderrors.As(err, &ne) && ne.Timeout()
}

func isTLS(err error) bool {
	var (
		recordErr   tls.RecordHeaderError
		verifyErr   *tls.CertificateVerificationError
		alertErr    tls.AlertError
		authority   x509.UnknownAuthorityError
		hostname    x509.HostnameError
		invalidCert x509.CertificateInvalidError
	)
	return stderrors.As(err, &recordErr) ||
		stderrors.As(err, &verifyErr) ||
		stderrors.As(err, &alertErr) ||
		stderrors.As(err, &authority) ||
		stderrors.As(err, &hostname) ||
		stderrors.As(err, &invalidCert)
}
