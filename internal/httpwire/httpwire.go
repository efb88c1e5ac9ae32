// Package httpwire converts between client requests and net/http values for
// the backends built on net/http.
package httpwire

import (
	"context"
	"io"
	"net/http"

	"github.com/kbukum/httpkit/client"
	"github.com/kbukum/httpkit/errors"
	"github.com/kbukum/httpkit/internal/netconn"
)

// maxRedirects matches the net/http default policy.
const maxRedirects = 10

// Options tune how a request is put on the wire.
type Options struct {
	// StripUserinfo drops credentials embedded in the URL.
	StripUserinfo bool
	// Header is added to every request without replacing existing values.
	Header http.Header
}

// NewRequest builds the *http.Request for req.
func NewRequest(ctx context.Context, req *client.Request, opts Options) (*http.Request, error) {
	u := req.URL()
	if opts.StripUserinfo {
		u.User = nil
	}

	hreq, err := http.NewRequestWithContext(ctx, req.Method(), u.String(), req.Body())
	if err != nil {
		return nil, errors.InvalidInput("request", err.Error()).WithCause(err)
	}
	hreq.Header = req.Header()
	for name, values := range opts.Header {
		if len(hreq.Header.Values(name)) == 0 {
			hreq.Header[name] = append([]string(nil), values...)
		}
	}

	switch req.BodyKind() {
	case client.BodyStream:
		// NewRequestWithContext cannot size an arbitrary reader.
		hreq.ContentLength = max(req.ContentLength(), -1)
	case client.BodyNone:
		hreq.Body = http.NoBody
		hreq.ContentLength = 0
	}
	if req.ExpectContinue() {
		hreq.Header.Set("Expect", "100-continue")
	}
	if host := hreq.Header.Get("Host"); host != "" {
		hreq.Host = host
		hreq.Header.Del("Host")
	}
	return hreq, nil
}

// NewResponse wraps resp. Body read failures are classified.
func NewResponse(resp *http.Response) *client.RawResponse {
	return &client.RawResponse{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       &body{rc: resp.Body},
	}
}

type body struct {
	rc io.ReadCloser
}

func (b *body) Read(p []byte) (int, error) {
	n, err := b.rc.Read(p)
	if err != nil && err != io.EOF {
		err = netconn.Classify(err, errors.PhaseRead)
	}
	return n, err
}

func (b *body) Close() error { return b.rc.Close() }

// CheckRedirect returns the redirect policy for follow.
func CheckRedirect(follow bool) func(*http.Request, []*http.Request) error {
	if !follow {
		return func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		}
	}
	return func(_ *http.Request, via []*http.Request) error {
		if len(via) >= maxRedirects {
			return errors.Transport(errors.ReasonIO, nil).WithDetail("redirects", len(via))
		}
		return nil
	}
}
