package httpwire

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kbukum/httpkit/client"
	apperrors "github.com/kbukum/httpkit/errors"
)

func build(t *testing.T, rb *client.RequestBuilder) *client.Request {
	t.Helper()
	req, err := rb.Build()
	require.NoError(t, err)
	return req
}

func TestNewRequest_Headers(t *testing.T) {
	req := build(t, client.NewRequestBuilder().
		URI("http://user:pw@api.local/orders?id=1").
		Post("application/json", `{"a":1}`).
		Header("X-Trace", "1").
		SetHeader("Host", "virtual.local").
		ExpectContinue())

	defaults := http.Header{"X-Trace": {"default"}, "User-Agent": {"httpkit/test"}}
	hreq, err := NewRequest(context.Background(), req, Options{StripUserinfo: true, Header: defaults})
	require.NoError(t, err)

	assert.Equal(t, http.MethodPost, hreq.Method)
	assert.Nil(t, hreq.URL.User)
	assert.Equal(t, "virtual.local", hreq.Host)
	assert.Empty(t, hreq.Header.Get("Host"))
	assert.Equal(t, []string{"1"}, hreq.Header.Values("X-Trace"))
	assert.Equal(t, "httpkit/test", hreq.Header.Get("User-Agent"))
	assert.Equal(t, "100-continue", hreq.Header.Get("Expect"))
	assert.Equal(t, int64(len(`{"a":1}`)), hreq.ContentLength)

	body, err := io.ReadAll(hreq.Body)
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, string(body))
}

func TestNewRequest_KeepsUserinfo(t *testing.T) {
	req := build(t, client.NewRequestBuilder().URI("http://user:pw@api.local/").Get())
	hreq, err := NewRequest(context.Background(), req, Options{})
	require.NoError(t, err)
	require.NotNil(t, hreq.URL.User)
	assert.Equal(t, "user", hreq.URL.User.Username())
}

func TestNewRequest_BodyKinds(t *testing.T) {
	req := build(t, client.NewRequestBuilder().URI("http://api.local/").Get())
	hreq, err := NewRequest(context.Background(), req, Options{})
	require.NoError(t, err)
	assert.Equal(t, http.NoBody, hreq.Body)
	assert.Zero(t, hreq.ContentLength)

	req = build(t, client.NewRequestBuilder().URI("http://api.local/").
		Stream(http.MethodPut, "text/plain", strings.NewReader("chunk"), -5))
	hreq, err = NewRequest(context.Background(), req, Options{})
	require.NoError(t, err)
	assert.Equal(t, int64(-1), hreq.ContentLength)
}

type failingBody struct{ err error }

func (b failingBody) Read([]byte) (int, error) { return 0, b.err }
func (failingBody) Close() error               { return nil }

func TestNewResponse_ClassifiesReadErrors(t *testing.T) {
	raw := NewResponse(&http.Response{
		StatusCode: http.StatusAccepted,
		Header:     http.Header{"X-Id": {"7"}},
		Body:       failingBody{err: errors.New("connection reset by peer")},
	})
	assert.Equal(t, http.StatusAccepted, raw.StatusCode)
	assert.Equal(t, "7", raw.Header.Get("X-Id"))

	_, err := raw.Body.Read(make([]byte, 8))
	assert.True(t, apperrors.IsTransportFailure(err), "got %v", err)

	eof := NewResponse(&http.Response{Body: failingBody{err: io.EOF}})
	_, err = eof.Body.Read(make([]byte, 8))
	assert.Equal(t, io.EOF, err)
}

func TestCheckRedirect(t *testing.T) {
	assert.Equal(t, http.ErrUseLastResponse, CheckRedirect(false)(nil, nil))

	follow := CheckRedirect(true)
	assert.NoError(t, follow(nil, make([]*http.Request, 3)))
	err := follow(nil, make([]*http.Request, maxRedirects))
	assert.True(t, apperrors.IsTransportFailure(err), "got %v", err)
}
