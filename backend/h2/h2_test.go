package h2_test

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/kbukum/httpkit/backend/h2"
	"github.com/kbukum/httpkit/client"
	"github.com/kbukum/httpkit/errors"
	"github.com/kbukum/httpkit/logger"
	"github.com/kbukum/httpkit/security/tlstest"
)

func init() {
	logger.SetGlobalLogger(logger.Nop())
}

func protoHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Trace", r.Header.Get("X-Trace"))
		_, _ = io.WriteString(w, r.Proto)
	})
}

func build(t *testing.T, configure func(b *client.Builder)) *client.Client {
	t.Helper()
	be := h2.New()
	t.Cleanup(func() { _ = be.Close() })
	b := client.NewBuilder(be)
	if configure != nil {
		configure(b)
	}
	c, err := b.Build()
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func get(t *testing.T, uri string) *client.Request {
	t.Helper()
	req, err := client.NewRequestBuilder().URI(uri).Build()
	require.NoError(t, err)
	return req
}

func await[T any](t *testing.T, f *client.Future[T]) (T, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return f.Await(ctx)
}

func TestCleartextPriorKnowledge(t *testing.T) {
	srv := httptest.NewServer(h2c.NewHandler(protoHandler(), &http2.Server{}))
	defer srv.Close()

	c := build(t, func(b *client.Builder) {
		b.AddOrReplaceInterceptor("trace", client.InterceptorFuncs{
			BeforeFunc: func(_ context.Context, rb *client.RequestBuilder) error {
				rb.Header("X-Trace", "1")
				return nil
			},
		})
	})
	resp, err := await(t, c.SendString(get(t, srv.URL)))
	require.NoError(t, err)
	assert.Equal(t, "HTTP/2.0", resp.Body)
	assert.Equal(t, "1", resp.Header.Get("X-Trace"))
}

func TestTLS_NegotiatesH2(t *testing.T) {
	certs := tlstest.GenerateTLSCerts(t)
	srv := httptest.NewUnstartedServer(protoHandler())
	srv.EnableHTTP2 = true
	srv.TLS = &tls.Config{Certificates: []tls.Certificate{certs.ServerTLS}}
	srv.StartTLS()
	defer srv.Close()

	c := build(t, func(b *client.Builder) {
		b.SSLContext(nil, []*x509.Certificate{certs.CACert}).PreferHTTP11()
	})
	resp, err := await(t, c.SendString(get(t, srv.URL)))
	require.NoError(t, err)
	assert.Equal(t, "HTTP/2.0", resp.Body, "prefer-http11 is advisory here")
}

func TestTLS_RejectsHTTP11OnlyServer(t *testing.T) {
	certs := tlstest.GenerateTLSCerts(t)
	srv := certs.NewTLSServer(t, protoHandler(), false)

	c := build(t, func(b *client.Builder) {
		b.SSLContext(nil, []*x509.Certificate{certs.CACert})
	})
	_, err := await(t, c.SendString(get(t, srv.URL)))
	require.Error(t, err)
	assert.True(t, errors.IsTransportFailure(err), "got %v", err)
}

func TestReadTimeout(t *testing.T) {
	srv := httptest.NewServer(h2c.NewHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(2 * time.Second):
		case <-r.Context().Done():
		}
	}), &http2.Server{}))
	defer srv.Close()

	c := build(t, func(b *client.Builder) { b.ReadTimeout(50 * time.Millisecond) })
	_, err := await(t, c.SendBytes(get(t, srv.URL)))
	require.Error(t, err)
	assert.True(t, errors.IsTimeout(err), "got %v", err)
}

func TestReadTimeout_StreamingBodyKeepsAlive(t *testing.T) {
	srv := httptest.NewServer(h2c.NewHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		flusher := w.(http.Flusher)
		for i := 0; i < 4; i++ {
			_, _ = io.WriteString(w, "tick\n")
			flusher.Flush()
			time.Sleep(30 * time.Millisecond)
		}
	}), &http2.Server{}))
	defer srv.Close()

	c := build(t, func(b *client.Builder) { b.ReadTimeout(200 * time.Millisecond).ForStreaming() })
	var n int
	_, err := await(t, c.ConsumeLines(get(t, srv.URL), func(string) error {
		n++
		return nil
	}))
	require.NoError(t, err)
	assert.Equal(t, 4, n)
}

func TestUnsupportedOptions(t *testing.T) {
	be := h2.New()
	defer be.Close()

	b := client.NewBuilder(be).ProxyAddress("proxy", 3128).ProxyAuthorization("Basic x")
	assert.True(t, errors.IsUnsupported(b.Err()))
	assert.Empty(t, b.State().ProxyAddress)

	c, err := client.NewBuilder(be).Build()
	require.NoError(t, err)
	defer c.Close()

	_, err = await(t, c.NewWebSocketBuilder().URI("ws://svc/").Connect(client.ListenerFuncs{}))
	assert.True(t, errors.IsUnsupported(err))

	req, err := client.NewRequestBuilder().URI("http://svc/").Post("text/plain", "x").ExpectContinue().Build()
	require.NoError(t, err)
	_, err = await(t, c.SendBytes(req))
	assert.True(t, errors.IsUnsupported(err))
}
