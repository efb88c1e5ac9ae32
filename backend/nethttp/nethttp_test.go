package nethttp_test

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kbukum/httpkit/backend/nethttp"
	"github.com/kbukum/httpkit/client"
	"github.com/kbukum/httpkit/errors"
	"github.com/kbukum/httpkit/logger"
	"github.com/kbukum/httpkit/security"
	"github.com/kbukum/httpkit/security/tlstest"
)

func init() {
	gin.SetMode(gin.TestMode)
	logger.SetGlobalLogger(logger.Nop())
}

func newClient(t *testing.T, configure func(b *client.Builder)) *client.Client {
	t.Helper()
	be := nethttp.New()
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

func detail(err error, key string) string {
	if appErr, ok := errors.AsAppError(err); ok {
		return appErr.Detail(key)
	}
	return ""
}

func TestEndToEnd_GinEndpoint(t *testing.T) {
	r := gin.New()
	r.GET("/status", func(c *gin.Context) {
		c.Header("X-Seen", c.GetHeader("X-Trace"))
		c.String(http.StatusOK, `{"status":"ok"}`)
	})
	srv := httptest.NewServer(r)
	defer srv.Close()

	c := newClient(t, func(b *client.Builder) {
		b.ConnectTimeout(5*time.Second).AddOrReplaceInterceptor("trace", client.InterceptorFuncs{
			BeforeFunc: func(_ context.Context, rb *client.RequestBuilder) error {
				rb.Header("X-Trace", "1")
				return nil
			},
		})
	})

	resp, err := await(t, c.SendString(get(t, srv.URL+"/status")))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, `{"status":"ok"}`, resp.Body)
	assert.Equal(t, "1", resp.Header.Get("X-Seen"))
}

func TestSend_PostBodies(t *testing.T) {
	r := gin.New()
	r.POST("/echo", func(c *gin.Context) {
		data, _ := io.ReadAll(c.Request.Body)
		c.Header("X-Length", strconv.FormatInt(c.Request.ContentLength, 10))
		c.Data(http.StatusOK, c.ContentType(), data)
	})
	srv := httptest.NewServer(r)
	defer srv.Close()
	c := newClient(t, nil)

	req, err := client.NewRequestBuilder().URI(srv.URL+"/echo").Post("application/json", `{"a":1}`).Build()
	require.NoError(t, err)
	resp, err := await(t, c.SendString(req))
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, resp.Body)
	assert.Equal(t, "7", resp.Header.Get("X-Length"))

	streamed, err := client.NewRequestBuilder().URI(srv.URL+"/echo").
		Stream(http.MethodPost, "text/plain", strings.NewReader("streamed"), -1).
		ExpectContinue().
		Build()
	require.NoError(t, err)
	resp, err = await(t, c.SendString(streamed))
	require.NoError(t, err)
	assert.Equal(t, "streamed", resp.Body)
}

func TestReadTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(2 * time.Second):
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()

	c := newClient(t, func(b *client.Builder) { b.ReadTimeout(50 * time.Millisecond) })
	_, err := await(t, c.SendBytes(get(t, srv.URL)))
	require.Error(t, err)
	assert.True(t, errors.IsTimeout(err), "got %v", err)
	assert.True(t, errors.IsTransportFailure(err))
	assert.Equal(t, errors.PhaseRead, detail(err, errors.DetailPhase))
}

func TestConnectionRefused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	c := newClient(t, func(b *client.Builder) { b.ConnectTimeout(time.Second) })
	_, err = await(t, c.SendBytes(get(t, "http://"+addr+"/")))
	assert.True(t, errors.IsTransportFailure(err), "got %v", err)
	assert.Equal(t, errors.ReasonRefused, detail(err, errors.DetailReason))
}

func TestRedirects(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/old", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/new", http.StatusFound)
	})
	mux.HandleFunc("/new", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "moved")
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	plain := newClient(t, nil)
	resp, err := await(t, plain.SendString(get(t, srv.URL+"/old")))
	require.NoError(t, err)
	assert.Equal(t, http.StatusFound, resp.StatusCode)

	following := newClient(t, func(b *client.Builder) { b.FollowAllRedirects() })
	resp, err = await(t, following.SendString(get(t, srv.URL+"/old")))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "moved", resp.Body)
}

func TestAuthenticatorNone_StripsUserinfo(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, r.Header.Get("Authorization"))
	}))
	defer srv.Close()
	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	u.User = url.UserPassword("alice", "secret")

	resp, err := await(t, newClient(t, nil).SendString(get(t, u.String())))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(resp.Body, "Basic "))

	resp, err = await(t, newClient(t, func(b *client.Builder) { b.AuthenticatorNone() }).SendString(get(t, u.String())))
	require.NoError(t, err)
	assert.Empty(t, resp.Body)
}

func TestConsumeLines_Streaming(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		flusher := w.(http.Flusher)
		for i := 0; i < 3; i++ {
			fmt.Fprintf(w, "event-%d\n", i)
			flusher.Flush()
		}
	}))
	defer srv.Close()

	c := newClient(t, func(b *client.Builder) { b.ForStreaming() })
	var lines []string
	resp, err := await(t, c.ConsumeLines(get(t, srv.URL), func(line string) error {
		lines = append(lines, line)
		return nil
	}))
	require.NoError(t, err)
	assert.Equal(t, []string{"event-0", "event-1", "event-2"}, lines)
	assert.Equal(t, 3, resp.Body.Chunks)
}

func TestProxy_PlainHTTP(t *testing.T) {
	proxy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Proxy-Auth", r.Header.Get("Proxy-Authorization"))
		_, _ = io.WriteString(w, r.RequestURI)
	}))
	defer proxy.Close()
	host, portStr, err := net.SplitHostPort(strings.TrimPrefix(proxy.URL, "http://"))
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	c := newClient(t, func(b *client.Builder) {
		b.ProxyAddress(host, port).ProxyAuthorization("Basic cHJveHk6cHc=")
	})
	resp, err := await(t, c.SendString(get(t, "http://upstream.example/path?q=1")))
	require.NoError(t, err)
	assert.Equal(t, "http://upstream.example/path?q=1", resp.Body)
	assert.Equal(t, "Basic cHJveHk6cHc=", resp.Header.Get("X-Proxy-Auth"))
}

func TestTLS_TrustAndVersions(t *testing.T) {
	certs := tlstest.GenerateTLSCerts(t)
	srv := certs.NewTLSServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, tls.VersionName(r.TLS.Version))
	}), false)

	_, err := await(t, newClient(t, nil).SendString(get(t, srv.URL)))
	assert.True(t, errors.IsTransportFailure(err))
	assert.Equal(t, errors.ReasonTLS, detail(err, errors.DetailReason))
	assert.False(t, errors.IsRetryable(err))

	c := newClient(t, func(b *client.Builder) {
		b.SSLContext(nil, []*x509.Certificate{certs.CACert}).TLSVersions(security.TLS13)
	})
	resp, err := await(t, c.SendString(get(t, srv.URL)))
	require.NoError(t, err)
	assert.Equal(t, "TLS 1.3", resp.Body)
}

func TestTLS_ClientCertificate(t *testing.T) {
	certs := tlstest.GenerateTLSCerts(t)
	srv := certs.NewTLSServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, strconv.Itoa(len(r.TLS.PeerCertificates)))
	}), true)

	c := newClient(t, func(b *client.Builder) {
		b.SSLContext([]tls.Certificate{certs.ServerTLS}, []*x509.Certificate{certs.CACert})
	})
	resp, err := await(t, c.SendString(get(t, srv.URL)))
	require.NoError(t, err)
	assert.Equal(t, "1", resp.Body)
}

func TestHTTP2_Negotiation(t *testing.T) {
	certs := tlstest.GenerateTLSCerts(t)
	srv := httptest.NewUnstartedServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, r.Proto)
	}))
	srv.EnableHTTP2 = true
	srv.TLS = &tls.Config{Certificates: []tls.Certificate{certs.ServerTLS}}
	srv.StartTLS()
	defer srv.Close()

	trust := []*x509.Certificate{certs.CACert}
	resp, err := await(t, newClient(t, func(b *client.Builder) { b.SSLContext(nil, trust) }).SendString(get(t, srv.URL)))
	require.NoError(t, err)
	assert.Equal(t, "HTTP/2.0", resp.Body)

	resp, err = await(t, newClient(t, func(b *client.Builder) { b.SSLContext(nil, trust).PreferHTTP11() }).SendString(get(t, srv.URL)))
	require.NoError(t, err)
	assert.Equal(t, "HTTP/1.1", resp.Body)
}

func TestBackendClose_ReleasesTransports(t *testing.T) {
	be := nethttp.New()
	c, err := client.NewBuilder(be).Build()
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, be.Close())
	require.NoError(t, be.Close())

	_, err = await(t, c.SendBytes(get(t, "http://127.0.0.1:1/")))
	assert.True(t, errors.IsClientClosed(err), "got %v", err)

	_, err = client.NewBuilder(be).Build()
	assert.True(t, errors.IsClientClosed(err))
}
