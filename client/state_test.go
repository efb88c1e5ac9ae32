package client

import (
	"testing"
	"time"

	"github.com/kbukum/httpkit/resilience"
	"github.com/kbukum/httpkit/security"
)

func TestState_Clone(t *testing.T) {
	mat, err := security.NewTLSMaterial(nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s := NewState()
	s.ReadTimeout = time.Second
	s.TLS = mat
	s.TLSVersions = []security.TLSVersion{security.TLS12}
	s.Interceptors.AddOrReplace("a", named("a"))
	s.Retry = &resilience.RetryConfig{MaxAttempts: 2}

	c := s.Clone()
	c.Interceptors.AddOrReplace("b", named("b"))
	c.TLSVersions[0] = security.TLS13
	c.Retry.MaxAttempts = 9
	c.ReadTimeout = 0

	if s.Interceptors.Len() != 1 {
		t.Error("interceptor chain aliased")
	}
	if s.TLSVersions[0] != security.TLS12 {
		t.Error("TLS version list aliased")
	}
	if s.Retry.MaxAttempts != 2 {
		t.Error("retry config aliased")
	}
	if s.ReadTimeout != time.Second {
		t.Error("scalar aliased")
	}
	if c.TLS != s.TLS {
		t.Error("TLS handle must be shared by reference")
	}
}

func TestState_SharesTransportWith(t *testing.T) {
	base := NewState()
	base.ConnectTimeout = time.Second

	other := base.Clone()
	other.Interceptors.AddOrReplace("x", named("x"))
	other.MaxConcurrent = 4
	if !base.SharesTransportWith(other) {
		t.Error("interceptor and resilience changes must not force a new transport")
	}

	other.ProxyAddress = "proxy:3128"
	if base.SharesTransportWith(other) {
		t.Error("proxy change must force a new transport")
	}

	other = base.Clone()
	other.TLS, _ = security.NewTLSMaterial(nil, nil)
	if base.SharesTransportWith(other) {
		t.Error("TLS change must force a new transport")
	}
}
