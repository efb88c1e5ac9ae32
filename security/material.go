package security

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"slices"
)

// TLSMaterial is an immutable set of client certificates and trust anchors.
// A nil *TLSMaterial means "use the system defaults".
type TLSMaterial struct {
	certificates []tls.Certificate
	trust        []*x509.Certificate
	pool         *x509.CertPool
	skipVerify   bool
	serverName   string
}

// MaterialOption adjusts a TLSMaterial during construction.
type MaterialOption func(*TLSMaterial)

// WithInsecureSkipVerify disables server certificate verification.
func WithInsecureSkipVerify() MaterialOption {
	return func(m *TLSMaterial) { m.skipVerify = true }
}

// WithServerName overrides the name used for certificate verification.
func WithServerName(name string) MaterialOption {
	return func(m *TLSMaterial) { m.serverName = name }
}

// NewTLSMaterial builds a TLSMaterial from key material and trust material.
// The input slices are copied and never modified.
func NewTLSMaterial(keys []tls.Certificate, trust []*x509.Certificate, opts ...MaterialOption) (*TLSMaterial, error) {
	for i, k := range keys {
		if len(k.Certificate) == 0 {
			return nil, fmt.Errorf("security/tls: key material %d has no certificate chain", i)
		}
		if k.PrivateKey == nil {
			return nil, fmt.Errorf("security/tls: key material %d has no private key", i)
		}
	}
	m := &TLSMaterial{
		certificates: slices.Clone(keys),
		trust:        slices.Clone(trust),
	}
	if len(trust) > 0 {
		m.pool = x509.NewCertPool()
		for i, c := range trust {
			if c == nil {
				return nil, fmt.Errorf("security/tls: trust material %d is nil", i)
			}
			m.pool.AddCert(c)
		}
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Certificates returns a copy of the client certificates.
func (m *TLSMaterial) Certificates() []tls.Certificate {
	if m == nil {
		return nil
	}
	return slices.Clone(m.certificates)
}

// Trust returns a copy of the trust anchors.
func (m *TLSMaterial) Trust() []*x509.Certificate {
	if m == nil {
		return nil
	}
	return slices.Clone(m.trust)
}

// ClientConfig returns a fresh *tls.Config restricted to versions. serverName
// is used when the material does not override it. A nil receiver yields a
// config carrying only the version range, or nil when that is empty too.
func (m *TLSMaterial) ClientConfig(versions []TLSVersion, serverName string) *tls.Config {
	minID, maxID := VersionRange(versions)
	if m == nil && minID == 0 {
		return nil
	}
	cfg := &tls.Config{
		MinVersion: tls.VersionTLS12,
		ServerName: serverName,
	}
	if minID != 0 {
		cfg.MinVersion, cfg.MaxVersion = minID, maxID
	}
	if m == nil {
		return cfg
	}
	cfg.Certificates = slices.Clone(m.certificates)
	cfg.RootCAs = m.pool
	cfg.InsecureSkipVerify = m.skipVerify
	if m.serverName != "" {
		cfg.ServerName = m.serverName
	}
	return cfg
}
