package security

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"
)

// TLSConfig is the file-based TLS configuration of a client.
type TLSConfig struct {
	// SkipVerify disables server certificate verification.
	// Not recommended for production.
	SkipVerify bool `yaml:"skip_verify" mapstructure:"skip_verify"`

	// CAFile is the path to a PEM bundle of trusted CA certificates.
	CAFile string `yaml:"ca_file" mapstructure:"ca_file"`

	// CertFile is the path to the client TLS certificate file (for mTLS).
	CertFile string `yaml:"cert_file" mapstructure:"cert_file"`

	// KeyFile is the path to the client TLS key file (for mTLS).
	KeyFile string `yaml:"key_file" mapstructure:"key_file"`

	// ServerName overrides the server name used for certificate verification.
	ServerName string `yaml:"server_name" mapstructure:"server_name"`

	// Versions lists acceptable protocol versions, e.g. ["TLSv1.2", "TLSv1.3"].
	Versions []string `yaml:"versions" mapstructure:"versions"`
}

// Material loads the configured files into a TLSMaterial.
// Returns nil if no key or trust setting is configured.
func (c *TLSConfig) Material() (*TLSMaterial, error) {
	if !c.IsEnabled() {
		return nil, nil
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}

	trust, err := c.loadCA()
	if err != nil {
		return nil, err
	}
	keys, err := c.loadClientCert()
	if err != nil {
		return nil, err
	}

	var opts []MaterialOption
	if c.SkipVerify {
		opts = append(opts, WithInsecureSkipVerify())
	}
	if c.ServerName != "" {
		opts = append(opts, WithServerName(c.ServerName))
	}
	return NewTLSMaterial(keys, trust, opts...)
}

// TLSVersions parses Versions.
func (c *TLSConfig) TLSVersions() ([]TLSVersion, error) {
	if c == nil {
		return nil, nil
	}
	out := make([]TLSVersion, 0, len(c.Versions))
	for _, s := range c.Versions {
		v, err := ParseTLSVersion(s)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// Validate checks that the TLS configuration is consistent.
func (c *TLSConfig) Validate() error {
	if c == nil {
		return nil
	}
	if (c.CertFile != "") != (c.KeyFile != "") {
		return fmt.Errorf("security/tls: both cert_file and key_file must be provided together")
	}
	if _, err := c.TLSVersions(); err != nil {
		return err
	}
	return nil
}

// IsEnabled returns true if any key or trust setting is configured.
func (c *TLSConfig) IsEnabled() bool {
	if c == nil {
		return false
	}
	return c.SkipVerify || c.CAFile != "" || c.CertFile != "" || c.ServerName != ""
}

func (c *TLSConfig) loadCA() ([]*x509.Certificate, error) {
	if c.CAFile == "" {
		return nil, nil
	}
	data, err := os.ReadFile(c.CAFile)
	if err != nil {
		return nil, fmt.Errorf("security/tls: failed to read CA file: %w", err)
	}
	certs, err := parseCertificates(data)
	if err != nil {
		return nil, err
	}
	if len(certs) == 0 {
		return nil, fmt.Errorf("security/tls: failed to parse CA certificate")
	}
	return certs, nil
}

func (c *TLSConfig) loadClientCert() ([]tls.Certificate, error) {
	if c.CertFile == "" {
		return nil, nil
	}
	cert, err := tls.LoadX509KeyPair(c.CertFile, c.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("security/tls: failed to load client certificate: %w", err)
	}
	return []tls.Certificate{cert}, nil
}

func parseCertificates(data []byte) ([]*x509.Certificate, error) {
	var certs []*x509.Certificate
	for {
		var block *pem.Block
		block, data = pem.Decode(data)
		if block == nil {
			return certs, nil
		}
		if block.Type != "CERTIFICATE" {
			continue
		}
		cert, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("security/tls: failed to parse CA certificate: %w", err)
		}
		certs = append(certs, cert)
	}
}
