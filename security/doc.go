// Package security provides the TLS primitives used by httpkit clients.
//
// TLSMaterial is an immutable handle built from key material and trust
// material. Clients share it by reference; every transport derives its own
// *tls.Config from it.
//
//	mat, err := security.NewTLSMaterial(
//	    []tls.Certificate{clientCert},
//	    []*x509.Certificate{caCert},
//	)
//	tlsCfg := mat.ClientConfig([]security.TLSVersion{security.TLS13}, "")
//
// TLSConfig is the file-based form loaded from YAML or environment:
//
//	cfg := security.TLSConfig{
//	    CAFile:   "/path/to/ca.pem",
//	    CertFile: "/path/to/cert.pem",
//	    KeyFile:  "/path/to/key.pem",
//	}
//	mat, err := cfg.Material()
package security
