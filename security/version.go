package security

import (
	"crypto/tls"
	"fmt"
	"slices"
	"strings"
)

// TLSVersion names a TLS protocol version.
type TLSVersion string

const (
	TLS10 TLSVersion = "TLSv1.0"
	TLS11 TLSVersion = "TLSv1.1"
	TLS12 TLSVersion = "TLSv1.2"
	TLS13 TLSVersion = "TLSv1.3"
)

var versionIDs = map[TLSVersion]uint16{
	TLS10: tls.VersionTLS10,
	TLS11: tls.VersionTLS11,
	TLS12: tls.VersionTLS12,
	TLS13: tls.VersionTLS13,
}

// ParseTLSVersion accepts "TLSv1.2", "1.2", "tls1.2" and similar spellings.
func ParseTLSVersion(s string) (TLSVersion, error) {
	norm := strings.ToLower(strings.TrimSpace(s))
	norm = strings.TrimPrefix(norm, "tlsv")
	norm = strings.TrimPrefix(norm, "tls")
	v := TLSVersion("TLSv" + norm)
	if _, ok := versionIDs[v]; !ok {
		return "", fmt.Errorf("security/tls: unknown TLS version %q", s)
	}
	return v, nil
}

// ID returns the crypto/tls constant, or 0 when unknown.
func (v TLSVersion) ID() uint16 { return versionIDs[v] }

// Valid reports whether v is a known version.
func (v TLSVersion) Valid() bool { return v.ID() != 0 }

// VersionRange returns the lowest and highest protocol ids in versions.
// Both are 0 when versions is empty.
func VersionRange(versions []TLSVersion) (minID, maxID uint16) {
	ids := make([]uint16, 0, len(versions))
	for _, v := range versions {
		if id := v.ID(); id != 0 {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return 0, 0
	}
	return slices.Min(ids), slices.Max(ids)
}

// Contiguous reports whether versions leave no gap between their lowest
// and highest member. crypto/tls only negotiates a min..max range, so a
// set such as {1.0, 1.3} cannot be honored as given.
func Contiguous(versions []TLSVersion) bool {
	minID, maxID := VersionRange(versions)
	if minID == 0 {
		return true
	}
	ids := make(map[uint16]bool, len(versions))
	for _, v := range versions {
		ids[v.ID()] = true
	}
	for id := minID; id <= maxID; id++ {
		if !ids[id] {
			return false
		}
	}
	return true
}
