package mol

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed digests.
// Version suffix enables future algorithm migration.
const (
	DomainDocument = "molbuild/document/v1"
	DomainFilter   = "molbuild/filter/v1"
)

// hashWithDomain computes SHA-256 with domain separation.
// Format: SHA256(domain + 0x00 + data)
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// ContentHash computes the digest of a document's content. The pass stamp
// is excluded, so re-deriving a document from identical inputs yields the
// same digest on every pass.
func ContentHash(d *Document) (string, error) {
	m := d.Map()
	delete(m, KeyBuiltAt)
	canonical, err := MarshalCanonical(m)
	if err != nil {
		return "", fmt.Errorf("ContentHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainDocument, canonical), nil
}

// ValueHash computes a domain-separated digest of any canonical value.
func ValueHash(domain string, v any) (string, error) {
	canonical, err := MarshalCanonical(v)
	if err != nil {
		return "", fmt.Errorf("ValueHash: failed to marshal: %w", err)
	}
	return hashWithDomain(domain, canonical), nil
}
