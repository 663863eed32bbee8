package ir

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
)

// Domain prefixes for derived key fingerprints.
// Version suffix enables future algorithm migration.
const (
	DomainObjectKey = "lineage/object-key/v1"
	DomainProperty  = "lineage/property/v1"
)

// hashWithDomain computes SHA-256 with domain separation.
// Format: SHA256(domain + 0x00 + len(part0) + part0 + len(part1) + part1 ...)
// Each part is prefixed with its big-endian uint64 length, so parts may
// contain any byte, NUL included.
func hashWithDomain(domain string, parts ...string) [sha256.Size]byte {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	var n [8]byte
	for _, p := range parts {
		binary.BigEndian.PutUint64(n[:], uint64(len(p)))
		h.Write(n[:])
		h.Write([]byte(p))
	}
	var sum [sha256.Size]byte
	copy(sum[:], h.Sum(nil))
	return sum
}

// KeyFingerprint returns a fixed-width digest of a normalized object key.
// Key-value backends use it to build bounded index keys for arbitrarily long names.
func KeyFingerprint(k ObjectKey) [sha256.Size]byte {
	k = k.Normalize()
	return hashWithDomain(DomainObjectKey, k.Originator, k.Name, k.Type)
}

// PropertyFingerprint returns a fixed-width digest of a (key, value) pair.
func PropertyFingerprint(key, value string) [sha256.Size]byte {
	return hashWithDomain(DomainProperty, Normalize(key), value)
}

// FingerprintHex renders a fingerprint for logs and diagnostics.
func FingerprintHex(sum [sha256.Size]byte) string {
	return hex.EncodeToString(sum[:])
}
