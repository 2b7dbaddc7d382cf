package mesh

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
)

// HashLength is the length of a Hash in bytes.
const HashLength = 32

// Hash is a 32-byte SHA-256 digest: an SMT node hash, a leaf hash, a
// state root, or a message id.
type Hash [HashLength]byte

// ZeroHash is the all-zero hash, used as the sentinel "no value" result
// and as the empty-leaf hash Z[0] before the zero-hash table is built.
var ZeroHash Hash

// String renders the hash as a lowercase hex string without 0x prefix.
func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

// Bytes returns the hash as a byte slice.
func (h Hash) Bytes() []byte {
	return h[:]
}

// IsZero reports whether h is the all-zero hash.
func (h Hash) IsZero() bool {
	return h == ZeroHash
}

// Sum computes the SHA-256 digest of the concatenation of parts.
func Sum(parts ...[]byte) Hash {
	h := sha256.New()
	for _, p := range parts {
		h.Write(p)
	}
	var out Hash
	h.Sum(out[:0])
	return out
}

// ParseHash parses a hex-encoded hash, with or without a 0x prefix.
func ParseHash(s string) (Hash, error) {
	var h Hash
	s = strings.TrimPrefix(s, "0x")
	if len(s) != HashLength*2 {
		return h, errors.New("mesh: invalid hash length")
	}
	if _, err := hex.Decode(h[:], []byte(s)); err != nil {
		return h, err
	}
	return h, nil
}

// BytesToHash left-truncates or zero-extends b into a Hash.
func BytesToHash(b []byte) Hash {
	var h Hash
	if len(b) > HashLength {
		b = b[len(b)-HashLength:]
	}
	copy(h[HashLength-len(b):], b)
	return h
}

// MarshalJSON renders the hash as a quoted hex string.
func (h Hash) MarshalJSON() ([]byte, error) {
	return []byte(`"` + h.String() + `"`), nil
}

// UnmarshalJSON parses a quoted hex string into the hash.
func (h *Hash) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	parsed, err := ParseHash(s)
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}
