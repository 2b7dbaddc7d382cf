// Package mesh holds the small value types shared across the whole
// repository: account addresses, hashes, token ids and the hex
// presentation rules used on the wire and in the JSON-RPC surface.
package mesh

import (
	"encoding/hex"
	"errors"
	"strings"
)

// AddressLength is the length of an Address in bytes. Addresses are the
// raw Ed25519 public key of the account owner.
const AddressLength = 32

// Address identifies an account. It is the 32-byte Ed25519 public key of
// the account's owner.
type Address [AddressLength]byte

// Treasury is the all-zero address, which the devnet genesis names as
// the native token's issuer (the mint authority for token id 0).
var Treasury Address

// String implements fmt.Stringer, rendering the address as a lowercase
// hex string without a 0x prefix.
func (a Address) String() string {
	return hex.EncodeToString(a[:])
}

// Bytes returns the address as a byte slice.
func (a Address) Bytes() []byte {
	return a[:]
}

// IsZero reports whether a is the treasury address.
func (a Address) IsZero() bool {
	return a == Treasury
}

// ParseAddress parses a hex-encoded address, with or without a 0x prefix.
func ParseAddress(s string) (Address, error) {
	var a Address
	s = strings.TrimPrefix(s, "0x")
	if len(s) != AddressLength*2 {
		return a, errors.New("mesh: invalid address length")
	}
	if _, err := hex.Decode(a[:], []byte(s)); err != nil {
		return a, err
	}
	return a, nil
}

// MustParseAddress is ParseAddress, panicking on error. Intended for use
// with compile-time-known literals (tests, genesis constants).
func MustParseAddress(s string) Address {
	a, err := ParseAddress(s)
	if err != nil {
		panic(err)
	}
	return a
}

// BytesToAddress left-truncates or zero-extends b into an Address.
func BytesToAddress(b []byte) Address {
	var a Address
	if len(b) > AddressLength {
		b = b[len(b)-AddressLength:]
	}
	copy(a[AddressLength-len(b):], b)
	return a
}

// MarshalJSON renders the address as a quoted hex string.
func (a Address) MarshalJSON() ([]byte, error) {
	return []byte(`"` + a.String() + `"`), nil
}

// UnmarshalJSON parses a quoted hex string into the address.
func (a *Address) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	parsed, err := ParseAddress(s)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
