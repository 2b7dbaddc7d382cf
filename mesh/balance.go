package mesh

import (
	"encoding/binary"
	"errors"
	"math/big"

	"github.com/holiman/uint256"
)

// Balance is an unsigned 128-bit quantity. It is backed by
// holiman/uint256.Int (a 256-bit word) so that intermediate sums during
// conservation checks (Σ balances) can be computed with the library's
// overflow-checked arithmetic without ever wrapping silently; the value
// itself is asserted to stay within the 128-bit range the wire encoding
// allows.
type Balance struct {
	v uint256.Int
}

// maxBalance is 2^128 - 1, the largest value the wire encoding (a plain
// u128 little-endian field) can represent.
var maxBalance = func() uint256.Int {
	var m uint256.Int
	m.SetAllOne()
	m.Rsh(&m, 128)
	return m
}()

// ErrBalanceOverflow is returned by arithmetic that would leave a
// balance outside the representable 128-bit range.
var ErrBalanceOverflow = errors.New("mesh: balance overflows u128")

// NewBalance constructs a Balance from a uint64, which always fits.
func NewBalance(v uint64) Balance {
	var b Balance
	b.v.SetUint64(v)
	return b
}

// ZeroBalance is the additive identity.
var ZeroBalance = Balance{}

// Add returns a+b, or an error if the sum overflows 128 bits.
func (a Balance) Add(b Balance) (Balance, error) {
	var sum uint256.Int
	overflowed := sum.AddOverflow(&a.v, &b.v)
	if overflowed || sum.Gt(&maxBalance) {
		return Balance{}, ErrBalanceOverflow
	}
	return Balance{sum}, nil
}

// Sub returns a-b, or an error if b > a (this is the P3 "no negative
// balance" check: subtraction never wraps, it fails closed).
func (a Balance) Sub(b Balance) (Balance, error) {
	if a.v.Lt(&b.v) {
		return Balance{}, ErrBalanceOverflow
	}
	var diff uint256.Int
	diff.Sub(&a.v, &b.v)
	return Balance{diff}, nil
}

// Cmp compares two balances the way bytes.Compare does.
func (a Balance) Cmp(b Balance) int {
	return a.v.Cmp(&b.v)
}

// LessThan reports whether a < b.
func (a Balance) LessThan(b Balance) bool {
	return a.v.Lt(&b.v)
}

// IsZero reports whether the balance is zero.
func (a Balance) IsZero() bool {
	return a.v.IsZero()
}

// Bytes16 returns the little-endian 16-byte (u128) wire encoding.
func (a Balance) Bytes16() [16]byte {
	var out [16]byte
	b32 := a.v.Bytes32()
	// uint256.Bytes32 is big-endian; take the low 16 bytes and reverse.
	for i := 0; i < 16; i++ {
		out[i] = b32[31-i]
	}
	return out
}

// BalanceFromBytes16 decodes a little-endian 16-byte (u128) wire field.
func BalanceFromBytes16(b [16]byte) Balance {
	var be [32]byte
	for i := 0; i < 16; i++ {
		be[31-i] = b[i]
	}
	var bal Balance
	bal.v.SetBytes(be[:])
	return bal
}

// Uint64 returns the balance truncated to a uint64; used only for
// display and for the conflict-score's Σ balances mod M term, which is
// explicitly advisory (see the state engine's conflict score).
func (a Balance) Uint64() uint64 {
	return a.v.Uint64()
}

// BalanceFromBigInt converts a big.Int amount read off an external
// chain's event log into a Balance, rejecting anything outside the
// 128-bit wire range.
func BalanceFromBigInt(v *big.Int) (Balance, error) {
	var bal Balance
	if bal.v.SetFromBig(v) {
		return Balance{}, ErrBalanceOverflow
	}
	if bal.v.Cmp(&maxBalance) > 0 {
		return Balance{}, ErrBalanceOverflow
	}
	return bal, nil
}

// String renders the balance in base 10.
func (a Balance) String() string {
	return a.v.ToBig().String()
}

// MarshalJSON renders the balance as a decimal-string JSON value, since
// u128 values do not fit a JSON number losslessly.
func (a Balance) MarshalJSON() ([]byte, error) {
	return []byte(`"` + a.String() + `"`), nil
}

// UnmarshalJSON parses a decimal-string JSON value into the balance.
func (a *Balance) UnmarshalJSON(data []byte) error {
	s := string(data)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	bi, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return errors.New("mesh: invalid balance literal")
	}
	if bi.Sign() < 0 {
		return errors.New("mesh: negative balance")
	}
	var v uint256.Int
	overflow := v.SetFromBig(bi)
	if overflow {
		return ErrBalanceOverflow
	}
	a.v = v
	return nil
}

// putUint128LE writes v as a little-endian u128 into dst[:16].
func putUint128LE(dst []byte, v Balance) {
	b := v.Bytes16()
	copy(dst, b[:])
}

// putUint64LE is a small helper mirroring the wire layouts' endianness
// rule for the remaining fixed-width integer fields.
func putUint64LE(dst []byte, v uint64) {
	binary.LittleEndian.PutUint64(dst, v)
}
