// Package modular provides the fixed-width unsigned integers the ledgers accumulate into.
//
// Uint256 arithmetic is modulo 2^256 and is used for fee-growth accumulators, which are
// allowed to wrap. Uint128 arithmetic is modulo 2^128 and is used for owed-fee balances;
// its Checked variants report overflow instead and back every quantity that must not wrap
// (liquidity, protocol fees). Both types are plain values and safe to copy.
package modular

import (
	"math/big"

	"github.com/holiman/uint256"
)

var mask128 = new(uint256.Int).Sub(new(uint256.Int).Lsh(uint256.NewInt(1), 128), uint256.NewInt(1))

// MaxUint128 is 2^128 - 1.
var MaxUint128 = Uint128{v: *mask128}

// Uint256 is an unsigned 256-bit integer whose Add and Sub wrap modulo 2^256.
type Uint256 struct {
	v uint256.Int
}

// NewUint256 copies x.
func NewUint256(x *uint256.Int) Uint256 {
	return Uint256{v: *x}
}

// Uint256From64 returns x as a Uint256.
func Uint256From64(x uint64) Uint256 {
	var u Uint256
	u.v.SetUint64(x)
	return u
}

// Add returns a + b mod 2^256.
func (a Uint256) Add(b Uint256) Uint256 {
	var r Uint256
	r.v.Add(&a.v, &b.v)
	return r
}

// Sub returns a - b mod 2^256.
func (a Uint256) Sub(b Uint256) Uint256 {
	var r Uint256
	r.v.Sub(&a.v, &b.v)
	return r
}

// CheckedSub returns a - b and false when the subtraction would borrow.
func (a Uint256) CheckedSub(b Uint256) (Uint256, bool) {
	var r Uint256
	if _, borrow := r.v.SubOverflow(&a.v, &b.v); borrow {
		return Uint256{}, false
	}
	return r, true
}

// Int returns a fresh copy of the value.
func (a Uint256) Int() *uint256.Int {
	return new(uint256.Int).Set(&a.v)
}

func (a Uint256) Big() *big.Int {
	return a.v.ToBig()
}

func (a Uint256) IsZero() bool {
	return a.v.IsZero()
}

func (a Uint256) Cmp(b Uint256) int {
	return a.v.Cmp(&b.v)
}

func (a Uint256) Eq(b Uint256) bool {
	return a.v.Eq(&b.v)
}

// Bytes32 returns the big-endian encoding.
func (a Uint256) Bytes32() [32]byte {
	return a.v.Bytes32()
}

// Uint256FromBytes32 decodes a big-endian word.
func Uint256FromBytes32(b [32]byte) Uint256 {
	var u Uint256
	u.v.SetBytes32(b[:])
	return u
}

func (a Uint256) String() string {
	return a.v.Dec()
}

// Uint128 is an unsigned 128-bit integer. Add and Sub wrap modulo 2^128.
type Uint128 struct {
	v uint256.Int
}

// NewUint128 copies x, reporting false when x does not fit in 128 bits.
func NewUint128(x *uint256.Int) (Uint128, bool) {
	if x.Gt(mask128) {
		return Uint128{}, false
	}
	return Uint128{v: *x}, true
}

// TruncateUint128 returns x mod 2^128.
func TruncateUint128(x *uint256.Int) Uint128 {
	var u Uint128
	u.v.And(x, mask128)
	return u
}

// Uint128From64 returns x as a Uint128.
func Uint128From64(x uint64) Uint128 {
	var u Uint128
	u.v.SetUint64(x)
	return u
}

// Uint128FromBig converts x, reporting false when x is negative or does not fit in 128 bits.
func Uint128FromBig(x *big.Int) (Uint128, bool) {
	if x.Sign() < 0 || x.BitLen() > 128 {
		return Uint128{}, false
	}
	var u Uint128
	u.v.SetFromBig(x)
	return u, true
}

// Add returns a + b mod 2^128.
func (a Uint128) Add(b Uint128) Uint128 {
	var r Uint128
	r.v.Add(&a.v, &b.v)
	r.v.And(&r.v, mask128)
	return r
}

// Sub returns a - b mod 2^128.
func (a Uint128) Sub(b Uint128) Uint128 {
	var r Uint128
	r.v.Sub(&a.v, &b.v)
	r.v.And(&r.v, mask128)
	return r
}

// CheckedAdd returns a + b and false when the sum does not fit in 128 bits.
func (a Uint128) CheckedAdd(b Uint128) (Uint128, bool) {
	var r Uint128
	r.v.Add(&a.v, &b.v)
	if r.v.Gt(mask128) {
		return Uint128{}, false
	}
	return r, true
}

// CheckedSub returns a - b and false when b > a.
func (a Uint128) CheckedSub(b Uint128) (Uint128, bool) {
	if a.v.Lt(&b.v) {
		return Uint128{}, false
	}
	var r Uint128
	r.v.Sub(&a.v, &b.v)
	return r, true
}

// Min returns the smaller of a and b.
func (a Uint128) Min(b Uint128) Uint128 {
	if b.v.Lt(&a.v) {
		return b
	}
	return a
}

// Int returns a fresh copy of the value.
func (a Uint128) Int() *uint256.Int {
	return new(uint256.Int).Set(&a.v)
}

func (a Uint128) Big() *big.Int {
	return a.v.ToBig()
}

func (a Uint128) IsZero() bool {
	return a.v.IsZero()
}

func (a Uint128) Cmp(b Uint128) int {
	return a.v.Cmp(&b.v)
}

func (a Uint128) Eq(b Uint128) bool {
	return a.v.Eq(&b.v)
}

// Bytes16 returns the big-endian encoding.
func (a Uint128) Bytes16() [16]byte {
	var out [16]byte
	full := a.v.Bytes32()
	copy(out[:], full[16:])
	return out
}

// Uint128FromBytes16 decodes a big-endian half word.
func Uint128FromBytes16(b []byte) Uint128 {
	var u Uint128
	u.v.SetBytes(b[:16])
	return u
}

func (a Uint128) String() string {
	return a.v.Dec()
}
