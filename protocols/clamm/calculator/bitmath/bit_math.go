package bitmath

import (
	"math/bits"

	"github.com/defistate/clamm-engine/protocols/clamm/clammerr"
	"github.com/holiman/uint256"
)

var (
	// ErrInputIsZero is returned when a function requires a non-zero input but receives zero.
	ErrInputIsZero = clammerr.New(clammerr.Arithmetic, "input must be greater than zero")
	// ErrInputIsNil is returned when a function receives a nil pointer.
	ErrInputIsNil = clammerr.New(clammerr.Arithmetic, "input cannot be nil")
)

// MostSignificantBit returns the index of the most significant bit of x,
// where the least significant bit is at index 0.
//
// The function satisfies the property: x >= 2**msb(x) and x < 2**(msb(x)+1)
func MostSignificantBit(x *uint256.Int) (uint8, error) {
	if x == nil {
		return 0, ErrInputIsNil
	}
	if x.IsZero() {
		return 0, ErrInputIsZero
	}
	return uint8(x.BitLen() - 1), nil
}

// LeastSignificantBit returns the index of the least significant bit of x.
//
// The function satisfies the property: (x & 2**lsb(x)) != 0
func LeastSignificantBit(x *uint256.Int) (uint8, error) {
	if x == nil {
		return 0, ErrInputIsNil
	}
	if x.IsZero() {
		return 0, ErrInputIsZero
	}

	// uint256.Int stores four little-endian 64-bit limbs.
	for i, word := range *x {
		if word != 0 {
			return uint8(i*64 + bits.TrailingZeros64(word)), nil
		}
	}
	return 0, ErrInputIsZero
}
