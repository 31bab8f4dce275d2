package fullmath

import (
	"github.com/defistate/clamm-engine/protocols/clamm/clammerr"
	"github.com/holiman/uint256"
)

var (
	// Q128 is 2^128, the scale of the fee-growth accumulators.
	Q128 = new(uint256.Int).Lsh(uint256.NewInt(1), 128)
	// MaxUint256 is 2^256 - 1.
	MaxUint256 = new(uint256.Int).SetAllOne()

	ErrDenominatorIsZero  = clammerr.New(clammerr.Arithmetic, "denominator is zero")
	ErrResultTooWide      = clammerr.New(clammerr.Arithmetic, "denominator is less than or equal to the high half of the product")
	ErrResultIsMaxUint256 = clammerr.New(clammerr.Arithmetic, "rounded result overflows uint256")
)

// MulDiv writes floor(a*b/denominator) into z. The product is held at full 512-bit
// precision, so the call only fails when the quotient itself does not fit in 256 bits.
func MulDiv(z, a, b, denominator *uint256.Int) error {
	if denominator.IsZero() {
		return ErrDenominatorIsZero
	}
	if _, overflow := z.MulDivOverflow(a, b, denominator); overflow {
		return ErrResultTooWide
	}
	return nil
}

// MulDivRoundingUp writes ceil(a*b/denominator) into z.
func MulDivRoundingUp(z, a, b, denominator *uint256.Int) error {
	if denominator.IsZero() {
		return ErrDenominatorIsZero
	}
	var rem uint256.Int
	rem.MulMod(a, b, denominator)

	if err := MulDiv(z, a, b, denominator); err != nil {
		return err
	}
	if !rem.IsZero() {
		if z.Eq(MaxUint256) {
			return ErrResultIsMaxUint256
		}
		z.AddUint64(z, 1)
	}
	return nil
}

// MulMod writes (a*b) mod m into z, or zero when m is zero.
func MulMod(z, a, b, m *uint256.Int) *uint256.Int {
	if m.IsZero() {
		return z.Clear()
	}
	return z.MulMod(a, b, m)
}

// DivRoundingUp writes ceil(a/b) into z.
func DivRoundingUp(z, a, b *uint256.Int) error {
	if b.IsZero() {
		return ErrDenominatorIsZero
	}
	var rem uint256.Int
	rem.Mod(a, b)
	z.Div(a, b)
	if !rem.IsZero() {
		z.AddUint64(z, 1)
	}
	return nil
}
