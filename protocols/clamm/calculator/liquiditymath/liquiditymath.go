package liquiditymath

import (
	"math/big"

	"github.com/defistate/clamm-engine/protocols/clamm/clammerr"
	"github.com/defistate/clamm-engine/protocols/clamm/modular"
	"github.com/holiman/uint256"
)

var (
	// MaxInt128 and MinInt128 bound signed liquidity quantities.
	MaxInt128 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 127), big.NewInt(1))
	MinInt128 = new(big.Int).Neg(new(big.Int).Lsh(big.NewInt(1), 127))

	ErrLiquidityOverflow  = clammerr.New(clammerr.Arithmetic, "liquidity overflow")
	ErrLiquidityUnderflow = clammerr.New(clammerr.Arithmetic, "liquidity underflow")
)

// FitsInt128 reports whether x is a valid signed 128-bit value.
func FitsInt128(x *big.Int) bool {
	return x.Cmp(MinInt128) >= 0 && x.Cmp(MaxInt128) <= 0
}

// AddDelta adds a signed liquidity delta to an unsigned liquidity value,
// returning an error if the operation results in an overflow or underflow.
func AddDelta(x modular.Uint128, y *big.Int) (modular.Uint128, error) {
	if y.Sign() >= 0 {
		delta, ok := modular.Uint128FromBig(y)
		if !ok {
			return modular.Uint128{}, ErrLiquidityOverflow
		}
		sum, ok := x.CheckedAdd(delta)
		if !ok {
			return modular.Uint128{}, ErrLiquidityOverflow
		}
		return sum, nil
	}

	delta, ok := modular.Uint128FromBig(new(big.Int).Neg(y))
	if !ok {
		return modular.Uint128{}, ErrLiquidityUnderflow
	}
	diff, ok := x.CheckedSub(delta)
	if !ok {
		return modular.Uint128{}, ErrLiquidityUnderflow
	}
	return diff, nil
}

// AddNet returns x + y for signed 128-bit liquidity, failing with ErrLiquidityOverflow
// when the sum leaves the int128 range.
func AddNet(x, y *big.Int) (*big.Int, error) {
	sum := new(big.Int).Add(x, y)
	if !FitsInt128(sum) {
		return nil, ErrLiquidityOverflow
	}
	return sum, nil
}

// SubNet returns x - y for signed 128-bit liquidity, failing with ErrLiquidityUnderflow
// when the difference leaves the int128 range.
func SubNet(x, y *big.Int) (*big.Int, error) {
	diff := new(big.Int).Sub(x, y)
	if !FitsInt128(diff) {
		return nil, ErrLiquidityUnderflow
	}
	return diff, nil
}

// ToInt128 converts an unsigned liquidity amount to a signed delta.
func ToInt128(x *uint256.Int) (*big.Int, bool) {
	b := x.ToBig()
	return b, FitsInt128(b)
}
