package sqrtpricemath

import (
	"math/big"
	"sync"

	"github.com/defistate/clamm-engine/protocols/clamm/calculator/fullmath"
	"github.com/defistate/clamm-engine/protocols/clamm/clammerr"
	"github.com/defistate/clamm-engine/protocols/clamm/modular"
	"github.com/holiman/uint256"
)

var (
	// Q96 is the UQ64.96 fixed-point number representing 1.
	Q96 = new(uint256.Int).Lsh(uint256.NewInt(1), 96)
	// Resolution is the number of bits in the Q96 format.
	Resolution = uint(96)
	// MaxUint160 bounds every sqrt price.
	MaxUint160 = new(uint256.Int).Sub(new(uint256.Int).Lsh(uint256.NewInt(1), 160), uint256.NewInt(1))

	ErrLiquidityZero          = clammerr.New(clammerr.Arithmetic, "liquidity must be greater than zero")
	ErrSqrtPriceZero          = clammerr.New(clammerr.Arithmetic, "sqrt price must be greater than zero")
	ErrProductDivAmount       = clammerr.New(clammerr.Arithmetic, "product overflow or denominator underflow")
	ErrSqrtPriceOverflow      = clammerr.New(clammerr.Arithmetic, "sqrt price does not fit in 160 bits")
	ErrSqrtPriceLteQuotient   = clammerr.New(clammerr.Arithmetic, "sqrt price must be greater than quotient")
	ErrLiquidityAmountTooWide = clammerr.New(clammerr.Arithmetic, "liquidity for amount does not fit in 128 bits")
)

// SqrtPriceMath holds reusable scratch integers.
// Instances are managed by a sync.Pool for safe concurrent use.
type SqrtPriceMath struct {
	product     uint256.Int
	numerator1  uint256.Int
	numerator2  uint256.Int
	denominator uint256.Int
	quotient    uint256.Int
	term        uint256.Int
}

var pool = sync.Pool{
	New: func() any {
		return new(SqrtPriceMath)
	},
}

// GetNextSqrtPriceFromAmount0RoundingUp calculates the next sqrt price given a delta of token0.
func GetNextSqrtPriceFromAmount0RoundingUp(dest, sqrtPX96, liquidity, amount *uint256.Int, add bool) error {
	s := pool.Get().(*SqrtPriceMath)
	defer pool.Put(s)
	return s.getNextSqrtPriceFromAmount0RoundingUp(dest, sqrtPX96, liquidity, amount, add)
}

// GetNextSqrtPriceFromAmount1RoundingDown calculates the next sqrt price given a delta of token1.
func GetNextSqrtPriceFromAmount1RoundingDown(dest, sqrtPX96, liquidity, amount *uint256.Int, add bool) error {
	s := pool.Get().(*SqrtPriceMath)
	defer pool.Put(s)
	return s.getNextSqrtPriceFromAmount1RoundingDown(dest, sqrtPX96, liquidity, amount, add)
}

// GetNextSqrtPriceFromInput calculates the next sqrt price given an input amount.
func GetNextSqrtPriceFromInput(dest, sqrtPX96, liquidity, amountIn *uint256.Int, zeroForOne bool) error {
	if sqrtPX96.IsZero() {
		return ErrSqrtPriceZero
	}
	if liquidity.IsZero() {
		return ErrLiquidityZero
	}

	if zeroForOne {
		return GetNextSqrtPriceFromAmount0RoundingUp(dest, sqrtPX96, liquidity, amountIn, true)
	}
	return GetNextSqrtPriceFromAmount1RoundingDown(dest, sqrtPX96, liquidity, amountIn, true)
}

// GetNextSqrtPriceFromOutput calculates the next sqrt price given an output amount.
func GetNextSqrtPriceFromOutput(dest, sqrtPX96, liquidity, amountOut *uint256.Int, zeroForOne bool) error {
	if sqrtPX96.IsZero() {
		return ErrSqrtPriceZero
	}
	if liquidity.IsZero() {
		return ErrLiquidityZero
	}

	if zeroForOne {
		return GetNextSqrtPriceFromAmount1RoundingDown(dest, sqrtPX96, liquidity, amountOut, false)
	}
	return GetNextSqrtPriceFromAmount0RoundingUp(dest, sqrtPX96, liquidity, amountOut, false)
}

// GetAmount0Delta calculates the amount0 delta between two prices.
func GetAmount0Delta(dest, sqrtRatioAX96, sqrtRatioBX96, liquidity *uint256.Int, roundUp bool) error {
	s := pool.Get().(*SqrtPriceMath)
	defer pool.Put(s)
	return s.getAmount0Delta(dest, sqrtRatioAX96, sqrtRatioBX96, liquidity, roundUp)
}

// GetAmount1Delta calculates the amount1 delta between two prices.
func GetAmount1Delta(dest, sqrtRatioAX96, sqrtRatioBX96, liquidity *uint256.Int, roundUp bool) error {
	s := pool.Get().(*SqrtPriceMath)
	defer pool.Put(s)
	return s.getAmount1Delta(dest, sqrtRatioAX96, sqrtRatioBX96, liquidity, roundUp)
}

// GetAmount0DeltaSigned returns the token0 amount owed for a signed liquidity change.
// Adding liquidity rounds up and yields a positive amount (owed to the pool), removing
// rounds down and yields a negative one.
func GetAmount0DeltaSigned(sqrtRatioAX96, sqrtRatioBX96 *uint256.Int, liquidity *big.Int) (*big.Int, error) {
	return signedDelta(GetAmount0Delta, sqrtRatioAX96, sqrtRatioBX96, liquidity)
}

// GetAmount1DeltaSigned is the token1 counterpart of GetAmount0DeltaSigned.
func GetAmount1DeltaSigned(sqrtRatioAX96, sqrtRatioBX96 *uint256.Int, liquidity *big.Int) (*big.Int, error) {
	return signedDelta(GetAmount1Delta, sqrtRatioAX96, sqrtRatioBX96, liquidity)
}

func signedDelta(
	delta func(dest, a, b, liquidity *uint256.Int, roundUp bool) error,
	a, b *uint256.Int,
	liquidity *big.Int,
) (*big.Int, error) {
	negative := liquidity.Sign() < 0
	magnitude, overflow := uint256.FromBig(new(big.Int).Abs(liquidity))
	if overflow {
		return nil, ErrLiquidityAmountTooWide
	}

	var amount uint256.Int
	if err := delta(&amount, a, b, magnitude, !negative); err != nil {
		return nil, err
	}
	res := amount.ToBig()
	if negative {
		res.Neg(res)
	}
	return res, nil
}

// GetAmountsForDelta returns the token amounts a liquidity change over [sqrtRatioA, sqrtRatioB]
// requires at the current price. Ranges above the price take only token0, ranges below only token1.
func GetAmountsForDelta(sqrtRatioX96, sqrtRatioAX96, sqrtRatioBX96 *uint256.Int, liquidity *big.Int) (amount0, amount1 *big.Int, err error) {
	if sqrtRatioAX96.Gt(sqrtRatioBX96) {
		sqrtRatioAX96, sqrtRatioBX96 = sqrtRatioBX96, sqrtRatioAX96
	}

	switch {
	case !sqrtRatioX96.Gt(sqrtRatioAX96):
		amount0, err = GetAmount0DeltaSigned(sqrtRatioAX96, sqrtRatioBX96, liquidity)
		if err != nil {
			return nil, nil, err
		}
		return amount0, new(big.Int), nil
	case sqrtRatioX96.Lt(sqrtRatioBX96):
		amount0, err = GetAmount0DeltaSigned(sqrtRatioX96, sqrtRatioBX96, liquidity)
		if err != nil {
			return nil, nil, err
		}
		amount1, err = GetAmount1DeltaSigned(sqrtRatioAX96, sqrtRatioX96, liquidity)
		if err != nil {
			return nil, nil, err
		}
		return amount0, amount1, nil
	default:
		amount1, err = GetAmount1DeltaSigned(sqrtRatioAX96, sqrtRatioBX96, liquidity)
		if err != nil {
			return nil, nil, err
		}
		return new(big.Int), amount1, nil
	}
}

// GetLiquidityForAmount0 returns the liquidity that amount of token0 buys over the range.
func GetLiquidityForAmount0(sqrtRatioAX96, sqrtRatioBX96, amount *uint256.Int) (modular.Uint128, error) {
	if sqrtRatioAX96.Gt(sqrtRatioBX96) {
		sqrtRatioAX96, sqrtRatioBX96 = sqrtRatioBX96, sqrtRatioAX96
	}
	var intermediate, width, res uint256.Int
	if err := fullmath.MulDiv(&intermediate, sqrtRatioAX96, sqrtRatioBX96, Q96); err != nil {
		return modular.Uint128{}, err
	}
	width.Sub(sqrtRatioBX96, sqrtRatioAX96)
	if err := fullmath.MulDiv(&res, amount, &intermediate, &width); err != nil {
		return modular.Uint128{}, err
	}
	l, ok := modular.NewUint128(&res)
	if !ok {
		return modular.Uint128{}, ErrLiquidityAmountTooWide
	}
	return l, nil
}

// GetLiquidityForAmount1 returns the liquidity that amount of token1 buys over the range.
func GetLiquidityForAmount1(sqrtRatioAX96, sqrtRatioBX96, amount *uint256.Int) (modular.Uint128, error) {
	if sqrtRatioAX96.Gt(sqrtRatioBX96) {
		sqrtRatioAX96, sqrtRatioBX96 = sqrtRatioBX96, sqrtRatioAX96
	}
	var width, res uint256.Int
	width.Sub(sqrtRatioBX96, sqrtRatioAX96)
	if err := fullmath.MulDiv(&res, amount, Q96, &width); err != nil {
		return modular.Uint128{}, err
	}
	l, ok := modular.NewUint128(&res)
	if !ok {
		return modular.Uint128{}, ErrLiquidityAmountTooWide
	}
	return l, nil
}

// GetLiquidityForAmounts returns the largest liquidity the two amounts can fund over
// [sqrtRatioA, sqrtRatioB] at the current price.
func GetLiquidityForAmounts(sqrtRatioX96, sqrtRatioAX96, sqrtRatioBX96, amount0, amount1 *uint256.Int) (modular.Uint128, error) {
	if sqrtRatioAX96.Gt(sqrtRatioBX96) {
		sqrtRatioAX96, sqrtRatioBX96 = sqrtRatioBX96, sqrtRatioAX96
	}

	switch {
	case !sqrtRatioX96.Gt(sqrtRatioAX96):
		return GetLiquidityForAmount0(sqrtRatioAX96, sqrtRatioBX96, amount0)
	case sqrtRatioX96.Lt(sqrtRatioBX96):
		liq0, err := GetLiquidityForAmount0(sqrtRatioX96, sqrtRatioBX96, amount0)
		if err != nil {
			return modular.Uint128{}, err
		}
		liq1, err := GetLiquidityForAmount1(sqrtRatioAX96, sqrtRatioX96, amount1)
		if err != nil {
			return modular.Uint128{}, err
		}
		return liq0.Min(liq1), nil
	default:
		return GetLiquidityForAmount1(sqrtRatioAX96, sqrtRatioBX96, amount1)
	}
}

func (s *SqrtPriceMath) getNextSqrtPriceFromAmount0RoundingUp(dest, sqrtPX96, liquidity, amount *uint256.Int, add bool) error {
	if amount.IsZero() {
		dest.Set(sqrtPX96)
		return nil
	}

	s.numerator1.Lsh(liquidity, Resolution)
	_, productOverflow := s.product.MulOverflow(amount, sqrtPX96)

	if add {
		if !productOverflow {
			if _, carry := s.denominator.AddOverflow(&s.numerator1, &s.product); !carry {
				if err := fullmath.MulDivRoundingUp(dest, &s.numerator1, sqrtPX96, &s.denominator); err != nil {
					return err
				}
				return checkUint160(dest)
			}
		}
		// numerator1 / (numerator1 / sqrtP + amount)
		s.denominator.Div(&s.numerator1, sqrtPX96)
		if _, carry := s.denominator.AddOverflow(&s.denominator, amount); carry {
			return ErrProductDivAmount
		}
		if err := fullmath.DivRoundingUp(dest, &s.numerator1, &s.denominator); err != nil {
			return err
		}
		return checkUint160(dest)
	}

	if productOverflow || !s.numerator1.Gt(&s.product) {
		return ErrProductDivAmount
	}
	s.denominator.Sub(&s.numerator1, &s.product)
	if err := fullmath.MulDivRoundingUp(dest, &s.numerator1, sqrtPX96, &s.denominator); err != nil {
		return err
	}
	return checkUint160(dest)
}

func (s *SqrtPriceMath) getNextSqrtPriceFromAmount1RoundingDown(dest, sqrtPX96, liquidity, amount *uint256.Int, add bool) error {
	if liquidity.IsZero() {
		return ErrLiquidityZero
	}

	if add {
		if !amount.Gt(MaxUint160) {
			s.term.Lsh(amount, Resolution)
			s.quotient.Div(&s.term, liquidity)
		} else if err := fullmath.MulDiv(&s.quotient, amount, Q96, liquidity); err != nil {
			return err
		}
		if _, carry := dest.AddOverflow(sqrtPX96, &s.quotient); carry {
			return ErrSqrtPriceOverflow
		}
		return checkUint160(dest)
	}

	if !amount.Gt(MaxUint160) {
		s.term.Lsh(amount, Resolution)
		if err := fullmath.DivRoundingUp(&s.quotient, &s.term, liquidity); err != nil {
			return err
		}
	} else if err := fullmath.MulDivRoundingUp(&s.quotient, amount, Q96, liquidity); err != nil {
		return err
	}
	if !sqrtPX96.Gt(&s.quotient) {
		return ErrSqrtPriceLteQuotient
	}
	dest.Sub(sqrtPX96, &s.quotient)
	return nil
}

func (s *SqrtPriceMath) getAmount0Delta(dest, sqrtRatioAX96, sqrtRatioBX96, liquidity *uint256.Int, roundUp bool) error {
	if sqrtRatioAX96.Gt(sqrtRatioBX96) {
		sqrtRatioAX96, sqrtRatioBX96 = sqrtRatioBX96, sqrtRatioAX96
	}
	if sqrtRatioAX96.IsZero() {
		return ErrSqrtPriceZero
	}

	s.numerator1.Lsh(liquidity, Resolution)
	s.numerator2.Sub(sqrtRatioBX96, sqrtRatioAX96)

	if roundUp {
		if err := fullmath.MulDivRoundingUp(&s.term, &s.numerator1, &s.numerator2, sqrtRatioBX96); err != nil {
			return err
		}
		return fullmath.DivRoundingUp(dest, &s.term, sqrtRatioAX96)
	}
	if err := fullmath.MulDiv(&s.term, &s.numerator1, &s.numerator2, sqrtRatioBX96); err != nil {
		return err
	}
	dest.Div(&s.term, sqrtRatioAX96)
	return nil
}

func (s *SqrtPriceMath) getAmount1Delta(dest, sqrtRatioAX96, sqrtRatioBX96, liquidity *uint256.Int, roundUp bool) error {
	if sqrtRatioAX96.Gt(sqrtRatioBX96) {
		sqrtRatioAX96, sqrtRatioBX96 = sqrtRatioBX96, sqrtRatioAX96
	}
	s.numerator2.Sub(sqrtRatioBX96, sqrtRatioAX96)

	if roundUp {
		return fullmath.MulDivRoundingUp(dest, liquidity, &s.numerator2, Q96)
	}
	return fullmath.MulDiv(dest, liquidity, &s.numerator2, Q96)
}

func checkUint160(x *uint256.Int) error {
	if x.Gt(MaxUint160) {
		return ErrSqrtPriceOverflow
	}
	return nil
}
