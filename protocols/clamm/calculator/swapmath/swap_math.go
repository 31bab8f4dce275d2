package swapmath

import (
	"math/big"
	"sync"

	"github.com/defistate/clamm-engine/protocols/clamm/calculator/fullmath"
	"github.com/defistate/clamm-engine/protocols/clamm/calculator/sqrtpricemath"
	"github.com/defistate/clamm-engine/protocols/clamm/clammerr"
	"github.com/holiman/uint256"
)

// FeeDenominator is the denominator for fee calculations, representing 100% or 1,000,000 ppm.
const FeeDenominator uint32 = 1_000_000

var (
	feeDenominator = uint256.NewInt(uint64(FeeDenominator))

	ErrFeeTooLarge   = clammerr.New(clammerr.Bounds, "fee must be less than 1e6 pips")
	ErrAmountTooWide = clammerr.New(clammerr.Arithmetic, "amount remaining does not fit in 256 bits")
)

// SwapMath holds reusable scratch integers for a single step.
// Instances are managed by a sync.Pool for safe concurrent use.
type SwapMath struct {
	sqrtRatioNextX96 uint256.Int
	amountIn         uint256.Int
	amountOut        uint256.Int
	feeAmount        uint256.Int

	amountRemainingLessFee uint256.Int
	amountRemainingAbs     uint256.Int
	feeComplement          uint256.Int
	fee                    uint256.Int
}

var swapMathPool = sync.Pool{
	New: func() any {
		return new(SwapMath)
	},
}

// ComputeSwapStep calculates the result of a swap within a single tick range.
// It determines the next price, the amounts swapped, and the fee taken.
// A positive amountRemaining is an exact input, a negative one an exact output.
func ComputeSwapStep(
	// destination pointers
	sqrtRatioNextX96 *uint256.Int,
	amountIn *uint256.Int,
	amountOut *uint256.Int,
	feeAmount *uint256.Int,

	sqrtRatioCurrentX96 *uint256.Int,
	sqrtRatioTargetX96 *uint256.Int,
	liquidity *uint256.Int,
	amountRemaining *big.Int,
	feePips uint32,
) error {
	if feePips >= FeeDenominator {
		return ErrFeeTooLarge
	}

	s := swapMathPool.Get().(*SwapMath)
	defer swapMathPool.Put(s)

	if err := s.computeSwapStep(sqrtRatioCurrentX96, sqrtRatioTargetX96, liquidity, amountRemaining, feePips); err != nil {
		return err
	}

	sqrtRatioNextX96.Set(&s.sqrtRatioNextX96)
	amountIn.Set(&s.amountIn)
	amountOut.Set(&s.amountOut)
	feeAmount.Set(&s.feeAmount)
	return nil
}

func (s *SwapMath) computeSwapStep(
	sqrtRatioCurrentX96, sqrtRatioTargetX96, liquidity *uint256.Int,
	amountRemaining *big.Int,
	feePips uint32,
) error {
	zeroForOne := !sqrtRatioCurrentX96.Lt(sqrtRatioTargetX96)
	exactIn := amountRemaining.Sign() >= 0

	if overflow := s.amountRemainingAbs.SetFromBig(new(big.Int).Abs(amountRemaining)); overflow {
		return ErrAmountTooWide
	}

	s.amountIn.Clear()
	s.amountOut.Clear()
	s.feeAmount.Clear()
	s.fee.SetUint64(uint64(feePips))
	s.feeComplement.Sub(feeDenominator, &s.fee)

	if exactIn {
		if err := fullmath.MulDiv(&s.amountRemainingLessFee, &s.amountRemainingAbs, &s.feeComplement, feeDenominator); err != nil {
			return err
		}

		var err error
		if zeroForOne {
			err = sqrtpricemath.GetAmount0Delta(&s.amountIn, sqrtRatioTargetX96, sqrtRatioCurrentX96, liquidity, true)
		} else {
			err = sqrtpricemath.GetAmount1Delta(&s.amountIn, sqrtRatioCurrentX96, sqrtRatioTargetX96, liquidity, true)
		}
		if err != nil {
			return err
		}

		if !s.amountRemainingLessFee.Lt(&s.amountIn) {
			s.sqrtRatioNextX96.Set(sqrtRatioTargetX96)
		} else if err := sqrtpricemath.GetNextSqrtPriceFromInput(&s.sqrtRatioNextX96, sqrtRatioCurrentX96, liquidity, &s.amountRemainingLessFee, zeroForOne); err != nil {
			return err
		}
	} else {
		var err error
		if zeroForOne {
			err = sqrtpricemath.GetAmount1Delta(&s.amountOut, sqrtRatioTargetX96, sqrtRatioCurrentX96, liquidity, false)
		} else {
			err = sqrtpricemath.GetAmount0Delta(&s.amountOut, sqrtRatioCurrentX96, sqrtRatioTargetX96, liquidity, false)
		}
		if err != nil {
			return err
		}

		if !s.amountRemainingAbs.Lt(&s.amountOut) {
			s.sqrtRatioNextX96.Set(sqrtRatioTargetX96)
		} else if err := sqrtpricemath.GetNextSqrtPriceFromOutput(&s.sqrtRatioNextX96, sqrtRatioCurrentX96, liquidity, &s.amountRemainingAbs, zeroForOne); err != nil {
			return err
		}
	}

	max := sqrtRatioTargetX96.Eq(&s.sqrtRatioNextX96)

	// Recalculate amounts based on the actual price movement.
	if zeroForOne {
		if !(max && exactIn) {
			if err := sqrtpricemath.GetAmount0Delta(&s.amountIn, &s.sqrtRatioNextX96, sqrtRatioCurrentX96, liquidity, true); err != nil {
				return err
			}
		}
		if !(max && !exactIn) {
			if err := sqrtpricemath.GetAmount1Delta(&s.amountOut, &s.sqrtRatioNextX96, sqrtRatioCurrentX96, liquidity, false); err != nil {
				return err
			}
		}
	} else {
		if !(max && exactIn) {
			if err := sqrtpricemath.GetAmount1Delta(&s.amountIn, sqrtRatioCurrentX96, &s.sqrtRatioNextX96, liquidity, true); err != nil {
				return err
			}
		}
		if !(max && !exactIn) {
			if err := sqrtpricemath.GetAmount0Delta(&s.amountOut, sqrtRatioCurrentX96, &s.sqrtRatioNextX96, liquidity, false); err != nil {
				return err
			}
		}
	}

	if !exactIn && s.amountOut.Gt(&s.amountRemainingAbs) {
		s.amountOut.Set(&s.amountRemainingAbs)
	}

	if exactIn && !s.sqrtRatioNextX96.Eq(sqrtRatioTargetX96) {
		// The target was not reached, so whatever input is left over is the fee.
		s.feeAmount.Sub(&s.amountRemainingAbs, &s.amountIn)
		return nil
	}
	return fullmath.MulDivRoundingUp(&s.feeAmount, &s.amountIn, &s.fee, &s.feeComplement)
}
