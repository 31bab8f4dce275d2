package pool

import (
	"fmt"
	"math/big"

	"github.com/defistate/clamm-engine/protocols/clamm/calculator/fullmath"
	"github.com/defistate/clamm-engine/protocols/clamm/calculator/liquiditymath"
	"github.com/defistate/clamm-engine/protocols/clamm/calculator/swapmath"
	"github.com/defistate/clamm-engine/protocols/clamm/calculator/tickbitmap"
	"github.com/defistate/clamm-engine/protocols/clamm/calculator/tickmath"
	"github.com/defistate/clamm-engine/protocols/clamm/modular"
	"github.com/defistate/clamm-engine/protocols/clamm/tick"
	"github.com/holiman/uint256"
)

var (
	maxInt256 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 255), big.NewInt(1))
	minInt256 = new(big.Int).Neg(new(big.Int).Lsh(big.NewInt(1), 255))
	noLimit   = new(uint256.Int).SetAllOne()
)

func fitsInt256(x *big.Int) bool {
	return x.Cmp(minInt256) >= 0 && x.Cmp(maxInt256) <= 0
}

// SwapResult is the outcome of a swap. Positive amounts are paid into the pool,
// negative amounts are paid out of it.
type SwapResult struct {
	Amount0      *big.Int
	Amount1      *big.Int
	Tick         int32
	Steps        int
	TicksCrossed int
}

// swapState is the working state of the swap loop. Only the final state is
// written back to the pool.
type swapState struct {
	zeroForOne  bool
	exactIn     bool
	limit       *uint256.Int
	feePips     uint32
	feeProtocol uint8
	spacing     uint8

	ticks  *tick.Ledger
	bitmap *tickbitmap.Bitmap

	// fee growth of the token that is not the input; ticks crossed need both
	otherFeeGrowth modular.Uint256

	amountRemaining  *big.Int // positive for exact input, negative for exact output
	amountCalculated *big.Int
	price            uint256.Int
	tick             int32
	feeGrowthGlobal  modular.Uint256 // of the input token
	protocolFee      modular.Uint128
	liquidity        modular.Uint128

	steps        int
	ticksCrossed int
}

func (s *swapState) done() bool {
	return s.amountRemaining.Sign() == 0 || s.price.Eq(s.limit)
}

// step moves the price towards the next initialized tick in the current bitmap
// word, stopping early at the price limit or when the amount runs out.
func (s *swapState) step() error {
	s.steps++
	start := s.price

	next, initialized, err := s.bitmap.NextInitializedTickWithinOneWord(s.tick, s.spacing, s.zeroForOne)
	if err != nil {
		return err
	}
	next = min(max(next, tickmath.MIN_TICK), tickmath.MAX_TICK)

	var nextPrice uint256.Int
	if err := tickmath.GetSqrtRatioAtTick(&nextPrice, next); err != nil {
		return err
	}

	target := &nextPrice
	if (s.zeroForOne && nextPrice.Lt(s.limit)) || (!s.zeroForOne && nextPrice.Gt(s.limit)) {
		target = s.limit
	}

	var amountIn, amountOut, fee uint256.Int
	err = swapmath.ComputeSwapStep(
		&s.price, &amountIn, &amountOut, &fee,
		&start,
		target,
		s.liquidity.Int(),
		s.amountRemaining,
		s.feePips,
	)
	if err != nil {
		return err
	}

	spent := new(big.Int).Add(amountIn.ToBig(), fee.ToBig())
	if s.exactIn {
		s.amountRemaining.Sub(s.amountRemaining, spent)
		s.amountCalculated.Sub(s.amountCalculated, amountOut.ToBig())
	} else {
		s.amountRemaining.Add(s.amountRemaining, amountOut.ToBig())
		s.amountCalculated.Add(s.amountCalculated, spent)
	}

	if s.feeProtocol > 0 {
		var cut uint256.Int
		cut.Div(&fee, uint256.NewInt(uint64(s.feeProtocol)))
		fee.Sub(&fee, &cut)
		share, ok := modular.NewUint128(&cut)
		if !ok {
			return ErrFeeTooHigh
		}
		if s.protocolFee, ok = s.protocolFee.CheckedAdd(share); !ok {
			return ErrFeeTooHigh
		}
	}

	if !s.liquidity.IsZero() {
		var growth uint256.Int
		if err := fullmath.MulDiv(&growth, &fee, fullmath.Q128, s.liquidity.Int()); err != nil {
			return err
		}
		s.feeGrowthGlobal = s.feeGrowthGlobal.Add(modular.NewUint256(&growth))
	}

	if s.price.Eq(&nextPrice) {
		if initialized {
			feeGrowth0, feeGrowth1 := s.feeGrowthGlobal, s.otherFeeGrowth
			if !s.zeroForOne {
				feeGrowth0, feeGrowth1 = feeGrowth1, feeGrowth0
			}
			net, err := s.ticks.Cross(next, feeGrowth0, feeGrowth1)
			if err != nil {
				return err
			}
			// moving left, the net liquidity is removed
			if s.zeroForOne {
				net.Neg(net)
			}
			if s.liquidity, err = liquiditymath.AddDelta(s.liquidity, net); err != nil {
				return fmt.Errorf("crossing tick %d: %w", next, err)
			}
			s.ticksCrossed++
		}
		if s.zeroForOne {
			s.tick = next - 1
		} else {
			s.tick = next
		}
	} else if !s.price.Eq(&start) {
		// the price moved inside the word without reaching a boundary
		if s.tick, err = tickmath.GetTickAtSqrtRatio(&s.price); err != nil {
			return err
		}
	}
	return nil
}

// maxSwapSteps bounds the swap loop. Every step but the last ends on an
// initialized tick or on the edge of a bitmap word.
func maxSwapSteps(tickSpacing uint8) int {
	ticks := int(tickmath.GetMaxTick(tickSpacing)-tickmath.GetMinTick(tickSpacing))/int(tickSpacing) + 1
	return ticks + ticks/256 + 4
}

// Swap trades against the pool. A positive amount is an exact input, a negative
// one an exact output. zeroForOne swaps token0 for token1, moving the price down.
// limit is the price the swap may not cross; nil or the maximum uint256 means
// no limit.
func (p *Pool) Swap(zeroForOne bool, amount *big.Int, limit *uint256.Int) (SwapResult, error) {
	if !p.state.Enabled {
		return SwapResult{}, ErrPoolDisabled
	}
	if amount == nil || amount.Sign() == 0 {
		return SwapResult{}, ErrZeroValue
	}
	if !fitsInt256(amount) {
		return SwapResult{}, ErrSwapAmountTooWide
	}

	priceLimit, err := p.priceLimit(zeroForOne, limit)
	if err != nil {
		return SwapResult{}, err
	}

	var res SwapResult
	err = p.update(func(tx *txn) error {
		res, err = tx.swap(zeroForOne, amount, priceLimit)
		return err
	})
	if err != nil {
		return SwapResult{}, err
	}
	return res, nil
}

func (p *Pool) priceLimit(zeroForOne bool, limit *uint256.Int) (*uint256.Int, error) {
	noLimitSet := limit == nil || limit.Eq(noLimit)
	if zeroForOne {
		if noLimitSet {
			return new(uint256.Int).AddUint64(tickmath.MIN_SQRT_RATIO, 1), nil
		}
		if !limit.Lt(&p.state.SqrtPriceX96) || !limit.Gt(tickmath.MIN_SQRT_RATIO) {
			return nil, ErrPriceLimitTooLow
		}
		return limit, nil
	}
	if noLimitSet {
		return new(uint256.Int).SubUint64(tickmath.MAX_SQRT_RATIO, 1), nil
	}
	if !limit.Gt(&p.state.SqrtPriceX96) || !limit.Lt(tickmath.MAX_SQRT_RATIO) {
		return nil, ErrPriceLimitTooHigh
	}
	return limit, nil
}

func (tx *txn) swap(zeroForOne bool, amount *big.Int, limit *uint256.Int) (SwapResult, error) {
	st := &tx.state

	feeProtocol := st.FeeProtocol % 16
	feeGrowth, otherFeeGrowth := st.FeeGrowthGlobal0, st.FeeGrowthGlobal1
	if !zeroForOne {
		feeProtocol = st.FeeProtocol >> 4
		feeGrowth, otherFeeGrowth = otherFeeGrowth, feeGrowth
	}

	s := &swapState{
		zeroForOne:       zeroForOne,
		exactIn:          amount.Sign() > 0,
		limit:            limit,
		feePips:          st.Fee,
		feeProtocol:      feeProtocol,
		spacing:          st.TickSpacing,
		ticks:            tx.ticks,
		bitmap:           tx.bitmap,
		otherFeeGrowth:   otherFeeGrowth,
		amountRemaining:  new(big.Int).Set(amount),
		amountCalculated: new(big.Int),
		price:            st.SqrtPriceX96,
		tick:             st.Tick,
		feeGrowthGlobal:  feeGrowth,
		liquidity:        st.Liquidity,
	}

	bound := maxSwapSteps(st.TickSpacing)
	for !s.done() {
		if s.steps >= bound {
			return SwapResult{}, fmt.Errorf("%w: %d steps at tick %d", ErrSwapStepLimit, s.steps, s.tick)
		}
		if err := s.step(); err != nil {
			return SwapResult{}, err
		}
	}

	if !fitsInt256(s.amountCalculated) {
		return SwapResult{}, ErrSwapResultTooHigh
	}

	st.SqrtPriceX96 = s.price
	st.Tick = s.tick
	st.Liquidity = s.liquidity

	if st.Fee != 0 {
		var ok bool
		if zeroForOne {
			st.FeeGrowthGlobal0 = s.feeGrowthGlobal
			st.ProtocolFee0, ok = st.ProtocolFee0.CheckedAdd(s.protocolFee)
		} else {
			st.FeeGrowthGlobal1 = s.feeGrowthGlobal
			st.ProtocolFee1, ok = st.ProtocolFee1.CheckedAdd(s.protocolFee)
		}
		if !ok {
			return SwapResult{}, ErrFeeTooHigh
		}
	}

	specified := new(big.Int).Sub(amount, s.amountRemaining)
	res := SwapResult{
		Tick:         s.tick,
		Steps:        s.steps,
		TicksCrossed: s.ticksCrossed,
	}
	// token0 is the specified side when it is the input of an exact input swap
	// or the output of an exact output one
	if zeroForOne == s.exactIn {
		res.Amount0, res.Amount1 = specified, s.amountCalculated
	} else {
		res.Amount0, res.Amount1 = s.amountCalculated, specified
	}
	return res, nil
}
