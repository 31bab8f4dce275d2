// Package pool implements a single concentrated-liquidity pool: its initialization,
// position management, fee accounting and the swap loop.
//
// A Pool mutates its Storage only through transactions. Every exported operation
// either applies all of its writes or none of them, so a returned error always
// means the pool is unchanged.
package pool

import (
	"fmt"
	"math/big"

	"github.com/defistate/clamm-engine/protocols/clamm/calculator/liquiditymath"
	"github.com/defistate/clamm-engine/protocols/clamm/calculator/sqrtpricemath"
	"github.com/defistate/clamm-engine/protocols/clamm/calculator/swapmath"
	"github.com/defistate/clamm-engine/protocols/clamm/calculator/tickbitmap"
	"github.com/defistate/clamm-engine/protocols/clamm/calculator/tickmath"
	"github.com/defistate/clamm-engine/protocols/clamm/clammerr"
	"github.com/defistate/clamm-engine/protocols/clamm/modular"
	"github.com/defistate/clamm-engine/protocols/clamm/position"
	"github.com/defistate/clamm-engine/protocols/clamm/tick"
	"github.com/defistate/clamm-engine/storage"
	"github.com/holiman/uint256"
)

var (
	ErrPoolAlreadyInitialized = clammerr.New(clammerr.Lifecycle, "pool is already initialized")
	ErrPoolNotInitialized     = clammerr.New(clammerr.Lifecycle, "pool is not initialized")
	ErrPoolDisabled           = clammerr.New(clammerr.Lifecycle, "pool is disabled")

	ErrInvalidFee         = clammerr.New(clammerr.Bounds, "fee must be below 1e6 pips")
	ErrInvalidTickSpacing = clammerr.New(clammerr.Bounds, "invalid tick spacing")
	ErrInvalidTick        = clammerr.New(clammerr.Bounds, "tick outside the usable range")
	ErrInvalidFeeProtocol = clammerr.New(clammerr.Bounds, "protocol fee divisor must be at most 15")
	ErrPriceLimitTooLow   = clammerr.New(clammerr.Bounds, "price limit too low")
	ErrPriceLimitTooHigh  = clammerr.New(clammerr.Bounds, "price limit too high")
	ErrZeroValue          = clammerr.New(clammerr.Bounds, "swap amount is zero")
	ErrSwapAmountTooWide  = clammerr.New(clammerr.Bounds, "swap amount does not fit in int256")
	ErrLiqResultTooLow    = clammerr.New(clammerr.Bounds, "liquidity change yields less than the minimum amounts")

	ErrSwapResultTooHigh = clammerr.New(clammerr.Arithmetic, "swap result does not fit in int256")
	ErrFeeTooHigh        = clammerr.New(clammerr.Arithmetic, "protocol fee does not fit in 128 bits")

	ErrSwapStepLimit = clammerr.New(clammerr.Internal, "swap exceeded its step bound")

	// ErrLiquidityAmountTooWide is returned when a liquidity delta does not fit in int128.
	ErrLiquidityAmountTooWide = sqrtpricemath.ErrLiquidityAmountTooWide
)

// Pool is a concentrated-liquidity pool over one asset pair.
// A Pool is not safe for concurrent use.
type Pool struct {
	state State
	store Storage

	ticks     *tick.Ledger
	positions *position.Ledger
	bitmap    *tickbitmap.Bitmap
}

// New returns an uninitialized pool over st.
func New(st Storage) *Pool {
	return Restore(st, State{})
}

// Restore returns a pool with a previously saved state over st.
func Restore(st Storage, state State) *Pool {
	return &Pool{
		state:     state,
		store:     st,
		ticks:     tick.NewLedger(st.Ticks),
		positions: position.NewLedger(st.Positions),
		bitmap:    tickbitmap.New(st.Bitmap),
	}
}

// txn stages one operation. Writes go to overlays over the pool's maps and to a
// copy of its state, and reach the pool only through commit.
type txn struct {
	state State

	tickWrites     *storage.Overlay[int32, tick.Info]
	positionWrites *storage.Overlay[position.ID, position.Info]
	bitmapWrites   *storage.Overlay[int16, uint256.Int]

	ticks     *tick.Ledger
	positions *position.Ledger
	bitmap    *tickbitmap.Bitmap
}

func (p *Pool) begin() *txn {
	tx := &txn{
		state:          p.state,
		tickWrites:     storage.NewOverlay(p.store.Ticks),
		positionWrites: storage.NewOverlay(p.store.Positions),
		bitmapWrites:   storage.NewOverlay(p.store.Bitmap),
	}
	tx.ticks = tick.NewLedger(tx.tickWrites)
	tx.positions = position.NewLedger(tx.positionWrites)
	tx.bitmap = tickbitmap.New(tx.bitmapWrites)
	return tx
}

func (p *Pool) commit(tx *txn) error {
	if err := p.flush(tx); err != nil {
		if p.store.journal != nil {
			p.store.journal.Discard()
		}
		return err
	}
	p.state = tx.state
	return nil
}

func (p *Pool) flush(tx *txn) error {
	if err := tx.tickWrites.Flush(); err != nil {
		return fmt.Errorf("failed to flush ticks: %w", err)
	}
	if err := tx.positionWrites.Flush(); err != nil {
		return fmt.Errorf("failed to flush positions: %w", err)
	}
	if err := tx.bitmapWrites.Flush(); err != nil {
		return fmt.Errorf("failed to flush tick bitmap: %w", err)
	}
	if p.store.journal == nil {
		return nil
	}
	return p.store.journal.Commit()
}

// update runs fn in a transaction and commits it if fn succeeds.
func (p *Pool) update(fn func(tx *txn) error) error {
	tx := p.begin()
	if err := fn(tx); err != nil {
		return err
	}
	return p.commit(tx)
}

// MaxLiquidityForSpacing spreads the full uint128 liquidity range evenly over every
// usable tick of the spacing.
func MaxLiquidityForSpacing(tickSpacing uint8) modular.Uint128 {
	if tickSpacing == 0 {
		return modular.Uint128{}
	}
	ticks := (tickmath.GetMaxTick(tickSpacing)-tickmath.GetMinTick(tickSpacing))/int32(tickSpacing) + 1
	var limit uint256.Int
	limit.Div(modular.MaxUint128.Int(), uint256.NewInt(uint64(ticks)))
	return modular.TruncateUint128(&limit)
}

// Initialize sets the starting price and the immutable parameters of the pool.
// The pool stays disabled until SetEnabled is called.
func (p *Pool) Initialize(sqrtPriceX96 *uint256.Int, fee uint32, tickSpacing uint8, maxLiquidityPerTick modular.Uint128) error {
	if p.state.Initialized() {
		return ErrPoolAlreadyInitialized
	}
	if fee >= swapmath.FeeDenominator {
		return ErrInvalidFee
	}
	if tickSpacing == 0 {
		return fmt.Errorf("%w: spacing must be positive", ErrInvalidTickSpacing)
	}
	currentTick, err := tickmath.GetTickAtSqrtRatio(sqrtPriceX96)
	if err != nil {
		return err
	}

	return p.update(func(tx *txn) error {
		tx.state.SqrtPriceX96 = *sqrtPriceX96
		tx.state.Tick = currentTick
		tx.state.Fee = fee
		tx.state.TickSpacing = tickSpacing
		tx.state.MaxLiquidityPerTick = maxLiquidityPerTick
		return nil
	})
}

// SetEnabled turns trading and liquidity changes on or off.
func (p *Pool) SetEnabled(enabled bool) error {
	if enabled && !p.state.Initialized() {
		return ErrPoolNotInitialized
	}
	p.state.Enabled = enabled
	return nil
}

// SetFeeProtocol sets the share of swap fees kept by the protocol as 1/fp of the
// fee on each side. Zero disables the protocol fee for that side.
func (p *Pool) SetFeeProtocol(feeProtocol0, feeProtocol1 uint8) error {
	if feeProtocol0 > 15 || feeProtocol1 > 15 {
		return ErrInvalidFeeProtocol
	}
	if !p.state.Initialized() {
		return ErrPoolNotInitialized
	}
	p.state.FeeProtocol = feeProtocol0 | feeProtocol1<<4
	return nil
}

// CreatePosition registers position id over [lower, upper] with no liquidity.
func (p *Pool) CreatePosition(id position.ID, lower, upper int32) error {
	if !p.state.Enabled {
		return ErrPoolDisabled
	}
	spacing := int32(p.state.TickSpacing)
	if lower%spacing != 0 || upper%spacing != 0 {
		return fmt.Errorf("%w: ticks %d and %d must be multiples of %d", ErrInvalidTickSpacing, lower, upper, spacing)
	}
	minTick, maxTick := tickmath.GetMinTick(p.state.TickSpacing), tickmath.GetMaxTick(p.state.TickSpacing)
	if lower < minTick || upper > maxTick {
		return fmt.Errorf("%w: [%d, %d] is outside [%d, %d]", ErrInvalidTick, lower, upper, minTick, maxTick)
	}
	if lower >= upper {
		return fmt.Errorf("%w: lower %d is not below upper %d", ErrInvalidTick, lower, upper)
	}

	return p.update(func(tx *txn) error {
		return tx.positions.New(id, lower, upper)
	})
}

// UpdatePosition adds delta liquidity to position id (removes it when negative),
// settling the fees it earned so far. It returns the amounts of each token the
// caller owes the pool; negative amounts are owed to the caller.
func (p *Pool) UpdatePosition(id position.ID, delta *big.Int) (amount0, amount1 *big.Int, err error) {
	if !p.state.Enabled {
		return nil, nil, ErrPoolDisabled
	}
	err = p.update(func(tx *txn) error {
		amount0, amount1, err = tx.updatePosition(id, delta)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return amount0, amount1, nil
}

// AdjustPosition changes the liquidity of position id by the most the desired
// amounts can fund at the current tick. giving removes that liquidity instead.
// It fails with ErrLiqResultTooLow if either resulting amount is below its minimum.
func (p *Pool) AdjustPosition(
	id position.ID,
	amount0Min, amount1Min, amount0Desired, amount1Desired *uint256.Int,
	giving bool,
) (amount0, amount1 *big.Int, err error) {
	if !p.state.Enabled {
		return nil, nil, ErrPoolDisabled
	}
	err = p.update(func(tx *txn) error {
		info, ok, err := tx.positions.Get(id)
		if err != nil {
			return err
		}
		if !ok {
			return position.ErrPositionNotFound
		}

		var priceX96, lowerX96, upperX96 uint256.Int
		if err := tickmath.GetSqrtRatioAtTick(&priceX96, tx.state.Tick); err != nil {
			return err
		}
		if err := tickmath.GetSqrtRatioAtTick(&lowerX96, info.Lower); err != nil {
			return err
		}
		if err := tickmath.GetSqrtRatioAtTick(&upperX96, info.Upper); err != nil {
			return err
		}

		liquidity, err := sqrtpricemath.GetLiquidityForAmounts(&priceX96, &lowerX96, &upperX96, amount0Desired, amount1Desired)
		if err != nil {
			return err
		}
		delta, ok := liquiditymath.ToInt128(liquidity.Int())
		if !ok {
			return ErrLiquidityAmountTooWide
		}
		if giving {
			delta.Neg(delta)
		}

		amount0, amount1, err = tx.updatePosition(id, delta)
		if err != nil {
			return err
		}
		if belowMin(amount0, amount0Min) || belowMin(amount1, amount1Min) {
			return fmt.Errorf("%w: got (%s, %s)", ErrLiqResultTooLow, amount0, amount1)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return amount0, amount1, nil
}

func belowMin(amount *big.Int, minimum *uint256.Int) bool {
	if minimum == nil {
		return false
	}
	return new(big.Int).Abs(amount).Cmp(minimum.ToBig()) < 0
}

func (tx *txn) updatePosition(id position.ID, delta *big.Int) (*big.Int, *big.Int, error) {
	if delta == nil || !liquiditymath.FitsInt128(delta) {
		return nil, nil, ErrLiquidityAmountTooWide
	}
	info, ok, err := tx.positions.Get(id)
	if err != nil {
		return nil, nil, err
	}
	if !ok {
		return nil, nil, position.ErrPositionNotFound
	}
	lower, upper := info.Lower, info.Upper
	s := &tx.state

	var flippedLower, flippedUpper bool
	if delta.Sign() != 0 {
		flippedLower, err = tx.ticks.Update(lower, s.Tick, delta, s.FeeGrowthGlobal0, s.FeeGrowthGlobal1, false, s.MaxLiquidityPerTick)
		if err != nil {
			return nil, nil, fmt.Errorf("lower tick %d: %w", lower, err)
		}
		flippedUpper, err = tx.ticks.Update(upper, s.Tick, delta, s.FeeGrowthGlobal0, s.FeeGrowthGlobal1, true, s.MaxLiquidityPerTick)
		if err != nil {
			return nil, nil, fmt.Errorf("upper tick %d: %w", upper, err)
		}
		if flippedLower {
			if err := tx.bitmap.FlipTick(lower, s.TickSpacing); err != nil {
				return nil, nil, err
			}
		}
		if flippedUpper {
			if err := tx.bitmap.FlipTick(upper, s.TickSpacing); err != nil {
				return nil, nil, err
			}
		}
	}

	inside0, inside1, err := tx.ticks.FeeGrowthInside(lower, upper, s.Tick, s.FeeGrowthGlobal0, s.FeeGrowthGlobal1)
	if err != nil {
		return nil, nil, err
	}
	if err := tx.positions.Update(id, delta, inside0, inside1); err != nil {
		return nil, nil, err
	}

	// ticks that lost their last liquidity are no longer needed
	if delta.Sign() < 0 {
		if flippedLower {
			if err := tx.ticks.Clear(lower); err != nil {
				return nil, nil, err
			}
		}
		if flippedUpper {
			if err := tx.ticks.Clear(upper); err != nil {
				return nil, nil, err
			}
		}
	}

	if delta.Sign() == 0 {
		return new(big.Int), new(big.Int), nil
	}

	var lowerX96, upperX96 uint256.Int
	if err := tickmath.GetSqrtRatioAtTick(&lowerX96, lower); err != nil {
		return nil, nil, err
	}
	if err := tickmath.GetSqrtRatioAtTick(&upperX96, upper); err != nil {
		return nil, nil, err
	}

	switch {
	case s.Tick < lower:
		// below the range, only token0 is needed
		amount0, err := sqrtpricemath.GetAmount0DeltaSigned(&lowerX96, &upperX96, delta)
		if err != nil {
			return nil, nil, err
		}
		return amount0, new(big.Int), nil
	case s.Tick < upper:
		// the range is active
		liquidity, err := liquiditymath.AddDelta(s.Liquidity, delta)
		if err != nil {
			return nil, nil, err
		}
		s.Liquidity = liquidity
		amount0, err := sqrtpricemath.GetAmount0DeltaSigned(&s.SqrtPriceX96, &upperX96, delta)
		if err != nil {
			return nil, nil, err
		}
		amount1, err := sqrtpricemath.GetAmount1DeltaSigned(&lowerX96, &s.SqrtPriceX96, delta)
		if err != nil {
			return nil, nil, err
		}
		return amount0, amount1, nil
	default:
		// above the range, only token1 is needed
		amount1, err := sqrtpricemath.GetAmount1DeltaSigned(&lowerX96, &upperX96, delta)
		if err != nil {
			return nil, nil, err
		}
		return new(big.Int), amount1, nil
	}
}

// CollectFees zeroes and returns the fees owed to position id.
func (p *Pool) CollectFees(id position.ID) (amount0, amount1 modular.Uint128, err error) {
	if !p.state.Enabled {
		return modular.Uint128{}, modular.Uint128{}, ErrPoolDisabled
	}
	err = p.update(func(tx *txn) error {
		amount0, amount1, err = tx.positions.CollectFees(id)
		return err
	})
	if err != nil {
		return modular.Uint128{}, modular.Uint128{}, err
	}
	return amount0, amount1, nil
}

// CollectProtocol withdraws up to the requested amounts of the accrued protocol fees
// and returns what was withdrawn.
func (p *Pool) CollectProtocol(requested0, requested1 modular.Uint128) (amount0, amount1 modular.Uint128, err error) {
	if !p.state.Enabled {
		return modular.Uint128{}, modular.Uint128{}, ErrPoolDisabled
	}
	err = p.update(func(tx *txn) error {
		amount0 = requested0.Min(tx.state.ProtocolFee0)
		amount1 = requested1.Min(tx.state.ProtocolFee1)
		tx.state.ProtocolFee0 = tx.state.ProtocolFee0.Sub(amount0)
		tx.state.ProtocolFee1 = tx.state.ProtocolFee1.Sub(amount1)
		return nil
	})
	if err != nil {
		return modular.Uint128{}, modular.Uint128{}, err
	}
	return amount0, amount1, nil
}

// State returns a copy of the pool's scalar state.
func (p *Pool) State() State {
	return p.state
}

func (p *Pool) Enabled() bool {
	return p.state.Enabled
}

func (p *Pool) Fee() uint32 {
	return p.state.Fee
}

func (p *Pool) TickSpacing() uint8 {
	return p.state.TickSpacing
}

// SqrtPriceX96 returns a copy of the current price.
func (p *Pool) SqrtPriceX96() *uint256.Int {
	return new(uint256.Int).Set(&p.state.SqrtPriceX96)
}

func (p *Pool) CurrentTick() int32 {
	return p.state.Tick
}

// Liquidity returns the liquidity active at the current tick.
func (p *Pool) Liquidity() modular.Uint128 {
	return p.state.Liquidity
}

func (p *Pool) FeeGrowthGlobal0() modular.Uint256 {
	return p.state.FeeGrowthGlobal0
}

func (p *Pool) FeeGrowthGlobal1() modular.Uint256 {
	return p.state.FeeGrowthGlobal1
}

// ProtocolFees returns the uncollected protocol fees.
func (p *Pool) ProtocolFees() (modular.Uint128, modular.Uint128) {
	return p.state.ProtocolFee0, p.state.ProtocolFee1
}

func (p *Pool) Position(id position.ID) (position.Info, bool, error) {
	return p.positions.Get(id)
}

// PositionLiquidity returns the liquidity of position id, zero if it does not exist.
func (p *Pool) PositionLiquidity(id position.ID) (modular.Uint128, error) {
	info, _, err := p.positions.Get(id)
	return info.Liquidity, err
}

func (p *Pool) FeesOwed(id position.ID) (modular.Uint128, modular.Uint128, error) {
	return p.positions.FeesOwed(id)
}

func (p *Pool) Tick(t int32) (tick.Info, error) {
	return p.ticks.Get(t)
}

// TickInitialized reports whether t is set in the tick bitmap.
func (p *Pool) TickInitialized(t int32) (bool, error) {
	return p.bitmap.IsInitialized(t, p.state.TickSpacing)
}

// InitializedTicks returns the ticks set in the bitmap in ascending order.
func (p *Pool) InitializedTicks() ([]int32, error) {
	if !p.state.Initialized() {
		return nil, ErrPoolNotInitialized
	}
	return p.bitmap.InitializedTicks(p.state.TickSpacing)
}
