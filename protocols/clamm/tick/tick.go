// Package tick keeps the per-tick liquidity and fee-growth ledger of a pool.
package tick

import (
	"math/big"

	"github.com/defistate/clamm-engine/protocols/clamm/calculator/liquiditymath"
	"github.com/defistate/clamm-engine/protocols/clamm/clammerr"
	"github.com/defistate/clamm-engine/protocols/clamm/modular"
	"github.com/defistate/clamm-engine/storage"
)

var (
	ErrLiquidityTooHigh = clammerr.New(clammerr.Bounds, "tick liquidity exceeds the maximum per tick")
	ErrFeeGrowthSubTick = clammerr.New(clammerr.Arithmetic, "fee growth outside exceeds fee growth global")
)

// Info is the state of one tick.
// FeeGrowthOutside is the fee growth on the other side of the tick from the current
// price, relative to when the tick was initialized.
type Info struct {
	LiquidityGross    modular.Uint128
	LiquidityNet      *big.Int
	FeeGrowthOutside0 modular.Uint256
	FeeGrowthOutside1 modular.Uint256
	Initialized       bool
}

// Ledger is a pool's set of ticks.
type Ledger struct {
	ticks storage.Map[int32, Info]
}

func NewLedger(ticks storage.Map[int32, Info]) *Ledger {
	return &Ledger{ticks: ticks}
}

// Get returns the tick's state, or the zero state if it was never initialized.
func (l *Ledger) Get(tick int32) (Info, error) {
	info, _, err := l.ticks.Get(tick)
	if err != nil {
		return Info{}, err
	}
	if info.LiquidityNet == nil {
		info.LiquidityNet = new(big.Int)
	}
	return info, nil
}

// Update applies a liquidity change at tick and reports whether the tick flipped between
// initialized and uninitialized. upper selects whether the tick is the upper bound of the
// position being changed.
func (l *Ledger) Update(
	tick, currentTick int32,
	liquidityDelta *big.Int,
	feeGrowthGlobal0, feeGrowthGlobal1 modular.Uint256,
	upper bool,
	maxLiquidity modular.Uint128,
) (bool, error) {
	info, err := l.Get(tick)
	if err != nil {
		return false, err
	}

	grossBefore := info.LiquidityGross
	grossAfter, err := liquiditymath.AddDelta(grossBefore, liquidityDelta)
	if err != nil {
		return false, err
	}
	if grossAfter.Cmp(maxLiquidity) > 0 {
		return false, ErrLiquidityTooHigh
	}

	flipped := grossAfter.IsZero() != grossBefore.IsZero()

	if grossBefore.IsZero() {
		// by convention, all growth before a tick was initialized happened below it
		if tick <= currentTick {
			info.FeeGrowthOutside0 = feeGrowthGlobal0
			info.FeeGrowthOutside1 = feeGrowthGlobal1
		}
		info.Initialized = true
	}
	info.LiquidityGross = grossAfter

	if upper {
		info.LiquidityNet, err = liquiditymath.SubNet(info.LiquidityNet, liquidityDelta)
	} else {
		info.LiquidityNet, err = liquiditymath.AddNet(info.LiquidityNet, liquidityDelta)
	}
	if err != nil {
		return false, err
	}

	return flipped, l.ticks.Set(tick, info)
}

// FeeGrowthInside returns the fee growth per unit of liquidity between lower and upper.
func (l *Ledger) FeeGrowthInside(
	lower, upper, currentTick int32,
	feeGrowthGlobal0, feeGrowthGlobal1 modular.Uint256,
) (modular.Uint256, modular.Uint256, error) {
	lo, err := l.Get(lower)
	if err != nil {
		return modular.Uint256{}, modular.Uint256{}, err
	}
	hi, err := l.Get(upper)
	if err != nil {
		return modular.Uint256{}, modular.Uint256{}, err
	}

	below0, below1 := lo.FeeGrowthOutside0, lo.FeeGrowthOutside1
	if currentTick < lower {
		var ok0, ok1 bool
		below0, ok0 = feeGrowthGlobal0.CheckedSub(lo.FeeGrowthOutside0)
		below1, ok1 = feeGrowthGlobal1.CheckedSub(lo.FeeGrowthOutside1)
		if !ok0 || !ok1 {
			return modular.Uint256{}, modular.Uint256{}, ErrFeeGrowthSubTick
		}
	}

	above0, above1 := hi.FeeGrowthOutside0, hi.FeeGrowthOutside1
	if currentTick >= upper {
		var ok0, ok1 bool
		above0, ok0 = feeGrowthGlobal0.CheckedSub(hi.FeeGrowthOutside0)
		above1, ok1 = feeGrowthGlobal1.CheckedSub(hi.FeeGrowthOutside1)
		if !ok0 || !ok1 {
			return modular.Uint256{}, modular.Uint256{}, ErrFeeGrowthSubTick
		}
	}

	inside0, err := insideOf(feeGrowthGlobal0, below0, above0)
	if err != nil {
		return modular.Uint256{}, modular.Uint256{}, err
	}
	inside1, err := insideOf(feeGrowthGlobal1, below1, above1)
	if err != nil {
		return modular.Uint256{}, modular.Uint256{}, err
	}
	return inside0, inside1, nil
}

func insideOf(global, below, above modular.Uint256) (modular.Uint256, error) {
	rest, ok := global.CheckedSub(below)
	if !ok {
		return modular.Uint256{}, ErrFeeGrowthSubTick
	}
	inside, ok := rest.CheckedSub(above)
	if !ok {
		return modular.Uint256{}, ErrFeeGrowthSubTick
	}
	return inside, nil
}

// Cross flips the tick's outside fee growth as the price moves through it and returns
// its net liquidity.
func (l *Ledger) Cross(tick int32, feeGrowthGlobal0, feeGrowthGlobal1 modular.Uint256) (*big.Int, error) {
	info, err := l.Get(tick)
	if err != nil {
		return nil, err
	}
	info.FeeGrowthOutside0 = feeGrowthGlobal0.Sub(info.FeeGrowthOutside0)
	info.FeeGrowthOutside1 = feeGrowthGlobal1.Sub(info.FeeGrowthOutside1)
	if err := l.ticks.Set(tick, info); err != nil {
		return nil, err
	}
	return new(big.Int).Set(info.LiquidityNet), nil
}

// Clear deletes the tick.
func (l *Ledger) Clear(tick int32) error {
	return l.ticks.Delete(tick)
}
