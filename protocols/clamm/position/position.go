// Package position keeps the liquidity and owed fees of each position in a pool.
package position

import (
	"math/big"

	"github.com/defistate/clamm-engine/protocols/clamm/calculator/fullmath"
	"github.com/defistate/clamm-engine/protocols/clamm/calculator/liquiditymath"
	"github.com/defistate/clamm-engine/protocols/clamm/clammerr"
	"github.com/defistate/clamm-engine/protocols/clamm/modular"
	"github.com/defistate/clamm-engine/storage"
	"github.com/holiman/uint256"
)

var (
	ErrPositionExists   = clammerr.New(clammerr.Lifecycle, "position already exists")
	ErrPositionNotFound = clammerr.New(clammerr.Lifecycle, "position does not exist")
	ErrFeeGrowthSubPos  = clammerr.New(clammerr.Arithmetic, "fee growth inside is below the position's snapshot")
)

// ID is assigned by the caller and is unique within a pool.
type ID uint64

type Info struct {
	Lower     int32
	Upper     int32
	Liquidity modular.Uint128

	// fee growth inside the range as of the last update
	FeeGrowthInside0 modular.Uint256
	FeeGrowthInside1 modular.Uint256

	// wrap modulo 2^128; holders are expected to collect before that happens
	TokensOwed0 modular.Uint128
	TokensOwed1 modular.Uint128
}

type Ledger struct {
	positions storage.Map[ID, Info]
}

func NewLedger(positions storage.Map[ID, Info]) *Ledger {
	return &Ledger{positions: positions}
}

func (l *Ledger) Get(id ID) (Info, bool, error) {
	return l.positions.Get(id)
}

// New records the bounds of position id. An existing position may only be
// re-created once its liquidity is zero. Owed fees carry over and the fee
// snapshots restart from zero.
func (l *Ledger) New(id ID, lower, upper int32) error {
	info, ok, err := l.positions.Get(id)
	if err != nil {
		return err
	}
	if ok && !info.Liquidity.IsZero() {
		return ErrPositionExists
	}
	return l.positions.Set(id, Info{
		Lower:       lower,
		Upper:       upper,
		TokensOwed0: info.TokensOwed0,
		TokensOwed1: info.TokensOwed1,
	})
}

// Update settles the fees earned since the last update and applies a liquidity delta.
func (l *Ledger) Update(id ID, liquidityDelta *big.Int, feeGrowthInside0, feeGrowthInside1 modular.Uint256) error {
	info, ok, err := l.positions.Get(id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrPositionNotFound
	}

	owed0, err := owed(feeGrowthInside0, info.FeeGrowthInside0, info.Liquidity)
	if err != nil {
		return err
	}
	owed1, err := owed(feeGrowthInside1, info.FeeGrowthInside1, info.Liquidity)
	if err != nil {
		return err
	}

	liquidity, err := liquiditymath.AddDelta(info.Liquidity, liquidityDelta)
	if err != nil {
		return err
	}

	info.Liquidity = liquidity
	info.FeeGrowthInside0 = feeGrowthInside0
	info.FeeGrowthInside1 = feeGrowthInside1
	info.TokensOwed0 = info.TokensOwed0.Add(owed0)
	info.TokensOwed1 = info.TokensOwed1.Add(owed1)

	return l.positions.Set(id, info)
}

func owed(inside, snapshot modular.Uint256, liquidity modular.Uint128) (modular.Uint128, error) {
	growth, ok := inside.CheckedSub(snapshot)
	if !ok {
		return modular.Uint128{}, ErrFeeGrowthSubPos
	}
	var amount uint256.Int
	if err := fullmath.MulDiv(&amount, growth.Int(), liquidity.Int(), fullmath.Q128); err != nil {
		return modular.Uint128{}, err
	}
	return modular.TruncateUint128(&amount), nil
}

// FeesOwed returns the uncollected fees of position id.
func (l *Ledger) FeesOwed(id ID) (modular.Uint128, modular.Uint128, error) {
	info, _, err := l.positions.Get(id)
	if err != nil {
		return modular.Uint128{}, modular.Uint128{}, err
	}
	return info.TokensOwed0, info.TokensOwed1, nil
}

// CollectFees zeroes and returns the owed fees of position id.
func (l *Ledger) CollectFees(id ID) (modular.Uint128, modular.Uint128, error) {
	info, ok, err := l.positions.Get(id)
	if err != nil || !ok {
		return modular.Uint128{}, modular.Uint128{}, err
	}
	amount0, amount1 := info.TokensOwed0, info.TokensOwed1
	if amount0.IsZero() && amount1.IsZero() {
		return amount0, amount1, nil
	}
	info.TokensOwed0 = modular.Uint128{}
	info.TokensOwed1 = modular.Uint128{}
	if err := l.positions.Set(id, info); err != nil {
		return modular.Uint128{}, modular.Uint128{}, err
	}
	return amount0, amount1, nil
}
