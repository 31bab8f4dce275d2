package clamm

import (
	"math/big"
	"slices"

	"github.com/ethereum/go-ethereum/common"
)

// SystemDiff is the change between two sets of pool views.
type SystemDiff struct {
	Additions []PoolView       `json:"additions,omitempty"`
	Updates   []PoolView       `json:"updates,omitempty"`
	Deletions []common.Address `json:"deletions,omitempty"`
}

// IsEmpty returns true if the diff contains no changes.
func (d SystemDiff) IsEmpty() bool {
	return len(d.Additions) == 0 && len(d.Updates) == 0 && len(d.Deletions) == 0
}

func bigChanged(a, b *big.Int) bool {
	if a == nil || b == nil {
		return a != b
	}
	return a.Cmp(b) != 0
}

func poolChanged(old, new PoolView) bool {
	if old.Enabled != new.Enabled || old.Fee != new.Fee || old.TickSpacing != new.TickSpacing ||
		old.FeeProtocol != new.FeeProtocol || old.Tick != new.Tick {
		return true
	}
	for _, pair := range [][2]*big.Int{
		{old.SqrtPriceX96, new.SqrtPriceX96},
		{old.Liquidity, new.Liquidity},
		{old.FeeGrowthGlobal0, new.FeeGrowthGlobal0},
		{old.FeeGrowthGlobal1, new.FeeGrowthGlobal1},
		{old.ProtocolFee0, new.ProtocolFee0},
		{old.ProtocolFee1, new.ProtocolFee1},
	} {
		if bigChanged(pair[0], pair[1]) {
			return true
		}
	}
	return ticksChanged(old.Ticks, new.Ticks) || positionsChanged(old.Positions, new.Positions)
}

// ticksChanged compares ticks independently of slice order.
func ticksChanged(old, new []TickView) bool {
	if len(old) != len(new) {
		return true
	}
	byIndex := func(a, b TickView) int { return int(a.Index) - int(b.Index) }
	old = slices.SortedFunc(slices.Values(old), byIndex)
	new = slices.SortedFunc(slices.Values(new), byIndex)

	for i := range old {
		if old[i].Index != new[i].Index ||
			bigChanged(old[i].LiquidityGross, new[i].LiquidityGross) ||
			bigChanged(old[i].LiquidityNet, new[i].LiquidityNet) ||
			bigChanged(old[i].FeeGrowthOutside0, new[i].FeeGrowthOutside0) ||
			bigChanged(old[i].FeeGrowthOutside1, new[i].FeeGrowthOutside1) {
			return true
		}
	}
	return false
}

func positionsChanged(old, new []PositionView) bool {
	if len(old) != len(new) {
		return true
	}
	byID := func(a, b PositionView) int {
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}
		return 0
	}
	old = slices.SortedFunc(slices.Values(old), byID)
	new = slices.SortedFunc(slices.Values(new), byID)

	for i := range old {
		if old[i].ID != new[i].ID || old[i].TickLower != new[i].TickLower || old[i].TickUpper != new[i].TickUpper ||
			bigChanged(old[i].Liquidity, new[i].Liquidity) ||
			bigChanged(old[i].FeeGrowthInside0, new[i].FeeGrowthInside0) ||
			bigChanged(old[i].FeeGrowthInside1, new[i].FeeGrowthInside1) ||
			bigChanged(old[i].TokensOwed0, new[i].TokensOwed0) ||
			bigChanged(old[i].TokensOwed1, new[i].TokensOwed1) {
			return true
		}
	}
	return false
}

// Differ computes the additions, updates and deletions that turn old into new.
// Pools are matched by address.
func Differ(old, new []PoolView) SystemDiff {
	oldPools := make(map[common.Address]PoolView, len(old))
	for _, pool := range old {
		oldPools[pool.Address] = pool
	}
	newPools := make(map[common.Address]PoolView, len(new))
	for _, pool := range new {
		newPools[pool.Address] = pool
	}

	var diff SystemDiff
	for _, newPool := range new {
		oldPool, exists := oldPools[newPool.Address]
		if !exists {
			diff.Additions = append(diff.Additions, newPool)
		} else if poolChanged(oldPool, newPool) {
			diff.Updates = append(diff.Updates, newPool)
		}
	}
	for _, oldPool := range old {
		if _, exists := newPools[oldPool.Address]; !exists {
			diff.Deletions = append(diff.Deletions, oldPool.Address)
		}
	}
	return diff
}
