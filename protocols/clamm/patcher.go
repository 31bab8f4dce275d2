package clamm

import (
	"bytes"
	"fmt"
	"math/big"
	"slices"

	"github.com/ethereum/go-ethereum/common"
)

func copyBig(x *big.Int) *big.Int {
	if x == nil {
		return nil
	}
	return new(big.Int).Set(x)
}

func copyTickView(t TickView) TickView {
	return TickView{
		Index:             t.Index,
		LiquidityGross:    copyBig(t.LiquidityGross),
		LiquidityNet:      copyBig(t.LiquidityNet),
		FeeGrowthOutside0: copyBig(t.FeeGrowthOutside0),
		FeeGrowthOutside1: copyBig(t.FeeGrowthOutside1),
	}
}

func copyPositionView(p PositionView) PositionView {
	p.Liquidity = copyBig(p.Liquidity)
	p.FeeGrowthInside0 = copyBig(p.FeeGrowthInside0)
	p.FeeGrowthInside1 = copyBig(p.FeeGrowthInside1)
	p.TokensOwed0 = copyBig(p.TokensOwed0)
	p.TokensOwed1 = copyBig(p.TokensOwed1)
	return p
}

// deepCopyPool returns a view that shares no memory with p.
func deepCopyPool(p PoolView) PoolView {
	out := p
	out.Liquidity = copyBig(p.Liquidity)
	out.SqrtPriceX96 = copyBig(p.SqrtPriceX96)
	out.FeeGrowthGlobal0 = copyBig(p.FeeGrowthGlobal0)
	out.FeeGrowthGlobal1 = copyBig(p.FeeGrowthGlobal1)
	out.ProtocolFee0 = copyBig(p.ProtocolFee0)
	out.ProtocolFee1 = copyBig(p.ProtocolFee1)

	if p.Ticks != nil {
		out.Ticks = make([]TickView, len(p.Ticks))
		for i, t := range p.Ticks {
			out.Ticks[i] = copyTickView(t)
		}
	}
	if p.Positions != nil {
		out.Positions = make([]PositionView, len(p.Positions))
		for i, pos := range p.Positions {
			out.Positions[i] = copyPositionView(pos)
		}
	}
	return out
}

// Patcher applies diff to prevState and returns the new set of views, sorted by
// address. prevState is not modified.
func Patcher(prevState []PoolView, diff SystemDiff) ([]PoolView, error) {
	pools := make(map[common.Address]PoolView, len(prevState))
	for _, pool := range prevState {
		pools[pool.Address] = deepCopyPool(pool)
	}

	for _, addr := range diff.Deletions {
		if _, ok := pools[addr]; !ok {
			return nil, fmt.Errorf("cannot delete unknown pool %s", addr)
		}
		delete(pools, addr)
	}
	for _, updated := range diff.Updates {
		if _, ok := pools[updated.Address]; !ok {
			return nil, fmt.Errorf("cannot update unknown pool %s", updated.Address)
		}
		pools[updated.Address] = deepCopyPool(updated)
	}
	for _, added := range diff.Additions {
		if _, ok := pools[added.Address]; ok {
			return nil, fmt.Errorf("cannot add existing pool %s", added.Address)
		}
		pools[added.Address] = deepCopyPool(added)
	}

	out := make([]PoolView, 0, len(pools))
	for _, pool := range pools {
		out = append(out, pool)
	}
	slices.SortFunc(out, func(a, b PoolView) int { return bytes.Compare(a.Address[:], b.Address[:]) })
	return out, nil
}
