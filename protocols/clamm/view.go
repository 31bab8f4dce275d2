// Package clamm holds the read-only snapshot views of concentrated-liquidity pools,
// together with the Differ and Patcher that let a consumer follow them.
package clamm

import (
	"fmt"
	"math/big"

	"github.com/defistate/clamm-engine/protocols/clamm/pool"
	"github.com/defistate/clamm-engine/protocols/clamm/position"
	"github.com/ethereum/go-ethereum/common"
)

// PoolView is a self-contained copy of one pool's state.
type PoolView struct {
	Address          common.Address `json:"address"`
	Enabled          bool           `json:"enabled"`
	Fee              uint32         `json:"fee"`
	TickSpacing      uint8          `json:"tickSpacing"`
	FeeProtocol      uint8          `json:"feeProtocol"`
	Tick             int32          `json:"tick"`
	Liquidity        *big.Int       `json:"liquidity"`
	SqrtPriceX96     *big.Int       `json:"sqrtPriceX96"`
	FeeGrowthGlobal0 *big.Int       `json:"feeGrowthGlobal0X128"`
	FeeGrowthGlobal1 *big.Int       `json:"feeGrowthGlobal1X128"`
	ProtocolFee0     *big.Int       `json:"protocolFee0"`
	ProtocolFee1     *big.Int       `json:"protocolFee1"`
	Ticks            []TickView     `json:"ticks"`
	Positions        []PositionView `json:"positions,omitempty"`
}

// TickView is an initialized tick. Uninitialized ticks are never listed.
type TickView struct {
	Index             int32    `json:"index"`
	LiquidityGross    *big.Int `json:"liquidityGross"`
	LiquidityNet      *big.Int `json:"liquidityNet"`
	FeeGrowthOutside0 *big.Int `json:"feeGrowthOutside0X128"`
	FeeGrowthOutside1 *big.Int `json:"feeGrowthOutside1X128"`
}

type PositionView struct {
	ID               uint64   `json:"id"`
	TickLower        int32    `json:"tickLower"`
	TickUpper        int32    `json:"tickUpper"`
	Liquidity        *big.Int `json:"liquidity"`
	FeeGrowthInside0 *big.Int `json:"feeGrowthInside0LastX128"`
	FeeGrowthInside1 *big.Int `json:"feeGrowthInside1LastX128"`
	TokensOwed0      *big.Int `json:"tokensOwed0"`
	TokensOwed1      *big.Int `json:"tokensOwed1"`
}

// NewPositionView copies a position record.
func NewPositionView(id position.ID, info position.Info) PositionView {
	return PositionView{
		ID:               uint64(id),
		TickLower:        info.Lower,
		TickUpper:        info.Upper,
		Liquidity:        info.Liquidity.Big(),
		FeeGrowthInside0: info.FeeGrowthInside0.Big(),
		FeeGrowthInside1: info.FeeGrowthInside1.Big(),
		TokensOwed0:      info.TokensOwed0.Big(),
		TokensOwed1:      info.TokensOwed1.Big(),
	}
}

// NewPoolView reads p into a view. Positions are listed in the order of ids;
// ids that do not exist in the pool are skipped.
func NewPoolView(addr common.Address, p *pool.Pool, ids []position.ID) (PoolView, error) {
	st := p.State()
	view := PoolView{
		Address:          addr,
		Enabled:          st.Enabled,
		Fee:              st.Fee,
		TickSpacing:      st.TickSpacing,
		FeeProtocol:      st.FeeProtocol,
		Tick:             st.Tick,
		Liquidity:        st.Liquidity.Big(),
		SqrtPriceX96:     st.SqrtPriceX96.ToBig(),
		FeeGrowthGlobal0: st.FeeGrowthGlobal0.Big(),
		FeeGrowthGlobal1: st.FeeGrowthGlobal1.Big(),
		ProtocolFee0:     st.ProtocolFee0.Big(),
		ProtocolFee1:     st.ProtocolFee1.Big(),
	}
	if !st.Initialized() {
		return view, nil
	}

	indexes, err := p.InitializedTicks()
	if err != nil {
		return PoolView{}, fmt.Errorf("failed to list ticks of pool %s: %w", addr, err)
	}
	view.Ticks = make([]TickView, 0, len(indexes))
	for _, index := range indexes {
		info, err := p.Tick(index)
		if err != nil {
			return PoolView{}, fmt.Errorf("failed to read tick %d of pool %s: %w", index, addr, err)
		}
		view.Ticks = append(view.Ticks, TickView{
			Index:             index,
			LiquidityGross:    info.LiquidityGross.Big(),
			LiquidityNet:      new(big.Int).Set(info.LiquidityNet),
			FeeGrowthOutside0: info.FeeGrowthOutside0.Big(),
			FeeGrowthOutside1: info.FeeGrowthOutside1.Big(),
		})
	}

	for _, id := range ids {
		info, ok, err := p.Position(id)
		if err != nil {
			return PoolView{}, fmt.Errorf("failed to read position %d of pool %s: %w", id, addr, err)
		}
		if ok {
			view.Positions = append(view.Positions, NewPositionView(id, info))
		}
	}
	return view, nil
}
