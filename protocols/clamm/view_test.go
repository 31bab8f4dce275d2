package clamm

import (
	"math/big"
	"testing"

	"github.com/defistate/clamm-engine/protocols/clamm/modular"
	"github.com/defistate/clamm-engine/protocols/clamm/pool"
	"github.com/defistate/clamm-engine/protocols/clamm/position"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var priceOf100 = new(uint256.Int).Lsh(uint256.NewInt(10), 96)

func TestNewPoolView(t *testing.T) {
	addr := common.HexToAddress("0x00000000000000000000000000000000000000aa")

	t.Run("uninitialized pool has no ticks", func(t *testing.T) {
		view, err := NewPoolView(addr, pool.New(pool.NewMemoryStorage()), nil)
		require.NoError(t, err)
		assert.Equal(t, addr, view.Address)
		assert.Zero(t, view.SqrtPriceX96.Sign())
		assert.Empty(t, view.Ticks)
	})

	p := pool.New(pool.NewMemoryStorage())
	require.NoError(t, p.Initialize(priceOf100, 500, 10, modular.MaxUint128))
	require.NoError(t, p.SetEnabled(true))
	require.NoError(t, p.CreatePosition(7, 39120, 50100))
	_, _, err := p.UpdatePosition(7, big.NewInt(20000))
	require.NoError(t, err)

	view, err := NewPoolView(addr, p, []position.ID{7, 8})
	require.NoError(t, err)

	assert.True(t, view.Enabled)
	assert.Equal(t, uint32(500), view.Fee)
	assert.Equal(t, uint8(10), view.TickSpacing)
	assert.Equal(t, int32(46054), view.Tick)
	assert.Equal(t, "20000", view.Liquidity.String())
	assert.Equal(t, priceOf100.ToBig(), view.SqrtPriceX96)

	require.Len(t, view.Ticks, 2)
	assert.Equal(t, int32(39120), view.Ticks[0].Index)
	assert.Equal(t, "20000", view.Ticks[0].LiquidityNet.String())
	assert.Equal(t, int32(50100), view.Ticks[1].Index)
	assert.Equal(t, "-20000", view.Ticks[1].LiquidityNet.String())
	assert.Equal(t, "20000", view.Ticks[1].LiquidityGross.String())

	require.Len(t, view.Positions, 1, "unknown position ids are skipped")
	assert.Equal(t, uint64(7), view.Positions[0].ID)
	assert.Equal(t, int32(39120), view.Positions[0].TickLower)
	assert.Equal(t, int32(50100), view.Positions[0].TickUpper)
	assert.Equal(t, "20000", view.Positions[0].Liquidity.String())

	// the view does not alias the pool
	view.Ticks[0].LiquidityNet.SetInt64(1)
	info, err := p.Tick(39120)
	require.NoError(t, err)
	assert.Equal(t, "20000", info.LiquidityNet.String())
}
