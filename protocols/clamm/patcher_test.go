package clamm

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func findPool(pools []PoolView, addr byte) *PoolView {
	for i := range pools {
		if pools[i].Address == common.BytesToAddress([]byte{addr}) {
			return &pools[i]
		}
	}
	return nil
}

func TestPatcher(t *testing.T) {
	tick1 := newTestTick(60, 100)
	tick2 := newTestTick(120, 200)

	pool1Old := newTestPool(1, 1000, 5000, 100, []TickView{tick1})
	pool2Old := newTestPool(2, 2000, 6000, 200, []TickView{tick2})
	pool3Old := newTestPool(3, 3000, 7000, 300, nil)

	initialState := []PoolView{pool3Old, pool1Old, pool2Old}

	t.Run("should handle only additions", func(t *testing.T) {
		newState, err := Patcher(initialState, SystemDiff{
			Additions: []PoolView{newTestPool(4, 4000, 8000, 400, nil)},
		})
		require.NoError(t, err)

		require.Len(t, newState, 4)
		added := findPool(newState, 4)
		require.NotNil(t, added)
		assert.Equal(t, int64(4000), added.Liquidity.Int64())
	})

	t.Run("should handle only deletions", func(t *testing.T) {
		newState, err := Patcher(initialState, SystemDiff{
			Deletions: []common.Address{pool2Old.Address},
		})
		require.NoError(t, err)

		assert.Len(t, newState, 2)
		assert.Nil(t, findPool(newState, 2))
	})

	t.Run("should handle only updates", func(t *testing.T) {
		updated := newTestPool(1, 1001, 5005, 101, []TickView{newTestTick(60, 150)})
		newState, err := Patcher(initialState, SystemDiff{Updates: []PoolView{updated}})
		require.NoError(t, err)

		got := findPool(newState, 1)
		require.NotNil(t, got)
		assert.Equal(t, int64(1001), got.Liquidity.Int64())
		assert.Equal(t, int32(101), got.Tick)
		assert.Equal(t, int64(150), got.Ticks[0].LiquidityNet.Int64())
	})

	t.Run("should return pools sorted by address", func(t *testing.T) {
		newState, err := Patcher(initialState, SystemDiff{})
		require.NoError(t, err)

		require.Len(t, newState, 3)
		for i, addr := range []byte{1, 2, 3} {
			assert.Equal(t, common.BytesToAddress([]byte{addr}), newState[i].Address)
		}
	})

	t.Run("should reject inconsistent diffs", func(t *testing.T) {
		_, err := Patcher(initialState, SystemDiff{Deletions: []common.Address{common.BytesToAddress([]byte{9})}})
		assert.Error(t, err)
		_, err = Patcher(initialState, SystemDiff{Updates: []PoolView{newTestPool(9, 1, 1, 1, nil)}})
		assert.Error(t, err)
		_, err = Patcher(initialState, SystemDiff{Additions: []PoolView{pool1Old}})
		assert.Error(t, err)
	})

	t.Run("should not mutate the previous state", func(t *testing.T) {
		newState, err := Patcher(initialState, SystemDiff{})
		require.NoError(t, err)

		findPool(newState, 1).Liquidity.SetInt64(1)
		findPool(newState, 1).Ticks[0].LiquidityNet.SetInt64(1)
		assert.Equal(t, int64(1000), pool1Old.Liquidity.Int64())
		assert.Equal(t, int64(100), pool1Old.Ticks[0].LiquidityNet.Int64())
	})

	t.Run("should round-trip a diff", func(t *testing.T) {
		next := []PoolView{
			newTestPool(1, 1000, 5001, 100, []TickView{tick1}),
			pool2Old,
			newTestPool(4, 4000, 8000, 400, nil),
		}
		newState, err := Patcher(initialState, Differ(initialState, next))
		require.NoError(t, err)
		assert.True(t, Differ(next, newState).IsEmpty())
		assert.Equal(t, big.NewInt(5001), findPool(newState, 1).SqrtPriceX96)
	})
}
