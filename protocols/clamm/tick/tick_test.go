package tick

import (
	"math/big"
	"testing"

	"github.com/defistate/clamm-engine/protocols/clamm/calculator/liquiditymath"
	"github.com/defistate/clamm-engine/protocols/clamm/modular"
	"github.com/defistate/clamm-engine/storage"
	"github.com/defistate/clamm-engine/storage/memory"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func u256(x uint64) modular.Uint256 { return modular.Uint256From64(x) }

func newLedger() *Ledger {
	return NewLedger(storage.NewMemoryMap[int32, Info]())
}

func setOutside(t *testing.T, l *Ledger, tick int32, g0, g1 uint64) {
	t.Helper()
	require.NoError(t, l.ticks.Set(tick, Info{
		LiquidityNet:      new(big.Int),
		FeeGrowthOutside0: u256(g0),
		FeeGrowthOutside1: u256(g1),
	}))
}

func TestFeeGrowthInside(t *testing.T) {
	g := u256(15)

	tests := []struct {
		name    string
		setup   func(t *testing.T, l *Ledger)
		current int32
		want0   uint64
		want1   uint64
	}{
		{"returns all for two uninitialized ticks if tick is inside", nil, 0, 15, 15},
		{"returns 0 for two uninitialized ticks if tick is above", nil, 4, 0, 0},
		{"returns 0 for two uninitialized ticks if tick is below", nil, -4, 0, 0},
		{
			"subtracts upper tick if below",
			func(t *testing.T, l *Ledger) { setOutside(t, l, 2, 2, 3) },
			0, 13, 12,
		},
		{
			"subtracts lower tick if above",
			func(t *testing.T, l *Ledger) { setOutside(t, l, -2, 2, 3) },
			0, 13, 12,
		},
		{
			"subtracts upper and lower tick if inside",
			func(t *testing.T, l *Ledger) {
				setOutside(t, l, -2, 2, 3)
				setOutside(t, l, 2, 4, 1)
			},
			0, 9, 11,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			l := newLedger()
			if tc.setup != nil {
				tc.setup(t, l)
			}
			in0, in1, err := l.FeeGrowthInside(-2, 2, tc.current, g, g)
			require.NoError(t, err)
			assert.Equal(t, u256(tc.want0), in0)
			assert.Equal(t, u256(tc.want1), in1)
		})
	}

	t.Run("outside growth larger than global fails", func(t *testing.T) {
		l := newLedger()
		huge := modular.NewUint256(new(uint256.Int).Sub(new(uint256.Int).SetAllOne(), uint256.NewInt(3)))
		require.NoError(t, l.ticks.Set(-2, Info{LiquidityNet: new(big.Int), FeeGrowthOutside0: huge, FeeGrowthOutside1: huge}))
		_, _, err := l.FeeGrowthInside(-2, 2, 0, g, g)
		assert.ErrorIs(t, err, ErrFeeGrowthSubTick)
	})
}

func TestUpdate(t *testing.T) {
	zero := modular.Uint256{}
	max3 := modular.Uint128From64(3)

	t.Run("flips from zero to nonzero", func(t *testing.T) {
		l := newLedger()
		flipped, err := l.Update(0, 0, big.NewInt(1), zero, zero, false, max3)
		require.NoError(t, err)
		assert.True(t, flipped)
	})

	t.Run("does not flip from nonzero to greater nonzero", func(t *testing.T) {
		l := newLedger()
		_, err := l.Update(0, 0, big.NewInt(1), zero, zero, false, max3)
		require.NoError(t, err)
		flipped, err := l.Update(0, 0, big.NewInt(1), zero, zero, false, max3)
		require.NoError(t, err)
		assert.False(t, flipped)
	})

	t.Run("flips from nonzero to zero", func(t *testing.T) {
		l := newLedger()
		_, err := l.Update(0, 0, big.NewInt(1), zero, zero, false, max3)
		require.NoError(t, err)
		flipped, err := l.Update(0, 0, big.NewInt(-1), zero, zero, false, max3)
		require.NoError(t, err)
		assert.True(t, flipped)
	})

	t.Run("does not flip from nonzero to lesser nonzero", func(t *testing.T) {
		l := newLedger()
		_, err := l.Update(0, 0, big.NewInt(2), zero, zero, false, max3)
		require.NoError(t, err)
		flipped, err := l.Update(0, 0, big.NewInt(-1), zero, zero, false, max3)
		require.NoError(t, err)
		assert.False(t, flipped)
	})

	t.Run("reverts if total liquidity gross is greater than max", func(t *testing.T) {
		l := newLedger()
		_, err := l.Update(0, 0, big.NewInt(2), zero, zero, false, max3)
		require.NoError(t, err)
		_, err = l.Update(0, 0, big.NewInt(1), zero, zero, true, max3)
		require.NoError(t, err)
		_, err = l.Update(0, 0, big.NewInt(1), zero, zero, false, max3)
		assert.ErrorIs(t, err, ErrLiquidityTooHigh)
	})

	t.Run("nets the liquidity based on upper flag", func(t *testing.T) {
		l := newLedger()
		max := modular.Uint128From64(10)
		for _, step := range []struct {
			delta int64
			upper bool
		}{{2, false}, {1, true}, {3, true}, {1, false}} {
			_, err := l.Update(0, 0, big.NewInt(step.delta), zero, zero, step.upper, max)
			require.NoError(t, err)
		}
		info, err := l.Get(0)
		require.NoError(t, err)
		assert.Equal(t, "7", info.LiquidityGross.String())
		assert.Equal(t, "-1", info.LiquidityNet.String())
	})

	t.Run("reverts on overflow liquidity gross", func(t *testing.T) {
		l := newLedger()
		_, err := l.Update(0, 0, liquiditymath.MaxInt128, zero, zero, false, modular.MaxUint128)
		require.NoError(t, err)
		_, err = l.Update(0, 0, liquiditymath.MaxInt128, zero, zero, true, modular.MaxUint128)
		require.NoError(t, err)
		_, err = l.Update(0, 0, liquiditymath.MaxInt128, zero, zero, false, modular.MaxUint128)
		assert.ErrorIs(t, err, liquiditymath.ErrLiquidityOverflow)
	})

	t.Run("assumes all growth happens below ticks lte current tick", func(t *testing.T) {
		l := newLedger()
		_, err := l.Update(1, 1, big.NewInt(1), u256(1), u256(2), false, modular.MaxUint128)
		require.NoError(t, err)
		info, err := l.Get(1)
		require.NoError(t, err)
		assert.Equal(t, u256(1), info.FeeGrowthOutside0)
		assert.Equal(t, u256(2), info.FeeGrowthOutside1)
		assert.True(t, info.Initialized)
	})

	t.Run("does not set any growth fields if tick is already initialized", func(t *testing.T) {
		l := newLedger()
		_, err := l.Update(1, 1, big.NewInt(1), u256(1), u256(2), false, modular.MaxUint128)
		require.NoError(t, err)
		_, err = l.Update(1, 1, big.NewInt(1), u256(6), u256(7), false, modular.MaxUint128)
		require.NoError(t, err)
		info, err := l.Get(1)
		require.NoError(t, err)
		assert.Equal(t, u256(1), info.FeeGrowthOutside0)
		assert.Equal(t, u256(2), info.FeeGrowthOutside1)
	})

	t.Run("does not set any growth fields for ticks gt current tick", func(t *testing.T) {
		l := newLedger()
		_, err := l.Update(2, 1, big.NewInt(1), u256(1), u256(2), false, modular.MaxUint128)
		require.NoError(t, err)
		info, err := l.Get(2)
		require.NoError(t, err)
		assert.True(t, info.FeeGrowthOutside0.IsZero())
		assert.True(t, info.FeeGrowthOutside1.IsZero())
	})
}

func TestCross(t *testing.T) {
	l := newLedger()
	require.NoError(t, l.ticks.Set(2, Info{
		LiquidityGross:    modular.Uint128From64(3),
		LiquidityNet:      big.NewInt(4),
		FeeGrowthOutside0: u256(1),
		FeeGrowthOutside1: u256(2),
		Initialized:       true,
	}))

	net, err := l.Cross(2, u256(7), u256(9))
	require.NoError(t, err)
	assert.Equal(t, int64(4), net.Int64())

	info, err := l.Get(2)
	require.NoError(t, err)
	assert.Equal(t, u256(6), info.FeeGrowthOutside0)
	assert.Equal(t, u256(7), info.FeeGrowthOutside1)

	t.Run("two crosses restore the original", func(t *testing.T) {
		_, err := l.Cross(2, u256(7), u256(9))
		require.NoError(t, err)
		info, err := l.Get(2)
		require.NoError(t, err)
		assert.Equal(t, u256(1), info.FeeGrowthOutside0)
		assert.Equal(t, u256(2), info.FeeGrowthOutside1)
	})

	t.Run("wraps when global is below outside", func(t *testing.T) {
		_, err := l.Cross(2, u256(0), u256(0))
		require.NoError(t, err)
		info, err := l.Get(2)
		require.NoError(t, err)
		assert.Equal(t, u256(0).Sub(u256(1)), info.FeeGrowthOutside0)
	})
}

func TestClear(t *testing.T) {
	l := newLedger()
	_, err := l.Update(2, 1, big.NewInt(3), u256(1), u256(2), false, modular.MaxUint128)
	require.NoError(t, err)
	require.NoError(t, l.Clear(2))

	info, err := l.Get(2)
	require.NoError(t, err)
	assert.True(t, info.LiquidityGross.IsZero())
	assert.Zero(t, info.LiquidityNet.Sign())
	assert.False(t, info.Initialized)
}

func TestLedger_WordStore(t *testing.T) {
	backend := memory.New()
	ticks := storage.NewWordMap[int32, Info](backend, storage.Namespace("tick", common.Address{}), storage.Int32Key, Codec{})
	l := NewLedger(ticks)

	_, err := l.Update(-60, 0, big.NewInt(5), u256(10), u256(20), true, modular.MaxUint128)
	require.NoError(t, err)

	info, err := NewLedger(ticks).Get(-60)
	require.NoError(t, err)
	assert.Equal(t, "5", info.LiquidityGross.String())
	assert.Equal(t, "-5", info.LiquidityNet.String())
	assert.Equal(t, u256(10), info.FeeGrowthOutside0)
	assert.Equal(t, u256(20), info.FeeGrowthOutside1)
	assert.True(t, info.Initialized)

	require.NoError(t, l.Clear(-60))
	assert.Equal(t, 0, backend.Len())
}
