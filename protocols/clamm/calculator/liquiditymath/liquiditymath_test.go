package liquiditymath

import (
	"math/big"
	"testing"

	"github.com/defistate/clamm-engine/protocols/clamm/modular"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func u128(s string) modular.Uint128 {
	v, ok := modular.NewUint128(uint256.MustFromDecimal(s))
	if !ok {
		panic(s)
	}
	return v
}

func TestAddDelta(t *testing.T) {
	two128 := new(big.Int).Lsh(big.NewInt(1), 128)

	testCases := []struct {
		name     string
		x        modular.Uint128
		y        *big.Int
		expected modular.Uint128
		err      error
	}{
		{"1 + 0", modular.Uint128From64(1), big.NewInt(0), modular.Uint128From64(1), nil},
		{"1 + -1", modular.Uint128From64(1), big.NewInt(-1), modular.Uint128From64(0), nil},
		{"1 + 1", modular.Uint128From64(1), big.NewInt(1), modular.Uint128From64(2), nil},
		{"2^128-15 + 15 overflows", u128(new(big.Int).Sub(two128, big.NewInt(15)).String()), big.NewInt(15), modular.Uint128{}, ErrLiquidityOverflow},
		{"0 + -1 underflows", modular.Uint128From64(0), big.NewInt(-1), modular.Uint128{}, ErrLiquidityUnderflow},
		{"3 + -4 underflows", modular.Uint128From64(3), big.NewInt(-4), modular.Uint128{}, ErrLiquidityUnderflow},
		{"max + 0", modular.MaxUint128, big.NewInt(0), modular.MaxUint128, nil},
		{"delta wider than 128 bits", modular.Uint128From64(0), two128, modular.Uint128{}, ErrLiquidityOverflow},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			result, err := AddDelta(tc.x, tc.y)
			if tc.err != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tc.err)
				return
			}
			require.NoError(t, err)
			assert.True(t, tc.expected.Eq(result), "got %s", result)
		})
	}
}

func TestNet(t *testing.T) {
	t.Run("add within range", func(t *testing.T) {
		sum, err := AddNet(big.NewInt(-5), big.NewInt(7))
		require.NoError(t, err)
		assert.Equal(t, int64(2), sum.Int64())
	})

	t.Run("add overflows int128", func(t *testing.T) {
		_, err := AddNet(MaxInt128, big.NewInt(1))
		assert.ErrorIs(t, err, ErrLiquidityOverflow)
	})

	t.Run("sub underflows int128", func(t *testing.T) {
		_, err := SubNet(MinInt128, big.NewInt(1))
		assert.ErrorIs(t, err, ErrLiquidityUnderflow)
	})

	t.Run("sub within range", func(t *testing.T) {
		diff, err := SubNet(big.NewInt(0), MaxInt128)
		require.NoError(t, err)
		assert.Zero(t, diff.Cmp(new(big.Int).Neg(MaxInt128)))
	})

	t.Run("to int128", func(t *testing.T) {
		_, ok := ToInt128(uint256.MustFromBig(MaxInt128))
		assert.True(t, ok)
		_, ok = ToInt128(new(uint256.Int).AddUint64(uint256.MustFromBig(MaxInt128), 1))
		assert.False(t, ok)
	})
}
