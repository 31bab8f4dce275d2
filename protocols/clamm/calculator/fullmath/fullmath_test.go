package fullmath

import (
	"crypto/rand"
	"math/big"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var two256 = new(big.Int).Lsh(big.NewInt(1), 256)

func u(s string) *uint256.Int {
	return uint256.MustFromDecimal(s)
}

func TestMulDiv(t *testing.T) {
	t.Run("Q128 * Q128 / Q128", func(t *testing.T) {
		z := new(uint256.Int)
		require.NoError(t, MulDiv(z, Q128, Q128, Q128))
		assert.True(t, z.Eq(Q128))
	})

	t.Run("denominator zero always fails", func(t *testing.T) {
		cases := [][2]*uint256.Int{
			{uint256.NewInt(0), uint256.NewInt(0)},
			{uint256.NewInt(5), uint256.NewInt(7)},
			{Q128, Q128},
			{MaxUint256, MaxUint256},
		}
		for _, c := range cases {
			err := MulDiv(new(uint256.Int), c[0], c[1], new(uint256.Int))
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrDenominatorIsZero)
		}
	})

	t.Run("result too wide", func(t *testing.T) {
		err := MulDiv(new(uint256.Int), Q128, Q128, uint256.NewInt(1))
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrResultTooWide)

		err = MulDiv(new(uint256.Int), MaxUint256, MaxUint256, new(uint256.Int).SubUint64(MaxUint256, 1))
		assert.ErrorIs(t, err, ErrResultTooWide)
	})

	t.Run("all max inputs", func(t *testing.T) {
		z := new(uint256.Int)
		require.NoError(t, MulDiv(z, MaxUint256, MaxUint256, MaxUint256))
		assert.True(t, z.Eq(MaxUint256))
	})

	t.Run("accurate without phantom overflow", func(t *testing.T) {
		// Q128 * 0.5 * Q128 * 1.5 / (Q128 * 0.75) = Q128
		a := new(uint256.Int).Div(Q128, uint256.NewInt(2))
		b := new(uint256.Int).Div(new(uint256.Int).Mul(Q128, uint256.NewInt(3)), uint256.NewInt(2))
		d := new(uint256.Int).Div(new(uint256.Int).Mul(Q128, uint256.NewInt(3)), uint256.NewInt(4))
		z := new(uint256.Int)
		require.NoError(t, MulDiv(z, a, b, d))
		assert.True(t, z.Eq(Q128))
	})

	t.Run("destination may alias an operand", func(t *testing.T) {
		a := uint256.NewInt(100)
		require.NoError(t, MulDiv(a, a, uint256.NewInt(3), uint256.NewInt(7)))
		assert.Equal(t, uint64(42), a.Uint64())
	})
}

func TestMulDivRoundingUp(t *testing.T) {
	t.Run("exact division does not round", func(t *testing.T) {
		z := new(uint256.Int)
		require.NoError(t, MulDivRoundingUp(z, Q128, Q128, Q128))
		assert.True(t, z.Eq(Q128))
	})

	t.Run("remainder rounds up", func(t *testing.T) {
		z := new(uint256.Int)
		require.NoError(t, MulDivRoundingUp(z, uint256.NewInt(10), uint256.NewInt(10), uint256.NewInt(3)))
		assert.Equal(t, uint64(34), z.Uint64())
	})

	t.Run("rounding past max fails", func(t *testing.T) {
		// 535006138814359 * 432862656469423142931042426214547535783388063929571229938474969 / 2 = MaxUint256 + 1/2
		a := u("535006138814359")
		b := u("432862656469423142931042426214547535783388063929571229938474969")
		err := MulDivRoundingUp(new(uint256.Int), a, b, uint256.NewInt(2))
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrResultIsMaxUint256)
	})

	t.Run("destination may alias an operand", func(t *testing.T) {
		a := uint256.NewInt(10)
		require.NoError(t, MulDivRoundingUp(a, a, uint256.NewInt(10), uint256.NewInt(3)))
		assert.Equal(t, uint64(34), a.Uint64())
	})

	t.Run("randomised against big.Int", func(t *testing.T) {
		for i := 0; i < 1000; i++ {
			a, _ := rand.Int(rand.Reader, two256)
			b, _ := rand.Int(rand.Reader, two256)
			d, _ := rand.Int(rand.Reader, two256)
			if d.Sign() == 0 {
				continue
			}
			prod := new(big.Int).Mul(a, b)
			floor, rem := new(big.Int).QuoRem(prod, d, new(big.Int))

			z := new(uint256.Int)
			err := MulDiv(z, uint256.MustFromBig(a), uint256.MustFromBig(b), uint256.MustFromBig(d))
			if floor.Cmp(two256) >= 0 {
				assert.ErrorIs(t, err, ErrResultTooWide)
				continue
			}
			require.NoError(t, err)
			assert.Zero(t, floor.Cmp(z.ToBig()))

			ceil := new(big.Int).Set(floor)
			if rem.Sign() > 0 {
				ceil.Add(ceil, big.NewInt(1))
			}
			err = MulDivRoundingUp(z, uint256.MustFromBig(a), uint256.MustFromBig(b), uint256.MustFromBig(d))
			if ceil.Cmp(two256) >= 0 {
				assert.ErrorIs(t, err, ErrResultIsMaxUint256)
				continue
			}
			require.NoError(t, err)
			assert.Zero(t, ceil.Cmp(z.ToBig()))
		}
	})
}

func TestMulMod(t *testing.T) {
	assert.True(t, MulMod(new(uint256.Int), uint256.NewInt(7), uint256.NewInt(9), new(uint256.Int)).IsZero())
	assert.Equal(t, uint64(3), MulMod(new(uint256.Int), uint256.NewInt(7), uint256.NewInt(9), uint256.NewInt(10)).Uint64())

	// (2^256-1)^2 mod (2^256-2) = 1
	m := new(uint256.Int).SubUint64(MaxUint256, 1)
	assert.Equal(t, uint64(1), MulMod(new(uint256.Int), MaxUint256, MaxUint256, m).Uint64())
}

func TestDivRoundingUp(t *testing.T) {
	z := new(uint256.Int)
	require.NoError(t, DivRoundingUp(z, uint256.NewInt(9), uint256.NewInt(3)))
	assert.Equal(t, uint64(3), z.Uint64())

	require.NoError(t, DivRoundingUp(z, uint256.NewInt(10), uint256.NewInt(3)))
	assert.Equal(t, uint64(4), z.Uint64())

	require.NoError(t, DivRoundingUp(z, uint256.NewInt(0), uint256.NewInt(3)))
	assert.True(t, z.IsZero())

	assert.ErrorIs(t, DivRoundingUp(z, uint256.NewInt(1), new(uint256.Int)), ErrDenominatorIsZero)
}
