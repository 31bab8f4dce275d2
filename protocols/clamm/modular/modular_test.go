package modular

import (
	"crypto/rand"
	"math/big"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	two128 = new(big.Int).Lsh(big.NewInt(1), 128)
	two256 = new(big.Int).Lsh(big.NewInt(1), 256)
)

func maxUint256() Uint256 {
	return NewUint256(new(uint256.Int).SetAllOne())
}

func TestUint256Wraparound(t *testing.T) {
	t.Run("add wraps exactly at 2^256", func(t *testing.T) {
		sum := maxUint256().Add(Uint256From64(1))
		assert.True(t, sum.IsZero())

		sum = maxUint256().Add(Uint256From64(5))
		assert.True(t, sum.Eq(Uint256From64(4)))
	})

	t.Run("max minus zero does not wrap", func(t *testing.T) {
		assert.True(t, maxUint256().Add(Uint256From64(0)).Eq(maxUint256()))
	})

	t.Run("sub wraps below zero", func(t *testing.T) {
		diff := Uint256From64(0).Sub(Uint256From64(1))
		assert.True(t, diff.Eq(maxUint256()))
	})

	t.Run("checked sub reports borrow", func(t *testing.T) {
		_, ok := Uint256From64(3).CheckedSub(Uint256From64(4))
		assert.False(t, ok)

		r, ok := Uint256From64(4).CheckedSub(Uint256From64(3))
		require.True(t, ok)
		assert.True(t, r.Eq(Uint256From64(1)))
	})

	t.Run("randomised add matches big.Int modulo 2^256", func(t *testing.T) {
		for i := 0; i < 500; i++ {
			a, _ := rand.Int(rand.Reader, two256)
			b, _ := rand.Int(rand.Reader, two256)
			want := new(big.Int).Add(a, b)
			want.Mod(want, two256)

			got := NewUint256(uint256.MustFromBig(a)).Add(NewUint256(uint256.MustFromBig(b)))
			assert.Zero(t, want.Cmp(got.Big()))
		}
	})

	t.Run("bytes round trip", func(t *testing.T) {
		v := NewUint256(uint256.MustFromDecimal("792281625142643375935439503360"))
		assert.True(t, v.Eq(Uint256FromBytes32(v.Bytes32())))
		assert.Equal(t, "792281625142643375935439503360", v.String())
	})
}

func TestUint128Wraparound(t *testing.T) {
	t.Run("add wraps exactly at 2^128", func(t *testing.T) {
		assert.True(t, MaxUint128.Add(Uint128From64(1)).IsZero())
		assert.True(t, MaxUint128.Add(Uint128From64(10)).Eq(Uint128From64(9)))
	})

	t.Run("sub wraps below zero", func(t *testing.T) {
		assert.True(t, Uint128From64(0).Sub(Uint128From64(1)).Eq(MaxUint128))
	})

	t.Run("checked add rejects overflow", func(t *testing.T) {
		_, ok := MaxUint128.CheckedAdd(Uint128From64(1))
		assert.False(t, ok)

		r, ok := MaxUint128.Sub(Uint128From64(1)).CheckedAdd(Uint128From64(1))
		require.True(t, ok)
		assert.True(t, r.Eq(MaxUint128))
	})

	t.Run("checked sub rejects underflow", func(t *testing.T) {
		_, ok := Uint128From64(1).CheckedSub(Uint128From64(2))
		assert.False(t, ok)
	})

	t.Run("construction bounds", func(t *testing.T) {
		_, ok := NewUint128(new(uint256.Int).Lsh(uint256.NewInt(1), 128))
		assert.False(t, ok)

		v, ok := NewUint128(MaxUint128.Int())
		require.True(t, ok)
		assert.True(t, v.Eq(MaxUint128))

		_, ok = Uint128FromBig(big.NewInt(-1))
		assert.False(t, ok)
		_, ok = Uint128FromBig(two128)
		assert.False(t, ok)
	})

	t.Run("truncate keeps the low 128 bits", func(t *testing.T) {
		x := new(uint256.Int).Lsh(uint256.NewInt(1), 128)
		x.AddUint64(x, 7)
		assert.True(t, TruncateUint128(x).Eq(Uint128From64(7)))
	})

	t.Run("min", func(t *testing.T) {
		assert.True(t, Uint128From64(3).Min(Uint128From64(2)).Eq(Uint128From64(2)))
		assert.True(t, Uint128From64(2).Min(Uint128From64(3)).Eq(Uint128From64(2)))
	})

	t.Run("bytes round trip", func(t *testing.T) {
		b := MaxUint128.Bytes16()
		assert.True(t, Uint128FromBytes16(b[:]).Eq(MaxUint128))
	})

	t.Run("randomised add matches big.Int modulo 2^128", func(t *testing.T) {
		for i := 0; i < 500; i++ {
			a, _ := rand.Int(rand.Reader, two128)
			b, _ := rand.Int(rand.Reader, two128)
			want := new(big.Int).Add(a, b)
			want.Mod(want, two128)

			ua, _ := Uint128FromBig(a)
			ub, _ := Uint128FromBig(b)
			assert.Zero(t, want.Cmp(ua.Add(ub).Big()))
		}
	})
}
