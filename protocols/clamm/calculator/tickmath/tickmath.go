package tickmath

import (
	"sync"

	"github.com/defistate/clamm-engine/protocols/clamm/clammerr"
	"github.com/holiman/uint256"
)

const (
	// MIN_TICK is the minimum tick that may be passed to GetSqrtRatioAtTick.
	MIN_TICK = int32(-887272)
	// MAX_TICK is the maximum tick that may be passed to GetSqrtRatioAtTick.
	MAX_TICK = int32(887272)
)

var (
	// MIN_SQRT_RATIO is the minimum value that can be returned from GetSqrtRatioAtTick.
	MIN_SQRT_RATIO = uint256.MustFromDecimal("4295128739")
	// MAX_SQRT_RATIO is the maximum value that can be returned from GetSqrtRatioAtTick.
	MAX_SQRT_RATIO = uint256.MustFromDecimal("1461446703485210103287273052203988822378723970342")

	ErrTickOutOfBounds      = clammerr.New(clammerr.Bounds, "tick out of bounds")
	ErrSqrtPriceOutOfBounds = clammerr.New(clammerr.Bounds, "sqrt price out of bounds")

	one        = uint256.NewInt(1)
	maxUint256 = new(uint256.Int).SetAllOne()

	// ratioConstants[0] and [2..20] are 2^128/sqrt(1.0001^(2^k)); [1] is 1 in UQ128.128
	// and [21] masks the bits dropped by the final shift.
	ratioConstants = [22]*uint256.Int{
		uint256.MustFromHex("0xfffcb933bd6fad37aa2d162d1a594001"),
		uint256.MustFromHex("0x100000000000000000000000000000000"),
		uint256.MustFromHex("0xfff97272373d413259a46990580e213a"),
		uint256.MustFromHex("0xfff2e50f5f656932ef12357cf3c7fdcc"),
		uint256.MustFromHex("0xffe5caca7e10e4e61c3624eaa0941cd0"),
		uint256.MustFromHex("0xffcb9843d60f6159c9db58835c926644"),
		uint256.MustFromHex("0xff973b41fa98c081472e6896dfb254c0"),
		uint256.MustFromHex("0xff2ea16466c96a3843ec78b326b52861"),
		uint256.MustFromHex("0xfe5dee046a99a2a811c461f1969c3053"),
		uint256.MustFromHex("0xfcbe86c7900a88aedcffc83b479aa3a4"),
		uint256.MustFromHex("0xf987a7253ac413176f2b074cf7815e54"),
		uint256.MustFromHex("0xf3392b0822b70005940c7a398e4b70f3"),
		uint256.MustFromHex("0xe7159475a2c29b7443b29c7fa6e889d9"),
		uint256.MustFromHex("0xd097f3bdfd2022b8845ad8f792aa5825"),
		uint256.MustFromHex("0xa9f746462d870fdf8a65dc1f90e061e5"),
		uint256.MustFromHex("0x70d869a156d2a1b890bb3df62baf32f7"),
		uint256.MustFromHex("0x31be135f97d08fd981231505542fcfa6"),
		uint256.MustFromHex("0x9aa508b5b7a84e1c677de54f3e99bc9"),
		uint256.MustFromHex("0x5d6af8dedb81196699c329225ee604"),
		uint256.MustFromHex("0x2216e584f5fa1ea926041bedfe98"),
		uint256.MustFromHex("0x48a170391f7dc42444e8fa2"),
		uint256.MustFromHex("0xffffffff"),
	}
)

// tickMath holds reusable scratch values.
type tickMath struct {
	ratio uint256.Int
	rem   uint256.Int
	probe uint256.Int
}

var pool = sync.Pool{
	New: func() any {
		return new(tickMath)
	},
}

// GetSqrtRatioAtTick writes sqrt(1.0001^tick) * 2^96 into dest.
func GetSqrtRatioAtTick(dest *uint256.Int, tick int32) error {
	if tick < MIN_TICK || tick > MAX_TICK {
		return ErrTickOutOfBounds
	}

	tm := pool.Get().(*tickMath)
	defer pool.Put(tm)

	absTick := int64(tick)
	if absTick < 0 {
		absTick = -absTick
	}

	if absTick&0x1 != 0 {
		tm.ratio.Set(ratioConstants[0])
	} else {
		tm.ratio.Set(ratioConstants[1])
	}

	for i := 2; i < 21; i++ {
		if absTick&(1<<(i-1)) != 0 {
			tm.ratio.Mul(&tm.ratio, ratioConstants[i]).Rsh(&tm.ratio, 128)
		}
	}

	if tick > 0 {
		tm.ratio.Div(maxUint256, &tm.ratio)
	}

	// Q128.128 to Q64.96, rounding up so the inverse search stays consistent.
	tm.rem.And(&tm.ratio, ratioConstants[21])
	tm.ratio.Rsh(&tm.ratio, 32)
	if !tm.rem.IsZero() {
		tm.ratio.Add(&tm.ratio, one)
	}

	dest.Set(&tm.ratio)
	return nil
}

// GetTickAtSqrtRatio returns the greatest tick such that GetSqrtRatioAtTick(tick) <= sqrtPriceX96.
func GetTickAtSqrtRatio(sqrtPriceX96 *uint256.Int) (int32, error) {
	if sqrtPriceX96.Lt(MIN_SQRT_RATIO) || !sqrtPriceX96.Lt(MAX_SQRT_RATIO) {
		return 0, ErrSqrtPriceOutOfBounds
	}

	tm := pool.Get().(*tickMath)
	defer pool.Put(tm)

	low, high := MIN_TICK, MAX_TICK
	var tick int32
	for low <= high {
		mid := low + (high-low)/2
		if err := GetSqrtRatioAtTick(&tm.probe, mid); err != nil {
			return 0, err
		}

		if !tm.probe.Gt(sqrtPriceX96) {
			tick = mid
			low = mid + 1
		} else {
			high = mid - 1
		}
	}

	return tick, nil
}

// GetMinTick returns the lowest tick usable with the given spacing.
func GetMinTick(tickSpacing uint8) int32 {
	s := int32(tickSpacing)
	return (MIN_TICK / s) * s
}

// GetMaxTick returns the highest tick usable with the given spacing.
func GetMaxTick(tickSpacing uint8) int32 {
	s := int32(tickSpacing)
	return (MAX_TICK / s) * s
}
