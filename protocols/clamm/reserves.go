package clamm

import (
	"errors"
	"math"
	"math/big"
)

var (
	ErrNoPrice = errors.New("pool has no price")

	Q96  = new(big.Int).Lsh(big.NewInt(1), 96)
	Q96F = new(big.Float).SetInt(Q96)
)

// GetVirtualReserves returns the reserves a constant-product pool would need to hold to
// quote the same marginal price with the active liquidity. zeroForOne orders them as
// (token0, token1), otherwise as (token1, token0).
func GetVirtualReserves(zeroForOne bool, view PoolView) (reserveIn, reserveOut *big.Int, err error) {
	if view.SqrtPriceX96 == nil || view.SqrtPriceX96.Sign() == 0 {
		return nil, nil, ErrNoPrice
	}
	reserve0 := new(big.Int).Div(new(big.Int).Lsh(view.Liquidity, 96), view.SqrtPriceX96)
	reserve1 := new(big.Int).Div(new(big.Int).Mul(view.Liquidity, view.SqrtPriceX96), Q96)

	if zeroForOne {
		return reserve0, reserve1, nil
	}
	return reserve1, reserve0, nil
}

// GetSpotPrice returns the price of one whole input token in output token units,
// scaled by the output token's decimals. With a 6-decimal output token, 3045123456
// is a price of 3045.123456.
func GetSpotPrice(zeroForOne bool, decimalsIn, decimalsOut uint8, view PoolView) (*big.Int, error) {
	if view.SqrtPriceX96 == nil || view.SqrtPriceX96.Sign() == 0 {
		return nil, ErrNoPrice
	}
	decimalsInF := big.NewFloat(math.Pow(10, float64(decimalsIn)))

	// token1 per token0 in raw units
	ratio := new(big.Float).SetInt(view.SqrtPriceX96)
	ratio.Quo(ratio, Q96F)
	price := new(big.Float).Mul(ratio, ratio)
	if !zeroForOne {
		price.Quo(big.NewFloat(1), price)
	}

	spot := price.Mul(price, decimalsInF)
	sp, _ := spot.Int(nil)
	return sp, nil
}
