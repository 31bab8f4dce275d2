package pool

import (
	"encoding/binary"

	"github.com/defistate/clamm-engine/protocols/clamm/modular"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// State holds the scalar fields of a pool. It is a plain value and safe to copy.
type State struct {
	Enabled             bool
	Fee                 uint32 // hundredths of a basis point
	TickSpacing         uint8
	MaxLiquidityPerTick modular.Uint128

	// low nibble divides the fee on token0 input, high nibble on token1; 0 is off
	FeeProtocol uint8

	FeeGrowthGlobal0 modular.Uint256
	FeeGrowthGlobal1 modular.Uint256
	ProtocolFee0     modular.Uint128
	ProtocolFee1     modular.Uint128

	Liquidity    modular.Uint128
	Tick         int32
	SqrtPriceX96 uint256.Int
}

// Initialized reports whether a price has been set.
func (s State) Initialized() bool {
	return !s.SqrtPriceX96.IsZero()
}

// StateCodec lays a State out over six words:
// the packed configuration and tick, the price, both fee growth accumulators,
// the active liquidity, then both protocol fee balances.
type StateCodec struct{}

func (StateCodec) Words() int { return 6 }

func (StateCodec) Encode(s State) []common.Hash {
	var head, liquidity, protocol common.Hash
	if s.Enabled {
		head[0] = 1
	}
	binary.BigEndian.PutUint32(head[1:5], s.Fee)
	head[5] = s.TickSpacing
	head[6] = s.FeeProtocol
	binary.BigEndian.PutUint32(head[7:11], uint32(s.Tick))
	maxLiquidity := s.MaxLiquidityPerTick.Bytes16()
	copy(head[16:], maxLiquidity[:])

	active := s.Liquidity.Bytes16()
	copy(liquidity[16:], active[:])

	fee0, fee1 := s.ProtocolFee0.Bytes16(), s.ProtocolFee1.Bytes16()
	copy(protocol[:16], fee0[:])
	copy(protocol[16:], fee1[:])

	return []common.Hash{
		head,
		common.Hash(s.SqrtPriceX96.Bytes32()),
		common.Hash(s.FeeGrowthGlobal0.Bytes32()),
		common.Hash(s.FeeGrowthGlobal1.Bytes32()),
		liquidity,
		protocol,
	}
}

func (StateCodec) Decode(words []common.Hash) (State, error) {
	s := State{
		Enabled:             words[0][0] == 1,
		Fee:                 binary.BigEndian.Uint32(words[0][1:5]),
		TickSpacing:         words[0][5],
		FeeProtocol:         words[0][6],
		Tick:                int32(binary.BigEndian.Uint32(words[0][7:11])),
		MaxLiquidityPerTick: modular.Uint128FromBytes16(words[0][16:]),
		FeeGrowthGlobal0:    modular.Uint256FromBytes32(words[2]),
		FeeGrowthGlobal1:    modular.Uint256FromBytes32(words[3]),
		Liquidity:           modular.Uint128FromBytes16(words[4][16:]),
		ProtocolFee0:        modular.Uint128FromBytes16(words[5][:16]),
		ProtocolFee1:        modular.Uint128FromBytes16(words[5][16:]),
	}
	s.SqrtPriceX96.SetBytes32(words[1][:])
	return s, nil
}
