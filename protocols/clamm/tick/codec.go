package tick

import (
	"math/big"

	"github.com/defistate/clamm-engine/protocols/clamm/modular"
	"github.com/defistate/clamm-engine/storage"
	"github.com/ethereum/go-ethereum/common"
)

// Codec lays an Info out over four words:
// gross liquidity and the initialized flag, net liquidity, then the two outside accumulators.
type Codec struct{}

func (Codec) Words() int { return 4 }

func (Codec) Encode(info Info) []common.Hash {
	var head common.Hash
	gross := info.LiquidityGross.Bytes16()
	copy(head[:16], gross[:])
	if info.Initialized {
		head[31] = 1
	}
	net := info.LiquidityNet
	if net == nil {
		net = new(big.Int)
	}
	return []common.Hash{
		head,
		storage.SignedWord(net),
		common.Hash(info.FeeGrowthOutside0.Bytes32()),
		common.Hash(info.FeeGrowthOutside1.Bytes32()),
	}
}

func (Codec) Decode(words []common.Hash) (Info, error) {
	return Info{
		LiquidityGross:    modular.Uint128FromBytes16(words[0][:16]),
		Initialized:       words[0][31] == 1,
		LiquidityNet:      storage.WordSigned(words[1]),
		FeeGrowthOutside0: modular.Uint256FromBytes32(words[2]),
		FeeGrowthOutside1: modular.Uint256FromBytes32(words[3]),
	}, nil
}
