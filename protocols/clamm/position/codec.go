package position

import (
	"encoding/binary"

	"github.com/defistate/clamm-engine/protocols/clamm/modular"
	"github.com/ethereum/go-ethereum/common"
)

// Codec lays an Info out over four words: liquidity with both bounds, the two
// fee snapshots, then both owed balances.
type Codec struct{}

func (Codec) Words() int { return 4 }

func (Codec) Encode(info Info) []common.Hash {
	var head, owed common.Hash
	liquidity := info.Liquidity.Bytes16()
	copy(head[:16], liquidity[:])
	binary.BigEndian.PutUint32(head[24:28], uint32(info.Lower))
	binary.BigEndian.PutUint32(head[28:], uint32(info.Upper))

	owed0, owed1 := info.TokensOwed0.Bytes16(), info.TokensOwed1.Bytes16()
	copy(owed[:16], owed0[:])
	copy(owed[16:], owed1[:])

	return []common.Hash{
		head,
		common.Hash(info.FeeGrowthInside0.Bytes32()),
		common.Hash(info.FeeGrowthInside1.Bytes32()),
		owed,
	}
}

func (Codec) Decode(words []common.Hash) (Info, error) {
	return Info{
		Liquidity:        modular.Uint128FromBytes16(words[0][:16]),
		Lower:            int32(binary.BigEndian.Uint32(words[0][24:28])),
		Upper:            int32(binary.BigEndian.Uint32(words[0][28:])),
		FeeGrowthInside0: modular.Uint256FromBytes32(words[1]),
		FeeGrowthInside1: modular.Uint256FromBytes32(words[2]),
		TokensOwed0:      modular.Uint128FromBytes16(words[3][:16]),
		TokensOwed1:      modular.Uint128FromBytes16(words[3][16:]),
	}, nil
}
