package storage

import (
	"encoding/binary"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Uint256Word stores x as a big-endian word.
func Uint256Word(x *uint256.Int) common.Hash {
	return common.Hash(x.Bytes32())
}

// WordUint256 reads a big-endian word.
func WordUint256(w common.Hash) *uint256.Int {
	return new(uint256.Int).SetBytes32(w[:])
}

// SignedWord stores x in 256-bit two's complement. Values wider than 256 bits are truncated.
func SignedWord(x *big.Int) common.Hash {
	var u uint256.Int
	u.SetFromBig(x)
	return Uint256Word(&u)
}

// WordSigned reads a 256-bit two's complement word.
func WordSigned(w common.Hash) *big.Int {
	u := WordUint256(w)
	if u.Sign() >= 0 {
		return u.ToBig()
	}
	mag := new(uint256.Int).Neg(u).ToBig()
	return mag.Neg(mag)
}

// Int32Word stores x in the low four bytes of a word.
func Int32Word(x int32) common.Hash {
	var w common.Hash
	binary.BigEndian.PutUint32(w[28:], uint32(x))
	return w
}

// WordInt32 reads the low four bytes of a word as a signed value.
func WordInt32(w common.Hash) int32 {
	return int32(binary.BigEndian.Uint32(w[28:]))
}
