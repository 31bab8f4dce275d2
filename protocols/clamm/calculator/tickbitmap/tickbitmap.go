package tickbitmap

import (
	"github.com/defistate/clamm-engine/protocols/clamm/calculator/bitmath"
	"github.com/defistate/clamm-engine/protocols/clamm/calculator/tickmath"
	"github.com/defistate/clamm-engine/protocols/clamm/clammerr"
	"github.com/defistate/clamm-engine/storage"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

var ErrTickMisaligned = clammerr.New(clammerr.Bounds, "tick is not a multiple of the tick spacing")

// Position splits a compressed tick into the word it lives in and its bit within that word.
func Position(compressed int32) (word int16, bit uint8) {
	return int16(compressed >> 8), uint8(compressed & 0xff)
}

// WordCodec stores a bitmap word in a single storage word.
type WordCodec struct{}

func (WordCodec) Words() int { return 1 }

func (WordCodec) Encode(w uint256.Int) []common.Hash {
	return []common.Hash{storage.Uint256Word(&w)}
}

func (WordCodec) Decode(words []common.Hash) (uint256.Int, error) {
	return *storage.WordUint256(words[0]), nil
}

// Bitmap records which compressed ticks are initialized, 256 to a word.
// Empty words are deleted rather than stored.
type Bitmap struct {
	words storage.Map[int16, uint256.Int]
}

func New(words storage.Map[int16, uint256.Int]) *Bitmap {
	return &Bitmap{words: words}
}

func (b *Bitmap) word(pos int16) (uint256.Int, error) {
	w, _, err := b.words.Get(pos)
	return w, err
}

// FlipTick toggles the initialized bit of tick.
func (b *Bitmap) FlipTick(tick int32, tickSpacing uint8) error {
	spacing := int32(tickSpacing)
	if spacing == 0 || tick%spacing != 0 {
		return ErrTickMisaligned
	}
	pos, bit := Position(tick / spacing)

	w, err := b.word(pos)
	if err != nil {
		return err
	}
	var mask uint256.Int
	mask.Lsh(uint256.NewInt(1), uint(bit))
	w.Xor(&w, &mask)

	if w.IsZero() {
		return b.words.Delete(pos)
	}
	return b.words.Set(pos, w)
}

// IsInitialized reports whether the bit for an aligned tick is set.
func (b *Bitmap) IsInitialized(tick int32, tickSpacing uint8) (bool, error) {
	spacing := int32(tickSpacing)
	if spacing == 0 || tick%spacing != 0 {
		return false, ErrTickMisaligned
	}
	pos, bit := Position(tick / spacing)
	w, err := b.word(pos)
	if err != nil {
		return false, err
	}
	var mask uint256.Int
	mask.Lsh(uint256.NewInt(1), uint(bit))
	return !mask.And(&mask, &w).IsZero(), nil
}

// NextInitializedTickWithinOneWord returns the next initialized tick in the same word as
// tick, searching left (lte) or right. When none is set it returns the edge of the word
// with initialized == false.
func (b *Bitmap) NextInitializedTickWithinOneWord(tick int32, tickSpacing uint8, lte bool) (next int32, initialized bool, err error) {
	spacing := int32(tickSpacing)
	if spacing == 0 {
		return 0, false, ErrTickMisaligned
	}
	compressed := tick / spacing
	if tick < 0 && tick%spacing != 0 {
		compressed-- // round towards negative infinity
	}

	var mask, masked uint256.Int
	one := uint256.NewInt(1)

	if lte {
		pos, bit := Position(compressed)
		w, err := b.word(pos)
		if err != nil {
			return 0, false, err
		}
		// all the 1s at or to the right of the current bit
		mask.Lsh(one, uint(bit))
		mask.Sub(&mask, one)
		mask.Or(&mask, new(uint256.Int).Lsh(one, uint(bit)))
		masked.And(&w, &mask)

		if masked.IsZero() {
			return (compressed - int32(bit)) * spacing, false, nil
		}
		msb, err := bitmath.MostSignificantBit(&masked)
		if err != nil {
			return 0, false, err
		}
		return (compressed - int32(bit-msb)) * spacing, true, nil
	}

	// start from the word of the next tick, since the current tick state doesn't matter
	pos, bit := Position(compressed + 1)
	w, err := b.word(pos)
	if err != nil {
		return 0, false, err
	}
	// all the 1s at or to the left of the bit
	mask.Lsh(one, uint(bit))
	mask.Sub(&mask, one)
	mask.Not(&mask)
	masked.And(&w, &mask)

	if masked.IsZero() {
		return (compressed + 1 + int32(255-bit)) * spacing, false, nil
	}
	lsb, err := bitmath.LeastSignificantBit(&masked)
	if err != nil {
		return 0, false, err
	}
	return (compressed + 1 + int32(lsb-bit)) * spacing, true, nil
}

// InitializedTicks returns every initialized tick in ascending order.
// It reads each word of the usable tick range once.
func (b *Bitmap) InitializedTicks(tickSpacing uint8) ([]int32, error) {
	spacing := int32(tickSpacing)
	if spacing == 0 {
		return nil, ErrTickMisaligned
	}
	first, _ := Position(tickmath.GetMinTick(tickSpacing) / spacing)
	last, _ := Position(tickmath.GetMaxTick(tickSpacing) / spacing)

	var ticks []int32
	for pos := int32(first); pos <= int32(last); pos++ {
		w, err := b.word(int16(pos))
		if err != nil {
			return nil, err
		}
		for !w.IsZero() {
			lsb, err := bitmath.LeastSignificantBit(&w)
			if err != nil {
				return nil, err
			}
			ticks = append(ticks, (pos<<8+int32(lsb))*spacing)
			w.And(&w, new(uint256.Int).Sub(&w, uint256.NewInt(1)))
		}
	}
	return ticks, nil
}
