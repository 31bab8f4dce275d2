package tickbitmap

import (
	"testing"

	"github.com/defistate/clamm-engine/storage"
	"github.com/defistate/clamm-engine/storage/memory"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBitmap(t *testing.T, ticks ...int32) *Bitmap {
	t.Helper()
	b := New(storage.NewMemoryMap[int16, uint256.Int]())
	for _, tick := range ticks {
		require.NoError(t, b.FlipTick(tick, 1))
	}
	return b
}

func TestPosition(t *testing.T) {
	tests := []struct {
		compressed int32
		word       int16
		bit        uint8
	}{
		{0, 0, 0},
		{255, 0, 255},
		{256, 1, 0},
		{-1, -1, 255},
		{-256, -1, 0},
		{-257, -2, 255},
	}
	for _, tc := range tests {
		word, bit := Position(tc.compressed)
		assert.Equal(t, tc.word, word, "word of %d", tc.compressed)
		assert.Equal(t, tc.bit, bit, "bit of %d", tc.compressed)
	}
}

func TestFlipTick(t *testing.T) {
	t.Run("flips only the specified tick", func(t *testing.T) {
		b := newBitmap(t, -230)
		for tick, want := range map[int32]bool{-230: true, -231: false, -229: false, -230 + 256: false, -230 - 256: false} {
			got, err := b.IsInitialized(tick, 1)
			require.NoError(t, err)
			assert.Equal(t, want, got, "tick %d", tick)
		}
	})

	t.Run("reverts only itself", func(t *testing.T) {
		b := newBitmap(t, -230, -259, -229, 500, -259, -229, -259)
		got, _ := b.IsInitialized(-259, 1)
		assert.True(t, got)
		got, _ = b.IsInitialized(-229, 1)
		assert.False(t, got)
	})

	t.Run("empty words are deleted", func(t *testing.T) {
		words := storage.NewMemoryMap[int16, uint256.Int]()
		b := New(words)
		require.NoError(t, b.FlipTick(60, 60))
		assert.Equal(t, 1, words.Len())
		require.NoError(t, b.FlipTick(60, 60))
		assert.Equal(t, 0, words.Len())
	})

	t.Run("misaligned", func(t *testing.T) {
		b := newBitmap(t)
		assert.ErrorIs(t, b.FlipTick(61, 60), ErrTickMisaligned)
	})
}

func TestNextInitializedTickWithinOneWord(t *testing.T) {
	b := newBitmap(t, -200, -55, -4, 70, 78, 84, 139, 240, 535)

	tests := []struct {
		name            string
		tick            int32
		lte             bool
		wantNext        int32
		wantInitialized bool
	}{
		{"returns tick to right if at initialized tick", 78, false, 84, true},
		{"returns tick to right if at initialized negative tick", -55, false, -4, true},
		{"returns the tick directly to the right", 77, false, 78, true},
		{"returns the negative tick directly to the right", -56, false, -55, true},
		{"returns the next words initialized tick if on the right boundary", 255, false, 511, false},
		{"returns the next initialized tick from the next word", -257, false, -200, true},
		{"does not exceed boundary", 508, false, 511, false},
		{"skips entire word", 255, false, 511, false},
		{"skips half word", 383, false, 511, false},
		{"lte returns same tick if initialized", 78, true, 78, true},
		{"lte returns tick directly to the left if not initialized", 79, true, 78, true},
		{"lte will not exceed the word boundary", 258, true, 256, false},
		{"lte at the word boundary", 256, true, 256, false},
		{"lte word boundary less 1", 72, true, 70, true},
		{"lte word boundary negative", -257, true, -512, false},
		{"lte entire empty word", 1023, true, 768, false},
		{"lte halfway through empty word", 900, true, 768, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			next, initialized, err := b.NextInitializedTickWithinOneWord(tc.tick, 1, tc.lte)
			require.NoError(t, err)
			assert.Equal(t, tc.wantNext, next)
			assert.Equal(t, tc.wantInitialized, initialized)
		})
	}

	t.Run("lte finds a tick flipped later", func(t *testing.T) {
		require.NoError(t, b.FlipTick(329, 1))
		next, initialized, err := b.NextInitializedTickWithinOneWord(456, 1, true)
		require.NoError(t, err)
		assert.Equal(t, int32(329), next)
		assert.True(t, initialized)
	})

	t.Run("spacing rounds negative ticks down", func(t *testing.T) {
		b := New(storage.NewMemoryMap[int16, uint256.Int]())
		require.NoError(t, b.FlipTick(-120, 60))
		require.NoError(t, b.FlipTick(60, 60))

		next, initialized, err := b.NextInitializedTickWithinOneWord(-61, 60, true)
		require.NoError(t, err)
		assert.Equal(t, int32(-120), next)
		assert.True(t, initialized)

		next, initialized, err = b.NextInitializedTickWithinOneWord(0, 60, false)
		require.NoError(t, err)
		assert.Equal(t, int32(60), next)
		assert.True(t, initialized)
	})
}

func TestBitmap_WordStore(t *testing.T) {
	backend := memory.New()
	words := storage.NewWordMap[int16, uint256.Int](backend, storage.Namespace("bmap", common.Address{}), storage.Int16Key, WordCodec{})
	b := New(words)
	require.NoError(t, b.FlipTick(-4, 1))
	require.NoError(t, b.FlipTick(70, 1))
	assert.Equal(t, 2, backend.Len())

	next, initialized, err := New(words).NextInitializedTickWithinOneWord(-56, 1, false)
	require.NoError(t, err)
	assert.Equal(t, int32(-4), next)
	assert.True(t, initialized)
}

func TestInitializedTicks(t *testing.T) {
	b := New(storage.NewMemoryMap[int16, uint256.Int]())
	for _, tick := range []int32{887220, -887220, 60, -120, 0, 15360} {
		require.NoError(t, b.FlipTick(tick, 60))
	}

	ticks, err := b.InitializedTicks(60)
	require.NoError(t, err)
	assert.Equal(t, []int32{-887220, -120, 0, 60, 15360, 887220}, ticks)

	empty, err := New(storage.NewMemoryMap[int16, uint256.Int]()).InitializedTicks(1)
	require.NoError(t, err)
	assert.Empty(t, empty)

	_, err = b.InitializedTicks(0)
	assert.ErrorIs(t, err, ErrTickMisaligned)
}
