package patcher

import (
	"errors"
	"math/big"
	"testing"

	"github.com/defistate/clamm-engine/differ"
	"github.com/defistate/clamm-engine/engine"
	"github.com/defistate/clamm-engine/protocols/clamm"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func view(addr byte, liquidity int64) clamm.PoolView {
	return clamm.PoolView{
		Address:      common.BytesToAddress([]byte{addr}),
		Liquidity:    big.NewInt(liquidity),
		SqrtPriceX96: big.NewInt(1 << 40),
	}
}

func TestSnapshotPatcher_Patch(t *testing.T) {
	p := NewSnapshotPatcher(&SnapshotPatcherConfig{})

	oldState := &engine.Snapshot{Sequence: 100, Pools: []clamm.PoolView{view(1, 10), view(2, 50)}}
	diff := &differ.SnapshotDiff{
		Timestamp:    42,
		FromSequence: 100,
		ToSequence:   103,
		Pools: clamm.SystemDiff{
			Updates:   []clamm.PoolView{view(1, 15)},
			Additions: []clamm.PoolView{view(3, 100)},
		},
	}

	newState, err := p.Patch(oldState, diff)
	require.NoError(t, err)

	assert.Equal(t, uint64(103), newState.Sequence)
	assert.Equal(t, uint64(42), newState.Timestamp)
	require.Len(t, newState.Pools, 3)
	assert.Equal(t, int64(15), newState.Pools[0].Liquidity.Int64())
	assert.Equal(t, int64(50), newState.Pools[1].Liquidity.Int64())
	assert.Equal(t, int64(100), newState.Pools[2].Liquidity.Int64())

	// the old snapshot is untouched
	assert.Equal(t, int64(10), oldState.Pools[0].Liquidity.Int64())
	newState.Pools[1].Liquidity.SetInt64(0)
	assert.Equal(t, int64(50), oldState.Pools[1].Liquidity.Int64())
}

func TestSnapshotPatcher_SequenceMismatch(t *testing.T) {
	p := NewSnapshotPatcher(&SnapshotPatcherConfig{})

	_, err := p.Patch(&engine.Snapshot{Sequence: 100}, &differ.SnapshotDiff{FromSequence: 99})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mismatch fromSequence")
}

func TestSnapshotPatcher_PoolPatcherError(t *testing.T) {
	errBroken := errors.New("broken")
	p := NewSnapshotPatcher(&SnapshotPatcherConfig{
		PoolPatcher: func([]clamm.PoolView, clamm.SystemDiff) ([]clamm.PoolView, error) {
			return nil, errBroken
		},
	})

	_, err := p.Patch(&engine.Snapshot{}, &differ.SnapshotDiff{})
	assert.ErrorIs(t, err, errBroken)
}
