// Package patcher rebuilds a snapshot from an earlier one and the diff between them.
package patcher

import (
	"fmt"

	"github.com/defistate/clamm-engine/differ"
	"github.com/defistate/clamm-engine/engine"
	"github.com/defistate/clamm-engine/protocols/clamm"
)

// PoolPatcher applies a pool diff to a previous set of views.
//
// CONTRACT: implementations MUST NOT mutate prev. They must return copies.
type PoolPatcher func(prev []clamm.PoolView, diff clamm.SystemDiff) ([]clamm.PoolView, error)

type SnapshotPatcherConfig struct {
	// PoolPatcher defaults to clamm.Patcher.
	PoolPatcher PoolPatcher
}

type SnapshotPatcher struct {
	poolPatcher PoolPatcher
}

func NewSnapshotPatcher(cfg *SnapshotPatcherConfig) *SnapshotPatcher {
	poolPatcher := cfg.PoolPatcher
	if poolPatcher == nil {
		poolPatcher = clamm.Patcher
	}
	return &SnapshotPatcher{poolPatcher: poolPatcher}
}

// Patch creates the snapshot diff leads to from oldState. oldState is not modified.
func (p *SnapshotPatcher) Patch(oldState *engine.Snapshot, diff *differ.SnapshotDiff) (*engine.Snapshot, error) {
	if oldState.Sequence != diff.FromSequence {
		return nil, fmt.Errorf("patcher: mismatch fromSequence (state=%d, diff=%d)", oldState.Sequence, diff.FromSequence)
	}

	pools, err := p.poolPatcher(oldState.Pools, diff.Pools)
	if err != nil {
		return nil, fmt.Errorf("patcher: failed to patch pools: %w", err)
	}

	return &engine.Snapshot{
		Sequence:  diff.ToSequence,
		Timestamp: diff.Timestamp,
		Pools:     pools,
	}, nil
}
