package engine

import (
	"github.com/defistate/clamm-engine/protocols/clamm"
	"github.com/defistate/clamm-engine/protocols/clamm/modular"
	"github.com/holiman/uint256"
)

// Logger defines a standard interface for structured, leveled logging.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Snapshot is a consistent view of every pool the engine holds.
type Snapshot struct {
	// Sequence counts the operations committed before the snapshot was taken.
	Sequence  uint64           `json:"sequence"`
	Timestamp uint64           `json:"timestamp"`
	Pools     []clamm.PoolView `json:"pools"`
}

// PoolParams are the parameters a pool is created with.
type PoolParams struct {
	SqrtPriceX96 *uint256.Int
	Fee          uint32
	TickSpacing  uint8

	// zero selects MaxLiquidityForSpacing(TickSpacing)
	MaxLiquidityPerTick modular.Uint128
}
