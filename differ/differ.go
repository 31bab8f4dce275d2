// Package differ computes the change between two engine snapshots.
package differ

import (
	"errors"
	"fmt"
	"time"

	"github.com/defistate/clamm-engine/engine"
	"github.com/defistate/clamm-engine/protocols/clamm"
	"github.com/prometheus/client_golang/prometheus"
)

// PoolDiffer compares two sets of pool views.
type PoolDiffer func(old, new []clamm.PoolView) clamm.SystemDiff

// SnapshotDiff is a summary of the changes from FromSequence to ToSequence.
type SnapshotDiff struct {
	Timestamp    uint64           `json:"timestamp"`
	FromSequence uint64           `json:"fromSequence"`
	ToSequence   uint64           `json:"toSequence"`
	Pools        clamm.SystemDiff `json:"pools"`
}

// SnapshotDifferConfig holds the dependencies of a SnapshotDiffer.
type SnapshotDifferConfig struct {
	// PoolDiffer defaults to clamm.Differ.
	PoolDiffer PoolDiffer
	Registry   prometheus.Registerer
	Logger     engine.Logger
}

// validate checks if the configuration is valid, ensuring required dependencies are present.
func (c *SnapshotDifferConfig) validate() error {
	if c.Registry == nil {
		return errors.New("config: Registry cannot be nil")
	}
	if c.Logger == nil {
		return errors.New("config: Logger cannot be nil")
	}
	return nil
}

type SnapshotDiffer struct {
	metrics    *Metrics
	logger     engine.Logger
	poolDiffer PoolDiffer
}

// NewSnapshotDiffer constructs a new differ from a configuration, returning an error if the config is invalid.
func NewSnapshotDiffer(cfg *SnapshotDifferConfig) (*SnapshotDiffer, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	poolDiffer := cfg.PoolDiffer
	if poolDiffer == nil {
		poolDiffer = clamm.Differ
	}
	return &SnapshotDiffer{
		metrics:    NewMetrics(cfg.Registry),
		logger:     cfg.Logger,
		poolDiffer: poolDiffer,
	}, nil
}

// Diff compares two snapshots of the same store. new must not be older than old.
func (d *SnapshotDiffer) Diff(old, new *engine.Snapshot) (*SnapshotDiff, error) {
	timer := prometheus.NewTimer(d.metrics.diffDuration)
	defer timer.ObserveDuration()

	if new.Sequence < old.Sequence {
		return nil, fmt.Errorf("snapshot at sequence %d is older than %d", new.Sequence, old.Sequence)
	}

	pools := d.poolDiffer(old.Pools, new.Pools)
	d.metrics.changes.WithLabelValues("addition").Add(float64(len(pools.Additions)))
	d.metrics.changes.WithLabelValues("update").Add(float64(len(pools.Updates)))
	d.metrics.changes.WithLabelValues("deletion").Add(float64(len(pools.Deletions)))

	d.logger.Debug("snapshots compared",
		"from", old.Sequence,
		"to", new.Sequence,
		"additions", len(pools.Additions),
		"updates", len(pools.Updates),
		"deletions", len(pools.Deletions),
	)

	return &SnapshotDiff{
		Timestamp:    uint64(time.Now().UnixNano()),
		FromSequence: old.Sequence,
		ToSequence:   new.Sequence,
		Pools:        pools,
	}, nil
}
