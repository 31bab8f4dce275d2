// Package engine serves many concentrated-liquidity pools out of one Store.
//
// Every operation runs against a storage.Journal. The pool's state and every word the
// operation touched reach the Store in a single batch when it succeeds, and nothing
// does when it fails. Operations are serialized by the Engine.
package engine

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/defistate/clamm-engine/protocols/clamm"
	"github.com/defistate/clamm-engine/protocols/clamm/clammerr"
	"github.com/defistate/clamm-engine/protocols/clamm/modular"
	"github.com/defistate/clamm-engine/protocols/clamm/pool"
	"github.com/defistate/clamm-engine/protocols/clamm/position"
	"github.com/defistate/clamm-engine/storage"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	ErrPoolNotFound = clammerr.New(clammerr.Lifecycle, "pool does not exist")
	ErrPoolExists   = clammerr.New(clammerr.Lifecycle, "pool already exists")
	ErrNoPrice      = clammerr.New(clammerr.Bounds, "a starting price is required")
)

var (
	statesNamespace = []byte("pool")
	poolsNamespace  = []byte("plst")
	sequenceSlot    = storage.Slot([]byte("engine"), []byte("seq"), 0)
)

// Config holds the dependencies of an Engine.
type Config struct {
	Store    storage.Store
	Registry prometheus.Registerer
	Logger   Logger
}

// validate checks if the configuration is valid, ensuring required dependencies are present.
func (c *Config) validate() error {
	if c.Store == nil {
		return errors.New("config: Store cannot be nil")
	}
	if c.Registry == nil {
		return errors.New("config: Registry cannot be nil")
	}
	if c.Logger == nil {
		return errors.New("config: Logger cannot be nil")
	}
	return nil
}

// Engine applies pool operations to a Store. It is safe for concurrent use.
type Engine struct {
	mu      sync.Mutex
	store   storage.Store
	metrics *Metrics
	logger  Logger
}

// New constructs an Engine from a configuration, returning an error if the config is invalid.
func New(cfg *Config) (*Engine, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	e := &Engine{
		store:   cfg.Store,
		metrics: NewMetrics(cfg.Registry),
		logger:  cfg.Logger,
	}

	n, err := newSession(e.store).pools.Len()
	if err != nil {
		return nil, fmt.Errorf("failed to count pools: %w", err)
	}
	e.metrics.pools.Set(float64(n))
	return e, nil
}

// session is the view of the Store one operation works through.
type session struct {
	journal *storage.Journal
	states  *storage.WordMap[common.Address, pool.State]
	pools   *storage.List[common.Address]
}

func newSession(store storage.Store) *session {
	j := storage.NewJournal(store)
	return &session{
		journal: j,
		states:  storage.NewWordMap[common.Address, pool.State](j, statesNamespace, storage.AddressKey, pool.StateCodec{}),
		pools:   storage.NewList[common.Address](j, poolsNamespace, storage.AddressCodec{}),
	}
}

func (s *session) positions(addr common.Address) *storage.List[uint64] {
	return storage.NewList[uint64](s.journal, storage.Namespace("pids", addr), storage.Uint64Codec{})
}

func (s *session) load(addr common.Address) (*pool.Pool, bool, error) {
	state, ok, err := s.states.Get(addr)
	if err != nil {
		return nil, false, fmt.Errorf("failed to load pool %s: %w", addr, err)
	}
	return pool.Restore(pool.NewWordStorage(s.journal, addr), state), ok, nil
}

func (s *session) save(addr common.Address, p *pool.Pool) error {
	if err := s.states.Set(addr, p.State()); err != nil {
		return fmt.Errorf("failed to save pool %s: %w", addr, err)
	}
	return nil
}

func (s *session) sequence() (uint64, error) {
	w, err := s.journal.Get(sequenceSlot)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(w[24:]), nil
}

// bump counts one more committed operation.
func (s *session) bump() error {
	seq, err := s.sequence()
	if err != nil {
		return err
	}
	var w common.Hash
	binary.BigEndian.PutUint64(w[24:], seq+1)
	return s.journal.Write(storage.Batch{sequenceSlot: w})
}

func (s *session) positionIDs(addr common.Address) ([]position.ID, error) {
	raw, err := s.positions(addr).All()
	if err != nil {
		return nil, fmt.Errorf("failed to list positions of pool %s: %w", addr, err)
	}
	ids := make([]position.ID, len(raw))
	for i, id := range raw {
		ids[i] = position.ID(id)
	}
	return ids, nil
}

func errorKind(err error) string {
	if kind, ok := clammerr.KindOf(err); ok {
		return kind.String()
	}
	return "storage"
}

// run executes fn in a fresh session and commits the session's writes if commit is
// set and fn succeeds.
func (e *Engine) run(op string, commit bool, fn func(s *session) error, logArgs ...any) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	timer := prometheus.NewTimer(e.metrics.opDuration.WithLabelValues(op))
	defer timer.ObserveDuration()

	s := newSession(e.store)
	if err := fn(s); err != nil {
		s.journal.Discard()
		kind := errorKind(err)
		e.metrics.opErrors.WithLabelValues(op, kind).Inc()
		e.logger.Debug("operation rolled back", append([]any{"op", op, "kind", kind, "error", err}, logArgs...)...)
		return err
	}
	if !commit {
		s.journal.Discard()
		return nil
	}

	words := s.journal.Dirty()
	if err := s.journal.Commit(); err != nil {
		e.metrics.opErrors.WithLabelValues(op, "storage").Inc()
		e.logger.Error("failed to commit operation", append([]any{"op", op, "error", err}, logArgs...)...)
		return err
	}
	e.logger.Debug("operation committed", append([]any{"op", op, "words", words}, logArgs...)...)
	return nil
}

// withPool runs fn against the existing pool at addr and saves the pool afterwards.
func (e *Engine) withPool(op string, addr common.Address, commit bool, fn func(s *session, p *pool.Pool) error) error {
	return e.run(op, commit, func(s *session) error {
		p, ok, err := s.load(addr)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: %s", ErrPoolNotFound, addr)
		}
		if err := fn(s, p); err != nil {
			return err
		}
		if err := s.save(addr, p); err != nil {
			return err
		}
		return s.bump()
	}, "pool", addr)
}

// CreatePool initializes a pool at addr. The pool starts disabled.
func (e *Engine) CreatePool(addr common.Address, params PoolParams) error {
	if params.SqrtPriceX96 == nil {
		return ErrNoPrice
	}
	maxLiquidity := params.MaxLiquidityPerTick
	if maxLiquidity.IsZero() {
		maxLiquidity = pool.MaxLiquidityForSpacing(params.TickSpacing)
	}

	err := e.run("create_pool", true, func(s *session) error {
		p, ok, err := s.load(addr)
		if err != nil {
			return err
		}
		if ok {
			return fmt.Errorf("%w: %s", ErrPoolExists, addr)
		}
		if err := p.Initialize(params.SqrtPriceX96, params.Fee, params.TickSpacing, maxLiquidity); err != nil {
			return err
		}
		if err := s.save(addr, p); err != nil {
			return err
		}
		if err := s.pools.Append(addr); err != nil {
			return fmt.Errorf("failed to register pool %s: %w", addr, err)
		}
		return s.bump()
	}, "pool", addr)
	if err != nil {
		return err
	}

	e.metrics.pools.Inc()
	e.logger.Info("pool created", "pool", addr, "fee", params.Fee, "tickSpacing", params.TickSpacing, "sqrtPriceX96", params.SqrtPriceX96)
	return nil
}

// EnablePool turns trading and liquidity changes on the pool on or off.
func (e *Engine) EnablePool(addr common.Address, enabled bool) error {
	return e.withPool("enable_pool", addr, true, func(_ *session, p *pool.Pool) error {
		return p.SetEnabled(enabled)
	})
}

func (e *Engine) SetFeeProtocol(addr common.Address, feeProtocol0, feeProtocol1 uint8) error {
	return e.withPool("set_fee_protocol", addr, true, func(_ *session, p *pool.Pool) error {
		return p.SetFeeProtocol(feeProtocol0, feeProtocol1)
	})
}

// CreatePosition registers position id over [lower, upper] in the pool at addr.
func (e *Engine) CreatePosition(addr common.Address, id position.ID, lower, upper int32) error {
	return e.withPool("create_position", addr, true, func(s *session, p *pool.Pool) error {
		_, existed, err := p.Position(id)
		if err != nil {
			return err
		}
		if err := p.CreatePosition(id, lower, upper); err != nil {
			return err
		}
		if existed {
			return nil
		}
		return s.positions(addr).Append(uint64(id))
	})
}

func (e *Engine) UpdatePosition(addr common.Address, id position.ID, delta *big.Int) (amount0, amount1 *big.Int, err error) {
	err = e.withPool("update_position", addr, true, func(_ *session, p *pool.Pool) error {
		amount0, amount1, err = p.UpdatePosition(id, delta)
		return err
	})
	return amount0, amount1, err
}

func (e *Engine) AdjustPosition(
	addr common.Address,
	id position.ID,
	amount0Min, amount1Min, amount0Desired, amount1Desired *uint256.Int,
	giving bool,
) (amount0, amount1 *big.Int, err error) {
	err = e.withPool("adjust_position", addr, true, func(_ *session, p *pool.Pool) error {
		amount0, amount1, err = p.AdjustPosition(id, amount0Min, amount1Min, amount0Desired, amount1Desired, giving)
		return err
	})
	return amount0, amount1, err
}

// Swap trades against the pool at addr. See pool.Pool.Swap for the meaning of the arguments.
func (e *Engine) Swap(addr common.Address, zeroForOne bool, amount *big.Int, limit *uint256.Int) (pool.SwapResult, error) {
	var res pool.SwapResult
	err := e.withPool("swap", addr, true, func(_ *session, p *pool.Pool) error {
		var err error
		res, err = p.Swap(zeroForOne, amount, limit)
		return err
	})
	if err != nil {
		return pool.SwapResult{}, err
	}
	e.metrics.swaps.WithLabelValues(direction(zeroForOne)).Inc()
	e.metrics.ticksCrossed.Add(float64(res.TicksCrossed))
	return res, nil
}

// Quote runs a swap and discards it, returning what Swap would have returned.
func (e *Engine) Quote(addr common.Address, zeroForOne bool, amount *big.Int, limit *uint256.Int) (pool.SwapResult, error) {
	var res pool.SwapResult
	err := e.withPool("quote", addr, false, func(_ *session, p *pool.Pool) error {
		var err error
		res, err = p.Swap(zeroForOne, amount, limit)
		return err
	})
	return res, err
}

func (e *Engine) CollectFees(addr common.Address, id position.ID) (amount0, amount1 modular.Uint128, err error) {
	err = e.withPool("collect_fees", addr, true, func(_ *session, p *pool.Pool) error {
		amount0, amount1, err = p.CollectFees(id)
		return err
	})
	return amount0, amount1, err
}

func (e *Engine) CollectProtocol(addr common.Address, requested0, requested1 modular.Uint128) (amount0, amount1 modular.Uint128, err error) {
	err = e.withPool("collect_protocol", addr, true, func(_ *session, p *pool.Pool) error {
		amount0, amount1, err = p.CollectProtocol(requested0, requested1)
		return err
	})
	return amount0, amount1, err
}

// Pool returns a view of the pool at addr with all its positions.
func (e *Engine) Pool(addr common.Address) (clamm.PoolView, error) {
	var view clamm.PoolView
	err := e.withPool("pool", addr, false, func(s *session, p *pool.Pool) error {
		ids, err := s.positionIDs(addr)
		if err != nil {
			return err
		}
		view, err = clamm.NewPoolView(addr, p, ids)
		return err
	})
	return view, err
}

func (e *Engine) Position(addr common.Address, id position.ID) (clamm.PositionView, error) {
	var view clamm.PositionView
	err := e.withPool("position", addr, false, func(_ *session, p *pool.Pool) error {
		info, ok, err := p.Position(id)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: %d", position.ErrPositionNotFound, id)
		}
		view = clamm.NewPositionView(id, info)
		return nil
	})
	return view, err
}

// Snapshot returns views of every pool in creation order.
func (e *Engine) Snapshot() (*Snapshot, error) {
	var snap *Snapshot
	err := e.run("snapshot", false, func(s *session) error {
		seq, err := s.sequence()
		if err != nil {
			return fmt.Errorf("failed to read sequence: %w", err)
		}
		addrs, err := s.pools.All()
		if err != nil {
			return fmt.Errorf("failed to list pools: %w", err)
		}

		snap = &Snapshot{
			Sequence:  seq,
			Timestamp: uint64(time.Now().UnixNano()),
			Pools:     make([]clamm.PoolView, 0, len(addrs)),
		}
		for _, addr := range addrs {
			p, _, err := s.load(addr)
			if err != nil {
				return err
			}
			ids, err := s.positionIDs(addr)
			if err != nil {
				return err
			}
			view, err := clamm.NewPoolView(addr, p, ids)
			if err != nil {
				return err
			}
			snap.Pools = append(snap.Pools, view)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return snap, nil
}
