package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"os"
	"strings"

	"github.com/defistate/clamm-engine/engine"
	"github.com/defistate/clamm-engine/protocols/clamm/modular"
	"github.com/defistate/clamm-engine/protocols/clamm/position"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"gopkg.in/yaml.v3"
)

// Scenario is a list of engine operations replayed in order.
type Scenario struct {
	Steps []Step `yaml:"steps"`
}

// Step is one engine operation. Which fields are read depends on Op.
// Integers wider than 64 bits are written as decimal or 0x-prefixed strings.
type Step struct {
	Op   string `yaml:"op"`
	Pool string `yaml:"pool"`

	// create_pool
	SqrtPriceX96        string `yaml:"sqrtPriceX96"`
	Fee                 uint32 `yaml:"fee"`
	TickSpacing         uint8  `yaml:"tickSpacing"`
	MaxLiquidityPerTick string `yaml:"maxLiquidityPerTick"`

	// enable_pool
	Enabled bool `yaml:"enabled"`

	// set_fee_protocol
	FeeProtocol0 uint8 `yaml:"feeProtocol0"`
	FeeProtocol1 uint8 `yaml:"feeProtocol1"`

	// position operations
	ID             uint64 `yaml:"id"`
	Lower          int32  `yaml:"lower"`
	Upper          int32  `yaml:"upper"`
	Delta          string `yaml:"delta"`
	Amount0Min     string `yaml:"amount0Min"`
	Amount1Min     string `yaml:"amount1Min"`
	Amount0Desired string `yaml:"amount0Desired"`
	Amount1Desired string `yaml:"amount1Desired"`
	Giving         bool   `yaml:"giving"`

	// swap and quote
	ZeroForOne bool   `yaml:"zeroForOne"`
	Amount     string `yaml:"amount"`
	Limit      string `yaml:"limit"`

	// collect_protocol; empty requests everything
	Amount0 string `yaml:"amount0"`
	Amount1 string `yaml:"amount1"`

	// ExpectError makes the step succeed only if the operation fails with an
	// error containing this text.
	ExpectError string `yaml:"expectError"`
}

// StepResult is printed for every replayed step.
type StepResult struct {
	Step    int            `json:"step"`
	Op      string         `json:"op"`
	Pool    common.Address `json:"pool"`
	Amount0 string         `json:"amount0,omitempty"`
	Amount1 string         `json:"amount1,omitempty"`
	Tick    *int32         `json:"tick,omitempty"`
	Error   string         `json:"error,omitempty"`
}

func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario %s: %w", path, err)
	}
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("failed to parse scenario %s: %w", path, err)
	}
	return &sc, nil
}

func parseSigned(field, s string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(s, 0)
	if !ok {
		return nil, fmt.Errorf("%s: invalid integer %q", field, s)
	}
	return v, nil
}

// parseUnsigned returns nil for an empty string.
func parseUnsigned(field, s string) (*uint256.Int, error) {
	if s == "" {
		return nil, nil
	}
	v, err := parseSigned(field, s)
	if err != nil {
		return nil, err
	}
	u, overflow := uint256.FromBig(v)
	if overflow || v.Sign() < 0 {
		return nil, fmt.Errorf("%s: %q does not fit in uint256", field, s)
	}
	return u, nil
}

// parseUint128 returns def for an empty string.
func parseUint128(field, s string, def modular.Uint128) (modular.Uint128, error) {
	if s == "" {
		return def, nil
	}
	v, err := parseSigned(field, s)
	if err != nil {
		return modular.Uint128{}, err
	}
	u, ok := modular.Uint128FromBig(v)
	if !ok {
		return modular.Uint128{}, fmt.Errorf("%s: %q does not fit in uint128", field, s)
	}
	return u, nil
}

func parsePool(s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("pool: invalid address %q", s)
	}
	return common.HexToAddress(s), nil
}

// apply runs step against e and fills in res.
func apply(e *engine.Engine, step Step, res *StepResult) error {
	addr, err := parsePool(step.Pool)
	if err != nil {
		return err
	}
	res.Pool = addr
	id := position.ID(step.ID)

	setAmounts := func(amount0, amount1 fmt.Stringer) {
		res.Amount0, res.Amount1 = amount0.String(), amount1.String()
	}

	switch step.Op {
	case "create_pool":
		price, err := parseUnsigned("sqrtPriceX96", step.SqrtPriceX96)
		if err != nil {
			return err
		}
		maxLiquidity, err := parseUint128("maxLiquidityPerTick", step.MaxLiquidityPerTick, modular.Uint128{})
		if err != nil {
			return err
		}
		return e.CreatePool(addr, engine.PoolParams{
			SqrtPriceX96:        price,
			Fee:                 step.Fee,
			TickSpacing:         step.TickSpacing,
			MaxLiquidityPerTick: maxLiquidity,
		})

	case "enable_pool":
		return e.EnablePool(addr, step.Enabled)

	case "set_fee_protocol":
		return e.SetFeeProtocol(addr, step.FeeProtocol0, step.FeeProtocol1)

	case "create_position":
		return e.CreatePosition(addr, id, step.Lower, step.Upper)

	case "update_position":
		delta, err := parseSigned("delta", step.Delta)
		if err != nil {
			return err
		}
		amount0, amount1, err := e.UpdatePosition(addr, id, delta)
		if err != nil {
			return err
		}
		setAmounts(amount0, amount1)

	case "adjust_position":
		var amounts [4]*uint256.Int
		for i, f := range []struct{ name, value string }{
			{"amount0Min", step.Amount0Min},
			{"amount1Min", step.Amount1Min},
			{"amount0Desired", step.Amount0Desired},
			{"amount1Desired", step.Amount1Desired},
		} {
			if amounts[i], err = parseUnsigned(f.name, f.value); err != nil {
				return err
			}
		}
		if amounts[2] == nil || amounts[3] == nil {
			return errors.New("adjust_position: both desired amounts are required")
		}
		amount0, amount1, err := e.AdjustPosition(addr, id, amounts[0], amounts[1], amounts[2], amounts[3], step.Giving)
		if err != nil {
			return err
		}
		setAmounts(amount0, amount1)

	case "swap", "quote":
		amount, err := parseSigned("amount", step.Amount)
		if err != nil {
			return err
		}
		limit, err := parseUnsigned("limit", step.Limit)
		if err != nil {
			return err
		}
		run := e.Swap
		if step.Op == "quote" {
			run = e.Quote
		}
		swap, err := run(addr, step.ZeroForOne, amount, limit)
		if err != nil {
			return err
		}
		setAmounts(swap.Amount0, swap.Amount1)
		res.Tick = &swap.Tick

	case "collect_fees":
		amount0, amount1, err := e.CollectFees(addr, id)
		if err != nil {
			return err
		}
		setAmounts(amount0, amount1)

	case "collect_protocol":
		requested0, err := parseUint128("amount0", step.Amount0, modular.MaxUint128)
		if err != nil {
			return err
		}
		requested1, err := parseUint128("amount1", step.Amount1, modular.MaxUint128)
		if err != nil {
			return err
		}
		amount0, amount1, err := e.CollectProtocol(addr, requested0, requested1)
		if err != nil {
			return err
		}
		setAmounts(amount0, amount1)

	default:
		return fmt.Errorf("unknown op %q", step.Op)
	}
	return nil
}

// Replay runs every step of sc against e and writes one JSON line per step to out.
// It stops at the first step whose outcome differs from what the step expects.
func Replay(e *engine.Engine, sc *Scenario, out io.Writer) error {
	enc := json.NewEncoder(out)
	for i, step := range sc.Steps {
		res := StepResult{Step: i, Op: step.Op}
		err := apply(e, step, &res)
		if err != nil {
			res.Error = err.Error()
		}
		if encErr := enc.Encode(res); encErr != nil {
			return encErr
		}

		switch {
		case step.ExpectError == "" && err != nil:
			return fmt.Errorf("step %d (%s): %w", i, step.Op, err)
		case step.ExpectError != "" && err == nil:
			return fmt.Errorf("step %d (%s): expected error %q", i, step.Op, step.ExpectError)
		case step.ExpectError != "" && !strings.Contains(err.Error(), step.ExpectError):
			return fmt.Errorf("step %d (%s): expected error %q, got %w", i, step.Op, step.ExpectError, err)
		}
	}
	return nil
}
