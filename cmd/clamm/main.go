package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"text/tabwriter"
	"time"

	"github.com/defistate/clamm-engine/cmd/clamm/config"
	"github.com/defistate/clamm-engine/differ"
	"github.com/defistate/clamm-engine/engine"
	"github.com/defistate/clamm-engine/protocols/clamm"
	"github.com/defistate/clamm-engine/storage"
	"github.com/defistate/clamm-engine/storage/leveldb"
	"github.com/defistate/clamm-engine/storage/memory"
	"github.com/defistate/clamm-engine/storage/sqlite"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:          "clamm",
		Short:        "Concentrated-liquidity pool engine",
		SilenceUsage: true,
	}
	root.PersistentFlags().String("config", "", "config file path")
	root.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error); overrides the config file")

	replayCmd := &cobra.Command{
		Use:   "replay <scenario.yaml>",
		Short: "Replay a scenario of pool operations against the configured store",
		Args:  cobra.ExactArgs(1),
		RunE:  runReplay,
	}
	replayCmd.Flags().Bool("diff", false, "print the snapshot diff the scenario produced")
	root.AddCommand(replayCmd)

	quoteCmd := &cobra.Command{
		Use:   "quote",
		Short: "Simulate a swap without changing the pool",
		RunE:  runQuote,
	}
	quoteCmd.Flags().String("pool", "", "pool address")
	quoteCmd.Flags().Bool("zero-for-one", false, "swap token0 for token1")
	quoteCmd.Flags().String("amount", "", "exact input when positive, exact output when negative")
	quoteCmd.Flags().String("limit", "", "sqrt price limit (Q96); empty for none")
	root.AddCommand(quoteCmd)

	poolCmd := &cobra.Command{
		Use:   "pool",
		Short: "Print a pool with its ticks and positions",
		RunE:  runPool,
	}
	poolCmd.Flags().String("pool", "", "pool address")
	poolCmd.Flags().Bool("json", false, "print the view as JSON")
	root.AddCommand(poolCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

type closableStore interface {
	storage.Store
	io.Closer
}

// app is what every command runs against.
type app struct {
	logger  *slog.Logger
	store   closableStore
	engine  *engine.Engine
	metrics *http.Server
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

func openStore(cfg config.StoreConfig) (closableStore, error) {
	switch cfg.Backend {
	case config.BackendLevelDB:
		store, err := leveldb.Open(cfg.Path)
		if err != nil {
			return nil, err
		}
		return store, nil
	case config.BackendSQLite:
		store, err := sqlite.Open(cfg.Path)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return memory.New(), nil
	}
}

func setup(cmd *cobra.Command) (*app, error) {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadConfig(cfgFile)
	if err != nil {
		return nil, err
	}
	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		if err := cfg.SetLogLevel(level); err != nil {
			return nil, err
		}
	}
	logger := newLogger(cfg.LogLevel)

	store, err := openStore(cfg.Store)
	if err != nil {
		return nil, err
	}

	e, err := engine.New(&engine.Config{
		Store:    store,
		Registry: prometheus.DefaultRegisterer,
		Logger:   logger.With("component", "engine"),
	})
	if err != nil {
		store.Close()
		return nil, err
	}

	a := &app{logger: logger, store: store, engine: e}
	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		a.metrics = &http.Server{Addr: cfg.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := a.metrics.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics listener stopped", "addr", cfg.MetricsAddr, "error", err)
			}
		}()
		logger.Info("serving metrics", "addr", cfg.MetricsAddr)
	}
	logger.Debug("store opened", "backend", cfg.Store.Backend, "path", cfg.Store.Path)
	return a, nil
}

func (a *app) Close() {
	if a.metrics != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.metrics.Shutdown(ctx); err != nil {
			a.logger.Warn("failed to stop metrics listener", "error", err)
		}
	}
	if err := a.store.Close(); err != nil {
		a.logger.Error("failed to close store", "error", err)
	}
}

func runReplay(cmd *cobra.Command, args []string) error {
	sc, err := LoadScenario(args[0])
	if err != nil {
		return err
	}
	a, err := setup(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	before, err := a.engine.Snapshot()
	if err != nil {
		return err
	}
	if err := Replay(a.engine, sc, cmd.OutOrStdout()); err != nil {
		return err
	}
	after, err := a.engine.Snapshot()
	if err != nil {
		return err
	}
	a.logger.Info("scenario replayed", "steps", len(sc.Steps), "from", before.Sequence, "to", after.Sequence)

	if printDiff, _ := cmd.Flags().GetBool("diff"); printDiff {
		d, err := differ.NewSnapshotDiffer(&differ.SnapshotDifferConfig{
			Registry: prometheus.DefaultRegisterer,
			Logger:   a.logger.With("component", "differ"),
		})
		if err != nil {
			return err
		}
		diff, err := d.Diff(before, after)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), diff)
	}
	return nil
}

func runQuote(cmd *cobra.Command, _ []string) error {
	poolFlag, _ := cmd.Flags().GetString("pool")
	addr, err := parsePool(poolFlag)
	if err != nil {
		return err
	}
	amountFlag, _ := cmd.Flags().GetString("amount")
	amount, err := parseSigned("amount", amountFlag)
	if err != nil {
		return err
	}
	limitFlag, _ := cmd.Flags().GetString("limit")
	limit, err := parseUnsigned("limit", limitFlag)
	if err != nil {
		return err
	}
	zeroForOne, _ := cmd.Flags().GetBool("zero-for-one")

	a, err := setup(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	res, err := a.engine.Quote(addr, zeroForOne, amount, limit)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), res)
}

func runPool(cmd *cobra.Command, _ []string) error {
	poolFlag, _ := cmd.Flags().GetString("pool")
	addr, err := parsePool(poolFlag)
	if err != nil {
		return err
	}

	a, err := setup(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	view, err := a.engine.Pool(addr)
	if err != nil {
		return err
	}
	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		return printJSON(cmd.OutOrStdout(), view)
	}
	return printPool(cmd.OutOrStdout(), view)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// header prints a section header
func header(w io.Writer, title string) {
	fmt.Fprintln(w, "\n:: "+title+" ::")
}

func printPool(out io.Writer, view clamm.PoolView) error {
	header(out, "POOL "+view.Address.Hex())
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "enabled\t%t\n", view.Enabled)
	fmt.Fprintf(w, "fee\t%d\n", view.Fee)
	fmt.Fprintf(w, "tick spacing\t%d\n", view.TickSpacing)
	fmt.Fprintf(w, "fee protocol\t%d/%d\n", view.FeeProtocol%16, view.FeeProtocol>>4)
	fmt.Fprintf(w, "tick\t%d\n", view.Tick)
	fmt.Fprintf(w, "sqrt price x96\t%s\n", view.SqrtPriceX96)
	fmt.Fprintf(w, "liquidity\t%s\n", view.Liquidity)
	fmt.Fprintf(w, "protocol fees\t%s / %s\n", view.ProtocolFee0, view.ProtocolFee1)
	if price, err := clamm.GetSpotPrice(true, 0, 0, view); err == nil {
		fmt.Fprintf(w, "spot price (raw)\t%s\n", price)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	header(out, "TICKS")
	w = tabwriter.NewWriter(out, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(w, "index\tliquidity net\tliquidity gross\t")
	for _, t := range view.Ticks {
		fmt.Fprintf(w, "%d\t%s\t%s\t\n", t.Index, t.LiquidityNet, t.LiquidityGross)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	header(out, "POSITIONS")
	w = tabwriter.NewWriter(out, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(w, "id\tlower\tupper\tliquidity\towed0\towed1\t")
	for _, p := range view.Positions {
		fmt.Fprintf(w, "%d\t%d\t%d\t%s\t%s\t%s\t\n", p.ID, p.TickLower, p.TickUpper, p.Liquidity, p.TokensOwed0, p.TokensOwed1)
	}
	return w.Flush()
}
