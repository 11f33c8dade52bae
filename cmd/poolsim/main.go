package main

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"poolsim/internal/agent"
	"poolsim/internal/config"
	"poolsim/internal/model"
	"poolsim/internal/pool"
	"poolsim/internal/sim"
	"poolsim/internal/storage"
	"poolsim/internal/storage/postgres"
)

func main() {
	root := &cobra.Command{
		Use:          "poolsim",
		Short:        "Concentrated-liquidity pool simulator",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run a multi-agent simulation",
		RunE:  runSimulation,
	}

	runCmd.Flags().Float64("fee-rate", 0.003, "pool fee rate (fraction of input)")
	runCmd.Flags().Int("tick-spacing", 60, "pool tick spacing")
	runCmd.Flags().Float64("initial-price", 3000, "initial token1-per-token0 price")
	runCmd.Flags().Int("steps", 100, "simulation steps")
	runCmd.Flags().Int64("seed", 42, "random seed")
	runCmd.Flags().Int("random-traders", 5, "number of random traders")
	runCmd.Flags().Int("trend-followers", 3, "number of trend followers")
	runCmd.Flags().Int("liquidity-providers", 1, "number of liquidity providers")
	runCmd.Flags().Int("market-makers", 1, "number of market makers")
	runCmd.Flags().String("out", "./data", "output directory for JSONL records")
	runCmd.Flags().String("pg-dsn", "", "Postgres DSN (optional)")
	runCmd.Flags().Int("batch-size", 100, "batch size for storage writes")
	runCmd.Flags().String("state-file", "", "optional progress state file")
	runCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(runCmd)

	demoCmd := &cobra.Command{
		Use:   "demo",
		Short: "Run a scripted mint and swap sequence",
		RunE:  runDemo,
	}

	demoCmd.Flags().Float64("fee-rate", 0.003, "pool fee rate (fraction of input)")
	demoCmd.Flags().Int("tick-spacing", 60, "pool tick spacing")
	demoCmd.Flags().Float64("initial-price", 3000, "initial token1-per-token0 price")
	demoCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(demoCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

var (
	token0 = model.Token{Name: "Ether", Symbol: "ETH", Decimals: 18, Address: common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2")}
	token1 = model.Token{Name: "USD Coin", Symbol: "USDC", Decimals: 6, Address: common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48")}
)

func runSimulation(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p, err := buildPool(cfg)
	if err != nil {
		return err
	}

	sink := storage.NewJsonlStorage(cfg.Out)

	var store *postgres.Store
	if cfg.PGDSN != "" {
		store, err = postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer store.Close()
	}

	runID := fmt.Sprintf("run-%d-%d", cfg.Seed, time.Now().UTC().Unix())
	runner := sim.NewRunner(sim.RunConfig{
		RunID:     runID,
		Seed:      cfg.Seed,
		Steps:     cfg.Steps,
		BatchSize: cfg.BatchSize,
		Token0:    token0,
		Token1:    token1,
		State:     &sim.FileStateStore{Path: cfg.StateFile},
	}, p, sink, store, logger)

	addAgents(runner, cfg)

	logger.Info("simulation start",
		zap.String("run_id", runID),
		zap.Int("steps", cfg.Steps),
		zap.Int64("seed", cfg.Seed),
		zap.Float64("fee_rate", cfg.FeeRate),
		zap.Int("tick_spacing", cfg.TickSpacing),
		zap.Float64("initial_price", cfg.InitialPrice),
		zap.String("out", cfg.Out),
	)

	return runner.Run(ctx)
}

// addAgents builds the roster in a fixed order so a seed fully determines
// the run: providers first (so liquidity exists from step one), then
// traders, then market makers.
func addAgents(runner *sim.Runner, cfg config.Config) {
	rng := rand.New(rand.NewSource(cfg.Seed))

	for i := 0; i < cfg.LiquidityProviders; i++ {
		runner.AddAgent(
			agent.NewLiquidityProvider(fmt.Sprintf("lp_%d", i), 20, 0.05, 3, 0.5),
			decimal.NewFromInt(100), decimal.NewFromInt(300_000),
		)
	}
	for i := 0; i < cfg.RandomTraders; i++ {
		runner.AddAgent(
			agent.NewRandomTrader(fmt.Sprintf("random_%d", i), 0.2, 0.1, rand.New(rand.NewSource(rng.Int63()))),
			decimal.NewFromInt(50), decimal.NewFromInt(150_000),
		)
	}
	for i := 0; i < cfg.TrendFollowers; i++ {
		runner.AddAgent(
			agent.NewTrendFollower(fmt.Sprintf("trend_%d", i), 5, 0.01, 0.2),
			decimal.NewFromInt(100), decimal.NewFromInt(300_000),
		)
	}
	for i := 0; i < cfg.MarketMakers; i++ {
		runner.AddAgent(
			agent.NewMarketMaker(fmt.Sprintf("mm_%d", i), agent.MarketMakerParams{
				RebalanceEvery:  10,
				BaseWidth:       0.05,
				MinWidth:        0.01,
				MaxWidth:        0.2,
				VolWindow:       20,
				InventoryTarget: 0.5,
				InventoryImpact: 0.5,
				BudgetFrac:      0.5,
			}),
			decimal.NewFromInt(500), decimal.NewFromInt(1_500_000),
		)
	}
}

// runDemo mints three overlapping ranges and executes a scripted swap
// sequence against them, logging each result.
func runDemo(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	p, err := buildPool(cfg)
	if err != nil {
		return err
	}

	ranges := []struct {
		owner      string
		lowerPrice float64
		upperPrice float64
		liquidity  int64
	}{
		{"lp_wide", 2000, 4000, 1_000_000},
		{"lp_medium", 2500, 3500, 5_000_000},
		{"lp_narrow", 2900, 3100, 10_000_000},
	}
	for _, pos := range ranges {
		lower := alignedTickForPrice(pos.lowerPrice, cfg.TickSpacing)
		upper := alignedTickForPrice(pos.upperPrice, cfg.TickSpacing)
		amount0, amount1, err := p.Mint(pos.owner, lower, upper, decimal.NewFromInt(pos.liquidity))
		if err != nil {
			return fmt.Errorf("mint %s: %w", pos.owner, err)
		}
		logger.Info("position minted",
			zap.String("owner", pos.owner),
			zap.Int("lower", lower),
			zap.Int("upper", upper),
			zap.String("amount0", token0.FormatAmount(amount0)),
			zap.String("amount1", token1.FormatAmount(amount1)),
		)
	}

	swaps := []struct {
		direction pool.Direction
		amountIn  decimal.Decimal
	}{
		{pool.ZeroForOne, decimal.NewFromInt(10)},
		{pool.OneForZero, decimal.NewFromInt(50_000)},
		{pool.ZeroForOne, decimal.NewFromInt(100)},
	}
	for i, s := range swaps {
		res, err := p.Swap(s.direction, s.amountIn, decimal.Zero)
		if err != nil {
			return fmt.Errorf("swap %d: %w", i+1, err)
		}
		logger.Info("swap executed",
			zap.Int("swap", i+1),
			zap.String("direction", s.direction.String()),
			zap.String("amount_in", res.AmountInUsed.StringFixed(4)),
			zap.String("amount_out", res.AmountOut.StringFixed(4)),
			zap.String("fee_paid", res.FeePaid.StringFixed(6)),
			zap.String("price", p.Price().StringFixed(2)),
			zap.String("liquidity", p.ActiveLiquidity().StringFixed(0)),
			zap.Int("trace_steps", len(res.Steps)),
		)
	}

	return nil
}

func buildPool(cfg config.Config) (*pool.Pool, error) {
	return pool.New(pool.Config{
		Token0:           token0.Address,
		Token1:           token1.Address,
		FeeRate:          decimal.NewFromFloat(cfg.FeeRate),
		TickSpacing:      cfg.TickSpacing,
		InitialSqrtPrice: decimal.NewFromFloat(math.Sqrt(cfg.InitialPrice)),
	})
}

func alignedTickForPrice(price float64, spacing int) int {
	tick := pool.TickAtSqrtPrice(decimal.NewFromFloat(math.Sqrt(price)))
	return pool.AlignTick(tick, spacing)
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
