package sim

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"poolsim/internal/agent"
	"poolsim/internal/model"
	"poolsim/internal/pool"
	"poolsim/internal/storage"
	"poolsim/internal/storage/postgres"
)

// RunConfig holds runtime settings for a simulation run.
type RunConfig struct {
	RunID     string
	Seed      int64
	Steps     int
	BatchSize int
	LogEvery  int
	Token0    model.Token
	Token1    model.Token
	State     *FileStateStore
}

// participant pairs an agent with the bookkeeping the pool does not do:
// token balances and the agent's open ranges.
type participant struct {
	agent     agent.Agent
	balance0  decimal.Decimal
	balance1  decimal.Decimal
	positions []agent.PositionRef
}

// Runner drives the pool with a fixed roster of agents, one turn at a
// time, in submission order. Execution is single-threaded; reproducibility
// follows from the seed alone.
type Runner struct {
	cfg          RunConfig
	pool         *pool.Pool
	sink         storage.Storage
	store        *postgres.Store
	logger       *zap.Logger
	participants []*participant

	totalVolume decimal.Decimal
}

// NewRunner builds a Runner. The Postgres store is optional; the sink is
// not.
func NewRunner(cfg RunConfig, p *pool.Pool, sink storage.Storage, store *postgres.Store, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.LogEvery <= 0 {
		cfg.LogEvery = 10
	}
	return &Runner{
		cfg:         cfg,
		pool:        p,
		sink:        sink,
		logger:      logger,
		store:       store,
		totalVolume: decimal.Zero,
	}
}

// AddAgent registers an agent with its starting balances. Agents act every
// step in registration order.
func (r *Runner) AddAgent(a agent.Agent, balance0, balance1 decimal.Decimal) {
	r.participants = append(r.participants, &participant{
		agent:    a,
		balance0: balance0,
		balance1: balance1,
	})
}

// Run executes the simulation loop.
func (r *Runner) Run(ctx context.Context) error {
	if r.pool == nil {
		return fmt.Errorf("pool is nil")
	}
	if r.sink == nil {
		return fmt.Errorf("storage sink is nil")
	}
	if r.cfg.Steps <= 0 {
		return fmt.Errorf("steps must be greater than zero")
	}

	startedAt := time.Now().UTC()
	initialPrice := r.pool.Price()
	stepBatch := make([]model.StepMetrics, 0, r.cfg.BatchSize)
	tradeBatch := make([]model.TradeRecord, 0, r.cfg.BatchSize)

	for step := 1; step <= r.cfg.Steps; step++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		metrics, trades := r.runStep(step)
		stepBatch = append(stepBatch, metrics)
		tradeBatch = append(tradeBatch, trades...)

		if len(stepBatch) >= r.cfg.BatchSize {
			if err := r.flush(ctx, stepBatch, tradeBatch); err != nil {
				return err
			}
			stepBatch = stepBatch[:0]
			tradeBatch = tradeBatch[:0]
			if err := r.cfg.State.Save(Progress{RunID: r.cfg.RunID, LastStep: step, TotalSteps: r.cfg.Steps}); err != nil {
				return err
			}
		}

		if step%r.cfg.LogEvery == 0 {
			r.logger.Info("step complete",
				zap.Int("step", step),
				zap.Int("total", r.cfg.Steps),
				zap.String("price", r.pool.Price().StringFixed(4)),
				zap.String("liquidity", r.pool.ActiveLiquidity().StringFixed(0)),
			)
		}
	}

	if err := r.flush(ctx, stepBatch, tradeBatch); err != nil {
		return err
	}
	if err := r.cfg.State.Save(Progress{RunID: r.cfg.RunID, LastStep: r.cfg.Steps, TotalSteps: r.cfg.Steps}); err != nil {
		return err
	}

	summary := model.RunSummary{
		RunID:          r.cfg.RunID,
		Seed:           r.cfg.Seed,
		Steps:          r.cfg.Steps,
		Token0:         r.cfg.Token0,
		Token1:         r.cfg.Token1,
		FeeRate:        r.pool.FeeRate(),
		TickSpacing:    r.pool.TickSpacing(),
		InitialPrice:   initialPrice,
		FinalPrice:     r.pool.Price(),
		FinalLiquidity: r.pool.ActiveLiquidity(),
		TotalVolume:    r.totalVolume,
		StartedAt:      startedAt.Format(time.RFC3339Nano),
		FinishedAt:     time.Now().UTC().Format(time.RFC3339Nano),
	}
	if err := r.sink.PutRunSummary(summary); err != nil {
		return fmt.Errorf("store run summary: %w", err)
	}
	if r.store != nil {
		if err := r.store.UpsertRunSummary(ctx, summary); err != nil {
			return fmt.Errorf("upsert run summary: %w", err)
		}
	}

	r.logger.Info("run complete",
		zap.String("run_id", r.cfg.RunID),
		zap.Int("steps", r.cfg.Steps),
		zap.String("final_price", summary.FinalPrice.StringFixed(4)),
		zap.String("total_volume", summary.TotalVolume.StringFixed(2)),
	)
	return nil
}

// runStep lets every agent act once and snapshots pool state afterwards.
func (r *Runner) runStep(step int) (model.StepMetrics, []model.TradeRecord) {
	metrics := model.StepMetrics{
		RunID: r.cfg.RunID,
		Step:  step,
	}
	var trades []model.TradeRecord
	stepVolume := decimal.Zero

	for _, part := range r.participants {
		actions := part.agent.Decide(agent.Context{
			Step:      step,
			Pool:      r.pool,
			Balance0:  part.balance0,
			Balance1:  part.balance1,
			Positions: append([]agent.PositionRef(nil), part.positions...),
		})

		for _, action := range actions {
			trade, volume, err := r.applyAction(step, part, action)
			if err != nil {
				// rejected action is a no-op for this turn
				metrics.RejectedActions++
				r.logger.Debug("action rejected",
					zap.String("agent", part.agent.Name()),
					zap.Int("step", step),
					zap.Error(err),
				)
				continue
			}
			stepVolume = stepVolume.Add(volume)
			switch action.(type) {
			case agent.SwapAction:
				metrics.SwapCount++
				trades = append(trades, trade)
			case agent.MintAction:
				metrics.MintCount++
			case agent.BurnAction:
				metrics.BurnCount++
			}
		}
	}

	metrics.Price = r.pool.Price()
	metrics.SqrtPrice = r.pool.SqrtPrice()
	metrics.Tick = r.pool.CurrentTick()
	metrics.ActiveLiquidity = r.pool.ActiveLiquidity()
	metrics.Volume = stepVolume
	metrics.FeeGrowth0, metrics.FeeGrowth1 = r.pool.FeeGrowthGlobal()
	metrics.RecordedAt = time.Now().UTC().Format(time.RFC3339Nano)

	r.totalVolume = r.totalVolume.Add(stepVolume)
	return metrics, trades
}

// applyAction validates balances, executes the action against the pool,
// and settles the participant's bookkeeping. Volume is reported in token1
// terms.
func (r *Runner) applyAction(step int, part *participant, action agent.Action) (model.TradeRecord, decimal.Decimal, error) {
	switch act := action.(type) {
	case agent.SwapAction:
		return r.applySwap(step, part, act)

	case agent.MintAction:
		amount0, amount1, err := r.pool.QuoteMint(act.Lower, act.Upper, act.Liquidity)
		if err != nil {
			return model.TradeRecord{}, decimal.Zero, err
		}
		if amount0.GreaterThan(part.balance0) || amount1.GreaterThan(part.balance1) {
			return model.TradeRecord{}, decimal.Zero, fmt.Errorf("mint needs %s/%s, agent holds %s/%s",
				amount0, amount1, part.balance0, part.balance1)
		}
		amount0, amount1, err = r.pool.Mint(part.agent.Name(), act.Lower, act.Upper, act.Liquidity)
		if err != nil {
			return model.TradeRecord{}, decimal.Zero, err
		}
		part.balance0 = part.balance0.Sub(amount0)
		part.balance1 = part.balance1.Sub(amount1)
		part.addPosition(act.Lower, act.Upper, act.Liquidity)
		return model.TradeRecord{}, decimal.Zero, nil

	case agent.BurnAction:
		held := part.positionLiquidity(act.Lower, act.Upper)
		if act.Liquidity.GreaterThan(held) {
			return model.TradeRecord{}, decimal.Zero, fmt.Errorf("burn %s exceeds tracked liquidity %s", act.Liquidity, held)
		}
		amount0, amount1, err := r.pool.Burn(part.agent.Name(), act.Lower, act.Upper, act.Liquidity)
		if err != nil {
			return model.TradeRecord{}, decimal.Zero, err
		}
		part.balance0 = part.balance0.Add(amount0)
		part.balance1 = part.balance1.Add(amount1)
		part.reducePosition(act.Lower, act.Upper, act.Liquidity)
		return model.TradeRecord{}, decimal.Zero, nil

	case agent.CollectAction:
		fees0, fees1 := r.pool.Collect(part.agent.Name(), act.Lower, act.Upper)
		part.balance0 = part.balance0.Add(fees0)
		part.balance1 = part.balance1.Add(fees1)
		return model.TradeRecord{}, decimal.Zero, nil

	default:
		return model.TradeRecord{}, decimal.Zero, fmt.Errorf("unknown action type %T", action)
	}
}

func (r *Runner) applySwap(step int, part *participant, act agent.SwapAction) (model.TradeRecord, decimal.Decimal, error) {
	balance := part.balance0
	if act.Direction == pool.OneForZero {
		balance = part.balance1
	}
	if act.AmountIn.GreaterThan(balance) {
		return model.TradeRecord{}, decimal.Zero, fmt.Errorf("swap input %s exceeds balance %s", act.AmountIn, balance)
	}

	priceBefore := r.pool.Price()
	res, err := r.pool.Swap(act.Direction, act.AmountIn, act.PriceLimit)
	if err != nil {
		if errors.Is(err, pool.ErrNoLiquidity) {
			return model.TradeRecord{}, decimal.Zero, fmt.Errorf("swap rejected: %w", err)
		}
		return model.TradeRecord{}, decimal.Zero, err
	}

	var volume decimal.Decimal
	if act.Direction == pool.ZeroForOne {
		part.balance0 = part.balance0.Sub(res.AmountInUsed)
		part.balance1 = part.balance1.Add(res.AmountOut)
		volume = res.AmountInUsed.Mul(priceBefore).Add(res.AmountOut)
	} else {
		part.balance1 = part.balance1.Sub(res.AmountInUsed)
		part.balance0 = part.balance0.Add(res.AmountOut)
		volume = res.AmountInUsed.Add(res.AmountOut.Mul(priceBefore))
	}

	trade := model.TradeRecord{
		RunID:      r.cfg.RunID,
		Step:       step,
		Agent:      part.agent.Name(),
		Direction:  act.Direction.String(),
		AmountIn:   res.AmountInUsed,
		AmountOut:  res.AmountOut,
		FeePaid:    res.FeePaid,
		PriceAfter: r.pool.Price(),
		TickAfter:  res.Tick,
		TraceSteps: len(res.Steps),
	}
	return trade, volume, nil
}

func (r *Runner) flush(ctx context.Context, steps []model.StepMetrics, trades []model.TradeRecord) error {
	if err := r.sink.PutStepBatch(steps); err != nil {
		return fmt.Errorf("store steps: %w", err)
	}
	if err := r.sink.PutTradeBatch(trades); err != nil {
		return fmt.Errorf("store trades: %w", err)
	}
	if r.store != nil {
		if err := r.store.InsertStepMetrics(ctx, steps); err != nil {
			return fmt.Errorf("insert step metrics: %w", err)
		}
		if err := r.store.InsertTrades(ctx, trades); err != nil {
			return fmt.Errorf("insert trades: %w", err)
		}
	}
	return nil
}

// Position bookkeeping on a sorted slice keeps turn order deterministic.

func (p *participant) positionLiquidity(lower, upper int) decimal.Decimal {
	for _, ref := range p.positions {
		if ref.Lower == lower && ref.Upper == upper {
			return ref.Liquidity
		}
	}
	return decimal.Zero
}

func (p *participant) addPosition(lower, upper int, liquidity decimal.Decimal) {
	for i, ref := range p.positions {
		if ref.Lower == lower && ref.Upper == upper {
			p.positions[i].Liquidity = ref.Liquidity.Add(liquidity)
			return
		}
	}
	insert := 0
	for insert < len(p.positions) {
		ref := p.positions[insert]
		if ref.Lower > lower || (ref.Lower == lower && ref.Upper > upper) {
			break
		}
		insert++
	}
	p.positions = append(p.positions, agent.PositionRef{})
	copy(p.positions[insert+1:], p.positions[insert:])
	p.positions[insert] = agent.PositionRef{Lower: lower, Upper: upper, Liquidity: liquidity}
}

func (p *participant) reducePosition(lower, upper int, liquidity decimal.Decimal) {
	for i, ref := range p.positions {
		if ref.Lower != lower || ref.Upper != upper {
			continue
		}
		rest := ref.Liquidity.Sub(liquidity)
		if rest.IsPositive() {
			p.positions[i].Liquidity = rest
		} else {
			p.positions = append(p.positions[:i], p.positions[i+1:]...)
		}
		return
	}
}
