package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"poolsim/internal/model"
)

// Store provides Postgres persistence for simulation output.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// UpsertRunSummary inserts or updates the run row.
func (s *Store) UpsertRunSummary(ctx context.Context, summary model.RunSummary) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO runs (
			run_id, seed, steps, token0, token1, fee_rate, tick_spacing,
			initial_price, final_price, final_liquidity, total_volume,
			started_at, finished_at, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,now(),now())
		ON CONFLICT (run_id)
		DO UPDATE SET
			steps = EXCLUDED.steps,
			final_price = EXCLUDED.final_price,
			final_liquidity = EXCLUDED.final_liquidity,
			total_volume = EXCLUDED.total_volume,
			finished_at = EXCLUDED.finished_at,
			updated_at = now()
	`,
		summary.RunID,
		summary.Seed,
		summary.Steps,
		summary.Token0.Symbol,
		summary.Token1.Symbol,
		summary.FeeRate.String(),
		summary.TickSpacing,
		summary.InitialPrice.String(),
		summary.FinalPrice.String(),
		summary.FinalLiquidity.String(),
		summary.TotalVolume.String(),
		summary.StartedAt,
		summary.FinishedAt,
	)
	return err
}

// InsertStepMetrics writes a batch of per-step snapshots.
func (s *Store) InsertStepMetrics(ctx context.Context, steps []model.StepMetrics) error {
	if len(steps) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, m := range steps {
		batch.Queue(`
			INSERT INTO step_metrics (
				run_id, step, price, sqrt_price, tick, active_liquidity,
				volume, swap_count, mint_count, burn_count, rejected_actions,
				fee_growth0, fee_growth1, recorded_at, created_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,now())
			ON CONFLICT (run_id, step)
			DO UPDATE SET
				price = EXCLUDED.price,
				sqrt_price = EXCLUDED.sqrt_price,
				tick = EXCLUDED.tick,
				active_liquidity = EXCLUDED.active_liquidity,
				volume = EXCLUDED.volume,
				swap_count = EXCLUDED.swap_count,
				mint_count = EXCLUDED.mint_count,
				burn_count = EXCLUDED.burn_count,
				rejected_actions = EXCLUDED.rejected_actions,
				fee_growth0 = EXCLUDED.fee_growth0,
				fee_growth1 = EXCLUDED.fee_growth1,
				recorded_at = EXCLUDED.recorded_at
		`,
			m.RunID,
			m.Step,
			m.Price.String(),
			m.SqrtPrice.String(),
			m.Tick,
			m.ActiveLiquidity.String(),
			m.Volume.String(),
			m.SwapCount,
			m.MintCount,
			m.BurnCount,
			m.RejectedActions,
			m.FeeGrowth0.String(),
			m.FeeGrowth1.String(),
			m.RecordedAt,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range steps {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// InsertTrades writes a batch of executed swaps.
func (s *Store) InsertTrades(ctx context.Context, trades []model.TradeRecord) error {
	if len(trades) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, t := range trades {
		batch.Queue(`
			INSERT INTO trades (
				run_id, step, agent, direction, amount_in, amount_out,
				fee_paid, price_after, tick_after, trace_steps, created_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,now())
		`,
			t.RunID,
			t.Step,
			t.Agent,
			t.Direction,
			t.AmountIn.String(),
			t.AmountOut.String(),
			t.FeePaid.String(),
			t.PriceAfter.String(),
			t.TickAfter,
			t.TraceSteps,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range trades {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}
