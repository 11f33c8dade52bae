package sim

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"

	"poolsim/internal/agent"
	"poolsim/internal/model"
	"poolsim/internal/pool"
)

// memorySink collects records in memory for assertions.
type memorySink struct {
	steps   []model.StepMetrics
	trades  []model.TradeRecord
	summary *model.RunSummary
}

func (m *memorySink) PutStepBatch(steps []model.StepMetrics) error {
	m.steps = append(m.steps, steps...)
	return nil
}

func (m *memorySink) PutTradeBatch(trades []model.TradeRecord) error {
	m.trades = append(m.trades, trades...)
	return nil
}

func (m *memorySink) PutRunSummary(summary model.RunSummary) error {
	m.summary = &summary
	return nil
}

func newSimPool(t *testing.T) *pool.Pool {
	t.Helper()
	p, err := pool.New(pool.Config{
		FeeRate:          decimal.NewFromFloat(0.003),
		TickSpacing:      60,
		InitialSqrtPrice: decimal.NewFromFloat(math.Sqrt(3000)),
	})
	if err != nil {
		t.Fatalf("new pool: %v", err)
	}
	return p
}

// newSeededRunner assembles a small deterministic roster: a provider first
// so liquidity exists from step one, then two traders with seeds derived
// from the root seed.
func newSeededRunner(t *testing.T, seed int64, steps int, sink *memorySink) *Runner {
	t.Helper()
	runner := NewRunner(RunConfig{
		RunID:     "test-run",
		Seed:      seed,
		Steps:     steps,
		BatchSize: 7,
		LogEvery:  1000,
	}, newSimPool(t), sink, nil, nil)

	rng := rand.New(rand.NewSource(seed))
	runner.AddAgent(
		agent.NewLiquidityProvider("lp_0", 10, 0.05, 3, 0.5),
		decimal.NewFromInt(100), decimal.NewFromInt(300_000),
	)
	for i := 0; i < 2; i++ {
		runner.AddAgent(
			agent.NewRandomTrader(fmt.Sprintf("random_%d", i), 0.5, 0.1, rand.New(rand.NewSource(rng.Int63()))),
			decimal.NewFromInt(50), decimal.NewFromInt(150_000),
		)
	}
	return runner
}

func TestRunDeterministicForSeed(t *testing.T) {
	const steps = 30

	var sinks [2]*memorySink
	for i := range sinks {
		sinks[i] = &memorySink{}
		runner := newSeededRunner(t, 42, steps, sinks[i])
		if err := runner.Run(context.Background()); err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
	}

	a, b := sinks[0], sinks[1]
	if len(a.steps) != steps || len(b.steps) != steps {
		t.Fatalf("step counts: %d and %d, want %d", len(a.steps), len(b.steps), steps)
	}
	for i := range a.steps {
		sa, sb := a.steps[i], b.steps[i]
		if !sa.Price.Equal(sb.Price) || sa.Tick != sb.Tick {
			t.Fatalf("step %d diverged: price %s/%s tick %d/%d", sa.Step, sa.Price, sb.Price, sa.Tick, sb.Tick)
		}
		if !sa.ActiveLiquidity.Equal(sb.ActiveLiquidity) || !sa.Volume.Equal(sb.Volume) {
			t.Fatalf("step %d diverged: liquidity %s/%s volume %s/%s",
				sa.Step, sa.ActiveLiquidity, sb.ActiveLiquidity, sa.Volume, sb.Volume)
		}
		if sa.SwapCount != sb.SwapCount || sa.RejectedActions != sb.RejectedActions {
			t.Fatalf("step %d diverged: swaps %d/%d rejected %d/%d",
				sa.Step, sa.SwapCount, sb.SwapCount, sa.RejectedActions, sb.RejectedActions)
		}
	}

	if len(a.trades) != len(b.trades) {
		t.Fatalf("trade counts diverged: %d vs %d", len(a.trades), len(b.trades))
	}
	for i := range a.trades {
		ta, tb := a.trades[i], b.trades[i]
		if ta.Agent != tb.Agent || ta.Direction != tb.Direction || !ta.AmountIn.Equal(tb.AmountIn) || !ta.AmountOut.Equal(tb.AmountOut) {
			t.Fatalf("trade %d diverged: %+v vs %+v", i, ta, tb)
		}
	}

	if a.summary == nil || b.summary == nil {
		t.Fatalf("missing run summary")
	}
	if !a.summary.TotalVolume.Equal(b.summary.TotalVolume) {
		t.Fatalf("total volume diverged: %s vs %s", a.summary.TotalVolume, b.summary.TotalVolume)
	}
	if !a.summary.FinalPrice.Equal(b.summary.FinalPrice) {
		t.Fatalf("final price diverged: %s vs %s", a.summary.FinalPrice, b.summary.FinalPrice)
	}
}

// overdraftAgent always tries to spend more than it holds.
type overdraftAgent struct{}

func (overdraftAgent) Name() string { return "overdraft" }

func (overdraftAgent) Decide(ctx agent.Context) []agent.Action {
	return []agent.Action{agent.SwapAction{
		Direction: pool.ZeroForOne,
		AmountIn:  ctx.Balance0.Add(decimal.NewFromInt(1)),
	}}
}

func TestRunRejectsOverdraftAndContinues(t *testing.T) {
	sink := &memorySink{}
	runner := NewRunner(RunConfig{
		RunID:     "overdraft-run",
		Seed:      1,
		Steps:     3,
		BatchSize: 10,
		LogEvery:  1000,
	}, newSimPool(t), sink, nil, nil)
	runner.AddAgent(overdraftAgent{}, decimal.NewFromInt(10), decimal.NewFromInt(10))

	if err := runner.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(sink.steps) != 3 {
		t.Fatalf("expected 3 steps, got %d", len(sink.steps))
	}
	for _, step := range sink.steps {
		if step.RejectedActions != 1 {
			t.Fatalf("step %d: rejected = %d, want 1", step.Step, step.RejectedActions)
		}
		if step.SwapCount != 0 {
			t.Fatalf("step %d: rejected swap was counted", step.Step)
		}
	}
	if len(sink.trades) != 0 {
		t.Fatalf("rejected swaps produced %d trade records", len(sink.trades))
	}
}

func TestRunValidation(t *testing.T) {
	sink := &memorySink{}

	runner := NewRunner(RunConfig{RunID: "r", Steps: 0}, newSimPool(t), sink, nil, nil)
	if err := runner.Run(context.Background()); err == nil {
		t.Fatalf("expected error for zero steps")
	}

	runner = NewRunner(RunConfig{RunID: "r", Steps: 1}, newSimPool(t), nil, nil, nil)
	if err := runner.Run(context.Background()); err == nil {
		t.Fatalf("expected error for nil sink")
	}
}

func TestRunHonorsContextCancellation(t *testing.T) {
	sink := &memorySink{}
	runner := NewRunner(RunConfig{
		RunID: "cancelled-run",
		Steps: 100,
	}, newSimPool(t), sink, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := runner.Run(ctx); err != context.Canceled {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestParticipantPositionBookkeeping(t *testing.T) {
	p := &participant{}

	p.addPosition(0, 60, decimal.NewFromInt(100))
	p.addPosition(-120, -60, decimal.NewFromInt(200))
	p.addPosition(-120, 60, decimal.NewFromInt(300))

	// sorted by lower bound, then upper
	want := []struct{ lower, upper int }{{-120, -60}, {-120, 60}, {0, 60}}
	for i, w := range want {
		if p.positions[i].Lower != w.lower || p.positions[i].Upper != w.upper {
			t.Fatalf("position %d = [%d, %d), want [%d, %d)",
				i, p.positions[i].Lower, p.positions[i].Upper, w.lower, w.upper)
		}
	}

	// adding to an existing range accumulates
	p.addPosition(0, 60, decimal.NewFromInt(50))
	if got := p.positionLiquidity(0, 60); !got.Equal(decimal.NewFromInt(150)) {
		t.Fatalf("accumulated liquidity = %s, want 150", got)
	}

	// partial reduce keeps the entry, full reduce drops it
	p.reducePosition(0, 60, decimal.NewFromInt(100))
	if got := p.positionLiquidity(0, 60); !got.Equal(decimal.NewFromInt(50)) {
		t.Fatalf("reduced liquidity = %s, want 50", got)
	}
	p.reducePosition(0, 60, decimal.NewFromInt(50))
	if got := p.positionLiquidity(0, 60); !got.IsZero() {
		t.Fatalf("drained position still holds %s", got)
	}
	if len(p.positions) != 2 {
		t.Fatalf("expected 2 remaining positions, got %d", len(p.positions))
	}
}
