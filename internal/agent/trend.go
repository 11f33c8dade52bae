package agent

import (
	"github.com/shopspring/decimal"

	"poolsim/internal/pool"
)

// TrendFollower buys into rising prices and sells into falling ones once
// the move over its lookback window exceeds a threshold.
type TrendFollower struct {
	name      string
	window    int
	threshold float64
	tradeFrac decimal.Decimal
	history   []float64
}

func NewTrendFollower(name string, window int, threshold, tradeFrac float64) *TrendFollower {
	return &TrendFollower{
		name:      name,
		window:    window,
		threshold: threshold,
		tradeFrac: decimal.NewFromFloat(tradeFrac),
	}
}

func (a *TrendFollower) Name() string { return a.name }

func (a *TrendFollower) Decide(ctx Context) []Action {
	price := ctx.Pool.Price().InexactFloat64()
	a.history = append(a.history, price)
	if len(a.history) < a.window {
		return nil
	}

	start := a.history[len(a.history)-a.window]
	if start <= 0 {
		return nil
	}
	change := (price - start) / start

	switch {
	case change > a.threshold:
		// rising: sell token1 for token0
		amount := ctx.Balance1.Mul(a.tradeFrac)
		if amount.IsPositive() {
			return []Action{SwapAction{Direction: pool.OneForZero, AmountIn: amount}}
		}
	case change < -a.threshold:
		// falling: sell token0 for token1
		amount := ctx.Balance0.Mul(a.tradeFrac)
		if amount.IsPositive() {
			return []Action{SwapAction{Direction: pool.ZeroForOne, AmountIn: amount}}
		}
	}
	return nil
}
