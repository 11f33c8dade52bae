package agent

import (
	"math/rand"

	"github.com/shopspring/decimal"

	"poolsim/internal/pool"
)

// RandomTrader trades a random fraction of its balance in a random
// direction with a fixed per-step probability.
type RandomTrader struct {
	name           string
	tradeFrequency float64
	maxTradeFrac   float64
	rng            *rand.Rand
}

func NewRandomTrader(name string, tradeFrequency, maxTradeFrac float64, rng *rand.Rand) *RandomTrader {
	return &RandomTrader{
		name:           name,
		tradeFrequency: tradeFrequency,
		maxTradeFrac:   maxTradeFrac,
		rng:            rng,
	}
}

func (a *RandomTrader) Name() string { return a.name }

func (a *RandomTrader) Decide(ctx Context) []Action {
	if a.rng.Float64() > a.tradeFrequency {
		return nil
	}

	direction := pool.ZeroForOne
	balance := ctx.Balance0
	if a.rng.Intn(2) == 1 {
		direction = pool.OneForZero
		balance = ctx.Balance1
	}

	frac := decimal.NewFromFloat(a.rng.Float64() * a.maxTradeFrac)
	amount := balance.Mul(frac)
	if !amount.IsPositive() {
		return nil
	}
	return []Action{SwapAction{Direction: direction, AmountIn: amount}}
}
