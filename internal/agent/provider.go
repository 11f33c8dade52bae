package agent

import (
	"github.com/shopspring/decimal"

	"poolsim/internal/pool"
)

// LiquidityProvider keeps a ladder of positions staggered around the
// current price, tearing the ladder down and rebuilding it on a fixed
// cadence.
type LiquidityProvider struct {
	name           string
	rebalanceEvery int
	positionWidth  float64 // width of each rung as a fraction of price
	numPositions   int
	budgetFrac     decimal.Decimal // fraction of balances committed
	lastRebalance  int
}

func NewLiquidityProvider(name string, rebalanceEvery int, positionWidth float64, numPositions int, budgetFrac float64) *LiquidityProvider {
	return &LiquidityProvider{
		name:           name,
		rebalanceEvery: rebalanceEvery,
		positionWidth:  positionWidth,
		numPositions:   numPositions,
		budgetFrac:     decimal.NewFromFloat(budgetFrac),
		lastRebalance:  -rebalanceEvery, // force an initial build
	}
}

func (a *LiquidityProvider) Name() string { return a.name }

func (a *LiquidityProvider) Decide(ctx Context) []Action {
	if ctx.Step-a.lastRebalance < a.rebalanceEvery {
		return nil
	}
	a.lastRebalance = ctx.Step

	actions := closeOut(ctx.Positions)

	price := ctx.Pool.Price().InexactFloat64()
	if price <= 0 {
		return actions
	}
	spacing := ctx.Pool.TickSpacing()
	perRung := decimal.NewFromInt(int64(a.numPositions))
	budget0 := ctx.Balance0.Mul(a.budgetFrac).Div(perRung)
	budget1 := ctx.Balance1.Mul(a.budgetFrac).Div(perRung)

	halfWidth := a.positionWidth / 2
	for i := 0; i < a.numPositions; i++ {
		offset := float64(i-a.numPositions/2) * a.positionWidth
		lowerPrice := price * (1 + offset - halfWidth)
		upperPrice := price * (1 + offset + halfWidth)
		if lowerPrice <= 0 {
			continue
		}

		lower := alignedTickForPrice(lowerPrice, spacing)
		upper := alignedTickForPrice(upperPrice, spacing)
		if upper-lower < spacing {
			upper = lower + spacing
		}

		liquidity := pool.LiquidityForAmounts(
			ctx.Pool.SqrtPrice(),
			pool.SqrtPriceAtTick(lower),
			pool.SqrtPriceAtTick(upper),
			budget0, budget1,
		)
		if liquidity.IsPositive() {
			actions = append(actions, MintAction{Lower: lower, Upper: upper, Liquidity: liquidity})
		}
	}
	return actions
}
