package agent

import (
	"math"

	"github.com/shopspring/decimal"

	"poolsim/internal/pool"
)

// MarketMaker quotes a single range around the current price, widening it
// with realized volatility and skewing it to steer inventory back toward a
// target token0 share.
type MarketMaker struct {
	name            string
	rebalanceEvery  int
	baseWidth       float64
	minWidth        float64
	maxWidth        float64
	volWindow       int
	inventoryTarget float64
	inventoryImpact float64
	budgetFrac      decimal.Decimal
	history         []float64
	lastRebalance   int
}

type MarketMakerParams struct {
	RebalanceEvery  int
	BaseWidth       float64
	MinWidth        float64
	MaxWidth        float64
	VolWindow       int
	InventoryTarget float64
	InventoryImpact float64
	BudgetFrac      float64
}

func NewMarketMaker(name string, params MarketMakerParams) *MarketMaker {
	return &MarketMaker{
		name:            name,
		rebalanceEvery:  params.RebalanceEvery,
		baseWidth:       params.BaseWidth,
		minWidth:        params.MinWidth,
		maxWidth:        params.MaxWidth,
		volWindow:       params.VolWindow,
		inventoryTarget: params.InventoryTarget,
		inventoryImpact: params.InventoryImpact,
		budgetFrac:      decimal.NewFromFloat(params.BudgetFrac),
		lastRebalance:   -params.RebalanceEvery,
	}
}

func (a *MarketMaker) Name() string { return a.name }

func (a *MarketMaker) Decide(ctx Context) []Action {
	price := ctx.Pool.Price().InexactFloat64()
	if price > 0 {
		a.history = append(a.history, price)
	}
	if ctx.Step-a.lastRebalance < a.rebalanceEvery {
		return nil
	}
	a.lastRebalance = ctx.Step

	actions := closeOut(ctx.Positions)
	if price <= 0 {
		return actions
	}

	width := a.quoteWidth()
	skew := (a.inventoryRatio(price, ctx) - a.inventoryTarget) * a.inventoryImpact

	lowerPrice := price * (1 - width + skew)
	upperPrice := price * (1 + width + skew)
	if lowerPrice <= 0 {
		return actions
	}

	spacing := ctx.Pool.TickSpacing()
	lower := alignedTickForPrice(lowerPrice, spacing)
	upper := alignedTickForPrice(upperPrice, spacing)
	if upper-lower < spacing {
		upper = lower + spacing
	}

	liquidity := pool.LiquidityForAmounts(
		ctx.Pool.SqrtPrice(),
		pool.SqrtPriceAtTick(lower),
		pool.SqrtPriceAtTick(upper),
		ctx.Balance0.Mul(a.budgetFrac),
		ctx.Balance1.Mul(a.budgetFrac),
	)
	if liquidity.IsPositive() {
		actions = append(actions, MintAction{Lower: lower, Upper: upper, Liquidity: liquidity})
	}
	return actions
}

// quoteWidth scales the base width by the standard deviation of log
// returns over the lookback window, clamped to [minWidth, maxWidth].
func (a *MarketMaker) quoteWidth() float64 {
	if len(a.history) < a.volWindow || a.volWindow < 2 {
		return a.baseWidth
	}

	window := a.history[len(a.history)-a.volWindow:]
	returns := make([]float64, 0, len(window)-1)
	for i := 1; i < len(window); i++ {
		if window[i-1] <= 0 || window[i] <= 0 {
			continue
		}
		returns = append(returns, math.Log(window[i]/window[i-1]))
	}
	if len(returns) < 2 {
		return a.baseWidth
	}

	var mean float64
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))

	var variance float64
	for _, r := range returns {
		variance += (r - mean) * (r - mean)
	}
	variance /= float64(len(returns))

	vol := math.Sqrt(variance) * math.Sqrt(float64(a.volWindow))
	width := a.baseWidth * (1 + vol*10)
	return math.Max(a.minWidth, math.Min(a.maxWidth, width))
}

// inventoryRatio is the share of total value held in token0.
func (a *MarketMaker) inventoryRatio(price float64, ctx Context) float64 {
	b0 := ctx.Balance0.InexactFloat64()
	b1 := ctx.Balance1.InexactFloat64()
	total := b0 + b1/price
	if total <= 0 {
		return 0.5
	}
	return b0 / total
}
