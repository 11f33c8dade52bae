package agent

import (
	"math"

	"github.com/shopspring/decimal"

	"poolsim/internal/pool"
)

// View is the read-only pool surface agents decide against. *pool.Pool
// satisfies it; the pool itself never references agent types.
type View interface {
	Price() decimal.Decimal
	SqrtPrice() decimal.Decimal
	CurrentTick() int
	ActiveLiquidity() decimal.Decimal
	TickSpacing() int
	FeeRate() decimal.Decimal
}

// PositionRef identifies one of the agent's open ranges, as tracked by the
// simulation's bookkeeping.
type PositionRef struct {
	Lower     int
	Upper     int
	Liquidity decimal.Decimal
}

// Context is everything an agent sees for one turn.
type Context struct {
	Step      int
	Pool      View
	Balance0  decimal.Decimal
	Balance1  decimal.Decimal
	Positions []PositionRef
}

// Action is a requested pool operation. The simulation runner validates
// balances and executes actions in the order returned.
type Action interface {
	actionTag()
}

type SwapAction struct {
	Direction  pool.Direction
	AmountIn   decimal.Decimal
	PriceLimit decimal.Decimal
}

type MintAction struct {
	Lower     int
	Upper     int
	Liquidity decimal.Decimal
}

type BurnAction struct {
	Lower     int
	Upper     int
	Liquidity decimal.Decimal
}

type CollectAction struct {
	Lower int
	Upper int
}

func (SwapAction) actionTag()    {}
func (MintAction) actionTag()    {}
func (BurnAction) actionTag()    {}
func (CollectAction) actionTag() {}

// Agent decides what to do each simulation step.
type Agent interface {
	Name() string
	Decide(ctx Context) []Action
}

// alignedTickForPrice converts a spot price to the nearest spacing-aligned
// tick at or below it.
func alignedTickForPrice(price float64, spacing int) int {
	if price <= 0 {
		return pool.AlignTick(pool.MinTick, spacing) + spacing
	}
	tick := pool.TickAtSqrtPrice(decimal.NewFromFloat(math.Sqrt(price)))
	return pool.AlignTick(tick, spacing)
}

// closeOut burns and collects every open position.
func closeOut(positions []PositionRef) []Action {
	actions := make([]Action, 0, len(positions)*2)
	for _, ref := range positions {
		if ref.Liquidity.IsPositive() {
			actions = append(actions, BurnAction{Lower: ref.Lower, Upper: ref.Upper, Liquidity: ref.Liquidity})
		}
		actions = append(actions, CollectAction{Lower: ref.Lower, Upper: ref.Upper})
	}
	return actions
}
