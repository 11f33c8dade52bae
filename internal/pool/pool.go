package pool

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// Direction selects the traded-in token of a swap.
type Direction int

const (
	// ZeroForOne sells token0 for token1 and pushes the price down.
	ZeroForOne Direction = iota
	// OneForZero sells token1 for token0 and pushes the price up.
	OneForZero
)

func (d Direction) String() string {
	if d == ZeroForOne {
		return "zero_for_one"
	}
	return "one_for_zero"
}

// Config is the immutable pool configuration.
type Config struct {
	Token0           common.Address
	Token1           common.Address
	FeeRate          decimal.Decimal // input fraction taken as fee, e.g. 0.003
	TickSpacing      int
	InitialSqrtPrice decimal.Decimal
}

// Pool is a single concentrated-liquidity pool. It is not safe for
// concurrent use; the simulation driver serializes all calls.
type Pool struct {
	cfg Config

	sqrtPrice decimal.Decimal
	tick      int
	liquidity decimal.Decimal

	feeGrowthGlobal0 decimal.Decimal
	feeGrowthGlobal1 decimal.Decimal

	ticks     *Registry
	positions *positionSet
}

// New validates the configuration and builds an empty pool at the initial
// price.
func New(cfg Config) (*Pool, error) {
	if cfg.TickSpacing <= 0 {
		return nil, fmt.Errorf("%w: tick spacing must be positive", ErrInvalidTick)
	}
	if cfg.FeeRate.IsNegative() || cfg.FeeRate.GreaterThanOrEqual(one) {
		return nil, fmt.Errorf("%w: fee rate must be in [0, 1)", ErrInvalidAmount)
	}
	if !cfg.InitialSqrtPrice.IsPositive() {
		return nil, fmt.Errorf("%w: initial sqrt price must be positive", ErrInvalidAmount)
	}

	return &Pool{
		cfg:       cfg,
		sqrtPrice: cfg.InitialSqrtPrice,
		tick:      TickAtSqrtPrice(cfg.InitialSqrtPrice),
		ticks:     NewRegistry(cfg.TickSpacing),
		positions: newPositionSet(),
	}, nil
}

// AlignTick floors tick to the nearest multiple of spacing. Works for
// negative ticks as well.
func AlignTick(tick, spacing int) int {
	q := tick / spacing
	if tick%spacing != 0 && tick < 0 {
		q--
	}
	return q * spacing
}

// Mint adds liquidity to the range [lower, upper) for owner and returns
// the token amounts the owner must supply at the current price. All
// preconditions are checked before any state changes.
func (p *Pool) Mint(owner string, lower, upper int, amount decimal.Decimal) (decimal.Decimal, decimal.Decimal, error) {
	if !amount.IsPositive() {
		return zero, zero, fmt.Errorf("%w: mint amount must be positive", ErrInvalidAmount)
	}
	if err := p.checkRange(lower, upper); err != nil {
		return zero, zero, err
	}
	if p.ticks.Gross(lower).Add(amount).GreaterThan(maxLiquidityPerTick) ||
		p.ticks.Gross(upper).Add(amount).GreaterThan(maxLiquidityPerTick) {
		return zero, zero, fmt.Errorf("%w: mint exceeds per-tick liquidity limit", ErrInsufficientLiquidity)
	}

	amount0, amount1 := p.applyLiquidityChange(owner, lower, upper, amount)
	return amount0.RoundUp(amountScale), amount1.RoundUp(amountScale), nil
}

// QuoteMint returns the token amounts a mint would require without
// changing any state.
func (p *Pool) QuoteMint(lower, upper int, amount decimal.Decimal) (decimal.Decimal, decimal.Decimal, error) {
	if !amount.IsPositive() {
		return zero, zero, fmt.Errorf("%w: mint amount must be positive", ErrInvalidAmount)
	}
	if err := p.checkRange(lower, upper); err != nil {
		return zero, zero, err
	}

	sqrtLower := SqrtPriceAtTick(lower)
	sqrtUpper := SqrtPriceAtTick(upper)
	var amount0, amount1 decimal.Decimal
	switch {
	case p.tick < lower:
		amount0 = amount0Delta(sqrtLower, sqrtUpper, amount)
	case p.tick < upper:
		amount0 = amount0Delta(p.sqrtPrice, sqrtUpper, amount)
		amount1 = amount1Delta(sqrtLower, p.sqrtPrice, amount)
	default:
		amount1 = amount1Delta(sqrtLower, sqrtUpper, amount)
	}
	return amount0.RoundUp(amountScale), amount1.RoundUp(amountScale), nil
}

// Burn removes liquidity from an existing position. The principal token
// amounts are returned directly; fees accrued so far move into the
// position's tokensOwed and wait for Collect.
func (p *Pool) Burn(owner string, lower, upper int, amount decimal.Decimal) (decimal.Decimal, decimal.Decimal, error) {
	if !amount.IsPositive() {
		return zero, zero, fmt.Errorf("%w: burn amount must be positive", ErrInvalidAmount)
	}
	if err := p.checkRange(lower, upper); err != nil {
		return zero, zero, err
	}
	pos := p.positions.get(PositionKey{Owner: owner, Lower: lower, Upper: upper})
	if pos == nil {
		return zero, zero, fmt.Errorf("%w: %s [%d, %d)", ErrPositionNotFound, owner, lower, upper)
	}
	if amount.GreaterThan(pos.Liquidity) {
		return zero, zero, fmt.Errorf("%w: burn %s exceeds position liquidity %s", ErrInsufficientLiquidity, amount, pos.Liquidity)
	}

	amount0, amount1 := p.applyLiquidityChange(owner, lower, upper, amount.Neg())
	p.maybeDropPosition(pos)
	return amount0.RoundDown(amountScale), amount1.RoundDown(amountScale), nil
}

// Collect accrues pending fees, zeroes the position's tokensOwed, and
// returns the amounts. A missing position yields zeros.
func (p *Pool) Collect(owner string, lower, upper int) (decimal.Decimal, decimal.Decimal) {
	pos := p.positions.get(PositionKey{Owner: owner, Lower: lower, Upper: upper})
	if pos == nil {
		return zero, zero
	}

	inside0, inside1 := p.ticks.FeeGrowthInside(lower, upper, p.tick, p.feeGrowthGlobal0, p.feeGrowthGlobal1)
	pos.accrue(inside0, inside1)

	owed0, owed1 := pos.TokensOwed0, pos.TokensOwed1
	pos.TokensOwed0 = zero
	pos.TokensOwed1 = zero
	p.maybeDropPosition(pos)
	return owed0, owed1
}

// applyLiquidityChange updates both bounding ticks, folds accrued fees
// into the position, adjusts its liquidity, and returns the unsigned
// principal amounts for the change. Callers have already validated, so
// tick updates cannot fail here.
func (p *Pool) applyLiquidityChange(owner string, lower, upper int, delta decimal.Decimal) (decimal.Decimal, decimal.Decimal) {
	_ = p.ticks.Update(lower, p.tick, delta, false, p.feeGrowthGlobal0, p.feeGrowthGlobal1)
	_ = p.ticks.Update(upper, p.tick, delta, true, p.feeGrowthGlobal0, p.feeGrowthGlobal1)

	inside0, inside1 := p.ticks.FeeGrowthInside(lower, upper, p.tick, p.feeGrowthGlobal0, p.feeGrowthGlobal1)
	pos := p.positions.getOrCreate(PositionKey{Owner: owner, Lower: lower, Upper: upper})
	pos.accrue(inside0, inside1)
	pos.Liquidity = pos.Liquidity.Add(delta)

	size := delta.Abs()
	sqrtLower := SqrtPriceAtTick(lower)
	sqrtUpper := SqrtPriceAtTick(upper)

	var amount0, amount1 decimal.Decimal
	switch {
	case p.tick < lower:
		amount0 = amount0Delta(sqrtLower, sqrtUpper, size)
		amount1 = zero
	case p.tick < upper:
		amount0 = amount0Delta(p.sqrtPrice, sqrtUpper, size)
		amount1 = amount1Delta(sqrtLower, p.sqrtPrice, size)
		p.liquidity = p.liquidity.Add(delta)
	default:
		amount0 = zero
		amount1 = amount1Delta(sqrtLower, sqrtUpper, size)
	}
	return amount0, amount1
}

func (p *Pool) maybeDropPosition(pos *Position) {
	if pos.Liquidity.IsZero() && pos.TokensOwed0.IsZero() && pos.TokensOwed1.IsZero() {
		p.positions.remove(pos.key())
	}
}

func (p *Pool) checkRange(lower, upper int) error {
	if lower >= upper {
		return fmt.Errorf("%w: lower %d must be below upper %d", ErrInvalidTick, lower, upper)
	}
	if !p.ticks.Aligned(lower) {
		return fmt.Errorf("%w: lower %d not aligned to spacing %d", ErrInvalidTick, lower, p.cfg.TickSpacing)
	}
	if !p.ticks.Aligned(upper) {
		return fmt.Errorf("%w: upper %d not aligned to spacing %d", ErrInvalidTick, upper, p.cfg.TickSpacing)
	}
	return nil
}

// SwapStep is one segment of a swap's execution trace.
type SwapStep struct {
	SqrtPriceBefore decimal.Decimal
	SqrtPriceAfter  decimal.Decimal
	Liquidity       decimal.Decimal
	AmountIn        decimal.Decimal
	AmountOut       decimal.Decimal
	Fee             decimal.Decimal
	CrossedTick     *int
}

// SwapResult is the outcome of one swap call.
type SwapResult struct {
	AmountOut    decimal.Decimal
	FeePaid      decimal.Decimal
	AmountInUsed decimal.Decimal
	SqrtPrice    decimal.Decimal
	Tick         int
	Steps        []SwapStep
}

// targetKind classifies what bounds a swap step.
type targetKind int

const (
	targetTick targetKind = iota // an initialized tick to cross
	targetBound                  // edge of the representable range
	targetLimit                  // caller's price limit
)

// Swap trades amountIn of the direction's input token, walking initialized
// ticks until the input is exhausted, the price limit is hit, or liquidity
// runs out. priceLimit is a sqrt price; pass zero for no limit. Running
// out of liquidity mid-way returns a partial fill, not an error.
func (p *Pool) Swap(direction Direction, amountIn, priceLimit decimal.Decimal) (*SwapResult, error) {
	if !amountIn.IsPositive() {
		return nil, fmt.Errorf("%w: swap input must be positive", ErrInvalidAmount)
	}
	if p.liquidity.IsZero() {
		return nil, fmt.Errorf("%w: swap against empty pool", ErrNoLiquidity)
	}

	down := direction == ZeroForOne
	limit := priceLimit
	if limit.IsZero() {
		if down {
			limit = SqrtPriceAtTick(MinTick)
		} else {
			limit = SqrtPriceAtTick(MaxTick)
		}
	} else if down && limit.GreaterThanOrEqual(p.sqrtPrice) {
		return nil, fmt.Errorf("%w: price limit above current price", ErrInvalidAmount)
	} else if !down && limit.LessThanOrEqual(p.sqrtPrice) {
		return nil, fmt.Errorf("%w: price limit below current price", ErrInvalidAmount)
	}

	remaining := amountIn
	sqrtPrice := p.sqrtPrice
	tick := p.tick
	liquidity := p.liquidity
	feeGrowth := p.feeGrowthGlobal0
	if !down {
		feeGrowth = p.feeGrowthGlobal1
	}

	result := &SwapResult{AmountOut: zero, FeePaid: zero}

	for remaining.IsPositive() && !sqrtPrice.Equal(limit) {
		var nextTick int
		var initialized bool
		if down {
			nextTick, initialized = p.ticks.NextBelow(tick)
		} else {
			nextTick, initialized = p.ticks.NextAbove(tick)
		}

		kind := targetBound
		if initialized {
			kind = targetTick
		}
		target := SqrtPriceAtTick(nextTick)
		if down && target.LessThan(limit) || !down && target.GreaterThan(limit) {
			target = limit
			kind = targetLimit
		}

		if liquidity.IsZero() {
			// Empty segment. Hop to the next initialized tick without
			// consuming input; with nothing initialized ahead the swap
			// cannot proceed and ends as a partial fill.
			if kind != targetTick {
				break
			}
			step := SwapStep{SqrtPriceBefore: sqrtPrice, Liquidity: liquidity}
			sqrtPrice = target
			other0, other1 := p.crossGlobals(down, feeGrowth)
			net := p.ticks.Cross(nextTick, other0, other1)
			if down {
				liquidity = liquidity.Sub(net)
				tick = nextTick - 1
			} else {
				liquidity = liquidity.Add(net)
				tick = nextTick
			}
			crossed := nextTick
			step.CrossedTick = &crossed
			step.SqrtPriceAfter = sqrtPrice
			step.AmountIn = zero
			step.AmountOut = zero
			step.Fee = zero
			result.Steps = append(result.Steps, step)
			continue
		}

		var netNeeded decimal.Decimal
		if down {
			netNeeded = amount0Delta(target, sqrtPrice, liquidity)
		} else {
			netNeeded = amount1Delta(sqrtPrice, target, liquidity)
		}
		grossNeeded := grossForNet(netNeeded, p.cfg.FeeRate)

		step := SwapStep{SqrtPriceBefore: sqrtPrice, Liquidity: liquidity}
		before := sqrtPrice
		reached := false

		var stepIn decimal.Decimal
		if remaining.GreaterThanOrEqual(grossNeeded) {
			stepIn = grossNeeded
			sqrtPrice = target
			reached = true
		} else {
			stepIn = remaining
		}
		stepFee := feeAmount(stepIn, p.cfg.FeeRate)
		if !reached {
			net := stepIn.Sub(stepFee)
			if down {
				sqrtPrice = nextSqrtPriceFromToken0(before, liquidity, net)
			} else {
				sqrtPrice = nextSqrtPriceFromToken1(before, liquidity, net)
			}
		}

		var out decimal.Decimal
		if down {
			out = amount1Delta(sqrtPrice, before, liquidity)
		} else {
			out = amount0Delta(before, sqrtPrice, liquidity)
		}
		out = out.RoundDown(amountScale)

		remaining = remaining.Sub(stepIn)
		result.AmountOut = result.AmountOut.Add(out)
		result.FeePaid = result.FeePaid.Add(stepFee)
		feeGrowth = feeGrowth.Add(stepFee.Div(liquidity))

		step.SqrtPriceAfter = sqrtPrice
		step.AmountIn = stepIn
		step.AmountOut = out
		step.Fee = stepFee

		if reached && kind == targetTick {
			other0, other1 := p.crossGlobals(down, feeGrowth)
			net := p.ticks.Cross(nextTick, other0, other1)
			if down {
				liquidity = liquidity.Sub(net)
				tick = nextTick - 1
			} else {
				liquidity = liquidity.Add(net)
				tick = nextTick
			}
			crossed := nextTick
			step.CrossedTick = &crossed
		} else {
			tick = TickAtSqrtPrice(sqrtPrice)
		}
		result.Steps = append(result.Steps, step)

		if reached && kind != targetTick {
			// price limit or range edge: nothing further to consume
			break
		}
	}

	p.sqrtPrice = sqrtPrice
	p.tick = tick
	p.liquidity = liquidity
	if down {
		p.feeGrowthGlobal0 = feeGrowth
	} else {
		p.feeGrowthGlobal1 = feeGrowth
	}

	result.AmountInUsed = amountIn.Sub(remaining)
	result.SqrtPrice = sqrtPrice
	result.Tick = tick
	return result, nil
}

// crossGlobals pairs the in-flight fee growth of the traded token with the
// stored growth of the other token for a tick crossing.
func (p *Pool) crossGlobals(down bool, inFlight decimal.Decimal) (decimal.Decimal, decimal.Decimal) {
	if down {
		return inFlight, p.feeGrowthGlobal1
	}
	return p.feeGrowthGlobal0, inFlight
}

// Read-only accessors. These feed the agent and reporting layers.

func (p *Pool) SqrtPrice() decimal.Decimal { return p.sqrtPrice }

// Price returns the token1-per-token0 price, the square of the sqrt price.
func (p *Pool) Price() decimal.Decimal { return p.sqrtPrice.Mul(p.sqrtPrice) }

func (p *Pool) CurrentTick() int { return p.tick }

func (p *Pool) ActiveLiquidity() decimal.Decimal { return p.liquidity }

func (p *Pool) FeeGrowthGlobal() (decimal.Decimal, decimal.Decimal) {
	return p.feeGrowthGlobal0, p.feeGrowthGlobal1
}

func (p *Pool) FeeRate() decimal.Decimal { return p.cfg.FeeRate }

func (p *Pool) TickSpacing() int { return p.cfg.TickSpacing }

func (p *Pool) Tokens() (common.Address, common.Address) {
	return p.cfg.Token0, p.cfg.Token1
}

// Position returns a copy of the position for (owner, lower, upper).
func (p *Pool) Position(owner string, lower, upper int) (Position, bool) {
	pos := p.positions.get(PositionKey{Owner: owner, Lower: lower, Upper: upper})
	if pos == nil {
		return Position{}, false
	}
	return pos.clone(), true
}

// Positions returns a snapshot of all live positions.
func (p *Pool) Positions() []Position {
	return p.positions.snapshot()
}

// InitializedTicks returns the number of ticks holding liquidity.
func (p *Pool) InitializedTicks() int { return p.ticks.Count() }
