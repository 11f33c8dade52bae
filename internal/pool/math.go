package pool

import (
	"math"

	"github.com/shopspring/decimal"
)

// Tick bounds of the representable price range.
const (
	MinTick = -887272
	MaxTick = 887272
)

// amountScale is the fixed number of fractional digits kept when rounding
// token amounts. Fees and owed amounts round down (pool's favor), amounts
// required from a minter round up.
const amountScale = 12

var (
	zero = decimal.Zero
	one  = decimal.NewFromInt(1)
	two  = decimal.NewFromInt(2)
)

// logSqrtBase is ln(sqrt(1.0001)), the natural-log step of one tick on the
// sqrt price axis.
var logSqrtBase = math.Log(1.0001) / 2

// SqrtPriceAtTick returns sqrt(1.0001^tick) as a decimal. The tick is
// clamped to [MinTick, MaxTick].
func SqrtPriceAtTick(tick int) decimal.Decimal {
	if tick < MinTick {
		tick = MinTick
	} else if tick > MaxTick {
		tick = MaxTick
	}
	return decimal.NewFromFloat(math.Exp(float64(tick) * logSqrtBase))
}

// TickAtSqrtPrice returns the greatest tick whose sqrt price does not
// exceed sqrtPrice. Non-positive inputs map to MinTick.
func TickAtSqrtPrice(sqrtPrice decimal.Decimal) int {
	f := sqrtPrice.InexactFloat64()
	if f <= 0 {
		return MinTick
	}
	tick := int(math.Floor(math.Log(f) / logSqrtBase))
	// settle float wobble at tick boundaries against the decimal values
	for tick < MaxTick && SqrtPriceAtTick(tick+1).LessThanOrEqual(sqrtPrice) {
		tick++
	}
	for tick > MinTick && SqrtPriceAtTick(tick).GreaterThan(sqrtPrice) {
		tick--
	}
	if tick < MinTick {
		return MinTick
	}
	if tick > MaxTick {
		return MaxTick
	}
	return tick
}

// amount0Delta returns the token0 amount spanned by liquidity between two
// sqrt prices: L * (sqrtB - sqrtA) / (sqrtA * sqrtB), with sqrtA < sqrtB.
func amount0Delta(sqrtA, sqrtB, liquidity decimal.Decimal) decimal.Decimal {
	if sqrtA.GreaterThan(sqrtB) {
		sqrtA, sqrtB = sqrtB, sqrtA
	}
	if sqrtA.IsZero() || sqrtB.IsZero() {
		return zero
	}
	return liquidity.Mul(sqrtB.Sub(sqrtA)).Div(sqrtA.Mul(sqrtB))
}

// amount1Delta returns the token1 amount spanned by liquidity between two
// sqrt prices: L * (sqrtB - sqrtA), with sqrtA < sqrtB.
func amount1Delta(sqrtA, sqrtB, liquidity decimal.Decimal) decimal.Decimal {
	if sqrtA.GreaterThan(sqrtB) {
		sqrtA, sqrtB = sqrtB, sqrtA
	}
	return liquidity.Mul(sqrtB.Sub(sqrtA))
}

// LiquidityForAmounts returns the largest liquidity fundable by the given
// token budgets over [sqrtLower, sqrtUpper] at the current sqrt price.
// When the range straddles the price, the binding side wins.
func LiquidityForAmounts(sqrtPrice, sqrtLower, sqrtUpper, amount0, amount1 decimal.Decimal) decimal.Decimal {
	if sqrtLower.GreaterThan(sqrtUpper) {
		sqrtLower, sqrtUpper = sqrtUpper, sqrtLower
	}
	switch {
	case sqrtPrice.LessThanOrEqual(sqrtLower):
		return liquidityForAmount0(sqrtLower, sqrtUpper, amount0)
	case sqrtPrice.LessThan(sqrtUpper):
		l0 := liquidityForAmount0(sqrtPrice, sqrtUpper, amount0)
		l1 := liquidityForAmount1(sqrtLower, sqrtPrice, amount1)
		if l0.LessThan(l1) {
			return l0
		}
		return l1
	default:
		return liquidityForAmount1(sqrtLower, sqrtUpper, amount1)
	}
}

func liquidityForAmount0(sqrtA, sqrtB, amount0 decimal.Decimal) decimal.Decimal {
	span := sqrtB.Sub(sqrtA)
	if !span.IsPositive() {
		return zero
	}
	return amount0.Mul(sqrtA.Mul(sqrtB)).Div(span)
}

func liquidityForAmount1(sqrtA, sqrtB, amount1 decimal.Decimal) decimal.Decimal {
	span := sqrtB.Sub(sqrtA)
	if !span.IsPositive() {
		return zero
	}
	return amount1.Div(span)
}

// nextSqrtPriceFromToken0 returns the sqrt price after adding amountIn of
// token0 to a segment with the given liquidity. Token0 input pushes the
// price down: sqrt' = L * sqrt / (L + in * sqrt).
func nextSqrtPriceFromToken0(sqrtPrice, liquidity, amountIn decimal.Decimal) decimal.Decimal {
	if amountIn.IsZero() {
		return sqrtPrice
	}
	denom := liquidity.Add(amountIn.Mul(sqrtPrice))
	return liquidity.Mul(sqrtPrice).Div(denom)
}

// nextSqrtPriceFromToken1 returns the sqrt price after adding amountIn of
// token1: sqrt' = sqrt + in / L. Token1 input pushes the price up.
func nextSqrtPriceFromToken1(sqrtPrice, liquidity, amountIn decimal.Decimal) decimal.Decimal {
	if amountIn.IsZero() {
		return sqrtPrice
	}
	return sqrtPrice.Add(amountIn.Div(liquidity))
}
