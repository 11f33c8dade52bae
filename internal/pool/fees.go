package pool

import "github.com/shopspring/decimal"

// Fee accounting helpers. These are pure: all state they read or produce
// lives in Pool and Tick. Rounding is always toward the pool: fees taken
// from swap input round down, and owed-fee deltas round down and never go
// negative.

// feeAmount returns the fee taken from a gross input amount.
func feeAmount(amountIn, feeRate decimal.Decimal) decimal.Decimal {
	return amountIn.Mul(feeRate).RoundDown(amountScale)
}

// grossForNet returns the gross input needed so that gross*(1-feeRate)
// covers net. Rounded up so a swap step never undershoots its target tick.
func grossForNet(net, feeRate decimal.Decimal) decimal.Decimal {
	return net.Div(one.Sub(feeRate)).RoundUp(amountScale)
}

// owedDelta converts a fee-growth-inside delta into tokens owed for a
// position of the given liquidity. A negative delta (possible only through
// rounding at region boundaries) is clamped to zero.
func owedDelta(liquidity, insideNow, insideLast decimal.Decimal) decimal.Decimal {
	delta := insideNow.Sub(insideLast)
	if delta.IsNegative() {
		return zero
	}
	return delta.Mul(liquidity).RoundDown(amountScale)
}

// feeGrowthInside decomposes global fee growth into the portion accrued
// strictly inside [lower, upper). The identity behind it:
// growthBelow + growthInside + growthAbove = growthGlobal. A nil tick is
// uninitialized and carries zero outside growth.
func feeGrowthInside(lower, upper *Tick, lowerIdx, upperIdx, currentTick int, global0, global1 decimal.Decimal) (decimal.Decimal, decimal.Decimal) {
	lowerOut0, lowerOut1 := zero, zero
	if lower != nil {
		lowerOut0, lowerOut1 = lower.FeeGrowthOutside0, lower.FeeGrowthOutside1
	}
	upperOut0, upperOut1 := zero, zero
	if upper != nil {
		upperOut0, upperOut1 = upper.FeeGrowthOutside0, upper.FeeGrowthOutside1
	}

	var below0, below1 decimal.Decimal
	if currentTick >= lowerIdx {
		below0, below1 = lowerOut0, lowerOut1
	} else {
		below0 = global0.Sub(lowerOut0)
		below1 = global1.Sub(lowerOut1)
	}

	var above0, above1 decimal.Decimal
	if currentTick < upperIdx {
		above0, above1 = upperOut0, upperOut1
	} else {
		above0 = global0.Sub(upperOut0)
		above1 = global1.Sub(upperOut1)
	}

	return global0.Sub(below0).Sub(above0), global1.Sub(below1).Sub(above1)
}
