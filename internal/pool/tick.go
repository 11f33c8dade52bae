package pool

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// maxLiquidityPerTick caps the gross liquidity any single tick may
// reference. Mints pushing a tick past this limit are rejected.
var maxLiquidityPerTick = decimal.New(1, 27)

// Tick tracks the liquidity bookkeeping anchored at one tick index.
// LiquidityNet is applied to active liquidity when the price crosses the
// tick upward; LiquidityGross tracks total references for lifecycle.
type Tick struct {
	Index             int
	LiquidityGross    decimal.Decimal
	LiquidityNet      decimal.Decimal
	FeeGrowthOutside0 decimal.Decimal
	FeeGrowthOutside1 decimal.Decimal
}

// Registry owns the initialized ticks of a pool. It keeps a sorted index
// slice alongside the map so swaps can binary-search for the next
// initialized tick in either direction.
type Registry struct {
	spacing int
	ticks   map[int]*Tick
	sorted  []int
}

func NewRegistry(spacing int) *Registry {
	return &Registry{
		spacing: spacing,
		ticks:   make(map[int]*Tick),
	}
}

// Aligned reports whether index is a multiple of the tick spacing and
// inside the representable range.
func (r *Registry) Aligned(index int) bool {
	return index%r.spacing == 0 && index >= MinTick && index <= MaxTick
}

// Get returns the tick at index, or nil if it is not initialized.
func (r *Registry) Get(index int) *Tick {
	return r.ticks[index]
}

// Gross returns the gross liquidity referencing index, zero if absent.
func (r *Registry) Gross(index int) decimal.Decimal {
	if t, ok := r.ticks[index]; ok {
		return t.LiquidityGross
	}
	return zero
}

// Count returns the number of initialized ticks.
func (r *Registry) Count() int {
	return len(r.sorted)
}

// Update applies a signed liquidity delta to the tick at index. The gross
// total always moves by delta; the net effect moves by delta at a lower
// bound and by -delta at an upper bound. A tick touched for the first time
// at or below the current tick inherits the global fee growth as its
// outside value, so the inside decomposition starts from zero.
func (r *Registry) Update(index, currentTick int, delta decimal.Decimal, upper bool, global0, global1 decimal.Decimal) error {
	if !r.Aligned(index) {
		return fmt.Errorf("%w: tick %d not aligned to spacing %d", ErrInvalidTick, index, r.spacing)
	}

	t := r.ticks[index]
	grossBefore := zero
	if t != nil {
		grossBefore = t.LiquidityGross
	}
	grossAfter := grossBefore.Add(delta)
	if grossAfter.IsNegative() {
		return fmt.Errorf("%w: tick %d gross liquidity would go negative", ErrInsufficientLiquidity, index)
	}
	if grossAfter.GreaterThan(maxLiquidityPerTick) {
		return fmt.Errorf("%w: tick %d gross liquidity above limit", ErrInsufficientLiquidity, index)
	}

	if t == nil {
		t = &Tick{Index: index}
		if index <= currentTick {
			t.FeeGrowthOutside0 = global0
			t.FeeGrowthOutside1 = global1
		}
		r.ticks[index] = t
		r.insertSorted(index)
	}

	t.LiquidityGross = grossAfter
	if upper {
		t.LiquidityNet = t.LiquidityNet.Sub(delta)
	} else {
		t.LiquidityNet = t.LiquidityNet.Add(delta)
	}

	if grossAfter.IsZero() {
		r.clear(index)
	}
	return nil
}

// Cross flips the fee-growth-outside trackers of the tick at index to the
// other side of the current price and returns its liquidity net. The
// caller adds the net when crossing upward and subtracts it when crossing
// downward. An uninitialized index contributes nothing.
func (r *Registry) Cross(index int, global0, global1 decimal.Decimal) decimal.Decimal {
	t := r.ticks[index]
	if t == nil {
		return zero
	}
	t.FeeGrowthOutside0 = global0.Sub(t.FeeGrowthOutside0)
	t.FeeGrowthOutside1 = global1.Sub(t.FeeGrowthOutside1)
	return t.LiquidityNet
}

// NextBelow returns the greatest initialized tick at or below tick. When
// none exists it returns MinTick with initialized=false.
func (r *Registry) NextBelow(tick int) (int, bool) {
	// first sorted index strictly above tick; the one before it is the
	// candidate
	i := sort.SearchInts(r.sorted, tick+1)
	if i == 0 {
		return MinTick, false
	}
	return r.sorted[i-1], true
}

// NextAbove returns the smallest initialized tick strictly above tick.
// When none exists it returns MaxTick with initialized=false.
func (r *Registry) NextAbove(tick int) (int, bool) {
	i := sort.SearchInts(r.sorted, tick+1)
	if i == len(r.sorted) {
		return MaxTick, false
	}
	return r.sorted[i], true
}

// FeeGrowthInside returns the fee growth accrued strictly inside
// [lower, upper) per unit of liquidity, one value per token.
func (r *Registry) FeeGrowthInside(lower, upper, currentTick int, global0, global1 decimal.Decimal) (decimal.Decimal, decimal.Decimal) {
	return feeGrowthInside(r.ticks[lower], r.ticks[upper], lower, upper, currentTick, global0, global1)
}

func (r *Registry) insertSorted(index int) {
	i := sort.SearchInts(r.sorted, index)
	if i < len(r.sorted) && r.sorted[i] == index {
		return
	}
	r.sorted = append(r.sorted, 0)
	copy(r.sorted[i+1:], r.sorted[i:])
	r.sorted[i] = index
}

func (r *Registry) clear(index int) {
	delete(r.ticks, index)
	i := sort.SearchInts(r.sorted, index)
	if i < len(r.sorted) && r.sorted[i] == index {
		r.sorted = append(r.sorted[:i], r.sorted[i+1:]...)
	}
}
