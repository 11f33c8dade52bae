package pool

import "github.com/shopspring/decimal"

// PositionKey identifies a position by its owner and tick range.
type PositionKey struct {
	Owner string
	Lower int
	Upper int
}

// Position is a liquidity range owned by one account. TokensOwed only
// grows between collections; Liquidity only changes through mint/burn.
type Position struct {
	Owner            string
	Lower            int
	Upper            int
	Liquidity        decimal.Decimal
	FeeGrowthInside0 decimal.Decimal
	FeeGrowthInside1 decimal.Decimal
	TokensOwed0      decimal.Decimal
	TokensOwed1      decimal.Decimal
}

func (p *Position) key() PositionKey {
	return PositionKey{Owner: p.Owner, Lower: p.Lower, Upper: p.Upper}
}

func (p *Position) clone() Position {
	return *p
}

// accrue folds fee growth since the last snapshot into tokens owed, using
// the liquidity held before the current change, then advances the
// snapshot.
func (p *Position) accrue(inside0, inside1 decimal.Decimal) {
	p.TokensOwed0 = p.TokensOwed0.Add(owedDelta(p.Liquidity, inside0, p.FeeGrowthInside0))
	p.TokensOwed1 = p.TokensOwed1.Add(owedDelta(p.Liquidity, inside1, p.FeeGrowthInside1))
	p.FeeGrowthInside0 = inside0
	p.FeeGrowthInside1 = inside1
}

// positionSet is the pool's position book.
type positionSet struct {
	byKey map[PositionKey]*Position
}

func newPositionSet() *positionSet {
	return &positionSet{byKey: make(map[PositionKey]*Position)}
}

func (s *positionSet) get(key PositionKey) *Position {
	return s.byKey[key]
}

func (s *positionSet) getOrCreate(key PositionKey) *Position {
	if p, ok := s.byKey[key]; ok {
		return p
	}
	p := &Position{Owner: key.Owner, Lower: key.Lower, Upper: key.Upper}
	s.byKey[key] = p
	return p
}

func (s *positionSet) remove(key PositionKey) {
	delete(s.byKey, key)
}

func (s *positionSet) snapshot() []Position {
	out := make([]Position, 0, len(s.byKey))
	for _, p := range s.byKey {
		out = append(out, p.clone())
	}
	return out
}
