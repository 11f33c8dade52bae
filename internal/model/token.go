package model

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// Token describes one side of the simulated pair.
type Token struct {
	Name     string         `json:"name"`
	Symbol   string         `json:"symbol"`
	Decimals uint8          `json:"decimals"`
	Address  common.Address `json:"address"`
}

func (t Token) String() string {
	return t.Symbol
}

// FormatAmount renders a raw amount scaled by the token's decimals.
func (t Token) FormatAmount(amount decimal.Decimal) string {
	scaled := amount.Shift(-int32(t.Decimals))
	return fmt.Sprintf("%s %s", scaled.StringFixed(4), t.Symbol)
}
