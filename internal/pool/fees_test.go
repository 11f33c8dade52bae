package pool

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestFeeAmountRoundsDown(t *testing.T) {
	feeRate := decimal.NewFromFloat(0.003)

	fee := feeAmount(decimal.NewFromInt(1000), feeRate)
	if !fee.Equal(decimal.NewFromInt(3)) {
		t.Fatalf("fee = %s, want 3", fee)
	}

	// 1e-12 * 0.003 rounds down to zero at the amount scale
	fee = feeAmount(decimal.New(1, -amountScale), feeRate)
	if !fee.IsZero() {
		t.Fatalf("dust fee should round down to zero, got %s", fee)
	}
}

func TestGrossForNetCoversFee(t *testing.T) {
	feeRate := decimal.NewFromFloat(0.003)
	net := decimal.NewFromInt(997)

	gross := grossForNet(net, feeRate)
	// gross minus its own fee must cover the net amount
	if gross.Sub(feeAmount(gross, feeRate)).LessThan(net) {
		t.Fatalf("gross %s does not cover net %s after fee", gross, net)
	}
}

func TestOwedDelta(t *testing.T) {
	liquidity := decimal.NewFromInt(1000)

	owed := owedDelta(liquidity, decimal.NewFromFloat(0.5), decimal.NewFromFloat(0.2))
	if !owed.Equal(decimal.NewFromInt(300)) {
		t.Fatalf("owed = %s, want 300", owed)
	}

	// a negative growth delta never produces negative owed fees
	owed = owedDelta(liquidity, decimal.NewFromFloat(0.1), decimal.NewFromFloat(0.2))
	if !owed.IsZero() {
		t.Fatalf("negative delta should clamp to zero, got %s", owed)
	}
}
