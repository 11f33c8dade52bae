package model

import "github.com/shopspring/decimal"

// StepMetrics is the per-step state snapshot written by the simulation
// runner. It is the sole feed for downstream reporting.
type StepMetrics struct {
	RunID           string          `json:"run_id"`
	Step            int             `json:"step"`
	Price           decimal.Decimal `json:"price"`
	SqrtPrice       decimal.Decimal `json:"sqrt_price"`
	Tick            int             `json:"tick"`
	ActiveLiquidity decimal.Decimal `json:"active_liquidity"`
	Volume          decimal.Decimal `json:"volume"`
	SwapCount       int             `json:"swap_count"`
	MintCount       int             `json:"mint_count"`
	BurnCount       int             `json:"burn_count"`
	RejectedActions int             `json:"rejected_actions"`
	FeeGrowth0      decimal.Decimal `json:"fee_growth0"`
	FeeGrowth1      decimal.Decimal `json:"fee_growth1"`
	RecordedAt      string          `json:"recorded_at"`
}

// TradeRecord captures one executed swap, including the per-step trace
// length for later inspection.
type TradeRecord struct {
	RunID      string          `json:"run_id"`
	Step       int             `json:"step"`
	Agent      string          `json:"agent"`
	Direction  string          `json:"direction"`
	AmountIn   decimal.Decimal `json:"amount_in"`
	AmountOut  decimal.Decimal `json:"amount_out"`
	FeePaid    decimal.Decimal `json:"fee_paid"`
	PriceAfter decimal.Decimal `json:"price_after"`
	TickAfter  int             `json:"tick_after"`
	TraceSteps int             `json:"trace_steps"`
}

// RunSummary describes a completed simulation run.
type RunSummary struct {
	RunID          string          `json:"run_id"`
	Seed           int64           `json:"seed"`
	Steps          int             `json:"steps"`
	Token0         Token           `json:"token0"`
	Token1         Token           `json:"token1"`
	FeeRate        decimal.Decimal `json:"fee_rate"`
	TickSpacing    int             `json:"tick_spacing"`
	InitialPrice   decimal.Decimal `json:"initial_price"`
	FinalPrice     decimal.Decimal `json:"final_price"`
	FinalLiquidity decimal.Decimal `json:"final_liquidity"`
	TotalVolume    decimal.Decimal `json:"total_volume"`
	StartedAt      string          `json:"started_at"`
	FinishedAt     string          `json:"finished_at"`
}
