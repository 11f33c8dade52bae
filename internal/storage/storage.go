package storage

import "poolsim/internal/model"

// Storage is a sink for simulation output.
type Storage interface {
	PutStepBatch(steps []model.StepMetrics) error
	PutTradeBatch(trades []model.TradeRecord) error
	PutRunSummary(summary model.RunSummary) error
}
