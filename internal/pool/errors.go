package pool

import "errors"

// Sentinel errors returned by pool operations. Callers match them with
// errors.Is; every rejected call leaves the pool untouched.
var (
	ErrInvalidTick           = errors.New("invalid tick")
	ErrPositionNotFound      = errors.New("position not found")
	ErrInsufficientLiquidity = errors.New("insufficient liquidity")
	ErrNoLiquidity           = errors.New("no active liquidity")
	ErrInvalidAmount         = errors.New("invalid amount")
)
