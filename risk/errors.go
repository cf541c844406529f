package risk

import "errors"

var (
	ErrSingleExceed = errors.New("single order exceed")
	ErrNetExceed    = errors.New("net exposure exceed")
	ErrTooFrequent  = errors.New("order too frequent")
	ErrPnLTooLow    = errors.New("pnl below stop")
	ErrCircuitOpen  = errors.New("circuit breaker open")
)
