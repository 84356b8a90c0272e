package backtest

import (
	"context"
	"errors"

	"crypto-backtest/internal/model"
	"crypto-backtest/internal/strategy"
)

// Error kinds reported to callers. InvalidConfig and UnknownStrategy are
// raised before any data is fetched.
var (
	ErrInvalidConfig   = strategy.ErrInvalidConfig
	ErrUnknownStrategy = strategy.ErrUnknownStrategy
	ErrDataUnavailable = model.ErrDataUnavailable
)

// Outcome labels returned by Kind.
const (
	KindOK              = "ok"
	KindInvalidConfig   = "invalid_config"
	KindUnknownStrategy = "unknown_strategy"
	KindDataUnavailable = "data_unavailable"
	KindTimeout         = "timeout"
	KindCanceled        = "canceled"
	KindUpstream        = "upstream"
)

// Kind classifies err into a stable outcome label.
func Kind(err error) string {
	switch {
	case err == nil:
		return KindOK
	case errors.Is(err, ErrInvalidConfig):
		return KindInvalidConfig
	case errors.Is(err, ErrUnknownStrategy):
		return KindUnknownStrategy
	case errors.Is(err, ErrDataUnavailable):
		return KindDataUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return KindTimeout
	case errors.Is(err, context.Canceled):
		return KindCanceled
	default:
		return KindUpstream
	}
}

// Retryable reports whether the caller may retry the same request.
func Retryable(err error) bool {
	k := Kind(err)
	return k == KindTimeout || k == KindUpstream
}
