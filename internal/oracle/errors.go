package oracle

import (
	"context"
	"errors"
	"fmt"
)

// ErrUnavailable is the root of every degradation reason. Callers never see
// it as a request failure; it only explains why a fallback was used.
var ErrUnavailable = errors.New("oracle unavailable")

var (
	ErrDisabled        = fmt.Errorf("%w: no provider configured", ErrUnavailable)
	ErrBudgetExhausted = fmt.Errorf("%w: rate budget exhausted", ErrUnavailable)
	ErrTimeout         = fmt.Errorf("%w: deadline exceeded", ErrUnavailable)
	ErrTransport       = fmt.Errorf("%w: transport failure", ErrUnavailable)
	ErrMalformedOutput = fmt.Errorf("%w: malformed output", ErrUnavailable)
	ErrCapped          = fmt.Errorf("%w: conversation cap reached", ErrUnavailable)
)

// classify maps a provider error onto the degradation taxonomy.
func classify(ctx context.Context, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled), ctx.Err() != nil:
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	default:
		return fmt.Errorf("%w: %w", ErrTransport, err)
	}
}

// outcome is the metrics label for a degradation reason.
func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrBudgetExhausted):
		return "budget_exhausted"
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, ErrDisabled):
		return "disabled"
	case errors.Is(err, ErrMalformedOutput):
		return "malformed"
	case errors.Is(err, ErrCapped):
		return "capped"
	default:
		return "transport"
	}
}
