package ledger

import (
	"errors"
	"fmt"

	"tally/internal/core"
	"tally/internal/gateway"
)

// GatewayError wraps a transport or storage failure from the transaction
// gateway. It is surfaced as a generic retryable condition; the ledger never
// auto-retries.
type GatewayError struct {
	Op  string
	Err error
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("gateway %s: %v", e.Op, e.Err)
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}

// wrapGateway passes domain conditions through untouched and wraps everything
// else as a gateway failure. The gateway is allowed to reject a transition or
// an over-budget expense on its own; those rejections are ledger conditions,
// not transport errors.
func wrapGateway(op string, err error) error {
	if err == nil {
		return nil
	}
	var insufficient *gateway.InsufficientFundsError
	switch {
	case errors.Is(err, core.ErrInvalidTransition),
		errors.Is(err, core.ErrImmutable),
		errors.Is(err, gateway.ErrNotFound),
		errors.As(err, &insufficient):
		return err
	default:
		return &GatewayError{Op: op, Err: err}
	}
}
