package gateway

import (
	"context"
	"errors"

	"carpool/internal/domain"
)

// Adapter wraps an external payment gateway. Open hands the intent to the
// gateway, suspends until the rider finishes or abandons the flow, and returns
// the receipt exactly once. The two failure modes are distinguishable:
// ErrCancelled (rider dismissed, no charge) and ErrFailed (processing failure).
type Adapter interface {
	Open(ctx context.Context, intent domain.PaymentIntent, prefill domain.Prefill) (domain.GatewayReceipt, error)
}

var (
	// ErrCancelled is returned when the rider dismisses the payment flow.
	ErrCancelled = errors.New("payment cancelled by user")

	// ErrFailed is returned when the gateway reports a processing failure.
	ErrFailed = errors.New("payment processing failed")

	// ErrNoSession is returned when resolving an order with no open session.
	ErrNoSession = errors.New("no open gateway session for order")
)
