package gateway

import (
	"context"
	"errors"
	"fmt"
	"strings"

	stripe "github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/paymentintent"

	"carpool/internal/domain"
)

// StripeAdapter charges a rider's saved payment method without the hosted
// widget. Used when the rider has a stored card; card errors map to ErrFailed
// and a cancelled context to ErrCancelled.
type StripeAdapter struct {
	paymentMethod func(session domain.Prefill) string
}

// NewStripeAdapter initializes the stripe client with the given secret key.
// lookupPaymentMethod resolves the rider's stored payment method id; it may be
// nil when the backend attaches a default method to the customer.
func NewStripeAdapter(apiKey string, lookupPaymentMethod func(prefill domain.Prefill) string) *StripeAdapter {
	stripe.Key = apiKey
	return &StripeAdapter{paymentMethod: lookupPaymentMethod}
}

// Open creates and confirms a PaymentIntent for the order amount.
func (s *StripeAdapter) Open(ctx context.Context, intent domain.PaymentIntent, prefill domain.Prefill) (domain.GatewayReceipt, error) {
	params := &stripe.PaymentIntentParams{
		Params:   stripe.Params{Context: ctx},
		Amount:   stripe.Int64(intent.AmountMinor),
		Currency: stripe.String(strings.ToLower(intent.Currency)),
		Confirm:  stripe.Bool(true),
	}
	params.AddMetadata("order_id", intent.OrderID)
	params.AddMetadata("booking_id", intent.BookingID)
	if prefill.Email != "" {
		params.ReceiptEmail = stripe.String(prefill.Email)
	}
	if s.paymentMethod != nil {
		if pm := s.paymentMethod(prefill); pm != "" {
			params.PaymentMethod = stripe.String(pm)
		}
	}

	pi, err := paymentintent.New(params)
	if err != nil {
		if ctx.Err() != nil {
			return domain.GatewayReceipt{}, fmt.Errorf("%w: %v", ErrCancelled, ctx.Err())
		}
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) && stripeErr.Type == stripe.ErrorTypeCard {
			return domain.GatewayReceipt{}, fmt.Errorf("%w: %s", ErrFailed, stripeErr.Code)
		}
		return domain.GatewayReceipt{}, fmt.Errorf("%w: %v", ErrFailed, err)
	}

	if pi.Status != stripe.PaymentIntentStatusSucceeded {
		return domain.GatewayReceipt{}, fmt.Errorf("%w: intent status %s", ErrFailed, pi.Status)
	}

	return domain.GatewayReceipt{
		OrderID:   intent.OrderID,
		PaymentID: pi.ID,
		Signature: pi.ClientSecret,
	}, nil
}
