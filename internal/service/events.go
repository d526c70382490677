package service

import (
	"context"
	"time"
)

// CheckoutEvent records a terminal checkout transition for downstream
// consumers (receipts, notifications, analytics).
type CheckoutEvent struct {
	ID        string        `json:"id"`
	UserID    string        `json:"user_id"`
	BookingID string        `json:"booking_id"`
	OrderID   string        `json:"order_id,omitempty"`
	State     CheckoutState `json:"state"`
	Amount    float64       `json:"amount,omitempty"`
	Reason    string        `json:"reason,omitempty"`
	At        time.Time     `json:"at"`
}

// EventPublisher delivers checkout events. Implementations are best-effort;
// publishing must never fail a checkout.
type EventPublisher interface {
	PublishCheckout(ctx context.Context, event CheckoutEvent) error
}
