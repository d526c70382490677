package gateway

import (
	"context"
	"fmt"
	"sync"

	"carpool/internal/domain"
)

// HostedCheckout bridges the callback-style hosted payment widget into the
// Adapter contract. Open registers a session keyed by order id and blocks; the
// widget's redirect/callback later resolves it through Resolve, Fail, or
// Dismiss. Each session resolves exactly once.
type HostedCheckout struct {
	mu       sync.Mutex
	sessions map[string]chan outcome
}

type outcome struct {
	receipt domain.GatewayReceipt
	err     error
}

// NewHostedCheckout creates a hosted checkout bridge.
func NewHostedCheckout() *HostedCheckout {
	return &HostedCheckout{sessions: make(map[string]chan outcome)}
}

// Open suspends until the widget resolves the order or ctx is done. A context
// cancellation counts as the rider abandoning the flow.
func (h *HostedCheckout) Open(ctx context.Context, intent domain.PaymentIntent, prefill domain.Prefill) (domain.GatewayReceipt, error) {
	ch := make(chan outcome, 1)

	h.mu.Lock()
	if _, exists := h.sessions[intent.OrderID]; exists {
		h.mu.Unlock()
		return domain.GatewayReceipt{}, fmt.Errorf("gateway session already open for order %s", intent.OrderID)
	}
	h.sessions[intent.OrderID] = ch
	h.mu.Unlock()

	defer h.remove(intent.OrderID)

	select {
	case out := <-ch:
		return out.receipt, out.err
	case <-ctx.Done():
		return domain.GatewayReceipt{}, fmt.Errorf("%w: %v", ErrCancelled, ctx.Err())
	}
}

// Resolve completes an open session with the widget's receipt.
func (h *HostedCheckout) Resolve(receipt domain.GatewayReceipt) error {
	return h.finish(receipt.OrderID, outcome{receipt: receipt})
}

// Fail completes an open session with a processing failure.
func (h *HostedCheckout) Fail(orderID, reason string) error {
	return h.finish(orderID, outcome{err: fmt.Errorf("%w: %s", ErrFailed, reason)})
}

// Dismiss completes an open session as cancelled by the rider.
func (h *HostedCheckout) Dismiss(orderID string) error {
	return h.finish(orderID, outcome{err: ErrCancelled})
}

// Pending reports whether a session is currently open for the order.
func (h *HostedCheckout) Pending(orderID string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, ok := h.sessions[orderID]
	return ok
}

func (h *HostedCheckout) finish(orderID string, out outcome) error {
	h.mu.Lock()
	ch, ok := h.sessions[orderID]
	if ok {
		delete(h.sessions, orderID)
	}
	h.mu.Unlock()

	if !ok {
		return ErrNoSession
	}
	ch <- out
	return nil
}

func (h *HostedCheckout) remove(orderID string) {
	h.mu.Lock()
	delete(h.sessions, orderID)
	h.mu.Unlock()
}
