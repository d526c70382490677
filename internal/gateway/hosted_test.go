package gateway

import (
	"context"
	"errors"
	"testing"
	"time"

	"carpool/internal/domain"
)

func testIntent(orderID string) domain.PaymentIntent {
	return domain.PaymentIntent{
		OrderID:     orderID,
		BookingID:   "booking-1",
		Amount:      780,
		AmountMinor: 78000,
		Currency:    "INR",
	}
}

func TestHostedCheckout_ResolveDeliversReceipt(t *testing.T) {
	t.Parallel()

	h := NewHostedCheckout()
	want := domain.GatewayReceipt{OrderID: "order-1", PaymentID: "pay-1", Signature: "sig"}

	done := make(chan struct{})
	var got domain.GatewayReceipt
	var openErr error
	go func() {
		defer close(done)
		got, openErr = h.Open(context.Background(), testIntent("order-1"), domain.Prefill{})
	}()

	waitForPending(t, h, "order-1")
	if err := h.Resolve(want); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	<-done
	if openErr != nil {
		t.Fatalf("unexpected error: %v", openErr)
	}
	if got != want {
		t.Errorf("expected receipt %+v, got %+v", want, got)
	}
	if h.Pending("order-1") {
		t.Error("session must be closed after resolution")
	}
}

func TestHostedCheckout_DismissIsCancelled(t *testing.T) {
	t.Parallel()

	h := NewHostedCheckout()

	done := make(chan error, 1)
	go func() {
		_, err := h.Open(context.Background(), testIntent("order-1"), domain.Prefill{})
		done <- err
	}()

	waitForPending(t, h, "order-1")
	if err := h.Dismiss("order-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := <-done; !errors.Is(err, ErrCancelled) {
		t.Errorf("expected ErrCancelled, got %v", err)
	}
}

func TestHostedCheckout_FailCarriesReason(t *testing.T) {
	t.Parallel()

	h := NewHostedCheckout()

	done := make(chan error, 1)
	go func() {
		_, err := h.Open(context.Background(), testIntent("order-1"), domain.Prefill{})
		done <- err
	}()

	waitForPending(t, h, "order-1")
	if err := h.Fail("order-1", "card declined"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	err := <-done
	if !errors.Is(err, ErrFailed) {
		t.Errorf("expected ErrFailed, got %v", err)
	}
}

func TestHostedCheckout_ContextCancellationIsAbandonment(t *testing.T) {
	t.Parallel()

	h := NewHostedCheckout()
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		_, err := h.Open(ctx, testIntent("order-1"), domain.Prefill{})
		done <- err
	}()

	waitForPending(t, h, "order-1")
	cancel()

	if err := <-done; !errors.Is(err, ErrCancelled) {
		t.Errorf("expected ErrCancelled on abandonment, got %v", err)
	}
	if h.Pending("order-1") {
		t.Error("abandoned session must be cleaned up")
	}
}

func TestHostedCheckout_ResolveUnknownOrder(t *testing.T) {
	t.Parallel()

	h := NewHostedCheckout()
	err := h.Resolve(domain.GatewayReceipt{OrderID: "missing"})
	if !errors.Is(err, ErrNoSession) {
		t.Errorf("expected ErrNoSession, got %v", err)
	}
}

func TestHostedCheckout_DuplicateOpenRejected(t *testing.T) {
	t.Parallel()

	h := NewHostedCheckout()

	go h.Open(context.Background(), testIntent("order-1"), domain.Prefill{})
	waitForPending(t, h, "order-1")

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_, err := h.Open(ctx, testIntent("order-1"), domain.Prefill{})
	if err == nil {
		t.Fatal("expected duplicate open to fail")
	}

	h.Dismiss("order-1")
}

func waitForPending(t *testing.T, h *HostedCheckout, orderID string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if h.Pending(orderID) {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("session for %s never opened", orderID)
}
