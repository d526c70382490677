package tests

import (
	"context"
	"errors"
	"sync"
	"testing"

	"carpool/internal/domain"
	"carpool/internal/gateway"
	"carpool/internal/service"
)

// ──────────────────────────────────────────────
// 1. HAPPY PATH
// ──────────────────────────────────────────────

func TestCheckout_HappyPath_EndsVerified(t *testing.T) {
	t.Parallel()

	bookings := NewMockBookingAPI()
	payments := NewMockPaymentAPI()
	gw := NewMockGateway()
	locks := NewMockLockStore()
	publisher := NewMockPublisher()

	bookings.SetSeats("ride-1", 3)

	svc := service.NewCheckoutService(bookings, payments, gw, locks, publisher, nil)

	result, err := svc.Checkout(context.Background(), testSession(), service.CheckoutRequest{
		RideID:         "ride-1",
		Seats:          2,
		PickupLocation: "Indiranagar",
		DropLocation:   "Whitefield",
		DistanceKm:     30,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.State != service.StateVerified {
		t.Errorf("expected state %s, got %s", service.StateVerified, result.State)
	}
	if result.Booking.Status != domain.BookingStatusConfirmed {
		t.Errorf("expected booking CONFIRMED, got %s", result.Booking.Status)
	}
	if result.Receipt == nil || result.Receipt.PaymentID == "" {
		t.Error("expected a gateway receipt")
	}
	if locks.Held(result.Booking.ID) {
		t.Error("booking lock should be released after checkout")
	}

	states := publisher.States()
	if len(states) != 1 || states[0] != string(service.StateVerified) {
		t.Errorf("expected one VERIFIED event, got %v", states)
	}
}

// ──────────────────────────────────────────────
// 2. GATEWAY CANCELLATION AND RESUME
// ──────────────────────────────────────────────

func TestCheckout_CancelledThenResumed_ReusesBookingAndOrder(t *testing.T) {
	t.Parallel()

	bookings := NewMockBookingAPI()
	payments := NewMockPaymentAPI()
	gw := NewMockGateway()
	locks := NewMockLockStore()

	bookings.SetSeats("ride-1", 2)
	gw.ScriptOutcome(gateway.ErrCancelled)

	svc := service.NewCheckoutService(bookings, payments, gw, locks, nil, nil)

	result, err := svc.Checkout(context.Background(), testSession(), service.CheckoutRequest{
		RideID:         "ride-1",
		Seats:          1,
		PickupLocation: "A",
		DropLocation:   "B",
		DistanceKm:     10,
	})
	if !errors.Is(err, service.ErrGatewayCancelled) {
		t.Fatalf("expected ErrGatewayCancelled, got %v", err)
	}
	if result.State != service.StateGatewayCancelled {
		t.Errorf("expected state %s, got %s", service.StateGatewayCancelled, result.State)
	}
	if !service.Retryable(err) {
		t.Error("cancellation must be retryable")
	}

	// The booking stays PENDING and the seats stay reserved.
	booking := bookings.GetBooking(result.Booking.ID)
	if booking.Status != domain.BookingStatusPending {
		t.Errorf("expected booking PENDING after cancel, got %s", booking.Status)
	}

	// The dismissal was reported to the backend.
	if payments.LastFailureReason != "cancelled by user" {
		t.Errorf("expected failure report, got %q", payments.LastFailureReason)
	}

	// Resume completes against the SAME booking and order.
	resumed, err := svc.Resume(context.Background(), testSession(), result.Booking.ID)
	if err != nil {
		t.Fatalf("unexpected error on resume: %v", err)
	}
	if resumed.State != service.StateVerified {
		t.Errorf("expected state %s, got %s", service.StateVerified, resumed.State)
	}
	if resumed.Booking.ID != result.Booking.ID {
		t.Error("resume must not create a second booking")
	}
	if bookings.CreateCallCount != 1 {
		t.Errorf("expected exactly one CreateBooking call, got %d", bookings.CreateCallCount)
	}
	if payments.OrderCount() != 1 {
		t.Errorf("expected one payment order, got %d", payments.OrderCount())
	}
}

func TestCheckout_GatewayFailure_IsRetryable(t *testing.T) {
	t.Parallel()

	bookings := NewMockBookingAPI()
	payments := NewMockPaymentAPI()
	gw := NewMockGateway()
	locks := NewMockLockStore()

	gw.ScriptOutcome(gateway.ErrFailed)

	svc := service.NewCheckoutService(bookings, payments, gw, locks, nil, nil)

	result, err := svc.Checkout(context.Background(), testSession(), service.CheckoutRequest{
		RideID:         "ride-1",
		Seats:          1,
		PickupLocation: "A",
		DropLocation:   "B",
		DistanceKm:     5,
	})
	if !errors.Is(err, service.ErrGatewayFailed) {
		t.Fatalf("expected ErrGatewayFailed, got %v", err)
	}
	if result.State != service.StateGatewayFailed {
		t.Errorf("expected state %s, got %s", service.StateGatewayFailed, result.State)
	}
	if !service.Retryable(err) {
		t.Error("gateway failure must be retryable")
	}
	if payments.ReportFailureCallCount != 1 {
		t.Errorf("expected one failure report, got %d", payments.ReportFailureCallCount)
	}
}

// ──────────────────────────────────────────────
// 3. CONCURRENCY GUARDS
// ──────────────────────────────────────────────

func TestCheckout_SecondAttemptWhileLockHeld_Rejected(t *testing.T) {
	t.Parallel()

	bookings := NewMockBookingAPI()
	payments := NewMockPaymentAPI()
	locks := NewMockLockStore()

	booking := &domain.Booking{
		ID:     "booking-open",
		RideID: "ride-1",
		Seats:  1,
		Status: domain.BookingStatusPending,
	}
	bookings.AddBooking(booking)

	// Simulate an attempt already holding the lock.
	if ok, _ := locks.AcquireBookingLock(context.Background(), booking.ID, 0); !ok {
		t.Fatal("failed to seed lock")
	}

	svc := service.NewCheckoutService(bookings, payments, NewMockGateway(), locks, nil, nil)

	_, err := svc.Resume(context.Background(), testSession(), booking.ID)
	if !errors.Is(err, service.ErrCheckoutInProgress) {
		t.Fatalf("expected ErrCheckoutInProgress, got %v", err)
	}
	if payments.CreateOrderCallCount != 0 {
		t.Error("no order should be created while the lock is held")
	}
}

// blockingGateway holds Open until released, so a second attempt provably
// overlaps the first.
type blockingGateway struct {
	opened  chan struct{}
	release chan struct{}
}

func (g *blockingGateway) Open(ctx context.Context, intent domain.PaymentIntent, prefill domain.Prefill) (domain.GatewayReceipt, error) {
	close(g.opened)
	select {
	case <-g.release:
		return domain.GatewayReceipt{OrderID: intent.OrderID, PaymentID: "pay-1", Signature: "sig"}, nil
	case <-ctx.Done():
		return domain.GatewayReceipt{}, gateway.ErrCancelled
	}
}

func TestCheckout_ResumeWhileGatewayOpen_Rejected(t *testing.T) {
	t.Parallel()

	bookings := NewMockBookingAPI()
	payments := NewMockPaymentAPI()
	locks := NewMockLockStore()
	gw := &blockingGateway{opened: make(chan struct{}), release: make(chan struct{})}

	bookings.AddBooking(&domain.Booking{
		ID:     "booking-race",
		RideID: "ride-1",
		Seats:  1,
		Status: domain.BookingStatusPending,
	})

	svc := service.NewCheckoutService(bookings, payments, gw, locks, nil, nil)

	var wg sync.WaitGroup
	var firstErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, firstErr = svc.Resume(context.Background(), testSession(), "booking-race")
	}()

	// Wait for the first attempt to reach the gateway, then race it.
	<-gw.opened
	_, err := svc.Resume(context.Background(), testSession(), "booking-race")
	if !errors.Is(err, service.ErrCheckoutInProgress) {
		t.Fatalf("expected ErrCheckoutInProgress while gateway open, got %v", err)
	}

	close(gw.release)
	wg.Wait()
	if firstErr != nil {
		t.Fatalf("unexpected error from first attempt: %v", firstErr)
	}
}

// ──────────────────────────────────────────────
// 4. CAPACITY AND VALIDATION
// ──────────────────────────────────────────────

func TestCheckout_SeatsUnavailable_NoSideEffects(t *testing.T) {
	t.Parallel()

	bookings := NewMockBookingAPI()
	payments := NewMockPaymentAPI()
	locks := NewMockLockStore()

	bookings.SetSeats("ride-1", 1)

	svc := service.NewCheckoutService(bookings, payments, NewMockGateway(), locks, nil, nil)

	_, err := svc.Checkout(context.Background(), testSession(), service.CheckoutRequest{
		RideID:         "ride-1",
		Seats:          2,
		PickupLocation: "A",
		DropLocation:   "B",
		DistanceKm:     5,
	})
	if !errors.Is(err, service.ErrSeatsUnavailable) {
		t.Fatalf("expected ErrSeatsUnavailable, got %v", err)
	}
	if payments.CreateOrderCallCount != 0 {
		t.Error("no order should exist after a capacity failure")
	}
	if locks.AcquireCallCount != 0 {
		t.Error("no lock should be taken for a booking that was never created")
	}
}

func TestCheckout_ValidationRejectedBeforeBooking(t *testing.T) {
	t.Parallel()

	bookings := NewMockBookingAPI()
	svc := service.NewCheckoutService(bookings, NewMockPaymentAPI(), NewMockGateway(), NewMockLockStore(), nil, nil)

	cases := []struct {
		name string
		req  service.CheckoutRequest
		want error
	}{
		{"missing ride", service.CheckoutRequest{Seats: 1, PickupLocation: "A", DropLocation: "B"}, service.ErrInvalidRideID},
		{"zero seats", service.CheckoutRequest{RideID: "r", PickupLocation: "A", DropLocation: "B"}, service.ErrInvalidSeats},
		{"missing pickup", service.CheckoutRequest{RideID: "r", Seats: 1, DropLocation: "B"}, service.ErrInvalidPickupLocation},
		{"missing drop", service.CheckoutRequest{RideID: "r", Seats: 1, PickupLocation: "A"}, service.ErrInvalidDropLocation},
		{"negative distance", service.CheckoutRequest{RideID: "r", Seats: 1, PickupLocation: "A", DropLocation: "B", DistanceKm: -1}, service.ErrInvalidDistance},
	}
	for _, tc := range cases {
		_, err := svc.Checkout(context.Background(), testSession(), tc.req)
		if !errors.Is(err, tc.want) {
			t.Errorf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
	}
	if bookings.CreateCallCount != 0 {
		t.Error("invalid requests must not reach the backend")
	}
}

// ──────────────────────────────────────────────
// 5. VERIFICATION OUTCOMES
// ──────────────────────────────────────────────

func TestCheckout_VerificationMismatch_IsFatal(t *testing.T) {
	t.Parallel()

	bookings := NewMockBookingAPI()
	payments := NewMockPaymentAPI()
	locks := NewMockLockStore()

	payments.VerifyAnswer.Verified = false

	svc := service.NewCheckoutService(bookings, payments, NewMockGateway(), locks, nil, nil)

	result, err := svc.Checkout(context.Background(), testSession(), service.CheckoutRequest{
		RideID:         "ride-1",
		Seats:          1,
		PickupLocation: "A",
		DropLocation:   "B",
		DistanceKm:     5,
	})

	var verr *service.VerificationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected VerificationError, got %v", err)
	}
	if result.State != service.StateVerificationFailed {
		t.Errorf("expected state %s, got %s", service.StateVerificationFailed, result.State)
	}
	if service.Retryable(err) {
		t.Error("verification mismatch must not be retryable")
	}
	if !service.Fatal(err) {
		t.Error("verification mismatch must be fatal")
	}
	if payments.ReportFailureCallCount != 1 {
		t.Errorf("expected mismatch to be reported, got %d reports", payments.ReportFailureCallCount)
	}
}

func TestCheckout_VerifyTransportFailure_RetryableWithReceipt(t *testing.T) {
	t.Parallel()

	bookings := NewMockBookingAPI()
	payments := NewMockPaymentAPI()
	locks := NewMockLockStore()

	payments.VerifyError = errors.New("connection reset")

	svc := service.NewCheckoutService(bookings, payments, NewMockGateway(), locks, nil, nil)

	result, err := svc.Checkout(context.Background(), testSession(), service.CheckoutRequest{
		RideID:         "ride-1",
		Seats:          1,
		PickupLocation: "A",
		DropLocation:   "B",
		DistanceKm:     5,
	})

	var nerr *service.NetworkError
	if !errors.As(err, &nerr) {
		t.Fatalf("expected NetworkError, got %v", err)
	}
	if !service.Retryable(err) {
		t.Error("verification timeout must be retryable")
	}
	if result.Receipt == nil {
		t.Fatal("receipt must be kept so verification can be completed later")
	}

	// Re-running verification once the backend answers succeeds.
	payments.VerifyError = nil
	completed, err := svc.CompleteVerification(context.Background(), testSession(), *result.Receipt)
	if err != nil {
		t.Fatalf("unexpected error completing verification: %v", err)
	}
	if completed.State != service.StateVerified {
		t.Errorf("expected state %s, got %s", service.StateVerified, completed.State)
	}
}

// ──────────────────────────────────────────────
// 6. ORDER CREATION FAILURE
// ──────────────────────────────────────────────

func TestCheckout_OrderRejected_BookingStaysPending(t *testing.T) {
	t.Parallel()

	bookings := NewMockBookingAPI()
	payments := NewMockPaymentAPI()
	gw := NewMockGateway()
	locks := NewMockLockStore()

	payments.CreateOrderError = errors.New("order rejected")

	svc := service.NewCheckoutService(bookings, payments, gw, locks, nil, nil)

	result, err := svc.Checkout(context.Background(), testSession(), service.CheckoutRequest{
		RideID:         "ride-1",
		Seats:          1,
		PickupLocation: "A",
		DropLocation:   "B",
		DistanceKm:     5,
	})

	var oerr *service.OrderCreationError
	if !errors.As(err, &oerr) {
		t.Fatalf("expected OrderCreationError, got %v", err)
	}
	if !service.Retryable(err) {
		t.Error("order creation failure must be retryable")
	}
	if gw.OpenCallCount != 0 {
		t.Error("gateway must not open without an order")
	}

	booking := bookings.GetBooking(result.Booking.ID)
	if booking.Status != domain.BookingStatusPending {
		t.Errorf("expected booking PENDING, got %s", booking.Status)
	}

	// A later resume retries order creation against the same booking.
	payments.CreateOrderError = nil
	resumed, err := svc.Resume(context.Background(), testSession(), result.Booking.ID)
	if err != nil {
		t.Fatalf("unexpected error on resume: %v", err)
	}
	if resumed.State != service.StateVerified {
		t.Errorf("expected state %s, got %s", service.StateVerified, resumed.State)
	}
}

func testSession() domain.Session {
	return domain.Session{
		UserID: "user-1",
		Name:   "Asha",
		Email:  "asha@example.com",
		Phone:  "9999999999",
	}
}
