package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"carpool/internal/backend"
	"carpool/internal/domain"
	"carpool/internal/gateway"
	"carpool/internal/observability"
	redisstore "carpool/internal/redis"
)

// CheckoutState identifies where a checkout attempt is in the pipeline.
type CheckoutState string

const (
	StateIdle               CheckoutState = "IDLE"
	StateBookingCreated     CheckoutState = "BOOKING_CREATED"
	StateOrderCreated       CheckoutState = "ORDER_CREATED"
	StateGatewayOpen        CheckoutState = "GATEWAY_OPEN"
	StateVerified           CheckoutState = "VERIFIED"
	StateGatewayCancelled   CheckoutState = "GATEWAY_CANCELLED"
	StateGatewayFailed      CheckoutState = "GATEWAY_FAILED"
	StateVerificationFailed CheckoutState = "VERIFICATION_FAILED"
)

const (
	defaultVerifyTimeout = 10 * time.Second
	defaultLockTTL       = 30 * time.Minute // gateway step is user-paced
	reportTimeout        = 5 * time.Second
)

// CheckoutService drives the booking-to-payment pipeline: reserve seats,
// obtain a payment intent, hand off to the gateway, verify the receipt, and
// classify every exit. It exclusively owns the in-flight booking/intent pair
// for the duration of one attempt, enforced by a per-booking lock.
type CheckoutService struct {
	bookings backend.BookingAPI
	payments backend.PaymentAPI
	gateway  gateway.Adapter
	locks    redisstore.LockStoreInterface
	events   EventPublisher
	logger   *slog.Logger

	verifyTimeout time.Duration
	lockTTL       time.Duration
}

// NewCheckoutService creates a new CheckoutService. events may be nil.
func NewCheckoutService(
	bookings backend.BookingAPI,
	payments backend.PaymentAPI,
	gw gateway.Adapter,
	locks redisstore.LockStoreInterface,
	events EventPublisher,
	logger *slog.Logger,
) *CheckoutService {
	if logger == nil {
		logger = slog.Default()
	}
	return &CheckoutService{
		bookings:      bookings,
		payments:      payments,
		gateway:       gw,
		locks:         locks,
		events:        events,
		logger:        logger,
		verifyTimeout: defaultVerifyTimeout,
		lockTTL:       defaultLockTTL,
	}
}

// SetVerifyTimeout overrides the verification call timeout.
func (s *CheckoutService) SetVerifyTimeout(d time.Duration) {
	if d > 0 {
		s.verifyTimeout = d
	}
}

// CheckoutRequest contains the parameters for a fresh checkout attempt.
type CheckoutRequest struct {
	RideID         string
	Seats          int
	PickupLocation string
	DropLocation   string
	DistanceKm     float64
}

// CheckoutResult reports the classified outcome of one attempt. Booking and
// Receipt are populated as far as the pipeline progressed, so callers can
// resume or re-verify.
type CheckoutResult struct {
	State   CheckoutState
	Booking *domain.Booking
	Intent  *domain.PaymentIntent
	Receipt *domain.GatewayReceipt
	Payment domain.PaymentStatus
}

// Checkout runs the full pipeline for a new booking. On gateway cancellation
// or failure the booking stays PENDING and the error is retryable via Resume.
func (s *CheckoutService) Checkout(ctx context.Context, session domain.Session, req CheckoutRequest) (*CheckoutResult, error) {
	if err := validateCheckout(req); err != nil {
		return &CheckoutResult{State: StateIdle}, err
	}

	booking, err := s.bookings.CreateBooking(ctx, backend.CreateBookingRequest{
		RideID:         req.RideID,
		Seats:          req.Seats,
		PickupLocation: req.PickupLocation,
		DropLocation:   req.DropLocation,
		DistanceKm:     req.DistanceKm,
	})
	if err != nil {
		if errors.Is(err, backend.ErrSeatsUnavailable) {
			return &CheckoutResult{State: StateIdle}, ErrSeatsUnavailable
		}
		return &CheckoutResult{State: StateIdle}, &NetworkError{Step: "create booking", Err: err}
	}

	result := &CheckoutResult{State: StateBookingCreated, Booking: booking}

	release, err := s.acquireLock(ctx, booking.ID)
	if err != nil {
		return result, err
	}
	defer release()

	return s.drive(ctx, session, result)
}

// Resume retries checkout for an existing PENDING booking without creating a
// second one. Rejected while another attempt holds the booking's lock.
func (s *CheckoutService) Resume(ctx context.Context, session domain.Session, bookingID string) (*CheckoutResult, error) {
	if bookingID == "" {
		return &CheckoutResult{State: StateIdle}, ErrInvalidBookingID
	}

	release, err := s.acquireLock(ctx, bookingID)
	if err != nil {
		return &CheckoutResult{State: StateIdle}, err
	}
	defer release()

	booking, err := s.findBooking(ctx, bookingID)
	if err != nil {
		return &CheckoutResult{State: StateIdle}, err
	}
	if booking.Status != domain.BookingStatusPending {
		return &CheckoutResult{State: StateIdle, Booking: booking}, ErrBookingNotPending
	}

	result := &CheckoutResult{State: StateBookingCreated, Booking: booking}
	return s.drive(ctx, session, result)
}

// drive runs the pipeline from an existing PENDING booking. The caller must
// hold the booking lock.
func (s *CheckoutService) drive(ctx context.Context, session domain.Session, result *CheckoutResult) (*CheckoutResult, error) {
	booking := result.Booking

	intent, err := s.payments.CreateOrder(ctx, booking.ID)
	if err != nil {
		s.finish(ctx, session, result, "order rejected")
		return result, &OrderCreationError{BookingID: booking.ID, Err: err}
	}
	result.State = StateOrderCreated
	result.Intent = intent

	s.logger.Info("payment order created",
		"booking_id", booking.ID,
		"order_id", intent.OrderID,
		"amount", intent.Amount,
	)

	result.State = StateGatewayOpen
	receipt, err := s.gateway.Open(ctx, *intent, session.PrefillFor())
	if err != nil {
		return s.classifyGatewayExit(ctx, session, result, err)
	}
	result.Receipt = &receipt

	return s.verify(ctx, session, result)
}

// CompleteVerification re-runs server-side verification for a receipt whose
// first verification attempt timed out. The receipt is already trusted to
// exist; only the backend's answer is outstanding.
func (s *CheckoutService) CompleteVerification(ctx context.Context, session domain.Session, receipt domain.GatewayReceipt) (*CheckoutResult, error) {
	if receipt.OrderID == "" {
		return &CheckoutResult{State: StateIdle}, ErrInvalidOrderID
	}

	result := &CheckoutResult{State: StateGatewayOpen, Receipt: &receipt}
	return s.verify(ctx, session, result)
}

// verify submits the gateway receipt for server-side verification and
// finalizes the attempt. A transport failure here is retryable; only an
// explicit negative answer is fatal.
func (s *CheckoutService) verify(ctx context.Context, session domain.Session, result *CheckoutResult) (*CheckoutResult, error) {
	receipt := *result.Receipt

	vctx, cancel := context.WithTimeout(ctx, s.verifyTimeout)
	defer cancel()

	answer, err := s.payments.VerifyPayment(vctx, receipt)
	if err != nil {
		// The charge may or may not have been recorded server-side; the
		// receipt stays in the result so verification can be re-run.
		return result, &NetworkError{Step: "verify payment", Err: err}
	}

	if !answer.Verified {
		s.report(receipt.OrderID, "signature mismatch")
		result.State = StateVerificationFailed
		result.Payment = domain.PaymentStatusFailed
		s.finish(ctx, session, result, "signature mismatch")
		s.logger.Error("payment verification mismatch", "order_id", receipt.OrderID)
		return result, &VerificationError{Receipt: receipt}
	}

	result.State = StateVerified
	result.Payment = answer.Status
	if result.Payment == "" {
		result.Payment = domain.PaymentStatusSuccess
	}
	if result.Booking != nil {
		result.Booking.Status = domain.BookingStatusConfirmed
	}
	s.finish(ctx, session, result, "")

	s.logger.Info("checkout verified",
		"order_id", receipt.OrderID,
		"payment_id", receipt.PaymentID,
	)
	return result, nil
}

// classifyGatewayExit maps gateway errors onto the checkout taxonomy. Both
// cancellation and failure leave the booking PENDING with no charge.
func (s *CheckoutService) classifyGatewayExit(ctx context.Context, session domain.Session, result *CheckoutResult, err error) (*CheckoutResult, error) {
	orderID := ""
	if result.Intent != nil {
		orderID = result.Intent.OrderID
	}

	switch {
	case errors.Is(err, gateway.ErrCancelled):
		s.report(orderID, "cancelled by user")
		result.State = StateGatewayCancelled
		result.Payment = domain.PaymentStatusCancelled
		s.finish(ctx, session, result, "cancelled by user")
		return result, fmt.Errorf("%w: booking %s", ErrGatewayCancelled, result.Booking.ID)

	case errors.Is(err, gateway.ErrFailed):
		s.report(orderID, err.Error())
		result.State = StateGatewayFailed
		result.Payment = domain.PaymentStatusFailed
		s.finish(ctx, session, result, err.Error())
		return result, fmt.Errorf("%w: booking %s", ErrGatewayFailed, result.Booking.ID)

	default:
		return result, &NetworkError{Step: "gateway", Err: err}
	}
}

// acquireLock takes the per-booking checkout lock and returns its release
// func. The release uses a fresh context so a cancelled checkout still
// unlocks the booking.
func (s *CheckoutService) acquireLock(ctx context.Context, bookingID string) (func(), error) {
	ok, err := s.locks.AcquireBookingLock(ctx, bookingID, s.lockTTL)
	if err != nil {
		return nil, &NetworkError{Step: "acquire booking lock", Err: err}
	}
	if !ok {
		return nil, ErrCheckoutInProgress
	}
	return func() {
		rctx, cancel := context.WithTimeout(context.Background(), reportTimeout)
		defer cancel()
		if err := s.locks.ReleaseBookingLock(rctx, bookingID); err != nil {
			s.logger.Warn("release booking lock", "booking_id", bookingID, "error", err)
		}
	}, nil
}

func (s *CheckoutService) findBooking(ctx context.Context, bookingID string) (*domain.Booking, error) {
	bookings, err := s.bookings.ListBookings(ctx)
	if err != nil {
		return nil, &NetworkError{Step: "list bookings", Err: err}
	}
	for _, b := range bookings {
		if b.ID == bookingID {
			return b, nil
		}
	}
	return nil, ErrBookingNotFound
}

// report notifies the backend of a gateway-side failure. Best-effort.
func (s *CheckoutService) report(orderID, reason string) {
	if orderID == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), reportTimeout)
	defer cancel()
	if err := s.payments.ReportFailure(ctx, orderID, reason); err != nil {
		s.logger.Warn("report payment failure", "order_id", orderID, "error", err)
	}
}

// finish records metrics and publishes the terminal event for the attempt.
func (s *CheckoutService) finish(ctx context.Context, session domain.Session, result *CheckoutResult, reason string) {
	observability.CheckoutOutcomes.WithLabelValues(string(result.State)).Inc()

	if s.events == nil {
		return
	}
	event := CheckoutEvent{
		ID:     uuid.New().String(),
		UserID: session.UserID,
		State:  result.State,
		Reason: reason,
		At:     time.Now(),
	}
	if result.Booking != nil {
		event.BookingID = result.Booking.ID
	}
	if result.Intent != nil {
		event.OrderID = result.Intent.OrderID
		event.Amount = result.Intent.Amount
	}
	if err := s.events.PublishCheckout(ctx, event); err != nil {
		s.logger.Warn("publish checkout event", "booking_id", event.BookingID, "error", err)
	}
}

func validateCheckout(req CheckoutRequest) error {
	switch {
	case req.RideID == "":
		return ErrInvalidRideID
	case req.Seats < 1:
		return ErrInvalidSeats
	case req.PickupLocation == "":
		return ErrInvalidPickupLocation
	case req.DropLocation == "":
		return ErrInvalidDropLocation
	case req.DistanceKm < 0:
		return ErrInvalidDistance
	default:
		return nil
	}
}
