package service

import (
	"errors"
	"fmt"

	"carpool/internal/domain"
)

var (
	// ErrInvalidRideID is returned when ride ID is empty.
	ErrInvalidRideID = errors.New("invalid ride id")

	// ErrInvalidBookingID is returned when booking ID is empty.
	ErrInvalidBookingID = errors.New("invalid booking id")

	// ErrInvalidOrderID is returned when an order ID is empty.
	ErrInvalidOrderID = errors.New("invalid order id")

	// ErrInvalidSeats is returned when the seat count is below 1.
	ErrInvalidSeats = errors.New("seats must be at least 1")

	// ErrInvalidPickupLocation is returned when pickup location is empty.
	ErrInvalidPickupLocation = errors.New("invalid pickup location")

	// ErrInvalidDropLocation is returned when drop location is empty.
	ErrInvalidDropLocation = errors.New("invalid drop location")

	// ErrInvalidDistance is returned when distance is negative.
	ErrInvalidDistance = errors.New("distance must not be negative")

	// ErrInvalidRate is returned when the per-km rate is negative.
	ErrInvalidRate = errors.New("price per km must not be negative")

	// ErrInvalidRating is returned when a review rating is out of range.
	ErrInvalidRating = errors.New("rating must be between 1 and 5")

	// ErrSeatsUnavailable is returned when another booking won the capacity
	// race. Recoverable by re-searching.
	ErrSeatsUnavailable = errors.New("requested seats exceed availability")

	// ErrBookingNotFound is returned when a booking id resolves to nothing.
	ErrBookingNotFound = errors.New("booking not found")

	// ErrBookingNotPending is returned when resuming checkout for a booking
	// that is no longer awaiting payment.
	ErrBookingNotPending = errors.New("booking is not pending payment")

	// ErrCheckoutInProgress is returned when a second checkout attempt is
	// made for a booking whose lock is still held.
	ErrCheckoutInProgress = errors.New("checkout already in progress for this booking")

	// ErrGatewayCancelled is returned when the rider dismissed the payment
	// flow. No charge occurred; the booking stays PENDING and checkout may
	// be resumed.
	ErrGatewayCancelled = errors.New("payment cancelled by user")

	// ErrGatewayFailed is returned when the gateway reported a processing
	// failure. Recovery is the same as for a cancellation.
	ErrGatewayFailed = errors.New("payment processing failed")

	// ErrEstimateUnavailable is returned when the remote distance service
	// cannot be reached. The visible estimate is cleared; retryable.
	ErrEstimateUnavailable = errors.New("fare estimate unavailable")

	// ErrPollerRunning is returned when starting an already-running poller.
	ErrPollerRunning = errors.New("status sync poller already running")

	// ErrPollInFlight is returned when a sync tick overlaps a previous one.
	ErrPollInFlight = errors.New("previous poll still in flight")
)

// OrderCreationError reports that the backend refused to issue a payment
// intent. The booking stays PENDING; retry order creation with Resume rather
// than creating a new booking.
type OrderCreationError struct {
	BookingID string
	Err       error
}

func (e *OrderCreationError) Error() string {
	return fmt.Sprintf("create payment order for booking %s: %v", e.BookingID, e.Err)
}

func (e *OrderCreationError) Unwrap() error { return e.Err }

// VerificationError is the fatal outcome of a signature mismatch during
// payment verification. Money may have moved without server confirmation, so
// this must never be retried automatically.
type VerificationError struct {
	Receipt domain.GatewayReceipt
}

func (e *VerificationError) Error() string {
	return fmt.Sprintf("payment verification failed for order %s: signature mismatch", e.Receipt.OrderID)
}

// NetworkError wraps a transport-level failure at any checkout step. The
// caller decides backoff and retry.
type NetworkError struct {
	Step string
	Err  error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error during %s: %v", e.Step, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// Retryable reports whether the caller may retry the operation that produced
// err without manual intervention.
func Retryable(err error) bool {
	var orderErr *OrderCreationError
	var netErr *NetworkError
	switch {
	case errors.As(err, &orderErr), errors.As(err, &netErr):
		return true
	case errors.Is(err, ErrGatewayCancelled),
		errors.Is(err, ErrGatewayFailed),
		errors.Is(err, ErrEstimateUnavailable):
		return true
	default:
		return false
	}
}

// Fatal reports whether err requires manual support intervention.
func Fatal(err error) bool {
	var verr *VerificationError
	return errors.As(err, &verr)
}
