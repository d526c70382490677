package backend

import (
	"context"
	"time"

	"carpool/internal/domain"
)

// SearchQuery is the rider's trip request used to search ride offers.
type SearchQuery struct {
	Source      string
	Destination string
	Date        *time.Time
}

// CreateBookingRequest contains the parameters for reserving seats on a ride.
type CreateBookingRequest struct {
	RideID         string  `json:"ride_id"`
	Seats          int     `json:"seats"`
	PickupLocation string  `json:"pickup_location"`
	DropLocation   string  `json:"drop_location"`
	DistanceKm     float64 `json:"distance_km"`
}

// VerifyResult is the backend's answer to a payment verification request.
type VerifyResult struct {
	Verified bool                 `json:"verified"`
	Status   domain.PaymentStatus `json:"status"`
}

// RideSearchAPI defines the remote search operations.
type RideSearchAPI interface {
	// SearchRides returns offers matching the query, optionally annotated
	// with server-side match hints.
	SearchRides(ctx context.Context, q SearchQuery) ([]domain.RideOffer, error)
}

// DistanceAPI is the opaque remote distance function. The client never
// computes distances itself.
type DistanceAPI interface {
	// DistanceDetails returns distance and duration between two locations.
	DistanceDetails(ctx context.Context, origin, destination string) (domain.RouteInfo, error)
}

// BookingAPI defines the remote booking operations.
type BookingAPI interface {
	// CreateBooking reserves seats and returns the booking in PENDING state.
	// Returns ErrSeatsUnavailable when the capacity race is lost.
	CreateBooking(ctx context.Context, req CreateBookingRequest) (*domain.Booking, error)

	// ListBookings returns the caller's bookings with their current status.
	ListBookings(ctx context.Context) ([]*domain.Booking, error)
}

// PaymentAPI defines the remote payment operations.
type PaymentAPI interface {
	// CreateOrder requests a payment intent for a pending booking. Calling it
	// again for the same booking returns the still-open intent.
	CreateOrder(ctx context.Context, bookingID string) (*domain.PaymentIntent, error)

	// VerifyPayment submits the gateway receipt for signature verification.
	VerifyPayment(ctx context.Context, receipt domain.GatewayReceipt) (VerifyResult, error)

	// ReportFailure records a gateway-side failure or dismissal for an order.
	ReportFailure(ctx context.Context, orderID, reason string) error
}

// ReviewAPI defines the remote review operations.
type ReviewAPI interface {
	// PendingReviews returns booking ids eligible for a review.
	PendingReviews(ctx context.Context) ([]string, error)

	// SubmitReview records the rider's rating for a completed booking.
	SubmitReview(ctx context.Context, review domain.ReviewSubmission) error
}
