package domain

import "time"

// BookingStatus represents the current status of a booking.
type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "PENDING"
	BookingStatusConfirmed BookingStatus = "CONFIRMED"
	BookingStatusCompleted BookingStatus = "COMPLETED"
	BookingStatusCancelled BookingStatus = "CANCELLED"
)

// Booking is a seat reservation against a ride offer. It is created PENDING
// and confirmed only after payment verification. The COMPLETED transition is
// driven by the driver on the backend, never by this client.
type Booking struct {
	ID             string        `json:"id"`
	RideID         string        `json:"ride_id"`
	Seats          int           `json:"seats"`
	PickupLocation string        `json:"pickup_location"`
	DropLocation   string        `json:"drop_location"`
	DistanceKm     float64       `json:"distance_km"`
	EstimatedFare  float64       `json:"estimated_fare"`
	Status         BookingStatus `json:"status"`
	Ride           *RideOffer    `json:"ride,omitempty"`
	CreatedAt      time.Time     `json:"created_at,omitempty"`
}
