package domain

import "time"

// ReviewObligation is a completed booking the rider has not yet reviewed.
// Membership is derived by the status sync poller; no component owns it.
type ReviewObligation struct {
	BookingID   string    `json:"booking_id"`
	RideID      string    `json:"ride_id"`
	Route       string    `json:"route,omitempty"`
	DriverName  string    `json:"driver_name,omitempty"`
	CompletedAt time.Time `json:"completed_at,omitempty"`
}

// ReviewSubmission is a rider's rating for a completed booking.
type ReviewSubmission struct {
	BookingID string `json:"booking_id"`
	Rating    int    `json:"rating"`
	Comment   string `json:"comment,omitempty"`
}
