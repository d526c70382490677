package domain

// FareEstimate is an itemized fare computation for one booking input.
// Invariant: Total = round(max(minimumFare, BaseFare+DistanceFare) + BookingFee, 2)
// where DistanceFare already includes the seat multiplier.
type FareEstimate struct {
	DistanceKm         float64 `json:"distance_km"`
	DurationMin        float64 `json:"duration_min,omitempty"`
	BaseFare           float64 `json:"base_fare"`
	DistanceFare       float64 `json:"distance_fare"`
	Seats              int     `json:"seats"`
	BookingFee         float64 `json:"booking_fee"`
	MinimumFareApplied bool    `json:"minimum_fare_applied"`
	Total              float64 `json:"total"`
}

// RouteInfo is the opaque result of the remote distance function.
type RouteInfo struct {
	DistanceKm  float64 `json:"distance_km"`
	DurationMin float64 `json:"duration_min"`
}
