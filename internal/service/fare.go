package service

import (
	"math"

	"carpool/internal/domain"
)

// Pricing holds the fare computation rules. The seat multiplier applies to
// the distance component only; the booking fee is added after the minimum
// fare floor.
type Pricing struct {
	BaseFare    float64
	MinimumFare float64
	BookingFee  float64
}

// DefaultPricing returns the platform's default fare rules.
func DefaultPricing() Pricing {
	return Pricing{
		BaseFare:    40.0,
		MinimumFare: 50.0,
		BookingFee:  20.0,
	}
}

// Breakdown computes the itemized fare for a trip.
// Total = round(max(MinimumFare, BaseFare + distance*rate*seats) + BookingFee, 2).
func (p Pricing) Breakdown(distanceKm, pricePerKm float64, seats int) (domain.FareEstimate, error) {
	if seats < 1 {
		return domain.FareEstimate{}, ErrInvalidSeats
	}
	if distanceKm < 0 {
		return domain.FareEstimate{}, ErrInvalidDistance
	}
	if pricePerKm < 0 {
		return domain.FareEstimate{}, ErrInvalidRate
	}

	distanceFare := distanceKm * pricePerKm * float64(seats)
	subtotal := p.BaseFare + distanceFare

	minimumApplied := subtotal < p.MinimumFare
	if minimumApplied {
		subtotal = p.MinimumFare
	}

	return domain.FareEstimate{
		DistanceKm:         distanceKm,
		BaseFare:           p.BaseFare,
		DistanceFare:       round2(distanceFare),
		Seats:              seats,
		BookingFee:         p.BookingFee,
		MinimumFareApplied: minimumApplied,
		Total:              round2(subtotal + p.BookingFee),
	}, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
