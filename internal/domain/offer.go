package domain

import "time"

// MatchType classifies how well a ride offer's route covers the rider's trip.
type MatchType string

const (
	MatchTypeExact         MatchType = "EXACT"
	MatchTypeAlongRoute    MatchType = "ALONG_ROUTE"
	MatchTypePartialDetour MatchType = "PARTIAL_DETOUR"
)

// tierRank orders match types for sorting. Lower is better.
func (t MatchType) tierRank() int {
	switch t {
	case MatchTypeExact:
		return 0
	case MatchTypeAlongRoute:
		return 1
	case MatchTypePartialDetour:
		return 2
	default:
		return 3
	}
}

// BetterTierThan reports whether t sorts strictly before other.
func (t MatchType) BetterTierThan(other MatchType) bool {
	return t.tierRank() < other.tierRank()
}

// DriverSummary is the offer-owning driver as returned by the search backend.
type DriverSummary struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	CarModel string  `json:"car_model,omitempty"`
	Rating   float64 `json:"rating,omitempty"`
}

// MatchHint carries optional server-side match precomputation attached to a
// search result. All fields are advisory; the ranker normalizes them.
type MatchHint struct {
	Type            MatchType `json:"match_type,omitempty"`
	Score           float64   `json:"match_score,omitempty"`
	ExtraDistanceKm float64   `json:"extra_distance_km,omitempty"`
	SuggestedPickup string    `json:"suggested_pickup,omitempty"`
	SuggestedDrop   string    `json:"suggested_drop,omitempty"`
}

// RideOffer is a posted ride as fetched from the search backend.
// Immutable once fetched; a re-search supersedes it.
type RideOffer struct {
	ID             string        `json:"id"`
	Source         string        `json:"source"`
	Destination    string        `json:"destination"`
	DepartureTime  time.Time     `json:"departure_time"`
	PricePerKm     float64       `json:"price_per_km"`
	AvailableSeats int           `json:"available_seats"`
	Driver         DriverSummary `json:"driver"`
	Hint           *MatchHint    `json:"match,omitempty"`
}

// RideMatch wraps a RideOffer with its classification for one search.
// Derived, never persisted; recomputed per search.
type RideMatch struct {
	Offer           RideOffer `json:"offer"`
	Type            MatchType `json:"match_type"`
	Score           float64   `json:"match_score"` // 0-100, higher is better
	ExtraDistanceKm float64   `json:"extra_distance_km"`
	Description     string    `json:"description"`
	SuggestedPickup string    `json:"suggested_pickup,omitempty"`
	SuggestedDrop   string    `json:"suggested_drop,omitempty"`
}
