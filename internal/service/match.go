package service

import (
	"fmt"
	"sort"
	"strings"

	"carpool/internal/backend"
	"carpool/internal/domain"
)

const (
	exactMatchScore = 100.0

	// Detour bounds mirror what the search backend advertises to drivers.
	alongRouteMaxExtraKm = 2.0
	maxDetourKm          = 15.0
)

// MatchService classifies and ranks ride offers against a search query.
// Pure: no side effects, recomputed per search.
type MatchService struct{}

// NewMatchService creates a new MatchService.
func NewMatchService() *MatchService {
	return &MatchService{}
}

// Rank classifies every offer and returns them ordered EXACT, then
// ALONG_ROUTE, then PARTIAL_DETOUR; ties broken by descending score, then
// soonest departure.
func (s *MatchService) Rank(q backend.SearchQuery, offers []domain.RideOffer) []domain.RideMatch {
	matches := make([]domain.RideMatch, 0, len(offers))
	for _, offer := range offers {
		if m, ok := s.classify(q, offer); ok {
			matches = append(matches, m)
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		a, b := matches[i], matches[j]
		if a.Type != b.Type {
			return a.Type.BetterTierThan(b.Type)
		}
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		return a.Offer.DepartureTime.Before(b.Offer.DepartureTime)
	})

	return matches
}

// classify produces a single match. Offers whose advertised detour exceeds
// the bound are dropped.
func (s *MatchService) classify(q backend.SearchQuery, offer domain.RideOffer) (domain.RideMatch, bool) {
	exactEndpoints := locationsEqual(offer.Source, q.Source) && locationsEqual(offer.Destination, q.Destination)

	// Exact string match on both endpoints with zero extra distance is
	// always EXACT, whatever score the backend attached.
	if exactEndpoints && (offer.Hint == nil || offer.Hint.ExtraDistanceKm == 0) {
		return domain.RideMatch{
			Offer:           offer,
			Type:            domain.MatchTypeExact,
			Score:           exactMatchScore,
			Description:     "Exact route match",
			SuggestedPickup: offer.Source,
			SuggestedDrop:   offer.Destination,
		}, true
	}

	if offer.Hint == nil {
		// The backend filtered this offer in but attached no route
		// analysis; keep it visible at the bottom of the ranking.
		return domain.RideMatch{
			Offer:           offer,
			Type:            domain.MatchTypePartialDetour,
			Score:           0,
			Description:     "Route overlap not assessed",
			SuggestedPickup: q.Source,
			SuggestedDrop:   q.Destination,
		}, true
	}

	hint := *offer.Hint
	if hint.ExtraDistanceKm > maxDetourKm {
		return domain.RideMatch{}, false
	}

	matchType := hint.Type
	if matchType == "" {
		if hint.ExtraDistanceKm <= alongRouteMaxExtraKm {
			matchType = domain.MatchTypeAlongRoute
		} else {
			matchType = domain.MatchTypePartialDetour
		}
	}

	score := hint.Score
	if score < 0 {
		score = 0
	} else if score > exactMatchScore {
		score = exactMatchScore
	}

	pickup := hint.SuggestedPickup
	if pickup == "" {
		pickup = q.Source
	}
	drop := hint.SuggestedDrop
	if drop == "" {
		drop = q.Destination
	}

	return domain.RideMatch{
		Offer:           offer,
		Type:            matchType,
		Score:           score,
		ExtraDistanceKm: hint.ExtraDistanceKm,
		Description:     describeMatch(matchType, hint.ExtraDistanceKm),
		SuggestedPickup: pickup,
		SuggestedDrop:   drop,
	}, true
}

func describeMatch(t domain.MatchType, extraKm float64) string {
	switch t {
	case domain.MatchTypeExact:
		return "Exact route match"
	case domain.MatchTypeAlongRoute:
		return "Pickup and drop lie along the driver's route"
	default:
		return fmt.Sprintf("Requires a %.1f km detour", extraKm)
	}
}

// locationsEqual checks if two location labels are approximately the same.
func locationsEqual(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
