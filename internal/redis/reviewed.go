package redis

import (
	"context"

	"github.com/redis/go-redis/v9"
)

const reviewedKeyPrefix = "reviewed_bookings:"

// ReviewedStore tracks which bookings a rider has already reviewed. The set
// survives restarts so completed bookings do not reappear as obligations.
type ReviewedStore struct {
	client *redis.Client
}

// NewReviewedStore creates a new ReviewedStore.
func NewReviewedStore(client *redis.Client) *ReviewedStore {
	return &ReviewedStore{client: client}
}

// MarkReviewed records that the rider reviewed the booking.
func (s *ReviewedStore) MarkReviewed(ctx context.Context, userID, bookingID string) error {
	return s.client.SAdd(ctx, reviewedKeyPrefix+userID, bookingID).Err()
}

// IsReviewed checks whether the rider already reviewed the booking.
func (s *ReviewedStore) IsReviewed(ctx context.Context, userID, bookingID string) (bool, error) {
	return s.client.SIsMember(ctx, reviewedKeyPrefix+userID, bookingID).Result()
}

// Reviewed returns all booking ids the rider has reviewed.
func (s *ReviewedStore) Reviewed(ctx context.Context, userID string) (map[string]bool, error) {
	members, err := s.client.SMembers(ctx, reviewedKeyPrefix+userID).Result()
	if err != nil {
		return nil, err
	}

	set := make(map[string]bool, len(members))
	for _, m := range members {
		set[m] = true
	}
	return set, nil
}
