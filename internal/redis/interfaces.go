package redis

import (
	"context"
	"time"
)

// LockStoreInterface defines the interface for distributed checkout locking.
type LockStoreInterface interface {
	AcquireBookingLock(ctx context.Context, bookingID string, ttl time.Duration) (bool, error)
	ReleaseBookingLock(ctx context.Context, bookingID string) error
}

// ReviewedStoreInterface defines the interface for the reviewed-bookings set.
type ReviewedStoreInterface interface {
	MarkReviewed(ctx context.Context, userID, bookingID string) error
	IsReviewed(ctx context.Context, userID, bookingID string) (bool, error)
	Reviewed(ctx context.Context, userID string) (map[string]bool, error)
}

// Ensure concrete types implement interfaces.
var (
	_ LockStoreInterface     = (*LockStore)(nil)
	_ ReviewedStoreInterface = (*ReviewedStore)(nil)
)
