package service

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"carpool/internal/backend"
	"carpool/internal/domain"
	"carpool/internal/observability"
	redisstore "carpool/internal/redis"
)

const defaultPollInterval = 15 * time.Second

// ReviewSyncService polls booking state to catch transitions made by other
// actors (a driver completing a ride) and derives the rider's review
// obligations: COMPLETED bookings minus already-reviewed ones. It runs only
// while a dashboard view is mounted and stops cleanly on teardown.
type ReviewSyncService struct {
	bookings backend.BookingAPI
	reviews  backend.ReviewAPI
	reviewed redisstore.ReviewedStoreInterface
	interval time.Duration
	logger   *slog.Logger

	mu          sync.Mutex
	session     domain.Session
	obligations map[string]domain.ReviewObligation
	cancel      context.CancelFunc
	running     bool

	inFlight atomic.Bool
}

// NewReviewSyncService creates a poller. interval <= 0 uses the default.
func NewReviewSyncService(
	bookings backend.BookingAPI,
	reviews backend.ReviewAPI,
	reviewed redisstore.ReviewedStoreInterface,
	interval time.Duration,
	logger *slog.Logger,
) *ReviewSyncService {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ReviewSyncService{
		bookings:    bookings,
		reviews:     reviews,
		reviewed:    reviewed,
		interval:    interval,
		logger:      logger,
		obligations: make(map[string]domain.ReviewObligation),
	}
}

// Start begins polling on the fixed interval for the given rider. It returns
// ErrPollerRunning if already started. Stop (or cancelling ctx) ends the loop.
func (s *ReviewSyncService) Start(ctx context.Context, session domain.Session) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return ErrPollerRunning
	}
	loopCtx, cancel := context.WithCancel(ctx)
	s.session = session
	s.cancel = cancel
	s.running = true
	s.mu.Unlock()

	go s.loop(loopCtx)
	return nil
}

// Stop cancels the polling loop. Safe to call more than once.
func (s *ReviewSyncService) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	s.cancel()
	s.running = false
}

func (s *ReviewSyncService) loop(ctx context.Context) {
	// Refresh immediately so the dashboard is not blank for one interval.
	if err := s.Sync(ctx); err != nil {
		s.logger.Warn("initial status sync", "error", err)
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.Sync(ctx); err != nil {
				s.logger.Warn("status sync", "error", err)
			}
		}
	}
}

// Sync performs one poll. Overlapping calls are skipped, never queued: if the
// previous poll has not returned the tick is dropped with ErrPollInFlight.
func (s *ReviewSyncService) Sync(ctx context.Context) error {
	if !s.inFlight.CompareAndSwap(false, true) {
		observability.StatusPollsSkipped.Inc()
		return ErrPollInFlight
	}
	defer s.inFlight.Store(false)

	s.mu.Lock()
	session := s.session
	s.mu.Unlock()

	bookings, err := s.bookings.ListBookings(ctx)
	if err != nil {
		return fmt.Errorf("list bookings: %w", err)
	}

	reviewedSet, err := s.reviewed.Reviewed(ctx, session.UserID)
	if err != nil {
		return fmt.Errorf("load reviewed set: %w", err)
	}

	// Cross-check against the backend's own eligibility list when it
	// answers; a failure there must not block the local diff.
	eligible := map[string]bool(nil)
	if ids, err := s.reviews.PendingReviews(ctx); err == nil {
		eligible = make(map[string]bool, len(ids))
		for _, id := range ids {
			eligible[id] = true
		}
	}

	next := make(map[string]domain.ReviewObligation)
	for _, b := range bookings {
		if b.Status != domain.BookingStatusCompleted {
			continue
		}
		if reviewedSet[b.ID] {
			continue
		}
		if eligible != nil && !eligible[b.ID] {
			continue
		}
		next[b.ID] = obligationFor(b)
	}

	s.mu.Lock()
	s.obligations = next
	s.mu.Unlock()

	observability.ReviewObligationsPending.Set(float64(len(next)))
	return nil
}

// Obligations returns the current derived set, ordered by booking id.
func (s *ReviewSyncService) Obligations() []domain.ReviewObligation {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.ReviewObligation, 0, len(s.obligations))
	for _, o := range s.obligations {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BookingID < out[j].BookingID })
	return out
}

// SubmitReview sends the rating, marks the booking reviewed, and retires its
// obligation so it never reappears.
func (s *ReviewSyncService) SubmitReview(ctx context.Context, review domain.ReviewSubmission) error {
	if review.BookingID == "" {
		return ErrInvalidBookingID
	}
	if review.Rating < 1 || review.Rating > 5 {
		return ErrInvalidRating
	}

	if err := s.reviews.SubmitReview(ctx, review); err != nil {
		return fmt.Errorf("submit review: %w", err)
	}

	s.mu.Lock()
	session := s.session
	delete(s.obligations, review.BookingID)
	remaining := len(s.obligations)
	s.mu.Unlock()

	observability.ReviewObligationsPending.Set(float64(remaining))

	if err := s.reviewed.MarkReviewed(ctx, session.UserID, review.BookingID); err != nil {
		// The next poll will re-diff against the backend's pending list,
		// so a lost marker self-heals; log and move on.
		s.logger.Warn("mark reviewed", "booking_id", review.BookingID, "error", err)
	}
	return nil
}

func obligationFor(b *domain.Booking) domain.ReviewObligation {
	o := domain.ReviewObligation{BookingID: b.ID, RideID: b.RideID}
	if b.Ride != nil {
		o.Route = b.Ride.Source + " -> " + b.Ride.Destination
		o.DriverName = b.Ride.Driver.Name
		o.CompletedAt = b.Ride.DepartureTime
	}
	return o
}
