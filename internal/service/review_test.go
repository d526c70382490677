package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"carpool/internal/backend"
	"carpool/internal/domain"
)

type fakeBookingList struct {
	mu       sync.Mutex
	bookings []*domain.Booking
	err      error
	blocked  chan struct{}
}

func (f *fakeBookingList) CreateBooking(ctx context.Context, req backend.CreateBookingRequest) (*domain.Booking, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeBookingList) ListBookings(ctx context.Context) ([]*domain.Booking, error) {
	if f.blocked != nil {
		<-f.blocked
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := make([]*domain.Booking, len(f.bookings))
	copy(out, f.bookings)
	return out, nil
}

func (f *fakeBookingList) set(bookings ...*domain.Booking) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bookings = bookings
}

type fakeReviewAPI struct {
	mu        sync.Mutex
	pending   []string
	submitted []domain.ReviewSubmission
	submitErr error
}

func (f *fakeReviewAPI) PendingReviews(ctx context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.pending...), nil
}

func (f *fakeReviewAPI) SubmitReview(ctx context.Context, review domain.ReviewSubmission) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.submitErr != nil {
		return f.submitErr
	}
	f.submitted = append(f.submitted, review)
	return nil
}

type memReviewedStore struct {
	mu  sync.Mutex
	set map[string]bool
}

func newMemReviewedStore() *memReviewedStore {
	return &memReviewedStore{set: make(map[string]bool)}
}

func (s *memReviewedStore) MarkReviewed(ctx context.Context, userID, bookingID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.set[bookingID] = true
	return nil
}

func (s *memReviewedStore) IsReviewed(ctx context.Context, userID, bookingID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.set[bookingID], nil
}

func (s *memReviewedStore) Reviewed(ctx context.Context, userID string) (map[string]bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]bool, len(s.set))
	for k := range s.set {
		out[k] = true
	}
	return out, nil
}

func completedBooking(id string) *domain.Booking {
	return &domain.Booking{
		ID:     id,
		RideID: "ride-" + id,
		Status: domain.BookingStatusCompleted,
		Ride: &domain.RideOffer{
			Source:      "Indiranagar",
			Destination: "Whitefield",
			Driver:      domain.DriverSummary{Name: "Ravi"},
		},
	}
}

func newReviewService(bookings *fakeBookingList, reviews *fakeReviewAPI, store *memReviewedStore) *ReviewSyncService {
	svc := NewReviewSyncService(bookings, reviews, store, time.Hour, nil)
	svc.session = domain.Session{UserID: "user-1"}
	return svc
}

func TestSync_DerivesObligationsFromCompletedBookings(t *testing.T) {
	t.Parallel()

	bookings := &fakeBookingList{}
	reviews := &fakeReviewAPI{pending: []string{"b1", "b2"}}
	store := newMemReviewedStore()

	bookings.set(
		completedBooking("b1"),
		completedBooking("b2"),
		&domain.Booking{ID: "b3", Status: domain.BookingStatusPending},
		&domain.Booking{ID: "b4", Status: domain.BookingStatusConfirmed},
	)

	svc := newReviewService(bookings, reviews, store)
	if err := svc.Sync(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	obligations := svc.Obligations()
	if len(obligations) != 2 {
		t.Fatalf("expected 2 obligations, got %d", len(obligations))
	}
	if obligations[0].BookingID != "b1" || obligations[1].BookingID != "b2" {
		t.Errorf("unexpected obligations: %+v", obligations)
	}
	if obligations[0].DriverName != "Ravi" {
		t.Errorf("expected driver name populated, got %q", obligations[0].DriverName)
	}
}

func TestSync_ReviewedBookingsExcluded(t *testing.T) {
	t.Parallel()

	bookings := &fakeBookingList{}
	reviews := &fakeReviewAPI{pending: []string{"b1", "b2"}}
	store := newMemReviewedStore()
	store.set["b1"] = true

	bookings.set(completedBooking("b1"), completedBooking("b2"))

	svc := newReviewService(bookings, reviews, store)
	if err := svc.Sync(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	obligations := svc.Obligations()
	if len(obligations) != 1 || obligations[0].BookingID != "b2" {
		t.Errorf("expected only b2, got %+v", obligations)
	}
}

func TestSync_OverlappingPollSkipped(t *testing.T) {
	t.Parallel()

	blocked := make(chan struct{})
	bookings := &fakeBookingList{blocked: blocked}
	reviews := &fakeReviewAPI{}
	store := newMemReviewedStore()

	svc := newReviewService(bookings, reviews, store)

	done := make(chan error, 1)
	go func() {
		done <- svc.Sync(context.Background())
	}()

	// Let the first sync reach the blocked backend call.
	time.Sleep(20 * time.Millisecond)

	if err := svc.Sync(context.Background()); !errors.Is(err, ErrPollInFlight) {
		t.Errorf("expected ErrPollInFlight, got %v", err)
	}

	close(blocked)
	if err := <-done; err != nil {
		t.Errorf("unexpected error from first sync: %v", err)
	}

	// With the first poll finished, syncing works again.
	if err := svc.Sync(context.Background()); err != nil {
		t.Errorf("expected sync to recover, got %v", err)
	}
}

func TestSubmitReview_RetiresObligation(t *testing.T) {
	t.Parallel()

	bookings := &fakeBookingList{}
	reviews := &fakeReviewAPI{pending: []string{"b1"}}
	store := newMemReviewedStore()

	bookings.set(completedBooking("b1"))

	svc := newReviewService(bookings, reviews, store)
	if err := svc.Sync(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(svc.Obligations()) != 1 {
		t.Fatal("expected one obligation before review")
	}

	err := svc.SubmitReview(context.Background(), domain.ReviewSubmission{BookingID: "b1", Rating: 5})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(svc.Obligations()) != 0 {
		t.Error("expected obligation retired after review")
	}
	if len(reviews.submitted) != 1 {
		t.Errorf("expected one submission, got %d", len(reviews.submitted))
	}

	// A re-sync must not resurrect the reviewed booking.
	if err := svc.Sync(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(svc.Obligations()) != 0 {
		t.Error("reviewed booking reappeared as an obligation")
	}
}

func TestSubmitReview_Validation(t *testing.T) {
	t.Parallel()

	svc := newReviewService(&fakeBookingList{}, &fakeReviewAPI{}, newMemReviewedStore())

	if err := svc.SubmitReview(context.Background(), domain.ReviewSubmission{Rating: 5}); !errors.Is(err, ErrInvalidBookingID) {
		t.Errorf("expected ErrInvalidBookingID, got %v", err)
	}
	if err := svc.SubmitReview(context.Background(), domain.ReviewSubmission{BookingID: "b1", Rating: 0}); !errors.Is(err, ErrInvalidRating) {
		t.Errorf("expected ErrInvalidRating, got %v", err)
	}
	if err := svc.SubmitReview(context.Background(), domain.ReviewSubmission{BookingID: "b1", Rating: 6}); !errors.Is(err, ErrInvalidRating) {
		t.Errorf("expected ErrInvalidRating, got %v", err)
	}
}

func TestStart_SecondStartRejected(t *testing.T) {
	t.Parallel()

	svc := newReviewService(&fakeBookingList{}, &fakeReviewAPI{}, newMemReviewedStore())
	defer svc.Stop()

	if err := svc.Start(context.Background(), domain.Session{UserID: "user-1"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := svc.Start(context.Background(), domain.Session{UserID: "user-1"}); !errors.Is(err, ErrPollerRunning) {
		t.Errorf("expected ErrPollerRunning, got %v", err)
	}

	svc.Stop()
	// Stop is idempotent and a fresh Start works after it.
	svc.Stop()
	if err := svc.Start(context.Background(), domain.Session{UserID: "user-1"}); err != nil {
		t.Errorf("expected restart to succeed, got %v", err)
	}
}
