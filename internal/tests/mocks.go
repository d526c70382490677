package tests

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"carpool/internal/backend"
	"carpool/internal/domain"
	"carpool/internal/gateway"
	"carpool/internal/service"
)

// ──────────────────────────────────────────────
// MOCK BOOKING API
// ──────────────────────────────────────────────

// MockBookingAPI is a mock implementation of backend.BookingAPI.
type MockBookingAPI struct {
	mu       sync.RWMutex
	bookings map[string]*domain.Booking
	nextID   int

	// Counters for verification
	CreateCallCount int32
	ListCallCount   int32

	// Error injection
	CreateError error
	ListError   error

	// Seats remaining per ride; CreateBooking decrements.
	seats map[string]int
}

// NewMockBookingAPI creates a new mock booking API.
func NewMockBookingAPI() *MockBookingAPI {
	return &MockBookingAPI{
		bookings: make(map[string]*domain.Booking),
		seats:    make(map[string]int),
	}
}

// SetSeats sets the remaining capacity for a ride.
func (m *MockBookingAPI) SetSeats(rideID string, seats int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seats[rideID] = seats
}

// AddBooking seeds an existing booking.
func (m *MockBookingAPI) AddBooking(b *domain.Booking) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bookings[b.ID] = b
}

func (m *MockBookingAPI) CreateBooking(ctx context.Context, req backend.CreateBookingRequest) (*domain.Booking, error) {
	atomic.AddInt32(&m.CreateCallCount, 1)
	if m.CreateError != nil {
		return nil, m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if remaining, ok := m.seats[req.RideID]; ok {
		if remaining < req.Seats {
			return nil, backend.ErrSeatsUnavailable
		}
		m.seats[req.RideID] = remaining - req.Seats
	}

	m.nextID++
	booking := &domain.Booking{
		ID:             fmt.Sprintf("booking-%d", m.nextID),
		RideID:         req.RideID,
		Seats:          req.Seats,
		PickupLocation: req.PickupLocation,
		DropLocation:   req.DropLocation,
		DistanceKm:     req.DistanceKm,
		Status:         domain.BookingStatusPending,
		CreatedAt:      time.Now(),
	}
	m.bookings[booking.ID] = booking
	copy := *booking
	return &copy, nil
}

func (m *MockBookingAPI) ListBookings(ctx context.Context) ([]*domain.Booking, error) {
	atomic.AddInt32(&m.ListCallCount, 1)
	if m.ListError != nil {
		return nil, m.ListError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*domain.Booking, 0, len(m.bookings))
	for _, b := range m.bookings {
		copy := *b
		result = append(result, &copy)
	}
	return result, nil
}

// SetStatus updates a seeded booking's status, simulating a driver-side
// transition.
func (m *MockBookingAPI) SetStatus(bookingID string, status domain.BookingStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if b, ok := m.bookings[bookingID]; ok {
		b.Status = status
	}
}

// GetBooking returns the stored booking for test assertions.
func (m *MockBookingAPI) GetBooking(id string) *domain.Booking {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.bookings[id]
}

// ──────────────────────────────────────────────
// MOCK PAYMENT API
// ──────────────────────────────────────────────

// MockPaymentAPI is a mock implementation of backend.PaymentAPI.
type MockPaymentAPI struct {
	mu     sync.Mutex
	orders map[string]*domain.PaymentIntent
	nextID int

	// Counters for verification
	CreateOrderCallCount   int32
	VerifyCallCount        int32
	ReportFailureCallCount int32

	// Error injection
	CreateOrderError error
	VerifyError      error

	// VerifyAnswer is returned by VerifyPayment when VerifyError is nil.
	VerifyAnswer backend.VerifyResult

	// LastFailureReason records the most recent ReportFailure call.
	LastFailureReason string
}

// NewMockPaymentAPI creates a new mock payment API.
func NewMockPaymentAPI() *MockPaymentAPI {
	return &MockPaymentAPI{
		orders:       make(map[string]*domain.PaymentIntent),
		VerifyAnswer: backend.VerifyResult{Verified: true, Status: domain.PaymentStatusSuccess},
	}
}

func (m *MockPaymentAPI) CreateOrder(ctx context.Context, bookingID string) (*domain.PaymentIntent, error) {
	atomic.AddInt32(&m.CreateOrderCallCount, 1)
	if m.CreateOrderError != nil {
		return nil, m.CreateOrderError
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	// Same booking gets the same still-open order back.
	for _, intent := range m.orders {
		if intent.BookingID == bookingID {
			copy := *intent
			return &copy, nil
		}
	}

	m.nextID++
	intent := &domain.PaymentIntent{
		OrderID:     fmt.Sprintf("order-%d", m.nextID),
		BookingID:   bookingID,
		Amount:      780,
		AmountMinor: 78000,
		Currency:    "INR",
		GatewayKey:  "key-test",
	}
	m.orders[intent.OrderID] = intent
	copy := *intent
	return &copy, nil
}

func (m *MockPaymentAPI) VerifyPayment(ctx context.Context, receipt domain.GatewayReceipt) (backend.VerifyResult, error) {
	atomic.AddInt32(&m.VerifyCallCount, 1)
	if m.VerifyError != nil {
		return backend.VerifyResult{}, m.VerifyError
	}
	if err := ctx.Err(); err != nil {
		return backend.VerifyResult{}, err
	}
	return m.VerifyAnswer, nil
}

func (m *MockPaymentAPI) ReportFailure(ctx context.Context, orderID, reason string) error {
	atomic.AddInt32(&m.ReportFailureCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LastFailureReason = reason
	return nil
}

// OrderCount returns the number of distinct orders created.
func (m *MockPaymentAPI) OrderCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.orders)
}

// ──────────────────────────────────────────────
// MOCK GATEWAY ADAPTER
// ──────────────────────────────────────────────

// MockGateway is a scriptable implementation of gateway.Adapter. Outcomes
// are consumed in order; when the script is exhausted it succeeds.
type MockGateway struct {
	mu      sync.Mutex
	script  []error
	nextPay int

	OpenCallCount int32
}

// NewMockGateway creates a new mock gateway adapter.
func NewMockGateway() *MockGateway {
	return &MockGateway{}
}

// ScriptOutcome queues the error returned by the next Open call. nil means
// the payment succeeds.
func (m *MockGateway) ScriptOutcome(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.script = append(m.script, err)
}

func (m *MockGateway) Open(ctx context.Context, intent domain.PaymentIntent, prefill domain.Prefill) (domain.GatewayReceipt, error) {
	atomic.AddInt32(&m.OpenCallCount, 1)
	m.mu.Lock()
	var scripted error
	if len(m.script) > 0 {
		scripted = m.script[0]
		m.script = m.script[1:]
	}
	m.nextPay++
	payID := fmt.Sprintf("pay-%d", m.nextPay)
	m.mu.Unlock()

	if scripted != nil {
		return domain.GatewayReceipt{}, scripted
	}
	return domain.GatewayReceipt{
		OrderID:   intent.OrderID,
		PaymentID: payID,
		Signature: "sig-" + intent.OrderID,
	}, nil
}

var _ gateway.Adapter = (*MockGateway)(nil)

// ──────────────────────────────────────────────
// MOCK LOCK STORE
// ──────────────────────────────────────────────

// MockLockStore is an in-memory implementation of the booking lock store.
type MockLockStore struct {
	mu    sync.Mutex
	locks map[string]bool

	AcquireCallCount int32
	ReleaseCallCount int32

	AcquireError error
}

// NewMockLockStore creates a new mock lock store.
func NewMockLockStore() *MockLockStore {
	return &MockLockStore{locks: make(map[string]bool)}
}

func (m *MockLockStore) AcquireBookingLock(ctx context.Context, bookingID string, ttl time.Duration) (bool, error) {
	atomic.AddInt32(&m.AcquireCallCount, 1)
	if m.AcquireError != nil {
		return false, m.AcquireError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.locks[bookingID] {
		return false, nil
	}
	m.locks[bookingID] = true
	return true, nil
}

func (m *MockLockStore) ReleaseBookingLock(ctx context.Context, bookingID string) error {
	atomic.AddInt32(&m.ReleaseCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.locks, bookingID)
	return nil
}

// Held reports whether the booking's lock is currently taken.
func (m *MockLockStore) Held(bookingID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.locks[bookingID]
}

// ──────────────────────────────────────────────
// MOCK REVIEWED STORE
// ──────────────────────────────────────────────

// MockReviewedStore is an in-memory implementation of the reviewed-bookings set.
type MockReviewedStore struct {
	mu       sync.Mutex
	reviewed map[string]map[string]bool

	MarkError error
}

// NewMockReviewedStore creates a new mock reviewed store.
func NewMockReviewedStore() *MockReviewedStore {
	return &MockReviewedStore{reviewed: make(map[string]map[string]bool)}
}

func (m *MockReviewedStore) MarkReviewed(ctx context.Context, userID, bookingID string) error {
	if m.MarkError != nil {
		return m.MarkError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.reviewed[userID] == nil {
		m.reviewed[userID] = make(map[string]bool)
	}
	m.reviewed[userID][bookingID] = true
	return nil
}

func (m *MockReviewedStore) IsReviewed(ctx context.Context, userID, bookingID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reviewed[userID][bookingID], nil
}

func (m *MockReviewedStore) Reviewed(ctx context.Context, userID string) (map[string]bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]bool, len(m.reviewed[userID]))
	for id := range m.reviewed[userID] {
		out[id] = true
	}
	return out, nil
}

// ──────────────────────────────────────────────
// MOCK REVIEW API
// ──────────────────────────────────────────────

// MockReviewAPI is a mock implementation of backend.ReviewAPI.
type MockReviewAPI struct {
	mu      sync.Mutex
	pending []string
	submits []domain.ReviewSubmission

	SubmitCallCount int32
	PendingError    error
	SubmitError     error
}

// NewMockReviewAPI creates a new mock review API.
func NewMockReviewAPI() *MockReviewAPI {
	return &MockReviewAPI{}
}

// SetPending sets the backend's pending-review ids.
func (m *MockReviewAPI) SetPending(ids ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending = ids
}

func (m *MockReviewAPI) PendingReviews(ctx context.Context) ([]string, error) {
	if m.PendingError != nil {
		return nil, m.PendingError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.pending...), nil
}

func (m *MockReviewAPI) SubmitReview(ctx context.Context, review domain.ReviewSubmission) error {
	atomic.AddInt32(&m.SubmitCallCount, 1)
	if m.SubmitError != nil {
		return m.SubmitError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.submits = append(m.submits, review)
	return nil
}

// Submitted returns the recorded submissions.
func (m *MockReviewAPI) Submitted() []domain.ReviewSubmission {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.ReviewSubmission(nil), m.submits...)
}

// ──────────────────────────────────────────────
// MOCK DISTANCE API
// ──────────────────────────────────────────────

// MockDistanceAPI is a mock implementation of backend.DistanceAPI.
type MockDistanceAPI struct {
	mu     sync.Mutex
	routes map[string]domain.RouteInfo

	CallCount int32
	Err       error

	// Delay simulates a slow remote response.
	Delay time.Duration
}

// NewMockDistanceAPI creates a new mock distance API.
func NewMockDistanceAPI() *MockDistanceAPI {
	return &MockDistanceAPI{routes: make(map[string]domain.RouteInfo)}
}

// SetRoute sets the route details returned for an origin/destination pair.
func (m *MockDistanceAPI) SetRoute(origin, destination string, info domain.RouteInfo) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.routes[origin+"|"+destination] = info
}

func (m *MockDistanceAPI) DistanceDetails(ctx context.Context, origin, destination string) (domain.RouteInfo, error) {
	atomic.AddInt32(&m.CallCount, 1)
	if m.Delay > 0 {
		select {
		case <-time.After(m.Delay):
		case <-ctx.Done():
			return domain.RouteInfo{}, ctx.Err()
		}
	}
	if m.Err != nil {
		return domain.RouteInfo{}, m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if info, ok := m.routes[origin+"|"+destination]; ok {
		return info, nil
	}
	return domain.RouteInfo{DistanceKm: 10, DurationMin: 20}, nil
}

// ──────────────────────────────────────────────
// MOCK EVENT PUBLISHER
// ──────────────────────────────────────────────

// MockPublisher records published checkout events.
type MockPublisher struct {
	mu     sync.Mutex
	events []service.CheckoutEvent
}

// NewMockPublisher creates a new mock event publisher.
func NewMockPublisher() *MockPublisher {
	return &MockPublisher{}
}

func (m *MockPublisher) PublishCheckout(ctx context.Context, event service.CheckoutEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return nil
}

// States returns the published terminal states in order.
func (m *MockPublisher) States() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.events))
	for _, e := range m.events {
		out = append(out, string(e.State))
	}
	return out
}
