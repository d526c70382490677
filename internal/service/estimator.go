package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"carpool/internal/backend"
	"carpool/internal/domain"
	"carpool/internal/observability"
)

const (
	defaultQuietWindow  = 800 * time.Millisecond
	defaultFetchTimeout = 10 * time.Second
)

// EstimateInput is one snapshot of the rider's booking form.
type EstimateInput struct {
	Pickup     string
	Drop       string
	Seats      int
	PricePerKm float64
}

// EstimateUpdate is delivered whenever the visible estimate changes. Err set
// means the estimate was cleared; the error is retryable.
type EstimateUpdate struct {
	Seq      uint64
	Input    EstimateInput
	Estimate *domain.FareEstimate
	Err      error
}

// FareEstimator turns booking-form input into fare estimates. Bursts of input
// within the quiet window coalesce into one remote call, and each request
// carries a monotonically increasing sequence number: only the response for
// the last-issued request may update the visible estimate, so a slow stale
// response can never overwrite a newer one.
type FareEstimator struct {
	distances backend.DistanceAPI
	pricing   Pricing
	quiet     time.Duration
	timeout   time.Duration
	onUpdate  func(EstimateUpdate)

	mu      sync.Mutex
	seq     uint64
	pending EstimateInput
	timer   *time.Timer
	current *domain.FareEstimate
	closed  bool
}

// NewFareEstimator creates an estimator. onUpdate may be nil; quiet <= 0 uses
// the default window.
func NewFareEstimator(distances backend.DistanceAPI, pricing Pricing, quiet time.Duration, onUpdate func(EstimateUpdate)) *FareEstimator {
	if quiet <= 0 {
		quiet = defaultQuietWindow
	}
	return &FareEstimator{
		distances: distances,
		pricing:   pricing,
		quiet:     quiet,
		timeout:   defaultFetchTimeout,
		onUpdate:  onUpdate,
	}
}

// Request records a new input snapshot. The remote call is issued only after
// the quiet window elapses with no further input.
func (e *FareEstimator) Request(in EstimateInput) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return
	}

	e.seq++
	gen := e.seq
	e.pending = in

	if e.timer != nil {
		e.timer.Stop()
	}
	e.timer = time.AfterFunc(e.quiet, func() { e.fire(gen) })
}

// fire dispatches the remote lookup if the generation is still the latest.
func (e *FareEstimator) fire(gen uint64) {
	e.mu.Lock()
	if e.closed || gen != e.seq {
		e.mu.Unlock()
		return
	}
	in := e.pending
	e.mu.Unlock()

	go e.fetch(gen, in)
}

func (e *FareEstimator) fetch(gen uint64, in EstimateInput) {
	ctx, cancel := context.WithTimeout(context.Background(), e.timeout)
	defer cancel()

	estimate, err := e.estimate(ctx, in)
	e.apply(gen, in, estimate, err)
}

// estimate resolves distance remotely and prices it locally.
func (e *FareEstimator) estimate(ctx context.Context, in EstimateInput) (domain.FareEstimate, error) {
	if in.Pickup == "" {
		return domain.FareEstimate{}, ErrInvalidPickupLocation
	}
	if in.Drop == "" {
		return domain.FareEstimate{}, ErrInvalidDropLocation
	}

	route, err := e.distances.DistanceDetails(ctx, in.Pickup, in.Drop)
	if err != nil {
		return domain.FareEstimate{}, fmt.Errorf("%w: %v", ErrEstimateUnavailable, err)
	}

	estimate, err := e.pricing.Breakdown(route.DistanceKm, in.PricePerKm, in.Seats)
	if err != nil {
		return domain.FareEstimate{}, err
	}
	estimate.DurationMin = route.DurationMin

	observability.FareEstimatesTotal.Inc()
	return estimate, nil
}

// apply installs the result only if gen is still the latest issued request.
func (e *FareEstimator) apply(gen uint64, in EstimateInput, estimate domain.FareEstimate, err error) {
	e.mu.Lock()
	if e.closed || gen != e.seq {
		e.mu.Unlock()
		observability.FareEstimatesStale.Inc()
		return
	}

	update := EstimateUpdate{Seq: gen, Input: in, Err: err}
	if err != nil {
		// Never show stale numbers after a failure.
		e.current = nil
	} else {
		copied := estimate
		e.current = &copied
		update.Estimate = &copied
	}
	cb := e.onUpdate
	e.mu.Unlock()

	if cb != nil {
		cb(update)
	}
}

// Current returns the visible estimate, if any.
func (e *FareEstimator) Current() (domain.FareEstimate, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.current == nil {
		return domain.FareEstimate{}, false
	}
	return *e.current, true
}

// EstimateNow bypasses the debounce machinery for one-shot callers.
func (e *FareEstimator) EstimateNow(ctx context.Context, in EstimateInput) (domain.FareEstimate, error) {
	return e.estimate(ctx, in)
}

// Close stops the pending timer and discards any in-flight result.
func (e *FareEstimator) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	if e.timer != nil {
		e.timer.Stop()
	}
}
