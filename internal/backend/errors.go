package backend

import "errors"

var (
	// ErrNotFound is returned when a requested resource does not exist.
	ErrNotFound = errors.New("resource not found")

	// ErrSeatsUnavailable is returned when the requested seats exceed the
	// ride's remaining capacity.
	ErrSeatsUnavailable = errors.New("not enough seats available")

	// ErrOrderRejected is returned when the backend refuses to create a
	// payment order for a booking.
	ErrOrderRejected = errors.New("payment order rejected")

	// ErrUnavailable is returned when the backend responds with a server
	// error or cannot be reached.
	ErrUnavailable = errors.New("backend unavailable")
)
