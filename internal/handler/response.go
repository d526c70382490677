package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"carpool/internal/backend"
	"carpool/internal/gateway"
	"carpool/internal/service"
)

// ErrorResponse represents an error response. Retryable tells the client the
// same operation may be attempted again; Fatal means support intervention.
type ErrorResponse struct {
	Error     string `json:"error"`
	Retryable bool   `json:"retryable,omitempty"`
	Fatal     bool   `json:"fatal,omitempty"`
}

// respondError sends an error response with the appropriate HTTP status code.
func respondError(c *gin.Context, err error) {
	code := mapErrorToHTTPStatus(err)
	c.JSON(code, ErrorResponse{
		Error:     err.Error(),
		Retryable: service.Retryable(err),
		Fatal:     service.Fatal(err),
	})
}

// respondJSON sends a JSON response with the given status code.
func respondJSON(c *gin.Context, code int, data any) {
	c.JSON(code, data)
}

// mapErrorToHTTPStatus maps service/backend errors to HTTP status codes.
func mapErrorToHTTPStatus(err error) int {
	var orderErr *service.OrderCreationError
	var verifyErr *service.VerificationError
	var netErr *service.NetworkError

	switch {
	// Not found errors
	case errors.Is(err, service.ErrBookingNotFound),
		errors.Is(err, backend.ErrNotFound),
		errors.Is(err, gateway.ErrNoSession):
		return http.StatusNotFound

	// Validation errors - Bad Request
	case errors.Is(err, service.ErrInvalidRideID),
		errors.Is(err, service.ErrInvalidBookingID),
		errors.Is(err, service.ErrInvalidOrderID),
		errors.Is(err, service.ErrInvalidSeats),
		errors.Is(err, service.ErrInvalidPickupLocation),
		errors.Is(err, service.ErrInvalidDropLocation),
		errors.Is(err, service.ErrInvalidDistance),
		errors.Is(err, service.ErrInvalidRate),
		errors.Is(err, service.ErrInvalidRating):
		return http.StatusBadRequest

	// Conflict errors
	case errors.Is(err, service.ErrSeatsUnavailable),
		errors.Is(err, service.ErrBookingNotPending),
		errors.Is(err, service.ErrCheckoutInProgress),
		errors.Is(err, service.ErrPollerRunning),
		errors.Is(err, service.ErrPollInFlight):
		return http.StatusConflict

	// Gateway exits: the payment did not complete but the request itself
	// was well-formed. 402 keeps them distinguishable from validation.
	case errors.Is(err, service.ErrGatewayCancelled),
		errors.Is(err, service.ErrGatewayFailed):
		return http.StatusPaymentRequired

	// Verification mismatch is fatal and must not look retryable.
	case errors.As(err, &verifyErr):
		return http.StatusConflict

	// Order creation rejected by the backend.
	case errors.As(err, &orderErr):
		return http.StatusBadGateway

	// Transport failures talking to the platform or gateway.
	case errors.As(err, &netErr),
		errors.Is(err, service.ErrEstimateUnavailable),
		errors.Is(err, backend.ErrUnavailable):
		return http.StatusBadGateway

	// Default to internal server error
	default:
		return http.StatusInternalServerError
	}
}
