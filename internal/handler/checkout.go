package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"carpool/internal/domain"
	"carpool/internal/gateway"
	"carpool/internal/service"
)

// CheckoutHandler handles HTTP requests for the booking-to-payment pipeline.
// The checkout endpoints long-poll while the hosted gateway session is open;
// the payment callback endpoints resolve those sessions.
type CheckoutHandler struct {
	checkout *service.CheckoutService
	hosted   *gateway.HostedCheckout
}

// NewCheckoutHandler creates a new CheckoutHandler. hosted may be nil when a
// direct gateway adapter is configured.
func NewCheckoutHandler(checkout *service.CheckoutService, hosted *gateway.HostedCheckout) *CheckoutHandler {
	return &CheckoutHandler{
		checkout: checkout,
		hosted:   hosted,
	}
}

// CheckoutHTTPRequest is the HTTP request body for starting a checkout.
type CheckoutHTTPRequest struct {
	RideID         string  `json:"ride_id"`
	Seats          int     `json:"seats"`
	PickupLocation string  `json:"pickup_location"`
	DropLocation   string  `json:"drop_location"`
	DistanceKm     float64 `json:"distance_km"`
}

// CheckoutResponse is the HTTP response for a checkout attempt, successful or
// not. State tells the client exactly where the pipeline stopped.
type CheckoutResponse struct {
	State     string                 `json:"state"`
	Booking   *domain.Booking        `json:"booking,omitempty"`
	OrderID   string                 `json:"order_id,omitempty"`
	PaymentID string                 `json:"payment_id,omitempty"`
	Payment   string                 `json:"payment_status,omitempty"`
	Receipt   *domain.GatewayReceipt `json:"receipt,omitempty"`
	Error     string                 `json:"error,omitempty"`
	Retryable bool                   `json:"retryable,omitempty"`
	Fatal     bool                   `json:"fatal,omitempty"`
}

// Checkout handles POST /v1/checkout
func (h *CheckoutHandler) Checkout(c *gin.Context) {
	var req CheckoutHTTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	result, err := h.checkout.Checkout(c.Request.Context(), sessionFrom(c), service.CheckoutRequest{
		RideID:         req.RideID,
		Seats:          req.Seats,
		PickupLocation: req.PickupLocation,
		DropLocation:   req.DropLocation,
		DistanceKm:     req.DistanceKm,
	})
	h.respondCheckout(c, result, err)
}

// Resume handles POST /v1/checkout/:bookingID/resume
func (h *CheckoutHandler) Resume(c *gin.Context) {
	result, err := h.checkout.Resume(c.Request.Context(), sessionFrom(c), c.Param("bookingID"))
	h.respondCheckout(c, result, err)
}

// VerifyRequest is the HTTP request body for completing a verification whose
// first attempt timed out.
type VerifyRequest struct {
	OrderID   string `json:"order_id"`
	PaymentID string `json:"payment_id"`
	Signature string `json:"signature"`
}

// CompleteVerification handles POST /v1/checkout/verify
func (h *CheckoutHandler) CompleteVerification(c *gin.Context) {
	var req VerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	result, err := h.checkout.CompleteVerification(c.Request.Context(), sessionFrom(c), domain.GatewayReceipt{
		OrderID:   req.OrderID,
		PaymentID: req.PaymentID,
		Signature: req.Signature,
	})
	h.respondCheckout(c, result, err)
}

// respondCheckout serializes a checkout result. Errors still carry the
// partial result so the client can resume or re-verify.
func (h *CheckoutHandler) respondCheckout(c *gin.Context, result *service.CheckoutResult, err error) {
	resp := CheckoutResponse{State: string(service.StateIdle)}
	if result != nil {
		resp.State = string(result.State)
		resp.Booking = result.Booking
		resp.Payment = string(result.Payment)
		resp.Receipt = result.Receipt
		if result.Intent != nil {
			resp.OrderID = result.Intent.OrderID
		}
		if result.Receipt != nil {
			resp.PaymentID = result.Receipt.PaymentID
			if resp.OrderID == "" {
				resp.OrderID = result.Receipt.OrderID
			}
		}
	}

	if err != nil {
		resp.Error = err.Error()
		resp.Retryable = service.Retryable(err)
		resp.Fatal = service.Fatal(err)
		respondJSON(c, mapErrorToHTTPStatus(err), resp)
		return
	}
	respondJSON(c, http.StatusOK, resp)
}

// CallbackRequest is the hosted widget's success callback body.
type CallbackRequest struct {
	OrderID   string `json:"order_id"`
	PaymentID string `json:"payment_id"`
	Signature string `json:"signature"`
}

// PaymentCallback handles POST /v1/payments/callback
func (h *CheckoutHandler) PaymentCallback(c *gin.Context) {
	var req CallbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}
	if err := h.hosted.Resolve(domain.GatewayReceipt{
		OrderID:   req.OrderID,
		PaymentID: req.PaymentID,
		Signature: req.Signature,
	}); err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, gin.H{"status": "accepted"})
}

// PaymentCancelled handles POST /v1/payments/:orderID/cancel
func (h *CheckoutHandler) PaymentCancelled(c *gin.Context) {
	if err := h.hosted.Dismiss(c.Param("orderID")); err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, gin.H{"status": "accepted"})
}

// FailureRequest is the hosted widget's failure callback body.
type FailureRequest struct {
	Reason string `json:"reason"`
}

// PaymentFailed handles POST /v1/payments/:orderID/failed
func (h *CheckoutHandler) PaymentFailed(c *gin.Context) {
	var req FailureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}
	if req.Reason == "" {
		req.Reason = "payment failed"
	}
	if err := h.hosted.Fail(c.Param("orderID"), req.Reason); err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, gin.H{"status": "accepted"})
}
