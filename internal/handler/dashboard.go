package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"carpool/internal/backend"
	"carpool/internal/domain"
	"carpool/internal/service"
)

// DashboardHandler serves the rider's bookings and review obligations.
type DashboardHandler struct {
	bookings backend.BookingAPI
	reviews  *service.ReviewSyncService
}

// NewDashboardHandler creates a new DashboardHandler.
func NewDashboardHandler(bookings backend.BookingAPI, reviews *service.ReviewSyncService) *DashboardHandler {
	return &DashboardHandler{
		bookings: bookings,
		reviews:  reviews,
	}
}

// ListBookings handles GET /v1/bookings
func (h *DashboardHandler) ListBookings(c *gin.Context) {
	bookings, err := h.bookings.ListBookings(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, gin.H{"bookings": bookings})
}

// PendingReviews handles GET /v1/reviews/pending
func (h *DashboardHandler) PendingReviews(c *gin.Context) {
	respondJSON(c, http.StatusOK, gin.H{"obligations": h.reviews.Obligations()})
}

// SyncNow handles POST /v1/reviews/sync. Conflicts when a poll is in flight.
func (h *DashboardHandler) SyncNow(c *gin.Context) {
	if err := h.reviews.Sync(c.Request.Context()); err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, gin.H{"obligations": h.reviews.Obligations()})
}

// SubmitReviewRequest is the HTTP request body for submitting a review.
type SubmitReviewRequest struct {
	BookingID string `json:"booking_id"`
	Rating    int    `json:"rating"`
	Comment   string `json:"comment,omitempty"`
}

// SubmitReview handles POST /v1/reviews
func (h *DashboardHandler) SubmitReview(c *gin.Context) {
	var req SubmitReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	err := h.reviews.SubmitReview(c.Request.Context(), domain.ReviewSubmission{
		BookingID: req.BookingID,
		Rating:    req.Rating,
		Comment:   req.Comment,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusCreated, gin.H{"status": "submitted"})
}
