package handler

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"carpool/internal/backend"
	"carpool/internal/domain"
	"carpool/internal/service"
)

// EstimateHandler handles fare estimation, both one-shot and streaming.
type EstimateHandler struct {
	distances backend.DistanceAPI
	pricing   service.Pricing
	quiet     time.Duration
	logger    *slog.Logger
	upgrader  websocket.Upgrader

	// one-shot requests share a single estimator; streaming connections get
	// their own so debounce state stays per rider.
	oneShot *service.FareEstimator
}

// NewEstimateHandler creates a new EstimateHandler.
func NewEstimateHandler(distances backend.DistanceAPI, pricing service.Pricing, quiet time.Duration, logger *slog.Logger) *EstimateHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &EstimateHandler{
		distances: distances,
		pricing:   pricing,
		quiet:     quiet,
		logger:    logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
		oneShot: service.NewFareEstimator(distances, pricing, quiet, nil),
	}
}

// EstimateRequest is the HTTP request body for a fare estimate.
type EstimateRequest struct {
	Pickup     string  `json:"pickup"`
	Drop       string  `json:"drop"`
	Seats      int     `json:"seats"`
	PricePerKm float64 `json:"price_per_km"`
}

// Estimate handles POST /v1/fare/estimate
func (h *EstimateHandler) Estimate(c *gin.Context) {
	var req EstimateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	estimate, err := h.oneShot.EstimateNow(c.Request.Context(), service.EstimateInput{
		Pickup:     req.Pickup,
		Drop:       req.Drop,
		Seats:      req.Seats,
		PricePerKm: req.PricePerKm,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, estimate)
}

// streamUpdate is one message pushed over the estimate stream.
type streamUpdate struct {
	Seq      uint64               `json:"seq"`
	Estimate *domain.FareEstimate `json:"estimate,omitempty"`
	Error    string               `json:"error,omitempty"`
}

// Stream handles GET /v1/fare/stream. The client sends EstimateRequest frames
// as the rider edits the booking form; debounced estimates come back on the
// same connection, stale responses already filtered out.
func (h *EstimateHandler) Stream(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	var writeMu sync.Mutex
	estimator := service.NewFareEstimator(h.distances, h.pricing, h.quiet, func(u service.EstimateUpdate) {
		msg := streamUpdate{Seq: u.Seq, Estimate: u.Estimate}
		if u.Err != nil {
			msg.Error = u.Err.Error()
		}
		writeMu.Lock()
		defer writeMu.Unlock()
		if err := conn.WriteJSON(msg); err != nil {
			h.logger.Debug("estimate stream write", "error", err)
		}
	})
	defer estimator.Close()

	for {
		var req EstimateRequest
		if err := conn.ReadJSON(&req); err != nil {
			return
		}
		estimator.Request(service.EstimateInput{
			Pickup:     req.Pickup,
			Drop:       req.Drop,
			Seats:      req.Seats,
			PricePerKm: req.PricePerKm,
		})
	}
}
