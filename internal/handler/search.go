package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"carpool/internal/backend"
	"carpool/internal/domain"
	"carpool/internal/service"
)

// SearchHandler handles HTTP requests for ride search.
type SearchHandler struct {
	search  backend.RideSearchAPI
	matcher *service.MatchService
}

// NewSearchHandler creates a new SearchHandler.
func NewSearchHandler(search backend.RideSearchAPI, matcher *service.MatchService) *SearchHandler {
	return &SearchHandler{
		search:  search,
		matcher: matcher,
	}
}

// SearchResponse is the HTTP response for a ranked ride search.
type SearchResponse struct {
	Source      string             `json:"source"`
	Destination string             `json:"destination"`
	Matches     []domain.RideMatch `json:"matches"`
}

// Search handles GET /v1/rides/search
func (h *SearchHandler) Search(c *gin.Context) {
	q := backend.SearchQuery{
		Source:      c.Query("source"),
		Destination: c.Query("destination"),
	}
	if q.Source == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "source is required"})
		return
	}
	if q.Destination == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "destination is required"})
		return
	}
	if raw := c.Query("date"); raw != "" {
		date, err := time.Parse("2006-01-02", raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "date must be YYYY-MM-DD"})
			return
		}
		q.Date = &date
	}

	offers, err := h.search.SearchRides(c.Request.Context(), q)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, SearchResponse{
		Source:      q.Source,
		Destination: q.Destination,
		Matches:     h.matcher.Rank(q, offers),
	})
}
