package app

import (
	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"carpool/internal/handler"
	"carpool/internal/middleware"
)

// RouterDeps contains all dependencies needed for the router.
type RouterDeps struct {
	SearchHandler    *handler.SearchHandler
	EstimateHandler  *handler.EstimateHandler
	CheckoutHandler  *handler.CheckoutHandler
	DashboardHandler *handler.DashboardHandler
	RedisClient      *redis.Client
	NewRelicApp      *newrelic.Application
}

// NewRouter creates a new Gin router with all routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	router := gin.New()

	// Global middleware.
	router.Use(gin.Recovery())
	router.Use(gin.Logger())
	router.Use(middleware.CORSMiddleware())
	router.Use(middleware.MetricsMiddleware())

	// Add New Relic middleware if enabled.
	if deps.NewRelicApp != nil {
		router.Use(nrgin.Middleware(deps.NewRelicApp))
	}

	router.Use(middleware.IdempotencyMiddleware(deps.RedisClient))

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API v1 routes.
	v1 := router.Group("/v1")
	{
		// Ride search.
		rides := v1.Group("/rides")
		{
			rides.GET("/search", deps.SearchHandler.Search)
		}

		// Fare estimation.
		fare := v1.Group("/fare")
		{
			fare.POST("/estimate", deps.EstimateHandler.Estimate)
			fare.GET("/stream", deps.EstimateHandler.Stream)
		}

		// Checkout pipeline.
		checkout := v1.Group("/checkout")
		{
			checkout.POST("", deps.CheckoutHandler.Checkout)
			checkout.POST("/:bookingID/resume", deps.CheckoutHandler.Resume)
			checkout.POST("/verify", deps.CheckoutHandler.CompleteVerification)
		}

		// Hosted gateway callbacks.
		payments := v1.Group("/payments")
		{
			payments.POST("/callback", deps.CheckoutHandler.PaymentCallback)
			payments.POST("/:orderID/cancel", deps.CheckoutHandler.PaymentCancelled)
			payments.POST("/:orderID/failed", deps.CheckoutHandler.PaymentFailed)
		}

		// Bookings and reviews.
		v1.GET("/bookings", deps.DashboardHandler.ListBookings)
		reviews := v1.Group("/reviews")
		{
			reviews.GET("/pending", deps.DashboardHandler.PendingReviews)
			reviews.POST("/sync", deps.DashboardHandler.SyncNow)
			reviews.POST("", deps.DashboardHandler.SubmitReview)
		}
	}

	return router
}
