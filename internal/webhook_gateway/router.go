package webhook_gateway

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/membership-split-service/internal/webhook_gateway/handler"
	"github.com/membership-split-service/internal/webhook_gateway/middleware"
)

// setupRouter configures routes and middleware for the webhook gateway
func setupRouter(
	logger *slog.Logger,
	r *gin.Engine,
	webhookHandler *handler.WebhookHandler,
) {
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CorrelationID())

	webhooks := r.Group("/webhooks")
	{
		webhooks.POST("/provider", webhookHandler.HandleProviderEvent)
	}

	// Health check endpoint for monitoring
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": time.Now().UTC()})
	})
}
