// internal/app/router.go
package app

import (
	"context"
	"net/http"
	"time"

	campaignHandler "obcampaign-service/internal/handlers/campaign"
	sessionHandler "obcampaign-service/internal/handlers/session"
	wsHandler "obcampaign-service/internal/handlers/websocket"
	"obcampaign-service/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Handlers struct {
	CampaignHandler *campaignHandler.CampaignHandler
	WSHandler       *wsHandler.WebSocketHandler
	SessionHandler  *sessionHandler.SessionHandler
	AuthMiddleware  *middleware.AuthMiddleware
	Health          Pinger
}

func SetupRouter(r *gin.Engine, h *Handlers) {
	api := r.Group("/api/v1")

	// ==================== Health & Metrics ====================
	api.GET("/health", func(c *gin.Context) {
		if h.Health != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := h.Health.Ping(ctx); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "error": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "version": "1.0.0"})
	})
	api.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// ==================== Session ====================
	if h.SessionHandler != nil {
		api.POST("/auth/logout", h.AuthMiddleware.Auth(), h.SessionHandler.Logout)
	}

	// ==================== WebSocket ====================
	api.GET("/ws", h.WSHandler.HandleConnection)
	api.GET("/ws/stats", h.AuthMiddleware.Auth(), h.WSHandler.GetStats)

	// ==================== Campaign Reads ====================
	campaigns := api.Group("/campaigns")
	campaigns.Use(h.AuthMiddleware.Auth())
	{
		campaigns.GET("", h.CampaignHandler.ListCampaigns)
		campaigns.GET("/uuids", h.CampaignHandler.ListCampaignUUIDs)
		campaigns.GET("/stats", h.CampaignHandler.GetCampaignStats)
		campaigns.GET("/schedule/start", h.CampaignHandler.EligibleToStart)
		campaigns.GET("/schedule/stop", h.CampaignHandler.EligibleToStop)
		campaigns.GET("/status/:status", h.CampaignHandler.ListCampaignsByStatus)
		campaigns.GET("/:uuid", h.CampaignHandler.GetCampaign)
		campaigns.GET("/:uuid/deleted", h.CampaignHandler.GetDeletedCampaign)
		campaigns.GET("/:uuid/stats", h.CampaignHandler.GetCampaignStat)
	}

	// ==================== Campaign Writes ====================
	campaignWrites := api.Group("/campaigns")
	campaignWrites.Use(h.AuthMiddleware.Writers()...)
	{
		campaignWrites.POST("", h.CampaignHandler.CreateCampaign)
		campaignWrites.PUT("/:uuid", h.CampaignHandler.UpdateCampaign)
		campaignWrites.PUT("/:uuid/status", h.CampaignHandler.SetStatus)
		campaignWrites.POST("/:uuid/actions/:action", h.CampaignHandler.RequestAction)
		campaignWrites.DELETE("/:uuid", h.CampaignHandler.DeleteCampaign)
	}

	// ==================== References ====================
	references := api.Group("/references")
	{
		references.GET("/:kind/:id", h.AuthMiddleware.Auth(), h.CampaignHandler.IsReferenced)
		references.DELETE("/:kind/:id", append(h.AuthMiddleware.Writers(), h.CampaignHandler.ClearReference)...)
	}
}
