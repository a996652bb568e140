package handler

import (
	"github.com/gin-gonic/gin"
)

type RouterDeps struct {
	RPC     *RPCHandler
	Webhook *WebhookHandler
	Sync    *SyncHandler
	Health  *HealthHandler
}

func RegisterRoutes(api *gin.RouterGroup, deps RouterDeps) {
	api.GET("/health", deps.Health.Check)
	api.POST("/mcp", deps.RPC.Handle)
	api.POST("/webhook", deps.Webhook.HandlePush)
	api.POST("/sync", deps.Sync.Trigger)
	api.GET("/sync/runs", deps.Sync.ListRuns)
}
