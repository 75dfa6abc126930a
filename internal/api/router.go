package api

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/moonvale/nachtrat/server/internal/config"
)

// NewRouter wires the HTTP surface: session endpoints, the command
// endpoint, the websocket feed, health and metrics.
func NewRouter(h *Handler, cfg config.ServerConfig) *gin.Engine {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())

	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", clientIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/health", h.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	{
		api.POST("/sessions", h.CreateSession)
		api.POST("/sessions/join", h.JoinSession)
		api.GET("/sessions", h.LookupSession)
		api.GET("/sessions/:sessionId", h.GetSession)
		api.POST("/sessions/:sessionId/commands", h.ExecuteCommand)
		api.GET("/sessions/:sessionId/ws", h.Subscribe)
	}
	return r
}
