package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirechat-relay/internal/config"
	"github.com/vovakirdan/wirechat-relay/internal/core"
	"github.com/vovakirdan/wirechat-relay/internal/presence"
)

// Hub is the part of core.Hub the transport depends on.
type Hub interface {
	RegisterClient(c *core.Client) bool
	UnregisterClient(c *core.Client)
	Members() *presence.Registry
}

// HealthChecker reports whether the message log is reachable.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// NewServer builds an HTTP server with websocket, REST and static routes.
func NewServer(hub Hub, messages core.MessageLog, health HealthChecker, cfg *config.Config, logger *zerolog.Logger) *http.Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(LoggerMiddleware(logger))

	router.GET("/health", healthHandler(health))
	router.GET("/ws", gin.WrapH(NewWSHandler(hub, cfg, logger)))

	api := NewAPIHandlers(hub, messages, logger)
	rooms := router.Group("/api/rooms")
	{
		rooms.GET("", api.ListRooms)
		rooms.GET("/:room/members", api.ListMembers)
		rooms.GET("/:room/messages", api.ListMessages)
	}

	if cfg.StaticDir != "" {
		files := http.FileServer(http.Dir(cfg.StaticDir))
		router.NoRoute(func(c *gin.Context) {
			if c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead {
				c.JSON(http.StatusNotFound, ErrorResponse{Error: "not found"})
				return
			}
			files.ServeHTTP(c.Writer, c.Request)
		})
	}

	return &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}

func healthHandler(health HealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		if health != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := health.Ping(ctx); err != nil {
				c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "store unavailable"})
				return
			}
		}
		c.String(http.StatusOK, "ok")
	}
}
