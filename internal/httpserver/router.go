package httpserver

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"pmsboard/internal/handler"
	"pmsboard/internal/repository"
	"pmsboard/pkg/rbac"
	"pmsboard/pkg/trace"
)

type Router struct {
	Engine *gin.Engine
}

func NewRouter(
	logger *zap.Logger,
	store repository.EventStore,
	notifications *handler.NotificationHandler,
	announcements *handler.AnnouncementHandler,
	ws *handler.WSHandler,
	jwtSecret string,
) *Router {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(TraceMiddleware())

	// Health endpoints
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	r.HEAD("/healthz", func(c *gin.Context) {
		c.Status(200)
	})

	r.GET("/readyz", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c, 1*time.Second)
		defer cancel()

		if err := store.Ping(ctx); err != nil {
			c.JSON(500, gin.H{"status": "store_not_ready", "error": err.Error()})
			return
		}

		c.JSON(200, gin.H{"status": "ready"})
	})

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api", JWTAuth(jwtSecret))
	{
		api.GET("/notifications/unread", notifications.Unread)
		api.POST("/notifications/:id/read", notifications.MarkRead)

		api.GET("/announcements/latest", announcements.Latest)
		api.GET("/announcements", announcements.Recent)
		api.POST("/announcements",
			RequirePermission(rbac.PermissionPostAnnouncement),
			announcements.Post,
		)
	}

	r.GET("/ws", JWTAuth(jwtSecret), ws.Attach)

	logger.Info("Router initialized")
	return &Router{Engine: r}
}

// TraceMiddleware propagates the caller's trace id, minting one when absent.
func TraceMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		traceID := c.GetHeader(trace.HeaderName())
		if traceID == "" {
			traceID = trace.GenerateTraceID()
		}
		c.Request = c.Request.WithContext(trace.WithContext(c.Request.Context(), traceID))
		c.Header(trace.HeaderName(), traceID)
		c.Next()
	}
}
