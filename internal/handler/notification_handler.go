package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"pmsboard/internal/repository"
	"pmsboard/pkg/logger"
)

type NotificationHandler struct {
	store  repository.EventStore
	logger *zap.Logger
}

func NewNotificationHandler(store repository.EventStore, log *zap.Logger) *NotificationHandler {
	return &NotificationHandler{store: store, logger: log}
}

// Unread serves the unread badge poll: {count, items}.
func (h *NotificationHandler) Unread(c *gin.Context) {
	uid, ok := authUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	log := logger.WithTrace(c.Request.Context(), h.logger)

	events, err := h.store.UnreadForUser(c.Request.Context(), uid)
	if err != nil {
		log.Error("Unread: failed to fetch events",
			zap.Int64("user_id", uid),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch notifications"})
		return
	}

	items := make([]gin.H, 0, len(events))
	for _, e := range events {
		link := e.Link
		if link == "" {
			link = "#"
		}
		items = append(items, gin.H{
			"id":         e.ID,
			"message":    e.Message,
			"link":       link,
			"created_at": e.CreatedAt.Format("2006-01-02 15:04"),
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"count": len(items),
		"items": items,
	})
}

// MarkRead flips a notification to read. Safe to retry: unknown or foreign
// ids succeed without effect.
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	uid, ok := authUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	idStr := c.Param("id")
	eventID, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		h.logger.Warn("MarkRead: invalid event id", zap.String("id", idStr))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid notification id"})
		return
	}

	if err := h.store.MarkRead(c.Request.Context(), eventID, uid); err != nil {
		h.logger.Error("MarkRead: store update failed",
			zap.Int64("event_id", eventID),
			zap.Int64("user_id", uid),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to mark notification as read"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

func authUserID(c *gin.Context) (int64, bool) {
	v, exists := c.Get("user_id")
	if !exists {
		return 0, false
	}
	id, ok := v.(int64)
	return id, ok
}
