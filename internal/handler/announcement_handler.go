package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"pmsboard/internal/model"
	"pmsboard/internal/repository"
	"pmsboard/internal/service"
)

const defaultRecentLimit = 50

type AnnouncementHandler struct {
	store    repository.EventStore
	notifier *service.Notifier
	logger   *zap.Logger
}

func NewAnnouncementHandler(store repository.EventStore, notifier *service.Notifier, log *zap.Logger) *AnnouncementHandler {
	return &AnnouncementHandler{store: store, notifier: notifier, logger: log}
}

// Latest returns the most recent announcement for dashboard banners.
func (h *AnnouncementHandler) Latest(c *gin.Context) {
	evt, err := h.store.LatestAnnouncement(c.Request.Context())
	if err != nil {
		h.logger.Error("Latest: store query failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch announcement"})
		return
	}
	if evt == nil {
		c.JSON(http.StatusOK, gin.H{"messages": []gin.H{}})
		return
	}

	c.JSON(http.StatusOK, gin.H{"messages": []gin.H{announcementJSON(evt)}})
}

// Recent lists the latest announcements for the HR dashboard feed.
func (h *AnnouncementHandler) Recent(c *gin.Context) {
	limit := defaultRecentLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = parsed
	}

	events, err := h.store.RecentAnnouncements(c.Request.Context(), limit)
	if err != nil {
		h.logger.Error("Recent: store query failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch announcements"})
		return
	}

	msgs := make([]gin.H, 0, len(events))
	for i := range events {
		msgs = append(msgs, announcementJSON(&events[i]))
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

type postAnnouncementRequest struct {
	Content string `json:"content" binding:"required"`
}

// Post stores and broadcasts an HR announcement. The HR role gate runs in
// middleware before this handler.
func (h *AnnouncementHandler) Post(c *gin.Context) {
	uid, ok := authUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	var req postAnnouncementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "content is required"})
		return
	}

	evt, err := h.notifier.Announce(c.Request.Context(), uid, req.Content)
	if err != nil {
		h.logger.Error("Post: announce failed",
			zap.Int64("sender_id", uid),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to post announcement"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "id": evt.ID})
}

func announcementJSON(evt *model.Event) gin.H {
	var sender int64
	if evt.SenderID != nil {
		sender = *evt.SenderID
	}
	return gin.H{
		"id":         evt.ID,
		"sender":     sender,
		"content":    evt.Message,
		"created_at": evt.CreatedAt,
	}
}
