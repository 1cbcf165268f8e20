package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"pmsboard/internal/hub"
	"pmsboard/internal/model"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

// WSHandler upgrades dashboard clients to websocket connections and wires
// them into the topic registry: every viewer gets the shared announcements
// feed plus their private notification channel.
type WSHandler struct {
	registry *hub.Registry
	logger   *zap.Logger
	upgrader websocket.Upgrader
}

func NewWSHandler(registry *hub.Registry, allowedOrigins []string, logger *zap.Logger) *WSHandler {
	return &WSHandler{
		registry: registry,
		logger:   logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				if len(allowedOrigins) == 0 {
					return true
				}
				origin := r.Header.Get("Origin")
				for _, allowed := range allowedOrigins {
					if origin == allowed {
						return true
					}
				}
				return false
			},
		},
	}
}

func (h *WSHandler) Attach(c *gin.Context) {
	uid, ok := authUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	ws, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}

	ws.SetReadLimit(maxMessageSize)
	if err := ws.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		h.logger.Warn("Failed to set initial read deadline", zap.Error(err))
		ws.Close()
		return
	}
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	conn := hub.NewConn(&wsTransport{ws: ws}, h.registry, h.logger)
	conn.Subscribe(model.TopicAnnouncements, model.UserTopic(uid))

	h.logger.Info("WebSocket connection established",
		zap.String("conn_id", conn.ID()),
		zap.Int64("user_id", uid),
	)

	go conn.WritePump(pingPeriod)

	// Read loop: the client never sends application messages, but reading
	// is what surfaces disconnects and keeps pong handling alive.
	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("WebSocket read error",
					zap.String("conn_id", conn.ID()),
					zap.Error(err),
				)
			}
			break
		}
	}

	conn.Close()
}

// wsTransport adapts a gorilla connection to the hub transport. WriteJSON is
// only called from the write pump; Ping uses WriteControl, which gorilla
// allows concurrently with other writes.
type wsTransport struct {
	ws *websocket.Conn
}

func (t *wsTransport) WriteJSON(v any) error {
	if err := t.ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return t.ws.WriteJSON(v)
}

func (t *wsTransport) Ping() error {
	return t.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
}

func (t *wsTransport) Close() error {
	return t.ws.Close()
}
