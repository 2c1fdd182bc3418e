package handler

import (
	"net/http"
	"time"

	"holanu-server/internal/events"
	"holanu-server/internal/observability"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	streamWriteTimeout = 10 * time.Second
	streamPingInterval = 30 * time.Second
)

// upgrader is a shared WebSocket upgrader
var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// TODO: Add proper origin validation for production
		return true
	},
}

// StreamHandler pushes lead lifecycle events to connected agent dashboards.
type StreamHandler struct {
	publisher *events.Publisher
	logger    *observability.Logger
}

func NewStreamHandler(publisher *events.Publisher, logger *observability.Logger) StreamHandler {
	return StreamHandler{
		publisher: publisher,
		logger:    logger,
	}
}

// HandleLeadStream upgrades the connection and forwards lead events until the
// client goes away. Each connection gets its own subscription; a slow client
// drops events rather than stalling the publisher.
func (h *StreamHandler) HandleLeadStream(c *gin.Context) {
	ctx := c.Request.Context()

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error(ctx, "failed to upgrade websocket", err)
		return
	}
	defer conn.Close()

	subID, eventCh := h.publisher.Subscribe()
	defer h.publisher.Unsubscribe(subID)

	ctx = observability.WithFields(ctx,
		observability.Field{Key: "subscriber_id", Value: subID.String()},
	)
	h.logger.Info(ctx, "lead stream connected")

	// Drain the read side so close frames and pongs are processed.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(streamPingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			h.logger.Info(ctx, "lead stream disconnected")
			return
		case <-ctx.Done():
			return
		case event, ok := <-eventCh:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout))
			if err := conn.WriteJSON(event); err != nil {
				h.logger.Error(ctx, "failed to write lead event", err)
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
