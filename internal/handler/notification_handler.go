package handler

import (
	"encoding/json"
	"time"

	"campusconnect/backend/internal/hub"

	"github.com/gin-gonic/gin"
)

// keepAliveInterval is how often an idle stream receives a ping event.
var keepAliveInterval = 25 * time.Second

// StreamNotifications godoc
// @Summary      Notification stream
// @Description  Server-sent events for the caller: connection_request and connection_accepted.
// @Tags         notifications
// @Produce      text/event-stream
// @Security     BearerAuth
// @Success      200  {string}  string "event stream"
// @Failure      401  {object}  apperror.ErrorResponse
// @Router       /notifications/stream [get]
func StreamNotifications(c *gin.Context) {
	userID, err := currentUser(c)
	if err != nil {
		respondError(c, err)
		return
	}

	client := hub.NewClient()
	hub.GlobalHub.Subscribe(userID, client)
	defer hub.GlobalHub.Unsubscribe(userID, client)

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	c.SSEvent("ready", gin.H{"user_id": userID})
	c.Writer.Flush()

	ticker := time.NewTicker(keepAliveInterval)
	defer ticker.Stop()

	ctx := c.Request.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-client:
			if !ok {
				return
			}
			c.SSEvent("notification", json.RawMessage(msg))
		case <-ticker.C:
			c.SSEvent("ping", time.Now().Unix())
		}
		c.Writer.Flush()
	}
}
