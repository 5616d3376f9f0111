package handlers

import (
	"context"
	"net/http"

	"plant-disease-api/services"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// LiveWebSocket streams prediction events published on the event bus.
func LiveWebSocket(events *services.EventBus, logger logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !events.Available() {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "live feed requires redis"})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.WithError(err).Warn("websocket upgrade failed")
			return
		}
		defer conn.Close()

		ctx, cancel := context.WithCancel(c.Request.Context())
		defer cancel()

		// Read pump: detect client disconnect
		go func() {
			defer cancel()
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		pubsub := events.Subscribe(ctx, services.PredictionsChannel)
		defer pubsub.Close()

		ch := pubsub.Channel()

		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				if err := conn.WriteMessage(websocket.TextMessage, []byte(msg.Payload)); err != nil {
					logger.WithError(err).Debug("ws write error")
					return
				}
			}
		}
	}
}
