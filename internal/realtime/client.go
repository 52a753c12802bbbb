package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // origin is enforced by the token, not by the browser
	},
}

// WSMessage is the WebSocket message envelope.
type WSMessage struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// TokenValidator resolves a socket token to a participant id and role.
type TokenValidator func(token string) (participantID uuid.UUID, role Role, err error)

// SnapshotFunc builds the resync state sent to a subscriber right after it connects.
type SnapshotFunc func(ctx context.Context, webinarID uuid.UUID, role Role) (interface{}, error)

// InboundHandler handles events sent by the client over the socket.
type InboundHandler func(ctx context.Context, s *Subscriber, event string, data json.RawMessage) error

// Client represents a single WebSocket connection in a webinar.
type Client struct {
	sub     *Subscriber
	hub     *Hub
	conn    *websocket.Conn
	inbound InboundHandler
	logger  *zap.Logger
}

// ServeWs handles the WebSocket upgrade and runs the client loop.
func ServeWs(hub *Hub, logger *zap.Logger, validate TokenValidator, snapshot SnapshotFunc, inbound InboundHandler) gin.HandlerFunc {
	return func(c *gin.Context) {
		webinarIDStr := c.Query("webinar_id")
		token := c.Query("token")
		if webinarIDStr == "" || token == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "webinar_id and token required"})
			return
		}
		webinarID, err := uuid.Parse(webinarIDStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid webinar_id"})
			return
		}
		participantID, role, err := validate(token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.Warn("websocket upgrade failed", zap.Error(err))
			return
		}

		client := &Client{
			sub:     hub.Subscribe(webinarID, participantID, role),
			hub:     hub,
			conn:    conn,
			inbound: inbound,
			logger:  logger,
		}
		if snapshot != nil {
			state, err := snapshot(c.Request.Context(), webinarID, role)
			if err != nil {
				logger.Warn("snapshot failed", zap.String("webinar_id", webinarID.String()), zap.Error(err))
			} else {
				hub.SendTo(client.sub, EventSnapshot, state)
			}
		}
		go client.writePump()
		client.readPump()
	}
}

func (c *Client) readPump() {
	defer func() {
		c.hub.Unsubscribe(c.sub)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(65536)
	_ = c.conn.SetReadDeadline(time.Now().Add(PongWait * time.Second))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(PongWait * time.Second))
		return nil
	})

	for {
		var msg WSMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			break
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(PongWait * time.Second))
		if c.inbound == nil {
			continue
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := c.inbound(ctx, c.sub, msg.Event, msg.Data)
		cancel()
		if err != nil {
			c.hub.SendTo(c.sub, EventError, map[string]string{"event": msg.Event, "error": err.Error()})
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(PingInterval * time.Second)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	events := c.sub.Events()
	for {
		select {
		case msg, ok := <-events:
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
