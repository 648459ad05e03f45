package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/c14220110/telekonsul-backend/internal/common/middlewares"
	"github.com/c14220110/telekonsul-backend/internal/common/response"
	"github.com/c14220110/telekonsul-backend/pkg/utils"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 << 10
	handleTimeout  = 15 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		// CORS ditangani di level echo
		return true
	},
}

// Event adalah pesan client -> server.
type Event struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// EventHandler memproses event dari client yang sudah terautentikasi.
type EventHandler interface {
	HandleEvent(ctx context.Context, userID int64, ev Event) error
}

// ServeWS mengautentikasi handshake (query ?token= atau header Bearer)
// lalu meng-upgrade koneksi dan menjalankan pump baca/tulis.
func ServeWS(hub *Hub, handler EventHandler) echo.HandlerFunc {
	return func(c echo.Context) error {
		token := c.QueryParam("token")
		if token == "" {
			token, _ = middlewares.BearerToken(c.Request().Header.Get("Authorization"))
		}
		if token == "" {
			return response.JSON(c, http.StatusUnauthorized, "Authentication token required", nil)
		}
		claims, err := utils.ValidateJWTToken(token)
		if err != nil {
			return response.JSON(c, http.StatusUnauthorized, "Invalid token: "+err.Error(), nil)
		}

		conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
		if err != nil {
			// Upgrade sudah menulis response error
			hub.log.Warn().Err(err).Msg("websocket upgrade failed")
			return nil
		}
		client := NewClient(claims.UserID, conn)
		if !hub.register(client) {
			conn.Close()
			return nil
		}

		go client.writePump()
		go client.readPump(hub, handler)
		return nil
	}
}

func (c *Client) readPump(hub *Hub, handler EventHandler) {
	defer func() {
		hub.unregister(c)
		c.Conn.Close()
	}()
	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				hub.log.Debug().Err(err).Int64("user_id", c.UserID).Msg("websocket closed")
			}
			return
		}
		var ev Event
		if err := json.Unmarshal(raw, &ev); err != nil || ev.Type == "" {
			hub.SendToUsers([]int64{c.UserID}, "error", map[string]string{"message": "invalid event payload"})
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), handleTimeout)
		err = handler.HandleEvent(ctx, c.UserID, ev)
		cancel()
		if err != nil {
			hub.SendToUsers([]int64{c.UserID}, "error", map[string]string{"message": err.Error(), "event": ev.Type})
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
