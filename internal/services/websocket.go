package services

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // mobile clients send no Origin
	},
}

// Client is one websocket connection of a principal.
type Client struct {
	UserID uint
	Conn   *websocket.Conn
	Send   chan []byte
	Hub    *Hub
}

// Hub tracks connected principals and pushes booking events to them.
type Hub struct {
	clients map[*Client]bool
	closed  bool
	mutex   sync.RWMutex
	log     logrus.FieldLogger
}

func NewHub(log logrus.FieldLogger) *Hub {
	return &Hub{
		clients: make(map[*Client]bool),
		log:     log,
	}
}

// Run blocks until ctx is cancelled, then disconnects every client and
// refuses new ones.
func (h *Hub) Run(ctx context.Context) {
	<-ctx.Done()

	h.mutex.Lock()
	defer h.mutex.Unlock()
	h.closed = true
	for client := range h.clients {
		delete(h.clients, client)
		close(client.Send)
	}
}

func (h *Hub) add(client *Client) bool {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	if h.closed {
		return false
	}
	h.clients[client] = true
	h.log.WithField("user_id", client.UserID).Debug("websocket client connected")
	return true
}

func (h *Hub) remove(client *Client) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.Send)
		h.log.WithField("user_id", client.UserID).Debug("websocket client disconnected")
	}
}

// BroadcastToUser sends a message to every connection of a user. Connections
// whose buffers are full are dropped.
func (h *Hub) BroadcastToUser(userID uint, message []byte) int {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	sent := 0
	for client := range h.clients {
		if client.UserID != userID {
			continue
		}
		select {
		case client.Send <- message:
			sent++
		default:
			close(client.Send)
			delete(h.clients, client)
		}
	}
	return sent
}

// GetConnectedClients returns the number of connected clients
func (h *Hub) GetConnectedClients() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}

type WebSocketMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// PublishBookingEvent delivers the event to both parties of the booking.
func (h *Hub) PublishBookingEvent(_ context.Context, e BookingEvent) error {
	data, err := json.Marshal(WebSocketMessage{
		Type: strings.ReplaceAll(e.Type, ".", "_"),
		Data: e,
	})
	if err != nil {
		return err
	}

	h.BroadcastToUser(e.RequesterID, data)
	h.BroadcastToUser(e.ProviderID, data)
	return nil
}

// HandleWebSocket upgrades the request and attaches the connection to the hub.
func HandleWebSocket(hub *Hub, w http.ResponseWriter, r *http.Request, userID uint) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		hub.log.WithError(err).Warn("websocket upgrade failed")
		return
	}

	client := &Client{
		UserID: userID,
		Conn:   conn,
		Send:   make(chan []byte, 64),
		Hub:    hub,
	}

	if !hub.add(client) {
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

// readPump only watches for close and keeps the read deadline alive; clients
// do not send commands over the socket.
func (c *Client) readPump() {
	defer func() {
		c.Hub.remove(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(512)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.Hub.log.WithError(err).Debug("websocket read error")
			}
			return
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
				c.Hub.log.WithError(err).Debug("websocket write error")
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
