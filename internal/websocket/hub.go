// Package websocket pushes clip status transitions to subscribed clients.
package websocket

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/gofiber/contrib/websocket"

	"github.com/clipcast/api/internal/model"
)

// Client is one WebSocket subscriber watching a clip.
type Client struct {
	ClipID string
	Conn   *websocket.Conn
	Send   chan []byte
}

// Hub maintains active WebSocket connections grouped by clip id.
// The clients map is owned by the Run goroutine; all mutation goes
// through the register, unregister, and broadcast channels.
type Hub struct {
	clients    map[string]map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan *broadcastMessage

	logger *slog.Logger
}

type broadcastMessage struct {
	clipID  string
	payload []byte
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients:    make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *broadcastMessage, 256),
		logger:     logger,
	}
}

// Run starts the hub's main loop.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			if h.clients[client.ClipID] == nil {
				h.clients[client.ClipID] = make(map[*Client]bool)
			}
			h.clients[client.ClipID][client] = true

		case client := <-h.unregister:
			if clients, ok := h.clients[client.ClipID]; ok {
				if _, ok := clients[client]; ok {
					delete(clients, client)
					close(client.Send)
					if len(clients) == 0 {
						delete(h.clients, client.ClipID)
					}
				}
			}

		case msg := <-h.broadcast:
			if clients, ok := h.clients[msg.clipID]; ok {
				for client := range clients {
					select {
					case client.Send <- msg.payload:
					default:
						// Slow consumer; drop it rather than stall the hub.
						close(client.Send)
						delete(clients, client)
					}
				}
			}
		}
	}
}

func (h *Hub) Register(client *Client)   { h.register <- client }
func (h *Hub) Unregister(client *Client) { h.unregister <- client }

// ClipCompleted notifies subscribers that a clip finished processing.
func (h *Hub) ClipCompleted(clipID, audioURL string) {
	h.send(clipID, model.WSStatusMessage{
		Type:     model.WSMessageTypeStatus,
		ClipID:   clipID,
		Status:   model.ClipStatusCompleted,
		AudioURL: audioURL,
	})
}

// ClipFailed notifies subscribers that processing failed.
func (h *Hub) ClipFailed(clipID, message string) {
	h.send(clipID, model.WSErrorMessage{
		Type:    model.WSMessageTypeError,
		ClipID:  clipID,
		Message: message,
	})
}

func (h *Hub) send(clipID string, msg any) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("could not marshal ws message", "clip_id", clipID, "error", err)
		return
	}
	h.broadcast <- &broadcastMessage{clipID: clipID, payload: data}
}

// HandleConnection services one subscriber until it disconnects.
func (h *Hub) HandleConnection(c *websocket.Conn, clipID string) {
	client := &Client{
		ClipID: clipID,
		Conn:   c,
		Send:   make(chan []byte, 256),
	}

	h.Register(client)
	defer h.Unregister(client)

	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()

		for {
			select {
			case message, ok := <-client.Send:
				if !ok {
					c.WriteMessage(websocket.CloseMessage, []byte{})
					return
				}
				if err := c.WriteMessage(websocket.TextMessage, message); err != nil {
					return
				}

			case <-ticker.C:
				if err := c.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	}()

	// Reader loop; incoming frames are only read to detect disconnects.
	for {
		if _, _, err := c.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Debug("websocket closed", "clip_id", clipID, "error", err)
			}
			break
		}
	}
}
