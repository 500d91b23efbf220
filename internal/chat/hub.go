package chat

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/matcha-dev/matcha-backend/internal/matching"
)

// Hub maintains active websocket connections and fans out frames
type Hub struct {
	clients    map[int64]*Client
	clientsMux sync.RWMutex

	broadcast  chan BroadcastMessage
	register   chan *Client
	unregister chan *Client

	service Service

	ctx    context.Context
	cancel context.CancelFunc
}

type BroadcastMessage struct {
	UserIDs []int64
	Message WSMessage
}

func NewHub(service Service) *Hub {
	ctx, cancel := context.WithCancel(context.Background())

	return &Hub{
		clients:    make(map[int64]*Client),
		broadcast:  make(chan BroadcastMessage, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		service:    service,
		ctx:        ctx,
		cancel:     cancel,
	}
}

func (h *Hub) Run() {
	defer h.cleanup()

	for {
		select {
		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case message := <-h.broadcast:
			h.broadcastMessage(message)

		case <-h.ctx.Done():
			return
		}
	}
}

// ConsumeMatchEvents translates match lifecycle events into websocket frames
// for both participants. Call in its own goroutine; returns when the event
// channel closes or the hub shuts down.
func (h *Hub) ConsumeMatchEvents(events <-chan matching.Event) {
	for {
		select {
		case evt, ok := <-events:
			if !ok {
				return
			}
			frameType := WSTypeNewMatch
			if evt.Type == matching.EventMatchRevoked {
				frameType = WSTypeMatchRevoked
			}
			h.notifyParticipant(frameType, evt.MatchID, evt.UserAID, evt.UserBID)
			h.notifyParticipant(frameType, evt.MatchID, evt.UserBID, evt.UserAID)

		case <-h.ctx.Done():
			return
		}
	}
}

func (h *Hub) notifyParticipant(frameType WSMessageType, matchID, userID, otherID int64) {
	data, err := json.Marshal(MatchNotice{MatchID: matchID, OtherUserID: otherID})
	if err != nil {
		return
	}
	h.SendToUsers([]int64{userID}, WSMessage{
		Type:      frameType,
		Data:      data,
		Timestamp: time.Now(),
	})
}

// SendToUsers queues a frame for each listed user that is currently
// connected; offline users are skipped.
func (h *Hub) SendToUsers(userIDs []int64, msg WSMessage) {
	select {
	case h.broadcast <- BroadcastMessage{UserIDs: userIDs, Message: msg}:
	case <-h.ctx.Done():
	}
}

// Shutdown stops the hub and closes all client connections.
func (h *Hub) Shutdown() {
	h.cancel()
}

func (h *Hub) registerClient(client *Client) {
	h.clientsMux.Lock()
	defer h.clientsMux.Unlock()

	// Only one connection per user
	if oldClient, exists := h.clients[client.userID]; exists {
		oldClient.Close()
	}

	h.clients[client.userID] = client
	log.Printf("User %d connected to chat. Total clients: %d", client.userID, len(h.clients))
}

func (h *Hub) unregisterClient(client *Client) {
	h.clientsMux.Lock()
	defer h.clientsMux.Unlock()

	if current, exists := h.clients[client.userID]; exists && current == client {
		client.Close()
		delete(h.clients, client.userID)
		log.Printf("User %d disconnected from chat. Total clients: %d", client.userID, len(h.clients))
	}
}

func (h *Hub) broadcastMessage(msg BroadcastMessage) {
	data, err := json.Marshal(msg.Message)
	if err != nil {
		log.Printf("Error marshalling websocket frame: %v", err)
		return
	}

	h.clientsMux.RLock()
	defer h.clientsMux.RUnlock()

	for _, userID := range msg.UserIDs {
		client, exists := h.clients[userID]
		if !exists {
			continue
		}
		if !client.enqueue(data) {
			// Slow or already-closing consumer; drop the connection
			go func(c *Client) {
				select {
				case h.unregister <- c:
				case <-h.ctx.Done():
				}
			}(client)
		}
	}
}

func (h *Hub) cleanup() {
	h.clientsMux.Lock()
	defer h.clientsMux.Unlock()

	for _, client := range h.clients {
		client.Close()
	}
	h.clients = make(map[int64]*Client)
}
