package chat

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum frame size allowed from peer
	maxMessageSize = 8 * 1024
)

// Client represents one user's websocket connection
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	done   chan struct{}
	userID int64

	closeOnce sync.Once
}

func NewClient(hub *Hub, conn *websocket.Conn, userID int64) *Client {
	return &Client{
		hub:    hub,
		conn:   conn,
		send:   make(chan []byte, 64),
		done:   make(chan struct{}),
		userID: userID,
	}
}

func (c *Client) Start() {
	go c.writePump()
	go c.readPump()
}

// Close signals both pumps to stop. The send channel is never closed: the
// read pump may still be inside a frame handler trying to queue an error
// reply, so shutdown is signalled through done instead.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

// enqueue queues a frame for the write pump. Reports false when the client
// is closed or its buffer is full.
func (c *Client) enqueue(frame []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- frame:
		return true
	case <-c.done:
		return false
	default:
		return false
	}
}

func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.ctx.Done():
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error for user %d: %v", c.userID, err)
			}
			break
		}
		c.processFrame(message)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) processFrame(data []byte) {
	var frame WSMessage
	if err := json.Unmarshal(data, &frame); err != nil {
		c.sendError("invalid frame")
		return
	}

	ctx, cancel := context.WithTimeout(c.hub.ctx, 10*time.Second)
	defer cancel()

	switch frame.Type {
	case WSTypeMessage:
		c.handleSend(ctx, frame.Data)

	case WSTypeRead:
		c.handleRead(ctx, frame.Data)

	default:
		c.sendError("unknown frame type")
	}
}

// handleSend persists the message and pushes it to both participants.
func (c *Client) handleSend(ctx context.Context, data json.RawMessage) {
	var req SendMessageRequest
	if err := json.Unmarshal(data, &req); err != nil {
		c.sendError("invalid message payload")
		return
	}

	msg, err := c.hub.service.SendMessage(ctx, c.userID, &req)
	if err != nil {
		c.sendError(err.Error())
		return
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return
	}
	c.hub.SendToUsers([]int64{msg.SenderID, msg.RecipientID}, WSMessage{
		Type:      WSTypeMessage,
		Data:      payload,
		Timestamp: msg.CreatedAt,
	})
}

func (c *Client) handleRead(ctx context.Context, data json.RawMessage) {
	var req struct {
		OtherUserID int64 `json:"other_user_id"`
	}
	if err := json.Unmarshal(data, &req); err != nil {
		c.sendError("invalid read payload")
		return
	}

	if _, err := c.hub.service.MarkRead(ctx, c.userID, req.OtherUserID); err != nil {
		c.sendError("failed to mark read")
		return
	}

	// Tell the sender their messages were seen
	payload, _ := json.Marshal(map[string]int64{"reader_id": c.userID})
	c.hub.SendToUsers([]int64{req.OtherUserID}, WSMessage{
		Type:      WSTypeRead,
		Data:      payload,
		Timestamp: time.Now(),
	})
}

func (c *Client) sendError(message string) {
	payload, _ := json.Marshal(map[string]string{"message": message})
	frame, err := json.Marshal(WSMessage{
		Type:      WSTypeError,
		Data:      payload,
		Timestamp: time.Now(),
	})
	if err != nil {
		return
	}
	c.enqueue(frame)
}
