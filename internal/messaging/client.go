// internal/messaging/client.go

package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 16 * 1024

	// Maximum number of queued frames per client
	maxQueuedMessages = 256

	// Time allowed to handle one inbound frame
	inboundTimeout = 10 * time.Second
)

// Client represents a websocket client
type Client struct {
	hub       *Hub
	conn      *websocket.Conn
	send      chan []byte
	userID    int64
	service   Service
	limiter   *RateLimiter
	logger    *zap.Logger
	closeOnce sync.Once
}

func NewClient(hub *Hub, conn *websocket.Conn, userID int64, service Service, limiter *RateLimiter) *Client {
	return &Client{
		hub:     hub,
		conn:    conn,
		send:    make(chan []byte, maxQueuedMessages),
		userID:  userID,
		service: service,
		limiter: limiter,
		logger:  hub.logger.With(zap.Int64("user_id", userID)),
	}
}

func (c *Client) Start() {
	go c.writePump()
	go c.readPump()
}

func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister(c)
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
				c.logger.Debug("websocket read error", zap.Error(err))
			}
			return
		}

		c.processMessage(message)
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
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) processMessage(data []byte) {
	if c.limiter != nil && !c.limiter.Allow(fmt.Sprint(c.userID)) {
		c.replyError("rate limit exceeded")
		return
	}

	var msg WSMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		c.replyError("invalid frame")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), inboundTimeout)
	defer cancel()

	switch WSMessageType(msg.Type) {
	case WSTypeMessage:
		var in wsSendMessage
		if err := json.Unmarshal(msg.Data, &in); err != nil {
			c.replyError("invalid message payload")
			return
		}
		_, err := c.service.SendMessage(ctx, c.userID, in.ConversationID, &SendMessageRequest{
			Content:     in.Content,
			MessageType: in.MessageType,
		})
		if err != nil {
			c.replyError(err.Error())
		}

	case WSTypeTyping, WSTypeStopTyping:
		var in wsTyping
		if err := json.Unmarshal(msg.Data, &in); err != nil {
			c.replyError("invalid typing payload")
			return
		}
		if err := c.service.Typing(ctx, c.userID, in.ConversationID, WSMessageType(msg.Type) == WSTypeTyping); err != nil {
			c.replyError(err.Error())
		}

	default:
		c.replyError("unknown message type")
	}
}

func (c *Client) replyError(message string) {
	c.hub.SendToUser(c.userID, WSMessage{
		Type:      string(WSTypeError),
		Data:      mustMarshal(map[string]string{"message": message}),
		Timestamp: time.Now().UTC(),
	})
}

func (c *Client) close() {
	c.closeOnce.Do(func() { close(c.send) })
}
