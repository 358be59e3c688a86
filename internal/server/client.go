package server

import (
	"context"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/topogame/dice-dominion-sub000/internal/protocol"
)

const (
	writeWait      = 10 * time.Second
	pingPeriod     = 30 * time.Second
	maxMessageSize = 65536
	sendBuffer     = 256
)

// Client represents a connected WebSocket client.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan *protocol.Message
	done chan struct{}
	once sync.Once

	ID     string
	logger zerolog.Logger

	mu       sync.Mutex
	room     *Room
	playerID string
}

// NewClient creates a new client. conn may be nil for clients that are fed
// directly, as in tests.
func NewClient(hub *Hub, conn *websocket.Conn) *Client {
	id := uuid.New().String()
	return &Client{
		hub:    hub,
		conn:   conn,
		send:   make(chan *protocol.Message, sendBuffer),
		done:   make(chan struct{}),
		ID:     id,
		logger: hub.logger.With().Str("client_id", id).Logger(),
	}
}

// Send queues a message for the client. A client that cannot keep up is
// dropped.
func (c *Client) Send(msg *protocol.Message) {
	select {
	case <-c.done:
	case c.send <- msg:
	default:
		c.logger.Warn().Msg("Send buffer full, dropping client")
		go c.hub.Unregister(c)
	}
}

// SendPayload builds and queues a message.
func (c *Client) SendPayload(msgType protocol.MessageType, payload any) {
	msg, err := protocol.NewMessage(msgType, payload)
	if err != nil {
		c.logger.Error().Err(err).Msg("Failed to build message")
		return
	}
	c.Send(msg)
}

// Seat returns the room and player id the client holds, if any.
func (c *Client) Seat() (*Room, string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.room, c.playerID
}

func (c *Client) setSeat(room *Room, playerID string) {
	c.mu.Lock()
	c.room, c.playerID = room, playerID
	c.mu.Unlock()
}

func (c *Client) close() {
	c.once.Do(func() { close(c.done) })
}

// readPump decodes incoming messages and hands them to the hub.
func (c *Client) readPump(ctx context.Context) {
	defer func() {
		c.hub.Unregister(c)
		c.conn.CloseNow()
	}()

	c.conn.SetReadLimit(maxMessageSize)

	for {
		msgType, data, err := c.conn.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status != websocket.StatusNormalClosure && status != websocket.StatusGoingAway {
				c.logger.Debug().Err(err).Msg("WebSocket read ended")
			}
			return
		}
		if msgType != websocket.MessageText {
			continue
		}

		msg, err := protocol.Decode(data)
		if err != nil {
			c.logger.Warn().Err(err).Msg("Invalid message")
			c.SendPayload(protocol.TypeError, protocol.ErrorPayload{
				Code:    protocol.ErrCodeBadRequest,
				Message: err.Error(),
			})
			continue
		}

		c.hub.Handle(c, msg)
	}
}

// writePump writes queued messages and keeps the connection alive with pings.
func (c *Client) writePump(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-c.done:
			c.conn.Close(websocket.StatusNormalClosure, "")
			return

		case msg := <-c.send:
			data, err := msg.Encode()
			if err != nil {
				c.logger.Error().Err(err).Msg("Failed to encode message")
				continue
			}
			wctx, cancel := context.WithTimeout(ctx, writeWait)
			err = c.conn.Write(wctx, websocket.MessageText, data)
			cancel()
			if err != nil {
				return
			}

		case <-ticker.C:
			pctx, cancel := context.WithTimeout(ctx, writeWait)
			err := c.conn.Ping(pctx)
			cancel()
			if err != nil {
				return
			}
		}
	}
}
