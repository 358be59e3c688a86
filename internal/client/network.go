// Package client implements a headless Dice Dominion client: the WebSocket
// connection and a bot that plays a seat.
package client

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/rs/zerolog"

	"github.com/topogame/dice-dominion-sub000/internal/logger"
	"github.com/topogame/dice-dominion-sub000/internal/protocol"
)

// ErrNotConnected is returned when sending without a connection.
var ErrNotConnected = errors.New("not connected")

// NetworkClient handles WebSocket communication with the server.
type NetworkClient struct {
	conn     *websocket.Conn
	sendChan chan *protocol.Message
	done     chan struct{}
	mu       sync.Mutex
	logger   zerolog.Logger

	// Callbacks
	OnMessage    func(*protocol.Message)
	OnDisconnect func(error)

	connected bool
}

// NewNetworkClient creates a new network client.
func NewNetworkClient() *NetworkClient {
	return &NetworkClient{
		sendChan: make(chan *protocol.Message, 64),
		done:     make(chan struct{}),
		logger:   logger.Component("Network"),
	}
}

// WebSocketURL turns a server address into its /ws URL. Hosted deployments
// and explicit wss:// addresses use TLS on the default port.
func WebSocketURL(serverAddr string) string {
	switch {
	case strings.HasPrefix(serverAddr, "ws://"), strings.HasPrefix(serverAddr, "http://"):
		host := strings.TrimPrefix(strings.TrimPrefix(serverAddr, "ws://"), "http://")
		return "ws://" + strings.TrimSuffix(host, "/") + "/ws"
	case strings.HasPrefix(serverAddr, "wss://"),
		strings.HasPrefix(serverAddr, "https://"),
		strings.Contains(serverAddr, ".onrender.com"),
		strings.Contains(serverAddr, ".fly.dev"):
		host := strings.TrimPrefix(strings.TrimPrefix(serverAddr, "wss://"), "https://")
		host = strings.TrimSuffix(host, "/")
		if i := strings.LastIndex(host, ":"); i != -1 {
			host = host[:i]
		}
		return "wss://" + host + "/ws"
	}
	return "ws://" + serverAddr + "/ws"
}

// Connect establishes a connection to the server.
func (c *NetworkClient) Connect(ctx context.Context, serverAddr string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	url := WebSocketURL(serverAddr)
	c.logger.Debug().Str("url", url).Msg("Connecting")

	dctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(dctx, url, nil)
	if err != nil {
		return err
	}

	c.conn = conn
	c.connected = true
	c.done = make(chan struct{})
	c.conn.SetReadLimit(65536)

	go c.readPump(conn, c.done)
	go c.writePump(conn, c.done)

	c.logger.Info().Str("url", url).Msg("Connected")
	return nil
}

// Disconnect closes the connection.
func (c *NetworkClient) Disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.connected {
		return
	}

	c.connected = false
	close(c.done)

	if c.conn != nil {
		c.conn.Close(websocket.StatusNormalClosure, "")
		c.conn = nil
	}
}

// IsConnected returns true if connected to server.
func (c *NetworkClient) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// Send queues a message to be sent to the server.
func (c *NetworkClient) Send(msg *protocol.Message) error {
	if !c.IsConnected() {
		return ErrNotConnected
	}
	select {
	case c.sendChan <- msg:
		return nil
	default:
		c.logger.Warn().Str("type", string(msg.Type)).Msg("Send channel full, dropping message")
		return errors.New("send channel full")
	}
}

// SendPayload creates and sends a message with the given type and payload.
func (c *NetworkClient) SendPayload(msgType protocol.MessageType, payload any) error {
	msg, err := protocol.NewMessage(msgType, payload)
	if err != nil {
		return err
	}
	return c.Send(msg)
}

// readPump reads messages from the WebSocket.
func (c *NetworkClient) readPump(conn *websocket.Conn, done chan struct{}) {
	var readErr error
	defer func() {
		c.mu.Lock()
		wasConnected := c.connected && c.done == done
		if wasConnected {
			c.connected = false
		}
		c.mu.Unlock()

		if wasConnected && c.OnDisconnect != nil {
			c.OnDisconnect(readErr)
		}
	}()

	for {
		// Read with no timeout; pings detect dead connections
		msgType, data, err := conn.Read(context.Background())
		if err != nil {
			status := websocket.CloseStatus(err)
			if status != websocket.StatusNormalClosure && status != websocket.StatusGoingAway {
				readErr = err
				c.logger.Debug().Err(err).Msg("WebSocket read ended")
			}
			return
		}

		if msgType != websocket.MessageText {
			continue
		}

		msg, err := protocol.Decode(data)
		if err != nil {
			c.logger.Warn().Err(err).Msg("Failed to decode message")
			continue
		}

		if c.OnMessage != nil {
			c.OnMessage(msg)
		}
	}
}

// writePump writes messages to the WebSocket.
func (c *NetworkClient) writePump(conn *websocket.Conn, done chan struct{}) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return

		case msg := <-c.sendChan:
			data, err := msg.Encode()
			if err != nil {
				c.logger.Error().Err(err).Msg("Failed to encode message")
				continue
			}

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			err = conn.Write(ctx, websocket.MessageText, data)
			cancel()
			if err != nil {
				c.logger.Warn().Err(err).Msg("WebSocket write error")
				return
			}

		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			err := conn.Ping(ctx)
			cancel()
			if err != nil {
				return
			}
		}
	}
}
