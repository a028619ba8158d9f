package transport

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"github.com/partyquiz/server/internal/logging"
	"github.com/partyquiz/server/internal/metrics"
	"go.uber.org/zap"
)

// wsConnection is the subset of *websocket.Conn the Client needs, so tests
// can substitute a mock connection.
type wsConnection interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
	SetWriteDeadline(t time.Time) error
	SetReadDeadline(t time.Time) error
	SetPongHandler(h func(appData string) error)
}

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	sendBuffer = 64
)

// Client is one websocket connection's read/write pump pair. It has no
// domain knowledge; Hub.dispatch does all routing.
type Client struct {
	conn   wsConnection
	send   chan []byte
	connID string
	hub    *Hub
}

func newClient(hub *Hub, conn wsConnection, connID string) *Client {
	return &Client{hub: hub, conn: conn, connID: connID, send: make(chan []byte, sendBuffer)}
}

// send queues an outbound envelope for delivery, dropping it (with a log)
// if the client's send buffer is full rather than blocking the hub.
func (c *Client) sendEnvelope(env OutboundEnvelope) {
	data, err := json.Marshal(env)
	if err != nil {
		logging.Error(context.Background(), "failed to marshal outbound envelope", zap.Error(err))
		return
	}
	select {
	case c.send <- data:
	default:
		logging.Warn(context.Background(), "client send buffer full, dropping message", zap.String("conn_id", c.connID))
	}
}

// readPump reads inbound frames until the connection errors or closes, then
// hands off to the hub's disconnect handling.
func (c *Client) readPump() {
	defer func() {
		c.hub.handleDisconnect(c.connID)
		c.conn.Close()
		metrics.DecConnection()
	}()

	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		messageType, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}

		var env InboundEnvelope
		if err := json.Unmarshal(data, &env); err != nil {
			logging.Warn(context.Background(), "failed to unmarshal inbound envelope", zap.Error(err))
			continue
		}

		c.hub.dispatch(context.Background(), c, env)
	}
}

// writePump drains the send channel to the websocket, interleaving periodic
// pings so idle connections don't get reaped as dead by intermediaries.
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
