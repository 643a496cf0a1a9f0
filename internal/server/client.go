package server

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingInterval   = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBuffer     = 64
)

// Client is one live connection of a room member. Events only flow from the
// hub to the client.
type Client struct {
	conn     *websocket.Conn
	hub      *Hub
	log      *logrus.Entry
	callerId uuid.UUID
	roomId   uuid.UUID
	send     chan *ServerMessage
}

func NewClient(conn *websocket.Conn, hub *Hub, logger *logrus.Logger, callerId, roomId uuid.UUID) *Client {
	return &Client{
		conn:     conn,
		hub:      hub,
		log:      logger.WithFields(logrus.Fields{"caller_id": callerId, "room_id": roomId}),
		callerId: callerId,
		roomId:   roomId,
		send:     make(chan *ServerMessage, sendBuffer),
	}
}

// Write drains the send queue until the hub closes it, then sends a close
// frame.
func (c *Client) Write() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
		c.log.Debug("write pump exiting")
	}()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				c.sendMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "detached"))
				return
			}

			bytes, err := serializeMessage(msg)
			if err != nil {
				c.log.WithError(err).Error("failed to serialize message")
				continue
			}

			if !c.sendMessage(websocket.TextMessage, bytes) {
				return
			}
		case <-ticker.C:
			if !c.sendMessage(websocket.PingMessage, nil) {
				return
			}
		}
	}
}

// Read keeps the read deadline alive on pongs and discards data frames.
// It returns when the peer goes away.
func (c *Client) Read() {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
		c.log.Debug("read pump exiting")
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure) {
				c.log.WithError(err).Warn("ws read")
			}
			return
		}
		c.log.Debug("ignoring data frame from client")
	}
}

func (c *Client) queueMessage(msg *ServerMessage) bool {
	select {
	case c.send <- msg:
	default:
		c.log.Warn("send queue full")
		return false
	}

	return true
}

func serializeMessage(msg *ServerMessage) ([]byte, error) {
	return json.Marshal(msg)
}

func (c *Client) sendMessage(msgType int, msg []byte) bool {
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))

	if err := c.conn.WriteMessage(msgType, msg); err != nil {
		if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure,
			websocket.CloseNormalClosure) {
			c.log.WithError(err).Warn("ws write")
		}
		return false
	}

	return true
}
