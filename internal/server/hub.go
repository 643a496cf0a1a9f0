package server

import (
	"context"

	"github.com/google/uuid"
	"github.com/npezzotti/vibehub/internal/stats"
	"github.com/npezzotti/vibehub/internal/types"
	"github.com/sirupsen/logrus"
)

type stopReq struct {
	done chan struct{}
}

// Hub fans room events out to the live connections of the room. All client
// bookkeeping happens on the Run goroutine.
type Hub struct {
	log        *logrus.Logger
	stats      stats.StatsProvider
	rooms      map[uuid.UUID]map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	broadcast  chan types.RoomEvent
	stop       chan stopReq
	done       chan struct{}
}

func NewHub(logger *logrus.Logger, su stats.StatsProvider) *Hub {
	return &Hub{
		log:        logger,
		stats:      su,
		rooms:      make(map[uuid.UUID]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan types.RoomEvent, 256),
		stop:       make(chan stopReq),
		done:       make(chan struct{}),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case c := <-h.register:
			h.addClient(c)
		case c := <-h.unregister:
			h.removeClient(c)
		case e := <-h.broadcast:
			h.deliver(e)
		case req := <-h.stop:
			h.log.Info("hub shutting down")
			for _, clients := range h.rooms {
				for c := range clients {
					h.removeClient(c)
				}
			}
			close(h.done)
			close(req.done)
			return
		}
	}
}

// Register attaches c to its room. It reports false once the hub has
// stopped.
func (h *Hub) Register(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// Notify queues e for delivery. Events raised after shutdown are dropped.
func (h *Hub) Notify(e types.RoomEvent) {
	select {
	case h.broadcast <- e:
	case <-h.done:
	}
}

// Shutdown detaches every connection and stops Run.
func (h *Hub) Shutdown(ctx context.Context) error {
	req := stopReq{done: make(chan struct{})}
	select {
	case h.stop <- req:
	case <-h.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-req.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *Hub) addClient(c *Client) {
	clients, ok := h.rooms[c.roomId]
	if !ok {
		clients = make(map[*Client]struct{})
		h.rooms[c.roomId] = clients
	}
	clients[c] = struct{}{}
	h.stats.Incr(stats.ConnectedClients)
	c.queueMessage(welcomeMessage(c))
	c.log.Info("connection attached")
}

// removeClient closes the client's send queue, which makes its write pump
// send a close frame. It is a no-op for clients already removed.
func (h *Hub) removeClient(c *Client) {
	clients, ok := h.rooms[c.roomId]
	if !ok {
		return
	}
	if _, ok := clients[c]; !ok {
		return
	}

	delete(clients, c)
	if len(clients) == 0 {
		delete(h.rooms, c.roomId)
	}
	close(c.send)
	h.stats.Decr(stats.ConnectedClients)
	c.log.Info("connection detached")
}

func (h *Hub) deliver(e types.RoomEvent) {
	clients := h.rooms[e.RoomId]
	if len(clients) == 0 {
		return
	}

	msg := eventMessage(e)
	for c := range clients {
		if !c.queueMessage(msg) {
			h.removeClient(c)
		}
	}

	switch {
	case e.Type == types.EventRoomDeleted:
		for c := range clients {
			h.removeClient(c)
		}
	case e.Detaches() && e.MemberId != nil:
		for c := range clients {
			if c.callerId == *e.MemberId {
				h.removeClient(c)
			}
		}
	}

	h.log.WithFields(logrus.Fields{
		"room_id": e.RoomId,
		"type":    e.Type,
	}).Debug("event delivered")
}
