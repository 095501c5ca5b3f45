package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/vietanh2810/fuelticket-api/internal/domain"
)

const (
	writeWait  = 10 * time.Second
	sendBuffer = 256
)

var ErrHubClosed = errors.New("station feed hub is closed")

type client struct {
	conn      *websocket.Conn
	send      chan []byte
	stationID uint
}

type stationMessage struct {
	stationID uint
	payload   []byte
}

// Hub fans ticket events out to the websocket feeds of station managers.
// Each station has its own set of subscribers.
type Hub struct {
	clients      map[uint]map[*client]struct{}
	clientsMutex sync.RWMutex
	broadcast    chan stationMessage
	register     chan *client
	unregister   chan *client
	done         chan struct{}
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[uint]map[*client]struct{}),
		broadcast:  make(chan stationMessage),
		register:   make(chan *client),
		unregister: make(chan *client),
		done:       make(chan struct{}),
	}
}

// Run owns the subscriber sets until ctx is cancelled, then closes every
// connection.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			h.clientsMutex.Lock()
			for _, set := range h.clients {
				for c := range set {
					close(c.send)
				}
			}
			h.clients = make(map[uint]map[*client]struct{})
			h.clientsMutex.Unlock()

			return
		case c := <-h.register:
			h.clientsMutex.Lock()
			if h.clients[c.stationID] == nil {
				h.clients[c.stationID] = make(map[*client]struct{})
			}
			h.clients[c.stationID][c] = struct{}{}
			h.clientsMutex.Unlock()
		case c := <-h.unregister:
			h.remove(c)
		case msg := <-h.broadcast:
			h.clientsMutex.RLock()
			var slow []*client
			for c := range h.clients[msg.stationID] {
				select {
				case c.send <- msg.payload:
				default:
					slow = append(slow, c)
				}
			}
			h.clientsMutex.RUnlock()

			for _, c := range slow {
				zap.L().Warn("dropping slow station feed subscriber", zap.Uint("station_id", c.stationID))
				h.remove(c)
			}
		}
	}
}

func (h *Hub) remove(c *client) {
	h.clientsMutex.Lock()
	defer h.clientsMutex.Unlock()

	set := h.clients[c.stationID]
	if _, ok := set[c]; !ok {
		return
	}
	delete(set, c)
	if len(set) == 0 {
		delete(h.clients, c.stationID)
	}
	close(c.send)
}

// Subscribers returns the number of open feeds of a station.
func (h *Hub) Subscribers(stationID uint) int {
	h.clientsMutex.RLock()
	defer h.clientsMutex.RUnlock()

	return len(h.clients[stationID])
}

func (h *Hub) Publish(ctx context.Context, event domain.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("json.Marshal -> %w", err)
	}

	select {
	case h.broadcast <- stationMessage{stationID: event.StationID, payload: payload}:
		return nil
	case <-h.done:
		return ErrHubClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Serve attaches an upgraded connection to the station's feed. The feed is
// write only; incoming frames are read and discarded to notice the close.
func (h *Hub) Serve(conn *websocket.Conn, stationID uint) error {
	c := &client{
		conn:      conn,
		send:      make(chan []byte, sendBuffer),
		stationID: stationID,
	}

	select {
	case h.register <- c:
	case <-h.done:
		_ = conn.Close()
		return ErrHubClosed
	}

	go c.writePump()
	go c.readPump(h)

	return nil
}

func (c *client) writePump() {
	defer c.conn.Close()

	for message := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			return
		}
	}

	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
}

func (c *client) readPump(h *Hub) {
	defer func() {
		select {
		case h.unregister <- c:
		case <-h.done:
		}
		c.conn.Close()
	}()

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				zap.L().Debug("station feed closed", zap.Uint("station_id", c.stationID), zap.Error(err))
			}
			return
		}
	}
}
