package server

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/Conceptual-Machines/hb100-editor/internal/logger"
)

const outgoingQueueSize = 16

// client is one connected WebSocket session. Outgoing messages go through a
// buffered channel drained by a single writer goroutine, since gorilla
// connections allow only one concurrent writer.
type client struct {
	id       string
	conn     *websocket.Conn
	outgoing chan []byte
	closed   chan struct{}
	once     sync.Once
}

func (c *client) send(resp Response) {
	data, err := json.Marshal(resp)
	if err != nil {
		logger.Error("Could not serialise response", err, logger.Fields{"client": c.id})
		return
	}
	select {
	case c.outgoing <- data:
	case <-c.closed:
	default:
		logger.Warn("Dropping response, client outgoing queue full", logger.Fields{"client": c.id})
	}
}

func (c *client) writeLoop() {
	for {
		select {
		case data := <-c.outgoing:
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				logger.Warn("WebSocket write failed", logger.Fields{"client": c.id, "err": err})
				return
			}
		case <-c.closed:
			return
		}
	}
}

func (c *client) close() {
	c.once.Do(func() {
		close(c.closed)
		c.conn.Close()
	})
}

// clientTable tracks the connected WebSocket sessions. It is shared between
// the server goroutines and the dispatch loop delivering completions, so
// every access is mutex-guarded.
type clientTable struct {
	mu      sync.Mutex
	clients map[string]*client
}

func newClientTable() *clientTable {
	return &clientTable{clients: make(map[string]*client)}
}

func (t *clientTable) add(conn *websocket.Conn) *client {
	c := &client{
		id:       uuid.New().String(),
		conn:     conn,
		outgoing: make(chan []byte, outgoingQueueSize),
		closed:   make(chan struct{}),
	}
	t.mu.Lock()
	t.clients[c.id] = c
	t.mu.Unlock()
	return c
}

func (t *clientTable) find(id string) *client {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.clients[id]
}

func (t *clientTable) remove(id string) {
	t.mu.Lock()
	c := t.clients[id]
	delete(t.clients, id)
	t.mu.Unlock()
	if c != nil {
		c.close()
	}
}

func (t *clientTable) closeAll() {
	t.mu.Lock()
	clients := make([]*client, 0, len(t.clients))
	for _, c := range t.clients {
		clients = append(clients, c)
	}
	t.clients = make(map[string]*client)
	t.mu.Unlock()
	for _, c := range clients {
		c.close()
	}
}
