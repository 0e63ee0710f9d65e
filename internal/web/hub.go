package web

import (
	"errors"
	"sort"
	"sync"

	"github.com/benmeehan/rssi-collector/internal/constants"
	"github.com/rs/zerolog"
)

// Message is the envelope of every push event.
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// directMessage is addressed to a single client.
type directMessage struct {
	client  *Client
	message Message
}

// Hub fans push events out to every connected browser. Only the run loop
// sends on or closes a registered client's send channel.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan Message
	direct     chan directMessage
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex

	logger zerolog.Logger

	started bool
	done    chan struct{}
	wg      sync.WaitGroup
}

// NewHub creates a Hub. Call Start before serving clients.
func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan Message, 256),
		direct:     make(chan directMessage, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		logger:     logger.With().Str("component", "websocket-hub").Logger(),
	}
}

// Start runs the hub loop in a separate goroutine. A stopped hub cannot be restarted.
func (h *Hub) Start() error {
	if h.started {
		h.logger.Warn().Msg("Hub is already running")
		return errors.New("websocket hub is already running")
	}
	h.started = true

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		h.run()
	}()

	h.logger.Info().Msg("Hub started")
	return nil
}

// Stop disconnects every client and ends the hub loop.
func (h *Hub) Stop() error {
	if !h.started || h.stopped() {
		h.logger.Warn().Msg("Hub is not running")
		return errors.New("websocket hub is not running")
	}

	close(h.done)
	h.wg.Wait()

	h.logger.Info().Msg("Hub stopped")
	return nil
}

func (h *Hub) stopped() bool {
	select {
	case <-h.done:
		return true
	default:
		return false
	}
}

func (h *Hub) run() {
	for {
		select {
		case <-h.done:
			count := h.closeAllClients()
			h.logger.Info().Int("clients_closed", count).Msg("Closed all websocket clients")
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			total := len(h.clients)
			h.mu.Unlock()
			h.logger.Info().Int("total_clients", total).Msg("Websocket client connected")

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			total := len(h.clients)
			h.mu.Unlock()
			h.logger.Info().Int("total_clients", total).Msg("Websocket client disconnected")

		case message := <-h.broadcast:
			h.broadcastToClients(message)

		case d := <-h.direct:
			h.sendToClient(d.client, d.message)
		}
	}
}

// join hands a client to the hub loop. It fails once the hub has stopped.
func (h *Hub) join(c *Client) bool {
	// The greeting is queued before registration so it is always the first frame.
	c.send <- Message{Type: constants.EventStatus, Data: map[string]string{"message": "Connected to server"}}

	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

// leave removes a client. Safe to call after the hub has stopped.
func (h *Hub) leave(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// reply queues a message for one client. It is a no-op once the hub has stopped.
func (h *Hub) reply(c *Client, message Message) {
	select {
	case h.direct <- directMessage{client: c, message: message}:
	case <-h.done:
	}
}

func (h *Hub) sendToClient(c *Client, message Message) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[c]; !ok {
		return
	}
	select {
	case c.send <- message:
	default:
		h.logger.Debug().Uint64("client_id", c.id).Str("message_type", message.Type).Msg("Client buffer full, dropping reply")
	}
}

// Slow clients whose buffer is full are dropped.
func (h *Hub) broadcastToClients(message Message) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients := h.sortedClientsLocked()

	for _, client := range clients {
		select {
		case client.send <- message:
		default:
			close(client.send)
			delete(h.clients, client)
			h.logger.Warn().Uint64("client_id", client.id).Msg("Dropping slow websocket client")
		}
	}
}

func (h *Hub) closeAllClients() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients := h.sortedClientsLocked()
	for _, client := range clients {
		close(client.send)
		delete(h.clients, client)
	}
	return len(clients)
}

func (h *Hub) sortedClientsLocked() []*Client {
	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	sort.Slice(clients, func(i, j int) bool { return clients[i].id < clients[j].id })
	return clients
}

// Broadcast queues an event for every client. Events are dropped when the
// queue is full.
func (h *Hub) Broadcast(eventType string, data interface{}) {
	select {
	case h.broadcast <- Message{Type: eventType, Data: data}:
	default:
		h.logger.Warn().Str("message_type", eventType).Msg("Broadcast channel full, dropping message")
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
