package websocket

import (
	"context"
	"encoding/json"
	"sync"

	"docchat-client/internal/pkg/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// clusterChannel carries tab-addressed frames between BFF instances.
const clusterChannel = "docchat_ws_events"

type Hub struct {
	// Registered clients: TabID -> connections (a tab may reconnect before
	// the old socket is reaped)
	clients map[string][]*Client

	register   chan *Client
	unregister chan *Client

	mu sync.RWMutex

	// Redis connection for cross-instance delivery; nil runs single-instance
	rdb *redis.Client

	// instanceID tags frames this hub publishes so it skips them on receipt
	instanceID string

	logger logger.ILogger
}

func NewHub(rdb *redis.Client, log logger.ILogger) *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[string][]*Client),
		rdb:        rdb,
		instanceID: uuid.NewString(),
		logger:     log,
	}
}

func (h *Hub) Run(ctx context.Context) {
	if h.rdb != nil {
		go h.subscribeToRedis(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.TabID] = append(h.clients[client.TabID], client)
			h.mu.Unlock()
			h.logger.Info("Hub", "Client registered", map[string]interface{}{"tab_id": client.TabID})

		case client := <-h.unregister:
			h.mu.Lock()
			h.removeLocked(client)
			h.mu.Unlock()
		}
	}
}

func (h *Hub) removeLocked(client *Client) {
	clients, ok := h.clients[client.TabID]
	if !ok {
		return
	}
	for i, c := range clients {
		if c == client {
			h.clients[client.TabID] = append(clients[:i], clients[i+1:]...)
			close(client.Send)
			break
		}
	}
	if len(h.clients[client.TabID]) == 0 {
		delete(h.clients, client.TabID)
		h.logger.Info("Hub", "Client completely unregistered", map[string]interface{}{"tab_id": client.TabID})
	}
}

// Send delivers a frame to every connection of one tab, here and, through
// Redis, on other instances.
func (h *Hub) Send(tabID string, frame interface{}) {
	data, err := json.Marshal(frame)
	if err != nil {
		h.logger.Error("Hub", "Failed to marshal frame", map[string]interface{}{"error": err.Error()})
		return
	}

	h.deliverLocal(tabID, data)

	if h.rdb != nil {
		payload, _ := json.Marshal(clusterFrame{
			Origin:      h.instanceID,
			TargetTabID: tabID,
			Message:     json.RawMessage(data),
		})
		if err := h.rdb.Publish(context.Background(), clusterChannel, payload).Err(); err != nil {
			h.logger.Warn("Hub", "Failed to publish frame to Redis", map[string]interface{}{"error": err.Error()})
		}
	}
}

// Connected reports whether the tab has a live socket on this instance.
func (h *Hub) Connected(tabID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[tabID]) > 0
}

// deliverLocal holds the read lock while sending so removeLocked cannot close
// a channel mid-send. Sends never block.
func (h *Hub) deliverLocal(tabID string, data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, client := range h.clients[tabID] {
		select {
		case client.Send <- data:
		default:
			h.logger.Warn("Hub", "Client Send buffer full, dropping client", map[string]interface{}{"tab_id": tabID})
			go func(c *Client) { h.unregister <- c }(client)
		}
	}
}

func (h *Hub) subscribeToRedis(ctx context.Context) {
	pubsub := h.rdb.Subscribe(ctx, clusterChannel)
	defer pubsub.Close()

	for msg := range pubsub.Channel() {
		h.handleClusterMessage(msg.Payload)
	}
}

type clusterFrame struct {
	Origin      string          `json:"origin"`
	TargetTabID string          `json:"target_tab_id"`
	Message     json.RawMessage `json:"message"`
}

// handleClusterMessage delivers a frame published by another instance.
// Frames this hub published were already delivered locally by Send.
func (h *Hub) handleClusterMessage(raw string) {
	var frame clusterFrame
	if err := json.Unmarshal([]byte(raw), &frame); err != nil {
		h.logger.Warn("Hub", "Redis message parse error", map[string]interface{}{"error": err.Error()})
		return
	}
	if frame.Origin == h.instanceID {
		return
	}
	h.deliverLocal(frame.TargetTabID, frame.Message)
}
