package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Event is a single SSE telemetry event.
type Event struct {
	ID   int64                  `json:"id,omitempty"`
	Type string                 `json:"type"`
	Data map[string]interface{} `json:"data"`
}

// SnapshotFunc supplies the state payload for the initial ready event.
type SnapshotFunc func() map[string]interface{}

// client is one SSE subscriber. The events channel is never closed;
// the context governs the client's lifetime so publishers racing a
// teardown at worst send into a buffered channel nobody drains.
type client struct {
	id     string
	writer http.ResponseWriter
	ctx    context.Context
	cancel context.CancelFunc
	events chan Event
	mu     sync.Mutex // guards writer
}

// Hub distributes profile change events to SSE clients. Events carry
// monotonic ids; a bounded replay buffer serves Last-Event-ID resume.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*client

	nextID   atomic.Int64
	buffer   []Event
	capacity int

	snapshot          SnapshotFunc
	heartbeatInterval time.Duration
	heartbeatTicker   *time.Ticker
	stopHeartbeat     chan struct{}

	done chan struct{}
	wg   sync.WaitGroup
}

// NewHub creates a hub with the given replay buffer capacity and
// heartbeat interval. snapshot may be nil.
func NewHub(capacity int, heartbeatInterval time.Duration, snapshot SnapshotFunc) *Hub {
	if capacity <= 0 {
		capacity = 64
	}
	return &Hub{
		clients:           make(map[string]*client),
		capacity:          capacity,
		snapshot:          snapshot,
		heartbeatInterval: heartbeatInterval,
		done:              make(chan struct{}),
	}
}

// Subscribe serves an SSE stream to the caller. Blocks until the client
// disconnects or the hub stops.
func (h *Hub) Subscribe(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	w.Header().Set("Content-Type", "text/event-stream; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	clientCtx, cancel := context.WithCancel(ctx)

	lastEventID := int64(0)
	if lastIDStr := r.Header.Get("Last-Event-ID"); lastIDStr != "" {
		if id, err := strconv.ParseInt(lastIDStr, 10, 64); err == nil {
			lastEventID = id
		}
	}

	c := &client{
		id:     uuid.NewString(),
		writer: w,
		ctx:    clientCtx,
		cancel: cancel,
		events: make(chan Event, 100),
	}

	h.mu.Lock()
	h.clients[c.id] = c
	if len(h.clients) == 1 && h.heartbeatTicker == nil {
		h.startHeartbeat()
	}
	h.mu.Unlock()

	if err := h.sendReady(c); err != nil {
		h.unregister(c.id)
		return fmt.Errorf("failed to send ready event: %w", err)
	}

	if lastEventID > 0 {
		if err := h.replay(c, lastEventID); err != nil {
			h.unregister(c.id)
			return fmt.Errorf("failed to replay events: %w", err)
		}
	}

	h.serve(c)
	return nil
}

// Publish assigns the event an id, buffers it for replay, and fans it
// out to every connected client. Slow clients drop events rather than
// block the publisher.
func (h *Hub) Publish(event Event) {
	if event.ID == 0 {
		event.ID = h.nextID.Add(1)
	}

	h.mu.Lock()
	h.buffer = append(h.buffer, event)
	if len(h.buffer) > h.capacity {
		h.buffer = h.buffer[len(h.buffer)-h.capacity:]
	}
	clients := make([]*client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		select {
		case <-c.ctx.Done():
		case <-h.done:
			return
		case c.events <- event:
		default:
		}
	}
}

// OnProfilesChanged publishes a change event. The hub registers as a
// profile change observer under this method.
func (h *Hub) OnProfilesChanged() {
	h.Publish(Event{
		Type: "profilesChanged",
		Data: map[string]interface{}{
			"ts": time.Now().UTC().Format(time.RFC3339),
		},
	})
}

func (h *Hub) sendReady(c *client) error {
	data := map[string]interface{}{}
	if h.snapshot != nil {
		data["snapshot"] = h.snapshot()
	}
	return h.send(c, Event{
		ID:   h.nextID.Add(1),
		Type: "ready",
		Data: data,
	})
}

func (h *Hub) replay(c *client, lastEventID int64) error {
	h.mu.RLock()
	var missed []Event
	for _, e := range h.buffer {
		if e.ID > lastEventID {
			missed = append(missed, e)
		}
	}
	h.mu.RUnlock()

	for _, e := range missed {
		if err := h.send(c, e); err != nil {
			return err
		}
	}
	return nil
}

func (h *Hub) send(c *client, event Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if event.ID > 0 {
		if _, err := fmt.Fprintf(c.writer, "id: %d\n", event.ID); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintf(c.writer, "event: %s\n", event.Type); err != nil {
		return err
	}
	data, err := json.Marshal(event.Data)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(c.writer, "data: %s\n\n", string(data)); err != nil {
		return err
	}
	if flusher, ok := c.writer.(http.Flusher); ok {
		flusher.Flush()
	}
	return nil
}

func (h *Hub) serve(c *client) {
	// unregister cancels the context first, so publishers that already
	// snapshotted this client fall through to their ctx.Done case.
	defer h.unregister(c.id)

	for {
		select {
		case <-c.ctx.Done():
			return
		case <-h.done:
			return
		case event := <-c.events:
			if err := h.send(c, event); err != nil {
				return
			}
		}
	}
}

func (h *Hub) unregister(clientID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if c, exists := h.clients[clientID]; exists {
		c.cancel()
		delete(h.clients, clientID)
		if len(h.clients) == 0 && h.heartbeatTicker != nil {
			h.heartbeatTicker.Stop()
			h.heartbeatTicker = nil
			if h.stopHeartbeat != nil {
				close(h.stopHeartbeat)
				h.stopHeartbeat = nil
			}
		}
	}
}

// startHeartbeat runs while at least one client is connected. Caller
// holds h.mu with h.heartbeatTicker == nil.
func (h *Hub) startHeartbeat() {
	if h.heartbeatInterval <= 0 {
		return
	}
	h.heartbeatTicker = time.NewTicker(h.heartbeatInterval)
	h.stopHeartbeat = make(chan struct{})

	ticker := h.heartbeatTicker
	stopCh := h.stopHeartbeat

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		for {
			select {
			case <-ticker.C:
				h.Publish(Event{
					Type: "heartbeat",
					Data: map[string]interface{}{
						"ts": time.Now().UTC().Format(time.RFC3339),
					},
				})
			case <-stopCh:
				return
			case <-h.done:
				return
			}
		}
	}()
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Stop shuts the hub down and disconnects every client.
func (h *Hub) Stop() {
	close(h.done)

	h.mu.Lock()
	for _, c := range h.clients {
		c.cancel()
	}
	if h.heartbeatTicker != nil {
		h.heartbeatTicker.Stop()
		h.heartbeatTicker = nil
	}
	if h.stopHeartbeat != nil {
		close(h.stopHeartbeat)
		h.stopHeartbeat = nil
	}
	h.clients = make(map[string]*client)
	h.mu.Unlock()

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
	}
}
