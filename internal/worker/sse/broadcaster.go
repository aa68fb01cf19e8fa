// Package sse streams change events to browsers as Server-Sent Events.
package sse

import (
	"fmt"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
)

const (
	// WriteTimeout bounds a single write so a stale connection cannot stall a broadcast.
	WriteTimeout = 2 * time.Second

	// KeepAliveInterval is how often an idle stream receives a comment line,
	// keeping proxies from closing it.
	KeepAliveInterval = 15 * time.Second
)

// Client is one connected event stream.
type Client struct {
	Writer  http.ResponseWriter
	Flusher http.Flusher
	Done    chan struct{}
	ID      string
	// Types limits delivery to these event types. Empty means every type.
	Types map[string]bool

	writeMu sync.Mutex
}

// Wants reports whether the client subscribed to eventType.
func (c *Client) Wants(eventType string) bool {
	return len(c.Types) == 0 || eventType == "" || c.Types[eventType]
}

// write serializes writes to the underlying stream.
func (c *Client) write(msg string) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if _, err := c.Writer.Write([]byte(msg)); err != nil {
		return err
	}
	c.Flusher.Flush()
	return nil
}

// Broadcaster fans events out to every connected client.
type Broadcaster struct {
	clients map[string]*Client
	mu      sync.RWMutex
	nextID  int
	seq     atomic.Uint64
}

// NewBroadcaster creates a new broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		clients: make(map[string]*Client),
	}
}

// AddClient registers a stream, optionally filtered to the given event types.
func (b *Broadcaster) AddClient(w http.ResponseWriter, types ...string) (*Client, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("streaming not supported")
	}

	var filter map[string]bool
	for _, t := range types {
		if t = strings.TrimSpace(t); t != "" {
			if filter == nil {
				filter = make(map[string]bool)
			}
			filter[t] = true
		}
	}

	b.mu.Lock()
	b.nextID++
	id := fmt.Sprintf("client-%d", b.nextID)
	client := &Client{
		ID:      id,
		Writer:  w,
		Flusher: flusher,
		Done:    make(chan struct{}),
		Types:   filter,
	}
	b.clients[id] = client
	clientCount := len(b.clients)
	b.mu.Unlock()

	log.Debug().
		Str("clientId", id).
		Int("totalClients", clientCount).
		Msg("SSE client connected")

	return client, nil
}

// RemoveClient unregisters a stream and closes its Done channel.
func (b *Broadcaster) RemoveClient(client *Client) {
	b.mu.Lock()
	_, exists := b.clients[client.ID]
	delete(b.clients, client.ID)
	clientCount := len(b.clients)
	b.mu.Unlock()

	closeDone(client)

	if exists {
		log.Debug().
			Str("clientId", client.ID).
			Int("totalClients", clientCount).
			Msg("SSE client disconnected")
	}
}

func closeDone(c *Client) {
	if c.Done == nil {
		return
	}
	select {
	case <-c.Done:
	default:
		close(c.Done)
	}
}

// removeClientByID drops a client whose writes failed or timed out.
func (b *Broadcaster) removeClientByID(id string) {
	b.mu.Lock()
	client, exists := b.clients[id]
	delete(b.clients, id)
	clientCount := len(b.clients)
	b.mu.Unlock()

	if !exists {
		return
	}
	closeDone(client)
	log.Debug().
		Str("clientId", id).
		Int("totalClients", clientCount).
		Msg("Dead SSE client removed")
}

// eventType returns the "type" field of a broadcast payload, if it has one.
func eventType(data interface{}) string {
	switch v := data.(type) {
	case map[string]interface{}:
		t, _ := v["type"].(string)
		return t
	case map[string]string:
		return v["type"]
	}
	return ""
}

// Broadcast sends data as JSON to every client subscribed to its type.
// Each message carries an increasing id line.
func (b *Broadcaster) Broadcast(data interface{}) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal SSE data")
		return
	}
	typ := eventType(data)
	message := fmt.Sprintf("id: %d\ndata: %s\n\n", b.seq.Add(1), jsonData)

	b.mu.RLock()
	clients := make([]*Client, 0, len(b.clients))
	for _, client := range b.clients {
		if client.Wants(typ) {
			clients = append(clients, client)
		}
	}
	b.mu.RUnlock()

	if len(clients) == 0 {
		return
	}

	deadClientsCh := make(chan string, len(clients))
	var wg sync.WaitGroup

	for _, client := range clients {
		select {
		case <-client.Done:
			continue
		default:
			wg.Add(1)
			go func(c *Client) {
				defer wg.Done()
				b.writeToClient(c, message, deadClientsCh)
			}(client)
		}
	}

	wg.Wait()
	close(deadClientsCh)

	for clientID := range deadClientsCh {
		b.removeClientByID(clientID)
	}
}

// writeToClient writes one message, marking the client dead on error or timeout.
func (b *Broadcaster) writeToClient(client *Client, message string, deadCh chan<- string) {
	done := make(chan error, 1)
	go func() {
		done <- client.write(message)
	}()

	select {
	case err := <-done:
		if err != nil {
			log.Debug().
				Str("clientId", client.ID).
				Err(err).
				Msg("Failed to write to SSE client, marking for removal")
			deadCh <- client.ID
		}
	case <-time.After(WriteTimeout):
		log.Warn().
			Str("clientId", client.ID).
			Dur("timeout", WriteTimeout).
			Msg("SSE write timed out, marking client for removal")
		deadCh <- client.ID
	case <-client.Done:
	}
}

// ClientCount returns the number of connected clients.
func (b *Broadcaster) ClientCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients)
}

// HandleSSE streams events until the client disconnects. The optional
// "types" query parameter is a comma-separated event type filter.
func (b *Broadcaster) HandleSSE(w http.ResponseWriter, r *http.Request) {
	b.serve(w, r, KeepAliveInterval)
}

func (b *Broadcaster) serve(w http.ResponseWriter, r *http.Request, keepAlive time.Duration) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	var types []string
	if q := r.URL.Query().Get("types"); q != "" {
		types = strings.Split(q, ",")
	}
	client, err := b.AddClient(w, types...)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	defer b.RemoveClient(client)

	if err := client.write(fmt.Sprintf("data: {\"type\":\"connected\",\"clientId\":\"%s\"}\n\n", client.ID)); err != nil {
		return
	}

	ticker := time.NewTicker(keepAlive)
	defer ticker.Stop()
	for {
		select {
		case <-r.Context().Done():
			return
		case <-client.Done:
			return
		case <-ticker.C:
			if err := client.write(": keepalive\n\n"); err != nil {
				return
			}
		}
	}
}
