// Package sse provides the outbound real-time boundary: a hub of server-sent
// event connections grouped into per-session rooms, with unicast delivery to
// a single connection.
package sse

import (
	"sync"

	"github.com/rs/zerolog/log"
)

// Client is one connected event-stream consumer.
type Client struct {
	id        string // connection ID, unique per stream
	sessionID string
	userID    string
	events    chan []byte
}

// NewClient creates a client bound to a session room.
func NewClient(id, sessionID, userID string) *Client {
	return &Client{
		id:        id,
		sessionID: sessionID,
		userID:    userID,
		events:    make(chan []byte, 256),
	}
}

// ID returns the connection identifier.
func (c *Client) ID() string { return c.id }

// SessionID returns the session room the client belongs to.
func (c *Client) SessionID() string { return c.sessionID }

// UserID returns the user behind the connection.
func (c *Client) UserID() string { return c.userID }

// Events returns the channel the serving loop reads from.
func (c *Client) Events() <-chan []byte { return c.events }

// send enqueues data for the client. A full channel means the client is too
// slow; the message is dropped rather than blocking the hub.
func (c *Client) send(data []byte) bool {
	select {
	case c.events <- data:
		return true
	default:
		log.Warn().Str("connection_id", c.id).Str("session_id", c.sessionID).Msg("client channel full, dropping event")
		return false
	}
}

// Hub tracks connections and routes events to session rooms or single
// connections.
type Hub struct {
	mu       sync.RWMutex
	clients  map[string]*Client            // connection ID -> client
	sessions map[string]map[string]*Client // session ID -> connection ID -> client
	closed   bool
}

func NewHub() *Hub {
	return &Hub{
		clients:  make(map[string]*Client),
		sessions: make(map[string]map[string]*Client),
	}
}

// Register adds a connection to the hub and its session room.
func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		close(client.events)
		return
	}
	h.clients[client.id] = client
	room, ok := h.sessions[client.sessionID]
	if !ok {
		room = make(map[string]*Client)
		h.sessions[client.sessionID] = room
	}
	room[client.id] = client
	log.Debug().Str("connection_id", client.id).Str("session_id", client.sessionID).Int("room_size", len(room)).Msg("sse client registered")
}

// Unregister removes a connection. Safe to call for an absent client.
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[client.id]; !ok {
		return
	}
	delete(h.clients, client.id)
	if room, ok := h.sessions[client.sessionID]; ok {
		delete(room, client.id)
		if len(room) == 0 {
			delete(h.sessions, client.sessionID)
		}
	}
	close(client.events)
	log.Debug().Str("connection_id", client.id).Str("session_id", client.sessionID).Msg("sse client unregistered")
}

// BroadcastToSession sends data to every connection in the session room.
func (h *Hub) BroadcastToSession(sessionID string, data []byte) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	sent := 0
	for _, client := range h.sessions[sessionID] {
		if client.send(data) {
			sent++
		}
	}
	return sent
}

// SendToConnection sends data to one connection. Returns false if the
// connection is gone or too slow; callers treat that as a missed delivery,
// not an error. The read lock is held across the send: Unregister closes the
// events channel under the write lock, so a concurrent disconnect can never
// close the channel mid-send.
func (h *Hub) SendToConnection(connectionID string, data []byte) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	client, ok := h.clients[connectionID]
	if !ok {
		return false
	}
	return client.send(data)
}

// SessionConnections returns a snapshot of connection IDs in a session room.
func (h *Hub) SessionConnections(sessionID string) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	room := h.sessions[sessionID]
	ids := make([]string, 0, len(room))
	for id := range room {
		ids = append(ids, id)
	}
	return ids
}

// Close disconnects every client. Further registrations are rejected.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for id, client := range h.clients {
		close(client.events)
		delete(h.clients, id)
	}
	h.sessions = make(map[string]map[string]*Client)
}
