package main

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Hub maintains the set of connected dashboard clients and broadcasts every
// accepted signal to them as JSON.
type Hub struct {
	clients   map[*websocket.Conn]bool
	clientsMu sync.Mutex
	upgrader  websocket.Upgrader
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[*websocket.Conn]bool),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // Allow all origins for V1 (Development/Mobile)
			},
		},
	}
}

// HandleWebSocket manages one client connection's lifecycle.
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("Upgrade error: %v", err)
		return
	}

	h.register(conn)

	initMsg := map[string]interface{}{
		"type":      "connection_init",
		"status":    "connected",
		"service":   "tradel",
		"timestamp": time.Now().UnixMilli(),
	}
	conn.WriteJSON(initMsg)

	defer func() {
		h.unregister(conn)
		conn.Close()
	}()

	// WebSocket Heartbeat Config
	const (
		writeWait      = 10 * time.Second
		pongWait       = 60 * time.Second
		pingPeriod     = (pongWait * 9) / 10
		maxMessageSize = 512
	)

	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error { conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })

	// Start Pinger
	go func() {
		ticker := time.NewTicker(pingPeriod)
		defer ticker.Stop()
		for range ticker.C {
			if err := conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(writeWait)); err != nil {
				return // Stop Pinger if write fails
			}
		}
	}()

	// The read loop only exists to detect disconnects; clients do not talk back.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

func (h *Hub) register(conn *websocket.Conn) {
	h.clientsMu.Lock()
	defer h.clientsMu.Unlock()
	h.clients[conn] = true
	log.Printf("Feed client connected. Total clients: %d", len(h.clients))
}

func (h *Hub) unregister(conn *websocket.Conn) {
	h.clientsMu.Lock()
	defer h.clientsMu.Unlock()
	if _, ok := h.clients[conn]; ok {
		delete(h.clients, conn)
		log.Printf("Feed client disconnected. Total clients: %d", len(h.clients))
	}
}

// BroadcastSignal pushes one accepted signal to every connected client.
func (h *Hub) BroadcastSignal(sig Signal) {
	if h == nil {
		return
	}
	msg := struct {
		Type   string `json:"type"`
		Signal Signal `json:"signal"`
	}{Type: "signal", Signal: sig}

	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("Broadcast marshal error: %v", err)
		return
	}

	h.clientsMu.Lock()
	defer h.clientsMu.Unlock()

	for client := range h.clients {
		if err := client.WriteMessage(websocket.TextMessage, data); err != nil {
			log.Printf("Write error: %v", err)
			client.Close()
			delete(h.clients, client)
		}
	}
}
