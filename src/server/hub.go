package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"market-sync/src/models"
)

// -----------------------------------------------------------------------------
// WebSocket hub: fan-out of published states to connected dashboard clients.
// -----------------------------------------------------------------------------

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		return strings.HasPrefix(origin, "http://127.0.0.1:") || strings.HasPrefix(origin, "http://localhost:")
	},
}

// -----------------------------------------------------------------------------

// runHub owns the client set. All membership changes go through the
// register/unregister channels so no lock is needed around the map.
func (s *DashServer) runHub() {
	for {
		select {
		case <-s.done:
			s.closeAllClients()
			return

		case client := <-s.register:
			s.stateMutex.Lock()
			s.clients[client] = struct{}{}
			total := len(s.clients)
			s.stateMutex.Unlock()
			s.Logger.Info("Client connected (%d total)", total)

			// Late joiners get the latest state immediately.
			s.stateMutex.RLock()
			latest := s.latestState
			s.stateMutex.RUnlock()
			if payload, err := json.Marshal(latest); err == nil {
				select {
				case client.send <- payload:
				default:
				}
			}

		case client := <-s.unregister:
			s.stateMutex.Lock()
			if _, ok := s.clients[client]; ok {
				delete(s.clients, client)
				close(client.send)
			}
			total := len(s.clients)
			s.stateMutex.Unlock()
			s.Logger.Info("Client disconnected (%d total)", total)

		case state := <-s.broadcast:
			s.stateMutex.Lock()
			s.latestState = state
			s.stateMutex.Unlock()

			payload, err := json.Marshal(state)
			if err != nil {
				s.Logger.Error("Failed to marshal state: %v", err)
				continue
			}

			s.stateMutex.Lock()
			for client := range s.clients {
				select {
				case client.send <- payload:
				default:
					// Slow client, drop it rather than block the hub.
					delete(s.clients, client)
					close(client.send)
				}
			}
			s.stateMutex.Unlock()
		}
	}
}

// -----------------------------------------------------------------------------

func (s *DashServer) closeAllClients() {
	s.stateMutex.Lock()
	defer s.stateMutex.Unlock()
	for client := range s.clients {
		close(client.send)
		delete(s.clients, client)
	}
}

// -----------------------------------------------------------------------------

// Publish hands a freshly flushed state to the hub. Safe to call from the
// engines' flush goroutines; drops the state if the hub is saturated or the
// server is stopping.
func (s *DashServer) Publish(state *models.MPublishedState) {
	select {
	case <-s.done:
	case s.broadcast <- state:
	default:
		s.Logger.Warning("Broadcast queue full, dropping state update")
	}
}

// -----------------------------------------------------------------------------

func (s *DashServer) handleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.Logger.Error("WebSocket upgrade failed: %v", err)
		return
	}

	client := &Client{
		server: s,
		conn:   conn,
		send:   make(chan []byte, 64),
	}

	s.register <- client

	go client.writePump()
	go client.readPump()
}
