package utility

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// Hub of connected admin dashboards: Map[ConnectionID] -> Connection
var (
	AdminClients   = make(map[string]*websocket.Conn)
	AdminClientsMu sync.Mutex
	Upgrader       = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		// Allow CORS for development
		CheckOrigin: func(r *http.Request) bool { return true },
	}
)

// SearchEvent is pushed to admin dashboards whenever a search is recorded.
type SearchEvent struct {
	SearchType string    `json:"search_type"`
	Query      string    `json:"query,omitempty"`
	ClientIP   string    `json:"client_ip"`
	Anonymous  bool      `json:"anonymous"`
	OccurredAt time.Time `json:"occurred_at"`
}

// RegisterAdminClient adds a dashboard connection to the hub.
func RegisterAdminClient(connID string, conn *websocket.Conn) {
	AdminClientsMu.Lock()
	defer AdminClientsMu.Unlock()
	AdminClients[connID] = conn
	log.Info().Str("conn_id", connID).Msg("Admin WebSocket client connected")
}

// UnregisterAdminClient removes a dashboard connection (tab closed).
func UnregisterAdminClient(connID string) {
	AdminClientsMu.Lock()
	defer AdminClientsMu.Unlock()
	if _, ok := AdminClients[connID]; ok {
		delete(AdminClients, connID)
		log.Info().Str("conn_id", connID).Msg("Admin WebSocket client disconnected")
	}
}

// BroadcastToAdmins sends a raw text frame to every connected dashboard.
// Dead connections are dropped from the hub.
func BroadcastToAdmins(message string) {
	AdminClientsMu.Lock()
	defer AdminClientsMu.Unlock()

	for connID, conn := range AdminClients {
		if err := conn.WriteMessage(websocket.TextMessage, []byte(message)); err != nil {
			log.Error().Err(err).Str("conn_id", connID).Msg("Failed to send WS message, removing client")
			conn.Close()
			delete(AdminClients, connID)
		}
	}
}

// BroadcastSearchEvent pushes a ledger entry to every connected dashboard.
func BroadcastSearchEvent(event SearchEvent) {
	AdminClientsMu.Lock()
	defer AdminClientsMu.Unlock()

	for connID, conn := range AdminClients {
		if err := conn.WriteJSON(event); err != nil {
			log.Error().Err(err).Str("conn_id", connID).Msg("Failed to push search event, removing client")
			conn.Close()
			delete(AdminClients, connID)
		}
	}
}
