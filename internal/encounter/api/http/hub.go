package http

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/louisbranch/initiative/internal/encounter/domain"
	"github.com/louisbranch/initiative/internal/encounter/service"
)

// Hub fans encounter change notifications out to websocket clients. Clients
// join one encounter id and receive every mutation broadcast for it.
type Hub struct {
	mu sync.RWMutex
	// encounterID -> connections watching that encounter
	watchers map[string][]*websocket.Conn

	upgrader websocket.Upgrader
}

// NewHub creates an empty notification hub.
func NewHub() *Hub {
	return &Hub{
		watchers: make(map[string][]*websocket.Conn),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// changeMessage is the JSON frame pushed to every watcher on a mutation.
type changeMessage struct {
	Event     service.Event  `json:"event"`
	Encounter *encounterView `json:"encounter"`
}

// Notify implements service.Notifier.
func (h *Hub) Notify(encounterID string, event service.Event, snapshot domain.Encounter) {
	h.mu.RLock()
	conns := append([]*websocket.Conn(nil), h.watchers[encounterID]...)
	h.mu.RUnlock()
	if len(conns) == 0 {
		return
	}

	view := newEncounterView(snapshot)
	data, err := json.Marshal(changeMessage{Event: event, Encounter: &view})
	if err != nil {
		log.Printf("hub: encode %s notification: %v", event, err)
		return
	}
	for _, conn := range conns {
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			h.drop(encounterID, conn)
		}
	}
}

func (h *Hub) join(encounterID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.watchers[encounterID] = append(h.watchers[encounterID], conn)
}

func (h *Hub) drop(encounterID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	conns := h.watchers[encounterID]
	for i, candidate := range conns {
		if candidate == conn {
			h.watchers[encounterID] = append(conns[:i], conns[i+1:]...)
			break
		}
	}
	if len(h.watchers[encounterID]) == 0 {
		delete(h.watchers, encounterID)
	}
	_ = conn.Close()
}

// serveWS upgrades the request and keeps the connection registered until
// the client goes away. Inbound frames are discarded; the socket is a
// one-way notification stream.
func (h *Hub) serveWS(w http.ResponseWriter, r *http.Request, encounterID string) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("hub: upgrade failed: %v", err)
		return
	}
	h.join(encounterID, conn)

	go func() {
		defer h.drop(encounterID, conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}
