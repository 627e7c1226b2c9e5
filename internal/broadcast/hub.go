package broadcast

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/BruksfildServices01/clinic-crm/internal/models"
)

// Message is what board clients receive for every timeline event.
type Message struct {
	Type  string           `json:"type"`
	Event models.LeadEvent `json:"event"`
}

const writeWait = 5 * time.Second

// Hub keeps the websocket connections of each clinic's board.
type Hub struct {
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[string]map[*websocket.Conn]struct{}
}

// NewHub accepts upgrades from the given origins; "*" or an empty list
// allows any origin.
func NewHub(allowedOrigins []string) *Hub {
	allowed := map[string]bool{}
	for _, o := range allowedOrigins {
		allowed[o] = true
	}
	h := &Hub{clients: map[string]map[*websocket.Conn]struct{}{}}
	h.upgrader = websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return len(allowed) == 0 || allowed["*"] || origin == "" || allowed[origin]
		},
	}
	return h
}

// Serve upgrades the request and blocks until the client disconnects.
// Clients only listen; anything they send is discarded.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, clinicID string) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	h.add(clinicID, conn)
	defer h.remove(clinicID, conn)

	for {
		if _, _, err := conn.NextReader(); err != nil {
			return nil
		}
	}
}

func (h *Hub) add(clinicID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[clinicID] == nil {
		h.clients[clinicID] = map[*websocket.Conn]struct{}{}
	}
	h.clients[clinicID][conn] = struct{}{}
}

func (h *Hub) remove(clinicID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients[clinicID], conn)
	if len(h.clients[clinicID]) == 0 {
		delete(h.clients, clinicID)
	}
}

// Count returns the open connections for a clinic.
func (h *Hub) Count(clinicID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients[clinicID])
}

// Deliver writes each event to the boards of its clinic. A failed write
// drops the connection.
func (h *Hub) Deliver(events []models.LeadEvent) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, ev := range events {
		for conn := range h.clients[ev.ClinicID] {
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(Message{Type: "lead_event", Event: ev}); err != nil {
				conn.Close()
				delete(h.clients[ev.ClinicID], conn)
			}
		}
	}
	return nil
}
