package handlers

import (
	"log"

	"github.com/gin-gonic/gin"

	"github.com/BruksfildServices01/clinic-crm/internal/broadcast"
	"github.com/BruksfildServices01/clinic-crm/internal/middleware"
)

type RealtimeHandler struct {
	hub *broadcast.Hub
}

func NewRealtimeHandler(hub *broadcast.Hub) *RealtimeHandler {
	return &RealtimeHandler{hub: hub}
}

// Subscribe upgrades the request and streams the clinic's lead events
// until the client goes away.
func (h *RealtimeHandler) Subscribe(c *gin.Context) {
	clinicID := c.GetString(middleware.ContextClinicID)
	if err := h.hub.Serve(c.Writer, c.Request, clinicID); err != nil {
		log.Printf("[WARN] realtime clinic %s: %v", clinicID, err)
	}
}
