package api

import (
	"log"

	"github.com/gin-gonic/gin"
)

// ServeDashboard handles GET /ws, the operator dashboard socket.
func (h *Handler) ServeDashboard(c *gin.Context) {
	if err := h.hub.ServeWS(c.Writer, c.Request); err != nil {
		log.Printf("Failed to upgrade dashboard connection: %v", err)
	}
}
