package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// HealthHandler responde GET /health con el estado configurado de cada colaborador.
// No consulta a los servicios externos.
type HealthHandler struct {
	services map[string]string
}

func NewHealthHandler(services map[string]bool) *HealthHandler {
	status := make(map[string]string, len(services))
	for name, active := range services {
		if active {
			status[name] = "active"
		} else {
			status[name] = "disabled"
		}
	}
	return &HealthHandler{services: status}
}

func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy", "services": h.services})
}
