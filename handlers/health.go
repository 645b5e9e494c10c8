package handlers

import (
	"net/http"

	"nudge/utils"

	"github.com/gin-gonic/gin"
)

type HealthHandler struct {
	Monitor *utils.HealthMonitor
}

func NewHealthHandler(monitor *utils.HealthMonitor) *HealthHandler {
	return &HealthHandler{Monitor: monitor}
}

// HealthHandler reports the latest dependency snapshot; 503 when any dependency is down.
func (h *HealthHandler) HealthHandler(c *gin.Context) {
	if h.Monitor == nil {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
		return
	}
	status := h.Monitor.Status()
	code := http.StatusOK
	if !status.Healthy {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, status)
}
