package handlers

import (
	"errors"
	"io"
	"net/http"

	"nudge/models"
	"nudge/services/device"
	"nudge/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type DeviceHandler struct {
	Registry device.Registry
}

func NewDeviceHandler(registry device.Registry) *DeviceHandler {
	return &DeviceHandler{Registry: registry}
}

// RegisterTokenHandler handles POST /registerToken.
func (h *DeviceHandler) RegisterTokenHandler(c *gin.Context) {
	var req models.RegisterTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "Token is required", err.Error())
		return
	}

	id, err := h.Registry.Register(c.Request.Context(), req.Token, req.UserID, req.Platform)
	if err != nil {
		getLogger(c).Error("failed to register token", zap.Error(err))
		utils.JSONError(c, http.StatusInternalServerError, "Failed to register token", err.Error())
		return
	}

	getLogger(c).Info("token registered", zap.String("deviceId", id))
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// RemoveTokenHandler handles POST /removeToken.
func (h *DeviceHandler) RemoveTokenHandler(c *gin.Context) {
	var req models.RemoveTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		utils.JSONError(c, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}

	id := models.DeviceID(req.UserID, req.Token)
	if id == "" {
		utils.JSONError(c, http.StatusBadRequest, "Token or userId is required", "")
		return
	}

	if err := h.Registry.Remove(c.Request.Context(), id); err != nil {
		getLogger(c).Error("failed to remove token", zap.Error(err))
		utils.JSONError(c, http.StatusInternalServerError, "Failed to remove token", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
