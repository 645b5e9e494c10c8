package handlers

import (
	"errors"
	"net/http"

	"nudge/models"
	"nudge/services/delivery"
	"nudge/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type PushHandler struct {
	Sender *delivery.Sender
}

func NewPushHandler(sender *delivery.Sender) *PushHandler {
	return &PushHandler{Sender: sender}
}

// SendPushHandler handles POST /sendPush.
func (h *PushHandler) SendPushHandler(c *gin.Context) {
	var req models.SendPushRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}

	messageID, err := h.Sender.SendPush(c.Request.Context(), req)
	switch {
	case errors.Is(err, models.ErrNoTargetFound):
		utils.JSONError(c, http.StatusBadRequest, models.MsgNoTokenFound, "")
		return
	case err != nil:
		getLogger(c).Warn("push failed", zap.String("userId", req.UserID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, utils.ErrorResponse{Error: err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "messageId": messageID})
}

// SendBroadcastHandler handles POST /sendBroadcast.
func (h *PushHandler) SendBroadcastHandler(c *gin.Context) {
	var req models.SendBroadcastRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "Title is required", err.Error())
		return
	}

	result, err := h.Sender.Broadcast(c.Request.Context(), req)
	if err != nil {
		getLogger(c).Error("broadcast failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, utils.ErrorResponse{Error: err.Error()})
		return
	}

	if result.SuccessCount == 0 && result.FailureCount == 0 {
		c.JSON(http.StatusOK, gin.H{"success": true, "sent": 0})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "sent": result.SuccessCount, "failed": result.FailureCount})
}
