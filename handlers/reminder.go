package handlers

import (
	"errors"
	"io"
	"net/http"

	"nudge/models"
	"nudge/services/reminder"
	"nudge/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type ReminderHandler struct {
	Service reminder.ReminderService
}

func NewReminderHandler(service reminder.ReminderService) *ReminderHandler {
	return &ReminderHandler{Service: service}
}

// ScheduleReminderHandler handles POST /scheduleReminder.
func (h *ReminderHandler) ScheduleReminderHandler(c *gin.Context) {
	var req models.ScheduleReminderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "scheduledAt and title are required", err.Error())
		return
	}

	id, err := h.Service.Schedule(c.Request.Context(), req)
	if errors.Is(err, models.ErrValidation) {
		utils.JSONError(c, http.StatusBadRequest, "Invalid reminder", err.Error())
		return
	}
	if err != nil {
		getLogger(c).Error("failed to schedule reminder", zap.Error(err))
		utils.JSONError(c, http.StatusInternalServerError, "Failed to schedule reminder", err.Error())
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "reminderId": id})
}

// CancelReminderHandler handles POST /cancelReminder.
func (h *ReminderHandler) CancelReminderHandler(c *gin.Context) {
	var req models.CancelReminderRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		utils.JSONError(c, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}

	if err := h.Service.Cancel(c.Request.Context(), req); err != nil {
		getLogger(c).Error("failed to cancel reminder", zap.Error(err))
		utils.JSONError(c, http.StatusInternalServerError, "Failed to cancel reminder", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
