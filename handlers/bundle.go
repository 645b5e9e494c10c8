package handlers

import (
	"nudge/services/delivery"
	"nudge/services/device"
	"nudge/services/reminder"
	"nudge/utils"

	"github.com/gin-gonic/gin"
)

// HandlerBundle groups all endpoint handlers into one struct.
type HandlerBundle struct {
	// Device endpoints
	RegisterTokenHandler gin.HandlerFunc
	RemoveTokenHandler   gin.HandlerFunc

	// Reminder endpoints
	ScheduleReminderHandler gin.HandlerFunc
	CancelReminderHandler   gin.HandlerFunc

	// Push endpoints
	SendPushHandler      gin.HandlerFunc
	SendBroadcastHandler gin.HandlerFunc

	HealthHandler gin.HandlerFunc

	// AdminSecret guards the broadcast endpoint when set.
	AdminSecret string
}

// NewHandlerBundle wires the HTTP handlers to their services.
func NewHandlerBundle(
	registry device.Registry,
	reminders reminder.ReminderService,
	sender *delivery.Sender,
	health *utils.HealthMonitor,
	adminSecret string,
) *HandlerBundle {
	dh := NewDeviceHandler(registry)
	rh := NewReminderHandler(reminders)
	ph := NewPushHandler(sender)
	hh := NewHealthHandler(health)

	return &HandlerBundle{
		RegisterTokenHandler:    dh.RegisterTokenHandler,
		RemoveTokenHandler:      dh.RemoveTokenHandler,
		ScheduleReminderHandler: rh.ScheduleReminderHandler,
		CancelReminderHandler:   rh.CancelReminderHandler,
		SendPushHandler:         ph.SendPushHandler,
		SendBroadcastHandler:    ph.SendBroadcastHandler,
		HealthHandler:           hh.HealthHandler,
		AdminSecret:             adminSecret,
	}
}
