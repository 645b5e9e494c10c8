// File: models/requests.go
package models

// RegisterTokenRequest is the body of POST /registerToken.
type RegisterTokenRequest struct {
	Token    string `json:"token" binding:"required"`
	UserID   string `json:"userId"`
	Platform string `json:"platform"`
}

// RemoveTokenRequest is the body of POST /removeToken. One of the two fields is required.
type RemoveTokenRequest struct {
	Token  string `json:"token"`
	UserID string `json:"userId"`
}

// ScheduleReminderRequest is the body of POST /scheduleReminder.
type ScheduleReminderRequest struct {
	UserID      string            `json:"userId"`
	Token       string            `json:"token"`
	Title       string            `json:"title" binding:"required"`
	Body        string            `json:"body"`
	ScheduledAt string            `json:"scheduledAt" binding:"required"`
	Data        map[string]string `json:"data"`
	RepeatType  *string           `json:"repeatType"`
}

// CancelReminderRequest is the body of POST /cancelReminder.
type CancelReminderRequest struct {
	ReminderID string `json:"reminderId"`
	TaskID     string `json:"taskId"`
	NoteID     string `json:"noteId"`
	UserID     string `json:"userId"`
}

// SendPushRequest is the body of POST /sendPush.
type SendPushRequest struct {
	Token  string            `json:"token"`
	UserID string            `json:"userId"`
	Title  string            `json:"title"`
	Body   string            `json:"body"`
	Data   map[string]string `json:"data"`
}

// SendBroadcastRequest is the body of POST /sendBroadcast.
type SendBroadcastRequest struct {
	Title string            `json:"title" binding:"required"`
	Body  string            `json:"body"`
	Data  map[string]string `json:"data"`
}
