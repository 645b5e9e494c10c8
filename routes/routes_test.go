package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"firebase.google.com/go/v4/messaging"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	deviceRepo "nudge/database/repository/device"
	reminderRepo "nudge/database/repository/reminder"
	"nudge/handlers"
	"nudge/models"
	"nudge/services/delivery"
	"nudge/services/device"
	"nudge/services/notification"
	"nudge/services/reminder"
	"nudge/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubMessenger struct {
	invalid map[string]bool
	sent    []string
}

func (m *stubMessenger) Send(_ context.Context, msg *messaging.Message) (string, error) {
	m.sent = append(m.sent, msg.Token)
	if m.invalid[msg.Token] {
		return "", fmt.Errorf("%w: requested entity was not found", models.ErrTokenInvalid)
	}
	return "projects/nudge/messages/1", nil
}

func (m *stubMessenger) SendEachForMulticast(_ context.Context, msg *messaging.MulticastMessage) (*messaging.BatchResponse, error) {
	resp := &messaging.BatchResponse{}
	for _, tok := range msg.Tokens {
		if m.invalid[tok] {
			resp.FailureCount++
			resp.Responses = append(resp.Responses, &messaging.SendResponse{Error: models.ErrTokenInvalid})
			continue
		}
		resp.SuccessCount++
		resp.Responses = append(resp.Responses, &messaging.SendResponse{Success: true, MessageID: "m"})
	}
	return resp, nil
}

type testServer struct {
	router    *gin.Engine
	devices   *deviceRepo.MemoryDeviceRepo
	reminders *reminderRepo.MemoryReminderRepo
	messenger *stubMessenger
}

func newTestServer(t *testing.T, adminSecret string) *testServer {
	t.Helper()
	ts := &testServer{
		devices:   deviceRepo.NewMemoryDeviceRepo(),
		reminders: reminderRepo.NewMemoryReminderRepo(),
		messenger: &stubMessenger{invalid: map[string]bool{}},
	}
	registry := device.NewDefaultRegistry(ts.devices, nil)
	dispatcher, err := notification.NewDefaultDispatcher(ts.messenger, "npd_reminders", nil)
	require.NoError(t, err)

	hb := handlers.NewHandlerBundle(
		registry,
		reminder.NewDefaultReminderService(ts.reminders, nil),
		delivery.NewSender(registry, dispatcher, nil),
		utils.NewHealthMonitor(nil),
		adminSecret,
	)
	ts.router = NewRouter(hb, zap.NewNop(), 1000)
	return ts
}

func (ts *testServer) do(method, path string, body any, header ...string) (*httptest.ResponseRecorder, map[string]any) {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)

	var out map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	return w, out
}

func TestMethodNotAllowed(t *testing.T) {
	ts := newTestServer(t, "")
	for _, path := range []string{"/registerToken", "/removeToken", "/scheduleReminder", "/cancelReminder", "/sendPush", "/sendBroadcast"} {
		w, body := ts.do(http.MethodGet, path, nil)
		assert.Equal(t, http.StatusMethodNotAllowed, w.Code, path)
		assert.Equal(t, "Method not allowed", body["error"], path)
	}
}

func TestRegisterAndRemoveToken(t *testing.T) {
	ts := newTestServer(t, "")

	w, _ := ts.do(http.MethodPost, "/registerToken", map[string]string{"userId": "U1"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, body := ts.do(http.MethodPost, "/registerToken", map[string]string{"token": "T1", "userId": "U1", "platform": "ios"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, body["success"])

	w, _ = ts.do(http.MethodPost, "/registerToken", map[string]string{"token": "T2", "userId": "U1"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, ts.devices.Len())
	d, err := ts.devices.GetByID(context.Background(), "U1")
	require.NoError(t, err)
	assert.Equal(t, "T2", d.Token)

	w, _ = ts.do(http.MethodPost, "/removeToken", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = ts.do(http.MethodPost, "/removeToken", map[string]string{"userId": "U1"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Zero(t, ts.devices.Len())

	w, _ = ts.do(http.MethodPost, "/removeToken", map[string]string{"token": "never-registered"})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestScheduleAndCancelReminder(t *testing.T) {
	ts := newTestServer(t, "")

	w, _ := ts.do(http.MethodPost, "/scheduleReminder", map[string]string{"title": "no time"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = ts.do(http.MethodPost, "/scheduleReminder", map[string]string{"title": "bad", "scheduledAt": "someday"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, body := ts.do(http.MethodPost, "/scheduleReminder", map[string]any{
		"userId":      "U1",
		"title":       "Pay rent",
		"scheduledAt": "2025-01-01T09:00:00Z",
		"repeatType":  "monthly",
		"data":        map[string]string{"taskId": "task-9"},
	})
	require.Equal(t, http.StatusOK, w.Code)
	id, _ := body["reminderId"].(string)
	require.NotEmpty(t, id)

	r, err := ts.reminders.GetByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, models.RepeatMonthly, r.RepeatRule)
	assert.Equal(t, "task-9", r.SourceRef)

	w, _ = ts.do(http.MethodPost, "/cancelReminder", map[string]string{"taskId": "task-9", "userId": "U1"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Zero(t, ts.reminders.Len())

	w, _ = ts.do(http.MethodPost, "/cancelReminder", map[string]string{"reminderId": "gone"})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSendPush(t *testing.T) {
	ts := newTestServer(t, "")
	ts.messenger.invalid["stale"] = true

	w, body := ts.do(http.MethodPost, "/sendPush", map[string]string{"title": "hi"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "No token found", body["error"])

	ts.do(http.MethodPost, "/registerToken", map[string]string{"token": "good", "userId": "U1"})
	w, body = ts.do(http.MethodPost, "/sendPush", map[string]string{"userId": "U1", "title": "hi", "body": "there"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "projects/nudge/messages/1", body["messageId"])

	ts.do(http.MethodPost, "/registerToken", map[string]string{"token": "stale", "userId": "U2"})
	w, body = ts.do(http.MethodPost, "/sendPush", map[string]string{"userId": "U2", "title": "hi"})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotEmpty(t, body["error"])
	_, err := ts.devices.GetByID(context.Background(), "U2")
	assert.ErrorIs(t, err, models.ErrNotFound, "rejected token is evicted")
}

func TestSendBroadcast(t *testing.T) {
	ts := newTestServer(t, "")

	w, _ := ts.do(http.MethodPost, "/sendBroadcast", map[string]string{"body": "no title"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, body := ts.do(http.MethodPost, "/sendBroadcast", map[string]string{"title": "hello"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(0), body["sent"])
	_, hasFailed := body["failed"]
	assert.False(t, hasFailed)

	ts.messenger.invalid["B"] = true
	ts.do(http.MethodPost, "/registerToken", map[string]string{"token": "A"})
	ts.do(http.MethodPost, "/registerToken", map[string]string{"token": "B"})

	w, body = ts.do(http.MethodPost, "/sendBroadcast", map[string]string{"title": "hello"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), body["sent"])
	assert.Equal(t, float64(1), body["failed"])
	assert.Equal(t, 1, ts.devices.Len())
}

func TestSendBroadcast_AdminToken(t *testing.T) {
	ts := newTestServer(t, "topsecret")

	w, _ := ts.do(http.MethodPost, "/sendBroadcast", map[string]string{"title": "hello"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	tok, err := utils.GenerateAdminToken("topsecret", "ops", time.Minute)
	require.NoError(t, err)
	w, _ = ts.do(http.MethodPost, "/sendBroadcast", map[string]string{"title": "hello"}, "Authorization", "Bearer "+tok)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHealthAndMetrics(t *testing.T) {
	ts := newTestServer(t, "")

	w, body := ts.do(http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, body["healthy"])

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "nudge_")
}
