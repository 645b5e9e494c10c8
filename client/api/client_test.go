package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nudge/client/store"
	"nudge/models"
)

type captured struct {
	path string
	auth string
	body map[string]any
}

func newServer(t *testing.T, reply string, status int) (*httptest.Server, *[]captured) {
	t.Helper()
	var calls []captured
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		var body map[string]any
		_ = json.Unmarshal(raw, &body)
		calls = append(calls, captured{path: r.URL.Path, auth: r.Header.Get("Authorization"), body: body})
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, reply)
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func newSettings(t *testing.T, values map[string]string) *store.BoltStore {
	t.Helper()
	st, err := store.NewBoltStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	for k, v := range values {
		require.NoError(t, st.Set(k, v))
	}
	return st
}

func TestClient_NotConfigured(t *testing.T) {
	c := NewClient(newSettings(t, nil), nil, nil)
	err := c.RegisterDeviceToken(context.Background(), "tok", "android")
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestClient_ScheduleReminderFillsIdentity(t *testing.T) {
	srv, calls := newServer(t, `{"success":true,"reminderId":"r-1"}`, http.StatusOK)
	st := newSettings(t, map[string]string{
		store.KeyServerURL: srv.URL + "/",
		store.KeyUserID:    "u1",
		store.KeyPushToken: "tok",
	})
	c := NewClient(st, srv.Client(), nil)

	daily := "daily"
	id, err := c.ScheduleReminder(context.Background(), models.ScheduleReminderRequest{
		Title:       "Stretch",
		ScheduledAt: "2025-01-01T09:00:00Z",
		RepeatType:  &daily,
	})
	require.NoError(t, err)
	assert.Equal(t, "r-1", id)

	require.Len(t, *calls, 1)
	call := (*calls)[0]
	assert.Equal(t, "/scheduleReminder", call.path)
	assert.Equal(t, "u1", call.body["userId"])
	assert.Equal(t, "tok", call.body["token"])
	assert.Equal(t, "daily", call.body["repeatType"])
}

func TestClient_RemoveDeviceTokenSkipsWithoutIdentity(t *testing.T) {
	srv, calls := newServer(t, `{"success":true}`, http.StatusOK)
	c := NewClient(newSettings(t, map[string]string{store.KeyServerURL: srv.URL}), srv.Client(), nil)

	require.NoError(t, c.RemoveDeviceToken(context.Background()))
	assert.Empty(t, *calls)
}

func TestClient_StatusError(t *testing.T) {
	srv, _ := newServer(t, `{"error":"No token found"}`, http.StatusBadRequest)
	c := NewClient(newSettings(t, map[string]string{store.KeyServerURL: srv.URL}), srv.Client(), nil)

	_, err := c.SendImmediatePush(context.Background(), "hi", "there", nil)
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusBadRequest, se.Code)
	assert.Equal(t, "sendPush", se.Endpoint)
	assert.Contains(t, se.Body, "No token found")
}

func TestClient_SendBroadcastBearer(t *testing.T) {
	srv, calls := newServer(t, `{"success":true,"sent":3,"failed":1}`, http.StatusOK)
	c := NewClient(newSettings(t, map[string]string{store.KeyServerURL: srv.URL}), srv.Client(), nil)

	res, err := c.SendBroadcast(context.Background(), models.SendBroadcastRequest{Title: "News"}, "admin-jwt")
	require.NoError(t, err)
	assert.Equal(t, BroadcastResult{Success: true, Sent: 3, Failed: 1}, res)
	assert.Equal(t, "Bearer admin-jwt", (*calls)[0].auth)
}

func TestClient_ClearURLCache(t *testing.T) {
	first, firstCalls := newServer(t, `{"success":true}`, http.StatusOK)
	second, secondCalls := newServer(t, `{"success":true}`, http.StatusOK)
	st := newSettings(t, map[string]string{store.KeyServerURL: first.URL, store.KeyUserID: "u1"})
	c := NewClient(st, nil, nil)

	require.NoError(t, c.CancelReminder(context.Background(), models.CancelReminderRequest{TaskID: "t1"}))
	require.NoError(t, st.Set(store.KeyServerURL, second.URL))
	require.NoError(t, c.CancelReminder(context.Background(), models.CancelReminderRequest{TaskID: "t1"}))
	assert.Len(t, *firstCalls, 2, "cached url still in use")

	c.ClearURLCache()
	require.NoError(t, c.CancelReminder(context.Background(), models.CancelReminderRequest{NoteID: "n1"}))
	require.Len(t, *secondCalls, 1)
	assert.Equal(t, "n1", (*secondCalls)[0].body["noteId"])
	assert.Equal(t, "u1", (*secondCalls)[0].body["userId"])
}
