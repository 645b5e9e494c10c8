package notification

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"firebase.google.com/go/v4/messaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nudge/models"
)

type fakeMessenger struct {
	sent       []*messaging.Message
	multicasts []*messaging.MulticastMessage
	sendErr    error
	// invalid tokens fail with ErrTokenInvalid inside a multicast
	invalid map[string]bool
	callErr error
}

func (f *fakeMessenger) Send(_ context.Context, m *messaging.Message) (string, error) {
	f.sent = append(f.sent, m)
	if f.sendErr != nil {
		return "", f.sendErr
	}
	return fmt.Sprintf("projects/p/messages/%d", len(f.sent)), nil
}

func (f *fakeMessenger) SendEachForMulticast(_ context.Context, m *messaging.MulticastMessage) (*messaging.BatchResponse, error) {
	f.multicasts = append(f.multicasts, m)
	if f.callErr != nil {
		return nil, f.callErr
	}
	resp := &messaging.BatchResponse{}
	for _, tok := range m.Tokens {
		if f.invalid[tok] {
			resp.FailureCount++
			resp.Responses = append(resp.Responses, &messaging.SendResponse{Error: models.ErrTokenInvalid})
			continue
		}
		resp.SuccessCount++
		resp.Responses = append(resp.Responses, &messaging.SendResponse{Success: true, MessageID: "m-" + tok})
	}
	return resp, nil
}

func newDispatcher(t *testing.T, m *fakeMessenger) *DefaultDispatcher {
	t.Helper()
	d, err := NewDefaultDispatcher(m, "npd_reminders", nil)
	require.NoError(t, err)
	return d
}

func TestNewDefaultDispatcher_NilClient(t *testing.T) {
	_, err := NewDefaultDispatcher(nil, "npd_reminders", nil)
	assert.Error(t, err)
}

func TestSendToToken_ShapesPayload(t *testing.T) {
	m := &fakeMessenger{}
	d := newDispatcher(t, m)

	id, err := d.SendToToken(context.Background(), "T1", "Pay rent", "Due today", map[string]string{"type": "bill"})

	require.NoError(t, err)
	assert.NotEmpty(t, id)
	require.Len(t, m.sent, 1)
	msg := m.sent[0]
	assert.Equal(t, "T1", msg.Token)
	assert.Equal(t, "Pay rent", msg.Notification.Title)
	assert.Equal(t, "high", msg.Android.Priority)
	assert.Equal(t, "npd_reminders", msg.Android.Notification.ChannelID)
	assert.Equal(t, "default", msg.Android.Notification.Sound)
	assert.Equal(t, "default", msg.APNS.Payload.Aps.Sound)
	require.NotNil(t, msg.APNS.Payload.Aps.Badge)
	assert.Equal(t, 1, *msg.APNS.Payload.Aps.Badge)
	assert.Equal(t, "bill", msg.Data["type"])
}

func TestSendToToken_ClassifiesErrors(t *testing.T) {
	m := &fakeMessenger{sendErr: models.ErrTokenInvalid}
	d := newDispatcher(t, m)

	_, err := d.SendToToken(context.Background(), "T1", "t", "b", nil)
	assert.ErrorIs(t, err, models.ErrTokenInvalid)
	assert.True(t, IsTokenInvalid(err))

	m.sendErr = errors.New("connection reset")
	_, err = d.SendToToken(context.Background(), "T1", "t", "b", nil)
	assert.ErrorIs(t, err, models.ErrNetwork)
	assert.False(t, IsTokenInvalid(err))
	assert.Contains(t, err.Error(), "connection reset")

	_, err = d.SendToToken(context.Background(), "", "t", "b", nil)
	assert.ErrorIs(t, err, models.ErrNoTargetFound)
}

func TestSendBroadcast_Counts(t *testing.T) {
	m := &fakeMessenger{invalid: map[string]bool{"bad": true}}
	d := newDispatcher(t, m)

	res, err := d.SendBroadcast(context.Background(), []string{"a", "bad", "c"}, "Hello", "", nil)

	require.NoError(t, err)
	assert.Equal(t, 2, res.SuccessCount)
	assert.Equal(t, 1, res.FailureCount)
	assert.Equal(t, []string{"bad"}, res.InvalidTokens)
}

func TestSendBroadcast_ChunksAndContinues(t *testing.T) {
	tokens := make([]string, 1200)
	for i := range tokens {
		tokens[i] = fmt.Sprintf("tok-%d", i)
	}
	m := &fakeMessenger{}
	d := newDispatcher(t, m)

	res, err := d.SendBroadcast(context.Background(), tokens, "Hello", "", nil)

	require.NoError(t, err)
	require.Len(t, m.multicasts, 3)
	assert.Len(t, m.multicasts[0].Tokens, 500)
	assert.Len(t, m.multicasts[2].Tokens, 200)
	assert.Equal(t, 1200, res.SuccessCount)

	m.callErr = errors.New("quota")
	res, err = d.SendBroadcast(context.Background(), tokens, "Hello", "", nil)
	assert.Error(t, err)
	assert.Equal(t, 0, res.SuccessCount)
	assert.Equal(t, 1200, res.FailureCount)
}

func TestSendBroadcast_Empty(t *testing.T) {
	m := &fakeMessenger{}
	d := newDispatcher(t, m)

	res, err := d.SendBroadcast(context.Background(), nil, "Hello", "", nil)

	require.NoError(t, err)
	assert.Zero(t, res.SuccessCount)
	assert.Empty(t, m.multicasts)
}
