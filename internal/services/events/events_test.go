package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMessageCarriesTypeAndKey(t *testing.T) {
	at := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	msg, err := newMessage(ProjectClaimed, "project-1", map[string]string{"status": "IN_PROGRESS"}, at)
	require.NoError(t, err)

	assert.Equal(t, []byte("project-1"), msg.Key)
	require.Len(t, msg.Headers, 1)
	assert.Equal(t, "event-type", msg.Headers[0].Key)
	assert.Equal(t, ProjectClaimed, string(msg.Headers[0].Value))

	var ev struct {
		Type       string            `json:"type"`
		Key        string            `json:"key"`
		Data       map[string]string `json:"data"`
		OccurredAt time.Time         `json:"occurred_at"`
	}
	require.NoError(t, json.Unmarshal(msg.Value, &ev))
	assert.Equal(t, ProjectClaimed, ev.Type)
	assert.Equal(t, "IN_PROGRESS", ev.Data["status"])
	assert.True(t, at.Equal(ev.OccurredAt))
}

func TestNewMessageRejectsUnencodableData(t *testing.T) {
	_, err := newMessage(RatingCreated, "k", make(chan int), time.Now())
	assert.Error(t, err)
}

func TestNopPublisher(t *testing.T) {
	var p Publisher = Nop{}
	assert.NoError(t, p.Publish(context.Background(), UserRegistered, "u1", nil))
}
