package mailer

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishingIsPersistentJSON(t *testing.T) {
	now := time.Date(2025, 5, 1, 8, 30, 0, 0, time.UTC)
	msg, err := publishing(Email{
		To:       "ada@example.com",
		Template: TemplateVerificationCode,
		Data:     map[string]string{"code": "123456"},
	}, now)
	require.NoError(t, err)

	assert.Equal(t, "application/json", msg.ContentType)
	assert.Equal(t, amqp.Persistent, msg.DeliveryMode)

	var got Email
	require.NoError(t, json.Unmarshal(msg.Body, &got))
	assert.Equal(t, "ada@example.com", got.To)
	assert.Equal(t, TemplateVerificationCode, got.Template)
	assert.Equal(t, "123456", got.Data["code"])
	assert.True(t, now.Equal(got.QueuedAt))
}

func TestPublishingKeepsQueuedAt(t *testing.T) {
	queued := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	msg, err := publishing(Email{To: "x@example.com", QueuedAt: queued}, time.Now())
	require.NoError(t, err)
	assert.True(t, queued.Equal(msg.Timestamp))
}

func TestLogMailer(t *testing.T) {
	var m Mailer = LogMailer{}
	assert.NoError(t, m.Send(context.Background(), Email{To: "x@example.com", Template: TemplateAccountVerified}))
}
