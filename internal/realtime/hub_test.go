package realtime

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startHub(t *testing.T) *Hub {
	t.Helper()
	h := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	go h.Run(ctx)
	t.Cleanup(cancel)
	return h
}

func newTestClient(userID uuid.UUID, buf int) *Client {
	return &Client{ID: uuid.NewString(), UserID: userID, Send: make(chan []byte, buf)}
}

func TestHubNotifyReachesOnlyTargetUser(t *testing.T) {
	h := startHub(t)
	alice, bob := uuid.New(), uuid.New()
	ca := newTestClient(alice, 4)
	cb := newTestClient(bob, 4)
	h.RegisterClient(ca)
	h.RegisterClient(cb)
	require.Eventually(t, func() bool { return h.Connections() == 2 }, time.Second, 5*time.Millisecond)

	require.NoError(t, h.Notify(context.Background(), alice, QueueMessages, map[string]string{"content": "hi"}))

	select {
	case raw := <-ca.Send:
		var f struct {
			Destination string            `json:"destination"`
			Payload     map[string]string `json:"payload"`
		}
		require.NoError(t, json.Unmarshal(raw, &f))
		assert.Equal(t, QueueMessages, f.Destination)
		assert.Equal(t, "hi", f.Payload["content"])
	case <-time.After(time.Second):
		t.Fatal("alice did not receive the frame")
	}
	assert.Empty(t, cb.Send)
}

func TestHubSkipsFullBuffers(t *testing.T) {
	h := startHub(t)
	user := uuid.New()
	c := newTestClient(user, 1)
	h.RegisterClient(c)
	require.Eventually(t, func() bool { return h.IsOnline(user) }, time.Second, 5*time.Millisecond)

	assert.Equal(t, 1, h.SendRaw(user, []byte("1")))
	assert.Equal(t, 0, h.SendRaw(user, []byte("2")))
}

func TestHubPresence(t *testing.T) {
	h := NewHub()
	var mu sync.Mutex
	var events []bool
	h.OnPresence(func(_ uuid.UUID, online bool) {
		mu.Lock()
		events = append(events, online)
		mu.Unlock()
	})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.Run(ctx)

	user := uuid.New()
	first, second := newTestClient(user, 1), newTestClient(user, 1)
	h.RegisterClient(first)
	h.RegisterClient(second)
	h.UnregisterClient(first)
	require.Eventually(t, func() bool { return h.Connections() == 1 }, time.Second, 5*time.Millisecond)
	assert.True(t, h.IsOnline(user))

	h.UnregisterClient(second)
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(events) == 2
	}, time.Second, 5*time.Millisecond)

	assert.Equal(t, []bool{true, false}, events)
	assert.False(t, h.IsOnline(user))

	_, open := <-first.Send
	assert.False(t, open)
}

func TestHubUnregisterAfterShutdownDoesNotBlock(t *testing.T) {
	h := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	go h.Run(ctx)
	cancel()
	<-h.done

	assert.False(t, h.RegisterClient(newTestClient(uuid.New(), 1)))

	done := make(chan struct{})
	go func() {
		h.UnregisterClient(newTestClient(uuid.New(), 1))
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("unregister blocked after shutdown")
	}
}

func TestHubReplyTargetsOneSocket(t *testing.T) {
	h := startHub(t)
	user := uuid.New()
	phone, laptop := newTestClient(user, 2), newTestClient(user, 2)
	h.RegisterClient(phone)
	h.RegisterClient(laptop)
	require.Eventually(t, func() bool { return h.Connections() == 2 }, time.Second, 5*time.Millisecond)

	assert.True(t, h.Reply(phone.ID, QueueErrors, map[string]string{"message": "bad frame"}))
	assert.Len(t, phone.Send, 1)
	assert.Empty(t, laptop.Send)

	assert.False(t, h.Reply("missing", QueueErrors, nil))
}
