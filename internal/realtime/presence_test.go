package realtime

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type statusLog struct {
	mu     sync.Mutex
	writes []bool
}

func (l *statusLog) write(_ context.Context, _ uuid.UUID, online bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.writes = append(l.writes, online)
	return nil
}

func (l *statusLog) get() []bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]bool(nil), l.writes...)
}

func TestPresenceAppliesInOrder(t *testing.T) {
	rdb, mr := setupTestRedis(t)
	log := &statusLog{}
	p := NewPresence(rdb, log.write)
	user := uuid.New()

	p.Track(user, true)
	p.Track(user, false)

	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		p.Run(stop)
		close(done)
	}()
	require.Eventually(t, func() bool { return len(log.get()) == 2 }, time.Second, 5*time.Millisecond)
	close(stop)
	<-done

	assert.Equal(t, []bool{true, false}, log.get())
	assert.False(t, mr.Exists(PresenceKey(user)))
}

func TestPresenceCountsAcrossInstances(t *testing.T) {
	rdb, mr := setupTestRedis(t)
	log := &statusLog{}
	a := NewPresence(rdb, log.write)
	b := NewPresence(rdb, log.write)
	user := uuid.New()

	a.apply(presenceEvent{userID: user, online: true})
	b.apply(presenceEvent{userID: user, online: true})
	assert.Equal(t, []bool{true}, log.get())

	v, err := mr.Get(PresenceKey(user))
	require.NoError(t, err)
	assert.Equal(t, "2", v)

	a.apply(presenceEvent{userID: user, online: false})
	assert.Equal(t, []bool{true}, log.get(), "still connected on the other instance")

	b.apply(presenceEvent{userID: user, online: false})
	assert.Equal(t, []bool{true, false}, log.get())
	assert.False(t, mr.Exists(PresenceKey(user)))
}

func TestPresenceDrainsOnStop(t *testing.T) {
	rdb, _ := setupTestRedis(t)
	log := &statusLog{}
	p := NewPresence(rdb, log.write)

	stop := make(chan struct{})
	close(stop)
	p.Track(uuid.New(), true)
	p.Run(stop)

	assert.Equal(t, []bool{true}, log.get())
}

func TestHubShutdownReportsOffline(t *testing.T) {
	h := NewHub()
	log := &statusLog{}
	h.OnPresence(func(userID uuid.UUID, online bool) {
		_ = log.write(context.Background(), userID, online)
	})
	ctx, cancel := context.WithCancel(context.Background())
	go h.Run(ctx)

	user := uuid.New()
	require.True(t, h.RegisterClient(newTestClient(user, 1)))
	require.Eventually(t, func() bool { return h.IsOnline(user) }, time.Second, 5*time.Millisecond)

	cancel()
	<-h.Done()
	assert.Equal(t, []bool{true, false}, log.get())
	assert.False(t, h.IsOnline(user))
}
