package realtime

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	presencePrefix  = "presence:"
	presenceTTL     = 24 * time.Hour
	presenceTimeout = 5 * time.Second
)

// Counts are per instance holding sockets, so the key reads "how many
// instances have this user connected".
var (
	presenceUp = redis.NewScript(`
local n = redis.call('INCR', KEYS[1])
redis.call('EXPIRE', KEYS[1], ARGV[1])
return n`)

	presenceDown = redis.NewScript(`
local n = redis.call('DECR', KEYS[1])
if n <= 0 then
  redis.call('DEL', KEYS[1])
else
  redis.call('EXPIRE', KEYS[1], ARGV[1])
end
return n`)
)

// StatusWriter persists a user's online state.
type StatusWriter func(ctx context.Context, userID uuid.UUID, online bool) error

type presenceEvent struct {
	userID uuid.UUID
	online bool
}

// Presence turns hub transitions into status writes. Track never blocks; one
// worker applies events in arrival order and writes only when the user's
// count across all instances crosses zero.
type Presence struct {
	rdb   *redis.Client
	write StatusWriter

	mu    sync.Mutex
	queue []presenceEvent
	wake  chan struct{}
}

func NewPresence(rdb *redis.Client, write StatusWriter) *Presence {
	return &Presence{rdb: rdb, write: write, wake: make(chan struct{}, 1)}
}

func PresenceKey(userID uuid.UUID) string {
	return presencePrefix + userID.String()
}

// Track matches PresenceFunc so it can be handed to Hub.OnPresence.
func (p *Presence) Track(userID uuid.UUID, online bool) {
	p.mu.Lock()
	p.queue = append(p.queue, presenceEvent{userID: userID, online: online})
	p.mu.Unlock()

	select {
	case p.wake <- struct{}{}:
	default:
	}
}

// Run applies queued events until stop is closed, then drains what is left.
func (p *Presence) Run(stop <-chan struct{}) {
	for {
		select {
		case <-p.wake:
			p.drain()
		case <-stop:
			p.drain()
			return
		}
	}
}

func (p *Presence) drain() {
	for {
		p.mu.Lock()
		batch := p.queue
		p.queue = nil
		p.mu.Unlock()
		if len(batch) == 0 {
			return
		}
		for _, ev := range batch {
			p.apply(ev)
		}
	}
}

func (p *Presence) apply(ev presenceEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), presenceTimeout)
	defer cancel()

	script := presenceDown
	if ev.online {
		script = presenceUp
	}
	n, err := script.Run(ctx, p.rdb, []string{PresenceKey(ev.userID)}, int(presenceTTL.Seconds())).Int64()
	if err != nil {
		slog.Warn("presence count failed", "user_id", ev.userID, "online", ev.online, "error", err)
		return
	}

	switch {
	case ev.online && n == 1, !ev.online && n <= 0:
		if err := p.write(ctx, ev.userID, ev.online); err != nil {
			slog.Warn("presence update failed", "user_id", ev.userID, "online", ev.online, "error", err)
		}
	}
}
