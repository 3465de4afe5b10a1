package notify

import (
	"context"
	"sync"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/dannynguyen57/Chameleon-X-sub000/internal/obslog"
)

// eventsChannel carries room ids, nothing else. Clients refetch the full
// state on every ping, so a dropped event costs one stale second at most.
const eventsChannel = "room:events"

// Publisher broadcasts "room changed" over redis pub/sub. Fire and
// forget: publish failures are logged, never propagated into the action
// that caused them.
type Publisher struct {
	rdb *redis.Client
}

func NewPublisher(rdb *redis.Client) *Publisher {
	return &Publisher{rdb: rdb}
}

func (p *Publisher) RoomChanged(roomID string) {
	if p == nil || p.rdb == nil {
		return
	}
	if err := p.rdb.Publish(context.Background(), eventsChannel, roomID).Err(); err != nil {
		obslog.L().Warn("notify_publish_error", zap.String("room_id", roomID), zap.Error(err))
	}
}

// Hub bridges redis pub/sub to in-process subscribers, one channel per
// websocket connection, grouped by room.
type Hub struct {
	rdb *redis.Client

	mu   sync.RWMutex
	subs map[string]map[chan string]struct{}
}

func NewHub(rdb *redis.Client) *Hub {
	return &Hub{rdb: rdb, subs: make(map[string]map[chan string]struct{})}
}

// Subscribe registers interest in one room. The returned cancel must be
// called when the consumer goes away.
func (h *Hub) Subscribe(roomID string) (<-chan string, func()) {
	ch := make(chan string, 4)
	h.mu.Lock()
	if h.subs[roomID] == nil {
		h.subs[roomID] = make(map[chan string]struct{})
	}
	h.subs[roomID][ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		if set, ok := h.subs[roomID]; ok {
			delete(set, ch)
			if len(set) == 0 {
				delete(h.subs, roomID)
			}
		}
		h.mu.Unlock()
	}
	return ch, cancel
}

// Dispatch fans one event out to the room's subscribers without
// blocking; a consumer that cannot keep up just misses a ping.
func (h *Hub) Dispatch(roomID string) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.subs[roomID] {
		select {
		case ch <- roomID:
		default:
		}
	}
}

// Run consumes the redis events channel until ctx ends.
func (h *Hub) Run(ctx context.Context) {
	sub := h.rdb.Subscribe(ctx, eventsChannel)
	defer func() { _ = sub.Close() }()
	msgs := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-msgs:
			if !ok {
				return
			}
			h.Dispatch(msg.Payload)
		}
	}
}
