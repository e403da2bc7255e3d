package liveevents

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const RelayChannel = "sorteos:tickets"

type relayMessage struct {
	Origin string      `json:"origin"`
	Event  TicketEvent `json:"event"`
}

// RedisRelay mirrors hub events across instances through redis pub/sub.
type RedisRelay struct {
	hub    *Hub
	client *redis.Client
	log    *zap.Logger
	origin string

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewRedisRelay(hub *Hub, client *redis.Client, log *zap.Logger) *RedisRelay {
	if hub == nil || client == nil {
		return nil
	}
	return &RedisRelay{
		hub:    hub,
		client: client,
		log:    log.Named("liveevents.relay"),
		origin: uuid.NewString(),
	}
}

func (r *RedisRelay) Start(ctx context.Context) error {
	if r == nil {
		return nil
	}
	runCtx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel

	pubsub := r.client.Subscribe(runCtx, RelayChannel)
	if _, err := pubsub.Receive(ctx); err != nil {
		cancel()
		_ = pubsub.Close()
		return err
	}

	r.hub.setRelay(r.forward)

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer pubsub.Close()
		ch := pubsub.Channel()
		for {
			select {
			case <-runCtx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				r.handle(msg.Payload)
			}
		}
	}()
	return nil
}

func (r *RedisRelay) Stop(ctx context.Context) error {
	if r == nil || r.cancel == nil {
		return nil
	}
	r.hub.setRelay(nil)
	r.cancel()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *RedisRelay) forward(event TicketEvent) {
	payload, err := json.Marshal(relayMessage{Origin: r.origin, Event: event})
	if err != nil {
		r.log.Warn("encode relay event", zap.Error(err))
		return
	}
	if err := r.client.Publish(context.Background(), RelayChannel, payload).Err(); err != nil {
		r.log.Warn("publish relay event", zap.Error(err))
	}
}

func (r *RedisRelay) handle(payload string) {
	var msg relayMessage
	if err := json.Unmarshal([]byte(payload), &msg); err != nil {
		r.log.Debug("drop malformed relay event", zap.Error(err))
		return
	}
	if msg.Origin == r.origin {
		return
	}
	r.hub.Publish(msg.Event.RaffleID, msg.Event)
}
