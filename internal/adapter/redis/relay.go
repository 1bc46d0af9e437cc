package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	goredis "github.com/redis/go-redis/v9"
	"github.com/sonuparjapat/stocksWebsiteMain/internal/adapter/metrics"
	"github.com/sonuparjapat/stocksWebsiteMain/internal/domain"
)

// RelayChannel carries every stored message to all instances.
const RelayChannel = "messages:broadcast"

// LocalFanOut delivers a message to this instance's own connections.
type LocalFanOut interface {
	Broadcast(msg domain.StoredMessage) error
}

// Relay publishes stored messages through Redis so every instance fans them out.
// When the publish fails the message goes to the local fan-out instead.
type Relay struct {
	rdb     *goredis.Client
	local   LocalFanOut
	metrics *metrics.RelayMetrics
}

var _ domain.MessagePublisher = (*Relay)(nil)

func NewRelay(rdb *goredis.Client, local LocalFanOut, m *metrics.RelayMetrics) *Relay {
	return &Relay{rdb: rdb, local: local, metrics: m}
}

func (r *Relay) PublishMessage(ctx context.Context, msg domain.StoredMessage) error {
	payload, err := json.Marshal(domain.NewMessageBroadcast(msg))
	if err != nil {
		return fmt.Errorf("failed to marshal relay payload: %w", err)
	}

	if err := r.rdb.Publish(ctx, RelayChannel, payload).Err(); err != nil {
		r.metrics.PublishFailures.Inc()
		slog.WarnContext(ctx, "Relay publish failed, fanning out locally", "message_id", msg.ID, "error", err)
		return r.local.Broadcast(msg)
	}

	r.metrics.Published.Inc()
	return nil
}

// Subscription is a confirmed subscription to the relay channel.
type Subscription struct {
	relay  *Relay
	pubsub *goredis.PubSub
}

// Subscribe blocks until Redis confirms the subscription.
func (r *Relay) Subscribe(ctx context.Context) (*Subscription, error) {
	pubsub := r.rdb.Subscribe(ctx, RelayChannel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", RelayChannel, err)
	}
	return &Subscription{relay: r, pubsub: pubsub}, nil
}

// Run hands every relayed message to the local fan-out until ctx is cancelled.
func (s *Subscription) Run(ctx context.Context) {
	defer func() { _ = s.pubsub.Close() }()

	ch := s.pubsub.Channel()
	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return
			}
			s.relay.handle(ctx, msg.Payload)
		case <-ctx.Done():
			return
		}
	}
}

func (r *Relay) handle(ctx context.Context, payload string) {
	var event domain.MessageBroadcast
	if err := json.Unmarshal([]byte(payload), &event); err != nil || event.ID == 0 {
		r.metrics.DecodeFailures.Inc()
		slog.WarnContext(ctx, "Dropping malformed relay payload", "error", err)
		return
	}
	r.metrics.Received.Inc()

	msg := domain.StoredMessage{
		ID:        event.ID,
		AuthorID:  event.AuthorID,
		Content:   event.Content,
		CreatedAt: event.CreatedAt,
	}
	if err := r.local.Broadcast(msg); err != nil {
		slog.WarnContext(ctx, "Local fan-out of relayed message failed", "message_id", msg.ID, "error", err)
	}
}
