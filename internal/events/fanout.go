package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// DefaultChannel is the Redis pub/sub channel shared by all replicas.
const DefaultChannel = "storefront:events"

// RedisFanout publishes events to a Redis channel so other replicas can
// notify their own subscribers.
type RedisFanout struct {
	Client  redis.UniversalClient
	Channel string
	Origin  string
}

// Notify implements Notifier.
func (f *RedisFanout) Notify(ctx context.Context, event Event) error {
	if f == nil || f.Client == nil {
		return errors.New("events: redis fanout not configured")
	}
	event.Origin = f.Origin
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	return f.Client.Publish(ctx, channelOrDefault(f.Channel), data).Err()
}

// Relay consumes the shared channel and delivers cart counts emitted by other
// replicas to the local Broadcaster.
type Relay struct {
	Client      redis.UniversalClient
	Channel     string
	Origin      string
	Broadcaster *Broadcaster
	Logger      zerolog.Logger
	// Handle, when set, receives every foreign event after cart counts are delivered.
	Handle func(Event)
}

// Start subscribes to the channel and consumes it in the background until ctx
// is cancelled. It returns once the subscription is confirmed.
func (r *Relay) Start(ctx context.Context) error {
	if r == nil || r.Client == nil {
		return errors.New("events: relay not configured")
	}
	sub := r.Client.Subscribe(ctx, channelOrDefault(r.Channel))
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("subscribe %s: %w", channelOrDefault(r.Channel), err)
	}
	go func() {
		defer sub.Close()
		msgs := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				r.dispatch(msg.Payload)
			}
		}
	}()
	return nil
}

func (r *Relay) dispatch(payload string) {
	var ev Event
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		r.Logger.Warn().Err(err).Msg("discarding malformed event")
		return
	}
	if ev.Origin != "" && ev.Origin == r.Origin {
		return
	}
	if ev.Topic == TopicCartChanged && r.Broadcaster != nil {
		var c CartCount
		if err := json.Unmarshal(ev.Payload, &c); err != nil {
			r.Logger.Warn().Err(err).Str("event_id", ev.ID).Msg("discarding malformed cart count")
			return
		}
		r.Broadcaster.Deliver(c)
	}
	if r.Handle != nil {
		r.Handle(ev)
	}
}

func channelOrDefault(ch string) string {
	if ch == "" {
		return DefaultChannel
	}
	return ch
}
