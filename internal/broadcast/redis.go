package broadcast

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/go-redis/redis/v8"

	"github.com/BruksfildServices01/clinic-crm/internal/models"
)

const ChannelPrefix = "crm:clinic:"

func Channel(clinicID string) string { return ChannelPrefix + clinicID }

// envelope tags each event with the publishing instance so the relay can
// skip what the local hub already delivered.
type envelope struct {
	Origin string           `json:"origin"`
	Event  models.LeadEvent `json:"event"`
}

func encode(origin string, ev models.LeadEvent) ([]byte, error) {
	return json.Marshal(envelope{Origin: origin, Event: ev})
}

func decode(payload string) (envelope, error) {
	var env envelope
	err := json.Unmarshal([]byte(payload), &env)
	return env, err
}

// RedisSink publishes every event on its clinic's channel.
type RedisSink struct {
	client *redis.Client
	origin string
}

func NewRedisSink(client *redis.Client, origin string) *RedisSink {
	return &RedisSink{client: client, origin: origin}
}

func (s *RedisSink) Deliver(events []models.LeadEvent) error {
	ctx := context.Background()
	for _, ev := range events {
		payload, err := encode(s.origin, ev)
		if err != nil {
			return fmt.Errorf("encode event %s: %w", ev.ID, err)
		}
		if err := s.client.Publish(ctx, Channel(ev.ClinicID), payload).Err(); err != nil {
			return fmt.Errorf("publish event %s: %w", ev.ID, err)
		}
	}
	return nil
}

// RedisRelay feeds events published by other instances into a local sink.
type RedisRelay struct {
	client *redis.Client
	origin string
	sink   Sink
}

func NewRedisRelay(client *redis.Client, origin string, sink Sink) *RedisRelay {
	return &RedisRelay{client: client, origin: origin, sink: sink}
}

// Run blocks until ctx is done.
func (r *RedisRelay) Run(ctx context.Context) error {
	sub := r.client.PSubscribe(ctx, ChannelPrefix+"*")
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			r.handle(msg.Channel, msg.Payload)
		}
	}
}

func (r *RedisRelay) handle(channel, payload string) {
	env, err := decode(payload)
	if err != nil {
		log.Printf("[WARN] relay %s: %v", channel, err)
		return
	}
	if env.Origin == r.origin {
		return
	}
	if strings.TrimPrefix(channel, ChannelPrefix) != env.Event.ClinicID {
		log.Printf("[WARN] relay %s: event for clinic %s", channel, env.Event.ClinicID)
		return
	}
	if err := r.sink.Deliver([]models.LeadEvent{env.Event}); err != nil {
		log.Println("relay error:", err)
	}
}
