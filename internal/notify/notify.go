// Package notify announces finished crawls to downstream consumers.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/law-makers/weeklyad/internal/retry"
)

// DefaultStream is the Redis stream events are appended to.
const DefaultStream = "weeklyad:crawls"

// Event is published once per run that wrote a document.
type Event struct {
	Store     string    `json:"store"`
	Week      string    `json:"week"`
	StartDate string    `json:"weekly_ad_starting_date"`
	Items     int       `json:"items"`
	Document  string    `json:"document"`
	Mirrored  int       `json:"mirrored"`
	At        time.Time `json:"at"`
}

// Publisher delivers events.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
	Close() error
}

// Nop discards events.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
func (Nop) Close() error                         { return nil }

// RedisPublisher appends events to a Redis stream, one JSON-encoded "event"
// field per entry.
type RedisPublisher struct {
	client    *redis.Client
	stream    string
	maxLength int64
	retry     retry.Config
}

// NewRedisPublisher connects lazily to addr. maxLength caps the stream
// (approximately); zero leaves it unbounded.
func NewRedisPublisher(addr string, db int, stream string, maxLength int64) *RedisPublisher {
	if stream == "" {
		stream = DefaultStream
	}
	client := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})

	cfg := retry.Busy(func(err error) bool {
		// redis.Nil and server replies are final; only connection trouble retries
		_, isReply := err.(redis.Error)
		return !isReply
	})
	cfg.MaxAttempts = 3

	return &RedisPublisher{
		client:    client,
		stream:    stream,
		maxLength: maxLength,
		retry:     cfg,
	}
}

// Publish appends ev to the stream.
func (p *RedisPublisher) Publish(ctx context.Context, ev Event) error {
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	args := &redis.XAddArgs{
		Stream: p.stream,
		Values: map[string]interface{}{
			"store": ev.Store,
			"event": payload,
		},
	}
	if p.maxLength > 0 {
		args.MaxLen = p.maxLength
		args.Approx = true
	}

	var id string
	err = retry.WithRetry(ctx, p.retry, func() error {
		var err error
		id, err = p.client.XAdd(ctx, args).Result()
		return err
	})
	if err != nil {
		return fmt.Errorf("publish to %s: %w", p.stream, err)
	}

	log.Debug().
		Str("stream", p.stream).
		Str("id", id).
		Str("store", ev.Store).
		Str("week", ev.Week).
		Msg("Crawl event published")
	return nil
}

// Ping checks the connection.
func (p *RedisPublisher) Ping(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (p *RedisPublisher) Close() error {
	return p.client.Close()
}
