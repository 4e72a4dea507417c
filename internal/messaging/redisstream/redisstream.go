// Package redisstream carries pipeline messages over Redis Streams. Each topic
// is a stream and each subscription a consumer group on it.
package redisstream

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nsridhar76/go-orderevents/internal/config"
	"github.com/nsridhar76/go-orderevents/internal/domain"
	"github.com/nsridhar76/go-orderevents/internal/messaging"
)

// Stream entry fields.
const (
	fieldID          = "id"
	fieldKey         = "key"
	fieldPayload     = "payload"
	fieldHeaders     = "headers"
	fieldPublishedAt = "published_at"
)

// NewClient creates a go-redis client from cfg.
func NewClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

func encode(msg messaging.Message) (map[string]any, error) {
	headers, err := json.Marshal(msg.Headers)
	if err != nil {
		return nil, fmt.Errorf("encode headers: %w", err)
	}
	return map[string]any{
		fieldID:          msg.ID,
		fieldKey:         msg.Key,
		fieldPayload:     msg.Payload,
		fieldHeaders:     string(headers),
		fieldPublishedAt: msg.PublishedAt.UTC().Format(time.RFC3339Nano),
	}, nil
}

// decode builds a Message from a stream entry. On a headers error the message
// is still returned, without headers, so its payload can be delivered.
func decode(stream string, xm redis.XMessage) (messaging.Message, error) {
	str := func(k string) string {
		v, _ := xm.Values[k].(string)
		return v
	}

	msg := messaging.Message{
		ID:      str(fieldID),
		Topic:   domain.Topic(stream),
		Key:     str(fieldKey),
		Payload: str(fieldPayload),
	}
	if msg.ID == "" {
		msg.ID = xm.ID
	}
	if raw := str(fieldHeaders); raw != "" && raw != "null" {
		if err := json.Unmarshal([]byte(raw), &msg.Headers); err != nil {
			msg.Headers = nil
			return msg, fmt.Errorf("decode headers of %s: %w", xm.ID, err)
		}
	}
	if raw := str(fieldPublishedAt); raw != "" {
		if ts, err := time.Parse(time.RFC3339Nano, raw); err == nil {
			msg.PublishedAt = ts
		}
	}
	return msg, nil
}

// Publisher appends messages to the stream named by the topic.
type Publisher struct {
	client redis.UniversalClient
}

var _ messaging.Publisher = (*Publisher)(nil)

// NewPublisher creates a Publisher.
func NewPublisher(client redis.UniversalClient) *Publisher {
	return &Publisher{client: client}
}

// Publish runs XADD <topic> * ...
func (p *Publisher) Publish(ctx context.Context, msg messaging.Message) error {
	values, err := encode(msg)
	if err != nil {
		return err
	}
	if err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: msg.Topic.String(),
		Values: values,
	}).Err(); err != nil {
		return fmt.Errorf("xadd %s: %w", msg.Topic, err)
	}
	return nil
}
