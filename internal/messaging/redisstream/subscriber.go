package redisstream

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nsridhar76/go-orderevents/internal/config"
	"github.com/nsridhar76/go-orderevents/internal/messaging"
)

const readCount = 16

// Subscriber reads streams through consumer groups. Entries are acknowledged
// once the handler returns. On start it first redelivers its own pending
// entries, then claims entries other consumers left idle for longer than the
// configured threshold.
type Subscriber struct {
	client    redis.UniversalClient
	block     time.Duration
	claimIdle time.Duration
	consumer  string
	log       *slog.Logger
}

var _ messaging.Subscriber = (*Subscriber)(nil)

// NewSubscriber creates a Subscriber. cfg.BlockTimeout bounds each XREADGROUP
// call so cancellation is noticed.
func NewSubscriber(log *slog.Logger, client redis.UniversalClient, cfg config.RedisConfig, clientID string) *Subscriber {
	return &Subscriber{
		client:    client,
		block:     cfg.BlockTimeout,
		claimIdle: cfg.ClaimIdle,
		consumer:  consumerName(clientID),
		log:       log.With("component", "redis_subscriber"),
	}
}

// consumerName is stable across restarts of the same host so a restarted
// process finds its own pending entries.
func consumerName(clientID string) string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "localhost"
	}
	if clientID == "" {
		return host
	}
	return clientID + "-" + host
}

// ensureGroup creates sub's group, and the stream if needed, reading from the
// start of the stream.
func (s *Subscriber) ensureGroup(ctx context.Context, sub messaging.Subscription) error {
	err := s.client.XGroupCreateMkStream(ctx, sub.Topic.String(), sub.Group, "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("xgroup create %s/%s: %w", sub.Topic, sub.Group, err)
	}
	return nil
}

// Subscribe blocks until ctx is cancelled or Redis fails.
func (s *Subscriber) Subscribe(ctx context.Context, sub messaging.Subscription, h messaging.HandlerFunc) error {
	if err := s.ensureGroup(ctx, sub); err != nil {
		return err
	}
	if err := s.redeliverPending(ctx, sub, h); err != nil {
		return err
	}
	if err := s.reclaim(ctx, sub, h); err != nil {
		return err
	}

	stream := sub.Topic.String()
	for {
		if ctx.Err() != nil {
			return nil
		}

		res, err := s.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    sub.Group,
			Consumer: s.consumer,
			Streams:  []string{stream, ">"},
			Count:    readCount,
			Block:    s.block,
		}).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				if err := s.reclaim(ctx, sub, h); err != nil {
					return err
				}
				continue
			}
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("xreadgroup %s: %w", stream, err)
		}

		for _, xs := range res {
			s.handleBatch(ctx, sub, xs.Messages, h)
		}
	}
}

// redeliverPending replays entries this consumer read but never acknowledged,
// typically because the previous process died mid-delivery.
func (s *Subscriber) redeliverPending(ctx context.Context, sub messaging.Subscription, h messaging.HandlerFunc) error {
	stream := sub.Topic.String()
	start := "0"
	for ctx.Err() == nil {
		res, err := s.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    sub.Group,
			Consumer: s.consumer,
			Streams:  []string{stream, start},
			Count:    readCount,
			Block:    -1,
		}).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("xreadgroup pending %s: %w", stream, err)
		}

		var msgs []redis.XMessage
		for _, xs := range res {
			msgs = append(msgs, xs.Messages...)
		}
		if len(msgs) == 0 {
			return nil
		}
		s.log.InfoContext(ctx, "redelivering pending entries",
			slog.String("stream", stream),
			slog.Int("count", len(msgs)),
		)
		s.handleBatch(ctx, sub, msgs, h)
		start = msgs[len(msgs)-1].ID
	}
	return nil
}

// reclaim takes over entries that other consumers of the group have held
// unacknowledged for at least claimIdle and delivers them.
func (s *Subscriber) reclaim(ctx context.Context, sub messaging.Subscription, h messaging.HandlerFunc) error {
	stream := sub.Topic.String()
	start := "0-0"
	for ctx.Err() == nil {
		msgs, next, err := s.client.XAutoClaim(ctx, &redis.XAutoClaimArgs{
			Stream:   stream,
			Group:    sub.Group,
			Consumer: s.consumer,
			MinIdle:  s.claimIdle,
			Start:    start,
			Count:    readCount,
		}).Result()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("xautoclaim %s: %w", stream, err)
		}

		if len(msgs) > 0 {
			s.log.WarnContext(ctx, "claimed idle entries",
				slog.String("stream", stream),
				slog.Int("count", len(msgs)),
			)
			s.handleBatch(ctx, sub, msgs, h)
		}
		if next == "" || next == "0-0" {
			return nil
		}
		start = next
	}
	return nil
}

// handleBatch stops at the first entry seen after ctx is cancelled. Entries
// left unhandled stay pending for the next run.
func (s *Subscriber) handleBatch(ctx context.Context, sub messaging.Subscription, msgs []redis.XMessage, h messaging.HandlerFunc) {
	for _, xm := range msgs {
		if ctx.Err() != nil {
			return
		}
		s.handle(ctx, sub, xm, h)
	}
}

func (s *Subscriber) handle(ctx context.Context, sub messaging.Subscription, xm redis.XMessage, h messaging.HandlerFunc) {
	stream := sub.Topic.String()

	msg, err := decode(stream, xm)
	if err != nil {
		s.log.WarnContext(ctx, "stream entry headers dropped",
			slog.String("stream", stream),
			slog.String("entry_id", xm.ID),
			slog.String("error", err.Error()),
		)
	}
	if err := h(ctx, msg); err != nil {
		s.log.ErrorContext(ctx, "handler returned error",
			slog.String("stream", stream),
			slog.String("message_id", msg.ID),
			slog.String("error", err.Error()),
		)
	}

	if err := s.client.XAck(context.WithoutCancel(ctx), stream, sub.Group, xm.ID).Err(); err != nil {
		s.log.ErrorContext(ctx, "xack failed",
			slog.String("stream", stream),
			slog.String("entry_id", xm.ID),
			slog.String("error", err.Error()),
		)
	}
}
