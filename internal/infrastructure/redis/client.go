package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/aryan0dhankhar/jobmatch/internal/domain"
)

// EventsChannel is the pub/sub channel carrying post-commit domain events.
const EventsChannel = "jobmatch:events"

const (
	// PushStream carries status changes to be pushed through the chat-bot
	// channel.
	PushStream = "jobmatch:pushes"
	// PushGroup is the consumer group shared by every server replica.
	PushGroup = "dispatchers"

	streamField      = "event"
	pushStreamMaxLen = 10000
	streamBatch      = 10
	streamBlock      = 5 * time.Second
	// claimIdle is how long a delivered entry may stay unacknowledged
	// before another consumer takes it over.
	claimIdle = time.Minute
)

// Client wraps the Redis client with our custom methods
type Client struct {
	rdb     *redis.Client
	channel string
	logger  *slog.Logger
}

// NewClient creates a new Redis client
func NewClient(url string, logger *slog.Logger) (*Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	rdb := redis.NewClient(opts)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &Client{rdb: rdb, channel: EventsChannel, logger: logger}, nil
}

// Publish sends the JSON encoded event to the events channel. Status
// changes are also appended to the push stream, where exactly one consumer
// of the group delivers each of them.
func (c *Client) Publish(ctx context.Context, ev domain.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode event %s: %w", ev.Type, err)
	}
	pipe := c.rdb.TxPipeline()
	pipe.Publish(ctx, c.channel, payload)
	if ev.Type == domain.EventApplicationStatus {
		pipe.XAdd(ctx, &redis.XAddArgs{
			Stream: PushStream,
			MaxLen: pushStreamMaxLen,
			Approx: true,
			Values: map[string]any{streamField: payload},
		})
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("publish event %s: %w", ev.Type, err)
	}
	return nil
}

// Subscribe delivers events from the channel to handle until ctx is done.
// Undecodable payloads are logged and skipped.
func (c *Client) Subscribe(ctx context.Context, handle func(context.Context, domain.Event)) error {
	sub := c.rdb.Subscribe(ctx, c.channel)
	defer sub.Close()

	// Wait for the subscription to be confirmed so no event published after
	// Subscribe returns is lost.
	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", c.channel, err)
	}
	c.logger.Info("subscribed to events", slog.String("channel", c.channel))

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return errors.New("event subscription closed")
			}
			ev, err := DecodeEvent([]byte(msg.Payload))
			if err != nil {
				c.logger.Warn("dropping undecodable event", slog.String("error", err.Error()))
				continue
			}
			handle(ctx, ev)
		}
	}
}

// Consume reads the push stream as consumer of PushGroup until ctx is
// done. Each entry is acknowledged after handle returns, so an entry held
// by a consumer that died is claimed by another one after claimIdle.
func (c *Client) Consume(ctx context.Context, consumer string, handle func(context.Context, domain.Event)) error {
	err := c.rdb.XGroupCreateMkStream(ctx, PushStream, PushGroup, "0").Err()
	if err != nil && !isBusyGroup(err) {
		return fmt.Errorf("create consumer group %s: %w", PushGroup, err)
	}
	logger := c.logger.With(slog.String("stream", PushStream), slog.String("consumer", consumer))
	logger.Info("consuming push stream")

	for ctx.Err() == nil {
		claimed, _, err := c.rdb.XAutoClaim(ctx, &redis.XAutoClaimArgs{
			Stream:   PushStream,
			Group:    PushGroup,
			Consumer: consumer,
			MinIdle:  claimIdle,
			Start:    "0-0",
			Count:    streamBatch,
		}).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("claim %s: %w", PushStream, err)
		}
		c.handleEntries(ctx, logger, claimed, handle)

		streams, err := c.rdb.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    PushGroup,
			Consumer: consumer,
			Streams:  []string{PushStream, ">"},
			Count:    streamBatch,
			Block:    streamBlock,
		}).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("read %s: %w", PushStream, err)
		}
		for _, st := range streams {
			c.handleEntries(ctx, logger, st.Messages, handle)
		}
	}
	return nil
}

func (c *Client) handleEntries(ctx context.Context, logger *slog.Logger, msgs []redis.XMessage, handle func(context.Context, domain.Event)) {
	for _, msg := range msgs {
		ev, err := DecodeStreamEntry(msg)
		if err != nil {
			logger.Warn("dropping undecodable stream entry", slog.String("id", msg.ID), slog.String("error", err.Error()))
		} else {
			handle(ctx, ev)
		}
		if err := c.rdb.XAck(ctx, PushStream, PushGroup, msg.ID).Err(); err != nil {
			logger.Warn("stream ack failed", slog.String("id", msg.ID), slog.String("error", err.Error()))
		}
	}
}

// DecodeStreamEntry parses one push stream entry.
func DecodeStreamEntry(msg redis.XMessage) (domain.Event, error) {
	raw, ok := msg.Values[streamField].(string)
	if !ok {
		return domain.Event{}, fmt.Errorf("decode stream entry %s: missing %q field", msg.ID, streamField)
	}
	return DecodeEvent([]byte(raw))
}

func isBusyGroup(err error) bool {
	return strings.HasPrefix(err.Error(), "BUSYGROUP")
}

// DecodeEvent parses one events channel payload.
func DecodeEvent(payload []byte) (domain.Event, error) {
	var ev domain.Event
	if err := json.Unmarshal(payload, &ev); err != nil {
		return ev, fmt.Errorf("decode event: %w", err)
	}
	if ev.Type == "" {
		return ev, errors.New("decode event: missing type")
	}
	return ev, nil
}

// Ping checks connectivity
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}
