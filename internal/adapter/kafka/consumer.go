// Package kafka consumes dataset-update notifications and invalidates cached
// frames so the next request re-renders from fresh data.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/precip-atlas-service/internal/config"
	"github.com/couchcryptid/precip-atlas-service/internal/observability"
)

// Invalidator is the cache-eviction surface the consumer drives.
type Invalidator interface {
	InvalidateYear(year int)
}

// updateEvent is the wire format of a dataset-update notification. Year 0
// means the whole dataset changed.
type updateEvent struct {
	Year int `json:"year"`
}

// Consumer reads dataset-update messages from Kafka.
type Consumer struct {
	reader  *kafkago.Reader
	cache   Invalidator
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewConsumer creates a consumer for the configured update topic.
func NewConsumer(cfg *config.Config, cache Invalidator, logger *slog.Logger, metrics *observability.Metrics) *Consumer {
	r := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:  cfg.KafkaBrokers,
		Topic:    cfg.KafkaTopic,
		GroupID:  cfg.KafkaGroupID,
		MinBytes: 1,
		MaxBytes: 1 << 20,
	})
	return &Consumer{reader: r, cache: cache, logger: logger, metrics: metrics}
}

// Run consumes until the context is canceled. Malformed messages are logged
// and committed so they are never re-delivered.
func (c *Consumer) Run(ctx context.Context) error {
	c.logger.Info("invalidation consumer starting", "topic", c.reader.Config().Topic)
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			return fmt.Errorf("fetch update message: %w", err)
		}

		c.handle(msg)

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			return fmt.Errorf("commit update message: %w", err)
		}
	}
}

// handle applies a single update message to the cache.
func (c *Consumer) handle(msg kafkago.Message) {
	ev, err := parseUpdateEvent(msg.Value)
	if err != nil {
		c.metrics.InvalidationEvents.WithLabelValues("malformed").Inc()
		c.logger.Warn("skipping malformed update message",
			"offset", msg.Offset, "error", err)
		return
	}

	c.cache.InvalidateYear(ev.Year)
	c.metrics.InvalidationEvents.WithLabelValues("applied").Inc()
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}

// parseUpdateEvent decodes a notification payload, rejecting years that could
// not plausibly index the dataset.
func parseUpdateEvent(data []byte) (updateEvent, error) {
	var ev updateEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return updateEvent{}, fmt.Errorf("decode update event: %w", err)
	}
	if ev.Year < 0 {
		return updateEvent{}, fmt.Errorf("invalid year %d", ev.Year)
	}
	return ev, nil
}
