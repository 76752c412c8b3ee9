// Package redisstate mirrors published sensor records into Redis so
// external automations can read the entity surface without talking to this
// service directly.
package redisstate

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/couchcryptid/cfa-fire-forecast/internal/sensor"
)

// Publisher writes each district's record to Redis: one hash of reading
// name to state for cheap per-sensor lookups, plus a JSON blob of the full
// record. Keys have no expiry, matching the pipeline's no-expiry retained
// state policy.
type Publisher struct {
	client    *redis.Client
	keyPrefix string
	logger    *slog.Logger
}

// NewPublisher creates a Redis publisher. Ping failures are left to surface
// on first publish; the feed pipeline must not block on a slow Redis at
// startup.
func NewPublisher(addr, keyPrefix string, logger *slog.Logger) *Publisher {
	return &Publisher{
		client:    redis.NewClient(&redis.Options{Addr: addr}),
		keyPrefix: keyPrefix,
		logger:    logger,
	}
}

// Name identifies the sink in logs and metrics.
func (p *Publisher) Name() string { return "redis" }

// Publish mirrors a record into Redis.
func (p *Publisher) Publish(ctx context.Context, record sensor.Record) error {
	stateKey := fmt.Sprintf("%s:%s", p.keyPrefix, record.DistrictSlug)
	recordKey := fmt.Sprintf("%s:%s:record", p.keyPrefix, record.DistrictSlug)

	fields := make(map[string]any, len(record.Readings))
	for _, reading := range record.Readings {
		fields[reading.Name] = reading.State
	}

	blob, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal record for %s: %w", record.DistrictSlug, err)
	}

	pipe := p.client.Pipeline()
	pipe.HSet(ctx, stateKey, fields)
	pipe.Set(ctx, recordKey, blob, 0)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis publish for %s: %w", record.DistrictSlug, err)
	}

	p.logger.Debug("record mirrored to redis",
		"district", record.DistrictSlug,
		"readings", len(record.Readings),
	)
	return nil
}

// Close releases the Redis connection.
func (p *Publisher) Close() error {
	return p.client.Close()
}
