// Package dedupe suppresses repeated deliveries of the same envelope.
// Webhook senders and queue redelivery both resend; an envelope is a
// duplicate when source, external ID and payload all match one seen
// within the TTL.
package dedupe

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/asbrown77/bagile-platform-sub001/ingest/internal/model"
)

// Store remembers envelopes.
type Store interface {
	// Seen records env and reports whether it had already been recorded.
	Seen(ctx context.Context, env model.Envelope) (bool, error)
	// Forget removes env so a later delivery is processed again.
	Forget(ctx context.Context, env model.Envelope) error
}

// DefaultTTL is how long a delivery is remembered.
const DefaultTTL = 24 * time.Hour

// Redis is a Store backed by SET NX EX.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

// NewRedis creates a Redis-backed Store. A non-positive ttl uses DefaultTTL.
func NewRedis(client *redis.Client, ttl time.Duration) *Redis {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Redis{client: client, ttl: ttl, prefix: "dedupe:"}
}

// Key returns the Redis key for env.
func (r *Redis) Key(env model.Envelope) string {
	sum := sha256.Sum256([]byte(env.Payload))
	return r.prefix + env.SourceKey() + ":" + env.ExternalID + ":" + hex.EncodeToString(sum[:16])
}

func (r *Redis) Seen(ctx context.Context, env model.Envelope) (bool, error) {
	fresh, err := r.client.SetNX(ctx, r.Key(env), time.Now().UTC().Format(time.RFC3339), r.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("dedupe check: %w", err)
	}
	return !fresh, nil
}

func (r *Redis) Forget(ctx context.Context, env model.Envelope) error {
	if err := r.client.Del(ctx, r.Key(env)).Err(); err != nil {
		return fmt.Errorf("dedupe forget: %w", err)
	}
	return nil
}

// NoOp never reports duplicates.
type NoOp struct{}

func (NoOp) Seen(context.Context, model.Envelope) (bool, error) { return false, nil }
func (NoOp) Forget(context.Context, model.Envelope) error       { return nil }
