package contextstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/bitiz/tirebot-go/internal/domain"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "chatctx:"

// Redis stores contexts as JSON values with the idle TTL enforced by
// key expiry. Every read refreshes the expiry, mirroring the sliding
// window of the in-memory store.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedis creates a store over an existing client.
func NewRedis(client *redis.Client, ttl time.Duration) *Redis {
	return &Redis{client: client, ttl: ttl}
}

// GetOrCreate loads the session context, creating a fresh one when the
// key is absent or its value no longer parses.
func (s *Redis) GetOrCreate(ctx context.Context, sessionID string) (*domain.ConversationContext, error) {
	key := redisKeyPrefix + sessionID
	data, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.NewConversationContext(sessionID), nil
	}
	if err != nil {
		return nil, fmt.Errorf("context get %s: %w", sessionID, err)
	}

	var c domain.ConversationContext
	if err := json.Unmarshal(data, &c); err != nil {
		// A corrupt value is unrecoverable; start the session over.
		return domain.NewConversationContext(sessionID), nil
	}
	if c.CollectedParameters == nil {
		c.CollectedParameters = map[string]string{}
	}
	s.client.Expire(ctx, key, s.ttl)
	return &c, nil
}

// Save serializes and stores the context with the idle TTL.
func (s *Redis) Save(ctx context.Context, c *domain.ConversationContext) error {
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("context marshal %s: %w", c.SessionID, err)
	}
	if err := s.client.Set(ctx, redisKeyPrefix+c.SessionID, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("context set %s: %w", c.SessionID, err)
	}
	return nil
}

// Clear drops the session state.
func (s *Redis) Clear(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, redisKeyPrefix+sessionID).Err(); err != nil {
		return fmt.Errorf("context del %s: %w", sessionID, err)
	}
	return nil
}

// Ping verifies the Redis connection, for health reporting.
func (s *Redis) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
