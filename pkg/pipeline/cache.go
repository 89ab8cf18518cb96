package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// answerKeyPrefix namespaces cache entries so the engine can share a Redis
// database with other tools.
const answerKeyPrefix = "askdb:answer:"

// AnswerCache remembers the accepted SQL for a question so a repeat request
// skips generation. Implementations must be safe for concurrent use. The
// orchestrator revalidates every hit before executing it, so a stale entry
// costs a regeneration, never a bad answer.
type AnswerCache interface {
	Get(ctx context.Context, question string) (string, bool)
	Put(ctx context.Context, question string, sqlQuery string)
}

// NewAnswerCache returns a Redis-backed cache, or a no-op cache when client
// is nil (Redis unconfigured).
func NewAnswerCache(client *redis.Client, ttl time.Duration, logger *zap.Logger) AnswerCache {
	if client == nil {
		return noopCache{}
	}
	return &redisCache{client: client, ttl: ttl, logger: logger.Named("answer-cache")}
}

type redisCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func (c *redisCache) Get(ctx context.Context, question string) (string, bool) {
	sqlQuery, err := c.client.Get(ctx, answerKey(question)).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("Cache read failed", zap.Error(err))
		}
		return "", false
	}
	return sqlQuery, true
}

func (c *redisCache) Put(ctx context.Context, question string, sqlQuery string) {
	if err := c.client.Set(ctx, answerKey(question), sqlQuery, c.ttl).Err(); err != nil {
		c.logger.Warn("Cache write failed", zap.Error(err))
	}
}

type noopCache struct{}

func (noopCache) Get(ctx context.Context, question string) (string, bool) { return "", false }

func (noopCache) Put(ctx context.Context, question string, sqlQuery string) {}

// answerKey hashes the normalized question so arbitrary user text never
// becomes a raw Redis key. Normalization lets "Top customers?" and
// "  top customers? " share an entry.
func answerKey(question string) string {
	normalized := strings.ToLower(strings.Join(strings.Fields(question), " "))
	sum := sha256.Sum256([]byte(normalized))
	return answerKeyPrefix + hex.EncodeToString(sum[:])
}
