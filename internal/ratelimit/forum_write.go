package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/talentloop/internal/config"
)

const keyForumWrite = "forum:write:%s"

// ForumWriteLimiter throttles forum mutations per author or client address.
type ForumWriteLimiter struct {
	enabled bool
	bucket  *TokenBucket
	rate    float64
	burst   int
}

func NewForumWriteLimiter(cfg config.Config, client *redis.Client) (*ForumWriteLimiter, error) {
	limitCfg := cfg.RateLimit
	if !limitCfg.Enabled {
		return nil, nil
	}
	if client == nil {
		return nil, errors.New("rate limit requires redis")
	}
	if limitCfg.ForumWriteRate <= 0 || limitCfg.ForumWriteBurst <= 0 {
		return nil, errors.New("forum write rate limit must be positive")
	}

	return &ForumWriteLimiter{
		enabled: true,
		bucket:  NewTokenBucket(client),
		rate:    limitCfg.ForumWriteRate,
		burst:   limitCfg.ForumWriteBurst,
	}, nil
}

func (l *ForumWriteLimiter) Enabled() bool {
	return l != nil && l.enabled
}

func (l *ForumWriteLimiter) Allow(ctx context.Context, subject string) (*RateLimitResult, error) {
	if !l.Enabled() {
		return &RateLimitResult{Allowed: true}, nil
	}
	subject = strings.ToLower(strings.TrimSpace(subject))
	if subject == "" {
		subject = "anonymous"
	}
	return l.bucket.Allow(ctx, fmt.Sprintf(keyForumWrite, subject), l.rate, l.burst)
}
