package ratelimit

import (
	"context"
	"fmt"
	"time"

	"holanu-server/internal/clients/redis"
	"holanu-server/internal/observability"
)

// Result represents the outcome of a rate limit check
type Result struct {
	Allowed   bool      `json:"allowed"`
	Limit     int       `json:"limit"`
	Remaining int       `json:"remaining"`
	ResetAt   time.Time `json:"reset_at"`
}

// Service implements fixed-window rate limiting backed by Redis. The public
// ad tracker is the main consumer; when Redis is unavailable the check fails
// open so tracking never blocks on infrastructure.
type Service struct {
	redis  *redis.Client
	logger *observability.Logger
}

func NewService(redis *redis.Client, logger *observability.Logger) *Service {
	return &Service{
		redis:  redis,
		logger: logger,
	}
}

// Check counts a request against the caller's current one-minute window.
// key identifies the caller (session id or client IP).
func (s *Service) Check(ctx context.Context, key string, limit int) (Result, error) {
	now := time.Now()
	windowStart := now.Truncate(time.Minute)
	resetAt := windowStart.Add(time.Minute)

	if s.redis == nil || !s.redis.IsEnabled() {
		return Result{Allowed: true, Limit: limit, Remaining: limit, ResetAt: resetAt}, nil
	}

	redisKey := fmt.Sprintf("rl:track:%s:%d", key, windowStart.Unix())

	count, err := s.redis.Incr(ctx, redisKey)
	if err != nil {
		s.logger.Error(ctx, "rate limit check failed, allowing request", err)
		return Result{Allowed: true, Limit: limit, Remaining: limit, ResetAt: resetAt}, nil
	}

	if count == 1 {
		if err := s.redis.Expire(ctx, redisKey, 2*time.Minute); err != nil {
			s.logger.Error(ctx, "failed to set expiration on rate limit key", err)
		}
	}

	if int(count) > limit {
		return Result{Allowed: false, Limit: limit, Remaining: 0, ResetAt: resetAt}, nil
	}

	return Result{
		Allowed:   true,
		Limit:     limit,
		Remaining: limit - int(count),
		ResetAt:   resetAt,
	}, nil
}
