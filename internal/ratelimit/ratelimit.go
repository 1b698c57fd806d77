package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// PublishLimiter caps how many publish operations one Instagram account may
// start per hour. The Graph API enforces its own content-publishing quota;
// rejecting excess requests here keeps us from burning the quota on attempts
// that would fail anyway. State lives in Redis so the limit holds across
// both the API process and the scheduler worker.
type PublishLimiter struct {
	redis    *redis.Client
	capacity int64         // Maximum number of publishes per window
	refill   int64         // Tokens restored per window
	window   time.Duration // Refill window
}

// NewPublishLimiter creates a per-account token bucket with an hourly window.
func NewPublishLimiter(redisClient *redis.Client, capacity, refillRate int64) *PublishLimiter {
	return &PublishLimiter{
		redis:    redisClient,
		capacity: capacity,
		refill:   refillRate,
		window:   time.Hour,
	}
}

// allowScript consumes one token if available. The bucket state is a Redis
// hash updated atomically so concurrent callers cannot double-spend.
const allowScript = `
	local key = KEYS[1]
	local capacity = tonumber(ARGV[1])
	local refill_rate = tonumber(ARGV[2])
	local window = tonumber(ARGV[3])
	local now = tonumber(ARGV[4])

	local bucket = redis.call('HMGET', key, 'tokens', 'last_refill')
	local tokens = tonumber(bucket[1]) or capacity
	local last_refill = tonumber(bucket[2]) or now

	local time_passed = now - last_refill
	local tokens_to_add = math.floor((time_passed / window) * refill_rate)

	if tokens_to_add > 0 then
		tokens = math.min(capacity, tokens + tokens_to_add)
		last_refill = now
	end

	if tokens > 0 then
		tokens = tokens - 1
		redis.call('HMSET', key, 'tokens', tokens, 'last_refill', last_refill)
		redis.call('EXPIRE', key, window * 2)
		return 1
	else
		redis.call('HMSET', key, 'tokens', tokens, 'last_refill', last_refill)
		redis.call('EXPIRE', key, window * 2)
		return 0
	end
`

const remainingScript = `
	local key = KEYS[1]
	local capacity = tonumber(ARGV[1])
	local refill_rate = tonumber(ARGV[2])
	local window = tonumber(ARGV[3])
	local now = tonumber(ARGV[4])

	local bucket = redis.call('HMGET', key, 'tokens', 'last_refill')
	local tokens = tonumber(bucket[1]) or capacity
	local last_refill = tonumber(bucket[2]) or now

	local time_passed = now - last_refill
	local tokens_to_add = math.floor((time_passed / window) * refill_rate)

	if tokens_to_add > 0 then
		tokens = math.min(capacity, tokens + tokens_to_add)
	end

	return tokens
`

func (pl *PublishLimiter) key(accountID string) string {
	return fmt.Sprintf("publish_limit:%s", accountID)
}

// Allow reports whether the account may start another publish right now.
func (pl *PublishLimiter) Allow(ctx context.Context, accountID string) (bool, error) {
	now := time.Now().Unix()
	result, err := pl.redis.Eval(ctx, allowScript, []string{pl.key(accountID)},
		pl.capacity, pl.refill, int64(pl.window.Seconds()), now).Result()

	if err != nil {
		return false, fmt.Errorf("publish limit check failed: %w", err)
	}

	allowed, ok := result.(int64)
	if !ok {
		return false, fmt.Errorf("unexpected result type from publish limit script")
	}

	return allowed == 1, nil
}

// Remaining returns how many publishes the account has left in the window.
func (pl *PublishLimiter) Remaining(ctx context.Context, accountID string) (int64, error) {
	now := time.Now().Unix()
	result, err := pl.redis.Eval(ctx, remainingScript, []string{pl.key(accountID)},
		pl.capacity, pl.refill, int64(pl.window.Seconds()), now).Result()

	if err != nil {
		return 0, fmt.Errorf("failed to get remaining publishes: %w", err)
	}

	remaining, ok := result.(int64)
	if !ok {
		return 0, fmt.Errorf("unexpected result type from remaining script")
	}

	return remaining, nil
}

// Reset clears the bucket for an account.
func (pl *PublishLimiter) Reset(ctx context.Context, accountID string) error {
	return pl.redis.Del(ctx, pl.key(accountID)).Err()
}
