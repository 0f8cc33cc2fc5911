package ratelimit

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var ErrRedisUnavailable = errors.New("redis unavailable")

type Decision struct {
	Limit      int
	Remaining  int
	RetryAfter time.Duration
	Allowed    bool
}

type LimitConfig struct {
	Rate   int
	Window time.Duration
}

// fixedWindow increments the counter and starts its window on first hit.
var fixedWindow = redis.NewScript(`
	local current = redis.call("INCR", KEYS[1])
	if tonumber(current) == 1 then
		redis.call("PEXPIRE", KEYS[1], ARGV[1])
	end
	return {current, redis.call("PTTL", KEYS[1])}
`)

type Limiter struct {
	client redis.Scripter
	salt   string
}

func NewLimiter(client redis.Scripter, salt string) *Limiter {
	return &Limiter{client: client, salt: salt}
}

// HashIP keeps raw client addresses out of redis keys.
func (l *Limiter) HashIP(ip string) string {
	hash := sha256.Sum256([]byte(ip + l.salt))
	return hex.EncodeToString(hash[:])
}

func (l *Limiter) Allow(ctx context.Context, scope, ip string, cfg LimitConfig) (*Decision, error) {
	key := fmt.Sprintf("rl:%s:%s", scope, l.HashIP(ip))

	res, err := fixedWindow.Run(ctx, l.client, []string{key}, cfg.Window.Milliseconds()).Int64Slice()
	if err != nil || len(res) != 2 {
		return nil, ErrRedisUnavailable
	}

	count := int(res[0])
	remaining := cfg.Rate - count
	if remaining < 0 {
		remaining = 0
	}

	retryAfter := time.Duration(res[1]) * time.Millisecond
	if retryAfter <= 0 {
		retryAfter = cfg.Window
	}

	return &Decision{
		Limit:      cfg.Rate,
		Remaining:  remaining,
		RetryAfter: retryAfter,
		Allowed:    count <= cfg.Rate,
	}, nil
}
