package services

import (
	"context"
	"fmt"
	"time"

	"github.com/chachabrian/rescuelink-backend/internal/auth"
	"github.com/redis/go-redis/v9"
)

// OTPLimiter enforces a cooldown between OTP requests and a cap per window.
// Breaching the cap blocks the key for three windows.
type OTPLimiter struct {
	client      redis.Cmdable
	cooldown    time.Duration
	window      time.Duration
	maxInWindow int
}

func NewOTPLimiter(client redis.Cmdable, cooldown, window time.Duration, max int) *OTPLimiter {
	return &OTPLimiter{client: client, cooldown: cooldown, window: window, maxInWindow: max}
}

func (l *OTPLimiter) Allow(ctx context.Context, key string) error {
	blockKey := "otp_rate:block:" + key
	lastKey := "otp_rate:last:" + key
	countKey := "otp_rate:count:" + key

	if ttl, _ := l.client.TTL(ctx, blockKey).Result(); ttl > 0 {
		return &auth.RateLimitError{Message: fmt.Sprintf("Too many OTP requests. Try again in %d seconds", int(ttl.Seconds()))}
	}

	if ttl, _ := l.client.TTL(ctx, lastKey).Result(); ttl > 0 {
		return &auth.RateLimitError{Message: fmt.Sprintf("Please wait %d seconds before requesting another OTP", int(ttl.Seconds()))}
	}

	cnt, err := l.client.Incr(ctx, countKey).Result()
	if err != nil {
		return fmt.Errorf("incrementing otp counter: %w", err)
	}
	if err := l.ensureWindow(ctx, countKey, cnt); err != nil {
		return err
	}

	if int(cnt) > l.maxInWindow {
		block := l.window * 3
		_ = l.client.Set(ctx, blockKey, "1", block).Err()
		return &auth.RateLimitError{Message: fmt.Sprintf("Too many OTP requests. Try again in %d seconds", int(block.Seconds()))}
	}

	_ = l.client.Set(ctx, lastKey, "1", l.cooldown).Err()
	return nil
}

// ensureWindow puts the window TTL on a fresh counter. A counter that lost
// its TTL, because an earlier Expire failed, gets it back on the next call
// instead of locking the user out forever.
func (l *OTPLimiter) ensureWindow(ctx context.Context, countKey string, cnt int64) error {
	if cnt > 1 {
		ttl, err := l.client.TTL(ctx, countKey).Result()
		if err != nil || ttl != -1 {
			return nil
		}
	}
	if err := l.client.Expire(ctx, countKey, l.window).Err(); err != nil {
		return fmt.Errorf("setting otp window: %w", err)
	}
	return nil
}
