package ratelimit

import (
	"context"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/mensalidade/internal/config"
)

const keyGatewaySend = "collection:gateway:send"

// SendThrottle caps outbound reminders across every instance sharing redis.
// A nil throttle allows everything.
type SendThrottle struct {
	bucket *TokenBucket
	rate   float64
	burst  int
}

func NewSendThrottle(client *redis.Client, cfg config.Config) *SendThrottle {
	if client == nil || cfg.WhatsApp.SendRate <= 0 || cfg.WhatsApp.SendBurst <= 0 {
		return nil
	}
	return &SendThrottle{
		bucket: NewTokenBucket(client),
		rate:   cfg.WhatsApp.SendRate,
		burst:  cfg.WhatsApp.SendBurst,
	}
}

func (t *SendThrottle) Allow(ctx context.Context) (bool, error) {
	if t == nil {
		return true, nil
	}
	res, err := t.bucket.Allow(ctx, keyGatewaySend, t.rate, t.burst)
	if err != nil {
		return false, err
	}
	return res.Allowed, nil
}
