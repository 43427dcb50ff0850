// Package rate implementa el límite de submissions por aplicación:
// ventana fija por hora, con el máximo declarado en la config de cada app.
package rate

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	rdb "github.com/redis/go-redis/v9"
)

type Result struct {
	Allowed     bool
	Remaining   int64
	RetryAfter  time.Duration
	WindowTTL   time.Duration
	CurrentHits int64
}

// Limiter cuenta hits por clave dentro de la ventana. max va por llamada
// porque cada aplicación declara su propio límite; max <= 0 es sin límite.
type Limiter interface {
	Allow(ctx context.Context, key string, max int) (Result, error)
}

// RedisLimiter: fixed window sencillo (INCR + EXPIRE)
type RedisLimiter struct {
	Client *rdb.Client
	Prefix string
	Window time.Duration
}

func NewRedisLimiter(client *rdb.Client, prefix string, window time.Duration) *RedisLimiter {
	if prefix == "" {
		prefix = "rl:"
	}
	if window == 0 {
		window = time.Hour
	}
	return &RedisLimiter{Client: client, Prefix: prefix, Window: window}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string, max int) (Result, error) {
	if max <= 0 {
		return Result{Allowed: true, Remaining: math.MaxInt64}, nil
	}

	now := time.Now().UTC()
	winStart := now.Truncate(l.Window)
	redisKey := fmt.Sprintf("%s%s:%d", l.Prefix, strings.ReplaceAll(key, " ", "_"), winStart.Unix())

	pipe := l.Client.TxPipeline()
	incr := pipe.Incr(ctx, redisKey)
	ttl := pipe.TTL(ctx, redisKey)
	_, err := pipe.Exec(ctx)
	if err != nil {
		return Result{}, err
	}

	// set expiry on first hit
	if incr.Val() == 1 {
		_ = l.Client.Expire(ctx, redisKey, l.Window).Err()
		ttl = l.Client.TTL(ctx, redisKey)
	}

	hits := incr.Val()
	allowed := hits <= int64(max)
	remaining := int64(max) - hits
	if remaining < 0 {
		remaining = 0
	}

	res := Result{
		Allowed:     allowed,
		Remaining:   remaining,
		CurrentHits: hits,
		WindowTTL:   ttl.Val(),
	}
	if !allowed {
		// Retry after: resto de la ventana
		res.RetryAfter = ttl.Val()
		if res.RetryAfter < 0 {
			res.RetryAfter = time.Duration(math.Ceil(l.Window.Seconds())) * time.Second
		}
	}
	return res, nil
}

// MemoryLimiter es el equivalente in-process, para deployments con el kv en
// memoria. Misma semántica de ventana fija.
type MemoryLimiter struct {
	Window time.Duration

	mu   sync.Mutex
	hits map[string]int64
	win  time.Time
}

func NewMemoryLimiter(window time.Duration) *MemoryLimiter {
	if window == 0 {
		window = time.Hour
	}
	return &MemoryLimiter{Window: window, hits: map[string]int64{}}
}

func (l *MemoryLimiter) Allow(_ context.Context, key string, max int) (Result, error) {
	if max <= 0 {
		return Result{Allowed: true, Remaining: math.MaxInt64}, nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	winStart := time.Now().UTC().Truncate(l.Window)
	if !winStart.Equal(l.win) {
		l.win = winStart
		l.hits = map[string]int64{}
	}

	l.hits[key]++
	hits := l.hits[key]
	allowed := hits <= int64(max)
	remaining := int64(max) - hits
	if remaining < 0 {
		remaining = 0
	}

	res := Result{
		Allowed:     allowed,
		Remaining:   remaining,
		CurrentHits: hits,
		WindowTTL:   time.Until(winStart.Add(l.Window)),
	}
	if !allowed {
		res.RetryAfter = res.WindowTTL
	}
	return res, nil
}
