// Package ratelimit throttles requests per client, in Redis when one is
// configured and in process otherwise.
package ratelimit

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"time"

	redis_rate "github.com/go-redis/redis_rate/v10"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"sporty-backend/log"
)

type Decision struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

type Limiter interface {
	Allow(ctx context.Context, key string) (Decision, error)
}

// PerMinute is rate requests per minute with bursts of up to burst.
func PerMinute(rate, burst int) redis_rate.Limit {
	return redis_rate.Limit{Rate: rate, Burst: burst, Period: time.Minute}
}

type Redis struct {
	limiter *redis_rate.Limiter
	limit   redis_rate.Limit
}

func NewRedis(rdb redis.UniversalClient, limit redis_rate.Limit) *Redis {
	return &Redis{limiter: redis_rate.NewLimiter(rdb), limit: limit}
}

// Dial parses a redis:// URL and checks the server answers.
func Dial(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}

	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, err
	}
	return rdb, nil
}

func (r *Redis) Allow(ctx context.Context, key string) (Decision, error) {
	res, err := r.limiter.Allow(ctx, key, r.limit)
	if err != nil {
		return Decision{}, err
	}

	return Decision{
		Allowed:    res.Allowed > 0,
		Remaining:  res.Remaining,
		RetryAfter: res.RetryAfter,
	}, nil
}

type Config struct {
	Limiter Limiter
	KeyFunc func(*http.Request) string
	// OnLimited writes the response for a rejected request.
	OnLimited func(w http.ResponseWriter, r *http.Request)
}

// Middleware rejects requests over the limit. Limiter errors let the
// request through.
func Middleware(cfg Config) func(http.Handler) http.Handler {
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = KeyByIP
	}
	if cfg.OnLimited == nil {
		cfg.OnLimited = func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := cfg.KeyFunc(r)

			d, err := cfg.Limiter.Allow(r.Context(), key)
			if err != nil {
				log.Logger.Warn("rate limiter error, failing open", zap.Error(err), zap.String("key", key))
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
			if !d.Allowed {
				retry := int(d.RetryAfter.Seconds())
				if retry < 1 {
					retry = 1
				}
				w.Header().Set("Retry-After", strconv.Itoa(retry))
				cfg.OnLimited(w, r)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// KeyByIP keys on the remote address; put chi's RealIP in front when
// running behind a proxy.
func KeyByIP(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		ip = r.RemoteAddr
	}
	return "ratelimit:ip:" + ip
}
