package telegram

import (
	"strings"
	"time"

	coreconfig "github.com/m3rciful/ratebot/core/config"
	"github.com/m3rciful/ratebot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// ChainOptions tunes DefaultMiddlewares.
type ChainOptions struct {
	// OnLimited answers updates dropped by the rate limiter. Nil drops silently.
	OnLimited func(tele.Context) error
	// Counters receives per-update counts. Nil disables counting.
	Counters *middleware.Counters
}

// DefaultMiddlewares builds the global chain: recover, optional rate limit,
// per-chat serialization, update logging and counters.
// Serialization runs after rate limiting so dropped updates never queue.
func DefaultMiddlewares(cfg *coreconfig.Config, opts ChainOptions) []Middleware {
	mws := []Middleware{{Name: "recover", Use: middleware.RecoverMiddleware}}

	if cfg != nil {
		if rl, ok := rateLimitOptions(cfg.RateLimit, opts.OnLimited); ok {
			mws = append(mws, Middleware{Name: "rate_limit", Use: middleware.RateLimitMiddleware(rl)})
		}
	}

	mws = append(mws,
		Middleware{Name: "serialize_chat", Use: middleware.SerializeChat()},
		Middleware{Name: "logger", Use: middleware.LoggerMiddleware},
	)
	if opts.Counters != nil {
		mws = append(mws, Middleware{Name: "counters", Use: opts.Counters.Middleware})
	}
	return mws
}

func rateLimitOptions(rc coreconfig.RateLimitConfig, onLimited func(tele.Context) error) (middleware.RateLimitOptions, bool) {
	interval := time.Duration(rc.IntervalMS) * time.Millisecond
	if interval <= 0 {
		return middleware.RateLimitOptions{}, false
	}
	exclude := make(map[string]struct{}, len(rc.ExcludeUpdates))
	for _, t := range rc.ExcludeUpdates {
		exclude[strings.ToLower(strings.TrimSpace(t))] = struct{}{}
	}
	return middleware.RateLimitOptions{
		Interval:  interval,
		Exclude:   exclude,
		OnLimited: onLimited,
	}, true
}
