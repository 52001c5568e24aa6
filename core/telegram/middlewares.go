package telegram

import (
	"time"

	coreconfig "github.com/m3rciful/callmylawyer/core/config"
	"github.com/m3rciful/callmylawyer/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// DefaultMiddlewares is the chain every bot starts from, outermost first:
// recover, the per-user rate limit when configured, update logging and
// reply counting for rec. Rate-limited updates go to onLimited.
func DefaultMiddlewares(cfg *coreconfig.Config, onLimited tele.HandlerFunc, rec middleware.Recorder) []Middleware {
	chain := []Middleware{{Name: "recover", Use: middleware.RecoverMiddleware}}
	if cfg != nil {
		if opts, ok := rateLimit(cfg.RateLimit, onLimited); ok {
			chain = append(chain, Middleware{Name: "rate_limit", Use: middleware.RateLimitMiddleware(opts)})
		}
	}
	return append(chain,
		Middleware{Name: "logger", Use: middleware.LoggerMiddleware},
		Middleware{Name: "replies", Use: middleware.RepliesMiddleware(rec)},
	)
}

// rateLimit maps the config section onto limiter options; ok is false when
// limiting is off. Exclusions are already lower-cased by Normalize.
func rateLimit(rl coreconfig.RateLimitConfig, onLimited tele.HandlerFunc) (middleware.RateLimitOptions, bool) {
	if rl.IntervalMS <= 0 {
		return middleware.RateLimitOptions{}, false
	}
	skip := make(map[string]struct{}, len(rl.ExcludeUpdates))
	for _, kind := range rl.ExcludeUpdates {
		skip[kind] = struct{}{}
	}
	return middleware.RateLimitOptions{
		Interval:  time.Duration(rl.IntervalMS) * time.Millisecond,
		Burst:     rl.Burst,
		Exclude:   skip,
		OnLimited: onLimited,
	}, true
}
