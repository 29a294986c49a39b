package ratelimit

import (
	"fmt"
	"net/http"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	limiter "github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/middleware/stdlib"
	limiterredis "github.com/ulule/limiter/v3/drivers/store/redis"

	"github.com/noah-isme/cafe-storefront/internal/common"
)

// DefaultAuthRate bounds login and registration attempts per client.
const DefaultAuthRate = "10-M"

// NewAuthLimiter builds the fixed-window limiter guarding the account
// endpoints. rate uses the "<limit>-<period>" notation, e.g. "10-M".
func NewAuthLimiter(rdb redis.UniversalClient, rate string, logger zerolog.Logger) (*stdlib.Middleware, error) {
	if rate == "" {
		rate = DefaultAuthRate
	}
	parsed, err := limiter.NewRateFromFormatted(rate)
	if err != nil {
		return nil, fmt.Errorf("parse auth rate %q: %w", rate, err)
	}
	store, err := limiterredis.NewStoreWithOptions(rdb, limiter.StoreOptions{Prefix: "storefront:auth-limit"})
	if err != nil {
		return nil, fmt.Errorf("auth limiter store: %w", err)
	}
	instance := limiter.New(store, parsed, limiter.WithTrustForwardHeader(true))
	return stdlib.NewMiddleware(instance,
		stdlib.WithLimitReachedHandler(func(w http.ResponseWriter, r *http.Request) {
			logger.Warn().Str("ip", common.ClientIP(r)).Str("path", r.URL.Path).Msg("auth rate limit reached")
			common.JSONError(w, http.StatusTooManyRequests, "RATE_LIMITED", LimitedMessage, nil)
		}),
		stdlib.WithErrorHandler(func(w http.ResponseWriter, r *http.Request, err error) {
			logger.Error().Err(err).Msg("auth rate limiter failed")
			common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "internal error", nil)
		}),
	), nil
}
