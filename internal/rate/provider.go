// Package rate resolves the current USD to LBP exchange rate.
package rate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-pos/internal/currency"
	"github.com/noah-isme/backend-pos/internal/obs"
)

const defaultKey = "rate:usd_lbp:current"

// Provider reads the latest posted exchange rate through a Redis cache.
// Without a configured rate the provider returns currency.ErrRateRequired so
// callers fail the same way the engine does.
type Provider struct {
	Pool *pgxpool.Pool
	R    *redis.Client
	TTL  time.Duration
	Key  string
}

// Current returns the most recent exchange rate.
func (p *Provider) Current(ctx context.Context) (decimal.Decimal, error) {
	if p == nil || p.Pool == nil {
		return decimal.Decimal{}, errors.New("rate: provider not configured")
	}
	key := p.Key
	if key == "" {
		key = defaultKey
	}

	if p.R != nil {
		cached, err := p.R.Get(ctx, key).Result()
		if err == nil {
			if rate, perr := decimal.NewFromString(cached); perr == nil && rate.IsPositive() {
				countLookup("cache")
				return rate, nil
			}
		} else if !errors.Is(err, redis.Nil) {
			// Redis being down must not block sales.
			countLookup("cache_error")
		}
	}

	var raw string
	err := p.Pool.QueryRow(ctx,
		`SELECT rate::text FROM exchange_rates ORDER BY effective_at DESC LIMIT 1`,
	).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			countLookup("missing")
			return decimal.Decimal{}, currency.ErrRateRequired
		}
		return decimal.Decimal{}, fmt.Errorf("load exchange rate: %w", err)
	}
	rate, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("parse exchange rate %q: %w", raw, err)
	}
	if !rate.IsPositive() {
		countLookup("missing")
		return decimal.Decimal{}, currency.ErrRateRequired
	}
	countLookup("db")

	if p.R != nil && p.TTL > 0 {
		_ = p.R.Set(ctx, key, rate.String(), p.TTL).Err()
	}
	return rate, nil
}

func countLookup(source string) {
	if obs.RateLookupTotal != nil {
		obs.RateLookupTotal.WithLabelValues(source).Inc()
	}
}
