package pricing

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/cafe-storefront/internal/obs"
)

// DefaultFallbackPrice is substituted whenever a product price cannot be used.
var DefaultFallbackPrice = decimal.NewFromInt(12000)

// FallbackReason explains why a raw price was replaced.
type FallbackReason string

const (
	ReasonMissing     FallbackReason = "missing"
	ReasonUnparseable FallbackReason = "unparseable"
	ReasonNonPositive FallbackReason = "non_positive"
)

// Policy resolves raw product prices into usable base prices.
type Policy struct {
	Fallback   decimal.Decimal
	OnFallback func(raw any, reason FallbackReason)
}

// DefaultPolicy returns a policy with the standard fallback and no hook.
func DefaultPolicy() Policy {
	return Policy{Fallback: DefaultFallbackPrice}
}

// NewPolicy builds a policy that logs and counts every fallback substitution.
func NewPolicy(fallback float64, logger zerolog.Logger) Policy {
	p := Policy{Fallback: decimal.NewFromFloat(fallback)}
	if !p.Fallback.IsPositive() {
		p.Fallback = DefaultFallbackPrice
	}
	p.OnFallback = func(raw any, reason FallbackReason) {
		obs.CountPriceFallback(string(reason))
		logger.Warn().
			Str("reason", string(reason)).
			Str("raw", fmt.Sprint(raw)).
			Str("fallback", p.Fallback.String()).
			Msg("product price replaced by fallback")
	}
	return p
}

// Resolve returns the parsed price, or the fallback when raw is absent, malformed or not positive.
func (p Policy) Resolve(raw any) decimal.Decimal {
	price, reason, ok := ParsePrice(raw)
	if ok {
		return price
	}
	if p.OnFallback != nil {
		p.OnFallback(raw, reason)
	}
	if !p.Fallback.IsPositive() {
		return DefaultFallbackPrice
	}
	return p.Fallback
}

// ParsePrice coerces raw into a positive decimal. Strings may carry a currency
// symbol and thousands separators ("$12,000.50").
func ParsePrice(raw any) (decimal.Decimal, FallbackReason, bool) {
	var (
		d   decimal.Decimal
		err error
	)
	switch v := raw.(type) {
	case nil:
		return decimal.Zero, ReasonMissing, false
	case decimal.Decimal:
		d = v
	case *decimal.Decimal:
		if v == nil {
			return decimal.Zero, ReasonMissing, false
		}
		d = *v
	case string:
		cleaned := strings.NewReplacer("$", "", ",", "", " ", "").Replace(strings.TrimSpace(v))
		if cleaned == "" {
			return decimal.Zero, ReasonMissing, false
		}
		d, err = decimal.NewFromString(cleaned)
	case json.Number:
		d, err = decimal.NewFromString(v.String())
	case float64:
		d = decimal.NewFromFloat(v)
	case float32:
		d = decimal.NewFromFloat32(v)
	case int:
		d = decimal.NewFromInt(int64(v))
	case int32:
		d = decimal.NewFromInt32(v)
	case int64:
		d = decimal.NewFromInt(v)
	default:
		return decimal.Zero, ReasonUnparseable, false
	}
	if err != nil {
		return decimal.Zero, ReasonUnparseable, false
	}
	if !d.IsPositive() {
		return decimal.Zero, ReasonNonPositive, false
	}
	return d, "", true
}
