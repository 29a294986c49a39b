package cart

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/cafe-storefront/internal/pricing"
)

// RegistryConfig configures the per-session cart registry.
type RegistryConfig struct {
	TaxRate   decimal.Decimal
	Prices    pricing.Policy
	Publisher Publisher
	Logger    zerolog.Logger
	IdleTTL   time.Duration
	Now       func() time.Time
}

// Registry keeps one volatile cart per session. Carts are never persisted and
// are dropped after IdleTTL without activity.
type Registry struct {
	mu     sync.Mutex
	stores map[string]*Store
	cfg    RegistryConfig
}

// NewRegistry constructs an empty registry.
func NewRegistry(cfg RegistryConfig) *Registry {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = 24 * time.Hour
	}
	return &Registry{stores: make(map[string]*Store), cfg: cfg}
}

// Get returns the cart of sessionID, creating an empty one on first use.
// Fetching a cart counts as activity, so a concurrent Sweep keeps it.
func (r *Registry) Get(sessionID string) *Store {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.stores[sessionID]; ok {
		s.touch(r.cfg.Now())
		return s
	}
	s := NewStore(StoreConfig{
		SessionID: sessionID,
		TaxRate:   r.cfg.TaxRate,
		Prices:    r.cfg.Prices,
		Publisher: r.cfg.Publisher,
		Logger:    r.cfg.Logger,
		Now:       r.cfg.Now,
	})
	r.stores[sessionID] = s
	return s
}

// Lookup returns the cart of sessionID without creating it.
func (r *Registry) Lookup(sessionID string) (*Store, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.stores[sessionID]
	if ok {
		s.touch(r.cfg.Now())
	}
	return s, ok
}

// CurrentCount returns the package count of sessionID, zero when it has no cart.
func (r *Registry) CurrentCount(sessionID string) int {
	s, ok := r.Lookup(sessionID)
	if !ok {
		return 0
	}
	return s.Count()
}

// Drop forgets the cart of sessionID.
func (r *Registry) Drop(sessionID string) {
	r.mu.Lock()
	delete(r.stores, sessionID)
	r.mu.Unlock()
}

// Len reports the number of live carts.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.stores)
}

// Sweep drops carts idle for longer than the configured TTL and returns how many were removed.
func (r *Registry) Sweep(now time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	removed := 0
	for id, s := range r.stores {
		if now.Sub(s.TouchedAt()) > r.cfg.IdleTTL {
			delete(r.stores, id)
			removed++
		}
	}
	return removed
}

// Run sweeps idle carts every interval until ctx is cancelled.
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := r.Sweep(r.cfg.Now()); n > 0 {
				r.cfg.Logger.Info().Int("removed", n).Msg("idle carts swept")
			}
		}
	}
}
