package geocode

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// ErrSuperseded is returned to a search replaced by a newer one for the same key.
var ErrSuperseded = errors.New("geocode: search superseded")

const (
	DefaultDebounce = 400 * time.Millisecond
	DefaultMinQuery = 3
)

// Searcher performs the actual lookup.
type Searcher interface {
	Search(ctx context.Context, query string) ([]Result, error)
}

type pending struct {
	cancel context.CancelCauseFunc
}

// Debouncer delays lookups by a quiet window per key (usually the session)
// and cancels a pending or in-flight lookup when a newer query arrives.
type Debouncer struct {
	Searcher Searcher
	Window   time.Duration
	MinQuery int

	mu         sync.Mutex
	inflight   map[string]*pending
	superseded metric.Int64Counter
}

// NewDebouncer constructs a Debouncer.
func NewDebouncer(s Searcher, window time.Duration, minQuery int) *Debouncer {
	if window <= 0 {
		window = DefaultDebounce
	}
	if minQuery <= 0 {
		minQuery = DefaultMinQuery
	}
	counter, _ := otel.Meter("cafe-storefront/geocode").Int64Counter(
		"geocode.superseded",
		metric.WithDescription("Address lookups cancelled by a newer query"),
	)
	return &Debouncer{
		Searcher:   s,
		Window:     window,
		MinQuery:   minQuery,
		inflight:   make(map[string]*pending),
		superseded: counter,
	}
}

// Search returns suggestions for query once the debounce window elapsed
// without a newer call for key. Queries shorter than MinQuery runes yield no
// suggestions and do not reach the searcher.
func (d *Debouncer) Search(ctx context.Context, key, query string) ([]Result, error) {
	query = strings.TrimSpace(query)
	if utf8.RuneCountInString(query) < d.MinQuery {
		d.supersede(key)
		return nil, nil
	}

	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)
	mine := &pending{cancel: cancel}

	d.mu.Lock()
	if prev, ok := d.inflight[key]; ok {
		prev.cancel(ErrSuperseded)
	}
	d.inflight[key] = mine
	d.mu.Unlock()

	defer func() {
		d.mu.Lock()
		if d.inflight[key] == mine {
			delete(d.inflight, key)
		}
		d.mu.Unlock()
	}()

	timer := time.NewTimer(d.Window)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return nil, d.cause(ctx)
	case <-timer.C:
	}

	results, err := d.Searcher.Search(ctx, query)
	if err != nil && ctx.Err() != nil {
		return nil, d.cause(ctx)
	}
	return results, err
}

func (d *Debouncer) supersede(key string) {
	d.mu.Lock()
	if prev, ok := d.inflight[key]; ok {
		prev.cancel(ErrSuperseded)
		delete(d.inflight, key)
	}
	d.mu.Unlock()
}

func (d *Debouncer) cause(ctx context.Context) error {
	err := context.Cause(ctx)
	if errors.Is(err, ErrSuperseded) && d.superseded != nil {
		d.superseded.Add(context.Background(), 1)
	}
	return err
}
