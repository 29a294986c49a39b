package cart

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/cafe-storefront/internal/catalog"
	"github.com/noah-isme/cafe-storefront/internal/obs"
	"github.com/noah-isme/cafe-storefront/internal/pricing"
)

// ErrNotFound indicates the referenced cart row does not exist.
var ErrNotFound = errors.New("cart item not found")

// ErrInvalidInput is returned when the provided payload is invalid.
var ErrInvalidInput = errors.New("invalid input")

// Publisher receives the recomputed cart count after every mutation.
type Publisher interface {
	PublishCount(ctx context.Context, sessionID string, count int)
}

// ChangeKind names the mutation that produced a Change.
type ChangeKind string

const (
	ChangeAdded   ChangeKind = "added"
	ChangeRemoved ChangeKind = "removed"
	ChangeCleared ChangeKind = "cleared"
)

// Notice is the confirmation message shown to the customer.
type Notice struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Change describes the outcome of a cart mutation.
type Change struct {
	Kind   ChangeKind `json:"kind"`
	Mode   Mode       `json:"mode,omitempty"`
	Count  int        `json:"count"`
	Notice Notice     `json:"notice"`
	// Item is the affected item after the mutation, nil when it was deleted.
	Item *Item `json:"item,omitempty"`
}

// View is a consistent snapshot of the cart.
type View struct {
	Items  []Item         `json:"items"`
	Groups []Group        `json:"groups"`
	Totals pricing.Totals `json:"totals"`
	Count  int            `json:"count"`
}

// StoreConfig configures a Store.
type StoreConfig struct {
	SessionID string
	// TaxRate defaults to pricing.DefaultTaxRate when not positive.
	TaxRate   decimal.Decimal
	Prices    pricing.Policy
	Publisher Publisher
	Logger    zerolog.Logger
	Now       func() time.Time
}

var clearedNotice = Notice{Title: "Carrito vaciado", Description: "Tu carrito está vacío."}

// Store owns the ordered cart items of one session. It is safe for concurrent use.
type Store struct {
	mu        sync.Mutex
	sessionID string
	items     []Item
	lastID    int64
	touchedAt time.Time
	// seq numbers mutations; published is the newest seq sent to the publisher.
	seq       uint64
	pubMu     sync.Mutex
	published uint64

	taxRate   decimal.Decimal
	prices    pricing.Policy
	publisher Publisher
	logger    zerolog.Logger
	now       func() time.Time
}

// NewStore constructs an empty cart.
func NewStore(cfg StoreConfig) *Store {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	taxRate := cfg.TaxRate
	if !taxRate.IsPositive() {
		taxRate = pricing.DefaultTaxRate
	}
	return &Store{
		sessionID: cfg.SessionID,
		taxRate:   taxRate,
		prices:    cfg.Prices,
		publisher: cfg.Publisher,
		logger:    cfg.Logger,
		now:       now,
		touchedAt: now(),
	}
}

// Add puts a configured product into the cart. An existing item with the same
// product, grind and selection mode absorbs the incoming quantities; otherwise
// a new item with a fresh cart id is appended.
func (s *Store) Add(ctx context.Context, product catalog.Product, grind Grind, sel Selection) (Change, error) {
	if s == nil {
		return Change{}, errors.New("cart store not configured")
	}
	if strings.TrimSpace(product.ID) == "" {
		return Change{}, fmt.Errorf("product id is required: %w", ErrInvalidInput)
	}
	sel = Normalize(sel)
	if sel.Count() <= 0 {
		return Change{}, fmt.Errorf("selection has no packages: %w", ErrInvalidInput)
	}
	if grind == "" {
		grind = DefaultGrind(sel.Mode() == ModeWholesale)
	}
	product.Price = s.prices.Resolve(product.Price)

	s.mu.Lock()
	s.touchedAt = s.now()
	idx := s.indexOf(product.ID, grind, sel.Mode())
	if idx >= 0 {
		s.items[idx].Selection = merge(s.items[idx].Selection, sel)
	} else {
		s.lastID++
		s.items = append(s.items, Item{CartID: s.lastID, Product: product, Grind: grind, Selection: sel})
		idx = len(s.items) - 1
	}
	item := s.items[idx]
	count := s.countLocked()
	seq := s.nextSeqLocked()
	s.mu.Unlock()

	obs.CountCartMutation("add", string(sel.Mode()))
	s.logger.Debug().Str("session_id", s.sessionID).Int64("cart_id", item.CartID).Str("product_id", product.ID).Str("mode", string(sel.Mode())).Int("count", count).Msg("cart item added")
	s.publish(ctx, seq, count)

	return Change{
		Kind:   ChangeAdded,
		Mode:   sel.Mode(),
		Count:  count,
		Notice: addedNotice(product.Name, sel),
		Item:   &item,
	}, nil
}

// Remove deletes the row addressed by ref. A wholesale package row only zeroes
// that size; the item disappears once both sizes are zero.
func (s *Store) Remove(ctx context.Context, ref RowRef) (Change, error) {
	if s == nil {
		return Change{}, errors.New("cart store not configured")
	}
	s.mu.Lock()
	s.touchedAt = s.now()
	idx := s.indexOfID(ref.CartID)
	if idx < 0 {
		s.mu.Unlock()
		return Change{}, fmt.Errorf("row %s: %w", ref, ErrNotFound)
	}

	var remaining *Item
	mode := s.items[idx].Selection.Mode()
	switch ref.Tag {
	case TagItem:
		s.deleteLocked(idx)
	case TagQuarter, TagFull:
		w, ok := s.items[idx].Selection.(Wholesale)
		if !ok {
			s.mu.Unlock()
			return Change{}, fmt.Errorf("row %s: %w", ref, ErrNotFound)
		}
		if ref.Tag == TagQuarter {
			w.Quarter = 0
		} else {
			w.Full = 0
		}
		if w.Count() == 0 {
			s.deleteLocked(idx)
		} else {
			s.items[idx].Selection = w
			item := s.items[idx]
			remaining = &item
		}
	default:
		s.mu.Unlock()
		return Change{}, fmt.Errorf("row %s: %w", ref, ErrInvalidInput)
	}
	count := s.countLocked()
	seq := s.nextSeqLocked()
	s.mu.Unlock()

	obs.CountCartMutation("remove", string(mode))
	s.logger.Debug().Str("session_id", s.sessionID).Str("row", ref.String()).Int("count", count).Msg("cart row removed")
	s.publish(ctx, seq, count)

	return Change{
		Kind:   ChangeRemoved,
		Mode:   mode,
		Count:  count,
		Notice: Notice{Title: "Producto removido", Description: "El producto fue removido del carrito."},
		Item:   remaining,
	}, nil
}

// Clear empties the cart. Cart ids keep increasing afterwards.
func (s *Store) Clear(ctx context.Context) Change {
	s.mu.Lock()
	s.touchedAt = s.now()
	s.items = nil
	seq := s.nextSeqLocked()
	s.mu.Unlock()

	obs.CountCartMutation("clear", "")
	s.publish(ctx, seq, 0)
	return Change{Kind: ChangeCleared, Count: 0, Notice: clearedNotice}
}

// Deduct takes the quantities of ordered out of the cart, matching items by
// cart id. Anything added after ordered was snapshotted stays in the cart.
func (s *Store) Deduct(ctx context.Context, ordered []Item) Change {
	s.mu.Lock()
	s.touchedAt = s.now()
	for _, o := range ordered {
		idx := s.indexOfID(o.CartID)
		if idx < 0 {
			continue
		}
		left := deduct(s.items[idx].Selection, o.Selection)
		if left.Count() <= 0 {
			s.deleteLocked(idx)
			continue
		}
		s.items[idx].Selection = left
	}
	count := s.countLocked()
	seq := s.nextSeqLocked()
	s.mu.Unlock()

	obs.CountCartMutation("deduct", "")
	s.publish(ctx, seq, count)
	if count == 0 {
		return Change{Kind: ChangeCleared, Notice: clearedNotice}
	}
	return Change{Kind: ChangeRemoved, Count: count, Notice: Notice{Title: "Carrito actualizado", Description: "Los productos pedidos se quitaron del carrito."}}
}

// Items returns a copy of the cart items in insertion order.
func (s *Store) Items() []Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.itemsLocked()
}

// Count recomputes the number of packages in the cart.
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.countLocked()
}

// Totals prices the whole cart.
func (s *Store) Totals() pricing.Totals {
	return s.View().Totals
}

// Groups returns the display groups of the cart.
func (s *Store) Groups() []Group {
	return GroupItems(s.Items())
}

// View returns items, groups, totals and count computed from one snapshot.
func (s *Store) View() View {
	s.mu.Lock()
	s.touchedAt = s.now()
	items := s.itemsLocked()
	count := s.countLocked()
	s.mu.Unlock()

	lines := make([]pricing.Line, 0, len(items))
	for _, it := range items {
		lines = append(lines, it.Line())
	}
	return View{
		Items:  items,
		Groups: GroupItems(items),
		Totals: pricing.Summarize(lines, s.taxRate),
		Count:  count,
	}
}

// TouchedAt reports the last time the cart was read or mutated.
func (s *Store) TouchedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.touchedAt
}

func (s *Store) touch(at time.Time) {
	s.mu.Lock()
	if at.After(s.touchedAt) {
		s.touchedAt = at
	}
	s.mu.Unlock()
}

func (s *Store) indexOf(productID string, grind Grind, mode Mode) int {
	for i, it := range s.items {
		if it.Product.ID == productID && it.Grind == grind && it.Selection.Mode() == mode {
			return i
		}
	}
	return -1
}

func (s *Store) indexOfID(cartID int64) int {
	for i := range s.items {
		if s.items[i].CartID == cartID {
			return i
		}
	}
	return -1
}

func (s *Store) deleteLocked(idx int) {
	s.items = append(s.items[:idx:idx], s.items[idx+1:]...)
}

func (s *Store) itemsLocked() []Item {
	out := make([]Item, len(s.items))
	copy(out, s.items)
	return out
}

func (s *Store) countLocked() int {
	total := 0
	for _, it := range s.items {
		total += it.Count()
	}
	return total
}

func (s *Store) nextSeqLocked() uint64 {
	s.seq++
	return s.seq
}

// publish sends count unless a later mutation already published its own.
// Publishes are serialized so the last count out matches the cart.
func (s *Store) publish(ctx context.Context, seq uint64, count int) {
	if s.publisher == nil {
		return
	}
	s.pubMu.Lock()
	defer s.pubMu.Unlock()
	if seq <= s.published {
		return
	}
	s.published = seq
	s.publisher.PublishCount(ctx, s.sessionID, count)
}

func deduct(existing, ordered Selection) Selection {
	switch o := ordered.(type) {
	case Wholesale:
		cur, ok := existing.(Wholesale)
		if !ok {
			return existing
		}
		cur.Quarter = max(cur.Quarter-o.Quarter, 0)
		cur.Full = max(cur.Full-o.Full, 0)
		return cur
	case Regular:
		cur, ok := existing.(Regular)
		if !ok {
			return existing
		}
		cur.Quantity = max(cur.Quantity-o.Quantity, 0)
		return cur
	default:
		return existing
	}
}

func merge(existing, incoming Selection) Selection {
	switch in := incoming.(type) {
	case Wholesale:
		cur, _ := existing.(Wholesale)
		cur.Quarter += in.Quarter
		cur.Full += in.Full
		return cur
	case Regular:
		cur, ok := existing.(Regular)
		if !ok {
			return in
		}
		cur.Quantity += in.Quantity
		return cur
	default:
		return existing
	}
}

func addedNotice(name string, sel Selection) Notice {
	w, ok := sel.(Wholesale)
	if !ok {
		return Notice{
			Title:       "¡Producto agregado!",
			Description: fmt.Sprintf("%s se agregó exitosamente al carrito.", name),
		}
	}
	parts := make([]string, 0, 2)
	if w.Quarter > 0 {
		parts = append(parts, fmt.Sprintf("%d x %s", w.Quarter, pricing.Quarter.Label()))
	}
	if w.Full > 0 {
		parts = append(parts, fmt.Sprintf("%d x %s", w.Full, pricing.Full.Label()))
	}
	return Notice{
		Title:       "¡Pedido mayorista agregado!",
		Description: fmt.Sprintf("%s (%s) se agregó al carrito mayorista.", name, strings.Join(parts, " y ")),
	}
}
