package cart

import (
	"github.com/shopspring/decimal"

	"github.com/noah-isme/cafe-storefront/internal/pricing"
)

// Grind is the grinding style of a configured product.
type Grind string

const (
	GrindWhole     Grind = "whole"
	GrindCoarse    Grind = "coarse"
	GrindMedium    Grind = "medium"
	GrindFine      Grind = "fine"
	GrindEspresso  Grind = "espresso"
	GrindNespresso Grind = "nespresso"
)

var grindLabels = map[Grind]string{
	GrindWhole:     "Granos Enteros",
	GrindCoarse:    "Gruesa",
	GrindMedium:    "Media",
	GrindFine:      "Fina",
	GrindEspresso:  "Espresso",
	GrindNespresso: "Nespresso",
}

// Valid reports whether g is a known grind.
func (g Grind) Valid() bool {
	_, ok := grindLabels[g]
	return ok
}

// Label returns the display label of g.
func (g Grind) Label() string {
	if l, ok := grindLabels[g]; ok {
		return l
	}
	return string(g)
}

// DefaultGrind is preselected for a customer: whole beans for wholesale accounts.
func DefaultGrind(wholesale bool) Grind {
	if wholesale {
		return GrindWhole
	}
	return GrindNespresso
}

// Mode distinguishes regular from wholesale selections.
type Mode string

const (
	ModeRegular   Mode = "regular"
	ModeWholesale Mode = "wholesale"
)

// Selection is either a Regular or a Wholesale choice.
type Selection interface {
	Mode() Mode
	// Count is the number of packages the selection represents.
	Count() int
	// Line builds the pricing input for base.
	Line(base decimal.Decimal) pricing.Line
	normalize() Selection
}

// Regular is a single presentation ordered quantity times.
type Regular struct {
	Presentation pricing.Presentation
	Quantity     int
}

// Wholesale orders quarter and full kilogram packages together.
type Wholesale struct {
	Quarter int
	Full    int
}

func (Regular) Mode() Mode   { return ModeRegular }
func (Wholesale) Mode() Mode { return ModeWholesale }

func (r Regular) Count() int   { return r.Quantity }
func (w Wholesale) Count() int { return w.Quarter + w.Full }

func (r Regular) Line(base decimal.Decimal) pricing.Line {
	return pricing.Line{BasePrice: base, Presentation: r.Presentation, Quantity: r.Quantity}
}

func (w Wholesale) Line(base decimal.Decimal) pricing.Line {
	return pricing.Line{BasePrice: base, Wholesale: true, QuarterQty: w.Quarter, FullQty: w.Full}
}

func (r Regular) normalize() Selection {
	if r.Presentation == "" {
		r.Presentation = pricing.DefaultPresentation
	}
	if r.Quantity <= 0 {
		r.Quantity = 1
	}
	return r
}

func (w Wholesale) normalize() Selection {
	if w.Quarter < 0 {
		w.Quarter = 0
	}
	if w.Full < 0 {
		w.Full = 0
	}
	return w
}

// Normalize applies selection defaults: a regular selection without a size
// becomes a quarter, a missing quantity becomes one.
func Normalize(s Selection) Selection {
	if s == nil {
		return Regular{}.normalize()
	}
	return s.normalize()
}
