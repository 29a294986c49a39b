package pricing

import "github.com/shopspring/decimal"

// Presentation is the package size a regular customer orders.
type Presentation string

const (
	Quarter Presentation = "quarter"
	Half    Presentation = "half"
	Full    Presentation = "full"
)

// DefaultPresentation applies when a regular selection omits the size.
const DefaultPresentation = Quarter

var (
	multipliers = map[Presentation]decimal.Decimal{
		Quarter: decimal.NewFromInt(1),
		Half:    decimal.RequireFromString("1.8"),
		Full:    decimal.RequireFromString("3.5"),
	}
	labels = map[Presentation]string{
		Quarter: "1/4 kg",
		Half:    "1/2 kg",
		Full:    "1 kg",
	}
	one = decimal.NewFromInt(1)
)

// Multiplier returns the base price multiplier for p. Unknown sizes price as a quarter.
func Multiplier(p Presentation) decimal.Decimal {
	if m, ok := multipliers[p]; ok {
		return m
	}
	return one
}

// Valid reports whether p is a known presentation.
func (p Presentation) Valid() bool {
	_, ok := multipliers[p]
	return ok
}

// Label returns the storefront display label, or the raw value for unknown sizes.
func (p Presentation) Label() string {
	if l, ok := labels[p]; ok {
		return l
	}
	return string(p)
}
