package pricing

import "github.com/shopspring/decimal"

// DefaultTaxRate is the Argentine VAT applied on top of the subtotal.
var DefaultTaxRate = decimal.RequireFromString("0.21")

// Line is the pricing input for one cart item.
type Line struct {
	BasePrice decimal.Decimal

	Wholesale    bool
	Presentation Presentation
	Quantity     int
	QuarterQty   int
	FullQty      int
}

// Totals aggregates the order amounts.
type Totals struct {
	Subtotal  decimal.Decimal `json:"subtotal"`
	Tax       decimal.Decimal `json:"tax"`
	Total     decimal.Decimal `json:"total"`
	Formatted Formatted       `json:"formatted"`
}

// Formatted carries the amounts as fixed two-decimal strings.
type Formatted struct {
	Subtotal string `json:"subtotal"`
	Tax      string `json:"tax"`
	Total    string `json:"total"`
}

// UnitPrice is the price of one package of size p.
func UnitPrice(base decimal.Decimal, p Presentation) decimal.Decimal {
	return base.Mul(Multiplier(p))
}

// WholesaleTotal prices quarter and full kilogram packages at their fixed weights.
func WholesaleTotal(base decimal.Decimal, quarterQty, fullQty int) decimal.Decimal {
	quarter := UnitPrice(base, Quarter).Mul(decimal.NewFromInt(int64(quarterQty)))
	full := UnitPrice(base, Full).Mul(decimal.NewFromInt(int64(fullQty)))
	return quarter.Add(full)
}

// RegularTotal prices quantity packages of the chosen presentation.
func RegularTotal(base decimal.Decimal, p Presentation, quantity int) decimal.Decimal {
	return UnitPrice(base, p).Mul(decimal.NewFromInt(int64(quantity)))
}

// LineTotal prices a single line according to its selection mode.
func LineTotal(l Line) decimal.Decimal {
	if l.Wholesale {
		return WholesaleTotal(l.BasePrice, l.QuarterQty, l.FullQty)
	}
	return RegularTotal(l.BasePrice, l.Presentation, l.Quantity)
}

// Summarize computes subtotal, tax and total for the given lines, each
// rounded to cents so the amounts agree with their formatted strings.
func Summarize(lines []Line, taxRate decimal.Decimal) Totals {
	subtotal := decimal.Zero
	for _, l := range lines {
		subtotal = subtotal.Add(LineTotal(l))
	}
	subtotal = subtotal.Round(2)
	tax := subtotal.Mul(taxRate).Round(2)
	total := subtotal.Add(tax)
	return Totals{
		Subtotal: subtotal,
		Tax:      tax,
		Total:    total,
		Formatted: Formatted{
			Subtotal: subtotal.StringFixed(2),
			Tax:      tax.StringFixed(2),
			Total:    total.StringFixed(2),
		},
	}
}

// FormatCurrency renders amount the way the storefront displays prices.
func FormatCurrency(amount decimal.Decimal) string {
	return "$" + amount.StringFixed(2)
}
