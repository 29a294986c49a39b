package cart

import (
	"encoding/json"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/cafe-storefront/internal/catalog"
	"github.com/noah-isme/cafe-storefront/internal/pricing"
)

// Item is one cart line: a product configured with a selection.
type Item struct {
	CartID    int64
	Product   catalog.Product
	Grind     Grind
	Selection Selection
}

// Count is the number of packages the item contributes to the cart count.
func (it Item) Count() int {
	if it.Selection == nil {
		return 0
	}
	return it.Selection.Count()
}

// Line returns the pricing input of the item.
func (it Item) Line() pricing.Line {
	return it.Selection.Line(it.Product.Price)
}

// Total prices the item.
func (it Item) Total() decimal.Decimal {
	return pricing.LineTotal(it.Line())
}

type itemJSON struct {
	CartID          int64                `json:"cartId"`
	Product         catalog.Product      `json:"product"`
	Grind           Grind                `json:"grind"`
	GrindLabel      string               `json:"grindLabel"`
	Mode            Mode                 `json:"mode"`
	Presentation    pricing.Presentation `json:"presentation,omitempty"`
	Quantity        int                  `json:"quantity,omitempty"`
	QuarterQuantity int                  `json:"quarterQuantity,omitempty"`
	FullQuantity    int                  `json:"fullQuantity,omitempty"`
	Total           string               `json:"total"`
}

// MarshalJSON flattens the selection into the item payload.
func (it Item) MarshalJSON() ([]byte, error) {
	out := itemJSON{
		CartID:     it.CartID,
		Product:    it.Product,
		Grind:      it.Grind,
		GrindLabel: it.Grind.Label(),
		Total:      it.Total().StringFixed(2),
	}
	switch sel := it.Selection.(type) {
	case Regular:
		out.Mode = ModeRegular
		out.Presentation = sel.Presentation
		out.Quantity = sel.Quantity
	case Wholesale:
		out.Mode = ModeWholesale
		out.QuarterQuantity = sel.Quarter
		out.FullQuantity = sel.Full
	}
	return json.Marshal(out)
}
