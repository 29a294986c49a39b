package cart

import (
	"github.com/shopspring/decimal"

	"github.com/noah-isme/cafe-storefront/internal/catalog"
	"github.com/noah-isme/cafe-storefront/internal/pricing"
)

// Row is one removable presentation line inside a Group.
type Row struct {
	Ref          RowRef               `json:"id"`
	Presentation pricing.Presentation `json:"presentation"`
	Label        string               `json:"label"`
	Quantity     int                  `json:"quantity"`
	Total        decimal.Decimal      `json:"total"`
}

// Group collects the rows of every item sharing a product and grind.
type Group struct {
	ProductID  string          `json:"productId"`
	Grind      Grind           `json:"grind"`
	GrindLabel string          `json:"grindLabel"`
	Product    catalog.Product `json:"product"`
	Rows       []Row           `json:"rows"`
	Total      decimal.Decimal `json:"total"`
}

type groupKey struct {
	productID string
	grind     Grind
}

// GroupItems projects items into display groups keyed by product and grind,
// ordered by first occurrence. Items without any visible row are skipped.
func GroupItems(items []Item) []Group {
	groups := make([]Group, 0, len(items))
	index := make(map[groupKey]int, len(items))
	for _, it := range items {
		rows := rowsFor(it)
		if len(rows) == 0 {
			continue
		}
		key := groupKey{productID: it.Product.ID, grind: it.Grind}
		pos, ok := index[key]
		if !ok {
			pos = len(groups)
			index[key] = pos
			groups = append(groups, Group{
				ProductID:  it.Product.ID,
				Grind:      it.Grind,
				GrindLabel: it.Grind.Label(),
				Product:    it.Product,
				Total:      decimal.Zero,
			})
		}
		g := &groups[pos]
		for _, row := range rows {
			g.Rows = append(g.Rows, row)
			g.Total = g.Total.Add(row.Total)
		}
	}
	return groups
}

func rowsFor(it Item) []Row {
	base := it.Product.Price
	switch sel := it.Selection.(type) {
	case Wholesale:
		rows := make([]Row, 0, 2)
		if sel.Quarter > 0 {
			rows = append(rows, Row{
				Ref:          RowRef{CartID: it.CartID, Tag: TagQuarter},
				Presentation: pricing.Quarter,
				Label:        pricing.Quarter.Label(),
				Quantity:     sel.Quarter,
				Total:        pricing.WholesaleTotal(base, sel.Quarter, 0),
			})
		}
		if sel.Full > 0 {
			rows = append(rows, Row{
				Ref:          RowRef{CartID: it.CartID, Tag: TagFull},
				Presentation: pricing.Full,
				Label:        pricing.Full.Label(),
				Quantity:     sel.Full,
				Total:        pricing.WholesaleTotal(base, 0, sel.Full),
			})
		}
		return rows
	case Regular:
		return []Row{{
			Ref:          RowRef{CartID: it.CartID},
			Presentation: sel.Presentation,
			Label:        sel.Presentation.Label(),
			Quantity:     sel.Quantity,
			Total:        pricing.RegularTotal(base, sel.Presentation, sel.Quantity),
		}}
	default:
		return nil
	}
}
