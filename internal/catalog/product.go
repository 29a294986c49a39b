package catalog

import (
	"github.com/shopspring/decimal"

	"github.com/noah-isme/cafe-storefront/internal/backend"
	"github.com/noah-isme/cafe-storefront/internal/pricing"
)

// Product is an immutable catalog entry as the storefront shows it.
type Product struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Image       string          `json:"image"`
	Badge       string          `json:"badge,omitempty"`
	Rating      float64         `json:"rating,omitempty"`
	Region      string          `json:"region,omitempty"`
	Varietal    string          `json:"varietal,omitempty"`
	Altitude    string          `json:"altitude,omitempty"`
	Notes       string          `json:"notes,omitempty"`
	Process     string          `json:"process,omitempty"`
}

// FromBackend maps a backend product, resolving its price through policy.
func FromBackend(p backend.Product, policy pricing.Policy) Product {
	out := Product{
		ID:          p.ID.String(),
		Name:        p.Name,
		Description: p.Description,
		Price:       policy.Resolve(p.RawPrice()),
		Image:       p.Image,
		Badge:       p.Badge,
		Region:      p.Region,
		Varietal:    p.Varietal,
		Altitude:    p.Altitude,
		Notes:       p.Notes,
		Process:     p.Process,
	}
	if p.Rating != nil {
		out.Rating = *p.Rating
	}
	return out
}
