package backend

import "strings"

// DefaultCountry is assumed for every address typed by a customer.
const DefaultCountry = "Argentina"

// ParseAddress splits a free-form "street, city, state, postal code" string
// into its components. Missing parts stay empty; a string without commas is
// taken whole as the street.
func ParseAddress(s string) Address {
	parts := strings.Split(s, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	at := func(i int) string {
		if i < len(parts) {
			return parts[i]
		}
		return ""
	}
	street := at(0)
	if street == "" {
		street = strings.TrimSpace(s)
	}
	return Address{
		Street:     street,
		City:       at(1),
		State:      at(2),
		PostalCode: at(3),
		Country:    DefaultCountry,
	}
}

// Format renders the address the way customers read it on their profile.
func (a *Address) Format() string {
	if a == nil {
		return ""
	}
	return strings.Join([]string{a.Street, a.City, a.State, a.PostalCode}, ", ")
}
